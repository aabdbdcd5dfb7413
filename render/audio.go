package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const (
	defaultSpeechBinary = "espeak-ng"
	spokenLeadIn        = "Please type in following letters or numbers: "
	mediaTypeWAV        = "audio/wav"
)

// SpeechRenderer reads an answer aloud with an espeak-compatible
// synthesizer and returns the WAV output as a data URI.
type SpeechRenderer struct {
	Binary string
	Voice  string
	// WordsPerMinute slows speech down; zero keeps the synthesizer default.
	WordsPerMinute int

	synthesize func(ctx context.Context, text string) ([]byte, error)
}

// NewSpeechRenderer returns a SpeechRenderer using espeak-ng.
func NewSpeechRenderer() *SpeechRenderer {
	return &SpeechRenderer{Binary: defaultSpeechBinary, Voice: "en-us", WordsPerMinute: 120}
}

// SpokenText is the phrase read for answer: a lead-in followed by each
// character separated by commas so the synthesizer pauses between them.
func SpokenText(answer string) string {
	var b strings.Builder
	b.WriteString(spokenLeadIn)
	for _, r := range answer {
		b.WriteRune(r)
		b.WriteString(", ")
	}
	return b.String()
}

// RenderAudio implements AudioRenderer.
func (s *SpeechRenderer) RenderAudio(ctx context.Context, answer string) (string, error) {
	if answer == "" {
		return "", ErrEmptyArtifact
	}
	synth := s.synthesize
	if synth == nil {
		synth = s.runBinary
	}
	wav, err := synth(ctx, SpokenText(answer))
	if err != nil {
		return "", err
	}
	if len(wav) == 0 {
		return "", ErrEmptyArtifact
	}
	return "data:" + mediaTypeWAV + ";base64," + base64.StdEncoding.EncodeToString(wav), nil
}

func (s *SpeechRenderer) runBinary(ctx context.Context, text string) ([]byte, error) {
	binary := s.Binary
	if binary == "" {
		binary = defaultSpeechBinary
	}
	args := []string{"--stdout"}
	if s.Voice != "" {
		args = append(args, "-v", s.Voice)
	}
	if s.WordsPerMinute > 0 {
		args = append(args, "-s", fmt.Sprint(s.WordsPerMinute))
	}
	args = append(args, text)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, errors.Join(err, errors.New(msg))
	}
	return stdout.Bytes(), nil
}
