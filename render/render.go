package render

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
)

// DefaultAlphabet omits characters that are easy to confuse visually
// (0/O/o, 1/I/i/l/L).
const DefaultAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

const (
	DefaultLength = 6
	DefaultNoise  = 2
)

var (
	// ErrEmptyArtifact is returned when a renderer produced no artifact.
	ErrEmptyArtifact = errors.New("renderer produced an empty artifact")
	errBadSpec       = errors.New("invalid challenge spec")
)

// Spec describes the challenge a renderer should produce.
type Spec struct {
	Length   int
	Alphabet string
	Noise    int
}

// Challenge is a rendered challenge and its plaintext answer.
type Challenge struct {
	Answer    string
	Artifact  string
	MediaType string
}

// Renderer produces a fresh challenge for every call.
type Renderer interface {
	Render(ctx context.Context, spec Spec) (Challenge, error)
}

// AudioRenderer speaks an existing answer and returns a data URI.
type AudioRenderer interface {
	RenderAudio(ctx context.Context, answer string) (string, error)
}

// DefaultSpec returns the policy used by the service: six characters from
// DefaultAlphabet with two noise lines.
func DefaultSpec() Spec {
	return Spec{Length: DefaultLength, Alphabet: DefaultAlphabet, Noise: DefaultNoise}
}

func (s Spec) withDefaults() Spec {
	if s.Length == 0 {
		s.Length = DefaultLength
	}
	if s.Alphabet == "" {
		s.Alphabet = DefaultAlphabet
	}
	return s
}

// RandomAnswer draws length characters uniformly from alphabet using
// crypto/rand.
func RandomAnswer(length int, alphabet string) (string, error) {
	runes := []rune(alphabet)
	if length <= 0 || len(runes) < 2 {
		return "", errBadSpec
	}
	max := big.NewInt(int64(len(runes)))
	out := make([]rune, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = runes[n.Int64()]
	}
	return string(out), nil
}
