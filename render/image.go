package render

import (
	"context"
	"strings"

	"github.com/mojocn/base64Captcha"
)

const (
	defaultImageWidth  = 150
	defaultImageHeight = 50

	mediaTypePNG = "image/png"
)

// ImageRenderer draws PNG captchas with base64Captcha and returns them as
// data URIs.
type ImageRenderer struct {
	Width  int
	Height int
}

// NewImageRenderer returns an ImageRenderer with the default canvas size.
func NewImageRenderer() *ImageRenderer {
	return &ImageRenderer{Width: defaultImageWidth, Height: defaultImageHeight}
}

// Render implements Renderer.
func (r *ImageRenderer) Render(ctx context.Context, spec Spec) (Challenge, error) {
	if err := ctx.Err(); err != nil {
		return Challenge{}, err
	}
	spec = spec.withDefaults()
	answer, err := RandomAnswer(spec.Length, spec.Alphabet)
	if err != nil {
		return Challenge{}, err
	}

	width, height := r.Width, r.Height
	if width <= 0 {
		width = defaultImageWidth
	}
	if height <= 0 {
		height = defaultImageHeight
	}

	driver := base64Captcha.NewDriverString(
		height,
		width,
		spec.Noise,
		base64Captcha.OptionShowSlimeLine|base64Captcha.OptionShowSineLine,
		spec.Length,
		spec.Alphabet,
		nil,
		nil,
		nil,
	)
	item, err := driver.DrawCaptcha(answer)
	if err != nil {
		return Challenge{}, err
	}
	artifact := item.EncodeB64string()
	if !strings.HasPrefix(artifact, "data:") {
		return Challenge{}, ErrEmptyArtifact
	}

	return Challenge{Answer: answer, Artifact: artifact, MediaType: mediaTypePNG}, nil
}
