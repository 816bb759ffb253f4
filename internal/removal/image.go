package removal

import (
	_ "embed"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/kozaktomas/backdrop/internal/compose"
)

//go:embed prompts/openai_cutout.txt
var openAICutoutPrompt string

//go:embed prompts/gemini_segment.txt
var geminiSegmentPrompt string

// encodeForUpload shrinks img to fit within maxSize (width or height) while
// keeping the aspect ratio and encodes it as PNG. Hosted backends return a
// mask that is stretched back to the original size afterwards.
func encodeForUpload(img image.Image, maxSize int) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() > maxSize || b.Dy() > maxSize {
		img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	}

	data, err := compose.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upload: %w", err)
	}
	return data, nil
}
