package removal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"google.golang.org/genai"

	"github.com/kozaktomas/backdrop/internal/compose"
	"github.com/kozaktomas/backdrop/internal/constants"
	"github.com/kozaktomas/backdrop/internal/matting"
)

// geminiSegment is one entry of the segmentation response.
type geminiSegment struct {
	Box2D []int  `json:"box_2d"` // y0, x0, y1, x1 normalized to 0-1000
	Mask  string `json:"mask"`
	Label string `json:"label"`
}

// GeminiMasker uses Gemini's segmentation output: per-object bounding boxes,
// each with a probability map that is painted into a full-size mask.
type GeminiMasker struct {
	client *genai.Client
	model  string
}

func NewGeminiMasker(ctx context.Context, apiKey, model string) (*GeminiMasker, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiMasker{client: client, model: model}, nil
}

func (m *GeminiMasker) Name() string {
	return "gemini/" + m.model
}

func (m *GeminiMasker) Mask(ctx context.Context, img *image.NRGBA) (*image.Gray, error) {
	payload, err := encodeForUpload(img, constants.MaxRemoteImageSize)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: geminiSegmentPrompt},
				{InlineData: &genai.Blob{Data: payload, MIMEType: "image/png"}},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	result, err := m.client.Models.GenerateContent(ctx, m.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	content := result.Text()
	if content == "" {
		return nil, errors.New("no response from Gemini")
	}

	b := img.Bounds()
	return parseGeminiSegments(content, b.Dx(), b.Dy())
}

// parseGeminiSegments paints every segment of the JSON response into a
// w x h mask, keeping the maximum where segments overlap.
func parseGeminiSegments(content string, w, h int) (*image.Gray, error) {
	var segments []geminiSegment
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &segments); err != nil {
		return nil, fmt.Errorf("failed to parse segmentation JSON: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no subject detected", matting.ErrEmptyMask)
	}

	mask := image.NewGray(image.Rect(0, 0, w, h))
	painted := 0
	for _, seg := range segments {
		if len(seg.Box2D) != 4 {
			continue
		}
		y0 := scaleCoord(seg.Box2D[0], h)
		x0 := scaleCoord(seg.Box2D[1], w)
		y1 := scaleCoord(seg.Box2D[2], h)
		x1 := scaleCoord(seg.Box2D[3], w)
		if x1 <= x0 || y1 <= y0 {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(seg.Mask, "data:image/png;base64,"))
		if err != nil {
			return nil, fmt.Errorf("segment %q: invalid mask encoding: %w", seg.Label, err)
		}
		segImg, _, err := compose.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("segment %q: %w", seg.Label, err)
		}

		fitted := imaging.Resize(segImg, x1-x0, y1-y0, imaging.Linear)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				v := fitted.Pix[(y-y0)*fitted.Stride+(x-x0)*4]
				if i := y*mask.Stride + x; v > mask.Pix[i] {
					mask.Pix[i] = v
				}
			}
		}
		painted++
	}

	if painted == 0 {
		return nil, fmt.Errorf("%w: no usable segments", matting.ErrEmptyMask)
	}
	return mask, nil
}

func scaleCoord(v, size int) int {
	v = max(0, min(1000, v))
	return v * size / 1000
}

// stripCodeFence removes a ```json fence that the model sometimes adds
// despite the JSON response type.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
