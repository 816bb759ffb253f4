package removal

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kozaktomas/backdrop/internal/compose"
	"github.com/kozaktomas/backdrop/internal/constants"
	"github.com/kozaktomas/backdrop/internal/matting"
)

// OpenAIMasker asks the image edit endpoint for a transparent-background
// version of the subject and uses the returned alpha channel as the mask.
// Only the alpha is kept; colours always come from the original upload.
type OpenAIMasker struct {
	client *openai.Client
	model  string
}

func NewOpenAIMasker(apiKey, model string, opts ...option.RequestOption) *OpenAIMasker {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIMasker{client: &client, model: model}
}

func (m *OpenAIMasker) Name() string {
	return "openai/" + m.model
}

func (m *OpenAIMasker) Mask(ctx context.Context, img *image.NRGBA) (*image.Gray, error) {
	payload, err := encodeForUpload(img, constants.MaxRemoteImageSize)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Images.Edit(ctx, openai.ImageEditParams{
		Image: openai.ImageEditParamsImageUnion{
			OfFile: openai.File(bytes.NewReader(payload), "subject.png", "image/png"),
		},
		Prompt:        openAICutoutPrompt,
		Model:         openai.ImageModel(m.model),
		Background:    openai.ImageEditParamsBackgroundTransparent,
		OutputFormat:  openai.ImageEditParamsOutputFormatPNG,
		InputFidelity: openai.ImageEditParamsInputFidelityHigh,
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("no image in OpenAI response")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode OpenAI image: %w", err)
	}
	edited, err := compose.DecodeNRGBA(raw)
	if err != nil {
		return nil, err
	}
	return matting.MaskFromAlpha(edited), nil
}
