// Package removal isolates the subject of an image. Every backend takes the
// raw subject bytes plus the four matting parameters and returns PNG bytes
// with the same pixel dimensions as the subject.
package removal

import (
	"context"
	"fmt"

	"github.com/kozaktomas/backdrop/internal/config"
	"github.com/kozaktomas/backdrop/internal/constants"
	"github.com/kozaktomas/backdrop/internal/matting"
)

// Options are the matting parameters passed to a removal backend.
type Options = matting.Options

// OptionsFromThreshold derives the removal parameters from the threshold
// slider: the background threshold is always the complement of t.
func OptionsFromThreshold(t int) Options {
	return Options{
		AlphaMatting:        true,
		ForegroundThreshold: t,
		BackgroundThreshold: constants.MaxThreshold - t,
		ErodeSize:           constants.DefaultErodeSize,
	}
}

// Remover defines the interface for background-removal backends.
type Remover interface {
	Name() string
	Remove(ctx context.Context, subject []byte, opts Options) ([]byte, error)
}

// New creates the remover selected by cfg.Removal.Backend.
func New(ctx context.Context, cfg *config.Config) (Remover, error) {
	switch cfg.Removal.Backend {
	case config.BackendRembg:
		return NewRembgRemover(cfg.Rembg.URL, cfg.Rembg.Model, cfg.RemovalTimeout()), nil
	case config.BackendOpenAI:
		return NewMaskRemover(NewOpenAIMasker(cfg.OpenAI.Token, cfg.Presets.Hosted.OpenAI)), nil
	case config.BackendGemini:
		masker, err := NewGeminiMasker(ctx, cfg.Gemini.APIKey, cfg.Presets.Hosted.Gemini)
		if err != nil {
			return nil, err
		}
		return NewMaskRemover(masker), nil
	case config.BackendLocal:
		return NewMaskRemover(NewLocalMasker()), nil
	default:
		return nil, fmt.Errorf("unknown removal backend: %s", cfg.Removal.Backend)
	}
}
