package handlers

import (
	"net/http"

	"github.com/kozaktomas/backdrop/internal/config"
	"github.com/kozaktomas/backdrop/internal/constants"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse describes the form defaults and the active backend.
type ConfigResponse struct {
	Title         string         `json:"title"`
	Backend       string         `json:"backend"`
	Model         string         `json:"model"`
	Threshold     ThresholdRange `json:"threshold"`
	AcceptedTypes []string       `json:"accepted_types"`
	Models        []ModelInfo    `json:"models"`
	Providers     []ProviderInfo `json:"providers"`
	History       bool           `json:"history_persistent"`
}

// ThresholdRange configures the threshold slider.
type ThresholdRange struct {
	Default int `json:"default"`
	Min     int `json:"min"`
	Max     int `json:"max"`
	Step    int `json:"step"`
}

// ModelInfo represents one rembg model preset.
type ModelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

// ProviderInfo represents information about a removal backend
type ProviderInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Get returns the available configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	models := make([]ModelInfo, 0, len(h.config.Presets.Models))
	for _, name := range h.config.Presets.ModelNames() {
		preset := h.config.Presets.Models[name]
		models = append(models, ModelInfo{Name: name, Description: preset.Description, Default: preset.Default})
	}

	providers := []ProviderInfo{
		{
			Name:      config.BackendRembg,
			Available: h.config.Rembg.URL != "",
		},
		{
			Name:      config.BackendOpenAI,
			Available: h.config.OpenAI.Token != "",
		},
		{
			Name:      config.BackendGemini,
			Available: h.config.Gemini.APIKey != "",
		},
		{
			Name:      config.BackendLocal,
			Available: true, // Always available (offline)
		},
	}

	response := ConfigResponse{
		Title:   constants.AppTitle,
		Backend: h.config.Removal.Backend,
		Model:   h.config.ModelName(),
		Threshold: ThresholdRange{
			Default: constants.DefaultThreshold,
			Min:     constants.MinThreshold,
			Max:     constants.MaxThreshold,
			Step:    constants.ThresholdStep,
		},
		AcceptedTypes: constants.AcceptedImageTypes,
		Models:        models,
		Providers:     providers,
		History:       h.config.Database.URL != "",
	}

	respondJSON(w, http.StatusOK, response)
}
