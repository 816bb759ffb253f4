package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/backdrop/internal/constants"
)

//go:embed presets.yaml
var presetsYAML []byte

// Backend names accepted by REMOVAL_BACKEND.
const (
	BackendRembg  = "rembg"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
	BackendLocal  = "local"
)

// Resize filters accepted by RESIZE_FILTER.
var resizeFilters = []string{"nearest", "bilinear", "catmullrom", "lanczos"}

type Config struct {
	Removal  RemovalConfig
	Rembg    RembgConfig
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Output   OutputConfig
	Database DatabaseConfig
	Web      WebConfig
	LogLevel string
	Presets  PresetsConfig
}

type RemovalConfig struct {
	Backend        string // rembg, openai, gemini or local
	TimeoutSeconds int
	ResizeFilter   string // interpolation used to fit the background to the subject
}

type RembgConfig struct {
	URL   string // base URL of a rembg server, e.g. http://localhost:7000
	Model string // defaults to the preset marked default
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type OutputConfig struct {
	Dir                     string // processed.png and final_output.png live here
	OriginalsDir            string
	KeepOriginals           bool
	OriginalsRetentionHours int
	HistoryLimit            int
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL, empty keeps run history in memory
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // extra CORS origins, localhost is always allowed
}

type PresetsConfig struct {
	Models map[string]ModelPreset `yaml:"models"`
	Hosted HostedModels           `yaml:"hosted"`
}

type ModelPreset struct {
	Description string `yaml:"description"`
	Default     bool   `yaml:"default"`
}

type HostedModels struct {
	OpenAI string `yaml:"openai"`
	Gemini string `yaml:"gemini"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean, falling back to the default
// when it is unset or unparsable.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var presets PresetsConfig
	if err := yaml.Unmarshal(presetsYAML, &presets); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded presets.yaml: " + err.Error())
	}

	cfg := &Config{
		Removal: RemovalConfig{
			Backend:        strings.ToLower(os.Getenv("REMOVAL_BACKEND")),
			TimeoutSeconds: envInt("REMOVAL_TIMEOUT_SECONDS", constants.DefaultRemovalTimeoutSeconds),
			ResizeFilter:   strings.ToLower(envString("RESIZE_FILTER", "catmullrom")),
		},
		Rembg: RembgConfig{
			URL:   strings.TrimRight(os.Getenv("REMBG_URL"), "/"),
			Model: envString("REMBG_MODEL", presets.DefaultModel()),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Output: OutputConfig{
			Dir:                     envString("OUTPUT_DIR", constants.DefaultOutputDir),
			OriginalsDir:            envString("ORIGINALS_DIR", constants.DefaultOriginalsDir),
			KeepOriginals:           envBool("KEEP_ORIGINALS", false),
			OriginalsRetentionHours: envInt("ORIGINALS_RETENTION_HOURS", 24),
			HistoryLimit:            envInt("HISTORY_LIMIT", constants.DefaultHistoryLimit),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		LogLevel: envString("LOG_LEVEL", "info"),
		Presets:  presets,
	}

	if cfg.Removal.Backend == "" {
		cfg.Removal.Backend = cfg.defaultBackend()
	}
	return cfg
}

// defaultBackend prefers a configured rembg server and otherwise falls back
// to the offline estimator.
func (c *Config) defaultBackend() string {
	if c.Rembg.URL != "" {
		return BackendRembg
	}
	return BackendLocal
}

// Validate checks that the selected backend can actually be constructed.
func (c *Config) Validate() error {
	switch c.Removal.Backend {
	case BackendRembg:
		if c.Rembg.URL == "" {
			return errors.New("REMBG_URL is required for the rembg backend")
		}
		if !c.Presets.HasModel(c.Rembg.Model) {
			return fmt.Errorf("unknown rembg model %q (known: %s)", c.Rembg.Model, strings.Join(c.Presets.ModelNames(), ", "))
		}
	case BackendOpenAI:
		if c.OpenAI.Token == "" {
			return errors.New("OPENAI_TOKEN is required for the openai backend")
		}
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the gemini backend")
		}
	case BackendLocal:
	default:
		return fmt.Errorf("unknown removal backend %q", c.Removal.Backend)
	}

	if !isResizeFilter(c.Removal.ResizeFilter) {
		return fmt.Errorf("unknown resize filter %q (known: %s)", c.Removal.ResizeFilter, strings.Join(resizeFilters, ", "))
	}
	if c.Output.Dir == "" {
		return errors.New("OUTPUT_DIR must not be empty")
	}
	return nil
}

// RemovalTimeout returns the remote backend timeout.
func (c *Config) RemovalTimeout() time.Duration {
	if c.Removal.TimeoutSeconds <= 0 {
		return time.Duration(constants.DefaultRemovalTimeoutSeconds) * time.Second
	}
	return time.Duration(c.Removal.TimeoutSeconds) * time.Second
}

// ModelName returns the model the selected backend will use.
func (c *Config) ModelName() string {
	switch c.Removal.Backend {
	case BackendRembg:
		return c.Rembg.Model
	case BackendOpenAI:
		return c.Presets.Hosted.OpenAI
	case BackendGemini:
		return c.Presets.Hosted.Gemini
	}
	return "border-distance"
}

// DefaultModel returns the preset flagged as default, or u2net.
func (p PresetsConfig) DefaultModel() string {
	for name, preset := range p.Models {
		if preset.Default {
			return name
		}
	}
	return "u2net"
}

// HasModel reports whether name is a known preset.
func (p PresetsConfig) HasModel(name string) bool {
	_, ok := p.Models[name]
	return ok
}

// ModelNames returns all preset names in alphabetical order.
func (p PresetsConfig) ModelNames() []string {
	names := make([]string, 0, len(p.Models))
	for name := range p.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isResizeFilter(name string) bool {
	for _, f := range resizeFilters {
		if f == name {
			return true
		}
	}
	return false
}
