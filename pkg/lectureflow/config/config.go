// Package config loads lectureflow settings from YAML files and the
// environment.
//
// Settings resolve in three layers: built-in defaults, then the config
// file (when one is given), then environment variables. Environment
// variables always win, so a deployment can override a checked-in file
// without editing it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted by the "provider" setting.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Settings holds everything needed to wire a lectureflow service.
type Settings struct {
	// Provider selects the generation backend: "anthropic" or "gemini".
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model. Empty uses the default.
	Model string `yaml:"model"`

	// APIKey authenticates against the provider. Usually left empty here
	// and supplied via ANTHROPIC_API_KEY / GEMINI_API_KEY instead.
	APIKey string `yaml:"api_key"`

	// MaxTokens caps response length per generation call.
	MaxTokens int `yaml:"max_tokens"`

	// GatewayTimeout bounds a single generation round trip.
	GatewayTimeout time.Duration `yaml:"gateway_timeout"`

	// DatabasePath enables SQLite snapshot persistence when set.
	DatabasePath string `yaml:"database_path"`

	// KnowledgeLevel is the default audience level for new sessions.
	KnowledgeLevel string `yaml:"knowledge_level"`

	// ValidateLinks enables reference-link checking on references slides.
	ValidateLinks bool `yaml:"validate_links"`

	// LinkTimeout bounds a single link probe.
	LinkTimeout time.Duration `yaml:"link_timeout"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Provider:       ProviderAnthropic,
		MaxTokens:      2048,
		GatewayTimeout: 60 * time.Second,
		KnowledgeLevel: "intermediate",
		ValidateLinks:  true,
		LinkTimeout:    10 * time.Second,
	}
}

// Load reads settings from the YAML file at path, layered over defaults
// and under environment overrides. An empty path skips the file layer.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	s.applyEnv()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// FromEnv returns defaults with environment overrides applied.
func FromEnv() (Settings, error) {
	return Load("")
}

// applyEnv overlays LECTUREFLOW_* environment variables.
func (s *Settings) applyEnv() {
	if v := os.Getenv("LECTUREFLOW_PROVIDER"); v != "" {
		s.Provider = v
	}
	if v := os.Getenv("LECTUREFLOW_MODEL"); v != "" {
		s.Model = v
	}
	if v := os.Getenv("LECTUREFLOW_API_KEY"); v != "" {
		s.APIKey = v
	}
	if v := os.Getenv("LECTUREFLOW_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.MaxTokens = n
		}
	}
	if v := os.Getenv("LECTUREFLOW_GATEWAY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.GatewayTimeout = d
		}
	}
	if v := os.Getenv("LECTUREFLOW_DATABASE_PATH"); v != "" {
		s.DatabasePath = v
	}
	if v := os.Getenv("LECTUREFLOW_KNOWLEDGE_LEVEL"); v != "" {
		s.KnowledgeLevel = v
	}
	if v := os.Getenv("LECTUREFLOW_VALIDATE_LINKS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.ValidateLinks = b
		}
	}
}

// Validate checks the settings for internal consistency.
func (s Settings) Validate() error {
	switch s.Provider {
	case ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider %q (want %q or %q)", s.Provider, ProviderAnthropic, ProviderGemini)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", s.MaxTokens)
	}
	if s.GatewayTimeout < 0 {
		return fmt.Errorf("gateway_timeout must not be negative, got %s", s.GatewayTimeout)
	}
	return nil
}
