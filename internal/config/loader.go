package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the LLM provider names the server knows how to
// construct. Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// providersWithoutKeys names providers that run locally and need no API key.
var providersWithoutKeys = []string{"ollama", "llamacpp", "llamafile"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// LLM tiers
	errs = append(errs, validateTier("llm.fast", cfg.LLM.Fast)...)
	errs = append(errs, validateTier("llm.intelligent", cfg.LLM.Intelligent)...)
	if !cfg.LLM.Fast.Set() {
		slog.Warn("llm.fast is not configured; units will be stored but primitives will not be extracted")
	}
	if cfg.LLM.Fast.Set() && !cfg.LLM.Intelligent.Set() {
		slog.Warn("llm.intelligent is not configured; the fast tier will serve reflection requests")
	}

	// Storage
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; using in-memory stores, nothing will survive a restart")
	}

	// Pipeline
	if cfg.Pipeline.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_concurrent %d must not be negative", cfg.Pipeline.MaxConcurrent))
	}
	if cfg.Pipeline.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("pipeline.history_size %d must not be negative", cfg.Pipeline.HistorySize))
	}
	for kind, pattern := range cfg.Pipeline.SpanPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("pipeline.span_patterns[%q] does not compile: %w", kind, err))
		}
	}

	// Thresholds
	if s := cfg.Correction.LearnedMinScore; s < 0 || s > 1 {
		errs = append(errs, fmt.Errorf("correction.learned_min_score %.2f is out of range [0, 1]", s))
	}
	if c := cfg.Vocabulary.MinConfidence; c < 0 || c > 1 {
		errs = append(errs, fmt.Errorf("vocabulary.min_confidence %.2f is out of range [0, 1]", c))
	}

	return errors.Join(errs...)
}

// validateTier checks one LLM tier. Unknown provider names only warn so
// third-party OpenAI-compatible endpoints still work.
func validateTier(prefix string, tier LLMTier) []error {
	if !tier.Set() {
		return nil
	}

	var errs []error
	if tier.Provider == "" {
		errs = append(errs, fmt.Errorf("%s.provider is required when a model is set", prefix))
	} else if !slices.Contains(ValidProviderNames, tier.Provider) {
		slog.Warn("unknown provider name — may be a typo or third-party provider",
			"tier", prefix,
			"name", tier.Provider,
			"known", ValidProviderNames,
		)
	}
	if tier.Model == "" {
		errs = append(errs, fmt.Errorf("%s.model is required", prefix))
	}
	if tier.APIKey == "" && tier.Provider != "" && !slices.Contains(providersWithoutKeys, tier.Provider) {
		slog.Warn("no API key configured for remote provider", "tier", prefix, "provider", tier.Provider)
	}
	return errs
}
