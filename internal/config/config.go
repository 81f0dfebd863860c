// Package config provides the configuration schema and loader for the
// ramble knowledge server.
package config

import "log/slog"

// LogLevel controls log verbosity for the ramble server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to the corresponding slog.Level. Unrecognised values
// map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration document loaded from YAML.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	LLM        LLMConfig        `yaml:"llm"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Correction CorrectionConfig `yaml:"correction"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr string     `yaml:"listen_addr"`
	LogLevel   LogLevel   `yaml:"log_level"`
	TLS        *TLSConfig `yaml:"tls,omitempty"`
}

// TLSConfig enables TLS on the HTTP listener when present.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// StorageConfig selects the persistence backend. An empty DSN falls back
// to in-memory stores, which do not survive a restart.
type StorageConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LLMTier configures one model tier.
type LLMTier struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// Set reports whether the tier has been configured at all.
func (t LLMTier) Set() bool {
	return t.Provider != "" || t.Model != ""
}

// LLMConfig holds the per-tier model settings. The fast tier handles
// primitive extraction; the intelligent tier handles reflection. When the
// intelligent tier is left empty the fast tier serves both.
type LLMConfig struct {
	Fast        LLMTier `yaml:"fast"`
	Intelligent LLMTier `yaml:"intelligent"`
}

// PipelineConfig tunes the event worker and span detection.
type PipelineConfig struct {
	MaxConcurrent int               `yaml:"max_concurrent"`
	HistorySize   int               `yaml:"history_size"`
	SpanPatterns  map[string]string `yaml:"span_patterns"`
}

// CorrectionConfig tunes the text correction engine.
type CorrectionConfig struct {
	LearnedMinScore float64 `yaml:"learned_min_score"`
}

// VocabularyConfig tunes vocabulary matching.
type VocabularyConfig struct {
	MinConfidence float64 `yaml:"min_confidence"`
}

// DefaultConfig returns a config with working defaults for local use.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Pipeline: PipelineConfig{
			MaxConcurrent: 4,
			HistorySize:   100,
		},
		Correction: CorrectionConfig{
			LearnedMinScore: 0.6,
		},
		Vocabulary: VocabularyConfig{
			MinConfidence: 0.5,
		},
	}
}
