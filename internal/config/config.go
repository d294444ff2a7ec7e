// Package config provides the configuration schema and loader for the
// typestream dictation daemon.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "1.5s" parse with
// time.ParseDuration syntax.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// LogLevel controls log verbosity.
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

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Engine     EngineConfig     `yaml:"engine"`
	Stabilize  StabilizeConfig  `yaml:"stabilize"`
	Correction CorrectionConfig `yaml:"correction"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Injector   InjectorConfig   `yaml:"injector"`
}

// ServerConfig holds logging and metrics settings for the daemon.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address serving /metrics (e.g., ":9109").
	// Empty disables the metrics endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// EngineConfig selects and configures the recognition engine.
type EngineConfig struct {
	// Name selects the engine implementation: "deepgram", "whisper", or
	// "openai".
	Name string `yaml:"name"`

	// APIKey authenticates against hosted engine APIs.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the engine's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model (e.g., "nova-2", "whisper-1") or, for
	// the native whisper engine, is unused in favour of ModelPath.
	Model string `yaml:"model"`

	// ModelPath is the local GGML model file for the native whisper engine.
	ModelPath string `yaml:"model_path"`

	// Language is the BCP-47 recognition language (e.g., "en-US").
	Language string `yaml:"language"`

	// SampleRate is the input PCM sample rate in Hz. Default 16000.
	SampleRate int `yaml:"sample_rate"`

	// Silence is how long recognition may stay quiet before the current
	// utterance is finalized. Default 1.5s.
	Silence Duration `yaml:"silence"`
}

// StabilizeConfig tunes hypothesis stabilization.
type StabilizeConfig struct {
	// Lag is the number of trailing partial-hypothesis words withheld from
	// commitment. Negative means "use the engine default".
	Lag int `yaml:"lag"`

	// ConfidenceThreshold drops words below this confidence from final
	// results, for engines that report per-word confidence.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// FastMode trades stability for latency by forcing lag 0 on
	// word-synchronous engines.
	FastMode bool `yaml:"fast_mode"`
}

// CorrectionConfig configures the correction pipeline.
type CorrectionConfig struct {
	// FrequencyDict is the path to a "word count" frequency list backing
	// fuzzy spell correction. Empty disables the fuzzy stage.
	FrequencyDict string `yaml:"frequency_dict"`

	// UseMmap memory-maps the frequency list during load instead of
	// streaming it.
	UseMmap bool `yaml:"use_mmap"`

	// MinCandidateFrequency is the corpus-frequency floor a fuzzy candidate
	// must exceed. Default 100.
	MinCandidateFrequency int64 `yaml:"min_candidate_frequency"`
}

// DictionaryConfig configures the protected-word store.
type DictionaryConfig struct {
	// Backend selects the store: "memory", "postgres", or "redis".
	Backend string `yaml:"backend"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`

	// RedisAddr is the host:port for the redis backend.
	RedisAddr string `yaml:"redis_addr"`

	// SeedDefaults seeds the built-in compound corrections into an empty
	// store on startup.
	SeedDefaults bool `yaml:"seed_defaults"`
}

// InjectorConfig configures text injection.
type InjectorConfig struct {
	// Backend forces a typing tool: "ydotool" or "xdotool". Empty
	// auto-detects.
	Backend string `yaml:"backend"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel: LogInfo,
		},
		Engine: EngineConfig{
			Name:       "deepgram",
			Language:   "en-US",
			SampleRate: 16000,
			Silence:    Duration(1500 * time.Millisecond),
		},
		Stabilize: StabilizeConfig{
			Lag:                 -1,
			ConfidenceThreshold: 0.3,
		},
		Correction: CorrectionConfig{
			MinCandidateFrequency: 100,
		},
		Dictionary: DictionaryConfig{
			Backend:      "memory",
			SeedDefaults: true,
		},
	}
}
