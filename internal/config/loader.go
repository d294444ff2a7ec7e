package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidEngineNames lists the recognition engines this build knows about.
var ValidEngineNames = []string{"deepgram", "whisper", "openai"}

// ValidDictionaryBackends lists the protected-word store backends.
var ValidDictionaryBackends = []string{"memory", "postgres", "redis"}

// ValidInjectorBackends lists the typing tools that can be forced.
var ValidInjectorBackends = []string{"ydotool", "xdotool"}

// Load reads the YAML configuration file at path, layered over [Default],
// and returns a validated [Config].
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

// LoadFromReader decodes a YAML config from r over [Default] values and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
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

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Engine.Name == "" {
		errs = append(errs, errors.New("engine.name is required"))
	} else if !slices.Contains(ValidEngineNames, cfg.Engine.Name) {
		errs = append(errs, fmt.Errorf("engine.name %q is invalid; valid values: %v", cfg.Engine.Name, ValidEngineNames))
	}
	switch cfg.Engine.Name {
	case "deepgram", "openai":
		if cfg.Engine.APIKey == "" {
			errs = append(errs, fmt.Errorf("engine.api_key is required for engine %q", cfg.Engine.Name))
		}
	case "whisper":
		if cfg.Engine.ModelPath == "" {
			errs = append(errs, errors.New("engine.model_path is required for the whisper engine"))
		}
	}
	if cfg.Engine.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("engine.sample_rate %d must be positive", cfg.Engine.SampleRate))
	}
	if cfg.Engine.Silence <= 0 {
		errs = append(errs, fmt.Errorf("engine.silence %v must be positive", cfg.Engine.Silence))
	}

	if cfg.Stabilize.ConfidenceThreshold < 0 || cfg.Stabilize.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("stabilize.confidence_threshold %g is out of range [0, 1]", cfg.Stabilize.ConfidenceThreshold))
	}

	if cfg.Correction.MinCandidateFrequency < 0 {
		errs = append(errs, fmt.Errorf("correction.min_candidate_frequency %d must be non-negative", cfg.Correction.MinCandidateFrequency))
	}

	if cfg.Dictionary.Backend != "" && !slices.Contains(ValidDictionaryBackends, cfg.Dictionary.Backend) {
		errs = append(errs, fmt.Errorf("dictionary.backend %q is invalid; valid values: %v", cfg.Dictionary.Backend, ValidDictionaryBackends))
	}
	if cfg.Dictionary.Backend == "postgres" && cfg.Dictionary.PostgresDSN == "" {
		errs = append(errs, errors.New("dictionary.postgres_dsn is required for the postgres backend"))
	}
	if cfg.Dictionary.Backend == "redis" && cfg.Dictionary.RedisAddr == "" {
		errs = append(errs, errors.New("dictionary.redis_addr is required for the redis backend"))
	}

	if cfg.Injector.Backend != "" && !slices.Contains(ValidInjectorBackends, cfg.Injector.Backend) {
		errs = append(errs, fmt.Errorf("injector.backend %q is invalid; valid values: %v", cfg.Injector.Backend, ValidInjectorBackends))
	}

	return errors.Join(errs...)
}

// StabilizeLag resolves the configured lag against the per-engine default:
// word-synchronous engines hold back one word (zero in fast mode), rolling
// re-transcribers hold back two because their tail fluctuates more.
func (c *Config) StabilizeLag() int {
	if c.Stabilize.Lag >= 0 {
		return c.Stabilize.Lag
	}
	switch c.Engine.Name {
	case "whisper", "openai":
		return 2
	default:
		if c.Stabilize.FastMode {
			return 0
		}
		return 1
	}
}
