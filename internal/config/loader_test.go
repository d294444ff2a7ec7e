package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  log_level: debug
  metrics_addr: ":9109"
engine:
  name: deepgram
  api_key: dg-test-key
  model: nova-2
  language: en-US
stabilize:
  lag: 1
  confidence_threshold: 0.3
correction:
  frequency_dict: /usr/share/dict/frequency.txt
dictionary:
  backend: redis
  redis_addr: localhost:6379
`

func TestLoadFromReader(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Engine.Name != "deepgram" || cfg.Engine.Model != "nova-2" {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Dictionary.Backend != "redis" {
		t.Errorf("dictionary backend = %q", cfg.Dictionary.Backend)
	}
	// Defaults survive partial config.
	if cfg.Engine.SampleRate != 16000 {
		t.Errorf("sample rate default = %d", cfg.Engine.SampleRate)
	}
	if cfg.Engine.Silence.Std() != 1500*time.Millisecond {
		t.Errorf("silence default = %v", cfg.Engine.Silence)
	}
}

func TestDurationParsing(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFromReader(strings.NewReader("engine:\n  name: deepgram\n  api_key: k\n  silence: 2s\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Engine.Silence.Std() != 2*time.Second {
		t.Errorf("silence = %v, want 2s", cfg.Engine.Silence)
	}
	if _, err := LoadFromReader(strings.NewReader("engine:\n  name: deepgram\n  api_key: k\n  silence: soon\n")); err == nil {
		t.Error("invalid duration accepted")
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := LoadFromReader(strings.NewReader("engine:\n  name: deepgram\n  api_key: k\n  bogus: value\n"))
	if err == nil {
		t.Error("unknown field accepted")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults with key", func(c *Config) { c.Engine.APIKey = "k" }, ""},
		{"bad log level", func(c *Config) { c.Engine.APIKey = "k"; c.Server.LogLevel = "verbose" }, "log_level"},
		{"missing engine", func(c *Config) { c.Engine.Name = "" }, "engine.name"},
		{"unknown engine", func(c *Config) { c.Engine.Name = "vosk" }, "engine.name"},
		{"deepgram needs key", func(c *Config) {}, "api_key"},
		{"whisper needs model path", func(c *Config) { c.Engine.Name = "whisper" }, "model_path"},
		{"threshold range", func(c *Config) { c.Engine.APIKey = "k"; c.Stabilize.ConfidenceThreshold = 1.2 }, "confidence_threshold"},
		{"postgres needs dsn", func(c *Config) { c.Engine.APIKey = "k"; c.Dictionary.Backend = "postgres" }, "postgres_dsn"},
		{"bad injector", func(c *Config) { c.Engine.APIKey = "k"; c.Injector.Backend = "wtype" }, "injector.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStabilizeLagDefaults(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		want   int
	}{
		{"explicit lag wins", func(c *Config) { c.Stabilize.Lag = 3 }, 3},
		{"deepgram default", func(c *Config) {}, 1},
		{"deepgram fast mode", func(c *Config) { c.Stabilize.FastMode = true }, 0},
		{"whisper default", func(c *Config) { c.Engine.Name = "whisper" }, 2},
		{"openai default", func(c *Config) { c.Engine.Name = "openai" }, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			if got := cfg.StabilizeLag(); got != tt.want {
				t.Errorf("StabilizeLag() = %d, want %d", got, tt.want)
			}
		})
	}
}
