package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
)

type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Chat   ChatConfig   `yaml:"chat"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

type LLMConfig struct {
	Provider     string        `yaml:"provider"`
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout"`
	Breaker      BreakerConfig `yaml:"breaker"`
}

// BreakerConfig controls the circuit breaker in front of the provider.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ChatConfig holds the user-facing strings of the chat screen. Empty
// values fall back to the chat package defaults.
type ChatConfig struct {
	Greeting    string `yaml:"greeting"`
	Placeholder string `yaml:"placeholder"`
	ErrorText   string `yaml:"error_text"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
	File   string `yaml:"file"`
}

func Defaults() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: ProviderGoogleAI,
			Model:    "gemini-2.0-flash",
			Timeout:  30 * time.Second,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
			},
		},
		Server: ServerConfig{Addr: ":8100"},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file over the defaults and applies env var
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps TEXTWRITER_* env vars to config fields. Provider
// API keys also fall back to the conventional vendor variables.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TEXTWRITER_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("TEXTWRITER_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("TEXTWRITER_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("TEXTWRITER_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("TEXTWRITER_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = d
		}
	}
	if v := os.Getenv("TEXTWRITER_LLM_BREAKER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LLM.Breaker.Enabled = b
		}
	}
	if v := os.Getenv("TEXTWRITER_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TEXTWRITER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TEXTWRITER_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case ProviderGoogleAI:
			cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
		case ProviderOpenAI:
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

func Validate(cfg *Config) error {
	switch cfg.LLM.Provider {
	case ProviderGoogleAI, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model == "" {
		return errors.New("llm model is required")
	}
	if cfg.LLM.Timeout < 0 {
		return fmt.Errorf("llm timeout must not be negative, got %s", cfg.LLM.Timeout)
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", cfg.Log.Format)
	}
	return nil
}
