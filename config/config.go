// Package config provides configuration management for the slangbridge bot:
// transport and LLM credentials, circuit breaker tuning, the mode catalog and
// logging preferences.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the complete bot configuration. YAML input is decoded on top of
// DefaultConfig, so any omitted field keeps its default.
type Config struct {
	Bot            BotConfig            `yaml:"bot"`
	LLM            LLMConfig            `yaml:"llm"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Store          StoreConfig          `yaml:"store"`
	Ops            OpsConfig            `yaml:"ops"`
	Logging        LoggingConfig        `yaml:"logging"`
	Modes          []ModeConfig         `yaml:"modes" validate:"min=1,dive"`
}

// BotConfig holds the chat transport settings.
type BotConfig struct {
	// Token is the Telegram bot token. Use ${TELEGRAM_BOT_TOKEN} to pull it
	// from the environment; it is required at startup but not by Validate,
	// so `-validate` works without credentials.
	Token string `yaml:"token"`

	// PollTimeout is the long-polling timeout (default: 10s).
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// LLMConfig holds the generation service settings.
type LLMConfig struct {
	// Provider specifies the LLM provider (e.g., "openai", "anthropic", "ollama").
	Provider string `yaml:"provider" validate:"required"`

	// Model is the model name (e.g., "gpt-4o-mini", "claude-3-haiku").
	Model string `yaml:"model" validate:"required"`

	// APIKey authenticates against the provider. Use environment references
	// (e.g., ${OPENAI_API_KEY}) rather than literal keys.
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single generation call (default: 30s).
	Timeout time.Duration `yaml:"timeout"`
}

// CircuitBreakerConfig tunes the breaker around the generation call.
type CircuitBreakerConfig struct {
	// MaxRequests allowed through in the half-open state.
	MaxRequests uint32 `yaml:"max_requests"`

	// Interval is the cyclic period of the closed state.
	Interval time.Duration `yaml:"interval"`

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration `yaml:"timeout"`

	// FailureThreshold is the number of consecutive failures that trips the
	// breaker.
	FailureThreshold uint32 `yaml:"failure_threshold"`
}

// StoreConfig tunes the pending-text store.
type StoreConfig struct {
	// PendingTTL drops a pending text that was never followed by a mode
	// choice. Zero (the default) disables expiry: abandoned entries stay for
	// the process lifetime.
	PendingTTL time.Duration `yaml:"pending_ttl"`
}

// OpsConfig holds the operational HTTP endpoint settings (health, metrics).
type OpsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Port for the ops HTTP server (default: 8080).
	Port int `yaml:"port"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level"`

	// Format specifies log output format: json or text
	Format string `yaml:"format"`
}

// ModeConfig declares one transformation direction.
type ModeConfig struct {
	// Key is the stable identity carried in callback data.
	Key string `yaml:"key" validate:"required"`

	// Label is the button text shown to the user.
	Label string `yaml:"label" validate:"required"`

	// Instruction is the task description inserted into the prompt.
	Instruction string `yaml:"instruction" validate:"required"`
}

// DefaultConfig returns the configuration the bot ships with: the two
// reference transformation directions and conservative timeouts.
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Token:       "${TELEGRAM_BOT_TOKEN}",
			PollTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			APIKey:   "${OPENAI_API_KEY}",
			Timeout:  30 * time.Second,
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      1,
			Interval:         30 * time.Second,
			Timeout:          time.Minute,
			FailureThreshold: 5,
		},
		Store: StoreConfig{
			PendingTTL: 0,
		},
		Ops: OpsConfig{
			Enabled:         true,
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Modes: []ModeConfig{
			{
				Key:   "slang_to_plain",
				Label: "Slang 🧢 → Plain 🧐",
				Instruction: "Your task is to rewrite this text, written in contemporary informal slang, " +
					"into clear, widely understood standard language. The point is to make the meaning " +
					"accessible to someone unfamiliar with slang. Keep the original idea and emotional " +
					"color; the result should read naturally and correctly.",
			},
			{
				Key:   "plain_to_slang",
				Label: "Plain 🧐 → Slang 🧢",
				Instruction: "Your task is to rewrite this text, written in standard language, into " +
					"contemporary casual slang aimed at a young audience. Make it informal and lively, " +
					"with characteristic words and turns of phrase, while carrying over the exact meaning.",
			},
		},
	}
}

// LoadFile loads configuration from a YAML file.
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load loads configuration from an io.Reader: environment references are
// expanded, the YAML is decoded over the defaults and the result validated.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	config := DefaultConfig()
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Credentials kept at their defaults still carry the ${VAR} form.
	config.Bot.Token = expandEnvVars(config.Bot.Token)
	config.LLM.APIKey = expandEnvVars(config.LLM.APIKey)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// expandEnvVars resolves ${VAR} and ${VAR:-default} references in
// configuration strings. Unset variables without a default expand to the
// empty string.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			envKey := key[:i]
			defaultValue := key[i+2:]
			if val := os.Getenv(envKey); val != "" {
				return val
			}
			return defaultValue
		}
		return os.Getenv(key)
	})
}

// Validate checks if the configuration is valid. Struct-level constraints are
// checked with the validator tags; semantic rules (mode key uniqueness, value
// ranges) follow.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Bot.PollTimeout < 0 {
		return fmt.Errorf("negative poll timeout: %v", c.Bot.PollTimeout)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM timeout must be positive: %v", c.LLM.Timeout)
	}
	if c.Store.PendingTTL < 0 {
		return fmt.Errorf("negative pending TTL: %v", c.Store.PendingTTL)
	}

	if c.Ops.Port < 0 || c.Ops.Port > 65535 {
		return fmt.Errorf("invalid ops port: %d", c.Ops.Port)
	}
	if c.Ops.ReadTimeout < 0 {
		return fmt.Errorf("negative ops read timeout: %v", c.Ops.ReadTimeout)
	}
	if c.Ops.WriteTimeout < 0 {
		return fmt.Errorf("negative ops write timeout: %v", c.Ops.WriteTimeout)
	}
	if c.Ops.ShutdownTimeout < 0 {
		return fmt.Errorf("negative ops shutdown timeout: %v", c.Ops.ShutdownTimeout)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	seen := make(map[string]struct{}, len(c.Modes))
	for _, m := range c.Modes {
		if _, dup := seen[m.Key]; dup {
			return fmt.Errorf("duplicate mode key: %q", m.Key)
		}
		seen[m.Key] = struct{}{}
	}

	return nil
}
