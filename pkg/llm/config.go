package llm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultTimeout = 30 * time.Second

// Config holds the connection settings for an OpenAI-compatible endpoint.
type Config struct {
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   *int     `yaml:"max_tokens,omitempty"`
	Timeout     string   `yaml:"timeout,omitempty"`
	MaxRetries  int      `yaml:"max_retries,omitempty"`

	timeout time.Duration
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ErrUnresolvedEnv marks a config whose ${VAR} references have no value in
// the environment. Callers that treat the LLM as optional can match on it
// and run without a client instead of targeting a literal placeholder URL.
var ErrUnresolvedEnv = errors.New("llm: unresolved environment placeholder")

func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// LoadConfig reads an LLM config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("llm: open config: %w", err)
	}
	defer f.Close()
	return LoadConfigFromReader(f)
}

// LoadConfigFromReader decodes a YAML config, expanding ${VAR} references
// in the credential fields from the environment.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("llm: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("llm: parse config: %w", err)
	}
	cfg.BaseURL = expandEnv(cfg.BaseURL)
	cfg.APIKey = expandEnv(cfg.APIKey)
	if envPattern.MatchString(cfg.BaseURL) || envPattern.MatchString(cfg.APIKey) {
		return nil, fmt.Errorf("llm: base_url or api_key references an unset variable: %w", ErrUnresolvedEnv)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and parses the timeout string.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("llm: config cannot be nil")
	}
	if c.BaseURL == "" {
		return errors.New("llm: base_url is required")
	}
	if c.APIKey == "" {
		return errors.New("llm: api_key is required")
	}
	if c.Model == "" {
		return errors.New("llm: model is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("llm: max_retries cannot be negative, got %d", c.MaxRetries)
	}

	c.timeout = defaultTimeout
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("llm: parse timeout %q: %w", c.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("llm: timeout must be positive, got %s", d)
		}
		c.timeout = d
	}
	return nil
}

// RequestTimeout returns the parsed per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.timeout <= 0 {
		return defaultTimeout
	}
	return c.timeout
}
