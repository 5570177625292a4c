package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API      APIConfig     `yaml:"api"`
	Webhook  WebhookConfig `yaml:"webhook"`
	Poll     PollConfig    `yaml:"poll"`
	LogLevel string        `yaml:"log_level"`
}

type APIConfig struct {
	BaseURL  string   `yaml:"base_url"`
	Keys     string   `yaml:"keys"` // comma-delimited credential pool
	Limit    int      `yaml:"limit"`
	Language string   `yaml:"language"`
	Timeout  Duration `yaml:"timeout"`
}

// KeyPool splits the comma-delimited key list, dropping empty entries.
func (a APIConfig) KeyPool() []string {
	var keys []string
	for _, k := range strings.Split(a.Keys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

type WebhookConfig struct {
	URL              string `yaml:"url"`
	SourceTag        string `yaml:"source_tag"`
	MaxTextLength    int    `yaml:"max_text_length"`
	TruncationMarker string `yaml:"truncation_marker"`
}

type PollConfig struct {
	Interval      Duration `yaml:"interval"`
	SendOnStartup bool     `yaml:"send_on_startup"`
}

// Duration accepts Go duration strings ("30s", "5m") in yaml.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Validate reports configuration the process cannot start without.
func (c *Config) Validate() error {
	if len(c.API.KeyPool()) == 0 {
		return fmt.Errorf("no api keys configured")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base_url not configured")
	}
	if c.Webhook.URL == "" {
		return fmt.Errorf("webhook url not configured")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.API.Limit == 0 {
		c.API.Limit = 10
	}
	if c.API.Language == "" {
		c.API.Language = "en"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = Duration(30 * time.Second)
	}
	if c.Webhook.SourceTag == "" {
		c.Webhook.SourceTag = "news"
	}
	if c.Webhook.MaxTextLength == 0 {
		c.Webhook.MaxTextLength = 1600
	}
	if c.Webhook.TruncationMarker == "" {
		c.Webhook.TruncationMarker = "…"
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = Duration(time.Minute)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
