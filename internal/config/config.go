package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config models linkedboost.yml.
type Config struct {
	Server struct {
		Addr                   string `yaml:"addr"`
		BasePath               string `yaml:"base_path"`
		JWTSecret              string `yaml:"jwt_secret"`
		AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
	} `yaml:"server"`
	LinkedIn struct {
		BaseURL        string `yaml:"base_url"`
		AccessTokenEnv string `yaml:"access_token_env"`
	} `yaml:"linkedin"`
	Detection struct {
		MinRelevanceScore int    `yaml:"min_relevance_score"`
		MaxResults        int    `yaml:"max_results"`
		SortBy            string `yaml:"sort_by"`
	} `yaml:"detection"`
	Pacing struct {
		MinDelayMs int `yaml:"min_delay_ms"`
		MaxDelayMs int `yaml:"max_delay_ms"`
	} `yaml:"pacing"`
	// Personalization maps literal template tokens (e.g. "{prénom}") to their
	// replacement values. The defaults carry the demo values of the original
	// product; real per-target data plugs in here later.
	Personalization map[string]string `yaml:"personalization"`
	Webhooks        []WebhookConfig   `yaml:"webhooks"`
	Logging         struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// WebhookConfig describes an outbound event webhook. An empty Events list
// subscribes to everything.
type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Load reads and validates config from workspace, after loading an optional
// .env file next to it.
func Load(workspace string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(workspace, ".env"))
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "linkedboost.yml")
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.LinkedIn.AccessTokenEnv == "" {
		return fmt.Errorf("config.linkedin.access_token_env is required")
	}
	if c.Detection.MinRelevanceScore < 0 || c.Detection.MinRelevanceScore > 100 {
		return fmt.Errorf("config.detection.min_relevance_score must be in [0,100]")
	}
	if c.Detection.MaxResults <= 0 {
		return fmt.Errorf("config.detection.max_results must be > 0")
	}
	switch c.Detection.SortBy {
	case "relevance", "recent", "mutual":
	default:
		return fmt.Errorf("config.detection.sort_by must be relevance, recent or mutual")
	}
	if c.Pacing.MinDelayMs < 0 {
		return fmt.Errorf("config.pacing.min_delay_ms must be >= 0")
	}
	if c.Pacing.MaxDelayMs <= c.Pacing.MinDelayMs {
		return fmt.Errorf("config.pacing.max_delay_ms must be > min_delay_ms")
	}
	for token, value := range c.Personalization {
		if token == "" {
			return fmt.Errorf("config.personalization contains an empty token")
		}
		if value == "" {
			return fmt.Errorf("personalization token %s has empty value", token)
		}
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	return nil
}

// AccessToken resolves the LinkedIn access token from the configured env var.
func (c *Config) AccessToken() string {
	return os.Getenv(c.LinkedIn.AccessTokenEnv)
}

// Default returns the default Config struct.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: ":8080"
  base_path: /v0
  jwt_secret: ""
  allow_legacy_actor_header: true

linkedin:
  base_url: https://api.linkedin.com/v2
  access_token_env: LINKEDIN_ACCESS_TOKEN

detection:
  min_relevance_score: 50
  max_results: 20
  sort_by: relevance

pacing:
  min_delay_ms: 1000
  max_delay_ms: 3000

personalization:
  "{prénom}": Jean
  "{nom}": Dupont
  "{entreprise}": Acme Inc
  "{poste}": Directeur Marketing

logging:
  level: info
`
