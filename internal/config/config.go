package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models gigboard.yml.
type Config struct {
	Platform struct {
		Name string `yaml:"name"`
	} `yaml:"platform"`
	Fees struct {
		// PlatformRate is the fraction of the contract total kept by the
		// platform, in [0,1).
		PlatformRate float64 `yaml:"platform_rate"`
	} `yaml:"fees"`
	Contracts struct {
		// TermsTemplate receives the project title via fmt.Sprintf.
		TermsTemplate string `yaml:"terms_template"`
	} `yaml:"contracts"`
	Limits struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"limits"`
	Auth struct {
		// DevLogin enables the passwordless token endpoint. Never for production.
		DevLogin bool `yaml:"dev_login"`
	} `yaml:"auth"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run gb config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
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

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Platform.Name == "" {
		return fmt.Errorf("config.platform.name is required")
	}
	if c.Fees.PlatformRate < 0 || c.Fees.PlatformRate >= 1 {
		return fmt.Errorf("config.fees.platform_rate must be in [0,1)")
	}
	if c.Contracts.TermsTemplate == "" {
		return fmt.Errorf("config.contracts.terms_template is required")
	}
	if c.Limits.PageSize <= 0 {
		return fmt.Errorf("config.limits.page_size must be positive")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "gigboard.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
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

const defaultTemplate = `platform:
  name: gigboard

fees:
  platform_rate: 0.15

contracts:
  terms_template: "Work agreement for project %q. The worker delivers the agreed scope; payment is released on completion."

limits:
  page_size: 20

auth:
  dev_login: false
`
