package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"dooropener/audit"
	"dooropener/auth"
	"dooropener/credential"
	"dooropener/door"
	"dooropener/mqtt"
	"dooropener/reader"
	"dooropener/remote"
	"dooropener/validator"
)

// apiKeyEnv supplies the control channel key when the config file omits it.
const apiKeyEnv = "DOOR_OPENER_API_KEY"

// Config is the main configuration structure for the door opener.
type Config struct {
	// MQTT connection settings
	MQTT mqtt.Config `yaml:"mqtt"`

	// Passport authority
	Authority validator.Config `yaml:"authority"`

	// Reader configuration
	Reader reader.Config `yaml:"reader"`

	// Door actuator configuration
	Door door.Config `yaml:"door"`

	// Authentication loop timing
	Auth auth.Config `yaml:"auth"`

	// Record positions on the passport
	Credential credential.Layout `yaml:"credential"`

	// Websocket control channel
	Remote remote.Config `yaml:"remote"`

	// Local access log
	Audit audit.Config `yaml:"audit"`

	// General settings
	ClientID     string `yaml:"client_id"`
	OpenSecret   string `yaml:"open_secret"`
	OpenToolName string `yaml:"open_tool_name"`
	PingSecs     int    `yaml:"ping_secs"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PingSecs <= 0 {
		c.PingSecs = 120
	}
	if c.Remote.APIKey == "" {
		c.Remote.APIKey = os.Getenv(apiKeyEnv)
	}
	if c.Credential == (credential.Layout{}) {
		c.Credential = credential.DefaultLayout
	}
	c.Auth.Layout = c.Credential
}

func (c *Config) validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id missing in config file")
	}
	if err := c.Credential.Validate(); err != nil {
		return fmt.Errorf("credential: %w", err)
	}
	if c.Remote.URL != "" && c.Remote.APIKey == "" {
		return fmt.Errorf("remote.url set but no api_key or $%s", apiKeyEnv)
	}
	if (c.OpenSecret == "") != (c.OpenToolName == "") {
		return fmt.Errorf("open_secret and open_tool_name must be set together")
	}
	return nil
}
