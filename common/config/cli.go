package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultGatewayURL is used when neither the profile nor the defaults name one.
const DefaultGatewayURL = "http://localhost:3000"

// CLIConfig holds microctl configuration (profiles, tokens, endpoints).
type CLIConfig struct {
	CurrentProfile string                 `yaml:"current_profile" mapstructure:"current_profile"`
	Profiles       map[string]*CLIProfile `yaml:"profiles" mapstructure:"profiles"`
	Defaults       *CLIDefaults           `yaml:"defaults" mapstructure:"defaults"`
	path           string
}

// CLIProfile holds the gateway endpoint and the session of one login.
type CLIProfile struct {
	GatewayURL  string `yaml:"gateway_url" mapstructure:"gateway_url"`
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	UserID      string `yaml:"user_id,omitempty" mapstructure:"user_id"`
	Email       string `yaml:"email,omitempty" mapstructure:"email"`
}

// CLIDefaults holds default endpoints for CLI operations.
type CLIDefaults struct {
	GatewayURL string `yaml:"gateway_url" mapstructure:"gateway_url"`
}

// LoadCLI loads configuration for microctl.
// Uses $HOME/.microctl as the default MICROCTL_CONFIG_DIR if not set.
func LoadCLI() (*CLIConfig, error) {
	v := viper.New()

	v.SetDefault("current_profile", "default")
	v.SetDefault("defaults.gateway_url", DefaultGatewayURL)

	configDir := os.Getenv("MICROCTL_CONFIG_DIR")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		configDir = filepath.Join(home, ".microctl")
	}

	configPath := filepath.Join(configDir, "config.yaml")
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("MICROCTL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("defaults.gateway_url", "MICROCTL_GATEWAY_URL")

	// The file may not exist yet.
	_ = v.ReadInConfig()

	cfg := DefaultCLI()
	cfg.path = configPath

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// DefaultCLI returns a CLIConfig with default values.
func DefaultCLI() *CLIConfig {
	return &CLIConfig{
		CurrentProfile: "default",
		Profiles:       make(map[string]*CLIProfile),
		Defaults:       &CLIDefaults{GatewayURL: DefaultGatewayURL},
	}
}

// Path returns the file the config is saved to.
func (c *CLIConfig) Path() string {
	return c.path
}

// Save writes the CLI config to disk.
func (c *CLIConfig) Save() error {
	if c.path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(home, ".microctl", "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}

// SaveProfile stores a session under name and makes it current.
func (c *CLIConfig) SaveProfile(name string, profile *CLIProfile) error {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*CLIProfile)
	}
	c.Profiles[name] = profile
	c.CurrentProfile = name
	return c.Save()
}

// GetProfile retrieves a profile by name (or current profile if name is empty).
func (c *CLIConfig) GetProfile(name string) (*CLIProfile, error) {
	if name == "" {
		name = c.CurrentProfile
	}

	profile, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}
	return profile, nil
}

// RemoveProfile removes a profile from the configuration.
func (c *CLIConfig) RemoveProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}

	delete(c.Profiles, name)
	if c.CurrentProfile == name {
		c.CurrentProfile = ""
	}
	return c.Save()
}

// GetGatewayURL returns the gateway URL from profile or defaults.
func (c *CLIConfig) GetGatewayURL(profile string) string {
	if p, err := c.GetProfile(profile); err == nil && p.GatewayURL != "" {
		return p.GatewayURL
	}
	if c.Defaults != nil && c.Defaults.GatewayURL != "" {
		return c.Defaults.GatewayURL
	}
	return DefaultGatewayURL
}
