package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Source  Source  `yaml:"source"`
	Model   Model   `yaml:"model"`
	Run     Run     `yaml:"run"`
	History History `yaml:"history"`
	Server  Server  `yaml:"server"`
}

// Source selects where notes and analyses live.
type Source struct {
	Preference string `yaml:"preference"` // auto | local | usb | gdrive
	LocalDir   string `yaml:"local_dir"`
	USBDir     string `yaml:"usb_dir"`
	Drive      Drive  `yaml:"gdrive"`
}

type Drive struct {
	FolderID string `yaml:"folder_id"`
	TokenEnv string `yaml:"token_env"`
}

// Model holds the language-model parameters. Params is passed through to
// the request body untouched, so unrecognized keys reach the API verbatim.
type Model struct {
	Name        string         `yaml:"name"`
	APIKeyEnv   string         `yaml:"api_key_env"`
	Temperature float64        `yaml:"temperature"`
	MaxTokens   int            `yaml:"max_tokens"`
	Params      map[string]any `yaml:"params"`
}

type Run struct {
	Workers int `yaml:"workers"`
}

type History struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for tasktriage.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "tasktriage")
}

// DataDir returns the XDG data directory for tasktriage.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "tasktriage")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/tasktriage/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'tasktriage init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Source: Source{
			Preference: "auto",
			Drive:      Drive{TokenEnv: "GDRIVE_TOKEN"},
		},
		Model: Model{
			Name:        "claude-haiku-4-5",
			APIKeyEnv:   "ANTHROPIC_API_KEY",
			Temperature: 0.2,
			MaxTokens:   4096,
		},
		Run:    Run{Workers: 5},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Run.Workers < 1 {
		cfg.Run.Workers = 1
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.History.DataDir != "" {
		return c.History.DataDir
	}
	return DataDir()
}

// APIKey reads the model API key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.Model.APIKeyEnv)
}

// DriveToken reads the Google Drive bearer token from the configured
// environment variable.
func (c *Config) DriveToken() string {
	return os.Getenv(c.Source.Drive.TokenEnv)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
