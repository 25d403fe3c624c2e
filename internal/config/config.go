package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all bot configuration
type Config struct {
	Nick       string   `yaml:"nick" env:"IRCBOT_NICK"`
	NickPass   string   `yaml:"nick_pass" env:"IRCBOT_NICK_PASS"`
	Alternate  string   `yaml:"alternate" env:"IRCBOT_ALTERNATE"`
	Username   string   `yaml:"username" env:"IRCBOT_USERNAME"`
	IRCName    string   `yaml:"irc_name" env:"IRCBOT_IRC_NAME"`
	Server     string   `yaml:"server" env:"IRCBOT_SERVER"`
	Port       int      `yaml:"port" env:"IRCBOT_PORT"`
	ServerPass string   `yaml:"server_pass" env:"IRCBOT_SERVER_PASS"`
	UseTLS     bool     `yaml:"use_tls" env:"IRCBOT_USE_TLS"`
	Channels   []string `yaml:"channels" env:"IRCBOT_CHANNELS"`
	OperNick   string   `yaml:"oper_nick" env:"IRCBOT_OPER_NICK"`
	OperPass   string   `yaml:"oper_pass" env:"IRCBOT_OPER_PASS"`

	// Prefix marks a chat line as a command, e.g. "." for ".join".
	Prefix    string `yaml:"prefix" env:"IRCBOT_PREFIX"`
	RolesFile string `yaml:"roles_file" env:"IRCBOT_ROLES_FILE"`

	HandlerTimeout time.Duration `yaml:"handler_timeout" env:"IRCBOT_HANDLER_TIMEOUT"`
	AuthTimeout    time.Duration `yaml:"auth_timeout" env:"IRCBOT_AUTH_TIMEOUT"`
	MaxWorkers     int           `yaml:"max_workers" env:"IRCBOT_MAX_WORKERS"`

	LogLevel string `yaml:"log_level" env:"IRCBOT_LOG_LEVEL"`
	LogFile  string `yaml:"log_file" env:"IRCBOT_LOG_FILE"`
	DataDir  string `yaml:"data_dir" env:"IRCBOT_DATA_DIR"`
}

// Load reads and parses a YAML configuration file, then applies
// IRCBOT_* environment overrides (a .env file next to the process is
// honoured if present).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = 6667
	}
	if c.Username == "" {
		c.Username = c.Nick
	}
	if c.IRCName == "" {
		c.IRCName = c.Nick
	}
	if c.Prefix == "" {
		c.Prefix = "."
	}
	if c.RolesFile == "" {
		c.RolesFile = "./roles.yaml"
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 7 * time.Second
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = 2 * time.Second
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 8
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
}

// Validate reports the first missing or out-of-range setting.
func (c *Config) Validate() error {
	switch {
	case c.Server == "":
		return errors.New("config: server is required")
	case c.Nick == "":
		return errors.New("config: nick is required")
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	return nil
}
