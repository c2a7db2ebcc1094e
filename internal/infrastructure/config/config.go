package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/termprov/internal/remote"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Terminal  TerminalConfig
	Remote    RemoteConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// TerminalConfig locates the workspace and its settings.
type TerminalConfig struct {
	// SettingsFile is the global TOML or YAML settings file
	SettingsFile string `envconfig:"TERMPROV_SETTINGS"`
	// Workspace lists member roots to index
	Workspace []string `envconfig:"TERMPROV_WORKSPACE"`
	// Ignore replaces the default index ignore globs when set
	Ignore []string `envconfig:"TERMPROV_IGNORE"`
	// Platform overrides the local platform name (linux, darwin, windows)
	Platform string `envconfig:"TERMPROV_PLATFORM"`
	// Active is the root of the member holding focus
	Active string `envconfig:"TERMPROV_ACTIVE"`
	// Python is the interpreter selected for the active member
	Python string `envconfig:"TERMPROV_PYTHON"`
	// InheritEnv passes the server's own environment to terminals
	InheritEnv bool `envconfig:"TERMPROV_INHERIT_ENV" default:"true"`
}

// RemoteConfig marks the project as remote when Host is set.
type RemoteConfig struct {
	Host     string   `envconfig:"TERMPROV_SSH_HOST"`
	User     string   `envconfig:"TERMPROV_SSH_USER"`
	Port     int      `envconfig:"TERMPROV_SSH_PORT" default:"22"`
	Identity string   `envconfig:"TERMPROV_SSH_IDENTITY"`
	Jump     string   `envconfig:"TERMPROV_SSH_JUMP"`
	Options  []string `envconfig:"TERMPROV_SSH_OPTIONS"`
}

// Enabled reports whether a remote host is configured.
func (r RemoteConfig) Enabled() bool {
	return r.Host != ""
}

// SSHOptions converts the section into SSH options.
func (r RemoteConfig) SSHOptions() remote.Options {
	return remote.Options{
		Host:         r.Host,
		User:         r.User,
		Port:         r.Port,
		IdentityFile: r.Identity,
		JumpHost:     r.Jump,
		Config:       r.Options,
	}
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Terminal: TerminalConfig{
			InheritEnv: true,
		},
		Remote: RemoteConfig{
			Port: 22,
		},
	}
}
