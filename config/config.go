package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Descriptor DescriptorConfig `mapstructure:"descriptor"`
	Chain      ChainConfig      `mapstructure:"chain"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// DescriptorConfig selects the toolchain descriptor and the project it
// applies to.
type DescriptorConfig struct {
	// Path to a YAML or JSON descriptor. Empty selects the built-in one.
	Path        string `mapstructure:"path"`
	ProjectRoot string `mapstructure:"project_root"`
	PrepareDirs bool   `mapstructure:"prepare_dirs"`
	// SecretPrefix is prepended to "env:" account references on lookup.
	SecretPrefix string `mapstructure:"secret_prefix"`
	// ExportPath, relative to ProjectRoot, receives the descriptor at
	// startup. Empty disables the export.
	ExportPath string `mapstructure:"export_path"`
}

// ChainConfig holds settings for endpoint checks
type ChainConfig struct {
	CheckTimeoutSec int `mapstructure:"check_timeout_sec"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	return unmarshal(v)
}

// NewFromFile loads and validates the configuration from an explicit file
func NewFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("CHAINCONF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")
	v.SetDefault("descriptor.path", "")
	v.SetDefault("descriptor.project_root", ".")
	v.SetDefault("descriptor.prepare_dirs", false)
	v.SetDefault("descriptor.secret_prefix", "")
	v.SetDefault("descriptor.export_path", "")
	v.SetDefault("chain.check_timeout_sec", 10)

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Server.Transport == "http" && (c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535) {
		return fmt.Errorf("invalid server.http_port: %d", c.Server.HTTPPort)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	if c.Descriptor.ProjectRoot == "" {
		return fmt.Errorf("descriptor.project_root must not be empty")
	}

	if c.Descriptor.ExportPath != "" {
		switch strings.ToLower(filepath.Ext(c.Descriptor.ExportPath)) {
		case ".json", ".yaml", ".yml":
		default:
			return fmt.Errorf("invalid descriptor.export_path: %s, must end in .json, .yaml or .yml", c.Descriptor.ExportPath)
		}
	}

	if c.Chain.CheckTimeoutSec <= 0 {
		return fmt.Errorf("chain.check_timeout_sec must be positive, got: %d", c.Chain.CheckTimeoutSec)
	}

	return nil
}

// GetCheckTimeout returns the endpoint check timeout as a duration
func (c *Config) GetCheckTimeout() time.Duration {
	return time.Duration(c.Chain.CheckTimeoutSec) * time.Second
}
