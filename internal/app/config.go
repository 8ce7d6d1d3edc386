// Package app holds process-wide configuration loaded from YAML.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server" validate:"required"`
	Browser BrowserConfig `koanf:"browser" validate:"required"`
	Pool    PoolConfig    `koanf:"pool" validate:"required"`
	Portal  PortalConfig  `koanf:"portal" validate:"required"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr           string        `koanf:"addr" validate:"required"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
}

// BrowserConfig holds settings for the headless browser instances.
type BrowserConfig struct {
	ChromePath     string        `koanf:"chrome_path"`
	Headless       bool          `koanf:"headless"`
	NoSandbox      bool          `koanf:"no_sandbox"`
	StartupTimeout time.Duration `koanf:"startup_timeout" validate:"required"`
	NavTimeout     time.Duration `koanf:"nav_timeout" validate:"required"`
	ViewportWidth  int           `koanf:"viewport_width" validate:"required,gt=0"`
	ViewportHeight int           `koanf:"viewport_height" validate:"required,gt=0"`
}

// PoolConfig bounds the session pool.
type PoolConfig struct {
	Capacity      int           `koanf:"capacity" validate:"required,gt=0"`
	IdleTTL       time.Duration `koanf:"idle_ttl" validate:"required"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"required"`
}

// PortalConfig points at the external university portal.
type PortalConfig struct {
	LoginURL string `koanf:"login_url" validate:"required,url"`
}

// Load reads and validates configuration from a YAML file. A .env file, when
// present, is loaded first so container deployments can override the
// environment before config resolution.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
