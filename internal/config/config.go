package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Identity modes for the user-facing API.
const (
	AuthModeDev       = "dev"
	AuthModeTailscale = "tailscale"
	AuthModeOIDC      = "oidc"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Plan      PlanConfig      `yaml:"plan"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

type AuthConfig struct {
	APIKey   string     `yaml:"api_key"`
	Mode     string     `yaml:"mode"`
	DevLogin string     `yaml:"dev_login"`
	OIDC     OIDCConfig `yaml:"oidc"`
}

type OIDCConfig struct {
	IssuerURL    string `yaml:"issuer_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// PlanConfig locates the CSV plan used to seed users without a stored week.
type PlanConfig struct {
	CSVPath  string `yaml:"csv_path"`
	Timezone string `yaml:"timezone"`
}

type LogConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location returns the time zone that decides which calendar day is "today".
// An empty timezone means the process local zone.
func (p PlanConfig) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(p.Timezone)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix GYMIO_ and underscore-separated paths:
//
//	GYMIO_SERVER_HOST, GYMIO_SERVER_PORT,
//	GYMIO_DB_HOST, GYMIO_DB_PORT, GYMIO_DB_NAME,
//	GYMIO_DB_USER, GYMIO_DB_PASSWORD, GYMIO_DB_SSLMODE,
//	GYMIO_AUTH_API_KEY, GYMIO_AUTH_MODE, GYMIO_AUTH_DEV_LOGIN,
//	GYMIO_OIDC_ISSUER_URL, GYMIO_OIDC_CLIENT_ID, GYMIO_OIDC_CLIENT_SECRET,
//	GYMIO_OIDC_REDIRECT_URL, GYMIO_TAILSCALE_ENABLED,
//	GYMIO_PLAN_CSV_PATH, GYMIO_PLAN_TIMEZONE, GYMIO_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("GYMIO_SERVER_HOST", &cfg.Server.Host)
	num("GYMIO_SERVER_PORT", &cfg.Server.Port)
	str("GYMIO_DB_HOST", &cfg.Database.Host)
	num("GYMIO_DB_PORT", &cfg.Database.Port)
	str("GYMIO_DB_NAME", &cfg.Database.Name)
	str("GYMIO_DB_USER", &cfg.Database.User)
	str("GYMIO_DB_PASSWORD", &cfg.Database.Password)
	str("GYMIO_DB_SSLMODE", &cfg.Database.SSLMode)
	str("GYMIO_AUTH_API_KEY", &cfg.Auth.APIKey)
	str("GYMIO_AUTH_MODE", &cfg.Auth.Mode)
	str("GYMIO_AUTH_DEV_LOGIN", &cfg.Auth.DevLogin)
	str("GYMIO_OIDC_ISSUER_URL", &cfg.Auth.OIDC.IssuerURL)
	str("GYMIO_OIDC_CLIENT_ID", &cfg.Auth.OIDC.ClientID)
	str("GYMIO_OIDC_CLIENT_SECRET", &cfg.Auth.OIDC.ClientSecret)
	str("GYMIO_OIDC_REDIRECT_URL", &cfg.Auth.OIDC.RedirectURL)
	if v := os.Getenv("GYMIO_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	str("GYMIO_PLAN_CSV_PATH", &cfg.Plan.CSVPath)
	str("GYMIO_PLAN_TIMEZONE", &cfg.Plan.Timezone)
	str("GYMIO_LOG_LEVEL", &cfg.Log.Level)
}

func applyDefaults(cfg *Config) {
	if cfg.Auth.Mode == "" {
		if cfg.Tailscale.Enabled {
			cfg.Auth.Mode = AuthModeTailscale
		} else {
			cfg.Auth.Mode = AuthModeDev
		}
	}
	if cfg.Auth.Mode == AuthModeDev && cfg.Auth.DevLogin == "" {
		cfg.Auth.DevLogin = "local"
	}
	if cfg.Tailscale.Enabled && cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "gymio"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File != "" && cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 50
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	switch c.Auth.Mode {
	case AuthModeDev:
	case AuthModeTailscale:
		if !c.Tailscale.Enabled {
			return fmt.Errorf("auth.mode tailscale requires tailscale.enabled")
		}
	case AuthModeOIDC:
		if c.Auth.OIDC.IssuerURL == "" {
			return fmt.Errorf("auth.oidc.issuer_url is required")
		}
		if c.Auth.OIDC.ClientID == "" {
			return fmt.Errorf("auth.oidc.client_id is required")
		}
	default:
		return fmt.Errorf("auth.mode %q is not one of dev, tailscale, oidc", c.Auth.Mode)
	}
	if _, err := c.Plan.Location(); err != nil {
		return fmt.Errorf("plan.timezone: %w", err)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
