// Package config loads the server settings.
//
// Sources, later ones override earlier ones: built-in defaults, an optional
// YAML file, environment variables of the form TODOGATE_SECTION_KEY.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "TODOGATE_"

type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	DB       DBConfig       `koanf:"db"`
	Session  SessionConfig  `koanf:"session"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	SMTP     SMTPConfig     `koanf:"smtp"`
	Reminder ReminderConfig `koanf:"reminder"`
}

type HTTPConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"readtimeout"`
	WriteTimeout time.Duration `koanf:"writetimeout"`
}

type DBConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type SessionConfig struct {
	Name   string `koanf:"name"`
	Secret string `koanf:"secret"`
	Store  string `koanf:"store"`
	Path   string `koanf:"path"`
	MaxAge int    `koanf:"maxage"`
	Secure bool   `koanf:"secure"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type AuthConfig struct {
	BcryptCost int     `koanf:"bcryptcost"`
	LoginRate  float64 `koanf:"loginrate"`
	LoginBurst int     `koanf:"loginburst"`
	Issuer     string  `koanf:"issuer"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type ReminderConfig struct {
	Schedule string `koanf:"schedule"`
}

func defaults() map[string]any {
	return map[string]any{
		"http": map[string]any{
			"addr":         ":8080",
			"readtimeout":  "10s",
			"writetimeout": "10s",
		},
		"db": map[string]any{
			"driver": "mysql",
		},
		"session": map[string]any{
			"name":   "todogate",
			"store":  "cookie",
			"maxage": 86400,
		},
		"log": map[string]any{
			"level":  "info",
			"format": "json",
		},
		"auth": map[string]any{
			"bcryptcost": 10,
			"loginrate":  1.0,
			"loginburst": 5,
			"issuer":     "TodoGate",
		},
		"smtp": map[string]any{
			"port": "25",
			"from": "todogate@localhost",
		},
		"reminder": map[string]any{
			"schedule": "0 8 * * *",
		},
	}
}

// mapProvider feeds a nested map to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

// Load reads the configuration. path may be empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load file %s: %w", path, err)
		}
	}

	// TODOGATE_SESSION_MAXAGE -> session.maxage
	transform := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that prevents the server from starting.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for driver %s", c.DB.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db.driver %q", c.DB.Driver)
	}

	if c.Session.Secret == "" {
		return errors.New("session.secret is required")
	}
	if len(c.Session.Secret) < 32 {
		return errors.New("session.secret must be at least 32 characters")
	}
	switch c.Session.Store {
	case "cookie", "filesystem":
	default:
		return fmt.Errorf("unknown session.store %q", c.Session.Store)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcryptcost %d out of range 4..31", c.Auth.BcryptCost)
	}
	if c.Auth.LoginRate <= 0 || c.Auth.LoginBurst <= 0 {
		return errors.New("auth.loginrate and auth.loginburst must be positive")
	}
	return nil
}
