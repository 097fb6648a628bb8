// Package config loads server settings. Sources are applied in order:
// built-in defaults, a YAML file, a .env file, then the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	DefaultConfigFile = "config.yml"
	devSecret         = "dev-secret-change-me"
)

type Config struct {
	Addr      string `yaml:"addr" env:"PERSONIFID_ADDR"`
	Debug     bool   `yaml:"debug" env:"PERSONIFID_DEBUG"`
	PublicURL string `yaml:"public_url" env:"PERSONIFID_PUBLIC_URL"`

	Database Database `yaml:"database" envPrefix:"PERSONIFID_DB_"`
	Auth     Auth     `yaml:"auth" envPrefix:"PERSONIFID_AUTH_"`
	HTTP     HTTP     `yaml:"http" envPrefix:"PERSONIFID_HTTP_"`
	CORS     CORS     `yaml:"cors" envPrefix:"PERSONIFID_CORS_"`
	SMTP     SMTP     `yaml:"smtp" envPrefix:"PERSONIFID_SMTP_"`
	Log      Log      `yaml:"log" envPrefix:"PERSONIFID_LOG_"`
}

type Database struct {
	Driver       string `yaml:"driver" env:"DRIVER"` // sqlite3, postgres or mysql
	DSN          string `yaml:"dsn" env:"DSN"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
}

type Auth struct {
	Secret     string        `yaml:"secret" env:"SECRET"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

type HTTP struct {
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

type SMTP struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     string `yaml:"port" env:"PORT"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
	From     string `yaml:"from" env:"FROM"`
}

type Log struct {
	Path   string `yaml:"path" env:"PATH"`
	Stdout bool   `yaml:"stdout" env:"STDOUT"`
}

func Default() *Config {
	return &Config{
		Addr:      ":8000",
		PublicURL: "http://localhost:8000",
		Database: Database{
			Driver:       "sqlite3",
			DSN:          "personifid.db",
			MaxOpenConns: 10,
		},
		Auth: Auth{
			Secret:     devSecret,
			TokenTTL:   30 * time.Minute,
			BcryptCost: 10,
		},
		HTTP: HTTP{
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		CORS: CORS{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001", "http://127.0.0.1:3000"},
		},
		SMTP: SMTP{
			Port: "587",
			From: "no-reply@personifid.local",
		},
		Log: Log{
			Path:   "logs/personifid.log",
			Stdout: true,
		},
	}
}

// Load builds the configuration. An empty path falls back to
// DefaultConfigFile when that file exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Auth.Secret == "" {
		return errors.New("auth secret is required")
	}
	if c.Auth.Secret == devSecret && !c.Debug {
		return errors.New("auth secret must be changed outside debug mode")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth token_ttl must be positive")
	}
	return nil
}
