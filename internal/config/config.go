package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type AppConfig struct {
	Name string `yaml:"name"`
	Port string `yaml:"port"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	Store string        `yaml:"store"`
	TTL   time.Duration `yaml:"ttl"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

type TrackerConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	App      AppConfig      `yaml:"app"`
	Backend  BackendConfig  `yaml:"backend"`
	Session  SessionConfig  `yaml:"session"`
	Postgres PostgresConfig `yaml:"postgres"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Log      LogConfig      `yaml:"log"`
}

func defaults() Config {
	return Config{
		App:     AppConfig{Name: "storefront", Port: "8080"},
		Backend: BackendConfig{BaseURL: "http://localhost:8000/api", Timeout: 10 * time.Second},
		Session: SessionConfig{Store: StoreMemory, TTL: 24 * time.Hour},
		Postgres: PostgresConfig{
			Port:            "5432",
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MigrationsPath:  "internal/db/migrations",
		},
		Tracker: TrackerConfig{PollInterval: 15 * time.Second},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path (a missing file keeps the defaults), then
// .env, then environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("invalid config file: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setString("APP_PORT", &cfg.App.Port)
	setString("BACKEND_BASE_URL", &cfg.Backend.BaseURL)
	setString("SESSION_STORE", &cfg.Session.Store)
	setString("DB_HOST", &cfg.Postgres.Host)
	setString("DB_PORT", &cfg.Postgres.Port)
	setString("DB_USER", &cfg.Postgres.User)
	setString("DB_PASSWORD", &cfg.Postgres.Password)
	setString("DB_NAME", &cfg.Postgres.DBName)
	setString("DB_SSLMODE", &cfg.Postgres.SSLMode)
	setString("DB_MIGRATIONS_PATH", &cfg.Postgres.MigrationsPath)
	setString("LOG_LEVEL", &cfg.Log.Level)

	if err := setDuration("BACKEND_TIMEOUT", &cfg.Backend.Timeout); err != nil {
		return err
	}
	if err := setDuration("SESSION_TTL", &cfg.Session.TTL); err != nil {
		return err
	}
	if err := setDuration("TRACKER_POLL_INTERVAL", &cfg.Tracker.PollInterval); err != nil {
		return err
	}
	if v := os.Getenv("TRACKER_ALLOWED_ORIGINS"); v != "" {
		cfg.Tracker.AllowedOrigins = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("LOG_PRETTY"); ok {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		cfg.Log.Pretty = pretty
	}
	return nil
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func (c *Config) Validate() error {
	if c.App.Port == "" {
		return errors.New("app.port is required")
	}
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url is required")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend.timeout must be positive")
	}
	if c.Tracker.PollInterval <= 0 {
		return errors.New("tracker.poll_interval must be positive")
	}

	switch c.Session.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Postgres.Host == "" || c.Postgres.User == "" || c.Postgres.DBName == "" {
			return errors.New("postgres host, user and dbname are required for the postgres session store")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	return nil
}
