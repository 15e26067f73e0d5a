package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "whitelist.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// Config is the process configuration. Runtime settings managed from Discord
// (channels, roles, RCON details) live in the key-value store instead; see
// Settings.
type Config struct {
	DataDir         string        `yaml:"dataDir"         envconfig:"WHITELIST_DATA_DIR"`
	StoreBackend    string        `yaml:"storeBackend"    envconfig:"WHITELIST_STORE"`
	DatabaseURL     string        `yaml:"databaseUrl"     envconfig:"DATABASE_URL"`
	DatabaseConns   int32         `yaml:"databaseConns"   envconfig:"WHITELIST_DATABASE_CONNS"`
	BindAddr        string        `yaml:"bindAddr"        envconfig:"WHITELIST_BIND_ADDR"`
	Port            uint          `yaml:"port"            envconfig:"PORT"`
	ReviewInterval  time.Duration `yaml:"reviewInterval"  envconfig:"WHITELIST_REVIEW_INTERVAL"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"WHITELIST_SHUTDOWN_TIMEOUT"`
	LogLevel        string        `yaml:"logLevel"        envconfig:"LOG_LEVEL"`
	LogFormat       string        `yaml:"logFormat"       envconfig:"LOG_FORMAT"`
	Mojang          MojangConfig  `yaml:"mojang"`
}

// MojangConfig points the profile lookup at the Mojang APIs.
type MojangConfig struct {
	ProfilesURL      string  `yaml:"profilesUrl"      envconfig:"MOJANG_PROFILES_URL"`
	SessionServerURL string  `yaml:"sessionServerUrl" envconfig:"MOJANG_SESSION_SERVER_URL"`
	RequestsPerSec   float64 `yaml:"requestsPerSec"   envconfig:"MOJANG_REQUESTS_PER_SEC"`
}

var globalConfig = &Config{
	DataDir:         ".whitelist",
	StoreBackend:    StoreBadger,
	DatabaseConns:   6,
	BindAddr:        "0.0.0.0",
	Port:            8081,
	ReviewInterval:  10 * time.Second,
	ShutdownTimeout: 30 * time.Second,
	LogLevel:        "info",
	LogFormat:       "json",
	Mojang: MojangConfig{
		ProfilesURL:      "https://api.mojang.com/users/profiles/minecraft/",
		SessionServerURL: "https://sessionserver.mojang.com/session/minecraft/profile/",
		RequestsPerSec:   1,
	},
}

// LoadConfig reads the optional YAML file and then applies environment
// overrides on top of the defaults.
func LoadConfig(configFile string) (*Config, error) {
	cfg := *globalConfig
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("whitelist", &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreBadger:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the %s store", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.Port == 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.ReviewInterval <= 0 {
		return fmt.Errorf("review interval must be positive, got %s", c.ReviewInterval)
	}
	return nil
}

// ListenAddress is the host:port the HTTP API binds to.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}
