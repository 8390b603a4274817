package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces the env override layer: METRICO_DATABASE_DSN sets
// database.dsn.
const EnvPrefix = "METRICO_"

type DatabaseConfig struct {
	Driver string `koanf:"driver"` // mysql or sqlite
	DSN    string `koanf:"dsn"`

	// Triggers that newly created entities are enqueued to, empty disables.
	OnCreateAccountTrigger string `koanf:"on_create_account_trigger"`
	OnCreateMediaTrigger   string `koanf:"on_create_media_trigger"`
}

type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type KafkaConfig struct {
	Enabled bool     `koanf:"enabled"`
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Level    string `koanf:"level"`
	Encoding string `koanf:"encoding"`
}

// ClassConfig instantiates one pluggable component: Cls names the registered
// implementation, Options is passed to its factory untouched.
type ClassConfig struct {
	Cls     string         `koanf:"cls"`
	Options map[string]any `koanf:"options"`
}

type Config struct {
	Database DatabaseConfig         `koanf:"database"`
	Redis    RedisConfig            `koanf:"redis"`
	Kafka    KafkaConfig            `koanf:"kafka"`
	Server   ServerConfig           `koanf:"server"`
	Log      LogConfig              `koanf:"log"`
	Hunters  map[string]ClassConfig `koanf:"hunters"`
	Triggers map[string]ClassConfig `koanf:"triggers"`
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:metrico.db",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Kafka: KafkaConfig{
			Topic: "metrico.entity",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load layers the configuration: built-in defaults, then the YAML file at
// path when it exists, then METRICO_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	// Only the first underscore separates section from key, so
	// METRICO_DATABASE_ON_CREATE_ACCOUNT_TRIGGER maps onto
	// database.on_create_account_trigger.
	envProvider := env.Provider(EnvPrefix, ".", func(key string) string {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		return strings.Replace(key, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	for name, t := range c.Triggers {
		if t.Cls == "" {
			return fmt.Errorf("trigger %q has no cls", name)
		}
	}
	for name, h := range c.Hunters {
		if h.Cls == "" {
			return fmt.Errorf("hunter %q has no cls", name)
		}
	}
	return nil
}
