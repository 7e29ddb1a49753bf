// Package config loads the skein.yaml settings shared by every command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "skein.yaml"

// Config is the complete set of settings.
type Config struct {
	Separator   string `mapstructure:"separator"`
	AutoAdvance bool   `mapstructure:"auto_advance"`

	Log     LogConfig     `mapstructure:"log"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Library LibraryConfig `mapstructure:"library"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// StoreConfig selects where session snapshots are kept.
type StoreConfig struct {
	Backend string      `mapstructure:"backend" validate:"oneof=memory file redis"`
	Path    string      `mapstructure:"path" validate:"required_if=Backend file"`
	Redis   RedisConfig `mapstructure:"redis"`

	// EncryptionKey seals snapshots at rest when set: 32 bytes, base64.
	EncryptionKey string   `mapstructure:"encryption_key" validate:"omitempty,base64"`
	FallbackKeys  []string `mapstructure:"fallback_keys" validate:"dive,base64"`
	// MaskVariables are patterns of variable names masked before saving.
	MaskVariables []string `mapstructure:"mask_variables"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type ServerConfig struct {
	Addr    string        `mapstructure:"addr" validate:"required"`
	LockTTL time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`
}

// LibraryConfig points at the directory of story documents.
type LibraryConfig struct {
	Path  string `mapstructure:"path" validate:"required"`
	Watch bool   `mapstructure:"watch"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Backend: "memory",
			Path:    ".skein/sessions",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "skein:",
			},
		},
		Server:  ServerConfig{Addr: ":8080", LockTTL: 5 * time.Second},
		Library: LibraryConfig{Path: "."},
	}
}

var validate = validator.New()

// Load reads path, or DefaultFile when path is empty. A missing DefaultFile
// yields Default(); a missing explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML settings on top of the defaults and validates them.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Backend == "redis" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("invalid config: store.redis.addr is required for the redis backend")
	}
	return nil
}
