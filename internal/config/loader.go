package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables that steer loading itself.
const (
	EnvPrefix     = "SONGLAB_"
	EnvConfigFile = "SONGLAB_CONFIG"
	EnvDotenvFile = "SONGLAB_DOTENV"

	defaultDotenv = ".env"
)

// Load builds a Config by layering defaults, an optional .env file, an
// optional YAML file and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. .env from SONGLAB_DOTENV, or ./.env if present; never overrides
//     variables already set in the process
//  3. file (YAML) if SONGLAB_CONFIG is set
//  4. env (prefix SONGLAB_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	if err := loadDotenv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SONGLAB_QUEUE_SIZE -> queue_size; underscores are kept to match the
	// flat koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotenv() error {
	path := os.Getenv(EnvDotenvFile)
	explicit := path != ""
	if !explicit {
		path = defaultDotenv
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, path, err)
}
