// Package config resolves the service settings from defaults, an optional
// YAML file, INVENTORY_* environment variables, and command-line flags, in
// that order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix is stripped from environment variables; INVENTORY_DATABASE_URL
// becomes the database-url key.
const EnvPrefix = "INVENTORY_"

type Config struct {
	Port         string `koanf:"port"`
	DatabaseURL  string `koanf:"database-url"`
	JWTSecret    string `koanf:"jwt-secret"`
	BcryptCost   int    `koanf:"bcrypt-cost"`
	AutoMigrate  bool   `koanf:"auto-migrate"`
	LogFormat    string `koanf:"log-format"`
	LogLevel     string `koanf:"log-level"`
	OTLPEndpoint string `koanf:"otlp-endpoint"`
	OTLPInsecure bool   `koanf:"otlp-insecure"`
}

func Default() Config {
	return Config{
		Port:       "8080",
		BcryptCost: bcrypt.DefaultCost,
		LogFormat:  "json",
		LogLevel:   "info",
	}
}

// RegisterFlags adds one flag per key to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("port", d.Port, "HTTP listen port")
	fs.String("database-url", d.DatabaseURL, "PostgreSQL connection URL")
	fs.String("jwt-secret", d.JWTSecret, "HMAC secret for signing session tokens")
	fs.Int("bcrypt-cost", d.BcryptCost, "bcrypt work factor for new password hashes")
	fs.Bool("auto-migrate", d.AutoMigrate, "apply pending migrations on startup")
	fs.String("log-format", d.LogFormat, "log output format (json or text)")
	fs.String("log-level", d.LogLevel, "minimum log level (debug, info, warn, error)")
	fs.String("otlp-endpoint", d.OTLPEndpoint, "OTLP gRPC collector endpoint; empty disables tracing")
	fs.Bool("otlp-insecure", d.OTLPInsecure, "connect to the OTLP collector without TLS")
}

// Load layers path (when non-empty), the environment, and fs (when non-nil)
// over the defaults. Flags only override when set explicitly.
func Load(fs *pflag.FlagSet, path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	return cfg, nil
}

func envKey(name string) string {
	name = strings.TrimPrefix(name, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// Validate checks the settings serve needs. migrate only needs DatabaseURL.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.DatabaseURL) == "" {
		problems = append(problems, "database-url is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		problems = append(problems, "jwt-secret is required")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Sprintf("bcrypt-cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		problems = append(problems, "log-format must be json or text")
	}
	if c.Port == "" {
		problems = append(problems, "port is required")
	}
	if len(problems) > 0 {
		return oops.Code("CONFIG_INVALID").Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
