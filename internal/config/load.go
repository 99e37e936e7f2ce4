package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. APIVIEW_AUTH_JWT_SECRET.
const EnvPrefix = "APIVIEW"

// Option customizes how Load locates configuration sources.
type Option func(*loadOptions)

type loadOptions struct {
	configFile string
}

// WithConfigFile points the loader at an explicit config file instead of
// searching for config.yaml in the working directory.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) {
		o.configFile = path
	}
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(opts ...Option) (*Config, error) {
	options := loadOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	v := viper.New()
	setDefaults(v)

	if options.configFile != "" {
		v.SetConfigFile(options.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing default config file is fine; an explicit one must exist.
		if options.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"auth.jwt_secret", "auth.cookie_name", "database.url", "cache.redis_addr",
		"storage.s3_bucket", "storage.s3_region", "storage.s3_endpoint", "storage.s3_prefix"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags on a fully populated Config.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.rate_limit_per_minute", 0)
	v.SetDefault("server.metrics_enabled", true)

	v.SetDefault("auth.algorithm", "HS256")
	v.SetDefault("auth.verify_expiration", true)
	v.SetDefault("auth.expiration_minutes", 10)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("api.envelope", "simple")
	v.SetDefault("api.success_code", 200)
	v.SetDefault("api.default_guards", []string{})

	v.SetDefault("cache.user_ttl_seconds", 60)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.root", "./uploads")
	v.SetDefault("storage.base_url", "")
	v.SetDefault("storage.filename_length", 12)
	v.SetDefault("storage.date_prefix", "")
}
