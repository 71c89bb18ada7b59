package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration environment variable,
// e.g. TEAMTASKS_DATABASE_URL for database.url.
const EnvPrefix = "TEAMTASKS"

var defaults = map[string]any{
	"server.port":                         8080,
	"server.log_level":                    "info",
	"database.url":                        "",
	"database.max_open_conns":             10,
	"database.max_idle_conns":             5,
	"auth.jwt_secret":                     "",
	"auth.bcrypt_cost":                    10,
	"auth.token_lifetime_minutes":         60,
	"auth.refresh_token_lifetime_minutes": 10080,
	"mail.from":                           "no-reply@teamtasks.local",
	"mail.transport":                      "log",
	"mail.outbox_dir":                     "",
	"jobs.worker_count":                   2,
	"jobs.queue_size":                     100,
	"jobs.stuck_job_age_minutes":          30,
	"reminders.enabled":                   true,
	"reminders.interval_minutes":          60,
	"reminders.window_hours":              24,
}

// Load reads configuration from an optional config.yaml in the working
// directory and from TEAMTASKS_* environment variables, which take precedence.
// The result is validated before it is returned.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
