package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Mail      MailConfig      `mapstructure:"mail" validate:"required"`
	Jobs      JobsConfig      `mapstructure:"jobs" validate:"required"`
	Reminders RemindersConfig `mapstructure:"reminders"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0,gtfield=TokenLifetimeMinutes"`
}

// MailConfig selects how notification emails leave the process.
type MailConfig struct {
	From      string `mapstructure:"from" validate:"required,email"`
	Transport string `mapstructure:"transport" validate:"required,oneof=log outbox"`
	OutboxDir string `mapstructure:"outbox_dir" validate:"required_if=Transport outbox"`
}

// JobsConfig sizes the background job runner.
type JobsConfig struct {
	WorkerCount        int `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize          int `mapstructure:"queue_size" validate:"gte=1"`
	StuckJobAgeMinutes int `mapstructure:"stuck_job_age_minutes" validate:"gte=1"`
}

// RemindersConfig controls the periodic due date reminder sweep.
type RemindersConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes" validate:"gte=1"`
	WindowHours     int  `mapstructure:"window_hours" validate:"gte=1"`
}

// StuckJobAge returns the configured stuck job threshold.
func (c JobsConfig) StuckJobAge() time.Duration {
	return time.Duration(c.StuckJobAgeMinutes) * time.Minute
}

// Interval returns how often the reminder sweep runs.
func (c RemindersConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Window returns how far ahead of a due date reminders are sent.
func (c RemindersConfig) Window() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}
