// Package config loads and validates the service configuration.
//
// Values come from defaults, an optional config.yaml and TEAMTASKS_-prefixed
// environment variables, in increasing order of precedence.
package config
