package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/phrazzld/teamtasks-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogGooseLogger(t *testing.T) {
	var buf bytes.Buffer
	l := &slogGooseLogger{logger: slog.New(slog.NewTextHandler(&buf, nil))}

	l.Printf("OK   %s\n", "20260301090000_create_users_table.sql")
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "create_users_table")

	buf.Reset()
	require.NotPanics(t, func() { l.Fatalf("failed to run migration: %s", "boom") })
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestGooseCommand_Unknown(t *testing.T) {
	err := gooseCommand(context.Background(), nil, "sideways")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration command")
}

func TestRunMigrations_CreateRequiresName(t *testing.T) {
	err := runMigrations(&config.Config{}, "create", false, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration name is required")
}
