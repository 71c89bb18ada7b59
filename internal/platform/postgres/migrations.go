package postgres

import "embed"

// MigrationsDir is the directory of the goose migrations inside Migrations.
const MigrationsDir = "migrations"

// MigrationsTable is the goose version table name.
const MigrationsTable = "schema_migrations"

// Migrations holds the SQL schema migrations, applied with goose.
//
//go:embed migrations/*.sql
var Migrations embed.FS
