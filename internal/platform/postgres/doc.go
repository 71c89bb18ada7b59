// Package postgres implements the persistence interfaces of internal/store
// and the background job store on PostgreSQL, using sqlx over the pgx driver.
// It also embeds the goose schema migrations.
package postgres
