// Package store defines the persistence interfaces for tasks, notifications
// and users. The interfaces keep the service layer independent of the
// database; the PostgreSQL implementations live in internal/platform/postgres.
package store
