// Package job runs durable background work. Jobs are persisted before they
// are queued, executed by a fixed pool of workers, and recovered from the
// store after a restart.
package job
