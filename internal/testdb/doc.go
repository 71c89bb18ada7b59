// Package testdb provides utilities for database integration tests: locating
// the test database, applying the embedded schema migrations, and isolating
// each test in a transaction that is rolled back afterwards.
//
// Helpers that touch a database are only compiled with the integration build
// tag. Tests skip when no test database URL is configured.
package testdb
