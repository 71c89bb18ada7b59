// Package mocks provides shared test doubles.
//
// MemoryDB is an in-memory implementation of the task, notification and user
// stores plus a Transactor that restores the previous state when the unit of
// work fails, so service tests can assert on "no partial side effects" without
// a database. Failures are injected per operation with FailOn:
//
//	db := mocks.NewMemoryDB()
//	db.FailOn("Notifications.Create", errors.New("boom"))
//
// Function-field fakes (MockJWTService, MockPasswordHasher, MockSender) follow
// the usual pattern: set the Fn field to customize a call, or rely on the
// default fields.
package mocks
