package store

import "context"

// Stores groups stores that share one unit of work.
type Stores struct {
	Tasks         TaskStore
	Notifications NotificationStore
	Users         UserStore
}

// Transactor runs a function against Stores bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
