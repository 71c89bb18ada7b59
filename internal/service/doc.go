// Package service contains the application use cases of the task tracker.
//
// TaskService is the task lifecycle controller: every mutation authorizes the
// actor with the policy package, validates its input, mutates the task and
// derives notifications through the dispatch engine inside one transaction,
// then publishes the notification side effects after commit.
// NotificationService and UserService cover the recipient's inbox and
// identity management.
//
// Services depend on the store interfaces and never on a concrete database.
// Store sentinels are translated into the errors declared in errors.go, and
// anything unexpected is wrapped in a ServiceError.
package service
