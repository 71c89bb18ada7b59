// Package events carries post-commit notification side effects between packages.
//
// The dispatch engine emits a NotificationEvent for every stored notification and
// every requested email once the surrounding transaction has committed. Handlers,
// such as the email delivery handler, register with an EventEmitter and never
// block or fail the request that produced the event.
package events
