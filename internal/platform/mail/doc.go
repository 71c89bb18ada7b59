// Package mail composes and delivers notification emails.
//
// Messages are rendered as RFC 5322 text with go-message and handed to a
// Transport. The log transport only records that a message would have been
// sent; the outbox transport writes each message as an .eml file for a
// relay or a developer to pick up.
package mail
