// Package dispatch turns task events into notifications.
//
// The Engine runs inside the transaction that mutated the task: it resolves the
// recipients of an event, drops the acting user, honors each recipient's
// notification preferences and stores the resulting notifications. The Batch it
// returns is published with Engine.Publish only after that transaction
// commits. Email copies travel as events to the EmailHandler, which turns them
// into durable EmailJobs run by the job runner, so a failing mail transport can
// never fail or roll back the mutation that caused it.
//
// Reminder adds system notifications for tasks whose due date is approaching.
package dispatch
