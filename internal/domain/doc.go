// Package domain contains the core business entities of the team task tracker:
// users and their notification preferences, tasks with their comments, and the
// notifications raised as tasks move through their lifecycle. It is independent
// of any storage or delivery mechanism.
package domain
