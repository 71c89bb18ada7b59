// Package auth issues and validates JWT access and refresh tokens and hashes
// passwords with bcrypt.
package auth
