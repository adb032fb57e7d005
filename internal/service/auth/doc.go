// Package auth issues and validates the bearer tokens that guard the task API
// and verifies operator credentials against a bcrypt hash.
package auth
