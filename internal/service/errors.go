// Package service holds the business logic for groups, bills, proposals and
// settlements. Every mutating operation validates authorization and state
// before writing, and performs all of its writes inside a single database
// transaction so a failure leaves no partial state behind.
package service

import (
	"errors"
	"strings"
)

// Domain error taxonomy. Handlers map these to HTTP status codes with
// errors.Is; raw store errors are never surfaced to callers.
var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("not an active member of this group")
	ErrForbidden      = errors.New("insufficient role")
	ErrInvalidState   = errors.New("operation not allowed in current state")
	ErrConflict       = errors.New("conflict")
	ErrGatewayFailure = errors.New("transfer gateway failure")
)

// isUniqueViolation reports whether err is a unique-constraint violation from
// the store. Matched by message because the MySQL and SQLite drivers surface
// different error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "Duplicate entry") ||
		strings.Contains(s, "UNIQUE constraint failed") ||
		strings.Contains(s, "duplicate key")
}
