/*
errors.go - Centralized error types for the approval workflow

PURPOSE:
  All workflow error types in one place. The taxonomy mirrors how callers
  must react:
    1. Validation errors - rejected before any store access, never retried
    2. Store errors      - wrapped and propagated, no partial writes
    3. Not-found errors  - explicit failures, never silent successes

USAGE:
  if approval.IsClientError(err) {
      // surface to the user, HTTP 400/404/409
  }

SEE ALSO:
  - service.go: produces these errors
  - api/handlers.go: maps them onto HTTP status codes
*/
package approval

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAgentNotFound is returned when no supplied identifier resolves to
	// an employee. Rejection happens before any write.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrMissingAgentRef is returned when an operation carries no agent
	// identifier at all.
	ErrMissingAgentRef = errors.New("missing agent identifier")

	// ErrInvalidAmount is returned when an approval amount is not positive.
	ErrInvalidAmount = errors.New("approval amount must be positive")

	// ErrNoApprovalToRevoke is returned when revocation targets an
	// agent/month with no approved, non-revoked record. The store is left
	// unchanged.
	ErrNoApprovalToRevoke = errors.New("no approved record to revoke")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// AgentNotFoundError reports which identifiers failed to resolve.
type AgentNotFoundError struct {
	Refs []AgentRef
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent not found by any of %d identifier(s): %v", len(e.Refs), e.Refs)
}

func (e *AgentNotFoundError) Unwrap() error { return ErrAgentNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than a store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAgentNotFound) ||
		errors.Is(err, ErrMissingAgentRef) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNoApprovalToRevoke)
}

// IsNotFound returns true if the error indicates a missing target.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAgentNotFound) ||
		errors.Is(err, ErrNoApprovalToRevoke)
}
