// Package errors provides a structured error handling solution for gamemaster-api.
//
// This package provides:
//   - Structured errors with codes, messages, and metadata
//   - HTTP status mapping for the handler layer
//   - Error context preservation through wrapping
//   - Validation error helpers
//   - Type-safe error checking
//
// # Basic Usage
//
// Creating errors:
//
//	err := errors.NotFound("session not found")
//	err := errors.InvalidArgumentf("invalid dice notation: %s", notation)
//
// Adding metadata:
//
//	err := errors.NotFound("session not found").
//	    WithMeta("session_id", sessionID)
//
// Wrapping errors:
//
//	if err := repo.Get(ctx, input); err != nil {
//	    return errors.Wrap(err, "failed to get session")
//	}
//
// # Error Checking
//
// Type checking:
//
//	if errors.IsVersionConflict(err) {
//	    // Re-read the session and retry with the fresh version
//	}
//
// Extracting information:
//
//	code := errors.GetCode(err)
//	message := errors.GetMessage(err)
//	status := code.HTTPStatus()
//
// # Layer-Specific Guidelines
//
// Repository layer:
//   - Return domain-specific errors (NotFound, AlreadyExists, VersionConflict)
//   - Include relevant IDs in metadata
//   - Wrap storage errors with context
//
// Orchestrator layer:
//   - Validate inputs and return InvalidArgument errors
//   - Check preconditions and return FailedPrecondition errors
//   - Wrap repository errors with business context
//
// Handler layer:
//   - Map codes to HTTP statuses via Code.HTTPStatus
//   - Extract user-friendly messages
//   - Log internal errors for debugging
//
// # Error Codes
//
// The codes most relevant to this service:
//   - NotFound: session or combatant missing; fatal for the request
//   - InvalidArgument: malformed input (empty participant list, bad dice notation)
//   - VersionConflict: optimistic write lost the race; expected and retryable
//   - FailedPrecondition: operation requirements not met (e.g. combat not active)
//   - Internal: unexpected server error
package errors
