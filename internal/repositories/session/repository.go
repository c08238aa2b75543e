// Package session defines the interface for session persistence
package session

import (
	"context"

	"github.com/KirkDiggler/gamemaster-api/internal/entities"
)

// Repository is the authoritative store for session state. Every write
// goes through UpdateIfVersion: the stored version must equal the version
// the caller last observed, and on success it increments by exactly 1.
type Repository interface {
	// Create stores a new session
	// Returns errors.InvalidArgument for validation failures
	// Returns errors.AlreadyExists if the ID is taken
	// Returns errors.Internal for storage failures
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)

	// Get retrieves a session by ID
	// Returns errors.InvalidArgument for empty IDs
	// Returns errors.NotFound if the session doesn't exist
	// Returns errors.Internal for storage failures
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// UpdateIfVersion writes the session only if the stored version still
	// equals ExpectedVersion; at most one of any set of concurrent callers
	// presenting the same version succeeds
	// Returns errors.VersionConflict when another writer won the race
	// Returns errors.NotFound if the session doesn't exist
	// Returns errors.Internal for storage failures
	UpdateIfVersion(ctx context.Context, input UpdateIfVersionInput) (*UpdateIfVersionOutput, error)

	// Delete removes a session and its campaign index entry
	// Returns errors.NotFound if the session doesn't exist
	// Returns errors.Internal for storage failures
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)

	// ListByCampaign returns all sessions belonging to a campaign
	// Returns errors.InvalidArgument for empty campaign IDs
	// Returns errors.Internal for storage failures
	ListByCampaign(ctx context.Context, input ListByCampaignInput) (*ListByCampaignOutput, error)
}

// CreateInput defines the input for creating a session
type CreateInput struct {
	Session *entities.Session
}

// CreateOutput defines the output for creating a session
type CreateOutput struct {
	Session *entities.Session
}

// GetInput defines the input for getting a session
type GetInput struct {
	ID string
}

// GetOutput defines the output for getting a session
type GetOutput struct {
	Session *entities.Session
}

// UpdateIfVersionInput defines the input for a conditional write.
// Session carries the full desired state; ExpectedVersion is the version
// the caller read before mutating.
type UpdateIfVersionInput struct {
	Session         *entities.Session
	ExpectedVersion int64
}

// UpdateIfVersionOutput returns the stored session with its new version
// and refreshed activity timestamp
type UpdateIfVersionOutput struct {
	Session *entities.Session
}

// DeleteInput defines the input for deleting a session
type DeleteInput struct {
	ID string
}

// DeleteOutput defines the output for deleting a session
type DeleteOutput struct{}

// ListByCampaignInput defines the input for listing a campaign's sessions
type ListByCampaignInput struct {
	CampaignID string
}

// ListByCampaignOutput defines the output for listing a campaign's sessions
type ListByCampaignOutput struct {
	Sessions []*entities.Session
}
