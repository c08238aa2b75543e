package session

import (
	"github.com/KirkDiggler/gamemaster-api/internal/combat"
	"github.com/KirkDiggler/gamemaster-api/internal/dice"
	"github.com/KirkDiggler/gamemaster-api/internal/entities"
	"github.com/KirkDiggler/gamemaster-api/internal/mutation"
	"github.com/KirkDiggler/gamemaster-api/internal/narration"
)

// CreateSessionInput defines the input for creating a session
type CreateSessionInput struct {
	CampaignID string
	Location   string
}

// CreateSessionOutput defines the output for creating a session
type CreateSessionOutput struct {
	Session *entities.Session
}

// GetSessionInput defines the input for getting a session
type GetSessionInput struct {
	SessionID string
}

// GetSessionOutput defines the output for getting a session
type GetSessionOutput struct {
	Session *entities.Session
}

// ListSessionsInput defines the input for listing a campaign's sessions
type ListSessionsInput struct {
	CampaignID string
}

// ListSessionsOutput defines the output for listing a campaign's sessions
type ListSessionsOutput struct {
	Sessions []*entities.Session
}

// StartCombatInput defines the input for starting an encounter
type StartCombatInput struct {
	SessionID       string
	Participants    []combat.Participant
	ExpectedVersion int64
}

// StartCombatOutput defines the output for starting an encounter
type StartCombatOutput struct {
	Session *entities.Session
}

// AdvanceTurnInput defines the input for advancing the turn
type AdvanceTurnInput struct {
	SessionID       string
	ExpectedVersion int64
}

// AdvanceTurnOutput defines the output for advancing the turn
type AdvanceTurnOutput struct {
	Session *entities.Session

	// Current is the combatant whose turn it now is; nil when this
	// advance ended the encounter
	Current *entities.Combatant

	// CombatEnded is true when the advance found the encounter over
	CombatEnded bool
	Outcome     combat.Outcome
}

// ApplyActionInput defines the input for a player-declared action
type ApplyActionInput struct {
	SessionID       string
	Changes         []entities.StateChange
	ExpectedVersion int64
}

// ApplyActionOutput defines the output for a player-declared action
type ApplyActionOutput struct {
	Session     *entities.Session
	Applied     []entities.StateChange
	Rejected    []mutation.RejectedChange
	CombatEnded bool
	Outcome     combat.Outcome
}

// SubmitNarrationInput defines the input for a narration-derived mutation
type SubmitNarrationInput struct {
	SessionID string
	RawText   string
}

// SubmitNarrationOutput defines the output for a narration-derived mutation
type SubmitNarrationOutput struct {
	Session *entities.Session

	// Narrative is the story text that was accepted, possibly the raw
	// reply when no structured block parsed
	Narrative string

	Applied      []entities.StateChange
	Rejected     []mutation.RejectedChange
	RequiresRoll *narration.RollRequest
	CombatEnded  bool
	Outcome      combat.Outcome
}

// NarrateTurnInput defines the input for a model-driven narration step
type NarrateTurnInput struct {
	SessionID string

	// Prompt describes what just happened; when empty a prompt is built
	// from the session state
	Prompt string
}

// NarrateTurnOutput defines the output for a model-driven narration step
type NarrateTurnOutput struct {
	SubmitNarrationOutput
}

// PauseSessionInput defines the input for pausing a session
type PauseSessionInput struct {
	SessionID string
}

// PauseSessionOutput defines the output for pausing a session
type PauseSessionOutput struct {
	Session *entities.Session
}

// ResumeSessionInput defines the input for resuming a paused session
type ResumeSessionInput struct {
	SessionID string
}

// ResumeSessionOutput defines the output for resuming a paused session
type ResumeSessionOutput struct {
	Session *entities.Session
}

// EndSessionInput defines the input for ending a session
type EndSessionInput struct {
	SessionID string
}

// EndSessionOutput defines the output for ending a session
type EndSessionOutput struct {
	Session *entities.Session
}

// SaveSummaryInput defines the input for saving a narrative summary
type SaveSummaryInput struct {
	SessionID string
	Summary   string
}

// SaveSummaryOutput defines the output for saving a narrative summary
type SaveSummaryOutput struct {
	Session *entities.Session
}

// RollDiceInput defines the input for rolling dice notation
type RollDiceInput struct {
	Notation string
}

// RollDiceOutput defines the output for rolling dice notation
type RollDiceOutput struct {
	Result *dice.Result
}
