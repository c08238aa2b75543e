// Package session implements the session orchestrator: the operations a
// table performs against one shared session, coordinated through the
// versioned store.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/gamemaster-api/internal/clients/narrator"
	"github.com/KirkDiggler/gamemaster-api/internal/combat"
	gmdice "github.com/KirkDiggler/gamemaster-api/internal/dice"
	"github.com/KirkDiggler/gamemaster-api/internal/entities"
	"github.com/KirkDiggler/gamemaster-api/internal/errors"
	"github.com/KirkDiggler/gamemaster-api/internal/mutation"
	"github.com/KirkDiggler/gamemaster-api/internal/narration"
	"github.com/KirkDiggler/gamemaster-api/internal/pkg/clock"
	"github.com/KirkDiggler/gamemaster-api/internal/pkg/idgen"
	sessionrepo "github.com/KirkDiggler/gamemaster-api/internal/repositories/session"
)

// Event types published on the bus
const (
	EventSessionUpdated = "session.updated"
	EventSessionEnded   = "session.ended"
	EventCombatStarted  = "combat.started"
	EventCombatEnded    = "combat.ended"
)

// Narration writes are system-initiated, so version conflicts are retried
// internally instead of being surfaced to a caller who never saw a version
const maxNarrationRetries = 3

// Service defines the interface for session operations
type Service interface {
	// Session lifecycle
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)
	GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error)
	ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error)
	PauseSession(ctx context.Context, input *PauseSessionInput) (*PauseSessionOutput, error)
	ResumeSession(ctx context.Context, input *ResumeSessionInput) (*ResumeSessionOutput, error)
	EndSession(ctx context.Context, input *EndSessionInput) (*EndSessionOutput, error)
	SaveSummary(ctx context.Context, input *SaveSummaryInput) (*SaveSummaryOutput, error)

	// Combat
	StartCombat(ctx context.Context, input *StartCombatInput) (*StartCombatOutput, error)
	AdvanceTurn(ctx context.Context, input *AdvanceTurnInput) (*AdvanceTurnOutput, error)
	ApplyAction(ctx context.Context, input *ApplyActionInput) (*ApplyActionOutput, error)

	// Narration pipeline
	SubmitNarration(ctx context.Context, input *SubmitNarrationInput) (*SubmitNarrationOutput, error)
	NarrateTurn(ctx context.Context, input *NarrateTurnInput) (*NarrateTurnOutput, error)

	// Dice
	RollDice(ctx context.Context, input *RollDiceInput) (*RollDiceOutput, error)
}

// Config holds the dependencies for the session orchestrator
type Config struct {
	SessionRepo sessionrepo.Repository
	Roller      dice.Roller
	Narrator    narrator.Client
	EventBus    events.EventBus
	IDGenerator idgen.Generator
	Clock       clock.Clock
}

// Validate ensures all required dependencies are provided. Narrator and
// EventBus are optional: without a narrator NarrateTurn is unavailable,
// without a bus no events are published.
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.SessionRepo == nil {
		vb.RequiredField("SessionRepo")
	}
	if c.Roller == nil {
		vb.RequiredField("Roller")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}

	return vb.Build()
}

type orchestrator struct {
	repo     sessionrepo.Repository
	roller   dice.Roller
	narrator narrator.Client
	eventBus events.EventBus
	idGen    idgen.Generator
	clock    clock.Clock
}

// NewOrchestrator creates a new session orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	return &orchestrator{
		repo:     cfg.SessionRepo,
		roller:   cfg.Roller,
		narrator: cfg.Narrator,
		eventBus: cfg.EventBus,
		idGen:    cfg.IDGenerator,
		clock:    c,
	}, nil
}

func (o *orchestrator) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.CampaignID == "" {
		return nil, errors.InvalidArgument("campaign ID is required")
	}

	sess := &entities.Session{
		ID:         o.idGen.Generate(),
		CampaignID: input.CampaignID,
		Status:     entities.SessionStatusActive,
		Version:    1,
		Location:   input.Location,
		CreatedAt:  o.clock.Now(),
	}

	created, err := o.repo.Create(ctx, sessionrepo.CreateInput{Session: sess})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "session created",
		"session_id", created.Session.ID,
		"campaign_id", created.Session.CampaignID,
	)

	return &CreateSessionOutput{Session: created.Session}, nil
}

func (o *orchestrator) GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	out, err := o.repo.Get(ctx, sessionrepo.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, err
	}

	return &GetSessionOutput{Session: out.Session}, nil
}

func (o *orchestrator) ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	if input == nil || input.CampaignID == "" {
		return nil, errors.InvalidArgument("campaign ID is required")
	}

	out, err := o.repo.ListByCampaign(ctx, sessionrepo.ListByCampaignInput{CampaignID: input.CampaignID})
	if err != nil {
		return nil, err
	}

	return &ListSessionsOutput{Sessions: out.Sessions}, nil
}

func (o *orchestrator) StartCombat(ctx context.Context, input *StartCombatInput) (*StartCombatOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	got, err := o.repo.Get(ctx, sessionrepo.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, err
	}
	sess := got.Session

	if sess.Status != entities.SessionStatusActive {
		return nil, errors.FailedPreconditionf("session is %s, not active", sess.Status)
	}
	if sess.InCombat() {
		return nil, errors.FailedPrecondition("combat is already in progress")
	}

	state, err := combat.StartCombat(input.Participants, o.roller)
	if err != nil {
		return nil, err
	}

	next := sess.Clone()
	next.Combat = state

	updated, err := o.repo.UpdateIfVersion(ctx, sessionrepo.UpdateIfVersionInput{
		Session:         next,
		ExpectedVersion: input.ExpectedVersion,
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "combat started",
		"session_id", updated.Session.ID,
		"combatants", len(state.Combatants),
	)
	o.publish(ctx, EventCombatStarted, updated.Session)

	return &StartCombatOutput{Session: updated.Session}, nil
}

func (o *orchestrator) AdvanceTurn(ctx context.Context, input *AdvanceTurnInput) (*AdvanceTurnOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	got, err := o.repo.Get(ctx, sessionrepo.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, err
	}
	sess := got.Session

	if !sess.InCombat() {
		return nil, errors.FailedPrecondition("no active combat in this session")
	}

	state, err := combat.AdvanceTurn(sess.Combat)
	if err != nil {
		return nil, err
	}

	// Condition and effect durations count rounds, not turns
	if state.Round > sess.Combat.Round {
		state = combat.TickDurations(state)
	}

	output := &AdvanceTurnOutput{}
	next := sess.Clone()

	if end, outcome := combat.ShouldEnd(state); end {
		output.CombatEnded = true
		output.Outcome = outcome
		next.Combat = nil
	} else {
		next.Combat = state
		output.Current = combat.CurrentCombatant(state)
	}

	updated, err := o.repo.UpdateIfVersion(ctx, sessionrepo.UpdateIfVersionInput{
		Session:         next,
		ExpectedVersion: input.ExpectedVersion,
	})
	if err != nil {
		return nil, err
	}
	output.Session = updated.Session

	if output.CombatEnded {
		slog.InfoContext(ctx, "combat ended",
			"session_id", updated.Session.ID,
			"outcome", output.Outcome,
		)
		o.publish(ctx, EventCombatEnded, updated.Session)
	} else {
		slog.InfoContext(ctx, "turn advanced",
			"session_id", updated.Session.ID,
			"round", state.Round,
			"turn_index", state.TurnIndex,
		)
		o.publish(ctx, EventSessionUpdated, updated.Session)
	}

	return output, nil
}

func (o *orchestrator) ApplyAction(ctx context.Context, input *ApplyActionInput) (*ApplyActionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}
	if len(input.Changes) == 0 {
		return nil, errors.InvalidArgument("at least one state change is required")
	}

	got, err := o.repo.Get(ctx, sessionrepo.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, err
	}

	result, err := mutation.Apply(got.Session, input.Changes)
	if err != nil {
		return nil, err
	}

	updated, err := o.repo.UpdateIfVersion(ctx, sessionrepo.UpdateIfVersionInput{
		Session:         result.Session,
		ExpectedVersion: input.ExpectedVersion,
	})
	if err != nil {
		return nil, err
	}

	if result.CombatEnded {
		slog.InfoContext(ctx, "combat ended",
			"session_id", updated.Session.ID,
			"outcome", result.Outcome,
		)
		o.publish(ctx, EventCombatEnded, updated.Session)
	} else {
		o.publish(ctx, EventSessionUpdated, updated.Session)
	}

	return &ApplyActionOutput{
		Session:     updated.Session,
		Applied:     result.Applied,
		Rejected:    result.Rejected,
		CombatEnded: result.CombatEnded,
		Outcome:     result.Outcome,
	}, nil
}

// SubmitNarration runs the full pipeline: validate the raw reply, resolve
// its state changes, and commit under the version read at the top of each
// attempt. Narration is system-initiated — no caller holds a version — so
// a lost write race is retried against the fresh state a bounded number
// of times.
func (o *orchestrator) SubmitNarration(ctx context.Context, input *SubmitNarrationInput) (*SubmitNarrationOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}
	if strings.TrimSpace(input.RawText) == "" {
		return nil, errors.InvalidArgument("narration text is required")
	}

	parsed, err := narration.Parse(input.RawText)
	if err != nil {
		if !stderrors.Is(err, narration.ErrMissingNarrative) {
			return nil, err
		}
		// A structured block with no story text: fall back to the raw
		// reply as plain narrative rather than failing the turn
		slog.WarnContext(ctx, "narration reply had no narrative text, using raw reply",
			"session_id", input.SessionID)
		parsed = &narration.Result{Narrative: strings.TrimSpace(input.RawText)}
	}

	for _, issue := range parsed.Issues {
		slog.WarnContext(ctx, "narration sub-field dropped",
			"session_id", input.SessionID,
			"field", issue.Field,
			"error", issue.Err,
		)
	}

	var lastErr error
	for attempt := 0; attempt < maxNarrationRetries; attempt++ {
		got, err := o.repo.Get(ctx, sessionrepo.GetInput{ID: input.SessionID})
		if err != nil {
			return nil, err
		}
		sess := got.Session

		if sess.Status != entities.SessionStatusActive {
			return nil, errors.FailedPreconditionf("session is %s, not active", sess.Status)
		}

		result, err := mutation.Apply(sess, parsed.StateChanges)
		if err != nil {
			return nil, err
		}

		next := result.Session
		if parsed.Location != "" {
			next.Location = parsed.Location
		}
		mergeNPCs(next, parsed.NPCs)

		updated, err := o.repo.UpdateIfVersion(ctx, sessionrepo.UpdateIfVersionInput{
			Session:         next,
			ExpectedVersion: sess.Version,
		})
		if err != nil {
			if errors.IsVersionConflict(err) {
				lastErr = err
				slog.WarnContext(ctx, "narration write lost version race, retrying",
					"session_id", input.SessionID,
					"attempt", attempt+1,
				)
				continue
			}
			return nil, err
		}

		if result.CombatEnded {
			o.publish(ctx, EventCombatEnded, updated.Session)
		} else {
			o.publish(ctx, EventSessionUpdated, updated.Session)
		}

		return &SubmitNarrationOutput{
			Session:      updated.Session,
			Narrative:    parsed.Narrative,
			Applied:      result.Applied,
			Rejected:     result.Rejected,
			RequiresRoll: parsed.RequiresRoll,
			CombatEnded:  result.CombatEnded,
			Outcome:      result.Outcome,
		}, nil
	}

	return nil, errors.Wrapf(lastErr, "narration write failed after %d attempts", maxNarrationRetries)
}

func (o *orchestrator) NarrateTurn(ctx context.Context, input *NarrateTurnInput) (*NarrateTurnOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}
	if o.narrator == nil {
		return nil, errors.FailedPrecondition("no narrator is configured")
	}

	got, err := o.repo.Get(ctx, sessionrepo.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, err
	}
	sess := got.Session

	if sess.Status != entities.SessionStatusActive {
		return nil, errors.FailedPreconditionf("session is %s, not active", sess.Status)
	}

	prompt := input.Prompt
	if prompt == "" {
		prompt = buildPrompt(sess)
	}

	reply, err := o.narrator.GenerateNarration(ctx, &narrator.GenerateInput{
		SystemPrompt: narratorSystemPrompt,
		Prompt:       prompt,
	})
	if err != nil {
		return nil, err
	}

	out, err := o.SubmitNarration(ctx, &SubmitNarrationInput{
		SessionID: input.SessionID,
		RawText:   reply.Raw,
	})
	if err != nil {
		return nil, err
	}

	return &NarrateTurnOutput{SubmitNarrationOutput: *out}, nil
}

func (o *orchestrator) PauseSession(ctx context.Context, input *PauseSessionInput) (*PauseSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	updated, err := o.transition(ctx, input.SessionID,
		entities.SessionStatusActive, entities.SessionStatusPaused)
	if err != nil {
		return nil, err
	}
	return &PauseSessionOutput{Session: updated}, nil
}

func (o *orchestrator) ResumeSession(ctx context.Context, input *ResumeSessionInput) (*ResumeSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	updated, err := o.transition(ctx, input.SessionID,
		entities.SessionStatusPaused, entities.SessionStatusActive)
	if err != nil {
		return nil, err
	}
	return &ResumeSessionOutput{Session: updated}, nil
}

func (o *orchestrator) EndSession(ctx context.Context, input *EndSessionInput) (*EndSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	got, err := o.repo.Get(ctx, sessionrepo.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, err
	}
	sess := got.Session

	if sess.Status == entities.SessionStatusEnded {
		return nil, errors.FailedPrecondition("session has already ended")
	}

	next := sess.Clone()
	next.Status = entities.SessionStatusEnded
	next.Combat = nil

	updated, err := o.repo.UpdateIfVersion(ctx, sessionrepo.UpdateIfVersionInput{
		Session:         next,
		ExpectedVersion: sess.Version,
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "session ended", "session_id", updated.Session.ID)
	o.publish(ctx, EventSessionEnded, updated.Session)

	return &EndSessionOutput{Session: updated.Session}, nil
}

func (o *orchestrator) SaveSummary(ctx context.Context, input *SaveSummaryInput) (*SaveSummaryOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	got, err := o.repo.Get(ctx, sessionrepo.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, err
	}
	sess := got.Session

	if sess.Status == entities.SessionStatusEnded {
		return nil, errors.FailedPrecondition("session has ended")
	}

	next := sess.Clone()
	next.Summary = input.Summary

	updated, err := o.repo.UpdateIfVersion(ctx, sessionrepo.UpdateIfVersionInput{
		Session:         next,
		ExpectedVersion: sess.Version,
	})
	if err != nil {
		return nil, err
	}

	o.publish(ctx, EventSessionUpdated, updated.Session)
	return &SaveSummaryOutput{Session: updated.Session}, nil
}

func (o *orchestrator) RollDice(ctx context.Context, input *RollDiceInput) (*RollDiceOutput, error) {
	if input == nil || input.Notation == "" {
		return nil, errors.InvalidArgument("dice notation is required")
	}

	result, err := gmdice.RollNotation(o.roller, input.Notation)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "dice rolled",
		"notation", result.Notation,
		"total", result.Total,
	)
	return &RollDiceOutput{Result: result}, nil
}

// transition is the shared read-modify-write for status changes. It reads
// the current version internally, so it can lose a race against a direct
// versioned update; the loser sees VersionConflict.
func (o *orchestrator) transition(
	ctx context.Context,
	sessionID string,
	from, to entities.SessionStatus,
) (*entities.Session, error) {
	got, err := o.repo.Get(ctx, sessionrepo.GetInput{ID: sessionID})
	if err != nil {
		return nil, err
	}
	sess := got.Session

	if sess.Status != from {
		return nil, errors.FailedPreconditionf("session is %s, expected %s", sess.Status, from)
	}

	next := sess.Clone()
	next.Status = to

	updated, err := o.repo.UpdateIfVersion(ctx, sessionrepo.UpdateIfVersionInput{
		Session:         next,
		ExpectedVersion: sess.Version,
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "session status changed",
		"session_id", sessionID,
		"from", from,
		"to", to,
	)
	o.publish(ctx, EventSessionUpdated, updated.Session)

	return updated.Session, nil
}

func (o *orchestrator) publish(ctx context.Context, eventType string, sess *entities.Session) {
	if o.eventBus == nil {
		return
	}

	event := events.NewGameEvent(eventType, &entities.SessionEntity{Session: sess}, nil)
	if err := o.eventBus.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish event",
			"event_type", eventType,
			"session_id", sess.ID,
			"error", err,
		)
	}
}

// mergeNPCs upserts narration-introduced NPCs into the scene by name
func mergeNPCs(sess *entities.Session, npcs []entities.NPC) {
	for _, npc := range npcs {
		replaced := false
		for i, existing := range sess.NPCs {
			if strings.EqualFold(existing.Name, npc.Name) {
				sess.NPCs[i] = npc
				replaced = true
				break
			}
		}
		if !replaced {
			sess.NPCs = append(sess.NPCs, npc)
		}
	}
}

const narratorSystemPrompt = `You are the narrator of a tabletop RPG session. ` +
	`Reply with vivid but concise story text. When the story changes game state, ` +
	`append one JSON object with fields: narrative (required), state_changes ` +
	`(array of {kind, target, value, detail, description}), npcs, requires_roll ` +
	`({reason, dice, target}), location. Kinds: damage, heal, condition_add, ` +
	`condition_remove, move, inventory, custom. Dice notation: XdY or XdY+Z.`

// buildPrompt summarizes the session state for the narrator
func buildPrompt(sess *entities.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Location: %s.\n", orUnknown(sess.Location))
	if sess.Summary != "" {
		fmt.Fprintf(&b, "Story so far: %s\n", sess.Summary)
	}

	if sess.InCombat() {
		fmt.Fprintf(&b, "Combat round %d.\n", sess.Combat.Round)
		if current := combat.CurrentCombatant(sess.Combat); current != nil {
			fmt.Fprintf(&b, "It is %s's turn (%d/%d HP).\n",
				current.Name, current.CurrentHP, current.MaxHP)
		}
		for _, c := range sess.Combat.Combatants {
			status := "up"
			if !c.Active {
				status = "down"
			}
			fmt.Fprintf(&b, "- %s (%s): %d/%d HP, %s\n",
				c.Name, c.Type, c.CurrentHP, c.MaxHP, status)
		}
		b.WriteString("Narrate this turn.")
	} else {
		b.WriteString("Narrate what happens next.")
	}

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
