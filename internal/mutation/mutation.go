// Package mutation resolves validated state-change instructions against a
// session, producing the next state snapshot for the versioned store.
//
// Apply is pure: the input session is never modified. Individual changes
// that cannot be resolved (unknown target, malformed move) are rejected
// and reported without failing the batch, mirroring the validator's
// drop-not-fail posture.
package mutation

import (
	"strconv"
	"strings"

	"github.com/KirkDiggler/gamemaster-api/internal/combat"
	"github.com/KirkDiggler/gamemaster-api/internal/entities"
	"github.com/KirkDiggler/gamemaster-api/internal/errors"
)

// RejectedChange pairs a change that could not be applied with the reason
type RejectedChange struct {
	Change entities.StateChange
	Err    error
}

// Result is the outcome of applying a batch of changes
type Result struct {
	// Session is the new snapshot with all applied changes folded in
	Session *entities.Session

	// Applied lists the changes that took effect, in order
	Applied []entities.StateChange

	// Rejected lists the changes that could not be resolved
	Rejected []RejectedChange

	// CombatEnded is true when this batch ended the encounter
	CombatEnded bool

	// Outcome is set when CombatEnded is true
	Outcome combat.Outcome
}

// Apply resolves each change against the session in order and returns the
// next snapshot. Combat-targeting changes require an active encounter and
// a resolvable target; changes that fail resolution are rejected
// individually. After the batch, end-of-combat conditions are evaluated
// and a finished encounter is discarded from the session.
func Apply(session *entities.Session, changes []entities.StateChange) (*Result, error) {
	if session == nil {
		return nil, errors.InvalidArgument("session is required")
	}
	if session.Status == entities.SessionStatusEnded {
		return nil, errors.FailedPrecondition("session has ended")
	}

	result := &Result{Session: session.Clone()}

	for _, change := range changes {
		if err := applyOne(result.Session, change); err != nil {
			result.Rejected = append(result.Rejected, RejectedChange{Change: change, Err: err})
			continue
		}
		result.Applied = append(result.Applied, change)
	}

	if result.Session.InCombat() {
		if end, outcome := combat.ShouldEnd(result.Session.Combat); end {
			result.CombatEnded = true
			result.Outcome = outcome
			result.Session.Combat = nil
		}
	}

	return result, nil
}

func applyOne(session *entities.Session, change entities.StateChange) error {
	switch change.Kind {
	case entities.StateChangeDamage:
		return applyDamage(session, change)
	case entities.StateChangeHeal:
		return applyHeal(session, change)
	case entities.StateChangeConditionAdd:
		return applyConditionAdd(session, change)
	case entities.StateChangeConditionRemove:
		return applyConditionRemove(session, change)
	case entities.StateChangeMove:
		return applyMove(session, change)
	case entities.StateChangeInventory:
		return applyInventory(session, change)
	case entities.StateChangeCustom:
		// Narrative-only intention, nothing to resolve
		return nil
	default:
		return errors.InvalidArgumentf("unknown state change kind %q", change.Kind)
	}
}

// resolveTarget finds the combatant a change names, matching ID first and
// display name second (case-insensitive, narrations often use names).
func resolveTarget(session *entities.Session, target string) (*entities.Combatant, error) {
	if !session.InCombat() {
		return nil, errors.FailedPrecondition("no active combat to target")
	}
	if target == "" {
		return nil, errors.InvalidArgument("change requires a target")
	}

	if c := session.Combat.Combatant(target); c != nil {
		return c, nil
	}
	for _, c := range session.Combat.Combatants {
		if strings.EqualFold(c.Name, target) {
			return c, nil
		}
	}
	return nil, errors.NotFoundf("combatant %q not in this encounter", target)
}

func applyDamage(session *entities.Session, change entities.StateChange) error {
	target, err := resolveTarget(session, change.Target)
	if err != nil {
		return err
	}

	target.CurrentHP = clamp(target.CurrentHP-change.Value, 0, target.MaxHP)
	if target.CurrentHP == 0 {
		target.Active = false
	}
	return nil
}

func applyHeal(session *entities.Session, change entities.StateChange) error {
	target, err := resolveTarget(session, change.Target)
	if err != nil {
		return err
	}

	target.CurrentHP = clamp(target.CurrentHP+change.Value, 0, target.MaxHP)
	if target.CurrentHP > 0 && !keptDown(target) {
		// Healing above zero brings a downed combatant back into the order
		target.Active = true
	}
	return nil
}

// keptDown reports whether an explicit condition keeps the combatant out of
// the fight regardless of hit points. Reviving takes a condition_remove
// before a heal puts them back in the order.
func keptDown(c *entities.Combatant) bool {
	for _, cond := range c.Conditions {
		if strings.EqualFold(cond.Name, "dead") || strings.EqualFold(cond.Name, "fled") {
			return true
		}
	}
	return false
}

func applyConditionAdd(session *entities.Session, change entities.StateChange) error {
	target, err := resolveTarget(session, change.Target)
	if err != nil {
		return err
	}
	if change.Detail == "" {
		return errors.InvalidArgument("condition change has no condition name")
	}

	target.AddCondition(entities.Condition{
		Name:   change.Detail,
		Rounds: change.Value,
		Source: change.Description,
	})
	return nil
}

func applyConditionRemove(session *entities.Session, change entities.StateChange) error {
	target, err := resolveTarget(session, change.Target)
	if err != nil {
		return err
	}
	if change.Detail == "" {
		return errors.InvalidArgument("condition change has no condition name")
	}

	// Removing an absent condition is a no-op, not an error
	target.RemoveCondition(change.Detail)
	return nil
}

// applyMove interprets a move two ways: with no target it is a scene
// change (Detail is the new location); with a target it places that
// combatant on the encounter map (Detail is "x,y").
func applyMove(session *entities.Session, change entities.StateChange) error {
	if change.Target == "" {
		if change.Detail == "" {
			return errors.InvalidArgument("move has no destination")
		}
		session.Location = change.Detail
		return nil
	}

	target, err := resolveTarget(session, change.Target)
	if err != nil {
		return err
	}
	if session.Map == nil {
		return errors.FailedPrecondition("session has no encounter map")
	}

	pos, err := parsePosition(change.Detail)
	if err != nil {
		return err
	}
	if pos.X < 0 || pos.X >= session.Map.Width || pos.Y < 0 || pos.Y >= session.Map.Height {
		return errors.InvalidArgumentf("position %s is outside the %dx%d map",
			change.Detail, session.Map.Width, session.Map.Height)
	}

	if session.Map.Positions == nil {
		session.Map.Positions = make(map[string]entities.GridPosition)
	}
	session.Map.Positions[target.ID] = pos
	return nil
}

func parsePosition(detail string) (entities.GridPosition, error) {
	parts := strings.SplitN(detail, ",", 2)
	if len(parts) != 2 {
		return entities.GridPosition{}, errors.InvalidArgumentf("move destination %q is not \"x,y\"", detail)
	}

	x, errX := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 32)
	y, errY := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32)
	if errX != nil || errY != nil {
		return entities.GridPosition{}, errors.InvalidArgumentf("move destination %q is not \"x,y\"", detail)
	}
	return entities.GridPosition{X: int32(x), Y: int32(y)}, nil
}

// applyInventory adds the named item to the target's inventory, or removes
// one occurrence when the value is negative.
func applyInventory(session *entities.Session, change entities.StateChange) error {
	target, err := resolveTarget(session, change.Target)
	if err != nil {
		return err
	}
	if change.Detail == "" {
		return errors.InvalidArgument("inventory change has no item name")
	}

	if change.Value >= 0 {
		target.Inventory = append(target.Inventory, change.Detail)
		return nil
	}

	for i, item := range target.Inventory {
		if item == change.Detail {
			target.Inventory = append(target.Inventory[:i], target.Inventory[i+1:]...)
			return nil
		}
	}
	return errors.NotFoundf("%s does not carry %q", target.Name, change.Detail)
}

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
