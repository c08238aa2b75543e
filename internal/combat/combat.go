// Package combat implements the turn-order state machine for one encounter:
// initiative sequencing, round and turn advancement with skip-inactive
// logic, and end-of-combat detection.
//
// All functions here are pure: they take a state, return a new state, and
// never touch storage. Turn order is derived from the initiative order and
// the current index only; the "current combatant" is always computed by
// lookup, so index and identity cannot drift apart.
package combat

import (
	"sort"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	gmdice "github.com/KirkDiggler/gamemaster-api/internal/dice"
	"github.com/KirkDiggler/gamemaster-api/internal/entities"
	"github.com/KirkDiggler/gamemaster-api/internal/errors"
)

// Outcome is the result of an encounter once it ends
type Outcome string

// Encounter outcomes
const (
	OutcomeNone    Outcome = ""
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
)

// Participant is one entrant at combat start. CurrentHP and Initiative are
// optional: a nil CurrentHP starts at full health, a nil Initiative gets a
// d20 roll from the provided roller.
type Participant struct {
	ID         string
	Name       string
	Type       entities.CombatantType
	MaxHP      int32
	CurrentHP  *int32
	ArmorClass int32
	Initiative *int32
}

// StartCombat builds a fresh encounter from the given participants: rolls
// or accepts pre-computed initiative, sorts the order descending by
// initiative value (ties keep insertion order), and builds matching
// combatant records with round=1, turn index 0.
func StartCombat(participants []Participant, roller dice.Roller) (*entities.CombatState, error) {
	if len(participants) == 0 {
		return nil, errors.InvalidArgument("at least one participant is required")
	}

	vb := errors.NewValidationBuilder()
	for i, p := range participants {
		if p.ID == "" {
			vb.Fieldf("participants", "entry %d is missing an ID", i)
		}
		if p.MaxHP <= 0 {
			vb.Fieldf("participants", "entry %d must have positive max HP", i)
		}
		if !p.Type.IsValid() {
			vb.Fieldf("participants", "entry %d has unknown type %q", i, p.Type)
		}
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	state := &entities.CombatState{
		Active:     true,
		Round:      1,
		TurnIndex:  0,
		Order:      make([]entities.InitiativeEntry, 0, len(participants)),
		Combatants: make([]*entities.Combatant, 0, len(participants)),
	}

	for _, p := range participants {
		initiative := int32(0)
		if p.Initiative != nil {
			initiative = *p.Initiative
		} else {
			rolled, err := gmdice.RollInitiative(roller)
			if err != nil {
				return nil, err
			}
			initiative = rolled
		}

		hp := p.MaxHP
		if p.CurrentHP != nil {
			hp = clamp(*p.CurrentHP, 0, p.MaxHP)
		}

		state.Order = append(state.Order, entities.InitiativeEntry{
			CombatantID: p.ID,
			Name:        p.Name,
			Type:        p.Type,
			Initiative:  initiative,
		})
		state.Combatants = append(state.Combatants, &entities.Combatant{
			ID:         p.ID,
			Name:       p.Name,
			Type:       p.Type,
			CurrentHP:  hp,
			MaxHP:      p.MaxHP,
			ArmorClass: p.ArmorClass,
			Active:     hp > 0,
		})
	}

	// Stable sort keeps insertion order for tied initiative values
	sort.SliceStable(state.Order, func(i, j int) bool {
		return state.Order[i].Initiative > state.Order[j].Initiative
	})

	return state, nil
}

// AdvanceTurn moves the encounter to the next eligible combatant,
// incrementing the round whenever the scan wraps past the end of the
// initiative order. Inactive combatants are skipped; the scan is bounded
// to one full lap of the order. If a lap finds no active combatant, the
// result points at index 0 of round+1 and advances no further — a frozen
// defensive terminal rather than an infinite skip loop.
func AdvanceTurn(state *entities.CombatState) (*entities.CombatState, error) {
	if state == nil || !state.Active {
		return nil, errors.FailedPrecondition("combat is not active")
	}
	if len(state.Order) == 0 {
		return nil, errors.FailedPrecondition("initiative order is empty")
	}

	next := state.Clone()

	index := next.TurnIndex + 1
	round := next.Round
	if index >= int32(len(next.Order)) {
		index = 0
		round++
	}

	for i := 0; i < len(next.Order); i++ {
		combatant := next.Combatant(next.Order[index].CombatantID)
		if combatant != nil && combatant.Active {
			next.TurnIndex = index
			next.Round = round
			return next, nil
		}
		index++
		if index >= int32(len(next.Order)) {
			index = 0
			round++
		}
	}

	// Full lap with nobody able to act
	next.TurnIndex = 0
	next.Round = state.Round + 1
	return next, nil
}

// ShouldEnd evaluates the end-of-combat conditions. Defeat takes
// precedence: zero active players is a defeat regardless of monster
// survivors, and victory requires at least one active player alongside
// zero active monsters. NPCs count for neither side.
func ShouldEnd(state *entities.CombatState) (bool, Outcome) {
	if state == nil || !state.Active {
		return false, OutcomeNone
	}

	var activePlayers, activeMonsters int
	for _, c := range state.Combatants {
		if !c.Active {
			continue
		}
		switch c.Type {
		case entities.CombatantTypePlayer:
			activePlayers++
		case entities.CombatantTypeMonster:
			activeMonsters++
		}
	}

	if activePlayers == 0 {
		return true, OutcomeDefeat
	}
	if activeMonsters == 0 {
		return true, OutcomeVictory
	}
	return false, OutcomeNone
}

// CurrentEntry returns the initiative entry whose turn it is, or nil when
// combat is inactive
func CurrentEntry(state *entities.CombatState) *entities.InitiativeEntry {
	if state == nil || !state.Active {
		return nil
	}
	if state.TurnIndex < 0 || state.TurnIndex >= int32(len(state.Order)) {
		return nil
	}
	entry := state.Order[state.TurnIndex]
	return &entry
}

// CurrentCombatant returns the combatant whose turn it is, or nil
func CurrentCombatant(state *entities.CombatState) *entities.Combatant {
	entry := CurrentEntry(state)
	if entry == nil {
		return nil
	}
	return state.Combatant(entry.CombatantID)
}

// TickDurations decrements the remaining-round counters on conditions and
// effects, dropping any that reach zero. Counters of zero (indefinite)
// are untouched. Called by the orchestrator when the round advances.
func TickDurations(state *entities.CombatState) *entities.CombatState {
	if state == nil {
		return nil
	}

	next := state.Clone()
	for _, c := range next.Combatants {
		conditions := c.Conditions[:0]
		for _, cond := range c.Conditions {
			if cond.Rounds > 0 {
				cond.Rounds--
				if cond.Rounds == 0 {
					continue
				}
			}
			conditions = append(conditions, cond)
		}
		c.Conditions = conditions

		effects := c.Effects[:0]
		for _, eff := range c.Effects {
			if eff.Rounds > 0 {
				eff.Rounds--
				if eff.Rounds == 0 {
					continue
				}
			}
			effects = append(effects, eff)
		}
		c.Effects = effects
	}
	return next
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
