package entities

// StateChangeKind is the fixed enumeration of mutation kinds. Anything a
// narration proposes outside this set is coerced to custom rather than
// rejected.
type StateChangeKind string

// State change kinds
const (
	StateChangeDamage          StateChangeKind = "damage"
	StateChangeHeal            StateChangeKind = "heal"
	StateChangeConditionAdd    StateChangeKind = "condition_add"
	StateChangeConditionRemove StateChangeKind = "condition_remove"
	StateChangeMove            StateChangeKind = "move"
	StateChangeInventory       StateChangeKind = "inventory"
	StateChangeCustom          StateChangeKind = "custom"
)

// String returns the string representation of the kind
func (k StateChangeKind) String() string {
	return string(k)
}

// IsValid checks if the kind is one of the known values
func (k StateChangeKind) IsValid() bool {
	switch k {
	case StateChangeDamage, StateChangeHeal, StateChangeConditionAdd,
		StateChangeConditionRemove, StateChangeMove, StateChangeInventory,
		StateChangeCustom:
		return true
	default:
		return false
	}
}

// StateChange is a typed, validated instruction describing one discrete
// mutation to session or combat state. It is ephemeral: produced by the
// narration validator or a direct player action, consumed immediately by
// the mutation applier, never persisted on its own.
//
// Field use by kind:
//   - damage/heal: Target is a combatant ID, Value the amount
//   - condition_add/condition_remove: Target is a combatant ID, Detail the
//     condition name, Value the remaining rounds (condition_add only)
//   - move: Target optional combatant ID, Detail the destination; with no
//     target the whole party moves and Detail becomes the session location
//   - inventory: Target is a combatant ID, Detail the item name; a negative
//     Value removes the item, anything else adds it
//   - custom: narrative-only, no mechanical effect
type StateChange struct {
	Kind        StateChangeKind `json:"kind"`
	Target      string          `json:"target,omitempty"`
	Value       int32           `json:"value,omitempty"`
	Detail      string          `json:"detail,omitempty"`
	Description string          `json:"description"`
}
