package entities

// CombatantType identifies which side of an encounter a combatant is on
type CombatantType string

// Combatant types
const (
	CombatantTypePlayer  CombatantType = "player"
	CombatantTypeMonster CombatantType = "monster"
	CombatantTypeNPC     CombatantType = "npc"
)

// String returns the string representation of the combatant type
func (t CombatantType) String() string {
	return string(t)
}

// IsValid checks if the combatant type is one of the known values
func (t CombatantType) IsValid() bool {
	switch t {
	case CombatantTypePlayer, CombatantTypeMonster, CombatantTypeNPC:
		return true
	default:
		return false
	}
}

// Condition is a named condition affecting a combatant (e.g. "poisoned").
// Rounds is the remaining duration in rounds; 0 means it lasts until
// explicitly removed.
type Condition struct {
	Name   string `json:"name"`
	Rounds int32  `json:"rounds,omitempty"`
	Source string `json:"source,omitempty"`
}

// Effect is an active timed effect on a combatant (e.g. "bless").
// Rounds follows the same semantics as Condition.Rounds.
type Effect struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Rounds      int32  `json:"rounds,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Combatant is one entity in an encounter: a player character, a monster,
// or a narrator-controlled NPC.
//
// CurrentHP is always clamped to [0, MaxHP]. A combatant at 0 HP is
// inactive (not eligible to act) unless an overriding condition says
// otherwise.
type Combatant struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Type       CombatantType `json:"type"`
	CurrentHP  int32         `json:"current_hp"`
	MaxHP      int32         `json:"max_hp"`
	ArmorClass int32         `json:"armor_class,omitempty"`
	Conditions []Condition   `json:"conditions,omitempty"`
	Effects    []Effect      `json:"effects,omitempty"`
	Inventory  []string      `json:"inventory,omitempty"`
	Active     bool          `json:"active"`
}

// HasCondition checks if the combatant has a condition with the given name
func (c *Combatant) HasCondition(name string) bool {
	for _, cond := range c.Conditions {
		if cond.Name == name {
			return true
		}
	}
	return false
}

// AddCondition adds a condition if one with the same name is not already present
func (c *Combatant) AddCondition(cond Condition) {
	if c.HasCondition(cond.Name) {
		return
	}
	c.Conditions = append(c.Conditions, cond)
}

// RemoveCondition removes the condition with the given name, if present
func (c *Combatant) RemoveCondition(name string) {
	kept := c.Conditions[:0]
	for _, cond := range c.Conditions {
		if cond.Name != name {
			kept = append(kept, cond)
		}
	}
	c.Conditions = kept
}

// Clone returns a deep copy of the combatant
func (c *Combatant) Clone() *Combatant {
	if c == nil {
		return nil
	}
	out := *c
	out.Conditions = append([]Condition(nil), c.Conditions...)
	out.Effects = append([]Effect(nil), c.Effects...)
	out.Inventory = append([]string(nil), c.Inventory...)
	return &out
}

// InitiativeEntry is one slot in the initiative order. Entries are created
// once per combatant at encounter start and are immutable for the
// encounter's lifetime; re-rolling requires a new encounter.
type InitiativeEntry struct {
	CombatantID string        `json:"combatant_id"`
	Name        string        `json:"name"`
	Type        CombatantType `json:"type"`
	Initiative  int32         `json:"initiative"`
}

// CombatState is the aggregate state of one active encounter.
//
// Order is sorted descending by initiative value, ties broken by original
// insertion order. TurnIndex is always a valid index into Order while
// Active is true; when Active is false the state is inert.
type CombatState struct {
	Active     bool              `json:"active"`
	Round      int32             `json:"round"`
	TurnIndex  int32             `json:"turn_index"`
	Order      []InitiativeEntry `json:"order"`
	Combatants []*Combatant      `json:"combatants"`
}

// Combatant returns the combatant with the given ID, or nil
func (s *CombatState) Combatant(id string) *Combatant {
	for _, c := range s.Combatants {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Clone returns a deep copy of the combat state
func (s *CombatState) Clone() *CombatState {
	if s == nil {
		return nil
	}
	out := *s
	out.Order = append([]InitiativeEntry(nil), s.Order...)
	out.Combatants = make([]*Combatant, len(s.Combatants))
	for i, c := range s.Combatants {
		out.Combatants[i] = c.Clone()
	}
	return &out
}
