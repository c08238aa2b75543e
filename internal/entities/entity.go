package entities

import "github.com/KirkDiggler/rpg-toolkit/core"

// CombatantEntity wraps Combatant to implement the rpg-toolkit core.Entity
// interface, so combatants can be addressed by the event bus and other
// toolkit consumers.
type CombatantEntity struct {
	*Combatant
}

// GetID returns the combatant's ID
func (c *CombatantEntity) GetID() string {
	return c.ID
}

// GetType returns the entity type for rpg-toolkit
func (c *CombatantEntity) GetType() string {
	return string(c.Type)
}

// SessionEntity wraps Session to implement core.Entity, used as the event
// source when publishing session lifecycle events.
type SessionEntity struct {
	*Session
}

// GetID returns the session's ID
func (s *SessionEntity) GetID() string {
	return s.ID
}

// GetType returns the entity type for rpg-toolkit
func (s *SessionEntity) GetType() string {
	return "session"
}

// Compile-time checks that the wrappers implement core.Entity
var (
	_ core.Entity = (*CombatantEntity)(nil)
	_ core.Entity = (*SessionEntity)(nil)
)
