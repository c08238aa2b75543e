// Package entities defines the domain types for game sessions and encounters
package entities

import "time"

// SessionStatus is the lifecycle status of a session
type SessionStatus string

// Session statuses
const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusPaused SessionStatus = "paused"
	SessionStatusEnded  SessionStatus = "ended"
)

// String returns the string representation of the session status
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid checks if the session status is one of the known values
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusActive, SessionStatusPaused, SessionStatusEnded:
		return true
	default:
		return false
	}
}

// Disposition is an NPC's attitude toward the party
type Disposition string

// Dispositions
const (
	DispositionFriendly Disposition = "friendly"
	DispositionNeutral  Disposition = "neutral"
	DispositionHostile  Disposition = "hostile"
)

// IsValid checks if the disposition is one of the known values
func (d Disposition) IsValid() bool {
	switch d {
	case DispositionFriendly, DispositionNeutral, DispositionHostile:
		return true
	default:
		return false
	}
}

// NPC is a narrator-controlled character present in the scene
type NPC struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Disposition Disposition `json:"disposition"`
}

// GridPosition is a coarse position on the encounter map
type GridPosition struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// MapState is the optional encounter map: a named grid plus combatant positions
type MapState struct {
	Name      string                  `json:"name,omitempty"`
	Width     int32                   `json:"width"`
	Height    int32                   `json:"height"`
	Positions map[string]GridPosition `json:"positions,omitempty"`
}

// Clone returns a deep copy of the map state
func (m *MapState) Clone() *MapState {
	if m == nil {
		return nil
	}
	out := *m
	if m.Positions != nil {
		out.Positions = make(map[string]GridPosition, len(m.Positions))
		for k, v := range m.Positions {
			out.Positions[k] = v
		}
	}
	return &out
}

// Session is the aggregate owned by one campaign and the unit of
// optimistic-concurrency control. Version increases by exactly 1 on every
// successful write; every mutation must present the version it last
// observed.
type Session struct {
	ID           string        `json:"id"`
	CampaignID   string        `json:"campaign_id"`
	Status       SessionStatus `json:"status"`
	Version      int64         `json:"version"`
	Summary      string        `json:"summary,omitempty"`
	Location     string        `json:"location,omitempty"`
	NPCs         []NPC         `json:"npcs,omitempty"`
	Combat       *CombatState  `json:"combat,omitempty"`
	Map          *MapState     `json:"map,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
}

// InCombat reports whether the session has an active encounter
func (s *Session) InCombat() bool {
	return s.Combat != nil && s.Combat.Active
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.NPCs = append([]NPC(nil), s.NPCs...)
	out.Combat = s.Combat.Clone()
	out.Map = s.Map.Clone()
	return &out
}
