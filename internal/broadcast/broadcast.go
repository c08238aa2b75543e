// Package broadcast fans session events out to the table. The current
// implementation only logs: there is no realtime transport yet, but the
// subscription point keeps the orchestrator decoupled from whatever
// transport eventually lands.
package broadcast

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/gamemaster-api/internal/errors"
	session "github.com/KirkDiggler/gamemaster-api/internal/orchestrators/session"
)

// Broadcaster subscribes to session events and relays them
type Broadcaster struct {
	bus    events.EventBus
	subIDs []string
}

// Config holds the dependencies for the broadcaster
type Config struct {
	EventBus events.EventBus
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if c.EventBus == nil {
		return errors.InvalidArgument("event bus cannot be nil")
	}
	return nil
}

// New creates a broadcaster and subscribes it to all session event types
func New(cfg *Config) (*Broadcaster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Broadcaster{bus: cfg.EventBus}

	for _, eventType := range []string{
		session.EventSessionUpdated,
		session.EventSessionEnded,
		session.EventCombatStarted,
		session.EventCombatEnded,
	} {
		id := b.bus.SubscribeFunc(eventType, 0, b.relay)
		b.subIDs = append(b.subIDs, id)
	}

	return b, nil
}

// relay is the delivery point; today it logs, a realtime transport would
// push to connected clients here
func (b *Broadcaster) relay(ctx context.Context, event events.Event) error {
	sessionID := ""
	if source := event.Source(); source != nil {
		sessionID = source.GetID()
	}

	slog.InfoContext(ctx, "broadcast",
		"event_type", event.Type(),
		"session_id", sessionID,
	)
	return nil
}

// Close removes all subscriptions
func (b *Broadcaster) Close() {
	for _, id := range b.subIDs {
		if err := b.bus.Unsubscribe(id); err != nil {
			slog.Warn("failed to unsubscribe broadcaster", "subscription_id", id, "error", err)
		}
	}
	b.subIDs = nil
}
