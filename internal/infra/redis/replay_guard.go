package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/platewire/api/pkg/logger"
)

// ReplayGuard suppresses duplicate webhook events by remembering processed
// event ids for a bounded window.
type ReplayGuard struct {
	client *Client
	window time.Duration
	logger *logger.Logger
}

// NewReplayGuard creates a ReplayGuard remembering event ids for window.
func NewReplayGuard(client *Client, window time.Duration) *ReplayGuard {
	return &ReplayGuard{
		client: client,
		window: window,
		logger: client.Logger().With("component", "replay_guard"),
	}
}

// FirstSeen records an event id and reports whether this is its first
// appearance inside the window. Events without an id are always treated as
// first-seen. When Redis is unavailable the guard fails open and admits the
// event.
func (g *ReplayGuard) FirstSeen(ctx context.Context, webhookID, eventID string) bool {
	if eventID == "" {
		return true
	}

	key := fmt.Sprintf("webhook:replay:%s:%s", webhookID, eventID)
	ok, err := g.client.SetNX(ctx, key, "1", g.window)
	if err != nil {
		g.logger.Warn("replay guard unavailable, allowing event",
			"webhook_id", webhookID,
			"error", err,
		)
		return true
	}
	return ok
}
