package webhook

import (
	"context"

	"github.com/platewire/api/pkg/domain/shared"
)

// Filter represents filtering options for listing webhooks.
type Filter struct {
	UserID     *shared.ID
	SourceType *EndpointType
	IsActive   *bool
}

// LogFilter represents filtering options for the dispatch log.
type LogFilter struct {
	UserID    shared.ID
	WebhookID *shared.ID
	EventType *string
	Limit     int
	Offset    int
}

// Repository defines the interface for webhook persistence.
type Repository interface {
	Create(ctx context.Context, w *Webhook) error
	GetByID(ctx context.Context, id ID, userID shared.ID) (*Webhook, error)

	// GetBySecret resolves a webhook by its secret key regardless of
	// owner. Returns ErrInvalidSecret when nothing matches.
	GetBySecret(ctx context.Context, secretKey string) (*Webhook, error)

	List(ctx context.Context, filter Filter) ([]*Webhook, error)
	Update(ctx context.Context, w *Webhook) error
	Delete(ctx context.Context, id ID, userID shared.ID) error
}

// LogRepository persists dispatch log entries. The log is append-only; there
// is deliberately no update or delete.
type LogRepository interface {
	Append(ctx context.Context, entry *DispatchLog) error
	List(ctx context.Context, filter LogFilter) ([]*DispatchLog, int, error)
}
