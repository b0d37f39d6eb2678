package webhook

import (
	"time"

	"github.com/platewire/api/pkg/domain/shared"
)

// DispatchLog is one append-only record of a webhook event being routed to
// one destination. Rows are never updated after insert. StatusCode follows
// HTTP semantics: 2xx delivered, anything else is the failure class.
type DispatchLog struct {
	ID               shared.ID      `json:"id"`
	WebhookID        shared.ID      `json:"webhook_id"`
	UserID           shared.ID      `json:"user_id"`
	EventType        string         `json:"event_type"`
	EventID          string         `json:"event_id,omitempty"`
	RequestPayload   map[string]any `json:"request_payload,omitempty"`
	ResponsePayload  map[string]any `json:"response_payload,omitempty"`
	StatusCode       int            `json:"status_code"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Succeeded reports whether this dispatch attempt was delivered.
func (l *DispatchLog) Succeeded() bool {
	return l.StatusCode >= 200 && l.StatusCode < 300
}
