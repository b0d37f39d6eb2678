package webhook

import (
	"fmt"

	"github.com/platewire/api/pkg/domain/shared"
)

var (
	// ErrWebhookNotFound is returned when a webhook does not exist or is
	// not visible to the caller.
	ErrWebhookNotFound = fmt.Errorf("%w: webhook not found", shared.ErrNotFound)

	// ErrInvalidSecret is returned when no webhook matches a presented
	// secret key. Callers must not learn whether the key ever existed.
	ErrInvalidSecret = fmt.Errorf("%w: invalid webhook secret", shared.ErrUnauthorized)

	// ErrWebhookInactive is returned when an event arrives for a webhook
	// that has been toggled off.
	ErrWebhookInactive = fmt.Errorf("%w: webhook is inactive", shared.ErrConflict)

	// ErrUnknownEventType is returned when a payload names an event type
	// the dispatcher does not understand.
	ErrUnknownEventType = fmt.Errorf("%w: unknown event type", shared.ErrValidation)

	// ErrDuplicateEvent is returned when an event id was already processed
	// inside the replay window.
	ErrDuplicateEvent = fmt.Errorf("%w: duplicate event", shared.ErrConflict)
)
