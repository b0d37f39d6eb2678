// Package delivery defines the value types exchanged with external delivery
// providers: quotes, deliveries, and the normalized request shapes.
package delivery

import (
	"fmt"
	"time"

	"github.com/platewire/api/pkg/domain/shared"
)

// Status represents the lifecycle state of a delivery as reported by a
// provider, normalized to a common vocabulary.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusPickingUp  Status = "picking_up"
	StatusPickedUp   Status = "picked_up"
	StatusDelivering Status = "delivering"
	StatusDelivered  Status = "delivered"
	StatusCanceled   Status = "canceled"
)

// IsValid returns true if the status is part of the normalized vocabulary.
func (s Status) IsValid() bool {
	switch s {
	case StatusProcessing, StatusPickingUp, StatusPickedUp, StatusDelivering, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCanceled
}

// Location is one endpoint of a delivery. Name, Address and Phone are
// required by providers; the rest is defaulted during normalization.
type Location struct {
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Phone        string  `json:"phone"`
	Instructions string  `json:"instructions,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
}

// Item is a single order line forwarded to the courier.
type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// QuoteRequest asks a provider for a fee/ETA estimate.
type QuoteRequest struct {
	Pickup     *Location `json:"pickup"`
	Dropoff    *Location `json:"dropoff"`
	Items      []Item    `json:"items,omitempty"`
	OrderValue float64   `json:"order_value"`
	Currency   string    `json:"currency"`
}

// Quote is a time-boxed fee/ETA estimate preceding delivery creation.
type Quote struct {
	ID         string    `json:"id"`
	Fee        float64   `json:"fee"`
	Currency   string    `json:"currency"`
	ETAMinutes int       `json:"eta"`
	CreatedAt  time.Time `json:"created"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// CreateRequest asks a provider to dispatch a courier. QuoteID locks in a
// previously quoted fee when set.
type CreateRequest struct {
	QuoteID     string    `json:"quote_id,omitempty"`
	ExternalRef string    `json:"external_ref,omitempty"`
	Pickup      *Location `json:"pickup"`
	Dropoff     *Location `json:"dropoff"`
	Items       []Item    `json:"items,omitempty"`
	OrderValue  float64   `json:"order_value"`
	Currency    string    `json:"currency"`
	Tip         float64   `json:"tip,omitempty"`
}

// Delivery is a provider-issued delivery record.
type Delivery struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	Fee         float64   `json:"fee"`
	Currency    string    `json:"currency"`
	TrackingURL string    `json:"tracking_url"`
	CreatedAt   time.Time `json:"created"`
	PickupETA   time.Time `json:"pickup_eta"`
	DropoffETA  time.Time `json:"dropoff_eta"`
}

// TrackedDelivery is the read-only status view of an existing delivery.
type TrackedDelivery struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	TrackingURL string    `json:"tracking_url"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CancelResult reports the outcome of a cancellation attempt.
type CancelResult struct {
	ID       string `json:"id"`
	Canceled bool   `json:"canceled"`
	Message  string `json:"message,omitempty"`
}

// Validate checks that a quote request carries the fields every provider
// requires. Optional fields are defaulted elsewhere, missing endpoints are a
// caller error.
func (r *QuoteRequest) Validate() error {
	if r.Pickup == nil || r.Pickup.Address == "" {
		return fmt.Errorf("%w: pickup location is required", shared.ErrValidation)
	}
	if r.Dropoff == nil || r.Dropoff.Address == "" {
		return fmt.Errorf("%w: dropoff location is required", shared.ErrValidation)
	}
	return nil
}

// Validate checks that a create request carries the required fields.
func (r *CreateRequest) Validate() error {
	if r.Pickup == nil || r.Pickup.Address == "" {
		return fmt.Errorf("%w: pickup location is required", shared.ErrValidation)
	}
	if r.Dropoff == nil || r.Dropoff.Address == "" {
		return fmt.Errorf("%w: dropoff location is required", shared.ErrValidation)
	}
	return nil
}
