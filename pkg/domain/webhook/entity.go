// Package webhook defines inbound event endpoints and their dispatch log.
package webhook

import (
	"time"

	"github.com/platewire/api/pkg/domain/shared"
)

// ID is a type alias for webhook ID.
type ID = shared.ID

// ParseID parses a string into a webhook ID.
func ParseID(s string) (ID, error) {
	return shared.ParseID(s)
}

// EndpointType classifies the system on either side of a webhook.
type EndpointType string

const (
	EndpointEcommerce EndpointType = "ecommerce"
	EndpointPOS       EndpointType = "pos"
	EndpointDelivery  EndpointType = "delivery"
	EndpointInternal  EndpointType = "internal"
)

// IsValid checks if the endpoint type is valid.
func (t EndpointType) IsValid() bool {
	switch t {
	case EndpointEcommerce, EndpointPOS, EndpointDelivery, EndpointInternal:
		return true
	}
	return false
}

// String returns the string representation of the endpoint type.
func (t EndpointType) String() string { return string(t) }

// Event types a webhook can subscribe to.
const (
	EventOrderCreated    = "order.created"
	EventOrderUpdated    = "order.updated"
	EventOrderCanceled   = "order.canceled"
	EventDeliveryStatus  = "delivery.status"
	EventDeliveryCourier = "delivery.courier_update"
)

// KnownEventTypes lists every event type the dispatcher understands.
var KnownEventTypes = []string{
	EventOrderCreated,
	EventOrderUpdated,
	EventOrderCanceled,
	EventDeliveryStatus,
	EventDeliveryCourier,
}

// IsKnownEventType reports whether s names a dispatchable event type.
func IsKnownEventType(s string) bool {
	for _, e := range KnownEventTypes {
		if e == s {
			return true
		}
	}
	return false
}

// Webhook is a routing rule from an event source to a delivery destination.
// The secret key doubles as the endpoint address: callers are authenticated
// by presenting a URL containing it.
type Webhook struct {
	id                  ID
	userID              ID
	name                string
	description         string
	secretKey           string
	endpointURL         string
	sourceType          EndpointType
	sourceProvider      string
	destinationType     EndpointType
	destinationProvider string
	eventTypes          []string
	isActive            bool
	createdAt           time.Time
	updatedAt           time.Time
}

// NewWebhook creates a new webhook. Webhooks start active; the secret key is
// issued by the service layer, never chosen by the caller.
func NewWebhook(id, userID ID, name, secretKey string, sourceType EndpointType, sourceProvider string, destType EndpointType, destProvider string, eventTypes []string) *Webhook {
	now := time.Now()
	return &Webhook{
		id:                  id,
		userID:              userID,
		name:                name,
		secretKey:           secretKey,
		sourceType:          sourceType,
		sourceProvider:      sourceProvider,
		destinationType:     destType,
		destinationProvider: destProvider,
		eventTypes:          eventTypes,
		isActive:            true,
		createdAt:           now,
		updatedAt:           now,
	}
}

// Reconstruct creates a Webhook from stored data.
func Reconstruct(
	id, userID ID,
	name, description, secretKey, endpointURL string,
	sourceType EndpointType, sourceProvider string,
	destType EndpointType, destProvider string,
	eventTypes []string,
	isActive bool,
	createdAt, updatedAt time.Time,
) *Webhook {
	return &Webhook{
		id:                  id,
		userID:              userID,
		name:                name,
		description:         description,
		secretKey:           secretKey,
		endpointURL:         endpointURL,
		sourceType:          sourceType,
		sourceProvider:      sourceProvider,
		destinationType:     destType,
		destinationProvider: destProvider,
		eventTypes:          eventTypes,
		isActive:            isActive,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}

// Getters

func (w *Webhook) ID() ID                        { return w.id }
func (w *Webhook) UserID() ID                    { return w.userID }
func (w *Webhook) Name() string                  { return w.name }
func (w *Webhook) Description() string           { return w.description }
func (w *Webhook) SecretKey() string             { return w.secretKey }
func (w *Webhook) EndpointURL() string           { return w.endpointURL }
func (w *Webhook) SourceType() EndpointType      { return w.sourceType }
func (w *Webhook) SourceProvider() string        { return w.sourceProvider }
func (w *Webhook) DestinationType() EndpointType { return w.destinationType }
func (w *Webhook) DestinationProvider() string   { return w.destinationProvider }
func (w *Webhook) EventTypes() []string          { return w.eventTypes }
func (w *Webhook) IsActive() bool                { return w.isActive }
func (w *Webhook) CreatedAt() time.Time          { return w.createdAt }
func (w *Webhook) UpdatedAt() time.Time          { return w.updatedAt }

// Setters

func (w *Webhook) SetName(name string) {
	w.name = name
	w.updatedAt = time.Now()
}

func (w *Webhook) SetDescription(description string) {
	w.description = description
	w.updatedAt = time.Now()
}

func (w *Webhook) SetEndpointURL(url string) {
	w.endpointURL = url
	w.updatedAt = time.Now()
}

func (w *Webhook) SetEventTypes(eventTypes []string) {
	w.eventTypes = eventTypes
	w.updatedAt = time.Now()
}

func (w *Webhook) SetActive(active bool) {
	w.isActive = active
	w.updatedAt = time.Now()
}

// RotateSecret replaces the secret key, invalidating the old callback URL.
func (w *Webhook) RotateSecret(secretKey string) {
	w.secretKey = secretKey
	w.updatedAt = time.Now()
}

// AcceptsEvent reports whether this webhook subscribes to the given event
// type.
func (w *Webhook) AcceptsEvent(eventType string) bool {
	for _, e := range w.eventTypes {
		if e == eventType {
			return true
		}
	}
	return false
}
