// Package delivery provides client implementations for third-party delivery
// providers.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	dom "github.com/platewire/api/pkg/domain/delivery"
)

// Provider identifies a delivery provider implementation.
type Provider string

const (
	ProviderUberDirect Provider = "uberdirect"
	ProviderFake       Provider = "fake"
)

// Config holds the configuration for a delivery provider client. Credentials
// arrive decrypted from the integration record; base URLs default per
// environment and are overridable for tests.
type Config struct {
	Provider     Provider
	Environment  string // "sandbox" or "live"
	ClientID     string
	ClientSecret string
	CustomerID   string
	BaseURL      string
	AuthURL      string
	HTTPTimeout  time.Duration
}

// Client defines the interface for delivery provider clients.
type Client interface {
	// Authenticate refreshes the provider session if needed. A still-valid
	// cached token is reused without an upstream call.
	Authenticate(ctx context.Context) error

	// GetQuote prices a prospective delivery.
	GetQuote(ctx context.Context, req dom.QuoteRequest) (*dom.Quote, error)

	// CreateDelivery books a delivery, optionally against an earlier quote.
	CreateDelivery(ctx context.Context, req dom.CreateRequest) (*dom.Delivery, error)

	// GetDeliveryStatus reads the current state of a delivery.
	GetDeliveryStatus(ctx context.Context, id string) (*dom.TrackedDelivery, error)

	// CancelDelivery cancels a delivery that has not reached a terminal
	// state. Returns ErrTerminalState otherwise.
	CancelDelivery(ctx context.Context, id string) (*dom.CancelResult, error)
}

// Common errors.
var (
	// ErrUnsupportedProvider is returned for a provider with no client
	// implementation.
	ErrUnsupportedProvider = errors.New("delivery: unsupported provider")

	// ErrTerminalState is returned when canceling a delivered or already
	// canceled delivery.
	ErrTerminalState = errors.New("delivery: delivery is in a terminal state")

	// ErrQuoteExpired is returned when creating against a quote past its
	// expiry.
	ErrQuoteExpired = errors.New("delivery: quote has expired")

	// ErrAuthFailed is returned when provider credentials are rejected.
	ErrAuthFailed = errors.New("delivery: provider authentication failed")
)

// ProviderError represents a failed call to an external delivery provider.
type ProviderError struct {
	Provider   Provider
	Operation  string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Provider, e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Err)
}

// Unwrap returns the wrapped error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ClientFactory creates delivery clients based on provider. The fake client
// is shared across calls so its in-memory state survives between requests.
type ClientFactory struct {
	mu   sync.Mutex
	fake *FakeClient
}

// NewClientFactory creates a new ClientFactory.
func NewClientFactory() *ClientFactory {
	return &ClientFactory{}
}

// CreateClient creates a delivery client for the given config.
func (f *ClientFactory) CreateClient(config Config) (Client, error) {
	switch config.Provider {
	case ProviderUberDirect:
		return NewUberDirectClient(config)
	case ProviderFake:
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fake == nil {
			f.fake = NewFakeClient()
		}
		return f.fake, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, config.Provider)
	}
}
