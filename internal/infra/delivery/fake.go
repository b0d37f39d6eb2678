package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	dom "github.com/platewire/api/pkg/domain/delivery"
)

// FakeClient is an in-memory Client for development and tests. It is
// deterministic: quote fees derive from the dropoff address length and
// delivery status only moves through Advance or SetStatus.
type FakeClient struct {
	mu          sync.Mutex
	quoteSeq    int
	deliverySeq int
	quotes      map[string]*dom.Quote
	deliveries  map[string]*fakeDelivery
	quoteTTL    time.Duration
}

type fakeDelivery struct {
	delivery *dom.Delivery
	status   dom.Status
}

// NewFakeClient creates a fake delivery client.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		quotes:     make(map[string]*dom.Quote),
		deliveries: make(map[string]*fakeDelivery),
		quoteTTL:   defaultQuoteTTL,
	}
}

func (c *FakeClient) Authenticate(_ context.Context) error {
	return nil
}

func (c *FakeClient) GetQuote(_ context.Context, req dom.QuoteRequest) (*dom.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.quoteSeq++
	now := time.Now()
	quote := &dom.Quote{
		ID:         fmt.Sprintf("fake-quote-%d", c.quoteSeq),
		Fee:        4.99 + float64(len(req.Dropoff.Address)%5),
		Currency:   defaultCurrency(req.Currency, "USD"),
		ETAMinutes: 25,
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.quoteTTL),
	}
	c.quotes[quote.ID] = quote
	return quote, nil
}

func (c *FakeClient) CreateDelivery(_ context.Context, req dom.CreateRequest) (*dom.Delivery, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fee := 4.99
	currency := defaultCurrency(req.Currency, "USD")
	if req.QuoteID != "" {
		quote, ok := c.quotes[req.QuoteID]
		if !ok || time.Now().After(quote.ExpiresAt) {
			return nil, ErrQuoteExpired
		}
		fee = quote.Fee
		currency = quote.Currency
	}

	c.deliverySeq++
	now := time.Now()
	delivery := &dom.Delivery{
		ID:          fmt.Sprintf("fake-delivery-%d", c.deliverySeq),
		Status:      dom.StatusProcessing,
		Fee:         fee,
		Currency:    currency,
		TrackingURL: fmt.Sprintf("https://track.example.com/fake-delivery-%d", c.deliverySeq),
		CreatedAt:   now,
		PickupETA:   now.Add(15 * time.Minute),
		DropoffETA:  now.Add(40 * time.Minute),
	}
	c.deliveries[delivery.ID] = &fakeDelivery{delivery: delivery, status: dom.StatusProcessing}
	return delivery, nil
}

func (c *FakeClient) GetDeliveryStatus(_ context.Context, id string) (*dom.TrackedDelivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.deliveries[id]
	if !ok {
		return nil, &ProviderError{Provider: ProviderFake, Operation: "get_status", StatusCode: 404, Err: fmt.Errorf("delivery %s not found", id)}
	}

	return &dom.TrackedDelivery{
		ID:          id,
		Status:      entry.status,
		TrackingURL: entry.delivery.TrackingURL,
		UpdatedAt:   time.Now(),
	}, nil
}

func (c *FakeClient) CancelDelivery(_ context.Context, id string) (*dom.CancelResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.deliveries[id]
	if !ok {
		return nil, &ProviderError{Provider: ProviderFake, Operation: "cancel_delivery", StatusCode: 404, Err: fmt.Errorf("delivery %s not found", id)}
	}
	if entry.status.IsTerminal() {
		return nil, fmt.Errorf("%w: delivery %s is %s", ErrTerminalState, id, entry.status)
	}

	entry.status = dom.StatusCanceled
	return &dom.CancelResult{ID: id, Canceled: true, Message: "delivery canceled"}, nil
}

// Advance moves a delivery one step along the happy path. Test hook.
func (c *FakeClient) Advance(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.deliveries[id]; ok {
		entry.status = nextFakeStatus(entry.status)
	}
}

// SetStatus forces a delivery into a specific status. Test hook.
func (c *FakeClient) SetStatus(id string, status dom.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.deliveries[id]; ok {
		entry.status = status
	}
}

// ExpireQuote forces a quote past its expiry. Test hook.
func (c *FakeClient) ExpireQuote(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if quote, ok := c.quotes[id]; ok {
		quote.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

func nextFakeStatus(s dom.Status) dom.Status {
	switch s {
	case dom.StatusProcessing:
		return dom.StatusPickingUp
	case dom.StatusPickingUp:
		return dom.StatusPickedUp
	case dom.StatusPickedUp:
		return dom.StatusDelivering
	case dom.StatusDelivering:
		return dom.StatusDelivered
	default:
		return s
	}
}
