package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	dom "github.com/platewire/api/pkg/domain/delivery"
)

const (
	uberDirectBaseURL = "https://api.uber.com/v1"
	uberDirectAuthURL = "https://auth.uber.com/oauth/v2/token"

	// tokenSkew renews tokens slightly before upstream expiry so in-flight
	// requests never race the deadline.
	tokenSkew = 30 * time.Second

	defaultQuoteTTL = 15 * time.Minute
)

// UberDirectClient implements the Client interface for Uber Direct.
type UberDirectClient struct {
	config     Config
	httpClient *http.Client
	baseURL    string
	authURL    string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	refresh     singleflight.Group
}

// NewUberDirectClient creates a new Uber Direct client.
func NewUberDirectClient(config Config) (*UberDirectClient, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client credentials", ErrAuthFailed)
	}
	if config.CustomerID == "" {
		return nil, fmt.Errorf("%w: missing customer id", ErrAuthFailed)
	}

	baseURL := uberDirectBaseURL
	if config.BaseURL != "" {
		baseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	authURL := uberDirectAuthURL
	if config.AuthURL != "" {
		authURL = config.AuthURL
	}

	timeout := config.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &UberDirectClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		authURL:    authURL,
	}, nil
}

// Authenticate obtains an OAuth client-credentials token. Concurrent callers
// collapse to a single upstream refresh; a still-valid token short-circuits.
func (c *UberDirectClient) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	valid := c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSkew))
	c.mu.Unlock()
	if valid {
		return nil
	}

	_, err, _ := c.refresh.Do("token", func() (any, error) {
		// Re-check under the flight: the winner may have refreshed while
		// we queued.
		c.mu.Lock()
		valid := c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSkew))
		c.mu.Unlock()
		if valid {
			return nil, nil
		}
		return nil, c.fetchToken(ctx)
	})
	return err
}

func (c *UberDirectClient) fetchToken(ctx context.Context) error {
	form := url.Values{}
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "eats.deliveries")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Provider: ProviderUberDirect, Operation: "authenticate", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &ProviderError{Provider: ProviderUberDirect, Operation: "authenticate", StatusCode: resp.StatusCode, Err: ErrAuthFailed}
	}
	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Provider: ProviderUberDirect, Operation: "authenticate", StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return &ProviderError{Provider: ProviderUberDirect, Operation: "authenticate", Err: fmt.Errorf("malformed token response: %w", err)}
	}
	if body.AccessToken == "" {
		return &ProviderError{Provider: ProviderUberDirect, Operation: "authenticate", Err: fmt.Errorf("empty access token")}
	}

	c.mu.Lock()
	c.accessToken = body.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	c.mu.Unlock()

	return nil
}

// uberQuoteResponse mirrors the provider's delivery_quotes payload.
type uberQuoteResponse struct {
	ID           string    `json:"id"`
	Fee          int64     `json:"fee"`
	CurrencyCode string    `json:"currency_code"`
	Duration     int       `json:"duration"`
	Created      time.Time `json:"created"`
	Expires      time.Time `json:"expires"`
}

// GetQuote prices a prospective delivery.
func (c *UberDirectClient) GetQuote(ctx context.Context, req dom.QuoteRequest) (*dom.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	normalizeLocation(req.Pickup)
	normalizeLocation(req.Dropoff)

	payload := map[string]any{
		"pickup_address":  req.Pickup.Address,
		"dropoff_address": req.Dropoff.Address,
	}
	if req.Pickup.Phone != "" {
		payload["pickup_phone_number"] = req.Pickup.Phone
	}
	if req.Dropoff.Phone != "" {
		payload["dropoff_phone_number"] = req.Dropoff.Phone
	}

	path := fmt.Sprintf("/customers/%s/delivery_quotes", c.config.CustomerID)
	resp, err := c.doRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderUberDirect, Operation: "get_quote", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.statusError("get_quote", resp)
	}

	var body uberQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ProviderError{Provider: ProviderUberDirect, Operation: "get_quote", Err: fmt.Errorf("malformed quote response: %w", err)}
	}

	created := body.Created
	if created.IsZero() {
		created = time.Now()
	}
	expires := body.Expires
	if !expires.After(created) {
		expires = created.Add(defaultQuoteTTL)
	}

	currency := body.CurrencyCode
	if currency == "" {
		currency = req.Currency
	}

	return &dom.Quote{
		ID:         body.ID,
		Fee:        float64(body.Fee) / 100,
		Currency:   currency,
		ETAMinutes: body.Duration,
		CreatedAt:  created,
		ExpiresAt:  expires,
	}, nil
}

// uberDeliveryResponse mirrors the provider's deliveries payload.
type uberDeliveryResponse struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Fee          int64     `json:"fee"`
	CurrencyCode string    `json:"currency_code"`
	TrackingURL  string    `json:"tracking_url"`
	Created      time.Time `json:"created"`
	PickupETA    time.Time `json:"pickup_eta"`
	DropoffETA   time.Time `json:"dropoff_eta"`
	Updated      time.Time `json:"updated"`
}

// CreateDelivery books a delivery, optionally against an earlier quote.
func (c *UberDirectClient) CreateDelivery(ctx context.Context, req dom.CreateRequest) (*dom.Delivery, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	normalizeLocation(req.Pickup)
	normalizeLocation(req.Dropoff)

	items := make([]map[string]any, 0, len(req.Items))
	for _, item := range req.Items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, map[string]any{
			"name":     item.Name,
			"quantity": quantity,
			"price":    int64(item.Price * 100),
		})
	}

	payload := map[string]any{
		"pickup_name":          req.Pickup.Name,
		"pickup_address":       req.Pickup.Address,
		"pickup_phone_number":  req.Pickup.Phone,
		"dropoff_name":         req.Dropoff.Name,
		"dropoff_address":      req.Dropoff.Address,
		"dropoff_phone_number": req.Dropoff.Phone,
		"manifest_items":       items,
	}
	if req.QuoteID != "" {
		payload["quote_id"] = req.QuoteID
	}
	if req.ExternalRef != "" {
		payload["external_id"] = req.ExternalRef
	}
	if req.Pickup.Instructions != "" {
		payload["pickup_notes"] = req.Pickup.Instructions
	}
	if req.Dropoff.Instructions != "" {
		payload["dropoff_notes"] = req.Dropoff.Instructions
	}
	if req.Tip > 0 {
		payload["tip"] = int64(req.Tip * 100)
	}

	path := fmt.Sprintf("/customers/%s/deliveries", c.config.CustomerID)
	resp, err := c.doRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderUberDirect, Operation: "create_delivery", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusRequestTimeout {
		return nil, ErrQuoteExpired
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.statusError("create_delivery", resp)
	}

	var body uberDeliveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ProviderError{Provider: ProviderUberDirect, Operation: "create_delivery", Err: fmt.Errorf("malformed delivery response: %w", err)}
	}

	// Providers in test mode omit timing fields. Default them the same way
	// the quote path does, keeping pickup strictly before dropoff.
	created := body.Created
	if created.IsZero() {
		created = time.Now()
	}
	pickupETA := body.PickupETA
	if pickupETA.IsZero() {
		pickupETA = created.Add(15 * time.Minute)
	}
	dropoffETA := body.DropoffETA
	if !dropoffETA.After(pickupETA) {
		dropoffETA = pickupETA.Add(25 * time.Minute)
	}

	return &dom.Delivery{
		ID:          body.ID,
		Status:      mapUberStatus(body.Status),
		Fee:         float64(body.Fee) / 100,
		Currency:    defaultCurrency(body.CurrencyCode, req.Currency),
		TrackingURL: body.TrackingURL,
		CreatedAt:   created,
		PickupETA:   pickupETA,
		DropoffETA:  dropoffETA,
	}, nil
}

// GetDeliveryStatus reads the current state of a delivery.
func (c *UberDirectClient) GetDeliveryStatus(ctx context.Context, id string) (*dom.TrackedDelivery, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/customers/%s/deliveries/%s", c.config.CustomerID, id)
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderUberDirect, Operation: "get_status", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("get_status", resp)
	}

	var body uberDeliveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ProviderError{Provider: ProviderUberDirect, Operation: "get_status", Err: fmt.Errorf("malformed status response: %w", err)}
	}

	updated := body.Updated
	if updated.IsZero() {
		updated = time.Now()
	}

	return &dom.TrackedDelivery{
		ID:          body.ID,
		Status:      mapUberStatus(body.Status),
		TrackingURL: body.TrackingURL,
		UpdatedAt:   updated,
	}, nil
}

// CancelDelivery cancels a delivery that has not reached a terminal state.
func (c *UberDirectClient) CancelDelivery(ctx context.Context, id string) (*dom.CancelResult, error) {
	// Current status first so a terminal delivery fails typed rather than
	// with an opaque provider 409.
	tracked, err := c.GetDeliveryStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if tracked.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: delivery %s is %s", ErrTerminalState, id, tracked.Status)
	}

	path := fmt.Sprintf("/customers/%s/deliveries/%s/cancel", c.config.CustomerID, id)
	resp, err := c.doRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderUberDirect, Operation: "cancel_delivery", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil, fmt.Errorf("%w: delivery %s", ErrTerminalState, id)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return nil, c.statusError("cancel_delivery", resp)
	}

	return &dom.CancelResult{
		ID:       id,
		Canceled: true,
		Message:  "delivery canceled",
	}, nil
}

func (c *UberDirectClient) doRequest(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *UberDirectClient) statusError(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &ProviderError{
		Provider:   ProviderUberDirect,
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("%s", strings.TrimSpace(string(raw))),
	}
}

// normalizeLocation fills deterministic defaults for optional contact fields.
func normalizeLocation(loc *dom.Location) {
	if loc == nil {
		return
	}
	if loc.Name == "" {
		loc.Name = "N/A"
	}
	if loc.Phone == "" {
		loc.Phone = "+10000000000"
	}
}

func defaultCurrency(got, fallback string) string {
	if got != "" {
		return got
	}
	if fallback != "" {
		return fallback
	}
	return "USD"
}

// mapUberStatus normalizes provider status strings into the internal
// vocabulary. Unknown statuses map to processing rather than failing a read.
func mapUberStatus(s string) dom.Status {
	switch strings.ToLower(s) {
	case "pending", "processing":
		return dom.StatusProcessing
	case "pickup", "en_route_to_pickup":
		return dom.StatusPickingUp
	case "pickup_complete", "picked_up":
		return dom.StatusPickedUp
	case "dropoff", "en_route_to_dropoff", "ongoing":
		return dom.StatusDelivering
	case "delivered", "completed":
		return dom.StatusDelivered
	case "canceled", "cancelled", "returned":
		return dom.StatusCanceled
	default:
		return dom.StatusProcessing
	}
}
