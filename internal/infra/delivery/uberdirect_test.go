package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dom "github.com/platewire/api/pkg/domain/delivery"
	"github.com/platewire/api/pkg/domain/shared"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *UberDirectClient) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewUberDirectClient(Config{
		Provider:     ProviderUberDirect,
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		CustomerID:   "cust-1",
		BaseURL:      srv.URL,
		AuthURL:      srv.URL + "/oauth/token",
		HTTPTimeout:  5 * time.Second,
	})
	require.NoError(t, err)

	return srv, client
}

func writeToken(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": "tok-123",
		"expires_in":   3600,
	})
}

func TestNewUberDirectClient_MissingCredentials(t *testing.T) {
	_, err := NewUberDirectClient(Config{CustomerID: "c"})
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = NewUberDirectClient(Config{ClientID: "a", ClientSecret: "b"})
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestAuthenticate_CachesToken(t *testing.T) {
	var tokenCalls int32
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			atomic.AddInt32(&tokenCalls, 1)
			writeToken(w)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	ctx := context.Background()
	require.NoError(t, client.Authenticate(ctx))
	require.NoError(t, client.Authenticate(ctx))
	require.NoError(t, client.Authenticate(ctx))

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestAuthenticate_ConcurrentRefreshCollapses(t *testing.T) {
	var tokenCalls int32
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			atomic.AddInt32(&tokenCalls, 1)
			time.Sleep(20 * time.Millisecond)
			writeToken(w)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, client.Authenticate(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestAuthenticate_RejectedCredentials(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusUnauthorized, provErr.StatusCode)
}

func TestGetQuote(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			writeToken(w)
		case "/customers/cust-1/delivery_quotes":
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "1 Main St", body["pickup_address"])
			assert.Equal(t, "9 Oak Ave", body["dropoff_address"])

			json.NewEncoder(w).Encode(map[string]any{
				"id":            "quote-1",
				"fee":           799,
				"currency_code": "USD",
				"duration":      30,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	quote, err := client.GetQuote(context.Background(), dom.QuoteRequest{
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	require.NoError(t, err)

	assert.Equal(t, "quote-1", quote.ID)
	assert.InDelta(t, 7.99, quote.Fee, 0.001)
	assert.Equal(t, "USD", quote.Currency)
	assert.Equal(t, 30, quote.ETAMinutes)
	assert.True(t, quote.ExpiresAt.After(quote.CreatedAt))
}

func TestGetQuote_MissingPickupFailsBeforeNetwork(t *testing.T) {
	var calls int32
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeToken(w)
	})

	_, err := client.GetQuote(context.Background(), dom.QuoteRequest{
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGetQuote_ProviderError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			writeToken(w)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetQuote(context.Background(), dom.QuoteRequest{
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusInternalServerError, provErr.StatusCode)
	assert.Equal(t, "get_quote", provErr.Operation)
}

func TestCreateDelivery(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			writeToken(w)
		case "/customers/cust-1/deliveries":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "quote-1", body["quote_id"])
			assert.Equal(t, "order-42", body["external_id"])

			json.NewEncoder(w).Encode(map[string]any{
				"id":            "del-1",
				"status":        "pending",
				"fee":           799,
				"currency_code": "USD",
				"tracking_url":  "https://track.example.com/del-1",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	delivery, err := client.CreateDelivery(context.Background(), dom.CreateRequest{
		QuoteID:     "quote-1",
		ExternalRef: "order-42",
		Pickup:      &dom.Location{Name: "Resto", Address: "1 Main St"},
		Dropoff:     &dom.Location{Name: "Jo", Address: "9 Oak Ave"},
		Items:       []dom.Item{{Name: "Burger", Quantity: 2, Price: 12.50}},
	})
	require.NoError(t, err)

	assert.Equal(t, "del-1", delivery.ID)
	assert.Equal(t, dom.StatusProcessing, delivery.Status)
	assert.Equal(t, "https://track.example.com/del-1", delivery.TrackingURL)
	assert.True(t, delivery.PickupETA.Before(delivery.DropoffETA))
}

func TestCreateDelivery_MissingETAsDefaulted(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			writeToken(w)
		case "/customers/cust-1/deliveries":
			// No created/pickup_eta/dropoff_eta fields at all.
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "del-1",
				"status": "pending",
				"fee":    599,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	delivery, err := client.CreateDelivery(context.Background(), dom.CreateRequest{
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	require.NoError(t, err)

	assert.False(t, delivery.CreatedAt.IsZero())
	assert.True(t, delivery.PickupETA.After(delivery.CreatedAt))
	assert.True(t, delivery.PickupETA.Before(delivery.DropoffETA))
}

func TestCreateDelivery_ReorderedETAsDefaulted(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			writeToken(w)
		case "/customers/cust-1/deliveries":
			// Dropoff before pickup.
			json.NewEncoder(w).Encode(map[string]any{
				"id":          "del-1",
				"status":      "pending",
				"created":     now,
				"pickup_eta":  now.Add(30 * time.Minute),
				"dropoff_eta": now.Add(10 * time.Minute),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	delivery, err := client.CreateDelivery(context.Background(), dom.CreateRequest{
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	require.NoError(t, err)

	assert.True(t, delivery.PickupETA.Equal(now.Add(30*time.Minute)))
	assert.True(t, delivery.PickupETA.Before(delivery.DropoffETA))
}

func TestCreateDelivery_ExpiredQuote(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			writeToken(w)
			return
		}
		w.WriteHeader(http.StatusGone)
	})

	_, err := client.CreateDelivery(context.Background(), dom.CreateRequest{
		QuoteID: "quote-stale",
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	assert.ErrorIs(t, err, ErrQuoteExpired)
}

func TestCancelDelivery_TerminalState(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			writeToken(w)
		case "/customers/cust-1/deliveries/del-1":
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "del-1",
				"status": "delivered",
			})
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	})

	_, err := client.CancelDelivery(context.Background(), "del-1")
	assert.ErrorIs(t, err, ErrTerminalState)
}

func TestCancelDelivery_Active(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			writeToken(w)
		case "/customers/cust-1/deliveries/del-1":
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "del-1",
				"status": "pickup",
			})
		case "/customers/cust-1/deliveries/del-1/cancel":
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	})

	result, err := client.CancelDelivery(context.Background(), "del-1")
	require.NoError(t, err)
	assert.True(t, result.Canceled)
	assert.Equal(t, "del-1", result.ID)
}

func TestCancelDelivery_ProviderConflict(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			writeToken(w)
		case "/customers/cust-1/deliveries/del-1":
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "del-1",
				"status": "ongoing",
			})
		case "/customers/cust-1/deliveries/del-1/cancel":
			w.WriteHeader(http.StatusConflict)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	})

	_, err := client.CancelDelivery(context.Background(), "del-1")
	assert.ErrorIs(t, err, ErrTerminalState)
}

func TestMapUberStatus(t *testing.T) {
	tests := []struct {
		input string
		want  dom.Status
	}{
		{"pending", dom.StatusProcessing},
		{"en_route_to_pickup", dom.StatusPickingUp},
		{"pickup_complete", dom.StatusPickedUp},
		{"ongoing", dom.StatusDelivering},
		{"delivered", dom.StatusDelivered},
		{"canceled", dom.StatusCanceled},
		{"something-new", dom.StatusProcessing},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapUberStatus(tt.input), tt.input)
	}
}

func TestClientFactory(t *testing.T) {
	factory := NewClientFactory()

	client, err := factory.CreateClient(Config{Provider: ProviderFake})
	require.NoError(t, err)
	assert.IsType(t, &FakeClient{}, client)

	_, err = factory.CreateClient(Config{Provider: "dhl"})
	assert.True(t, errors.Is(err, ErrUnsupportedProvider))
}
