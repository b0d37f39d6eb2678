package delivery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dom "github.com/platewire/api/pkg/domain/delivery"
)

func TestFakeClient_QuoteAndCreate(t *testing.T) {
	client := NewFakeClient()
	ctx := context.Background()

	quote, err := client.GetQuote(ctx, dom.QuoteRequest{
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, quote.ID)
	assert.True(t, quote.ExpiresAt.After(quote.CreatedAt))

	delivery, err := client.CreateDelivery(ctx, dom.CreateRequest{
		QuoteID: quote.ID,
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	require.NoError(t, err)
	assert.Equal(t, dom.StatusProcessing, delivery.Status)
	assert.Equal(t, quote.Fee, delivery.Fee)
}

func TestFakeClient_ExpiredQuoteRejected(t *testing.T) {
	client := NewFakeClient()
	ctx := context.Background()

	quote, err := client.GetQuote(ctx, dom.QuoteRequest{
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	require.NoError(t, err)

	client.ExpireQuote(quote.ID)

	_, err = client.CreateDelivery(ctx, dom.CreateRequest{
		QuoteID: quote.ID,
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	assert.ErrorIs(t, err, ErrQuoteExpired)
}

func TestFakeClient_StatusProgression(t *testing.T) {
	client := NewFakeClient()
	ctx := context.Background()

	delivery, err := client.CreateDelivery(ctx, dom.CreateRequest{
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	require.NoError(t, err)

	// Reads alone never change the status.
	for i := 0; i < 3; i++ {
		tracked, err := client.GetDeliveryStatus(ctx, delivery.ID)
		require.NoError(t, err)
		assert.Equal(t, dom.StatusProcessing, tracked.Status)
	}

	want := []dom.Status{
		dom.StatusPickingUp,
		dom.StatusPickedUp,
		dom.StatusDelivering,
		dom.StatusDelivered,
		dom.StatusDelivered,
	}
	for _, expected := range want {
		client.Advance(delivery.ID)
		tracked, err := client.GetDeliveryStatus(ctx, delivery.ID)
		require.NoError(t, err)
		assert.Equal(t, expected, tracked.Status)
	}
}

func TestFakeClient_CancelTerminal(t *testing.T) {
	client := NewFakeClient()
	ctx := context.Background()

	delivery, err := client.CreateDelivery(ctx, dom.CreateRequest{
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	require.NoError(t, err)

	client.SetStatus(delivery.ID, dom.StatusDelivered)

	_, err = client.CancelDelivery(ctx, delivery.ID)
	assert.ErrorIs(t, err, ErrTerminalState)
}

func TestFakeClient_CancelActive(t *testing.T) {
	client := NewFakeClient()
	ctx := context.Background()

	delivery, err := client.CreateDelivery(ctx, dom.CreateRequest{
		Pickup:  &dom.Location{Address: "1 Main St"},
		Dropoff: &dom.Location{Address: "9 Oak Ave"},
	})
	require.NoError(t, err)

	result, err := client.CancelDelivery(ctx, delivery.ID)
	require.NoError(t, err)
	assert.True(t, result.Canceled)

	tracked, err := client.GetDeliveryStatus(ctx, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, dom.StatusCanceled, tracked.Status)
}
