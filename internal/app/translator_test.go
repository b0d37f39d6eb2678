package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/domain/webhook"
)

func storeIntegration(settings map[string]any) *integration.Integration {
	intg := integration.NewIntegration(shared.NewID(), shared.NewID(), integration.TypeDelivery, "uberdirect", integration.EnvironmentSandbox)
	intg.SetSettings(settings)
	return intg
}

func TestTranslateOrder_ShopifyShape(t *testing.T) {
	translator := NewTranslator()
	intg := storeIntegration(map[string]any{
		"store_name":    "Springfield Trattoria",
		"store_address": "12 Kitchen Lane, Springfield, IL 62701",
		"store_phone":   "+15550001",
	})

	payload := map[string]any{
		"id":           123456,
		"order_number": "1042",
		"total_price":  "42.75",
		"currency":     "USD",
		"customer": map[string]any{
			"first_name": "Jo",
			"last_name":  "Ramirez",
			"phone":      "+15550199",
		},
		"shipping_address": map[string]any{
			"address1": "500 Maple Drive",
			"city":     "Springfield",
			"province": "IL",
			"zip":      "62704",
		},
		"line_items": []any{
			map[string]any{"title": "Carbonara", "quantity": 2, "price": "16.00"},
			map[string]any{"title": "Tiramisu", "quantity": 1, "price": "10.75"},
		},
		"note": "Ring the doorbell",
	}

	req, err := translator.TranslateOrder(webhook.EventOrderCreated, payload, intg)
	require.NoError(t, err)

	assert.Equal(t, "1042", req.ExternalRef)
	assert.Equal(t, "USD", req.Currency)
	assert.InDelta(t, 42.75, req.OrderValue, 0.001)

	require.NotNil(t, req.Pickup)
	assert.Equal(t, "Springfield Trattoria", req.Pickup.Name)
	assert.Equal(t, "12 Kitchen Lane, Springfield, IL 62701", req.Pickup.Address)

	require.NotNil(t, req.Dropoff)
	assert.Equal(t, "Jo Ramirez", req.Dropoff.Name)
	assert.Contains(t, req.Dropoff.Address, "500 Maple Drive")
	assert.Contains(t, req.Dropoff.Address, "Springfield")
	assert.Contains(t, req.Dropoff.Address, "62704")
	assert.Equal(t, "+15550199", req.Dropoff.Phone)
	assert.Equal(t, "Ring the doorbell", req.Dropoff.Instructions)

	require.Len(t, req.Items, 2)
	assert.Equal(t, "Carbonara", req.Items[0].Name)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.InDelta(t, 16.00, req.Items[0].Price, 0.001)
}

func TestTranslateOrder_WooShape(t *testing.T) {
	translator := NewTranslator()
	intg := storeIntegration(map[string]any{"store_address": "12 Kitchen Lane"})

	payload := map[string]any{
		"id":       987,
		"total":    "18.50",
		"currency": "EUR",
		"shipping": map[string]any{
			"address_1": "8 Rue de la Paix",
			"city":      "Paris",
			"postcode":  "75002",
			"phone":     "+33150001",
		},
		"items": []any{
			map[string]any{"name": "Croque Monsieur", "quantity": 1, "price": "18.50"},
		},
	}

	req, err := translator.TranslateOrder(webhook.EventOrderCreated, payload, intg)
	require.NoError(t, err)

	assert.Equal(t, "987", req.ExternalRef)
	assert.Equal(t, "EUR", req.Currency)
	assert.Contains(t, req.Dropoff.Address, "8 Rue de la Paix")
	require.Len(t, req.Items, 1)
	assert.Equal(t, "Croque Monsieur", req.Items[0].Name)
}

func TestTranslateOrder_UnknownEventType(t *testing.T) {
	translator := NewTranslator()
	intg := storeIntegration(map[string]any{"store_address": "12 Kitchen Lane"})

	_, err := translator.TranslateOrder(webhook.EventOrderCanceled, map[string]any{}, intg)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestTranslateOrder_MissingShippingAddress(t *testing.T) {
	translator := NewTranslator()
	intg := storeIntegration(map[string]any{"store_address": "12 Kitchen Lane"})

	_, err := translator.TranslateOrder(webhook.EventOrderCreated, map[string]any{
		"id":         1,
		"line_items": []any{map[string]any{"name": "Soup", "quantity": 1}},
	}, intg)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestTranslateOrder_MissingStoreAddress(t *testing.T) {
	translator := NewTranslator()
	intg := storeIntegration(nil)

	_, err := translator.TranslateOrder(webhook.EventOrderCreated, sampleEventPayload(webhook.EventOrderCreated), intg)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestTranslateOrder_NoLineItems(t *testing.T) {
	translator := NewTranslator()
	intg := storeIntegration(map[string]any{"store_address": "12 Kitchen Lane"})

	_, err := translator.TranslateOrder(webhook.EventOrderCreated, map[string]any{
		"id": 1,
		"shipping_address": map[string]any{
			"address_1": "500 Maple Drive",
		},
	}, intg)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestTranslateOrder_DefaultsQuantityAndCurrency(t *testing.T) {
	translator := NewTranslator()
	intg := storeIntegration(map[string]any{"store_address": "12 Kitchen Lane"})

	req, err := translator.TranslateOrder(webhook.EventOrderCreated, map[string]any{
		"id": 55,
		"shipping_address": map[string]any{
			"address_1": "500 Maple Drive",
		},
		"line_items": []any{
			map[string]any{"name": "Flatbread"},
		},
	}, intg)
	require.NoError(t, err)

	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, 1, req.Items[0].Quantity)
}
