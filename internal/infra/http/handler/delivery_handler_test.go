package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	infradelivery "github.com/platewire/api/internal/infra/delivery"
	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/logger"
)

func TestQuoteRequest_Decoding(t *testing.T) {
	body := `{
		"integration_id": "8f14e45f-ceea-4e47-a0b1-3b3f0a1c2d3e",
		"pickup": {"name": "Store", "address": "1 Main St", "phone": "+15551234567"},
		"dropoff": {"name": "Alice", "address": "2 Oak Ave", "phone": "+15557654321"},
		"items": [{"name": "Burger", "quantity": 2, "price": 9.5}],
		"order_value": 19.0,
		"currency": "USD"
	}`

	var req QuoteRequest
	assert.NoError(t, json.NewDecoder(bytes.NewReader([]byte(body))).Decode(&req))
	assert.Equal(t, "8f14e45f-ceea-4e47-a0b1-3b3f0a1c2d3e", req.IntegrationID)
	assert.Equal(t, "1 Main St", req.Pickup.Address)
	assert.Equal(t, "2 Oak Ave", req.Dropoff.Address)
	assert.Len(t, req.Items, 1)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.InDelta(t, 19.0, req.OrderValue, 0.001)
}

func TestDeliveryHandler_ServiceErrorMapping(t *testing.T) {
	h := &DeliveryHandler{logger: logger.NewNop()}

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"integration not found", integration.ErrIntegrationNotFound, http.StatusNotFound},
		{"terminal state cancel", infradelivery.ErrTerminalState, http.StatusConflict},
		{"expired quote", infradelivery.ErrQuoteExpired, http.StatusConflict},
		{"inactive integration", integration.ErrIntegrationInactive, http.StatusConflict},
		{"validation", fmt.Errorf("%w: pickup location is required", shared.ErrValidation), http.StatusBadRequest},
		{
			"provider 404 surfaces as delivery not found",
			&infradelivery.ProviderError{Provider: "uber_direct", Operation: "get_status", StatusCode: 404, Err: errors.New("no such delivery")},
			http.StatusNotFound,
		},
		{
			"provider 500 surfaces as internal error",
			&infradelivery.ProviderError{Provider: "uber_direct", Operation: "create_delivery", StatusCode: 500, Err: errors.New("upstream error")},
			http.StatusInternalServerError,
		},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.handleServiceError(rec, tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestDeliveryHandler_StatusRequiresIntegrationID(t *testing.T) {
	h := &DeliveryHandler{logger: logger.NewNop()}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/delivery/del-1/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
