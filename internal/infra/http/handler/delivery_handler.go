package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/platewire/api/internal/app"
	infradelivery "github.com/platewire/api/internal/infra/delivery"
	"github.com/platewire/api/internal/infra/http/middleware"
	"github.com/platewire/api/pkg/apierror"
	dom "github.com/platewire/api/pkg/domain/delivery"
	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/logger"
	"github.com/platewire/api/pkg/validator"
)

// DeliveryHandler handles HTTP requests for on-demand courier operations.
type DeliveryHandler struct {
	service   *app.DeliveryService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(svc *app.DeliveryService, v *validator.Validator, log *logger.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// QuoteRequest is the request body for POST /api/v1/delivery/quote.
type QuoteRequest struct {
	IntegrationID string        `json:"integration_id" validate:"required,uuid"`
	Pickup        *dom.Location `json:"pickup"`
	Dropoff       *dom.Location `json:"dropoff"`
	Items         []dom.Item    `json:"items,omitempty"`
	OrderValue    float64       `json:"order_value"`
	Currency      string        `json:"currency,omitempty"`
}

// CreateDeliveryRequest is the request body for POST /api/v1/delivery/create.
type CreateDeliveryRequest struct {
	IntegrationID string        `json:"integration_id" validate:"required,uuid"`
	QuoteID       string        `json:"quote_id,omitempty"`
	ExternalRef   string        `json:"external_ref,omitempty"`
	Pickup        *dom.Location `json:"pickup"`
	Dropoff       *dom.Location `json:"dropoff"`
	Items         []dom.Item    `json:"items,omitempty"`
	OrderValue    float64       `json:"order_value"`
	Currency      string        `json:"currency,omitempty"`
	Tip           float64       `json:"tip,omitempty"`
}

// Quote handles POST /api/v1/delivery/quote.
func (h *DeliveryHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	quote, err := h.service.Quote(r.Context(), req.IntegrationID, middleware.GetUserID(r.Context()), dom.QuoteRequest{
		Pickup:     req.Pickup,
		Dropoff:    req.Dropoff,
		Items:      req.Items,
		OrderValue: req.OrderValue,
		Currency:   req.Currency,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// Create handles POST /api/v1/delivery/create.
func (h *DeliveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		h.handleValidationError(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), req.IntegrationID, middleware.GetUserID(r.Context()), dom.CreateRequest{
		QuoteID:     req.QuoteID,
		ExternalRef: req.ExternalRef,
		Pickup:      req.Pickup,
		Dropoff:     req.Dropoff,
		Items:       req.Items,
		OrderValue:  req.OrderValue,
		Currency:    req.Currency,
		Tip:         req.Tip,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// Status handles GET /api/v1/delivery/{id}/status.
func (h *DeliveryHandler) Status(w http.ResponseWriter, r *http.Request) {
	integrationID := r.URL.Query().Get("integration_id")
	if integrationID == "" {
		apierror.BadRequest("integration_id query parameter is required").WriteJSON(w)
		return
	}

	tracked, err := h.service.Status(r.Context(), integrationID, middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tracked)
}

// Cancel handles POST /api/v1/delivery/{id}/cancel.
func (h *DeliveryHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IntegrationID string `json:"integration_id" validate:"required,uuid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(body); err != nil {
		h.handleValidationError(w, err)
		return
	}

	result, err := h.service.Cancel(r.Context(), body.IntegrationID, middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *DeliveryHandler) handleValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apiErrors := make([]apierror.ValidationError, len(validationErrors))
		for i, ve := range validationErrors {
			apiErrors[i] = apierror.ValidationError{
				Field:   ve.Field,
				Message: ve.Message,
			}
		}
		apierror.ValidationFailed("Validation failed", apiErrors).WriteJSON(w)
		return
	}
	apierror.BadRequest("Validation error").WriteJSON(w)
}

func (h *DeliveryHandler) handleServiceError(w http.ResponseWriter, err error) {
	var provErr *infradelivery.ProviderError

	switch {
	case errors.Is(err, integration.ErrIntegrationNotFound) || errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Integration").WriteJSON(w)
	case errors.Is(err, infradelivery.ErrTerminalState):
		apierror.Conflict("delivery is already in a terminal state").WriteJSON(w)
	case errors.Is(err, infradelivery.ErrQuoteExpired):
		apierror.Conflict("quote has expired, request a new one").WriteJSON(w)
	case errors.Is(err, integration.ErrIntegrationInactive) || errors.Is(err, shared.ErrConflict):
		apierror.Conflict(err.Error()).WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	case errors.As(err, &provErr):
		if provErr.StatusCode == http.StatusNotFound {
			apierror.NotFound("Delivery").WriteJSON(w)
			return
		}
		h.logger.Error("provider request failed",
			"provider", provErr.Provider,
			"operation", provErr.Operation,
			"status_code", provErr.StatusCode,
			"error", provErr.Err)
		apierror.InternalServerError("delivery provider request failed").WriteJSON(w)
	default:
		h.logger.Error("delivery service error", "error", err)
		apierror.InternalServerError("Internal server error").WriteJSON(w)
	}
}
