package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/platewire/api/internal/app"
	"github.com/platewire/api/internal/infra/http/middleware"
	"github.com/platewire/api/pkg/apierror"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/domain/webhook"
	"github.com/platewire/api/pkg/logger"
	"github.com/platewire/api/pkg/pagination"
	"github.com/platewire/api/pkg/validator"
)

// WebhookHandler handles HTTP requests for webhook management and the public
// inbound event receiver.
type WebhookHandler struct {
	service    *app.WebhookService
	dispatcher *app.DispatcherService
	validator  *validator.Validator
	logger     *logger.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(svc *app.WebhookService, dispatcher *app.DispatcherService, v *validator.Validator, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service:    svc,
		dispatcher: dispatcher,
		validator:  v,
		logger:     log,
	}
}

// WebhookResponse represents a webhook in API responses. The secret key is
// only exposed through the callback URL so owners can register it upstream.
type WebhookResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	CallbackURL         string    `json:"callback_url"`
	EndpointURL         string    `json:"endpoint_url,omitempty"`
	SourceType          string    `json:"source_type"`
	SourceProvider      string    `json:"source_provider,omitempty"`
	DestinationType     string    `json:"destination_type"`
	DestinationProvider string    `json:"destination_provider,omitempty"`
	EventTypes          []string  `json:"event_types"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (h *WebhookHandler) toResponse(w *webhook.Webhook) WebhookResponse {
	return WebhookResponse{
		ID:                  w.ID().String(),
		Name:                w.Name(),
		Description:         w.Description(),
		CallbackURL:         h.service.BuildCallbackURL(w),
		EndpointURL:         w.EndpointURL(),
		SourceType:          w.SourceType().String(),
		SourceProvider:      w.SourceProvider(),
		DestinationType:     w.DestinationType().String(),
		DestinationProvider: w.DestinationProvider(),
		EventTypes:          w.EventTypes(),
		IsActive:            w.IsActive(),
		CreatedAt:           w.CreatedAt(),
		UpdatedAt:           w.UpdatedAt(),
	}
}

// DispatchLogResponse represents a dispatch log entry in API responses.
type DispatchLogResponse struct {
	ID               string         `json:"id"`
	WebhookID        string         `json:"webhook_id"`
	EventType        string         `json:"event_type"`
	EventID          string         `json:"event_id,omitempty"`
	RequestPayload   map[string]any `json:"request_payload,omitempty"`
	ResponsePayload  map[string]any `json:"response_payload,omitempty"`
	StatusCode       int            `json:"status_code"`
	Success          bool           `json:"success"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	CreatedAt        time.Time      `json:"created_at"`
}

func toDispatchLogResponse(l *webhook.DispatchLog) DispatchLogResponse {
	return DispatchLogResponse{
		ID:               l.ID.String(),
		WebhookID:        l.WebhookID.String(),
		EventType:        l.EventType,
		EventID:          l.EventID,
		RequestPayload:   l.RequestPayload,
		ResponsePayload:  l.ResponsePayload,
		StatusCode:       l.StatusCode,
		Success:          l.Succeeded(),
		ErrorMessage:     l.ErrorMessage,
		ProcessingTimeMs: l.ProcessingTimeMs,
		CreatedAt:        l.CreatedAt,
	}
}

// Create handles POST /api/v1/webhooks.
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input app.CreateWebhookInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	input.UserID = middleware.GetUserID(r.Context())
	created, err := h.service.CreateWebhook(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.toResponse(created))
}

// List handles GET /api/v1/webhooks.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListWebhooks(r.Context(), app.ListWebhooksInput{
		UserID:     middleware.GetUserID(r.Context()),
		SourceType: r.URL.Query().Get("source_type"),
		IsActive:   parseQueryBool(r.URL.Query().Get("is_active")),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	out := make([]WebhookResponse, 0, len(items))
	for _, item := range items {
		out = append(out, h.toResponse(item))
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": out, "total": len(out)})
}

// Get handles GET /api/v1/webhooks/{id}.
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetWebhook(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toResponse(item))
}

// Update handles PATCH /api/v1/webhooks/{id}.
func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input app.UpdateWebhookInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	updated, err := h.service.UpdateWebhook(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toResponse(updated))
}

// Toggle handles POST /api/v1/webhooks/{id}/toggle.
func (h *WebhookHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	toggled, err := h.service.ToggleWebhook(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toResponse(toggled))
}

// Delete handles DELETE /api/v1/webhooks/{id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteWebhook(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context())); err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RotateSecret handles POST /api/v1/webhooks/{id}/rotate-secret.
func (h *WebhookHandler) RotateSecret(w http.ResponseWriter, r *http.Request) {
	rotated, err := h.service.RotateSecret(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toResponse(rotated))
}

// Test handles POST /api/v1/webhooks/{id}/test.
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.TestWebhook(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListLogs handles GET /api/v1/webhooks/{id}/logs.
func (h *WebhookHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	p := pagination.New(
		parseQueryInt(r.URL.Query().Get("page"), 1),
		parseQueryInt(r.URL.Query().Get("per_page"), 50),
	)

	entries, total, err := h.service.ListLogs(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()), p.Limit(), p.Offset())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	out := make([]DispatchLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toDispatchLogResponse(e))
	}

	result := pagination.NewResult(out, int64(total), p)
	respondJSON(w, http.StatusOK, ListResponse[DispatchLogResponse]{
		Data:       result.Data,
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
		Links:      NewPaginationLinks(r, result.Page, result.PerPage, result.TotalPages),
	})
}

// SetupUberDirect handles POST /api/v1/webhooks/setup/uberdirect.
func (h *WebhookHandler) SetupUberDirect(w http.ResponseWriter, r *http.Request) {
	created, err := h.service.SetupUberDirect(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.toResponse(created))
}

// inboundEvent is the envelope external platforms POST to the receiver. The
// envelope fields are optional; a bare payload is treated as an order event
// body with headers carrying the event type.
type inboundEvent struct {
	EventType      string         `json:"event_type"`
	EventID        string         `json:"event_id"`
	SourceType     string         `json:"source_type"`
	SourceProvider string         `json:"source_provider"`
	Payload        map[string]any `json:"payload"`
}

// Receive handles POST /api/webhook/{secretKey}. This is the public inbound
// receiver; the path secret is the only authentication.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	secretKey := chi.URLParam(r, "secretKey")

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		apierror.BadRequest("Invalid JSON body").WriteJSON(w)
		return
	}

	event := normalizeInboundEvent(r, raw)
	if event.EventType == "" {
		apierror.BadRequest("event type missing: set event_type in the body or the X-Event-Type header").WriteJSON(w)
		return
	}

	outcomes, err := h.dispatcher.Dispatch(r.Context(), secretKey, event)
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrInvalidSecret):
			apierror.Unauthorized("unknown webhook secret").WriteJSON(w)
		case errors.Is(err, shared.ErrValidation):
			apierror.BadRequest(err.Error()).WriteJSON(w)
		default:
			h.logger.Error("dispatch failed", "error", err)
			apierror.InternalServerError("Internal server error").WriteJSON(w)
		}
		return
	}

	success := true
	for _, o := range outcomes {
		if !o.Success {
			success = false
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  success,
		"outcomes": outcomes,
	})
}

// normalizeInboundEvent maps a raw inbound body onto the dispatch event. An
// explicit envelope wins; otherwise the whole body is the payload and the
// event type comes from headers or the platform topic field.
func normalizeInboundEvent(r *http.Request, raw map[string]any) app.Event {
	var envelope inboundEvent
	if b, err := json.Marshal(raw); err == nil {
		_ = json.Unmarshal(b, &envelope)
	}

	event := app.Event{
		EventType:      envelope.EventType,
		EventID:        envelope.EventID,
		SourceType:     webhook.EndpointType(envelope.SourceType),
		SourceProvider: envelope.SourceProvider,
		Payload:        envelope.Payload,
	}

	if event.Payload == nil {
		event.Payload = raw
	}
	if event.EventType == "" {
		event.EventType = r.Header.Get("X-Event-Type")
	}
	if event.EventType == "" {
		// Shopify-style topic header, e.g. "orders/create".
		if topic := r.Header.Get("X-Shopify-Topic"); topic == "orders/create" {
			event.EventType = webhook.EventOrderCreated
		}
	}
	if event.EventID == "" {
		event.EventID = r.Header.Get("X-Event-ID")
	}
	if event.SourceType == "" {
		event.SourceType = webhook.EndpointType(r.Header.Get("X-Source-Type"))
	}
	return event
}

func (h *WebhookHandler) handleValidationError(w http.ResponseWriter, err error) {
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

func (h *WebhookHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, webhook.ErrWebhookNotFound) || errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Webhook").WriteJSON(w)
	case errors.Is(err, webhook.ErrInvalidSecret):
		apierror.Unauthorized("unknown webhook secret").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	default:
		h.logger.Error("webhook service error", "error", err)
		apierror.InternalServerError("Internal server error").WriteJSON(w)
	}
}
