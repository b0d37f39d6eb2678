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
	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/logger"
	"github.com/platewire/api/pkg/validator"
)

// IntegrationHandler handles HTTP requests for integration management.
type IntegrationHandler struct {
	service   *app.IntegrationService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewIntegrationHandler creates a new IntegrationHandler.
func NewIntegrationHandler(svc *app.IntegrationService, v *validator.Validator, log *logger.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// IntegrationResponse represents an integration in API responses. Credentials
// never leave the server; only their presence is reported.
type IntegrationResponse struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Provider       string         `json:"provider"`
	Environment    string         `json:"environment"`
	HasCredentials bool           `json:"has_credentials"`
	Settings       map[string]any `json:"settings,omitempty"`
	WebhookURL     string         `json:"webhook_url,omitempty"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func toIntegrationResponse(i *integration.Integration) IntegrationResponse {
	return IntegrationResponse{
		ID:             i.ID().String(),
		Type:           i.Type().String(),
		Provider:       i.Provider(),
		Environment:    string(i.Environment()),
		HasCredentials: i.CredentialsEncrypted() != "",
		Settings:       i.Settings(),
		WebhookURL:     i.WebhookURL(),
		IsActive:       i.IsActive(),
		CreatedAt:      i.CreatedAt(),
		UpdatedAt:      i.UpdatedAt(),
	}
}

// Create handles POST /api/v1/integrations.
func (h *IntegrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input app.CreateIntegrationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	input.UserID = middleware.GetUserID(r.Context())
	created, err := h.service.CreateIntegration(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toIntegrationResponse(created))
}

// List handles GET /api/v1/integrations.
func (h *IntegrationHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListIntegrations(r.Context(), app.ListIntegrationsInput{
		UserID: middleware.GetUserID(r.Context()),
		Type:   r.URL.Query().Get("type"),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	out := make([]IntegrationResponse, 0, len(items))
	for _, i := range items {
		out = append(out, toIntegrationResponse(i))
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": out, "total": len(out)})
}

// Get handles GET /api/v1/integrations/{id}.
func (h *IntegrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	intg, err := h.service.GetIntegration(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toIntegrationResponse(intg))
}

// Update handles PATCH /api/v1/integrations/{id}.
func (h *IntegrationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input app.UpdateIntegrationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(input); err != nil {
		h.handleValidationError(w, err)
		return
	}

	updated, err := h.service.UpdateIntegration(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toIntegrationResponse(updated))
}

// Toggle handles POST /api/v1/integrations/{id}/toggle.
func (h *IntegrationHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	toggled, err := h.service.ToggleIntegration(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toIntegrationResponse(toggled))
}

// Delete handles DELETE /api/v1/integrations/{id}.
func (h *IntegrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteIntegration(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context())); err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Test handles POST /api/v1/integrations/{id}/test.
func (h *IntegrationHandler) Test(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.TestIntegration(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *IntegrationHandler) handleValidationError(w http.ResponseWriter, err error) {
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

func (h *IntegrationHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, integration.ErrIntegrationNotFound) || errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Integration").WriteJSON(w)
	case errors.Is(err, integration.ErrIntegrationInactive):
		apierror.Conflict(err.Error()).WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	default:
		h.logger.Error("integration service error", "error", err)
		apierror.InternalServerError("Internal server error").WriteJSON(w)
	}
}
