package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/platewire/api/pkg/crypto"
	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/domain/webhook"
	"github.com/platewire/api/pkg/logger"
)

// WebhookService provides business logic for webhook management.
type WebhookService struct {
	repo          webhook.Repository
	logRepo       webhook.LogRepository
	intgRepo      integration.Repository
	dispatcher    *DispatcherService
	publicBaseURL string
	logger        *logger.Logger
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(
	repo webhook.Repository,
	logRepo webhook.LogRepository,
	intgRepo integration.Repository,
	dispatcher *DispatcherService,
	publicBaseURL string,
	log *logger.Logger,
) *WebhookService {
	return &WebhookService{
		repo:          repo,
		logRepo:       logRepo,
		intgRepo:      intgRepo,
		dispatcher:    dispatcher,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        log.With("service", "webhook"),
	}
}

// CreateWebhookInput represents input for creating a webhook.
type CreateWebhookInput struct {
	UserID              string   `json:"-"`
	Name                string   `json:"name" validate:"required,min=1,max=255"`
	Description         string   `json:"description" validate:"max=1000"`
	EndpointURL         string   `json:"endpoint_url" validate:"omitempty,url,max=1000"`
	SourceType          string   `json:"source_type" validate:"required,endpoint_type"`
	SourceProvider      string   `json:"source_provider" validate:"max=100"`
	DestinationType     string   `json:"destination_type" validate:"required,endpoint_type"`
	DestinationProvider string   `json:"destination_provider" validate:"max=100"`
	EventTypes          []string `json:"event_types" validate:"required,min=1,dive,event_type"`
}

// CreateWebhook creates a webhook with a freshly issued secret key.
func (s *WebhookService) CreateWebhook(ctx context.Context, input CreateWebhookInput) (*webhook.Webhook, error) {
	userID, err := shared.ParseID(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID", shared.ErrValidation)
	}

	sourceType := webhook.EndpointType(input.SourceType)
	destType := webhook.EndpointType(input.DestinationType)
	if !sourceType.IsValid() || !destType.IsValid() {
		return nil, fmt.Errorf("%w: invalid endpoint type", shared.ErrValidation)
	}
	if len(input.EventTypes) == 0 {
		return nil, fmt.Errorf("%w: at least one event type is required", shared.ErrValidation)
	}
	for _, et := range input.EventTypes {
		if !webhook.IsKnownEventType(et) {
			return nil, fmt.Errorf("%w: %s", webhook.ErrUnknownEventType, et)
		}
	}

	secretKey, err := crypto.GenerateSecretKey()
	if err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}

	w := webhook.NewWebhook(
		shared.NewID(), userID,
		input.Name, secretKey,
		sourceType, input.SourceProvider,
		destType, input.DestinationProvider,
		input.EventTypes,
	)
	if input.Description != "" {
		w.SetDescription(input.Description)
	}
	if input.EndpointURL != "" {
		w.SetEndpointURL(input.EndpointURL)
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}

	s.logger.Info("webhook created",
		"id", w.ID().String(),
		"user_id", w.UserID().String(),
		"name", w.Name(),
	)

	return w, nil
}

// GetWebhook retrieves a webhook scoped to its owner.
func (s *WebhookService) GetWebhook(ctx context.Context, id, userID string) (*webhook.Webhook, error) {
	webhookID, err := webhook.ParseID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid webhook ID", shared.ErrValidation)
	}
	uid, err := shared.ParseID(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID", shared.ErrValidation)
	}
	return s.repo.GetByID(ctx, webhookID, uid)
}

// ListWebhooksInput represents input for listing webhooks.
type ListWebhooksInput struct {
	UserID     string
	SourceType string
	IsActive   *bool
}

// ListWebhooks lists a user's webhooks.
func (s *WebhookService) ListWebhooks(ctx context.Context, input ListWebhooksInput) ([]*webhook.Webhook, error) {
	userID, err := shared.ParseID(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID", shared.ErrValidation)
	}

	filter := webhook.Filter{UserID: &userID, IsActive: input.IsActive}
	if input.SourceType != "" {
		st := webhook.EndpointType(input.SourceType)
		if !st.IsValid() {
			return nil, fmt.Errorf("%w: invalid source type", shared.ErrValidation)
		}
		filter.SourceType = &st
	}

	return s.repo.List(ctx, filter)
}

// UpdateWebhookInput represents input for updating a webhook. Nil fields are
// left untouched. The secret key is never updatable through this path.
type UpdateWebhookInput struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	EndpointURL *string  `json:"endpoint_url" validate:"omitempty,url,max=1000"`
	EventTypes  []string `json:"event_types" validate:"omitempty,min=1,dive,event_type"`
	IsActive    *bool    `json:"is_active"`
}

// UpdateWebhook applies a partial update to a webhook.
func (s *WebhookService) UpdateWebhook(ctx context.Context, id, userID string, input UpdateWebhookInput) (*webhook.Webhook, error) {
	w, err := s.GetWebhook(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		w.SetName(*input.Name)
	}
	if input.Description != nil {
		w.SetDescription(*input.Description)
	}
	if input.EndpointURL != nil {
		w.SetEndpointURL(*input.EndpointURL)
	}
	if len(input.EventTypes) > 0 {
		for _, et := range input.EventTypes {
			if !webhook.IsKnownEventType(et) {
				return nil, fmt.Errorf("%w: %s", webhook.ErrUnknownEventType, et)
			}
		}
		w.SetEventTypes(input.EventTypes)
	}
	if input.IsActive != nil {
		w.SetActive(*input.IsActive)
	}

	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}

	s.logger.Info("webhook updated", "id", w.ID().String())
	return w, nil
}

// ToggleWebhook flips the active flag.
func (s *WebhookService) ToggleWebhook(ctx context.Context, id, userID string) (*webhook.Webhook, error) {
	w, err := s.GetWebhook(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	w.SetActive(!w.IsActive())
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}

	s.logger.Info("webhook toggled", "id", w.ID().String(), "is_active", w.IsActive())
	return w, nil
}

// DeleteWebhook removes a webhook. Dispatch logs are kept.
func (s *WebhookService) DeleteWebhook(ctx context.Context, id, userID string) error {
	webhookID, err := webhook.ParseID(id)
	if err != nil {
		return fmt.Errorf("%w: invalid webhook ID", shared.ErrValidation)
	}
	uid, err := shared.ParseID(userID)
	if err != nil {
		return fmt.Errorf("%w: invalid user ID", shared.ErrValidation)
	}

	if err := s.repo.Delete(ctx, webhookID, uid); err != nil {
		return err
	}

	s.logger.Info("webhook deleted", "id", id, "user_id", userID)
	return nil
}

// RotateSecret issues a new secret key, invalidating the old callback URL.
func (s *WebhookService) RotateSecret(ctx context.Context, id, userID string) (*webhook.Webhook, error) {
	w, err := s.GetWebhook(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	secretKey, err := crypto.GenerateSecretKey()
	if err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}
	w.RotateSecret(secretKey)

	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}

	s.logger.Info("webhook secret rotated", "id", w.ID().String())
	return w, nil
}

// BuildCallbackURL returns the public URL external platforms should POST to.
func (s *WebhookService) BuildCallbackURL(w *webhook.Webhook) string {
	return fmt.Sprintf("%s/api/webhook/%s", s.publicBaseURL, w.SecretKey())
}

// SetupUberDirect creates a pre-configured ecommerce-to-Uber-Direct webhook.
// It requires an existing active Uber Direct delivery integration.
func (s *WebhookService) SetupUberDirect(ctx context.Context, userID string) (*webhook.Webhook, error) {
	uid, err := shared.ParseID(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID", shared.ErrValidation)
	}

	if _, err := s.intgRepo.FindActive(ctx, uid, integration.TypeDelivery, integration.ProviderUberDirect); err != nil {
		return nil, fmt.Errorf("active Uber Direct integration required: %w", err)
	}

	return s.CreateWebhook(ctx, CreateWebhookInput{
		UserID:              userID,
		Name:                "Uber Direct Dispatch",
		Description:         "Forwards new orders to Uber Direct for delivery",
		SourceType:          string(webhook.EndpointEcommerce),
		DestinationType:     string(webhook.EndpointDelivery),
		DestinationProvider: integration.ProviderUberDirect,
		EventTypes:          []string{webhook.EventOrderCreated},
	})
}

// TestWebhookResult represents the result of a webhook test run.
type TestWebhookResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Outcomes []Outcome `json:"outcomes"`
}

// TestWebhook synthesizes a sample event for the webhook's first event type
// and runs it through the dispatcher end to end.
func (s *WebhookService) TestWebhook(ctx context.Context, id, userID string) (*TestWebhookResult, error) {
	w, err := s.GetWebhook(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	eventTypes := w.EventTypes()
	if len(eventTypes) == 0 {
		return nil, fmt.Errorf("%w: webhook has no event types", shared.ErrValidation)
	}
	eventType := eventTypes[0]

	outcomes, err := s.dispatcher.Dispatch(ctx, w.SecretKey(), Event{
		SourceType:     w.SourceType(),
		SourceProvider: w.SourceProvider(),
		EventType:      eventType,
		EventID:        fmt.Sprintf("test-%d", time.Now().UnixNano()),
		Payload:        sampleEventPayload(eventType),
	})
	if err != nil {
		return nil, err
	}

	result := &TestWebhookResult{Success: true, Outcomes: outcomes}
	for _, o := range outcomes {
		if !o.Success {
			result.Success = false
		}
	}
	if result.Success {
		result.Message = fmt.Sprintf("test event %s dispatched to %d webhook(s)", eventType, len(outcomes))
	} else {
		result.Message = "one or more dispatches failed"
	}
	return result, nil
}

// ListLogs returns dispatch log entries after an ownership check.
func (s *WebhookService) ListLogs(ctx context.Context, id, userID string, limit, offset int) ([]*webhook.DispatchLog, int, error) {
	w, err := s.GetWebhook(ctx, id, userID)
	if err != nil {
		return nil, 0, err
	}

	webhookID := w.ID()
	return s.logRepo.List(ctx, webhook.LogFilter{
		UserID:    w.UserID(),
		WebhookID: &webhookID,
		Limit:     limit,
		Offset:    offset,
	})
}

// sampleEventPayload builds a deterministic test payload for an event type.
func sampleEventPayload(eventType string) map[string]any {
	base := map[string]any{
		"id":           "test-order-1001",
		"order_number": "TEST-1001",
		"currency":     "USD",
		"total":        24.50,
		"customer": map[string]any{
			"first_name": "Test",
			"last_name":  "Customer",
			"phone":      "+15550100",
		},
		"shipping_address": map[string]any{
			"address_1": "500 Sample Street",
			"city":      "Springfield",
			"state":     "IL",
			"zip":       "62701",
		},
		"line_items": []map[string]any{
			{"name": "Margherita Pizza", "quantity": 1, "price": 18.00},
			{"name": "Garlic Bread", "quantity": 1, "price": 6.50},
		},
	}
	base["event_type"] = eventType
	return base
}
