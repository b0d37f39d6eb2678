package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	infradelivery "github.com/platewire/api/internal/infra/delivery"
	"github.com/platewire/api/internal/metrics"
	"github.com/platewire/api/pkg/crypto"
	dom "github.com/platewire/api/pkg/domain/delivery"
	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/domain/webhook"
	"github.com/platewire/api/pkg/logger"
)

// ReplayGuard deduplicates inbound events. FirstSeen returns false only when
// the (webhook, event) pair was already processed inside the replay window.
type ReplayGuard interface {
	FirstSeen(ctx context.Context, webhookID, eventID string) bool
}

// noopReplayGuard admits everything. Used when Redis is not configured.
type noopReplayGuard struct{}

func (noopReplayGuard) FirstSeen(context.Context, string, string) bool { return true }

// Event is an inbound webhook event after receiver normalization.
type Event struct {
	SourceType     webhook.EndpointType
	SourceProvider string
	EventType      string
	EventID        string
	Payload        map[string]any
}

// Outcome is the per-webhook result of a dispatch. A dispatch over N matched
// webhooks always yields N outcomes; one webhook's failure never hides the
// others.
type Outcome struct {
	WebhookID  string `json:"webhook_id"`
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	DurationMs int64  `json:"duration_ms"`
}

// DispatcherService routes inbound events to their destinations.
type DispatcherService struct {
	webhookRepo  webhook.Repository
	logRepo      webhook.LogRepository
	intgRepo     integration.Repository
	integrations *IntegrationService
	translator   *Translator
	replayGuard  ReplayGuard
	httpClient   *http.Client
	timeout      time.Duration
	logger       *logger.Logger
}

// NewDispatcherService creates a new DispatcherService.
func NewDispatcherService(
	webhookRepo webhook.Repository,
	logRepo webhook.LogRepository,
	intgRepo integration.Repository,
	integrations *IntegrationService,
	replayGuard ReplayGuard,
	timeout time.Duration,
	log *logger.Logger,
) *DispatcherService {
	if replayGuard == nil {
		replayGuard = noopReplayGuard{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DispatcherService{
		webhookRepo:  webhookRepo,
		logRepo:      logRepo,
		intgRepo:     intgRepo,
		integrations: integrations,
		translator:   NewTranslator(),
		replayGuard:  replayGuard,
		httpClient:   &http.Client{Timeout: timeout},
		timeout:      timeout,
		logger:       log.With("service", "dispatcher"),
	}
}

// Dispatch resolves the secret, selects the owner's matching active webhooks
// and fans the event out to all of them. A bad secret returns ErrInvalidSecret
// and writes nothing. Zero matches is a success with an empty outcome list.
func (s *DispatcherService) Dispatch(ctx context.Context, secretKey string, event Event) ([]Outcome, error) {
	entry, err := s.webhookRepo.GetBySecret(ctx, secretKey)
	if err != nil {
		metrics.WebhookSecretMismatches.Inc()
		return nil, err
	}

	if event.EventType == "" {
		return nil, fmt.Errorf("%w: event type is required", shared.ErrValidation)
	}

	targets, err := s.matchWebhooks(ctx, entry.UserID(), event)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		s.logger.Info("no webhooks matched event",
			"user_id", entry.UserID().String(),
			"event_type", event.EventType,
		)
		return []Outcome{}, nil
	}

	if event.EventID != "" && !s.replayGuard.FirstSeen(ctx, entry.ID().String(), event.EventID) {
		metrics.WebhookReplaysBlocked.Inc()
		s.logger.Info("duplicate event blocked",
			"webhook_id", entry.ID().String(),
			"event_id", event.EventID,
		)
		return []Outcome{{
			WebhookID: entry.ID().String(),
			Name:      entry.Name(),
			Success:   true,
			Message:   fmt.Sprintf("duplicate event %s ignored", event.EventID),
		}}, nil
	}

	outcomes := make([]Outcome, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target *webhook.Webhook) {
			defer wg.Done()
			outcomes[i] = s.dispatchOne(ctx, target, event)
		}(i, target)
	}
	wg.Wait()

	return outcomes, nil
}

// matchWebhooks selects the user's active webhooks whose source and event
// list accept this event.
func (s *DispatcherService) matchWebhooks(ctx context.Context, userID shared.ID, event Event) ([]*webhook.Webhook, error) {
	active := true
	all, err := s.webhookRepo.List(ctx, webhook.Filter{UserID: &userID, IsActive: &active})
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}

	matched := make([]*webhook.Webhook, 0, len(all))
	for _, w := range all {
		if event.SourceType != "" && w.SourceType() != event.SourceType {
			continue
		}
		if event.SourceProvider != "" && w.SourceProvider() != "" && w.SourceProvider() != event.SourceProvider {
			continue
		}
		if !w.AcceptsEvent(event.EventType) {
			continue
		}
		matched = append(matched, w)
	}
	return matched, nil
}

// dispatchOne runs the full pipeline for a single webhook and always returns
// an outcome. Errors are captured in the outcome and the dispatch log, never
// propagated.
func (s *DispatcherService) dispatchOne(ctx context.Context, w *webhook.Webhook, event Event) Outcome {
	start := time.Now()

	statusCode, response, err := s.deliver(ctx, w, event)

	duration := time.Since(start)
	outcome := Outcome{
		WebhookID:  w.ID().String(),
		Name:       w.Name(),
		Success:    err == nil && statusCode >= 200 && statusCode < 300,
		StatusCode: statusCode,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		outcome.Message = err.Error()
	} else {
		outcome.Message = "delivered"
	}

	status := "success"
	if !outcome.Success {
		status = "failure"
	}
	metrics.WebhookDispatchTotal.WithLabelValues(event.EventType, status).Inc()
	metrics.WebhookDispatchDuration.WithLabelValues(event.EventType).Observe(duration.Seconds())

	entry := &webhook.DispatchLog{
		ID:               shared.NewID(),
		WebhookID:        w.ID(),
		UserID:           w.UserID(),
		EventType:        event.EventType,
		EventID:          event.EventID,
		RequestPayload:   event.Payload,
		ResponsePayload:  response,
		StatusCode:       statusCode,
		ProcessingTimeMs: duration.Milliseconds(),
		CreatedAt:        time.Now(),
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if logErr := s.logRepo.Append(ctx, entry); logErr != nil {
		s.logger.Error("failed to append dispatch log",
			"webhook_id", w.ID().String(),
			"error", logErr,
		)
	}

	if err != nil {
		s.logger.Warn("dispatch failed",
			"webhook_id", w.ID().String(),
			"event_type", event.EventType,
			"status_code", statusCode,
			"error", err,
		)
	}

	return outcome
}

// deliver routes the event to the webhook's destination. Delivery destinations
// go through a provider client; everything else is forwarded to the webhook's
// endpoint URL.
func (s *DispatcherService) deliver(ctx context.Context, w *webhook.Webhook, event Event) (int, map[string]any, error) {
	if w.DestinationType() == webhook.EndpointDelivery {
		return s.deliverToProvider(ctx, w, event)
	}
	if w.EndpointURL() != "" {
		return s.forwardToEndpoint(ctx, w, event)
	}
	return http.StatusBadGateway, nil, fmt.Errorf("webhook has no destination endpoint")
}

func (s *DispatcherService) deliverToProvider(ctx context.Context, w *webhook.Webhook, event Event) (int, map[string]any, error) {
	intg, err := s.intgRepo.FindActive(ctx, w.UserID(), integration.Type(w.DestinationType()), w.DestinationProvider())
	if err != nil {
		return http.StatusBadGateway, nil, fmt.Errorf("no active %s integration for provider %s: %w", w.DestinationType(), w.DestinationProvider(), err)
	}

	client, err := s.integrations.BuildClient(intg)
	if err != nil {
		return http.StatusBadGateway, nil, fmt.Errorf("provider client setup: %w", err)
	}

	req, err := s.translator.TranslateOrder(event.EventType, event.Payload, intg)
	if err != nil {
		return http.StatusBadRequest, nil, err
	}

	provider := string(intg.Provider())
	opStart := time.Now()

	if intg.SettingBool("quote_first") {
		quote, err := client.GetQuote(ctx, dom.QuoteRequest{
			Pickup:     req.Pickup,
			Dropoff:    req.Dropoff,
			Items:      req.Items,
			OrderValue: req.OrderValue,
			Currency:   req.Currency,
		})
		if err != nil {
			metrics.ProviderRequestsTotal.WithLabelValues(provider, "get_quote", "failure").Inc()
			return http.StatusBadGateway, nil, fmt.Errorf("quote: %w", err)
		}
		metrics.ProviderRequestsTotal.WithLabelValues(provider, "get_quote", "success").Inc()
		req.QuoteID = quote.ID
	}

	created, err := client.CreateDelivery(ctx, *req)
	metrics.ProviderRequestDuration.WithLabelValues(provider, "create_delivery").Observe(time.Since(opStart).Seconds())
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(provider, "create_delivery", "failure").Inc()
		var provErr *infradelivery.ProviderError
		if errors.As(err, &provErr) && provErr.StatusCode > 0 {
			return provErr.StatusCode, nil, err
		}
		return http.StatusBadGateway, nil, err
	}
	metrics.ProviderRequestsTotal.WithLabelValues(provider, "create_delivery", "success").Inc()

	response := map[string]any{
		"delivery_id":  created.ID,
		"status":       string(created.Status),
		"fee":          created.Fee,
		"currency":     created.Currency,
		"tracking_url": created.TrackingURL,
	}
	return http.StatusOK, response, nil
}

// forwardToEndpoint POSTs the raw payload to the webhook's custom endpoint,
// signed with the webhook secret so receivers can verify origin.
func (s *DispatcherService) forwardToEndpoint(ctx context.Context, w *webhook.Webhook, event Event) (int, map[string]any, error) {
	body, err := json.Marshal(event.Payload)
	if err != nil {
		return http.StatusBadRequest, nil, fmt.Errorf("%w: unserializable payload", shared.ErrValidation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.EndpointURL(), bytes.NewReader(body))
	if err != nil {
		return http.StatusBadGateway, nil, fmt.Errorf("build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Platewire-Event", event.EventType)
	req.Header.Set("X-Platewire-Signature", crypto.SignPayload(w.SecretKey(), body))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return http.StatusBadGateway, nil, fmt.Errorf("forward to endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var response map[string]any
	if len(respBody) > 0 {
		if jsonErr := json.Unmarshal(respBody, &response); jsonErr != nil {
			response = map[string]any{"body": string(respBody)}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, response, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, response, nil
}
