package app

import (
	"context"
	"fmt"

	infradelivery "github.com/platewire/api/internal/infra/delivery"
	"github.com/platewire/api/internal/metrics"
	dom "github.com/platewire/api/pkg/domain/delivery"
	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/logger"
)

// DeliveryService exposes direct delivery actions against a caller-chosen
// integration. Thin orchestration over the provider client; all calls are
// ownership-checked and require the integration to be active.
type DeliveryService struct {
	integrations *IntegrationService
	logger       *logger.Logger
}

// NewDeliveryService creates a new DeliveryService.
func NewDeliveryService(integrations *IntegrationService, log *logger.Logger) *DeliveryService {
	return &DeliveryService{
		integrations: integrations,
		logger:       log.With("service", "delivery"),
	}
}

// client resolves the integration and builds its provider client.
func (s *DeliveryService) client(ctx context.Context, integrationID, userID string) (infradelivery.Client, *integration.Integration, error) {
	intg, err := s.integrations.GetIntegration(ctx, integrationID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !intg.IsActive() {
		return nil, nil, fmt.Errorf("%w: integration %s", integration.ErrIntegrationInactive, integrationID)
	}

	c, err := s.integrations.BuildClient(intg)
	if err != nil {
		return nil, nil, fmt.Errorf("provider client setup: %w", err)
	}
	return c, intg, nil
}

// Quote prices a prospective delivery.
func (s *DeliveryService) Quote(ctx context.Context, integrationID, userID string, req dom.QuoteRequest) (*dom.Quote, error) {
	c, intg, err := s.client(ctx, integrationID, userID)
	if err != nil {
		return nil, err
	}

	quote, err := c.GetQuote(ctx, req)
	s.record(intg.Provider(), "get_quote", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("quote obtained",
		"integration_id", integrationID,
		"quote_id", quote.ID,
		"fee", quote.Fee,
	)
	return quote, nil
}

// Create books a delivery.
func (s *DeliveryService) Create(ctx context.Context, integrationID, userID string, req dom.CreateRequest) (*dom.Delivery, error) {
	c, intg, err := s.client(ctx, integrationID, userID)
	if err != nil {
		return nil, err
	}

	created, err := c.CreateDelivery(ctx, req)
	s.record(intg.Provider(), "create_delivery", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("delivery created",
		"integration_id", integrationID,
		"delivery_id", created.ID,
		"status", string(created.Status),
	)
	return created, nil
}

// Status reads the current state of a delivery.
func (s *DeliveryService) Status(ctx context.Context, integrationID, userID, deliveryID string) (*dom.TrackedDelivery, error) {
	c, intg, err := s.client(ctx, integrationID, userID)
	if err != nil {
		return nil, err
	}

	tracked, err := c.GetDeliveryStatus(ctx, deliveryID)
	s.record(intg.Provider(), "get_status", err)
	if err != nil {
		return nil, err
	}
	return tracked, nil
}

// Cancel cancels a delivery. A terminal delivery surfaces ErrTerminalState.
func (s *DeliveryService) Cancel(ctx context.Context, integrationID, userID, deliveryID string) (*dom.CancelResult, error) {
	c, intg, err := s.client(ctx, integrationID, userID)
	if err != nil {
		return nil, err
	}

	result, err := c.CancelDelivery(ctx, deliveryID)
	s.record(intg.Provider(), "cancel_delivery", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("delivery canceled",
		"integration_id", integrationID,
		"delivery_id", deliveryID,
	)
	return result, nil
}

func (s *DeliveryService) record(provider, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
}
