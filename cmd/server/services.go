package main

import (
	"fmt"

	"github.com/platewire/api/internal/app"
	"github.com/platewire/api/internal/config"
	infradelivery "github.com/platewire/api/internal/infra/delivery"
	"github.com/platewire/api/internal/infra/redis"
	"github.com/platewire/api/pkg/crypto"
	"github.com/platewire/api/pkg/logger"
)

// Services holds all application services.
type Services struct {
	Integration *app.IntegrationService
	Webhook     *app.WebhookService
	Dispatcher  *app.DispatcherService
	Delivery    *app.DeliveryService
}

// ServiceDeps holds dependencies for service construction.
type ServiceDeps struct {
	Config      *config.Config
	Log         *logger.Logger
	Repos       *Repositories
	RedisClient *redis.Client
}

// NewServices wires all application services.
func NewServices(deps *ServiceDeps) (*Services, error) {
	cfg := deps.Config
	log := deps.Log

	encryptor, err := newEncryptor(cfg, log)
	if err != nil {
		return nil, err
	}

	integrationService := app.NewIntegrationService(
		deps.Repos.Integration,
		encryptor,
		infradelivery.NewClientFactory(),
		log,
		app.WithProviderDefaults(app.ProviderDefaults{
			UberDirectBaseURL: cfg.Delivery.UberDirectBaseURL,
			UberDirectAuthURL: cfg.Delivery.UberDirectAuthURL,
			HTTPTimeout:       cfg.Delivery.HTTPTimeout,
			UseFakeProvider:   cfg.Delivery.UseFakeProvider,
		}),
	)

	replayGuard := redis.NewReplayGuard(deps.RedisClient, cfg.Webhook.ReplayWindow)

	dispatcherService := app.NewDispatcherService(
		deps.Repos.Webhook,
		deps.Repos.WebhookLog,
		deps.Repos.Integration,
		integrationService,
		replayGuard,
		cfg.Webhook.DispatchTimeout,
		log,
	)

	webhookService := app.NewWebhookService(
		deps.Repos.Webhook,
		deps.Repos.WebhookLog,
		deps.Repos.Integration,
		dispatcherService,
		cfg.Webhook.PublicBaseURL,
		log,
	)

	deliveryService := app.NewDeliveryService(integrationService, log)

	return &Services{
		Integration: integrationService,
		Webhook:     webhookService,
		Dispatcher:  dispatcherService,
		Delivery:    deliveryService,
	}, nil
}

// newEncryptor builds the credential encryptor from configuration. Missing
// keys fall back to plaintext storage outside production; config validation
// rejects that in production.
func newEncryptor(cfg *config.Config, log *logger.Logger) (crypto.Encryptor, error) {
	if !cfg.Encryption.IsConfigured() {
		log.Warn("credential encryption key not configured, storing credentials in plaintext")
		return crypto.NewNoOpEncryptor(), nil
	}

	switch cfg.Encryption.KeyFormat {
	case "hex":
		c, err := crypto.NewCipherFromHex(cfg.Encryption.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		return c, nil
	case "base64":
		c, err := crypto.NewCipherFromBase64(cfg.Encryption.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		return c, nil
	default:
		c, err := crypto.NewCipher([]byte(cfg.Encryption.Key))
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		return c, nil
	}
}
