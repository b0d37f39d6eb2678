package main

import (
	"github.com/platewire/api/internal/infra/http/handler"
	"github.com/platewire/api/internal/infra/http/routes"
	"github.com/platewire/api/internal/infra/postgres"
	"github.com/platewire/api/internal/infra/redis"
	"github.com/platewire/api/pkg/logger"
	"github.com/platewire/api/pkg/validator"
)

// HandlerDeps holds dependencies for handler construction.
type HandlerDeps struct {
	Log         *logger.Logger
	Validator   *validator.Validator
	DB          *postgres.DB
	RedisClient *redis.Client
	Services    *Services
}

// NewHandlers creates all HTTP handlers.
func NewHandlers(deps *HandlerDeps) routes.Handlers {
	return routes.Handlers{
		Health: handler.NewHealthHandler(
			handler.WithDatabase(deps.DB),
			handler.WithRedis(deps.RedisClient),
		),
		Integration: handler.NewIntegrationHandler(deps.Services.Integration, deps.Validator, deps.Log),
		Webhook:     handler.NewWebhookHandler(deps.Services.Webhook, deps.Services.Dispatcher, deps.Validator, deps.Log),
		Delivery:    handler.NewDeliveryHandler(deps.Services.Delivery, deps.Validator, deps.Log),
	}
}
