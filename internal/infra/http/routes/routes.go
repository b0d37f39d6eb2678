// Package routes registers all HTTP routes for the API.
// Routes are organized by domain for maintainability.
package routes

import (
	infrahttp "github.com/platewire/api/internal/infra/http"
	"github.com/platewire/api/internal/infra/http/handler"
	"github.com/platewire/api/internal/infra/http/middleware"
	"github.com/platewire/api/pkg/jwt"
	"github.com/platewire/api/pkg/logger"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds all HTTP handlers for route registration.
type Handlers struct {
	Health      *handler.HealthHandler
	Integration *handler.IntegrationHandler
	Webhook     *handler.WebhookHandler
	Delivery    *handler.DeliveryHandler
}

// Register registers all application routes.
// This keeps route definitions in the infrastructure layer, not in main.
//
// Routes are organized across multiple files by domain:
//   - misc.go: Health, readiness, Prometheus metrics
//   - webhooks.go: Webhook management and the public inbound receiver
//   - integrations.go: Provider integration management
//   - delivery.go: On-demand courier operations
func Register(
	router Router,
	h Handlers,
	tokenGenerator *jwt.Generator,
	log *logger.Logger,
) {
	authMiddleware := middleware.Auth(tokenGenerator, log)

	registerHealthRoutes(router, h.Health)

	// The inbound receiver is public: the path secret is the only
	// authentication, so it must not sit behind the session middleware.
	if h.Webhook != nil {
		registerReceiverRoutes(router, h.Webhook)
		registerWebhookRoutes(router, h.Webhook, authMiddleware)
	}

	if h.Integration != nil {
		registerIntegrationRoutes(router, h.Integration, authMiddleware)
	}

	if h.Delivery != nil {
		registerDeliveryRoutes(router, h.Delivery, authMiddleware)
	}
}
