package routes

import (
	"github.com/platewire/api/internal/infra/http/handler"
	"github.com/platewire/api/internal/infra/http/middleware"
)

// registerReceiverRoutes registers the public inbound event receiver.
// External platforms POST events here; the unguessable path secret is the
// only authentication. Some platforms gzip their payloads, so the body is
// inflated before decoding.
func registerReceiverRoutes(router Router, h *handler.WebhookHandler) {
	router.POST("/api/webhook/{secretKey}", h.Receive, middleware.Decompress(nil))
}

// registerWebhookRoutes registers authenticated webhook management endpoints.
func registerWebhookRoutes(router Router, h *handler.WebhookHandler, authMiddleware Middleware) {
	router.Group("/api/v1/webhooks", func(r Router) {
		r.POST("/", h.Create)
		r.GET("/", h.List)
		r.POST("/setup/uberdirect", h.SetupUberDirect)
		r.GET("/{id}", h.Get)
		r.PATCH("/{id}", h.Update)
		r.DELETE("/{id}", h.Delete)
		r.POST("/{id}/toggle", h.Toggle)
		r.POST("/{id}/rotate-secret", h.RotateSecret)
		r.POST("/{id}/test", h.Test)
		r.GET("/{id}/logs", h.ListLogs)
	}, authMiddleware)
}
