package routes

import (
	"github.com/platewire/api/internal/infra/http/handler"
)

// registerIntegrationRoutes registers authenticated integration management
// endpoints. Credentials are write-only: responses never echo them.
func registerIntegrationRoutes(router Router, h *handler.IntegrationHandler, authMiddleware Middleware) {
	router.Group("/api/v1/integrations", func(r Router) {
		r.POST("/", h.Create)
		r.GET("/", h.List)
		r.GET("/{id}", h.Get)
		r.PATCH("/{id}", h.Update)
		r.DELETE("/{id}", h.Delete)
		r.POST("/{id}/toggle", h.Toggle)
		r.POST("/{id}/test", h.Test)
	}, authMiddleware)
}
