package routes

import (
	"github.com/platewire/api/internal/infra/http/handler"
)

// registerDeliveryRoutes registers authenticated courier operation endpoints.
func registerDeliveryRoutes(router Router, h *handler.DeliveryHandler, authMiddleware Middleware) {
	router.Group("/api/v1/delivery", func(r Router) {
		r.POST("/quote", h.Quote)
		r.POST("/create", h.Create)
		r.GET("/{id}/status", h.Status)
		r.POST("/{id}/cancel", h.Cancel)
	}, authMiddleware)
}
