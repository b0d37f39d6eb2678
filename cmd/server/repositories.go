package main

import (
	"github.com/platewire/api/internal/infra/postgres"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Integration *postgres.IntegrationRepository
	Webhook     *postgres.WebhookRepository
	WebhookLog  *postgres.WebhookLogRepository
}

// NewRepositories creates all repositories backed by the given database.
func NewRepositories(db *postgres.DB) *Repositories {
	return &Repositories{
		Integration: postgres.NewIntegrationRepository(db),
		Webhook:     postgres.NewWebhookRepository(db),
		WebhookLog:  postgres.NewWebhookLogRepository(db),
	}
}
