package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/domain/webhook"
)

// memIntegrationRepo is an in-memory integration.Repository for tests.
type memIntegrationRepo struct {
	mu    sync.Mutex
	items map[string]*integration.Integration
}

func newMemIntegrationRepo() *memIntegrationRepo {
	return &memIntegrationRepo{items: make(map[string]*integration.Integration)}
}

func (r *memIntegrationRepo) Create(_ context.Context, i *integration.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[i.ID().String()] = i
	return nil
}

func (r *memIntegrationRepo) GetByID(_ context.Context, id, userID integration.ID) (*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.items[id.String()]
	if !ok || i.UserID() != userID {
		return nil, integration.ErrIntegrationNotFound
	}
	return i, nil
}

func (r *memIntegrationRepo) List(_ context.Context, filter integration.Filter) ([]*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*integration.Integration
	for _, i := range r.items {
		if filter.UserID != nil && i.UserID() != *filter.UserID {
			continue
		}
		if filter.Type != nil && i.Type() != *filter.Type {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (r *memIntegrationRepo) Update(_ context.Context, i *integration.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[i.ID().String()]; !ok {
		return integration.ErrIntegrationNotFound
	}
	r.items[i.ID().String()] = i
	return nil
}

func (r *memIntegrationRepo) Delete(_ context.Context, id, userID integration.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.items[id.String()]
	if !ok || i.UserID() != userID {
		return integration.ErrIntegrationNotFound
	}
	delete(r.items, id.String())
	return nil
}

func (r *memIntegrationRepo) FindActive(_ context.Context, userID integration.ID, t integration.Type, provider string) (*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.items {
		if i.UserID() == userID && i.Type() == t && i.Provider() == provider && i.IsActive() {
			return i, nil
		}
	}
	return nil, integration.ErrIntegrationNotFound
}

// memWebhookRepo is an in-memory webhook.Repository for tests.
type memWebhookRepo struct {
	mu    sync.Mutex
	items map[string]*webhook.Webhook
}

func newMemWebhookRepo() *memWebhookRepo {
	return &memWebhookRepo{items: make(map[string]*webhook.Webhook)}
}

func (r *memWebhookRepo) Create(_ context.Context, w *webhook.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.SecretKey() == w.SecretKey() {
			return fmt.Errorf("%w: secret key", shared.ErrAlreadyExists)
		}
	}
	r.items[w.ID().String()] = w
	return nil
}

func (r *memWebhookRepo) GetByID(_ context.Context, id webhook.ID, userID shared.ID) (*webhook.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[id.String()]
	if !ok || w.UserID() != userID {
		return nil, webhook.ErrWebhookNotFound
	}
	return w, nil
}

func (r *memWebhookRepo) GetBySecret(_ context.Context, secretKey string) (*webhook.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.items {
		if w.SecretKey() == secretKey {
			return w, nil
		}
	}
	return nil, webhook.ErrInvalidSecret
}

func (r *memWebhookRepo) List(_ context.Context, filter webhook.Filter) ([]*webhook.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*webhook.Webhook
	for _, w := range r.items {
		if filter.UserID != nil && w.UserID() != *filter.UserID {
			continue
		}
		if filter.SourceType != nil && w.SourceType() != *filter.SourceType {
			continue
		}
		if filter.IsActive != nil && w.IsActive() != *filter.IsActive {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (r *memWebhookRepo) Update(_ context.Context, w *webhook.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[w.ID().String()]; !ok {
		return webhook.ErrWebhookNotFound
	}
	r.items[w.ID().String()] = w
	return nil
}

func (r *memWebhookRepo) Delete(_ context.Context, id webhook.ID, userID shared.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[id.String()]
	if !ok || w.UserID() != userID {
		return webhook.ErrWebhookNotFound
	}
	delete(r.items, id.String())
	return nil
}

// memLogRepo is an in-memory webhook.LogRepository for tests.
type memLogRepo struct {
	mu      sync.Mutex
	entries []*webhook.DispatchLog
	failing bool
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{}
}

func (r *memLogRepo) Append(_ context.Context, entry *webhook.DispatchLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return fmt.Errorf("log store unavailable")
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memLogRepo) List(_ context.Context, filter webhook.LogFilter) ([]*webhook.DispatchLog, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*webhook.DispatchLog
	for _, e := range r.entries {
		if e.UserID != filter.UserID {
			continue
		}
		if filter.WebhookID != nil && e.WebhookID != *filter.WebhookID {
			continue
		}
		if filter.EventType != nil && e.EventType != *filter.EventType {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (r *memLogRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// denyReplayGuard reports every event as already seen.
type denyReplayGuard struct{}

func (denyReplayGuard) FirstSeen(context.Context, string, string) bool { return false }
