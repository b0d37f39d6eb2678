package app

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/domain/webhook"
	"github.com/platewire/api/pkg/logger"
)

type webhookFixture struct {
	*dispatcherFixture
	service *WebhookService
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	df := newDispatcherFixture(t, nil)
	service := NewWebhookService(df.webhookRepo, df.logRepo, df.intgRepo, df.dispatcher, "https://api.platewire.example", logger.NewNop())
	return &webhookFixture{dispatcherFixture: df, service: service}
}

func TestCreateWebhook(t *testing.T) {
	f := newWebhookFixture(t)

	w, err := f.service.CreateWebhook(context.Background(), CreateWebhookInput{
		UserID:              f.userID.String(),
		Name:                "order forwarder",
		SourceType:          "ecommerce",
		SourceProvider:      "shopify",
		DestinationType:     "delivery",
		DestinationProvider: "uberdirect",
		EventTypes:          []string{webhook.EventOrderCreated},
	})
	require.NoError(t, err)

	assert.True(t, w.IsActive())
	assert.Len(t, w.SecretKey(), 64)
	_, err = hex.DecodeString(w.SecretKey())
	assert.NoError(t, err, "secret key must be hex")
}

func TestCreateWebhook_UniqueSecrets(t *testing.T) {
	f := newWebhookFixture(t)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		w, err := f.service.CreateWebhook(context.Background(), CreateWebhookInput{
			UserID:          f.userID.String(),
			Name:            "hook",
			SourceType:      "ecommerce",
			DestinationType: "delivery",
			EventTypes:      []string{webhook.EventOrderCreated},
		})
		require.NoError(t, err)
		assert.False(t, seen[w.SecretKey()])
		seen[w.SecretKey()] = true
	}
}

func TestCreateWebhook_Validation(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateWebhook(ctx, CreateWebhookInput{
		UserID:          f.userID.String(),
		Name:            "hook",
		SourceType:      "spaceship",
		DestinationType: "delivery",
		EventTypes:      []string{webhook.EventOrderCreated},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.service.CreateWebhook(ctx, CreateWebhookInput{
		UserID:          f.userID.String(),
		Name:            "hook",
		SourceType:      "ecommerce",
		DestinationType: "delivery",
		EventTypes:      nil,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.service.CreateWebhook(ctx, CreateWebhookInput{
		UserID:          f.userID.String(),
		Name:            "hook",
		SourceType:      "ecommerce",
		DestinationType: "delivery",
		EventTypes:      []string{"order.exploded"},
	})
	assert.ErrorIs(t, err, webhook.ErrUnknownEventType)
}

func TestGetWebhook_CrossUserIsNotFound(t *testing.T) {
	f := newWebhookFixture(t)

	w, err := f.service.CreateWebhook(context.Background(), CreateWebhookInput{
		UserID:          f.userID.String(),
		Name:            "hook",
		SourceType:      "ecommerce",
		DestinationType: "delivery",
		EventTypes:      []string{webhook.EventOrderCreated},
	})
	require.NoError(t, err)

	_, err = f.service.GetWebhook(context.Background(), w.ID().String(), shared.NewID().String())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBuildCallbackURL(t *testing.T) {
	f := newWebhookFixture(t)

	w, err := f.service.CreateWebhook(context.Background(), CreateWebhookInput{
		UserID:          f.userID.String(),
		Name:            "hook",
		SourceType:      "ecommerce",
		DestinationType: "delivery",
		EventTypes:      []string{webhook.EventOrderCreated},
	})
	require.NoError(t, err)

	url := f.service.BuildCallbackURL(w)
	assert.Equal(t, "https://api.platewire.example/api/webhook/"+w.SecretKey(), url)
}

func TestRotateSecret(t *testing.T) {
	f := newWebhookFixture(t)

	w, err := f.service.CreateWebhook(context.Background(), CreateWebhookInput{
		UserID:          f.userID.String(),
		Name:            "hook",
		SourceType:      "ecommerce",
		DestinationType: "delivery",
		EventTypes:      []string{webhook.EventOrderCreated},
	})
	require.NoError(t, err)
	before := w.SecretKey()

	rotated, err := f.service.RotateSecret(context.Background(), w.ID().String(), f.userID.String())
	require.NoError(t, err)
	assert.NotEqual(t, before, rotated.SecretKey())
	assert.Len(t, rotated.SecretKey(), 64)
}

func TestSetupUberDirect(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	_, err := f.service.SetupUberDirect(ctx, f.userID.String())
	require.Error(t, err, "setup requires an active integration")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	intg := integration.NewIntegration(shared.NewID(), f.userID, integration.TypeDelivery, integration.ProviderUberDirect, integration.EnvironmentSandbox)
	intg.SetActive(true)
	require.NoError(t, f.intgRepo.Create(ctx, intg))

	w, err := f.service.SetupUberDirect(ctx, f.userID.String())
	require.NoError(t, err)

	assert.Equal(t, webhook.EndpointEcommerce, w.SourceType())
	assert.Equal(t, webhook.EndpointDelivery, w.DestinationType())
	assert.Equal(t, integration.ProviderUberDirect, w.DestinationProvider())
	assert.Equal(t, []string{webhook.EventOrderCreated}, w.EventTypes())
	assert.NotEmpty(t, w.SecretKey())
}

func TestTestWebhook(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	intg := integration.NewIntegration(shared.NewID(), f.userID, integration.TypeDelivery, "fake", integration.EnvironmentSandbox)
	intg.SetCredentials(`{"client_id":"id","client_secret":"secret","customer_id":"cust"}`)
	intg.SetSettings(map[string]any{"store_address": "12 Kitchen Lane, Springfield"})
	intg.SetActive(true)
	require.NoError(t, f.intgRepo.Create(ctx, intg))

	w, err := f.service.CreateWebhook(ctx, CreateWebhookInput{
		UserID:              f.userID.String(),
		Name:                "orders",
		SourceType:          "ecommerce",
		DestinationType:     "delivery",
		DestinationProvider: "fake",
		EventTypes:          []string{webhook.EventOrderCreated},
	})
	require.NoError(t, err)

	result, err := f.service.TestWebhook(ctx, w.ID().String(), f.userID.String())
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.Len(t, result.Outcomes, 1)
	assert.True(t, result.Outcomes[0].Success)
	assert.Equal(t, 1, f.logRepo.count(), "test dispatches are logged like real ones")
}

func TestListLogs(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	w, err := f.service.CreateWebhook(ctx, CreateWebhookInput{
		UserID:          f.userID.String(),
		Name:            "orders",
		SourceType:      "ecommerce",
		DestinationType: "delivery",
		EventTypes:      []string{webhook.EventOrderCreated},
	})
	require.NoError(t, err)

	webhookID := w.ID()
	require.NoError(t, f.logRepo.Append(ctx, &webhook.DispatchLog{
		ID:         shared.NewID(),
		WebhookID:  webhookID,
		UserID:     f.userID,
		EventType:  webhook.EventOrderCreated,
		StatusCode: 200,
		CreatedAt:  time.Now(),
	}))

	entries, total, err := f.service.ListLogs(ctx, w.ID().String(), f.userID.String(), 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, webhookID, entries[0].WebhookID)

	// Another user cannot read the logs.
	_, _, err = f.service.ListLogs(ctx, w.ID().String(), shared.NewID().String(), 50, 0)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
