package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infradelivery "github.com/platewire/api/internal/infra/delivery"
	"github.com/platewire/api/pkg/crypto"
	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/logger"
)

func newIntegrationService(t *testing.T) (*IntegrationService, *memIntegrationRepo) {
	t.Helper()

	cipher, err := crypto.NewCipher([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	repo := newMemIntegrationRepo()
	return NewIntegrationService(repo, cipher, infradelivery.NewClientFactory(), logger.NewNop()), repo
}

func TestCreateIntegration_EncryptsCredentials(t *testing.T) {
	service, _ := newIntegrationService(t)
	userID := shared.NewID()

	intg, err := service.CreateIntegration(context.Background(), CreateIntegrationInput{
		UserID:      userID.String(),
		Type:        "delivery",
		Provider:    "uberdirect",
		Environment: "sandbox",
		Credentials: map[string]string{
			"client_id":     "cid",
			"client_secret": "supersecret",
			"customer_id":   "cust-1",
		},
	})
	require.NoError(t, err)

	assert.NotContains(t, intg.CredentialsEncrypted(), "supersecret")
	assert.False(t, intg.IsActive(), "integrations start inactive")

	creds, err := service.decryptCredentials(intg)
	require.NoError(t, err)
	assert.Equal(t, "supersecret", creds["client_secret"])
}

func TestCreateIntegration_Validation(t *testing.T) {
	service, _ := newIntegrationService(t)
	ctx := context.Background()
	userID := shared.NewID().String()

	_, err := service.CreateIntegration(ctx, CreateIntegrationInput{
		UserID:      userID,
		Type:        "blockchain",
		Provider:    "uberdirect",
		Credentials: map[string]string{"client_id": "x"},
	})
	assert.ErrorIs(t, err, integration.ErrInvalidType)

	_, err = service.CreateIntegration(ctx, CreateIntegrationInput{
		UserID:      userID,
		Type:        "delivery",
		Provider:    "uberdirect",
		Environment: "staging",
		Credentials: map[string]string{"client_id": "x"},
	})
	assert.ErrorIs(t, err, integration.ErrInvalidEnvironment)

	_, err = service.CreateIntegration(ctx, CreateIntegrationInput{
		UserID:   userID,
		Type:     "delivery",
		Provider: "uberdirect",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateIntegration_CredentialsReplacedWholesale(t *testing.T) {
	service, _ := newIntegrationService(t)
	ctx := context.Background()
	userID := shared.NewID()

	intg, err := service.CreateIntegration(ctx, CreateIntegrationInput{
		UserID:   userID.String(),
		Type:     "delivery",
		Provider: "uberdirect",
		Credentials: map[string]string{
			"client_id":     "cid",
			"client_secret": "old-secret",
			"customer_id":   "cust-1",
		},
	})
	require.NoError(t, err)

	updated, err := service.UpdateIntegration(ctx, intg.ID().String(), userID.String(), UpdateIntegrationInput{
		Credentials: map[string]string{"client_id": "new-cid"},
	})
	require.NoError(t, err)

	creds, err := service.decryptCredentials(updated)
	require.NoError(t, err)
	assert.Equal(t, "new-cid", creds["client_id"])
	assert.NotContains(t, creds, "client_secret", "old keys do not survive a credentials update")
	assert.NotContains(t, creds, "customer_id")
}

func TestUpdateIntegration_PartialFieldsPreserved(t *testing.T) {
	service, _ := newIntegrationService(t)
	ctx := context.Background()
	userID := shared.NewID()

	intg, err := service.CreateIntegration(ctx, CreateIntegrationInput{
		UserID:      userID.String(),
		Type:        "delivery",
		Provider:    "uberdirect",
		Credentials: map[string]string{"client_id": "cid"},
		Settings:    map[string]any{"store_address": "12 Kitchen Lane"},
	})
	require.NoError(t, err)

	env := "live"
	updated, err := service.UpdateIntegration(ctx, intg.ID().String(), userID.String(), UpdateIntegrationInput{
		Environment: &env,
	})
	require.NoError(t, err)

	assert.Equal(t, integration.EnvironmentLive, updated.Environment())
	assert.Equal(t, "12 Kitchen Lane", updated.SettingString("store_address"))

	creds, err := service.decryptCredentials(updated)
	require.NoError(t, err)
	assert.Equal(t, "cid", creds["client_id"], "credentials untouched when not supplied")
}

func TestToggleIntegration(t *testing.T) {
	service, _ := newIntegrationService(t)
	ctx := context.Background()
	userID := shared.NewID()

	intg, err := service.CreateIntegration(ctx, CreateIntegrationInput{
		UserID:      userID.String(),
		Type:        "delivery",
		Provider:    "uberdirect",
		Credentials: map[string]string{"client_id": "cid"},
	})
	require.NoError(t, err)
	require.False(t, intg.IsActive())

	toggled, err := service.ToggleIntegration(ctx, intg.ID().String(), userID.String())
	require.NoError(t, err)
	assert.True(t, toggled.IsActive())

	toggled, err = service.ToggleIntegration(ctx, intg.ID().String(), userID.String())
	require.NoError(t, err)
	assert.False(t, toggled.IsActive())
}

func TestGetIntegration_CrossUserIsNotFound(t *testing.T) {
	service, _ := newIntegrationService(t)
	ctx := context.Background()
	userID := shared.NewID()

	intg, err := service.CreateIntegration(ctx, CreateIntegrationInput{
		UserID:      userID.String(),
		Type:        "delivery",
		Provider:    "uberdirect",
		Credentials: map[string]string{"client_id": "cid"},
	})
	require.NoError(t, err)

	_, err = service.GetIntegration(ctx, intg.ID().String(), shared.NewID().String())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListIntegrations_TypeFilter(t *testing.T) {
	service, _ := newIntegrationService(t)
	ctx := context.Background()
	userID := shared.NewID()

	for _, spec := range []struct{ typ, provider string }{
		{"delivery", "uberdirect"},
		{"ecommerce", "shopify"},
	} {
		_, err := service.CreateIntegration(ctx, CreateIntegrationInput{
			UserID:      userID.String(),
			Type:        spec.typ,
			Provider:    spec.provider,
			Credentials: map[string]string{"client_id": "cid"},
		})
		require.NoError(t, err)
	}

	all, err := service.ListIntegrations(ctx, ListIntegrationsInput{UserID: userID.String()})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	deliveries, err := service.ListIntegrations(ctx, ListIntegrationsInput{UserID: userID.String(), Type: "delivery"})
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, "uberdirect", deliveries[0].Provider())
}

func TestTestIntegration_FakeProvider(t *testing.T) {
	service, _ := newIntegrationService(t)
	ctx := context.Background()
	userID := shared.NewID()

	intg, err := service.CreateIntegration(ctx, CreateIntegrationInput{
		UserID:      userID.String(),
		Type:        "delivery",
		Provider:    "fake",
		Credentials: map[string]string{"client_id": "cid"},
	})
	require.NoError(t, err)

	result, err := service.TestIntegration(ctx, intg.ID().String(), userID.String())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "connection verified", result.Message)
}

func TestTestIntegration_UnsupportedProvider(t *testing.T) {
	service, _ := newIntegrationService(t)
	ctx := context.Background()
	userID := shared.NewID()

	intg, err := service.CreateIntegration(ctx, CreateIntegrationInput{
		UserID:      userID.String(),
		Type:        "delivery",
		Provider:    "carrier-pigeon",
		Credentials: map[string]string{"client_id": "cid"},
	})
	require.NoError(t, err)

	result, err := service.TestIntegration(ctx, intg.ID().String(), userID.String())
	require.NoError(t, err, "a failed test is a result, not an error")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "client setup failed")
}

func TestDeleteIntegration(t *testing.T) {
	service, repo := newIntegrationService(t)
	ctx := context.Background()
	userID := shared.NewID()

	intg, err := service.CreateIntegration(ctx, CreateIntegrationInput{
		UserID:      userID.String(),
		Type:        "delivery",
		Provider:    "uberdirect",
		Credentials: map[string]string{"client_id": "cid"},
	})
	require.NoError(t, err)

	require.NoError(t, service.DeleteIntegration(ctx, intg.ID().String(), userID.String()))

	_, err = repo.GetByID(ctx, intg.ID(), userID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
