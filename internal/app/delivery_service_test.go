package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infradelivery "github.com/platewire/api/internal/infra/delivery"
	dom "github.com/platewire/api/pkg/domain/delivery"
	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/logger"
)

type deliveryFixture struct {
	service *DeliveryService
	repo    *memIntegrationRepo
	userID  shared.ID
	intgID  string
}

func newDeliveryFixture(t *testing.T) *deliveryFixture {
	t.Helper()

	log := logger.NewNop()
	repo := newMemIntegrationRepo()
	integrations := NewIntegrationService(repo, nil, infradelivery.NewClientFactory(), log)
	service := NewDeliveryService(integrations, log)

	userID := shared.NewID()
	intg := integration.NewIntegration(shared.NewID(), userID, integration.TypeDelivery, "fake", integration.EnvironmentSandbox)
	intg.SetCredentials(`{"client_id":"id","client_secret":"secret","customer_id":"cust"}`)
	intg.SetActive(true)
	require.NoError(t, repo.Create(context.Background(), intg))

	return &deliveryFixture{
		service: service,
		repo:    repo,
		userID:  userID,
		intgID:  intg.ID().String(),
	}
}

func quoteRequest() dom.QuoteRequest {
	return dom.QuoteRequest{
		Pickup:  &dom.Location{Address: "12 Kitchen Lane"},
		Dropoff: &dom.Location{Address: "500 Maple Drive"},
	}
}

func createRequest() dom.CreateRequest {
	return dom.CreateRequest{
		Pickup:  &dom.Location{Address: "12 Kitchen Lane"},
		Dropoff: &dom.Location{Address: "500 Maple Drive"},
		Items:   []dom.Item{{Name: "Pad Thai", Quantity: 1, Price: 14.00}},
	}
}

func TestDeliveryService_QuoteThenCreate(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	quote, err := f.service.Quote(ctx, f.intgID, f.userID.String(), quoteRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, quote.ID)

	req := createRequest()
	req.QuoteID = quote.ID
	created, err := f.service.Create(ctx, f.intgID, f.userID.String(), req)
	require.NoError(t, err)

	assert.Equal(t, quote.Fee, created.Fee)
	assert.Equal(t, dom.StatusProcessing, created.Status)
	assert.NotEmpty(t, created.TrackingURL)
}

func TestDeliveryService_StatusAndCancel(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, f.intgID, f.userID.String(), createRequest())
	require.NoError(t, err)

	tracked, err := f.service.Status(ctx, f.intgID, f.userID.String(), created.ID)
	require.NoError(t, err)
	assert.True(t, tracked.Status.IsValid())

	result, err := f.service.Cancel(ctx, f.intgID, f.userID.String(), created.ID)
	require.NoError(t, err)
	assert.True(t, result.Canceled)
}

func TestDeliveryService_CancelTerminal(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, f.intgID, f.userID.String(), createRequest())
	require.NoError(t, err)

	// Walk the fake delivery to its terminal state.
	for i := 0; i < 4; i++ {
		_, err := f.service.Status(ctx, f.intgID, f.userID.String(), created.ID)
		require.NoError(t, err)
	}

	_, err = f.service.Cancel(ctx, f.intgID, f.userID.String(), created.ID)
	assert.ErrorIs(t, err, infradelivery.ErrTerminalState)
}

func TestDeliveryService_InactiveIntegration(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	intg, err := f.repo.GetByID(ctx, shared.MustParseID(f.intgID), f.userID)
	require.NoError(t, err)
	intg.SetActive(false)

	_, err = f.service.Quote(ctx, f.intgID, f.userID.String(), quoteRequest())
	assert.ErrorIs(t, err, integration.ErrIntegrationInactive)
}

func TestDeliveryService_CrossUser(t *testing.T) {
	f := newDeliveryFixture(t)

	_, err := f.service.Quote(context.Background(), f.intgID, shared.NewID().String(), quoteRequest())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeliveryService_ValidationSurface(t *testing.T) {
	f := newDeliveryFixture(t)

	_, err := f.service.Quote(context.Background(), f.intgID, f.userID.String(), dom.QuoteRequest{
		Dropoff: &dom.Location{Address: "500 Maple Drive"},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
