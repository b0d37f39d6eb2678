package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infradelivery "github.com/platewire/api/internal/infra/delivery"
	"github.com/platewire/api/pkg/crypto"
	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/domain/webhook"
	"github.com/platewire/api/pkg/logger"
)

type dispatcherFixture struct {
	webhookRepo *memWebhookRepo
	logRepo     *memLogRepo
	intgRepo    *memIntegrationRepo
	dispatcher  *DispatcherService
	userID      shared.ID
}

func newDispatcherFixture(t *testing.T, guard ReplayGuard) *dispatcherFixture {
	t.Helper()

	log := logger.NewNop()
	webhookRepo := newMemWebhookRepo()
	logRepo := newMemLogRepo()
	intgRepo := newMemIntegrationRepo()

	integrations := NewIntegrationService(intgRepo, crypto.NewNoOpEncryptor(), infradelivery.NewClientFactory(), log)
	dispatcher := NewDispatcherService(webhookRepo, logRepo, intgRepo, integrations, guard, 5*time.Second, log)

	return &dispatcherFixture{
		webhookRepo: webhookRepo,
		logRepo:     logRepo,
		intgRepo:    intgRepo,
		dispatcher:  dispatcher,
		userID:      shared.NewID(),
	}
}

// addFakeIntegration registers an active delivery integration backed by the
// in-memory fake provider.
func (f *dispatcherFixture) addFakeIntegration(t *testing.T) *integration.Integration {
	t.Helper()

	intg := integration.NewIntegration(shared.NewID(), f.userID, integration.TypeDelivery, "fake", integration.EnvironmentSandbox)
	intg.SetCredentials(`{"client_id":"id","client_secret":"secret","customer_id":"cust"}`)
	intg.SetSettings(map[string]any{
		"store_address": "12 Kitchen Lane, Springfield, IL 62701",
		"store_name":    "Springfield Trattoria",
	})
	intg.SetActive(true)
	require.NoError(t, f.intgRepo.Create(context.Background(), intg))
	return intg
}

func (f *dispatcherFixture) addWebhook(t *testing.T, name, destProvider string, eventTypes []string) *webhook.Webhook {
	t.Helper()

	secret, err := crypto.GenerateSecretKey()
	require.NoError(t, err)

	w := webhook.NewWebhook(
		shared.NewID(), f.userID,
		name, secret,
		webhook.EndpointEcommerce, "shopify",
		webhook.EndpointDelivery, destProvider,
		eventTypes,
	)
	require.NoError(t, f.webhookRepo.Create(context.Background(), w))
	return w
}

func orderEvent(eventID string) Event {
	return Event{
		SourceType:     webhook.EndpointEcommerce,
		SourceProvider: "shopify",
		EventType:      webhook.EventOrderCreated,
		EventID:        eventID,
		Payload:        sampleEventPayload(webhook.EventOrderCreated),
	}
}

func TestDispatch_InvalidSecret(t *testing.T) {
	f := newDispatcherFixture(t, nil)

	_, err := f.dispatcher.Dispatch(context.Background(), "no-such-secret", orderEvent("evt-1"))

	assert.ErrorIs(t, err, webhook.ErrInvalidSecret)
	assert.Equal(t, 0, f.logRepo.count(), "a secret mismatch must not write log rows")
}

func TestDispatch_SingleWebhookSuccess(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.addFakeIntegration(t)
	w := f.addWebhook(t, "orders", "fake", []string{webhook.EventOrderCreated})

	outcomes, err := f.dispatcher.Dispatch(context.Background(), w.SecretKey(), orderEvent("evt-1"))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.True(t, outcomes[0].Success)
	assert.Equal(t, http.StatusOK, outcomes[0].StatusCode)
	assert.Equal(t, w.ID().String(), outcomes[0].WebhookID)
	assert.Equal(t, "orders", outcomes[0].Name)

	require.Equal(t, 1, f.logRepo.count())
	entries, total, err := f.logRepo.List(context.Background(), webhook.LogFilter{UserID: f.userID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, webhook.EventOrderCreated, entries[0].EventType)
	assert.True(t, entries[0].Succeeded())
	assert.NotEmpty(t, entries[0].ResponsePayload["delivery_id"])
}

func TestDispatch_NoMatchesIsSuccess(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.addFakeIntegration(t)
	w := f.addWebhook(t, "cancellations", "fake", []string{webhook.EventOrderCanceled})

	outcomes, err := f.dispatcher.Dispatch(context.Background(), w.SecretKey(), orderEvent("evt-1"))

	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Equal(t, 0, f.logRepo.count())
}

func TestDispatch_FanOutIsolatesFailures(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.addFakeIntegration(t)
	good := f.addWebhook(t, "good", "fake", []string{webhook.EventOrderCreated})
	f.addWebhook(t, "broken", "missing-provider", []string{webhook.EventOrderCreated})

	outcomes, err := f.dispatcher.Dispatch(context.Background(), good.SecretKey(), orderEvent("evt-1"))
	require.NoError(t, err)
	require.Len(t, outcomes, 2, "every matched webhook yields an outcome")

	byName := map[string]Outcome{}
	for _, o := range outcomes {
		byName[o.Name] = o
	}

	assert.True(t, byName["good"].Success)
	assert.False(t, byName["broken"].Success)
	assert.Contains(t, byName["broken"].Message, "missing-provider")

	// Both attempts are logged, including the failure.
	assert.Equal(t, 2, f.logRepo.count())
}

func TestDispatch_InactiveIntegrationLogsFailure(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	intg := f.addFakeIntegration(t)
	w := f.addWebhook(t, "orders", "fake", []string{webhook.EventOrderCreated})

	intg.SetActive(false)
	require.NoError(t, f.intgRepo.Update(context.Background(), intg))

	outcomes, err := f.dispatcher.Dispatch(context.Background(), w.SecretKey(), orderEvent("evt-1"))
	require.NoError(t, err, "an unusable destination fails the attempt, not the dispatch")
	require.Len(t, outcomes, 1)

	assert.False(t, outcomes[0].Success)
	assert.NotEmpty(t, outcomes[0].Message)

	require.Equal(t, 1, f.logRepo.count())
	entries, _, err := f.logRepo.List(context.Background(), webhook.LogFilter{UserID: f.userID})
	require.NoError(t, err)
	assert.False(t, entries[0].Succeeded())
	assert.NotEmpty(t, entries[0].ErrorMessage)
}

func TestDispatch_InactiveWebhookExcluded(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.addFakeIntegration(t)
	active := f.addWebhook(t, "active", "fake", []string{webhook.EventOrderCreated})
	inactive := f.addWebhook(t, "inactive", "fake", []string{webhook.EventOrderCreated})
	inactive.SetActive(false)

	outcomes, err := f.dispatcher.Dispatch(context.Background(), active.SecretKey(), orderEvent("evt-1"))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "active", outcomes[0].Name)
}

func TestDispatch_DuplicateEventShortCircuits(t *testing.T) {
	f := newDispatcherFixture(t, denyReplayGuard{})
	f.addFakeIntegration(t)
	w := f.addWebhook(t, "orders", "fake", []string{webhook.EventOrderCreated})

	outcomes, err := f.dispatcher.Dispatch(context.Background(), w.SecretKey(), orderEvent("evt-dup"))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.True(t, outcomes[0].Success)
	assert.Contains(t, outcomes[0].Message, "duplicate")
	assert.Equal(t, 0, f.logRepo.count(), "duplicates are not forwarded or logged")
}

func TestDispatch_EventWithoutIDSkipsReplayGuard(t *testing.T) {
	f := newDispatcherFixture(t, denyReplayGuard{})
	f.addFakeIntegration(t)
	w := f.addWebhook(t, "orders", "fake", []string{webhook.EventOrderCreated})

	outcomes, err := f.dispatcher.Dispatch(context.Background(), w.SecretKey(), orderEvent(""))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Success)
}

func TestDispatch_LogFailureDoesNotFailDispatch(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.addFakeIntegration(t)
	w := f.addWebhook(t, "orders", "fake", []string{webhook.EventOrderCreated})
	f.logRepo.failing = true

	outcomes, err := f.dispatcher.Dispatch(context.Background(), w.SecretKey(), orderEvent("evt-1"))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Success)
}

func TestDispatch_ForwardsToCustomEndpoint(t *testing.T) {
	f := newDispatcherFixture(t, nil)

	received := make(chan *http.Request, 1)
	var receivedBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		receivedBody, _ = io.ReadAll(r.Body)
		received <- r
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(map[string]any{"accepted": true})
	}))
	defer srv.Close()

	secret, err := crypto.GenerateSecretKey()
	require.NoError(t, err)

	w := webhook.NewWebhook(
		shared.NewID(), f.userID,
		"forwarder", secret,
		webhook.EndpointEcommerce, "shopify",
		webhook.EndpointInternal, "",
		[]string{webhook.EventOrderCreated},
	)
	w.SetEndpointURL(srv.URL)
	require.NoError(t, f.webhookRepo.Create(context.Background(), w))

	outcomes, err := f.dispatcher.Dispatch(context.Background(), w.SecretKey(), orderEvent("evt-1"))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Success)

	req := <-received
	assert.Equal(t, webhook.EventOrderCreated, req.Header.Get("X-Platewire-Event"))
	assert.True(t, crypto.VerifySignature(w.SecretKey(), receivedBody, req.Header.Get("X-Platewire-Signature")))
}

func TestDispatch_MissingEventType(t *testing.T) {
	f := newDispatcherFixture(t, nil)
	f.addFakeIntegration(t)
	w := f.addWebhook(t, "orders", "fake", []string{webhook.EventOrderCreated})

	event := orderEvent("evt-1")
	event.EventType = ""

	_, err := f.dispatcher.Dispatch(context.Background(), w.SecretKey(), event)
	assert.ErrorIs(t, err, shared.ErrValidation)
}
