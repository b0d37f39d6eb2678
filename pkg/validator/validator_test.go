package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createWebhookInput struct {
	Name            string   `validate:"required,min=2,max=100"`
	SourceType      string   `validate:"required,endpoint_type"`
	DestinationType string   `validate:"required,endpoint_type"`
	EventTypes      []string `validate:"omitempty,dive,event_type"`
}

type createIntegrationInput struct {
	Type        string `validate:"required,integration_type"`
	Provider    string `validate:"required,min=2,max=50"`
	Environment string `validate:"required,environment"`
}

func TestValidator_EndpointTypes(t *testing.T) {
	v := New()

	err := v.Validate(createWebhookInput{
		Name:            "shopify to pos",
		SourceType:      "ecommerce",
		DestinationType: "pos",
		EventTypes:      []string{"order.created"},
	})
	assert.NoError(t, err)

	err = v.Validate(createWebhookInput{
		Name:            "bad",
		SourceType:      "carrier_pigeon",
		DestinationType: "pos",
	})
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, verrs, 1)
	assert.Equal(t, "source_type", verrs[0].Field)
	assert.Contains(t, verrs[0].Message, "ecommerce, pos, delivery")
}

func TestValidator_EventTypes(t *testing.T) {
	v := New()

	err := v.Validate(createWebhookInput{
		Name:            "hook",
		SourceType:      "ecommerce",
		DestinationType: "delivery",
		EventTypes:      []string{"order.created", "order.exploded"},
	})
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Contains(t, verrs[0].Message, "order.created")
}

func TestValidator_IntegrationInput(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   createIntegrationInput
		wantErr bool
	}{
		{"valid delivery", createIntegrationInput{Type: "delivery", Provider: "uberdirect", Environment: "sandbox"}, false},
		{"valid pos", createIntegrationInput{Type: "pos", Provider: "square", Environment: "live"}, false},
		{"bad type", createIntegrationInput{Type: "crm", Provider: "x", Environment: "live"}, true},
		{"bad environment", createIntegrationInput{Type: "delivery", Provider: "uberdirect", Environment: "staging"}, true},
		{"missing provider", createIntegrationInput{Type: "delivery", Environment: "sandbox"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_Currency(t *testing.T) {
	v := New()

	type quoteInput struct {
		Currency string `validate:"required,currency"`
	}

	assert.NoError(t, v.Validate(quoteInput{Currency: "USD"}))
	assert.Error(t, v.Validate(quoteInput{Currency: "usd"}))
	assert.Error(t, v.Validate(quoteInput{Currency: "DOLLARS"}))
}
