// Package integration defines the stored credential/config set connecting a
// user account to one external provider.
package integration

import (
	"time"

	"github.com/platewire/api/pkg/domain/shared"
)

// ID is a type alias for integration ID.
type ID = shared.ID

// ParseID parses a string into an integration ID.
func ParseID(s string) (ID, error) {
	return shared.ParseID(s)
}

// Type classifies what kind of external system an integration talks to.
type Type string

const (
	TypeDelivery  Type = "delivery"
	TypePOS       Type = "pos"
	TypeEcommerce Type = "ecommerce"
)

// String returns the string representation of the type.
func (t Type) String() string { return string(t) }

// IsValid checks if the type is valid.
func (t Type) IsValid() bool {
	switch t {
	case TypeDelivery, TypePOS, TypeEcommerce:
		return true
	}
	return false
}

// Environment selects which provider endpoint an integration targets.
type Environment string

const (
	EnvironmentSandbox Environment = "sandbox"
	EnvironmentLive    Environment = "live"
)

// IsValid checks if the environment is valid.
func (e Environment) IsValid() bool {
	return e == EnvironmentSandbox || e == EnvironmentLive
}

// Well-known provider identifiers. Providers are open-ended strings; these
// are the ones the platform ships adapters or setup helpers for.
const (
	ProviderUberDirect = "uberdirect"
	ProviderShopify    = "shopify"
	ProviderWoo        = "woocommerce"
	ProviderSquare     = "square"
)

// Integration represents one provider credential set owned by one user.
type Integration struct {
	id                   ID
	userID               ID
	integrationType      Type
	provider             string
	credentialsEncrypted string
	environment          Environment
	isActive             bool
	webhookURL           string
	settings             map[string]any
	createdAt            time.Time
	updatedAt            time.Time
}

// NewIntegration creates a new integration. It starts inactive; activation is
// an explicit user action once credentials have been verified.
func NewIntegration(id, userID ID, t Type, provider string, env Environment) *Integration {
	now := time.Now()
	return &Integration{
		id:              id,
		userID:          userID,
		integrationType: t,
		provider:        provider,
		environment:     env,
		settings:        make(map[string]any),
		createdAt:       now,
		updatedAt:       now,
	}
}

// Reconstruct creates an Integration from stored data.
func Reconstruct(
	id, userID ID,
	t Type,
	provider string,
	credentialsEncrypted string,
	env Environment,
	isActive bool,
	webhookURL string,
	settings map[string]any,
	createdAt, updatedAt time.Time,
) *Integration {
	if settings == nil {
		settings = make(map[string]any)
	}
	return &Integration{
		id:                   id,
		userID:               userID,
		integrationType:      t,
		provider:             provider,
		credentialsEncrypted: credentialsEncrypted,
		environment:          env,
		isActive:             isActive,
		webhookURL:           webhookURL,
		settings:             settings,
		createdAt:            createdAt,
		updatedAt:            updatedAt,
	}
}

// Getters

func (i *Integration) ID() ID                       { return i.id }
func (i *Integration) UserID() ID                   { return i.userID }
func (i *Integration) Type() Type                   { return i.integrationType }
func (i *Integration) Provider() string             { return i.provider }
func (i *Integration) CredentialsEncrypted() string { return i.credentialsEncrypted }
func (i *Integration) Environment() Environment     { return i.environment }
func (i *Integration) IsActive() bool               { return i.isActive }
func (i *Integration) WebhookURL() string           { return i.webhookURL }
func (i *Integration) Settings() map[string]any     { return i.settings }
func (i *Integration) CreatedAt() time.Time         { return i.createdAt }
func (i *Integration) UpdatedAt() time.Time         { return i.updatedAt }

// Setters

// SetCredentials replaces the stored credential blob wholesale. Credential
// documents are never deep-merged so stale nested secrets cannot survive an
// update.
func (i *Integration) SetCredentials(encrypted string) {
	i.credentialsEncrypted = encrypted
	i.updatedAt = time.Now()
}

func (i *Integration) SetEnvironment(env Environment) {
	i.environment = env
	i.updatedAt = time.Now()
}

func (i *Integration) SetWebhookURL(url string) {
	i.webhookURL = url
	i.updatedAt = time.Now()
}

func (i *Integration) SetSettings(settings map[string]any) {
	if settings == nil {
		settings = make(map[string]any)
	}
	i.settings = settings
	i.updatedAt = time.Now()
}

func (i *Integration) SetActive(active bool) {
	i.isActive = active
	i.updatedAt = time.Now()
}

// SettingBool reads a boolean provider setting, false when absent.
func (i *Integration) SettingBool(key string) bool {
	v, ok := i.settings[key].(bool)
	return ok && v
}

// SettingString reads a string provider setting, empty when absent.
func (i *Integration) SettingString(key string) string {
	v, _ := i.settings[key].(string)
	return v
}
