package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	infradelivery "github.com/platewire/api/internal/infra/delivery"
	"github.com/platewire/api/pkg/crypto"
	dom "github.com/platewire/api/pkg/domain/delivery"
	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/logger"
)

// ClientFactory builds delivery provider clients. Satisfied by
// infradelivery.ClientFactory; swapped in tests.
type ClientFactory interface {
	CreateClient(config infradelivery.Config) (infradelivery.Client, error)
}

// ProviderDefaults carries deployment-level provider settings. Per-integration
// settings take precedence over these.
type ProviderDefaults struct {
	UberDirectBaseURL string
	UberDirectAuthURL string
	HTTPTimeout       time.Duration
	UseFakeProvider   bool
}

// IntegrationServiceOption configures optional IntegrationService behavior.
type IntegrationServiceOption func(*IntegrationService)

// WithProviderDefaults sets deployment-level provider defaults.
func WithProviderDefaults(d ProviderDefaults) IntegrationServiceOption {
	return func(s *IntegrationService) {
		s.defaults = d
	}
}

// IntegrationService provides business logic for integration management.
type IntegrationService struct {
	repo      integration.Repository
	encryptor crypto.Encryptor
	factory   ClientFactory
	defaults  ProviderDefaults
	logger    *logger.Logger
}

// NewIntegrationService creates a new IntegrationService.
func NewIntegrationService(repo integration.Repository, encryptor crypto.Encryptor, factory ClientFactory, log *logger.Logger, opts ...IntegrationServiceOption) *IntegrationService {
	if encryptor == nil {
		encryptor = crypto.NewNoOpEncryptor()
	}
	s := &IntegrationService{
		repo:      repo,
		encryptor: encryptor,
		factory:   factory,
		logger:    log.With("service", "integration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateIntegrationInput represents input for creating an integration.
type CreateIntegrationInput struct {
	UserID      string            `json:"-"`
	Type        string            `json:"type" validate:"required,integration_type"`
	Provider    string            `json:"provider" validate:"required,min=1,max=100"`
	Environment string            `json:"environment" validate:"omitempty,environment"`
	Credentials map[string]string `json:"credentials" validate:"required"`
	Settings    map[string]any    `json:"settings"`
	WebhookURL  string            `json:"webhook_url" validate:"omitempty,url,max=1000"`
	IsActive    *bool             `json:"is_active"`
}

// CreateIntegration creates a new integration with encrypted credentials.
func (s *IntegrationService) CreateIntegration(ctx context.Context, input CreateIntegrationInput) (*integration.Integration, error) {
	userID, err := shared.ParseID(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID", shared.ErrValidation)
	}

	t := integration.Type(input.Type)
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %s", integration.ErrInvalidType, input.Type)
	}

	env := integration.EnvironmentSandbox
	if input.Environment != "" {
		env = integration.Environment(input.Environment)
		if !env.IsValid() {
			return nil, fmt.Errorf("%w: %s", integration.ErrInvalidEnvironment, input.Environment)
		}
	}

	if len(input.Credentials) == 0 {
		return nil, fmt.Errorf("%w: credentials are required", shared.ErrValidation)
	}

	encrypted, err := s.encryptCredentials(input.Credentials)
	if err != nil {
		return nil, err
	}

	intg := integration.NewIntegration(shared.NewID(), userID, t, input.Provider, env)
	intg.SetCredentials(encrypted)
	if input.Settings != nil {
		intg.SetSettings(input.Settings)
	}
	if input.WebhookURL != "" {
		intg.SetWebhookURL(input.WebhookURL)
	}
	if input.IsActive != nil {
		intg.SetActive(*input.IsActive)
	}

	if err := s.repo.Create(ctx, intg); err != nil {
		return nil, err
	}

	s.logger.Info("integration created",
		"id", intg.ID().String(),
		"user_id", intg.UserID().String(),
		"type", intg.Type().String(),
		"provider", intg.Provider(),
	)

	return intg, nil
}

// GetIntegration retrieves an integration scoped to its owner.
func (s *IntegrationService) GetIntegration(ctx context.Context, id, userID string) (*integration.Integration, error) {
	intgID, err := integration.ParseID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid integration ID", shared.ErrValidation)
	}
	uid, err := shared.ParseID(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID", shared.ErrValidation)
	}
	return s.repo.GetByID(ctx, intgID, uid)
}

// ListIntegrationsInput represents input for listing integrations.
type ListIntegrationsInput struct {
	UserID string
	Type   string
}

// ListIntegrations lists a user's integrations, optionally filtered by type.
func (s *IntegrationService) ListIntegrations(ctx context.Context, input ListIntegrationsInput) ([]*integration.Integration, error) {
	userID, err := shared.ParseID(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID", shared.ErrValidation)
	}

	filter := integration.Filter{UserID: &userID}
	if input.Type != "" {
		t := integration.Type(input.Type)
		if !t.IsValid() {
			return nil, fmt.Errorf("%w: %s", integration.ErrInvalidType, input.Type)
		}
		filter.Type = &t
	}

	return s.repo.List(ctx, filter)
}

// UpdateIntegrationInput represents input for updating an integration. Nil
// fields are left untouched; credentials are replaced wholesale when present.
type UpdateIntegrationInput struct {
	Environment *string           `json:"environment" validate:"omitempty,environment"`
	Credentials map[string]string `json:"credentials"`
	Settings    map[string]any    `json:"settings"`
	WebhookURL  *string           `json:"webhook_url" validate:"omitempty,url,max=1000"`
	IsActive    *bool             `json:"is_active"`
}

// UpdateIntegration applies a partial update to an integration.
func (s *IntegrationService) UpdateIntegration(ctx context.Context, id, userID string, input UpdateIntegrationInput) (*integration.Integration, error) {
	intg, err := s.GetIntegration(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if input.Environment != nil {
		env := integration.Environment(*input.Environment)
		if !env.IsValid() {
			return nil, fmt.Errorf("%w: %s", integration.ErrInvalidEnvironment, *input.Environment)
		}
		intg.SetEnvironment(env)
	}

	if len(input.Credentials) > 0 {
		encrypted, err := s.encryptCredentials(input.Credentials)
		if err != nil {
			return nil, err
		}
		intg.SetCredentials(encrypted)
	}

	if input.Settings != nil {
		intg.SetSettings(input.Settings)
	}
	if input.WebhookURL != nil {
		intg.SetWebhookURL(*input.WebhookURL)
	}
	if input.IsActive != nil {
		intg.SetActive(*input.IsActive)
	}

	if err := s.repo.Update(ctx, intg); err != nil {
		return nil, err
	}

	s.logger.Info("integration updated", "id", intg.ID().String())
	return intg, nil
}

// ToggleIntegration flips the active flag.
func (s *IntegrationService) ToggleIntegration(ctx context.Context, id, userID string) (*integration.Integration, error) {
	intg, err := s.GetIntegration(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	intg.SetActive(!intg.IsActive())
	if err := s.repo.Update(ctx, intg); err != nil {
		return nil, err
	}

	s.logger.Info("integration toggled", "id", intg.ID().String(), "is_active", intg.IsActive())
	return intg, nil
}

// DeleteIntegration removes an integration.
func (s *IntegrationService) DeleteIntegration(ctx context.Context, id, userID string) error {
	intgID, err := integration.ParseID(id)
	if err != nil {
		return fmt.Errorf("%w: invalid integration ID", shared.ErrValidation)
	}
	uid, err := shared.ParseID(userID)
	if err != nil {
		return fmt.Errorf("%w: invalid user ID", shared.ErrValidation)
	}

	if err := s.repo.Delete(ctx, intgID, uid); err != nil {
		return err
	}

	s.logger.Info("integration deleted", "id", id, "user_id", userID)
	return nil
}

// TestIntegrationResult represents the result of a connectivity test.
type TestIntegrationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TestIntegration authenticates against the provider with the stored
// credentials and runs a synthetic quote. Nothing is persisted.
func (s *IntegrationService) TestIntegration(ctx context.Context, id, userID string) (*TestIntegrationResult, error) {
	intg, err := s.GetIntegration(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	client, err := s.BuildClient(intg)
	if err != nil {
		return &TestIntegrationResult{Success: false, Message: fmt.Sprintf("client setup failed: %v", err)}, nil
	}

	if err := client.Authenticate(ctx); err != nil {
		return &TestIntegrationResult{Success: false, Message: fmt.Sprintf("authentication failed: %v", err)}, nil
	}

	_, err = client.GetQuote(ctx, dom.QuoteRequest{
		Pickup:  &dom.Location{Name: "Connectivity Test", Address: "1 Test Plaza, Test City"},
		Dropoff: &dom.Location{Name: "Connectivity Test", Address: "2 Test Plaza, Test City"},
	})
	if err != nil {
		return &TestIntegrationResult{Success: false, Message: fmt.Sprintf("quote check failed: %v", err)}, nil
	}

	return &TestIntegrationResult{Success: true, Message: "connection verified"}, nil
}

// BuildClient constructs a provider client from an integration's decrypted
// credentials.
func (s *IntegrationService) BuildClient(intg *integration.Integration) (infradelivery.Client, error) {
	creds, err := s.decryptCredentials(intg)
	if err != nil {
		return nil, err
	}

	provider := infradelivery.Provider(intg.Provider())
	if s.defaults.UseFakeProvider {
		provider = infradelivery.ProviderFake
	}

	baseURL := intg.SettingString("base_url")
	authURL := intg.SettingString("auth_url")
	if provider == infradelivery.ProviderUberDirect {
		if baseURL == "" {
			baseURL = s.defaults.UberDirectBaseURL
		}
		if authURL == "" {
			authURL = s.defaults.UberDirectAuthURL
		}
	}

	timeout := s.defaults.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return s.factory.CreateClient(infradelivery.Config{
		Provider:     provider,
		Environment:  string(intg.Environment()),
		ClientID:     creds["client_id"],
		ClientSecret: creds["client_secret"],
		CustomerID:   creds["customer_id"],
		BaseURL:      baseURL,
		AuthURL:      authURL,
		HTTPTimeout:  timeout,
	})
}

func (s *IntegrationService) encryptCredentials(creds map[string]string) (string, error) {
	raw, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}
	encrypted, err := s.encryptor.EncryptString(string(raw))
	if err != nil {
		return "", fmt.Errorf("encrypt credentials: %w", err)
	}
	return encrypted, nil
}

func (s *IntegrationService) decryptCredentials(intg *integration.Integration) (map[string]string, error) {
	if intg.CredentialsEncrypted() == "" {
		return map[string]string{}, nil
	}

	plaintext, err := s.encryptor.DecryptString(intg.CredentialsEncrypted())
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials: %w", err)
	}

	var creds map[string]string
	if err := json.Unmarshal([]byte(plaintext), &creds); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}
