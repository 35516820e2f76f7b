package crm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/signaldesk/backend/internal/domain/crm"
	"github.com/signaldesk/backend/internal/domain/shared"
	"github.com/signaldesk/backend/internal/infrastructure/retry"
)

// ConnectionService manages the lifecycle of CRM integrations: the OAuth
// authorization-code flow, API-key connections, policy updates, and
// disconnection.
type ConnectionService struct {
	integrations crm.IntegrationRepository
	registry     crm.ProviderRegistry
	logger       *zap.Logger
	stateMaxAge  time.Duration
	retryPolicy  retry.Policy
}

// NewConnectionService creates a new ConnectionService
func NewConnectionService(
	integrations crm.IntegrationRepository,
	registry crm.ProviderRegistry,
	logger *zap.Logger,
) *ConnectionService {
	return &ConnectionService{
		integrations: integrations,
		registry:     registry,
		logger:       logger,
		stateMaxAge:  crm.DefaultStateMaxAge,
		retryPolicy:  retry.DefaultPolicy(),
	}
}

// WithRetryPolicy overrides the backoff policy used for persistence writes
func (s *ConnectionService) WithRetryPolicy(p retry.Policy) *ConnectionService {
	s.retryPolicy = p
	return s
}

// ListProviders returns the provider catalog with configuration status
func (s *ConnectionService) ListProviders() []ProviderInfo {
	providers := crm.SupportedProviders()
	infos := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		authMode := "oauth"
		if p.UsesAPIKey() {
			authMode = "api_key"
		}
		_, err := s.registry.Client(p)
		implemented := err == nil
		infos = append(infos, ProviderInfo{
			ID:          p.String(),
			Name:        p.DisplayName(),
			AuthMode:    authMode,
			Implemented: implemented,
			Configured:  implemented && len(s.registry.MissingSettings(p)) == 0,
		})
	}
	return infos
}

// Initiate starts the OAuth flow for a provider. The returned state token
// must be mirrored into the CSRF cookie by the handler.
func (s *ConnectionService) Initiate(ctx context.Context, userID uuid.UUID, provider, redirectURI string) (*InitiateResult, error) {
	p := crm.Provider(provider)
	if !p.IsValid() {
		return nil, crm.ErrInvalidProvider
	}
	if p.UsesAPIKey() {
		return nil, shared.NewDomainError("ERR_VALIDATION",
			p.DisplayName()+" connects with an API key, not OAuth")
	}

	client, err := s.registry.Client(p)
	if err != nil {
		return nil, err
	}
	if missing := s.registry.MissingSettings(p); len(missing) > 0 {
		return nil, crm.NewProviderNotConfigured(p, missing)
	}

	state := crm.EncodeState(userID, p)
	authURL, err := client.AuthCodeURL(redirectURI, state)
	if err != nil {
		return nil, err
	}

	s.logger.Info("OAuth flow initiated",
		zap.String("provider", p.String()),
		zap.String("user_id", userID.String()))

	return &InitiateResult{Provider: p, AuthURL: authURL, State: state}, nil
}

// HandleCallback completes the OAuth flow. Validation failures surface as
// domain errors the handler converts into a settings-page redirect; the
// checks run in a fixed order so the most specific failure wins.
func (s *ConnectionService) HandleCallback(ctx context.Context, in CallbackInput) (*CallbackResult, error) {
	p := crm.Provider(in.Provider)

	if in.ErrorParam != "" {
		return nil, crm.NewProviderError(p, in.ErrorParam, in.ErrorDescription)
	}
	if !p.IsValid() {
		return nil, crm.ErrInvalidProvider
	}
	if in.Code == "" || in.State == "" {
		return nil, crm.ErrMissingParameters
	}
	if in.CookieState == "" || in.State != in.CookieState {
		return nil, crm.ErrCsrfMismatch
	}

	payload, err := crm.DecodeState(in.State)
	if err != nil {
		return nil, err
	}
	if payload.Expired(time.Now(), s.stateMaxAge) {
		return nil, crm.ErrStateExpired
	}
	if payload.UserID != in.UserID || payload.Provider != p {
		return nil, crm.ErrUserMismatch
	}

	client, err := s.registry.Client(p)
	if err != nil {
		return nil, err
	}
	grant, err := client.ExchangeCode(ctx, in.Code, in.RedirectURI)
	if err != nil {
		return nil, err
	}

	integration, err := s.upsertCredentials(ctx, in.UserID, p, func(i *crm.Integration) {
		i.ApplyGrant(grant, in.UserEmail)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("CRM connected",
		zap.String("provider", p.String()),
		zap.String("user_id", in.UserID.String()),
		zap.String("integration_id", integration.ID.String()))

	return &CallbackResult{Provider: p, IntegrationID: integration.ID}, nil
}

// ConnectByAPIKey connects a key-based provider after validating the key
// against the provider's API. OAuth-only providers reject this path.
func (s *ConnectionService) ConnectByAPIKey(ctx context.Context, userID uuid.UUID, email, provider, apiKey string) (*IntegrationResponse, error) {
	p := crm.Provider(provider)
	if !p.IsValid() {
		return nil, crm.ErrInvalidProvider
	}
	if apiKey == "" {
		return nil, crm.ErrAPIKeyRequired
	}

	client, err := s.registry.Client(p)
	if err != nil {
		return nil, err
	}
	if err := client.ValidateAPIKey(ctx, apiKey); err != nil {
		return nil, err
	}

	integration, err := s.upsertCredentials(ctx, userID, p, func(i *crm.Integration) {
		i.ApplyAPIKey(apiKey, email)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("CRM connected by API key",
		zap.String("provider", p.String()),
		zap.String("user_id", userID.String()))

	resp := ToIntegrationResponse(integration)
	return &resp, nil
}

// upsertCredentials loads the user's existing integration for the provider,
// or creates one, applies the credential change, and persists it. A
// reconnect keeps the row's identity and sync policy.
func (s *ConnectionService) upsertCredentials(ctx context.Context, userID uuid.UUID, p crm.Provider, apply func(*crm.Integration)) (*crm.Integration, error) {
	integration, err := s.integrations.FindByUserAndProvider(ctx, userID, p)
	if err != nil {
		if !errors.Is(err, crm.ErrIntegrationNotFound) {
			return nil, err
		}
		integration = crm.NewIntegration(userID, p)
	}
	apply(integration)

	err = retry.Do(ctx, s.retryPolicy, s.logger, "integration.upsert", func(ctx context.Context) error {
		return s.integrations.Upsert(ctx, integration)
	})
	if err != nil {
		return nil, err
	}
	return integration, nil
}

// List returns the user's integrations with credential material stripped
func (s *ConnectionService) List(ctx context.Context, userID uuid.UUID) ([]IntegrationResponse, error) {
	integrations, err := s.integrations.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	responses := make([]IntegrationResponse, 0, len(integrations))
	for i := range integrations {
		responses = append(responses, ToIntegrationResponse(&integrations[i]))
	}
	return responses, nil
}

// Update merges whitelisted policy fields into an integration
func (s *ConnectionService) Update(ctx context.Context, userID, id uuid.UUID, req UpdateIntegrationRequest) (*IntegrationResponse, error) {
	integration, err := s.integrations.FindByUserAndID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	integration.Apply(req.ToPatch())

	err = retry.Do(ctx, s.retryPolicy, s.logger, "integration.update", func(ctx context.Context) error {
		return s.integrations.Update(ctx, integration)
	})
	if err != nil {
		return nil, err
	}

	resp := ToIntegrationResponse(integration)
	return &resp, nil
}

// Disconnect hard-deletes an integration. Sync history is kept.
func (s *ConnectionService) Disconnect(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.integrations.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("CRM disconnected",
		zap.String("user_id", userID.String()),
		zap.String("integration_id", id.String()))
	return nil
}
