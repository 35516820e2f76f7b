package crm

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/signaldesk/backend/internal/domain/crm"
)

func newConnectionService(integrations *MockIntegrationRepository, registry *MockProviderRegistry) *ConnectionService {
	return NewConnectionService(integrations, registry, zap.NewNop())
}

func validCallbackInput(userID uuid.UUID, state string) CallbackInput {
	return CallbackInput{
		Provider:    "hubspot",
		Code:        "auth-code",
		State:       state,
		CookieState: state,
		UserID:      userID,
		UserEmail:   "ada@example.com",
		RedirectURI: "https://app.example.com/api/v1/crm/hubspot/callback",
	}
}

func TestConnectionService_Initiate(t *testing.T) {
	userID := uuid.New()

	t.Run("returns auth URL with fresh state", func(t *testing.T) {
		integrations := new(MockIntegrationRepository)
		registry := new(MockProviderRegistry)
		client := &MockProviderClient{provider: crm.ProviderHubSpot}

		registry.On("Client", crm.ProviderHubSpot).Return(client, nil)
		registry.On("MissingSettings", crm.ProviderHubSpot).Return(nil)
		client.On("AuthCodeURL", "https://cb", mock.AnythingOfType("string")).
			Return("https://app.hubspot.com/oauth/authorize?state=x", nil)

		svc := newConnectionService(integrations, registry)
		result, err := svc.Initiate(context.Background(), userID, "hubspot", "https://cb")
		require.NoError(t, err)

		assert.Equal(t, crm.ProviderHubSpot, result.Provider)
		assert.NotEmpty(t, result.AuthURL)

		payload, err := crm.DecodeState(result.State)
		require.NoError(t, err)
		assert.Equal(t, userID, payload.UserID)
		assert.Equal(t, crm.ProviderHubSpot, payload.Provider)
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		svc := newConnectionService(new(MockIntegrationRepository), new(MockProviderRegistry))
		_, err := svc.Initiate(context.Background(), userID, "dynamics", "https://cb")
		assert.Equal(t, crm.ErrInvalidProvider, err)
	})

	t.Run("rejects key-based provider", func(t *testing.T) {
		svc := newConnectionService(new(MockIntegrationRepository), new(MockProviderRegistry))
		_, err := svc.Initiate(context.Background(), userID, "attio", "https://cb")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("reports missing settings", func(t *testing.T) {
		registry := new(MockProviderRegistry)
		client := &MockProviderClient{provider: crm.ProviderSalesforce}
		registry.On("Client", crm.ProviderSalesforce).Return(client, nil)
		registry.On("MissingSettings", crm.ProviderSalesforce).
			Return([]string{"SIGNALDESK_CRM_SALESFORCE_CLIENT_ID"})

		svc := newConnectionService(new(MockIntegrationRepository), registry)
		_, err := svc.Initiate(context.Background(), userID, "salesforce", "https://cb")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SIGNALDESK_CRM_SALESFORCE_CLIENT_ID")
	})
}

func TestConnectionService_HandleCallback(t *testing.T) {
	userID := uuid.New()

	t.Run("connects on a valid callback", func(t *testing.T) {
		integrations := new(MockIntegrationRepository)
		registry := new(MockProviderRegistry)
		client := &MockProviderClient{provider: crm.ProviderHubSpot}

		grant := &crm.TokenGrant{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			ExpiresIn:    1800,
			PortalID:     "765",
		}
		registry.On("Client", crm.ProviderHubSpot).Return(client, nil)
		client.On("ExchangeCode", mock.Anything, "auth-code", mock.AnythingOfType("string")).Return(grant, nil)
		integrations.On("FindByUserAndProvider", mock.Anything, userID, crm.ProviderHubSpot).
			Return(nil, crm.ErrIntegrationNotFound)
		integrations.On("Upsert", mock.Anything, mock.AnythingOfType("*crm.Integration")).
			Run(func(args mock.Arguments) {
				stored := args.Get(1).(*crm.Integration)
				assert.Equal(t, "at-1", stored.AccessToken)
				require.NotNil(t, stored.PortalID)
				assert.Equal(t, "765", *stored.PortalID)
				require.NotNil(t, stored.ConnectedByEmail)
				assert.Equal(t, "ada@example.com", *stored.ConnectedByEmail)
			}).
			Return(nil)

		svc := newConnectionService(integrations, registry)
		state := crm.EncodeState(userID, crm.ProviderHubSpot)
		result, err := svc.HandleCallback(context.Background(), validCallbackInput(userID, state))
		require.NoError(t, err)

		assert.Equal(t, crm.ProviderHubSpot, result.Provider)
		integrations.AssertExpectations(t)
	})

	t.Run("reconnect keeps the existing row and sync policy", func(t *testing.T) {
		integrations := new(MockIntegrationRepository)
		registry := new(MockProviderRegistry)
		client := &MockProviderClient{provider: crm.ProviderHubSpot}

		existing := crm.NewIntegration(userID, crm.ProviderHubSpot)
		existing.AccessToken = "old-token"
		existing.AutoSyncEnabled = false

		registry.On("Client", crm.ProviderHubSpot).Return(client, nil)
		client.On("ExchangeCode", mock.Anything, "auth-code", mock.AnythingOfType("string")).
			Return(&crm.TokenGrant{AccessToken: "new-token"}, nil)
		integrations.On("FindByUserAndProvider", mock.Anything, userID, crm.ProviderHubSpot).
			Return(existing, nil)
		integrations.On("Upsert", mock.Anything, mock.AnythingOfType("*crm.Integration")).
			Run(func(args mock.Arguments) {
				stored := args.Get(1).(*crm.Integration)
				assert.Equal(t, existing.ID, stored.ID)
				assert.Equal(t, "new-token", stored.AccessToken)
				assert.False(t, stored.AutoSyncEnabled)
			}).
			Return(nil)

		svc := newConnectionService(integrations, registry)
		state := crm.EncodeState(userID, crm.ProviderHubSpot)
		result, err := svc.HandleCallback(context.Background(), validCallbackInput(userID, state))
		require.NoError(t, err)
		assert.Equal(t, existing.ID, result.IntegrationID)
	})

	t.Run("provider error short-circuits", func(t *testing.T) {
		svc := newConnectionService(new(MockIntegrationRepository), new(MockProviderRegistry))
		in := validCallbackInput(userID, "irrelevant")
		in.ErrorParam = "access_denied"
		in.ErrorDescription = "User denied the request"

		_, err := svc.HandleCallback(context.Background(), in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "User denied the request")
	})

	t.Run("missing code", func(t *testing.T) {
		svc := newConnectionService(new(MockIntegrationRepository), new(MockProviderRegistry))
		in := validCallbackInput(userID, "state")
		in.Code = ""

		_, err := svc.HandleCallback(context.Background(), in)
		assert.Equal(t, crm.ErrMissingParameters, err)
	})

	t.Run("state cookie mismatch leaves no row", func(t *testing.T) {
		integrations := new(MockIntegrationRepository)
		svc := newConnectionService(integrations, new(MockProviderRegistry))
		in := validCallbackInput(userID, crm.EncodeState(userID, crm.ProviderHubSpot))
		in.CookieState = "something-else"

		_, err := svc.HandleCallback(context.Background(), in)
		assert.Equal(t, crm.ErrCsrfMismatch, err)
		integrations.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("garbled state", func(t *testing.T) {
		svc := newConnectionService(new(MockIntegrationRepository), new(MockProviderRegistry))
		in := validCallbackInput(userID, "!!!not-base64!!!")

		_, err := svc.HandleCallback(context.Background(), in)
		assert.Equal(t, crm.ErrInvalidStateFormat, err)
	})

	t.Run("expired state leaves no row", func(t *testing.T) {
		integrations := new(MockIntegrationRepository)
		svc := newConnectionService(integrations, new(MockProviderRegistry))
		svc.stateMaxAge = -time.Second // every token is already too old

		in := validCallbackInput(userID, crm.EncodeState(userID, crm.ProviderHubSpot))
		_, err := svc.HandleCallback(context.Background(), in)
		assert.Equal(t, crm.ErrStateExpired, err)
		integrations.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("state minted for another user", func(t *testing.T) {
		svc := newConnectionService(new(MockIntegrationRepository), new(MockProviderRegistry))
		in := validCallbackInput(userID, crm.EncodeState(uuid.New(), crm.ProviderHubSpot))

		_, err := svc.HandleCallback(context.Background(), in)
		assert.Equal(t, crm.ErrUserMismatch, err)
	})

	t.Run("exchange failure propagates", func(t *testing.T) {
		registry := new(MockProviderRegistry)
		client := &MockProviderClient{provider: crm.ProviderHubSpot}
		registry.On("Client", crm.ProviderHubSpot).Return(client, nil)
		client.On("ExchangeCode", mock.Anything, "auth-code", mock.AnythingOfType("string")).
			Return(nil, crm.NewExchangeFailed(crm.ProviderHubSpot, assert.AnError))

		svc := newConnectionService(new(MockIntegrationRepository), registry)
		in := validCallbackInput(userID, crm.EncodeState(userID, crm.ProviderHubSpot))

		_, err := svc.HandleCallback(context.Background(), in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to exchange hubspot code")
	})
}

func TestConnectionService_ConnectByAPIKey(t *testing.T) {
	userID := uuid.New()

	t.Run("validates and stores the key", func(t *testing.T) {
		integrations := new(MockIntegrationRepository)
		registry := new(MockProviderRegistry)
		client := &MockProviderClient{provider: crm.ProviderAttio}

		registry.On("Client", crm.ProviderAttio).Return(client, nil)
		client.On("ValidateAPIKey", mock.Anything, "sk-live").Return(nil)
		integrations.On("FindByUserAndProvider", mock.Anything, userID, crm.ProviderAttio).
			Return(nil, crm.ErrIntegrationNotFound)
		integrations.On("Upsert", mock.Anything, mock.AnythingOfType("*crm.Integration")).
			Run(func(args mock.Arguments) {
				stored := args.Get(1).(*crm.Integration)
				assert.Equal(t, "sk-live", stored.AccessToken)
				assert.Nil(t, stored.RefreshToken)
			}).
			Return(nil)

		svc := newConnectionService(integrations, registry)
		resp, err := svc.ConnectByAPIKey(context.Background(), userID, "ada@example.com", "attio", "sk-live")
		require.NoError(t, err)
		assert.Equal(t, crm.ProviderAttio, resp.Provider)
	})

	t.Run("rejects empty key", func(t *testing.T) {
		svc := newConnectionService(new(MockIntegrationRepository), new(MockProviderRegistry))
		_, err := svc.ConnectByAPIKey(context.Background(), userID, "", "attio", "")
		assert.Equal(t, crm.ErrAPIKeyRequired, err)
	})

	t.Run("rejects invalid key", func(t *testing.T) {
		registry := new(MockProviderRegistry)
		client := &MockProviderClient{provider: crm.ProviderAttio}
		registry.On("Client", crm.ProviderAttio).Return(client, nil)
		client.On("ValidateAPIKey", mock.Anything, "sk-bad").Return(crm.ErrInvalidAPIKey)

		svc := newConnectionService(new(MockIntegrationRepository), registry)
		_, err := svc.ConnectByAPIKey(context.Background(), userID, "", "attio", "sk-bad")
		assert.Equal(t, crm.ErrInvalidAPIKey, err)
	})
}

func TestConnectionService_List(t *testing.T) {
	userID := uuid.New()
	integrations := new(MockIntegrationRepository)

	integration := crm.NewIntegration(userID, crm.ProviderHubSpot)
	integration.AccessToken = "secret-token"
	refresh := "secret-refresh"
	integration.RefreshToken = &refresh

	integrations.On("FindByUser", mock.Anything, userID).Return([]crm.Integration{*integration}, nil)

	svc := newConnectionService(integrations, new(MockProviderRegistry))
	responses, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, responses, 1)

	assert.Equal(t, integration.ID, responses[0].ID)
	assert.Equal(t, "HubSpot", responses[0].ProviderName)
}

func TestConnectionService_Update(t *testing.T) {
	userID := uuid.New()
	integrations := new(MockIntegrationRepository)

	integration := crm.NewIntegration(userID, crm.ProviderHubSpot)
	integrations.On("FindByUserAndID", mock.Anything, userID, integration.ID).Return(integration, nil)
	integrations.On("Update", mock.Anything, integration).Return(nil)

	enabled := false
	createDeal := true
	priorities := []crm.SignalPriority{crm.SignalPriorityHigh}

	svc := newConnectionService(integrations, new(MockProviderRegistry))
	resp, err := svc.Update(context.Background(), userID, integration.ID, UpdateIntegrationRequest{
		AutoSyncEnabled:  &enabled,
		CreateDeal:       &createDeal,
		SyncOnPriorities: &priorities,
	})
	require.NoError(t, err)

	assert.False(t, resp.AutoSyncEnabled)
	assert.True(t, resp.CreateDeal)
	assert.Equal(t, priorities, resp.SyncOnPriorities)
	// Untouched fields keep their defaults
	assert.True(t, resp.CreateCompany)
}

func TestConnectionService_Disconnect(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()

	integrations := new(MockIntegrationRepository)
	integrations.On("Delete", mock.Anything, userID, id).Return(nil)

	svc := newConnectionService(integrations, new(MockProviderRegistry))
	require.NoError(t, svc.Disconnect(context.Background(), userID, id))
	integrations.AssertExpectations(t)
}
