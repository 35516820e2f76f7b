package crm

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/signaldesk/backend/internal/domain/crm"
)

// MockIntegrationRepository is a mock implementation of IntegrationRepository
type MockIntegrationRepository struct {
	mock.Mock
}

func (m *MockIntegrationRepository) FindByUserAndID(ctx context.Context, userID, id uuid.UUID) (*crm.Integration, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider crm.Provider) (*crm.Integration, error) {
	args := m.Called(ctx, userID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]crm.Integration, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]crm.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindAutoSyncEnabled(ctx context.Context, userID uuid.UUID) ([]crm.Integration, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]crm.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) Upsert(ctx context.Context, integration *crm.Integration) error {
	args := m.Called(ctx, integration)
	return args.Error(0)
}

func (m *MockIntegrationRepository) Update(ctx context.Context, integration *crm.Integration) error {
	args := m.Called(ctx, integration)
	return args.Error(0)
}

func (m *MockIntegrationRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockSyncLogRepository is a mock implementation of SyncLogRepository
type MockSyncLogRepository struct {
	mock.Mock
}

func (m *MockSyncLogRepository) Create(ctx context.Context, log *crm.SyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSyncLogRepository) Finalize(ctx context.Context, log *crm.SyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSyncLogRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter crm.HistoryFilter) ([]crm.SyncLogWithIntegration, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]crm.SyncLogWithIntegration), args.Error(1)
}

// MockSignalRepository is a mock implementation of SignalRepository
type MockSignalRepository struct {
	mock.Mock
}

func (m *MockSignalRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Signal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Signal), args.Error(1)
}

// MockProviderClient is a mock implementation of ProviderClient
type MockProviderClient struct {
	mock.Mock
	provider crm.Provider
}

func (m *MockProviderClient) Provider() crm.Provider {
	return m.provider
}

func (m *MockProviderClient) AuthCodeURL(redirectURI, state string) (string, error) {
	args := m.Called(redirectURI, state)
	return args.String(0), args.Error(1)
}

func (m *MockProviderClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*crm.TokenGrant, error) {
	args := m.Called(ctx, code, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.TokenGrant), args.Error(1)
}

func (m *MockProviderClient) ValidateAPIKey(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockProviderClient) PushSignal(ctx context.Context, integration *crm.Integration, signal *crm.Signal) (*crm.SyncOutcome, error) {
	args := m.Called(ctx, integration, signal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.SyncOutcome), args.Error(1)
}

// MockProviderRegistry is a mock implementation of ProviderRegistry
type MockProviderRegistry struct {
	mock.Mock
}

func (m *MockProviderRegistry) Client(p crm.Provider) (crm.ProviderClient, error) {
	args := m.Called(p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(crm.ProviderClient), args.Error(1)
}

func (m *MockProviderRegistry) MissingSettings(p crm.Provider) []string {
	args := m.Called(p)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}
