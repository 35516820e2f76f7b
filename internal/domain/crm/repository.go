package crm

import (
	"context"

	"github.com/google/uuid"
)

// IntegrationRepository is the persistence port for integrations
type IntegrationRepository interface {
	// FindByUserAndID finds an integration scoped to its owner
	FindByUserAndID(ctx context.Context, userID, id uuid.UUID) (*Integration, error)

	// FindByUserAndProvider finds the single integration for a (user, provider) pair
	FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider Provider) (*Integration, error)

	// FindByUser lists all integrations owned by a user, newest first
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Integration, error)

	// FindAutoSyncEnabled lists the user's integrations with auto-sync on
	FindAutoSyncEnabled(ctx context.Context, userID uuid.UUID) ([]Integration, error)

	// Upsert inserts the integration, or updates the existing (user,
	// provider) row in place keeping its ID
	Upsert(ctx context.Context, integration *Integration) error

	// Update persists policy changes to an existing integration
	Update(ctx context.Context, integration *Integration) error

	// Delete hard-deletes an integration scoped to its owner. Sync logs are
	// not touched.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// HistoryFilter narrows a sync-history query
type HistoryFilter struct {
	// SignalID limits history to one signal when non-nil
	SignalID *uuid.UUID
	// Limit caps the number of rows returned
	Limit int
}

// SyncLogRepository is the persistence port for the append-only audit trail
type SyncLogRepository interface {
	// Create appends a new attempt row in the syncing state
	Create(ctx context.Context, log *SyncLog) error

	// Finalize writes the terminal state of an attempt row
	Finalize(ctx context.Context, log *SyncLog) error

	// FindByUser returns the caller's history newest-first, joined with the
	// owning integration's provider metadata where it still exists
	FindByUser(ctx context.Context, userID uuid.UUID, filter HistoryFilter) ([]SyncLogWithIntegration, error)
}

// SignalRepository is the read-only port into the signal store
type SignalRepository interface {
	// FindByID loads a signal by id
	FindByID(ctx context.Context, id uuid.UUID) (*Signal, error)
}
