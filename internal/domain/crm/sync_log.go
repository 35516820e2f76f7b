package crm

import (
	"time"

	"github.com/google/uuid"
	"github.com/signaldesk/backend/internal/domain/shared"
)

// SyncStatus represents the lifecycle of one sync attempt
type SyncStatus string

const (
	// SyncStatusSyncing indicates the attempt is in flight
	SyncStatusSyncing SyncStatus = "syncing"
	// SyncStatusSuccess indicates the attempt completed
	SyncStatusSuccess SyncStatus = "success"
	// SyncStatusFailed indicates the attempt failed
	SyncStatusFailed SyncStatus = "failed"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSyncing, SyncStatusSuccess, SyncStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ErrLogFinalized is returned when a sync log row is completed twice
var ErrLogFinalized = shared.NewDomainError("ERR_INVALID_STATE", "Sync log entry already finalized")

// SyncLog is one append-only record of one attempt to push one signal into
// one provider. A row is created when the attempt starts and finalized
// exactly once when it ends; it is never rewritten afterwards and survives
// deletion of the owning integration.
type SyncLog struct {
	ID            uuid.UUID
	IntegrationID uuid.UUID
	SignalID      uuid.UUID
	UserID        uuid.UUID
	Status        SyncStatus
	StartedAt     time.Time
	CompletedAt   *time.Time
	CompanyID     *string
	ContactID     *string
	DealID        *string
	NoteID        *string
	ErrorMessage  *string
	CreatedAt     time.Time
}

// NewSyncLog creates a log row in the syncing state
func NewSyncLog(integrationID, signalID, userID uuid.UUID) *SyncLog {
	now := time.Now()
	return &SyncLog{
		ID:            uuid.New(),
		IntegrationID: integrationID,
		SignalID:      signalID,
		UserID:        userID,
		Status:        SyncStatusSyncing,
		StartedAt:     now,
		CreatedAt:     now,
	}
}

// Complete finalizes the row with the attempt's outcome. Calling it on an
// already-finalized row is a programming error and returns ErrLogFinalized.
func (l *SyncLog) Complete(outcome *SyncOutcome) error {
	if l.CompletedAt != nil {
		return ErrLogFinalized
	}
	now := time.Now()
	l.CompletedAt = &now
	if outcome.Success {
		l.Status = SyncStatusSuccess
	} else {
		l.Status = SyncStatusFailed
	}
	l.CompanyID = optional(outcome.CompanyID)
	l.ContactID = optional(outcome.ContactID)
	l.DealID = optional(outcome.DealID)
	l.NoteID = optional(outcome.NoteID)
	l.ErrorMessage = optional(outcome.Error)
	return nil
}

// SyncLogWithIntegration is a history row joined with the owning
// integration's provider metadata. The metadata fields are empty when the
// integration has since been disconnected.
type SyncLogWithIntegration struct {
	SyncLog
	Provider    Provider
	PortalID    *string
	InstanceURL *string
}
