package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/signaldesk/backend/internal/domain/crm"
	"github.com/signaldesk/backend/internal/infrastructure/persistence/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// GormSyncLogRepository implements crm.SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Create appends a new attempt row in the syncing state
func (r *GormSyncLogRepository) Create(ctx context.Context, log *crm.SyncLog) error {
	model := &models.SyncLogModel{}
	model.FromDomain(log)
	return r.db.WithContext(ctx).Create(model).Error
}

// Finalize writes the terminal state of an attempt row. Only rows still in
// the syncing state are touched, so a retried finalize cannot rewrite history.
func (r *GormSyncLogRepository) Finalize(ctx context.Context, log *crm.SyncLog) error {
	result := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Where("id = ? AND status = ?", log.ID, crm.SyncStatusSyncing).
		Updates(map[string]interface{}{
			"status":        log.Status,
			"completed_at":  log.CompletedAt,
			"company_id":    log.CompanyID,
			"contact_id":    log.ContactID,
			"deal_id":       log.DealID,
			"note_id":       log.NoteID,
			"error_message": log.ErrorMessage,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return crm.ErrLogFinalized
	}
	return nil
}

// syncLogRow is the scan target for the history join
type syncLogRow struct {
	ID            uuid.UUID
	IntegrationID uuid.UUID
	SignalID      uuid.UUID
	UserID        uuid.UUID
	Status        crm.SyncStatus
	StartedAt     time.Time
	CompletedAt   *time.Time
	CompanyID     *string
	ContactID     *string
	DealID        *string
	NoteID        *string
	ErrorMessage  *string
	CreatedAt     time.Time
	Provider      *crm.Provider
	PortalID      *string
	InstanceURL   *string
}

// FindByUser returns the caller's history newest-first, joined with the
// owning integration's provider metadata. A LEFT JOIN keeps rows whose
// integration has since been disconnected.
func (r *GormSyncLogRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter crm.HistoryFilter) ([]crm.SyncLogWithIntegration, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := r.db.WithContext(ctx).
		Table("crm_sync_logs AS l").
		Select("l.*, i.provider, i.portal_id, i.instance_url").
		Joins("LEFT JOIN crm_integrations AS i ON i.id = l.integration_id").
		Where("l.user_id = ?", userID)

	if filter.SignalID != nil {
		query = query.Where("l.signal_id = ?", *filter.SignalID)
	}

	var rows []syncLogRow
	if err := query.
		Order("l.created_at DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	history := make([]crm.SyncLogWithIntegration, len(rows))
	for i, row := range rows {
		entry := crm.SyncLogWithIntegration{
			SyncLog: crm.SyncLog{
				ID:            row.ID,
				IntegrationID: row.IntegrationID,
				SignalID:      row.SignalID,
				UserID:        row.UserID,
				Status:        row.Status,
				StartedAt:     row.StartedAt,
				CompletedAt:   row.CompletedAt,
				CompanyID:     row.CompanyID,
				ContactID:     row.ContactID,
				DealID:        row.DealID,
				NoteID:        row.NoteID,
				ErrorMessage:  row.ErrorMessage,
				CreatedAt:     row.CreatedAt,
			},
			PortalID:    row.PortalID,
			InstanceURL: row.InstanceURL,
		}
		if row.Provider != nil {
			entry.Provider = *row.Provider
		}
		history[i] = entry
	}
	return history, nil
}

// Ensure GormSyncLogRepository implements crm.SyncLogRepository
var _ crm.SyncLogRepository = (*GormSyncLogRepository)(nil)
