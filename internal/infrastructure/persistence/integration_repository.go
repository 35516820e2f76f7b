package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/signaldesk/backend/internal/domain/crm"
	"github.com/signaldesk/backend/internal/infrastructure/persistence/models"
)

// GormIntegrationRepository implements crm.IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// FindByUserAndID finds an integration scoped to its owner
func (r *GormIntegrationRepository) FindByUserAndID(ctx context.Context, userID, id uuid.UUID) (*crm.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, crm.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUserAndProvider finds the single integration for a (user, provider) pair
func (r *GormIntegrationRepository) FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider crm.Provider) (*crm.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, crm.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser lists all integrations owned by a user, newest first
func (r *GormIntegrationRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]crm.Integration, error) {
	var rows []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("connected_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainIntegrations(rows), nil
}

// FindAutoSyncEnabled lists the user's integrations with auto-sync on
func (r *GormIntegrationRepository) FindAutoSyncEnabled(ctx context.Context, userID uuid.UUID) ([]crm.Integration, error) {
	var rows []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND auto_sync_enabled = ?", userID, true).
		Order("connected_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainIntegrations(rows), nil
}

// Upsert inserts the integration, or updates the existing (user, provider)
// row in place keeping its ID. Relies on the composite unique index.
func (r *GormIntegrationRepository) Upsert(ctx context.Context, integration *crm.Integration) error {
	model := models.IntegrationModelFromDomain(integration)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token", "refresh_token", "token_expires_at",
				"instance_url", "portal_id", "account_id",
				"connected_at", "connected_by_email", "updated_at",
			}),
		}).
		Create(model).Error
}

// Update persists policy changes to an existing integration
func (r *GormIntegrationRepository) Update(ctx context.Context, integration *crm.Integration) error {
	model := models.IntegrationModelFromDomain(integration)
	result := r.db.WithContext(ctx).
		Model(&models.IntegrationModel{}).
		Where("user_id = ? AND id = ?", integration.UserID, integration.ID).
		Updates(map[string]interface{}{
			"auto_sync_enabled":    model.AutoSyncEnabled,
			"sync_on_signal_types": model.SyncOnSignalTypesJSON,
			"sync_on_priorities":   model.SyncOnPrioritiesJSON,
			"field_mapping":        model.FieldMappingJSON,
			"create_company":       model.CreateCompany,
			"create_contact":       model.CreateContact,
			"create_deal":          model.CreateDeal,
			"create_note":          model.CreateNote,
			"updated_at":           model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return crm.ErrIntegrationNotFound
	}
	return nil
}

// Delete hard-deletes an integration scoped to its owner. Sync logs are left
// in place so history survives the disconnect.
func (r *GormIntegrationRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.IntegrationModel{}, "user_id = ? AND id = ?", userID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return crm.ErrIntegrationNotFound
	}
	return nil
}

func toDomainIntegrations(rows []models.IntegrationModel) []crm.Integration {
	integrations := make([]crm.Integration, len(rows))
	for i := range rows {
		integrations[i] = *rows[i].ToDomain()
	}
	return integrations
}

// Ensure GormIntegrationRepository implements crm.IntegrationRepository
var _ crm.IntegrationRepository = (*GormIntegrationRepository)(nil)
