package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/signaldesk/backend/internal/domain/crm"
	"github.com/signaldesk/backend/internal/infrastructure/persistence/models"
)

// GormSignalRepository implements crm.SignalRepository using GORM. It is a
// read-only view into the signal store; ingestion owns writes.
type GormSignalRepository struct {
	db *gorm.DB
}

// NewGormSignalRepository creates a new GormSignalRepository
func NewGormSignalRepository(db *gorm.DB) *GormSignalRepository {
	return &GormSignalRepository{db: db}
}

// FindByID loads a signal by id
func (r *GormSignalRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Signal, error) {
	var model models.SignalModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, crm.ErrSignalNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormSignalRepository implements crm.SignalRepository
var _ crm.SignalRepository = (*GormSignalRepository)(nil)
