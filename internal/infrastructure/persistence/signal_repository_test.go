package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/signaldesk/backend/internal/domain/crm"
)

func TestGormSignalRepository_FindByID(t *testing.T) {
	newRepo := func(t *testing.T) (*GormSignalRepository, sqlmock.Sqlmock) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { mockDB.Close() })

		gormDB, err := gorm.Open(postgres.New(postgres.Config{
			Conn:       mockDB,
			DriverName: "postgres",
		}), &gorm.Config{SkipDefaultTransaction: true})
		require.NoError(t, err)

		return NewGormSignalRepository(gormDB), mock
	}

	columns := []string{
		"id", "user_id", "company_name", "company_domain", "signal_type",
		"title", "summary", "source_url", "source_name", "priority",
		"metadata", "detected_at", "created_at",
	}

	t.Run("loads signal with metadata", func(t *testing.T) {
		repo, mock := newRepo(t)

		signalID := uuid.New()
		userID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(columns).
			AddRow(signalID, userID, "Acme Corp", "acme.com", "funding",
				"Acme raises Series B", "Acme announced...", "https://news.example.com/acme", "TechNews", "high",
				`{"funding_amount":"$40M"}`, now, now)

		mock.ExpectQuery(`SELECT \* FROM "signals" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(signalID, 1).
			WillReturnRows(rows)

		signal, err := repo.FindByID(context.Background(), signalID)

		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", signal.CompanyName)
		assert.Equal(t, crm.SignalTypeFunding, signal.SignalType)
		assert.Equal(t, crm.SignalPriorityHigh, signal.Priority)
		assert.Equal(t, "$40M", signal.Metadata["funding_amount"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps record-not-found to domain error", func(t *testing.T) {
		repo, mock := newRepo(t)

		signalID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "signals" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(signalID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		signal, err := repo.FindByID(context.Background(), signalID)

		assert.Nil(t, signal)
		assert.Equal(t, crm.ErrSignalNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
