package persistence

import (
	"context"
	"database/sql"
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

func newMockSyncLogRepository(t *testing.T) (*GormSyncLogRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormSyncLogRepository(gormDB), mock, mockDB
}

func TestGormSyncLogRepository_Create(t *testing.T) {
	t.Run("inserts syncing row", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncLogRepository(t)
		defer mockDB.Close()

		log := crm.NewSyncLog(uuid.New(), uuid.New(), uuid.New())

		mock.ExpectExec(`INSERT INTO "crm_sync_logs" .*`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(context.Background(), log)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSyncLogRepository_Finalize(t *testing.T) {
	t.Run("finalizes syncing row", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncLogRepository(t)
		defer mockDB.Close()

		log := crm.NewSyncLog(uuid.New(), uuid.New(), uuid.New())
		require.NoError(t, log.Complete(&crm.SyncOutcome{Success: true, CompanyID: "c-1", NoteID: "n-1"}))

		mock.ExpectExec(`UPDATE "crm_sync_logs" SET .* WHERE id = \$\d+ AND status = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Finalize(context.Background(), log)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already finalized row is not rewritten", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncLogRepository(t)
		defer mockDB.Close()

		log := crm.NewSyncLog(uuid.New(), uuid.New(), uuid.New())
		require.NoError(t, log.Complete(&crm.SyncOutcome{Success: false, Error: "timeout"}))

		mock.ExpectExec(`UPDATE "crm_sync_logs" SET .*`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Finalize(context.Background(), log)

		assert.Equal(t, crm.ErrLogFinalized, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSyncLogRepository_FindByUser(t *testing.T) {
	historyColumns := []string{
		"id", "integration_id", "signal_id", "user_id", "status",
		"started_at", "completed_at", "company_id", "contact_id",
		"deal_id", "note_id", "error_message", "created_at",
		"provider", "portal_id", "instance_url",
	}

	t.Run("joins provider metadata", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncLogRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		now := time.Now()
		completed := now.Add(time.Second)

		rows := sqlmock.NewRows(historyColumns).
			AddRow(uuid.New(), uuid.New(), uuid.New(), userID, "success",
				now, completed, "comp-1", nil, nil, "note-1", nil, now,
				"hubspot", "12345", nil)

		mock.ExpectQuery(`SELECT l\.\*, i\.provider, i\.portal_id, i\.instance_url FROM crm_sync_logs AS l LEFT JOIN crm_integrations AS i ON i\.id = l\.integration_id WHERE l\.user_id = \$1 ORDER BY l\.created_at DESC LIMIT .*`).
			WithArgs(userID, 50).
			WillReturnRows(rows)

		history, err := repo.FindByUser(context.Background(), userID, crm.HistoryFilter{})

		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, crm.SyncStatusSuccess, history[0].Status)
		assert.Equal(t, crm.ProviderHubSpot, history[0].Provider)
		require.NotNil(t, history[0].PortalID)
		assert.Equal(t, "12345", *history[0].PortalID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("orphaned row keeps empty provider", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncLogRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(historyColumns).
			AddRow(uuid.New(), uuid.New(), uuid.New(), userID, "failed",
				now, now, nil, nil, nil, nil, "provider timeout", now,
				nil, nil, nil)

		mock.ExpectQuery(`SELECT l\.\*, .* LEFT JOIN crm_integrations .*`).
			WithArgs(userID, 50).
			WillReturnRows(rows)

		history, err := repo.FindByUser(context.Background(), userID, crm.HistoryFilter{})

		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, crm.Provider(""), history[0].Provider)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filters by signal and caps limit", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncLogRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		signalID := uuid.New()

		mock.ExpectQuery(`SELECT l\.\*, .* WHERE l\.user_id = \$1 AND l\.signal_id = \$2 ORDER BY l\.created_at DESC LIMIT .*`).
			WithArgs(userID, signalID, 200).
			WillReturnRows(sqlmock.NewRows(historyColumns))

		history, err := repo.FindByUser(context.Background(), userID, crm.HistoryFilter{
			SignalID: &signalID,
			Limit:    1000,
		})

		require.NoError(t, err)
		assert.Empty(t, history)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
