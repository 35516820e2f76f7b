package crm

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/signaldesk/backend/internal/domain/crm"
)

func testUserID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

func testSignal(t *testing.T) *crm.Signal {
	t.Helper()
	return &crm.Signal{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		CompanyName:   "Acme Corp",
		CompanyDomain: "acme.com",
		SignalType:    crm.SignalTypeFunding,
		Title:         "Acme raises Series B",
		Summary:       "Acme announced a $40M Series B round.",
		SourceURL:     "https://news.example.com/acme-series-b",
		SourceName:    "TechNews",
		Priority:      crm.SignalPriorityHigh,
		Metadata:      map[string]string{"funding_amount": "$40M", "location": "Berlin"},
		DetectedAt:    time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		CreatedAt:     time.Now(),
	}
}
