package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/signaldesk/backend/internal/domain/crm"
)

// IntegrationModel is the persistence model for the Integration domain entity.
// The composite unique index enforces one integration per (user, provider).
type IntegrationModel struct {
	ID       uuid.UUID    `gorm:"type:uuid;primary_key"`
	UserID   uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_crm_integrations_user_provider,priority:1;index:idx_crm_integrations_user"`
	Provider crm.Provider `gorm:"type:varchar(20);not null;uniqueIndex:idx_crm_integrations_user_provider,priority:2"`

	AccessToken    string     `gorm:"type:text;not null"`
	RefreshToken   *string    `gorm:"type:text"`
	TokenExpiresAt *time.Time `gorm:"index"`
	InstanceURL    *string    `gorm:"type:varchar(255)"`
	PortalID       *string    `gorm:"type:varchar(100)"`
	AccountID      *string    `gorm:"type:varchar(100)"`

	ConnectedAt      time.Time `gorm:"not null"`
	ConnectedByEmail *string   `gorm:"type:varchar(255)"`

	AutoSyncEnabled       bool   `gorm:"not null;default:true"`
	SyncOnSignalTypesJSON string `gorm:"type:jsonb;column:sync_on_signal_types"`
	SyncOnPrioritiesJSON  string `gorm:"type:jsonb;column:sync_on_priorities"`
	FieldMappingJSON      string `gorm:"type:jsonb;column:field_mapping"`
	CreateCompany         bool   `gorm:"not null;default:true"`
	CreateContact         bool   `gorm:"not null;default:true"`
	CreateDeal            bool   `gorm:"not null;default:false"`
	CreateNote            bool   `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "crm_integrations"
}

// ToDomain converts the persistence model to a domain Integration entity.
func (m *IntegrationModel) ToDomain() *crm.Integration {
	integration := &crm.Integration{
		ID:                m.ID,
		UserID:            m.UserID,
		Provider:          m.Provider,
		AccessToken:       m.AccessToken,
		RefreshToken:      m.RefreshToken,
		TokenExpiresAt:    m.TokenExpiresAt,
		InstanceURL:       m.InstanceURL,
		PortalID:          m.PortalID,
		AccountID:         m.AccountID,
		ConnectedAt:       m.ConnectedAt,
		ConnectedByEmail:  m.ConnectedByEmail,
		AutoSyncEnabled:   m.AutoSyncEnabled,
		SyncOnSignalTypes: make([]crm.SignalType, 0),
		SyncOnPriorities:  make([]crm.SignalPriority, 0),
		FieldMapping:      crm.FieldMapping{},
		CreateCompany:     m.CreateCompany,
		CreateContact:     m.CreateContact,
		CreateDeal:        m.CreateDeal,
		CreateNote:        m.CreateNote,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}

	if m.SyncOnSignalTypesJSON != "" {
		var types []crm.SignalType
		if err := json.Unmarshal([]byte(m.SyncOnSignalTypesJSON), &types); err == nil {
			integration.SyncOnSignalTypes = types
		}
	}
	if m.SyncOnPrioritiesJSON != "" {
		var priorities []crm.SignalPriority
		if err := json.Unmarshal([]byte(m.SyncOnPrioritiesJSON), &priorities); err == nil {
			integration.SyncOnPriorities = priorities
		}
	}
	if m.FieldMappingJSON != "" {
		var mapping crm.FieldMapping
		if err := json.Unmarshal([]byte(m.FieldMappingJSON), &mapping); err == nil {
			integration.FieldMapping = mapping
		}
	}

	return integration
}

// FromDomain populates the persistence model from a domain Integration entity.
func (m *IntegrationModel) FromDomain(i *crm.Integration) {
	m.ID = i.ID
	m.UserID = i.UserID
	m.Provider = i.Provider
	m.AccessToken = i.AccessToken
	m.RefreshToken = i.RefreshToken
	m.TokenExpiresAt = i.TokenExpiresAt
	m.InstanceURL = i.InstanceURL
	m.PortalID = i.PortalID
	m.AccountID = i.AccountID
	m.ConnectedAt = i.ConnectedAt
	m.ConnectedByEmail = i.ConnectedByEmail
	m.AutoSyncEnabled = i.AutoSyncEnabled
	m.CreateCompany = i.CreateCompany
	m.CreateContact = i.CreateContact
	m.CreateDeal = i.CreateDeal
	m.CreateNote = i.CreateNote
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt

	m.SyncOnSignalTypesJSON = marshalList(i.SyncOnSignalTypes)
	m.SyncOnPrioritiesJSON = marshalList(i.SyncOnPriorities)

	if len(i.FieldMapping) > 0 {
		if jsonBytes, err := json.Marshal(i.FieldMapping); err == nil {
			m.FieldMappingJSON = string(jsonBytes)
		}
	} else {
		m.FieldMappingJSON = "{}"
	}
}

// IntegrationModelFromDomain creates a new persistence model from a domain Integration entity.
func IntegrationModelFromDomain(i *crm.Integration) *IntegrationModel {
	m := &IntegrationModel{}
	m.FromDomain(i)
	return m
}

func marshalList[T any](list []T) string {
	if len(list) == 0 {
		return "[]"
	}
	jsonBytes, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(jsonBytes)
}

// SyncLogModel is the persistence model for the SyncLog domain entity. Rows
// are append-only and intentionally carry no foreign key constraint to
// crm_integrations so history survives a disconnect.
type SyncLogModel struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key"`
	IntegrationID uuid.UUID      `gorm:"type:uuid;not null;index:idx_crm_sync_logs_integration"`
	SignalID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_crm_sync_logs_signal"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index:idx_crm_sync_logs_user"`
	Status        crm.SyncStatus `gorm:"type:varchar(20);not null;default:'syncing'"`
	StartedAt     time.Time      `gorm:"not null"`
	CompletedAt   *time.Time
	CompanyID    *string   `gorm:"type:varchar(100)"`
	ContactID    *string   `gorm:"type:varchar(100)"`
	DealID       *string   `gorm:"type:varchar(100)"`
	NoteID       *string   `gorm:"type:varchar(100)"`
	ErrorMessage *string   `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null;index:idx_crm_sync_logs_created"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "crm_sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLog entity.
func (m *SyncLogModel) ToDomain() *crm.SyncLog {
	return &crm.SyncLog{
		ID:            m.ID,
		IntegrationID: m.IntegrationID,
		SignalID:      m.SignalID,
		UserID:        m.UserID,
		Status:        m.Status,
		StartedAt:     m.StartedAt,
		CompletedAt:   m.CompletedAt,
		CompanyID:     m.CompanyID,
		ContactID:     m.ContactID,
		DealID:        m.DealID,
		NoteID:        m.NoteID,
		ErrorMessage:  m.ErrorMessage,
		CreatedAt:     m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncLog entity.
func (m *SyncLogModel) FromDomain(l *crm.SyncLog) {
	m.ID = l.ID
	m.IntegrationID = l.IntegrationID
	m.SignalID = l.SignalID
	m.UserID = l.UserID
	m.Status = l.Status
	m.StartedAt = l.StartedAt
	m.CompletedAt = l.CompletedAt
	m.CompanyID = l.CompanyID
	m.ContactID = l.ContactID
	m.DealID = l.DealID
	m.NoteID = l.NoteID
	m.ErrorMessage = l.ErrorMessage
	m.CreatedAt = l.CreatedAt
}

// SignalModel is the persistence model for the Signal read model. The engine
// only reads this table; signal ingestion writes it elsewhere.
type SignalModel struct {
	ID            uuid.UUID          `gorm:"type:uuid;primary_key"`
	UserID        uuid.UUID          `gorm:"type:uuid;not null;index:idx_signals_user"`
	CompanyName   string             `gorm:"type:varchar(255);not null"`
	CompanyDomain string             `gorm:"type:varchar(255)"`
	SignalType    crm.SignalType     `gorm:"type:varchar(30);not null"`
	Title         string             `gorm:"type:varchar(500);not null"`
	Summary       string             `gorm:"type:text"`
	SourceURL     string             `gorm:"type:varchar(1000)"`
	SourceName    string             `gorm:"type:varchar(255)"`
	Priority      crm.SignalPriority `gorm:"type:varchar(10);not null;default:'medium'"`
	MetadataJSON  string             `gorm:"type:jsonb;column:metadata"`
	DetectedAt    time.Time          `gorm:"not null"`
	CreatedAt     time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SignalModel) TableName() string {
	return "signals"
}

// ToDomain converts the persistence model to a domain Signal entity.
func (m *SignalModel) ToDomain() *crm.Signal {
	signal := &crm.Signal{
		ID:            m.ID,
		UserID:        m.UserID,
		CompanyName:   m.CompanyName,
		CompanyDomain: m.CompanyDomain,
		SignalType:    m.SignalType,
		Title:         m.Title,
		Summary:       m.Summary,
		SourceURL:     m.SourceURL,
		SourceName:    m.SourceName,
		Priority:      m.Priority,
		Metadata:      map[string]string{},
		DetectedAt:    m.DetectedAt,
		CreatedAt:     m.CreatedAt,
	}
	if m.MetadataJSON != "" {
		var metadata map[string]string
		if err := json.Unmarshal([]byte(m.MetadataJSON), &metadata); err == nil {
			signal.Metadata = metadata
		}
	}
	return signal
}
