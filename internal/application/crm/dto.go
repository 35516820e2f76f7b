package crm

import (
	"time"

	"github.com/google/uuid"

	"github.com/signaldesk/backend/internal/domain/crm"
)

// ProviderInfo describes one entry of the provider catalog
type ProviderInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AuthMode    string `json:"auth_mode"`
	Implemented bool   `json:"implemented"`
	Configured  bool   `json:"configured"`
}

// InitiateResult carries the authorization URL and the state token the
// handler mirrors into the CSRF cookie
type InitiateResult struct {
	Provider crm.Provider `json:"provider"`
	AuthURL  string       `json:"auth_url"`
	State    string       `json:"-"`
}

// CallbackInput bundles everything the OAuth callback handler extracted
// from the request
type CallbackInput struct {
	Provider         string
	Code             string
	State            string
	CookieState      string
	ErrorParam       string
	ErrorDescription string
	UserID           uuid.UUID
	UserEmail        string
	RedirectURI      string
}

// CallbackResult is returned on a successful callback; the handler turns it
// into a settings-page redirect
type CallbackResult struct {
	Provider      crm.Provider
	IntegrationID uuid.UUID
}

// ConnectAPIKeyRequest is the body of an API-key connect request
type ConnectAPIKeyRequest struct {
	APIKey string `json:"apiKey" binding:"required"`
}

// UpdateIntegrationRequest carries the whitelisted policy fields a user may
// change. Anything else in the request body is ignored.
type UpdateIntegrationRequest struct {
	AutoSyncEnabled   *bool                 `json:"auto_sync_enabled"`
	SyncOnSignalTypes *[]crm.SignalType     `json:"sync_on_signal_types"`
	SyncOnPriorities  *[]crm.SignalPriority `json:"sync_on_priorities"`
	FieldMapping      *crm.FieldMapping     `json:"field_mapping"`
	CreateCompany     *bool                 `json:"create_company"`
	CreateContact     *bool                 `json:"create_contact"`
	CreateDeal        *bool                 `json:"create_deal"`
	CreateNote        *bool                 `json:"create_note"`
}

// ToPatch converts the request into a domain patch
func (r UpdateIntegrationRequest) ToPatch() crm.Patch {
	return crm.Patch{
		AutoSyncEnabled:   r.AutoSyncEnabled,
		SyncOnSignalTypes: r.SyncOnSignalTypes,
		SyncOnPriorities:  r.SyncOnPriorities,
		FieldMapping:      r.FieldMapping,
		CreateCompany:     r.CreateCompany,
		CreateContact:     r.CreateContact,
		CreateDeal:        r.CreateDeal,
		CreateNote:        r.CreateNote,
	}
}

// IntegrationResponse is the redacted view of an integration. Credential
// material never leaves the service layer.
type IntegrationResponse struct {
	ID                uuid.UUID            `json:"id"`
	Provider          crm.Provider         `json:"provider"`
	ProviderName      string               `json:"provider_name"`
	ConnectedAt       time.Time            `json:"connected_at"`
	ConnectedByEmail  *string              `json:"connected_by_email,omitempty"`
	PortalID          *string              `json:"portal_id,omitempty"`
	InstanceURL       *string              `json:"instance_url,omitempty"`
	AccountID         *string              `json:"account_id,omitempty"`
	AutoSyncEnabled   bool                 `json:"auto_sync_enabled"`
	SyncOnSignalTypes []crm.SignalType     `json:"sync_on_signal_types"`
	SyncOnPriorities  []crm.SignalPriority `json:"sync_on_priorities"`
	FieldMapping      crm.FieldMapping     `json:"field_mapping"`
	CreateCompany     bool                 `json:"create_company"`
	CreateContact     bool                 `json:"create_contact"`
	CreateDeal        bool                 `json:"create_deal"`
	CreateNote        bool                 `json:"create_note"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// ToIntegrationResponse strips credential material from an integration
func ToIntegrationResponse(i *crm.Integration) IntegrationResponse {
	return IntegrationResponse{
		ID:                i.ID,
		Provider:          i.Provider,
		ProviderName:      i.Provider.DisplayName(),
		ConnectedAt:       i.ConnectedAt,
		ConnectedByEmail:  i.ConnectedByEmail,
		PortalID:          i.PortalID,
		InstanceURL:       i.InstanceURL,
		AccountID:         i.AccountID,
		AutoSyncEnabled:   i.AutoSyncEnabled,
		SyncOnSignalTypes: i.SyncOnSignalTypes,
		SyncOnPriorities:  i.SyncOnPriorities,
		FieldMapping:      i.FieldMapping,
		CreateCompany:     i.CreateCompany,
		CreateContact:     i.CreateContact,
		CreateDeal:        i.CreateDeal,
		CreateNote:        i.CreateNote,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
}

// PushSignalRequest is the body of a manual sync request
type PushSignalRequest struct {
	SignalID      uuid.UUID  `json:"signalId" binding:"required"`
	IntegrationID *uuid.UUID `json:"integrationId"`
}

// SyncResult is the per-integration outcome of one push
type SyncResult struct {
	IntegrationID uuid.UUID    `json:"integration_id"`
	Provider      crm.Provider `json:"provider"`
	Success       bool         `json:"success"`
	CompanyID     string       `json:"company_id,omitempty"`
	ContactID     string       `json:"contact_id,omitempty"`
	DealID        string       `json:"deal_id,omitempty"`
	NoteID        string       `json:"note_id,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// SyncSummary aggregates a fan-out's results
type SyncSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// PushSignalResponse is the full result of a sync request. Success is true
// only when every integration succeeded.
type PushSignalResponse struct {
	Success bool         `json:"success"`
	Results []SyncResult `json:"results"`
	Summary SyncSummary  `json:"summary"`
}

// SyncLogResponse is one history row in API responses
type SyncLogResponse struct {
	ID            uuid.UUID      `json:"id"`
	IntegrationID uuid.UUID      `json:"integration_id"`
	SignalID      uuid.UUID      `json:"signal_id"`
	Status        crm.SyncStatus `json:"status"`
	Provider      crm.Provider   `json:"provider,omitempty"`
	PortalID      *string        `json:"portal_id,omitempty"`
	InstanceURL   *string        `json:"instance_url,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	CompanyID     *string        `json:"company_id,omitempty"`
	ContactID     *string        `json:"contact_id,omitempty"`
	DealID        *string        `json:"deal_id,omitempty"`
	NoteID        *string        `json:"note_id,omitempty"`
	ErrorMessage  *string        `json:"error_message,omitempty"`
}

// ToSyncLogResponse converts a joined history row
func ToSyncLogResponse(l *crm.SyncLogWithIntegration) SyncLogResponse {
	return SyncLogResponse{
		ID:            l.ID,
		IntegrationID: l.IntegrationID,
		SignalID:      l.SignalID,
		Status:        l.Status,
		Provider:      l.Provider,
		PortalID:      l.PortalID,
		InstanceURL:   l.InstanceURL,
		StartedAt:     l.StartedAt,
		CompletedAt:   l.CompletedAt,
		CompanyID:     l.CompanyID,
		ContactID:     l.ContactID,
		DealID:        l.DealID,
		NoteID:        l.NoteID,
		ErrorMessage:  l.ErrorMessage,
	}
}
