package crm

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FieldMapping maps engine field names to provider property names
type FieldMapping map[string]string

// Integration is a stored connection between a user and one CRM provider.
// At most one integration exists per (user, provider) pair.
type Integration struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Provider Provider

	// Credential material. AccessToken holds the static key for key-based
	// providers.
	AccessToken    string
	RefreshToken   *string
	TokenExpiresAt *time.Time
	InstanceURL    *string
	PortalID       *string
	AccountID      *string

	ConnectedAt      time.Time
	ConnectedByEmail *string

	// Sync policy
	AutoSyncEnabled   bool
	SyncOnSignalTypes []SignalType
	SyncOnPriorities  []SignalPriority
	FieldMapping      FieldMapping
	CreateCompany     bool
	CreateContact     bool
	CreateDeal        bool
	CreateNote        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewIntegration creates an integration with default sync policy: auto-sync
// on, all signal types and priorities eligible, company/contact/note
// creation enabled, deal creation off.
func NewIntegration(userID uuid.UUID, provider Provider) *Integration {
	now := time.Now()
	return &Integration{
		ID:                uuid.New(),
		UserID:            userID,
		Provider:          provider,
		ConnectedAt:       now,
		AutoSyncEnabled:   true,
		SyncOnSignalTypes: []SignalType{},
		SyncOnPriorities:  []SignalPriority{},
		FieldMapping:      FieldMapping{},
		CreateCompany:     true,
		CreateContact:     true,
		CreateDeal:        false,
		CreateNote:        true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ApplyGrant overwrites the credential material from a token grant. Used on
// first connection and on reconnection; sync policy is left untouched so a
// reconnect does not reset the user's configuration.
func (i *Integration) ApplyGrant(grant *TokenGrant, email string) {
	now := time.Now()
	i.AccessToken = grant.AccessToken
	i.RefreshToken = optional(grant.RefreshToken)
	i.TokenExpiresAt = nil
	if grant.ExpiresIn > 0 {
		expires := now.Add(time.Duration(grant.ExpiresIn) * time.Second)
		i.TokenExpiresAt = &expires
	}
	i.InstanceURL = optional(grant.InstanceURL)
	i.PortalID = optional(grant.PortalID)
	i.AccountID = optional(grant.AccountID)
	i.ConnectedAt = now
	i.ConnectedByEmail = optional(email)
	i.UpdatedAt = now
}

// ApplyAPIKey overwrites the credential material with a static key, clearing
// every OAuth-only field.
func (i *Integration) ApplyAPIKey(key, email string) {
	now := time.Now()
	i.AccessToken = key
	i.RefreshToken = nil
	i.TokenExpiresAt = nil
	i.InstanceURL = nil
	i.PortalID = nil
	i.AccountID = nil
	i.ConnectedAt = now
	i.ConnectedByEmail = optional(email)
	i.UpdatedAt = now
}

// Patch holds the whitelisted policy fields a user may update. Nil fields
// are left unchanged; anything outside this set is dropped before it gets
// here.
type Patch struct {
	AutoSyncEnabled   *bool
	SyncOnSignalTypes *[]SignalType
	SyncOnPriorities  *[]SignalPriority
	FieldMapping      *FieldMapping
	CreateCompany     *bool
	CreateContact     *bool
	CreateDeal        *bool
	CreateNote        *bool
}

// Apply merges the patch into the integration's sync policy
func (i *Integration) Apply(p Patch) {
	if p.AutoSyncEnabled != nil {
		i.AutoSyncEnabled = *p.AutoSyncEnabled
	}
	if p.SyncOnSignalTypes != nil {
		i.SyncOnSignalTypes = *p.SyncOnSignalTypes
	}
	if p.SyncOnPriorities != nil {
		i.SyncOnPriorities = *p.SyncOnPriorities
	}
	if p.FieldMapping != nil {
		i.FieldMapping = *p.FieldMapping
	}
	if p.CreateCompany != nil {
		i.CreateCompany = *p.CreateCompany
	}
	if p.CreateContact != nil {
		i.CreateContact = *p.CreateContact
	}
	if p.CreateDeal != nil {
		i.CreateDeal = *p.CreateDeal
	}
	if p.CreateNote != nil {
		i.CreateNote = *p.CreateNote
	}
	i.UpdatedAt = time.Now()
}

// AcceptsSignal checks the integration's signal-type and priority filters.
// An empty filter list means everything is eligible. A mismatch returns a
// descriptive error that the orchestrator records as a failed attempt.
func (i *Integration) AcceptsSignal(s *Signal) error {
	if len(i.SyncOnSignalTypes) > 0 && !containsType(i.SyncOnSignalTypes, s.SignalType) {
		return fmt.Errorf("signal type %s not configured for sync", s.SignalType)
	}
	if len(i.SyncOnPriorities) > 0 && !containsPriority(i.SyncOnPriorities, s.Priority) {
		return fmt.Errorf("signal priority %s not configured for sync", s.Priority)
	}
	return nil
}

// MappedField resolves an engine field name through the field mapping,
// falling back to the given default property name
func (i *Integration) MappedField(field, fallback string) string {
	if mapped, ok := i.FieldMapping[field]; ok && mapped != "" {
		return mapped
	}
	return fallback
}

func containsType(list []SignalType, t SignalType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func containsPriority(list []SignalPriority, p SignalPriority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
