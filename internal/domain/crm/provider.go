package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/signaldesk/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Provider represents an external CRM backend
// ---------------------------------------------------------------------------

// Provider represents the type of CRM backend
type Provider string

const (
	// ProviderHubSpot represents HubSpot CRM (OAuth)
	ProviderHubSpot Provider = "hubspot"
	// ProviderSalesforce represents Salesforce (OAuth)
	ProviderSalesforce Provider = "salesforce"
	// ProviderPipedrive represents Pipedrive (OAuth)
	ProviderPipedrive Provider = "pipedrive"
	// ProviderZoho represents Zoho CRM (OAuth, not yet implemented)
	ProviderZoho Provider = "zoho"
	// ProviderApollo represents Apollo.io (OAuth or API key)
	ProviderApollo Provider = "apollo"
	// ProviderAttio represents Attio (API key only)
	ProviderAttio Provider = "attio"
)

// SupportedProviders returns every provider the engine recognizes
func SupportedProviders() []Provider {
	return []Provider{
		ProviderHubSpot,
		ProviderSalesforce,
		ProviderPipedrive,
		ProviderZoho,
		ProviderApollo,
		ProviderAttio,
	}
}

// IsValid returns true if the provider is in the supported set
func (p Provider) IsValid() bool {
	switch p {
	case ProviderHubSpot, ProviderSalesforce, ProviderPipedrive,
		ProviderZoho, ProviderApollo, ProviderAttio:
		return true
	default:
		return false
	}
}

// String returns the string representation of Provider
func (p Provider) String() string {
	return string(p)
}

// DisplayName returns a human-readable name for the provider
func (p Provider) DisplayName() string {
	switch p {
	case ProviderHubSpot:
		return "HubSpot"
	case ProviderSalesforce:
		return "Salesforce"
	case ProviderPipedrive:
		return "Pipedrive"
	case ProviderZoho:
		return "Zoho CRM"
	case ProviderApollo:
		return "Apollo.io"
	case ProviderAttio:
		return "Attio"
	default:
		return string(p)
	}
}

// UsesAPIKey returns true if the provider connects with a static API key
// instead of the OAuth authorization-code flow
func (p Provider) UsesAPIKey() bool {
	return p == ProviderAttio
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrInvalidProvider is returned for providers outside the supported set
	ErrInvalidProvider = shared.NewDomainError("ERR_INVALID_PROVIDER", "Invalid CRM provider")
	// ErrOAuthUnsupported is returned when an OAuth operation is requested
	// for a key-based provider
	ErrOAuthUnsupported = shared.NewDomainError("ERR_OAUTH_UNSUPPORTED", "Provider does not support OAuth")
	// ErrAPIKeyUnsupported is returned when key validation is requested for
	// an OAuth-only provider
	ErrAPIKeyUnsupported = shared.NewDomainError("ERR_API_KEY_UNSUPPORTED", "Provider does not support API key authentication")
	// ErrIntegrationNotFound is returned when no integration matches
	ErrIntegrationNotFound = shared.NewDomainError("ERR_NOT_FOUND", "CRM integration not found")
	// ErrSignalNotFound is returned when the signal to sync does not exist
	ErrSignalNotFound = shared.NewDomainError("ERR_NOT_FOUND", "Signal not found")
	// ErrNoIntegrations is returned when sync selection yields nothing
	ErrNoIntegrations = shared.NewDomainError("ERR_NO_INTEGRATIONS", "No CRM integrations found")
	// ErrMissingParameters is returned when the OAuth callback lacks code or state
	ErrMissingParameters = shared.NewDomainError("ERR_VALIDATION", "Missing code or state")
	// ErrCsrfMismatch is returned when the state does not match the cookie value
	ErrCsrfMismatch = shared.NewDomainError("ERR_CSRF_MISMATCH", "Invalid state")
	// ErrInvalidStateFormat is returned when the state token cannot be decoded
	ErrInvalidStateFormat = shared.NewDomainError("ERR_STATE_FORMAT", "Invalid state format")
	// ErrStateExpired is returned when the state token is older than the allowed window
	ErrStateExpired = shared.NewDomainError("ERR_STATE_EXPIRED", "OAuth session expired")
	// ErrUserMismatch is returned when the state was minted for a different user
	ErrUserMismatch = shared.NewDomainError("ERR_USER_MISMATCH", "OAuth session does not belong to current user")
	// ErrAPIKeyRequired is returned when an API-key connect request has no key
	ErrAPIKeyRequired = shared.NewDomainError("ERR_VALIDATION", "API key required")
	// ErrInvalidAPIKey is returned when provider-side key validation fails
	ErrInvalidAPIKey = shared.NewDomainError("ERR_VALIDATION", "Invalid API key")
)

// NewProviderNotConfigured builds the error reported when a provider's OAuth
// client settings are absent, listing the missing settings by name
func NewProviderNotConfigured(p Provider, missing []string) *shared.DomainError {
	return shared.NewDomainError(
		"ERR_PROVIDER_NOT_CONFIGURED",
		fmt.Sprintf("%s integration not configured (missing: %s)", p.DisplayName(), strings.Join(missing, ", ")),
	)
}

// NewProviderError builds the error reported when the provider itself
// returned an error through the OAuth redirect
func NewProviderError(p Provider, code, description string) *shared.DomainError {
	msg := code
	if description != "" {
		msg = description
	}
	return shared.NewDomainError("ERR_PROVIDER", fmt.Sprintf("%s OAuth error: %s", p.DisplayName(), msg))
}

// NewExchangeFailed builds the error reported when the authorization-code
// exchange fails, wrapping the upstream cause
func NewExchangeFailed(p Provider, cause error) *shared.DomainError {
	return shared.WrapDomainError("ERR_EXCHANGE_FAILED", fmt.Sprintf("failed to exchange %s code", p), cause)
}

// ---------------------------------------------------------------------------
// Port interfaces and value objects
// ---------------------------------------------------------------------------

// TokenGrant is the normalized result of an authorization-code exchange.
// Provider-specific fields are empty when the backend does not supply them.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds; zero means the
	// provider did not report an expiry
	ExpiresIn int64
	// InstanceURL is set by Salesforce
	InstanceURL string
	// PortalID is set by HubSpot
	PortalID string
	// AccountID is set by Pipedrive
	AccountID string
}

// SyncOutcome is the normalized result of pushing one signal into one provider
type SyncOutcome struct {
	Success   bool
	CompanyID string
	ContactID string
	DealID    string
	NoteID    string
	Error     string
}

// ProviderClient is the capability port every CRM backend implements.
// OAuth-only operations return ErrOAuthUnsupported on key-based backends and
// vice versa.
type ProviderClient interface {
	// Provider returns the backend this client handles
	Provider() Provider

	// AuthCodeURL builds the provider's authorization URL carrying the
	// CSRF state token
	AuthCodeURL(redirectURI, state string) (string, error)

	// ExchangeCode exchanges an authorization code for tokens
	ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenGrant, error)

	// ValidateAPIKey checks a static key against the provider's liveness
	// endpoint
	ValidateAPIKey(ctx context.Context, key string) error

	// PushSignal creates provider-side objects for the signal, honoring the
	// integration's create_* flags and field mapping
	PushSignal(ctx context.Context, integration *Integration, signal *Signal) (*SyncOutcome, error)
}

// ProviderRegistry resolves provider clients and reports configuration gaps
type ProviderRegistry interface {
	// Client returns the client for a provider, or ErrInvalidProvider
	Client(p Provider) (ProviderClient, error)

	// MissingSettings returns the names of absent configuration settings
	// required by the provider; empty means the provider is configured
	MissingSettings(p Provider) []string
}
