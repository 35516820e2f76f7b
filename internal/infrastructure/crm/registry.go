package crm

import (
	"strings"

	"github.com/signaldesk/backend/internal/domain/crm"
	"github.com/signaldesk/backend/internal/domain/shared"
	"github.com/signaldesk/backend/internal/infrastructure/config"
)

// Registry resolves provider clients from configuration. Zoho is enumerated
// by the domain but has no adapter yet; resolving it reports the gap.
type Registry struct {
	clients map[crm.Provider]crm.ProviderClient
	cfg     *config.CRMConfig
}

// NewRegistry builds the registry with one adapter per implemented provider
func NewRegistry(cfg *config.CRMConfig) *Registry {
	return &Registry{
		cfg: cfg,
		clients: map[crm.Provider]crm.ProviderClient{
			crm.ProviderHubSpot:    NewHubSpotClient(cfg.HubSpot),
			crm.ProviderSalesforce: NewSalesforceClient(cfg.Salesforce),
			crm.ProviderPipedrive:  NewPipedriveClient(cfg.Pipedrive),
			crm.ProviderApollo:     NewApolloClient(cfg.Apollo),
			crm.ProviderAttio:      NewAttioClient(),
		},
	}
}

// Client returns the adapter for a provider
func (r *Registry) Client(p crm.Provider) (crm.ProviderClient, error) {
	if !p.IsValid() {
		return nil, crm.ErrInvalidProvider
	}
	client, ok := r.clients[p]
	if !ok {
		return nil, shared.NewDomainError("ERR_PROVIDER_NOT_CONFIGURED",
			p.DisplayName()+" integration not yet implemented")
	}
	return client, nil
}

// MissingSettings returns the names of absent configuration settings required
// by the provider. Key-based providers carry no server-side settings.
func (r *Registry) MissingSettings(p crm.Provider) []string {
	if p.UsesAPIKey() {
		return nil
	}
	clientCfg, ok := r.cfg.ClientFor(p)
	if !ok {
		return nil
	}

	prefix := "SIGNALDESK_CRM_" + strings.ToUpper(p.String())
	var missing []string
	if clientCfg.ClientID == "" {
		missing = append(missing, prefix+"_CLIENT_ID")
	}
	if clientCfg.ClientSecret == "" {
		missing = append(missing, prefix+"_CLIENT_SECRET")
	}
	return missing
}

// Ensure Registry implements the domain registry port
var _ crm.ProviderRegistry = (*Registry)(nil)
