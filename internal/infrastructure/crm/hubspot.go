package crm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/signaldesk/backend/internal/domain/crm"
	"github.com/signaldesk/backend/internal/infrastructure/config"
)

const hubspotAPIBase = "https://api.hubapi.com"

var hubspotScopes = []string{
	"crm.objects.companies.write",
	"crm.objects.companies.read",
	"crm.objects.contacts.write",
	"crm.objects.contacts.read",
	"crm.objects.deals.write",
	"crm.objects.deals.read",
}

// HubSpotClient implements the ProviderClient port for HubSpot
type HubSpotClient struct {
	oauth      *oauth2.Config
	apiBase    string
	httpClient *http.Client
}

// NewHubSpotClient creates a HubSpot adapter with the given OAuth settings
func NewHubSpotClient(cfg config.OAuthClientConfig) *HubSpotClient {
	return &HubSpotClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       hubspotScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://app.hubspot.com/oauth/authorize",
				TokenURL:  hubspotAPIBase + "/oauth/v1/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase:    hubspotAPIBase,
		httpClient: newHTTPClient(),
	}
}

// Provider returns the backend this client handles
func (c *HubSpotClient) Provider() crm.Provider {
	return crm.ProviderHubSpot
}

// AuthCodeURL builds the HubSpot authorization URL
func (c *HubSpotClient) AuthCodeURL(redirectURI, state string) (string, error) {
	cfg := *c.oauth
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state), nil
}

// ExchangeCode exchanges an authorization code for tokens and resolves the
// portal id from HubSpot's token introspection endpoint
func (c *HubSpotClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*crm.TokenGrant, error) {
	cfg := *c.oauth
	cfg.RedirectURL = redirectURI

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, crm.NewExchangeFailed(crm.ProviderHubSpot, err)
	}

	grant := &crm.TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		grant.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}

	// Token introspection reports the hub (portal) the token belongs to.
	// Failure here is not fatal; the integration just lacks a portal id.
	var accessInfo struct {
		HubID int64 `json:"hub_id"`
	}
	introspectURL := fmt.Sprintf("%s/oauth/v1/access-tokens/%s", c.apiBase, token.AccessToken)
	if err := doJSON(ctx, c.httpClient, crm.ProviderHubSpot, http.MethodGet, introspectURL, nil, nil, &accessInfo); err == nil && accessInfo.HubID != 0 {
		grant.PortalID = fmt.Sprintf("%d", accessInfo.HubID)
	}

	return grant, nil
}

// ValidateAPIKey is unsupported; HubSpot connects through OAuth
func (c *HubSpotClient) ValidateAPIKey(ctx context.Context, key string) error {
	return crm.ErrAPIKeyUnsupported
}

type hubspotObjectResponse struct {
	ID string `json:"id"`
}

type hubspotSearchResponse struct {
	Results []hubspotObjectResponse `json:"results"`
}

// PushSignal creates HubSpot objects for the signal. Company lookup is by
// domain; only objects enabled by the integration's create flags are made.
func (c *HubSpotClient) PushSignal(ctx context.Context, integration *crm.Integration, signal *crm.Signal) (*crm.SyncOutcome, error) {
	headers := map[string]string{"Authorization": "Bearer " + integration.AccessToken}

	var companyID string
	if signal.CompanyDomain != "" {
		if id, err := c.findCompanyByDomain(ctx, headers, signal.CompanyDomain); err == nil {
			companyID = id
		}
	}

	if companyID == "" && integration.CreateCompany {
		properties := map[string]string{
			integration.MappedField("company_name", "name"): signal.CompanyName,
			"description": fmt.Sprintf("Signal detected: %s", signal.Title),
		}
		if signal.CompanyDomain != "" {
			properties[integration.MappedField("company_domain", "domain")] = signal.CompanyDomain
			properties["website"] = "https://" + signal.CompanyDomain
		}
		if industry := signal.Metadata["industry"]; industry != "" {
			properties["industry"] = industry
		}

		var created hubspotObjectResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderHubSpot, http.MethodPost,
			c.apiBase+"/crm/v3/objects/companies", headers,
			map[string]any{"properties": properties}, &created); err != nil {
			return failedOutcome(err), nil
		}
		companyID = created.ID
	}

	var dealID string
	if integration.CreateDeal {
		properties := map[string]string{
			"dealname": fmt.Sprintf("%s - %s", signal.CompanyName, signal.SignalType.Label()),
		}
		var created hubspotObjectResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderHubSpot, http.MethodPost,
			c.apiBase+"/crm/v3/objects/deals", headers,
			map[string]any{"properties": properties}, &created); err != nil {
			return failedOutcome(err), nil
		}
		dealID = created.ID

		if companyID != "" {
			assocURL := fmt.Sprintf("%s/crm/v3/objects/deals/%s/associations/companies/%s/deal_to_company",
				c.apiBase, dealID, companyID)
			if err := doJSON(ctx, c.httpClient, crm.ProviderHubSpot, http.MethodPut, assocURL, headers, nil, nil); err != nil {
				return failedOutcome(err), nil
			}
		}
	}

	var noteID string
	if integration.CreateNote {
		var created hubspotObjectResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderHubSpot, http.MethodPost,
			c.apiBase+"/crm/v3/objects/notes", headers,
			map[string]any{"properties": map[string]string{
				"hs_note_body": formatSignalNote(signal),
				"hs_timestamp": time.Now().UTC().Format(time.RFC3339),
			}}, &created); err != nil {
			return failedOutcome(err), nil
		}
		noteID = created.ID

		if companyID != "" {
			assocURL := fmt.Sprintf("%s/crm/v3/objects/notes/%s/associations/companies/%s/note_to_company",
				c.apiBase, noteID, companyID)
			if err := doJSON(ctx, c.httpClient, crm.ProviderHubSpot, http.MethodPut, assocURL, headers, nil, nil); err != nil {
				return failedOutcome(err), nil
			}
		}
		if dealID != "" {
			assocURL := fmt.Sprintf("%s/crm/v3/objects/notes/%s/associations/deals/%s/note_to_deal",
				c.apiBase, noteID, dealID)
			if err := doJSON(ctx, c.httpClient, crm.ProviderHubSpot, http.MethodPut, assocURL, headers, nil, nil); err != nil {
				return failedOutcome(err), nil
			}
		}
	}

	return &crm.SyncOutcome{
		Success:   true,
		CompanyID: companyID,
		DealID:    dealID,
		NoteID:    noteID,
	}, nil
}

func (c *HubSpotClient) findCompanyByDomain(ctx context.Context, headers map[string]string, domain string) (string, error) {
	body := map[string]any{
		"filterGroups": []map[string]any{{
			"filters": []map[string]any{{
				"propertyName": "domain",
				"operator":     "EQ",
				"value":        domain,
			}},
		}},
	}
	var resp hubspotSearchResponse
	if err := doJSON(ctx, c.httpClient, crm.ProviderHubSpot, http.MethodPost,
		c.apiBase+"/crm/v3/objects/companies/search", headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("no company matches domain %s", domain)
	}
	return resp.Results[0].ID, nil
}

// Ensure HubSpotClient implements the provider port
var _ crm.ProviderClient = (*HubSpotClient)(nil)
