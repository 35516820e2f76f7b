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

const apolloAPIBase = "https://api.apollo.io/v1"

// ApolloClient implements the ProviderClient port for Apollo.io. Apollo
// supports both OAuth connections and static API keys; the key travels in
// the X-Api-Key header.
type ApolloClient struct {
	oauth      *oauth2.Config
	apiBase    string
	httpClient *http.Client
}

// NewApolloClient creates an Apollo adapter with the given OAuth settings
func NewApolloClient(cfg config.OAuthClientConfig) *ApolloClient {
	return &ApolloClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://app.apollo.io/#/oauth/authorize",
				TokenURL: "https://app.apollo.io/api/v1/oauth/token",
			},
		},
		apiBase:    apolloAPIBase,
		httpClient: newHTTPClient(),
	}
}

// Provider returns the backend this client handles
func (c *ApolloClient) Provider() crm.Provider {
	return crm.ProviderApollo
}

// AuthCodeURL builds the Apollo authorization URL
func (c *ApolloClient) AuthCodeURL(redirectURI, state string) (string, error) {
	cfg := *c.oauth
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state), nil
}

// ExchangeCode exchanges an authorization code for tokens
func (c *ApolloClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*crm.TokenGrant, error) {
	cfg := *c.oauth
	cfg.RedirectURL = redirectURI

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, crm.NewExchangeFailed(crm.ProviderApollo, err)
	}

	grant := &crm.TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		grant.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}
	return grant, nil
}

// ValidateAPIKey probes the accounts search endpoint with the key
func (c *ApolloClient) ValidateAPIKey(ctx context.Context, key string) error {
	headers := map[string]string{
		"X-Api-Key":     key,
		"Cache-Control": "no-cache",
	}
	body := map[string]any{
		"q_organization_domains": "example.com",
		"page":                   1,
		"per_page":               1,
	}
	if err := doJSON(ctx, c.httpClient, crm.ProviderApollo, http.MethodPost,
		c.apiBase+"/accounts/search", headers, body, nil); err != nil {
		return crm.ErrInvalidAPIKey
	}
	return nil
}

type apolloAccountResponse struct {
	Account struct {
		ID string `json:"id"`
	} `json:"account"`
}

type apolloAccountSearchResponse struct {
	Accounts []struct {
		ID string `json:"id"`
	} `json:"accounts"`
}

type apolloNoteResponse struct {
	Note struct {
		ID string `json:"id"`
	} `json:"note"`
}

type apolloOpportunityResponse struct {
	Opportunity struct {
		ID string `json:"id"`
	} `json:"opportunity"`
}

// PushSignal creates Apollo objects for the signal. Companies map to
// accounts, deals to opportunities.
func (c *ApolloClient) PushSignal(ctx context.Context, integration *crm.Integration, signal *crm.Signal) (*crm.SyncOutcome, error) {
	headers := map[string]string{
		"X-Api-Key":     integration.AccessToken,
		"Cache-Control": "no-cache",
	}

	var companyID string
	if signal.CompanyDomain != "" {
		if id, err := c.findAccountByDomain(ctx, headers, signal.CompanyDomain); err == nil {
			companyID = id
		}
	}

	if companyID == "" && integration.CreateCompany {
		account := map[string]string{
			integration.MappedField("company_name", "name"): signal.CompanyName,
		}
		if signal.CompanyDomain != "" {
			account["domain"] = signal.CompanyDomain
			account["website_url"] = "https://" + signal.CompanyDomain
		}

		var created apolloAccountResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderApollo, http.MethodPost,
			c.apiBase+"/accounts", headers, account, &created); err != nil {
			return failedOutcome(err), nil
		}
		companyID = created.Account.ID
	}

	var dealID string
	if integration.CreateDeal {
		opportunity := map[string]any{
			"name": fmt.Sprintf("%s - %s", signal.CompanyName, signal.SignalType.Label()),
		}
		if companyID != "" {
			opportunity["account_id"] = companyID
		}

		var created apolloOpportunityResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderApollo, http.MethodPost,
			c.apiBase+"/opportunities", headers, opportunity, &created); err != nil {
			return failedOutcome(err), nil
		}
		dealID = created.Opportunity.ID
	}

	var noteID string
	if integration.CreateNote {
		note := map[string]string{
			"body": formatSignalNote(signal),
		}
		if companyID != "" {
			note["account_id"] = companyID
		}

		var created apolloNoteResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderApollo, http.MethodPost,
			c.apiBase+"/notes", headers, note, &created); err != nil {
			return failedOutcome(err), nil
		}
		noteID = created.Note.ID
	}

	return &crm.SyncOutcome{
		Success:   true,
		CompanyID: companyID,
		DealID:    dealID,
		NoteID:    noteID,
	}, nil
}

func (c *ApolloClient) findAccountByDomain(ctx context.Context, headers map[string]string, domain string) (string, error) {
	body := map[string]any{
		"q_organization_domains": domain,
		"page":                   1,
		"per_page":               1,
	}
	var resp apolloAccountSearchResponse
	if err := doJSON(ctx, c.httpClient, crm.ProviderApollo, http.MethodPost,
		c.apiBase+"/accounts/search", headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Accounts) == 0 {
		return "", fmt.Errorf("no account matches domain %s", domain)
	}
	return resp.Accounts[0].ID, nil
}

// Ensure ApolloClient implements the provider port
var _ crm.ProviderClient = (*ApolloClient)(nil)
