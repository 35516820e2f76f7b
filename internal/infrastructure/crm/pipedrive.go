package crm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/signaldesk/backend/internal/domain/crm"
	"github.com/signaldesk/backend/internal/infrastructure/config"
)

const pipedriveAPIBase = "https://api.pipedrive.com/api/v1"

// PipedriveClient implements the ProviderClient port for Pipedrive
type PipedriveClient struct {
	oauth      *oauth2.Config
	apiBase    string
	httpClient *http.Client
}

// NewPipedriveClient creates a Pipedrive adapter with the given OAuth settings
func NewPipedriveClient(cfg config.OAuthClientConfig) *PipedriveClient {
	return &PipedriveClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://oauth.pipedrive.com/oauth/authorize",
				TokenURL:  "https://oauth.pipedrive.com/oauth/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiBase:    pipedriveAPIBase,
		httpClient: newHTTPClient(),
	}
}

// Provider returns the backend this client handles
func (c *PipedriveClient) Provider() crm.Provider {
	return crm.ProviderPipedrive
}

// AuthCodeURL builds the Pipedrive authorization URL. Pipedrive scopes are
// configured on the app, not requested per authorization.
func (c *PipedriveClient) AuthCodeURL(redirectURI, state string) (string, error) {
	cfg := *c.oauth
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state), nil
}

// ExchangeCode exchanges an authorization code for tokens, capturing the
// company's API domain as the account id
func (c *PipedriveClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*crm.TokenGrant, error) {
	cfg := *c.oauth
	cfg.RedirectURL = redirectURI

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, crm.NewExchangeFailed(crm.ProviderPipedrive, err)
	}

	grant := &crm.TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		grant.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}
	if apiDomain, ok := token.Extra("api_domain").(string); ok {
		grant.AccountID = apiDomain
	}
	return grant, nil
}

// ValidateAPIKey is unsupported; Pipedrive connects through OAuth
func (c *PipedriveClient) ValidateAPIKey(ctx context.Context, key string) error {
	return crm.ErrAPIKeyUnsupported
}

// resolveAPIBase prefers the company-specific API domain captured at
// connection time over the generic endpoint
func (c *PipedriveClient) resolveAPIBase(integration *crm.Integration) string {
	if integration.AccountID == nil || *integration.AccountID == "" {
		return c.apiBase
	}
	domain := *integration.AccountID
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return strings.TrimRight(domain, "/") + "/api/v1"
	}
	return fmt.Sprintf("https://%s.pipedrive.com/api/v1", domain)
}

type pipedriveItemResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

type pipedriveSearchResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Items []struct {
			Item struct {
				ID int64 `json:"id"`
			} `json:"item"`
		} `json:"items"`
	} `json:"data"`
}

// PushSignal creates Pipedrive objects for the signal. Companies map to
// organizations and the note body is HTML.
func (c *PipedriveClient) PushSignal(ctx context.Context, integration *crm.Integration, signal *crm.Signal) (*crm.SyncOutcome, error) {
	apiBase := c.resolveAPIBase(integration)
	headers := map[string]string{"Authorization": "Bearer " + integration.AccessToken}

	var companyID string
	if signal.CompanyDomain != "" {
		if id, err := c.findOrganization(ctx, apiBase, headers, signal.CompanyDomain); err == nil {
			companyID = id
		}
	}

	if companyID == "" && integration.CreateCompany {
		var created pipedriveItemResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderPipedrive, http.MethodPost,
			apiBase+"/organizations", headers,
			map[string]string{
				integration.MappedField("company_name", "name"): signal.CompanyName,
			}, &created); err != nil {
			return failedOutcome(err), nil
		}
		if !created.Success {
			return failedOutcome(fmt.Errorf("pipedrive error: %s", created.Error)), nil
		}
		companyID = fmt.Sprintf("%d", created.Data.ID)
	}

	var dealID string
	if integration.CreateDeal {
		deal := map[string]any{
			"title": fmt.Sprintf("%s - %s", signal.CompanyName, signal.SignalType.Label()),
		}
		if companyID != "" {
			deal["org_id"] = companyID
		}
		var created pipedriveItemResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderPipedrive, http.MethodPost,
			apiBase+"/deals", headers, deal, &created); err != nil {
			return failedOutcome(err), nil
		}
		if !created.Success {
			return failedOutcome(fmt.Errorf("pipedrive error: %s", created.Error)), nil
		}
		dealID = fmt.Sprintf("%d", created.Data.ID)
	}

	var noteID string
	if integration.CreateNote {
		note := map[string]any{
			"content": formatSignalNoteHTML(signal),
		}
		if companyID != "" {
			note["org_id"] = companyID
		}
		if dealID != "" {
			note["deal_id"] = dealID
		}
		var created pipedriveItemResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderPipedrive, http.MethodPost,
			apiBase+"/notes", headers, note, &created); err != nil {
			return failedOutcome(err), nil
		}
		if !created.Success {
			return failedOutcome(fmt.Errorf("pipedrive error: %s", created.Error)), nil
		}
		noteID = fmt.Sprintf("%d", created.Data.ID)
	}

	return &crm.SyncOutcome{
		Success:   true,
		CompanyID: companyID,
		DealID:    dealID,
		NoteID:    noteID,
	}, nil
}

func (c *PipedriveClient) findOrganization(ctx context.Context, apiBase string, headers map[string]string, term string) (string, error) {
	searchURL := fmt.Sprintf("%s/organizations/search?term=%s&limit=1", apiBase, url.QueryEscape(term))

	var resp pipedriveSearchResponse
	if err := doJSON(ctx, c.httpClient, crm.ProviderPipedrive, http.MethodGet, searchURL, headers, nil, &resp); err != nil {
		return "", err
	}
	if !resp.Success || len(resp.Data.Items) == 0 {
		return "", fmt.Errorf("no organization matches %s", term)
	}
	return fmt.Sprintf("%d", resp.Data.Items[0].Item.ID), nil
}

// Ensure PipedriveClient implements the provider port
var _ crm.ProviderClient = (*PipedriveClient)(nil)
