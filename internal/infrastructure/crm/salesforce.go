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

const salesforceAPIVersion = "v59.0"

// SalesforceClient implements the ProviderClient port for Salesforce
type SalesforceClient struct {
	oauth      *oauth2.Config
	loginBase  string
	httpClient *http.Client
}

// NewSalesforceClient creates a Salesforce adapter with the given OAuth settings
func NewSalesforceClient(cfg config.OAuthClientConfig) *SalesforceClient {
	loginBase := "https://login.salesforce.com"
	return &SalesforceClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{"api", "refresh_token"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  loginBase + "/services/oauth2/authorize",
				TokenURL: loginBase + "/services/oauth2/token",
			},
		},
		loginBase:  loginBase,
		httpClient: newHTTPClient(),
	}
}

// Provider returns the backend this client handles
func (c *SalesforceClient) Provider() crm.Provider {
	return crm.ProviderSalesforce
}

// AuthCodeURL builds the Salesforce authorization URL
func (c *SalesforceClient) AuthCodeURL(redirectURI, state string) (string, error) {
	cfg := *c.oauth
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state), nil
}

// ExchangeCode exchanges an authorization code for tokens, capturing the
// org's instance URL from the token response
func (c *SalesforceClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*crm.TokenGrant, error) {
	cfg := *c.oauth
	cfg.RedirectURL = redirectURI

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, crm.NewExchangeFailed(crm.ProviderSalesforce, err)
	}

	grant := &crm.TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		grant.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}
	if instanceURL, ok := token.Extra("instance_url").(string); ok {
		grant.InstanceURL = instanceURL
	}
	return grant, nil
}

// ValidateAPIKey is unsupported; Salesforce connects through OAuth
func (c *SalesforceClient) ValidateAPIKey(ctx context.Context, key string) error {
	return crm.ErrAPIKeyUnsupported
}

type salesforceCreateResponse struct {
	ID string `json:"id"`
}

type salesforceQueryResponse struct {
	Records []struct {
		ID string `json:"Id"`
	} `json:"records"`
}

// PushSignal creates Salesforce objects for the signal. Companies map to
// Accounts, deals to Opportunities, and the note is recorded as a Task so it
// shows up on the account's activity timeline.
func (c *SalesforceClient) PushSignal(ctx context.Context, integration *crm.Integration, signal *crm.Signal) (*crm.SyncOutcome, error) {
	if integration.InstanceURL == nil || *integration.InstanceURL == "" {
		return failedOutcome(fmt.Errorf("salesforce integration missing instance URL")), nil
	}
	apiBase := strings.TrimRight(*integration.InstanceURL, "/") + "/services/data/" + salesforceAPIVersion
	headers := map[string]string{"Authorization": "Bearer " + integration.AccessToken}

	var companyID string
	if signal.CompanyDomain != "" {
		if id, err := c.findAccountByDomain(ctx, apiBase, headers, signal.CompanyDomain); err == nil {
			companyID = id
		}
	}

	if companyID == "" && integration.CreateCompany {
		account := map[string]string{
			integration.MappedField("company_name", "Name"): signal.CompanyName,
			"Description": fmt.Sprintf("Signal detected: %s", signal.Title),
		}
		if signal.CompanyDomain != "" {
			account["Website"] = "https://" + signal.CompanyDomain
		}
		if industry := signal.Metadata["industry"]; industry != "" {
			account["Industry"] = industry
		}

		var created salesforceCreateResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderSalesforce, http.MethodPost,
			apiBase+"/sobjects/Account", headers, account, &created); err != nil {
			return failedOutcome(err), nil
		}
		companyID = created.ID
	}

	var dealID string
	if integration.CreateDeal {
		opportunity := map[string]any{
			"Name":      fmt.Sprintf("%s - %s", signal.CompanyName, signal.SignalType.Label()),
			"StageName": "Prospecting",
			"CloseDate": time.Now().AddDate(0, 0, 30).Format("2006-01-02"),
		}
		if companyID != "" {
			opportunity["AccountId"] = companyID
		}

		var created salesforceCreateResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderSalesforce, http.MethodPost,
			apiBase+"/sobjects/Opportunity", headers, opportunity, &created); err != nil {
			return failedOutcome(err), nil
		}
		dealID = created.ID
	}

	var noteID string
	if integration.CreateNote {
		priority := "Normal"
		if signal.Priority == crm.SignalPriorityHigh {
			priority = "High"
		}
		task := map[string]string{
			"Subject":     fmt.Sprintf("Signal: %s", signal.Title),
			"Description": formatSignalNote(signal),
			"Status":      "Not Started",
			"Priority":    priority,
		}
		if companyID != "" {
			task["WhatId"] = companyID
		}

		var created salesforceCreateResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderSalesforce, http.MethodPost,
			apiBase+"/sobjects/Task", headers, task, &created); err != nil {
			return failedOutcome(err), nil
		}
		noteID = created.ID
	}

	return &crm.SyncOutcome{
		Success:   true,
		CompanyID: companyID,
		DealID:    dealID,
		NoteID:    noteID,
	}, nil
}

func (c *SalesforceClient) findAccountByDomain(ctx context.Context, apiBase string, headers map[string]string, domain string) (string, error) {
	// SOQL has no parameter binding over REST; single quotes in the domain
	// are escaped to keep the query intact.
	escaped := strings.ReplaceAll(domain, "'", "\\'")
	soql := fmt.Sprintf("SELECT Id FROM Account WHERE Website LIKE '%%%s%%' LIMIT 1", escaped)

	var resp salesforceQueryResponse
	queryURL := apiBase + "/query?q=" + url.QueryEscape(soql)
	if err := doJSON(ctx, c.httpClient, crm.ProviderSalesforce, http.MethodGet, queryURL, headers, nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Records) == 0 {
		return "", fmt.Errorf("no account matches domain %s", domain)
	}
	return resp.Records[0].ID, nil
}

// Ensure SalesforceClient implements the provider port
var _ crm.ProviderClient = (*SalesforceClient)(nil)
