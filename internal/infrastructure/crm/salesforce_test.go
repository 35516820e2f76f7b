package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signaldesk/backend/internal/domain/crm"
	"github.com/signaldesk/backend/internal/infrastructure/config"
)

func newTestSalesforce(serverURL string) *SalesforceClient {
	client := NewSalesforceClient(config.OAuthClientConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})
	client.oauth.Endpoint.TokenURL = serverURL + "/services/oauth2/token"
	return client
}

func TestSalesforceClient_AuthCodeURL(t *testing.T) {
	client := NewSalesforceClient(config.OAuthClientConfig{ClientID: "cid", ClientSecret: "sec"})

	authURL, err := client.AuthCodeURL("https://app.example.com/callback", "state-token")
	require.NoError(t, err)

	assert.Contains(t, authURL, "https://login.salesforce.com/services/oauth2/authorize")
	assert.Contains(t, authURL, "client_id=cid")
	assert.Contains(t, authURL, "state=state-token")
	assert.Contains(t, authURL, "refresh_token")
}

func TestSalesforceClient_ExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/services/oauth2/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-sf",
			"refresh_token": "rt-sf",
			"instance_url":  "https://acme.my.salesforce.com",
			"token_type":    "Bearer",
		})
	}))
	defer server.Close()

	client := newTestSalesforce(server.URL)
	grant, err := client.ExchangeCode(context.Background(), "the-code", "https://app.example.com/callback")
	require.NoError(t, err)

	assert.Equal(t, "at-sf", grant.AccessToken)
	assert.Equal(t, "rt-sf", grant.RefreshToken)
	assert.Equal(t, "https://acme.my.salesforce.com", grant.InstanceURL)
}

func TestSalesforceClient_ValidateAPIKey(t *testing.T) {
	client := NewSalesforceClient(config.OAuthClientConfig{})
	assert.Equal(t, crm.ErrAPIKeyUnsupported, client.ValidateAPIKey(context.Background(), "key"))
}

func TestSalesforceClient_PushSignal(t *testing.T) {
	t.Run("missing instance URL fails without error", func(t *testing.T) {
		client := NewSalesforceClient(config.OAuthClientConfig{})
		integration := crm.NewIntegration(testUserID(t), crm.ProviderSalesforce)

		outcome, err := client.PushSignal(context.Background(), integration, testSignal(t))
		require.NoError(t, err)

		assert.False(t, outcome.Success)
		assert.Contains(t, outcome.Error, "instance URL")
	})

	t.Run("creates account and task when no match", func(t *testing.T) {
		var accountPayload map[string]string
		var taskPayload map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-sf", r.Header.Get("Authorization"))
			switch r.URL.Path {
			case "/services/data/v59.0/query":
				assert.Contains(t, r.URL.Query().Get("q"), "acme.com")
				json.NewEncoder(w).Encode(map[string]any{"records": []any{}})
			case "/services/data/v59.0/sobjects/Account":
				require.NoError(t, json.NewDecoder(r.Body).Decode(&accountPayload))
				json.NewEncoder(w).Encode(map[string]string{"id": "001xx"})
			case "/services/data/v59.0/sobjects/Task":
				require.NoError(t, json.NewDecoder(r.Body).Decode(&taskPayload))
				json.NewEncoder(w).Encode(map[string]string{"id": "00Txx"})
			default:
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := newTestSalesforce(server.URL)
		integration := crm.NewIntegration(testUserID(t), crm.ProviderSalesforce)
		integration.AccessToken = "tok-sf"
		integration.InstanceURL = &server.URL

		outcome, err := client.PushSignal(context.Background(), integration, testSignal(t))
		require.NoError(t, err)

		assert.True(t, outcome.Success)
		assert.Equal(t, "001xx", outcome.CompanyID)
		assert.Equal(t, "00Txx", outcome.NoteID)
		assert.Empty(t, outcome.DealID)

		assert.Equal(t, "Acme Corp", accountPayload["Name"])
		assert.Equal(t, "https://acme.com", accountPayload["Website"])
		assert.Equal(t, "Signal: Acme raises Series B", taskPayload["Subject"])
		assert.Equal(t, "High", taskPayload["Priority"])
		assert.Equal(t, "001xx", taskPayload["WhatId"])
	})

	t.Run("creates opportunity when deals enabled", func(t *testing.T) {
		var oppPayload map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/services/data/v59.0/query":
				json.NewEncoder(w).Encode(map[string]any{
					"records": []map[string]string{{"Id": "001aa"}},
				})
			case "/services/data/v59.0/sobjects/Opportunity":
				require.NoError(t, json.NewDecoder(r.Body).Decode(&oppPayload))
				json.NewEncoder(w).Encode(map[string]string{"id": "006aa"})
			default:
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := newTestSalesforce(server.URL)
		integration := crm.NewIntegration(testUserID(t), crm.ProviderSalesforce)
		integration.AccessToken = "tok-sf"
		integration.InstanceURL = &server.URL
		integration.CreateDeal = true
		integration.CreateNote = false

		outcome, err := client.PushSignal(context.Background(), integration, testSignal(t))
		require.NoError(t, err)

		assert.True(t, outcome.Success)
		assert.Equal(t, "001aa", outcome.CompanyID)
		assert.Equal(t, "006aa", outcome.DealID)
		assert.Equal(t, "Prospecting", oppPayload["StageName"])
		assert.Equal(t, "001aa", oppPayload["AccountId"])
	})

	t.Run("API failure yields failed outcome", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `[{"errorCode":"INVALID_SESSION_ID"}]`, http.StatusUnauthorized)
		}))
		defer server.Close()

		client := newTestSalesforce(server.URL)
		integration := crm.NewIntegration(testUserID(t), crm.ProviderSalesforce)
		integration.AccessToken = "expired"
		integration.InstanceURL = &server.URL

		outcome, err := client.PushSignal(context.Background(), integration, testSignal(t))
		require.NoError(t, err)

		assert.False(t, outcome.Success)
		assert.Contains(t, outcome.Error, "401")
	})
}
