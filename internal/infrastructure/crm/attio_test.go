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
)

func newTestAttio(serverURL string) *AttioClient {
	client := NewAttioClient()
	client.apiBase = serverURL
	return client
}

func TestAttioClient_OAuthUnsupported(t *testing.T) {
	client := NewAttioClient()

	_, err := client.AuthCodeURL("https://app.example.com/callback", "state")
	assert.Equal(t, crm.ErrOAuthUnsupported, err)

	_, err = client.ExchangeCode(context.Background(), "code", "https://app.example.com/callback")
	assert.Equal(t, crm.ErrOAuthUnsupported, err)
}

func TestAttioClient_ValidateAPIKey(t *testing.T) {
	t.Run("accepts working key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/objects/companies/records/query", r.URL.Path)
			assert.Equal(t, "Bearer good-key", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
		}))
		defer server.Close()

		client := newTestAttio(server.URL)
		assert.NoError(t, client.ValidateAPIKey(context.Background(), "good-key"))
	})

	t.Run("rejects bad key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		client := newTestAttio(server.URL)
		assert.Equal(t, crm.ErrInvalidAPIKey, client.ValidateAPIKey(context.Background(), "bad-key"))
	})
}

func TestAttioClient_PushSignal(t *testing.T) {
	t.Run("creates company and note", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/objects/companies/records/query":
				json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
			case "/objects/companies/records":
				json.NewEncoder(w).Encode(map[string]any{
					"data": map[string]any{"id": map[string]string{"record_id": "rec-1"}},
				})
			case "/notes":
				var payload map[string]map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				assert.Equal(t, "companies", payload["data"]["parent_object"])
				assert.Equal(t, "rec-1", payload["data"]["parent_record_id"])
				json.NewEncoder(w).Encode(map[string]any{
					"data": map[string]any{"id": map[string]string{"note_id": "note-1"}},
				})
			default:
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := newTestAttio(server.URL)
		integration := crm.NewIntegration(testUserID(t), crm.ProviderAttio)
		integration.AccessToken = "workspace-key"

		outcome, err := client.PushSignal(context.Background(), integration, testSignal(t))
		require.NoError(t, err)

		assert.True(t, outcome.Success)
		assert.Equal(t, "rec-1", outcome.CompanyID)
		assert.Equal(t, "note-1", outcome.NoteID)
	})

	t.Run("reuses matching company", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/objects/companies/records/query":
				json.NewEncoder(w).Encode(map[string]any{
					"data": []map[string]any{{"id": map[string]string{"record_id": "rec-existing"}}},
				})
			case "/notes":
				json.NewEncoder(w).Encode(map[string]any{
					"data": map[string]any{"id": map[string]string{"note_id": "note-2"}},
				})
			default:
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := newTestAttio(server.URL)
		integration := crm.NewIntegration(testUserID(t), crm.ProviderAttio)
		integration.AccessToken = "workspace-key"

		outcome, err := client.PushSignal(context.Background(), integration, testSignal(t))
		require.NoError(t, err)

		assert.True(t, outcome.Success)
		assert.Equal(t, "rec-existing", outcome.CompanyID)
	})
}
