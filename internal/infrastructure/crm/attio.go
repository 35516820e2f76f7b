package crm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/signaldesk/backend/internal/domain/crm"
)

const attioAPIBase = "https://api.attio.com/v2"

// AttioClient implements the ProviderClient port for Attio. Attio connects
// with a workspace API key; the OAuth operations are unsupported.
type AttioClient struct {
	apiBase    string
	httpClient *http.Client
}

// NewAttioClient creates an Attio adapter
func NewAttioClient() *AttioClient {
	return &AttioClient{
		apiBase:    attioAPIBase,
		httpClient: newHTTPClient(),
	}
}

// Provider returns the backend this client handles
func (c *AttioClient) Provider() crm.Provider {
	return crm.ProviderAttio
}

// AuthCodeURL is unsupported; Attio connects with an API key
func (c *AttioClient) AuthCodeURL(redirectURI, state string) (string, error) {
	return "", crm.ErrOAuthUnsupported
}

// ExchangeCode is unsupported; Attio connects with an API key
func (c *AttioClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*crm.TokenGrant, error) {
	return nil, crm.ErrOAuthUnsupported
}

// ValidateAPIKey probes the companies query endpoint with the key
func (c *AttioClient) ValidateAPIKey(ctx context.Context, key string) error {
	headers := map[string]string{"Authorization": "Bearer " + key}
	body := map[string]any{
		"filter": map[string]any{
			"domains": map[string]string{"contains": "example.com"},
		},
		"limit": 1,
	}
	if err := doJSON(ctx, c.httpClient, crm.ProviderAttio, http.MethodPost,
		c.apiBase+"/objects/companies/records/query", headers, body, nil); err != nil {
		return crm.ErrInvalidAPIKey
	}
	return nil
}

type attioRecordResponse struct {
	Data struct {
		ID struct {
			RecordID string `json:"record_id"`
		} `json:"id"`
	} `json:"data"`
}

type attioQueryResponse struct {
	Data []struct {
		ID struct {
			RecordID string `json:"record_id"`
		} `json:"id"`
	} `json:"data"`
}

type attioNoteResponse struct {
	Data struct {
		ID struct {
			NoteID string `json:"note_id"`
		} `json:"id"`
	} `json:"data"`
}

// PushSignal creates Attio records for the signal
func (c *AttioClient) PushSignal(ctx context.Context, integration *crm.Integration, signal *crm.Signal) (*crm.SyncOutcome, error) {
	headers := map[string]string{"Authorization": "Bearer " + integration.AccessToken}

	var companyID string
	if signal.CompanyDomain != "" {
		if id, err := c.findCompanyByDomain(ctx, headers, signal.CompanyDomain); err == nil {
			companyID = id
		}
	}

	if companyID == "" && integration.CreateCompany {
		values := map[string]any{
			integration.MappedField("company_name", "name"): []map[string]string{{"value": signal.CompanyName}},
		}
		if signal.CompanyDomain != "" {
			values["domains"] = []map[string]string{{"domain": signal.CompanyDomain}}
		}

		var created attioRecordResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderAttio, http.MethodPost,
			c.apiBase+"/objects/companies/records", headers,
			map[string]any{"data": map[string]any{"values": values}}, &created); err != nil {
			return failedOutcome(err), nil
		}
		companyID = created.Data.ID.RecordID
	}

	var dealID string
	if integration.CreateDeal {
		values := map[string]any{
			"name": []map[string]string{{"value": fmt.Sprintf("%s - %s", signal.CompanyName, signal.SignalType.Label())}},
		}
		var created attioRecordResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderAttio, http.MethodPost,
			c.apiBase+"/objects/deals/records", headers,
			map[string]any{"data": map[string]any{"values": values}}, &created); err != nil {
			return failedOutcome(err), nil
		}
		dealID = created.Data.ID.RecordID
	}

	var noteID string
	if integration.CreateNote && companyID != "" {
		note := map[string]any{
			"data": map[string]any{
				"format":           "plaintext",
				"content":          formatSignalNote(signal),
				"parent_object":    "companies",
				"parent_record_id": companyID,
			},
		}
		var created attioNoteResponse
		if err := doJSON(ctx, c.httpClient, crm.ProviderAttio, http.MethodPost,
			c.apiBase+"/notes", headers, note, &created); err != nil {
			return failedOutcome(err), nil
		}
		noteID = created.Data.ID.NoteID
	}

	return &crm.SyncOutcome{
		Success:   true,
		CompanyID: companyID,
		DealID:    dealID,
		NoteID:    noteID,
	}, nil
}

func (c *AttioClient) findCompanyByDomain(ctx context.Context, headers map[string]string, domain string) (string, error) {
	body := map[string]any{
		"filter": map[string]any{
			"domains": map[string]string{"contains": domain},
		},
		"limit": 1,
	}
	var resp attioQueryResponse
	if err := doJSON(ctx, c.httpClient, crm.ProviderAttio, http.MethodPost,
		c.apiBase+"/objects/companies/records/query", headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("no company matches domain %s", domain)
	}
	return resp.Data[0].ID.RecordID, nil
}

// Ensure AttioClient implements the provider port
var _ crm.ProviderClient = (*AttioClient)(nil)
