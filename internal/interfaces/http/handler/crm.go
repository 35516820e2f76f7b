package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appcrm "github.com/signaldesk/backend/internal/application/crm"
	"github.com/signaldesk/backend/internal/domain/crm"
	"github.com/signaldesk/backend/internal/domain/shared"
	"github.com/signaldesk/backend/internal/infrastructure/auth"
	"github.com/signaldesk/backend/internal/infrastructure/config"
	"github.com/signaldesk/backend/internal/interfaces/http/middleware"
)

// StateCookieName is the CSRF cookie mirroring the OAuth state token
const StateCookieName = "crm_oauth_state"

// CRMHandler handles CRM integration HTTP requests
type CRMHandler struct {
	BaseHandler
	connections *appcrm.ConnectionService
	syncs       *appcrm.SyncService
	jwtService  *auth.JWTService
	cfg         *config.Config
	// authLimit throttles credential-adjacent endpoints harder than the
	// general API limit
	authLimit gin.HandlerFunc
}

// NewCRMHandler creates a new CRM handler
func NewCRMHandler(
	connections *appcrm.ConnectionService,
	syncs *appcrm.SyncService,
	jwtService *auth.JWTService,
	cfg *config.Config,
	authLimit gin.HandlerFunc,
) *CRMHandler {
	return &CRMHandler{
		connections: connections,
		syncs:       syncs,
		jwtService:  jwtService,
		cfg:         cfg,
		authLimit:   authLimit,
	}
}

// RegisterRoutes registers all CRM routes. The OAuth callback is the only
// route outside the JWT middleware: the browser arrives there straight from
// the provider, so the handler authenticates it itself and answers with
// redirects instead of JSON.
func (h *CRMHandler) RegisterRoutes(rg *gin.RouterGroup) {
	jwtAuth := middleware.JWTAuthMiddleware(h.jwtService)

	crm := rg.Group("/crm")
	{
		crm.GET("/providers", jwtAuth, h.ListProviders)
		crm.GET("/:provider/oauth", h.authLimit, jwtAuth, h.InitiateOAuth)
		crm.GET("/:provider/callback", h.OAuthCallback)
		crm.POST("/attio/connect", h.authLimit, jwtAuth, h.ConnectAttio)

		crm.GET("", jwtAuth, h.ListIntegrations)
		crm.PATCH("", jwtAuth, h.UpdateIntegration)
		crm.DELETE("", jwtAuth, h.DeleteIntegration)

		crm.POST("/sync", jwtAuth, h.SyncSignal)
		crm.GET("/sync", jwtAuth, h.SyncHistory)
	}
}

// redirectURI builds the externally visible callback URL for a provider
func (h *CRMHandler) redirectURI(provider string) string {
	return h.cfg.App.BaseURL + "/api/v1/crm/" + provider + "/callback"
}

// settingsRedirect builds the settings-page URL carrying the flow outcome
func (h *CRMHandler) settingsRedirect(params url.Values) string {
	return h.cfg.App.BaseURL + h.cfg.App.SettingsPath + "?" + params.Encode()
}

// loginRedirect is where the callback sends anyone without a valid session
// for the in-flight OAuth flow. The redirect param brings them back to
// settings after signing in.
func (h *CRMHandler) loginRedirect() string {
	return h.cfg.App.BaseURL + "/login?redirect=" + url.QueryEscape(h.cfg.App.SettingsPath)
}

func (h *CRMHandler) setStateCookie(c *gin.Context, state string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(StateCookieName, state,
		int(h.cfg.Cookie.MaxAge.Seconds()),
		h.cfg.Cookie.Path, h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
}

func (h *CRMHandler) clearStateCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(StateCookieName, "", -1,
		h.cfg.Cookie.Path, h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
}

// ListProviders returns the provider catalog
func (h *CRMHandler) ListProviders(c *gin.Context) {
	h.Success(c, gin.H{"providers": h.connections.ListProviders()})
}

// InitiateOAuth starts the OAuth flow: mints a state token, mirrors it into
// the CSRF cookie, and 302s to the provider's authorization page
func (h *CRMHandler) InitiateOAuth(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	provider := c.Param("provider")
	result, err := h.connections.Initiate(c.Request.Context(), userID, provider, h.redirectURI(provider))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setStateCookie(c, result.State)
	c.Redirect(http.StatusFound, result.AuthURL)
}

// OAuthCallback completes the OAuth flow. Every outcome is a redirect: the
// user lands back on the settings page with either crm_connected=<provider>
// or a readable error message. The state cookie is cleared no matter what.
func (h *CRMHandler) OAuthCallback(c *gin.Context) {
	provider := c.Param("provider")

	claims, err := middleware.Authenticate(c, h.jwtService)
	if err != nil {
		h.clearStateCookie(c)
		c.Redirect(http.StatusFound, h.loginRedirect())
		return
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		h.clearStateCookie(c)
		c.Redirect(http.StatusFound, h.loginRedirect())
		return
	}

	cookieState, _ := c.Cookie(StateCookieName)
	input := appcrm.CallbackInput{
		Provider:         provider,
		Code:             c.Query("code"),
		State:            c.Query("state"),
		CookieState:      cookieState,
		ErrorParam:       c.Query("error"),
		ErrorDescription: c.Query("error_description"),
		UserID:           userID,
		UserEmail:        claims.Email,
		RedirectURI:      h.redirectURI(provider),
	}

	result, err := h.connections.HandleCallback(c.Request.Context(), input)
	h.clearStateCookie(c)

	if err != nil {
		if errors.Is(err, crm.ErrUserMismatch) {
			// The state was minted for somebody else. Send the visitor
			// through login instead of surfacing an error on their
			// settings page.
			c.Redirect(http.StatusFound, h.loginRedirect())
			return
		}
		message := "Connection failed"
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			message = domainErr.Message
		}
		c.Redirect(http.StatusFound, h.settingsRedirect(url.Values{"error": {message}}))
		return
	}

	c.Redirect(http.StatusFound, h.settingsRedirect(url.Values{
		"crm_connected": {result.Provider.String()},
	}))
}

// ConnectAttio connects Attio with a user-supplied API key
func (h *CRMHandler) ConnectAttio(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req appcrm.ConnectAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "API key required")
		return
	}

	resp, err := h.connections.ConnectByAPIKey(c.Request.Context(), userID,
		middleware.GetJWTUserEmail(c), "attio", req.APIKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"integration": resp})
}

// ListIntegrations returns the caller's integrations, credentials stripped
func (h *CRMHandler) ListIntegrations(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	integrations, err := h.connections.List(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"integrations": integrations})
}

type updateIntegrationBody struct {
	ID uuid.UUID `json:"id" binding:"required"`
	appcrm.UpdateIntegrationRequest
}

// UpdateIntegration merges whitelisted sync-policy fields into an
// integration; unknown body fields are silently dropped
func (h *CRMHandler) UpdateIntegration(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var body updateIntegrationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, "Integration id required")
		return
	}

	resp, err := h.connections.Update(c.Request.Context(), userID, body.ID, body.UpdateIntegrationRequest)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"integration": resp})
}

// DeleteIntegration disconnects an integration. Sync history survives.
func (h *CRMHandler) DeleteIntegration(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Query("id"))
	if err != nil {
		h.BadRequest(c, "Integration id required")
		return
	}

	if err := h.connections.Disconnect(c.Request.Context(), userID, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"disconnected": true})
}

// SyncSignal pushes a signal into the caller's CRMs
func (h *CRMHandler) SyncSignal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req appcrm.PushSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Signal id required")
		return
	}

	resp, err := h.syncs.PushSignal(c.Request.Context(), userID, req.SignalID, req.IntegrationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// SyncHistory returns the caller's sync history
func (h *CRMHandler) SyncHistory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var signalID *uuid.UUID
	if raw := c.Query("signalId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid signal id")
			return
		}
		signalID = &id
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.BadRequest(c, "Invalid limit")
			return
		}
		limit = n
	}

	logs, err := h.syncs.History(c.Request.Context(), userID, signalID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"logs": logs})
}
