package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cleohq/cleo-api/internal/api/shared"
	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/service"
)

// OAuthHandler handles the provider connection flow.
type OAuthHandler struct {
	oauthService *service.OAuthService
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(oauthService *service.OAuthService) *OAuthHandler {
	return &OAuthHandler{oauthService: oauthService}
}

// Connect handles GET /api/oauth/{provider}/connect?workspace_id=...
// It returns the provider consent URL for the authenticated user's
// workspace.
func (h *OAuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	workspaceID, err := getQueryUUID(r, "workspace_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	provider := chi.URLParam(r, "provider")

	authURL, err := h.oauthService.AuthCodeURL(r.Context(), userID, workspaceID, provider)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ConnectResponse{AuthURL: authURL})
}

// Callback handles GET /api/oauth/{provider}/callback. The provider
// redirects the browser here; the request is unauthenticated and carries
// the workspace identity in the state parameter.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" || state == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing code or state parameter")
		return
	}

	if err := h.oauthService.HandleCallback(r.Context(), provider, code, state); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"status":   "connected",
		"provider": provider,
	})
}

// Connections handles GET /api/workspaces/{id}/connections. It reports
// which providers are connected without exposing token material.
func (h *OAuthHandler) Connections(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	creds, err := h.oauthService.ListConnections(r.Context(), userID, workspaceID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	responses := make([]ConnectionResponse, 0, len(creds))
	for _, cred := range creds {
		responses = append(responses, ConnectionResponse{
			Provider:  cred.Provider,
			ExpiresAt: cred.ExpiresAt,
			UpdatedAt: cred.UpdatedAt,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}
