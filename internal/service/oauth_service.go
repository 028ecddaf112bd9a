package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/cleohq/cleo-api/internal/config"
	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/platform/redact"
	"github.com/cleohq/cleo-api/internal/platform/vault"
	"github.com/cleohq/cleo-api/internal/store"
)

const defaultNotionTokenURL = "https://api.notion.com/v1/oauth/token"

// zoomEndpoint is Zoom's OAuth 2.0 endpoint; the oauth2 package has no
// preset for it.
var zoomEndpoint = oauth2.Endpoint{
	AuthURL:  "https://zoom.us/oauth/authorize",
	TokenURL: "https://zoom.us/oauth/token",
}

// gmailReadScope is the only Google scope task processing needs.
const gmailReadScope = "https://www.googleapis.com/auth/gmail.readonly"

// OAuthService runs the authorization-code flow for supported providers
// and stores the resulting tokens encrypted. Plaintext tokens exist only
// inside HandleCallback; everything that reaches the store is vault
// ciphertext.
type OAuthService struct {
	credentialStore store.CredentialStore
	workspaceStore  store.WorkspaceStore
	vault           *vault.Vault
	logger          *slog.Logger

	google *oauth2.Config
	zoom   *oauth2.Config
	notion config.OAuthClientConfig

	httpClient     *http.Client
	notionTokenURL string
}

// OAuthOption configures an OAuthService.
type OAuthOption func(*OAuthService)

// WithHTTPClient overrides the HTTP client used for token exchanges.
// Used in tests.
func WithHTTPClient(client *http.Client) OAuthOption {
	return func(s *OAuthService) { s.httpClient = client }
}

// WithGoogleEndpoint overrides Google's OAuth endpoint. Used in tests.
func WithGoogleEndpoint(ep oauth2.Endpoint) OAuthOption {
	return func(s *OAuthService) { s.google.Endpoint = ep }
}

// WithZoomEndpoint overrides Zoom's OAuth endpoint. Used in tests.
func WithZoomEndpoint(ep oauth2.Endpoint) OAuthOption {
	return func(s *OAuthService) { s.zoom.Endpoint = ep }
}

// WithNotionTokenURL overrides Notion's token exchange URL. Used in tests.
func WithNotionTokenURL(url string) OAuthOption {
	return func(s *OAuthService) { s.notionTokenURL = url }
}

// NewOAuthService creates a new OAuthService.
func NewOAuthService(
	credentialStore store.CredentialStore,
	workspaceStore store.WorkspaceStore,
	v *vault.Vault,
	cfg config.OAuthConfig,
	logger *slog.Logger,
	opts ...OAuthOption,
) *OAuthService {
	s := &OAuthService{
		credentialStore: credentialStore,
		workspaceStore:  workspaceStore,
		vault:           v,
		logger:          logger.With("component", "oauth_service"),
		google: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURI,
			Scopes:       []string{gmailReadScope},
			Endpoint:     google.Endpoint,
		},
		zoom: &oauth2.Config{
			ClientID:     cfg.Zoom.ClientID,
			ClientSecret: cfg.Zoom.ClientSecret,
			RedirectURL:  cfg.Zoom.RedirectURI,
			Endpoint:     zoomEndpoint,
		},
		notion:         cfg.Notion,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		notionTokenURL: defaultNotionTokenURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthCodeURL builds the provider's consent page URL for connecting the
// given workspace. The workspace is verified to belong to the requesting
// user before any redirect happens; the workspace ID rides along as the
// OAuth state parameter.
func (s *OAuthService) AuthCodeURL(
	ctx context.Context,
	userID, workspaceID uuid.UUID,
	provider string,
) (string, error) {
	if _, err := s.workspaceStore.GetForUser(ctx, workspaceID, userID); err != nil {
		return "", err
	}

	state := workspaceID.String()

	switch provider {
	case domain.ProviderGoogle:
		// Offline access plus forced consent so Google returns a refresh
		// token on every authorization, not only the first.
		return s.google.AuthCodeURL(state,
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("prompt", "consent")), nil
	case domain.ProviderZoom:
		return s.zoom.AuthCodeURL(state), nil
	case domain.ProviderNotion:
		return fmt.Sprintf(
			"https://api.notion.com/v1/oauth/authorize?client_id=%s&response_type=code&owner=user&redirect_uri=%s&state=%s",
			s.notion.ClientID, s.notion.RedirectURI, state,
		), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}

// HandleCallback finishes the authorization-code flow: it exchanges the
// code for tokens, encrypts them, and upserts the workspace credential.
func (s *OAuthService) HandleCallback(ctx context.Context, provider, code, state string) error {
	workspaceID, err := uuid.Parse(state)
	if err != nil {
		return fmt.Errorf("%w: invalid state parameter", domain.ErrValidation)
	}

	var accessToken, refreshToken string
	var expiresAt *time.Time

	switch provider {
	case domain.ProviderGoogle:
		accessToken, refreshToken, expiresAt, err = s.exchange(ctx, s.google, code)
	case domain.ProviderZoom:
		accessToken, refreshToken, expiresAt, err = s.exchange(ctx, s.zoom, code)
	case domain.ProviderNotion:
		accessToken, err = s.exchangeNotion(ctx, code)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if err != nil {
		// oauth2 retrieve errors carry the raw token-endpoint response.
		s.logger.Error("oauth code exchange failed", "provider", provider, "error", redact.Error(err))
		return fmt.Errorf("oauth code exchange failed for %s: %w", provider, err)
	}

	encryptedAccess, err := s.vault.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encryptedRefresh, err := s.vault.Encrypt(refreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	cred, err := domain.NewOAuthCredential(workspaceID, provider, encryptedAccess, encryptedRefresh, expiresAt)
	if err != nil {
		return err
	}

	if err := s.credentialStore.Upsert(ctx, cred); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	s.logger.Info("oauth credential stored",
		"workspace_id", workspaceID,
		"provider", provider)
	return nil
}

// ListConnections returns which providers are connected for a workspace
// owned by the user. Token material is never included.
func (s *OAuthService) ListConnections(
	ctx context.Context,
	userID, workspaceID uuid.UUID,
) ([]*domain.OAuthCredential, error) {
	if _, err := s.workspaceStore.GetForUser(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	return s.credentialStore.ListByWorkspace(ctx, workspaceID)
}

// exchange runs the standard oauth2 code exchange.
func (s *OAuthService) exchange(
	ctx context.Context,
	cfg *oauth2.Config,
	code string,
) (accessToken, refreshToken string, expiresAt *time.Time, err error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return "", "", nil, err
	}

	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		expiresAt = &expiry
	}
	return token.AccessToken, token.RefreshToken, expiresAt, nil
}

// exchangeNotion exchanges the code with Notion, which uses HTTP basic
// auth with the client credentials and returns no refresh token.
func (s *OAuthService) exchangeNotion(ctx context.Context, code string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": s.notion.RedirectURI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal notion token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.notionTokenURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build notion token request: %w", err)
	}
	req.SetBasicAuth(s.notion.ClientID, s.notion.ClientSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("notion token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("notion token endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode notion token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("notion token response contained no access token")
	}

	return tokenResp.AccessToken, nil
}
