package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cleohq/cleo-api/internal/domain"
)

// defaultGmailBaseURL is the production Gmail API endpoint.
const defaultGmailBaseURL = "https://gmail.googleapis.com"

// GmailProvider fetches a recent message listing from the Gmail API for
// gmail_read tasks.
type GmailProvider struct {
	client   *http.Client
	baseURL  string
	maxItems int
}

// GmailOption configures a GmailProvider.
type GmailOption func(*GmailProvider)

// WithGmailBaseURL overrides the Gmail API endpoint. Used in tests.
func WithGmailBaseURL(baseURL string) GmailOption {
	return func(p *GmailProvider) { p.baseURL = baseURL }
}

// WithGmailHTTPClient overrides the HTTP client.
func WithGmailHTTPClient(client *http.Client) GmailOption {
	return func(p *GmailProvider) { p.client = client }
}

// NewGmailProvider creates a Gmail context provider that lists at most
// maxItems messages per fetch. A non-positive maxItems falls back to 5.
func NewGmailProvider(maxItems int, opts ...GmailOption) *GmailProvider {
	if maxItems <= 0 {
		maxItems = 5
	}
	p := &GmailProvider{
		client:   &http.Client{Timeout: 15 * time.Second},
		baseURL:  defaultGmailBaseURL,
		maxItems: maxItems,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ ContextProvider = (*GmailProvider)(nil)

// TaskType implements ContextProvider.TaskType
func (p *GmailProvider) TaskType() string {
	return domain.TaskTypeGmailRead
}

// CredentialProvider implements ContextProvider.CredentialProvider
func (p *GmailProvider) CredentialProvider() string {
	return domain.ProviderGoogle
}

// FetchContext implements ContextProvider.FetchContext
// It returns the raw JSON message listing from the Gmail API.
func (p *GmailProvider) FetchContext(ctx context.Context, accessToken string) (string, error) {
	endpoint := p.baseURL + "/gmail/v1/users/me/messages?" + url.Values{
		"maxResults": []string{strconv.Itoa(p.maxItems)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build gmail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: gmail: %v", ErrProviderRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: gmail returned status %d", ErrProviderRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: gmail: reading response: %v", ErrProviderRequestFailed, err)
	}

	return string(body), nil
}
