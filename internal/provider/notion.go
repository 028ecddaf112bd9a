package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cleohq/cleo-api/internal/domain"
)

const (
	// defaultNotionBaseURL is the production Notion API endpoint.
	defaultNotionBaseURL = "https://api.notion.com"

	// notionVersion is the API version header Notion requires on every
	// request.
	notionVersion = "2022-06-28"
)

// NotionProvider fetches workspace user listings from the Notion API for
// notion_sync tasks.
type NotionProvider struct {
	client  *http.Client
	baseURL string
}

// NotionOption configures a NotionProvider.
type NotionOption func(*NotionProvider)

// WithNotionBaseURL overrides the Notion API endpoint. Used in tests.
func WithNotionBaseURL(baseURL string) NotionOption {
	return func(p *NotionProvider) { p.baseURL = baseURL }
}

// WithNotionHTTPClient overrides the HTTP client.
func WithNotionHTTPClient(client *http.Client) NotionOption {
	return func(p *NotionProvider) { p.client = client }
}

// NewNotionProvider creates a Notion context provider.
func NewNotionProvider(opts ...NotionOption) *NotionProvider {
	p := &NotionProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultNotionBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ ContextProvider = (*NotionProvider)(nil)

// TaskType implements ContextProvider.TaskType
func (p *NotionProvider) TaskType() string {
	return domain.TaskTypeNotionSync
}

// CredentialProvider implements ContextProvider.CredentialProvider
func (p *NotionProvider) CredentialProvider() string {
	return domain.ProviderNotion
}

// FetchContext implements ContextProvider.FetchContext
// It returns the raw JSON user listing from the Notion API.
func (p *NotionProvider) FetchContext(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/users", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build notion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: notion: %v", ErrProviderRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: notion returned status %d", ErrProviderRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: notion: reading response: %v", ErrProviderRequestFailed, err)
	}

	return string(body), nil
}
