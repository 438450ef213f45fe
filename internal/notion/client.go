// Package notion is a minimal client for the parts of the Notion REST API the
// importer needs: creating pages, databases, and database rows.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
)

// Defaults.
const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"
)

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 64 << 10

// Client calls the Notion API with an integration token.
type Client struct {
	baseURL    string
	token      string
	version    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithVersion overrides the Notion-Version header.
func WithVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.version = version
		}
	}
}

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient returns a client authenticating with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		version:    DefaultVersion,
		httpClient: cleanhttp.DefaultPooledClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from Notion.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("notion: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// CreatePage creates a page under another page and returns its ID. An empty
// title creates an untitled page.
func (c *Client) CreatePage(ctx context.Context, parentPageID, title string) (string, error) {
	req := createPageRequest{
		Parent:     Parent{PageID: parentPageID},
		Properties: Properties{},
	}
	if title != "" {
		req.Properties["title"] = TitleValue(title)
	}
	return c.create(ctx, "/pages", req)
}

// CreateDatabase creates an inline database under a page and returns its ID.
func (c *Client) CreateDatabase(ctx context.Context, parentPageID, title string, schema Schema) (string, error) {
	return c.create(ctx, "/databases", createDatabaseRequest{
		Parent:     Parent{PageID: parentPageID},
		Title:      PlainText(title),
		Properties: schema,
	})
}

// CreateRecord adds a row to a database and returns the new page's ID.
func (c *Client) CreateRecord(ctx context.Context, databaseID string, properties Properties) (string, error) {
	if properties == nil {
		properties = Properties{}
	}
	return c.create(ctx, "/pages", createPageRequest{
		Parent:     Parent{DatabaseID: databaseID},
		Properties: properties,
	})
}

// create POSTs body to path and returns the ID of the created object.
func (c *Client) create(ctx context.Context, path string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", decodeError(resp)
	}

	var created object
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("POST %s: response has no id", path)
	}

	return created.ID, nil
}

// decodeError turns a failed response into an *APIError, keeping the raw
// body as the message when it is not Notion's error JSON.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{}
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	apiErr.StatusCode = resp.StatusCode

	return apiErr
}
