package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	publishPath    = "/api/v1/posts"
	defaultTimeout = 30 * time.Second
)

// Client publishes finished posts to a project's CMS endpoint. The endpoint
// and token are per-project and supplied with every call; the client itself
// holds no credentials.
type Client struct {
	httpClient *http.Client
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new CMS client
func New(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error reported by the CMS
type APIError struct {
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cms API error: %s (status: %d)", e.Message, e.StatusCode)
}

// PublishInput represents one post to publish
type PublishInput struct {
	BaseURL string
	Token   string

	Title       string   `json:"title"`
	Preview     string   `json:"preview"`
	Body        string   `json:"body"`
	TaxonomyID  *int64   `json:"taxonomy_id,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	SEOTitle    string   `json:"seo_title,omitempty"`
	SEODesc     string   `json:"seo_description,omitempty"`
	SEOKeywords []string `json:"seo_keywords,omitempty"`
}

// PublishOutput represents the CMS's normalized publish result
type PublishOutput struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id"`
	URL     string `json:"url"`
	Error   string `json:"error,omitempty"`
}

// Publish sends the post to the project's CMS and returns the assigned id
// and canonical URL. The caller owns retry policy; the client never retries.
func (c *Client) Publish(ctx context.Context, in PublishInput) (*PublishOutput, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshaling publish payload: %w", err)
	}

	endpoint := strings.TrimRight(in.BaseURL, "/") + publishPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+in.Token)
	req.Header.Set("Content-Type", "application/json")

	var out PublishOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	if !out.Success {
		return nil, &APIError{Message: out.Error, StatusCode: http.StatusOK}
	}

	return &out, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
