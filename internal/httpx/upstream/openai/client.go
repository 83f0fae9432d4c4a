package openai

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
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "gpt-4o-mini"
	defaultImageModel = "dall-e-3"
	defaultTimeout    = 120 * time.Second

	// ProviderName identifies this provider in generation logs
	ProviderName = "openai"
)

// Client is an OpenAI-compatible text and image generation client
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	imageModel string
	httpClient *http.Client
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for OpenAI-compatible providers)
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel sets the chat model
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithImageModel sets the image model
func WithImageModel(model string) ClientOption {
	return func(c *Client) {
		c.imageModel = model
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a new generation client
func New(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      defaultModel,
		imageModel: defaultImageModel,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Model returns the configured chat model name (for generation logs)
func (c *Client) Model() string {
	return c.model
}

// ImageModel returns the configured image model name
func (c *Client) ImageModel() string {
	return c.imageModel
}

// APIError represents an error from the generation API
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai API error: %s (type: %s, code: %s)", e.Message, e.Type, e.Code)
}

type errorResponse struct {
	Error APIError `json:"error"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// SummarizeInput represents input for summarizing a source article
type SummarizeInput struct {
	Title   string
	Content string
	Project string
}

// SummarizeOutput represents a produced summary with extracted facts
type SummarizeOutput struct {
	Summary    string   `json:"summary"`
	Facts      []string `json:"facts"`
	TokensUsed int      `json:"-"`
}

// Summarize produces an editorial summary and a list of checkable facts for
// a scraped medical article
func (c *Client) Summarize(ctx context.Context, in SummarizeInput) (*SummarizeOutput, error) {
	system := "You are a medical content editor. Summarize the article for the project \"" + in.Project +
		"\" and extract the key factual claims. Respond with JSON: {\"summary\": string, \"facts\": [string]}."
	user := "Title: " + in.Title + "\n\n" + in.Content

	var out SummarizeOutput
	tokens, err := c.chatJSON(ctx, system, user, &out)
	if err != nil {
		return nil, err
	}
	out.TokensUsed = tokens

	return &out, nil
}

// GenerateArticleInput represents input for generating the full post
type GenerateArticleInput struct {
	Summary string
	Facts   []string
	Project string
	Style   string // per-project formatting instructions, may be empty
}

// GenerateArticleOutput represents a generated post with SEO fields
type GenerateArticleOutput struct {
	Body           string   `json:"body"`
	SEOTitle       string   `json:"seo_title"`
	SEODescription string   `json:"seo_description"`
	SEOKeywords    []string `json:"seo_keywords"`
	ImagePrompt    string   `json:"image_prompt"`
	ChannelPost    string   `json:"channel_post"`
	TokensUsed     int      `json:"-"`
}

// GenerateArticle produces the full post body, SEO fields, an illustration
// prompt and a short messaging-channel announcement from a confirmed summary
func (c *Client) GenerateArticle(ctx context.Context, in GenerateArticleInput) (*GenerateArticleOutput, error) {
	system := "You are a medical content writer for the project \"" + in.Project + "\". " + in.Style +
		" Write a complete post from the summary and facts. Respond with JSON: " +
		"{\"body\": string, \"seo_title\": string, \"seo_description\": string, " +
		"\"seo_keywords\": [string], \"image_prompt\": string, \"channel_post\": string}."
	user := "Summary: " + in.Summary + "\n\nFacts:\n- " + strings.Join(in.Facts, "\n- ")

	var out GenerateArticleOutput
	tokens, err := c.chatJSON(ctx, system, user, &out)
	if err != nil {
		return nil, err
	}
	out.TokensUsed = tokens

	return &out, nil
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImage produces an illustration for the given prompt and returns
// the provider-hosted URL. The URL is short-lived; callers re-host it.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(imageRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		N:      1,
		Size:   "1024x1024",
	})
	if err != nil {
		return "", fmt.Errorf("marshaling image request: %w", err)
	}

	var out imageResponse
	if err := c.post(ctx, "/images/generations", body, &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", fmt.Errorf("image response contains no data")
	}

	return out.Data[0].URL, nil
}

// chatJSON runs one chat completion expecting a JSON object reply and
// unmarshals it into out. Returns the total tokens billed.
func (c *Client) chatJSON(ctx context.Context, system, user string, out interface{}) (int, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: map[string]any{"type": "json_object"},
	})
	if err != nil {
		return 0, fmt.Errorf("marshaling chat request: %w", err)
	}

	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", body, &resp); err != nil {
		return 0, err
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("chat response contains no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return resp.Usage.TotalTokens, fmt.Errorf("decoding model reply: %w", err)
	}

	return resp.Usage.TotalTokens, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.Error.Message == "" {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
		}
		return &errResp.Error
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
