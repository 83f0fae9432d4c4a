package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second
)

// Notifier announces published posts to a project's Telegram channel via
// the Bot API. Sends are fire-and-forget from the publish path: failures
// are reported to the caller for logging only.
type Notifier struct {
	baseURL  string
	botToken string
	client   *http.Client
}

// NotifierOption is a function that configures the Notifier
type NotifierOption func(*Notifier)

// WithBaseURL sets a custom Bot API base URL
func WithBaseURL(url string) NotifierOption {
	return func(n *Notifier) {
		n.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) NotifierOption {
	return func(n *Notifier) {
		n.client = client
	}
}

// NewNotifier creates a notifier for the given bot token
func NewNotifier(botToken string, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		baseURL:  defaultBaseURL,
		botToken: botToken,
		client:   &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// SendMessage posts a text message to the chat
func (n *Notifier) SendMessage(ctx context.Context, chatID, text string) error {
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")

	return n.call(ctx, "sendMessage", form)
}

// SendPhoto posts a photo with a caption to the chat
func (n *Notifier) SendPhoto(ctx context.Context, chatID, photoURL, caption string) error {
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("photo", photoURL)
	form.Set("caption", caption)
	form.Set("parse_mode", "HTML")

	return n.call(ctx, "sendPhoto", form)
}

func (n *Notifier) call(ctx context.Context, method string, form url.Values) error {
	if n.botToken == "" {
		return fmt.Errorf("telegram notifier misconfigured: empty bot token")
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", n.baseURL, n.botToken, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		var apiResp struct {
			Description string `json:"description"`
		}
		if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Description != "" {
			return fmt.Errorf("telegram error: %s", apiResp.Description)
		}
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
