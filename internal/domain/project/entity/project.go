package entity

import (
	"strings"
	"time"
)

// Project is one publishing destination: a CMS site plus its messaging
// channel. Credentials live here, resolved by the publication gateway
// per publish call.
type Project struct {
	Code           string    `json:"code"` // short code, e.g. "TS"
	Domain         string    `json:"domain"`
	Name           string    `json:"name"`
	CMSBaseURL     string    `json:"cms_base_url"`
	CMSToken       string    `json:"-"`
	TaxonomyID     *int64    `json:"taxonomy_id,omitempty"`
	TelegramChatID string    `json:"telegram_chat_id,omitempty"`
	Style          string    `json:"style,omitempty"` // formatting instructions passed to the writer model
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsConfigured reports whether the project carries everything the
// publication gateway needs
func (p *Project) IsConfigured() bool {
	return p.CMSBaseURL != "" && p.CMSToken != ""
}

// NormalizeCode canonicalizes a user-supplied project code. It validates
// shape only; existence is checked against the store. There is deliberately
// no fallback default: an unknown code is an error, never substituted.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", ErrEmptyProjectCode
	}
	if len(code) > 16 {
		return "", ErrInvalidProjectCode
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '.' && r != '-' {
			return "", ErrInvalidProjectCode
		}
	}
	return code, nil
}
