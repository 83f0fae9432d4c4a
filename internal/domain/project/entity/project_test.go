package entity

import (
	"errors"
	"testing"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"plain code", "TS", "TS", nil},
		{"lowercase is upcased", "medline", "MEDLINE", nil},
		{"surrounding spaces trimmed", "  TS  ", "TS", nil},
		{"digits and separators allowed", "med-2.ru", "MED-2.RU", nil},
		{"empty", "", "", ErrEmptyProjectCode},
		{"only spaces", "   ", "", ErrEmptyProjectCode},
		{"too long", "ABCDEFGHIJKLMNOPQ", "", ErrInvalidProjectCode},
		{"forbidden characters", "TS_1", "", ErrInvalidProjectCode},
		{"cyrillic", "МЕД", "", ErrInvalidProjectCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeCode(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NormalizeCode(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeCode(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsConfigured(t *testing.T) {
	p := &Project{Code: "TS"}
	if p.IsConfigured() {
		t.Error("project without CMS credentials reported configured")
	}

	p.CMSBaseURL = "https://cms.example.com"
	if p.IsConfigured() {
		t.Error("project without token reported configured")
	}

	p.CMSToken = "secret"
	if !p.IsConfigured() {
		t.Error("fully configured project reported unconfigured")
	}
}
