package entity

import (
	"errors"
	"time"
)

// Article is a scraped source article. Scrapers live outside this service;
// here articles are a read-only lookup feeding the draft pipeline.
type Article struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrArticleNotFound = errors.New("article not found")
