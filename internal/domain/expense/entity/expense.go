package entity

import "time"

// ExpenseOperation identifies what kind of work incurred a cost
type ExpenseOperation string

const (
	OperationSummarize     ExpenseOperation = "summarize"
	OperationGenerate      ExpenseOperation = "generate"
	OperationGenerateImage ExpenseOperation = "generate_image"
	OperationPublish       ExpenseOperation = "publish"
)

// Expense is one append-only cost event, correlated to a draft and the
// user who triggered the work. Reporting only; nothing in the draft
// lifecycle reads it back.
type Expense struct {
	ID        string           `json:"id"`
	DraftID   int64            `json:"draft_id"`
	UserID    *int64           `json:"user_id,omitempty"`
	Operation ExpenseOperation `json:"operation"`
	Cost      float64          `json:"cost"`
	CreatedAt time.Time        `json:"created_at"`
}

// PublicationRecord is one append-only audit row: this draft was published
// to this project by this user.
type PublicationRecord struct {
	ID          string    `json:"id"`
	DraftID     int64     `json:"draft_id"`
	UserID      *int64    `json:"user_id,omitempty"`
	ProjectCode string    `json:"project_code"`
	ExternalID  string    `json:"external_id"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}
