package entity

import "time"

// GenerationOperation identifies the kind of generation call that was made
type GenerationOperation string

const (
	OperationSummarize     GenerationOperation = "summarize"
	OperationGenerate      GenerationOperation = "generate"
	OperationGenerateImage GenerationOperation = "generate_image"
)

// GenerationLog is an append-only record of one pipeline-step execution.
// A row is written after every attempt, success or failure, and is never
// revised afterwards.
type GenerationLog struct {
	ID         string              `json:"id"`
	DraftID    int64               `json:"draft_id"`
	Operation  GenerationOperation `json:"operation"`
	Provider   string              `json:"provider"`
	Model      string              `json:"model"`
	Success    bool                `json:"success"`
	TokensUsed int                 `json:"tokens_used"`
	DurationMS int64               `json:"duration_ms"`
	Error      string              `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}
