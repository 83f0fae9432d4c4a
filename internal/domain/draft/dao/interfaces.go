package dao

import (
	"context"
	"time"

	"github.com/vadim/medipost/internal/domain/draft/entity"
)

// DraftFilter contains filters for listing drafts
type DraftFilter struct {
	Project   string
	Status    *entity.DraftStatus
	CreatedBy *int64
}

// ListOptions contains pagination and sorting options
type ListOptions struct {
	Limit  int
	Offset int
	SortBy string // "created_at", "updated_at", "scheduled_at"
	Desc   bool
}

// GeneratedContent carries the output of the generate step
type GeneratedContent struct {
	Body           string
	SEOTitle       string
	SEODescription string
	SEOKeywords    []string
	ImagePrompt    string
	ImageURL       string
	ChannelPost    string
}

// DraftRepository defines the interface for draft data access.
// Status-changing methods that return bool report whether the conditional
// update matched a row; false means the draft was not in an eligible status
// (or does not exist) and nothing was written.
type DraftRepository interface {
	// Create inserts a new draft and fills its ID
	Create(ctx context.Context, d *entity.Draft) error

	// GetByID retrieves a draft by ID, (nil, nil) when absent
	GetByID(ctx context.Context, id int64) (*entity.Draft, error)

	// List retrieves drafts with filtering and pagination
	List(ctx context.Context, filter DraftFilter, opts ListOptions) ([]entity.Draft, error)

	// Count returns the number of drafts matching the filter
	Count(ctx context.Context, filter DraftFilter) (int64, error)

	// UpdateSummary replaces summary/facts without touching status (used by
	// the summarize step and its retry)
	UpdateSummary(ctx context.Context, id int64, summary string, facts []string) (bool, error)

	// ConfirmSummary stores edited summary/facts and moves
	// summary_pending -> summary_confirmed. Re-confirming an already
	// confirmed draft is allowed as an edit.
	ConfirmSummary(ctx context.Context, id int64, summary string, facts []string) (bool, error)

	// SetGeneratedContent stores generated body/SEO fields. The status moves
	// to generated unless the draft is already scheduled, publishing or
	// published, in which case content is replaced and status kept.
	SetGeneratedContent(ctx context.Context, id int64, c GeneratedContent) (bool, error)

	// SetImage replaces the image prompt and URL regardless of status
	SetImage(ctx context.Context, id int64, prompt, url string) (bool, error)

	// Schedule moves generated|scheduled -> scheduled with the given time
	// and target project code
	Schedule(ctx context.Context, id int64, at time.Time, projectCode string) (bool, error)

	// CancelSchedule moves scheduled -> generated and clears scheduled_at
	CancelSchedule(ctx context.Context, id int64) (bool, error)

	// ClaimForPublishing atomically moves generated|scheduled -> publishing.
	// At most one concurrent caller gets true for a given draft.
	ClaimForPublishing(ctx context.Context, id int64) (bool, error)

	// ReleaseClaim undoes a publish claim: publishing -> scheduled when a
	// schedule time is still set, publishing -> generated otherwise
	ReleaseClaim(ctx context.Context, id int64) error

	// SetPublished completes a claimed publish: publishing -> published,
	// setting published_at/external_id exactly once
	SetPublished(ctx context.Context, id int64, externalID, projectCode string, at time.Time) (bool, error)

	// MarkError writes the error ledger and increments retry_count; when
	// canRetry is false the status is forced to error
	MarkError(ctx context.Context, id int64, msg string, step entity.PipelineStep, canRetry bool) (bool, error)

	// ClearError resets all error ledger fields, leaving status untouched
	ClearError(ctx context.Context, id int64) (bool, error)

	// ListFailed retrieves drafts with a recorded failure, optionally only
	// retry-eligible ones and/or restricted to a creator
	ListFailed(ctx context.Context, recoverableOnly bool, createdBy *int64) ([]entity.Draft, error)

	// GetDueScheduled retrieves drafts with status scheduled and
	// scheduled_at <= now, oldest first
	GetDueScheduled(ctx context.Context, now time.Time) ([]entity.Draft, error)
}

// GenerationLogRepository defines the interface for the append-only
// generation audit log
type GenerationLogRepository interface {
	// Create appends one log row; rows are never updated
	Create(ctx context.Context, log *entity.GenerationLog) error

	// ListByDraft retrieves all log rows for a draft, newest first
	ListByDraft(ctx context.Context, draftID int64) ([]entity.GenerationLog, error)
}
