package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/medipost/internal/domain/draft/entity"
)

// DraftPostgres implements DraftRepository for PostgreSQL
type DraftPostgres struct {
	pool *pgxpool.Pool
}

// NewDraftPostgres creates a new PostgreSQL draft repository
func NewDraftPostgres(pool *pgxpool.Pool) *DraftPostgres {
	return &DraftPostgres{pool: pool}
}

const draftColumns = `
	id, article_id, project, summary, facts, body, seo_title, seo_description,
	seo_keywords, image_prompt, image_url, channel_post, status, scheduled_at,
	is_published, published_at, published_project, external_id,
	last_error_message, last_error_step, last_error_at, can_retry, retry_count,
	created_by, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*entity.Draft, error) {
	var d entity.Draft
	var body, seoTitle, seoDescription, imagePrompt, imageURL, channelPost *string
	var publishedProject, externalID, errMessage, errStep *string

	err := row.Scan(
		&d.ID,
		&d.ArticleID,
		&d.Project,
		&d.Summary,
		&d.Facts,
		&body,
		&seoTitle,
		&seoDescription,
		&d.SEOKeywords,
		&imagePrompt,
		&imageURL,
		&channelPost,
		&d.Status,
		&d.ScheduledAt,
		&d.IsPublished,
		&d.PublishedAt,
		&publishedProject,
		&externalID,
		&errMessage,
		&errStep,
		&d.LastErrorAt,
		&d.CanRetry,
		&d.RetryCount,
		&d.CreatedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if body != nil {
		d.Body = *body
	}
	if seoTitle != nil {
		d.SEOTitle = *seoTitle
	}
	if seoDescription != nil {
		d.SEODescription = *seoDescription
	}
	if imagePrompt != nil {
		d.ImagePrompt = *imagePrompt
	}
	if imageURL != nil {
		d.ImageURL = *imageURL
	}
	if channelPost != nil {
		d.ChannelPost = *channelPost
	}
	if publishedProject != nil {
		d.PublishedProject = *publishedProject
	}
	if externalID != nil {
		d.ExternalID = *externalID
	}
	if errMessage != nil {
		d.LastErrorMessage = *errMessage
	}
	if errStep != nil {
		d.LastErrorStep = entity.PipelineStep(*errStep)
	}

	return &d, nil
}

// Create inserts a new draft and fills its ID
func (r *DraftPostgres) Create(ctx context.Context, d *entity.Draft) error {
	query := `
		INSERT INTO drafts (article_id, project, summary, facts, status, can_retry, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		d.ArticleID,
		d.Project,
		d.Summary,
		d.Facts,
		d.Status,
		d.CanRetry,
		d.CreatedBy,
		d.CreatedAt,
		d.UpdatedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("inserting draft: %w", err)
	}

	return nil
}

// GetByID retrieves a draft by ID
func (r *DraftPostgres) GetByID(ctx context.Context, id int64) (*entity.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id = $1`

	d, err := scanDraft(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning draft: %w", err)
	}

	return d, nil
}

// List retrieves drafts with filtering and pagination
func (r *DraftPostgres) List(ctx context.Context, filter DraftFilter, opts ListOptions) ([]entity.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.Project != "" {
		query += fmt.Sprintf(" AND project = $%d", argNum)
		args = append(args, filter.Project)
		argNum++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.CreatedBy != nil {
		query += fmt.Sprintf(" AND created_by = $%d", argNum)
		args = append(args, *filter.CreatedBy)
		argNum++
	}

	sortCol := "created_at"
	switch opts.SortBy {
	case "updated_at", "scheduled_at", "created_at":
		sortCol = opts.SortBy
	}
	order := "DESC"
	if !opts.Desc {
		order = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortCol, order)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, opts.Limit)
		argNum++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, opts.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying drafts: %w", err)
	}
	defer rows.Close()

	var drafts []entity.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		drafts = append(drafts, *d)
	}

	return drafts, rows.Err()
}

// Count returns the number of drafts matching the filter
func (r *DraftPostgres) Count(ctx context.Context, filter DraftFilter) (int64, error) {
	query := "SELECT COUNT(*) FROM drafts WHERE 1=1"
	args := []interface{}{}
	argNum := 1

	if filter.Project != "" {
		query += fmt.Sprintf(" AND project = $%d", argNum)
		args = append(args, filter.Project)
		argNum++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.CreatedBy != nil {
		query += fmt.Sprintf(" AND created_by = $%d", argNum)
		args = append(args, *filter.CreatedBy)
	}

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting drafts: %w", err)
	}

	return count, nil
}

// UpdateSummary replaces summary/facts without touching status
func (r *DraftPostgres) UpdateSummary(ctx context.Context, id int64, summary string, facts []string) (bool, error) {
	query := `UPDATE drafts SET summary = $2, facts = $3, updated_at = $4 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, summary, facts, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("updating summary: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ConfirmSummary stores edited summary/facts and confirms the draft
func (r *DraftPostgres) ConfirmSummary(ctx context.Context, id int64, summary string, facts []string) (bool, error) {
	query := `
		UPDATE drafts
		SET summary = $2, facts = $3, status = 'summary_confirmed', updated_at = $4
		WHERE id = $1 AND status IN ('summary_pending', 'summary_confirmed')
	`

	tag, err := r.pool.Exec(ctx, query, id, summary, facts, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("confirming summary: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SetGeneratedContent stores generated body/SEO fields. Scheduled, publishing
// and published drafts keep their status so a post-publication copy fix never
// regresses the lifecycle.
func (r *DraftPostgres) SetGeneratedContent(ctx context.Context, id int64, c GeneratedContent) (bool, error) {
	query := `
		UPDATE drafts
		SET body = $2, seo_title = $3, seo_description = $4, seo_keywords = $5,
		    image_prompt = $6, image_url = $7, channel_post = $8,
		    status = CASE WHEN status IN ('scheduled', 'publishing', 'published') THEN status ELSE 'generated' END,
		    updated_at = $9
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id,
		c.Body, c.SEOTitle, c.SEODescription, c.SEOKeywords,
		c.ImagePrompt, c.ImageURL, c.ChannelPost, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("setting generated content: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SetImage replaces the image prompt and URL regardless of status
func (r *DraftPostgres) SetImage(ctx context.Context, id int64, prompt, url string) (bool, error) {
	query := `UPDATE drafts SET image_prompt = $2, image_url = $3, updated_at = $4 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, prompt, url, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("setting image: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Schedule moves an eligible draft to scheduled with the given time
func (r *DraftPostgres) Schedule(ctx context.Context, id int64, at time.Time, projectCode string) (bool, error) {
	query := `
		UPDATE drafts
		SET status = 'scheduled', scheduled_at = $2, published_project = $3, updated_at = $4
		WHERE id = $1 AND status IN ('generated', 'scheduled')
	`

	tag, err := r.pool.Exec(ctx, query, id, at.UTC(), projectCode, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("scheduling draft: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// CancelSchedule returns a scheduled draft to generated
func (r *DraftPostgres) CancelSchedule(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE drafts
		SET status = 'generated', scheduled_at = NULL, updated_at = $2
		WHERE id = $1 AND status = 'scheduled'
	`

	tag, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("cancelling schedule: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ClaimForPublishing atomically takes the publish claim. The conditional
// update is what guarantees at-most-once gateway invocation: a concurrent
// caller matches zero rows and backs off.
func (r *DraftPostgres) ClaimForPublishing(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE drafts
		SET status = 'publishing', updated_at = $2
		WHERE id = $1 AND status IN ('generated', 'scheduled')
	`

	tag, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("claiming draft for publishing: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ReleaseClaim undoes a publish claim after a gateway failure
func (r *DraftPostgres) ReleaseClaim(ctx context.Context, id int64) error {
	query := `
		UPDATE drafts
		SET status = CASE WHEN scheduled_at IS NOT NULL THEN 'scheduled' ELSE 'generated' END,
		    updated_at = $2
		WHERE id = $1 AND status = 'publishing'
	`

	if _, err := r.pool.Exec(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("releasing publish claim: %w", err)
	}

	return nil
}

// SetPublished completes a claimed publish. published_at and external_id are
// written exactly once and never cleared.
func (r *DraftPostgres) SetPublished(ctx context.Context, id int64, externalID, projectCode string, at time.Time) (bool, error) {
	query := `
		UPDATE drafts
		SET status = 'published', is_published = TRUE, published_at = $2,
		    external_id = $3, published_project = $4, updated_at = $5
		WHERE id = $1 AND status = 'publishing' AND published_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, at.UTC(), externalID, projectCode, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("setting published: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkError writes the error ledger and increments the retry counter
func (r *DraftPostgres) MarkError(ctx context.Context, id int64, msg string, step entity.PipelineStep, canRetry bool) (bool, error) {
	query := `
		UPDATE drafts
		SET last_error_message = $2, last_error_step = $3, last_error_at = $4,
		    can_retry = $5, retry_count = retry_count + 1,
		    status = CASE WHEN $5 THEN status ELSE 'error' END,
		    updated_at = $4
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, msg, string(step), time.Now().UTC(), canRetry)
	if err != nil {
		return false, fmt.Errorf("marking error: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ClearError resets the error ledger, leaving status untouched
func (r *DraftPostgres) ClearError(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE drafts
		SET last_error_message = NULL, last_error_step = NULL, last_error_at = NULL,
		    can_retry = TRUE, updated_at = $2
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("clearing error: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListFailed retrieves drafts with a recorded failure
func (r *DraftPostgres) ListFailed(ctx context.Context, recoverableOnly bool, createdBy *int64) ([]entity.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE last_error_message IS NOT NULL`
	args := []interface{}{}
	argNum := 1

	if recoverableOnly {
		query += fmt.Sprintf(" AND can_retry = TRUE AND retry_count < $%d AND status <> 'published'", argNum)
		args = append(args, entity.MaxRetries)
		argNum++
	}

	if createdBy != nil {
		query += fmt.Sprintf(" AND created_by = $%d", argNum)
		args = append(args, *createdBy)
	}

	query += " ORDER BY last_error_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying failed drafts: %w", err)
	}
	defer rows.Close()

	var drafts []entity.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		drafts = append(drafts, *d)
	}

	return drafts, rows.Err()
}

// GetDueScheduled retrieves drafts due for publishing, oldest first
func (r *DraftPostgres) GetDueScheduled(ctx context.Context, now time.Time) ([]entity.Draft, error) {
	query := `SELECT ` + draftColumns + `
		FROM drafts
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
	`

	rows, err := r.pool.Query(ctx, query, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying due drafts: %w", err)
	}
	defer rows.Close()

	var drafts []entity.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		drafts = append(drafts, *d)
	}

	return drafts, rows.Err()
}
