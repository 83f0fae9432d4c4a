package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/medipost/internal/domain/draft/dao"
	"github.com/vadim/medipost/internal/domain/draft/entity"
)

// Service handles business logic for the draft lifecycle. Every status
// transition is persisted as a conditional update so concurrent callers
// can never move a draft along the same edge twice.
type Service struct {
	drafts dao.DraftRepository
	logs   dao.GenerationLogRepository
	now    func() time.Time
}

// New creates a new draft service
func New(drafts dao.DraftRepository, logs dao.GenerationLogRepository) *Service {
	return &Service{
		drafts: drafts,
		logs:   logs,
		now:    time.Now,
	}
}

// CreateInput represents input for creating a draft
type CreateInput struct {
	ArticleID int64
	Project   string
	Summary   string
	Facts     []string
	CreatedBy *int64
}

// CreateDraft creates a new draft in summary_pending. A draft is always
// created fresh; summarizing never mutates an existing one.
func (s *Service) CreateDraft(ctx context.Context, in CreateInput) (*entity.Draft, error) {
	now := s.now().UTC()

	d := &entity.Draft{
		ArticleID: in.ArticleID,
		Project:   in.Project,
		Summary:   in.Summary,
		Facts:     in.Facts,
		Status:    entity.StatusSummaryPending,
		CanRetry:  true,
		CreatedBy: in.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, err
	}

	return d, nil
}

// GetDraft retrieves a draft by ID
func (s *Service) GetDraft(ctx context.Context, id int64) (*entity.Draft, error) {
	d, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, entity.ErrDraftNotFound
	}
	return d, nil
}

// ListInput represents input for listing drafts
type ListInput struct {
	Project   string
	Status    *entity.DraftStatus
	CreatedBy *int64
	Limit     int
	Offset    int
}

// ListOutput represents output from listing drafts
type ListOutput struct {
	Drafts []entity.Draft
	Total  int64
}

// ListDrafts retrieves drafts with filtering
func (s *Service) ListDrafts(ctx context.Context, in ListInput) (*ListOutput, error) {
	filter := dao.DraftFilter{
		Project:   in.Project,
		Status:    in.Status,
		CreatedBy: in.CreatedBy,
	}

	opts := dao.ListOptions{
		Limit:  in.Limit,
		Offset: in.Offset,
		SortBy: "created_at",
		Desc:   true,
	}
	if opts.Limit == 0 {
		opts.Limit = 50
	}

	drafts, err := s.drafts.List(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	total, err := s.drafts.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ListOutput{Drafts: drafts, Total: total}, nil
}

// SetSummary replaces the draft's summary and facts without changing status
func (s *Service) SetSummary(ctx context.Context, id int64, summary string, facts []string) error {
	ok, err := s.drafts.UpdateSummary(ctx, id, summary, facts)
	if err != nil {
		return err
	}
	if !ok {
		return entity.ErrDraftNotFound
	}
	return nil
}

// ConfirmSummary confirms the draft's summary, optionally replacing the
// summary text and extracted facts in the same step
func (s *Service) ConfirmSummary(ctx context.Context, id int64, summary *string, facts []string) (*entity.Draft, error) {
	d, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	newSummary := d.Summary
	if summary != nil {
		newSummary = *summary
	}
	newFacts := d.Facts
	if facts != nil {
		newFacts = facts
	}

	ok, err := s.drafts.ConfirmSummary(ctx, id, newSummary, newFacts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, entity.ErrInvalidStatus
	}

	return s.GetDraft(ctx, id)
}

// SaveGeneratedContent persists the generate step's output. Last write wins
// on content fields; scheduled and published drafts keep their status so an
// edit never regresses the lifecycle.
func (s *Service) SaveGeneratedContent(ctx context.Context, id int64, c dao.GeneratedContent) error {
	ok, err := s.drafts.SetGeneratedContent(ctx, id, c)
	if err != nil {
		return err
	}
	if !ok {
		return entity.ErrDraftNotFound
	}
	return nil
}

// SetImage replaces the draft's image prompt and URL regardless of status
func (s *Service) SetImage(ctx context.Context, id int64, prompt, url string) error {
	ok, err := s.drafts.SetImage(ctx, id, prompt, url)
	if err != nil {
		return err
	}
	if !ok {
		return entity.ErrDraftNotFound
	}
	return nil
}

// Schedule defers publishing to the given time. The time must be strictly
// in the future; scheduling for the current instant is rejected.
func (s *Service) Schedule(ctx context.Context, id int64, at time.Time, projectCode string) (*entity.Draft, error) {
	if !at.After(s.now()) {
		return nil, entity.ErrScheduledTimeInPast
	}

	d, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == entity.StatusPublished {
		return nil, entity.ErrAlreadyPublished
	}
	if !d.CanSchedule() {
		return nil, entity.ErrNotSchedulable
	}

	ok, err := s.drafts.Schedule(ctx, id, at, projectCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, entity.ErrNotSchedulable
	}

	return s.GetDraft(ctx, id)
}

// Reschedule moves an already scheduled draft to a new future time
func (s *Service) Reschedule(ctx context.Context, id int64, at time.Time) (*entity.Draft, error) {
	if !at.After(s.now()) {
		return nil, entity.ErrScheduledTimeInPast
	}

	d, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != entity.StatusScheduled {
		return nil, entity.ErrNotScheduled
	}

	ok, err := s.drafts.Schedule(ctx, id, at, d.PublishedProject)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, entity.ErrNotScheduled
	}

	return s.GetDraft(ctx, id)
}

// CancelSchedule returns a scheduled draft to generated
func (s *Service) CancelSchedule(ctx context.Context, id int64) (*entity.Draft, error) {
	if _, err := s.GetDraft(ctx, id); err != nil {
		return nil, err
	}

	ok, err := s.drafts.CancelSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, entity.ErrNotScheduled
	}

	return s.GetDraft(ctx, id)
}

// ClaimForPublishing atomically takes the publish claim for a draft.
// Exactly one of any set of concurrent callers succeeds; the rest get
// claimed == false and must not call the publication gateway.
func (s *Service) ClaimForPublishing(ctx context.Context, id int64) (bool, error) {
	d, err := s.GetDraft(ctx, id)
	if err != nil {
		return false, err
	}
	if d.Status == entity.StatusPublished {
		return false, entity.ErrAlreadyPublished
	}
	if d.Status == entity.StatusPublishing {
		return false, entity.ErrPublishInProgress
	}
	if !d.CanPublish() {
		if d.Body == "" {
			return false, entity.ErrEmptyBody
		}
		return false, entity.ErrInvalidStatus
	}

	return s.drafts.ClaimForPublishing(ctx, id)
}

// ReleaseClaim returns a claimed draft to its pre-claim status after a
// failed gateway call
func (s *Service) ReleaseClaim(ctx context.Context, id int64) error {
	return s.drafts.ReleaseClaim(ctx, id)
}

// CompletePublish finishes a claimed publish, stamping published_at and the
// external CMS id exactly once
func (s *Service) CompletePublish(ctx context.Context, id int64, externalID, projectCode string) error {
	ok, err := s.drafts.SetPublished(ctx, id, externalID, projectCode, s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return entity.ErrAlreadyPublished
	}
	return nil
}

// MarkError records a failure in the error ledger and increments the retry
// counter. When canRetry is false the draft is parked in error status.
func (s *Service) MarkError(ctx context.Context, id int64, msg string, step entity.PipelineStep, canRetry bool) error {
	if !entity.ValidStep(step) {
		return entity.ErrInvalidStep
	}

	ok, err := s.drafts.MarkError(ctx, id, msg, step, canRetry)
	if err != nil {
		return err
	}
	if !ok {
		return entity.ErrDraftNotFound
	}
	return nil
}

// ClearError resets all error ledger fields without touching status
func (s *Service) ClearError(ctx context.Context, id int64) error {
	ok, err := s.drafts.ClearError(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return entity.ErrDraftNotFound
	}
	return nil
}

// CanRetry reports whether another retry attempt is permitted for the draft
func (s *Service) CanRetry(ctx context.Context, id int64) (bool, error) {
	d, err := s.GetDraft(ctx, id)
	if err != nil {
		return false, err
	}
	return d.RetryAllowed(), nil
}

// ListFailed retrieves drafts with a recorded failure
func (s *Service) ListFailed(ctx context.Context, recoverableOnly bool, createdBy *int64) ([]entity.Draft, error) {
	return s.drafts.ListFailed(ctx, recoverableOnly, createdBy)
}

// GetDueScheduled retrieves drafts whose deferred publish time has arrived
func (s *Service) GetDueScheduled(ctx context.Context) ([]entity.Draft, error) {
	return s.drafts.GetDueScheduled(ctx, s.now())
}

// LogGeneration appends one generation audit row. Rows are written after
// every attempt, success or failure, and never revised.
func (s *Service) LogGeneration(ctx context.Context, log entity.GenerationLog) error {
	log.ID = uuid.New().String()
	log.CreatedAt = s.now().UTC()
	return s.logs.Create(ctx, &log)
}

// GenerationHistory retrieves the generation audit trail for a draft
func (s *Service) GenerationHistory(ctx context.Context, draftID int64) ([]entity.GenerationLog, error) {
	if _, err := s.GetDraft(ctx, draftID); err != nil {
		return nil, err
	}
	return s.logs.ListByDraft(ctx, draftID)
}
