package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vadim/medipost/internal/domain/draft/dao"
	"github.com/vadim/medipost/internal/domain/draft/entity"
)

// memDraftRepo is an in-memory DraftRepository with the same conditional
// update semantics as the Postgres implementation
type memDraftRepo struct {
	nextID int64
	drafts map[int64]*entity.Draft
}

func newMemDraftRepo() *memDraftRepo {
	return &memDraftRepo{nextID: 1, drafts: make(map[int64]*entity.Draft)}
}

func (r *memDraftRepo) Create(_ context.Context, d *entity.Draft) error {
	d.ID = r.nextID
	r.nextID++
	cp := *d
	r.drafts[d.ID] = &cp
	return nil
}

func (r *memDraftRepo) GetByID(_ context.Context, id int64) (*entity.Draft, error) {
	d, ok := r.drafts[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *memDraftRepo) List(_ context.Context, filter dao.DraftFilter, _ dao.ListOptions) ([]entity.Draft, error) {
	var out []entity.Draft
	for _, d := range r.drafts {
		if filter.Project != "" && d.Project != filter.Project {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *memDraftRepo) Count(ctx context.Context, filter dao.DraftFilter) (int64, error) {
	out, _ := r.List(ctx, filter, dao.ListOptions{})
	return int64(len(out)), nil
}

func (r *memDraftRepo) UpdateSummary(_ context.Context, id int64, summary string, facts []string) (bool, error) {
	d, ok := r.drafts[id]
	if !ok {
		return false, nil
	}
	d.Summary = summary
	d.Facts = facts
	return true, nil
}

func (r *memDraftRepo) ConfirmSummary(_ context.Context, id int64, summary string, facts []string) (bool, error) {
	d, ok := r.drafts[id]
	if !ok || (d.Status != entity.StatusSummaryPending && d.Status != entity.StatusSummaryConfirmed) {
		return false, nil
	}
	d.Summary = summary
	d.Facts = facts
	d.Status = entity.StatusSummaryConfirmed
	return true, nil
}

func (r *memDraftRepo) SetGeneratedContent(_ context.Context, id int64, c dao.GeneratedContent) (bool, error) {
	d, ok := r.drafts[id]
	if !ok {
		return false, nil
	}
	d.Body = c.Body
	d.SEOTitle = c.SEOTitle
	d.SEODescription = c.SEODescription
	d.SEOKeywords = c.SEOKeywords
	d.ImagePrompt = c.ImagePrompt
	d.ImageURL = c.ImageURL
	d.ChannelPost = c.ChannelPost
	switch d.Status {
	case entity.StatusScheduled, entity.StatusPublishing, entity.StatusPublished:
		// status kept
	default:
		d.Status = entity.StatusGenerated
	}
	return true, nil
}

func (r *memDraftRepo) SetImage(_ context.Context, id int64, prompt, url string) (bool, error) {
	d, ok := r.drafts[id]
	if !ok {
		return false, nil
	}
	d.ImagePrompt = prompt
	d.ImageURL = url
	return true, nil
}

func (r *memDraftRepo) Schedule(_ context.Context, id int64, at time.Time, projectCode string) (bool, error) {
	d, ok := r.drafts[id]
	if !ok || (d.Status != entity.StatusGenerated && d.Status != entity.StatusScheduled) {
		return false, nil
	}
	d.Status = entity.StatusScheduled
	d.ScheduledAt = &at
	d.PublishedProject = projectCode
	return true, nil
}

func (r *memDraftRepo) CancelSchedule(_ context.Context, id int64) (bool, error) {
	d, ok := r.drafts[id]
	if !ok || d.Status != entity.StatusScheduled {
		return false, nil
	}
	d.Status = entity.StatusGenerated
	d.ScheduledAt = nil
	return true, nil
}

func (r *memDraftRepo) ClaimForPublishing(_ context.Context, id int64) (bool, error) {
	d, ok := r.drafts[id]
	if !ok || (d.Status != entity.StatusGenerated && d.Status != entity.StatusScheduled) {
		return false, nil
	}
	d.Status = entity.StatusPublishing
	return true, nil
}

func (r *memDraftRepo) ReleaseClaim(_ context.Context, id int64) error {
	d, ok := r.drafts[id]
	if !ok || d.Status != entity.StatusPublishing {
		return nil
	}
	if d.ScheduledAt != nil {
		d.Status = entity.StatusScheduled
	} else {
		d.Status = entity.StatusGenerated
	}
	return nil
}

func (r *memDraftRepo) SetPublished(_ context.Context, id int64, externalID, projectCode string, at time.Time) (bool, error) {
	d, ok := r.drafts[id]
	if !ok || d.Status != entity.StatusPublishing || d.PublishedAt != nil {
		return false, nil
	}
	d.Status = entity.StatusPublished
	d.IsPublished = true
	d.PublishedAt = &at
	d.PublishedProject = projectCode
	d.ExternalID = externalID
	return true, nil
}

func (r *memDraftRepo) MarkError(_ context.Context, id int64, msg string, step entity.PipelineStep, canRetry bool) (bool, error) {
	d, ok := r.drafts[id]
	if !ok {
		return false, nil
	}
	now := time.Now()
	d.LastErrorMessage = msg
	d.LastErrorStep = step
	d.LastErrorAt = &now
	d.CanRetry = canRetry
	d.RetryCount++
	if !canRetry {
		d.Status = entity.StatusError
	}
	return true, nil
}

func (r *memDraftRepo) ClearError(_ context.Context, id int64) (bool, error) {
	d, ok := r.drafts[id]
	if !ok {
		return false, nil
	}
	d.LastErrorMessage = ""
	d.LastErrorStep = ""
	d.LastErrorAt = nil
	d.CanRetry = true
	return true, nil
}

func (r *memDraftRepo) ListFailed(_ context.Context, recoverableOnly bool, _ *int64) ([]entity.Draft, error) {
	var out []entity.Draft
	for _, d := range r.drafts {
		if d.LastErrorMessage == "" {
			continue
		}
		if recoverableOnly && !d.RetryAllowed() {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *memDraftRepo) GetDueScheduled(_ context.Context, now time.Time) ([]entity.Draft, error) {
	var out []entity.Draft
	for _, d := range r.drafts {
		if d.Status == entity.StatusScheduled && d.ScheduledAt != nil && !d.ScheduledAt.After(now) {
			out = append(out, *d)
		}
	}
	return out, nil
}

type memLogRepo struct {
	logs []entity.GenerationLog
}

func (r *memLogRepo) Create(_ context.Context, log *entity.GenerationLog) error {
	r.logs = append(r.logs, *log)
	return nil
}

func (r *memLogRepo) ListByDraft(_ context.Context, draftID int64) ([]entity.GenerationLog, error) {
	var out []entity.GenerationLog
	for _, l := range r.logs {
		if l.DraftID == draftID {
			out = append(out, l)
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *memDraftRepo) {
	t.Helper()
	repo := newMemDraftRepo()
	svc := New(repo, &memLogRepo{})
	return svc, repo
}

func mustCreate(t *testing.T, svc *Service) *entity.Draft {
	t.Helper()
	d, err := svc.CreateDraft(context.Background(), CreateInput{ArticleID: 1, Project: "TS"})
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	return d
}

// advance a fresh draft to generated with a body
func mustGenerate(t *testing.T, svc *Service, id int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.ConfirmSummary(ctx, id, nil, nil); err != nil {
		t.Fatalf("ConfirmSummary failed: %v", err)
	}
	if err := svc.SaveGeneratedContent(ctx, id, dao.GeneratedContent{Body: "body"}); err != nil {
		t.Fatalf("SaveGeneratedContent failed: %v", err)
	}
}

func TestCreateDraft(t *testing.T) {
	svc, _ := newTestService(t)
	d := mustCreate(t, svc)

	if d.Status != entity.StatusSummaryPending {
		t.Errorf("new draft status = %s, want summary_pending", d.Status)
	}
	if !d.CanRetry {
		t.Error("new draft should be retryable")
	}
	if d.ID == 0 {
		t.Error("draft ID not assigned")
	}
}

func TestGetDraftNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetDraft(context.Background(), 404)
	if !errors.Is(err, entity.ErrDraftNotFound) {
		t.Errorf("GetDraft error = %v, want ErrDraftNotFound", err)
	}
}

func TestScheduleRejectsNonFutureTime(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	d := mustCreate(t, svc)
	mustGenerate(t, svc, d.ID)

	for _, at := range []time.Time{now, now.Add(-time.Minute)} {
		if _, err := svc.Schedule(context.Background(), d.ID, at, "TS"); !errors.Is(err, entity.ErrScheduledTimeInPast) {
			t.Errorf("Schedule(%v) error = %v, want ErrScheduledTimeInPast", at, err)
		}
	}

	if _, err := svc.Schedule(context.Background(), d.ID, now.Add(time.Second), "TS"); err != nil {
		t.Errorf("Schedule one second ahead failed: %v", err)
	}
}

func TestScheduleRequiresGenerated(t *testing.T) {
	svc, _ := newTestService(t)
	d := mustCreate(t, svc)

	_, err := svc.Schedule(context.Background(), d.ID, time.Now().Add(time.Hour), "TS")
	if !errors.Is(err, entity.ErrNotSchedulable) {
		t.Errorf("Schedule error = %v, want ErrNotSchedulable", err)
	}
}

func TestRescheduleRequiresScheduled(t *testing.T) {
	svc, _ := newTestService(t)
	d := mustCreate(t, svc)
	mustGenerate(t, svc, d.ID)

	_, err := svc.Reschedule(context.Background(), d.ID, time.Now().Add(time.Hour))
	if !errors.Is(err, entity.ErrNotScheduled) {
		t.Errorf("Reschedule error = %v, want ErrNotScheduled", err)
	}
}

func TestCancelSchedule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustCreate(t, svc)
	mustGenerate(t, svc, d.ID)

	if _, err := svc.Schedule(ctx, d.ID, time.Now().Add(time.Hour), "TS"); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	got, err := svc.CancelSchedule(ctx, d.ID)
	if err != nil {
		t.Fatalf("CancelSchedule failed: %v", err)
	}
	if got.Status != entity.StatusGenerated {
		t.Errorf("status after cancel = %s, want generated", got.Status)
	}
	if got.ScheduledAt != nil {
		t.Error("scheduled_at not cleared")
	}

	// Cancelling again is a conflict, not a no-op.
	if _, err := svc.CancelSchedule(ctx, d.ID); !errors.Is(err, entity.ErrNotScheduled) {
		t.Errorf("second cancel error = %v, want ErrNotScheduled", err)
	}
}

func TestClaimForPublishing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustCreate(t, svc)
	mustGenerate(t, svc, d.ID)

	claimed, err := svc.ClaimForPublishing(ctx, d.ID)
	if err != nil || !claimed {
		t.Fatalf("first claim = (%v, %v), want (true, nil)", claimed, err)
	}

	// Second claim while publishing is a hard conflict.
	if _, err := svc.ClaimForPublishing(ctx, d.ID); !errors.Is(err, entity.ErrPublishInProgress) {
		t.Errorf("second claim error = %v, want ErrPublishInProgress", err)
	}
}

func TestClaimRequiresBody(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustCreate(t, svc)
	if _, err := svc.ConfirmSummary(ctx, d.ID, nil, nil); err != nil {
		t.Fatalf("ConfirmSummary failed: %v", err)
	}
	if err := svc.SaveGeneratedContent(ctx, d.ID, dao.GeneratedContent{Body: ""}); err != nil {
		t.Fatalf("SaveGeneratedContent failed: %v", err)
	}

	if _, err := svc.ClaimForPublishing(ctx, d.ID); !errors.Is(err, entity.ErrEmptyBody) {
		t.Errorf("claim error = %v, want ErrEmptyBody", err)
	}
}

func TestCompletePublishOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustCreate(t, svc)
	mustGenerate(t, svc, d.ID)

	if _, err := svc.ClaimForPublishing(ctx, d.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := svc.CompletePublish(ctx, d.ID, "777", "TS"); err != nil {
		t.Fatalf("CompletePublish failed: %v", err)
	}

	got, _ := svc.GetDraft(ctx, d.ID)
	if got.Status != entity.StatusPublished || !got.IsPublished {
		t.Errorf("draft not published: status=%s is_published=%v", got.Status, got.IsPublished)
	}
	if got.ExternalID != "777" {
		t.Errorf("external id = %q, want 777", got.ExternalID)
	}

	if err := svc.CompletePublish(ctx, d.ID, "888", "TS"); !errors.Is(err, entity.ErrAlreadyPublished) {
		t.Errorf("second complete error = %v, want ErrAlreadyPublished", err)
	}
	got, _ = svc.GetDraft(ctx, d.ID)
	if got.ExternalID != "777" {
		t.Errorf("external id overwritten to %q", got.ExternalID)
	}
}

func TestReleaseClaimRestoresStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Claimed from generated releases back to generated.
	d1 := mustCreate(t, svc)
	mustGenerate(t, svc, d1.ID)
	if _, err := svc.ClaimForPublishing(ctx, d1.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := svc.ReleaseClaim(ctx, d1.ID); err != nil {
		t.Fatalf("ReleaseClaim failed: %v", err)
	}
	got, _ := svc.GetDraft(ctx, d1.ID)
	if got.Status != entity.StatusGenerated {
		t.Errorf("released status = %s, want generated", got.Status)
	}

	// Claimed from scheduled releases back to scheduled.
	d2 := mustCreate(t, svc)
	mustGenerate(t, svc, d2.ID)
	if _, err := svc.Schedule(ctx, d2.ID, time.Now().Add(time.Hour), "TS"); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if _, err := svc.ClaimForPublishing(ctx, d2.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := svc.ReleaseClaim(ctx, d2.ID); err != nil {
		t.Fatalf("ReleaseClaim failed: %v", err)
	}
	got, _ = svc.GetDraft(ctx, d2.ID)
	if got.Status != entity.StatusScheduled {
		t.Errorf("released status = %s, want scheduled", got.Status)
	}
}

func TestMarkErrorKeepsStatusWhenRetryable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustCreate(t, svc)

	if err := svc.MarkError(ctx, d.ID, "model timed out", entity.StepSummary, true); err != nil {
		t.Fatalf("MarkError failed: %v", err)
	}

	got, _ := svc.GetDraft(ctx, d.ID)
	if got.Status != entity.StatusSummaryPending {
		t.Errorf("retryable error changed status to %s", got.Status)
	}
	if got.LastErrorMessage != "model timed out" || got.LastErrorStep != entity.StepSummary {
		t.Errorf("ledger not written: %+v", got)
	}
	if got.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", got.RetryCount)
	}
}

func TestMarkErrorParksNonRetryable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustCreate(t, svc)

	if err := svc.MarkError(ctx, d.ID, "account banned", entity.StepPublication, false); err != nil {
		t.Fatalf("MarkError failed: %v", err)
	}

	got, _ := svc.GetDraft(ctx, d.ID)
	if got.Status != entity.StatusError {
		t.Errorf("non-retryable error status = %s, want error", got.Status)
	}
}

func TestMarkErrorRejectsUnknownStep(t *testing.T) {
	svc, _ := newTestService(t)
	d := mustCreate(t, svc)

	err := svc.MarkError(context.Background(), d.ID, "oops", "upload", true)
	if !errors.Is(err, entity.ErrInvalidStep) {
		t.Errorf("MarkError error = %v, want ErrInvalidStep", err)
	}
}

func TestClearErrorLeavesStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustCreate(t, svc)

	if err := svc.MarkError(ctx, d.ID, "transient", entity.StepSummary, true); err != nil {
		t.Fatalf("MarkError failed: %v", err)
	}
	if err := svc.ClearError(ctx, d.ID); err != nil {
		t.Fatalf("ClearError failed: %v", err)
	}

	got, _ := svc.GetDraft(ctx, d.ID)
	if got.LastErrorMessage != "" || got.LastErrorStep != "" || got.LastErrorAt != nil {
		t.Errorf("ledger not cleared: %+v", got)
	}
	if got.Status != entity.StatusSummaryPending {
		t.Errorf("ClearError changed status to %s", got.Status)
	}
	// The counter survives: clearing the message does not grant extra attempts.
	if got.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", got.RetryCount)
	}
}

func TestSaveGeneratedContentKeepsScheduledStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := mustCreate(t, svc)
	mustGenerate(t, svc, d.ID)

	if _, err := svc.Schedule(ctx, d.ID, time.Now().Add(time.Hour), "TS"); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if err := svc.SaveGeneratedContent(ctx, d.ID, dao.GeneratedContent{Body: "edited"}); err != nil {
		t.Fatalf("SaveGeneratedContent failed: %v", err)
	}

	got, _ := svc.GetDraft(ctx, d.ID)
	if got.Status != entity.StatusScheduled {
		t.Errorf("edit regressed status to %s", got.Status)
	}
	if got.Body != "edited" {
		t.Errorf("body = %q, want edited", got.Body)
	}
}

func TestGetDueScheduled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now.Add(-2 * time.Hour) }

	due := mustCreate(t, svc)
	mustGenerate(t, svc, due.ID)
	if _, err := svc.Schedule(ctx, due.ID, now.Add(-time.Hour), "TS"); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	notDue := mustCreate(t, svc)
	mustGenerate(t, svc, notDue.ID)
	if _, err := svc.Schedule(ctx, notDue.ID, now.Add(24*time.Hour), "TS"); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	svc.now = func() time.Time { return now }
	got, err := svc.GetDueScheduled(ctx)
	if err != nil {
		t.Fatalf("GetDueScheduled failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Errorf("due drafts = %+v, want only draft %d", got, due.ID)
	}
}
