package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	articleentity "github.com/vadim/medipost/internal/domain/article/entity"
	"github.com/vadim/medipost/internal/domain/draft/dao"
	"github.com/vadim/medipost/internal/domain/draft/entity"
	"github.com/vadim/medipost/internal/domain/draft/policy"
	"github.com/vadim/medipost/internal/domain/draft/service"
	projectentity "github.com/vadim/medipost/internal/domain/project/entity"
)

// fakePolicy implements DraftPolicy through overridable function fields
type fakePolicy struct {
	getDraft func(ctx context.Context, id int64) (*entity.Draft, error)
	schedule func(ctx context.Context, id int64, at time.Time, projectCode string) (*entity.Draft, error)
	publish  func(ctx context.Context, id int64, projectCode string) (*policy.PublishResult, error)
	retry    func(ctx context.Context, id int64) (*policy.RetryResult, error)
}

func (f *fakePolicy) CreateSummary(_ context.Context, _ policy.CreateSummaryInput) (*entity.Draft, error) {
	return &entity.Draft{ID: 1, Status: entity.StatusSummaryPending}, nil
}

func (f *fakePolicy) ConfirmSummary(_ context.Context, id int64, _ *string, _ []string) (*entity.Draft, error) {
	return &entity.Draft{ID: id, Status: entity.StatusSummaryConfirmed}, nil
}

func (f *fakePolicy) Generate(_ context.Context, id int64) (*entity.Draft, error) {
	return &entity.Draft{ID: id, Status: entity.StatusGenerated}, nil
}

func (f *fakePolicy) RegenerateImage(_ context.Context, id int64, _ string) (*entity.Draft, error) {
	return &entity.Draft{ID: id}, nil
}

func (f *fakePolicy) UpdateContent(_ context.Context, id int64, _ dao.GeneratedContent) (*entity.Draft, error) {
	return &entity.Draft{ID: id}, nil
}

func (f *fakePolicy) Schedule(ctx context.Context, id int64, at time.Time, projectCode string) (*entity.Draft, error) {
	if f.schedule != nil {
		return f.schedule(ctx, id, at, projectCode)
	}
	return &entity.Draft{ID: id, Status: entity.StatusScheduled}, nil
}

func (f *fakePolicy) Reschedule(_ context.Context, id int64, _ time.Time) (*entity.Draft, error) {
	return &entity.Draft{ID: id, Status: entity.StatusScheduled}, nil
}

func (f *fakePolicy) CancelSchedule(_ context.Context, id int64) (*entity.Draft, error) {
	return &entity.Draft{ID: id, Status: entity.StatusGenerated}, nil
}

func (f *fakePolicy) PublishNow(ctx context.Context, id int64, projectCode string) (*policy.PublishResult, error) {
	if f.publish != nil {
		return f.publish(ctx, id, projectCode)
	}
	return &policy.PublishResult{Draft: &entity.Draft{ID: id, Status: entity.StatusPublished}}, nil
}

func (f *fakePolicy) Retry(ctx context.Context, id int64) (*policy.RetryResult, error) {
	if f.retry != nil {
		return f.retry(ctx, id)
	}
	return &policy.RetryResult{Step: entity.StepSummary, Draft: &entity.Draft{ID: id}}, nil
}

func (f *fakePolicy) MarkError(_ context.Context, _ int64, _ string, _ entity.PipelineStep, _ bool) error {
	return nil
}

func (f *fakePolicy) ClearError(_ context.Context, _ int64) error { return nil }

func (f *fakePolicy) ListFailed(_ context.Context, _ bool, _ *int64) ([]entity.Draft, error) {
	return nil, nil
}

func (f *fakePolicy) GetDraft(ctx context.Context, id int64) (*entity.Draft, error) {
	if f.getDraft != nil {
		return f.getDraft(ctx, id)
	}
	return &entity.Draft{ID: id}, nil
}

func (f *fakePolicy) ListDrafts(_ context.Context, _ service.ListInput) (*service.ListOutput, error) {
	return &service.ListOutput{}, nil
}

func (f *fakePolicy) GenerationHistory(_ context.Context, _ int64) ([]entity.GenerationLog, error) {
	return nil, nil
}

func newTestRouter(p DraftPolicy) *chi.Mux {
	r := chi.NewRouter()
	NewDraftHandler(p).RegisterRoutes(r)
	return r
}

func TestHandleDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"draft not found", entity.ErrDraftNotFound, http.StatusNotFound},
		{"article not found", articleentity.ErrArticleNotFound, http.StatusNotFound},
		{"unknown project", projectentity.ErrUnknownProject, http.StatusNotFound},
		{"already published", entity.ErrAlreadyPublished, http.StatusConflict},
		{"publish in progress", entity.ErrPublishInProgress, http.StatusConflict},
		{"not schedulable", entity.ErrNotSchedulable, http.StatusConflict},
		{"not scheduled", entity.ErrNotScheduled, http.StatusConflict},
		{"not confirmed", entity.ErrNotConfirmed, http.StatusConflict},
		{"retry not allowed", entity.ErrRetryNotAllowed, http.StatusConflict},
		{"nothing to retry", entity.ErrNothingToRetry, http.StatusConflict},
		{"time in past", entity.ErrScheduledTimeInPast, http.StatusBadRequest},
		{"empty body", entity.ErrEmptyBody, http.StatusBadRequest},
		{"invalid project code", projectentity.ErrInvalidProjectCode, http.StatusBadRequest},
		{"unconfigured project", projectentity.ErrProjectNotConfigured, http.StatusUnprocessableEntity},
		{"step failure", &entity.StepError{DraftID: 1, Step: entity.StepPublication, Err: errors.New("cms down")}, http.StatusBadGateway},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handleDomainError(w, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestGetDraftRoute(t *testing.T) {
	fake := &fakePolicy{
		getDraft: func(_ context.Context, id int64) (*entity.Draft, error) {
			if id == 404 {
				return nil, entity.ErrDraftNotFound
			}
			return &entity.Draft{ID: id, Project: "TS", Status: entity.StatusGenerated}, nil
		},
	}
	router := newTestRouter(fake)

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/drafts/7", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var d entity.Draft
		json.NewDecoder(w.Body).Decode(&d)
		if d.ID != 7 {
			t.Errorf("id = %d, want 7", d.ID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/drafts/404", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/drafts/abc", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestCreateSummaryValidation(t *testing.T) {
	router := newTestRouter(&fakePolicy{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"article_id": 1, "project": "TS"}`, http.StatusCreated},
		{"missing article", `{"project": "TS"}`, http.StatusBadRequest},
		{"missing project", `{"article_id": 1}`, http.StatusBadRequest},
		{"broken json", `{"article_id": `, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/drafts", strings.NewReader(tt.body))
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestScheduleParsesRFC3339(t *testing.T) {
	var gotAt time.Time
	fake := &fakePolicy{
		schedule: func(_ context.Context, id int64, at time.Time, _ string) (*entity.Draft, error) {
			gotAt = at
			return &entity.Draft{ID: id, Status: entity.StatusScheduled}, nil
		},
	}
	router := newTestRouter(fake)

	body := `{"scheduled_at": "2026-09-01T10:00:00Z", "project": "TS"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/drafts/1/schedule", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	want := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	if !gotAt.Equal(want) {
		t.Errorf("parsed time = %v, want %v", gotAt, want)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/drafts/1/schedule", strings.NewReader(`{"scheduled_at": "tomorrow"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status for bad timestamp = %d, want 400", w.Code)
	}
}

func TestMarkErrorRejectsUnknownStep(t *testing.T) {
	router := newTestRouter(&fakePolicy{})

	body := `{"message": "failed", "step": "upload", "can_retry": true}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/drafts/1/error", strings.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
