package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	articleentity "github.com/vadim/medipost/internal/domain/article/entity"
	"github.com/vadim/medipost/internal/domain/draft/dao"
	"github.com/vadim/medipost/internal/domain/draft/entity"
	"github.com/vadim/medipost/internal/domain/draft/policy"
	"github.com/vadim/medipost/internal/domain/draft/service"
	projectentity "github.com/vadim/medipost/internal/domain/project/entity"
	"github.com/vadim/medipost/internal/httpx/response"
)

// DraftPolicy defines the interface for draft pipeline operations
// Interface is defined by consumer (handler), not provider (policy)
type DraftPolicy interface {
	CreateSummary(ctx context.Context, in policy.CreateSummaryInput) (*entity.Draft, error)
	ConfirmSummary(ctx context.Context, id int64, summary *string, facts []string) (*entity.Draft, error)
	Generate(ctx context.Context, id int64) (*entity.Draft, error)
	RegenerateImage(ctx context.Context, id int64, prompt string) (*entity.Draft, error)
	UpdateContent(ctx context.Context, id int64, content dao.GeneratedContent) (*entity.Draft, error)
	Schedule(ctx context.Context, id int64, at time.Time, projectCode string) (*entity.Draft, error)
	Reschedule(ctx context.Context, id int64, at time.Time) (*entity.Draft, error)
	CancelSchedule(ctx context.Context, id int64) (*entity.Draft, error)
	PublishNow(ctx context.Context, id int64, projectCode string) (*policy.PublishResult, error)
	Retry(ctx context.Context, id int64) (*policy.RetryResult, error)
	MarkError(ctx context.Context, id int64, msg string, step entity.PipelineStep, canRetry bool) error
	ClearError(ctx context.Context, id int64) error
	ListFailed(ctx context.Context, recoverableOnly bool, createdBy *int64) ([]entity.Draft, error)
	GetDraft(ctx context.Context, id int64) (*entity.Draft, error)
	ListDrafts(ctx context.Context, in service.ListInput) (*service.ListOutput, error)
	GenerationHistory(ctx context.Context, id int64) ([]entity.GenerationLog, error)
}

// DraftHandler handles HTTP requests for drafts
type DraftHandler struct {
	policy DraftPolicy
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(p DraftPolicy) *DraftHandler {
	return &DraftHandler{policy: p}
}

// RegisterRoutes registers draft routes
func (h *DraftHandler) RegisterRoutes(r chi.Router) {
	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", h.CreateSummary())
		r.Get("/", h.List())
		r.Get("/failed", h.ListFailed())
		r.Get("/{id}", h.Get())
		r.Put("/{id}/content", h.UpdateContent())
		r.Post("/{id}/confirm", h.Confirm())
		r.Post("/{id}/generate", h.Generate())
		r.Post("/{id}/image", h.RegenerateImage())
		r.Post("/{id}/schedule", h.Schedule())
		r.Post("/{id}/reschedule", h.Reschedule())
		r.Post("/{id}/cancel-schedule", h.CancelSchedule())
		r.Post("/{id}/publish", h.PublishNow())
		r.Post("/{id}/retry", h.Retry())
		r.Post("/{id}/error", h.MarkError())
		r.Delete("/{id}/error", h.ClearError())
		r.Get("/{id}/generations", h.Generations())
	})
}

// CreateSummaryRequest represents the request body for the summarize step
type CreateSummaryRequest struct {
	ArticleID int64  `json:"article_id"`
	Project   string `json:"project"`
	CreatedBy *int64 `json:"created_by,omitempty"`
}

// CreateSummary handles POST /drafts
func (h *DraftHandler) CreateSummary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSummaryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}
		if req.ArticleID == 0 {
			response.BadRequest(w, "article_id is required")
			return
		}
		if req.Project == "" {
			response.BadRequest(w, "project is required")
			return
		}

		d, err := h.policy.CreateSummary(r.Context(), policy.CreateSummaryInput{
			ArticleID: req.ArticleID,
			Project:   req.Project,
			CreatedBy: req.CreatedBy,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.Created(w, d)
	}
}

// List handles GET /drafts
func (h *DraftHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		in := service.ListInput{Project: q.Get("project")}

		if s := q.Get("status"); s != "" {
			status := entity.DraftStatus(s)
			if !entity.ValidStatus(status) {
				response.BadRequest(w, "invalid status filter")
				return
			}
			in.Status = &status
		}
		if v := q.Get("created_by"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				response.BadRequest(w, "invalid created_by")
				return
			}
			in.CreatedBy = &id
		}
		in.Limit, _ = strconv.Atoi(q.Get("limit"))
		in.Offset, _ = strconv.Atoi(q.Get("offset"))

		out, err := h.policy.ListDrafts(r.Context(), in)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, map[string]interface{}{
			"drafts": out.Drafts,
			"total":  out.Total,
		})
	}
}

// ListFailed handles GET /drafts/failed
func (h *DraftHandler) ListFailed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		recoverableOnly := q.Get("recoverable") == "true"

		var createdBy *int64
		if v := q.Get("created_by"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				response.BadRequest(w, "invalid created_by")
				return
			}
			createdBy = &id
		}

		drafts, err := h.policy.ListFailed(r.Context(), recoverableOnly, createdBy)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, map[string]interface{}{"drafts": drafts})
	}
}

// Get handles GET /drafts/{id}
func (h *DraftHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		d, err := h.policy.GetDraft(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// ConfirmRequest represents the request body for confirming a summary
type ConfirmRequest struct {
	Summary *string  `json:"summary,omitempty"`
	Facts   []string `json:"facts,omitempty"`
}

// Confirm handles POST /drafts/{id}/confirm
func (h *DraftHandler) Confirm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		var req ConfirmRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.BadRequest(w, "invalid JSON")
				return
			}
		}

		d, err := h.policy.ConfirmSummary(r.Context(), id, req.Summary, req.Facts)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// Generate handles POST /drafts/{id}/generate
func (h *DraftHandler) Generate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		d, err := h.policy.Generate(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// RegenerateImageRequest represents the request body for image regeneration
type RegenerateImageRequest struct {
	Prompt string `json:"prompt,omitempty"`
}

// RegenerateImage handles POST /drafts/{id}/image
func (h *DraftHandler) RegenerateImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		var req RegenerateImageRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.BadRequest(w, "invalid JSON")
				return
			}
		}

		d, err := h.policy.RegenerateImage(r.Context(), id, req.Prompt)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// UpdateContentRequest represents the request body for manual content edits
type UpdateContentRequest struct {
	Body           string   `json:"body"`
	SEOTitle       string   `json:"seo_title"`
	SEODescription string   `json:"seo_description"`
	SEOKeywords    []string `json:"seo_keywords"`
	ImagePrompt    string   `json:"image_prompt"`
	ImageURL       string   `json:"image_url"`
	ChannelPost    string   `json:"channel_post"`
}

// UpdateContent handles PUT /drafts/{id}/content
func (h *DraftHandler) UpdateContent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		var req UpdateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		d, err := h.policy.UpdateContent(r.Context(), id, dao.GeneratedContent{
			Body:           req.Body,
			SEOTitle:       req.SEOTitle,
			SEODescription: req.SEODescription,
			SEOKeywords:    req.SEOKeywords,
			ImagePrompt:    req.ImagePrompt,
			ImageURL:       req.ImageURL,
			ChannelPost:    req.ChannelPost,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// ScheduleRequest represents the request body for scheduling
type ScheduleRequest struct {
	ScheduledAt string `json:"scheduled_at"` // RFC3339
	Project     string `json:"project"`
}

// Schedule handles POST /drafts/{id}/schedule
func (h *DraftHandler) Schedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		var req ScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		at, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			response.BadRequest(w, "invalid scheduled_at format, use RFC3339")
			return
		}

		d, err := h.policy.Schedule(r.Context(), id, at, req.Project)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// RescheduleRequest represents the request body for rescheduling
type RescheduleRequest struct {
	ScheduledAt string `json:"scheduled_at"` // RFC3339
}

// Reschedule handles POST /drafts/{id}/reschedule
func (h *DraftHandler) Reschedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		at, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			response.BadRequest(w, "invalid scheduled_at format, use RFC3339")
			return
		}

		d, err := h.policy.Reschedule(r.Context(), id, at)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// CancelSchedule handles POST /drafts/{id}/cancel-schedule
func (h *DraftHandler) CancelSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		d, err := h.policy.CancelSchedule(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, d)
	}
}

// PublishRequest represents the request body for immediate publishing
type PublishRequest struct {
	Project string `json:"project"`
}

// PublishNow handles POST /drafts/{id}/publish
func (h *DraftHandler) PublishNow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		var req PublishRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		out, err := h.policy.PublishNow(r.Context(), id, req.Project)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, map[string]interface{}{
			"draft":        out.Draft,
			"external_id":  out.ExternalID,
			"url":          out.URL,
			"project_name": out.ProjectName,
		})
	}
}

// Retry handles POST /drafts/{id}/retry
func (h *DraftHandler) Retry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		out, err := h.policy.Retry(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, out)
	}
}

// MarkErrorRequest represents the request body for manual error marking
type MarkErrorRequest struct {
	Message  string `json:"message"`
	Step     string `json:"step"`
	CanRetry bool   `json:"can_retry"`
}

// MarkError handles POST /drafts/{id}/error
func (h *DraftHandler) MarkError() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		var req MarkErrorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		step := entity.PipelineStep(req.Step)
		if !entity.ValidStep(step) {
			response.BadRequest(w, "invalid step")
			return
		}

		if err := h.policy.MarkError(r.Context(), id, req.Message, step, req.CanRetry); err != nil {
			handleDomainError(w, err)
			return
		}

		response.NoContent(w)
	}
}

// ClearError handles DELETE /drafts/{id}/error
func (h *DraftHandler) ClearError() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		if err := h.policy.ClearError(r.Context(), id); err != nil {
			handleDomainError(w, err)
			return
		}

		response.NoContent(w)
	}
}

// Generations handles GET /drafts/{id}/generations
func (h *DraftHandler) Generations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		logs, err := h.policy.GenerationHistory(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, map[string]interface{}{"generations": logs})
	}
}

func draftID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid draft id")
		return 0, false
	}
	return id, true
}

func handleDomainError(w http.ResponseWriter, err error) {
	var stepErr *entity.StepError
	if errors.As(err, &stepErr) {
		// The pipeline already recorded the failure; tell the caller which
		// draft is preserved and which step to resume.
		response.BadGateway(w, stepErr.Error())
		return
	}

	switch {
	case errors.Is(err, entity.ErrDraftNotFound),
		errors.Is(err, articleentity.ErrArticleNotFound),
		errors.Is(err, projectentity.ErrUnknownProject):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrAlreadyPublished),
		errors.Is(err, entity.ErrPublishInProgress),
		errors.Is(err, entity.ErrNotSchedulable),
		errors.Is(err, entity.ErrNotScheduled),
		errors.Is(err, entity.ErrNotConfirmed),
		errors.Is(err, entity.ErrRetryNotAllowed),
		errors.Is(err, entity.ErrNothingToRetry):
		response.Conflict(w, err.Error())
	case errors.Is(err, entity.ErrScheduledTimeInPast),
		errors.Is(err, entity.ErrInvalidStatus),
		errors.Is(err, entity.ErrInvalidStep),
		errors.Is(err, entity.ErrEmptyBody),
		errors.Is(err, projectentity.ErrEmptyProjectCode),
		errors.Is(err, projectentity.ErrInvalidProjectCode):
		response.BadRequest(w, err.Error())
	case errors.Is(err, projectentity.ErrProjectNotConfigured):
		response.UnprocessableEntity(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
