package policy

import (
	"context"
	"log/slog"
	"time"

	articleentity "github.com/vadim/medipost/internal/domain/article/entity"
	"github.com/vadim/medipost/internal/domain/draft/dao"
	"github.com/vadim/medipost/internal/domain/draft/entity"
	"github.com/vadim/medipost/internal/domain/draft/service"
	projectentity "github.com/vadim/medipost/internal/domain/project/entity"
)

// Generator defines the interface for the text/image generation provider.
// Defined here (consumer) not in the upstream package (provider).
type Generator interface {
	Summarize(ctx context.Context, in SummarizeRequest) (*SummaryResult, error)
	GenerateArticle(ctx context.Context, in GenerateRequest) (*GenerateResult, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	Provider() string
	Model() string
	ImageModel() string
}

// SummarizeRequest represents input for the summarize call
type SummarizeRequest struct {
	Title   string
	Content string
	Project string
}

// SummaryResult represents the summarize call's output
type SummaryResult struct {
	Summary    string
	Facts      []string
	TokensUsed int
}

// GenerateRequest represents input for the generate-article call
type GenerateRequest struct {
	Summary string
	Facts   []string
	Project string
	Style   string
}

// GenerateResult represents the generate-article call's output
type GenerateResult struct {
	Body           string
	SEOTitle       string
	SEODescription string
	SEOKeywords    []string
	ImagePrompt    string
	ChannelPost    string
	TokensUsed     int
}

// ImageHost re-hosts a provider-temporary image URL on durable storage
type ImageHost interface {
	Rehost(ctx context.Context, sourceURL string) (string, error)
}

// ArticleProvider looks up scraped source articles
type ArticleProvider interface {
	GetArticle(ctx context.Context, id int64) (*articleentity.Article, error)
}

// ProjectProvider resolves project codes to publishing destinations
type ProjectProvider interface {
	GetByCode(ctx context.Context, code string) (*projectentity.Project, error)
}

// ExpenseRecorder appends cost and publication audit rows. All calls are
// best-effort from the pipeline's point of view.
type ExpenseRecorder interface {
	RecordExpense(ctx context.Context, draftID int64, userID *int64, operation string, cost float64) error
	RecordPublication(ctx context.Context, draftID int64, userID *int64, projectCode, externalID, url string) error
}

// Costs holds the pricing used for expense entries
type Costs struct {
	TextPer1KTokens float64
	ImagePerCall    float64
}

// Policy orchestrates the draft pipeline: each step validates its
// preconditions, calls the external collaborator, persists the result
// through the lifecycle service and appends a generation log row.
type Policy struct {
	svc       *service.Service
	generator Generator
	gateway   PublicationGateway
	notifier  ChannelNotifier
	images    ImageHost
	articles  ArticleProvider
	projects  ProjectProvider
	expenses  ExpenseRecorder
	logger    *slog.Logger

	costs            Costs
	placeholderImage string

	// async runs best-effort side effects off the critical path;
	// overridden in tests to run inline
	async func(fn func())
}

// New creates a new draft policy
func New(
	svc *service.Service,
	generator Generator,
	gateway PublicationGateway,
	notifier ChannelNotifier,
	images ImageHost,
	articles ArticleProvider,
	projects ProjectProvider,
	expenses ExpenseRecorder,
	costs Costs,
	placeholderImage string,
	logger *slog.Logger,
) *Policy {
	return &Policy{
		svc:              svc,
		generator:        generator,
		gateway:          gateway,
		notifier:         notifier,
		images:           images,
		articles:         articles,
		projects:         projects,
		expenses:         expenses,
		costs:            costs,
		placeholderImage: placeholderImage,
		logger:           logger,
		async:            func(fn func()) { go fn() },
	}
}

// CreateSummaryInput represents input for the summarize step
type CreateSummaryInput struct {
	ArticleID int64
	Project   string
	CreatedBy *int64
}

// CreateSummary runs the summarize step. It always creates a fresh draft;
// an existing draft is never reused. A failed summarize leaves the new
// draft behind with the error ledger filled so it can be retried.
func (p *Policy) CreateSummary(ctx context.Context, in CreateSummaryInput) (*entity.Draft, error) {
	code, err := projectentity.NormalizeCode(in.Project)
	if err != nil {
		return nil, err
	}
	if _, err := p.projects.GetByCode(ctx, code); err != nil {
		return nil, err
	}

	article, err := p.articles.GetArticle(ctx, in.ArticleID)
	if err != nil {
		return nil, err
	}

	d, err := p.svc.CreateDraft(ctx, service.CreateInput{
		ArticleID: article.ID,
		Project:   code,
		CreatedBy: in.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := p.summarizeInto(ctx, d, article); err != nil {
		return nil, err
	}

	return p.svc.GetDraft(ctx, d.ID)
}

// summarizeInto runs the generation call for an existing draft and persists
// the result; shared by CreateSummary and the retry path
func (p *Policy) summarizeInto(ctx context.Context, d *entity.Draft, article *articleentity.Article) error {
	started := time.Now()
	out, err := p.generator.Summarize(ctx, SummarizeRequest{
		Title:   article.Title,
		Content: article.Content,
		Project: d.Project,
	})
	if err != nil {
		return p.failStep(ctx, d.ID, entity.StepSummary, entity.OperationSummarize, p.generator.Model(), started, 0, err)
	}

	if err := p.svc.SetSummary(ctx, d.ID, out.Summary, out.Facts); err != nil {
		return p.failStep(ctx, d.ID, entity.StepSummary, entity.OperationSummarize, p.generator.Model(), started, out.TokensUsed, err)
	}

	p.logGeneration(ctx, d.ID, entity.OperationSummarize, p.generator.Model(), true, out.TokensUsed, started, "")
	p.recordTextExpense(ctx, d.ID, d.CreatedBy, string(entity.OperationSummarize), out.TokensUsed)

	return nil
}

// ConfirmSummary confirms the draft's summary, optionally editing it
func (p *Policy) ConfirmSummary(ctx context.Context, id int64, summary *string, facts []string) (*entity.Draft, error) {
	return p.svc.ConfirmSummary(ctx, id, summary, facts)
}

// Generate runs the generate-full-article step. Requires a confirmed
// summary. The image sub-call is best-effort: its failure substitutes the
// placeholder image and never fails the step.
func (p *Policy) Generate(ctx context.Context, id int64) (*entity.Draft, error) {
	d, err := p.svc.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != entity.StatusSummaryConfirmed {
		return nil, entity.ErrNotConfirmed
	}

	proj, err := p.projects.GetByCode(ctx, d.Project)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	out, err := p.generator.GenerateArticle(ctx, GenerateRequest{
		Summary: d.Summary,
		Facts:   d.Facts,
		Project: d.Project,
		Style:   proj.Style,
	})
	if err != nil {
		return nil, p.failStep(ctx, id, entity.StepGeneration, entity.OperationGenerate, p.generator.Model(), started, 0, err)
	}

	imageURL := p.produceImage(ctx, id, out.ImagePrompt)

	content := dao.GeneratedContent{
		Body:           out.Body,
		SEOTitle:       out.SEOTitle,
		SEODescription: out.SEODescription,
		SEOKeywords:    out.SEOKeywords,
		ImagePrompt:    out.ImagePrompt,
		ImageURL:       imageURL,
		ChannelPost:    out.ChannelPost,
	}
	if err := p.svc.SaveGeneratedContent(ctx, id, content); err != nil {
		return nil, p.failStep(ctx, id, entity.StepGeneration, entity.OperationGenerate, p.generator.Model(), started, out.TokensUsed, err)
	}

	p.logGeneration(ctx, id, entity.OperationGenerate, p.generator.Model(), true, out.TokensUsed, started, "")
	p.recordTextExpense(ctx, id, d.CreatedBy, string(entity.OperationGenerate), out.TokensUsed)

	return p.svc.GetDraft(ctx, id)
}

// RegenerateImage replaces the draft's illustration. Works in any status;
// on provider failure the placeholder image is substituted instead of
// surfacing an error.
func (p *Policy) RegenerateImage(ctx context.Context, id int64, prompt string) (*entity.Draft, error) {
	d, err := p.svc.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	if prompt == "" {
		prompt = d.ImagePrompt
	}
	if prompt == "" {
		prompt = d.Summary
	}

	url := p.produceImage(ctx, id, prompt)
	if err := p.svc.SetImage(ctx, id, prompt, url); err != nil {
		return nil, err
	}

	return p.svc.GetDraft(ctx, id)
}

// produceImage generates and re-hosts an illustration, falling back to the
// placeholder URL on any failure. Attempts are audited either way.
func (p *Policy) produceImage(ctx context.Context, draftID int64, prompt string) string {
	if prompt == "" {
		return p.placeholderImage
	}

	started := time.Now()
	providerURL, err := p.generator.GenerateImage(ctx, prompt)
	if err != nil {
		p.logger.Warn("image generation failed, using placeholder", "draft_id", draftID, "error", err)
		p.logGeneration(ctx, draftID, entity.OperationGenerateImage, p.generator.ImageModel(), false, 0, started, err.Error())
		return p.placeholderImage
	}

	hosted, err := p.images.Rehost(ctx, providerURL)
	if err != nil {
		p.logger.Warn("image re-hosting failed, using provider URL", "draft_id", draftID, "error", err)
		hosted = providerURL
	}

	p.logGeneration(ctx, draftID, entity.OperationGenerateImage, p.generator.ImageModel(), true, 0, started, "")
	p.recordImageExpense(ctx, draftID)

	return hosted
}

// UpdateContent replaces the draft's generated content (manual edit).
// Last write wins; scheduled and published drafts keep their status.
func (p *Policy) UpdateContent(ctx context.Context, id int64, content dao.GeneratedContent) (*entity.Draft, error) {
	if _, err := p.svc.GetDraft(ctx, id); err != nil {
		return nil, err
	}
	if err := p.svc.SaveGeneratedContent(ctx, id, content); err != nil {
		return nil, err
	}
	return p.svc.GetDraft(ctx, id)
}

// Schedule defers publishing of a generated draft
func (p *Policy) Schedule(ctx context.Context, id int64, at time.Time, projectCode string) (*entity.Draft, error) {
	code, err := projectentity.NormalizeCode(projectCode)
	if err != nil {
		return nil, err
	}
	if _, err := p.projects.GetByCode(ctx, code); err != nil {
		return nil, err
	}

	return p.svc.Schedule(ctx, id, at, code)
}

// Reschedule moves a scheduled draft to a new future time
func (p *Policy) Reschedule(ctx context.Context, id int64, at time.Time) (*entity.Draft, error) {
	return p.svc.Reschedule(ctx, id, at)
}

// CancelSchedule returns a scheduled draft to generated
func (p *Policy) CancelSchedule(ctx context.Context, id int64) (*entity.Draft, error) {
	return p.svc.CancelSchedule(ctx, id)
}

// GetDraft retrieves a draft by ID
func (p *Policy) GetDraft(ctx context.Context, id int64) (*entity.Draft, error) {
	return p.svc.GetDraft(ctx, id)
}

// ListDrafts retrieves drafts with filtering
func (p *Policy) ListDrafts(ctx context.Context, in service.ListInput) (*service.ListOutput, error) {
	return p.svc.ListDrafts(ctx, in)
}

// MarkError records a failure on a draft's error ledger
func (p *Policy) MarkError(ctx context.Context, id int64, msg string, step entity.PipelineStep, canRetry bool) error {
	return p.svc.MarkError(ctx, id, msg, step, canRetry)
}

// ClearError resets a draft's error ledger
func (p *Policy) ClearError(ctx context.Context, id int64) error {
	return p.svc.ClearError(ctx, id)
}

// ListFailed retrieves drafts with a recorded failure
func (p *Policy) ListFailed(ctx context.Context, recoverableOnly bool, createdBy *int64) ([]entity.Draft, error) {
	return p.svc.ListFailed(ctx, recoverableOnly, createdBy)
}

// GenerationHistory retrieves the generation audit trail for a draft
func (p *Policy) GenerationHistory(ctx context.Context, id int64) ([]entity.GenerationLog, error) {
	return p.svc.GenerationHistory(ctx, id)
}

// failStep converts a step failure into an error-ledger write plus a failed
// generation log row, then wraps it so the caller can tell the user the
// draft is preserved. The ledger is written before the error is surfaced.
func (p *Policy) failStep(ctx context.Context, draftID int64, step entity.PipelineStep, op entity.GenerationOperation, model string, started time.Time, tokens int, cause error) error {
	if err := p.svc.MarkError(ctx, draftID, cause.Error(), step, true); err != nil {
		p.logger.Error("failed to record step error", "draft_id", draftID, "step", step, "error", err)
	}
	p.logGeneration(ctx, draftID, op, model, false, tokens, started, cause.Error())

	return &entity.StepError{DraftID: draftID, Step: step, Err: cause}
}

func (p *Policy) logGeneration(ctx context.Context, draftID int64, op entity.GenerationOperation, model string, success bool, tokens int, started time.Time, errText string) {
	log := entity.GenerationLog{
		DraftID:    draftID,
		Operation:  op,
		Provider:   p.generator.Provider(),
		Model:      model,
		Success:    success,
		TokensUsed: tokens,
		DurationMS: time.Since(started).Milliseconds(),
		Error:      errText,
	}
	if err := p.svc.LogGeneration(ctx, log); err != nil {
		p.logger.Warn("failed to append generation log", "draft_id", draftID, "operation", op, "error", err)
	}
}

// recordTextExpense appends a cost entry for a text generation call.
// Best-effort: a failure is logged and never fails the step.
func (p *Policy) recordTextExpense(ctx context.Context, draftID int64, userID *int64, operation string, tokens int) {
	cost := float64(tokens) / 1000 * p.costs.TextPer1KTokens
	p.async(func() {
		if err := p.expenses.RecordExpense(context.WithoutCancel(ctx), draftID, userID, operation, cost); err != nil {
			p.logger.Warn("failed to record expense", "draft_id", draftID, "operation", operation, "error", err)
		}
	})
}

func (p *Policy) recordImageExpense(ctx context.Context, draftID int64) {
	p.async(func() {
		if err := p.expenses.RecordExpense(context.WithoutCancel(ctx), draftID, nil, string(entity.OperationGenerateImage), p.costs.ImagePerCall); err != nil {
			p.logger.Warn("failed to record image expense", "draft_id", draftID, "error", err)
		}
	})
}
