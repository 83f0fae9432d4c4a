package policy

import (
	"context"

	"github.com/vadim/medipost/internal/domain/draft/entity"
)

// RetryResult describes what a retry did
type RetryResult struct {
	Step    entity.PipelineStep `json:"step"`
	Draft   *entity.Draft       `json:"draft"`
	Message string              `json:"message,omitempty"`
}

// Retry resumes the pipeline at the step recorded by the last failure.
// The retry cap is enforced here, atomically with the dispatch: callers
// that skip the can-retry check are rejected all the same. The ledger is
// cleared before the re-attempt; if the re-attempt fails, the ledger is
// rewritten and the retry counter climbs further.
func (p *Policy) Retry(ctx context.Context, id int64) (*RetryResult, error) {
	d, err := p.svc.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.LastErrorStep == "" {
		return nil, entity.ErrNothingToRetry
	}
	if !d.RetryAllowed() {
		return nil, entity.ErrRetryNotAllowed
	}

	step := d.LastErrorStep
	if err := p.svc.ClearError(ctx, id); err != nil {
		return nil, err
	}

	switch step {
	case entity.StepSummary:
		article, err := p.articles.GetArticle(ctx, d.ArticleID)
		if err != nil {
			return nil, err
		}
		if err := p.summarizeInto(ctx, d, article); err != nil {
			return nil, err
		}

	case entity.StepGeneration, entity.StepRetry:
		if _, err := p.Generate(ctx, id); err != nil {
			return nil, err
		}

	case entity.StepImageRegeneration:
		if _, err := p.RegenerateImage(ctx, id, ""); err != nil {
			return nil, err
		}

	case entity.StepPublication:
		// Publication is never auto-retried: the draft is reported as
		// ready and a human re-invokes publish explicitly.
		refreshed, err := p.svc.GetDraft(ctx, id)
		if err != nil {
			return nil, err
		}
		return &RetryResult{
			Step:    step,
			Draft:   refreshed,
			Message: "draft is ready to publish again; re-invoke publish explicitly",
		}, nil

	default:
		return nil, entity.ErrInvalidStep
	}

	refreshed, err := p.svc.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	return &RetryResult{Step: step, Draft: refreshed}, nil
}

// CanRetry reports whether another retry attempt is permitted
func (p *Policy) CanRetry(ctx context.Context, id int64) (bool, error) {
	return p.svc.CanRetry(ctx, id)
}
