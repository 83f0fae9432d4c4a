package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/vadim/medipost/internal/domain/draft/entity"
	projectentity "github.com/vadim/medipost/internal/domain/project/entity"
)

// PublicationGateway defines the interface for the external CMS publish
// call. No retry lives inside the gateway; retry policy belongs to the
// caller (manual retry or the scheduler's next tick).
type PublicationGateway interface {
	Publish(ctx context.Context, in GatewayPublishInput) (*GatewayPublishOutput, error)
}

// GatewayPublishInput represents one post handed to the CMS
type GatewayPublishInput struct {
	Project        *projectentity.Project
	Title          string
	Preview        string
	Body           string
	ImageURL       string
	SEOTitle       string
	SEODescription string
	SEOKeywords    []string
}

// GatewayPublishOutput represents the normalized CMS result
type GatewayPublishOutput struct {
	ExternalID string
	URL        string
}

// ChannelNotifier announces published posts to a project's messaging
// channel. Failures are logged, never retried, never surfaced to the
// draft state.
type ChannelNotifier interface {
	Announce(ctx context.Context, chatID, text, imageURL string) error
}

// PublishResult is what on-demand publishing returns to the caller
type PublishResult struct {
	Draft       *entity.Draft
	ExternalID  string
	URL         string
	ProjectName string
}

// PublishNow publishes a draft immediately. The claim transition makes the
// gateway call at-most-once: if a scheduler tick or a second caller races
// this one, exactly one of them gets the claim and the rest fail fast.
func (p *Policy) PublishNow(ctx context.Context, id int64, projectCode string) (*PublishResult, error) {
	code, err := projectentity.NormalizeCode(projectCode)
	if err != nil {
		return nil, err
	}

	proj, err := p.projects.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !proj.IsConfigured() {
		return nil, projectentity.ErrProjectNotConfigured
	}

	claimed, err := p.svc.ClaimForPublishing(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, entity.ErrPublishInProgress
	}

	d, err := p.svc.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	out, err := p.gateway.Publish(ctx, buildGatewayInput(proj, d))
	if err != nil {
		// On-demand path: release the claim and write the ledger so the
		// caller can report "draft N is safe to retry".
		if relErr := p.svc.ReleaseClaim(ctx, id); relErr != nil {
			p.logger.Error("failed to release publish claim", "draft_id", id, "error", relErr)
		}
		if markErr := p.svc.MarkError(ctx, id, err.Error(), entity.StepPublication, true); markErr != nil {
			p.logger.Error("failed to record publish error", "draft_id", id, "error", markErr)
		}
		return nil, &entity.StepError{DraftID: id, Step: entity.StepPublication, Err: err}
	}

	if err := p.svc.CompletePublish(ctx, id, out.ExternalID, code); err != nil {
		return nil, err
	}

	p.runPublishSideEffects(ctx, d, proj, out)

	published, err := p.svc.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	return &PublishResult{
		Draft:       published,
		ExternalID:  out.ExternalID,
		URL:         out.URL,
		ProjectName: proj.Name,
	}, nil
}

// ProcessScheduledDrafts finds drafts whose deferred publish time has
// arrived and publishes them, strictly sequentially. A failed gateway call
// releases the claim back to scheduled and is logged only: the next tick
// retries it without operator action (at-least-once across ticks,
// at-most-once per concurrent trigger via the claim).
func (p *Policy) ProcessScheduledDrafts(ctx context.Context) error {
	due, err := p.svc.GetDueScheduled(ctx)
	if err != nil {
		return fmt.Errorf("selecting due drafts: %w", err)
	}

	for i := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.publishScheduled(ctx, due[i].ID)
	}

	return nil
}

func (p *Policy) publishScheduled(ctx context.Context, id int64) {
	// Re-read fresh: the draft may have been published, cancelled or
	// claimed since the selection query ran.
	d, err := p.svc.GetDraft(ctx, id)
	if err != nil {
		p.logger.Warn("scheduled draft disappeared", "draft_id", id, "error", err)
		return
	}
	if d.Status != entity.StatusScheduled {
		return
	}

	code := d.PublishedProject
	if code == "" {
		code = d.Project
	}

	proj, err := p.projects.GetByCode(ctx, code)
	if err != nil {
		p.logger.Error("scheduled draft targets unknown project", "draft_id", id, "project", code, "error", err)
		return
	}
	if !proj.IsConfigured() {
		p.logger.Error("scheduled draft targets unconfigured project", "draft_id", id, "project", code)
		return
	}

	claimed, err := p.svc.ClaimForPublishing(ctx, id)
	if err != nil || !claimed {
		// Lost the race to a manual publish; nothing to do.
		if err != nil && !errors.Is(err, entity.ErrAlreadyPublished) && !errors.Is(err, entity.ErrPublishInProgress) {
			p.logger.Warn("failed to claim scheduled draft", "draft_id", id, "error", err)
		}
		return
	}

	out, err := p.gateway.Publish(ctx, buildGatewayInput(proj, d))
	if err != nil {
		p.logger.Warn("scheduled publish failed, will retry next tick", "draft_id", id, "error", err)
		if relErr := p.svc.ReleaseClaim(ctx, id); relErr != nil {
			p.logger.Error("failed to release publish claim", "draft_id", id, "error", relErr)
		}
		return
	}

	if err := p.svc.CompletePublish(ctx, id, out.ExternalID, code); err != nil {
		p.logger.Error("failed to complete scheduled publish", "draft_id", id, "error", err)
		return
	}

	p.logger.Info("scheduled draft published", "draft_id", id, "project", code, "external_id", out.ExternalID)
	p.runPublishSideEffects(ctx, d, proj, out)
}

// runPublishSideEffects fires the best-effort post-publish work: the
// channel announcement and the audit rows. Decoupled from the state
// transition so a slow or failing side effect can never block or corrupt
// the publish itself.
func (p *Policy) runPublishSideEffects(ctx context.Context, d *entity.Draft, proj *projectentity.Project, out *GatewayPublishOutput) {
	draftID := d.ID
	createdBy := d.CreatedBy
	sideCtx := context.WithoutCancel(ctx)

	p.async(func() {
		if proj.TelegramChatID != "" && d.ChannelPost != "" {
			text := d.ChannelPost + "\n\n" + out.URL
			if err := p.notifier.Announce(sideCtx, proj.TelegramChatID, text, d.ImageURL); err != nil {
				p.logger.Warn("channel announcement failed", "draft_id", draftID, "project", proj.Code, "error", err)
			}
		}

		if err := p.expenses.RecordPublication(sideCtx, draftID, createdBy, proj.Code, out.ExternalID, out.URL); err != nil {
			p.logger.Warn("failed to record publication", "draft_id", draftID, "error", err)
		}
	})
}

func buildGatewayInput(proj *projectentity.Project, d *entity.Draft) GatewayPublishInput {
	title := d.SEOTitle
	if title == "" {
		title = d.Summary
	}

	return GatewayPublishInput{
		Project:        proj,
		Title:          title,
		Preview:        d.SEODescription,
		Body:           d.Body,
		ImageURL:       d.ImageURL,
		SEOTitle:       d.SEOTitle,
		SEODescription: d.SEODescription,
		SEOKeywords:    d.SEOKeywords,
	}
}
