package entity

import (
	"time"
)

// DraftStatus represents the current lifecycle stage of a draft
type DraftStatus string

const (
	StatusSummaryPending   DraftStatus = "summary_pending"
	StatusSummaryConfirmed DraftStatus = "summary_confirmed"
	StatusGenerated        DraftStatus = "generated"
	StatusScheduled        DraftStatus = "scheduled"
	// StatusPublishing is the transient claim state between scheduled/generated
	// and published. Only the publish path may set it; it is never accepted
	// from user input.
	StatusPublishing DraftStatus = "publishing"
	StatusPublished  DraftStatus = "published"
	StatusError      DraftStatus = "error"
)

// PipelineStep identifies which pipeline operation a failure belongs to
type PipelineStep string

const (
	StepSummary           PipelineStep = "summary"
	StepGeneration        PipelineStep = "generation"
	StepImageRegeneration PipelineStep = "image_regeneration"
	StepPublication       PipelineStep = "publication"
	StepRetry             PipelineStep = "retry"
)

// MaxRetries is the enforced cap on retry attempts per draft.
const MaxRetries = 3

// Draft tracks one article's journey from summary to published post
type Draft struct {
	ID        int64  `json:"id"`
	ArticleID int64  `json:"article_id"`
	Project   string `json:"project"`

	// Content produced by pipeline steps
	Summary        string   `json:"summary"`
	Facts          []string `json:"facts"`
	Body           string   `json:"body,omitempty"`
	SEOTitle       string   `json:"seo_title,omitempty"`
	SEODescription string   `json:"seo_description,omitempty"`
	SEOKeywords    []string `json:"seo_keywords,omitempty"`
	ImagePrompt    string   `json:"image_prompt,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	ChannelPost    string   `json:"channel_post,omitempty"`

	// Lifecycle
	Status           DraftStatus `json:"status"`
	ScheduledAt      *time.Time  `json:"scheduled_at,omitempty"`
	IsPublished      bool        `json:"is_published"`
	PublishedAt      *time.Time  `json:"published_at,omitempty"`
	PublishedProject string      `json:"published_project,omitempty"`
	ExternalID       string      `json:"external_id,omitempty"` // ID assigned by the CMS after publishing

	// Error ledger
	LastErrorMessage string       `json:"last_error_message,omitempty"`
	LastErrorStep    PipelineStep `json:"last_error_step,omitempty"`
	LastErrorAt      *time.Time   `json:"last_error_at,omitempty"`
	CanRetry         bool         `json:"can_retry"`
	RetryCount       int          `json:"retry_count"`

	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEditable returns true if the draft's content can still be replaced freely.
// Scheduled and published drafts stay editable for copy fixes, but saving
// content never moves their status (see Service.SaveGeneratedContent).
func (d *Draft) IsEditable() bool {
	return d.Status != StatusPublishing
}

// CanSchedule returns true if the draft is ready for time-deferred publishing
func (d *Draft) CanSchedule() bool {
	return d.Status == StatusGenerated || d.Status == StatusScheduled
}

// CanPublish returns true if the draft may enter the publish path
func (d *Draft) CanPublish() bool {
	return (d.Status == StatusGenerated || d.Status == StatusScheduled) && d.Body != ""
}

// RetryAllowed reports whether another retry attempt is permitted.
// The cap is enforced, not advisory: callers that ignore it are rejected
// by the retry operation itself.
func (d *Draft) RetryAllowed() bool {
	return d.CanRetry && d.RetryCount < MaxRetries && d.Status != StatusPublished
}

// forward transitions allowed per status; the only backward edge is the
// explicit cancel-schedule (scheduled -> generated)
var transitions = map[DraftStatus][]DraftStatus{
	StatusSummaryPending:   {StatusSummaryConfirmed},
	StatusSummaryConfirmed: {StatusGenerated},
	StatusGenerated:        {StatusScheduled, StatusPublishing},
	StatusScheduled:        {StatusGenerated, StatusPublishing},
	StatusPublishing:       {StatusPublished, StatusGenerated, StatusScheduled},
	StatusPublished:        {},
	StatusError:            {},
}

// CanTransition reports whether moving from the draft's current status to
// next follows the lifecycle graph. Error writes keep the current status and
// are not modeled as edges here.
func (d *Draft) CanTransition(next DraftStatus) bool {
	for _, s := range transitions[d.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known draft status
func ValidStatus(s DraftStatus) bool {
	switch s {
	case StatusSummaryPending, StatusSummaryConfirmed, StatusGenerated,
		StatusScheduled, StatusPublishing, StatusPublished, StatusError:
		return true
	default:
		return false
	}
}

// ValidStep reports whether s is a known pipeline step
func ValidStep(s PipelineStep) bool {
	switch s {
	case StepSummary, StepGeneration, StepImageRegeneration, StepPublication, StepRetry:
		return true
	default:
		return false
	}
}
