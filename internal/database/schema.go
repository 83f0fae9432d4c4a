package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. Statements are idempotent so repeated
// boots are safe; real migrations can replace this once the schema
// stabilizes.
const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id          BIGSERIAL PRIMARY KEY,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL,
	url         TEXT NOT NULL,
	source      TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS projects (
	code              TEXT PRIMARY KEY,
	domain            TEXT NOT NULL DEFAULT '',
	name              TEXT NOT NULL DEFAULT '',
	cms_base_url      TEXT,
	cms_token         TEXT,
	taxonomy_id       BIGINT,
	telegram_chat_id  TEXT,
	style             TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS drafts (
	id                  BIGSERIAL PRIMARY KEY,
	article_id          BIGINT NOT NULL REFERENCES articles(id),
	project             TEXT NOT NULL,
	summary             TEXT NOT NULL DEFAULT '',
	facts               TEXT[] NOT NULL DEFAULT '{}',
	body                TEXT,
	seo_title           TEXT,
	seo_description     TEXT,
	seo_keywords        TEXT[] NOT NULL DEFAULT '{}',
	image_prompt        TEXT,
	image_url           TEXT,
	channel_post        TEXT,
	status              TEXT NOT NULL DEFAULT 'summary_pending',
	scheduled_at        TIMESTAMPTZ,
	is_published        BOOLEAN NOT NULL DEFAULT FALSE,
	published_at        TIMESTAMPTZ,
	published_project   TEXT,
	external_id         TEXT,
	last_error_message  TEXT,
	last_error_step     TEXT,
	last_error_at       TIMESTAMPTZ,
	can_retry           BOOLEAN NOT NULL DEFAULT TRUE,
	retry_count         INTEGER NOT NULL DEFAULT 0,
	created_by          BIGINT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_drafts_due
	ON drafts (scheduled_at) WHERE status = 'scheduled';
CREATE INDEX IF NOT EXISTS idx_drafts_failed
	ON drafts (last_error_at) WHERE last_error_message IS NOT NULL;

CREATE TABLE IF NOT EXISTS generation_logs (
	id           UUID PRIMARY KEY,
	draft_id     BIGINT NOT NULL REFERENCES drafts(id),
	operation    TEXT NOT NULL,
	provider     TEXT NOT NULL,
	model        TEXT NOT NULL,
	success      BOOLEAN NOT NULL,
	tokens_used  INTEGER NOT NULL DEFAULT 0,
	duration_ms  BIGINT NOT NULL DEFAULT 0,
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_generation_logs_draft
	ON generation_logs (draft_id, created_at DESC);

CREATE TABLE IF NOT EXISTS expenses (
	id          UUID PRIMARY KEY,
	draft_id    BIGINT NOT NULL REFERENCES drafts(id),
	user_id     BIGINT,
	operation   TEXT NOT NULL,
	cost        DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS publication_logs (
	id            UUID PRIMARY KEY,
	draft_id      BIGINT NOT NULL REFERENCES drafts(id),
	user_id       BIGINT,
	project_code  TEXT NOT NULL,
	external_id   TEXT NOT NULL,
	url           TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Bootstrap applies the schema
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
