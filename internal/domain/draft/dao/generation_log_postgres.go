package dao

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/medipost/internal/domain/draft/entity"
)

// GenerationLogPostgres implements GenerationLogRepository for PostgreSQL
type GenerationLogPostgres struct {
	pool *pgxpool.Pool
}

// NewGenerationLogPostgres creates a new PostgreSQL generation log repository
func NewGenerationLogPostgres(pool *pgxpool.Pool) *GenerationLogPostgres {
	return &GenerationLogPostgres{pool: pool}
}

// Create appends one generation log row
func (r *GenerationLogPostgres) Create(ctx context.Context, log *entity.GenerationLog) error {
	query := `
		INSERT INTO generation_logs (id, draft_id, operation, provider, model, success, tokens_used, duration_ms, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var errText *string
	if log.Error != "" {
		errText = &log.Error
	}

	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.DraftID,
		log.Operation,
		log.Provider,
		log.Model,
		log.Success,
		log.TokensUsed,
		log.DurationMS,
		errText,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting generation log: %w", err)
	}

	return nil
}

// ListByDraft retrieves all generation log rows for a draft, newest first
func (r *GenerationLogPostgres) ListByDraft(ctx context.Context, draftID int64) ([]entity.GenerationLog, error) {
	query := `
		SELECT id, draft_id, operation, provider, model, success, tokens_used, duration_ms, error, created_at
		FROM generation_logs
		WHERE draft_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, draftID)
	if err != nil {
		return nil, fmt.Errorf("querying generation logs: %w", err)
	}
	defer rows.Close()

	var logs []entity.GenerationLog
	for rows.Next() {
		var log entity.GenerationLog
		var errText *string

		err := rows.Scan(
			&log.ID,
			&log.DraftID,
			&log.Operation,
			&log.Provider,
			&log.Model,
			&log.Success,
			&log.TokensUsed,
			&log.DurationMS,
			&errText,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if errText != nil {
			log.Error = *errText
		}

		logs = append(logs, log)
	}

	return logs, rows.Err()
}
