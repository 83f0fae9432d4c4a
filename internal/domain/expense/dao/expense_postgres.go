package dao

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/medipost/internal/domain/expense/entity"
)

// ExpenseRepository defines the interface for the append-only cost ledger
type ExpenseRepository interface {
	// Create appends one expense row; rows are never updated
	Create(ctx context.Context, e *entity.Expense) error

	// ListByDraft retrieves all expense rows for a draft, newest first
	ListByDraft(ctx context.Context, draftID int64) ([]entity.Expense, error)

	// GetStatistics aggregates spending, optionally for one user
	GetStatistics(ctx context.Context, userID *int64) (*entity.ExpenseStatistics, error)
}

// PublicationLogRepository defines the interface for the append-only
// publication audit
type PublicationLogRepository interface {
	// Create appends one publication record
	Create(ctx context.Context, rec *entity.PublicationRecord) error

	// ListByDraft retrieves publication records for a draft, newest first
	ListByDraft(ctx context.Context, draftID int64) ([]entity.PublicationRecord, error)
}

// ExpensePostgres implements ExpenseRepository for PostgreSQL
type ExpensePostgres struct {
	pool *pgxpool.Pool
}

// NewExpensePostgres creates a new PostgreSQL expense repository
func NewExpensePostgres(pool *pgxpool.Pool) *ExpensePostgres {
	return &ExpensePostgres{pool: pool}
}

// Create appends one expense row
func (r *ExpensePostgres) Create(ctx context.Context, e *entity.Expense) error {
	query := `
		INSERT INTO expenses (id, draft_id, user_id, operation, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, e.ID, e.DraftID, e.UserID, e.Operation, e.Cost, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting expense: %w", err)
	}

	return nil
}

// ListByDraft retrieves all expense rows for a draft, newest first
func (r *ExpensePostgres) ListByDraft(ctx context.Context, draftID int64) ([]entity.Expense, error) {
	query := `
		SELECT id, draft_id, user_id, operation, cost, created_at
		FROM expenses
		WHERE draft_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, draftID)
	if err != nil {
		return nil, fmt.Errorf("querying expenses: %w", err)
	}
	defer rows.Close()

	var expenses []entity.Expense
	for rows.Next() {
		var e entity.Expense
		if err := rows.Scan(&e.ID, &e.DraftID, &e.UserID, &e.Operation, &e.Cost, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		expenses = append(expenses, e)
	}

	return expenses, rows.Err()
}

// GetStatistics aggregates spending per operation
func (r *ExpensePostgres) GetStatistics(ctx context.Context, userID *int64) (*entity.ExpenseStatistics, error) {
	query := `SELECT operation, COUNT(*), COALESCE(SUM(cost), 0) FROM expenses WHERE 1=1`
	args := []interface{}{}

	if userID != nil {
		query += " AND user_id = $1"
		args = append(args, *userID)
	}

	query += " GROUP BY operation"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying expense statistics: %w", err)
	}
	defer rows.Close()

	stats := &entity.ExpenseStatistics{ByOperation: map[string]float64{}}
	for rows.Next() {
		var op string
		var count int64
		var sum float64

		if err := rows.Scan(&op, &count, &sum); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		stats.ByOperation[op] = sum
		stats.TotalCost += sum
		stats.TotalEntries += count
	}

	return stats, rows.Err()
}

// PublicationLogPostgres implements PublicationLogRepository for PostgreSQL
type PublicationLogPostgres struct {
	pool *pgxpool.Pool
}

// NewPublicationLogPostgres creates a new PostgreSQL publication log repository
func NewPublicationLogPostgres(pool *pgxpool.Pool) *PublicationLogPostgres {
	return &PublicationLogPostgres{pool: pool}
}

// Create appends one publication record
func (r *PublicationLogPostgres) Create(ctx context.Context, rec *entity.PublicationRecord) error {
	query := `
		INSERT INTO publication_logs (id, draft_id, user_id, project_code, external_id, url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query, rec.ID, rec.DraftID, rec.UserID, rec.ProjectCode, rec.ExternalID, rec.URL, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting publication log: %w", err)
	}

	return nil
}

// ListByDraft retrieves publication records for a draft, newest first
func (r *PublicationLogPostgres) ListByDraft(ctx context.Context, draftID int64) ([]entity.PublicationRecord, error) {
	query := `
		SELECT id, draft_id, user_id, project_code, external_id, url, created_at
		FROM publication_logs
		WHERE draft_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, draftID)
	if err != nil {
		return nil, fmt.Errorf("querying publication logs: %w", err)
	}
	defer rows.Close()

	var records []entity.PublicationRecord
	for rows.Next() {
		var rec entity.PublicationRecord
		if err := rows.Scan(&rec.ID, &rec.DraftID, &rec.UserID, &rec.ProjectCode, &rec.ExternalID, &rec.URL, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
