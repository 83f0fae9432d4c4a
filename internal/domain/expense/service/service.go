package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/medipost/internal/domain/expense/dao"
	"github.com/vadim/medipost/internal/domain/expense/entity"
)

// Service handles the append-only cost and publication audit ledgers.
// Entries are informational: nothing in the draft lifecycle depends on
// them, and callers treat failures here as best-effort.
type Service struct {
	expenses dao.ExpenseRepository
	logs     dao.PublicationLogRepository
}

// New creates a new expense service
func New(expenses dao.ExpenseRepository, logs dao.PublicationLogRepository) *Service {
	return &Service{expenses: expenses, logs: logs}
}

// RecordExpense appends one cost event for a draft
func (s *Service) RecordExpense(ctx context.Context, draftID int64, userID *int64, operation string, cost float64) error {
	return s.expenses.Create(ctx, &entity.Expense{
		ID:        uuid.New().String(),
		DraftID:   draftID,
		UserID:    userID,
		Operation: entity.ExpenseOperation(operation),
		Cost:      cost,
		CreatedAt: time.Now().UTC(),
	})
}

// RecordPublication appends one publication audit row
func (s *Service) RecordPublication(ctx context.Context, draftID int64, userID *int64, projectCode, externalID, url string) error {
	return s.logs.Create(ctx, &entity.PublicationRecord{
		ID:          uuid.New().String(),
		DraftID:     draftID,
		UserID:      userID,
		ProjectCode: projectCode,
		ExternalID:  externalID,
		URL:         url,
		CreatedAt:   time.Now().UTC(),
	})
}

// ListByDraft retrieves all expense rows for a draft
func (s *Service) ListByDraft(ctx context.Context, draftID int64) ([]entity.Expense, error) {
	return s.expenses.ListByDraft(ctx, draftID)
}

// PublicationsByDraft retrieves publication audit rows for a draft
func (s *Service) PublicationsByDraft(ctx context.Context, draftID int64) ([]entity.PublicationRecord, error) {
	return s.logs.ListByDraft(ctx, draftID)
}

// GetStatistics aggregates spending, optionally for one user
func (s *Service) GetStatistics(ctx context.Context, userID *int64) (*entity.ExpenseStatistics, error) {
	return s.expenses.GetStatistics(ctx, userID)
}
