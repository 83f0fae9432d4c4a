package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/medipost/internal/domain/expense/entity"
	"github.com/vadim/medipost/internal/httpx/response"
)

// ExpenseReader defines the interface for reading the cost and publication
// audit ledgers
type ExpenseReader interface {
	ListByDraft(ctx context.Context, draftID int64) ([]entity.Expense, error)
	PublicationsByDraft(ctx context.Context, draftID int64) ([]entity.PublicationRecord, error)
	GetStatistics(ctx context.Context, userID *int64) (*entity.ExpenseStatistics, error)
}

// ExpenseHandler handles HTTP requests for expenses
type ExpenseHandler struct {
	expenses ExpenseReader
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(expenses ExpenseReader) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

// RegisterRoutes registers expense routes
func (h *ExpenseHandler) RegisterRoutes(r chi.Router) {
	r.Route("/expenses", func(r chi.Router) {
		r.Get("/statistics", h.Statistics())
		r.Get("/drafts/{id}", h.ByDraft())
		r.Get("/drafts/{id}/publications", h.PublicationsByDraft())
	})
}

// Statistics handles GET /expenses/statistics
func (h *ExpenseHandler) Statistics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userID *int64
		if v := r.URL.Query().Get("user_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				response.BadRequest(w, "invalid user_id")
				return
			}
			userID = &id
		}

		stats, err := h.expenses.GetStatistics(r.Context(), userID)
		if err != nil {
			response.InternalError(w, "internal server error")
			return
		}

		response.OK(w, stats)
	}
}

// ByDraft handles GET /expenses/drafts/{id}
func (h *ExpenseHandler) ByDraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		expenses, err := h.expenses.ListByDraft(r.Context(), id)
		if err != nil {
			response.InternalError(w, "internal server error")
			return
		}

		response.OK(w, map[string]interface{}{"expenses": expenses})
	}
}

// PublicationsByDraft handles GET /expenses/drafts/{id}/publications
func (h *ExpenseHandler) PublicationsByDraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		records, err := h.expenses.PublicationsByDraft(r.Context(), id)
		if err != nil {
			response.InternalError(w, "internal server error")
			return
		}

		response.OK(w, map[string]interface{}{"publications": records})
	}
}
