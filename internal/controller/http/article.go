package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/medipost/internal/domain/article/entity"
	"github.com/vadim/medipost/internal/httpx/response"
)

// ArticleReader defines the interface for browsing scraped source articles
type ArticleReader interface {
	GetArticle(ctx context.Context, id int64) (*entity.Article, error)
	ListArticles(ctx context.Context, limit, offset int) ([]entity.Article, error)
}

// ArticleHandler handles HTTP requests for source articles
type ArticleHandler struct {
	articles ArticleReader
}

// NewArticleHandler creates a new article handler
func NewArticleHandler(articles ArticleReader) *ArticleHandler {
	return &ArticleHandler{articles: articles}
}

// RegisterRoutes registers article routes
func (h *ArticleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/articles", func(r chi.Router) {
		r.Get("/", h.List())
		r.Get("/{id}", h.Get())
	})
}

// List handles GET /articles
func (h *ArticleHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		articles, err := h.articles.ListArticles(r.Context(), limit, offset)
		if err != nil {
			response.InternalError(w, "internal server error")
			return
		}

		response.OK(w, map[string]interface{}{"articles": articles})
	}
}

// Get handles GET /articles/{id}
func (h *ArticleHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			response.BadRequest(w, "invalid article id")
			return
		}

		a, err := h.articles.GetArticle(r.Context(), id)
		if err != nil {
			if errors.Is(err, entity.ErrArticleNotFound) {
				response.NotFound(w, err.Error())
				return
			}
			response.InternalError(w, "internal server error")
			return
		}

		response.OK(w, a)
	}
}
