package service

import (
	"context"

	"github.com/vadim/medipost/internal/domain/article/dao"
	"github.com/vadim/medipost/internal/domain/article/entity"
)

// Service exposes read-only access to scraped source articles
type Service struct {
	articles dao.ArticleRepository
}

// New creates a new article service
func New(articles dao.ArticleRepository) *Service {
	return &Service{articles: articles}
}

// GetArticle retrieves an article by ID
func (s *Service) GetArticle(ctx context.Context, id int64) (*entity.Article, error) {
	a, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, entity.ErrArticleNotFound
	}
	return a, nil
}

// ListArticles retrieves recent articles, newest first
func (s *Service) ListArticles(ctx context.Context, limit, offset int) ([]entity.Article, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.articles.List(ctx, limit, offset)
}
