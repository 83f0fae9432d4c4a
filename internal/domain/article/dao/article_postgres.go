package dao

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/medipost/internal/domain/article/entity"
)

// ArticleRepository defines the interface for source article lookups.
// Articles are written by external scrapers; this service only reads them.
type ArticleRepository interface {
	// GetByID retrieves an article by ID, (nil, nil) when absent
	GetByID(ctx context.Context, id int64) (*entity.Article, error)

	// List retrieves recent articles, newest first
	List(ctx context.Context, limit, offset int) ([]entity.Article, error)
}

// ArticlePostgres implements ArticleRepository for PostgreSQL
type ArticlePostgres struct {
	pool *pgxpool.Pool
}

// NewArticlePostgres creates a new PostgreSQL article repository
func NewArticlePostgres(pool *pgxpool.Pool) *ArticlePostgres {
	return &ArticlePostgres{pool: pool}
}

// GetByID retrieves an article by ID
func (r *ArticlePostgres) GetByID(ctx context.Context, id int64) (*entity.Article, error) {
	query := `SELECT id, title, content, url, source, created_at FROM articles WHERE id = $1`

	var a entity.Article
	var source *string

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.Title,
		&a.Content,
		&a.URL,
		&source,
		&a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning article: %w", err)
	}

	if source != nil {
		a.Source = *source
	}

	return &a, nil
}

// List retrieves recent articles, newest first
func (r *ArticlePostgres) List(ctx context.Context, limit, offset int) ([]entity.Article, error) {
	query := `SELECT id, title, content, url, source, created_at FROM articles ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var articles []entity.Article
	for rows.Next() {
		var a entity.Article
		var source *string

		err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.URL, &source, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if source != nil {
			a.Source = *source
		}

		articles = append(articles, a)
	}

	return articles, rows.Err()
}
