package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/medipost/internal/domain/project/entity"
)

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// GetByCode retrieves a project by its short code, (nil, nil) when absent
	GetByCode(ctx context.Context, code string) (*entity.Project, error)

	// List retrieves all projects ordered by code
	List(ctx context.Context) ([]entity.Project, error)

	// Upsert inserts or replaces a project row keyed by code
	Upsert(ctx context.Context, p *entity.Project) error
}

// ProjectPostgres implements ProjectRepository for PostgreSQL
type ProjectPostgres struct {
	pool *pgxpool.Pool
}

// NewProjectPostgres creates a new PostgreSQL project repository
func NewProjectPostgres(pool *pgxpool.Pool) *ProjectPostgres {
	return &ProjectPostgres{pool: pool}
}

const projectColumns = `code, domain, name, cms_base_url, cms_token, taxonomy_id, telegram_chat_id, style, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*entity.Project, error) {
	var p entity.Project
	var cmsBaseURL, cmsToken, telegramChatID, style *string

	err := row.Scan(
		&p.Code,
		&p.Domain,
		&p.Name,
		&cmsBaseURL,
		&cmsToken,
		&p.TaxonomyID,
		&telegramChatID,
		&style,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cmsBaseURL != nil {
		p.CMSBaseURL = *cmsBaseURL
	}
	if cmsToken != nil {
		p.CMSToken = *cmsToken
	}
	if telegramChatID != nil {
		p.TelegramChatID = *telegramChatID
	}
	if style != nil {
		p.Style = *style
	}

	return &p, nil
}

// GetByCode retrieves a project by its short code
func (r *ProjectPostgres) GetByCode(ctx context.Context, code string) (*entity.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE code = $1`

	p, err := scanProject(r.pool.QueryRow(ctx, query, code))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	return p, nil
}

// List retrieves all projects ordered by code
func (r *ProjectPostgres) List(ctx context.Context) ([]entity.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY code`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []entity.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		projects = append(projects, *p)
	}

	return projects, rows.Err()
}

// Upsert inserts or replaces a project row keyed by code
func (r *ProjectPostgres) Upsert(ctx context.Context, p *entity.Project) error {
	query := `
		INSERT INTO projects (code, domain, name, cms_base_url, cms_token, taxonomy_id, telegram_chat_id, style, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (code) DO UPDATE
		SET domain = EXCLUDED.domain,
		    name = EXCLUDED.name,
		    cms_base_url = EXCLUDED.cms_base_url,
		    cms_token = EXCLUDED.cms_token,
		    taxonomy_id = EXCLUDED.taxonomy_id,
		    telegram_chat_id = EXCLUDED.telegram_chat_id,
		    style = EXCLUDED.style,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		p.Code,
		p.Domain,
		p.Name,
		p.CMSBaseURL,
		p.CMSToken,
		p.TaxonomyID,
		p.TelegramChatID,
		p.Style,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting project: %w", err)
	}

	return nil
}
