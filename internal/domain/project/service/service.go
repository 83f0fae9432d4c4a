package service

import (
	"context"
	"time"

	"github.com/vadim/medipost/internal/domain/project/dao"
	"github.com/vadim/medipost/internal/domain/project/entity"
)

// Service handles business logic for publishing destinations
type Service struct {
	projects dao.ProjectRepository
}

// New creates a new project service
func New(projects dao.ProjectRepository) *Service {
	return &Service{projects: projects}
}

// GetByCode resolves a raw project code to a configured destination. The
// code is validated and looked up; there is no fallback default.
func (s *Service) GetByCode(ctx context.Context, rawCode string) (*entity.Project, error) {
	code, err := entity.NormalizeCode(rawCode)
	if err != nil {
		return nil, err
	}

	p, err := s.projects.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, entity.ErrUnknownProject
	}

	return p, nil
}

// List retrieves all projects
func (s *Service) List(ctx context.Context) ([]entity.Project, error) {
	return s.projects.List(ctx)
}

// UpsertInput represents input for creating or updating a project
type UpsertInput struct {
	Code           string
	Domain         string
	Name           string
	CMSBaseURL     string
	CMSToken       string
	TaxonomyID     *int64
	TelegramChatID string
	Style          string
}

// Upsert creates or updates a project destination
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (*entity.Project, error) {
	code, err := entity.NormalizeCode(in.Code)
	if err != nil {
		return nil, err
	}

	p := &entity.Project{
		Code:           code,
		Domain:         in.Domain,
		Name:           in.Name,
		CMSBaseURL:     in.CMSBaseURL,
		CMSToken:       in.CMSToken,
		TaxonomyID:     in.TaxonomyID,
		TelegramChatID: in.TelegramChatID,
		Style:          in.Style,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if err := s.projects.Upsert(ctx, p); err != nil {
		return nil, err
	}

	return s.GetByCode(ctx, code)
}
