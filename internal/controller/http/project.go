package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/medipost/internal/domain/project/entity"
	"github.com/vadim/medipost/internal/domain/project/service"
	"github.com/vadim/medipost/internal/httpx/response"
)

// ProjectManager defines the interface for publishing destination management
type ProjectManager interface {
	GetByCode(ctx context.Context, code string) (*entity.Project, error)
	List(ctx context.Context) ([]entity.Project, error)
	Upsert(ctx context.Context, in service.UpsertInput) (*entity.Project, error)
}

// ProjectHandler handles HTTP requests for projects
type ProjectHandler struct {
	projects ProjectManager
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projects ProjectManager) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// RegisterRoutes registers project routes
func (h *ProjectHandler) RegisterRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.List())
		r.Put("/", h.Upsert())
		r.Get("/{code}", h.Get())
	})
}

// List handles GET /projects
func (h *ProjectHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.projects.List(r.Context())
		if err != nil {
			response.InternalError(w, "internal server error")
			return
		}

		response.OK(w, map[string]interface{}{"projects": projects})
	}
}

// Get handles GET /projects/{code}
func (h *ProjectHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := h.projects.GetByCode(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			handleProjectError(w, err)
			return
		}

		response.OK(w, p)
	}
}

// UpsertProjectRequest represents the request body for creating or updating
// a project
type UpsertProjectRequest struct {
	Code           string `json:"code"`
	Domain         string `json:"domain"`
	Name           string `json:"name"`
	CMSBaseURL     string `json:"cms_base_url"`
	CMSToken       string `json:"cms_token"`
	TaxonomyID     *int64 `json:"taxonomy_id,omitempty"`
	TelegramChatID string `json:"telegram_chat_id"`
	Style          string `json:"style"`
}

// Upsert handles PUT /projects
func (h *ProjectHandler) Upsert() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		p, err := h.projects.Upsert(r.Context(), service.UpsertInput{
			Code:           req.Code,
			Domain:         req.Domain,
			Name:           req.Name,
			CMSBaseURL:     req.CMSBaseURL,
			CMSToken:       req.CMSToken,
			TaxonomyID:     req.TaxonomyID,
			TelegramChatID: req.TelegramChatID,
			Style:          req.Style,
		})
		if err != nil {
			handleProjectError(w, err)
			return
		}

		response.OK(w, p)
	}
}

func handleProjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrUnknownProject):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrEmptyProjectCode),
		errors.Is(err, entity.ErrInvalidProjectCode):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
