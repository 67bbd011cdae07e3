package builder

import (
	"errors"
	"net/http"

	"github.com/byteai/builder/handler"
	"github.com/byteai/builder/pkg/quota"
)

type projectResponse struct {
	Project *quota.UserProject `json:"project"`
}

func (h *Handler) listProjects(ctx handler.Context, _ struct{}) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	projects, err := h.quota.ListProjects(ctx, userID)
	if err != nil {
		return h.internalError(ctx, "failed to list projects", userID, err)
	}
	return handler.JSON(map[string][]quota.UserProject{"projects": projects})
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SandboxID   string `json:"sandboxId"`
	URL         string `json:"url"`
	PlanUsed    string `json:"planUsed"`
}

func (h *Handler) createProject(ctx handler.Context, req createProjectRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	d, p, err := h.quota.CreateProject(ctx, userID, quota.NewProject{
		Name:        req.Name,
		Description: req.Description,
		SandboxID:   req.SandboxID,
		URL:         req.URL,
		PlanUsed:    req.PlanUsed,
	})
	switch {
	case errors.Is(err, quota.ErrInvalidProject):
		return handler.Error(http.StatusBadRequest, "Name and description are required")
	case err != nil:
		return h.internalError(ctx, "failed to create project", userID, err)
	case !d.CanGenerate:
		return handler.JSONStatus(http.StatusForbidden, limitReached(d.Reason))
	}
	return handler.JSON(projectResponse{Project: p})
}

type updateProjectRequest struct {
	ProjectID   string `path:"projectId" json:"-"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SandboxID   string `json:"sandboxId"`
	URL         string `json:"url"`
	IsActive    *bool  `json:"isActive"`
}

func (h *Handler) updateProject(ctx handler.Context, req updateProjectRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	p, err := h.quota.UpdateProject(ctx, userID, req.ProjectID, quota.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		SandboxID:   req.SandboxID,
		URL:         req.URL,
		IsActive:    req.IsActive,
	})
	switch {
	case errors.Is(err, quota.ErrProjectNotFound):
		return handler.Error(http.StatusNotFound, "Project not found")
	case err != nil:
		return h.internalError(ctx, "failed to update project", userID, err)
	}
	return handler.JSON(projectResponse{Project: p})
}

type projectPath struct {
	ProjectID string `path:"projectId"`
}

func (h *Handler) deleteProject(ctx handler.Context, req projectPath) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	err := h.quota.DeleteProject(ctx, userID, req.ProjectID)
	switch {
	case errors.Is(err, quota.ErrProjectNotFound):
		return handler.Error(http.StatusNotFound, "Project not found")
	case err != nil:
		return h.internalError(ctx, "failed to delete project", userID, err)
	}
	return handler.JSON(map[string]bool{"success": true})
}
