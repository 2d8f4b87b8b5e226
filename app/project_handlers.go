package projecthub

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/putto11262002/projecthub/core"
	"github.com/putto11262002/projecthub/pkg/router"
)

type ProjectHandler struct {
	store core.ProjectStore
}

func NewProjectHandler(store core.ProjectStore) *ProjectHandler {
	return &ProjectHandler{store: store}
}

func (h *ProjectHandler) GetProjectsHandler(w http.ResponseWriter, r *http.Request) error {
	offset, limit, err := paging(r)
	if err != nil {
		return err
	}
	projects, err := h.store.GetProjects(r.Context(), offset, limit)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, emptyIfNil(projects))
}

func (h *ProjectHandler) GetUserProjectsHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	projects, err := h.store.GetUserProjects(r.Context(), session.UserID)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, emptyIfNil(projects))
}

func (h *ProjectHandler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	var input core.ProjectCreateInput
	if err := decodeJSON(r, &input); err != nil {
		return err
	}

	project, err := h.store.CreateProject(r.Context(), session.UserID, input)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) GetProjectHandler(w http.ResponseWriter, r *http.Request) error {
	project, err := h.store.GetProjectByID(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		return err
	}
	if project == nil {
		return router.NotFound(core.ErrProjectNotFound.Error())
	}
	return router.WriteJSON(w, http.StatusOK, project)
}

// canManage reports whether the identity is an administrator or a manager of the project.
func (h *ProjectHandler) canManage(ctx context.Context, identity core.Identity, projectID string) error {
	project, err := h.store.GetProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return router.NotFound(core.ErrProjectNotFound.Error())
	}
	if identity.IsAdmin() {
		return nil
	}
	for _, m := range project.Members {
		if m.UserID == identity.UserID && m.RoleInProject == core.ProjectRoleManager {
			return nil
		}
	}
	return router.Forbidden("project manager role required")
}

func (h *ProjectHandler) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	id := chi.URLParam(r, "projectID")
	var input core.ProjectUpdateInput
	if err := decodeJSON(r, &input); err != nil {
		return err
	}
	if err := h.canManage(r.Context(), session.Identity, id); err != nil {
		return err
	}

	project, err := h.store.UpdateProject(r.Context(), id, input)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProjectHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	id := chi.URLParam(r, "projectID")
	if err := h.canManage(r.Context(), session.Identity, id); err != nil {
		return err
	}
	if err := h.store.DeleteProject(r.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *ProjectHandler) GetMembersHandler(w http.ResponseWriter, r *http.Request) error {
	members, err := h.store.GetProjectMembers(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, emptyIfNil(members))
}

func (h *ProjectHandler) AddMemberHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	id := chi.URLParam(r, "projectID")
	var input core.ProjectMemberInput
	if err := decodeJSON(r, &input); err != nil {
		return err
	}
	if err := h.canManage(r.Context(), session.Identity, id); err != nil {
		return err
	}

	member, err := h.store.AddProjectMember(r.Context(), id, input)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusCreated, member)
}

func (h *ProjectHandler) RemoveMemberHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	id := chi.URLParam(r, "projectID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		return router.BadRequest("user_id is required")
	}
	// members may leave on their own
	if userID != session.UserID {
		if err := h.canManage(r.Context(), session.Identity, id); err != nil {
			return err
		}
	}

	if err := h.store.RemoveProjectMember(r.Context(), id, userID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
