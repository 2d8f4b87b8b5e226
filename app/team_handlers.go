package projecthub

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/putto11262002/projecthub/core"
	"github.com/putto11262002/projecthub/pkg/router"
)

type TeamHandler struct {
	store core.TeamStore
}

func NewTeamHandler(store core.TeamStore) *TeamHandler {
	return &TeamHandler{store: store}
}

func (h *TeamHandler) GetTeamsHandler(w http.ResponseWriter, r *http.Request) error {
	teams, err := h.store.GetTeams(r.Context())
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, emptyIfNil(teams))
}

func (h *TeamHandler) CreateTeamHandler(w http.ResponseWriter, r *http.Request) error {
	var input core.TeamCreateInput
	if err := decodeJSON(r, &input); err != nil {
		return err
	}
	team, err := h.store.CreateTeam(r.Context(), input)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusCreated, team)
}

func (h *TeamHandler) GetTeamHandler(w http.ResponseWriter, r *http.Request) error {
	team, err := h.store.GetTeamByID(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		return err
	}
	if team == nil {
		return router.NotFound(core.ErrTeamNotFound.Error())
	}
	return router.WriteJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) UpdateTeamHandler(w http.ResponseWriter, r *http.Request) error {
	var input core.TeamUpdateInput
	if err := decodeJSON(r, &input); err != nil {
		return err
	}
	team, err := h.store.UpdateTeam(r.Context(), chi.URLParam(r, "teamID"), input)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) DeleteTeamHandler(w http.ResponseWriter, r *http.Request) error {
	if err := h.store.DeleteTeam(r.Context(), chi.URLParam(r, "teamID")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type AddTeamMemberPayload struct {
	UserID string `json:"user_id"`
}

func (h *TeamHandler) AddMemberHandler(w http.ResponseWriter, r *http.Request) error {
	var payload AddTeamMemberPayload
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	if payload.UserID == "" {
		return router.BadRequest("user_id is required")
	}
	if err := h.store.AddTeamMember(r.Context(), chi.URLParam(r, "teamID"), payload.UserID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *TeamHandler) RemoveMemberHandler(w http.ResponseWriter, r *http.Request) error {
	err := h.store.RemoveTeamMember(r.Context(), chi.URLParam(r, "teamID"), chi.URLParam(r, "userID"))
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
