package projecthub

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/putto11262002/projecthub/core"
	"github.com/putto11262002/projecthub/pkg/router"
)

type UserHandler struct {
	store core.UserStore
}

func NewUserHandler(store core.UserStore) *UserHandler {
	return &UserHandler{store: store}
}

func (h *UserHandler) GetUsersHandler(w http.ResponseWriter, r *http.Request) error {
	offset, limit, err := paging(r)
	if err != nil {
		return err
	}
	users, err := h.store.GetUsers(r.Context(), &core.GetUsersOptions{
		Offset: offset,
		Limit:  limit,
		Q:      r.URL.Query().Get("q"),
	})
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, emptyIfNil(users))
}

func (h *UserHandler) MeHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	return h.writeUser(w, r, session.UserID)
}

func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) error {
	return h.writeUser(w, r, chi.URLParam(r, "userID"))
}

func (h *UserHandler) writeUser(w http.ResponseWriter, r *http.Request, id string) error {
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		return err
	}
	if user == nil {
		return router.NotFound(core.ErrUserNotFound.Error())
	}
	return router.WriteJSON(w, http.StatusOK, user)
}

// UpdateUserHandler lets users edit their own profile. Administrators may edit anyone and change roles.
func (h *UserHandler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	id := chi.URLParam(r, "userID")
	if id != session.UserID && !session.IsAdmin() {
		return router.Forbidden("cannot edit another user")
	}

	var input core.UserUpdateInput
	if err := decodeJSON(r, &input); err != nil {
		return err
	}
	if input.Role != nil && !session.IsAdmin() {
		return router.Forbidden("admin role required to change roles")
	}

	user, err := h.store.UpdateUser(r.Context(), id, input)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) error {
	if err := h.store.DeleteUser(r.Context(), chi.URLParam(r, "userID")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
