package projecthub

import (
	"net/http"

	"github.com/putto11262002/projecthub/core"
	"github.com/putto11262002/projecthub/pkg/router"
)

type AuthHandler struct {
	store        core.AuthStore
	userStore    core.UserStore
	secureCookie bool
}

func NewAuthHandler(store core.AuthStore, userStore core.UserStore, secureCookie bool) *AuthHandler {
	return &AuthHandler{store: store, userStore: userStore, secureCookie: secureCookie}
}

// RegisterHandler creates an account. Only administrators may pick the role of the new user.
func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) error {
	var input core.UserCreateInput
	if err := decodeJSON(r, &input); err != nil {
		return err
	}

	if identity, ok := core.IdentityFromContext(r.Context()); !ok || !identity.IsAdmin() {
		input.Role = core.RoleMember
	}

	user, err := h.userStore.CreateUser(r.Context(), input)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusCreated, user)
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) error {
	var payload LoginPayload
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}

	session, err := h.store.NewSession(r.Context(), payload.Username, payload.Password)
	if err != nil {
		return err
	}

	http.SetCookie(w, core.NewAuthCookie(*session, h.secureCookie))
	return router.WriteJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	if err := h.store.DestroySession(r.Context(), session); err != nil {
		return err
	}
	http.SetCookie(w, core.ExpiredAuthCookie())
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *AuthHandler) CheckHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	return router.WriteJSON(w, http.StatusOK, session.Identity)
}
