package core

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/putto11262002/projecthub/pkg/router"
)

const (
	key            sessionKey = "session"
	AuthCookieName            = "auth_token"
	// authQueryParam carries the token on websocket upgrades since browsers cannot set headers there.
	authQueryParam = "token"
)

type sessionKey string

func contextWithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, key, session)
}

func sessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(key).(Session)
	return session, ok
}

// SessionFromRequest extracts the session from the request context.
// It must be called in handlers that are protected by the JWTMiddleware.
// It panics if the session is not found in the request context.
func SessionFromRequest(r *http.Request) Session {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		panic("session not found in request context: call this function in handlers that are protected by JWTMiddleware")
	}
	return session
}

// IdentityFromContext returns the identity attached by JWTMiddleware or OptionalAuthMiddleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	session, ok := sessionFromContext(ctx)
	if !ok {
		return Identity{}, false
	}
	return session.Identity, true
}

func NewAuthCookie(session Session, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     AuthCookieName,
		Value:    session.Token,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
}

// ExpiredAuthCookie tells the browser to drop the auth cookie.
func ExpiredAuthCookie() *http.Cookie {
	return &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	}
}

// TokenFromRequest looks for a token in the auth cookie, the Authorization header
// and the token query parameter in that order.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Valid() == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && token != "" {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get(authQueryParam)
}

// JWTMiddleware extracts the JWT token from the request and validates it and attaches the session to the request context.
// The session is gaurenteed to be attached to the request context if the JWT token is valid for subsequent handlers.
func JWTMiddleware(a AuthStore) router.Middleware {
	return func(next http.Handler) router.HandlerFunc {
		authErr := router.NewJsonError(http.StatusUnauthorized, "unauthenticated")

		return router.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
			token := TokenFromRequest(r)
			if token == "" {
				return authErr
			}

			session, err := a.Session(r.Context(), token)
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					return authErr
				}
				return err
			}

			next.ServeHTTP(w, r.WithContext(contextWithSession(r.Context(), *session)))
			return nil
		})
	}
}

// OptionalAuthMiddleware attaches the session when the request carries a valid token
// and lets the request through otherwise. Handlers decide what an anonymous caller may do.
func OptionalAuthMiddleware(a AuthStore) router.Middleware {
	return func(next http.Handler) router.HandlerFunc {
		return router.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return nil
			}

			session, err := a.Session(r.Context(), token)
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					next.ServeHTTP(w, r)
					return nil
				}
				return err
			}

			next.ServeHTTP(w, r.WithContext(contextWithSession(r.Context(), *session)))
			return nil
		})
	}
}

// RequireAdmin must be mounted after JWTMiddleware.
func RequireAdmin(next http.Handler) router.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if !SessionFromRequest(r).IsAdmin() {
			return router.Forbidden("admin role required")
		}
		next.ServeHTTP(w, r)
		return nil
	}
}
