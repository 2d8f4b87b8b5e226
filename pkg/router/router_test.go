package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ErrorMapper(t *testing.T) {
	router := New()

	errCustom := errors.New("custom error")
	router.RegisterErrorMapper(errCustom, func(err error) JsonError {
		return JsonError{
			Code: 400,
			Err:  err.Error(),
		}
	})
	errNotFound := errors.New("thing not found")
	router.RegisterErrorCode(errNotFound, http.StatusNotFound)

	tcs := []struct {
		name string
		err  error
		exp  JsonError
	}{
		{
			name: "registered mapper",
			err:  errCustom,
			exp:  JsonError{Code: 400, Err: "custom error"},
		},
		{
			name: "wrapped registered error",
			err:  fmt.Errorf("GetThing: %w", errNotFound),
			exp:  JsonError{Code: 404, Err: "GetThing: thing not found"},
		},
		{
			name: "unknown error",
			err:  errors.New("random error"),
			exp:  router.defaultError,
		},
		{
			name: "api error",
			err:  JsonError{Code: 400, Err: "API Error"},
			exp:  JsonError{Code: 400, Err: "API Error"},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got := router.mapError(tc.err)
			assert.Equal(t, tc.exp, got)
		})
	}
}

func TestSubRouterSharesErrorMappers(t *testing.T) {
	r := New()
	errGone := errors.New("gone")
	r.RegisterErrorCode(errGone, http.StatusGone)

	r.Route("/api", func(r *Router) {
		r.Get("/thing", func(w http.ResponseWriter, r *http.Request) error {
			return errGone
		})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/thing", nil))

	require.Equal(t, http.StatusGone, rec.Code)
	var body JsonError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, JsonError{Code: http.StatusGone, Err: "gone"}, body)
}

func TestMiddlewareError(t *testing.T) {
	r := New()
	deny := func(next http.Handler) HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			return Forbidden("denied")
		}
	}
	r.With(deny).Get("/", func(w http.ResponseWriter, r *http.Request) error {
		return WriteJSON(w, http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
