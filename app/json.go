package projecthub

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/putto11262002/projecthub/pkg/router"
)

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return router.BadRequest("invalid request body")
	}
	return nil
}

// queryInt parses an optional non negative integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, router.BadRequest(key + " must be a non negative integer")
	}
	return n, nil
}

func paging(r *http.Request) (offset, limit int, err error) {
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}

// emptyIfNil keeps list responses encoded as [] instead of null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
