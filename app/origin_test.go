package projecthub

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginChecker(t *testing.T) {
	testCases := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "wildcard", allowed: []string{"*"}, origin: "https://evil.example.com", want: true},
		{name: "listed", allowed: []string{"https://app.example.com/"}, origin: "https://app.example.com", want: true},
		{name: "case insensitive", allowed: []string{"https://App.example.com"}, origin: "https://app.example.com", want: true},
		{name: "not listed", allowed: []string{"https://app.example.com"}, origin: "https://evil.example.com", want: false},
		{name: "no origin", allowed: []string{"https://app.example.com"}, origin: "", want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws/chat/general", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			assert.Equal(t, tc.want, originChecker(tc.allowed)(r))
		})
	}
}
