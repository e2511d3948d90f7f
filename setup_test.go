package ghprofile

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// newTestClient points a client with a fast retry schedule at a fake GitHub.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Config{
		ClientID:     "clientID",
		ClientSecret: "clientSecret",
		RedirectURL:  "https://example.com/auth/github/callback",
		Scope:        "read:user user:email",
	}, WithBackoff(time.Millisecond, 50*time.Millisecond))
	client.apiBase = server.URL
	client.endpoint = oauth2.Endpoint{
		AuthURL:  server.URL + "/login/oauth/authorize",
		TokenURL: server.URL + "/login/oauth/access_token",
	}
	return client, server
}

// countingHandler wraps a handler and counts the requests it serves.
type countingHandler struct {
	calls   atomic.Int32
	handler http.HandlerFunc
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls.Add(1)
	h.handler(w, r)
}
