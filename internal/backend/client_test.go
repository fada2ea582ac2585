package backend

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient points a real client at an httptest server.
func newTestClient(t *testing.T, version APIVersion, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientOptions{
		BaseURL: server.URL,
		Version: version,
		Tokens:  NewAccessTokenSource("test-token"),
	})
}
