package ipam

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/infraforge/infraforge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.IPAMConfig{URL: server.URL, AppID: "infraforge", Token: "tok"})
}

func TestSearchIP_Found(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/infraforge/addresses/search/10.0.5.20/", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("token"))
		fmt.Fprint(w, `{"success":true,"data":[{"hostname":"db-01.example.net","description":"primary database"}]}`)
	})

	addr, err := client.SearchIP(context.Background(), "10.0.5.20")
	require.NoError(t, err)
	require.NotNil(t, addr)
	assert.Equal(t, "db-01.example.net", addr.Hostname)
	assert.Equal(t, "primary database", addr.Description)
}

func TestSearchIP_NotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"success":false}`, http.StatusNotFound)
	})

	addr, err := client.SearchIP(context.Background(), "10.0.5.99")
	require.NoError(t, err)
	assert.Nil(t, addr)
}

func TestSearchIP_ServerError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.SearchIP(context.Background(), "10.0.5.20")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10.0.5.20")
}
