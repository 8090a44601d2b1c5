package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/dreamware/starlane/internal/adminapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAddrPrefersFlagOverEnv(t *testing.T) {
	adminAddr = "http://example.invalid:9"
	t.Setenv("STARLANE_ADMIN_ADDR", "http://other.invalid:9")
	assert.Equal(t, "http://example.invalid:9", resolveAddr())
}

func TestResolveAddrFallsBackToEnvWhenFlagIsDefault(t *testing.T) {
	adminAddr = "http://127.0.0.1:7891"
	t.Setenv("STARLANE_ADMIN_ADDR", "http://configured.invalid:7891")
	assert.Equal(t, "http://configured.invalid:7891", resolveAddr())
	os.Unsetenv("STARLANE_ADMIN_ADDR")
	adminAddr = "http://127.0.0.1:7891"
}

func TestNodesCommandFetchesAndRendersTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/nodes", r.URL.Path)
		adminapi.WriteJSON(w, http.StatusOK, []adminapi.NodeSummary{{Key: "alpha-core-0", LaneID: "lane-1", Forwarder: true}})
	}))
	defer server.Close()

	adminAddr = server.URL
	nodesJSON = false
	cmd := newNodesCmd()
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
}

func TestLocateCommandPostsPoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/locate", r.URL.Path)
		var req adminapi.LocateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "space:app", req.Point)
		adminapi.WriteJSON(w, http.StatusOK, adminapi.LocateResponse{Star: "space:alpha", Host: "space:alpha"})
	}))
	defer server.Close()

	adminAddr = server.URL
	cmd := newLocateCmd()
	cmd.SetArgs([]string{"space:app"})
	require.NoError(t, cmd.Execute())
}

func TestGrantCommandRequiresFlags(t *testing.T) {
	cmd := newGrantCmd()
	cmd.SetArgs(nil)
	assert.Error(t, cmd.Execute())
}
