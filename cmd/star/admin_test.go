package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/adminapi"
	"github.com/dreamware/starlane/internal/config"
	"github.com/dreamware/starlane/internal/hyperway"
	"github.com/dreamware/starlane/internal/logging"
	"github.com/dreamware/starlane/internal/registry"
	"github.com/dreamware/starlane/internal/star"
	"github.com/dreamware/starlane/internal/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNode(t *testing.T) *node {
	t.Helper()
	self := address.NewStarKey("alpha", "core", 0)
	store := registry.NewMemory()
	adjacency := topology.NewAdjacency()
	cache := topology.NewGoldenPathCache()
	interchange := hyperway.NewInterchange(logging.Discard())
	s := star.New(star.Config{Self: self, Kind: "Space"}, store, adjacency, cache, interchange, nil, nil, star.PlanForKind, nil, nil, logging.Discard())

	return &node{
		cfg:       &config.Config{},
		log:       logging.Discard(),
		self:      self,
		store:     store,
		adjacency: adjacency,
		cache:     cache,
		star:      s,
	}
}

func TestHandleNodesListsAdjacency(t *testing.T) {
	n := testNode(t)
	peer := address.NewStarKey("alpha", "edge", 0)
	n.adjacency.Set(peer, topology.AdjacencyEntry{LaneID: "lane-1", Forwarder: true})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	n.handleNodes(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []adminapi.NodeSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "lane-1", out[0].LaneID)
	assert.True(t, out[0].Forwarder)
}

func TestHandleNodesRejectsWrongMethod(t *testing.T) {
	n := testNode(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/nodes", nil)
	n.handleNodes(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleLocateResolvesKnownParticle(t *testing.T) {
	n := testNode(t)
	point, err := address.ParsePoint("space:app")
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, n.store.Register(ctx, registry.Registration{
		Point: address.MustParsePoint("space"),
		Kind:  registry.NewKind("Space"),
		Owner: point,
	}))
	require.NoError(t, n.store.Register(ctx, registry.Registration{
		Point: point,
		Kind:  registry.NewKind("App"),
		Owner: point,
	}))
	require.NoError(t, n.store.AssignStar(ctx, point, n.self.Point()))
	require.NoError(t, n.store.AssignHost(ctx, point, n.self.Point()))

	body := adminapi.LocateRequest{Point: "space:app"}
	raw, _ := json.Marshal(body)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/locate", bytes.NewReader(raw))
	n.handleLocate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp adminapi.LocateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, n.self.Point().String(), resp.Star)
}

func TestHandleLocateReportsUnknownParticle(t *testing.T) {
	n := testNode(t)
	body := adminapi.LocateRequest{Point: "space:missing"}
	raw, _ := json.Marshal(body)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/locate", bytes.NewReader(raw))
	n.handleLocate(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleWrangleAccepts(t *testing.T) {
	n := testNode(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wrangle", nil)
	n.handleWrangle(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandleGrantRejectsBadSelector(t *testing.T) {
	n := testNode(t)
	body := adminapi.GrantRequest{On: "", To: "space:app", Privilege: "*", By: "space:app"}
	raw, _ := json.Marshal(body)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/grant", bytes.NewReader(raw))
	n.handleGrant(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGrantRecordsValidGrant(t *testing.T) {
	n := testNode(t)
	body := adminapi.GrantRequest{On: "space:app", To: "space:app", Privilege: "*", By: "space:app"}
	raw, _ := json.Marshal(body)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/grant", bytes.NewReader(raw))
	n.handleGrant(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAdminServerServesHealth(t *testing.T) {
	n := testNode(t)
	n.cfg.Admin.ListenAddr = "127.0.0.1:0"
	srv := n.adminServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
