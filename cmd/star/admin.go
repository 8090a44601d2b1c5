package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/adminapi"
	"github.com/dreamware/starlane/internal/registry"
)

var errMethodNotAllowed = errors.New("method not allowed")

// adminServer exposes a loopback-only HTTP surface for starctl: one
// mux, one narrow handler per concern.
func (n *node) adminServer() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/nodes", n.handleNodes)
	mux.HandleFunc("/locate", n.handleLocate)
	mux.HandleFunc("/wrangle", n.handleWrangle)
	mux.HandleFunc("/grant", n.handleGrant)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &http.Server{
		Addr:              n.cfg.Admin.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (n *node) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		adminapi.WriteError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	snapshot := n.adjacency.Snapshot()
	out := make([]adminapi.NodeSummary, 0, len(snapshot))
	for key, entry := range snapshot {
		out = append(out, adminapi.NodeSummary{Key: key, LaneID: entry.LaneID, Forwarder: entry.Forwarder})
	}
	adminapi.WriteJSON(w, http.StatusOK, out)
}

func (n *node) handleLocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		adminapi.WriteError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	var req adminapi.LocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		adminapi.WriteError(w, http.StatusBadRequest, err)
		return
	}
	point, err := address.ParsePoint(req.Point)
	if err != nil {
		adminapi.WriteError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := n.store.Record(r.Context(), point)
	if err != nil {
		adminapi.WriteError(w, http.StatusNotFound, err)
		return
	}
	adminapi.WriteJSON(w, http.StatusOK, adminapi.LocateResponse{
		Star: rec.Location.Star.String(),
		Host: rec.Location.Host.String(),
	})
}

func (n *node) handleWrangle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		adminapi.WriteError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	n.star.Wrangle()
	adminapi.WriteJSON(w, http.StatusAccepted, adminapi.Ack{OK: true})
}

func (n *node) handleGrant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		adminapi.WriteError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	var req adminapi.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		adminapi.WriteError(w, http.StatusBadRequest, err)
		return
	}
	onSel, err := registry.ParseSelector(req.On)
	if err != nil {
		adminapi.WriteError(w, http.StatusBadRequest, err)
		return
	}
	toSel, err := registry.ParseSelector(req.To)
	if err != nil {
		adminapi.WriteError(w, http.StatusBadRequest, err)
		return
	}
	by, err := address.ParsePoint(req.By)
	if err != nil {
		adminapi.WriteError(w, http.StatusBadRequest, err)
		return
	}
	grant := registry.AccessGrant{
		Kind:       registry.GrantPrivilege,
		Privilege:  req.Privilege,
		OnPoint:    onSel,
		ToPoint:    toSel,
		ByParticle: by,
	}
	if err := n.store.Grant(r.Context(), grant); err != nil {
		adminapi.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	adminapi.WriteJSON(w, http.StatusCreated, adminapi.Ack{OK: true})
}
