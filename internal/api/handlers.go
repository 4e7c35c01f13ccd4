package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/FieldOps/internal/diagnostics"
	"github.com/BTreeMap/FieldOps/internal/engine"
	"github.com/BTreeMap/FieldOps/internal/models"
)

// StateView is the result of GET /v1/state and of every dispatching endpoint.
type StateView struct {
	Name   string            `json:"name"`
	Flow   string            `json:"flow,omitempty"`
	Fields map[string]string `json:"fields"`
}

func newStateView(s models.AppState) StateView {
	v := StateView{Name: models.StateName(s), Fields: diagnostics.Render(s)}
	if op, ok := s.(models.Operational); ok {
		v.Flow = models.FlowName(op.Flow)
	}
	return v
}

// DeepLinkRequest is the body of POST /v1/deeplinks.
type DeepLinkRequest struct {
	URL string `json:"url"`
}

// dispatch reduces a and writes the resulting state.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, handler string, a models.Action) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	state, err := s.engine.Dispatch(ctx, a)
	switch {
	case errors.Is(err, engine.ErrStopped):
		slog.Warn("Server."+handler+": engine stopped", "action", models.ActionName(a))
		writeJSONResponse(w, http.StatusServiceUnavailable, failure("Engine is not running"))
		return
	case err != nil:
		slog.Error("Server."+handler+": dispatch failed", "action", models.ActionName(a), "error", err)
		writeJSONResponse(w, http.StatusGatewayTimeout, failure("Action was not processed in time"))
		return
	}
	slog.Debug("Server."+handler+": action reduced", "action", models.ActionName(a), "state", models.StateName(state))
	writeJSONResponse(w, http.StatusOK, success(newStateView(state)))
}

// actionHandler serves a POST endpoint that dispatches a fixed action.
func (s *Server) actionHandler(name string, a models.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		s.dispatch(w, r, name, a)
	}
}

func (s *Server) deepLinkHandler(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	defer r.Body.Close()
	var req DeepLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.deepLinkHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, failure("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSONResponse(w, http.StatusBadRequest, failure("Missing required field: url"))
		return
	}
	s.dispatch(w, r, "deepLinkHandler", models.DeepLinkOpened{URL: req.URL})
}

func (s *Server) actionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSONResponse(w, http.StatusOK, success(InputActionNames()))
		return
	}
	if !allow(w, r, http.MethodPost) {
		return
	}
	defer r.Body.Close()
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.actionsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, failure("Invalid JSON format"))
		return
	}
	a, err := DecodeAction(req)
	if err != nil {
		slog.Warn("Server.actionsHandler: rejected action", "type", req.Type, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, failure(err.Error()))
		return
	}
	s.dispatch(w, r, "actionsHandler", a)
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, success(newStateView(s.engine.State())))
}

func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if s.opts.Persistence == nil {
		writeJSONResponse(w, http.StatusNotFound, failure("Persistence is not configured"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()
	saved, err := s.opts.Persistence.LoadState(ctx)
	if err != nil {
		slog.Error("Server.snapshotHandler: failed to load snapshot", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, failure("Failed to load snapshot"))
		return
	}
	snapshot, ok := saved.Get()
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, failure("No snapshot saved"))
		return
	}
	writeJSONResponse(w, http.StatusOK, success(snapshot))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"state":     models.StateName(s.engine.State()),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
