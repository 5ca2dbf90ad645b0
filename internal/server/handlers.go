package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jfowler-cloud/scaffold-ai/internal/blueprint"
	"github.com/jfowler-cloud/scaffold-ai/internal/codegen"
	"github.com/jfowler-cloud/scaffold-ai/internal/core"
	"github.com/jfowler-cloud/scaffold-ai/internal/cost"
	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
	"github.com/jfowler-cloud/scaffold-ai/internal/security"
	"github.com/jfowler-cloud/scaffold-ai/internal/store"
	"github.com/jfowler-cloud/scaffold-ai/internal/workflow"
)

var (
	errUnavailable = errors.New("service not configured")
	errBadRequest  = errors.New("bad request")
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, blueprint.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, codegen.ErrUnknownDialect), errors.Is(err, graph.ErrInvalidEdge),
		errors.As(err, &syntax), errors.As(err, &typeErr), errors.Is(err, errBadRequest), errors.Is(err, io.EOF):
		status = http.StatusBadRequest
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, errUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

type graphRequest struct {
	Graph *graph.Graph `json:"graph"`
}

// decodeGraph accepts {"graph": {...}} or a bare graph document.
func decodeGraph(w http.ResponseWriter, r *http.Request) (*graph.Graph, error) {
	var raw json.RawMessage
	if err := decode(w, r, &raw); err != nil {
		return nil, err
	}
	var wrapped graphRequest
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Graph != nil {
		return wrapped.Graph, nil
	}
	g := graph.New()
	if err := json.Unmarshal(raw, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req workflow.Request
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Message == "" {
		s.writeError(w, fmt.Errorf("%w: message is required", errBadRequest))
		return
	}
	if req.Dialect == "" {
		req.Dialect = s.cfg.Dialect
	}
	st, err := s.cfg.Engine.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) review(w http.ResponseWriter, r *http.Request) {
	g, err := decodeGraph(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, security.ReviewGraph(g))
}

type fixResponse struct {
	Graph   *graph.Graph   `json:"graph"`
	Changes []string       `json:"changes"`
	Before  security.Score `json:"scoreBefore"`
	After   security.Score `json:"scoreAfter"`
}

func (s *Server) fix(w http.ResponseWriter, r *http.Request) {
	g, err := decodeGraph(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	fixed, changes := security.AnalyzeAndFix(g)
	writeJSON(w, http.StatusOK, fixResponse{
		Graph:   fixed,
		Changes: changes,
		Before:  security.SecurityScore(g),
		After:   security.SecurityScore(fixed),
	})
}

func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	g, err := decodeGraph(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, security.SecurityScore(g))
}

type generateRequest struct {
	Graph   *graph.Graph `json:"graph"`
	Dialect string       `json:"dialect"`
}

type generateResponse struct {
	Files    []codegen.File    `json:"files"`
	Failures []codegen.Failure `json:"failures,omitempty"`
}

// generate renders without the security gate; the chat endpoint applies it.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Graph == nil {
		req.Graph = graph.New()
	}
	dialect := req.Dialect
	if dialect == "" {
		dialect = s.cfg.Dialect
	}
	if dialect == "" {
		dialect = codegen.DialectCDK
	}
	ctx := core.WithLogger(r.Context(), s.logger)
	files, failures := s.cfg.Renderers.RenderChain(ctx, req.Graph, dialect, codegen.DialectFrontend)
	if files == nil {
		files = []codegen.File{}
	}
	writeJSON(w, http.StatusOK, generateResponse{Files: files, Failures: failures})
}

type costResponse struct {
	cost.Estimate
	Tips []string `json:"tips"`
}

func (s *Server) estimateCost(w http.ResponseWriter, r *http.Request) {
	g, err := decodeGraph(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, costResponse{Estimate: cost.EstimateGraph(g), Tips: cost.Tips(g)})
}

func (s *Server) listBlueprints(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Catalog == nil {
		s.writeError(w, errUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Catalog.List())
}

func (s *Server) getBlueprint(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Catalog == nil {
		s.writeError(w, errUnavailable)
		return
	}
	bp, err := s.cfg.Catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bp)
}

type shareRequest struct {
	Graph *graph.Graph `json:"graph"`
	Title string       `json:"title"`
}

func (s *Server) createShare(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Sharing == nil {
		s.writeError(w, errUnavailable)
		return
	}
	var req shareRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	id, err := s.cfg.Sharing.Create(r.Context(), req.Graph, req.Title)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) listShares(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Sharing == nil {
		s.writeError(w, errUnavailable)
		return
	}
	list, err := s.cfg.Sharing.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getShare(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Sharing == nil {
		s.writeError(w, errUnavailable)
		return
	}
	sh, err := s.cfg.Sharing.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

type historyResponse struct {
	History     []store.Point     `json:"history"`
	Improvement store.Improvement `json:"improvement"`
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		s.writeError(w, errUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	points, err := s.cfg.History.History(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	imp, err := s.cfg.History.Improvement(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{History: points, Improvement: imp})
}

// recordHistory reviews the posted graph and records its score.
func (s *Server) recordHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		s.writeError(w, errUnavailable)
		return
	}
	g, err := decodeGraph(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rv := security.ReviewGraph(g)
	p, err := s.cfg.History.Record(r.Context(), chi.URLParam(r, "id"), rv.Score, rv.Issues())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
