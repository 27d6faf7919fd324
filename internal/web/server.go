package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/conorfennell/recallbox/internal/analytics"
	"github.com/conorfennell/recallbox/internal/dueset"
	"github.com/conorfennell/recallbox/internal/scheduler"
	"github.com/conorfennell/recallbox/internal/storage"
	catsync "github.com/conorfennell/recallbox/internal/sync"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	db        *storage.DB
	router    *http.ServeMux
	scheduler *scheduler.Scheduler
	dueset    *dueset.Calculator
	engine    *analytics.Engine
	syncer    *catsync.Syncer
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, sched *scheduler.Scheduler, due *dueset.Calculator, engine *analytics.Engine, syncer *catsync.Syncer) *Server {
	s := &Server{
		db:        db,
		router:    http.NewServeMux(),
		scheduler: sched,
		dueset:    due,
		engine:    engine,
		syncer:    syncer,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/api/review", s.handleRecordAnswer())
	s.router.HandleFunc("/api/due", s.handleDueItems())
	s.router.HandleFunc("/api/due/breakdown", s.handleDueBreakdown())

	s.router.HandleFunc("/api/analytics/velocity", s.handleVelocity())
	s.router.HandleFunc("/api/analytics/retention", s.handleRetention())
	s.router.HandleFunc("/api/analytics/categories", s.handleCategories())
	s.router.HandleFunc("/api/analytics/mastery", s.handleMastery())
	s.router.HandleFunc("/api/analytics/heatmap", s.handleHeatmap())

	s.router.HandleFunc("/api/sources", s.handleSources())
	s.router.HandleFunc("/api/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/api/sync", s.handlePostSync())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleRecordAnswer applies one answer attempt and returns the resulting
// level transition and next due date.
func (s *Server) handleRecordAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req scheduler.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		result, err := s.scheduler.RecordAnswer(r.Context(), req)
		if err != nil {
			if errors.Is(err, scheduler.ErrValidation) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("failed to record answer", "learner", req.LearnerID, "item", req.ItemID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to record answer, retry is safe")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func learnerParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	learner := r.URL.Query().Get("learner")
	if learner == "" {
		writeError(w, http.StatusBadRequest, "missing learner parameter")
		return "", false
	}
	return learner, true
}

func (s *Server) handleDueItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, ok := learnerParam(w, r)
		if !ok {
			return
		}
		includeOverdue := r.URL.Query().Get("includeOverdue") != "false"

		items, err := s.dueset.DueItems(r.Context(), learner, includeOverdue)
		if err != nil {
			slog.Error("failed to compute due items", "learner", learner, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to compute due items")
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) handleDueBreakdown() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, ok := learnerParam(w, r)
		if !ok {
			return
		}

		breakdown, err := s.dueset.Breakdown(r.Context(), learner)
		if err != nil {
			slog.Error("failed to compute due breakdown", "learner", learner, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to compute due breakdown")
			return
		}
		writeJSON(w, http.StatusOK, breakdown)
	}
}

// The analytics handlers never fail for missing data; the engine already
// degrades to empty results.

func (s *Server) handleVelocity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, ok := learnerParam(w, r)
		if !ok {
			return
		}
		weeks, _ := strconv.Atoi(r.URL.Query().Get("weeks"))
		writeJSON(w, http.StatusOK, s.engine.Velocity(r.Context(), learner, weeks))
	}
}

func (s *Server) handleRetention() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, ok := learnerParam(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.engine.ComputeRetention(r.Context(), learner))
	}
}

func (s *Server) handleCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, ok := learnerParam(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.engine.ComputeCategoryPerformance(r.Context(), learner))
	}
}

func (s *Server) handleMastery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, ok := learnerParam(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.engine.ComputeTimeToMastery(r.Context(), learner))
	}
}

func (s *Server) handleHeatmap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, ok := learnerParam(w, r)
		if !ok {
			return
		}
		days, _ := strconv.Atoi(r.URL.Query().Get("days"))
		writeJSON(w, http.StatusOK, s.engine.Heatmap(r.Context(), learner, days))
	}
}

// handleSources handles both GET and POST for catalog sources.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSources(w, r)
		case http.MethodPost:
			s.handlePostSource(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

type sourceView struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	LastScanned string `json:"lastScanned,omitempty"`
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetAllSources(r.Context())
	if err != nil {
		slog.Error("failed to list sources", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}
	views := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		v := sourceView{ID: src.ID, Path: src.Path, Kind: src.Kind}
		if src.LastScanned.Valid {
			v.LastScanned = src.LastScanned.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "path cannot be empty")
		return
	}

	kind := catsync.DetectKind(req.Path)
	id, err := s.db.InsertSource(r.Context(), req.Path, kind)
	if err != nil {
		slog.Error("failed to insert source", "path", req.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add source")
		return
	}
	writeJSON(w, http.StatusCreated, sourceView{ID: id, Path: req.Path, Kind: kind})
}

func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/api/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid source ID")
			return
		}

		if err := s.db.DeleteSource(r.Context(), id); err != nil {
			slog.Error("failed to delete source", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete source")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostSync runs a catalog sync in the foreground and returns the
// reconciliation report.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		report, err := s.syncer.Run(r.Context())
		if err != nil {
			slog.Error("catalog sync failed", "error", err)
			writeError(w, http.StatusInternalServerError, "catalog sync failed")
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
