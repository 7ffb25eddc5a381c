package pricer

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/store"
)

// Routes mounts the task API onto a chi router.
func (s *Service) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", s.handleCreateTask)
		r.Get("/tasks", s.handleListTasks)
		r.Get("/tasks/{id}", s.handleGetTask)
		r.Post("/tasks/{id}/cancel", s.handleCancelTask)
		r.Get("/article-brands", s.handleArticleBrands)
		r.Get("/price-history", s.handlePriceHistory)
	})
	r.Get("/healthz", s.handleHealthz)
}

type createTaskRequest struct {
	PartNumber  string `json:"partnumber"`
	SearchBrand string `json:"search_brand"`
}

func (s *Service) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	req.PartNumber = strings.TrimSpace(req.PartNumber)
	if req.PartNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "partnumber is required"})
		return
	}

	task := &store.Task{
		PartNumber:  req.PartNumber,
		SearchBrand: strings.TrimSpace(req.SearchBrand),
	}
	if err := s.store.CreateTask(r.Context(), task); err != nil {
		s.log.Error("api: create task failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "create failed"})
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Service) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.Context())
	if err != nil {
		s.log.Error("api: list tasks failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list failed"})
		return
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Service) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.log.Error("api: get task failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Service) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.CancelTask(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "cancelled"})
	case errors.Is(err, sql.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
	case errors.Is(err, store.ErrNotCancellable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task already finished"})
	default:
		s.log.Error("api: cancel task failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cancel failed"})
	}
}

// handleArticleBrands lists the distinct brands past searches resolved for
// a part number, so a client can offer a brand picker before re-searching.
func (s *Service) handleArticleBrands(w http.ResponseWriter, r *http.Request) {
	partnumber := strings.TrimSpace(r.URL.Query().Get("partnumber"))
	if partnumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "partnumber is required"})
		return
	}
	brands, err := s.store.DistinctBrands(r.Context(), partnumber)
	if err != nil {
		s.log.Error("api: brand lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}
	if brands == nil {
		brands = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"partnumber": partnumber, "brands": brands})
}

func (s *Service) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	partnumber := strings.TrimSpace(r.URL.Query().Get("partnumber"))
	if partnumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "partnumber is required"})
		return
	}
	entries, err := s.store.ListPriceHistory(r.Context(), partnumber)
	if err != nil {
		s.log.Error("api: history lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}
	if entries == nil {
		entries = []*store.PriceHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DB.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
