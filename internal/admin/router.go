// Package admin serves the operator HTTP surface: metrics, health and a
// read-only view of the service journal.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andy6609/helpcentre-queue/internal/journal"
)

// Journal is the part of journal.Store the router reads from.
type Journal interface {
	Recent(ctx context.Context, limit int) ([]journal.Record, error)
	CourseSummary(ctx context.Context, code string) (journal.Summary, error)
	Ping(ctx context.Context) error
}

const maxRecent = 500

type handler struct {
	journal Journal
	logger  *slog.Logger
}

// NewRouter builds the admin routes. A nil journal leaves the /journal routes
// unregistered; a nil gatherer uses the default prometheus registry.
func NewRouter(j Journal, gatherer prometheus.Gatherer, logger *slog.Logger) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	h := &handler{journal: j, logger: logger}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	if j != nil {
		r.HandleFunc("/journal/recent", h.recent).Methods(http.MethodGet)
		r.HandleFunc("/journal/courses/{code}", h.courseSummary).Methods(http.MethodGet)
	}
	return r
}

// NewServer wraps router in an http.Server with conservative timeouts.
func NewServer(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.journal != nil {
		if err := h.journal.Ping(r.Context()); err != nil {
			h.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) recent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecent)
	}

	recs, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("journal recent", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *handler) courseSummary(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	sum, err := h.journal.CourseSummary(r.Context(), code)
	if err != nil {
		h.logger.Error("journal summary", "course", code, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
