// Package api exposes the statistics service over HTTP.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/partystat/internal/config"
	"github.com/kalambet/partystat/internal/metrics"
	"github.com/kalambet/partystat/internal/oplog"
	"github.com/kalambet/partystat/internal/report"
	"github.com/kalambet/partystat/internal/roster"
	"github.com/kalambet/partystat/internal/session"
	"github.com/kalambet/partystat/internal/storage"
)

// AppDeps carries everything the handlers close over.
type AppDeps struct {
	Store    *storage.Store
	Ingestor *roster.Ingestor
	Exporter *report.Exporter
	Importer *report.Importer
	Log      *oplog.Log
	Sessions *session.Manager
	Upload   config.UploadConfig
	Metrics  *metrics.Metrics
	Version  string
}

type handler struct {
	deps AppDeps
	agg  *roster.Aggregator
}

// NewHandler returns the API router. The caller mounts it under the
// configured base path.
func NewHandler(deps AppDeps) http.Handler {
	h := &handler{deps: deps, agg: roster.NewAggregator(deps.Store)}

	r := chi.NewRouter()
	if deps.Metrics != nil {
		r.Use(requestTimer(deps.Metrics))
	}

	r.Get("/health", h.handleHealth)
	r.Post("/auth/admin", h.handleAdminLogin)
	r.Get("/units", h.handleGetUnits)
	r.Post("/units", h.handleSetUnits)
	r.Post("/data/upload", h.handleUpload)
	r.Get("/data/summary", h.handleSummary)
	r.Get("/data/unit/{unit}", h.handleUnitDetail)

	r.Group(func(r chi.Router) {
		r.Use(AdminAuth(deps.Sessions))
		r.Get("/data/export", h.handleExport)
		r.Post("/data/import", h.handleImport)
		r.Delete("/data/unit/{unit}", h.handleDeleteUnit)
		r.Get("/admin/operations", h.handleOperations)
		r.Delete("/auth/admin", h.handleAdminLogout)
	})

	return r
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.deps.Version,
		"services": map[string]string{
			"database": "file-based",
			"storage":  "local",
		},
	})
}

func (h *handler) handleOperations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= oplog.MaxEntries {
			limit = v
		}
	}

	entries, err := h.deps.Log.Recent(r.Context(), limit)
	if err != nil {
		httpError(w, http.StatusInternalServerError, errStorage, "读取操作日志失败: %v", err)
		return
	}
	if entries == nil {
		entries = []oplog.Entry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": entries})
}

// requestTimer records method/status latency for every API request.
func requestTimer(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.Requests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// clientIP is the actor identity recorded in the operation log.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
