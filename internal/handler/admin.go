package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/nathanyu/order-fanout/internal/fanout"
	"github.com/nathanyu/order-fanout/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// ReportSource exposes the most recent fanout report.
type ReportSource interface {
	Latest() (fanout.Report, bool)
	Names() []string
}

// AdminHandler serves the generator's health, metrics and report endpoints.
type AdminHandler struct {
	reports ReportSource
}

func NewAdminHandler(reports ReportSource) *AdminHandler {
	return &AdminHandler{reports: reports}
}

// Router builds the admin router.
func (h *AdminHandler) Router(serviceName string) *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(middleware.HTTPMetrics)
	api.HandleFunc("/reports/latest", h.LatestReport).Methods("GET")
	return r
}

func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stores": h.reports.Names(),
	})
}

// LatestReport handles GET /v1/reports/latest.
func (h *AdminHandler) LatestReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.reports.Latest()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no order generated yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
