package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kirillkom/complaints-api/internal/config"
	"github.com/kirillkom/complaints-api/internal/core/ports"
	"github.com/kirillkom/complaints-api/internal/observability/metrics"
)

const serviceName = "complaints-api"

type Router struct {
	config  config.Config
	intake  ports.ComplaintIntake
	triage  ports.ComplaintTriage
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	intake ports.ComplaintIntake,
	triage ports.ComplaintTriage,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		config:  cfg,
		intake:  intake,
		triage:  triage,
		metrics: httpMetrics,
	}
}

// Handler assembles routes and middleware. It fails only when the embedded
// OpenAPI document cannot be loaded.
func (rt *Router) Handler() (http.Handler, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /complaints", rt.createComplaint)
	mux.HandleFunc("GET /complaints/new", rt.listNewComplaints)
	mux.HandleFunc("GET /complaints/export.xlsx", rt.exportComplaints)
	mux.HandleFunc("PATCH /complaints/{id}/close", rt.closeComplaint)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPI)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.config.APIValidateRequests {
		validator, err := newRequestValidator(context.Background())
		if err != nil {
			return nil, fmt.Errorf("init request validation: %w", err)
		}
		handler = validator.middleware(handler)
	}
	if rt.config.APIMaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.config.APIMaxInFlight, defaultBackpressureWait)
	}
	if rt.config.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.config.APIRateLimitRPS, rt.config.APIRateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler, nil
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openAPISpec)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
