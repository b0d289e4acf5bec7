package api

import (
	"net/http"

	"go.uber.org/zap"

	"linkhealth/internal/monitor"
)

// NewRouter creates a new http.ServeMux and registers the API handlers.
func NewRouter(service *monitor.Service, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	h := NewHandlers(service, logger)

	mux.HandleFunc("GET /v1/links/health", h.ListMonitored)
	mux.HandleFunc("POST /v1/links/{link_id}/monitor", h.EnableMonitoring)
	mux.HandleFunc("DELETE /v1/links/{link_id}/monitor", h.DisableMonitoring)
	mux.HandleFunc("POST /v1/links/{link_id}/check", h.TriggerCheck)
	mux.HandleFunc("GET /v1/links/{link_id}/health", h.GetStatus)
	mux.HandleFunc("POST /v1/links/{link_id}/alerts/{alert_id}/ack", h.AcknowledgeAlert)
	mux.HandleFunc("GET /healthz", h.Healthz)

	return mux
}
