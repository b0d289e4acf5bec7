package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"linkhealth/internal/models"
	"linkhealth/internal/monitor"
	"linkhealth/internal/storage"
)

// Handlers holds dependencies for the API handlers.
type Handlers struct {
	service *monitor.Service
	logger  *zap.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(service *monitor.Service, logger *zap.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeError maps service errors onto HTTP status codes.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, monitor.ErrNotMonitored):
		http.Error(w, "link is not monitored", http.StatusNotFound)
	case errors.Is(err, monitor.ErrAlertNotFound):
		http.Error(w, "alert not found", http.StatusNotFound)
	case errors.Is(err, monitor.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("request failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// EnableMonitoring handles enabling (or re-configuring) monitoring for a link.
func (h *Handlers) EnableMonitoring(w http.ResponseWriter, r *http.Request) {
	linkID := r.PathValue("link_id")

	var reqBody struct {
		DestinationURL string           `json:"destination_url"`
		Settings       *models.Settings `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record, created, err := h.service.EnableMonitoring(r.Context(), linkID, reqBody.DestinationURL, reqBody.Settings)
	if err != nil {
		h.writeError(w, err)
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}
	h.writeJSON(w, statusCode, record)
}

// DisableMonitoring handles turning monitoring off. The record is retained.
func (h *Handlers) DisableMonitoring(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DisableMonitoring(r.Context(), r.PathValue("link_id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TriggerCheck handles an on-demand probe of one link.
func (h *Handlers) TriggerCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.TriggerCheck(r.Context(), r.PathValue("link_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// GetStatus handles the per-link status report.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetStatus(r.Context(), r.PathValue("link_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// ListMonitored handles listing health records for a set of link ids.
func (h *Handlers) ListMonitored(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var linkIDs []string
	for _, raw := range strings.Split(q.Get("ids"), ",") {
		if id := strings.TrimSpace(raw); id != "" {
			linkIDs = append(linkIDs, id)
		}
	}

	filter := storage.HealthFilter(q.Get("status"))
	records, err := h.service.ListMonitored(r.Context(), linkIDs, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if records == nil {
		records = []models.HealthRecord{}
	}

	resp := struct {
		Items []models.HealthRecord `json:"items"`
	}{Items: records}
	h.writeJSON(w, http.StatusOK, resp)
}

// AcknowledgeAlert handles acknowledging one alert by id.
func (h *Handlers) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	err := h.service.AcknowledgeAlert(r.Context(), r.PathValue("link_id"), r.PathValue("alert_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Healthz is a simple health check endpoint.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
