package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mindfusion/backend/services/audit"
	"github.com/mindfusion/backend/services/providers"
	"github.com/mindfusion/backend/utils"
)

// LivenessMessage is returned by GET /
const LivenessMessage = "MindFusion backend is live"

// HealthChecker verifies a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ProviderLister exposes the configured provider table
type ProviderLister interface {
	Specs() []providers.Spec
}

// AuditStatsReporter reports the state of the outcome trail writer
type AuditStatsReporter interface {
	GetStats() audit.Stats
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProviderInfo is the public view of one provider. Credentials are reduced
// to a presence flag.
type ProviderInfo struct {
	ID            string         `json:"id"`
	Label         string         `json:"label"`
	Kind          providers.Kind `json:"kind"`
	Model         string         `json:"model"`
	TrustWeight   int            `json:"trust_weight"`
	HasCredential bool           `json:"has_credential"`
}

// HealthHandler handles liveness, readiness and provider listing
type HealthHandler struct {
	db        HealthChecker
	providers ProviderLister
	audit     AuditStatsReporter
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil when no
// database is configured.
func NewHealthHandler(db HealthChecker, providers ProviderLister, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		providers: providers,
		logger:    logger,
	}
}

// WithAudit adds the outcome trail writer to readiness checks
func (h *HealthHandler) WithAudit(a AuditStatsReporter) *HealthHandler {
	h.audit = a
	return h
}

// HandleRoot handles GET /
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, utils.MessageResponse{Message: LivenessMessage})
}

// HandleHealth handles GET /healthz
// Always returns 200 if the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	credentialed := 0
	for _, s := range h.providers.Specs() {
		if s.HasCredential() {
			credentialed++
		}
	}
	if credentialed == 0 {
		checks["providers"] = "no_credentials"
		ready = false
	} else {
		checks["providers"] = "configured"
	}

	switch {
	case h.db == nil:
		checks["database"] = "disabled"
	case h.db.HealthCheck(ctx) != nil:
		h.logger.Warn("database health check failed")
		checks["database"] = "unhealthy"
		ready = false
	default:
		checks["database"] = "healthy"
	}

	if h.audit == nil {
		checks["audit"] = "disabled"
	} else {
		stats := h.audit.GetStats()
		switch {
		case !stats.Started:
			checks["audit"] = "stopped"
			ready = false
		case stats.BufferSize > 0 && stats.PendingEvents >= stats.BufferSize:
			h.logger.Warn("audit buffer full", zap.Int("pending_events", stats.PendingEvents))
			checks["audit"] = "backlogged"
		default:
			checks["audit"] = "running"
		}
	}

	status, httpStatus := "ready", http.StatusOK
	if !ready {
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	}

	if err := utils.WriteJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// HandleProviders handles GET /api/providers
func (h *HealthHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	specs := h.providers.Specs()
	infos := make([]ProviderInfo, 0, len(specs))
	for _, s := range specs {
		infos = append(infos, ProviderInfo{
			ID:            s.ID,
			Label:         s.DisplayLabel(),
			Kind:          s.Kind,
			Model:         s.Model,
			TrustWeight:   s.TrustWeight,
			HasCredential: s.HasCredential(),
		})
	}
	_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"providers": infos})
}
