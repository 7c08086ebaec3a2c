// Package handler provides HTTP handlers for the map client control API.
package handler

import (
	"net/http"
	"time"

	"github.com/prproute/mapclient/internal/api/models"
	"github.com/prproute/mapclient/internal/api/response"
	"github.com/prproute/mapclient/internal/provider/resilience"
	"github.com/prproute/mapclient/internal/session"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	runner    Runner
	session   *session.Orchestrator
}

// OpsHandlerConfig configures an OpsHandler. Registry, Runner and Session are
// optional; status omits what is missing.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry
	Runner    Runner
	Session   *session.Orchestrator
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  cfg.Registry,
		runner:    cfg.Runner,
		session:   cfg.Session,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// SystemStatus handles GET /v1/ops/status - catalog and routing provider state.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	if h.runner != nil && h.session != nil {
		var catalog models.SubsystemStatus
		err := h.runner.Do(r.Context(), func() {
			catalog = catalogStatus(h.session.Catalog())
		})
		if err != nil {
			detail := err.Error()
			catalog = models.SubsystemStatus{Name: "session", Status: models.HealthStatusFail, Detail: &detail}
		}
		status.Subsystems = append(status.Subsystems, catalog)
	}

	if h.registry != nil {
		for _, health := range h.registry.GetAllHealth() {
			status.Providers = append(status.Providers, providerStatus(health))
		}
	}

	status.Status = overall(status)
	response.JSON(w, r, http.StatusOK, status)
}

func catalogStatus(c *session.Catalog) models.SubsystemStatus {
	s := models.SubsystemStatus{Name: "metric-catalog"}
	switch c.Status() {
	case session.CatalogReady:
		s.Status = models.HealthStatusOK
	case session.CatalogFailed:
		s.Status = models.HealthStatusFail
		if err := c.Err(); err != nil {
			detail := err.Error()
			s.Detail = &detail
		}
	default:
		s.Status = models.HealthStatusDegraded
		detail := string(c.Status())
		s.Detail = &detail
	}
	return s
}

func providerStatus(h *resilience.ProviderHealth) models.ProviderStatus {
	p := models.ProviderStatus{
		Provider:     h.Name,
		CircuitState: h.CircuitState.String(),
	}
	switch {
	case h.IsUnhealthy():
		p.Status = models.HealthStatusFail
	case h.IsDegraded():
		p.Status = models.HealthStatusDegraded
	default:
		p.Status = models.HealthStatusOK
	}
	if h.LastSuccessAt != nil {
		ts := models.Timestamp(*h.LastSuccessAt)
		p.LastSuccessAt = &ts
	}
	if h.LastFailureAt != nil {
		ts := models.Timestamp(*h.LastFailureAt)
		p.LastFailureAt = &ts
	}
	if h.LastError != "" {
		msg := h.LastError
		p.Message = &msg
	}
	return p
}

func overall(s models.SystemStatus) models.HealthStatus {
	worst := models.HealthStatusOK
	consider := func(st models.HealthStatus) {
		switch {
		case st == models.HealthStatusFail:
			worst = models.HealthStatusFail
		case st == models.HealthStatusDegraded && worst == models.HealthStatusOK:
			worst = models.HealthStatusDegraded
		}
	}
	for _, sub := range s.Subsystems {
		consider(sub.Status)
	}
	for _, p := range s.Providers {
		consider(p.Status)
	}
	return worst
}
