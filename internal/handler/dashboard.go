package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hostwatch/hostwatch/internal/model"
)

// Dashboard is the read side the dashboard endpoints serve.
// *monitor.Monitor satisfies it.
type Dashboard interface {
	System(ctx context.Context) (*model.SystemInfo, error)
	Docker(ctx context.Context) (*model.DockerReport, error)
	Services(ctx context.Context) (*model.ServicesReport, error)
	Firebird(ctx context.Context) (*model.FirebirdStatus, error)
	Tunnel(ctx context.Context) (*model.TunnelStatus, error)
	TrafficReport(ctx context.Context) (*model.TrafficReport, error)
}

// DashboardHandler serves the host and container status endpoints.
type DashboardHandler struct {
	dash   Dashboard
	logger *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dash Dashboard, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dash: dash, logger: logger}
}

// serve runs fetch and writes its result, or the collector error.
func serve[T any](h *DashboardHandler, w http.ResponseWriter, r *http.Request, fetch func(context.Context) (T, error), failure string) {
	v, err := fetch(r.Context())
	if err != nil {
		writeCollectorError(w, h.logger, err, failure)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// System reports CPU, memory, disk and uptime.
// GET /api/system
func (h *DashboardHandler) System(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.dash.System, "Failed to read host metrics")
}

// Docker lists every container.
// GET /api/docker
func (h *DashboardHandler) Docker(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.dash.Docker, "Failed to read Docker containers")
}

// Services reports the watched containers' running state.
// GET /api/services
func (h *DashboardHandler) Services(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.dash.Services, "Failed to read service status")
}

// Firebird reports the database container.
// GET /api/firebird
func (h *DashboardHandler) Firebird(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.dash.Firebird, "Failed to read Firebird status")
}

// Tunnel reports the tunnel connector container.
// GET /api/tunnel
func (h *DashboardHandler) Tunnel(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.dash.Tunnel, "Failed to read tunnel status")
}

// Traffic reports per-container and per-application network rates.
// GET /api/traffic
func (h *DashboardHandler) Traffic(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.dash.TrafficReport, "Failed to read container traffic")
}
