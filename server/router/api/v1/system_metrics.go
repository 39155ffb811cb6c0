package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/poly000/tg-google-meet-bot/server/internal/observability"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status      string                         `json:"status"`
	Version     string                         `json:"version"`
	SuccessRate float64                        `json:"success_rate"`
	Metrics     *observability.MetricsSnapshot `json:"metrics"`
}

// GetHealth reports liveness together with the request counters.
// GET /healthz
func (s *APIV1Service) GetHealth(c echo.Context) error {
	snapshot := s.Metrics.Snapshot()
	return c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		Version:     s.Profile.Version,
		SuccessRate: snapshot.SuccessRate(),
		Metrics:     snapshot,
	})
}
