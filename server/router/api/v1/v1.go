package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/poly000/tg-google-meet-bot/internal/profile"
	"github.com/poly000/tg-google-meet-bot/server/auth"
	ratelimit "github.com/poly000/tg-google-meet-bot/server/middleware"
	"github.com/poly000/tg-google-meet-bot/server/internal/observability"
	"github.com/poly000/tg-google-meet-bot/server/service/meeting"
)

type APIV1Service struct {
	Profile        *profile.Profile
	MeetingService meeting.Service
	Authenticator  *auth.Authenticator
	RateLimiter    *ratelimit.RateLimiter
	Metrics        *observability.Metrics
	Logger         *slog.Logger
}

func NewAPIV1Service(p *profile.Profile, meetingService meeting.Service, authenticator *auth.Authenticator, limiter *ratelimit.RateLimiter) *APIV1Service {
	if limiter == nil {
		limiter = ratelimit.NewRateLimiter(p.RateLimitPerMinute, p.RateLimitBurst)
	}
	return &APIV1Service{
		Profile:        p,
		MeetingService: meetingService,
		Authenticator:  authenticator,
		RateLimiter:    limiter,
		Metrics:        observability.GlobalMetrics(),
		Logger:         slog.Default(),
	}
}

// RegisterRoutes registers the health check and the /api/v1 endpoints.
// Meeting endpoints are only registered when an authenticator is configured.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.GET("/healthz", s.GetHealth)

	api := echoServer.Group("/api/v1", middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}), s.requestContextMiddleware)

	api.POST("/time/resolve", s.ResolveTime, s.rateLimitByIP)

	if s.Authenticator == nil {
		s.Logger.Warn("no jwt secret configured, meeting endpoints disabled")
		return
	}
	meetings := api.Group("/meetings", s.authMiddleware, s.rateLimitByPrincipal)
	meetings.POST("", s.CreateMeeting)
	meetings.GET("", s.ListMeetings)
}
