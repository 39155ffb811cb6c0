package v1

import (
	"fmt"

	"github.com/labstack/echo/v4"

	apperrors "github.com/poly000/tg-google-meet-bot/server/internal/errors"
	"github.com/poly000/tg-google-meet-bot/server/internal/observability"
)

const principalIDContextKey = "principal_id"

// requestContextMiddleware attaches an HTTP request context to every request.
// An incoming X-Request-Id header is kept.
func (s *APIV1Service) requestContextMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var rc *observability.RequestContext
		if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
			rc = observability.NewRequestContextWithID(s.Logger, id, observability.ChannelHTTP, 0)
		} else {
			rc = observability.NewRequestContext(s.Logger, observability.ChannelHTTP, 0)
		}
		c.Response().Header().Set(echo.HeaderXRequestID, rc.RequestID)
		c.SetRequest(c.Request().WithContext(observability.WithRequestContext(c.Request().Context(), rc)))

		err := next(c)
		rc.Debug("request served")
		return err
	}
}

func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principalID, err := s.Authenticator.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return writeError(c, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "authentication required"))
		}
		setPrincipal(c, principalID)
		return next(c)
	}
}

func (s *APIV1Service) rateLimitByPrincipal(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principalID, _ := c.Get(principalIDContextKey).(int64)
		if !s.RateLimiter.AllowPrincipal(principalID) {
			return writeError(c, apperrors.RateLimitExceeded(fmt.Sprintf("too many requests for principal %d", principalID)))
		}
		return next(c)
	}
}

func (s *APIV1Service) rateLimitByIP(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.RateLimiter.Allow("ip:" + c.RealIP()) {
			return writeError(c, apperrors.RateLimitExceeded("too many requests"))
		}
		return next(c)
	}
}

// setPrincipal records the authenticated principal on the echo and request contexts.
func setPrincipal(c echo.Context, principalID int64) {
	c.Set(principalIDContextKey, principalID)
	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		rc.PrincipalID = principalID
	}
}
