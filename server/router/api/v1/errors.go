package v1

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/poly000/tg-google-meet-bot/plugin/gcal"
	apperrors "github.com/poly000/tg-google-meet-bot/server/internal/errors"
	"github.com/poly000/tg-google-meet-bot/server/internal/observability"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code      apperrors.ErrorCode `json:"code"`
	Message   string              `json:"message"`
	RequestID string              `json:"request_id,omitempty"`
	// RemoteStatus is the calendar provider's status code on REMOTE_REJECTED.
	RemoteStatus int `json:"remote_status,omitempty"`
}

func writeError(c echo.Context, err error) error {
	code := apperrors.Classify(err)
	resp := ErrorResponse{
		Code:    code,
		Message: apperrors.UserMessage(err),
	}
	var rejected *gcal.RejectedError
	if errors.As(err, &rejected) {
		resp.RemoteStatus = rejected.StatusCode
	}

	status := apperrors.HTTPStatus(code)
	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		resp.RequestID = rc.RequestID
		if status >= 500 {
			attrs := append([]slog.Attr{slog.String(observability.LogFieldErrorCode, string(code))}, apperrors.LogAttrs(err)...)
			rc.Error("request failed", err, attrs...)
		}
	}
	return c.JSON(status, resp)
}
