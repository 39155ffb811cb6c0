package server

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/poly000/tg-google-meet-bot/server/internal/observability"
)

// NewLogger builds the process logger. levelName accepts "trace" besides
// the slog level names; prod mode logs JSON lines.
func NewLogger(w io.Writer, levelName string, jsonFormat bool) (*slog.Logger, error) {
	level, err := observability.ParseLevel(levelName)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", levelName)
	}
	return observability.NewLogger(w, level, jsonFormat), nil
}

// WithCLIRequest tags ctx as a command line request made by principalID.
func WithCLIRequest(ctx context.Context, logger *slog.Logger, principalID int64) context.Context {
	rc := observability.NewRequestContext(logger, observability.ChannelCLI, principalID)
	return observability.WithRequestContext(ctx, rc)
}
