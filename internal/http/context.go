package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/example/lecture-room-booking/internal/logging"
)

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request logger if one was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// pathParam returns a trimmed route parameter resolved by the router.
func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(httprouter.ParamsFromContext(r.Context()).ByName(name))
}
