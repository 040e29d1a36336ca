package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// RespondError maps err to an error envelope. Server-side failures are logged
// with their cause and answered with a generic message.
func RespondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := shared.StatusOf(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
	}
	Fail(w, status, shared.MessageOf(err))
}
