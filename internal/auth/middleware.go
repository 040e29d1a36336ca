package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alvarodevdoo/erp/internal/platform/httpx"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Middleware rejects requests without a valid bearer token and stores the
// principal in the request context.
func Middleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				httpx.RespondError(w, r, logger, shared.Unauthorized("authentication required"))
				return
			}
			principal, err := service.Verify(r.Context(), raw)
			if err != nil {
				httpx.RespondError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
