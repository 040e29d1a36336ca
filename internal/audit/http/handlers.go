package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/audit"
	"github.com/alvarodevdoo/erp/internal/platform/httpx"
	"github.com/alvarodevdoo/erp/internal/rbac"
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, companyID uuid.UUID, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, companyID uuid.UUID, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
}

// NewHandler creates an audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), p.CompanyID, filters)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.List(w, result.Rows, result.Pagination)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	rows, err := h.service.Export(r.Context(), p.CompanyID, filters)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	csvBytes, err := audit.WriteCSV(rows)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-logs.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	list, err := httpx.ParseListFilters(r)
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	actor, err := httpx.QueryUUID(r, "actorId")
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	q := r.URL.Query()
	return audit.TimelineFilters{
		ListFilters: list,
		ActorID:     actor,
		Entity:      strings.TrimSpace(q.Get("entity")),
		EntityID:    strings.TrimSpace(q.Get("entityId")),
		Action:      strings.ToLower(strings.TrimSpace(q.Get("action"))),
	}, nil
}
