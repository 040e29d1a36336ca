package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/shared"
)

type stubTimelineRepo struct {
	rows       []TimelineRow
	total      int
	lastOrder  string
	lastFilter TimelineFilters
	lastLimit  int
}

func (s *stubTimelineRepo) Timeline(ctx context.Context, companyID uuid.UUID, f TimelineFilters, order string) ([]TimelineRow, int, error) {
	s.lastFilter = f
	s.lastOrder = order
	return s.rows, s.total, nil
}

func (s *stubTimelineRepo) All(ctx context.Context, companyID uuid.UUID, f TimelineFilters, limit int) ([]TimelineRow, error) {
	s.lastFilter = f
	s.lastLimit = limit
	return s.rows, nil
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{{ID: 1}, {ID: 2}}, total: 45}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), uuid.New(), TimelineFilters{
		ListFilters: shared.ListFilters{Page: 2, Limit: 20},
	})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if result.Pagination.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", result.Pagination.TotalPages)
	}
	if repo.lastOrder != "a.occurred_at DESC" {
		t.Fatalf("unexpected order %q", repo.lastOrder)
	}
	if repo.lastFilter.Offset() != 20 {
		t.Fatalf("expected offset 20, got %d", repo.lastFilter.Offset())
	}
}

func TestServiceTimelineRejectsUnknownSort(t *testing.T) {
	svc := NewService(&stubTimelineRepo{})
	_, err := svc.Timeline(context.Background(), uuid.New(), TimelineFilters{
		ListFilters: shared.ListFilters{SortBy: "password"},
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestServiceExportCapsRows(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{{ID: 1}}}
	rows, err := NewService(repo).Export(context.Background(), uuid.New(), TimelineFilters{Entity: "quote"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 1 || repo.lastLimit != MaxExportRows {
		t.Fatalf("unexpected export call: rows=%d limit=%d", len(rows), repo.lastLimit)
	}
	if repo.lastFilter.Entity != "quote" {
		t.Fatalf("entity filter lost")
	}
}

func TestWriteCSV(t *testing.T) {
	actor := uuid.MustParse("7f1c5a52-2f55-4b2c-9c77-0d4b4c1f0a11")
	out, err := WriteCSV([]TimelineRow{{
		ID:        7,
		At:        time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
		ActorID:   &actor,
		ActorName: "Ana, Souza",
		Action:    shared.AuditStatus,
		Entity:    "quote",
		EntityID:  "ORC-2403-0001",
		Meta:      map[string]any{"to": "SENT"},
	}})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\r\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if lines[0] != "id,at,actor_id,actor_name,actor_email,action,entity,entity_id,meta" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	want := `7,2024-03-10T10:00:00Z,` + actor.String() + `,"Ana, Souza",,status,quote,ORC-2403-0001,"{""to"":""SENT""}"`
	if lines[1] != want {
		t.Fatalf("unexpected row\n got %s\nwant %s", lines[1], want)
	}
}
