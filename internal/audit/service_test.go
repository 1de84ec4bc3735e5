package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubRepo struct {
	rows       []Entry
	lastParams WindowParams
}

func (s *stubRepo) TimelineWindow(ctx context.Context, params WindowParams) ([]Entry, error) {
	s.lastParams = params
	limit := params.Limit
	if limit <= 0 || limit > len(s.rows) {
		limit = len(s.rows)
	}
	return s.rows[:limit], nil
}

func entry(at string, action string) Entry {
	ts, _ := time.Parse(time.RFC3339, at)
	return Entry{
		At:       ts,
		ActorID:  uuid.New(),
		Action:   action,
		Entity:   "user_roles",
		EntityID: uuid.NewString(),
	}
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{rows: []Entry{
		entry("2026-08-10T10:00:00Z", "rbac.assign"),
		entry("2026-08-09T09:00:00Z", "rbac.revoke"),
		entry("2026-08-08T08:00:00Z", "rbac.assign"),
	}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext {
		t.Fatalf("expected hasNext true")
	}
	if repo.lastParams.Limit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastParams.Limit)
	}
	if repo.lastParams.Offset != 0 {
		t.Fatalf("expected offset 0, got %d", repo.lastParams.Offset)
	}
}

func TestTimelineSecondPageOffset(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 10})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastParams.Offset != 20 {
		t.Fatalf("expected offset 20, got %d", repo.lastParams.Offset)
	}
	if result.Paging.PrevPage != 2 {
		t.Fatalf("expected prev page 2, got %d", result.Paging.PrevPage)
	}
	if result.Paging.HasNext {
		t.Fatalf("expected hasNext false for empty result")
	}
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastParams.Limit != maxPageSize+1 {
		t.Fatalf("expected limit %d, got %d", maxPageSize+1, repo.lastParams.Limit)
	}
}

func TestExportCSV(t *testing.T) {
	repo := &stubRepo{rows: []Entry{
		entry("2026-08-10T10:00:00Z", "rbac.assign"),
		entry("2026-08-09T09:00:00Z", "rbac.revoke"),
	}}
	svc := NewService(repo)

	data, err := svc.ExportCSV(context.Background(), TimelineFilters{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	out := string(data)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "occurred_at,") {
		t.Fatalf("expected CSV header, got %q", lines[0])
	}
	if !strings.Contains(out, "rbac.assign") || !strings.Contains(out, "rbac.revoke") {
		t.Fatalf("expected actions in export")
	}
}
