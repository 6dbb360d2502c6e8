package repository_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/repository"
	"github.com/ndewijer/note-kfet-kiosk/internal/testutil"
)

func filters(mod func(*model.LogFilters)) *model.LogFilters {
	f := &model.LogFilters{SortDir: "desc", PerPage: 50}
	if mod != nil {
		mod(f)
	}
	return f
}

// TestLogRepository_GetLogs tests filtering and cursor paging of the log table.
//
// WHY: Operators page through the log while the kiosk keeps writing to it.
// Keyset paging on (timestamp, id) must neither repeat nor skip entries,
// even when several share a timestamp.
//
//nolint:gocyclo // Test functions naturally have high complexity due to many test cases
func TestLogRepository_GetLogs(t *testing.T) {
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) *repository.LogRepository {
		t.Helper()
		db := testutil.SetupTestDB(t)
		testutil.SeedLogs(t, db,
			testutil.NewLog("desk.transfer", "rejected transfer").At(base).WithRequestID("req-1").Build(),
			testutil.NewLog("submit", "balance below threshold").At(base.Add(time.Minute)).Build(),
			testutil.NewLog("noteapi", "breaker open").WithLevel("error").At(base.Add(2*time.Minute)).Build(),
			testutil.NewLog("noteapi", "breaker closed").At(base.Add(2*time.Minute)).Build(),
			testutil.NewLog("desk.consumption", "lookup stale").At(base.Add(3*time.Minute)).Build(),
		)
		return repository.NewLogRepository(db)
	}

	t.Run("newest first by default", func(t *testing.T) {
		repo := setup(t)

		resp, err := repo.GetLogs(t.Context(), filters(nil))
		if err != nil {
			t.Fatalf("GetLogs() returned unexpected error: %v", err)
		}
		if resp.Count != 5 || resp.HasMore || resp.NextCursor != "" {
			t.Fatalf("Expected a single page of 5, got count=%d hasMore=%v", resp.Count, resp.HasMore)
		}
		if resp.Logs[0].Message != "lookup stale" || resp.Logs[4].Message != "rejected transfer" {
			t.Errorf("Unexpected order: first %q last %q", resp.Logs[0].Message, resp.Logs[4].Message)
		}
		if resp.Logs[4].RequestID != "req-1" || !resp.Logs[4].Timestamp.Equal(base) {
			t.Errorf("Expected request id and timestamp to round-trip, got %+v", resp.Logs[4])
		}
	})

	t.Run("pages do not repeat entries", func(t *testing.T) {
		repo := setup(t)

		seen := make(map[string]bool)
		cursor := ""
		for page := 0; ; page++ {
			if page > 5 {
				t.Fatal("Paging did not terminate")
			}
			resp, err := repo.GetLogs(t.Context(), filters(func(f *model.LogFilters) {
				f.PerPage = 2
				f.Cursor = cursor
				f.SortDir = "asc"
			}))
			if err != nil {
				t.Fatalf("GetLogs() returned unexpected error: %v", err)
			}
			for _, l := range resp.Logs {
				if seen[l.ID] {
					t.Errorf("Entry %s returned twice", l.ID)
				}
				seen[l.ID] = true
			}
			if !resp.HasMore {
				break
			}
			cursor = resp.NextCursor
		}
		if len(seen) != 5 {
			t.Errorf("Expected 5 distinct entries, got %d", len(seen))
		}
	})

	t.Run("filters combine", func(t *testing.T) {
		repo := setup(t)

		resp, err := repo.GetLogs(t.Context(), filters(func(f *model.LogFilters) {
			f.Categories = []string{"noteapi", "desk"}
			f.Levels = []string{"warn"}
		}))
		if err != nil {
			t.Fatalf("GetLogs() returned unexpected error: %v", err)
		}
		if resp.Count != 3 {
			t.Errorf("Expected 3 warnings from noteapi and desk, got %d", resp.Count)
		}
	})

	t.Run("source matches the logger and its children", func(t *testing.T) {
		repo := setup(t)

		resp, err := repo.GetLogs(t.Context(), filters(func(f *model.LogFilters) { f.Source = "desk" }))
		if err != nil {
			t.Fatalf("GetLogs() returned unexpected error: %v", err)
		}
		if resp.Count != 2 {
			t.Errorf("Expected 2 desk entries, got %d", resp.Count)
		}
	})

	t.Run("message and date range", func(t *testing.T) {
		repo := setup(t)

		start := base.Add(time.Minute)
		end := base.Add(3 * time.Minute)
		resp, err := repo.GetLogs(t.Context(), filters(func(f *model.LogFilters) {
			f.Message = "breaker"
			f.StartDate = &start
			f.EndDate = &end
		}))
		if err != nil {
			t.Fatalf("GetLogs() returned unexpected error: %v", err)
		}
		if resp.Count != 2 {
			t.Errorf("Expected both breaker entries, got %d", resp.Count)
		}
	})

	t.Run("forged cursor", func(t *testing.T) {
		repo := setup(t)

		_, err := repo.GetLogs(t.Context(), filters(func(f *model.LogFilters) { f.Cursor = "not base64!" }))
		if !errors.Is(err, apperrors.ErrInvalidCursor) {
			t.Errorf("Expected ErrInvalidCursor, got %v", err)
		}
	})
}

func TestLogRepository_DeleteLogsBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	testutil.SeedLogs(t, db,
		testutil.NewLog("submit", "old").At(base.AddDate(0, -2, 0)).Build(),
		testutil.NewLog("submit", "recent").At(base).Build(),
	)
	repo := repository.NewLogRepository(db)

	n, err := repo.DeleteLogsBefore(t.Context(), base.AddDate(0, -1, 0))
	if err != nil {
		t.Fatalf("DeleteLogsBefore() returned unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deleted entry, got %d", n)
	}
	testutil.AssertRowCount(t, db, "log", 1)
}
