package request

import (
	"errors"
	"net/url"
	"slices"
	"testing"
	"time"
)

// TestParseLogFilters tests reading the operator log query.
//
// WHY: The operator page builds this query from checkboxes, date pickers and a
// "load more" button. Each of them must land in the right filter, and a typo
// must come back as a 400 naming the parameter instead of an empty list.
func TestParseLogFilters(t *testing.T) {
	t.Run("defaults to the newest fifty entries", func(t *testing.T) {
		filters, err := ParseLogFilters(url.Values{})
		if err != nil {
			t.Fatalf("ParseLogFilters() returned unexpected error: %v", err)
		}
		if filters.SortDir != "desc" || filters.PerPage != DefaultLogPage {
			t.Errorf("Expected desc/%d, got %s/%d", DefaultLogPage, filters.SortDir, filters.PerPage)
		}
		if filters.Levels != nil || filters.Categories != nil || filters.StartDate != nil || filters.EndDate != nil {
			t.Errorf("Expected no filter, got %+v", filters)
		}
	})

	t.Run("levels and categories accept lists and repeats", func(t *testing.T) {
		filters, err := ParseLogFilters(url.Values{
			"level":    {"Warn, error", "warn"},
			"category": {"desk,submit", "NoteAPI"},
		})
		if err != nil {
			t.Fatalf("ParseLogFilters() returned unexpected error: %v", err)
		}
		if !slices.Equal(filters.Levels, []string{"warn", "error"}) {
			t.Errorf("Expected [warn error], got %v", filters.Levels)
		}
		if !slices.Equal(filters.Categories, []string{"desk", "submit", "noteapi"}) {
			t.Errorf("Expected [desk submit noteapi], got %v", filters.Categories)
		}
	})

	t.Run("source, message and cursor pass through", func(t *testing.T) {
		filters, err := ParseLogFilters(url.Values{
			"source":  {" desk.transfer "},
			"message": {"breaker open"},
			"cursor":  {"MjAyNi0wMS0xNVQxMjowMDowMC4wMDAwMDBafGxvZy0wMDAwMDE"},
			"sortDir": {"ASC"},
			"perPage": {"10"},
		})
		if err != nil {
			t.Fatalf("ParseLogFilters() returned unexpected error: %v", err)
		}
		if filters.Source != "desk.transfer" || filters.Message != "breaker open" {
			t.Errorf("Unexpected text filters %+v", filters)
		}
		if filters.Cursor == "" || filters.SortDir != "asc" || filters.PerPage != 10 {
			t.Errorf("Unexpected paging %+v", filters)
		}
	})

	dateTests := []struct {
		name      string
		start     string
		end       string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "a bare end date keeps the whole day",
			start:     "2026-03-01",
			end:       "2026-03-01",
			wantStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "datetime-local from the operator page",
			start:     "2026-03-01T18:30",
			end:       "2026-03-01T23:00",
			wantStart: time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC),
		},
		{
			name:      "RFC 3339 with a zone",
			start:     "2026-03-01T19:30:00+01:00",
			end:       "2026-03-01T20:00:00.500Z",
			wantStart: time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 1, 20, 0, 0, 500_000_000, time.UTC),
		},
	}
	for _, tt := range dateTests {
		t.Run(tt.name, func(t *testing.T) {
			filters, err := ParseLogFilters(url.Values{"startDate": {tt.start}, "endDate": {tt.end}})
			if err != nil {
				t.Fatalf("ParseLogFilters() returned unexpected error: %v", err)
			}
			if !filters.StartDate.Equal(tt.wantStart) {
				t.Errorf("StartDate = %v, want %v", filters.StartDate, tt.wantStart)
			}
			if !filters.EndDate.Equal(tt.wantEnd) {
				t.Errorf("EndDate = %v, want %v", filters.EndDate, tt.wantEnd)
			}
		})
	}

	invalid := []struct {
		name  string
		query url.Values
		param string
	}{
		{"critical is not a level", url.Values{"level": {"warn,critical"}}, "level"},
		{"portfolio is not a kiosk category", url.Values{"category": {"portfolio"}}, "category"},
		{"unparseable start", url.Values{"startDate": {"yesterday"}}, "startDate"},
		{"unparseable end", url.Values{"endDate": {"31/12/2026"}}, "endDate"},
		{"range ends before it starts", url.Values{"startDate": {"2026-03-02"}, "endDate": {"2026-03-01T12:00"}}, "endDate"},
		{"sideways sort", url.Values{"sortDir": {"sideways"}}, "sortDir"},
		{"empty page", url.Values{"perPage": {"0"}}, "perPage"},
		{"page over the limit", url.Values{"perPage": {"101"}}, "perPage"},
		{"page not a number", url.Values{"perPage": {"ten"}}, "perPage"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLogFilters(tt.query)

			var fe *FilterError
			if !errors.As(err, &fe) {
				t.Fatalf("Expected a *FilterError, got %v", err)
			}
			if fe.Param != tt.param {
				t.Errorf("Expected the error on %s, got %s", tt.param, fe.Param)
			}
		})
	}
}
