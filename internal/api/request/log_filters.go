package request

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

// Page sizes of the operator log listing.
const (
	DefaultLogPage = 50
	MaxLogPage     = 100
)

// FilterError reports a query parameter of the log listing that could not be
// used.
type FilterError struct {
	Param string
	Value string
	Want  string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s %q: want %s", e.Param, e.Value, e.Want)
}

// filterTimeLayouts are tried in order. The minute layout is what a
// datetime-local input on the operator page sends.
var filterTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", time.DateOnly}

// ParseLogFilters reads the operator log filters from the query of
// GET /api/developer/logs. Every parameter is optional.
//
//	level     debug, info, warn, error; comma-separated or repeated
//	category  first segment of the logger name (desk, submit, noteapi, ...)
//	source    logger name; "desk" also matches desk.transfer
//	message   substring of the message
//	startDate inclusive lower bound
//	endDate   exclusive upper bound; a bare date keeps that whole day
//	sortDir   asc or desc (newest first)
//	perPage   1 to MaxLogPage
//	cursor    nextCursor of the previous page
//
// Times without a zone are read as UTC.
func ParseLogFilters(q url.Values) (*model.LogFilters, error) {
	filters := &model.LogFilters{
		Source:  strings.TrimSpace(q.Get("source")),
		Message: strings.TrimSpace(q.Get("message")),
		Cursor:  q.Get("cursor"),
		SortDir: "desc",
		PerPage: DefaultLogPage,
	}

	var err error
	filters.Levels, err = parseList(q, "level", "one of debug, info, warn, error", func(s string) bool {
		return model.ValidLogLevels[model.LogLevel(s)]
	})
	if err != nil {
		return nil, err
	}
	filters.Categories, err = parseList(q, "category", "a kiosk log category such as desk, submit or noteapi", func(s string) bool {
		return model.ValidLogCategories[model.LogCategory(s)]
	})
	if err != nil {
		return nil, err
	}

	if raw := q.Get("startDate"); raw != "" {
		start, _, err := parseFilterTime("startDate", raw)
		if err != nil {
			return nil, err
		}
		filters.StartDate = &start
	}
	if raw := q.Get("endDate"); raw != "" {
		end, dateOnly, err := parseFilterTime("endDate", raw)
		if err != nil {
			return nil, err
		}
		if dateOnly {
			end = end.AddDate(0, 0, 1)
		}
		filters.EndDate = &end
	}
	if filters.StartDate != nil && filters.EndDate != nil && !filters.StartDate.Before(*filters.EndDate) {
		return nil, &FilterError{Param: "endDate", Value: q.Get("endDate"), Want: "a time after startDate"}
	}

	if raw := q.Get("sortDir"); raw != "" {
		dir := strings.ToLower(raw)
		if dir != "asc" && dir != "desc" {
			return nil, &FilterError{Param: "sortDir", Value: raw, Want: "asc or desc"}
		}
		filters.SortDir = dir
	}

	if raw := q.Get("perPage"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLogPage {
			return nil, &FilterError{Param: "perPage", Value: raw, Want: fmt.Sprintf("a number from 1 to %d", MaxLogPage)}
		}
		filters.PerPage = n
	}

	return filters, nil
}

// parseList collects the values of a repeatable, comma-separated parameter,
// lower-cased and without duplicates.
func parseList(q url.Values, param, want string, valid func(string) bool) ([]string, error) {
	var out []string
	for _, raw := range q[param] {
		for v := range strings.SplitSeq(raw, ",") {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" {
				continue
			}
			if !valid(v) {
				return nil, &FilterError{Param: param, Value: v, Want: want}
			}
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func parseFilterTime(param, raw string) (time.Time, bool, error) {
	for _, layout := range filterTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, layout == time.DateOnly, nil
		}
	}
	return time.Time{}, false, &FilterError{Param: param, Value: raw, Want: "YYYY-MM-DD, YYYY-MM-DDTHH:MM or RFC 3339"}
}
