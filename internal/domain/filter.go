package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// DateRange bounds a history query. A nil bound is unbounded on that side.
type DateRange struct {
	Start *time.Time `json:"start_date,omitempty"`
	End   *time.Time `json:"end_date,omitempty"`
}

// StartParam returns the start bound as YYYY-MM-DD, or "" when unbounded.
func (r DateRange) StartParam() string {
	return formatDate(r.Start)
}

// EndParam returns the end bound as YYYY-MM-DD, or "" when unbounded.
func (r DateRange) EndParam() string {
	return formatDate(r.End)
}

// Key is a stable textual form of the range, used for cache keys and logging.
func (r DateRange) Key() string {
	return fmt.Sprintf("%s..%s", r.StartParam(), r.EndParam())
}

// Equal compares both bounds at calendar-date precision.
func (r DateRange) Equal(other DateRange) bool {
	return r.Key() == other.Key()
}

// ParseDateRange parses optional YYYY-MM-DD bounds.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if start != "" {
		t, err := time.Parse(DateLayout, start)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid startDate %q: %w", start, err)
		}
		r.Start = &t
	}
	if end != "" {
		t, err := time.Parse(DateLayout, end)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid endDate %q: %w", end, err)
		}
		r.End = &t
	}
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return DateRange{}, fmt.Errorf("startDate %s is after endDate %s", start, end)
	}
	return r, nil
}

// CalendarDate drops the time of day, keeping the date as seen in t's location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// FilterState is the user-controlled supplier and date range pair.
type FilterState struct {
	Supplier ID `json:"supplier"`
	DateRange
}
