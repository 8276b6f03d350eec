package tracker

import (
	"strings"
	"time"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// DateRangeController owns the start/end bounds of the history query.
//
// Invariants: start <= end whenever both are set, and end is never after today.
// Rejected inputs leave the bounds untouched and do not signal a re-fetch.
type DateRangeController struct {
	start    *time.Time
	end      *time.Time
	now      Clock
	onChange func(domain.DateRange)
}

// NewDateRangeController creates a controller initialised to the default
// one-year window without signalling.
func NewDateRangeController(now Clock, onChange func(domain.DateRange)) *DateRangeController {
	if now == nil {
		now = time.Now
	}
	if onChange == nil {
		onChange = func(domain.DateRange) {}
	}
	c := &DateRangeController{now: now, onChange: onChange}
	c.start, c.end = c.defaultWindow()
	return c
}

// Range returns a copy of the current bounds.
func (c *DateRangeController) Range() domain.DateRange {
	return domain.DateRange{Start: copyDate(c.start), End: copyDate(c.end)}
}

// SetStart sets the lower bound. nil clears it.
func (c *DateRangeController) SetStart(d *time.Time) bool {
	if d == nil {
		c.start = nil
		c.signal()
		return true
	}
	if d.IsZero() {
		return false
	}

	day := domain.CalendarDate(*d)
	if c.end != nil && day.After(*c.end) {
		return false
	}

	c.start = &day
	c.signal()
	return true
}

// SetEnd sets the upper bound. nil clears it.
func (c *DateRangeController) SetEnd(d *time.Time) bool {
	if d == nil {
		c.end = nil
		c.signal()
		return true
	}
	if d.IsZero() {
		return false
	}

	day := domain.CalendarDate(*d)
	if c.start != nil && day.Before(*c.start) {
		return false
	}
	if day.After(c.today()) {
		return false
	}

	c.end = &day
	c.signal()
	return true
}

// Reset restores the default window of the last year and always signals.
func (c *DateRangeController) Reset() {
	c.start, c.end = c.defaultWindow()
	c.signal()
}

func (c *DateRangeController) today() time.Time {
	return domain.CalendarDate(c.now())
}

func (c *DateRangeController) defaultWindow() (*time.Time, *time.Time) {
	end := c.today()
	start := end.AddDate(-1, 0, 0)
	return &start, &end
}

func (c *DateRangeController) signal() {
	c.onChange(c.Range())
}

// ParseDateInput converts raw date-picker input. Empty input clears the bound;
// anything that is not YYYY-MM-DD yields a zero time, which the controller rejects.
func ParseDateInput(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return &time.Time{}
	}
	return &t
}

func copyDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
