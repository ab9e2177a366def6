package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
)

// Calendar holds RFC 5545 rules for days the organisation is closed.
// Rules without a DTSTART are anchored at the start of the queried window.
type Calendar struct {
	options []rrule.ROption
}

// NewCalendar parses closure rules such as "FREQ=YEARLY;BYMONTH=12;BYMONTHDAY=25"
func NewCalendar(rules []string) (*Calendar, error) {
	c := &Calendar{}
	for i, s := range rules {
		opt, err := rrule.StrToROption(s)
		if err != nil {
			return nil, fmt.Errorf("invalid closure rule %d: %w", i, err)
		}
		c.options = append(c.options, *opt)
	}
	return c, nil
}

// ClosedDays returns the closure days between from and to, both inclusive
func (c *Calendar) ClosedDays(from, to time.Time) map[time.Time]bool {
	closed := make(map[time.Time]bool)
	if c == nil {
		return closed
	}
	from = model.DateOnly(from)
	to = model.DateOnly(to)
	for _, opt := range c.options {
		if opt.Dtstart.IsZero() {
			opt.Dtstart = from
		}
		r, err := rrule.NewRRule(opt)
		if err != nil {
			continue
		}
		// Occurrences may carry a time of day from DTSTART, so widen to the end of `to`.
		for _, t := range r.Between(from, to.AddDate(0, 0, 1), true) {
			day := model.DateOnly(t)
			if !day.After(to) {
				closed[day] = true
			}
		}
	}
	return closed
}
