package recurrence

import (
	"fmt"
	"slices"
	"time"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
)

// DefaultMaxOccurrences bounds a single expansion (two years of daily occurrences)
const DefaultMaxOccurrences = 730

// Rule describes how a parent booking repeats
type Rule struct {
	EndDate   time.Time
	Frequency model.RecurrenceFrequency
	Days      []time.Weekday
}

// RuleFor extracts the recurrence rule stored on a parent booking.
// ok is false when the booking does not carry a complete rule.
func RuleFor(b *model.Booking) (Rule, bool) {
	if b.EndDate == nil || b.RecurrenceFrequency == nil {
		return Rule{}, false
	}
	return Rule{
		EndDate:   *b.EndDate,
		Frequency: *b.RecurrenceFrequency,
		Days:      slices.Clone(b.RecurrenceDays),
	}, true
}

// Validate checks the frequency is known and the window is not inverted
func (r Rule) Validate(anchor time.Time) error {
	switch r.Frequency {
	case model.RecurrenceDaily, model.RecurrenceWeekly, model.RecurrenceBiWeekly,
		model.RecurrenceMonthly, model.RecurrenceAnnually:
	default:
		return fmt.Errorf("unknown recurrence frequency %q", r.Frequency)
	}
	if model.DateOnly(r.EndDate).Before(model.DateOnly(anchor)) {
		return fmt.Errorf("end date %s is before %s", r.EndDate.Format(model.DateLayout), anchor.Format(model.DateLayout))
	}
	return nil
}

// Plan is the outcome of walking a rule's window
type Plan struct {
	Dates     []time.Time
	Closed    []time.Time
	Truncated bool
}

// Engine expands parent bookings into dated occurrences
type Engine struct {
	closures       *Calendar
	maxOccurrences int
}

// NewEngine creates an engine. closures may be nil; maxOccurrences <= 0 uses the default.
func NewEngine(closures *Calendar, maxOccurrences int) *Engine {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	return &Engine{closures: closures, maxOccurrences: maxOccurrences}
}

// Plan walks one calendar day at a time from anchor (exclusive) to rule.EndDate
// (inclusive) and returns the days the rule selects. Months without a matching
// day-of-month simply produce nothing.
func (e *Engine) Plan(anchor time.Time, rule Rule) Plan {
	start := model.DateOnly(anchor)
	end := model.DateOnly(rule.EndDate)

	var closed map[time.Time]bool
	if e.closures != nil {
		closed = e.closures.ClosedDays(start.AddDate(0, 0, 1), end)
	}

	var plan Plan
	for day := start.AddDate(0, 0, 1); !day.After(end); day = day.AddDate(0, 0, 1) {
		if !Includes(start, day, rule) {
			continue
		}
		if closed[day] {
			plan.Closed = append(plan.Closed, day)
			continue
		}
		if len(plan.Dates) == e.maxOccurrences {
			plan.Truncated = true
			break
		}
		plan.Dates = append(plan.Dates, day)
	}
	return plan
}

// Expand materialises one occurrence booking per planned date. Ids are left
// at zero for the store to allocate.
func (e *Engine) Expand(parent *model.Booking, rule Rule) []*model.Booking {
	plan := e.Plan(parent.Date, rule)
	occurrences := make([]*model.Booking, 0, len(plan.Dates))
	for _, d := range plan.Dates {
		occurrences = append(occurrences, Occurrence(parent, d))
	}
	return occurrences
}

// Includes reports whether candidate belongs to the series anchored at anchor.
// Both dates must already be truncated to midnight UTC.
func Includes(anchor, candidate time.Time, rule Rule) bool {
	switch rule.Frequency {
	case model.RecurrenceDaily:
		return true
	case model.RecurrenceWeekly:
		return weekdayMatches(anchor, candidate, rule.Days)
	case model.RecurrenceBiWeekly:
		daysSince := int(candidate.Sub(anchor).Hours() / 24)
		return weekdayMatches(anchor, candidate, rule.Days) && (daysSince/7)%2 == 0
	case model.RecurrenceMonthly:
		return candidate.Day() == anchor.Day()
	case model.RecurrenceAnnually:
		return candidate.Day() == anchor.Day() && candidate.Month() == anchor.Month()
	}
	return false
}

func weekdayMatches(anchor, candidate time.Time, days []time.Weekday) bool {
	if len(days) == 0 {
		return candidate.Weekday() == anchor.Weekday()
	}
	return slices.Contains(days, candidate.Weekday())
}

// Occurrence clones parent onto date as an unconfirmed, unassigned child
func Occurrence(parent *model.Booking, date time.Time) *model.Booking {
	o := parent.Clone()
	o.ID = 0
	o.Date = model.DateOnly(date)
	o.Status = model.StatusNotAssigned
	o.ClientConfirmation = false
	o.ClearCancellation()
	o.ClearRecurrence()
	parentID := parent.ID
	o.ParentBookingID = &parentID
	return o
}
