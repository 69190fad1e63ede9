// Package recurrence expands event templates into the concrete dates their
// occurrences fall on. Expansion is a pure function of its inputs: the same
// template and horizon always produce the same ordered, finite date sequence.
package recurrence

import (
	"fmt"

	"dayplan/dateutil"
	"dayplan/event"
)

// Options bounds how far an expansion may run.
type Options struct {
	// MaxOccurrences is the hard emission cap, applied after the rule's end
	// date and the horizon. Zero falls back to DefaultOptions.
	MaxOccurrences int
}

// DefaultOptions caps any single expansion at 1000 occurrences.
var DefaultOptions = Options{
	MaxOccurrences: 1000,
}

// DefaultHorizon returns the horizon applied to recurrence rules without an
// explicit end date: December 31 of the year after the anchor's year. The
// bound exists so that no rule ever expands indefinitely.
func DefaultHorizon(anchor dateutil.Date) dateutil.Date {
	return dateutil.Date{Year: anchor.Year + 1, Month: 12, Day: 31}
}

// Expand generates the ordered occurrence dates for the template, from the
// anchor date up to and including horizonEnd. Generation stops at the rule's
// end date, the horizon, or the occurrence cap, whichever comes first.
//
// Monthly and yearly rules anchored on a day-of-month that does not exist in
// a later month (the 31st, or Feb 29 in non-leap years) skip that occurrence
// entirely. Clamping to the last valid day is deliberately not done: it would
// silently move the date pattern users asked for.
func Expand(tpl event.Template, horizonEnd dateutil.Date, opts Options) ([]dateutil.Date, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	if !horizonEnd.Valid() {
		return nil, fmt.Errorf("horizon %w: %s", dateutil.ErrInvalidDate, horizonEnd)
	}

	if tpl.Recurrence.Freq == event.None {
		// A non-recurring template is its own single occurrence; the horizon
		// only bounds generated occurrences.
		return []dateutil.Date{tpl.Date}, nil
	}

	limit := opts.MaxOccurrences
	if limit <= 0 {
		limit = DefaultOptions.MaxOccurrences
	}

	bound := horizonEnd
	if end, ok := tpl.Recurrence.EndDate.Get(); ok && end.Before(bound) {
		bound = end
	}

	switch tpl.Recurrence.Freq {
	case event.Daily:
		return expandByDays(tpl.Date, tpl.Recurrence.Interval, bound, limit), nil
	case event.Weekly:
		return expandByDays(tpl.Date, 7*tpl.Recurrence.Interval, bound, limit), nil
	case event.Monthly:
		return expandByMonths(tpl.Date, tpl.Recurrence.Interval, bound, limit), nil
	case event.Yearly:
		return expandByMonths(tpl.Date, 12*tpl.Recurrence.Interval, bound, limit), nil
	default:
		return nil, fmt.Errorf("%w: frequency %v", event.ErrInvalidRecurrenceRule, tpl.Recurrence.Freq)
	}
}

// expandByDays handles the daily and weekly step kinds, whose occurrences are
// a fixed number of days apart and never skip.
func expandByDays(anchor dateutil.Date, stepDays int, bound dateutil.Date, limit int) []dateutil.Date {
	var dates []dateutil.Date
	current := anchor
	for !current.After(bound) && len(dates) < limit {
		dates = append(dates, current)
		current = dateutil.AddDays(current, stepDays)
	}
	return dates
}

// expandByMonths handles the monthly and yearly step kinds. Candidate months
// are derived from the anchor month, keeping the anchor's day-of-month; a
// candidate month too short for that day yields no occurrence (skip policy).
// Stepping from the anchor rather than the previous emission keeps the
// day-of-month from drifting after a skip.
func expandByMonths(anchor dateutil.Date, stepMonths int, bound dateutil.Date, limit int) []dateutil.Date {
	var dates []dateutil.Date
	for k := 0; len(dates) < limit; k++ {
		monthStart := dateutil.AddMonths(dateutil.MonthStart(anchor), k*stepMonths)
		if monthStart.After(bound) {
			break
		}
		if anchor.Day > dateutil.DaysInMonth(monthStart.Year, monthStart.Month) {
			continue
		}
		date := dateutil.Date{Year: monthStart.Year, Month: monthStart.Month, Day: anchor.Day}
		if date.After(bound) {
			break
		}
		dates = append(dates, date)
	}
	return dates
}
