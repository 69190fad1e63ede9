// Package agenda renders calendar views as plain text for the terminal.
// Event titles may contain double-width runes, so all column alignment goes
// through go-runewidth rather than len().
package agenda

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"dayplan/dateutil"
	"dayplan/event"
)

const titleWidth = 24

var weekdayHeader = "Su Mo Tu We Th Fr Sa"

// Month renders the month containing d as a day grid followed by the
// month's events, one line per instance. Days with at least one event are
// marked with an asterisk in the grid.
func Month(d dateutil.Date, events []event.Instance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", d.Month.String(), d.Year)
	b.WriteString(weekdayHeader)
	b.WriteByte('\n')

	busy := make(map[int]bool)
	for _, inst := range events {
		if inst.Date.Year == d.Year && inst.Date.Month == d.Month {
			busy[inst.Date.Day] = true
		}
	}

	for _, week := range dateutil.MonthGrid(d) {
		var row strings.Builder
		for _, day := range week {
			if day == dateutil.EmptyCell {
				row.WriteString("   ")
				continue
			}
			fmt.Fprintf(&row, "%2d", day)
			// The busy marker rides in the separator column so the grid
			// stays aligned with the weekday header.
			if busy[day] {
				row.WriteByte('*')
			} else {
				row.WriteByte(' ')
			}
		}
		b.WriteString(strings.TrimRight(row.String(), " "))
		b.WriteByte('\n')
	}

	if len(events) > 0 {
		b.WriteByte('\n')
		writeEventLines(&b, events)
	}
	return b.String()
}

// Week renders the Sunday-start week containing d, one section per day.
// Days without events are shown with "(no events)".
func Week(d dateutil.Date, events []event.Instance) string {
	start, end := dateutil.WeekRange(d)

	byDate := make(map[dateutil.Date][]event.Instance)
	for _, inst := range events {
		if !inst.Date.Before(start) && !inst.Date.After(end) {
			byDate[inst.Date] = append(byDate[inst.Date], inst)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Week of %s\n", start)
	for day := start; !day.After(end); day = dateutil.AddDays(day, 1) {
		fmt.Fprintf(&b, "%s %s\n", day.Weekday().String()[:3], day)
		if len(byDate[day]) == 0 {
			b.WriteString("  (no events)\n")
			continue
		}
		writeEventLines(&b, byDate[day])
	}
	return b.String()
}

// writeEventLines writes one aligned line per instance: time span, padded
// title, then location and category when present.
func writeEventLines(b *strings.Builder, events []event.Instance) {
	for _, inst := range events {
		title := runewidth.Truncate(inst.Title, titleWidth, "…")
		fmt.Fprintf(b, "  %s-%s  %s", inst.Start, inst.End, runewidth.FillRight(title, titleWidth))
		if inst.Location != "" {
			fmt.Fprintf(b, " @%s", inst.Location)
		}
		if inst.Category != "" {
			fmt.Fprintf(b, " [%s]", inst.Category)
		}
		b.WriteByte('\n')
	}
}
