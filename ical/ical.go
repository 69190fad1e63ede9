// Package ical converts event templates to and from iCalendar (RFC 5545)
// documents. Recurrence rules travel as RRULE values with the FREQ, INTERVAL
// and UNTIL parts this system supports; dates and times are written as
// floating local values because the calendar core has no timezone model.
package ical

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"dayplan/dateutil"
	"dayplan/event"
)

const (
	prodID         = "-//dayplan//calendar//EN"
	dateTimeLayout = "20060102T150405"
)

// Export writes the templates as a single VCALENDAR, one VEVENT per
// template. Recurring templates carry an RRULE; the notification lead is
// expressed as a VALARM with a relative trigger.
func Export(w io.Writer, templates []event.Template) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	for i, tpl := range templates {
		ev, err := toVEvent(tpl, fmt.Sprintf("dayplan-%d", i+1))
		if err != nil {
			return err
		}
		cal.Children = append(cal.Children, ev)
	}

	return ical.NewEncoder(w).Encode(cal)
}

func toVEvent(tpl event.Template, uid string) (*ical.Component, error) {
	ev := ical.NewComponent(ical.CompEvent)
	ev.Props.SetText(ical.PropUID, uid)
	ev.Props.SetText(ical.PropSummary, tpl.Title)
	if tpl.Description != "" {
		ev.Props.SetText(ical.PropDescription, tpl.Description)
	}
	if tpl.Location != "" {
		ev.Props.SetText(ical.PropLocation, tpl.Location)
	}
	if tpl.Category != "" {
		ev.Props.SetText(ical.PropCategories, string(tpl.Category))
	}

	setFloatingDateTime(ev, ical.PropDateTimeStart, tpl.Date, tpl.Start)
	setFloatingDateTime(ev, ical.PropDateTimeEnd, tpl.Date, tpl.End)

	if tpl.Recurrence.Freq != event.None {
		value, err := rruleValue(tpl.Recurrence)
		if err != nil {
			return nil, err
		}
		ev.Props.SetText(ical.PropRecurrenceRule, value)
	}

	if tpl.NotificationLead > 0 {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, tpl.Title)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.SetValueType(ical.ValueDuration)
		trigger.Value = fmt.Sprintf("-PT%dM", tpl.NotificationLead)
		alarm.Props.Set(trigger)
		ev.Children = append(ev.Children, alarm)
	}

	return ev, nil
}

func setFloatingDateTime(ev *ical.Component, name string, date dateutil.Date, tod dateutil.TimeOfDay) {
	prop := ical.NewProp(name)
	prop.SetValueType(ical.ValueDateTime)
	prop.Value = date.At(tod, time.UTC).Format(dateTimeLayout)
	ev.Props.Set(prop)
}

// rruleValue builds the RRULE property value for a recurrence rule.
func rruleValue(r event.Recurrence) (string, error) {
	opt := rrule.ROption{Interval: r.Interval}
	switch r.Freq {
	case event.Daily:
		opt.Freq = rrule.DAILY
	case event.Weekly:
		opt.Freq = rrule.WEEKLY
	case event.Monthly:
		opt.Freq = rrule.MONTHLY
	case event.Yearly:
		opt.Freq = rrule.YEARLY
	default:
		return "", fmt.Errorf("%w: frequency %v has no RRULE form", event.ErrInvalidRecurrenceRule, r.Freq)
	}
	if end, ok := r.EndDate.Get(); ok {
		opt.Until = end.At(dateutil.TimeOfDay{Hour: 23, Minute: 59}, time.UTC)
	}
	return opt.String(), nil
}

// Import parses a VCALENDAR stream into templates. Events whose recurrence
// rule uses features outside fixed-interval daily/weekly/monthly/yearly are
// skipped with a log line rather than failing the whole import, as are
// events missing a usable start or end. A nil logger discards.
func Import(r io.Reader, logger *slog.Logger) ([]event.Template, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dec := ical.NewDecoder(r)
	var templates []event.Template
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}

		for _, child := range cal.Children {
			if child.Name != ical.CompEvent {
				continue
			}
			tpl, err := fromVEvent(child)
			if err != nil {
				uid := ""
				if p := child.Props.Get(ical.PropUID); p != nil {
					uid = p.Value
				}
				logger.Warn("skipping unsupported event", "uid", uid, "err", err)
				continue
			}
			templates = append(templates, tpl)
		}
	}
	return templates, nil
}

func fromVEvent(ev *ical.Component) (event.Template, error) {
	var tpl event.Template

	if p := ev.Props.Get(ical.PropSummary); p != nil {
		tpl.Title = p.Value
	}
	if p := ev.Props.Get(ical.PropDescription); p != nil {
		tpl.Description = p.Value
	}
	if p := ev.Props.Get(ical.PropLocation); p != nil {
		tpl.Location = p.Value
	}
	if p := ev.Props.Get(ical.PropCategories); p != nil {
		if c := event.Category(strings.ToLower(p.Value)); c.Valid() {
			tpl.Category = c
		}
	}

	start, err := ev.Props.DateTime(ical.PropDateTimeStart, time.UTC)
	if err != nil {
		return tpl, fmt.Errorf("parse DTSTART: %w", err)
	}
	end, err := ev.Props.DateTime(ical.PropDateTimeEnd, time.UTC)
	if err != nil {
		return tpl, fmt.Errorf("parse DTEND: %w", err)
	}
	if !sameDay(start, end) {
		return tpl, fmt.Errorf("multi-day event not supported")
	}
	tpl.Date = dateutil.Date{Year: start.Year(), Month: start.Month(), Day: start.Day()}
	tpl.Start = dateutil.TimeOfDay{Hour: start.Hour(), Minute: start.Minute()}
	tpl.End = dateutil.TimeOfDay{Hour: end.Hour(), Minute: end.Minute()}

	tpl.Recurrence = event.NoRecurrence()
	if p := ev.Props.Get(ical.PropRecurrenceRule); p != nil && p.Value != "" {
		rule, err := parseRRule(p.Value)
		if err != nil {
			return tpl, err
		}
		tpl.Recurrence = rule
	}

	tpl.NotificationLead = alarmLeadMinutes(ev)

	if err := tpl.Validate(); err != nil {
		return tpl, err
	}
	return tpl, nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// parseRRule maps a supported RRULE value back onto a Recurrence. Anything
// beyond FREQ, INTERVAL, UNTIL and COUNT-free fixed stepping is rejected.
func parseRRule(value string) (event.Recurrence, error) {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return event.Recurrence{}, fmt.Errorf("parse RRULE %q: %w", value, err)
	}
	if len(opt.Byweekday) > 0 || len(opt.Bymonthday) > 0 || len(opt.Bymonth) > 0 ||
		len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 || opt.Count > 0 {
		return event.Recurrence{}, fmt.Errorf("unsupported RRULE %q", value)
	}

	var freq event.Frequency
	switch opt.Freq {
	case rrule.DAILY:
		freq = event.Daily
	case rrule.WEEKLY:
		freq = event.Weekly
	case rrule.MONTHLY:
		freq = event.Monthly
	case rrule.YEARLY:
		freq = event.Yearly
	default:
		return event.Recurrence{}, fmt.Errorf("unsupported RRULE frequency in %q", value)
	}

	interval := opt.Interval
	if interval == 0 {
		interval = 1
	}
	rule := event.Every(freq, interval)
	if !opt.Until.IsZero() {
		rule = rule.Until(dateutil.Date{
			Year:  opt.Until.Year(),
			Month: opt.Until.Month(),
			Day:   opt.Until.Day(),
		})
	}
	return rule, nil
}

// alarmLeadMinutes extracts the notification lead from the first VALARM with
// a relative "-PT<n>M"-style trigger. Missing, absolute or after-start alarms
// mean no notification.
func alarmLeadMinutes(ev *ical.Component) int {
	for _, child := range ev.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		p := child.Props.Get(ical.PropTrigger)
		if p == nil {
			continue
		}
		if minutes, ok := parseRelativeTrigger(p.Value); ok {
			return minutes
		}
	}
	return 0
}

func parseRelativeTrigger(value string) (int, bool) {
	// Only a negative duration fires before the event starts; positive
	// triggers have no notification-lead equivalent.
	v, neg := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(value)), "-")
	if !neg {
		return 0, false
	}
	v, hasPrefix := strings.CutPrefix(v, "PT")
	if !hasPrefix {
		return 0, false
	}
	total := 0
	for _, unit := range []struct {
		suffix  string
		minutes int
	}{{"H", 60}, {"M", 1}} {
		if idx := strings.Index(v, unit.suffix); idx >= 0 {
			n, err := strconv.Atoi(v[:idx])
			if err != nil {
				return 0, false
			}
			total += n * unit.minutes
			v = v[idx+1:]
		}
	}
	if v != "" && v != "0S" {
		return 0, false
	}
	return total, true
}
