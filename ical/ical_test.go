package ical

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayplan/dateutil"
	"dayplan/event"
)

func TestExportImportRoundTrip(t *testing.T) {
	templates := []event.Template{
		{
			Title:            "Standup",
			Date:             dateutil.Date{Year: 2024, Month: time.July, Day: 1},
			Start:            dateutil.TimeOfDay{Hour: 10, Minute: 0},
			End:              dateutil.TimeOfDay{Hour: 10, Minute: 30},
			Description:      "daily team sync",
			Location:         "room 2",
			Category:         event.CategoryWork,
			Recurrence:       event.Every(event.Daily, 1).Until(dateutil.Date{Year: 2024, Month: time.July, Day: 31}),
			NotificationLead: 10,
		},
		{
			Title:      "Dentist",
			Date:       dateutil.Date{Year: 2024, Month: time.August, Day: 15},
			Start:      dateutil.TimeOfDay{Hour: 9, Minute: 0},
			End:        dateutil.TimeOfDay{Hour: 9, Minute: 45},
			Recurrence: event.NoRecurrence(),
		},
		{
			Title:      "Payday",
			Date:       dateutil.Date{Year: 2024, Month: time.January, Day: 31},
			Start:      dateutil.TimeOfDay{Hour: 0, Minute: 0},
			End:        dateutil.TimeOfDay{Hour: 0, Minute: 30},
			Recurrence: event.Every(event.Monthly, 1),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, templates))

	parsed, err := Import(&buf, nil)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	for i, got := range parsed {
		want := templates[i]
		assert.Equal(t, want.Title, got.Title, "template %d", i)
		assert.Equal(t, want.Date, got.Date, "template %d", i)
		assert.Equal(t, want.Start, got.Start, "template %d", i)
		assert.Equal(t, want.End, got.End, "template %d", i)
		assert.Equal(t, want.Description, got.Description, "template %d", i)
		assert.Equal(t, want.Location, got.Location, "template %d", i)
		assert.Equal(t, want.Category, got.Category, "template %d", i)
		assert.Equal(t, want.NotificationLead, got.NotificationLead, "template %d", i)
		assert.Equal(t, want.Recurrence.Freq, got.Recurrence.Freq, "template %d", i)
		assert.Equal(t, want.Recurrence.EndDate.IsPresent(), got.Recurrence.EndDate.IsPresent(), "template %d", i)
		if end, ok := want.Recurrence.EndDate.Get(); ok {
			gotEnd, _ := got.Recurrence.EndDate.Get()
			assert.Equal(t, end, gotEnd, "template %d", i)
		}
	}
}

func TestExportContainsRRule(t *testing.T) {
	tpl := event.Template{
		Title:      "Weekly 1:1",
		Date:       dateutil.Date{Year: 2024, Month: time.July, Day: 1},
		Start:      dateutil.TimeOfDay{Hour: 14, Minute: 0},
		End:        dateutil.TimeOfDay{Hour: 14, Minute: 30},
		Recurrence: event.Every(event.Weekly, 2),
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, []event.Template{tpl}))

	out := buf.String()
	assert.Contains(t, out, "RRULE:")
	assert.Contains(t, out, "FREQ=WEEKLY")
	assert.Contains(t, out, "INTERVAL=2")
	assert.Contains(t, out, "SUMMARY:Weekly 1:1")
}

func TestImportSkipsUnsupportedRules(t *testing.T) {
	// Second Tuesday of the month: BYDAY rules are outside this system's
	// recurrence model and must be skipped, not fail the import.
	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:unsupported-1",
		"SUMMARY:Board meeting",
		"DTSTART:20240709T100000",
		"DTEND:20240709T110000",
		"RRULE:FREQ=MONTHLY;BYDAY=2TU",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:plain-1",
		"SUMMARY:Lunch",
		"DTSTART:20240709T120000",
		"DTEND:20240709T130000",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	parsed, err := Import(strings.NewReader(ics), nil)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "Lunch", parsed[0].Title)
	assert.Equal(t, event.None, parsed[0].Recurrence.Freq)
}

func TestImportAlarmLead(t *testing.T) {
	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:alarm-1",
		"SUMMARY:Flight",
		"DTSTART:20240709T060000",
		"DTEND:20240709T070000",
		"BEGIN:VALARM",
		"ACTION:DISPLAY",
		"DESCRIPTION:Flight",
		"TRIGGER:-PT2H",
		"END:VALARM",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	parsed, err := Import(strings.NewReader(ics), nil)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, 120, parsed[0].NotificationLead)
}

func TestParseRelativeTrigger(t *testing.T) {
	tests := []struct {
		value   string
		minutes int
		ok      bool
	}{
		{"-PT10M", 10, true},
		{"-PT1H", 60, true},
		{"-PT1H30M", 90, true},
		{"PT15M", 0, false},
		{"-P1D", 0, false},
		{"20240709T060000Z", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		minutes, ok := parseRelativeTrigger(tt.value)
		assert.Equal(t, tt.ok, ok, "value %q", tt.value)
		if tt.ok {
			assert.Equal(t, tt.minutes, minutes, "value %q", tt.value)
		}
	}
}
