package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayplan/dateutil"
)

func validTemplate() Template {
	return Template{
		Title:            "Team standup",
		Date:             dateutil.Date{Year: 2024, Month: time.July, Day: 1},
		Start:            dateutil.TimeOfDay{Hour: 10, Minute: 0},
		End:              dateutil.TimeOfDay{Hour: 11, Minute: 0},
		Category:         CategoryWork,
		Recurrence:       NoRecurrence(),
		NotificationLead: 10,
	}
}

func TestTemplateValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Template)
		wantErr error
	}{
		{"valid", func(*Template) {}, nil},
		{"empty title", func(tpl *Template) { tpl.Title = "" }, ErrEmptyTitle},
		{"invalid date", func(tpl *Template) { tpl.Date.Day = 32 }, dateutil.ErrInvalidDate},
		{"end equals start", func(tpl *Template) { tpl.End = tpl.Start }, ErrInvalidTimeRange},
		{"end before start", func(tpl *Template) {
			tpl.End = dateutil.TimeOfDay{Hour: 9, Minute: 0}
		}, ErrInvalidTimeRange},
		{"invalid start time", func(tpl *Template) { tpl.Start.Hour = 24 }, dateutil.ErrInvalidTime},
		{"zero interval", func(tpl *Template) {
			tpl.Recurrence = Every(Daily, 0)
		}, ErrInvalidRecurrenceRule},
		{"negative interval", func(tpl *Template) {
			tpl.Recurrence = Every(Weekly, -1)
		}, ErrInvalidRecurrenceRule},
		{"end date before anchor", func(tpl *Template) {
			tpl.Recurrence = Every(Daily, 1).Until(dateutil.Date{Year: 2024, Month: time.June, Day: 30})
		}, ErrInvalidRecurrenceRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := validTemplate()
			tt.mutate(&tpl)
			err := tpl.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRecurrenceValidateNoneIgnoresPayload(t *testing.T) {
	// A none rule is a single occurrence; interval and end date are unused.
	r := Recurrence{Freq: None, Interval: 0}
	assert.NoError(t, r.Validate(dateutil.Date{Year: 2024, Month: time.July, Day: 1}))
}

func TestRecurrenceValidateEndDateOnAnchor(t *testing.T) {
	anchor := dateutil.Date{Year: 2024, Month: time.July, Day: 1}
	assert.NoError(t, Every(Daily, 1).Until(anchor).Validate(anchor))
}

func TestFrequencyRoundTrip(t *testing.T) {
	for _, f := range []Frequency{None, Daily, Weekly, Monthly, Yearly} {
		parsed, err := ParseFrequency(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}

	_, err := ParseFrequency("hourly")
	assert.ErrorIs(t, err, ErrInvalidRecurrenceRule)
}

func TestRecurrenceJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rule Recurrence
	}{
		{"none", NoRecurrence()},
		{"weekly bounded", Every(Weekly, 2).Until(dateutil.Date{Year: 2024, Month: time.December, Day: 31})},
		{"monthly open", Every(Monthly, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.rule)
			require.NoError(t, err)

			var parsed Recurrence
			require.NoError(t, json.Unmarshal(b, &parsed))
			assert.Equal(t, tt.rule, parsed)
		})
	}
}

func TestRecurrenceJSONEndDateAbsent(t *testing.T) {
	b, err := json.Marshal(Every(Daily, 1))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "endDate")
}

func TestMaterialize(t *testing.T) {
	tpl := validTemplate()
	date := dateutil.Date{Year: 2024, Month: time.July, Day: 8}

	inst := tpl.Materialize("id-1", "series-1", date)
	assert.Equal(t, "id-1", inst.ID)
	assert.Equal(t, "series-1", inst.SeriesID)
	assert.True(t, inst.Recurring())
	assert.Equal(t, date, inst.Date)
	assert.Equal(t, tpl.Title, inst.Title)
	assert.Equal(t, tpl.Start, inst.Start)
	assert.Equal(t, tpl.End, inst.End)
	assert.Equal(t, tpl.NotificationLead, inst.NotificationLead)

	standalone := tpl.Materialize("id-2", "", tpl.Date)
	assert.False(t, standalone.Recurring())
}

func TestInstanceTemplateDetaches(t *testing.T) {
	inst := validTemplate().Materialize("id-1", "series-1", dateutil.Date{Year: 2024, Month: time.July, Day: 8})
	tpl := inst.Template()
	assert.Equal(t, None, tpl.Recurrence.Freq)
	assert.Equal(t, mo.None[dateutil.Date](), tpl.Recurrence.EndDate)
	assert.Equal(t, inst.Date, tpl.Date)
}
