package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayplan/dateutil"
	"dayplan/event"
	"dayplan/storage/memory"
)

func instanceStartingAt(id string, date dateutil.Date, start dateutil.TimeOfDay, lead int) event.Instance {
	end := dateutil.TimeOfDay{Hour: start.Hour + 1, Minute: start.Minute}
	return event.Instance{
		ID:               id,
		Title:            "event " + id,
		Date:             date,
		Start:            start,
		End:              end,
		NotificationLead: lead,
	}
}

func TestDue(t *testing.T) {
	day := dateutil.Date{Year: 2024, Month: time.July, Day: 1}
	// Polling at 09:52 local time.
	now := time.Date(2024, time.July, 1, 9, 52, 0, 0, time.UTC)

	tests := []struct {
		name     string
		inst     event.Instance
		notified map[string]bool
		due      bool
	}{
		{
			name: "inside window is due",
			// Starts in 8 minutes with a 10 minute lead.
			inst: instanceStartingAt("a", day, dateutil.TimeOfDay{Hour: 10, Minute: 0}, 10),
			due:  true,
		},
		{
			name: "before window is not due",
			inst: instanceStartingAt("a", day, dateutil.TimeOfDay{Hour: 10, Minute: 30}, 10),
			due:  false,
		},
		{
			name: "window boundary is due",
			inst: instanceStartingAt("a", day, dateutil.TimeOfDay{Hour: 10, Minute: 2}, 10),
			due:  true,
		},
		{
			name: "already started never notifies",
			inst: instanceStartingAt("a", day, dateutil.TimeOfDay{Hour: 9, Minute: 30}, 120),
			due:  false,
		},
		{
			name: "start equal to now never notifies",
			inst: instanceStartingAt("a", day, dateutil.TimeOfDay{Hour: 9, Minute: 52}, 10),
			due:  false,
		},
		{
			name: "zero lead disables notification",
			inst: instanceStartingAt("a", day, dateutil.TimeOfDay{Hour: 10, Minute: 0}, 0),
			due:  false,
		},
		{
			name:     "already notified id is suppressed",
			inst:     instanceStartingAt("a", day, dateutil.TimeOfDay{Hour: 10, Minute: 0}, 10),
			notified: map[string]bool{"a": true},
			due:      false,
		},
		{
			name: "past date never notifies",
			inst: instanceStartingAt("a", dateutil.Date{Year: 2024, Month: time.June, Day: 30},
				dateutil.TimeOfDay{Hour: 10, Minute: 0}, 10),
			due: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := Due(now, []event.Instance{tt.inst}, tt.notified)
			if tt.due {
				require.Len(t, due, 1)
				assert.Equal(t, tt.inst.ID, due[0].Instance.ID)
			} else {
				assert.Empty(t, due)
			}
		})
	}
}

func TestDueMessage(t *testing.T) {
	day := dateutil.Date{Year: 2024, Month: time.July, Day: 1}
	now := time.Date(2024, time.July, 1, 9, 52, 0, 0, time.UTC)
	inst := instanceStartingAt("a", day, dateutil.TimeOfDay{Hour: 10, Minute: 0}, 10)
	inst.Title = "Standup"

	due := Due(now, []event.Instance{inst}, nil)
	require.Len(t, due, 1)
	assert.Equal(t, "Standup starts in 8 minute(s) at 10:00", due[0].Message)
}

func TestDueMultipleIndependent(t *testing.T) {
	day := dateutil.Date{Year: 2024, Month: time.July, Day: 1}
	now := time.Date(2024, time.July, 1, 9, 55, 0, 0, time.UTC)

	instances := []event.Instance{
		instanceStartingAt("a", day, dateutil.TimeOfDay{Hour: 10, Minute: 0}, 10),
		instanceStartingAt("b", day, dateutil.TimeOfDay{Hour: 10, Minute: 0}, 10),
		instanceStartingAt("c", day, dateutil.TimeOfDay{Hour: 11, Minute: 0}, 10),
	}

	due := Due(now, instances, map[string]bool{"b": true})
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].Instance.ID)
}

func TestDueRecurringInstancesNotifyPerOccurrence(t *testing.T) {
	// Two occurrences of the same series on consecutive days; only the one
	// whose window is open at now is due, keyed by its own instance ID.
	today := dateutil.Date{Year: 2024, Month: time.July, Day: 1}
	tomorrow := dateutil.Date{Year: 2024, Month: time.July, Day: 2}
	now := time.Date(2024, time.July, 1, 9, 55, 0, 0, time.UTC)

	first := instanceStartingAt("occ-1", today, dateutil.TimeOfDay{Hour: 10, Minute: 0}, 10)
	first.SeriesID = "s1"
	second := instanceStartingAt("occ-2", tomorrow, dateutil.TimeOfDay{Hour: 10, Minute: 0}, 10)
	second.SeriesID = "s1"

	due := Due(now, []event.Instance{first, second}, nil)
	require.Len(t, due, 1)
	assert.Equal(t, "occ-1", due[0].Instance.ID)
}

func TestPollerDeliversAtMostOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	day := dateutil.Date{Year: 2024, Month: time.July, Day: 1}
	inst := instanceStartingAt("a", day, dateutil.TimeOfDay{Hour: 10, Minute: 0}, 10)
	require.NoError(t, store.Create(ctx, inst))

	var delivered []Notification
	poller := NewPoller(store, time.UTC, func(n Notification) {
		delivered = append(delivered, n)
	}, nil)

	now := time.Date(2024, time.July, 1, 9, 52, 0, 0, time.UTC)
	require.NoError(t, poller.PollAt(ctx, now))
	require.Len(t, delivered, 1)
	assert.Equal(t, "a", delivered[0].Instance.ID)

	// Polling again inside the same window delivers nothing new.
	require.NoError(t, poller.PollAt(ctx, now.Add(time.Second)))
	require.NoError(t, poller.PollAt(ctx, now.Add(2*time.Second)))
	assert.Len(t, delivered, 1)
}

func TestPollerRejectsBadCronSpec(t *testing.T) {
	poller := NewPoller(memory.New(), time.UTC, func(Notification) {}, nil)
	err := poller.Run(context.Background(), "not a cron spec")
	assert.Error(t, err)
}
