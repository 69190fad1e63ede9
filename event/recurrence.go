package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/mo"

	"dayplan/dateutil"
)

// ErrInvalidRecurrenceRule is returned for a non-positive interval or an end
// date before the anchor date.
var ErrInvalidRecurrenceRule = errors.New("invalid recurrence rule")

// Frequency is the closed set of supported recurrence frequencies.
type Frequency int

const (
	None Frequency = iota
	Daily
	Weekly
	Monthly
	Yearly
)

var frequencyNames = map[Frequency]string{
	None:    "none",
	Daily:   "daily",
	Weekly:  "weekly",
	Monthly: "monthly",
	Yearly:  "yearly",
}

// String returns the lowercase name of the frequency.
func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("frequency(%d)", int(f))
}

// ParseFrequency maps a lowercase frequency name back to its value.
func ParseFrequency(s string) (Frequency, error) {
	for f, name := range frequencyNames {
		if name == s {
			return f, nil
		}
	}
	return None, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRecurrenceRule, s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Frequency) UnmarshalText(b []byte) error {
	parsed, err := ParseFrequency(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Recurrence is the tagged recurrence variant: Freq selects the step kind and
// Interval/EndDate are the shared payload. A None frequency means a single
// occurrence and ignores the payload.
type Recurrence struct {
	Freq     Frequency
	Interval int
	// EndDate is the inclusive last date occurrences may fall on. When
	// absent, expansion is bounded by the caller's horizon and the
	// occurrence cap instead.
	EndDate mo.Option[dateutil.Date]
}

// NoRecurrence returns the rule for a single, non-recurring event.
func NoRecurrence() Recurrence {
	return Recurrence{Freq: None, Interval: 1}
}

// Every builds a bounded-by-horizon rule with the given frequency and interval.
func Every(freq Frequency, interval int) Recurrence {
	return Recurrence{Freq: freq, Interval: interval}
}

// Until returns a copy of the rule with the inclusive end date set.
func (r Recurrence) Until(end dateutil.Date) Recurrence {
	r.EndDate = mo.Some(end)
	return r
}

// Validate checks the rule against the anchor date it applies to. Rules with
// a None frequency are always valid.
func (r Recurrence) Validate(anchor dateutil.Date) error {
	if r.Freq == None {
		return nil
	}
	if _, ok := frequencyNames[r.Freq]; !ok {
		return fmt.Errorf("%w: unknown frequency %d", ErrInvalidRecurrenceRule, int(r.Freq))
	}
	if r.Interval <= 0 {
		return fmt.Errorf("%w: interval %d is not positive", ErrInvalidRecurrenceRule, r.Interval)
	}
	if end, ok := r.EndDate.Get(); ok {
		if !end.Valid() {
			return fmt.Errorf("%w: end date %s", dateutil.ErrInvalidDate, end)
		}
		if end.Before(anchor) {
			return fmt.Errorf("%w: end date %s is before anchor %s", ErrInvalidRecurrenceRule, end, anchor)
		}
	}
	return nil
}

// recurrenceJSON is the wire form of Recurrence; the optional end date
// flattens to a nullable field.
type recurrenceJSON struct {
	Freq     Frequency      `json:"frequency"`
	Interval int            `json:"interval,omitempty"`
	EndDate  *dateutil.Date `json:"endDate,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Recurrence) MarshalJSON() ([]byte, error) {
	out := recurrenceJSON{Freq: r.Freq, Interval: r.Interval}
	if end, ok := r.EndDate.Get(); ok {
		out.EndDate = &end
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Recurrence) UnmarshalJSON(b []byte) error {
	var in recurrenceJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	r.Freq = in.Freq
	r.Interval = in.Interval
	if in.EndDate != nil {
		r.EndDate = mo.Some(*in.EndDate)
	} else {
		r.EndDate = mo.None[dateutil.Date]()
	}
	return nil
}
