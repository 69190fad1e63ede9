// Package event defines the calendar data model: user-authored templates,
// materialized instances, recurrence rules and categories, together with the
// validation applied before anything is expanded or persisted.
package event

import (
	"errors"
	"fmt"

	"dayplan/dateutil"
)

var (
	// ErrEmptyTitle is returned when a template has no title.
	ErrEmptyTitle = errors.New("event title must not be empty")
	// ErrInvalidTimeRange is returned when an event ends at or before it starts.
	ErrInvalidTimeRange = errors.New("event end time must be after start time")
)

// Category is the enumerated tag attached to events.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryFamily   Category = "family"
	CategoryOther    Category = "other"
)

// Valid reports whether c is one of the known categories. The empty category
// is accepted and treated as uncategorized.
func (c Category) Valid() bool {
	switch c {
	case "", CategoryWork, CategoryPersonal, CategoryFamily, CategoryOther:
		return true
	}
	return false
}

// Template is a user-authored event definition before expansion. Date is the
// anchor occurrence; for recurring templates the expander derives all further
// occurrence dates from it.
type Template struct {
	Title       string             `json:"title"`
	Date        dateutil.Date      `json:"date"`
	Start       dateutil.TimeOfDay `json:"startTime"`
	End         dateutil.TimeOfDay `json:"endTime"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	Category    Category           `json:"category,omitempty"`
	Recurrence  Recurrence         `json:"recurrence"`

	// NotificationLead is the lead time in minutes before the start at which
	// the event becomes due to notify. Zero disables notification.
	NotificationLead int `json:"notificationLeadMinutes"`
}

// Validate checks every template invariant. It reports the first violation
// found; nothing is mutated on failure.
func (t Template) Validate() error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if !t.Date.Valid() {
		return fmt.Errorf("%w: %s", dateutil.ErrInvalidDate, t.Date)
	}
	if !t.Start.Valid() {
		return fmt.Errorf("start %w: %s", dateutil.ErrInvalidTime, t.Start)
	}
	if !t.End.Valid() {
		return fmt.Errorf("end %w: %s", dateutil.ErrInvalidTime, t.End)
	}
	if !t.Start.Before(t.End) {
		return fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, t.Start, t.End)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("unknown category %q", t.Category)
	}
	if t.NotificationLead < 0 {
		return fmt.Errorf("notification lead must not be negative: %d", t.NotificationLead)
	}
	return t.Recurrence.Validate(t.Date)
}

// Instance is one concrete, dated occurrence. It carries all template fields
// bound to a single date plus a stable ID. SeriesID is a weak back-reference
// to the spawning series; it is empty for standalone events and never owns
// anything — series-wide operations match on it.
type Instance struct {
	ID       string `json:"id"`
	SeriesID string `json:"seriesId,omitempty"`

	Title       string             `json:"title"`
	Date        dateutil.Date      `json:"date"`
	Start       dateutil.TimeOfDay `json:"startTime"`
	End         dateutil.TimeOfDay `json:"endTime"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	Category    Category           `json:"category,omitempty"`

	NotificationLead int `json:"notificationLeadMinutes"`
}

// Recurring reports whether the instance belongs to a series.
func (i Instance) Recurring() bool { return i.SeriesID != "" }

// Validate checks the instance fields shared with Template plus the ID.
func (i Instance) Validate() error {
	if i.ID == "" {
		return errors.New("instance id must not be empty")
	}
	return i.Template().Validate()
}

// Template returns the template an edit of this single instance represents.
// The recurrence is always none: editing one occurrence detaches it from its
// series.
func (i Instance) Template() Template {
	return Template{
		Title:            i.Title,
		Date:             i.Date,
		Start:            i.Start,
		End:              i.End,
		Description:      i.Description,
		Location:         i.Location,
		Category:         i.Category,
		Recurrence:       Recurrence{Freq: None, Interval: 1},
		NotificationLead: i.NotificationLead,
	}
}

// Materialize binds the template to one concrete date, producing an instance
// with the given identifiers.
func (t Template) Materialize(id, seriesID string, date dateutil.Date) Instance {
	return Instance{
		ID:               id,
		SeriesID:         seriesID,
		Title:            t.Title,
		Date:             date,
		Start:            t.Start,
		End:              t.End,
		Description:      t.Description,
		Location:         t.Location,
		Category:         t.Category,
		NotificationLead: t.NotificationLead,
	}
}
