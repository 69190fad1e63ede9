// Package notify decides which event instances have entered their
// notification window. The decision function is pure: it reads an injected
// clock instant and returns due notifications without touching any state, so
// callers may invoke it redundantly or late without duplicating alerts.
package notify

import (
	"fmt"
	"time"

	"dayplan/event"
)

// Notification pairs a due instance with its user-facing message.
type Notification struct {
	Instance event.Instance
	Message  string
}

// Due returns the instances newly due to notify at now, in input order. An
// instance is due when its notification lead is positive, its start instant
// is still in the future, now has reached start minus the lead, and its ID is
// not in notified. Events already started never notify, even inside the lead
// window.
//
// At-most-once delivery is keyed by instance ID: the caller must record the
// returned IDs in notified before the next poll. Each occurrence of a
// recurring series notifies independently.
func Due(now time.Time, instances []event.Instance, notified map[string]bool) []Notification {
	var due []Notification
	for _, inst := range instances {
		if inst.NotificationLead <= 0 || notified[inst.ID] {
			continue
		}
		start := inst.Date.At(inst.Start, now.Location())
		if !start.After(now) {
			continue
		}
		windowOpen := start.Add(-time.Duration(inst.NotificationLead) * time.Minute)
		if now.Before(windowOpen) {
			continue
		}
		due = append(due, Notification{
			Instance: inst,
			Message:  message(inst, start.Sub(now)),
		})
	}
	return due
}

func message(inst event.Instance, untilStart time.Duration) string {
	minutes := int(untilStart.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%s starts in %d minute(s) at %s", inst.Title, minutes, inst.Start)
}
