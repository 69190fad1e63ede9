// Package overlap detects time conflicts between event instances on the same
// calendar date.
package overlap

import (
	"dayplan/dateutil"
	"dayplan/event"
)

// Candidate is the date and time interval being checked for conflicts.
type Candidate struct {
	Date  dateutil.Date
	Start dateutil.TimeOfDay
	End   dateutil.TimeOfDay
}

// CandidateOf extracts the overlap-relevant fields of an instance.
func CandidateOf(inst event.Instance) Candidate {
	return Candidate{Date: inst.Date, Start: inst.Start, End: inst.End}
}

// Find returns the existing instances the candidate overlaps with, in the
// order they were given. Two instances overlap when they fall on the same
// date and their [start, end) intervals intersect; back-to-back events
// sharing only a boundary do not. excludeID skips one instance by ID so an
// edit does not conflict with its own stored version; pass "" to exclude
// nothing.
func Find(candidate Candidate, existing []event.Instance, excludeID string) []event.Instance {
	var conflicts []event.Instance
	for _, inst := range existing {
		if excludeID != "" && inst.ID == excludeID {
			continue
		}
		if inst.Date != candidate.Date {
			continue
		}
		if intersects(candidate.Start, candidate.End, inst.Start, inst.End) {
			conflicts = append(conflicts, inst)
		}
	}
	return conflicts
}

// intersects applies half-open interval semantics: [s1,e1) and [s2,e2)
// intersect iff s1 < e2 && s2 < e1.
func intersects(s1, e1, s2, e2 dateutil.TimeOfDay) bool {
	return s1.Before(e2) && s2.Before(e1)
}
