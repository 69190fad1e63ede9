// Package planner orchestrates the calendar core: it validates templates,
// expands recurrences, runs overlap detection and commits the resulting
// instances to the event store. It is the only component allowed to write to
// the store, and it serializes every check-then-act sequence so two
// concurrent submissions cannot both pass an overlap check against a stale
// view.
package planner

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"dayplan/dateutil"
	"dayplan/event"
	"dayplan/overlap"
	"dayplan/recurrence"
	"dayplan/storage"
)

// OverlapWarning reports which stored instances a submission conflicts with.
// It is structured data for the caller to surface, not an error: the caller
// may resubmit with force to commit anyway.
type OverlapWarning struct {
	Conflicts []event.Instance
}

// CreateResult is the outcome of a create or update submission. When Warning
// is non-nil nothing was written.
type CreateResult struct {
	Instances []event.Instance
	Warning   *OverlapWarning
}

// Planner coordinates expansion, overlap checking and persistence.
type Planner struct {
	store  storage.Store
	opts   recurrence.Options
	logger *slog.Logger

	// mu makes overlap-check-then-persist atomic against this planner.
	mu sync.Mutex
}

// New creates a planner on the given store. A nil logger discards.
func New(store storage.Store, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Planner{
		store:  store,
		opts:   recurrence.DefaultOptions,
		logger: logger,
	}
}

// Create submits a template. Non-recurring templates are overlap-checked
// against the store; on conflict, nothing is written and the result carries
// the warning unless force is set. Recurring templates are exempt from
// overlap checking by policy: a series may legitimately co-occur with other
// events, so only its bounds are enforced.
func (p *Planner) Create(ctx context.Context, tpl event.Template, force bool) (*CreateResult, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	dates, err := recurrence.Expand(tpl, recurrence.DefaultHorizon(tpl.Date), p.opts)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	recurring := tpl.Recurrence.Freq != event.None
	if !recurring && !force {
		existing, err := p.store.List(ctx)
		if err != nil {
			return nil, err
		}
		conflicts := overlap.Find(overlap.Candidate{Date: tpl.Date, Start: tpl.Start, End: tpl.End}, existing, "")
		if len(conflicts) > 0 {
			p.logger.Info("overlap detected on create", "title", tpl.Title, "conflicts", len(conflicts))
			return &CreateResult{Warning: &OverlapWarning{Conflicts: conflicts}}, nil
		}
	}

	seriesID := ""
	if recurring {
		seriesID = uuid.NewString()
	}
	instances := make([]event.Instance, 0, len(dates))
	for _, date := range dates {
		instances = append(instances, tpl.Materialize(uuid.NewString(), seriesID, date))
	}

	if err := p.store.CreateBatch(ctx, instances); err != nil {
		return nil, err
	}
	p.logger.Info("events created",
		"title", tpl.Title,
		"count", len(instances),
		"recurring", recurring)
	return &CreateResult{Instances: instances}, nil
}

// UpdateInstance edits one stored instance in place. The overlap check
// excludes the instance's own prior version; on conflict nothing is written
// and the result carries the warning unless force is set. Editing an
// occurrence of a series detaches it: the stored instance loses its series
// link and further series-wide operations no longer touch it.
func (p *Planner) UpdateInstance(ctx context.Context, inst event.Instance, force bool) (*CreateResult, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.store.Get(ctx, inst.ID); err != nil {
		return nil, err
	}

	if !force {
		existing, err := p.store.List(ctx)
		if err != nil {
			return nil, err
		}
		conflicts := overlap.Find(overlap.CandidateOf(inst), existing, inst.ID)
		if len(conflicts) > 0 {
			p.logger.Info("overlap detected on update", "id", inst.ID, "conflicts", len(conflicts))
			return &CreateResult{Warning: &OverlapWarning{Conflicts: conflicts}}, nil
		}
	}

	inst.SeriesID = ""
	if err := p.store.Update(ctx, inst); err != nil {
		return nil, err
	}
	p.logger.Info("event updated", "id", inst.ID, "title", inst.Title)
	return &CreateResult{Instances: []event.Instance{inst}}, nil
}

// UpdateSeries re-expands the template and atomically replaces every
// instance still linked to the series. Like recurring creation it is exempt
// from overlap checking.
func (p *Planner) UpdateSeries(ctx context.Context, seriesID string, tpl event.Template) ([]event.Instance, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	if tpl.Recurrence.Freq == event.None {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "series update requires a recurring template"}
	}

	dates, err := recurrence.Expand(tpl, recurrence.DefaultHorizon(tpl.Date), p.opts)
	if err != nil {
		return nil, err
	}

	instances := make([]event.Instance, 0, len(dates))
	for _, date := range dates {
		instances = append(instances, tpl.Materialize(uuid.NewString(), seriesID, date))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.ReplaceSeries(ctx, seriesID, instances); err != nil {
		return nil, err
	}
	p.logger.Info("series replaced", "series_id", seriesID, "count", len(instances))
	return instances, nil
}

// DeleteInstance removes one stored instance.
func (p *Planner) DeleteInstance(ctx context.Context, id string) error {
	if err := p.store.Delete(ctx, id); err != nil {
		return err
	}
	p.logger.Info("event deleted", "id", id)
	return nil
}

// DeleteSeries removes every instance linked to the series.
func (p *Planner) DeleteSeries(ctx context.Context, seriesID string) error {
	if err := p.store.DeleteSeries(ctx, seriesID); err != nil {
		return err
	}
	p.logger.Info("series deleted", "series_id", seriesID)
	return nil
}

// Search returns the instances whose title, description or location contains
// the query, case-insensitively. An empty query matches everything.
func (p *Planner) Search(ctx context.Context, query string) ([]event.Instance, error) {
	all, err := p.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}

	needle := strings.ToLower(query)
	var out []event.Instance
	for _, inst := range all {
		if matches(inst, needle) {
			out = append(out, inst)
		}
	}
	return out, nil
}

func matches(inst event.Instance, needle string) bool {
	return strings.Contains(strings.ToLower(inst.Title), needle) ||
		strings.Contains(strings.ToLower(inst.Description), needle) ||
		strings.Contains(strings.ToLower(inst.Location), needle)
}

// EventsForWeek returns the instances falling in the Sunday-start week
// containing d, in store listing order.
func (p *Planner) EventsForWeek(ctx context.Context, d dateutil.Date) ([]event.Instance, error) {
	start, end := dateutil.WeekRange(d)
	return p.eventsBetween(ctx, start, end)
}

// EventsForMonth returns the instances falling in the month containing d.
func (p *Planner) EventsForMonth(ctx context.Context, d dateutil.Date) ([]event.Instance, error) {
	return p.eventsBetween(ctx, dateutil.MonthStart(d), dateutil.MonthEnd(d))
}

func (p *Planner) eventsBetween(ctx context.Context, start, end dateutil.Date) ([]event.Instance, error) {
	all, err := p.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []event.Instance
	for _, inst := range all {
		if !inst.Date.Before(start) && !inst.Date.After(end) {
			out = append(out, inst)
		}
	}
	return out, nil
}
