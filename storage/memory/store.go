// Package memory provides a map-backed Store, used for tests and as the
// default backend of the daemon.
package memory

import (
	"context"
	"sort"
	"sync"

	"dayplan/event"
	"dayplan/storage"
)

// Store implements storage.Store using in-memory maps.
type Store struct {
	mu        sync.RWMutex
	instances map[string]event.Instance
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		instances: make(map[string]event.Instance),
	}
}

func (s *Store) List(_ context.Context) ([]event.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]event.Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, inst)
	}
	sortInstances(out)
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (*event.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "instance " + id + " not found"}
	}
	return &inst, nil
}

func (s *Store) Create(_ context.Context, inst event.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(inst)
}

func (s *Store) CreateBatch(_ context.Context, instances []event.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching the map so a duplicate in the
	// middle cannot leave a partial write behind.
	for _, inst := range instances {
		if inst.ID == "" {
			return &storage.Error{Type: storage.ErrInvalidInput, Message: "instance id must not be empty"}
		}
		if _, exists := s.instances[inst.ID]; exists {
			return &storage.Error{Type: storage.ErrAlreadyExists, Message: "instance " + inst.ID + " already exists"}
		}
	}
	for _, inst := range instances {
		s.instances[inst.ID] = inst
	}
	return nil
}

func (s *Store) Update(_ context.Context, inst event.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instances[inst.ID]; !exists {
		return &storage.Error{Type: storage.ErrNotFound, Message: "instance " + inst.ID + " not found"}
	}
	s.instances[inst.ID] = inst
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instances[id]; !exists {
		return &storage.Error{Type: storage.ErrNotFound, Message: "instance " + id + " not found"}
	}
	delete(s.instances, id)
	return nil
}

func (s *Store) ListSeries(_ context.Context, seriesID string) ([]event.Instance, error) {
	if seriesID == "" {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "series id must not be empty"}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Instance
	for _, inst := range s.instances {
		if inst.SeriesID == seriesID {
			out = append(out, inst)
		}
	}
	sortInstances(out)
	return out, nil
}

func (s *Store) DeleteSeries(_ context.Context, seriesID string) error {
	if seriesID == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "series id must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteSeriesLocked(seriesID)
	return nil
}

func (s *Store) ReplaceSeries(_ context.Context, seriesID string, replacements []event.Instance) error {
	if seriesID == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "series id must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inst := range replacements {
		if existing, exists := s.instances[inst.ID]; exists && existing.SeriesID != seriesID {
			return &storage.Error{Type: storage.ErrAlreadyExists, Message: "instance " + inst.ID + " already exists"}
		}
	}

	s.deleteSeriesLocked(seriesID)
	for _, inst := range replacements {
		s.instances[inst.ID] = inst
	}
	return nil
}

func (s *Store) Close() error { return nil }

// insert validates and stores a single instance; callers must hold s.mu.
func (s *Store) insert(inst event.Instance) error {
	if inst.ID == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "instance id must not be empty"}
	}
	if _, exists := s.instances[inst.ID]; exists {
		return &storage.Error{Type: storage.ErrAlreadyExists, Message: "instance " + inst.ID + " already exists"}
	}
	s.instances[inst.ID] = inst
	return nil
}

func (s *Store) deleteSeriesLocked(seriesID string) {
	for id, inst := range s.instances {
		if inst.SeriesID == seriesID {
			delete(s.instances, id)
		}
	}
}

// sortInstances orders by date, then start time, then ID for a stable listing.
func sortInstances(instances []event.Instance) {
	sort.Slice(instances, func(i, j int) bool {
		a, b := instances[i], instances[j]
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		if a.Start.Minutes() != b.Start.Minutes() {
			return a.Start.Minutes() < b.Start.Minutes()
		}
		return a.ID < b.ID
	})
}
