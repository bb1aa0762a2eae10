// Package store holds the single current attitude solution shared between
// the pipeline loop (sole writer) and whatever serves external reads. The
// critical section covers only the record swap itself: capture and solve work
// never happens under this lock, so readers are blocked for microseconds even
// when a solve takes seconds.
package store

import (
	"fmt"
	"sync"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventSolutionReplaced EventType = iota
)

// Event is emitted to subscribers when the current record changes.
type Event struct {
	Type   EventType
	Record model.SolutionRecord
}

// SolutionStore is the thread-safe holder of the current SolutionRecord.
// Records are replaced wholesale; a reader always observes one fully-formed
// record, never a mix of two solves.
type SolutionStore struct {
	mu      sync.RWMutex
	current model.SolutionRecord

	subs []func(Event)
}

// NewSolutionStore starts with the never-solved record: sequence zero and an
// invalid attitude, so consumers can tell "no solution yet" from a genuine
// zero-angle solve.
func NewSolutionStore() *SolutionStore {
	return &SolutionStore{
		current: model.SolutionRecord{Attitude: model.InvalidAttitude()},
	}
}

// Current returns the current record as one atomic snapshot. Stale reads —
// a record from an earlier cycle — are expected, not an error.
func (s *SolutionStore) Current() model.SolutionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps in a new record and notifies subscribers. The single-writer
// discipline makes ordering regressions a programming error, so they are
// rejected rather than silently accepted.
func (s *SolutionStore) Replace(rec model.SolutionRecord) error {
	s.mu.Lock()
	if rec.Seq <= s.current.Seq && s.current.Seq != 0 {
		cur := s.current.Seq
		s.mu.Unlock()
		return fmt.Errorf("record sequence %d does not advance current %d", rec.Seq, cur)
	}
	if !rec.Timestamp.IsZero() && rec.Timestamp.Before(s.current.Timestamp) {
		cur := s.current.Timestamp
		s.mu.Unlock()
		return fmt.Errorf("record timestamp %v behind current %v", rec.Timestamp, cur)
	}
	s.current = rec
	event := Event{Type: EventSolutionReplaced, Record: rec}
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Subscribe registers a callback for store events. It returns an unsubscribe
// function.
func (s *SolutionStore) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < 0 || idx >= len(s.subs) {
			return
		}
		s.subs = append(s.subs[:idx], s.subs[idx+1:]...)
		idx = -1
	}
}
