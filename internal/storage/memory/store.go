// Package memory provides an in-process implementation of the storage
// contracts. It backs tests and scratch comparisons; nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/louisbranch/reactions/internal/reaction"
	"github.com/louisbranch/reactions/internal/storage"
)

type counterKey struct {
	subjectID      string
	reactionTypeID string
}

// Store is a mutex-guarded in-memory store implementing storage.Store.
type Store struct {
	mu       sync.RWMutex
	subjects map[string]reaction.Subject
	types    map[string]reaction.ReactionType
	events   []reaction.Event
	counters map[counterKey]reaction.Counter
	totals   map[string]reaction.Total
	lastSeq  uint64
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		subjects: make(map[string]reaction.Subject),
		types:    make(map[string]reaction.ReactionType),
		counters: make(map[counterKey]reaction.Counter),
		totals:   make(map[string]reaction.Total),
	}
}

// PutSubject creates or replaces a subject.
func (s *Store) PutSubject(ctx context.Context, subject reaction.Subject) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(subject.ID) == "" {
		return fmt.Errorf("subject id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[subject.ID] = subject
	return nil
}

// ListSubjects returns subjects ordered by id, filtered by kind when set.
func (s *Store) ListSubjects(ctx context.Context, kind string) ([]reaction.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reaction.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		if kind != "" && subject.Kind != kind {
			continue
		}
		out = append(out, subject)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutReactionType creates or replaces a reaction type. Names stay unique.
func (s *Store) PutReactionType(ctx context.Context, reactionType reaction.ReactionType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(reactionType.ID) == "" {
		return fmt.Errorf("reaction type id is required")
	}
	if strings.TrimSpace(reactionType.Name) == "" {
		return fmt.Errorf("reaction type name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.types {
		if id != reactionType.ID && existing.Name == reactionType.Name {
			return fmt.Errorf("reaction type name %q already used by %s", reactionType.Name, id)
		}
	}
	s.types[reactionType.ID] = reactionType
	return nil
}

// GetReactionTypeByName returns the type with the exact name.
func (s *Store) GetReactionTypeByName(ctx context.Context, name string) (reaction.ReactionType, error) {
	if err := ctx.Err(); err != nil {
		return reaction.ReactionType{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.types {
		if t.Name == name {
			return t, nil
		}
	}
	return reaction.ReactionType{}, storage.ErrNotFound
}

// AppendEvent stores evt with the next sequence number.
func (s *Store) AppendEvent(ctx context.Context, evt reaction.Event) (reaction.Event, error) {
	if err := ctx.Err(); err != nil {
		return reaction.Event{}, err
	}
	if strings.TrimSpace(evt.SubjectID) == "" || strings.TrimSpace(evt.ReactionTypeID) == "" {
		return reaction.Event{}, fmt.Errorf("event subject and reaction type are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeq++
	evt.Seq = s.lastSeq
	s.events = append(s.events, evt)
	return evt, nil
}

// ListEvents pages events of subjectID in Seq order.
func (s *Store) ListEvents(ctx context.Context, subjectID, reactionTypeID string, afterSeq uint64, limit int) ([]reaction.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []reaction.Event
	for _, evt := range s.events {
		if evt.Seq <= afterSeq || evt.SubjectID != subjectID {
			continue
		}
		if reactionTypeID != "" && evt.ReactionTypeID != reactionTypeID {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ListCounters returns counters of subjectID ordered by reaction type id.
func (s *Store) ListCounters(ctx context.Context, subjectID string) ([]reaction.Counter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []reaction.Counter
	for key, c := range s.counters {
		if key.subjectID == subjectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReactionTypeID < out[j].ReactionTypeID })
	return out, nil
}

// GetCounter returns one counter.
func (s *Store) GetCounter(ctx context.Context, subjectID, reactionTypeID string) (reaction.Counter, error) {
	if err := ctx.Err(); err != nil {
		return reaction.Counter{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.counters[counterKey{subjectID: subjectID, reactionTypeID: reactionTypeID}]
	if !ok {
		return reaction.Counter{}, storage.ErrNotFound
	}
	return c, nil
}

// PutCounter creates or replaces a counter.
func (s *Store) PutCounter(ctx context.Context, c reaction.Counter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(c.SubjectID) == "" || strings.TrimSpace(c.ReactionTypeID) == "" {
		return fmt.Errorf("counter subject and reaction type are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[counterKey{subjectID: c.SubjectID, reactionTypeID: c.ReactionTypeID}] = c
	return nil
}

// GetTotal returns the total of subjectID.
func (s *Store) GetTotal(ctx context.Context, subjectID string) (reaction.Total, error) {
	if err := ctx.Err(); err != nil {
		return reaction.Total{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.totals[subjectID]
	if !ok {
		return reaction.Total{}, storage.ErrNotFound
	}
	return t, nil
}

// PutTotal creates or replaces a total.
func (s *Store) PutTotal(ctx context.Context, t reaction.Total) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(t.SubjectID) == "" {
		return fmt.Errorf("total subject is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[t.SubjectID] = t
	return nil
}
