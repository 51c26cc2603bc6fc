package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/reactions/internal/reaction"
	"github.com/louisbranch/reactions/internal/storage"
)

// Store is the persistence needed by the live counter path.
type Store interface {
	storage.CounterStore
	storage.TotalStore
}

// Service maintains counters and totals incrementally as reactions are added
// or removed. It is the write path that Recount repairs.
type Service struct {
	store Store
}

// NewService returns a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// AddReaction applies evt to its counter and to the subject total,
// materializing either at the defaults when missing.
func (s *Service) AddReaction(ctx context.Context, evt reaction.Event) error {
	return s.update(ctx, evt, Apply, 1)
}

// RemoveReaction reverts a previously added evt.
func (s *Service) RemoveReaction(ctx context.Context, evt reaction.Event) error {
	return s.update(ctx, evt, Unapply, -1)
}

func (s *Service) update(ctx context.Context, evt reaction.Event, op func(reaction.Counter, reaction.Event) (reaction.Counter, error), sign int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("counter store is not configured")
	}

	c, err := s.store.GetCounter(ctx, evt.SubjectID, evt.ReactionTypeID)
	if errors.Is(err, storage.ErrNotFound) {
		c = reaction.NewCounter(evt.SubjectID, evt.ReactionTypeID)
	} else if err != nil {
		return fmt.Errorf("get counter: %w", err)
	}
	c, err = op(c, evt)
	if err != nil {
		return err
	}
	if err := s.store.PutCounter(ctx, c); err != nil {
		return fmt.Errorf("put counter: %w", err)
	}

	total, err := s.store.GetTotal(ctx, evt.SubjectID)
	if errors.Is(err, storage.ErrNotFound) {
		total = reaction.NewTotal(evt.SubjectID)
	} else if err != nil {
		return fmt.Errorf("get total: %w", err)
	}
	total.Count += sign
	if sign > 0 {
		total.Weight = total.Weight.Add(evt.Weight)
	} else {
		total.Weight = total.Weight.Sub(evt.Weight)
	}
	if err := s.store.PutTotal(ctx, total); err != nil {
		return fmt.Errorf("put total: %w", err)
	}
	return nil
}
