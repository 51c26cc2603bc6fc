package counter

import (
	"fmt"
	"sort"

	"github.com/louisbranch/reactions/internal/reaction"
)

// Accumulator folds a stream of one subject's events into counters. Only the
// types seen in the stream get a counter; each starts at the defaults.
type Accumulator struct {
	subjectID string
	counters  map[string]reaction.Counter
	events    int
}

// NewAccumulator returns an empty accumulator for subjectID.
func NewAccumulator(subjectID string) *Accumulator {
	return &Accumulator{
		subjectID: subjectID,
		counters:  make(map[string]reaction.Counter),
	}
}

// Add folds evt. Events of other subjects are rejected with ErrSubjectMismatch.
func (a *Accumulator) Add(evt reaction.Event) error {
	if evt.SubjectID != a.subjectID {
		return fmt.Errorf("%w: event %s is for %s, accumulating %s", ErrSubjectMismatch, evt.ID, evt.SubjectID, a.subjectID)
	}
	c, ok := a.counters[evt.ReactionTypeID]
	if !ok {
		c = reaction.NewCounter(a.subjectID, evt.ReactionTypeID)
	}
	c, err := Apply(c, evt)
	if err != nil {
		return err
	}
	a.counters[evt.ReactionTypeID] = c
	a.events++
	return nil
}

// Events returns how many events were folded.
func (a *Accumulator) Events() int {
	return a.events
}

// Counters returns the folded counters ordered by reaction type id.
func (a *Accumulator) Counters() []reaction.Counter {
	out := make([]reaction.Counter, 0, len(a.counters))
	for _, c := range a.counters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReactionTypeID < out[j].ReactionTypeID })
	return out
}

// Fold folds events of subjectID into counters keyed by reaction type id.
func Fold(subjectID string, events []reaction.Event) (map[string]reaction.Counter, error) {
	acc := NewAccumulator(subjectID)
	for _, evt := range events {
		if err := acc.Add(evt); err != nil {
			return nil, err
		}
	}
	out := make(map[string]reaction.Counter, len(acc.counters))
	for id, c := range acc.counters {
		out[id] = c
	}
	return out, nil
}
