// Package counter holds the arithmetic shared by the live counter path and
// the recount rebuild. Both fold events through Apply so rebuilt counters can
// never diverge from incrementally maintained ones.
package counter

import (
	"errors"
	"fmt"

	"github.com/louisbranch/reactions/internal/reaction"
)

// ErrSubjectMismatch reports an event folded into another subject's counter.
var ErrSubjectMismatch = errors.New("event belongs to another subject")

// ErrTypeMismatch reports an event folded into another reaction type's counter.
var ErrTypeMismatch = errors.New("event belongs to another reaction type")

// Apply adds one event to c: count grows by one and weight by the event weight.
func Apply(c reaction.Counter, evt reaction.Event) (reaction.Counter, error) {
	if err := check(c, evt); err != nil {
		return c, err
	}
	c.Count++
	c.Weight = c.Weight.Add(evt.Weight)
	return c, nil
}

// Unapply removes one previously applied event from c.
func Unapply(c reaction.Counter, evt reaction.Event) (reaction.Counter, error) {
	if err := check(c, evt); err != nil {
		return c, err
	}
	if c.Count <= 0 {
		return c, fmt.Errorf("counter %s/%s is already empty", c.SubjectID, c.ReactionTypeID)
	}
	c.Count--
	c.Weight = c.Weight.Sub(evt.Weight)
	return c, nil
}

func check(c reaction.Counter, evt reaction.Event) error {
	if evt.SubjectID != c.SubjectID {
		return fmt.Errorf("%w: event %s is for %s, counter is for %s", ErrSubjectMismatch, evt.ID, evt.SubjectID, c.SubjectID)
	}
	if c.IsNotReactionOfType(evt.ReactionTypeID) {
		return fmt.Errorf("%w: event %s is %s, counter is %s", ErrTypeMismatch, evt.ID, evt.ReactionTypeID, c.ReactionTypeID)
	}
	return nil
}
