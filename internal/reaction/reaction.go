package reaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate defaults. Counters are reset to the counter defaults before a
// rebuild; totals are summed starting from the total defaults.
const (
	CounterCountDefault int64 = 0
	TotalCountDefault   int64 = 0
)

var (
	CounterWeightDefault = decimal.Zero
	TotalWeightDefault   = decimal.Zero
)

// Subject is an entity that receives reactions (a "reactant").
type Subject struct {
	ID string
	// Kind is the canonical kind string of the reacted record, e.g. "article".
	Kind string
}

// ReactionType is a named category of reaction such as "Like" or "Love".
type ReactionType struct {
	ID   string
	Name string
	// Mass is the default weight of a single reaction of this type.
	Mass int
}

// Event is one actor reacting once to one subject.
type Event struct {
	// Seq is the store-assigned ordering key; zero until persisted.
	Seq            uint64
	ID             string
	SubjectID      string
	ReactionTypeID string
	ActorID        string
	Weight         decimal.Decimal
	CreatedAt      time.Time
}

// NewEvent builds an event with a fresh time-ordered ID. The weight is the
// reaction type mass scaled by rate.
func NewEvent(subjectID string, reactionType ReactionType, actorID string, rate decimal.Decimal, now time.Time) (Event, error) {
	if strings.TrimSpace(subjectID) == "" {
		return Event{}, fmt.Errorf("subject id is required")
	}
	if strings.TrimSpace(reactionType.ID) == "" {
		return Event{}, fmt.Errorf("reaction type id is required")
	}
	if strings.TrimSpace(actorID) == "" {
		return Event{}, fmt.Errorf("actor id is required")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Event{}, fmt.Errorf("generate event id: %w", err)
	}
	if now.IsZero() {
		now = time.Now()
	}
	return Event{
		ID:             id.String(),
		SubjectID:      subjectID,
		ReactionTypeID: reactionType.ID,
		ActorID:        actorID,
		Weight:         decimal.NewFromInt(int64(reactionType.Mass)).Mul(rate),
		CreatedAt:      now.UTC(),
	}, nil
}

// Counter is the derived aggregate for one (subject, reaction type) pair.
type Counter struct {
	SubjectID      string
	ReactionTypeID string
	Count          int64
	Weight         decimal.Decimal
}

// NewCounter returns a counter at the defaults.
func NewCounter(subjectID, reactionTypeID string) Counter {
	return Counter{
		SubjectID:      subjectID,
		ReactionTypeID: reactionTypeID,
		Count:          CounterCountDefault,
		Weight:         CounterWeightDefault,
	}
}

// IsReactionOfType reports whether the counter aggregates reactionTypeID.
func (c Counter) IsReactionOfType(reactionTypeID string) bool {
	return c.ReactionTypeID == reactionTypeID
}

// IsNotReactionOfType is the negation of IsReactionOfType.
func (c Counter) IsNotReactionOfType(reactionTypeID string) bool {
	return !c.IsReactionOfType(reactionTypeID)
}

// Reset returns the counter with count and weight back at the defaults.
func (c Counter) Reset() Counter {
	return NewCounter(c.SubjectID, c.ReactionTypeID)
}

// Equal compares aggregates exactly; weights compare by value, not scale.
func (c Counter) Equal(other Counter) bool {
	return c.SubjectID == other.SubjectID &&
		c.ReactionTypeID == other.ReactionTypeID &&
		c.Count == other.Count &&
		c.Weight.Equal(other.Weight)
}

// Total is the derived per-subject sum over all of its counters.
type Total struct {
	SubjectID string
	Count     int64
	Weight    decimal.Decimal
}

// NewTotal returns a total at the defaults.
func NewTotal(subjectID string) Total {
	return Total{
		SubjectID: subjectID,
		Count:     TotalCountDefault,
		Weight:    TotalWeightDefault,
	}
}

// SumCounters builds the total of subjectID from counters, starting at the
// total defaults.
func SumCounters(subjectID string, counters []Counter) Total {
	total := NewTotal(subjectID)
	for _, c := range counters {
		total.Count += c.Count
		total.Weight = total.Weight.Add(c.Weight)
	}
	return total
}

// Equal compares totals exactly.
func (t Total) Equal(other Total) bool {
	return t.SubjectID == other.SubjectID &&
		t.Count == other.Count &&
		t.Weight.Equal(other.Weight)
}
