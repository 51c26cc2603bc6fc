// Package storage defines the persistence contracts consumed by the recount
// engine and the incremental counter path. Concrete backends live in the
// memory and sqlite subpackages.
package storage

import (
	"context"

	apperrors "github.com/louisbranch/reactions/internal/platform/errors"
	"github.com/louisbranch/reactions/internal/reaction"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity" states
// and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// DefaultEventPageSize bounds how many events a caller should request per page.
const DefaultEventPageSize = 200

// SubjectStore enumerates reacted subjects.
type SubjectStore interface {
	// ListSubjects returns every subject of kind, or every subject when kind is empty.
	ListSubjects(ctx context.Context, kind string) ([]reaction.Subject, error)
	PutSubject(ctx context.Context, subject reaction.Subject) error
}

// ReactionTypeStore resolves reaction types.
type ReactionTypeStore interface {
	// GetReactionTypeByName returns ErrNotFound when no type has that name.
	GetReactionTypeByName(ctx context.Context, name string) (reaction.ReactionType, error)
	PutReactionType(ctx context.Context, reactionType reaction.ReactionType) error
}

// EventStore reads and appends reaction events.
type EventStore interface {
	// ListEvents pages a subject's events in Seq order, strictly after afterSeq.
	// An empty reactionTypeID selects every type.
	ListEvents(ctx context.Context, subjectID, reactionTypeID string, afterSeq uint64, limit int) ([]reaction.Event, error)
	// AppendEvent stores evt and returns it with Seq assigned.
	AppendEvent(ctx context.Context, evt reaction.Event) (reaction.Event, error)
}

// CounterStore reads and writes per-type counters.
type CounterStore interface {
	// ListCounters returns every counter of a subject, ordered by reaction type id.
	ListCounters(ctx context.Context, subjectID string) ([]reaction.Counter, error)
	// GetCounter returns ErrNotFound when the pair has never been materialized.
	GetCounter(ctx context.Context, subjectID, reactionTypeID string) (reaction.Counter, error)
	// PutCounter creates or replaces the counter for its (subject, type) pair.
	PutCounter(ctx context.Context, counter reaction.Counter) error
}

// TotalStore reads and writes per-subject totals.
type TotalStore interface {
	// GetTotal returns ErrNotFound when the subject has no total yet.
	GetTotal(ctx context.Context, subjectID string) (reaction.Total, error)
	// PutTotal creates or replaces the subject's total.
	PutTotal(ctx context.Context, total reaction.Total) error
}

// AggregateStore is the subset needed to rebuild one subject.
type AggregateStore interface {
	EventStore
	CounterStore
	TotalStore
}

// Store is the full persistence surface of a backend.
type Store interface {
	SubjectStore
	ReactionTypeStore
	AggregateStore
}

// Transactor is implemented by stores that can scope a unit of work. fn runs
// against a store bound to the transaction; returning an error rolls it back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, store AggregateStore) error) error
}
