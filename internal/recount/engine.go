package recount

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/reactions/internal/platform/errors"
	"github.com/louisbranch/reactions/internal/reaction"
	"github.com/louisbranch/reactions/internal/reaction/counter"
	"github.com/louisbranch/reactions/internal/reaction/kind"
	"github.com/louisbranch/reactions/internal/storage"
)

const tracerName = "github.com/louisbranch/reactions/internal/recount"

// Filter narrows a run. Empty fields select everything.
type Filter struct {
	// SubjectKind is a kind name or alias.
	SubjectKind string
	// ReactionTypeName is the exact name of a reaction type.
	ReactionTypeName string
}

// Report summarizes a recount run.
type Report struct {
	SubjectKind       string `json:"subject_kind,omitempty"`
	ReactionTypeID    string `json:"reaction_type_id,omitempty"`
	SubjectsProcessed int    `json:"subjects_processed"`
	CountersReset     int    `json:"counters_reset"`
	CountersRebuilt   int    `json:"counters_rebuilt"`
	TotalsRecomputed  int    `json:"totals_recomputed"`
	EventsReplayed    int    `json:"events_replayed"`
}

// Engine rebuilds counters and totals from reaction events.
type Engine struct {
	store    storage.Store
	kinds    Resolver
	progress Progress
	logger   zerolog.Logger
	tracer   trace.Tracer
	pageSize int
}

// New returns an engine reading and writing store. kinds resolves subject kind
// filters; a nil resolver rejects every kind filter.
func New(store storage.Store, kinds Resolver, opts ...Option) *Engine {
	if kinds == nil {
		kinds = (*kind.Registry)(nil)
	}
	e := &Engine{
		store:    store,
		kinds:    kinds,
		progress: nopProgress{},
		logger:   zerolog.Nop(),
		tracer:   otel.Tracer(tracerName),
		pageSize: storage.DefaultEventPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// selection is the resolved working set of a run.
type selection struct {
	kind     string
	typeID   string
	subjects []reaction.Subject
}

// Recount rebuilds the counters and totals of every subject matching filter.
//
// Filter resolution happens before any subject is read, so an invalid kind or
// type leaves the store untouched. On a store failure or cancellation the
// returned report covers the subjects completed so far.
func (e *Engine) Recount(ctx context.Context, filter Filter) (report Report, err error) {
	if e == nil || e.store == nil {
		return Report{}, errors.New("recount engine is not configured")
	}
	ctx, span := e.tracer.Start(ctx, "recount.Recount", trace.WithAttributes(
		attribute.String("reactions.filter.subject_kind", filter.SubjectKind),
		attribute.String("reactions.filter.reaction_type", filter.ReactionTypeName),
	))
	defer func() {
		span.SetAttributes(
			attribute.Int("reactions.subjects_processed", report.SubjectsProcessed),
			attribute.Int("reactions.events_replayed", report.EventsReplayed),
		)
		endSpan(span, err)
	}()

	sel, err := e.selectSubjects(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	report.SubjectKind = sel.kind
	report.ReactionTypeID = sel.typeID

	e.progress.Start(len(sel.subjects))
	for _, subject := range sel.subjects {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		stats, err := e.recountSubject(ctx, subject, sel.typeID)
		if err != nil {
			e.logger.Error().Err(err).Str("subject_id", subject.ID).Int("subjects_processed", report.SubjectsProcessed).Msg("recount aborted")
			return report, err
		}
		report.add(stats)
		e.progress.Advance()
	}
	e.progress.Finish()

	e.logger.Info().
		Str("subject_kind", report.SubjectKind).
		Str("reaction_type_id", report.ReactionTypeID).
		Int("subjects_processed", report.SubjectsProcessed).
		Int("counters_reset", report.CountersReset).
		Int("counters_rebuilt", report.CountersRebuilt).
		Int("events_replayed", report.EventsReplayed).
		Msg("recount finished")
	return report, nil
}

type subjectStats struct {
	countersReset   int
	countersRebuilt int
	totalWritten    bool
	events          int
}

func (r *Report) add(stats subjectStats) {
	r.SubjectsProcessed++
	r.CountersReset += stats.countersReset
	r.CountersRebuilt += stats.countersRebuilt
	r.EventsReplayed += stats.events
	if stats.totalWritten {
		r.TotalsRecomputed++
	}
}

func (e *Engine) recountSubject(ctx context.Context, subject reaction.Subject, typeID string) (stats subjectStats, err error) {
	ctx, span := e.tracer.Start(ctx, "recount.subject", trace.WithAttributes(
		attribute.String("reactions.subject_id", subject.ID),
		attribute.String("reactions.subject_kind", subject.Kind),
	))
	defer func() { endSpan(span, err) }()

	if tx, ok := e.store.(storage.Transactor); ok {
		err = tx.InTx(ctx, func(ctx context.Context, store storage.AggregateStore) error {
			var txErr error
			stats, txErr = e.rebuild(ctx, store, subject.ID, typeID)
			return txErr
		})
	} else {
		stats, err = e.rebuild(ctx, e.store, subject.ID, typeID)
	}
	if err != nil {
		return subjectStats{}, storeFailure(subject.ID, err)
	}

	span.SetAttributes(attribute.Int("reactions.events_replayed", stats.events))
	e.logger.Debug().
		Str("subject_id", subject.ID).
		Int("counters_reset", stats.countersReset).
		Int("counters_rebuilt", stats.countersRebuilt).
		Int("events_replayed", stats.events).
		Bool("total_recomputed", stats.totalWritten).
		Msg("subject recounted")
	return stats, nil
}

// rebuild resets, replays and totals one subject.
func (e *Engine) rebuild(ctx context.Context, store storage.AggregateStore, subjectID, typeID string) (subjectStats, error) {
	var stats subjectStats

	counters, err := store.ListCounters(ctx, subjectID)
	if err != nil {
		return stats, fmt.Errorf("list counters: %w", err)
	}
	for _, c := range counters {
		if typeID != "" && c.IsNotReactionOfType(typeID) {
			continue
		}
		if err := store.PutCounter(ctx, c.Reset()); err != nil {
			return stats, fmt.Errorf("reset counter %s: %w", c.ReactionTypeID, err)
		}
		stats.countersReset++
	}

	acc, err := e.replay(ctx, store, subjectID, typeID)
	if err != nil {
		return stats, err
	}
	stats.events = acc.Events()

	for _, c := range acc.Counters() {
		if err := store.PutCounter(ctx, c); err != nil {
			return stats, fmt.Errorf("put counter %s: %w", c.ReactionTypeID, err)
		}
		stats.countersRebuilt++
	}

	written, err := RecomputeTotal(ctx, store, subjectID)
	if err != nil {
		return stats, err
	}
	stats.totalWritten = written
	return stats, nil
}

// replay folds a subject's events page by page.
func (e *Engine) replay(ctx context.Context, store storage.EventStore, subjectID, typeID string) (*counter.Accumulator, error) {
	acc := counter.NewAccumulator(subjectID)
	var afterSeq uint64
	for {
		events, err := store.ListEvents(ctx, subjectID, typeID, afterSeq, e.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list events after seq %d: %w", afterSeq, err)
		}
		for _, evt := range events {
			if err := acc.Add(evt); err != nil {
				return nil, fmt.Errorf("fold event %s: %w", evt.ID, err)
			}
		}
		if len(events) < e.pageSize {
			return acc, nil
		}
		last := events[len(events)-1].Seq
		if last <= afterSeq {
			return nil, fmt.Errorf("event page did not advance past seq %d", afterSeq)
		}
		afterSeq = last
	}
}

// RecomputeTotal sums the persisted counters of subjectID into its total.
//
// A subject without counters keeps its current total untouched and false is
// returned.
func RecomputeTotal(ctx context.Context, store RecomputeStore, subjectID string) (bool, error) {
	counters, err := store.ListCounters(ctx, subjectID)
	if err != nil {
		return false, fmt.Errorf("list counters: %w", err)
	}
	if len(counters) == 0 {
		return false, nil
	}
	if err := store.PutTotal(ctx, reaction.SumCounters(subjectID, counters)); err != nil {
		return false, fmt.Errorf("put total: %w", err)
	}
	return true, nil
}

// RecomputeStore is the persistence needed to recompute a total.
type RecomputeStore interface {
	storage.CounterStore
	storage.TotalStore
}

func (e *Engine) selectSubjects(ctx context.Context, filter Filter) (selection, error) {
	var sel selection
	if filter.SubjectKind != "" {
		resolved, err := e.kinds.Resolve(filter.SubjectKind)
		if err != nil {
			return selection{}, err
		}
		sel.kind = resolved
	}
	if filter.ReactionTypeName != "" {
		rt, err := e.store.GetReactionTypeByName(ctx, filter.ReactionTypeName)
		if errors.Is(err, storage.ErrNotFound) {
			return selection{}, apperrors.WrapWithMetadata(
				apperrors.CodeReactionTypeNotFound,
				fmt.Sprintf("reaction type %q not found", filter.ReactionTypeName),
				map[string]string{"type": filter.ReactionTypeName},
				err,
			)
		}
		if err != nil {
			return selection{}, apperrors.Wrap(apperrors.CodeStoreFailure, "resolve reaction type", err)
		}
		sel.typeID = rt.ID
	}

	subjects, err := e.store.ListSubjects(ctx, sel.kind)
	if err != nil {
		return selection{}, apperrors.Wrap(apperrors.CodeStoreFailure, "list subjects", err)
	}
	sel.subjects = subjects
	return sel, nil
}

func storeFailure(subjectID string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.WrapWithMetadata(
		apperrors.CodeStoreFailure,
		fmt.Sprintf("subject %s", subjectID),
		map[string]string{"subject_id": subjectID},
		err,
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
