package recount

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/reactions/internal/reaction"
	"github.com/louisbranch/reactions/internal/storage"
)

// Scope says which derived row drifted.
type Scope string

const (
	ScopeCounter Scope = "counter"
	ScopeTotal   Scope = "total"
)

// Drift is one stored aggregate that a recount would change.
type Drift struct {
	SubjectID      string          `json:"subject_id"`
	Scope          Scope           `json:"scope"`
	ReactionTypeID string          `json:"reaction_type_id,omitempty"`
	Missing        bool            `json:"missing,omitempty"`
	StoredCount    int64           `json:"stored_count"`
	StoredWeight   decimal.Decimal `json:"stored_weight"`
	ExpectedCount  int64           `json:"expected_count"`
	ExpectedWeight decimal.Decimal `json:"expected_weight"`
}

// CheckReport summarizes a drift check.
type CheckReport struct {
	SubjectKind     string  `json:"subject_kind,omitempty"`
	ReactionTypeID  string  `json:"reaction_type_id,omitempty"`
	SubjectsChecked int     `json:"subjects_checked"`
	EventsReplayed  int     `json:"events_replayed"`
	Drift           []Drift `json:"drift"`
}

// Clean reports whether no drift was found.
func (r CheckReport) Clean() bool {
	return len(r.Drift) == 0
}

// Check replays events like Recount but writes nothing. It reports every
// counter and total whose stored value differs from what Recount would
// persist with the same filter.
func (e *Engine) Check(ctx context.Context, filter Filter) (report CheckReport, err error) {
	if e == nil || e.store == nil {
		return CheckReport{}, errors.New("recount engine is not configured")
	}
	ctx, span := e.tracer.Start(ctx, "recount.Check", trace.WithAttributes(
		attribute.String("reactions.filter.subject_kind", filter.SubjectKind),
		attribute.String("reactions.filter.reaction_type", filter.ReactionTypeName),
	))
	defer func() {
		span.SetAttributes(attribute.Int("reactions.drift", len(report.Drift)))
		endSpan(span, err)
	}()

	sel, err := e.selectSubjects(ctx, filter)
	if err != nil {
		return CheckReport{}, err
	}
	report = CheckReport{
		SubjectKind:    sel.kind,
		ReactionTypeID: sel.typeID,
		Drift:          []Drift{},
	}

	e.progress.Start(len(sel.subjects))
	for _, subject := range sel.subjects {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		drift, events, err := e.checkSubject(ctx, subject.ID, sel.typeID)
		if err != nil {
			return report, storeFailure(subject.ID, err)
		}
		report.SubjectsChecked++
		report.EventsReplayed += events
		report.Drift = append(report.Drift, drift...)
		e.progress.Advance()
	}
	e.progress.Finish()

	e.logger.Info().
		Int("subjects_checked", report.SubjectsChecked).
		Int("drift", len(report.Drift)).
		Msg("recount check finished")
	return report, nil
}

func (e *Engine) checkSubject(ctx context.Context, subjectID, typeID string) ([]Drift, int, error) {
	stored, err := e.store.ListCounters(ctx, subjectID)
	if err != nil {
		return nil, 0, fmt.Errorf("list counters: %w", err)
	}
	acc, err := e.replay(ctx, e.store, subjectID, typeID)
	if err != nil {
		return nil, 0, err
	}
	folded := make(map[string]reaction.Counter)
	for _, c := range acc.Counters() {
		folded[c.ReactionTypeID] = c
	}

	var (
		drift    []Drift
		expected []reaction.Counter
	)
	for _, c := range stored {
		want := c
		if typeID == "" || c.IsReactionOfType(typeID) {
			want = c.Reset()
			if f, ok := folded[c.ReactionTypeID]; ok {
				want = f
				delete(folded, c.ReactionTypeID)
			}
		}
		expected = append(expected, want)
		if !c.Equal(want) {
			drift = append(drift, counterDrift(c, want, false))
		}
	}
	for _, c := range acc.Counters() {
		if _, ok := folded[c.ReactionTypeID]; !ok {
			continue
		}
		expected = append(expected, c)
		drift = append(drift, counterDrift(reaction.NewCounter(subjectID, c.ReactionTypeID), c, true))
	}

	if len(expected) == 0 {
		return drift, acc.Events(), nil
	}
	want := reaction.SumCounters(subjectID, expected)
	have, err := e.store.GetTotal(ctx, subjectID)
	missing := false
	if errors.Is(err, storage.ErrNotFound) {
		have, missing = reaction.NewTotal(subjectID), true
	} else if err != nil {
		return nil, 0, fmt.Errorf("get total: %w", err)
	}
	if missing || !have.Equal(want) {
		drift = append(drift, Drift{
			SubjectID:      subjectID,
			Scope:          ScopeTotal,
			Missing:        missing,
			StoredCount:    have.Count,
			StoredWeight:   have.Weight,
			ExpectedCount:  want.Count,
			ExpectedWeight: want.Weight,
		})
	}
	return drift, acc.Events(), nil
}

func counterDrift(have, want reaction.Counter, missing bool) Drift {
	return Drift{
		SubjectID:      want.SubjectID,
		Scope:          ScopeCounter,
		ReactionTypeID: want.ReactionTypeID,
		Missing:        missing,
		StoredCount:    have.Count,
		StoredWeight:   have.Weight,
		ExpectedCount:  want.Count,
		ExpectedWeight: want.Weight,
	}
}
