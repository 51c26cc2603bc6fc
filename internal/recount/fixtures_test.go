package recount_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/reactions/internal/reaction"
	"github.com/louisbranch/reactions/internal/reaction/kind"
	"github.com/louisbranch/reactions/internal/storage"
	"github.com/louisbranch/reactions/internal/storage/memory"
)

const (
	articleKind = `App\Models\Article`
	commentKind = `App\Models\Comment`
	userKind    = `App\Models\User`
)

var (
	like = reaction.ReactionType{ID: "type-like", Name: "Like", Mass: 1}
	love = reaction.ReactionType{ID: "type-love", Name: "Love", Mass: 2}
)

func testRegistry(t *testing.T) *kind.Registry {
	t.Helper()
	registry, err := kind.NewRegistry(
		[]kind.Kind{
			{ID: articleKind, Capabilities: []kind.Capability{kind.CapabilityReactable}},
			{ID: commentKind, Capabilities: []kind.Capability{kind.CapabilityReactable}},
			{ID: userKind, Capabilities: []kind.Capability{kind.CapabilityReacter}},
		},
		[]kind.Alias{
			{Name: "article", Kind: articleKind},
			{Name: "comment", Kind: commentKind},
			{Name: "user", Kind: userKind},
		},
	)
	require.NoError(t, err)
	return registry
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func counterOf(subjectID string, rt reaction.ReactionType, count int64, weight string) reaction.Counter {
	return reaction.Counter{SubjectID: subjectID, ReactionTypeID: rt.ID, Count: count, Weight: dec(weight)}
}

func totalOf(subjectID string, count int64, weight string) reaction.Total {
	return reaction.Total{SubjectID: subjectID, Count: count, Weight: dec(weight)}
}

// seedScenario writes subject "a" with 3 Like events of weight 1 and 2 Love
// events of weight 2, over stale counters Like{9,9} Love{0,0} and total {9,9}.
func seedScenario(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.PutReactionType(ctx, like))
	require.NoError(t, store.PutReactionType(ctx, love))
	require.NoError(t, store.PutSubject(ctx, reaction.Subject{ID: "a", Kind: "article"}))
	require.NoError(t, store.PutSubject(ctx, reaction.Subject{ID: "u1", Kind: "user"}))

	appendEvents(t, store, "a", like, 3)
	appendEvents(t, store, "a", love, 2)

	require.NoError(t, store.PutCounter(ctx, counterOf("a", like, 9, "9")))
	require.NoError(t, store.PutCounter(ctx, counterOf("a", love, 0, "0")))
	require.NoError(t, store.PutTotal(ctx, totalOf("a", 9, "9")))
}

func appendEvents(t *testing.T, store storage.Store, subjectID string, rt reaction.ReactionType, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		evt := reaction.Event{
			SubjectID:      subjectID,
			ReactionTypeID: rt.ID,
			ActorID:        "u1",
			Weight:         decimal.NewFromInt(int64(rt.Mass)),
		}
		_, err := store.AppendEvent(context.Background(), evt)
		require.NoError(t, err)
	}
}

func newMemoryScenario(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	seedScenario(t, store)
	return store
}

func requireCounter(t *testing.T, store storage.CounterStore, want reaction.Counter) {
	t.Helper()
	got, err := store.GetCounter(context.Background(), want.SubjectID, want.ReactionTypeID)
	require.NoError(t, err)
	require.Truef(t, got.Equal(want), "counter %s/%s = {%d %s}, want {%d %s}",
		want.SubjectID, want.ReactionTypeID, got.Count, got.Weight, want.Count, want.Weight)
}

func requireTotal(t *testing.T, store storage.TotalStore, want reaction.Total) {
	t.Helper()
	got, err := store.GetTotal(context.Background(), want.SubjectID)
	require.NoError(t, err)
	require.Truef(t, got.Equal(want), "total %s = {%d %s}, want {%d %s}",
		want.SubjectID, got.Count, got.Weight, want.Count, want.Weight)
}

// recordingProgress records progress signals; onAdvance runs after each advance.
type recordingProgress struct {
	started   []int
	advanced  int
	finished  int
	onAdvance func()
}

func (p *recordingProgress) Start(total int) { p.started = append(p.started, total) }
func (p *recordingProgress) Advance() {
	p.advanced++
	if p.onAdvance != nil {
		p.onAdvance()
	}
}
func (p *recordingProgress) Finish() { p.finished++ }

// hookStore wraps a memory store with injectable overrides. A nil hook falls
// through to the wrapped store.
type hookStore struct {
	*memory.Store
	listSubjects func(ctx context.Context, kind string) ([]reaction.Subject, error)
	listEvents   func(ctx context.Context, subjectID, typeID string, afterSeq uint64, limit int) ([]reaction.Event, error)
	putCounter   func(ctx context.Context, c reaction.Counter) error
	putTotal     func(ctx context.Context, t reaction.Total) error
}

func (s *hookStore) ListSubjects(ctx context.Context, kind string) ([]reaction.Subject, error) {
	if s.listSubjects != nil {
		return s.listSubjects(ctx, kind)
	}
	return s.Store.ListSubjects(ctx, kind)
}

func (s *hookStore) ListEvents(ctx context.Context, subjectID, typeID string, afterSeq uint64, limit int) ([]reaction.Event, error) {
	if s.listEvents != nil {
		return s.listEvents(ctx, subjectID, typeID, afterSeq, limit)
	}
	return s.Store.ListEvents(ctx, subjectID, typeID, afterSeq, limit)
}

func (s *hookStore) PutCounter(ctx context.Context, c reaction.Counter) error {
	if s.putCounter != nil {
		return s.putCounter(ctx, c)
	}
	return s.Store.PutCounter(ctx, c)
}

func (s *hookStore) PutTotal(ctx context.Context, t reaction.Total) error {
	if s.putTotal != nil {
		return s.putTotal(ctx, t)
	}
	return s.Store.PutTotal(ctx, t)
}
