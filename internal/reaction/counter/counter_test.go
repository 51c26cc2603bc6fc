package counter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/reactions/internal/reaction"
	"github.com/louisbranch/reactions/internal/reaction/counter"
	"github.com/louisbranch/reactions/internal/storage"
	"github.com/louisbranch/reactions/internal/storage/memory"
)

func event(id, subjectID, typeID, weight string) reaction.Event {
	return reaction.Event{
		ID:             id,
		SubjectID:      subjectID,
		ReactionTypeID: typeID,
		ActorID:        "actor-" + id,
		Weight:         decimal.RequireFromString(weight),
	}
}

func TestApplyIncrementsCountAndWeight(t *testing.T) {
	c := reaction.NewCounter("a", "love")

	c, err := counter.Apply(c, event("1", "a", "love", "2"))
	require.NoError(t, err)
	c, err = counter.Apply(c, event("2", "a", "love", "0.25"))
	require.NoError(t, err)

	assert.Equal(t, int64(2), c.Count)
	assert.Equal(t, "2.25", c.Weight.String())
}

func TestApplyRejectsForeignEvents(t *testing.T) {
	c := reaction.NewCounter("a", "love")

	_, err := counter.Apply(c, event("1", "b", "love", "1"))
	assert.True(t, errors.Is(err, counter.ErrSubjectMismatch))

	_, err = counter.Apply(c, event("1", "a", "like", "1"))
	assert.True(t, errors.Is(err, counter.ErrTypeMismatch))
}

func TestUnapplyReverts(t *testing.T) {
	evt := event("1", "a", "like", "1.5")
	c, err := counter.Apply(reaction.NewCounter("a", "like"), evt)
	require.NoError(t, err)

	c, err = counter.Unapply(c, evt)
	require.NoError(t, err)
	assert.True(t, c.Equal(reaction.NewCounter("a", "like")))

	_, err = counter.Unapply(c, evt)
	assert.Error(t, err, "empty counter cannot be decremented")
}

func TestFoldGroupsByType(t *testing.T) {
	events := []reaction.Event{
		event("1", "a", "like", "1"),
		event("2", "a", "love", "2"),
		event("3", "a", "like", "1"),
		event("4", "a", "love", "2"),
		event("5", "a", "like", "1"),
	}

	got, err := counter.Fold("a", events)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got["like"].Equal(reaction.Counter{SubjectID: "a", ReactionTypeID: "like", Count: 3, Weight: decimal.NewFromInt(3)}))
	assert.True(t, got["love"].Equal(reaction.Counter{SubjectID: "a", ReactionTypeID: "love", Count: 2, Weight: decimal.NewFromInt(4)}))
}

func TestFoldIsOrderIndependent(t *testing.T) {
	events := []reaction.Event{
		event("1", "a", "like", "0.1"),
		event("2", "a", "like", "0.2"),
		event("3", "a", "love", "3.3"),
		event("4", "a", "like", "0.7"),
	}
	reversed := make([]reaction.Event, len(events))
	for i, evt := range events {
		reversed[len(events)-1-i] = evt
	}

	forward, err := counter.Fold("a", events)
	require.NoError(t, err)
	backward, err := counter.Fold("a", reversed)
	require.NoError(t, err)

	for typeID, c := range forward {
		assert.True(t, c.Equal(backward[typeID]), "type %s differs: %+v vs %+v", typeID, c, backward[typeID])
	}
	assert.Equal(t, "1", forward["like"].Weight.String(), "decimal sums are exact")
}

func TestFoldEmptyAndMismatch(t *testing.T) {
	got, err := counter.Fold("a", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = counter.Fold("a", []reaction.Event{event("1", "b", "like", "1")})
	assert.True(t, errors.Is(err, counter.ErrSubjectMismatch))
}

func TestAccumulatorCountersSortedByType(t *testing.T) {
	acc := counter.NewAccumulator("a")
	require.NoError(t, acc.Add(event("1", "a", "wow", "1")))
	require.NoError(t, acc.Add(event("2", "a", "like", "1")))
	require.NoError(t, acc.Add(event("3", "a", "love", "1")))

	counters := acc.Counters()
	require.Len(t, counters, 3)
	assert.Equal(t, []string{"like", "love", "wow"}, []string{counters[0].ReactionTypeID, counters[1].ReactionTypeID, counters[2].ReactionTypeID})
	assert.Equal(t, 3, acc.Events())
}

// The live path and the rebuild must agree for any event sequence.
func TestServiceMatchesFold(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := counter.NewService(store)

	events := []reaction.Event{
		event("1", "a", "like", "1"),
		event("2", "a", "love", "2"),
		event("3", "a", "like", "1"),
		event("4", "a", "love", "2"),
		event("5", "a", "like", "1"),
	}
	for _, evt := range events {
		require.NoError(t, svc.AddReaction(ctx, evt))
	}

	folded, err := counter.Fold("a", events)
	require.NoError(t, err)
	for typeID, want := range folded {
		got, err := store.GetCounter(ctx, "a", typeID)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "type %s: want %+v got %+v", typeID, want, got)
	}

	total, err := store.GetTotal(ctx, "a")
	require.NoError(t, err)
	assert.True(t, total.Equal(reaction.Total{SubjectID: "a", Count: 5, Weight: decimal.NewFromInt(7)}), "total = %+v", total)
}

func TestServiceRemoveReaction(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := counter.NewService(store)

	evt := event("1", "a", "love", "2")
	require.NoError(t, svc.AddReaction(ctx, evt))
	require.NoError(t, svc.RemoveReaction(ctx, evt))

	c, err := store.GetCounter(ctx, "a", "love")
	require.NoError(t, err)
	assert.True(t, c.Equal(reaction.NewCounter("a", "love")))

	total, err := store.GetTotal(ctx, "a")
	require.NoError(t, err)
	assert.True(t, total.Equal(reaction.NewTotal("a")))
}

type failingCounterStore struct {
	*memory.Store
	putErr error
}

func (f failingCounterStore) PutCounter(context.Context, reaction.Counter) error {
	return f.putErr
}

func TestServicePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := counter.NewService(failingCounterStore{Store: memory.New(), putErr: boom})

	err := svc.AddReaction(context.Background(), event("1", "a", "like", "1"))
	assert.ErrorIs(t, err, boom)

	var nilSvc *counter.Service
	assert.Error(t, nilSvc.AddReaction(context.Background(), event("1", "a", "like", "1")))
}

func TestServiceTreatsMissingCounterAsDefault(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.GetCounter(ctx, "a", "like")
	require.True(t, errors.Is(err, storage.ErrNotFound))

	require.NoError(t, counter.NewService(store).AddReaction(ctx, event("1", "a", "like", "1")))

	c, err := store.GetCounter(ctx, "a", "like")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Count)
}
