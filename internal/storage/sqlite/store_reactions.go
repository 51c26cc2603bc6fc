package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/louisbranch/reactions/internal/reaction"
	"github.com/louisbranch/reactions/internal/storage"
)

// PutSubject creates or replaces a subject.
func (s *Store) PutSubject(ctx context.Context, subject reaction.Subject) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(subject.ID) == "" {
		return fmt.Errorf("subject id is required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO reactants (id, type, created_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET type = excluded.type`,
		subject.ID, subject.Kind, toMillis(s.now()))
	if err != nil {
		return fmt.Errorf("put subject: %w", err)
	}
	return nil
}

// ListSubjects returns subjects ordered by id, filtered by kind when set.
func (s *Store) ListSubjects(ctx context.Context, kind string) ([]reaction.Subject, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `
SELECT id, type FROM reactants
WHERE (? = '' OR type = ?)
ORDER BY id`, kind, kind)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []reaction.Subject
	for rows.Next() {
		var subject reaction.Subject
		if err := rows.Scan(&subject.ID, &subject.Kind); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read subjects: %w", err)
	}
	return subjects, nil
}

// PutReactionType creates or replaces a reaction type.
func (s *Store) PutReactionType(ctx context.Context, reactionType reaction.ReactionType) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(reactionType.ID) == "" {
		return fmt.Errorf("reaction type id is required")
	}
	if strings.TrimSpace(reactionType.Name) == "" {
		return fmt.Errorf("reaction type name is required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO reaction_types (id, name, mass, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, mass = excluded.mass`,
		reactionType.ID, reactionType.Name, reactionType.Mass, toMillis(s.now()))
	if err != nil {
		return fmt.Errorf("put reaction type: %w", err)
	}
	return nil
}

// GetReactionTypeByName returns the type with the exact name.
func (s *Store) GetReactionTypeByName(ctx context.Context, name string) (reaction.ReactionType, error) {
	if err := s.ready(ctx); err != nil {
		return reaction.ReactionType{}, err
	}
	var t reaction.ReactionType
	err := s.q.QueryRowContext(ctx, `SELECT id, name, mass FROM reaction_types WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &t.Mass)
	if errors.Is(err, sql.ErrNoRows) {
		return reaction.ReactionType{}, storage.ErrNotFound
	}
	if err != nil {
		return reaction.ReactionType{}, fmt.Errorf("get reaction type: %w", err)
	}
	return t, nil
}

// AppendEvent stores evt and returns it with Seq assigned. Events without an
// ID get a UUIDv7.
func (s *Store) AppendEvent(ctx context.Context, evt reaction.Event) (reaction.Event, error) {
	if err := s.ready(ctx); err != nil {
		return reaction.Event{}, err
	}
	if strings.TrimSpace(evt.SubjectID) == "" || strings.TrimSpace(evt.ReactionTypeID) == "" {
		return reaction.Event{}, fmt.Errorf("event subject and reaction type are required")
	}
	if evt.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return reaction.Event{}, fmt.Errorf("generate event id: %w", err)
		}
		evt.ID = id.String()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = s.now()
	}
	evt.CreatedAt = evt.CreatedAt.UTC().Truncate(time.Millisecond)

	res, err := s.q.ExecContext(ctx, `
INSERT INTO reactions (id, reactant_id, reaction_type_id, reacter_id, weight, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		evt.ID, evt.SubjectID, evt.ReactionTypeID, evt.ActorID, evt.Weight.String(), toMillis(evt.CreatedAt))
	if err != nil {
		return reaction.Event{}, fmt.Errorf("append event: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return reaction.Event{}, fmt.Errorf("read event seq: %w", err)
	}
	evt.Seq = uint64(seq)
	return evt, nil
}

// ListEvents pages events of subjectID in Seq order.
func (s *Store) ListEvents(ctx context.Context, subjectID, reactionTypeID string, afterSeq uint64, limit int) ([]reaction.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.q.QueryContext(ctx, `
SELECT seq, id, reactant_id, reaction_type_id, reacter_id, weight, created_at
FROM reactions
WHERE reactant_id = ? AND seq > ? AND (? = '' OR reaction_type_id = ?)
ORDER BY seq
LIMIT ?`, subjectID, int64(afterSeq), reactionTypeID, reactionTypeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []reaction.Event
	for rows.Next() {
		var (
			evt       reaction.Event
			seq       int64
			weight    string
			createdAt int64
		)
		if err := rows.Scan(&seq, &evt.ID, &evt.SubjectID, &evt.ReactionTypeID, &evt.ActorID, &weight, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if evt.Weight, err = parseWeight(weight); err != nil {
			return nil, fmt.Errorf("event %s: %w", evt.ID, err)
		}
		evt.Seq = uint64(seq)
		evt.CreatedAt = fromMillis(createdAt)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

// ListCounters returns counters of subjectID ordered by reaction type id.
func (s *Store) ListCounters(ctx context.Context, subjectID string) ([]reaction.Counter, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `
SELECT reaction_type_id, count, weight FROM reaction_counters
WHERE reactant_id = ?
ORDER BY reaction_type_id`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	defer rows.Close()

	var counters []reaction.Counter
	for rows.Next() {
		c := reaction.Counter{SubjectID: subjectID}
		var weight string
		if err := rows.Scan(&c.ReactionTypeID, &c.Count, &weight); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		if c.Weight, err = parseWeight(weight); err != nil {
			return nil, fmt.Errorf("counter %s/%s: %w", subjectID, c.ReactionTypeID, err)
		}
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read counters: %w", err)
	}
	return counters, nil
}

// GetCounter returns one counter.
func (s *Store) GetCounter(ctx context.Context, subjectID, reactionTypeID string) (reaction.Counter, error) {
	if err := s.ready(ctx); err != nil {
		return reaction.Counter{}, err
	}
	c := reaction.Counter{SubjectID: subjectID, ReactionTypeID: reactionTypeID}
	var weight string
	err := s.q.QueryRowContext(ctx, `
SELECT count, weight FROM reaction_counters
WHERE reactant_id = ? AND reaction_type_id = ?`, subjectID, reactionTypeID).Scan(&c.Count, &weight)
	if errors.Is(err, sql.ErrNoRows) {
		return reaction.Counter{}, storage.ErrNotFound
	}
	if err != nil {
		return reaction.Counter{}, fmt.Errorf("get counter: %w", err)
	}
	if c.Weight, err = parseWeight(weight); err != nil {
		return reaction.Counter{}, fmt.Errorf("counter %s/%s: %w", subjectID, reactionTypeID, err)
	}
	return c, nil
}

// PutCounter creates or replaces a counter.
func (s *Store) PutCounter(ctx context.Context, c reaction.Counter) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(c.SubjectID) == "" || strings.TrimSpace(c.ReactionTypeID) == "" {
		return fmt.Errorf("counter subject and reaction type are required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO reaction_counters (reactant_id, reaction_type_id, count, weight, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(reactant_id, reaction_type_id) DO UPDATE SET
    count = excluded.count,
    weight = excluded.weight,
    updated_at = excluded.updated_at`,
		c.SubjectID, c.ReactionTypeID, c.Count, c.Weight.String(), toMillis(s.now()))
	if err != nil {
		return fmt.Errorf("put counter: %w", err)
	}
	return nil
}

// GetTotal returns the total of subjectID.
func (s *Store) GetTotal(ctx context.Context, subjectID string) (reaction.Total, error) {
	if err := s.ready(ctx); err != nil {
		return reaction.Total{}, err
	}
	t := reaction.Total{SubjectID: subjectID}
	var weight string
	err := s.q.QueryRowContext(ctx, `SELECT count, weight FROM reaction_totals WHERE reactant_id = ?`, subjectID).
		Scan(&t.Count, &weight)
	if errors.Is(err, sql.ErrNoRows) {
		return reaction.Total{}, storage.ErrNotFound
	}
	if err != nil {
		return reaction.Total{}, fmt.Errorf("get total: %w", err)
	}
	if t.Weight, err = parseWeight(weight); err != nil {
		return reaction.Total{}, fmt.Errorf("total %s: %w", subjectID, err)
	}
	return t, nil
}

// PutTotal creates or replaces a total.
func (s *Store) PutTotal(ctx context.Context, t reaction.Total) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(t.SubjectID) == "" {
		return fmt.Errorf("total subject is required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO reaction_totals (reactant_id, count, weight, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(reactant_id) DO UPDATE SET
    count = excluded.count,
    weight = excluded.weight,
    updated_at = excluded.updated_at`,
		t.SubjectID, t.Count, t.Weight.String(), toMillis(s.now()))
	if err != nil {
		return fmt.Errorf("put total: %w", err)
	}
	return nil
}

func parseWeight(value string) (decimal.Decimal, error) {
	weight, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse weight %q: %w", value, err)
	}
	return weight, nil
}
