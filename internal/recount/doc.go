// Package recount rebuilds derived reaction counters and totals from the
// immutable reaction event log.
//
// A run selects subjects by kind, resets the counters matching the reaction
// type filter, replays that subject's events in pages and recomputes its
// total. Subjects are processed one at a time. A store failure aborts the run:
// subjects already processed stay rebuilt, the rest are untouched or only
// reset, and re-running converges.
package recount
