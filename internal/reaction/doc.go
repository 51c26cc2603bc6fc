// Package reaction defines the reaction data model: subjects that receive
// reactions, reaction types, the immutable reaction events, and the two layers
// of derived aggregates (per-type counters and the per-subject total).
//
// Events are the source of truth. Counters and totals are denormalized views
// that must always be reconstructible by replaying events; see package
// internal/recount for the rebuild path and internal/reaction/counter for the
// shared single-event arithmetic.
package reaction
