// Package sqlite implements the reaction storage contracts on SQLite.
//
// Events, counters and totals share one database so a subject's rebuild can
// run in a single transaction (see Store.InTx). Weights are stored as decimal
// text to keep sums exact.
package sqlite
