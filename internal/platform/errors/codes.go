// Package errors provides structured, coded errors for the recount tooling.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Filter resolution errors
	CodeSubjectKindInvalid   Code = "SUBJECT_KIND_INVALID"
	CodeReactionTypeNotFound Code = "REACTION_TYPE_NOT_FOUND"

	// Storage errors
	CodeNotFound     Code = "NOT_FOUND"
	CodeStoreFailure Code = "STORE_FAILURE"
)
