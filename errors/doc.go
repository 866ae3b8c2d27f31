// Package errors provides standardized error handling patterns for the
// Annalist core engine.
//
// # Overview
//
// The package implements a seven-kind error classification aligned with the
// engine's error handling design: NotFound, Validation, Conflict, Version,
// Load, Permission and System. Classification drives propagation policy:
// store-level I/O errors bubble, binder-level validation errors are caught
// and converted to form redisplay, and registry cache misses are never
// errors at all.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Kind-aware wrappers apply the pattern while recording the kind:
//
//	errors.WrapNotFound(err, "Store", "Load", "read metadata")
//	errors.WrapValidation(err, "Binder", "Save", "check entity id")
//	errors.WrapConflict(err, "Store", "Create", "create entity")
//
// # Standard Error Variables
//
// Pre-defined sentinels cover the common conditions (ErrNotFound,
// ErrAlreadyExists, ErrMalformedData, ErrNewerVersion, ...). Use them
// rather than inventing message strings, so callers can branch with
// errors.Is and the Kind predicates (IsNotFound, IsConflict, IsVersion,
// IsLoad, IsValidation).
//
// All classification and wrapping operations are thread-safe; sentinel
// variables are immutable and safe for concurrent use.
package errors
