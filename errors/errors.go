// Package errors provides standardized error handling for Annalist core
// components. It defines the error kinds of the data-model engine, sentinel
// errors for common conditions, and helper functions for consistent error
// wrapping and classification across the system.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for handling and reporting purposes.
type Kind int

const (
	// KindNotFound indicates a referenced collection, type, view, list,
	// field or entity is absent under the requested scope.
	KindNotFound Kind = iota
	// KindValidation indicates an identifier failed the id grammar or a
	// mandatory field was missing on save.
	KindValidation
	// KindConflict indicates an attempt to create or rename over an
	// existing entity.
	KindConflict
	// KindVersion indicates a collection written by a newer software
	// version than the current implementation.
	KindVersion
	// KindLoad indicates malformed on-disk JSON or an unreadable entity
	// document.
	KindLoad
	// KindPermission indicates the authorization collaborator denied the
	// requested operation.
	KindPermission
	// KindSystem indicates an internal inconsistency, such as an
	// unrecognised form-data combination.
	KindSystem
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindVersion:
		return "version"
	case KindLoad:
		return "load"
	case KindPermission:
		return "permission"
	case KindSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions.
var (
	// Store errors.
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrMalformedData = errors.New("malformed entity data")

	// Collection errors.
	ErrNoParent      = errors.New("parent collection not found")
	ErrNoSiteData    = errors.New("site data collection not reachable")
	ErrNewerVersion  = errors.New("collection written by newer software version")
	ErrNoSuchType    = errors.New("record type not declared")
	ErrInvalidID     = errors.New("invalid identifier")
	ErrMissingField  = errors.New("mandatory field missing")
	ErrNotAuthorized = errors.New("operation not authorized")

	// Binder errors.
	ErrBadSelector = errors.New("unrecognized selector syntax")
	ErrBadFormData = errors.New("unrecognized form data combination")
)

// KindedError wraps an error with its kind and the component context in
// which it arose.
type KindedError struct {
	Kind      Kind
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface.
func (ke *KindedError) Error() string {
	if ke.Message != "" {
		return ke.Message
	}
	return ke.Err.Error()
}

// Unwrap returns the underlying error.
func (ke *KindedError) Unwrap() error {
	return ke.Err
}

// KindOf returns the kind of an error. Unclassified errors report
// KindSystem unless they match a known sentinel.
func KindOf(err error) Kind {
	var ke *KindedError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoParent),
		errors.Is(err, ErrNoSuchType):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrNewerVersion):
		return KindVersion
	case errors.Is(err, ErrMalformedData):
		return KindLoad
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrMissingField),
		errors.Is(err, ErrBadSelector):
		return KindValidation
	case errors.Is(err, ErrNotAuthorized):
		return KindPermission
	}
	return KindSystem
}

// IsNotFound reports whether an error indicates an absent entity or
// collection under the requested scope.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsConflict reports whether an error indicates a create or rename over an
// existing entity.
func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}

// IsValidation reports whether an error indicates invalid user input.
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

// IsVersion reports whether an error indicates a version guard failure.
func IsVersion(err error) bool {
	return err != nil && KindOf(err) == KindVersion
}

// IsLoad reports whether an error indicates malformed on-disk data.
func IsLoad(err error) bool {
	return err != nil && KindOf(err) == KindLoad
}

// newKinded creates a new kinded error. Use the WrapX helpers instead.
func newKinded(kind Kind, err error, component, operation, message string) *KindedError {
	return &KindedError{
		Kind:      kind,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapNotFound wraps an error as a not-found condition with context.
func WrapNotFound(err error, component, method, action string) error {
	return wrapKind(KindNotFound, err, component, method, action)
}

// WrapValidation wraps an error as a validation failure with context.
func WrapValidation(err error, component, method, action string) error {
	return wrapKind(KindValidation, err, component, method, action)
}

// WrapConflict wraps an error as a conflict with context.
func WrapConflict(err error, component, method, action string) error {
	return wrapKind(KindConflict, err, component, method, action)
}

// WrapVersion wraps an error as a version guard failure with context.
func WrapVersion(err error, component, method, action string) error {
	return wrapKind(KindVersion, err, component, method, action)
}

// WrapLoad wraps an error as a data-load failure with context.
func WrapLoad(err error, component, method, action string) error {
	return wrapKind(KindLoad, err, component, method, action)
}

// WrapSystem wraps an error as an internal inconsistency with context.
func WrapSystem(err error, component, method, action string) error {
	return wrapKind(KindSystem, err, component, method, action)
}

func wrapKind(kind Kind, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newKinded(kind, wrappedErr, component, method, wrappedErr.Error())
}

// Is reports whether any error in err's chain matches target. It is a
// convenience re-export so callers need not import both error packages.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
