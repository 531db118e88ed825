// Package errors provides error types and handling for busway.
// It defines the error taxonomy the reconciler distinguishes: validation
// errors caught before any API call, referential errors between topology
// entries, classified client errors, and synthetic blocked errors for
// nodes that were never attempted.
package errors

import (
	"errors"
	"fmt"
)

// ValidationError reports an illegal destination-field combination in a
// topology entry. It names the entry key, the destination discriminant
// and the offending field so the defect can be located in the document.
type ValidationError struct {
	// Entry is the topology entry key the error belongs to
	Entry string
	// Variant is the destination type discriminant (e.g. "http_endpoint")
	Variant string
	// Field is the offending field, empty when the variant itself is the problem
	Field string
	// Reason is a human-readable explanation
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("entry %q: destination %q: %s", e.Entry, e.Variant, e.Reason)
	}
	return fmt.Sprintf("entry %q: destination %q: field %q: %s", e.Entry, e.Variant, e.Field, e.Reason)
}

// ReferentialError reports a topology entry referencing a resource that
// does not exist in the same reconciliation pass.
type ReferentialError struct {
	// Entry is the topology entry key holding the dangling reference
	Entry string
	// Reference is the resource identifier that could not be resolved
	Reference string
}

// Error implements the error interface.
func (e *ReferentialError) Error() string {
	return fmt.Sprintf("entry %q references unknown resource %q", e.Entry, e.Reference)
}

// Class categorizes a cloud client failure for retry decisions.
type Class string

const (
	// ClassTransient marks failures worth retrying (rate limits, 5xx,
	// eventual-consistency conflicts resolving on their own).
	ClassTransient Class = "transient"
	// ClassPermanent marks failures that will not succeed on retry.
	ClassPermanent Class = "permanent"
	// ClassConflict marks concurrent-modification failures. Retried, since
	// they typically resolve once the competing operation settles.
	ClassConflict Class = "conflict"
	// ClassNotFound marks lookups of resources that do not exist.
	ClassNotFound Class = "not_found"
)

// ClientError wraps a cloud API failure with its classification and the
// operation that produced it.
type ClientError struct {
	// Class determines retry eligibility
	Class Class
	// Op names the failed operation (e.g. "create pipeline")
	Op string
	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Class, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Class)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// NewTransient creates a transient client error.
func NewTransient(op string, cause error) *ClientError {
	return &ClientError{Class: ClassTransient, Op: op, Cause: cause}
}

// NewPermanent creates a permanent client error.
func NewPermanent(op string, cause error) *ClientError {
	return &ClientError{Class: ClassPermanent, Op: op, Cause: cause}
}

// NewConflict creates a conflict client error.
func NewConflict(op string, cause error) *ClientError {
	return &ClientError{Class: ClassConflict, Op: op, Cause: cause}
}

// NewNotFound creates a not-found client error.
func NewNotFound(op string, cause error) *ClientError {
	return &ClientError{Class: ClassNotFound, Op: op, Cause: cause}
}

// BlockedError marks a node that was never attempted because one of its
// dependencies failed. It is synthetic: no API call produced it.
type BlockedError struct {
	// Dependency is the failed predecessor that blocked the node
	Dependency string
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by failed dependency %q", e.Dependency)
}

// ClassOf returns the classification of err, or ClassPermanent when err
// carries no ClientError in its chain. Validation and referential errors
// are never retried, so permanent is the safe default.
func ClassOf(err error) Class {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ClassPermanent
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	switch ClassOf(err) {
	case ClassTransient, ClassConflict:
		return true
	default:
		return false
	}
}

// IsNotFound reports whether err is a classified not-found error.
func IsNotFound(err error) bool {
	return ClassOf(err) == ClassNotFound
}

// IsValidation reports whether err chains to a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
