package errors

import (
	"context"
	stderrs "errors"
)

// Class groups error codes by how callers react to them
type Class uint8

const (
	// ClassUnknown covers unclassified errors; callers treat these as fatal
	ClassUnknown Class = iota

	// ClassTransient may succeed when retried (network, timeouts, 5xx, 429)
	ClassTransient

	// ClassPermanent will fail again on retry (4xx other than 429, malformed payloads, invalid records)
	ClassPermanent

	// ClassStorage is a durable storage failure and is always fatal to a run
	ClassStorage

	// ClassCanceled is a context cancellation or deadline on the caller side
	ClassCanceled
)

// String returns a short stable label for logs
func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassStorage:
		return "storage"
	case ClassCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ClassOf classifies any error using the fixed code table
func ClassOf(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	if e, ok := As(err); ok {
		switch e.code {
		case ErrorCodeUnavailable, ErrorCodeTooManyRequests:
			return ClassTransient
		case ErrorCodeNotFound, ErrorCodeUpstream, ErrorCodeJSON, ErrorCodeValidation, ErrorCodeInvalidArgument:
			return ClassPermanent
		case ErrorCodeStorage:
			return ClassStorage
		}
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return ClassCanceled
	}
	return ClassUnknown
}

// IsTransient reports whether err may succeed on retry
func IsTransient(err error) bool { return ClassOf(err) == ClassTransient }

// IsPermanent reports whether err will never succeed on retry
func IsPermanent(err error) bool { return ClassOf(err) == ClassPermanent }

// IsStorage reports whether err came from a storage backend
func IsStorage(err error) bool { return ClassOf(err) == ClassStorage }
