package domain

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for the transport boundary. Every failure that
// crosses a package boundary is wrapped in an *Error carrying one of these,
// and the single boundary point maps kinds to response payloads.
type Kind int

const (
	// KindInternal is the default for unclassified failures.
	KindInternal Kind = iota
	// KindConfiguration covers startup problems such as a missing asset root.
	KindConfiguration
	// KindIngestion covers failures that abort a reindex pass.
	KindIngestion
	// KindNotFound covers lookups of things that may legitimately be absent.
	KindNotFound
	// KindTimeout covers deadline and cancellation failures.
	KindTimeout
)

// String returns the kind's wire name.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindIngestion:
		return "ingestion"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error wraps an underlying error with a kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E constructs a classified error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errf constructs a classified error from a format string.
func Errf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the kind from err. Context cancellation and deadline
// errors classify as KindTimeout even when unwrapped; everything else
// without an explicit kind is KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindInternal
}

// IsNotFound reports whether err classifies as KindNotFound.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
