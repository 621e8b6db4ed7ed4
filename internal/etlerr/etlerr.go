// Package etlerr defines the error categories shared by every pipeline stage.
//
// Stages never recover from their own errors; they wrap the underlying cause
// in an *Error carrying one of the Kind values below and return it to the
// orchestrator, which decides whether the run halts or a retry is allowed.
package etlerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is reported for errors that were never classified.
	KindUnknown Kind = iota
	// KindConfiguration covers missing or malformed settings (env, YAML, key columns).
	KindConfiguration
	// KindTransport covers network, authentication and remote-service failures.
	KindTransport
	// KindNotFound covers missing buckets and object keys.
	KindNotFound
	// KindSchema covers unmappable types and DDL failures.
	KindSchema
	// KindData covers unparseable payloads and constraint violations.
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not_found"
	case KindSchema:
		return "schema"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline error. Op names the operation that failed,
// e.g. "objectstore.download" or "loader.upsert".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind lets callers classify errors that do not embed *Error directly.
func (e *Error) ErrorKind() Kind { return e.Kind }

// Wrap classifies err under kind. A nil err returns nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string. %w is honored.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Configuration, Transport, NotFound, Schema and Data are shorthands for Wrap.
func Configuration(op string, err error) error { return Wrap(KindConfiguration, op, err) }
func Transport(op string, err error) error     { return Wrap(KindTransport, op, err) }
func NotFound(op string, err error) error      { return Wrap(KindNotFound, op, err) }
func Schema(op string, err error) error        { return Wrap(KindSchema, op, err) }
func Data(op string, err error) error          { return Wrap(KindData, op, err) }

type kinded interface{ ErrorKind() Kind }

// KindOf returns the first classification found in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

type retryable interface{ Retryable() bool }

// IsRetryable reports whether a failed stage may be attempted again. Only
// transport failures qualify, and an error in the chain implementing
// Retryable() bool has the final word (HTTP 4xx responses say no).
// Context cancellation of the parent run is never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return KindOf(err) == KindTransport
}
