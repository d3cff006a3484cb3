package sensor

import (
	"errors"
	"fmt"
	"time"

	"github.com/zonehunt/zonehunt-server/internal/geo"
)

// ErrorKind classifies a location sensor failure.
type ErrorKind int

const (
	KindPermissionDenied ErrorKind = iota + 1
	KindPositionUnavailable
	KindTimeout
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission-denied"
	case KindPositionUnavailable:
		return "position-unavailable"
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is a classified sensor failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "sensor: " + e.Kind.String()
	}
	return fmt.Sprintf("sensor: %s: %s", e.Kind, e.Message)
}

// Errf builds a classified sensor error.
func Errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind. Errors that carry no classification
// (including empty payloads from a misbehaving sensor) are coerced to
// position-unavailable.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) && se.Kind != 0 && se.Kind != KindMalformed {
		return se.Kind
	}
	return KindPositionUnavailable
}

// Handle identifies an active continuous watch on a Source. The zero
// handle means no watch.
type Handle int64

// WatchOptions tune a sample request or continuous watch.
type WatchOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
}

// Source is a location sensor: a one-shot sampler plus a continuous
// watch. Implementations call onSample/onError from their own goroutine;
// callbacks must be fast or hand off.
type Source interface {
	// GetSample returns a single position, or a classified error.
	GetSample(opts WatchOptions) (geo.Position, error)
	// Watch starts continuous sampling and returns a handle for Cancel.
	Watch(onSample func(geo.Position), onError func(error), opts WatchOptions) Handle
	// Cancel releases a watch. Cancelling the zero or an unknown handle
	// is a no-op.
	Cancel(Handle)
}
