package cloud

import (
	"errors"
	"fmt"
)

// Kind classifies a control-plane error.
type Kind int

// Error kinds.
const (
	// KindFatal errors are permanent; retrying will not help.
	KindFatal Kind = iota
	// KindNotFound means the resource does not exist.
	KindNotFound
	// KindConflict means the resource is in a state that prevents the operation.
	KindConflict
	// KindTransient errors (rate limits, 5xx, network) may succeed on retry.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// Error is a classified control-plane error.
type Error struct {
	Kind     Kind
	Op       string
	Resource string
	Err      error
}

func (e *Error) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the given kind. A nil err yields nil.
func NewError(kind Kind, op, resource string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Resource: resource, Err: err}
}

// NotFound returns a NotFound error for resource.
func NotFound(op, resource string) error {
	return &Error{Kind: KindNotFound, Op: op, Resource: resource, Err: errors.New("not found")}
}

// KindOf returns the kind of err. Unclassified errors are reported as fatal.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindFatal
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return isKind(err, KindNotFound)
}

// IsConflict reports whether err is a Conflict error.
func IsConflict(err error) bool {
	return isKind(err, KindConflict)
}

// IsTransient reports whether err is a Transient error.
func IsTransient(err error) bool {
	return isKind(err, KindTransient)
}

// IsFatal reports whether err is a classified Fatal error.
// Unclassified errors are not considered fatal here.
func IsFatal(err error) bool {
	return isKind(err, KindFatal)
}

func isKind(err error, kind Kind) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}
