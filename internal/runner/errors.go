package runner

import (
	"errors"
	"fmt"
)

// ErrorKind classifies runner failures.
type ErrorKind int

const (
	// KindNotReady means Start was called without resources or a test list.
	KindNotReady ErrorKind = iota + 1
	// KindCaseImport means a list names a case that is not registered.
	KindCaseImport
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotReady:
		return "not-ready"
	case KindCaseImport:
		return "case-import"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by the runner's setup calls.
type Error struct {
	Kind ErrorKind
	Name string
	Err  error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindNotReady:
		msg = fmt.Sprintf("runner not ready: %s not loaded", e.Name)
	case KindCaseImport:
		msg = fmt.Sprintf("cannot import case %s", e.Name)
	default:
		msg = fmt.Sprintf("runner error (%s) %s", e.Kind, e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a runner Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
