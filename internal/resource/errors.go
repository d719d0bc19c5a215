package resource

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies resource pool failures.
type ErrorKind int

const (
	// KindLoad covers a missing, unreadable or malformed resource file.
	KindLoad ErrorKind = iota + 1
	// KindNotReleased means the file is reserved by another owner.
	KindNotReleased
	// KindNotMeetConstraint means a connection constraint found nothing.
	KindNotMeetConstraint
	// KindNoFile means reserve or release was called before any load.
	KindNoFile
	// KindDuplicate means a device or port name is already taken.
	KindDuplicate
	// KindNotFound means a named device, port or comm factory does not exist.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindNotReleased:
		return "not-released"
	case KindNotMeetConstraint:
		return "not-meet-constraint"
	case KindNoFile:
		return "no-file"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by this package. Callers inspect
// Kind (directly or through IsKind) rather than matching on message text.
type Error struct {
	Kind ErrorKind

	// File is the resource file involved, if any.
	File string

	// Owner is the reservation holder for KindNotReleased.
	Owner string

	// Name is the device, port or device type the error refers to.
	Name string

	// Constraints lists every constraint description that was evaluated
	// and Failed the subset that produced no match.
	Constraints []string
	Failed      []string

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindLoad:
		return fmt.Sprintf("failed to load resource file %s: %v", e.File, e.Err)
	case KindNotReleased:
		return fmt.Sprintf("resource file %s is reserved by %s", e.File, e.Owner)
	case KindNotMeetConstraint:
		return fmt.Sprintf("resource %s does not meet constraints [%s] (failed: [%s])",
			e.Name, strings.Join(e.Constraints, "; "), strings.Join(e.Failed, "; "))
	case KindNoFile:
		return "no resource file loaded"
	case KindDuplicate:
		return fmt.Sprintf("%s already exists", e.Name)
	case KindNotFound:
		if e.Err != nil {
			return fmt.Sprintf("%s not found: %v", e.Name, e.Err)
		}
		return fmt.Sprintf("%s not found", e.Name)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "resource error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is or wraps a resource Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}
