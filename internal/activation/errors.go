package activation

import (
	"errors"
	"fmt"
)

// Reason classifies why activation could not be confirmed.
type Reason int

const (
	// Exhausted means every attempted step failed or was skipped.
	Exhausted Reason = iota
	// ProcessGone means the owning process exited before activation.
	ProcessGone
	// PermissionDenied means the accessibility grant is missing.
	PermissionDenied
	// Unsupported means no focus primitives are available on this platform.
	Unsupported
)

func (r Reason) String() string {
	switch r {
	case ProcessGone:
		return "process gone"
	case PermissionDenied:
		return "permission denied"
	case Unsupported:
		return "unsupported"
	default:
		return "exhausted"
	}
}

// Failure is returned by Engine.Activate when no step succeeded.
type Failure struct {
	Reason Reason
	PID    int
	Title  string
	// Err aggregates step errors, if any.
	Err error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("activate pid %d %q: %s", f.PID, f.Title, f.Reason)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ReasonOf returns the failure reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason, true
	}
	return 0, false
}
