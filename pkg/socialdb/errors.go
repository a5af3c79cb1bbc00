package socialdb

import (
	"errors"
	"fmt"
)

// ErrRemoteUnavailable wraps every failure of the read and balance collaborators.
var ErrRemoteUnavailable = errors.New("socialdb: remote unavailable")

// RemoteError names the failed call and what it was about.
type RemoteError struct {
	Op     string
	Target string
	Err    error
}

func (e *RemoteError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Target == "" {
		return fmt.Sprintf("socialdb: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("socialdb: %s %s: %v", e.Op, e.Target, e.Err)
}

// Unwrap exposes ErrRemoteUnavailable and the underlying cause.
func (e *RemoteError) Unwrap() []error {
	return []error{ErrRemoteUnavailable, e.Err}
}

func remote(op, target string, err error) error {
	return &RemoteError{Op: op, Target: target, Err: err}
}
