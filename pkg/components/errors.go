package components

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	// ErrIO wraps filesystem failures while materializing or reading components.
	ErrIO = errors.New("components: filesystem failure")
	// ErrInvalidName is returned for component names that cannot map to a file path.
	ErrInvalidName = errors.New("components: invalid component name")
	// ErrInvalidRecord is returned for widget records of an unexpected shape.
	ErrInvalidRecord = errors.New("components: invalid component record")
)

// IOError describes a failed filesystem operation on a single path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("components: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrIO and the underlying cause.
func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// DecodeError collects per-component failures. Components that decoded
// cleanly are still returned alongside it.
type DecodeError struct {
	Failed map[string]error
}

func (e *DecodeError) Error() string {
	if e == nil || len(e.Failed) == 0 {
		return "<nil>"
	}
	names := maps.Keys(e.Failed)
	slices.Sort(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%q: %v", name, e.Failed[name]))
	}
	return fmt.Sprintf("components: %d invalid component(s): %s", len(names), strings.Join(parts, "; "))
}

func (e *DecodeError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		out = append(out, err)
	}
	return out
}

func (e *DecodeError) add(name string, err error) {
	if e.Failed == nil {
		e.Failed = make(map[string]error)
	}
	e.Failed[name] = err
}

func (e *DecodeError) orNil() error {
	if len(e.Failed) == 0 {
		return nil
	}
	return e
}
