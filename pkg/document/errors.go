package document

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeyPath is returned for empty or malformed key paths.
	ErrInvalidKeyPath = errors.New("document: invalid key path")
	// ErrKeyPathConflict signals a write whose path runs through an existing leaf.
	ErrKeyPathConflict = errors.New("document: key path conflict")
	// ErrInvalidValue is returned when a leaf value is not valid JSON.
	ErrInvalidValue = errors.New("document: invalid JSON value")
)

// ConflictError reports the prefix of Path that already holds a leaf.
type ConflictError struct {
	Path Path
	At   Path
}

func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	at := e.At.StoreKey()
	if at == "" {
		at = "<root>"
	}
	return fmt.Sprintf("document: key path conflict: %q runs through leaf value at %q", e.Path.StoreKey(), at)
}

func (e *ConflictError) Unwrap() error {
	return ErrKeyPathConflict
}
