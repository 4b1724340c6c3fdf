// Package errs defines the sentinel errors shared across zspy packages.
//
// Callers should match these with errors.Is; wrapped variants carry
// contextual detail such as the offending key path or array shape.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrPathExists is returned by Save when the target path already holds
	// a store and no overwrite option was given.
	ErrPathExists = errors.New("target path already exists")

	// ErrNotFound is returned when a named group, array or attribute does
	// not exist in the store.
	ErrNotFound = errors.New("node not found")

	// ErrNotGroup is returned when a path resolves to an array but a group
	// was expected.
	ErrNotGroup = errors.New("node is not a group")

	// ErrNotArray is returned when a path resolves to a group but an array
	// was expected.
	ErrNotArray = errors.New("node is not an array")

	// ErrClosed is returned when operating on a closed store handle.
	ErrClosed = errors.New("store is closed")

	// ErrReadOnly is returned when writing through a store handle opened
	// read-only.
	ErrReadOnly = errors.New("store is read-only")

	// ErrUnsupportedValue is returned by the value codec when a metadata
	// leaf has no encoding. The writer treats it as a per-key skip.
	ErrUnsupportedValue = errors.New("unsupported metadata value")

	// ErrShapeMismatch is returned when a buffer's element count does not
	// match the array shape it is written to or read from.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDTypeMismatch is returned when a buffer's dtype does not match the
	// target array's dtype.
	ErrDTypeMismatch = errors.New("dtype mismatch")

	// ErrAxisMismatch is returned when an experiment group's axis children
	// do not cover {0..rank-1} exactly.
	ErrAxisMismatch = errors.New("axis configuration does not match data rank")

	// ErrInvalidChunks is returned when a requested chunk shape has the
	// wrong rank or a non-positive extent.
	ErrInvalidChunks = errors.New("invalid chunk shape")

	// ErrInvalidDType is returned when an array metadata document carries
	// an unknown dtype string.
	ErrInvalidDType = errors.New("invalid dtype")
)

// DecodeError reports an unrecognized codec tag or a malformed encoded
// value at a specific key path in the metadata tree.
type DecodeError struct {
	Path string // slash-separated key path, e.g. "metadata/General/date"
	Kind string // offending tag, empty when the payload itself is malformed
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("decoding %q: unrecognized kind tag %q", e.Path, e.Kind)
	}

	return fmt.Sprintf("decoding %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
