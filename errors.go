package imagedup

import (
	"errors"
	"fmt"
)

// ErrGridMismatch reports a comparison between fingerprints computed under
// different grid sizes. This is an index-versioning problem (the grid was
// reconfigured after images were already registered), not a user error, and
// fails the whole operation.
var ErrGridMismatch = errors.New("imagedup: fingerprint grid sizes differ")

// ErrNotFound reports a record or blob that does not exist in the store.
var ErrNotFound = errors.New("imagedup: not found")

// DecodeError reports input bytes that are not a decodable image in a
// supported format.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("imagedup: undecodable image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DuplicateError is the expected "business" outcome of registering an image
// that already exists in the library. It carries the closest stored match so
// callers can show the user what the duplicate is.
type DuplicateError struct {
	Match Match
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("imagedup: duplicate of %s (distance %d, similarity %.1f%%)",
		e.Match.Record.ID, e.Match.Distance, e.Match.Similarity)
}

// AsDuplicate extracts the duplicate match from err, if err (or anything it
// wraps) is a DuplicateError.
func AsDuplicate(err error) (*Match, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return &dup.Match, true
	}
	return nil, false
}

// StorageError reports a failed store operation. Registration rolls back any
// partially written blob before surfacing one of these, so the index and the
// blob store never diverge.
type StorageError struct {
	Op  string // operation that failed, e.g. "insert record"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("imagedup: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
