package tabix

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndex is returned by Open when the sibling index is missing
	// or malformed.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrNoIter is returned by Read when no region has been fetched.
	ErrNoIter = errors.New("no region fetched")

	// ErrTruncated is returned by Read when a record cannot be decoded,
	// typically because the compressed stream is cut short or corrupt.
	ErrTruncated = errors.New("truncated record")

	// ErrNoMoreRecord is the normal exhaustion signal: the fetched region
	// has no further overlapping records.
	ErrNoMoreRecord = errors.New("no more record")
)

// IsEOF reports whether err is the normal end-of-region signal.
func IsEOF(err error) bool {
	return errors.Is(err, ErrNoMoreRecord)
}

// SequenceLookupError is returned when a sequence name is not in the index.
type SequenceLookupError struct {
	Name string
}

func (e *SequenceLookupError) Error() string {
	return fmt.Sprintf("sequence %s not found in index", e.Name)
}

// FetchError is returned when the index cannot produce a cursor for the
// requested sequence id.
type FetchError struct {
	Tid int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("cannot fetch region: sequence id %d not in index", e.Tid)
}
