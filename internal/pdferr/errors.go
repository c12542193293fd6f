package pdferr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRangeFormat     = errors.New("invalid range format")
	ErrInvalidChunkSize       = errors.New("invalid chunk size")
	ErrRangeOutOfBounds       = errors.New("range out of bounds")
	ErrSourceUnreadable       = errors.New("source unreadable")
	ErrDestinationWriteFailed = errors.New("destination write failed")
)

// InvalidRangeFormatError represents a page token that could not be parsed
type InvalidRangeFormatError struct {
	Token  string
	Reason string
}

func (e *InvalidRangeFormatError) Error() string {
	return fmt.Sprintf("invalid range %q: %s", e.Token, e.Reason)
}

func (e *InvalidRangeFormatError) Is(target error) bool { return target == ErrInvalidRangeFormat }

// InvalidChunkSizeError represents a non-positive chunk size
type InvalidChunkSizeError struct {
	Size int
}

func (e *InvalidChunkSizeError) Error() string {
	return fmt.Sprintf("invalid chunk size %d: must be at least 1", e.Size)
}

func (e *InvalidChunkSizeError) Is(target error) bool { return target == ErrInvalidChunkSize }

// RangeOutOfBoundsError represents a range that does not fit the document
type RangeOutOfBoundsError struct {
	Start int
	End   int
	Total int
}

func (e *RangeOutOfBoundsError) Error() string {
	return fmt.Sprintf("range %d-%d out of bounds for document with %d pages", e.Start, e.End, e.Total)
}

func (e *RangeOutOfBoundsError) Is(target error) bool { return target == ErrRangeOutOfBounds }

// SourceError represents a source document that is missing or cannot be parsed
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool { return target == ErrSourceUnreadable }

// DestinationError represents an output that could not be written
type DestinationError struct {
	Path string
	Err  error
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("cannot write %s: %v", e.Path, e.Err)
}

func (e *DestinationError) Unwrap() error { return e.Err }

func (e *DestinationError) Is(target error) bool { return target == ErrDestinationWriteFailed }
