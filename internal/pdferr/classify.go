package pdferr

import (
	"context"
	"errors"
)

// Reason labels used in batch outcomes and metrics.
const (
	ReasonNone             = ""
	ReasonInvalidRange     = "invalid_range"
	ReasonInvalidChunkSize = "invalid_chunk_size"
	ReasonOutOfBounds      = "range_out_of_bounds"
	ReasonSourceUnreadable = "source_unreadable"
	ReasonDestination      = "destination_write_failed"
	ReasonCancelled        = "cancelled"
	ReasonUnknown          = "unknown"
)

// Classify maps an error onto a stable reason label.
func Classify(err error) string {
	if err == nil {
		return ReasonNone
	}

	switch {
	case errors.Is(err, ErrInvalidRangeFormat):
		return ReasonInvalidRange
	case errors.Is(err, ErrInvalidChunkSize):
		return ReasonInvalidChunkSize
	case errors.Is(err, ErrRangeOutOfBounds):
		return ReasonOutOfBounds
	case errors.Is(err, ErrSourceUnreadable):
		return ReasonSourceUnreadable
	case errors.Is(err, ErrDestinationWriteFailed):
		return ReasonDestination
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	}
	return ReasonUnknown
}

// IsFatal reports whether err should abort a whole invocation rather than a
// single range or item.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var chunkErr *InvalidChunkSizeError
	if errors.As(err, &chunkErr) {
		return true
	}
	return errors.Is(err, context.Canceled)
}
