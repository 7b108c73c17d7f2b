package media

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadableMedia marks a source file that could not be parsed or has
	// no duration metadata. Not retried; surfaced to the caller.
	ErrUnreadableMedia = errors.New("unreadable media")

	// ErrInvalidDuration marks a non-positive target duration.
	ErrInvalidDuration = errors.New("invalid target duration")
)

// EncodeError wraps a failed or timed-out external encoder invocation.
type EncodeError struct {
	Op  string // which ffmpeg operation failed, e.g. "mux", "synthesize_color"
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s failed: %v", e.Op, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
