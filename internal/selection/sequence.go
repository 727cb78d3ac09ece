package selection

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"
)

// Sequence hands out source IDs that are unique across calls.
type Sequence interface {
	Next(ctx context.Context) (string, error)
}

// ClockSequence is an in-process counter seeded from the current time in
// milliseconds, so IDs also stay ahead of those issued by earlier runs.
type ClockSequence struct {
	n atomic.Int64
}

// NewClockSequence seeds a counter from now.
func NewClockSequence(now time.Time) *ClockSequence {
	s := &ClockSequence{}
	s.n.Store(now.UnixMilli())
	return s
}

// Next returns the next ID.
func (s *ClockSequence) Next(context.Context) (string, error) {
	return strconv.FormatInt(s.n.Add(1), 10), nil
}
