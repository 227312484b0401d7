// Package system provides the wall clock used to stamp runs.
package system

import "time"

// Clock implements kubestronaut.Clock.
type Clock struct {
	now func() time.Time
}

// New returns a Clock backed by time.Now.
func New() *Clock {
	return &Clock{now: time.Now}
}

// Now returns the current time in UTC, truncated to milliseconds.
func (c *Clock) Now() time.Time {
	now := time.Now
	if c != nil && c.now != nil {
		now = c.now
	}
	return now().UTC().Truncate(time.Millisecond)
}
