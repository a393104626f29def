package util

import "time"

// TimestampLayout is the layout used for the timestamp component of run directory names.
const TimestampLayout = "2006-01-02T15-04"

type Clock interface {
	Now() time.Time
}

type DefaultClock struct{}

func (c *DefaultClock) Now() time.Time { return time.Now() }

type DummyClock struct {
	T time.Time
}

func (c *DummyClock) Now() time.Time {
	return c.T
}

// Timestamp formats the current time of clock using TimestampLayout.
func Timestamp(clock Clock) string {
	return clock.Now().Format(TimestampLayout)
}
