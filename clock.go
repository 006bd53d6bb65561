package leaderduty

import "time"

// Clock is the monotonic source of wall-clock timestamps used for all
// age/due comparisons (C1). Tests inject a fixed or stepped Clock;
// production wiring uses RealClock.
type Clock interface {
	Now() time.Time
}

// RealClock reports the current UTC time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant. Useful for scenario
// tests that need every duty in a tick to observe identical "now".
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
