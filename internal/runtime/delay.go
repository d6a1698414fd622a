package runtime

import (
	"time"
	"unicode/utf8"
)

// Simulated typing pace. The delay is a UX pacing device, not a correctness
// mechanism: it is never skipped or shortened under load, only cancelled on
// teardown.
const (
	// DefaultGreetingDelay is the fixed delay before the first bot turn.
	DefaultGreetingDelay = 1000 * time.Millisecond

	// DefaultMinDelay and DefaultMaxDelay clamp the computed delay window.
	DefaultMinDelay = 800 * time.Millisecond
	DefaultMaxDelay = 1800 * time.Millisecond

	// defaultPerRune approximates a human typing rate of ~40 chars/sec.
	defaultPerRune = 25 * time.Millisecond
)

// delayFor computes the simulated typing delay for a bot message:
// proportional to its length, clamped to the configured window.
func (c *Conversation) delayFor(message string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(message)) * c.perRune
	if d < c.minDelay {
		d = c.minDelay
	}
	if d > c.maxDelay {
		d = c.maxDelay
	}
	return d
}
