// Package clock provides the MLLD_MOCK_TIME-aware clock constructor
// internal/env's reserved TIME variable and test fixtures use, so
// tests get a deterministic timestamp instead of depending on
// time.Now() (spec §6 env vars: "MLLD_TEST_MODE, MLLD_MOCK_TIME — test
// hooks for deterministic clocks").
package clock

import (
	"os"
	"time"
)

// Clock returns the current time, honoring MLLD_MOCK_TIME as an
// RFC3339 override when set.
type Clock func() time.Time

// New returns the process clock: MLLD_MOCK_TIME's parsed value when
// set and valid, else time.Now.
func New() Clock {
	if raw := os.Getenv("MLLD_MOCK_TIME"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return func() time.Time { return t }
		}
	}
	return time.Now
}
