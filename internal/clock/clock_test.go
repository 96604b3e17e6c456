package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mlld-lang/mlld-go/internal/clock"
)

func TestNewHonorsMockTime(t *testing.T) {
	t.Setenv("MLLD_MOCK_TIME", "2026-01-02T15:04:05Z")
	c := clock.New()
	want, _ := time.Parse(time.RFC3339, "2026-01-02T15:04:05Z")
	assert.Equal(t, want, c())
	assert.Equal(t, want, c(), "mock clock is stable across calls")
}

func TestNewFallsBackToRealTimeWhenUnset(t *testing.T) {
	t.Setenv("MLLD_MOCK_TIME", "")
	c := clock.New()
	assert.WithinDuration(t, time.Now(), c(), time.Second)
}

func TestNewFallsBackOnInvalidMockTime(t *testing.T) {
	t.Setenv("MLLD_MOCK_TIME", "not-a-timestamp")
	c := clock.New()
	assert.WithinDuration(t, time.Now(), c(), time.Second)
}
