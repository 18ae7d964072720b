package time

import (
	"time"

	"github.com/regsuite/registry-core/internal/domain/port/core"
)

// SystemClock implements the Clock interface with real time operations
type SystemClock struct{}

// NewSystemClock creates a clock backed by the system time
func NewSystemClock() core.Clock {
	return &SystemClock{}
}

// Now returns the current time in UTC
func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Sleep pauses the current goroutine for the specified duration
func (c *SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
