package core

import "time"

// Clock abstracts time for the domain. Every operation that needs "now" takes a
// Clock by injection so tests can pin time and so transaction time can be
// captured exactly once per transaction
type Clock interface {
	// Now returns the current time in UTC
	Now() time.Time
	// Sleep pauses the current goroutine for the specified duration
	Sleep(d time.Duration)
}
