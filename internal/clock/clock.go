// Package clock injects time everywhere the consensus core would otherwise
// read the OS clock directly. Verify paths, certificate lifetimes, and PoH
// drift checks all take a Clock instead of calling time.Now, so tests can
// drive time deterministically instead of sleeping.
package clock

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the single source of wall-clock time for the process. It mirrors
// github.com/benbjohnson/clock.Clock so production code can pass the real
// clock and tests can pass clock.NewMock().
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	After(d time.Duration) <-chan time.Time
	Sleep(d time.Duration)
	Timer(d time.Duration) *clock.Timer
	Ticker(d time.Duration) *clock.Ticker
}

// New returns the real, OS-backed clock.
func New() Clock {
	return clock.New()
}

// NewMock returns a controllable clock for deterministic tests.
func NewMock() *clock.Mock {
	return clock.NewMock()
}

// UnixNano returns t as the u64 nanosecond-since-epoch timestamp used across
// the wire protocol and data model.
func UnixNano(t time.Time) uint64 {
	return uint64(t.UnixNano())
}

// FromUnixNano is the inverse of UnixNano.
func FromUnixNano(ns uint64) time.Time {
	return time.Unix(0, int64(ns))
}
