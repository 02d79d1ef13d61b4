// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source for connect back-off and for blocking
// store requests that carry a timeout.
type Clock interface {
	Now() time.Time

	// After delivers the time once d has elapsed, immediately when
	// d <= 0.
	After(d time.Duration) <-chan time.Time

	Sleep(d time.Duration)
}

// Real returns the wall clock.
func Real() Clock { return wallClock{} }

// wallClock defers to package time.
type wallClock struct{}

func (wallClock) Now() time.Time                         { return time.Now() }
func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (wallClock) Sleep(d time.Duration)                  { time.Sleep(d) }
