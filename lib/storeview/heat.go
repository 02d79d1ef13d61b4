// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storeview

import (
	"time"

	"github.com/bureau-foundation/objstore/lib/objectid"
)

// heatDecayDuration is how long an event glows. Heat starts at 1.0 and
// decays linearly to 0.0 over this duration.
const heatDecayDuration = 3 * time.Second

// heatTickInterval is the re-render interval while any event is hot.
const heatTickInterval = 100 * time.Millisecond

// heatTracker maps object IDs to the time of their latest event.
type heatTracker struct {
	ignitions map[objectid.ID]time.Time
}

func newHeatTracker() *heatTracker {
	return &heatTracker{ignitions: make(map[objectid.ID]time.Time)}
}

// ignite records an event for id, resetting its decay.
func (tracker *heatTracker) ignite(id objectid.ID, now time.Time) {
	tracker.ignitions[id] = now
}

// heat returns 1.0 at ignition, falling linearly to 0.0.
func (tracker *heatTracker) heat(id objectid.ID, now time.Time) float64 {
	ignition, exists := tracker.ignitions[id]
	if !exists {
		return 0
	}
	elapsed := now.Sub(ignition)
	if elapsed >= heatDecayDuration {
		return 0
	}
	return 1 - float64(elapsed)/float64(heatDecayDuration)
}

// hasHot reports whether any event still glows, dropping entries that
// have fully decayed.
func (tracker *heatTracker) hasHot(now time.Time) bool {
	hot := false
	for id, ignition := range tracker.ignitions {
		if now.Sub(ignition) < heatDecayDuration {
			hot = true
			continue
		}
		delete(tracker.ignitions, id)
	}
	return hot
}
