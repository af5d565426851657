// Package timesync maintains the running offset between a node's local
// monotonic clock and the shared mesh time estimate, updated by
// weighted samples taken from messages seen on the wire. Ported
// directly from original_source/include/vsm/time_sync.hpp's
// TimeSync<Duration> template (a clock closure plus an offset
// accumulator); the Go version fixes the duration to time.Duration and
// the local clock to a func() time.Time so it can be swapped for a
// fake in tests.
package timesync

import "time"

// Clock returns the local monotonic time. The default is time.Now;
// tests and simulations inject a deterministic one.
type Clock func() time.Time

// TimeSync estimates shared mesh time as localTime + offset, where
// offset is nudged toward each observed sample by `weight`.
type TimeSync struct {
	localTime Clock
	offset    time.Duration
}

// New creates a TimeSync with offset zero (mesh time starts equal to
// local time) against the given clock. A nil clock defaults to
// time.Now.
func New(localTime Clock) *TimeSync {
	if localTime == nil {
		localTime = time.Now
	}
	return &TimeSync{localTime: localTime}
}

// Sync folds one observed mesh-time sample into the running offset
// estimate: offset += (sample - local - offset) * weight. A weight of
// 1 snaps the estimate exactly to the sample; a weight near 0 barely
// moves it. MeshNode feeds this 1/(1+len(connectedPeers)), so a node
// with many peers moves its estimate more slowly per sample (more
// samples, each trusted less).
func (t *TimeSync) Sync(sample time.Time, weight float64) {
	observedOffset := sample.Sub(t.localTime())
	correction := float64(observedOffset-t.offset) * weight
	t.offset += time.Duration(correction)
}

// Now returns the current mesh time estimate.
func (t *TimeSync) Now() time.Time {
	return t.localTime().Add(t.offset)
}

// LocalNow returns the unadjusted local clock reading.
func (t *TimeSync) LocalNow() time.Time {
	return t.localTime()
}

// Offset returns the current offset estimate (mesh time - local time).
func (t *TimeSync) Offset() time.Duration {
	return t.offset
}

// FromLocal converts a local-clock timestamp into mesh time.
func (t *TimeSync) FromLocal(local time.Time) time.Time {
	return local.Add(t.offset)
}

// ToLocal converts a mesh-time timestamp back into local-clock time.
func (t *TimeSync) ToLocal(mesh time.Time) time.Time {
	return mesh.Add(-t.offset)
}
