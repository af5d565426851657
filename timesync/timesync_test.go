package timesync

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestNewDefaultsToRealClock(t *testing.T) {
	ts := New(nil)
	before := time.Now()
	now := ts.Now()
	after := time.Now()
	if now.Before(before) || now.After(after.Add(time.Second)) {
		t.Errorf("Now() = %v, want between %v and %v", now, before, after)
	}
}

func TestSyncFullWeightSnapsToSample(t *testing.T) {
	local := time.Unix(1000, 0)
	ts := New(fixedClock(local))

	sample := local.Add(5 * time.Second)
	ts.Sync(sample, 1.0)

	if got := ts.Now(); !got.Equal(sample) {
		t.Errorf("Now() = %v, want %v", got, sample)
	}
}

func TestSyncPartialWeightMovesTowardSample(t *testing.T) {
	local := time.Unix(1000, 0)
	ts := New(fixedClock(local))

	sample := local.Add(10 * time.Second)
	ts.Sync(sample, 0.5)

	want := local.Add(5 * time.Second)
	if got := ts.Now(); got.Sub(want) > time.Millisecond || want.Sub(got) > time.Millisecond {
		t.Errorf("Now() = %v, want ~%v", got, want)
	}
}

func TestFromLocalAndToLocalAreInverses(t *testing.T) {
	local := time.Unix(2000, 0)
	ts := New(fixedClock(local))
	ts.Sync(local.Add(3*time.Second), 1.0)

	sample := local.Add(time.Minute)
	mesh := ts.FromLocal(sample)
	back := ts.ToLocal(mesh)

	if !back.Equal(sample) {
		t.Errorf("ToLocal(FromLocal(x)) = %v, want %v", back, sample)
	}
}

func TestLocalNowIgnoresOffset(t *testing.T) {
	local := time.Unix(3000, 0)
	ts := New(fixedClock(local))
	ts.Sync(local.Add(time.Hour), 1.0)

	if got := ts.LocalNow(); !got.Equal(local) {
		t.Errorf("LocalNow() = %v, want %v", got, local)
	}
}
