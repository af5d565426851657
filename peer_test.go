package spatialmesh

import "testing"

func TestSaturatingAddU32(t *testing.T) {
	cases := []struct {
		a, b, want uint32
	}{
		{0, 0, 0},
		{10, 5, 15},
		{0xFFFFFFFF, 1, 0xFFFFFFFF},
		{0xFFFFFFF0, 0x20, 0xFFFFFFFF},
	}
	for _, c := range cases {
		if got := saturatingAddU32(c.a, c.b); got != c.want {
			t.Errorf("saturatingAddU32(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestPeerLatchedAndTrackElapsed(t *testing.T) {
	p := &peer{latchUntil: 10, trackUntil: 20}

	if !p.latched(5) {
		t.Error("expected latched at sequence 5")
	}
	if p.latched(11) {
		t.Error("expected not latched at sequence 11")
	}
	if p.trackElapsed(19) {
		t.Error("expected not elapsed at sequence 19")
	}
	if !p.trackElapsed(21) {
		t.Error("expected elapsed at sequence 21")
	}
}
