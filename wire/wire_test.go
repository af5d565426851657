package wire

import (
	"testing"
)

func float32Ptr(v float32) *float32 { return &v }
func int64Ptr(v int64) *int64       { return &v }

// TestMarshalUnmarshalRoundTrip confirms Unmarshal(Marshal(m))
// reproduces every field of m, including the optional NodeInfo fields
// and an entity payload.
func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	m := Message{
		Timestamp: 1234567890,
		Hops:      3,
		Source: NodeInfo{
			Name:        "alice",
			Address:     "tcp://alice:9000",
			Coordinates: []float32{1.5, -2.25, 0},
			PowerRadius: float32Ptr(-0.5),
			GroupMask:   7,
			Sequence:    42,
			Timestamp:   int64Ptr(99),
		},
		Peers: []NodeInfo{
			{Name: "bob", Address: "b", Coordinates: []float32{1, 1}},
		},
		Entities: []Entity{
			{Name: "zeta", Coordinates: []float32{9, 9}, Expiry: 555, Range: 10, HopLimit: 2, Filter: FilterNearest, Payload: []byte("hi")},
			{Name: "alpha", Expiry: 1, Filter: FilterAll},
		},
	}

	buf, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Timestamp != m.Timestamp || got.Hops != m.Hops {
		t.Fatalf("header mismatch: got %+v", got)
	}
	if got.Source.Name != "alice" || got.Source.Address != "tcp://alice:9000" {
		t.Fatalf("source mismatch: %+v", got.Source)
	}
	if got.Source.PowerRadius == nil || *got.Source.PowerRadius != -0.5 {
		t.Fatalf("power radius mismatch: %+v", got.Source.PowerRadius)
	}
	if got.Source.Timestamp == nil || *got.Source.Timestamp != 99 {
		t.Fatalf("source timestamp mismatch: %+v", got.Source.Timestamp)
	}
	if len(got.Peers) != 1 || got.Peers[0].Address != "b" {
		t.Fatalf("peers mismatch: %+v", got.Peers)
	}

	// Marshal always sorts entities by name, so alpha must precede zeta.
	if len(got.Entities) != 2 || got.Entities[0].Name != "alpha" || got.Entities[1].Name != "zeta" {
		t.Fatalf("entities not sorted: %+v", got.Entities)
	}
	zeta, ok := got.EntityByName("zeta")
	if !ok || string(zeta.Payload) != "hi" || zeta.Filter != FilterNearest {
		t.Fatalf("EntityByName(zeta) = %+v, %v", zeta, ok)
	}
}

func TestUnmarshalRejectsBadSignatureAndVersion(t *testing.T) {
	m := Message{Source: NodeInfo{Address: "a"}}
	buf, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	corrupted := append([]byte(nil), buf...)
	corrupted[0] ^= 0xFF
	if _, err := Unmarshal(corrupted); err == nil {
		t.Error("expected error for corrupted signature")
	}

	wrongVersion := append([]byte(nil), buf...)
	wrongVersion[2] = version + 1
	if _, err := Unmarshal(wrongVersion); err == nil {
		t.Error("expected error for unsupported version")
	}
}

// TestUnmarshalRejectsTruncatedFrame confirms every truncation point
// fails rather than silently zero-filling the remainder of the frame.
func TestUnmarshalRejectsTruncatedFrame(t *testing.T) {
	m := Message{
		Source:   NodeInfo{Address: "a", Coordinates: []float32{1, 2, 3}},
		Entities: []Entity{{Name: "x", Expiry: 1}},
	}
	buf, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	for n := 0; n < len(buf); n++ {
		if _, err := Unmarshal(buf[:n]); err == nil {
			t.Errorf("Unmarshal(buf[:%d]) succeeded, want truncation error", n)
		}
	}
}

func TestEntityByNameMissing(t *testing.T) {
	m := Message{Entities: []Entity{{Name: "a"}, {Name: "c"}}}
	m.SortEntities()
	if _, ok := m.EntityByName("b"); ok {
		t.Error("EntityByName(b) should report false")
	}
}

func TestPutStringTruncatesAtStringMax(t *testing.T) {
	long := make([]byte, stringMax+50)
	for i := range long {
		long[i] = 'x'
	}
	m := Message{Source: NodeInfo{Address: string(long)}}
	buf, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Source.Address) != stringMax {
		t.Errorf("address length = %d, want %d", len(got.Source.Address), stringMax)
	}
}
