package spatialmesh

import (
	"sort"
	"time"

	"github.com/relaymesh/spatialmesh/wire"
)

// Filter selects how an Entity propagates through the mesh. It is the
// domain alias of wire.Filter; the two stay
// interchangeable since the wire byte enum already carries exactly the
// semantics the domain model needs, the same way gyre's domain peer.go
// passes msg.Transit values straight through from the wire package
// without a parallel domain enum.
type Filter = wire.Filter

const (
	FilterAll     = wire.FilterAll
	FilterNearest = wire.FilterNearest
)

// Entity is a named, optionally spatial record exchanged as the
// payload of a Message.
type Entity struct {
	Name        string
	Coordinates []float32
	Expiry      time.Time
	Range       float32
	HopLimit    uint32
	Filter      Filter
	Payload     []byte
}

func (e Entity) toWire() wire.Entity {
	return wire.Entity{
		Name:        e.Name,
		Coordinates: e.Coordinates,
		Expiry:      e.Expiry.UnixNano(),
		Range:       e.Range,
		HopLimit:    e.HopLimit,
		Filter:      e.Filter,
		Payload:     e.Payload,
	}
}

func entityFromWire(w wire.Entity) Entity {
	return Entity{
		Name:        w.Name,
		Coordinates: w.Coordinates,
		Expiry:      time.Unix(0, w.Expiry),
		Range:       w.Range,
		HopLimit:    w.HopLimit,
		Filter:      w.Filter,
		Payload:     w.Payload,
	}
}

// EntityUpdate is the ego sphere's record of a shared fact: the entity
// itself plus the local bookkeeping needed to decide dedup, expiry,
// and nearest-filter outcomes later.
type EntityUpdate struct {
	Entity           Entity
	ReceiveTimestamp time.Time
	SourceTimestamp  time.Time
	Hops             uint32
}

// EntityUpdateHandler is the one user-supplied policy hook on the ego
// sphere: given the prospective new record, the existing record (nil
// if none), and the message source, it may veto the update by
// returning false.
type EntityUpdateHandler func(newRec, oldRec *EntityUpdate, source NodeInfo) bool

// entityTimestampKey is the ego sphere's dedup key: an ordered
// (name, timestamp) pair.
type entityTimestampKey struct {
	name      string
	timestamp time.Time
}

// seenSet is a bounded set of entityTimestampKeys, halved by removing
// the lowest-timestamp half once it exceeds its configured size.
// Implemented as a map plus an unordered slice rather than a heap:
// eviction is rare (only on overflow) so paying O(n log n) then,
// instead of O(log n) on every insert, is the simpler trade.
type seenSet struct {
	bound int
	keys  map[entityTimestampKey]struct{}
	order []entityTimestampKey
}

func newSeenSet(bound int) *seenSet {
	return &seenSet{
		bound: bound,
		keys:  make(map[entityTimestampKey]struct{}),
	}
}

func (s *seenSet) contains(k entityTimestampKey) bool {
	_, ok := s.keys[k]
	return ok
}

// insert records k and reports whether the set was trimmed as a
// result (so the caller can emit ENTITY_TIMESTAMPS_TRIMMED).
func (s *seenSet) insert(k entityTimestampKey) (trimmed bool) {
	s.keys[k] = struct{}{}
	s.order = append(s.order, k)
	if s.bound > 0 && len(s.keys) > s.bound {
		s.trimOldestHalf()
		return true
	}
	return false
}

func (s *seenSet) trimOldestHalf() {
	sort.Slice(s.order, func(i, j int) bool { return s.order[i].timestamp.Before(s.order[j].timestamp) })
	cut := len(s.order) / 2
	for _, k := range s.order[:cut] {
		delete(s.keys, k)
	}
	remaining := make([]entityTimestampKey, len(s.order)-cut)
	copy(remaining, s.order[cut:])
	s.order = remaining
}

func (s *seenSet) len() int {
	return len(s.keys)
}
