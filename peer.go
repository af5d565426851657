package spatialmesh

// peer is the tracker's record of one remote NodeInfo. It stays
// unexported the way gyre's own peer struct in peer.go never
// leaves that package's boundary; callers only ever see the NodeInfo
// snapshots PeerTracker hands back.
type peer struct {
	info NodeInfo

	// sourceSequence is the last sequence seen while this peer was
	// itself the message source — distinct from info.Sequence, which
	// may have arrived indirectly via another peer's gossip.
	sourceSequence uint32

	// latchUntil/trackUntil are sequence counts, not durations: a peer
	// is kept until self.Sequence passes them. Both elapsed means GC.
	latchUntil uint32
	trackUntil uint32
}

// latched reports whether this peer must be force-selected regardless
// of geometry, at the tracker's current self sequence.
func (p *peer) latched(selfSequence uint32) bool {
	return p.latchUntil >= selfSequence
}

// trackElapsed reports whether this peer's retention window has
// elapsed and it is eligible for garbage collection.
func (p *peer) trackElapsed(selfSequence uint32) bool {
	return p.trackUntil < selfSequence
}

// saturatingAddU32 adds a and b without wrapping past math.MaxUint32,
// used for latchUntil/trackUntil arithmetic so a large duration can't
// wrap a near-max sequence back down to a small one.
func saturatingAddU32(a, b uint32) uint32 {
	sum := uint64(a) + uint64(b)
	if sum > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(sum)
}
