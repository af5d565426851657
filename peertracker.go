package spatialmesh

import (
	"github.com/pkg/errors"

	"github.com/relaymesh/spatialmesh/codes"
	"github.com/relaymesh/spatialmesh/convexhull"
	"github.com/relaymesh/spatialmesh/logsink"
)

// PeerTracker discovers, ranks, and prunes remote peers by spatial
// proximity. It is not safe for concurrent use — like gyre's own
// Node.peers map, it is only ever touched from the single poll-thread
// goroutine that owns it.
type PeerTracker struct {
	self NodeInfo
	peers map[string]*peer

	// recipients accumulates addresses that named self in a peer list
	// since the last UpdatePeerSelections call.
	recipients map[string]struct{}

	trackingDuration uint32
	oracle           convexhull.Oracle
	sink             logsink.Sink
}

// NewPeerTracker constructs a tracker for self. oracle is the required
// convex-hull collaborator; a nil sink defaults to logsink.Discard{},
// matching gyre's own nodes not requiring a caller-supplied logger. An
// empty self.Address is a fatal construction failure.
func NewPeerTracker(self NodeInfo, trackingDuration uint32, oracle convexhull.Oracle, sink logsink.Sink) (*PeerTracker, error) {
	if self.Address == "" {
		return nil, errors.WithStack(codes.AddressConfigEmpty)
	}
	if oracle == nil {
		return nil, errors.New("peer tracker: convex-hull oracle must not be nil")
	}
	if sink == nil {
		sink = logsink.Discard{}
	}
	return &PeerTracker{
		self:             self,
		peers:            make(map[string]*peer),
		recipients:       make(map[string]struct{}),
		trackingDuration: trackingDuration,
		oracle:           oracle,
		sink:             sink,
	}, nil
}

// Self returns the tracker's current view of its own NodeInfo,
// including the sequence counter UpdatePeerSelections advances.
func (pt *PeerTracker) Self() NodeInfo {
	return pt.self
}

// Latch ensures a peer entry exists for address and pins it into the
// selection until self.Sequence passes latchUntil.
func (pt *PeerTracker) Latch(address string, duration uint32) error {
	if address == "" || address == pt.self.Address {
		return errors.New("peer tracker: latch address must be non-empty and not self")
	}
	p, ok := pt.peers[address]
	if !ok {
		p = &peer{info: NodeInfo{Address: address}}
		pt.peers[address] = p
	}
	p.latchUntil = saturatingAddU32(pt.self.Sequence, duration)
	return nil
}

// Update validates and records an incoming NodeInfo. isSource
// distinguishes "this node was the message's source" (compared
// against sourceSequence) from "this node was merely named in a peer
// list" (compared against info.Sequence).
func (pt *PeerTracker) Update(info NodeInfo, isSource bool) codes.Code {
	if info.Address == "" {
		pt.sink.Emit(codes.PeerAddressMissing, info)
		return codes.PeerAddressMissing
	}
	if len(info.Coordinates) == 0 {
		pt.sink.Emit(codes.PeerCoordsMissing, info)
		return codes.PeerCoordsMissing
	}
	if info.Address == pt.self.Address {
		pt.sink.Emit(codes.PeerIsSelf, info)
		return codes.PeerIsSelf
	}

	p, known := pt.peers[info.Address]
	if !known {
		p = &peer{info: info}
		if isSource {
			p.sourceSequence = info.Sequence
		}
		p.trackUntil = saturatingAddU32(pt.self.Sequence, pt.trackingDuration)
		pt.peers[info.Address] = p
		pt.sink.Emit(codes.NewPeerDiscovered, info)
		return codes.Success
	}

	if isSource {
		if info.Sequence <= p.sourceSequence {
			pt.sink.Emit(codes.SourceSequenceStale, info)
			return codes.SourceSequenceStale
		}
		p.sourceSequence = info.Sequence
	} else if info.Sequence <= p.info.Sequence {
		pt.sink.Emit(codes.PeerSequenceStale, info)
		return codes.PeerSequenceStale
	}

	p.info = info
	p.trackUntil = saturatingAddU32(pt.self.Sequence, pt.trackingDuration)
	pt.sink.Emit(codes.PeerUpdated, info)
	return codes.Success
}

// ReceivePeerUpdates folds every NodeInfo carried in msg.Peers into the
// tracker via Update, catching self.sequence up whenever a peer names
// self at a higher sequence and remembering to answer that peer.
func (pt *PeerTracker) ReceivePeerUpdates(msg Message) {
	for _, info := range msg.Peers {
		if code := pt.Update(info, false); code == codes.PeerIsSelf {
			if info.Sequence > pt.self.Sequence {
				pt.self.Sequence = info.Sequence
			}
			if msg.Source.Address != "" {
				pt.recipients[msg.Source.Address] = struct{}{}
			}
		}
	}
}

// candidate is scratch state for the interior-hull sweep.
type candidate struct {
	addr   string
	coords []float32
	info   NodeInfo
}

// UpdatePeerSelections computes the outbound neighbor set and final
// recipient list, advancing self.Sequence by exactly one.
func (pt *PeerTracker) UpdatePeerSelections() (selected []NodeInfo, recipients []string) {
	recipientSet := pt.recipients
	pt.recipients = make(map[string]struct{})

	var candidates []candidate
	for addr, p := range pt.peers {
		switch {
		case p.latched(pt.self.Sequence):
			selected = append(selected, p.info)
			recipientSet[addr] = struct{}{}
		case p.trackElapsed(pt.self.Sequence):
			delete(pt.peers, addr)
		case pt.self.GroupMask&p.info.GroupMask != 0:
			candidates = append(candidates, candidate{addr: addr, coords: p.info.Coordinates, info: p.info})
		}
	}

	if len(candidates) > 0 {
		points := make([]convexhull.Point, len(candidates))
		for i, c := range candidates {
			points[i] = convexhull.Point(c.coords)
		}
		origin := convexhull.Point(pt.self.Coordinates)
		inverted := convexhull.SphereInversion(points, origin)
		// Append self's own position in the inverted frame (the literal
		// zero vector) so the hull is guaranteed non-degenerate and
		// always contains it: a point set containing the origin always
		// reports the origin as a hull vertex.
		zero := make(convexhull.Point, len(origin))
		inverted = append(inverted, zero)

		onHull := pt.oracle.ConvexHull(inverted)
		for i, c := range candidates {
			if i < len(onHull) && onHull[i] {
				selected = append(selected, c.info)
				recipientSet[c.addr] = struct{}{}
			}
		}
	}

	recipients = make([]string, 0, len(recipientSet))
	for addr := range recipientSet {
		recipients = append(recipients, addr)
	}

	pt.self.Sequence++
	pt.sink.Emit(codes.SelectionsGenerated, len(selected))
	return selected, recipients
}

// rankFactor scales the distance term of NearestPeer's cost function.
// original_source/include/vsm/peer_tracker.hpp names this multiplier
// but never ties it to a runtime option; it is fixed at 1 here (pure
// squared-distance scaling), since no configuration field exposes it.
const rankFactor = 1.0

// NearestPeer returns the NodeInfo among self and the peers named in
// subset that minimizes the radially-biased squared distance to
// queryCoords. Ties favor self, then earlier entries of subset —
// insertion order with self considered first.
func (pt *PeerTracker) NearestPeer(queryCoords []float32, subset []string) (NodeInfo, bool) {
	best := pt.self
	bestCost := cost(pt.self, queryCoords)
	found := true

	for _, addr := range subset {
		p, ok := pt.peers[addr]
		if !ok {
			continue
		}
		if c := cost(p.info, queryCoords); c < bestCost {
			bestCost = c
			best = p.info
		}
	}
	return best, found
}

func cost(info NodeInfo, queryCoords []float32) float64 {
	return distanceSqr(info.Coordinates, queryCoords)*rankFactor - info.powerRadiusBias()
}

func distanceSqr(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
