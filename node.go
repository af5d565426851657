// Package spatialmesh implements a decentralized spatial mesh
// networking runtime: nodes discover geometric neighbors, replicate
// "entities" with filtered gossip, and keep a shared time estimate
// over a pluggable lossy datagram transport.
package spatialmesh

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/relaymesh/spatialmesh/codes"
	"github.com/relaymesh/spatialmesh/config"
	"github.com/relaymesh/spatialmesh/convexhull"
	"github.com/relaymesh/spatialmesh/logsink"
	"github.com/relaymesh/spatialmesh/timesync"
	"github.com/relaymesh/spatialmesh/transport"
	"github.com/relaymesh/spatialmesh/wire"
)

// NewSelf builds a NodeInfo for a new node, defaulting its address to a
// fresh UUID when addr is empty — the pack's own idiom
// (github.com/google/uuid) for the identity gyre's NewNode generates by
// hand-rolling 16 random bytes via crypto/rand.
func NewSelf(addr string, name string, coords []float32) NodeInfo {
	if addr == "" {
		addr = uuid.NewString()
	}
	return NodeInfo{Name: name, Address: addr, Coordinates: coords}
}

// MeshNode owns the ego sphere, peer tracker, time sync, and transport
// for one participant, and glues them together into the receive/poll
// loop described below (mirrors the role gyre's Node plays over its
// own peer/group/beacon machinery).
type MeshNode struct {
	transport transport.Transport
	sink      logsink.Sink

	peerTracker *PeerTracker
	timeSync    *timesync.TimeSync

	cfg config.Config

	// mu guards the ego sphere and connectedPeers for the duration of
	// every receive/expire/update sequence, the one piece of state
	// external callers (UpdateEntities) and the poll thread (everything
	// else) both touch.
	mu             sync.Mutex
	egoSphere      *EgoSphere
	connectedPeers []string
}

// NewNode constructs a MeshNode: validates the transport, then installs
// the single receive handler and the two periodic timers (peer-update
// broadcast, entity expiry sweep) the node needs to run. Any
// installation failure is a fatal construction error.
func NewNode(cfg config.Config, self NodeInfo, tr transport.Transport, oracle convexhull.Oracle, handler EntityUpdateHandler, sink logsink.Sink) (*MeshNode, error) {
	if tr == nil {
		return nil, errors.WithStack(codes.NoTransport)
	}
	if sink == nil {
		sink = logsink.Discard{}
	}
	if self.GroupMask == 0 {
		self.GroupMask = cfg.GroupMask
	}
	if self.PowerRadius == nil && cfg.PowerRadius != 0 {
		pr := cfg.PowerRadius
		self.PowerRadius = &pr
	}

	pt, err := NewPeerTracker(self, cfg.TrackingDuration, oracle, sink)
	if err != nil {
		return nil, err
	}

	n := &MeshNode{
		transport:   tr,
		sink:        sink,
		peerTracker: pt,
		timeSync:    timesync.New(nil),
		cfg:         cfg,
		egoSphere:   NewEgoSphere(cfg.TimestampLookupSize, handler, sink),
	}

	if err := tr.AddReceiver("", n.receiveMessageHandler); err != nil {
		return nil, errors.Wrap(err, codes.AddReceiverFail.Label)
	}
	if _, err := tr.AddTimer(cfg.PeerUpdateInterval, n.sendPeerUpdates); err != nil {
		return nil, errors.Wrap(err, codes.AddTimerFail.Label)
	}
	if _, err := tr.AddTimer(cfg.EntityExpiryInterval, n.expireTick); err != nil {
		return nil, errors.Wrap(err, codes.AddTimerFail.Label)
	}

	sink.Emit(codes.Initialized, self.Address)
	return n, nil
}

// Self returns the node's current NodeInfo.
func (n *MeshNode) Self() NodeInfo {
	return n.peerTracker.Self()
}

// Latch pins a bootstrap or well-known address into the peer
// selection, the usual way a node joins a mesh with no existing peers.
func (n *MeshNode) Latch(address string, duration uint32) error {
	return n.peerTracker.Latch(address, duration)
}

// Poll drives the node's transport for up to timeout, dispatching any
// due timers and queued inbound frames. It runs synchronously on the
// caller's goroutine; the node has no internal goroutine of its own.
func (n *MeshNode) Poll(timeout time.Duration) error {
	return n.transport.Poll(timeout)
}

// OffsetRelativeExpiry adds now to every entity's Expiry, letting
// callers express "expires N ms from now" as
// Entity{Expiry: time.Unix(0, int64(N*time.Millisecond))} without knowing the mesh
// clock. Optional: callers that already compute absolute mesh-time
// expiries can skip it and pass entities straight to UpdateEntities.
func OffsetRelativeExpiry(entities []Entity, now time.Time) []Entity {
	out := make([]Entity, len(entities))
	for i, e := range entities {
		e.Expiry = now.Add(e.Expiry.Sub(time.Unix(0, 0)))
		out[i] = e
	}
	return out
}

// UpdateEntities wraps locally originated entities into a synthetic
// "received from self" message and pushes it through the receive path,
// splitting into batches that stay under cfg.EntityUpdatesSize so each
// outgoing datagram fits. It returns the serialized buffers of every
// message actually forwarded. Safe to call from any goroutine.
func (n *MeshNode) UpdateEntities(entities []Entity) ([][]byte, error) {
	batches := batchEntities(entities, n.cfg.EntityUpdatesSize, n.sink)

	var buffers [][]byte
	for _, batch := range batches {
		msg := Message{
			Timestamp: n.timeSync.Now(),
			Hops:      0,
			Source:    n.Self(),
			Entities:  batch,
		}
		if buf, ok := n.forwardEntityUpdates(msg); ok {
			buffers = append(buffers, buf)
		}
	}
	return buffers, nil
}

// batchEntities splits entities into groups whose estimated serialized
// size stays at or below maxBytes (default ~7000 bytes, config.go). An
// entity that alone exceeds maxBytes is still sent, alone, with a
// warning.
func batchEntities(entities []Entity, maxBytes int, sink logsink.Sink) [][]Entity {
	if maxBytes <= 0 {
		return [][]Entity{entities}
	}

	var batches [][]Entity
	var current []Entity
	currentSize := 0
	for _, e := range entities {
		size := estimateEntitySize(e)
		if size > maxBytes {
			sink.Emit(codes.BatchTooLarge, e.Name)
		}
		if len(current) > 0 && currentSize+size > maxBytes {
			batches = append(batches, current)
			current = nil
			currentSize = 0
		}
		current = append(current, e)
		currentSize += size
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// estimateEntitySize marshals e alone through the wire codec to get a
// conservative per-entity byte count (it pays the fixed Message
// envelope once per entity, which only ever over-estimates).
func estimateEntitySize(e Entity) int {
	w := wire.Message{Entities: []wire.Entity{e.toWire()}}
	buf, err := w.Marshal()
	if err != nil {
		return 0
	}
	return len(buf)
}

// forwardEntityUpdates runs msg through the ego sphere under the
// entities mutex and, if anything survived to the forward set,
// serializes and transmits a new Message one hop further along. It
// disconnects the message's source for the duration of the send to
// avoid a trivial back-echo, reconnecting only if that address was
// actually connected — the documented caveat is that a transport whose
// disconnect/connect are not exact inverses will leak a connection
// here.
func (n *MeshNode) forwardEntityUpdates(msg Message) ([]byte, bool) {
	n.mu.Lock()
	connected := append([]string(nil), n.connectedPeers...)
	forwardSet := n.egoSphere.ReceiveEntityUpdates(msg, n.peerTracker, connected, n.timeSync.Now())
	n.mu.Unlock()

	if n.cfg.Spectator || len(forwardSet) == 0 {
		return nil, false
	}

	out := Message{
		Timestamp: n.timeSync.Now(),
		Hops:      msg.Hops + 1,
		Source:    n.Self(),
		Entities:  forwardSet,
	}
	buf, err := out.Marshal()
	if err != nil {
		return nil, false
	}

	wasConnected, _ := n.transport.Disconnect(msg.Source.Address)
	_ = n.transport.Transmit("", buf)
	if wasConnected {
		_, _ = n.transport.Connect(msg.Source.Address)
	}
	n.sink.Emit(codes.EntitiesForwarded, len(forwardSet))
	return buf, true
}

// sendPeerUpdates is the peer-update-interval timer callback: recompute
// the neighbor selection, advertise it, and bring the transport's
// connection set in line with the new recipient list.
func (n *MeshNode) sendPeerUpdates() {
	selected, recipients := n.peerTracker.UpdatePeerSelections()

	peers := selected
	if n.cfg.Spectator {
		peers = make([]NodeInfo, len(selected))
		for i, p := range selected {
			peers[i] = NodeInfo{Address: p.Address}
		}
	}

	msg := Message{
		Timestamp: n.timeSync.Now(),
		Hops:      1,
		Source:    n.Self(),
		Peers:     peers,
	}
	buf, err := msg.Marshal()
	if err != nil {
		return
	}

	n.mu.Lock()
	old := n.connectedPeers
	n.connectedPeers = recipients
	n.mu.Unlock()

	oldSet := toAddrSet(old)
	newSet := toAddrSet(recipients)
	for addr := range oldSet {
		if _, stillWanted := newSet[addr]; !stillWanted {
			_, _ = n.transport.Disconnect(addr)
		}
	}
	for addr := range newSet {
		if _, alreadyHad := oldSet[addr]; !alreadyHad {
			_, _ = n.transport.Connect(addr)
		}
	}

	_ = n.transport.Transmit("", buf)
	n.sink.Emit(codes.PeerUpdatesSent, len(recipients))
}

// expireTick is the entity-expiry-interval timer callback: sweep the
// ego sphere under the entities mutex.
func (n *MeshNode) expireTick() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.egoSphere.Expire(n.timeSync.Now(), n.Self())
}

// receiveMessageHandler is the transport's single registered receiver:
// verify, feed the peer tracker and time sync, and forward any
// surviving entities.
func (n *MeshNode) receiveMessageHandler(buf []byte) {
	wireMsg, err := wire.Unmarshal(buf)
	if err != nil {
		n.sink.Emit(codes.MessageVerifyFail, err)
		return
	}
	msg := messageFromWire(*wireMsg)

	code := n.peerTracker.Update(msg.Source, true)

	if code == codes.Success && msg.Hops == 1 && msg.Timestamp.UnixNano() > 0 {
		weight := 1.0 / (1.0 + float64(len(n.connectedPeersSnapshot())))
		n.timeSync.Sync(msg.Timestamp, weight)
		n.sink.Emit(codes.SourceUpdateReceived, msg.Source.Address)
	}

	informational := code == codes.Success || code == codes.PeerIsNull ||
		code == codes.PeerAddressMissing || code == codes.PeerCoordsMissing
	if informational {
		n.peerTracker.ReceivePeerUpdates(msg)
	}

	shouldForward := informational || code == codes.SourceSequenceStale
	if shouldForward && len(msg.Entities) > 0 {
		n.forwardEntityUpdates(msg)
	}
}

func (n *MeshNode) connectedPeersSnapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.connectedPeers...)
}

func toAddrSet(addrs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		set[a] = struct{}{}
	}
	return set
}
