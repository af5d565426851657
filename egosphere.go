package spatialmesh

import (
	"time"

	"github.com/relaymesh/spatialmesh/codes"
	"github.com/relaymesh/spatialmesh/logsink"
)

// EgoSphere is a node's locally replicated view of entities shared
// across the mesh. All three of its operations are meant to be
// serialized by an external mutex held by the mesh node — EgoSphere
// itself holds none.
type EgoSphere struct {
	entities map[string]*EntityUpdate
	seen     *seenSet
	handler  EntityUpdateHandler
	sink     logsink.Sink
}

// NewEgoSphere constructs an EgoSphere. A zero timestampLookupSize
// disables dedup-set bounding (never trims). A nil handler allows
// every update through; the callback is optional policy, not a
// required collaborator.
func NewEgoSphere(timestampLookupSize int, handler EntityUpdateHandler, sink logsink.Sink) *EgoSphere {
	if sink == nil {
		sink = logsink.Discard{}
	}
	return &EgoSphere{
		entities: make(map[string]*EntityUpdate),
		seen:     newSeenSet(timestampLookupSize),
		handler:  handler,
		sink:     sink,
	}
}

// Entities returns a snapshot copy of the currently stored entities,
// the ego sphere's read accessor.
func (es *EgoSphere) Entities() map[string]EntityUpdate {
	out := make(map[string]EntityUpdate, len(es.entities))
	for name, rec := range es.entities {
		out[name] = *rec
	}
	return out
}

// ReceiveEntityUpdates runs the seven-step receive pipeline (pre-filter,
// filter selection, filter evaluation, dedup commit, expiry/range
// re-check, handler gate, forward decision) over every entity in msg,
// using pt and connectedPeers to resolve NEAREST-filter ownership, and
// returns the forward set: the canonical entities downstream peers
// should learn about.
func (es *EgoSphere) ReceiveEntityUpdates(msg Message, pt *PeerTracker, connectedPeers []string, now time.Time) []Entity {
	fromSelf := msg.Source.Address == pt.Self().Address

	var forward []Entity
	for _, e := range msg.Entities {
		rec, ok := es.receiveOne(e, msg, fromSelf, pt, connectedPeers, now)
		if !ok {
			continue
		}
		if rec != nil {
			forward = append(forward, rec.Entity)
		}
	}
	return forward
}

// receiveOne applies the pipeline to a single entity. A nil, true
// result means the entity was handled (e.g. expired-on-arrival or
// hop-limited) but produces nothing to forward; a non-nil result is
// forwarded by the caller: either the installed record, or the entity
// whose existing local record an expiry/range check just removed.
func (es *EgoSphere) receiveOne(e Entity, msg Message, fromSelf bool, pt *PeerTracker, connectedPeers []string, now time.Time) (*EntityUpdate, bool) {
	// Step 1: pre-filters.
	if e.Name == "" {
		es.sink.Emit(codes.EntityNameMissing, e)
		return nil, false
	}
	needsCoords := e.Range > 0 || e.Filter == FilterNearest
	if needsCoords && len(e.Coordinates) == 0 {
		es.sink.Emit(codes.EntityCoordsMissing, e)
		return nil, false
	}
	key := entityTimestampKey{name: e.Name, timestamp: msg.Timestamp}
	if es.seen.contains(key) {
		es.sink.Emit(codes.EntityAlreadyReceived, e)
		return nil, false
	}

	// Step 2: filter selection.
	existing := es.entities[e.Name]
	filter := e.Filter
	switch {
	case fromSelf:
		filter = FilterAll
	case existing != nil:
		filter = existing.Entity.Filter
	}

	// Step 3: filter evaluation.
	if filter == FilterNearest {
		if msg.Source.Address == "" {
			es.sink.Emit(codes.MessageSourceInvalid, e)
			return nil, false
		}
		nearest, _ := pt.NearestPeer(e.Coordinates, connectedPeers)
		unknown := existing == nil
		if nearest.Address != msg.Source.Address && !(unknown && nearest.Address == pt.Self().Address) {
			es.sink.Emit(codes.EntityNearestFiltered, e)
			return nil, false
		}
	}

	// Step 4: dedup commit.
	if es.seen.insert(key) {
		es.sink.Emit(codes.EntityTimestampsTrimmed, es.seen.len())
	}

	// Step 5: expiry / range re-check. A removed local record is
	// forwarded so downstream peers learn of it; an entity that was never
	// stored here produces nothing to forward.
	if !e.Expiry.After(now) {
		delete(es.entities, e.Name)
		es.sink.Emit(codes.EntityExpired, e)
		if existing == nil {
			return nil, true
		}
		return &EntityUpdate{Entity: e}, true
	}
	if e.Range > 0 && distanceSqr(e.Coordinates, pt.Self().Coordinates) > float64(e.Range)*float64(e.Range) {
		delete(es.entities, e.Name)
		es.sink.Emit(codes.EntityRangeExceeded, e)
		if existing == nil {
			return nil, true
		}
		return &EntityUpdate{Entity: e}, true
	}

	// Step 6: handler gate.
	newRec := &EntityUpdate{Entity: e, ReceiveTimestamp: now, SourceTimestamp: msg.Timestamp, Hops: msg.Hops}
	if es.handler != nil && !es.handler(newRec, existing, msg.Source) {
		es.sink.Emit(codes.EntityVetoed, e)
		return nil, false
	}
	created := existing == nil
	es.entities[e.Name] = newRec
	if created {
		es.sink.Emit(codes.EntityCreated, e)
	} else {
		es.sink.Emit(codes.EntityUpdated, e)
	}

	// Step 7: forward decision.
	if !fromSelf && e.HopLimit > 0 && msg.Hops >= e.HopLimit {
		return nil, true
	}
	return newRec, true
}

// Delete removes an entity by name, invoking the handler with
// (nil, old, source) and reporting whether anything was removed.
func (es *EgoSphere) Delete(name string, source NodeInfo) bool {
	existing, ok := es.entities[name]
	if !ok {
		return false
	}
	delete(es.entities, name)
	if es.handler != nil {
		es.handler(nil, existing, source)
	}
	es.sink.Emit(codes.EntityDeleted, name)
	return true
}

// Expire sweeps every entity whose expiry has elapsed at currentTime,
// invoking the handler for each. Returns the count removed.
func (es *EgoSphere) Expire(currentTime time.Time, source NodeInfo) int {
	removed := 0
	for name, rec := range es.entities {
		if !rec.Entity.Expiry.After(currentTime) {
			delete(es.entities, name)
			if es.handler != nil {
				es.handler(nil, rec, source)
			}
			es.sink.Emit(codes.EntityExpired, name)
			removed++
		}
	}
	return removed
}
