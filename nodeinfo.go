package spatialmesh

import "github.com/relaymesh/spatialmesh/wire"

// NodeInfo is a participant's identity and spatial state. It is the
// domain-level counterpart of wire.NodeInfo; the two are
// kept distinct the way gyre keeps its own peer/group structs distinct
// from zre/msg's wire Hello/Join/Leave shapes.
type NodeInfo struct {
	Name        string
	Address     string
	Coordinates []float32
	PowerRadius *float32
	GroupMask   uint32
	Sequence    uint32
	Timestamp   *int64
}

func (n NodeInfo) toWire() wire.NodeInfo {
	return wire.NodeInfo{
		Name:        n.Name,
		Address:     n.Address,
		Coordinates: n.Coordinates,
		PowerRadius: n.PowerRadius,
		GroupMask:   n.GroupMask,
		Sequence:    n.Sequence,
		Timestamp:   n.Timestamp,
	}
}

func nodeInfoFromWire(w wire.NodeInfo) NodeInfo {
	return NodeInfo{
		Name:        w.Name,
		Address:     w.Address,
		Coordinates: w.Coordinates,
		PowerRadius: w.PowerRadius,
		GroupMask:   w.GroupMask,
		Sequence:    w.Sequence,
		Timestamp:   w.Timestamp,
	}
}

// powerRadiusBias implements NearestPeer's radial bias term
// sign(power_radius) * power_radius^2, carried over verbatim from
// original_source/include/vsm/peer_tracker.hpp. A nil PowerRadius
// contributes zero bias, matching the original's optional field
// semantics.
func (n NodeInfo) powerRadiusBias() float64 {
	if n.PowerRadius == nil {
		return 0
	}
	r := float64(*n.PowerRadius)
	if r < 0 {
		return -(r * r)
	}
	if r > 0 {
		return r * r
	}
	return 0
}
