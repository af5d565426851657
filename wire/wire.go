// Package wire implements the binary frame exchanged between mesh
// nodes: a Message{timestamp, hops, source, peers?, entities?} built
// from NodeInfo and Entity records. It is modeled directly on
// zre/msg's hand-rolled codec (bytes.Buffer + encoding/binary,
// length-prefixed strings, a signature+version header) rather than on
// any general-purpose serialization library.
//
// Every Unmarshal walks the buffer through a bounds-checked reader
// (see reader.go) that refuses to read past the end of the frame
// instead of zero-filling on underflow, so a truncated or malformed
// frame is rejected outright rather than silently yielding a partially
// zeroed message, more strictly than zre/msg's own
// binary.Read-and-ignore-the-error style does.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sort"
)

const (
	// Signature identifies a frame produced by this codec, the same
	// role zre/msg.Signature plays.
	Signature uint16 = 0x5350 ^ 0x1107
	version   byte   = 1

	// stringMax bounds a short (1-byte-length-prefixed) string, mirroring
	// zre/msg's StringMax.
	stringMax = 255
)

// Filter selects how an Entity propagates through the mesh.
type Filter byte

const (
	FilterAll     Filter = 0
	FilterNearest Filter = 1
)

func (f Filter) String() string {
	if f == FilterNearest {
		return "NEAREST"
	}
	return "ALL"
}

// NodeInfo is the wire shape of a participant's identity and spatial
// state: name, primary-key address, coordinate vector, optional power
// radius, group mask, sequence counter, and optional origination
// timestamp.
type NodeInfo struct {
	Name        string
	Address     string
	Coordinates []float32
	PowerRadius *float32
	GroupMask   uint32
	Sequence    uint32
	Timestamp   *int64
}

// Entity is the wire shape of a named, optionally spatial record
// shared across the mesh (the payload half of an EntityUpdate —
// receive_timestamp/source_timestamp/hops are ego-sphere bookkeeping,
// not wire fields).
type Entity struct {
	Name        string
	Coordinates []float32
	Expiry      int64
	Range       float32
	HopLimit    uint32
	Filter      Filter
	Payload     []byte
}

// Message is the wire frame root: a timestamp, hop count, source
// NodeInfo, and optional peer/entity payloads.
type Message struct {
	Timestamp int64
	Hops      uint32
	Source    NodeInfo
	Peers     []NodeInfo
	Entities  []Entity // kept sorted by Name; see SortEntities
}

// SortEntities orders msg.Entities by name so EntityByName can do an
// O(log n) lookup.
func (m *Message) SortEntities() {
	sort.Slice(m.Entities, func(i, j int) bool { return m.Entities[i].Name < m.Entities[j].Name })
}

// EntityByName looks up an entity by name in a Message whose Entities
// are sorted (SortEntities, or freshly Unmarshal'd — Unmarshal always
// produces sorted output since Marshal always sorts before writing).
func (m *Message) EntityByName(name string) (Entity, bool) {
	entities := m.Entities
	i := sort.Search(len(entities), func(i int) bool { return entities[i].Name >= name })
	if i < len(entities) && entities[i].Name == name {
		return entities[i], true
	}
	return Entity{}, false
}

// Marshal encodes a Message into its wire form.
func (m *Message) Marshal() ([]byte, error) {
	m.SortEntities()
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, Signature)
	binary.Write(buf, binary.BigEndian, version)
	binary.Write(buf, binary.BigEndian, m.Timestamp)
	binary.Write(buf, binary.BigEndian, m.Hops)
	putNodeInfo(buf, &m.Source)

	binary.Write(buf, binary.BigEndian, uint32(len(m.Peers)))
	for i := range m.Peers {
		putNodeInfo(buf, &m.Peers[i])
	}

	binary.Write(buf, binary.BigEndian, uint32(len(m.Entities)))
	for i := range m.Entities {
		putEntity(buf, &m.Entities[i])
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes a Message from its wire form, acting as the
// frame's verifier: every offset is walked and every vector length
// bounds-checked against the remaining buffer before any field is
// returned to the caller.
func Unmarshal(buf []byte) (*Message, error) {
	r := newReader(buf)

	sig, err := r.uint16()
	if err != nil {
		return nil, err
	}
	if sig != Signature {
		return nil, errors.New("wire: invalid signature")
	}
	ver, err := r.uint8()
	if err != nil {
		return nil, err
	}
	if ver != version {
		return nil, errors.New("wire: unsupported version")
	}

	m := &Message{}
	if m.Timestamp, err = r.int64(); err != nil {
		return nil, err
	}
	if m.Hops, err = r.uint32(); err != nil {
		return nil, err
	}
	if m.Source, err = getNodeInfo(r); err != nil {
		return nil, err
	}

	peerCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if peerCount > 0 {
		m.Peers = make([]NodeInfo, peerCount)
		for i := range m.Peers {
			if m.Peers[i], err = getNodeInfo(r); err != nil {
				return nil, err
			}
		}
	}

	entityCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if entityCount > 0 {
		m.Entities = make([]Entity, entityCount)
		for i := range m.Entities {
			if m.Entities[i], err = getEntity(r); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func putNodeInfo(buf *bytes.Buffer, n *NodeInfo) {
	putString(buf, n.Name)
	putString(buf, n.Address)
	putFloat32s(buf, n.Coordinates)
	putOptionalFloat32(buf, n.PowerRadius)
	binary.Write(buf, binary.BigEndian, n.GroupMask)
	binary.Write(buf, binary.BigEndian, n.Sequence)
	putOptionalInt64(buf, n.Timestamp)
}

func getNodeInfo(r *reader) (NodeInfo, error) {
	var n NodeInfo
	var err error
	if n.Name, err = r.string(); err != nil {
		return n, err
	}
	if n.Address, err = r.string(); err != nil {
		return n, err
	}
	if n.Coordinates, err = r.float32s(); err != nil {
		return n, err
	}
	if n.PowerRadius, err = r.optionalFloat32(); err != nil {
		return n, err
	}
	if n.GroupMask, err = r.uint32(); err != nil {
		return n, err
	}
	if n.Sequence, err = r.uint32(); err != nil {
		return n, err
	}
	if n.Timestamp, err = r.optionalInt64(); err != nil {
		return n, err
	}
	return n, nil
}

func putEntity(buf *bytes.Buffer, e *Entity) {
	putString(buf, e.Name)
	putFloat32s(buf, e.Coordinates)
	binary.Write(buf, binary.BigEndian, e.Expiry)
	binary.Write(buf, binary.BigEndian, e.Range)
	binary.Write(buf, binary.BigEndian, e.HopLimit)
	binary.Write(buf, binary.BigEndian, byte(e.Filter))
	putBytes(buf, e.Payload)
}

func getEntity(r *reader) (Entity, error) {
	var e Entity
	var err error
	if e.Name, err = r.string(); err != nil {
		return e, err
	}
	if e.Coordinates, err = r.float32s(); err != nil {
		return e, err
	}
	if e.Expiry, err = r.int64(); err != nil {
		return e, err
	}
	if e.Range, err = r.float32(); err != nil {
		return e, err
	}
	if e.HopLimit, err = r.uint32(); err != nil {
		return e, err
	}
	filterByte, err := r.uint8()
	if err != nil {
		return e, err
	}
	e.Filter = Filter(filterByte)
	if e.Payload, err = r.bytes(); err != nil {
		return e, err
	}
	return e, nil
}
