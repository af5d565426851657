package spatialmesh

import (
	"time"

	"github.com/relaymesh/spatialmesh/wire"
)

// Message is the domain-level counterpart of wire.Message: the same
// shape, but with NodeInfo/Entity as their domain types and Timestamp
// as a time.Time instead of a raw i64, so the rest of the root package
// never juggles wire nanosecond integers directly.
type Message struct {
	Timestamp time.Time
	Hops      uint32
	Source    NodeInfo
	Peers     []NodeInfo
	Entities  []Entity
}

func (m Message) toWire() wire.Message {
	w := wire.Message{
		Timestamp: m.Timestamp.UnixNano(),
		Hops:      m.Hops,
		Source:    m.Source.toWire(),
	}
	if len(m.Peers) > 0 {
		w.Peers = make([]wire.NodeInfo, len(m.Peers))
		for i, p := range m.Peers {
			w.Peers[i] = p.toWire()
		}
	}
	if len(m.Entities) > 0 {
		w.Entities = make([]wire.Entity, len(m.Entities))
		for i, e := range m.Entities {
			w.Entities[i] = e.toWire()
		}
	}
	return w
}

func messageFromWire(w wire.Message) Message {
	m := Message{
		Timestamp: time.Unix(0, w.Timestamp),
		Hops:      w.Hops,
		Source:    nodeInfoFromWire(w.Source),
	}
	if len(w.Peers) > 0 {
		m.Peers = make([]NodeInfo, len(w.Peers))
		for i, p := range w.Peers {
			m.Peers[i] = nodeInfoFromWire(p)
		}
	}
	if len(w.Entities) > 0 {
		m.Entities = make([]Entity, len(w.Entities))
		for i, e := range w.Entities {
			m.Entities[i] = entityFromWire(e)
		}
	}
	return m
}

// Marshal encodes the message through the wire codec, returning the
// same frame receiveMessageHandler would hand to wire.Unmarshal.
func (m Message) Marshal() ([]byte, error) {
	w := m.toWire()
	return w.Marshal()
}
