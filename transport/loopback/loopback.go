// Package loopback is an in-memory transport.Transport used by this
// module's tests in place of a real datagram socket.
// Multiple loopback.Transports share a Network, which plays the role
// gyre's combination of UDP beacon discovery plus ROUTER/DEALER zmq
// sockets plays for real nodes: Transmit delivers a frame directly
// into the inbox of every address the sender currently holds a
// Connect()'d logical connection to.
package loopback

import (
	"errors"
	"sync"
	"time"

	"github.com/relaymesh/spatialmesh/transport"
)

// frame is one datagram in flight, tagged with the group it was sent
// to so AddReceiver can route it.
type frame struct {
	group string
	buf   []byte
}

// Network is the shared medium a set of loopback Transports connect
// through. The zero value is ready to use.
type Network struct {
	mu    sync.Mutex
	peers map[string]*Transport
}

// NewNetwork creates an empty shared medium.
func NewNetwork() *Network {
	return &Network{peers: make(map[string]*Transport)}
}

func (n *Network) register(addr string, t *Transport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers[addr] = t
}

func (n *Network) lookup(addr string) (*Transport, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.peers[addr]
	return t, ok
}

type timerEntry struct {
	id       int
	interval time.Duration
	next     time.Time
	cb       transport.TimerFunc
}

// Transport is one node's endpoint on a Network.
type Transport struct {
	network *Network
	addr    string

	mu          sync.Mutex
	connections map[string]bool
	receivers   map[string]transport.ReceiverFunc
	timers      []*timerEntry
	inbox       chan frame
	closed      bool
}

// New creates a Transport bound to addr on network. addr is the
// logical endpoint other Transports Connect() to in order to receive
// frames from this one.
func New(network *Network, addr string) *Transport {
	t := &Transport{
		network:     network,
		addr:        addr,
		connections: make(map[string]bool),
		receivers:   make(map[string]transport.ReceiverFunc),
		inbox:       make(chan frame, 1024),
	}
	network.register(addr, t)
	return t
}

// Addr returns the endpoint this transport is registered under.
func (t *Transport) Addr() string { return t.addr }

func (t *Transport) Connect(addr string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false, errors.New("loopback: transport closed")
	}
	was := t.connections[addr]
	t.connections[addr] = true
	return was, nil
}

func (t *Transport) Disconnect(addr string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.connections[addr]
	delete(t.connections, addr)
	return was, nil
}

func (t *Transport) Transmit(group string, buf []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errors.New("loopback: transport closed")
	}
	targets := make([]string, 0, len(t.connections))
	for addr := range t.connections {
		targets = append(targets, addr)
	}
	t.mu.Unlock()

	cp := append([]byte(nil), buf...)
	for _, addr := range targets {
		peer, ok := t.network.lookup(addr)
		if !ok {
			continue
		}
		peer.deliver(frame{group: group, buf: cp})
	}
	return nil
}

// deliver enqueues a frame for local dispatch, silently dropping it if
// the inbox is full or the transport has since closed. Locking here
// (rather than at the sender) keeps the closed check and the channel
// send atomic with respect to Close.
func (t *Transport) deliver(f frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.inbox <- f:
	default:
		// Best-effort, fire-and-forget: drop on a full inbox rather
		// than block the sender. The transport offers no delivery
		// guarantee or backpressure.
	}
}

func (t *Transport) AddReceiver(group string, cb transport.ReceiverFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.receivers[group]; exists {
		return errors.New("loopback: receiver already registered for group")
	}
	t.receivers[group] = cb
	return nil
}

func (t *Transport) AddTimer(interval time.Duration, cb transport.TimerFunc) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.timers)
	t.timers = append(t.timers, &timerEntry{
		id:       id,
		interval: interval,
		next:     time.Now().Add(interval),
		cb:       cb,
	})
	return id, nil
}

// Poll runs due timers and drains any frames queued since the last
// call, invoking receiver and timer callbacks synchronously. It blocks
// for up to timeout waiting for the first frame when none is
// immediately available, firing timers as they come due meanwhile;
// timeout < 0 blocks until a frame arrives, timeout == 0 never blocks.
func (t *Transport) Poll(timeout time.Duration) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errors.New("loopback: transport closed")
	}
	t.mu.Unlock()

	// drain dispatches every frame still queued without blocking.
	drain := func() error {
		for {
			select {
			case f, ok := <-t.inbox:
				if !ok {
					return errors.New("loopback: transport closed")
				}
				t.dispatch(f)
			default:
				return nil
			}
		}
	}

	t.fireDueTimers()

	deadline := t.nextDeadline(timeout)
	for {
		select {
		case f, ok := <-t.inbox:
			if !ok {
				return errors.New("loopback: transport closed")
			}
			t.dispatch(f)
			if err := drain(); err != nil {
				return err
			}
			t.fireDueTimers()
			return nil
		default:
		}

		if timeout == 0 {
			return nil
		}

		var wait time.Duration
		if deadline.IsZero() {
			wait = 10 * time.Millisecond
		} else {
			wait = time.Until(deadline)
			if wait <= 0 {
				t.fireDueTimers()
				return nil
			}
			if wait > 10*time.Millisecond {
				wait = 10 * time.Millisecond
			}
		}

		select {
		case f, ok := <-t.inbox:
			if !ok {
				return errors.New("loopback: transport closed")
			}
			t.dispatch(f)
			if err := drain(); err != nil {
				return err
			}
			t.fireDueTimers()
			return nil
		case <-time.After(wait):
			t.fireDueTimers()
			if timeout >= 0 && time.Now().After(deadline) {
				return nil
			}
		}
	}
}

func (t *Transport) nextDeadline(timeout time.Duration) time.Time {
	if timeout < 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

func (t *Transport) dispatch(f frame) {
	t.mu.Lock()
	cb, ok := t.receivers[f.group]
	t.mu.Unlock()
	if ok {
		cb(f.buf)
	}
}

func (t *Transport) fireDueTimers() {
	now := time.Now()
	t.mu.Lock()
	due := make([]transport.TimerFunc, 0)
	for _, tm := range t.timers {
		if !now.Before(tm.next) {
			due = append(due, tm.cb)
			tm.next = now.Add(tm.interval)
		}
	}
	t.mu.Unlock()
	for _, cb := range due {
		cb()
	}
}

// Close tears down the transport: no more frames will be delivered or
// accepted, and Poll returns an error on the next call — the caller's
// way of tearing down a node is to drop it, which releases the
// transport and causes the next poll to surface the error.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.inbox)
	t.mu.Unlock()
}
