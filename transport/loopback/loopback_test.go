package loopback

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestConnectReportsPriorState(t *testing.T) {
	network := NewNetwork()
	tr := New(network, "a")
	defer tr.Close()

	was, err := tr.Connect("b")
	if err != nil || was {
		t.Fatalf("first connect: was=%v err=%v, want false, nil", was, err)
	}
	was, err = tr.Connect("b")
	if err != nil || !was {
		t.Fatalf("second connect: was=%v err=%v, want true, nil", was, err)
	}
}

func TestDisconnectReportsPriorState(t *testing.T) {
	network := NewNetwork()
	tr := New(network, "a")
	defer tr.Close()

	was, _ := tr.Disconnect("b")
	if was {
		t.Error("disconnecting a never-connected address should report false")
	}
	tr.Connect("b")
	was, _ = tr.Disconnect("b")
	if !was {
		t.Error("disconnecting a connected address should report true")
	}
}

func TestTransmitDeliversOnlyToConnectedTargets(t *testing.T) {
	network := NewNetwork()
	a := New(network, "a")
	b := New(network, "b")
	c := New(network, "c")
	defer a.Close()
	defer b.Close()
	defer c.Close()

	var gotB, gotC bool
	b.AddReceiver("", func(buf []byte) { gotB = true })
	c.AddReceiver("", func(buf []byte) { gotC = true })

	a.Connect("b")
	a.Transmit("", []byte("hello"))

	if err := b.Poll(100 * time.Millisecond); err != nil {
		t.Fatalf("b.Poll: %v", err)
	}
	c.Poll(0)

	if !gotB {
		t.Error("b should have received the frame")
	}
	if gotC {
		t.Error("c should not have received the frame (never connected)")
	}
}

func TestAddReceiverRejectsDuplicateGroup(t *testing.T) {
	network := NewNetwork()
	tr := New(network, "a")
	defer tr.Close()

	if err := tr.AddReceiver("", func([]byte) {}); err != nil {
		t.Fatalf("first AddReceiver: %v", err)
	}
	if err := tr.AddReceiver("", func([]byte) {}); err == nil {
		t.Error("expected error registering a second receiver for the same group")
	}
}

func TestTimerFiresOnPoll(t *testing.T) {
	network := NewNetwork()
	tr := New(network, "a")
	defer tr.Close()

	fired := make(chan struct{}, 1)
	if _, err := tr.AddTimer(1*time.Millisecond, func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("AddTimer: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := tr.Poll(0); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	select {
	case <-fired:
	default:
		t.Error("expected timer to have fired by the time Poll returned")
	}
}

func TestPollReturnsErrorAfterClose(t *testing.T) {
	network := NewNetwork()
	tr := New(network, "a")
	tr.Close()

	if err := tr.Poll(0); err == nil {
		t.Error("expected error polling a closed transport")
	}
	if _, err := tr.Connect("b"); err == nil {
		t.Error("expected error connecting from a closed transport")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	network := NewNetwork()
	tr := New(network, "a")
	tr.Close()
	tr.Close() // must not panic on a double close
}
