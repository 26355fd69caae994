package radio

import (
	"math/rand"
	"testing"

	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/kernel"
)

func TestVariableRadio_WaitsThroughZeroRateInterval(t *testing.T) {
	// GIVEN a variable radio whose rate to B is 0 until t=20, then 10 bits/sec
	k := kernel.New()
	conn := connection.NewStatic("A", "B", 0, rand.New(rand.NewSource(1)), nil)
	conns := map[string]connection.Connection{"B": conn}
	r := NewVariableRadio(k, conns, 0, 0)
	r.SetSeries("B", NewRateSeries([]RateStep{
		{Time: 0, Rate: 0},
		{Time: 20, Rate: 10},
	}))
	r.SetActive(k, "B", true)
	r.Run(k)

	peer := &fakePeer{}
	msg := &fakeMessage{bits: 50}

	// WHEN a 50-bit message is queued at t=0
	r.Put(k, Item{Neighbor: "B", Message: msg, Peer: peer, Direction: connection.DirForward})
	k.Run()

	// THEN transmission starts at t=20 and takes 5 more seconds at 10 bits/sec
	if len(peer.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(peer.sent))
	}
	if k.Now() != 25 {
		t.Fatalf("final clock = %d, want 25", k.Now())
	}
}

func TestVariableRadio_SpansMultipleRateSteps(t *testing.T) {
	// GIVEN rate 10 bits/sec for [0,5) then 20 bits/sec afterward
	k := kernel.New()
	conn := connection.NewStatic("A", "B", 0, rand.New(rand.NewSource(1)), nil)
	conns := map[string]connection.Connection{"B": conn}
	r := NewVariableRadio(k, conns, 0, 0)
	r.SetSeries("B", NewRateSeries([]RateStep{
		{Time: 0, Rate: 10},
		{Time: 5, Rate: 20},
	}))
	r.SetActive(k, "B", true)
	r.Run(k)

	peer := &fakePeer{}
	// 50 bits at 10 bits/sec consumes 50 bits in the first 5 seconds;
	// exactly uses up the first step with nothing left for the second.
	msg := &fakeMessage{bits: 50}
	r.Put(k, Item{Neighbor: "B", Message: msg, Peer: peer, Direction: connection.DirForward})
	k.Run()

	if len(peer.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(peer.sent))
	}
	if k.Now() != 5 {
		t.Fatalf("final clock = %d, want 5", k.Now())
	}
}

func TestVariableRadio_WaitsForInactiveNeighbor(t *testing.T) {
	k := kernel.New()
	conn := connection.NewStatic("A", "B", 0, rand.New(rand.NewSource(1)), nil)
	conns := map[string]connection.Connection{"B": conn}
	r := NewVariableRadio(k, conns, 0, 0)
	r.SetSeries("B", NewRateSeries([]RateStep{{Time: 0, Rate: 10}}))
	r.Run(k)

	peer := &fakePeer{}
	msg := &fakeMessage{bits: 10}
	r.Put(k, Item{Neighbor: "B", Message: msg, Peer: peer, Direction: connection.DirForward})

	k.At(15, func(k *kernel.Kernel) { r.SetActive(k, "B", true) })
	k.Run()

	if len(peer.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(peer.sent))
	}
	if k.Now() != 16 {
		t.Fatalf("final clock = %d, want 16 (activation at 15 + 1s tx)", k.Now())
	}
}
