// Package connection implements the physical/geometric link layer
// (§4.B): the Static, Scheduled, DistanceGated, and ScheduledBroadcast
// connection variants, each driving its open/close schedule through the
// kernel and exposing a non-blocking Transmit that models propagation
// delay and bit-error-induced corruption.
package connection

import (
	"math"
	"math/rand"

	"github.com/dtnsim/dtnsim/kernel"
)

// Direction selects which entry point of the peer duct a delivered
// message invokes.
type Direction int

const (
	DirForward Direction = iota
	DirAck
)

// Message is the transport-agnostic unit a connection propagates: an
// outduct sends bundles-as-messages for a Basic duct, or LTP segments
// for an LTP-family duct (§4.B: "a connection operates using messages
// instead of bundles... you could propagate LTP segments").
type Message interface {
	NumBits() float64
	AddPropDelay(ticks int64)
	SetHasErrors(bool)
}

// Peer is the receiving side's entry points, implemented by induct
// sessions in the duct package.
type Peer interface {
	Send(msg Message)
	Ack(msg Message)
}

// LossRecorder receives messages dropped because the connection was
// closed at transmit time (§7: "transmission error... message is
// logged as lost; no retry at this layer").
type LossRecorder interface {
	RecordLost(msg Message)
}

// Connection is the common contract every variant below satisfies.
type Connection interface {
	Orig() string
	Dest() string
	IsActive() bool
	// Run starts the connection's own open/close schedule (no-op for a
	// connection that is open from construction, e.g. Static).
	Run(k *kernel.Kernel)
	// Transmit is non-blocking: it returns immediately, spawning an
	// internal propagation continuation scheduled on k.
	Transmit(k *kernel.Kernel, peer Peer, msg Message, ber float64, dir Direction)
}

// transport holds the fields and the Transmit/propagate logic shared by
// every connection variant, grounded in DtnAbstractConnection's
// transmit/do_transmit/propagate methods.
type transport struct {
	orig, dest string
	active     bool
	propDelay  int64
	rng        *rand.Rand
	lost       LossRecorder
}

func newTransport(orig, dest string, rng *rand.Rand, lost LossRecorder) transport {
	return transport{orig: orig, dest: dest, rng: rng, lost: lost}
}

func (t *transport) Orig() string   { return t.orig }
func (t *transport) Dest() string   { return t.dest }
func (t *transport) IsActive() bool { return t.active }

// Run is a no-op by default; variants with their own open/close
// schedule (Scheduled, DistanceGated, ScheduledBroadcast) define their
// own Run method, which shadows this one.
func (t *transport) Run(k *kernel.Kernel) {}

func (t *transport) open(propDelay int64) {
	t.active = true
	t.propDelay = propDelay
}
func (t *transport) close() { t.active = false }

// Transmit is the shared non-blocking entry point: closed connections
// drop the message immediately; otherwise a continuation is scheduled
// that advances the clock by the propagation delay, applies the MER
// stochastic error draw, then delivers to the peer (§4.B steps 1-3).
func (t *transport) Transmit(k *kernel.Kernel, peer Peer, msg Message, ber float64, dir Direction) {
	if !t.active {
		if t.lost != nil {
			t.lost.RecordLost(msg)
		}
		return
	}
	delay := t.propDelay
	k.After(0, func(k *kernel.Kernel) {
		t.propagate(k, msg, delay, func(k *kernel.Kernel) {
			t.deliver(k, peer, msg, ber, dir)
		})
	})
}

// propagate advances simulated time by delay, accumulating it onto the
// message, then invokes next.
func (t *transport) propagate(k *kernel.Kernel, msg Message, delay int64, next func(k *kernel.Kernel)) {
	msg.AddPropDelay(delay)
	k.After(delay, next)
}

// deliver computes the message-error-rate for this transmission,
// stochastically flags has_errors, and calls the peer's Send or Ack
// entry point (§4.B step 2-3).
func (t *transport) deliver(k *kernel.Kernel, peer Peer, msg Message, ber float64, dir Direction) {
	mer := 1 - math.Pow(1-ber, msg.NumBits())
	if mer > 0 {
		msg.SetHasErrors(t.rng.Float64() < mer)
	}
	switch dir {
	case DirForward:
		peer.Send(msg)
	case DirAck:
		peer.Ack(msg)
	}
}
