package connection

import (
	"math"
	"math/rand"

	"github.com/dtnsim/dtnsim/contactplan"
	"github.com/dtnsim/dtnsim/kernel"
)

// destState is one destination's visibility window within a
// ScheduledBroadcast connection.
type destState struct {
	active    bool
	propDelay int64
	inTransit int // count of in-flight propagations toward this destination
}

// ScheduledBroadcast is one connection instance per origin node,
// tracking the set of currently in-view destinations and their
// per-destination propagation delay and in-transit token count (§4.B:
// "one connection instance per origin; maintains the set of currently
// in-view destinations... additionally tracks per-destination
// in-transit tokens and drops a message if the destination leaves view
// before propagation completes"). The source's contact-plan-derived
// broadcast connection had no reference implementation to ground
// line-by-line; this is built directly from the prose contract.
type ScheduledBroadcast struct {
	orig     string
	contacts map[string][]*contactplan.Contact // per-destination contact list
	dests    map[string]*destState
	rng      *rand.Rand
	lost     LossRecorder
}

// NewScheduledBroadcast returns a broadcast connection rooted at orig,
// with contacts keyed by destination node id.
func NewScheduledBroadcast(orig string, contacts map[string][]*contactplan.Contact, rng *rand.Rand, lost LossRecorder) *ScheduledBroadcast {
	dests := make(map[string]*destState, len(contacts))
	for dest := range contacts {
		dests[dest] = &destState{}
	}
	return &ScheduledBroadcast{orig: orig, contacts: contacts, dests: dests, rng: rng, lost: lost}
}

// Orig returns the origin node id this broadcast connection serves.
func (b *ScheduledBroadcast) Orig() string { return b.orig }

// InView reports whether dest is currently in view.
func (b *ScheduledBroadcast) InView(dest string) bool {
	d, ok := b.dests[dest]
	return ok && d.active
}

// Run schedules the open/close transitions for every destination's
// contact list.
func (b *ScheduledBroadcast) Run(k *kernel.Kernel) {
	for dest, contacts := range b.contacts {
		dest, contacts := dest, contacts
		d := b.dests[dest]
		for _, c := range contacts {
			c := c
			k.At(c.TStart, func(k *kernel.Kernel) {
				d.active = true
				d.propDelay = c.Range
			})
			k.At(c.TEnd, func(k *kernel.Kernel) {
				d.active = false
			})
		}
	}
}

// TransmitTo is the broadcast variant's non-blocking transmit: it
// issues one in-transit token for dest, and if dest leaves view before
// the propagation delay elapses, the message is recorded lost instead
// of delivered (§4.B).
func (b *ScheduledBroadcast) TransmitTo(k *kernel.Kernel, dest string, peer Peer, msg Message, ber float64, dir Direction) {
	d, ok := b.dests[dest]
	if !ok || !d.active {
		if b.lost != nil {
			b.lost.RecordLost(msg)
		}
		return
	}
	delay := d.propDelay
	d.inTransit++
	k.After(delay, func(k *kernel.Kernel) {
		d.inTransit--
		if !d.active {
			if b.lost != nil {
				b.lost.RecordLost(msg)
			}
			return
		}
		msg.AddPropDelay(delay)
		mer := 1 - math.Pow(1-ber, msg.NumBits())
		if mer > 0 {
			msg.SetHasErrors(b.rng.Float64() < mer)
		}
		switch dir {
		case DirForward:
			peer.Send(msg)
		case DirAck:
			peer.Ack(msg)
		}
	})
}
