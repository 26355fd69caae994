// Package neighbor implements the per-destination-neighbor manager
// (§4.E): an overbookable multi-priority queue feeding a single
// convergence-layer duct, gated open and closed by the contact plan,
// with transmit-overdue fragmentation and bulk-preemption re-routing.
package neighbor

import (
	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/kernel"
)

// Record is one routing decision queued for transmission to a
// particular neighbor (§4.E): which bundle, at what priority, through
// which contact, and the overall route's validity window. Grounded in
// the source's rt_record (a bundle/contact/route triple handed down
// from the router).
type Record struct {
	Bundle     *bundle.Bundle
	Priority   int
	ContactCID int64
	RouteTEnd  int64 // route['tend']: when the whole multi-hop route stops being valid
}

// overbookableQueue is the admission-controlled priority queue backing
// one neighbor manager (§4.E "overbook admission"), grounded in
// DtnOverbookeableQueue/DtnLockeablePriorityQueue. Unlike the source,
// admission never suspends: Go's kernel.PriorityQueue has no notion of
// a numeric item-count capacity here, only the logical bit-budget this
// type tracks itself, so Put and makeRoom run to completion
// synchronously within the put-lock's critical section.
type overbookableQueue struct {
	k  *kernel.Kernel
	pq *kernel.PriorityQueue[*Record]

	open      bool // a contact is currently driving this queue
	capacity  float64
	dataRate  float64
	nextClose int64

	backlog float64
}

func newOverbookableQueue(k *kernel.Kernel) *overbookableQueue {
	pq := kernel.NewPriorityQueue[*Record](k, 0)
	pq.NewLane(bundle.PriorityCritical)
	pq.NewLane(bundle.PriorityBulk)
	return &overbookableQueue{k: k, pq: pq}
}

// Open starts a contact window: sets the capacity/rate/close-time
// triple the capacity property reads (DtnCgrNeighborManager
// .connection_monitor's per-contact field assignment).
func (q *overbookableQueue) Open(capacity, dataRate float64, nextClose int64) {
	q.open = true
	q.capacity = capacity
	q.dataRate = dataRate
	q.nextClose = nextClose
}

// Close ends the contact window; the capacity property reports
// unavailable until Open is called again.
func (q *overbookableQueue) Close() { q.open = false }

// Capacity reports the bits available for admission or transmission
// right now: the lesser of the remaining bit-budget and what the link
// rate can still carry before the window closes
// (DtnOverbookeableQueue.capacity property). ok is false if no contact
// is currently open.
func (q *overbookableQueue) Capacity() (bits float64, ok bool) {
	if !q.open {
		return 0, false
	}
	remaining := q.dataRate * float64(q.nextClose-q.k.Now())
	if remaining < q.capacity {
		return remaining, true
	}
	return q.capacity, true
}

// AddCapacity credits bits back to the budget, used when a bundle is
// rerouted for "transmit overdue" (its reservation is returned) and
// when bulk preemption frees room.
func (q *overbookableQueue) AddCapacity(bits float64) {
	if q.open {
		q.capacity += bits
	}
}

// Put attempts to admit rec. On success it returns (true, nil). A
// non-critical bundle that does not fit is rejected outright
// ((false, nil)): the caller re-routes it. A critical bundle that does
// not fit tries to pre-empt enough bulk-priority records via makeRoom;
// on success those displaced records are returned alongside acceptance
// of rec, on failure rec itself is rejected.
func (q *overbookableQueue) Put(rec *Record) (admitted bool, displaced []*Record) {
	vol := rec.Bundle.DataVol
	avail, _ := q.Capacity()
	if avail > vol {
		q.capacity -= vol
		q.backlog += vol
		q.pq.Put(rec, rec.Priority, false, nil)
		return true, nil
	}
	if !rec.Bundle.Critical {
		return false, nil
	}
	displaced = q.makeRoom(vol)
	if displaced == nil {
		return false, nil
	}
	q.capacity -= vol
	q.backlog += vol
	q.pq.Put(rec, rec.Priority, false, nil)
	return true, displaced
}

// PutRaw pushes rec directly at the front of its lane without running
// admission accounting — used by send's transmit-overdue fragmentation
// path, which re-queues the unsent remainder of an already-admitted
// bundle rather than re-admitting it (§4.E step on fragmentation).
func (q *overbookableQueue) PutRaw(rec *Record) {
	q.backlog += rec.Bundle.DataVol
	q.pq.Put(rec, rec.Priority, true, nil)
}

// Get drains the highest-priority resident record.
func (q *overbookableQueue) Get(done func(*Record)) {
	q.pq.Get(func(rec *Record) {
		q.backlog -= rec.Bundle.DataVol
		done(rec)
	})
}

// makeRoom pops bulk-priority records from the front until their
// combined volume plus the current free capacity covers need, or the
// bulk lane is exhausted. On failure every popped record is restored
// in its original order (kernel.PriorityQueue exposes no peek, so this
// pops speculatively and rolls back rather than the source's
// peek-then-pop-exact-count two-phase approach). On success, the
// freed capacity (their combined volume) is credited back so Put's
// subsequent deduction for rec lands correctly.
func (q *overbookableQueue) makeRoom(need float64) []*Record {
	var popped []*Record
	var room float64
	for {
		rec, ok := q.pq.PopLane(bundle.PriorityBulk)
		if !ok {
			break
		}
		popped = append(popped, rec)
		room += rec.Bundle.DataVol
		q.backlog -= rec.Bundle.DataVol
		if room >= need {
			break
		}
	}
	avail, _ := q.Capacity()
	if need > room+avail {
		for i := len(popped) - 1; i >= 0; i-- {
			q.pq.Put(popped[i], bundle.PriorityBulk, true, nil)
			q.backlog += popped[i].Bundle.DataVol
		}
		return nil
	}
	q.AddCapacity(room)
	return popped
}
