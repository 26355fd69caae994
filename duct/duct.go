// Package duct implements the convergence-layer adapters (§4.D):
// Basic (fire-and-forget), LTP/MBLTP (deferred-ack session state
// machines, optionally duplicated across several frequency bands), and
// ParallelLTP (independent LTP engines raced against each other, with
// single-delivery dedup on the receiving side).
package duct

import (
	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/kernel"
)

// Parent is the DTN node a duct is attached to: where an induct hands
// off a reassembled bundle, and where a failed send is returned for
// re-routing (§4.D, §4.G).
type Parent interface {
	Forward(b *bundle.Bundle)
	Limbo(b *bundle.Bundle, excludeCID int64)
}

// ContactSource reports which contact id a neighbor is currently
// reached through, so the fail manager can exclude it from the next
// routing attempt — an explicit interface standing in for
// DtnAbstractDuct.fail_manager's parent.queues[neighbor].current_cid
// field dig.
type ContactSource interface {
	CurrentCID(neighbor string) int64
}

// Duct is what the neighbor manager and node hold a convergence-layer
// adapter by, regardless of variant.
type Duct interface {
	Run(k *kernel.Kernel)
	TotalDatarate(dest string) float64
}

// baseDuct holds the queues and failure/success plumbing shared by
// every duct variant (§4.D), grounded in DtnAbstractDuct. T is the
// wire unit this duct's in_queue carries: *bundle.Bundle for Basic,
// ParallelLTP, and the LTP/MBLTP outduct (which aggregates whole
// bundles into a block); *bundle.Segment for the LTP/MBLTP induct
// (which reassembles a block from individual segments).
type baseDuct[T connection.Message] struct {
	k        *kernel.Kernel
	parent   Parent
	contacts ContactSource
	neighbor string
	alive    bool

	inQueue      *kernel.Queue[T]
	toLimbo      *kernel.Queue[*bundle.Bundle]
	successQueue *kernel.Queue[*bundle.Bundle]

	// onSuccess/failHook let ParallelLTP intercept a wrapped engine's
	// outcome instead of the default behavior (drain / hand to
	// Parent.Limbo) — the Go rendering of DtnAbstractDuctLTP's
	// success_manager/fail_manager reaching into a parent that "has a
	// success_queue" only when nested under a ParallelLTP duct.
	onSuccess func(*bundle.Bundle)
	failHook  func(b *bundle.Bundle, excludeCID int64)
}

func newBaseDuct[T connection.Message](k *kernel.Kernel, parent Parent, contacts ContactSource, neighbor string) baseDuct[T] {
	return baseDuct[T]{
		k: k, parent: parent, contacts: contacts, neighbor: neighbor, alive: true,
		inQueue:      kernel.NewQueue[T](k, 0),
		toLimbo:      kernel.NewQueue[*bundle.Bundle](k, 0),
		successQueue: kernel.NewQueue[*bundle.Bundle](k, 0),
	}
}

// Send is the duct's single non-blocking entry point
// (DtnAbstractDuct.send/do_send): called both by the upper layer
// handing an outduct a bundle to transmit, and by the connection layer
// delivering a forward-direction message to an induct. A msg that is
// not a T is silently dropped.
func (d *baseDuct[T]) Send(msg connection.Message) {
	if item, ok := msg.(T); ok {
		d.inQueue.Put(item, nil)
	}
}

// Ack is the backwards-communication entry point a connection invokes
// for ack-direction delivery (DtnAbstractDuct.do_ack). Only LTPOutduct
// gives this a real implementation (to receive Report Segments); every
// other duct leaves it a no-op rather than the source's hard raise, so
// a stray ack during teardown never aborts a long-running scenario.
func (d *baseDuct[T]) Ack(connection.Message) {}

// Stop marks the duct no longer alive; its manager loops exit the next
// time they would otherwise re-arm.
func (d *baseDuct[T]) Stop() { d.alive = false }

func (d *baseDuct[T]) runFailManager() {
	if !d.alive {
		return
	}
	d.toLimbo.Get(func(b *bundle.Bundle) {
		cid := int64(-1)
		if d.contacts != nil {
			cid = d.contacts.CurrentCID(d.neighbor)
		}
		if d.failHook != nil {
			d.failHook(b, cid)
		} else {
			d.parent.Limbo(b, cid)
		}
		d.runFailManager()
	})
}

func (d *baseDuct[T]) runSuccessManager() {
	if !d.alive {
		return
	}
	d.successQueue.Get(func(b *bundle.Bundle) {
		if d.onSuccess != nil {
			d.onSuccess(b)
		}
		d.runSuccessManager()
	})
}
