// Package node implements the DTN node (§4.G): the ingress/limbo
// queues, the forward and limbo managers that drive a bundle through
// TTL/error checks, routing, and dispatch to the right neighbor
// manager, and the endpoint table a bundle is handed to on arrival.
// Grounded in DtnNode.py.
package node

import (
	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/duct"
	"github.com/dtnsim/dtnsim/endpoint"
	"github.com/dtnsim/dtnsim/kernel"
	"github.com/dtnsim/dtnsim/neighbor"
	"github.com/dtnsim/dtnsim/report"
	"github.com/dtnsim/dtnsim/router"
)

// sendable is the subset of a concrete outduct's API this package
// dispatches through: every outduct variant (Basic, LTP, MBLTP,
// ParallelLTP) embeds baseDuct, which gives it a Send entry point, but
// duct.Duct itself only promises Run/TotalDatarate (the surface the
// neighbor and report layers need). Node needs the wider one.
type sendable interface {
	Send(msg connection.Message)
}

// routeFailSink is the duck-typed optional callback neighbor.Manager's
// RouteFailed hook dispatches to (mirrors Python's
// hasattr(router, 'route_failed')): only routers that want to know
// about a failed send implement it. None of the routers in this repo
// currently do; the hook exists so one could without touching Node.
type routeFailSink interface {
	RouteFailed(b *bundle.Bundle, neighbor string, cid int64)
}

// Node owns one DTN node's entire stack above the physical layer: its
// router, its per-neighbor managers/ducts, its endpoint table, and the
// ingress/limbo queues the forward and limbo managers drain.
type Node struct {
	k     *kernel.Kernel
	id    string
	alloc *bundle.IDAllocator

	router   router.Router
	selector Selector

	neighbors map[string]*neighbor.Manager
	outducts  map[string]duct.Duct // keyed by neighbor id
	inducts   []duct.Duct          // kept alive; nothing dispatches through them directly

	// epidemic backs the opportunistic router's pseudo-neighbor
	// (router.OpportunisticNeighbor, §12 supplemented feature): a node
	// running that router stores every routed bundle here instead of
	// in a per-neighbor manager, and epidemic's own handshake decides
	// which configured outduct eventually carries it. nil for every
	// other router kind.
	epidemic *router.EpidemicManager

	endpoints map[int]endpoint.Sink

	ingress *kernel.Queue[*bundle.Bundle]
	limbo   *kernel.Queue[*bundle.Bundle]

	limboWait    int64
	limboInfinte bool

	alive bool
	rep   *report.Report
}

// New returns a Node named id. Call Attach* to wire neighbors,
// routers, and endpoints before Run.
func New(k *kernel.Kernel, id string, alloc *bundle.IDAllocator, r router.Router, sel Selector, limboWait int64) *Node {
	n := &Node{
		k:         k,
		id:        id,
		alloc:     alloc,
		router:    r,
		selector:  sel,
		neighbors: make(map[string]*neighbor.Manager),
		outducts:  make(map[string]duct.Duct),
		endpoints: make(map[int]endpoint.Sink),
		ingress:   kernel.NewQueue[*bundle.Bundle](k, 0),
		limbo:     kernel.NewQueue[*bundle.Bundle](k, 0),
		limboWait: limboWait,
		alive:     true,
	}
	n.limboInfinte = limboWait <= 0
	return n
}

// ID returns this node's identifier, used as Orig/Dest in bundles and
// contacts.
func (n *Node) ID() string { return n.id }

// SetRouter replaces this node's router, for builders that need n
// itself (as a router.BacklogSource) before the router it will carry
// can be constructed.
func (n *Node) SetRouter(r router.Router) { n.router = r }

// SetReport wires the shared Environment-level report so this node's
// lifecycle events (sent/arrived/dropped) are recorded (§6, §8). A nil
// or never-set report silently disables recording, so a unit test can
// build a Node without one.
func (n *Node) SetReport(rep *report.Report) { n.rep = rep }

// Alloc returns the shared id allocator, handed to generators so every
// bundle minted anywhere in the Environment gets a globally unique id.
func (n *Node) Alloc() *bundle.IDAllocator { return n.alloc }

// AttachNeighbor wires a destination neighbor's manager and the
// outduct it feeds (§4.E/§4.G composition).
func (n *Node) AttachNeighbor(neighborID string, mgr *neighbor.Manager, out duct.Duct) {
	n.neighbors[neighborID] = mgr
	n.outducts[neighborID] = out
}

// AttachInduct keeps a reference to an induct this node receives
// through so it can be started by Run; nothing dispatches through it
// directly (inducts call Node.Forward themselves).
func (n *Node) AttachInduct(in duct.Duct) {
	n.inducts = append(n.inducts, in)
}

// AttachOpportunistic wires mgr as this node's epidemic store and
// handshake manager, replacing the per-neighbor manager a normal
// routing record would otherwise be put into whenever the router
// names the pseudo-neighbor router.OpportunisticNeighbor.
func (n *Node) AttachOpportunistic(mgr *router.EpidemicManager) {
	n.epidemic = mgr
}

// EpidemicParent returns an adapter implementing router.EpidemicParent
// against this node, for env to hand to router.NewEpidemicManager.
func (n *Node) EpidemicParent() router.EpidemicParent {
	return epidemicParent{n}
}

// epidemicParent adapts Node to router.EpidemicParent: a handshake-
// resolved delivery goes straight to the real outduct for that
// neighbor (the convergence-layer duct every node still has per
// configured peer, regardless of router kind), bypassing the per-
// neighbor manager's contact-gated queue that opportunistic routing
// has no use for.
type epidemicParent struct{ n *Node }

func (p epidemicParent) ForwardToOutduct(neighborID string, b *bundle.Bundle) {
	now := p.n.k.Now()
	if now-b.CreationTime >= b.TTL {
		p.n.drop(b, bundle.DropReasonTTL, now)
		return
	}
	out, ok := p.n.outducts[neighborID]
	if !ok {
		p.n.drop(b, bundle.DropReasonUnroutable, now)
		return
	}
	if s, ok := out.(sendable); ok {
		s.Send(b)
	}
}

func (p epidemicParent) Drop(b *bundle.Bundle, reason string) {
	p.n.drop(b, reason, p.n.k.Now())
}

// AttachEndpoint registers a sink for endpoint id eid (§4.G step 4: a
// bundle that has arrived is "hand[ed] to endpoint for EID 0 (or the
// bundle's EID)").
func (n *Node) AttachEndpoint(eid int, sink endpoint.Sink) {
	n.endpoints[eid] = sink
}

// IsAlive implements neighbor.Parent and is checked by a generator's
// loop and the neighbor extractor so a node that has shut down stops
// scheduling further work.
func (n *Node) IsAlive() bool { return n.alive }

// Shutdown marks the node dead; in-flight sessions still drain, but no
// new extraction/generation loops re-arm.
func (n *Node) Shutdown() { n.alive = false }

// Originate is a generator's entry point: a freshly minted bundle
// enters this node exactly like one arriving from an induct.
func (n *Node) Originate(b *bundle.Bundle) {
	if n.rep != nil {
		n.rep.RecordSent(b, n.k.Now())
	}
	n.ingress.Put(b, nil)
}

// Forward implements duct.Parent: an induct that reassembled a bundle
// hands it back into this node's ingress, whether it is just passing
// through (relay) or has reached its destination.
func (n *Node) Forward(b *bundle.Bundle) {
	n.ingress.Put(b, nil)
}

// Limbo implements duct.Parent: an LTP session that failed (cancel or
// timeout) routes its whole block here, excluding the contact it was
// trying to use.
func (n *Node) Limbo(b *bundle.Bundle, excludeCID int64) {
	if excludeCID >= 0 && !b.IsExcluded(excludeCID) {
		b.Excluded = append(b.Excluded, excludeCID)
	}
	n.limbo.Put(b, nil)
}

// ForwardToOutduct implements neighbor.Parent: the manager has cleared
// a record for transmission; the selector picks which duct to hand it
// to (normally the single duct wired to that neighbor).
//
// The record can have sat queued in the neighbor manager for a long
// time waiting on a contact, so TTL is re-checked here rather than
// trusting the check forwardManager already did on ingress (§4.D.2,
// Testable Property 9: "no bundle is ever forwarded after
// creation_time + TTL <= now"), grounded in DtnNode.forward_to_outduct.
func (n *Node) ForwardToOutduct(neighborID string, rec *neighbor.Record) {
	now := n.k.Now()
	if now-rec.Bundle.CreationTime >= rec.Bundle.TTL {
		n.drop(rec.Bundle, bundle.DropReasonTTL, now)
		return
	}
	tag := ""
	if n.selector != nil {
		tag = n.selector.SelectDuct(neighborID, rec.Bundle)
	}
	_ = tag // single-duct-per-neighbor topologies ignore the tag
	out, ok := n.outducts[neighborID]
	if !ok {
		n.LimboExcluding(rec.Bundle, []int64{rec.ContactCID})
		return
	}
	if s, ok := out.(sendable); ok {
		s.Send(rec.Bundle)
	}
}

// LimboExcluding implements neighbor.Parent: a displaced or rerouted
// record goes back to ingress-via-limbo with every contact id this
// attempt already tried appended to the bundle's exclusion list.
func (n *Node) LimboExcluding(b *bundle.Bundle, excludeCIDs []int64) {
	for _, cid := range excludeCIDs {
		if cid >= 0 && !b.IsExcluded(cid) {
			b.Excluded = append(b.Excluded, cid)
		}
	}
	n.limbo.Put(b, nil)
}

// CurrentCID, Stored, and FutureBacklog implement router.BacklogSource,
// letting a LookupRouter see a neighbor manager's backlog without this
// package depending on router (the dependency already runs the other
// way: router has no import of neighbor).
func (n *Node) CurrentCID(neighborID string) int64 {
	mgr, ok := n.neighbors[neighborID]
	if !ok {
		return -1
	}
	return mgr.CurrentCID(neighborID)
}

func (n *Node) Stored(neighborID string) float64 {
	mgr, ok := n.neighbors[neighborID]
	if !ok {
		return 0
	}
	return mgr.Stored()
}

func (n *Node) FutureBacklog(neighborID string, cid int64) float64 {
	mgr, ok := n.neighbors[neighborID]
	if !ok {
		return 0
	}
	return mgr.FutureBacklog(cid)
}

// RouteFailed implements neighbor.Parent: forwards to the router only
// if it opted in to the optional callback (duck-typed, matching the
// source's hasattr check); every router in this repo currently
// declines, so this is a no-op in practice.
func (n *Node) RouteFailed(rec *neighbor.Record) {
	if sink, ok := n.router.(routeFailSink); ok {
		sink.RouteFailed(rec.Bundle, n.id, rec.ContactCID)
	}
}

// Run starts the forward manager, the limbo manager, every attached
// neighbor manager, and every attached duct.
func (n *Node) Run(k *kernel.Kernel) {
	for _, mgr := range n.neighbors {
		mgr.Run(k)
	}
	for _, out := range n.outducts {
		out.Run(k)
	}
	for _, in := range n.inducts {
		in.Run(k)
	}
	n.forwardManager(k)
	n.limboManager(k)
}

// forwardManager drains ingress one bundle at a time, serializing
// routing decisions (§4.G: "the forward manager drains ingress one
// bundle at a time"), grounded in DtnNode.forward.
func (n *Node) forwardManager(k *kernel.Kernel) {
	if !n.alive {
		return
	}
	n.ingress.Get(func(b *bundle.Bundle) {
		n.handle(k, b)
		n.forwardManager(k)
	})
}

// handle runs one bundle through §4.G steps 1-10.
func (n *Node) handle(k *kernel.Kernel, b *bundle.Bundle) {
	now := k.Now()

	// 1. transient data error.
	if b.HasErrors {
		n.drop(b, bundle.DropReasonError, now)
		return
	}
	// 2. TTL exceeded.
	if now-b.CreationTime >= b.TTL {
		n.drop(b, bundle.DropReasonTTL, now)
		return
	}
	// 3. first sight at this node: append to visited, clear exclusions.
	firstTime := !b.HasVisited(n.id)
	if firstTime {
		b.Visited = append(b.Visited, n.id)
		b.Excluded = b.Excluded[:0]
	}
	// 4. destination reached.
	if b.Dest == n.id {
		b.Arrive(now)
		n.deliver(b)
		return
	}

	// 5. ask the router.
	res := n.router.FindRoutes(now, b, firstTime)

	switch res.Signal {
	case router.SignalLimbo:
		// 6.
		n.LimboExcluding(b, res.Excluded)
		return
	case router.SignalDrop:
		// 7.
		n.drop(b, bundle.DropReasonRouterDrops, now)
		return
	}
	if len(res.Records) == 0 {
		if len(res.Excluded) == 0 {
			// 8.
			n.drop(b, bundle.DropReasonUnroutable, now)
			return
		}
		// 10 (no records at all): re-route to limbo.
		n.LimboExcluding(b, res.Excluded)
		return
	}

	// 9. dispatch every record; critical+first-time bundles get an
	// independent deep copy per extra record so a fan-out to several
	// proximate neighbors never shares mutable state across copies
	// (§9 "deep copies of critical bundles").
	for i, rec := range res.Records {
		rb := rec.Bundle
		if b.Critical && firstTime && i > 0 {
			rb = b.Copy(n.alloc)
		}
		if rec.Neighbor == router.OpportunisticNeighbor && n.epidemic != nil {
			n.epidemic.Put(rb)
			continue
		}
		mgr, ok := n.neighbors[rec.Neighbor]
		if !ok {
			continue
		}
		mgr.Put(&neighbor.Record{
			Bundle:     rb,
			Priority:   rec.Priority,
			ContactCID: rec.Contact.CID,
			RouteTEnd:  rec.Route.TEnd,
		})
	}
	// 10 (records existed): done.
}

// Residual returns every bundle still resident in this node's ingress
// or limbo queues, for a post-shutdown report snapshot (§6 "stored",
// §8 conservation property 1). Queue-internal state held mid-session
// by an in-flight duct or neighbor manager (a partially-aggregated LTP
// block, a queued-but-not-yet-admitted record) is not visible here;
// only bundles actually sitting in this node's own queues are.
func (n *Node) Residual() []*bundle.Bundle {
	res := append([]*bundle.Bundle(nil), n.ingress.Items()...)
	res = append(res, n.limbo.Items()...)
	if n.epidemic != nil {
		res = append(res, n.epidemic.Residual()...)
	}
	return res
}

// deliver hands an arrived bundle to its endpoint's sink, defaulting
// to endpoint id 0 when the bundle names one with no registered sink.
func (n *Node) deliver(b *bundle.Bundle) {
	if n.rep != nil {
		n.rep.RecordArrived(b)
	}
	sink, ok := n.endpoints[b.EndpointID]
	if !ok {
		sink, ok = n.endpoints[0]
	}
	if ok {
		sink.Deliver(b)
	}
}

// drop marks b dropped for reason and records it, if a report is wired.
func (n *Node) drop(b *bundle.Bundle, reason string, now int64) {
	b.Drop(reason)
	if n.rep != nil {
		n.rep.RecordDropped(b, now)
	}
}

// limboManager drains limbo in batches every limboWait ticks (or
// immediately, treating limbo as an unbounded FIFO, when limboWait is
// configured as infinite (negative) or zero), re-enqueuing everything into ingress
// (§4.G: "the limbo manager drains limbo in batches").
func (n *Node) limboManager(k *kernel.Kernel) {
	if !n.alive {
		return
	}
	if n.limboInfinte {
		n.limbo.Get(func(b *bundle.Bundle) {
			n.ingress.Put(b, nil)
			n.limboManager(k)
		})
		return
	}
	k.After(n.limboWait, func(k *kernel.Kernel) {
		n.limbo.DrainAll(func(batch []*bundle.Bundle) {
			for _, b := range batch {
				n.ingress.Put(b, nil)
			}
		})
		n.limboManager(k)
	})
}
