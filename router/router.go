// Package router implements the routing layer (§4.F): given a bundle
// and whether this is its first time being routed at this node,
// produce the set of routing records to hand to neighbor managers, or
// a signal telling the node to limbo or drop it outright.
package router

import "github.com/dtnsim/dtnsim/bundle"

// Signal communicates a routing call's terminal intent beyond "forward
// these records": a router that found nothing usable right now but
// wants the bundle retried later returns SignalLimbo with the contacts
// it already tried; one that knows the bundle can never be routed
// returns SignalDrop. Grounded in DtnAbstractRouter.find_routes's
// documented ([], []) "tip" (drop) plus the distinct "limbo" path
// DtnNode.forward gives a router's excluded-contacts return.
type Signal int

const (
	SignalNone Signal = iota
	SignalLimbo
	SignalDrop
)

// Result is what every Router.FindRoutes call returns: zero or more
// records to forward, zero or more contact ids this bundle should not
// be tried against again, and a signal disambiguating "nothing found,
// drop it" from "nothing found, try again after limbo_wait".
type Result struct {
	Records  []bundle.RoutingRecord
	Excluded []int64
	Signal   Signal
}

// Router decides, for one bundle at one node, which neighbor(s) to
// hand it to next (§4.F). now is the kernel's virtual clock at the
// time of the call; firstTime is true only the first time a bundle is
// routed at this node (affects critical-bundle fan-out).
type Router interface {
	FindRoutes(now int64, b *bundle.Bundle, firstTime bool) Result
}

// priorityOf mirrors DtnAbstractRouter.find_bundle_priority: a bundle's
// routing priority is just its own priority field.
func priorityOf(b *bundle.Bundle) int { return b.Priority }
