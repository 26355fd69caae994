package router

import "github.com/dtnsim/dtnsim/bundle"

// SourceRouter reads the next hop directly from the bundle's own
// SourceRoute rather than computing one, grounded in
// DtnSourceRouter.find_routes.
type SourceRouter struct {
	orig string
}

// NewSourceRouter returns a SourceRouter for orig.
func NewSourceRouter(orig string) *SourceRouter { return &SourceRouter{orig: orig} }

func (r *SourceRouter) FindRoutes(now int64, b *bundle.Bundle, firstTime bool) Result {
	idx := -1
	for i, n := range b.SourceRoute {
		if n == r.orig {
			idx = i
			break
		}
	}
	if idx < 0 || idx == len(b.SourceRoute)-1 {
		// Not on the route, or already at its end: this bundle should
		// never have reached this node's router (DtnSourceRouter raises
		// in the latter case); treat both as unroutable here instead.
		return Result{Signal: SignalDrop}
	}

	next := b.SourceRoute[idx+1]
	rec := bundle.RoutingRecord{
		Bundle: b,
		Contact: bundle.ContactRef{
			CID: -1, Orig: r.orig, Dest: next, TEnd: maxTEnd,
		},
		Route:    bundle.Route{TEnd: maxTEnd},
		Priority: priorityOf(b),
		Neighbor: next,
	}
	return Result{Records: []bundle.RoutingRecord{rec}}
}
