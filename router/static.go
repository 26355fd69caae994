package router

import "github.com/dtnsim/dtnsim/bundle"

// StaticRouter answers from a fixed per-destination next-hop table,
// grounded in DtnStaticRouter: a dictionary from this node's id to
// {dest: next_hop}, with an optional "default" entry for unlisted
// destinations.
type StaticRouter struct {
	orig    string
	nextHop map[string]string // dest -> next hop; key "" is the default
}

// NewStaticRouter returns a StaticRouter for orig using nextHop, where
// the key "" (empty string) is the default next hop for any
// destination not otherwise listed.
func NewStaticRouter(orig string, nextHop map[string]string) *StaticRouter {
	return &StaticRouter{orig: orig, nextHop: nextHop}
}

func (r *StaticRouter) FindRoutes(now int64, b *bundle.Bundle, firstTime bool) Result {
	dest, ok := r.nextHop[b.Dest]
	if !ok {
		dest, ok = r.nextHop[""]
	}
	if !ok || dest == "" {
		// No route known and no default: the source drops here rather
		// than limbo, since there is nothing a later retry could change.
		return Result{Signal: SignalDrop}
	}

	rec := bundle.RoutingRecord{
		Bundle: b,
		Contact: bundle.ContactRef{
			CID: -1, Orig: r.orig, Dest: dest, TEnd: maxTEnd,
		},
		Route:    bundle.Route{TEnd: maxTEnd},
		Priority: priorityOf(b),
		Neighbor: dest,
	}
	return Result{Records: []bundle.RoutingRecord{rec}}
}

// maxTEnd stands in for the source's np.inf route/contact validity
// window on routes with no underlying contact plan (static/source
// routing): a window that is for all purposes never exceeded.
const maxTEnd = int64(1) << 62
