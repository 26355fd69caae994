package router

import "github.com/dtnsim/dtnsim/bundle"

// OpportunisticRouter has no contact plan: it always returns a single
// record addressed to the pseudo-neighbor "opportunistic", deferring
// all real neighbor selection to whichever node is currently in radio
// view — that discovery and handshake happens in EpidemicManager, not
// here. Grounded in DtnOpportunisticRouter.find_routes/new_record.
type OpportunisticRouter struct {
	orig string
}

// NewOpportunisticRouter returns an OpportunisticRouter for orig.
func NewOpportunisticRouter(orig string) *OpportunisticRouter {
	return &OpportunisticRouter{orig: orig}
}

// OpportunisticNeighbor is the pseudo-destination every opportunistic
// routing record carries; EpidemicManager is the actual consumer that
// resolves it to whichever peer is presently reachable.
const OpportunisticNeighbor = "opportunistic"

func (r *OpportunisticRouter) FindRoutes(now int64, b *bundle.Bundle, firstTime bool) Result {
	rec := bundle.RoutingRecord{
		Bundle: b,
		Contact: bundle.ContactRef{
			CID: -1, Orig: r.orig, Dest: OpportunisticNeighbor, TEnd: maxTEnd,
		},
		Route:    bundle.Route{TEnd: maxTEnd},
		Priority: priorityOf(b),
		Neighbor: OpportunisticNeighbor,
	}
	return Result{Records: []bundle.RoutingRecord{rec}}
}
