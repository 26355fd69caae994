package router

import (
	"sort"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/contactplan"
	"gonum.org/v1/gonum/graph/simple"
)

// sourceCID/sinkCID are the synthetic per-query vertices CGR anchors a
// search to: a zero-cost contact from the querying node (sourceCID) and
// one into the destination (sinkCID), matching DtnCgrBasicRouter's
// `cp.loc[-1, :]`/`cp.loc[-2, :]` placeholder rows.
const (
	sourceCID int64 = -1
	sinkCID   int64 = -2
)

// CGRRouter implements contact-graph routing: Dijkstra-style earliest-
// arrival-time search with an anchored alternate-route mode, grounded
// in DtnCgrBasicRouter.find_best_route/build_route.
type CGRRouter struct {
	orig   string
	plan   *contactplan.ContactPlan
	relays map[string]bool // nil = every node is a relay (no restriction)

	// MaxRelayHops is copied in from the router config; neither
	// FindRoutes nor AlternateRoutes reads it, so the routes found are
	// not bounded by relay hop count.
	MaxRelayHops int
}

// NewCGRRouter returns a CGRRouter for orig querying plan. relays being
// nil means every node may act as a mid-route relay.
func NewCGRRouter(orig string, plan *contactplan.ContactPlan, relays map[string]bool) *CGRRouter {
	return &CGRRouter{orig: orig, plan: plan, relays: relays}
}

// graphNode wraps a contact id so contacts (plus the two synthetic
// anchors) can sit as nodes in a gonum directed graph.
type graphNode int64

func (n graphNode) ID() int64 { return int64(n) }

// buildGraph constructs the directed adjacency CGR searches: an edge
// u->v exists whenever contact u's destination is contact v's origin
// (DtnCgrBasicRouter.find_best_route's `c_dest == cp['orig']` test),
// plus the two synthetic anchors wired to/from orig and dest. Only
// contacts passing validMask participate.
func (r *CGRRouter) buildGraph(dest string, validMask map[int64]bool) (*simple.DirectedGraph, map[int64]*contactplan.Contact) {
	g := simple.NewDirectedGraph()
	byCID := make(map[int64]*contactplan.Contact)

	g.AddNode(graphNode(sourceCID))
	g.AddNode(graphNode(sinkCID))

	for _, c := range r.plan.All() {
		if !validMask[c.CID] {
			continue
		}
		byCID[c.CID] = c
		g.AddNode(graphNode(c.CID))
	}

	for _, u := range byCID {
		if u.Dest == dest {
			g.SetEdge(g.NewEdge(graphNode(u.CID), graphNode(sinkCID)))
		}
		for _, v := range byCID {
			if u.CID != v.CID && u.Dest == v.Orig {
				g.SetEdge(g.NewEdge(graphNode(u.CID), graphNode(v.CID)))
			}
		}
	}
	for _, v := range byCID {
		if v.Orig == r.orig {
			g.SetEdge(g.NewEdge(graphNode(sourceCID), graphNode(v.CID)))
		}
	}
	return g, byCID
}

// FindRoutes runs the online single-best-route search (§4.F): no
// anchoring, no capacity bookkeeping beyond the validity mask — a
// direct analogue of DtnCgrBasicRouter.find_routes.
func (r *CGRRouter) FindRoutes(now int64, b *bundle.Bundle, firstTime bool) Result {
	route := r.findBestRoute(r.orig, b.Dest, b.DataVol, b.Visited, b.Excluded, now, nil)
	if route == nil {
		return Result{}
	}
	rec := r.buildRecord(b, *route)
	return Result{Records: []bundle.RoutingRecord{rec}}
}

func (r *CGRRouter) buildRecord(b *bundle.Bundle, route bundle.Route) bundle.RoutingRecord {
	c, _ := r.plan.ByCID(route.Contacts[0])
	return bundle.RoutingRecord{
		Bundle:   b,
		Contact:  contactRef(c),
		Route:    route,
		Priority: priorityOf(b),
		Neighbor: c.Dest,
	}
}

func contactRef(c *contactplan.Contact) bundle.ContactRef {
	return bundle.ContactRef{
		CID: c.CID, Orig: c.Orig, Dest: c.Dest,
		TStart: c.TStart, TEnd: c.TEnd, Rate: c.Rate, Range: c.Range,
	}
}

// findBestRoute is the EAT label-correcting search (§4.F): EAT(v) =
// min(EAT(v), max(tstart(v), EAT(u)) + owlt(v)), walked over the graph
// built from every contact passing the validity mask (not suppressed,
// tend > now, capacity >= data_vol, dest not visited, cid not
// excluded). Ties in EAT updates break in contact-id order, matching
// §4.F's determinism requirement. suppressed additionally excludes
// specific contact ids for the anchored alternate-route search.
func (r *CGRRouter) findBestRoute(orig, dest string, dataVol float64, visited []string, excluded []int64, now int64, suppressed map[int64]bool) *bundle.Route {
	visitedSet := make(map[string]bool, len(visited))
	for _, v := range visited {
		visitedSet[v] = true
	}
	excludedSet := make(map[int64]bool, len(excluded))
	for _, c := range excluded {
		excludedSet[c] = true
	}

	valid := make(map[int64]bool)
	for _, c := range r.plan.All() {
		if suppressed[c.CID] || c.TEnd <= now || c.Capacity < dataVol {
			continue
		}
		if visitedSet[c.Dest] || excludedSet[c.CID] {
			continue
		}
		if r.relays != nil && !r.relays[c.Dest] && c.Dest != dest {
			continue
		}
		valid[c.CID] = true
	}

	g, byCID := r.buildGraph(dest, valid)

	eat := map[int64]int64{sourceCID: now}
	pred := map[int64]int64{}
	bestEAT := int64(-1)
	haveBest := false
	var finalCID int64

	cur := sourceCID
	visitedNodes := map[int64]bool{}
	for {
		visitedNodes[cur] = true
		curEAT, ok := eat[cur]
		if !ok {
			break
		}
		succNodes := graphSuccessors(g, cur)
		for _, vid := range succNodes {
			if vid == sinkCID {
				if !haveBest || curEAT < bestEAT {
					bestEAT, haveBest, finalCID = curEAT, true, cur
				}
				continue
			}
			v := byCID[vid]
			if v == nil || v.TEnd <= curEAT {
				continue
			}
			candidate := maxInt64(v.TStart, curEAT) + int64(v.OWLT())
			if prev, seen := eat[vid]; !seen || candidate < prev {
				eat[vid] = candidate
				pred[vid] = cur
			}
		}

		// Pick the next unvisited node with the lowest EAT that could
		// still beat the best arrival found so far (branch-and-cut,
		// mirroring the source's predecessor/EAT<best_EAT filter).
		next, nextEAT, found := int64(0), int64(0), false
		for vid, e := range eat {
			if visitedNodes[vid] || vid == sourceCID {
				continue
			}
			if haveBest && e >= bestEAT {
				continue
			}
			if !found || e < nextEAT || (e == nextEAT && vid < next) {
				next, nextEAT, found = vid, e, true
			}
		}
		if !found {
			break
		}
		cur = next
	}

	if !haveBest {
		return nil
	}
	return r.buildRoute(orig, finalCID, pred, byCID, bestEAT)
}

func graphSuccessors(g *simple.DirectedGraph, id int64) []int64 {
	it := g.From(id)
	var out []int64
	for it.Next() {
		out = append(out, it.Node().ID())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// buildRoute backtracks the predecessor chain into a bundle.Route,
// grounded in DtnCgrBasicRouter.build_route.
func (r *CGRRouter) buildRoute(orig string, finalCID int64, pred map[int64]int64, byCID map[int64]*contactplan.Contact, eat int64) *bundle.Route {
	var contacts []int64
	nodes := []string{}
	limitTEnd := int64(-1)
	limitCID := int64(-1)
	cur := finalCID
	for cur != sourceCID {
		c := byCID[cur]
		if limitTEnd < 0 || c.TEnd < limitTEnd {
			limitTEnd, limitCID = c.TEnd, cur
		}
		contacts = append(contacts, cur)
		nodes = append(nodes, c.Dest)
		cur = pred[cur]
	}
	nodes = append(nodes, orig)

	for i, j := 0, len(contacts)-1; i < j; i, j = i+1, j-1 {
		contacts[i], contacts[j] = contacts[j], contacts[i]
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}

	first := byCID[contacts[0]]
	return &bundle.Route{
		Contacts: contacts,
		Nodes:    nodes,
		TStart:   first.TStart,
		TEnd:     limitTEnd,
		EAT:      eat,
		LimitCID: limitCID,
		Hops:     len(contacts),
	}
}

// AlternateRoutes runs the anchored search (§4.F): find the best
// route, suppress its limiting contact (the one with the smallest
// tend) together with every other contact on the first hop's
// (orig,dest) pair that starts no later than the first hop, and re-run,
// repeating until no new route is produced. The first-hop contact is
// not held fixed between iterations. Used by the lookup
// router's offline route-schedule builder (§12's RouteCache), not by
// the per-bundle online FindRoutes path.
func (r *CGRRouter) AlternateRoutes(orig, dest string, dataVol float64, now int64) []bundle.Route {
	var routes []bundle.Route
	suppressed := map[int64]bool{}

	for {
		route := r.findBestRoute(orig, dest, dataVol, nil, nil, now, suppressed)
		if route == nil {
			break
		}
		routes = append(routes, *route)
		suppressed[route.LimitCID] = true

		// Any other contact sharing the first hop's origin/dest pair
		// and starting no later than it is suppressed too; the first
		// hop's own contact stays available to the next iteration.
		first, _ := r.plan.ByCID(route.Contacts[0])
		if first != nil {
			for _, c := range r.plan.Between(first.Orig, first.Dest) {
				if c.CID != first.CID && c.TStart <= first.TStart {
					suppressed[c.CID] = true
				}
			}
		}
	}
	return routes
}
