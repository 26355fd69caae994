package router

import (
	"sort"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/contactplan"
)

// BacklogSource lets the lookup router's try-route step see a
// neighbor's queued bit volume without importing the neighbor package
// (which already depends on bundle/contactplan, not the reverse):
// Stored is the live queue's backlog when the contact being evaluated
// is the one currently open, FutureBacklog otherwise. Grounded in
// DtnLookupRouter.try_route_list's `mngr.queue.backlog` /
// `mngr.future_backlog[cid]` branch.
type BacklogSource interface {
	CurrentCID(neighbor string) int64
	Stored(neighbor string) float64
	FutureBacklog(neighbor string, cid int64) float64
}

// RouteCache memoizes a (orig,dest) route list across queries for the
// same pair — one cache per simulation Environment, not a package-level
// global, per §9's "bind counters to the simulation instance" redesign
// flag — grounded in DtnLookupRouter's class-level `_all_routes` cache
// (§12 supplemented feature).
type RouteCache struct {
	routes map[odKey][]bundle.Route
}

type odKey struct{ orig, dest string }

// NewRouteCache returns an empty cache.
func NewRouteCache() *RouteCache { return &RouteCache{routes: make(map[odKey][]bundle.Route)} }

// Get returns the cached route list for (orig,dest), or nil if absent.
func (rc *RouteCache) Get(orig, dest string) ([]bundle.Route, bool) {
	r, ok := rc.routes[odKey{orig, dest}]
	return r, ok
}

// Put stores routes for (orig,dest), replacing any prior entry.
func (rc *RouteCache) Put(orig, dest string, routes []bundle.Route) {
	rc.routes[odKey{orig, dest}] = routes
}

// LookupRouter answers routing queries from a pre-computed route
// schedule (§4.F): filter by validity, group by next-hop neighbor,
// fan out to several neighbors for critical bundles, and validate each
// candidate by simulating its backlog-aware arrival times.
type LookupRouter struct {
	orig    string
	plan    *contactplan.ContactPlan
	cache   *RouteCache
	backlog BacklogSource
	maxCrit int // max neighbors returned for a first-time critical bundle; 0 = unbounded
}

// NewLookupRouter returns a LookupRouter for orig, reading schedules
// from cache (shared across nodes in the same Environment) and
// resolving per-neighbor backlog through backlog.
func NewLookupRouter(orig string, plan *contactplan.ContactPlan, cache *RouteCache, backlog BacklogSource, maxCrit int) *LookupRouter {
	return &LookupRouter{orig: orig, plan: plan, cache: cache, backlog: backlog, maxCrit: maxCrit}
}

func (r *LookupRouter) FindRoutes(now int64, b *bundle.Bundle, firstTime bool) Result {
	options, ok := r.cache.Get(r.orig, b.Dest)
	if !ok || len(options) == 0 {
		return Result{Signal: SignalDrop}
	}

	candidates := r.findProxNodeList(options, b, now)
	if len(candidates) == 0 {
		return Result{Signal: SignalDrop}
	}

	var selected []bundle.RoutingRecord
	if b.Critical && firstTime {
		if r.maxCrit > 0 && len(candidates) > r.maxCrit {
			candidates = candidates[:r.maxCrit]
		}
		selected = candidates
	} else {
		selected = candidates[:1]
	}

	kept, excluded := r.tryRouteList(selected, now)
	if len(kept) == 0 {
		return Result{Excluded: excluded, Signal: SignalLimbo}
	}
	return Result{Records: kept, Excluded: excluded}
}

// findProxNodeList filters the cached route list by validity (§4.F
// step 1), groups by next-hop neighbor keeping the earliest-starting
// option per neighbor (step 2), grounded in
// DtnLookupRouter.find_prox_node_list.
func (r *LookupRouter) findProxNodeList(options []bundle.Route, b *bundle.Bundle, now int64) []bundle.RoutingRecord {
	visitedSet := make(map[string]bool, len(b.Visited))
	for _, v := range b.Visited {
		visitedSet[v] = true
	}
	excludedSet := make(map[int64]bool, len(b.Excluded))
	for _, c := range b.Excluded {
		excludedSet[c] = true
	}

	byNeighbor := make(map[string]bundle.Route)
	for _, route := range options {
		if route.TEnd <= now || len(route.Contacts) == 0 {
			continue
		}
		if routeHitsVisited(route, visitedSet) || routeHitsExcluded(route, excludedSet) {
			continue
		}
		if !r.hasCapacity(route, b.DataVol) {
			continue
		}
		neighbor := route.Nodes[1]
		if cur, ok := byNeighbor[neighbor]; !ok || route.TStart < cur.TStart {
			byNeighbor[neighbor] = route
		}
	}

	neighbors := make([]string, 0, len(byNeighbor))
	for n := range byNeighbor {
		neighbors = append(neighbors, n)
	}
	sort.Strings(neighbors)

	records := make([]bundle.RoutingRecord, 0, len(neighbors))
	for _, n := range neighbors {
		route := byNeighbor[n]
		c, _ := r.plan.ByCID(route.Contacts[0])
		records = append(records, bundle.RoutingRecord{
			Bundle: b, Contact: contactRef(c), Route: route,
			Priority: priorityOf(b), Neighbor: n,
		})
	}
	return records
}

func (r *LookupRouter) hasCapacity(route bundle.Route, dataVol float64) bool {
	for _, cid := range route.Contacts {
		c, ok := r.plan.ByCID(cid)
		if !ok || c.Capacity < dataVol {
			return false
		}
	}
	return true
}

func routeHitsVisited(route bundle.Route, visited map[string]bool) bool {
	for _, n := range route.Nodes[1:] {
		if visited[n] {
			return true
		}
	}
	return false
}

func routeHitsExcluded(route bundle.Route, excluded map[int64]bool) bool {
	for _, cid := range route.Contacts {
		if excluded[cid] {
			return true
		}
	}
	return false
}

// tryRouteList walks each candidate's contact chain simulating
// cumulative backlog, invalidating any whose estimated arrival would
// miss a hop's window, grounded in DtnLookupRouter.try_route_list.
func (r *LookupRouter) tryRouteList(records []bundle.RoutingRecord, now int64) ([]bundle.RoutingRecord, []int64) {
	var kept []bundle.RoutingRecord
	var excluded []int64

	for _, rec := range records {
		valid := true
		eat := now
		backlog := r.initialBacklog(rec.Neighbor, rec.Contact.CID)

		for _, cid := range rec.Route.Contacts {
			c, ok := r.plan.ByCID(cid)
			if !ok {
				valid = false
				excluded = append(excluded, cid)
				break
			}
			edt := maxInt64(eat, c.TStart) + int64(backlog/c.Rate)
			eat = edt + int64(rec.Bundle.DataVol/c.Rate) + c.Range
			if eat >= c.TEnd {
				valid = false
				excluded = append(excluded, cid)
				break
			}
			backlog = 0 // no visibility into downstream nodes' queues past the first hop
		}

		if valid {
			kept = append(kept, rec)
		}
	}
	return kept, excluded
}

func (r *LookupRouter) initialBacklog(neighbor string, cid int64) float64 {
	if r.backlog == nil {
		return 0
	}
	if r.backlog.CurrentCID(neighbor) == cid {
		return r.backlog.Stored(neighbor)
	}
	return r.backlog.FutureBacklog(neighbor, cid)
}
