package router

import (
	"sort"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/contactplan"
	"gonum.org/v1/gonum/stat/combin"
)

// BFSRouter enumerates all simple contact-chain paths under a hop
// bound via iterative deepening, returning the first (lowest-hop-
// count) feasible route, grounded in the "BFS" algorithm §4.F names
// alongside CGR as the other route-schedule-building search
// (DtnLookupRouter's docstring: "route schedule... computed using
// different methods (BFS, CGR+anchoring, CGR+Yen K, etc.)").
type BFSRouter struct {
	orig     string
	plan     *contactplan.ContactPlan
	maxHops  int
	allNodes []string // candidate relay set, sorted for deterministic combination indexing
}

// NewBFSRouter returns a BFSRouter for orig searching plan's contact
// graph up to maxHops intermediate relays, choosing among candidate
// relay node names.
func NewBFSRouter(orig string, plan *contactplan.ContactPlan, maxHops int, candidateRelays []string) *BFSRouter {
	nodes := append([]string(nil), candidateRelays...)
	sort.Strings(nodes)
	return &BFSRouter{orig: orig, plan: plan, maxHops: maxHops, allNodes: nodes}
}

func (r *BFSRouter) FindRoutes(now int64, b *bundle.Bundle, firstTime bool) Result {
	route := r.findRoute(b.Dest, b.DataVol, b.Visited, b.Excluded, now)
	if route == nil {
		return Result{}
	}
	c, _ := r.plan.ByCID(route.Contacts[0])
	rec := bundle.RoutingRecord{
		Bundle:   b,
		Contact:  contactRef(c),
		Route:    *route,
		Priority: priorityOf(b),
		Neighbor: c.Dest,
	}
	return Result{Records: []bundle.RoutingRecord{rec}}
}

// findRoute tries direct (0-relay) paths first, then widens the relay
// subset size by one each round (iterative deepening), using
// combin.Combinations to enumerate candidate relay subsets in a fixed
// deterministic order so that when several equal-hop-count paths are
// feasible, the same one is always chosen — this is the "deterministic
// subset/ordering when breaking ties" §11 calls out.
func (r *BFSRouter) findRoute(dest string, dataVol float64, visited []string, excluded []int64, now int64) *bundle.Route {
	if route := r.tryChain(nil, dest, dataVol, visited, excluded, now); route != nil {
		return route
	}
	n := len(r.allNodes)
	for hops := 1; hops <= r.maxHops && hops <= n; hops++ {
		combos := combin.Combinations(n, hops)
		for _, idx := range combos {
			relays := make([]string, hops)
			for i, ix := range idx {
				relays[i] = r.allNodes[ix]
			}
			for _, perm := range permutations(relays) {
				if route := r.tryChain(perm, dest, dataVol, visited, excluded, now); route != nil {
					return route
				}
			}
		}
	}
	return nil
}

// tryChain attempts to walk orig -> mids... -> dest using, at each
// step, the earliest-starting valid contact between consecutive nodes;
// it fails if any hop has no valid contact or arrival would exceed the
// next hop's window.
func (r *BFSRouter) tryChain(mids []string, dest string, dataVol float64, visited []string, excluded []int64, now int64) *bundle.Route {
	visitedSet := make(map[string]bool, len(visited))
	for _, v := range visited {
		visitedSet[v] = true
	}
	excludedSet := make(map[int64]bool, len(excluded))
	for _, c := range excluded {
		excludedSet[c] = true
	}

	hops := append(append([]string{}, mids...), dest)
	cur := r.orig
	eat := now
	var contacts []int64
	nodes := []string{r.orig}
	limitTEnd := int64(-1)
	limitCID := int64(-1)
	var tstart int64

	for _, next := range hops {
		if visitedSet[next] {
			return nil
		}
		c := bestContact(r.plan.Between(cur, next), eat, dataVol, excludedSet)
		if c == nil {
			return nil
		}
		owlt := int64(c.OWLT())
		eat = maxInt64(c.TStart, eat) + owlt
		if eat >= c.TEnd {
			return nil
		}
		if len(contacts) == 0 {
			tstart = c.TStart
		}
		if limitTEnd < 0 || c.TEnd < limitTEnd {
			limitTEnd, limitCID = c.TEnd, c.CID
		}
		contacts = append(contacts, c.CID)
		nodes = append(nodes, next)
		cur = next
	}

	return &bundle.Route{
		Contacts: contacts, Nodes: nodes,
		TStart: tstart, TEnd: limitTEnd, EAT: eat, LimitCID: limitCID, Hops: len(contacts),
	}
}

// bestContact picks the earliest-starting valid contact among cands
// (not excluded, tend > eat, capacity >= dataVol), breaking ties by
// contact id for determinism.
func bestContact(cands []*contactplan.Contact, eat int64, dataVol float64, excluded map[int64]bool) *contactplan.Contact {
	var best *contactplan.Contact
	for _, c := range cands {
		if excluded[c.CID] || c.TEnd <= eat || c.Capacity < dataVol {
			continue
		}
		if best == nil || c.TStart < best.TStart || (c.TStart == best.TStart && c.CID < best.CID) {
			best = c
		}
	}
	return best
}

// permutations returns every ordering of items, smallest-index-first,
// used to try a chosen relay subset in every possible visiting order.
func permutations(items []string) [][]string {
	if len(items) == 0 {
		return [][]string{{}}
	}
	var out [][]string
	for i := range items {
		rest := make([]string, 0, len(items)-1)
		rest = append(rest, items[:i]...)
		rest = append(rest, items[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{items[i]}, p...))
		}
	}
	return out
}
