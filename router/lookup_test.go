package router

import (
	"testing"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/contactplan"
)

type fakeBacklog struct {
	current  map[string]int64
	future   map[string]map[int64]float64
	resident map[string]float64
}

func (f *fakeBacklog) CurrentCID(neighbor string) int64 { return f.current[neighbor] }
func (f *fakeBacklog) Stored(neighbor string) float64    { return f.resident[neighbor] }
func (f *fakeBacklog) FutureBacklog(neighbor string, cid int64) float64 {
	return f.future[neighbor][cid]
}

func TestLookupRouter_ReturnsCachedRouteWhenValid(t *testing.T) {
	plan := mustPlan(t, contactplan.NewContact(1, "A", "B", 0, 1000, 1000, 1))
	cache := NewRouteCache()
	cache.Put("A", "B", []bundle.Route{{Contacts: []int64{1}, Nodes: []string{"A", "B"}, TStart: 0, TEnd: 1000, EAT: 1}})

	backlog := &fakeBacklog{current: map[string]int64{}, future: map[string]map[int64]float64{}, resident: map[string]float64{}}
	r := NewLookupRouter("A", plan, cache, backlog, 0)

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "B", "data", 10, 3600, false, 0)

	result := r.FindRoutes(0, b, true)
	if len(result.Records) != 1 || result.Records[0].Neighbor != "B" {
		t.Fatalf("result = %+v, want a single record to B", result)
	}
}

func TestLookupRouter_NoCacheEntryDrops(t *testing.T) {
	plan := mustPlan(t, contactplan.NewContact(1, "A", "B", 0, 1000, 1000, 1))
	cache := NewRouteCache()
	r := NewLookupRouter("A", plan, cache, nil, 0)

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "Z", "data", 10, 3600, false, 0)

	result := r.FindRoutes(0, b, true)
	if result.Signal != SignalDrop {
		t.Fatalf("signal = %v, want SignalDrop when no cached routes exist for this (orig,dest)", result.Signal)
	}
}

func TestLookupRouter_CriticalBundleFansOutToMultipleNeighbors(t *testing.T) {
	// GIVEN two distinct next-hop neighbors toward the same destination
	plan := mustPlan(t,
		contactplan.NewContact(1, "A", "B1", 0, 1000, 1000, 1),
		contactplan.NewContact(2, "B1", "Z", 1, 1000, 1000, 1),
		contactplan.NewContact(3, "A", "B2", 0, 1000, 1000, 1),
		contactplan.NewContact(4, "B2", "Z", 1, 1000, 1000, 1),
	)
	cache := NewRouteCache()
	cache.Put("A", "Z", []bundle.Route{
		{Contacts: []int64{1, 2}, Nodes: []string{"A", "B1", "Z"}, TStart: 0, TEnd: 1000, EAT: 2},
		{Contacts: []int64{3, 4}, Nodes: []string{"A", "B2", "Z"}, TStart: 0, TEnd: 1000, EAT: 2},
	})
	backlog := &fakeBacklog{current: map[string]int64{}, future: map[string]map[int64]float64{}, resident: map[string]float64{}}
	r := NewLookupRouter("A", plan, cache, backlog, 0)

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "Z", "data", 10, 3600, true, 0)

	result := r.FindRoutes(0, b, true)
	if len(result.Records) != 2 {
		t.Fatalf("records = %d, want 2 (one per neighbor) for a first-time critical bundle", len(result.Records))
	}
}

func TestLookupRouter_NonCriticalBundleUsesSingleBestNeighbor(t *testing.T) {
	plan := mustPlan(t,
		contactplan.NewContact(1, "A", "B1", 0, 1000, 1000, 1),
		contactplan.NewContact(2, "B1", "Z", 1, 1000, 1000, 1),
		contactplan.NewContact(3, "A", "B2", 0, 1000, 1000, 1),
		contactplan.NewContact(4, "B2", "Z", 1, 1000, 1000, 1),
	)
	cache := NewRouteCache()
	cache.Put("A", "Z", []bundle.Route{
		{Contacts: []int64{1, 2}, Nodes: []string{"A", "B1", "Z"}, TStart: 0, TEnd: 1000, EAT: 2},
		{Contacts: []int64{3, 4}, Nodes: []string{"A", "B2", "Z"}, TStart: 0, TEnd: 1000, EAT: 2},
	})
	backlog := &fakeBacklog{current: map[string]int64{}, future: map[string]map[int64]float64{}, resident: map[string]float64{}}
	r := NewLookupRouter("A", plan, cache, backlog, 0)

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "Z", "data", 10, 3600, false, 0)

	result := r.FindRoutes(0, b, false)
	if len(result.Records) != 1 {
		t.Fatalf("records = %d, want exactly 1 for a non-critical bundle", len(result.Records))
	}
}

func TestLookupRouter_BacklogDelaysArrivalPastWindowInvalidatesRoute(t *testing.T) {
	// GIVEN a route whose single hop closes very soon, and a huge
	// pre-existing backlog on that neighbor that will push the estimated
	// arrival time past the window
	plan := mustPlan(t, contactplan.NewContact(1, "A", "B", 0, 10, 100, 1))
	cache := NewRouteCache()
	cache.Put("A", "B", []bundle.Route{{Contacts: []int64{1}, Nodes: []string{"A", "B"}, TStart: 0, TEnd: 10, EAT: 1}})
	backlog := &fakeBacklog{
		current:  map[string]int64{"B": 1},
		future:   map[string]map[int64]float64{},
		resident: map[string]float64{"B": 100000}, // huge backlog at 100 bps -> huge EDT
	}
	r := NewLookupRouter("A", plan, cache, backlog, 0)

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "B", "data", 10, 3600, false, 0)

	result := r.FindRoutes(0, b, true)
	if len(result.Records) != 0 {
		t.Fatalf("expected the backlog-delayed route to be invalidated, got %+v", result.Records)
	}
	if result.Signal != SignalLimbo {
		t.Fatalf("signal = %v, want SignalLimbo (route existed but arrival check failed)", result.Signal)
	}
}
