package router

import (
	"testing"

	"github.com/dtnsim/dtnsim/bundle"
)

func TestStaticRouter_UsesExplicitDestinationEntry(t *testing.T) {
	r := NewStaticRouter("A", map[string]string{"Z": "B"})

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "Z", "data", 10, 3600, false, 0)

	result := r.FindRoutes(0, b, true)
	if len(result.Records) != 1 || result.Records[0].Neighbor != "B" {
		t.Fatalf("result = %+v, want next hop B", result)
	}
}

func TestStaticRouter_FallsBackToDefaultEntry(t *testing.T) {
	r := NewStaticRouter("A", map[string]string{"": "C"})

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "Z", "data", 10, 3600, false, 0)

	result := r.FindRoutes(0, b, true)
	if len(result.Records) != 1 || result.Records[0].Neighbor != "C" {
		t.Fatalf("result = %+v, want the default next hop C", result)
	}
}

func TestStaticRouter_DropsWhenNoEntryAndNoDefault(t *testing.T) {
	r := NewStaticRouter("A", map[string]string{"Y": "B"})

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "Z", "data", 10, 3600, false, 0)

	result := r.FindRoutes(0, b, true)
	if result.Signal != SignalDrop {
		t.Fatalf("signal = %v, want SignalDrop", result.Signal)
	}
}

func TestSourceRouter_ForwardsToNextHopOnRoute(t *testing.T) {
	r := NewSourceRouter("B")

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "Z", "data", 10, 3600, false, 0)
	b.SourceRoute = []string{"A", "B", "C", "Z"}

	result := r.FindRoutes(0, b, true)
	if len(result.Records) != 1 || result.Records[0].Neighbor != "C" {
		t.Fatalf("result = %+v, want next hop C", result)
	}
}

func TestSourceRouter_DropsWhenNotOnRoute(t *testing.T) {
	r := NewSourceRouter("Q")

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "Z", "data", 10, 3600, false, 0)
	b.SourceRoute = []string{"A", "B", "C", "Z"}

	result := r.FindRoutes(0, b, true)
	if result.Signal != SignalDrop {
		t.Fatalf("signal = %v, want SignalDrop when this node isn't on the carried route", result.Signal)
	}
}

func TestSourceRouter_DropsAtRouteEnd(t *testing.T) {
	r := NewSourceRouter("Z")

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "Z", "data", 10, 3600, false, 0)
	b.SourceRoute = []string{"A", "B", "C", "Z"}

	result := r.FindRoutes(0, b, true)
	if result.Signal != SignalDrop {
		t.Fatalf("signal = %v, want SignalDrop once already at the route's destination", result.Signal)
	}
}

func TestOpportunisticRouter_AlwaysReturnsThePseudoNeighbor(t *testing.T) {
	r := NewOpportunisticRouter("A")

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "Z", "data", 10, 3600, false, 0)

	result := r.FindRoutes(0, b, true)
	if len(result.Records) != 1 || result.Records[0].Neighbor != OpportunisticNeighbor {
		t.Fatalf("result = %+v, want a single record to %q", result, OpportunisticNeighbor)
	}
}
