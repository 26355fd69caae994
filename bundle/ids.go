// Package bundle implements the simulator's data model (§3): Bundle, the
// LTP segment variants, Contact-derived Route, and the RoutingRecord that
// flows between the router and the neighbor manager.
package bundle

// IDAllocator mints the monotonic ids (bundle, copy, flow) that §9's
// design notes require be bound to a simulation instance rather than a
// package-level global — two Environments running in the same process
// (e.g. two table-driven subtests) must not share counters.
type IDAllocator struct {
	nextBundleID uint64
	nextFlowID   uint64
	copyCounters map[uint64]uint32
}

// NewIDAllocator returns a fresh allocator with all counters at zero.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{copyCounters: make(map[uint64]uint32)}
}

// NextBundleID mints a new bundle id and initializes its copy counter at 0.
func (a *IDAllocator) NextBundleID() uint64 {
	a.nextBundleID++
	a.copyCounters[a.nextBundleID] = 0
	return a.nextBundleID
}

// NextCopyID increments and returns the next copy id for an existing
// bundle id (used when a critical bundle is duplicated across proximate
// neighbors).
func (a *IDAllocator) NextCopyID(bid uint64) uint32 {
	a.copyCounters[bid]++
	return a.copyCounters[bid]
}

// NextFlowID mints a new synthetic flow id, used when a bundle is created
// without an explicit flow (e.g. ad hoc test traffic).
func (a *IDAllocator) NextFlowID() uint64 {
	a.nextFlowID++
	return a.nextFlowID
}
