package bundle

import "fmt"

// Priority levels. Critical bundles always use PriorityCritical; bulk
// bundles default to PriorityBulk unless a policy assigns something else.
// Grounded in DtnBundle.py's critical_priority/bulk_priority constants.
const (
	PriorityCritical = 0
	PriorityBulk     = 1
)

// Drop reasons, matching §7's error taxonomy and §4.G's node drop points.
const (
	DropReasonError           = "error"
	DropReasonTTL             = "TTL"
	DropReasonUnroutable      = "unroutable"
	DropReasonRouterDrops     = "router_drops"
	DropReasonOverbooked      = "overbooked"
	DropReasonTransmitOverdue = "transmit overdue"
	DropReasonDeadNode        = "dead_node"
	DropReasonSessionFailure  = "session_failure"
)

// Bundle is the application-layer unit of data the simulator routes
// end-to-end (§3). Copies (cid > 0) are produced when a critical bundle
// is duplicated across proximate neighbors; (BundleID, CopyID) uniquely
// identifies one such copy.
type Bundle struct {
	BundleID uint64
	CopyID   uint32
	FlowID   uint64

	Orig, Dest string
	EndpointID int
	DataType   string
	DataVol    float64 // bits
	TTL        int64   // seconds
	CreationTime int64

	Priority int // 0 = critical, otherwise bulk
	Critical bool

	Visited  []string // ordered, no repeats before arrival
	Excluded []int64  // contact ids already tried for this routing attempt

	// SourceRoute is the explicit node-by-node path a source router
	// reads instead of computing one (§4.F "source routers: ... an
	// explicit route carried inside the bundle"), grounded in
	// DtnSourceRouter.find_routes's `bundle.route`. Empty unless the
	// traffic generator assigned one.
	SourceRoute []string

	Arrived     bool
	ArrivalTime int64
	Dropped     bool
	DropReason  string

	PropDelay int64 // accumulated propagation delay, ticks
	HasErrors bool
}

// New constructs a Bundle with a fresh id from alloc. now is the creation
// timestamp (kernel.Now() at generation time).
func New(alloc *IDAllocator, orig, dest, dataType string, dataVol float64, ttl int64, critical bool, now int64) *Bundle {
	bid := alloc.NextBundleID()
	priority := PriorityBulk
	if critical {
		priority = PriorityCritical
	}
	return &Bundle{
		BundleID:     bid,
		FlowID:       alloc.NextFlowID(),
		Orig:         orig,
		Dest:         dest,
		DataType:     dataType,
		DataVol:      dataVol,
		TTL:          ttl,
		Critical:     critical,
		Priority:     priority,
		CreationTime: now,
	}
}

// Copy produces a duplicate of b carrying the next copy id for the same
// bundle id, and an independent Visited/Excluded slice (a deep copy is
// required so that routing decisions taken for one copy never mutate
// another — §9's "deep copies of critical bundles" redesign note).
func (b *Bundle) Copy(alloc *IDAllocator) *Bundle {
	cp := *b
	cp.CopyID = alloc.NextCopyID(b.BundleID)
	cp.Visited = append([]string(nil), b.Visited...)
	cp.Excluded = append([]int64(nil), b.Excluded...)
	return &cp
}

// Key identifies one copy for conservation accounting (§8 property 1):
// (bid, cid) uniquely identifies a copy.
type Key struct {
	BundleID uint64
	CopyID   uint32
}

// Key returns this bundle copy's conservation key.
func (b *Bundle) Key() Key { return Key{b.BundleID, b.CopyID} }

// HasVisited reports whether node has already been traversed by this copy.
func (b *Bundle) HasVisited(node string) bool {
	for _, v := range b.Visited {
		if v == node {
			return true
		}
	}
	return false
}

// IsExcluded reports whether contact cid has already been tried and
// excluded for this routing attempt.
func (b *Bundle) IsExcluded(cid int64) bool {
	for _, c := range b.Excluded {
		if c == cid {
			return true
		}
	}
	return false
}

// Drop marks the bundle terminally dropped with reason. Idempotent: a
// bundle dropped twice keeps its first reason (matches the source's
// single drop() call site per terminal path).
func (b *Bundle) Drop(reason string) {
	if b.Dropped || b.Arrived {
		return
	}
	b.Dropped = true
	b.DropReason = reason
}

// Arrive marks the bundle terminally arrived at now.
func (b *Bundle) Arrive(now int64) {
	if b.Dropped || b.Arrived {
		return
	}
	b.Arrived = true
	b.ArrivalTime = now
}

// Latency returns the bundle's end-to-end latency once arrived, or -1 if
// not yet arrived.
func (b *Bundle) Latency() int64 {
	if !b.Arrived {
		return -1
	}
	return b.ArrivalTime - b.CreationTime
}

// NumBits reports this bundle's wire size for radio/connection
// accounting (the Message interface radio and connection consume).
func (b *Bundle) NumBits() float64 { return b.DataVol }

// AddPropDelay accumulates propagation delay as the bundle crosses a
// connection (Message interface).
func (b *Bundle) AddPropDelay(d int64) { b.PropDelay += d }

// SetHasErrors marks the bundle as corrupted in transit (Message
// interface); a node that receives a bundle with HasErrors set drops it
// with DropReasonError.
func (b *Bundle) SetHasErrors(v bool) { b.HasErrors = v }

func (b *Bundle) String() string {
	return fmt.Sprintf("Bundle(bid=%d,cid=%d,%s->%s,%gb)", b.BundleID, b.CopyID, b.Orig, b.Dest, b.DataVol)
}
