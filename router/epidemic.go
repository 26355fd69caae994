package router

import (
	"sort"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/kernel"
)

// EpidemicParent is where a handshake-resolved delivery/drop ends up,
// mirroring neighbor.Parent's split of concerns but scoped to the
// opportunistic manager's own queue.
type EpidemicParent interface {
	ForwardToOutduct(neighbor string, b *bundle.Bundle)
	Drop(b *bundle.Bundle, reason string)
}

// HandshakePeer is the other side of a summary-vector exchange: what
// bundle keys it already holds, and a way to hand it the bundles this
// node determines it's missing. A real deployment backs this with the
// convergence layer; tests can fake it directly.
type HandshakePeer interface {
	SummaryVector() []bundle.Key
	Deliver(b *bundle.Bundle)
}

// EpidemicManager is the neighbor manager paired with
// OpportunisticRouter (§12 supplemented feature, §4.F "a handshake
// protocol against each in-view peer to discover missing bundles
// before forwarding"): a capacity-bounded bulk-evictable store of
// resident bundles, and a per-contact handshake that exchanges
// bundle-id summaries before sending only what the peer lacks.
// Grounded in DtnEpidemicManager/DtnMaxCapacityQueue.
type EpidemicManager struct {
	k      *kernel.Kernel
	parent EpidemicParent

	maxCapacity float64
	used        float64
	resident    map[bundle.Key]*bundle.Bundle
	order       []bundle.Key // FIFO admission order, for bulk eviction
	putLock     *kernel.Lock
}

// NewEpidemicManager returns an EpidemicManager bounded to maxCapacity
// bits of resident bundle data.
func NewEpidemicManager(k *kernel.Kernel, parent EpidemicParent, maxCapacity float64) *EpidemicManager {
	return &EpidemicManager{
		k: k, parent: parent, maxCapacity: maxCapacity,
		resident: make(map[bundle.Key]*bundle.Bundle),
		putLock:  kernel.NewLock(k),
	}
}

// Put admits b into the store, evicting bulk-priority residents (in
// admission order) to make room for a critical bundle if needed,
// serialized through the put-lock exactly as neighbor.Manager.doPut
// does (DtnEpidemicManager.do_put).
func (m *EpidemicManager) Put(b *bundle.Bundle) {
	m.putLock.Acquire(func() {
		m.doPut(b)
		m.putLock.Release()
	})
}

func (m *EpidemicManager) doPut(b *bundle.Bundle) {
	if m.used+b.DataVol > m.maxCapacity {
		if !b.Critical {
			m.parent.Drop(b, "opportunistic queue full")
			return
		}
		if !m.makeRoom(b.DataVol) {
			m.parent.Drop(b, "opportunistic queue full")
			return
		}
	}
	m.resident[b.Key()] = b
	m.order = append(m.order, b.Key())
	m.used += b.DataVol
}

// makeRoom evicts bulk (non-critical) residents from the front of the
// admission order until need bits are free, or fails and changes
// nothing if even evicting every bulk resident wouldn't be enough.
func (m *EpidemicManager) makeRoom(need float64) bool {
	var freed float64
	var evict []bundle.Key
	for _, key := range m.order {
		b, ok := m.resident[key]
		if !ok || b.Critical {
			continue
		}
		evict = append(evict, key)
		freed += b.DataVol
		if freed >= need {
			break
		}
	}
	if freed < need {
		return false
	}
	for _, key := range evict {
		b := m.resident[key]
		delete(m.resident, key)
		m.used -= b.DataVol
		m.parent.Drop(b, "opportunistic queue full")
	}
	m.dropOrder(evict)
	return true
}

func (m *EpidemicManager) dropOrder(evicted []bundle.Key) {
	evictedSet := make(map[bundle.Key]bool, len(evicted))
	for _, k := range evicted {
		evictedSet[k] = true
	}
	kept := m.order[:0]
	for _, k := range m.order {
		if !evictedSet[k] {
			kept = append(kept, k)
		}
	}
	m.order = kept
}

// Handshake exchanges summary vectors with peer and forwards every
// resident bundle the peer doesn't already have, grounded in
// DtnEpidemicManager.do_handshake (simplified: the source's handshake
// is itself a bundle carried over the convergence layer and a reply
// queue; here it's a direct call since the discovery round-trip has no
// separately-observable wire behavior this simulation needs to model).
func (m *EpidemicManager) Handshake(neighbor string, peer HandshakePeer) {
	have := peer.SummaryVector()
	haveSet := make(map[bundle.Key]bool, len(have))
	for _, k := range have {
		haveSet[k] = true
	}

	var missing []bundle.Key
	for k := range m.resident {
		if !haveSet[k] {
			missing = append(missing, k)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if missing[i].BundleID != missing[j].BundleID {
			return missing[i].BundleID < missing[j].BundleID
		}
		return missing[i].CopyID < missing[j].CopyID
	})

	for _, k := range missing {
		b := m.resident[k]
		m.parent.ForwardToOutduct(neighbor, b)
	}
	// A forwarded bundle's fate (arrive, drop, or keep relaying) is now
	// the receiving node's problem; keeping it resident here too would
	// double-count it against this node's own "stored" residual at
	// shutdown (§8 conservation property 1 — this isn't critical-bundle
	// flooding, where a deliberate extra copy is expected).
	if len(missing) > 0 {
		m.dropOrder(missing)
		for _, k := range missing {
			if b, ok := m.resident[k]; ok {
				m.used -= b.DataVol
				delete(m.resident, k)
			}
		}
	}
}

// SummaryVector implements HandshakePeer for this manager's own
// resident set, letting two EpidemicManagers handshake directly.
func (m *EpidemicManager) SummaryVector() []bundle.Key {
	keys := make([]bundle.Key, 0, len(m.resident))
	for k := range m.resident {
		keys = append(keys, k)
	}
	return keys
}

// Deliver implements HandshakePeer: a bundle arriving via handshake is
// admitted exactly like any other Put.
func (m *EpidemicManager) Deliver(b *bundle.Bundle) { m.Put(b) }

// Residual returns every bundle still resident in this store, in
// admission order — a node's post-shutdown "stored" snapshot (§6,
// §8 conservation property 1) must include these alongside its
// ingress/limbo queues, since a bundle a handshake never resolved
// would otherwise vanish from every report table uncounted.
func (m *EpidemicManager) Residual() []*bundle.Bundle {
	res := make([]*bundle.Bundle, 0, len(m.order))
	for _, k := range m.order {
		if b, ok := m.resident[k]; ok {
			res = append(res, b)
		}
	}
	return res
}
