package kernel

import "sort"

// PriorityDict has the same put/get API as PriorityQueue, but each lane is
// an insertion-ordered map keyed by K, so a specific entry can be removed
// in O(1) without walking the lane. LTP's own pending-session table
// (LTPOutduct.sessions) turned out not to need this: sessions are looked
// up synchronously by id, never waited on through a suspending Get, so a
// plain map already serves it; PriorityDict remains for a future
// session-style table that does need a blocking, priority-ordered pull
// by key.
type PriorityDict[K comparable, V any] struct {
	k         *Kernel
	capacity  int
	lanes     map[int]*orderedMap[K, V]
	laneOrder []int
	total     int
	getWaiters []func(V)
}

type orderedMap[K comparable, V any] struct {
	order []K
	items map[K]V
}

func newOrderedMap[K comparable, V any]() *orderedMap[K, V] {
	return &orderedMap[K, V]{items: make(map[K]V)}
}

func (m *orderedMap[K, V]) set(k K, v V) {
	if _, ok := m.items[k]; !ok {
		m.order = append(m.order, k)
	}
	m.items[k] = v
}

func (m *orderedMap[K, V]) remove(k K) (V, bool) {
	v, ok := m.items[k]
	if !ok {
		return v, false
	}
	delete(m.items, k)
	return v, true
}

// compact drops tombstones (keys in order no longer in items) once they
// outnumber live entries two-to-one, keeping removal amortized O(1).
func (m *orderedMap[K, V]) compact() {
	if len(m.order) < 2*len(m.items)+4 {
		return
	}
	fresh := make([]K, 0, len(m.items))
	for _, k := range m.order {
		if _, ok := m.items[k]; ok {
			fresh = append(fresh, k)
		}
	}
	m.order = fresh
}

func (m *orderedMap[K, V]) popFront() (K, V, bool) {
	var zeroK K
	var zeroV V
	for len(m.order) > 0 {
		k := m.order[0]
		m.order = m.order[1:]
		if v, ok := m.items[k]; ok {
			delete(m.items, k)
			return k, v, true
		}
	}
	return zeroK, zeroV, false
}

func (m *orderedMap[K, V]) len() int { return len(m.items) }

// NewPriorityDict creates a PriorityDict bound to k with the given total
// capacity across all lanes (0 = unbounded).
func NewPriorityDict[K comparable, V any](k *Kernel, capacity int) *PriorityDict[K, V] {
	return &PriorityDict[K, V]{k: k, capacity: capacity, lanes: make(map[int]*orderedMap[K, V])}
}

func (pd *PriorityDict[K, V]) NewLane(priority int) {
	if _, ok := pd.lanes[priority]; ok {
		return
	}
	pd.lanes[priority] = newOrderedMap[K, V]()
	pd.laneOrder = append(pd.laneOrder, priority)
	sort.Ints(pd.laneOrder)
}

func (pd *PriorityDict[K, V]) Len() int { return pd.total }

// Put inserts (or overwrites) the entry for key in the given lane's
// insertion order.
func (pd *PriorityDict[K, V]) Put(key K, value V, priority int, done func()) {
	pd.NewLane(priority)
	lane := pd.lanes[priority]
	_, existed := lane.items[key]
	lane.set(key, value)
	if !existed {
		pd.total++
	}
	if done != nil {
		pd.k.After(0, func(*Kernel) { done() })
	}
	pd.wakeGetter()
}

// Remove deletes key from the given lane in O(1), reporting whether it
// was present.
func (pd *PriorityDict[K, V]) Remove(key K, priority int) (V, bool) {
	lane, ok := pd.lanes[priority]
	if !ok {
		var zero V
		return zero, false
	}
	v, removed := lane.remove(key)
	if removed {
		pd.total--
		lane.compact()
	}
	return v, removed
}

// Get drains the front entry of the most urgent non-empty lane.
func (pd *PriorityDict[K, V]) Get(done func(V)) {
	if _, v, ok := pd.popAny(); ok {
		pd.k.After(0, func(*Kernel) { done(v) })
		return
	}
	pd.getWaiters = append(pd.getWaiters, done)
}

func (pd *PriorityDict[K, V]) popAny() (K, V, bool) {
	for _, p := range pd.laneOrder {
		if k, v, ok := pd.lanes[p].popFront(); ok {
			pd.total--
			return k, v, true
		}
	}
	var zeroK K
	var zeroV V
	return zeroK, zeroV, false
}

func (pd *PriorityDict[K, V]) wakeGetter() {
	if len(pd.getWaiters) == 0 {
		return
	}
	_, v, ok := pd.popAny()
	if !ok {
		return
	}
	w := pd.getWaiters[0]
	pd.getWaiters = pd.getWaiters[1:]
	pd.k.After(0, func(*Kernel) { w(v) })
}
