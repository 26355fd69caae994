package kernel

import "sort"

// PriorityQueue is a multi-lane FIFO: Put selects a lane by integer
// priority (lower value drains first); Get always drains the most urgent
// non-empty lane. All lanes share one overall capacity (0 = unbounded).
// Lane keys are iterated in sorted order everywhere, never via a bare map
// range, per §5's determinism requirement that hash-container iteration
// must not affect event ordering.
type PriorityQueue[T any] struct {
	k          *Kernel
	capacity   int
	lanes      map[int][]T
	laneOrder  []int
	total      int
	putWaiters []func()
	getWaiters []func(T)
}

// NewPriorityQueue creates a PriorityQueue bound to k with the given total
// capacity across all lanes (0 = unbounded).
func NewPriorityQueue[T any](k *Kernel, capacity int) *PriorityQueue[T] {
	return &PriorityQueue[T]{k: k, capacity: capacity, lanes: make(map[int][]T)}
}

// NewLane registers a priority lane. Idempotent.
func (pq *PriorityQueue[T]) NewLane(priority int) {
	if _, ok := pq.lanes[priority]; ok {
		return
	}
	pq.lanes[priority] = nil
	pq.laneOrder = append(pq.laneOrder, priority)
	sort.Ints(pq.laneOrder)
}

// Len is the total number of resident items across all lanes.
func (pq *PriorityQueue[T]) Len() int { return pq.total }

// LaneLen reports how many items are resident in a specific lane.
func (pq *PriorityQueue[T]) LaneLen(priority int) int { return len(pq.lanes[priority]) }

// Put enqueues item into the lane for priority, at the back (FIFO) unless
// front is true (used by the transmit-overdue fragmentation path, which
// re-queues a remainder ahead of everything else in its lane).
func (pq *PriorityQueue[T]) Put(item T, priority int, front bool, done func()) {
	if pq.capacity > 0 && pq.total >= pq.capacity {
		pq.putWaiters = append(pq.putWaiters, func() { pq.Put(item, priority, front, done) })
		return
	}
	pq.NewLane(priority)
	if front {
		pq.lanes[priority] = append([]T{item}, pq.lanes[priority]...)
	} else {
		pq.lanes[priority] = append(pq.lanes[priority], item)
	}
	pq.total++
	if done != nil {
		pq.k.After(0, func(*Kernel) { done() })
	}
	pq.wakeGetter()
}

// Get drains the most urgent (lowest priority value) non-empty lane.
func (pq *PriorityQueue[T]) Get(done func(T)) {
	if item, ok := pq.popAny(); ok {
		pq.k.After(0, func(*Kernel) { done(item) })
		pq.wakePutter()
		return
	}
	pq.getWaiters = append(pq.getWaiters, done)
}

// PopLane removes and returns the front item of a specific lane, or
// (zero, false) if that lane is empty. Non-suspending — used by the
// overbookable queue's bulk pre-emption (it must pop specifically from
// the bulk lane, never the critical lane).
func (pq *PriorityQueue[T]) PopLane(priority int) (T, bool) {
	var zero T
	items := pq.lanes[priority]
	if len(items) == 0 {
		return zero, false
	}
	item := items[0]
	pq.lanes[priority] = items[1:]
	pq.total--
	pq.wakePutter()
	return item, true
}

func (pq *PriorityQueue[T]) popAny() (T, bool) {
	var zero T
	for _, p := range pq.laneOrder {
		if len(pq.lanes[p]) > 0 {
			item := pq.lanes[p][0]
			pq.lanes[p] = pq.lanes[p][1:]
			pq.total--
			return item, true
		}
	}
	return zero, false
}

func (pq *PriorityQueue[T]) wakeGetter() {
	if len(pq.getWaiters) == 0 {
		return
	}
	item, ok := pq.popAny()
	if !ok {
		return
	}
	w := pq.getWaiters[0]
	pq.getWaiters = pq.getWaiters[1:]
	pq.k.After(0, func(*Kernel) { w(item) })
	pq.wakePutter()
}

func (pq *PriorityQueue[T]) wakePutter() {
	if pq.capacity <= 0 || pq.total >= pq.capacity || len(pq.putWaiters) == 0 {
		return
	}
	w := pq.putWaiters[0]
	pq.putWaiters = pq.putWaiters[1:]
	pq.k.After(0, func(*Kernel) { w() })
}
