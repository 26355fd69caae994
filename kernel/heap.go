package kernel

import "container/heap"

// eventHeap is a min-heap of Event ordered by (Timestamp, Seq), adapted
// from the cluster package's EventHeap: same two-key deterministic
// ordering, generalized from a fixed EventType-priority table to the
// Seq counter every Kernel event already carries.
type eventHeap struct {
	events []Event
}

func (h *eventHeap) Len() int { return len(h.events) }

func (h *eventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]
	if ei.Timestamp() != ej.Timestamp() {
		return ei.Timestamp() < ej.Timestamp()
	}
	return ei.Seq() < ej.Seq()
}

func (h *eventHeap) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
}

func (h *eventHeap) Push(x any) {
	h.events = append(h.events, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := h.events
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.events = old[:n-1]
	return item
}

var _ = heap.Interface(&eventHeap{})
