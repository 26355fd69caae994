package kernel

import (
	"container/heap"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Kernel owns the virtual clock and the pending-event heap. All
// suspension/resumption in dtnsim ultimately goes through Kernel.At or
// Kernel.After, which is what gives every resource in this package (and
// every component built on top of it) the same deterministic FIFO
// tiebreak for events scheduled at an identical timestamp (§5).
type Kernel struct {
	now      int64
	heap     eventHeap
	seq      uint64
	until    int64
	hasUntil bool
	Log      *logrus.Entry
}

// New creates a Kernel with its clock at zero and no horizon (runs to
// event exhaustion, matching scenario.until = None in the config surface).
func New() *Kernel {
	return &Kernel{Log: logrus.WithField("component", "kernel")}
}

// Now returns the current virtual clock value.
func (k *Kernel) Now() int64 { return k.now }

// SetUntil bounds the run loop: events scheduled strictly after `until`
// are never executed. Call before Run.
func (k *Kernel) SetUntil(until int64) {
	k.until = until
	k.hasUntil = true
}

func (k *Kernel) nextSeq() uint64 {
	k.seq++
	return k.seq
}

// At schedules fn to run when the clock reaches t. t must not be before
// Now() by more than is consistent with monotonic scheduling; the run
// loop panics if an event's timestamp would move the clock backwards.
func (k *Kernel) At(t int64, fn func(k *Kernel)) {
	heap.Push(&k.heap, &callbackEvent{baseEvent{t, k.nextSeq()}, fn})
}

// After schedules fn to run dt ticks from now. dt must be >= 0.
func (k *Kernel) After(dt int64, fn func(k *Kernel)) {
	if dt < 0 {
		panic(fmt.Sprintf("kernel: negative delay %d", dt))
	}
	k.At(k.now+dt, fn)
}

// Schedule adds a fully-formed Event (used by components that need their
// own Event types, e.g. for tracing/inspection) to the heap.
func (k *Kernel) Schedule(e Event) {
	heap.Push(&k.heap, e)
}

// Pending reports how many events remain in the heap.
func (k *Kernel) Pending() int { return k.heap.Len() }

// Run drains the event heap, advancing the clock to each event's
// timestamp before executing it, until the heap is empty or the
// configured horizon is exceeded.
func (k *Kernel) Run() {
	for k.heap.Len() > 0 {
		e := heap.Pop(&k.heap).(Event)
		if k.hasUntil && e.Timestamp() > k.until {
			break
		}
		if e.Timestamp() < k.now {
			panic(fmt.Sprintf("kernel: clock would move backwards: %d < %d", e.Timestamp(), k.now))
		}
		k.now = e.Timestamp()
		e.Run(k)
	}
}
