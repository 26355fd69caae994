// Package kernel implements the discrete-event simulation core: a virtual
// clock, a deterministic priority event queue, and the suspend/resume
// primitives ("processes") that the rest of dtnsim is built on.
//
// Time is virtual and single-threaded: there is no goroutine-per-process
// and no dependency on any library-provided I/O executor. A "process"
// is modeled as a chain of callbacks; a component suspends by registering
// a continuation with a Kernel or a resource (Queue, PriorityQueue, Lock,
// Semaphore, Container) instead of blocking a goroutine, and resumes when
// the kernel delivers the corresponding event. This mirrors the source
// simulator's coroutine-based processes (each suspension point becomes an
// explicit scheduled continuation here) while staying single-threaded.
package kernel

// Event is anything the Kernel can schedule and later execute at its
// Timestamp. Seq is the deterministic tiebreaker: two events scheduled at
// the same Timestamp fire in ascending Seq order (insertion order).
type Event interface {
	Timestamp() int64
	Seq() uint64
	Run(k *Kernel)
}

type baseEvent struct {
	timestamp int64
	seq       uint64
}

func (e baseEvent) Timestamp() int64 { return e.timestamp }
func (e baseEvent) Seq() uint64      { return e.seq }

// callbackEvent is the generic Event used by Kernel.At/After: it just
// invokes an arbitrary continuation at the scheduled time.
type callbackEvent struct {
	baseEvent
	fn func(k *Kernel)
}

func (e *callbackEvent) Run(k *Kernel) { e.fn(k) }
