package kernel

// Semaphore is a two-state (green/red) gate. WaitGreen suspends while
// red; TurnGreen/TurnRed are idempotent. Used by the neighbor manager and
// connection layer to gate extraction/transmission on contact visibility.
type Semaphore struct {
	k       *Kernel
	green   bool
	waiters []func()
}

// NewSemaphore creates a Semaphore bound to k, initially red.
func NewSemaphore(k *Kernel) *Semaphore { return &Semaphore{k: k} }

// IsRed reports whether the semaphore is currently red.
func (s *Semaphore) IsRed() bool { return !s.green }

// TurnGreen opens the gate, releasing every waiter in FIFO order. No-op
// if already green.
func (s *Semaphore) TurnGreen() {
	if s.green {
		return
	}
	s.green = true
	waiters := s.waiters
	s.waiters = nil
	for _, w := range waiters {
		w := w
		s.k.After(0, func(*Kernel) { w() })
	}
}

// TurnRed closes the gate. No-op if already red.
func (s *Semaphore) TurnRed() { s.green = false }

// WaitGreen invokes done once the gate is green — immediately if already
// green, otherwise once TurnGreen is next called.
func (s *Semaphore) WaitGreen(done func()) {
	if s.green {
		s.k.After(0, func(*Kernel) { done() })
		return
	}
	s.waiters = append(s.waiters, done)
}
