package kernel

// Lock is a mutex of capacity one with FIFO waiter order, used wherever a
// critical section must not interleave across suspension points — e.g.
// the neighbor manager's put-lock, which makes "check capacity" and
// "decrement capacity" one atomic admission step (§4.E, §5).
type Lock struct {
	k       *Kernel
	held    bool
	waiters []func()
}

// NewLock creates an unheld Lock bound to k.
func NewLock(k *Kernel) *Lock { return &Lock{k: k} }

// Acquire invokes done once the lock is held by the caller — immediately
// if free, or after every earlier waiter has released it.
func (l *Lock) Acquire(done func()) {
	if !l.held {
		l.held = true
		l.k.After(0, func(*Kernel) { done() })
		return
	}
	l.waiters = append(l.waiters, done)
}

// Release hands the lock to the next FIFO waiter, or marks it free if
// there is none.
func (l *Lock) Release() {
	if len(l.waiters) == 0 {
		l.held = false
		return
	}
	w := l.waiters[0]
	l.waiters = l.waiters[1:]
	l.k.After(0, func(*Kernel) { w() })
}
