package kernel

// Container is a bounded numeric counter: Put(n) suspends if it would
// overflow capacity, Get(n) suspends while the level is below n. TryGet
// offers a non-suspending variant for admission-control callers that need
// to reject rather than wait when capacity is insufficient (the neighbor
// manager's own admission queue needs reject-or-preempt-then-admit in one
// synchronous step, so it tracks its budget directly rather than through
// Container's suspend/resume model — see neighbor.overbookableQueue).
type Container struct {
	k          *Kernel
	capacity   float64
	level      float64
	putWaiters []containerWaiter
	getWaiters []containerWaiter
}

type containerWaiter struct {
	amount float64
	done   func()
}

// NewContainer creates a Container bound to k with the given capacity,
// initially at level 0.
func NewContainer(k *Kernel, capacity float64) *Container {
	return &Container{k: k, capacity: capacity}
}

// Level returns the current level.
func (c *Container) Level() float64 { return c.level }

// Capacity returns the configured capacity.
func (c *Container) Capacity() float64 { return c.capacity }

// SetCapacity adjusts capacity (used when a contact's window changes the
// available budget). It does not retroactively validate the level; callers
// that shrink capacity below the current level are expected to know why.
func (c *Container) SetCapacity(capacity float64) {
	c.capacity = capacity
	c.wakePutters()
}

// Put adds amount to the level, suspending until there is room if it
// would overflow capacity.
func (c *Container) Put(amount float64, done func()) {
	if c.level+amount > c.capacity {
		c.putWaiters = append(c.putWaiters, containerWaiter{amount, done})
		return
	}
	c.level += amount
	if done != nil {
		c.k.After(0, func(*Kernel) { done() })
	}
	c.wakeGetters()
}

// Get removes amount from the level, suspending until enough has
// accumulated.
func (c *Container) Get(amount float64, done func()) {
	if c.level >= amount {
		c.level -= amount
		c.k.After(0, func(*Kernel) { done() })
		c.wakePutters()
		return
	}
	c.getWaiters = append(c.getWaiters, containerWaiter{amount, done})
}

// TryGet removes amount immediately if available, without suspending.
// Reports whether it succeeded.
func (c *Container) TryGet(amount float64) bool {
	if c.level < amount {
		return false
	}
	c.level -= amount
	c.wakePutters()
	return true
}

func (c *Container) wakeGetters() {
	for len(c.getWaiters) > 0 {
		w := c.getWaiters[0]
		if c.level < w.amount {
			break
		}
		c.getWaiters = c.getWaiters[1:]
		c.level -= w.amount
		w := w
		c.k.After(0, func(*Kernel) { w.done() })
	}
}

func (c *Container) wakePutters() {
	for len(c.putWaiters) > 0 {
		w := c.putWaiters[0]
		if c.level+w.amount > c.capacity {
			break
		}
		c.putWaiters = c.putWaiters[1:]
		c.level += w.amount
		if w.done != nil {
			w := w
			c.k.After(0, func(*Kernel) { w.done() })
		}
		c.wakeGetters()
	}
}
