package neighbor

import (
	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/contactplan"
	"github.com/dtnsim/dtnsim/kernel"
)

// Parent is the node a Manager belongs to (§4.E, §4.G): where an
// admitted-then-sent record is handed to the convergence layer, where
// a displaced or failed record goes back for re-routing, and an
// optional hook for routers that track per-bundle route failures.
type Parent interface {
	ForwardToOutduct(neighbor string, rec *Record)
	LimboExcluding(b *bundle.Bundle, excludeCIDs []int64)
	RouteFailed(rec *Record)
	IsAlive() bool
}

// Manager owns one overbookable queue feeding a single outduct for one
// destination neighbor, grounded in DtnCgrNeighborManager: contact
// open/close driven off the contact plan, a put-lock serializing
// admission so "check capacity, decrement it" is atomic, and an
// extractor throttled to the current contact's data rate.
type Manager struct {
	k        *kernel.Kernel
	parent   Parent
	neighbor string

	queue   *overbookableQueue
	putLock *kernel.Lock
	sem     *kernel.Semaphore

	plan *contactplan.ContactPlan
	orig string

	hasCurrent  bool
	currentCID  int64
	currentRate float64
	currentOWLT int64

	future        map[int64][]*Record
	futureBacklog map[int64]float64
}

// NewManager returns a Manager for neighbor, whose contact windows are
// read from plan's orig->neighbor contacts.
func NewManager(k *kernel.Kernel, parent Parent, orig, neighbor string, plan *contactplan.ContactPlan) *Manager {
	return &Manager{
		k:             k,
		parent:        parent,
		neighbor:      neighbor,
		queue:         newOverbookableQueue(k),
		putLock:       kernel.NewLock(k),
		sem:           kernel.NewSemaphore(k),
		plan:          plan,
		orig:          orig,
		currentCID:    -1,
		future:        make(map[int64][]*Record),
		futureBacklog: make(map[int64]float64),
	}
}

// CurrentCID implements duct.ContactSource: the contact id this
// manager is currently admitting traffic through, or -1 if none.
func (m *Manager) CurrentCID(string) int64 {
	if !m.hasCurrent {
		return -1
	}
	return m.currentCID
}

// Stored is the bit backlog currently resident in the queue (§12
// report surface, "in_outduct"/queue depth accounting).
func (m *Manager) Stored() float64 { return m.queue.backlog }

// FutureBacklog reports the bit volume already deferred for contact
// cid's future window — what the lookup router's try_route_list uses
// as a neighbor's starting backlog when the contact it's evaluating
// isn't the currently open one (DtnLookupRouter.try_route_list's
// `mngr.future_backlog[contact['cid']]`).
func (m *Manager) FutureBacklog(cid int64) float64 { return m.futureBacklog[cid] }

// Run starts the contact monitor and the extraction loop.
func (m *Manager) Run(k *kernel.Kernel) {
	m.connectionMonitor(k, 0)
	m.queueExtractor(k)
}

// Put is the node's entry point for handing this manager a routing
// decision. If rec isn't routed through the currently open contact, it
// is deferred into that contact's future backlog until it opens
// (§4.E put).
func (m *Manager) Put(rec *Record) {
	cid := rec.ContactCID
	if cid < 0 {
		cid = m.CurrentCID(m.neighbor)
	}
	if !m.hasCurrent || cid != m.currentCID {
		m.future[cid] = append(m.future[cid], rec)
		m.futureBacklog[cid] += rec.Bundle.DataVol
		return
	}
	m.doPut(rec)
}

// doPut serializes admission through the put-lock so that the
// capacity check and decrement in overbookableQueue.Put form one
// atomic step (§4.E, §5's put-lock note), then re-routes any bulk
// records makeRoom displaced.
func (m *Manager) doPut(rec *Record) {
	m.putLock.Acquire(func() {
		admitted, displaced := m.queue.Put(rec)
		for _, d := range displaced {
			m.reroute(d, bundle.DropReasonOverbooked)
		}
		if !admitted {
			m.reroute(rec, bundle.DropReasonOverbooked)
		}
		m.putLock.Release()
	})
}

// send implements §4.E's transmit-overdue check and fragmentation: a
// record whose optimistic reception time has already blown past its
// route's validity is rerouted outright; one that still fits but
// exceeds the window's remaining bit budget is split, with the unsent
// remainder re-queued for a later attempt.
func (m *Manager) send(rec *Record) {
	vol := rec.Bundle.DataVol
	trx := m.k.Now() + int64(vol/m.currentRate) + m.currentOWLT
	if trx > rec.RouteTEnd {
		m.reroute(rec, bundle.DropReasonTransmitOverdue)
		return
	}

	avail, ok := m.queue.Capacity()
	if !ok {
		m.reroute(rec, bundle.DropReasonTransmitOverdue)
		return
	}

	if avail < vol {
		tail := &Record{
			Bundle:     withDataVol(rec.Bundle, vol-avail),
			Priority:   rec.Priority,
			ContactCID: rec.ContactCID,
			RouteTEnd:  rec.RouteTEnd,
		}
		rec.Bundle = withDataVol(rec.Bundle, avail)
		m.queue.PutRaw(tail)
	}

	m.parent.ForwardToOutduct(m.neighbor, rec)
}

// withDataVol returns a copy of b carrying a different data volume,
// used by send's transmit-overdue fragmentation to split a bundle into
// a head that fits the remaining window and a tail re-queued for
// later — both keep the same bundle/copy identity, since this is
// link-level byte splitting, not the copy-on-criticality mechanism
// bundle.Bundle.Copy implements.
func withDataVol(b *bundle.Bundle, vol float64) *bundle.Bundle {
	cp := *b
	cp.DataVol = vol
	return &cp
}

// reroute credits transmit-overdue capacity back, informs the router
// of the failure if it cares, and hands the bundle to the node's
// limbo excluding the contact(s) this attempt already tried
// (§4.E reroute, §7 "overbook rejection"/"transmit overdue").
func (m *Manager) reroute(rec *Record, reason string) {
	if reason == bundle.DropReasonTransmitOverdue {
		m.queue.AddCapacity(rec.Bundle.DataVol)
	}
	m.parent.RouteFailed(rec)

	var cids []int64
	if m.hasCurrent {
		cids = append(cids, m.currentCID)
	}
	if !m.hasCurrent || m.currentCID != rec.ContactCID {
		cids = append(cids, rec.ContactCID)
	}
	m.parent.LimboExcluding(rec.Bundle, cids)
}

// connectionMonitor drives the contact open/close schedule from the
// contact plan, grounded in DtnCgrNeighborManager.connection_monitor.
func (m *Manager) connectionMonitor(k *kernel.Kernel, idx int) {
	contacts := m.plan.Between(m.orig, m.neighbor)
	if idx >= len(contacts) {
		return
	}
	c := contacts[idx]
	delay := c.TStart - k.Now()
	if delay < 0 {
		delay = 0
	}
	k.After(delay, func(k *kernel.Kernel) {
		m.hasCurrent = true
		m.currentCID = c.CID
		m.currentRate = c.Rate
		m.currentOWLT = c.Range
		m.queue.Open(c.Capacity, c.Rate, c.TEnd)

		m.vacateBacklog()
		m.sem.TurnGreen()

		k.After(c.Duration(), func(k *kernel.Kernel) {
			m.hasCurrent = false
			m.currentCID = -1
			m.queue.Close()
			m.sem.TurnRed()
			m.connectionMonitor(k, idx+1)
		})
	})
}

// vacateBacklog moves every record deferred for the now-current
// contact into the admission-checked queue.
func (m *Manager) vacateBacklog() {
	pending, ok := m.future[m.currentCID]
	if !ok {
		return
	}
	delete(m.future, m.currentCID)
	delete(m.futureBacklog, m.currentCID)
	for _, rec := range pending {
		m.doPut(rec)
	}
}

// queueExtractor pops the highest-priority record once the outduct
// semaphore is green, dispatches it through send, then throttles for
// as long as the link needs to carry it (§4.E extractor: "suspend for
// data_vol/current_rate").
func (m *Manager) queueExtractor(k *kernel.Kernel) {
	if !m.parent.IsAlive() {
		return
	}
	m.sem.WaitGreen(func() {
		m.queue.Get(func(rec *Record) {
			rate := m.currentRate
			m.send(rec)
			// send may have fragmented rec.Bundle down to just the
			// portion that fit; throttle on what actually went out,
			// matching the source's in-place data_vol mutation.
			k.After(int64(rec.Bundle.DataVol/rate), func(k *kernel.Kernel) {
				m.queueExtractor(k)
			})
		})
	})
}
