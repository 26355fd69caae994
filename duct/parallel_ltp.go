package duct

import (
	"sort"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/kernel"
)

// ParallelOutduct replicates every outbound bundle across N
// independent LTP engines and tallies each engine's outcome: a success
// is only counted (nothing is put on this duct's successQueue or
// reported to the node), and a bundle is handed to the parent's Limbo
// only once every engine has failed it — grounded in DtnAbstractDuctParallelLTP/DtnOutductParallelLTP.
//
// The source constructs both halves of every engine locally and wires
// an induct's parent pointer straight at the remote ParallelLTP duct,
// a simulation-only shortcut that depends on both ends of a link
// living in the same process. This package keeps node-to-node wiring
// explicit (§9's general redesign direction away from reach-throughs),
// so ParallelOutduct only replicates sends; dedup on the receiving end
// is ParallelInduct's job, wired to the real node separately.
type ParallelOutduct struct {
	baseDuct[*bundle.Bundle]

	engineOrder []string
	engineMap   map[string]*LTPOutduct
	status      map[bundle.Key]*parallelStatus
}

type parallelStatus struct {
	success, failure, total int
}

// NewParallelOutduct returns an empty ParallelOutduct; call
// WireParallelEngine once per underlying LTP engine before Run.
func NewParallelOutduct(k *kernel.Kernel, parent Parent, contacts ContactSource, neighbor string) *ParallelOutduct {
	return &ParallelOutduct{
		baseDuct: newBaseDuct[*bundle.Bundle](k, parent, contacts, neighbor),
		status:   make(map[bundle.Key]*parallelStatus),
	}
}

// WireParallelEngine attaches engine as one of po's parallel LTP
// sessions: engine's own success/failure notifications are redirected
// into po's per-bundle tally instead of going straight to engine's
// parent, the Go analogue of DtnAbstractDuctParallelLTP's
// success_manager/fail_manager override. This only works for an LTP
// (or MBLTP) outduct engine, matching the source's own constraint that
// "only an LTP outduct defined under the parallel duct" can be used —
// wiring a BasicOutduct here would leave radio energy unreported
// through po.radios, which this type does not expose at all (callers
// should read each engine's radios directly).
func WireParallelEngine(po *ParallelOutduct, name string, engine *LTPOutduct) {
	engine.onSuccess = func(b *bundle.Bundle) { po.recordSuccess(b) }
	engine.failHook = func(b *bundle.Bundle, cid int64) { po.recordFailure(b, cid) }
	po.engineOrder = append(po.engineOrder, name)
	sort.Strings(po.engineOrder)
	po.engines()[name] = engine
}

// engines backs the name->engine map lazily so WireParallelEngine can
// be called before or after NewParallelOutduct populates other state.
func (d *ParallelOutduct) engines() map[string]*LTPOutduct {
	if d.engineMap == nil {
		d.engineMap = make(map[string]*LTPOutduct)
	}
	return d.engineMap
}

func (d *ParallelOutduct) TotalDatarate(dest string) float64 {
	var total float64
	for _, e := range d.engineMap {
		total += e.TotalDatarate(dest)
	}
	return total
}

func (d *ParallelOutduct) Run(k *kernel.Kernel) {
	d.drain(k)
}

// drain implements DtnOutductParallelLTP.run: every bundle is sent
// through every wired engine, unmodified (no per-engine copy in the
// source either).
func (d *ParallelOutduct) drain(k *kernel.Kernel) {
	if !d.alive {
		return
	}
	d.inQueue.Get(func(b *bundle.Bundle) {
		d.status[b.Key()] = &parallelStatus{total: len(d.engineOrder)}
		for _, name := range d.engineOrder {
			d.engineMap[name].Send(b)
		}
		d.drain(k)
	})
}

func (d *ParallelOutduct) recordSuccess(b *bundle.Bundle) {
	st := d.status[b.Key()]
	if st == nil {
		return
	}
	st.success++
	if st.success+st.failure == st.total {
		delete(d.status, b.Key())
	}
}

func (d *ParallelOutduct) recordFailure(b *bundle.Bundle, cid int64) {
	st := d.status[b.Key()]
	if st == nil {
		return
	}
	st.failure++
	if st.success == 0 && st.failure == st.total {
		d.parent.Limbo(b, cid)
	}
	if st.success+st.failure == st.total {
		delete(d.status, b.Key())
	}
}

// ParallelInduct is the Parent every sub-engine's LTPInduct forwards
// into: the first engine to finish reassembling a given bundle
// delivers it to the real node; every later delivery of the same
// bundle by another engine is discarded once all engines have reported
// — grounded in DtnInductParallelLTP.forward/do_forward/run_fwd_handler.
type ParallelInduct struct {
	k          *kernel.Kernel
	realParent Parent
	numEngines int
	handlers   map[bundle.Key]*kernel.Queue[*bundle.Bundle]
}

// NewParallelInduct returns a ParallelInduct that forwards the first
// delivery of each distinct bundle to realParent as soon as it arrives,
// and forgets the bundle once numEngines deliveries of it have arrived.
func NewParallelInduct(k *kernel.Kernel, realParent Parent, numEngines int) *ParallelInduct {
	return &ParallelInduct{k: k, realParent: realParent, numEngines: numEngines, handlers: make(map[bundle.Key]*kernel.Queue[*bundle.Bundle])}
}

func (d *ParallelInduct) Run(*kernel.Kernel)           {}
func (d *ParallelInduct) TotalDatarate(string) float64 { return 0 }

// Forward is the Parent method every sub-induct calls on successful
// reassembly; only the first call per bundle reaches the real node.
func (d *ParallelInduct) Forward(b *bundle.Bundle) {
	key := b.Key()
	q, ok := d.handlers[key]
	if !ok {
		q = kernel.NewQueue[*bundle.Bundle](d.k, 0)
		d.handlers[key] = q
		d.runHandler(key, q)
	}
	q.Put(b, nil)
}

// Limbo is unreachable: a sub-induct never fails a bundle on its own
// (only the matching LTPOutduct engine can), so nothing ever calls it.
func (d *ParallelInduct) Limbo(*bundle.Bundle, int64) {}

func (d *ParallelInduct) runHandler(key bundle.Key, q *kernel.Queue[*bundle.Bundle]) {
	count := 0
	var step func()
	step = func() {
		q.Get(func(b *bundle.Bundle) {
			count++
			if count == 1 {
				d.realParent.Forward(b)
			}
			if count >= d.numEngines {
				delete(d.handlers, key)
				return
			}
			step()
		})
	}
	step()
}
