package radio

import (
	"math"
	"sort"

	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/kernel"
)

// RateStep is one point in a per-destination data-rate time series: the
// rate in effect from Time until the next step's Time (or forever, for
// the last step).
type RateStep struct {
	Time int64
	Rate float64 // bits/sec; 0 means the link is inactive during this step
}

// RateSeries is a neighbor's rate-vs-time series, sorted by Time.
type RateSeries struct {
	Steps []RateStep
}

// NewRateSeries sorts and returns a RateSeries over steps.
func NewRateSeries(steps []RateStep) *RateSeries {
	sorted := append([]RateStep(nil), steps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return &RateSeries{Steps: sorted}
}

func (s *RateSeries) rateAt(t int64) float64 {
	rate := 0.0
	for _, step := range s.Steps {
		if step.Time > t {
			break
		}
		rate = step.Rate
	}
	return rate
}

// nextChangeAfter returns the earliest step time strictly after t, if any.
func (s *RateSeries) nextChangeAfter(t int64) (int64, bool) {
	for _, step := range s.Steps {
		if step.Time > t {
			return step.Time, true
		}
	}
	return 0, false
}

// Variable is a variable-rate radio: each destination has its own
// RateSeries and an active/inactive semaphore. Grounded in
// NwcVariableRadio.run (wait for neighbor activation, compute tx time,
// apply delay, send) with the missing get_tx_time algorithm specified
// by §4.C's prose ("integrates bits across rate steps starting at now,
// waiting through any zero-rate intervals").
type Variable struct {
	queue   *kernel.Queue[Item]
	conns   map[string]connection.Connection
	series  map[string]*RateSeries
	active  map[string]*kernel.Semaphore
	ber     float64
	jPerBit float64
	energy  float64
}

// NewVariableRadio returns a Variable radio. series and active must be
// populated (via SetSeries/SetActive) before Run is called for any
// neighbor that will receive traffic.
func NewVariableRadio(k *kernel.Kernel, conns map[string]connection.Connection, ber, jPerBit float64) *Variable {
	return &Variable{
		queue:   kernel.NewQueue[Item](k, 0),
		conns:   conns,
		series:  make(map[string]*RateSeries),
		active:  make(map[string]*kernel.Semaphore),
		ber:     ber,
		jPerBit: jPerBit,
	}
}

// SetSeries installs the rate-vs-time series for neighbor.
func (r *Variable) SetSeries(neighbor string, series *RateSeries) {
	r.series[neighbor] = series
}

// activeFor returns (creating if needed) the semaphore gating
// transmission to neighbor.
func (r *Variable) activeFor(k *kernel.Kernel, neighbor string) *kernel.Semaphore {
	sem, ok := r.active[neighbor]
	if !ok {
		sem = kernel.NewSemaphore(k)
		r.active[neighbor] = sem
	}
	return sem
}

// SetActive flips whether neighbor is currently in view. No duct or
// neighbor manager in this module calls it, so a neighbor counts as in
// view only once a caller has set it active here.
func (r *Variable) SetActive(k *kernel.Kernel, neighbor string, active bool) {
	sem := r.activeFor(k, neighbor)
	if active {
		sem.TurnGreen()
	} else {
		sem.TurnRed()
	}
}

func (r *Variable) Put(k *kernel.Kernel, item Item) {
	r.queue.Put(item, nil)
}

func (r *Variable) Run(k *kernel.Kernel) {
	r.drainNext(k)
}

func (r *Variable) Energy() float64 { return r.energy }

// Rate has no single nominal value for a per-destination time series;
// datarate reporting for a Variable radio should read its RateSeries
// directly instead.
func (r *Variable) Rate() float64 { return 0 }

func (r *Variable) drainNext(k *kernel.Kernel) {
	r.queue.Get(func(item Item) {
		r.activeFor(k, item.Neighbor).WaitGreen(func() {
			series := r.series[item.Neighbor]
			r.transmitBits(k, series, item, item.Message.NumBits())
		})
	})
}

// transmitBits walks the neighbor's rate series from k.Now(), consuming
// remaining bits against each step's rate until enough time has
// elapsed, waiting (via kernel.At, not blocking) through any zero-rate
// interval.
func (r *Variable) transmitBits(k *kernel.Kernel, series *RateSeries, item Item, remaining float64) {
	now := k.Now()
	rate := series.rateAt(now)
	nextChange, hasNext := series.nextChangeAfter(now)

	if rate <= 0 {
		if !hasNext {
			return // misconfigured series: never becomes active again
		}
		k.At(nextChange, func(k *kernel.Kernel) { r.transmitBits(k, series, item, remaining) })
		return
	}

	if hasNext {
		stepBudget := rate * float64(nextChange-now)
		if stepBudget < remaining {
			k.At(nextChange, func(k *kernel.Kernel) { r.transmitBits(k, series, item, remaining-stepBudget) })
			return
		}
	}

	dt := int64(math.Ceil(remaining / rate))
	k.After(dt, func(k *kernel.Kernel) {
		r.energy += item.Message.NumBits() * r.jPerBit
		r.sendThroughConnection(k, item)
		r.drainNext(k)
	})
}

func (r *Variable) sendThroughConnection(k *kernel.Kernel, item Item) {
	conn, ok := r.conns[item.Neighbor]
	if !ok {
		return
	}
	conn.Transmit(k, item.Peer, item.Message, r.ber, item.Direction)
}
