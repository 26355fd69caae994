package contactplan

import (
	"fmt"
	"math"
)

// Infinite is the sentinel used for "never closes" contact/sample windows
// (the source's float('inf') tstart/tend), kept finite so downstream
// arithmetic never produces NaN/Inf.
const Infinite int64 = math.MaxInt64 / 4

// MobilityModel produces a ContactPlan and, for distance-gated
// connections, a per-pair DistanceSeries (§4.B). Grounded in
// DtnAbstractMobilityModel: every concrete model has an Initialize step
// that is run once before the simulation starts and is idempotent.
type MobilityModel interface {
	Initialize() error
	ContactPlan() *ContactPlan
}

// Link describes one static topology edge a StaticMobilityModel turns
// into an always-open contact.
type Link struct {
	Orig, Dest string
	Rate       float64
}

// StaticMobilityModel fabricates one always-open contact per configured
// link, grounded in DtnStaticMobilityModel.initialize: every connection
// in the topology becomes a contact with tstart=0, tend=infinite, and
// range equal to the model's fixed propagation delay.
type StaticMobilityModel struct {
	Links     []Link
	PropDelay int64 // seconds, one-way

	plan *ContactPlan
}

func NewStaticMobilityModel(links []Link, propDelay int64) *StaticMobilityModel {
	return &StaticMobilityModel{Links: links, PropDelay: propDelay}
}

func (m *StaticMobilityModel) Initialize() error {
	contacts := make([]*Contact, 0, len(m.Links))
	for i, l := range m.Links {
		contacts = append(contacts, NewContact(int64(i), l.Orig, l.Dest, 0, Infinite, l.Rate, m.PropDelay))
	}
	plan, err := NewContactPlan(contacts)
	if err != nil {
		return fmt.Errorf("contactplan: static mobility model: %w", err)
	}
	m.plan = plan
	return nil
}

func (m *StaticMobilityModel) ContactPlan() *ContactPlan { return m.plan }

// ContactRecord is one raw row from a contact plan file or in-memory
// table (§6): `(orig, dest, tstart, tend, rate, range)`, prior to
// capacity derivation.
type ContactRecord struct {
	Orig, Dest     string
	TStart, TEnd   int64
	Rate           float64
	Range          int64
	EpochAbsolute  bool // if true, TStart/TEnd are converted via EpochRelative
}

// ScheduledMobilityModel builds a ContactPlan directly from pre-parsed
// records (loaded by the cmd/config layer from a contact/range file),
// grounded in DtnScheduledMobilityModel.initialize: take each record's
// own rate, derive capacity, validate non-negative tstart/tend/rate/range.
type ScheduledMobilityModel struct {
	Records []ContactRecord
	Epoch   int64

	plan *ContactPlan
}

func NewScheduledMobilityModel(records []ContactRecord, epoch int64) *ScheduledMobilityModel {
	return &ScheduledMobilityModel{Records: records, Epoch: epoch}
}

func (m *ScheduledMobilityModel) Initialize() error {
	contacts := make([]*Contact, 0, len(m.Records))
	for i, r := range m.Records {
		tstart, tend := r.TStart, r.TEnd
		if r.EpochAbsolute {
			tstart = EpochRelative(tstart, m.Epoch)
			tend = EpochRelative(tend, m.Epoch)
		}
		contacts = append(contacts, NewContact(int64(i), r.Orig, r.Dest, tstart, tend, r.Rate, r.Range))
	}
	plan, err := NewContactPlan(contacts)
	if err != nil {
		return fmt.Errorf("contactplan: scheduled mobility model: %w", err)
	}
	m.plan = plan
	return nil
}

func (m *ScheduledMobilityModel) ContactPlan() *ContactPlan { return m.plan }

// DistanceSample is one (time, distance) point in a pair's geometry
// series, grounded in DtnRandomWaypointMobilityModel.compute_distances.
type DistanceSample struct {
	Time     int64
	Distance float64 // meters
}

// DistanceSeries is the time-ordered distance samples for one (orig,
// dest) pair, used by the distance-gated connection variant (§4.B) to
// derive open intervals where distance <= max_distance.
type DistanceSeries struct {
	Samples []DistanceSample
}

// At returns the interpolated distance at time t (piecewise-linear
// between the bracketing samples; clamps to the series' endpoints).
func (s *DistanceSeries) At(t int64) float64 {
	if len(s.Samples) == 0 {
		return 0
	}
	if t <= s.Samples[0].Time {
		return s.Samples[0].Distance
	}
	last := s.Samples[len(s.Samples)-1]
	if t >= last.Time {
		return last.Distance
	}
	for i := 1; i < len(s.Samples); i++ {
		if s.Samples[i].Time >= t {
			a, b := s.Samples[i-1], s.Samples[i]
			if b.Time == a.Time {
				return b.Distance
			}
			frac := float64(t-a.Time) / float64(b.Time-a.Time)
			return a.Distance + frac*(b.Distance-a.Distance)
		}
	}
	return last.Distance
}

// OpenIntervals returns the maximal [start,end) runs where distance <=
// maxDistance, grounded in §4.B's distance-gated connection policy
// ("open intervals are maximal runs where distance <= max_distance").
func (s *DistanceSeries) OpenIntervals(maxDistance float64) [][2]int64 {
	var intervals [][2]int64
	var open bool
	var start int64
	for _, samp := range s.Samples {
		inRange := samp.Distance <= maxDistance
		switch {
		case inRange && !open:
			open = true
			start = samp.Time
		case !inRange && open:
			open = false
			intervals = append(intervals, [2]int64{start, samp.Time})
		}
	}
	if open {
		intervals = append(intervals, [2]int64{start, s.Samples[len(s.Samples)-1].Time})
	}
	return intervals
}

// MeanDistance returns the arithmetic mean of samples falling within
// [start, end), used to set a distance-gated connection's propagation
// delay for that interval (mean(distance)/c).
func (s *DistanceSeries) MeanDistance(start, end int64) float64 {
	var sum float64
	var n int
	for _, samp := range s.Samples {
		if samp.Time >= start && samp.Time < end {
			sum += samp.Distance
			n++
		}
	}
	if n == 0 {
		return s.At((start + end) / 2)
	}
	return sum / float64(n)
}

// DistanceGatedMobilityModel carries a precomputed per-pair distance
// series (e.g. from a random-waypoint or planned trajectory generator
// run once at scenario build time) alongside a degenerate always-open
// ContactPlan used only for rate/metadata lookups; the connection layer
// derives actual open/close behavior from the distance series.
type DistanceGatedMobilityModel struct {
	Links  []Link
	Series map[pairKey]*DistanceSeries

	plan *ContactPlan
}

func NewDistanceGatedMobilityModel(links []Link) *DistanceGatedMobilityModel {
	return &DistanceGatedMobilityModel{Links: links, Series: make(map[pairKey]*DistanceSeries)}
}

// SetSeries installs the distance series for one (orig,dest) pair.
func (m *DistanceGatedMobilityModel) SetSeries(orig, dest string, series *DistanceSeries) {
	m.Series[pairKey{orig, dest}] = series
}

func (m *DistanceGatedMobilityModel) Initialize() error {
	contacts := make([]*Contact, 0, len(m.Links))
	for i, l := range m.Links {
		contacts = append(contacts, NewContact(int64(i), l.Orig, l.Dest, 0, Infinite, l.Rate, 0))
	}
	plan, err := NewContactPlan(contacts)
	if err != nil {
		return fmt.Errorf("contactplan: distance-gated mobility model: %w", err)
	}
	m.plan = plan
	return nil
}

func (m *DistanceGatedMobilityModel) ContactPlan() *ContactPlan { return m.plan }

// DistanceSeriesFor returns the installed series for (orig,dest), or nil.
func (m *DistanceGatedMobilityModel) DistanceSeriesFor(orig, dest string) *DistanceSeries {
	return m.Series[pairKey{orig, dest}]
}
