// Package report implements post-run aggregation and the conservation/
// data-volume invariant checks (§4.L, §8): a set of named result
// tables by alias (sent, arrived, dropped, lost, stored, in_radio,
// in_outduct, in_limbo, node_in_queue, routing_calls, energy) plus the
// checks §8 requires every run to satisfy.
package report

import "github.com/dtnsim/dtnsim/bundle"

// Row is one lifecycle record in a result table: the fields every
// named table (§6 "Result outputs") shares regardless of which event
// produced it.
type Row struct {
	BundleID   uint64
	CopyID     uint32
	FlowID     uint64
	Orig, Dest string
	DataType   string
	DataVol    float64
	Priority   int
	Critical   bool
	CreatedAt  int64
	EventAt    int64
	Reason     string // drop/loss reason, empty for sent/arrived
}

// EnergyRow is one radio's transmit-energy sample (§12 "Energy
// accounting"): node, radio, and joules spent for one transmission.
type EnergyRow struct {
	Node   string
	Radio  string
	Joules float64
}

// Report aggregates every named output table for one simulation run
// (§6). It has no file-format knowledge of its own: HDF5/Excel/CSV
// export (§1 Non-goals, §6) are external collaborators that read these
// slices back out.
type Report struct {
	Sent        []Row
	Arrived     []Row
	Dropped     []Row
	Lost        []Row
	Stored      []Row
	InRadio     []Row
	InOutduct   []Row
	InLimbo     []Row
	NodeInQueue []Row
	RoutingCall []Row
	Energy      []EnergyRow
}

// New returns an empty Report.
func New() *Report { return &Report{} }

func rowOf(b *bundle.Bundle, now int64, reason string) Row {
	return Row{
		BundleID:  b.BundleID,
		CopyID:    b.CopyID,
		FlowID:    b.FlowID,
		Orig:      b.Orig,
		Dest:      b.Dest,
		DataType:  b.DataType,
		DataVol:   b.DataVol,
		Priority:  b.Priority,
		Critical:  b.Critical,
		CreatedAt: b.CreationTime,
		EventAt:   now,
		Reason:    reason,
	}
}

// RecordSent appends a "sent" row for a freshly originated bundle copy.
func (r *Report) RecordSent(b *bundle.Bundle, now int64) {
	r.Sent = append(r.Sent, rowOf(b, now, ""))
}

// RecordArrived appends an "arrived" row.
func (r *Report) RecordArrived(b *bundle.Bundle) {
	r.Arrived = append(r.Arrived, rowOf(b, b.ArrivalTime, ""))
}

// RecordDropped appends a "dropped" row, reading the reason already
// set on b by whichever component called bundle.Bundle.Drop.
func (r *Report) RecordDropped(b *bundle.Bundle, now int64) {
	r.Dropped = append(r.Dropped, rowOf(b, now, b.DropReason))
}

// RecordLost appends a "lost" row (§7: a transmission while the
// underlying connection was closed — connection.LossRecorder's
// terminal outcome).
func (r *Report) RecordLost(b *bundle.Bundle, now int64) {
	r.Lost = append(r.Lost, rowOf(b, now, "connection_closed"))
}

// RecordStored appends a "stored" row for a bundle still resident
// somewhere in the system at shutdown (§3 "exactly one terminal state
// per copy — arrived, dropped, or stored at shutdown").
func (r *Report) RecordStored(b *bundle.Bundle, now int64) {
	r.Stored = append(r.Stored, rowOf(b, now, ""))
}

// RecordEnergy appends one radio transmit-energy sample.
func (r *Report) RecordEnergy(node, radio string, joules float64) {
	r.Energy = append(r.Energy, EnergyRow{Node: node, Radio: radio, Joules: joules})
}

// ConservationResult is the outcome of Conservation(): counts by
// (bid,cid) per §8 property 1, "|sent| = |arrived| + |dropped| +
// |lost| + |stored|".
type ConservationResult struct {
	Sent, Arrived, Dropped, Lost, Stored int
	OK                                   bool
	MissingKeys                          []bundle.Key // sent but accounted nowhere
}

// Conservation checks §8 property 1 by counting distinct (bid,cid)
// keys in each table rather than row counts, so a table that
// accidentally double-appends the same copy doesn't mask a real
// imbalance.
func (r *Report) Conservation() ConservationResult {
	sentKeys := keySet(r.Sent)
	accounted := make(map[bundle.Key]bool, len(sentKeys))
	for _, k := range keySet(r.Arrived) {
		accounted[k] = true
	}
	for _, k := range keySet(r.Dropped) {
		accounted[k] = true
	}
	for _, k := range keySet(r.Lost) {
		accounted[k] = true
	}
	for _, k := range keySet(r.Stored) {
		accounted[k] = true
	}

	var missing []bundle.Key
	for k := range sentKeys {
		if !accounted[k] {
			missing = append(missing, k)
		}
	}

	return ConservationResult{
		Sent:        len(sentKeys),
		Arrived:     len(keySet(r.Arrived)),
		Dropped:     len(keySet(r.Dropped)),
		Lost:        len(keySet(r.Lost)),
		Stored:      len(keySet(r.Stored)),
		OK:          len(missing) == 0,
		MissingKeys: missing,
	}
}

func keySet(rows []Row) map[bundle.Key]bool {
	s := make(map[bundle.Key]bool, len(rows))
	for _, row := range rows {
		s[bundle.Key{BundleID: row.BundleID, CopyID: row.CopyID}] = true
	}
	return s
}

// FlowVolume sums DataVol for every row of the given table belonging
// to flowID — used by §8 properties 2/3 (non-critical flow volume
// equality, critical flow volume >= sent).
func FlowVolume(rows []Row, flowID uint64) float64 {
	var total float64
	for _, row := range rows {
		if row.FlowID == flowID {
			total += row.DataVol
		}
	}
	return total
}
