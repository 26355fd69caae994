package duct

import (
	"hash/fnv"
	"math"
	"sort"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/kernel"
	"github.com/dtnsim/dtnsim/radio"
)

// LTPOutduct is the deferred-ack LTP/MBLTP sending side (§4.D.2):
// bundles are aggregated into a block by a size/time limit, split into
// Data Segments, sent through every configured band, and retransmitted
// on checkpoint timeout until a Report Segment covers the whole block
// or the session is cancelled. Passing more than one band name (with
// sequential session ids) is what makes this an MBLTP outduct rather
// than a plain LTP one — see NewMBLTPOutduct.
//
// Grounded in DtnOutductLTP/DtnOutductMBLTP.run/run_ltp_session.
type LTPOutduct struct {
	baseDuct[*bundle.Bundle]

	cfg       LTPConfig
	bandNames []string
	radios    map[string]radio.Radio
	peer      connection.Peer // the paired induct

	sequential bool // MBLTP needs sequential, not hash-derived, session ids
	sidCounter int64

	sessions map[int64]*outductSession
}

// sessionTimeout is the §4.D.2 step 7 / §7 session-level force-cancel
// timer: 24 hours of simulated time, grounded in
// DtnOutductLTP.start_session_timer's `yield self.env.timeout(24*60*60)`.
const sessionTimeout = 24 * 60 * 60

type outductSession struct {
	block             []*bundle.Bundle
	size              int64
	queue             *kernel.PriorityQueue[*bundle.Segment]
	checkpointCounter int64
	currentCheckpoint *bundle.Segment
}

// NewLTPOutduct returns an LTPOutduct sending over bandNames (one name
// for plain LTP, several for MBLTP), using radios[name] for each band.
// sequential selects MBLTP's sequential session-id counter over plain
// LTP's hash-derived id (DtnAbstractDuctLTP.get_session_id vs
// DtnAbstractDuctMBLTP.get_session_id).
func NewLTPOutduct(k *kernel.Kernel, parent Parent, contacts ContactSource, neighbor string,
	cfg LTPConfig, bandNames []string, radios map[string]radio.Radio, peer connection.Peer, sequential bool) *LTPOutduct {
	names := append([]string(nil), bandNames...)
	sort.Strings(names)
	return &LTPOutduct{
		baseDuct:   newBaseDuct[*bundle.Bundle](k, parent, contacts, neighbor),
		cfg:        cfg,
		bandNames:  names,
		radios:     radios,
		peer:       peer,
		sequential: sequential,
		sessions:   make(map[int64]*outductSession),
	}
}

func (d *LTPOutduct) TotalDatarate(string) float64 {
	var total float64
	for _, r := range d.radios {
		total += r.Rate()
	}
	return total
}

func (d *LTPOutduct) Run(k *kernel.Kernel) {
	d.runFailManager()
	d.runSuccessManager()
	d.aggregate(k, 0, 0, nil)
}

// aggregate implements DtnOutductLTP/DtnOutductMBLTP.run's block
// aggregation loop: bundles accumulate until the size or time limit is
// hit, then a new LTP session is spawned to carry the block. Matching
// the source exactly, lastBlockTime resets to 0 (not the current
// clock) once a session starts.
func (d *LTPOutduct) aggregate(k *kernel.Kernel, curSize float64, lastBlockTime int64, cur []*bundle.Bundle) {
	if !d.alive {
		return
	}
	d.inQueue.Get(func(b *bundle.Bundle) {
		cur = append(cur, b)
		curSize += b.DataVol
		dt := k.Now() - lastBlockTime

		if curSize < d.cfg.AggSizeLimit && dt < d.cfg.AggTimeLimit {
			d.aggregate(k, curSize, lastBlockTime, cur)
			return
		}

		d.startSession(k, cur, int64(curSize))
		d.aggregate(k, 0, 0, nil)
	})
}

func (d *LTPOutduct) startSession(k *kernel.Kernel, block []*bundle.Bundle, size int64) {
	sid := d.nextSessionID(block)
	sess := &outductSession{
		block: block,
		size:  size,
		queue: kernel.NewPriorityQueue[*bundle.Segment](k, 0),
	}
	d.sessions[sid] = sess

	segs, checkpoint := d.newBlockSegments(sid, sess)
	sess.currentCheckpoint = checkpoint
	d.sendSegments(k, sid, checkpoint, segs)
	d.waitReport(k, sid, sess, 0, make(map[int64]bool))
	d.armSessionTimer(k, sid)
}

// armSessionTimer is the §4.D.2 step 7 / §7 session-level timer: if
// sid is still open 24 simulated hours after it started, force-cancel
// it exactly as a received Cancel Segment would, so a session whose
// reports are lost forever (peer permanently unreachable) still
// terminates and routes its block to limbo instead of leaking session
// state for the rest of the run.
func (d *LTPOutduct) armSessionTimer(k *kernel.Kernel, sid int64) {
	k.After(sessionTimeout, func(k *kernel.Kernel) {
		d.cancelSession(sid)
	})
}

// nextSessionID picks a sequential counter for MBLTP (session ids must
// be monotonic so the induct can tell a segment for an
// already-completed session from one for a brand-new one) or a
// collision-checked hash over the block's bundle identities for plain
// LTP, the Go rendering of get_session_id's hash-of-block-then-retry.
func (d *LTPOutduct) nextSessionID(block []*bundle.Bundle) int64 {
	if d.sequential {
		d.sidCounter++
		return d.sidCounter
	}
	h := fnv.New64a()
	for _, b := range block {
		var buf [12]byte
		putUint64(buf[0:8], b.BundleID)
		putUint32(buf[8:12], b.CopyID)
		h.Write(buf[:])
	}
	sid := int64(h.Sum64() & math.MaxInt64)
	for {
		if _, exists := d.sessions[sid]; !exists {
			return sid
		}
		sid++
	}
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func putUint32(b []byte, v uint32) {
	for i := 3; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func (d *LTPOutduct) newBlockSegments(sid int64, sess *outductSession) ([]*bundle.Segment, *bundle.Segment) {
	n := int64(math.Ceil(float64(sess.size) / float64(d.cfg.SegmentSize)))
	if n == 0 {
		n = 1
	}
	segs := make([]*bundle.Segment, n)
	for i := int64(0); i < n; i++ {
		s := bundle.NewDataSegment(sid, i*d.cfg.SegmentSize, d.cfg.SegmentSize)
		segs[i] = &s
	}
	sess.checkpointCounter++
	last := segs[n-1]
	last.HasCheckpoint = true
	last.CheckpointID = sess.checkpointCounter
	last.Payload = sess.block
	return segs, last
}

// missingBlockSegments regenerates Data Segments for the gaps a Report
// Segment's claims leave uncovered (DtnOutductLTP.get_missing_block_segments).
func (d *LTPOutduct) missingBlockSegments(sid int64, sess *outductSession, report *bundle.Segment) ([]*bundle.Segment, *bundle.Segment) {
	claims := append([]bundle.Claim(nil), report.Claims...)
	sort.Slice(claims, func(i, j int) bool { return claims[i].Offset < claims[j].Offset })
	gaps := missingIntervals(report.LowerBound, report.UpperBound, claims)

	var segs []*bundle.Segment
	for _, g := range gaps {
		n := (g[1] - g[0]) / d.cfg.SegmentSize
		for i := int64(0); i < n; i++ {
			start := g[0] + i*d.cfg.SegmentSize
			s := bundle.NewDataSegment(sid, start, d.cfg.SegmentSize)
			s.HasReportID = true
			s.ReportID = report.ReportSerial
			segs = append(segs, &s)
		}
	}
	if len(segs) == 0 {
		return segs, sess.currentCheckpoint
	}
	sess.checkpointCounter++
	last := segs[len(segs)-1]
	last.HasCheckpoint = true
	last.CheckpointID = sess.checkpointCounter
	return segs, last
}

func (d *LTPOutduct) sendSegments(k *kernel.Kernel, sid int64, checkpoint *bundle.Segment, segs []*bundle.Segment) {
	for _, s := range segs {
		d.sendThroughAllBands(s)
	}
	d.armCheckpointTimer(k, sid, checkpoint)
}

func (d *LTPOutduct) armCheckpointTimer(k *kernel.Kernel, sid int64, checkpoint *bundle.Segment) {
	k.After(d.cfg.CheckpointTimer, func(k *kernel.Kernel) {
		sess, ok := d.sessions[sid]
		if !ok {
			return
		}
		if sess.currentCheckpoint.CheckpointID != checkpoint.CheckpointID {
			return
		}
		checkpoint.HasErrors = false
		d.sendThroughAllBands(checkpoint)
		d.armCheckpointTimer(k, sid, checkpoint)
	})
}

func (d *LTPOutduct) waitReport(k *kernel.Kernel, sid int64, sess *outductSession, acked int64, seenReports map[int64]bool) {
	sess.queue.Get(func(report *bundle.Segment) {
		if report.HasErrors {
			d.waitReport(k, sid, sess, acked, seenReports)
			return
		}
		if report.Type == bundle.SegmentCancel {
			d.finishSession(sid, sess, false)
			return
		}
		if report.Type != bundle.SegmentReport {
			d.waitReport(k, sid, sess, acked, seenReports)
			return
		}
		if seenReports[report.ReportSerial] {
			d.waitReport(k, sid, sess, acked, seenReports)
			return
		}
		seenReports[report.ReportSerial] = true
		d.acknowledgeReport(sid, report)

		if total := sumClaims(report.Claims); total > acked {
			acked = total
		}
		if acked >= sess.size {
			d.finishSession(sid, sess, true)
			return
		}

		segs, checkpoint := d.missingBlockSegments(sid, sess, report)
		sess.currentCheckpoint = checkpoint
		d.sendSegments(k, sid, checkpoint, segs)
		d.waitReport(k, sid, sess, acked, seenReports)
	})
}

func (d *LTPOutduct) finishSession(sid int64, sess *outductSession, success bool) {
	delete(d.sessions, sid)
	if success {
		for _, b := range sess.block {
			d.successQueue.Put(b, nil)
		}
		return
	}
	for _, b := range sess.block {
		d.toLimbo.Put(b, nil)
	}
}

func (d *LTPOutduct) acknowledgeReport(sid int64, report *bundle.Segment) {
	ack := bundle.NewReportAck(sid, report.ReportSerial)
	d.sendThroughAllBands(&ack)
}

// sendThroughAllBands sends a copy of segment through every configured
// band, grounded in DtnOutductMBLTP.send_through_all (a deep copy per
// band beyond the first, so retransmission state never aliases across
// bands).
func (d *LTPOutduct) sendThroughAllBands(segment *bundle.Segment) {
	for i, name := range d.bandNames {
		s := segment
		if i > 0 {
			cp := *segment
			cp.Claims = append([]bundle.Claim(nil), segment.Claims...)
			s = &cp
		}
		d.radios[name].Put(d.k, radio.Item{Neighbor: d.neighbor, Message: s, Peer: d.peer, Direction: connection.DirForward})
	}
}

// Ack receives a Report Segment or Report-Ack acknowledgement routed
// back from the induct through the ack direction, re-implementing
// DtnOutductLTP.do_ack.
func (d *LTPOutduct) Ack(msg connection.Message) {
	report, ok := msg.(*bundle.Segment)
	if !ok {
		return
	}
	sess, ok := d.sessions[report.SessionID]
	if !ok {
		// This session already finished on our side — most likely our
		// report-ack was lost and the induct resent its last Report
		// Segment after its report timer expired. Just ack it again
		// without reopening any state.
		d.acknowledgeReport(report.SessionID, report)
		return
	}
	sess.queue.Put(report, 1, false, nil)
}

// RecordLost implements connection.LossRecorder: a segment this
// outduct sent was dropped because the connection had closed. This is
// the stand-in for DtnAbstractRadio signalling a transmission error to
// radio_error, generalized to "the connection lost it" since this
// radio model does not have a separate hard-failure channel.
func (d *LTPOutduct) RecordLost(msg connection.Message) {
	seg, ok := msg.(*bundle.Segment)
	if !ok {
		return
	}
	d.cancelSession(seg.SessionID)
}

func (d *LTPOutduct) cancelSession(sid int64) {
	sess, ok := d.sessions[sid]
	if !ok {
		return
	}
	cancel := bundle.NewCancelSegment(sid)
	sess.queue.Put(&cancel, 0, false, nil)
}
