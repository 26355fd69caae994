package duct

import (
	"sort"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/kernel"
	"github.com/dtnsim/dtnsim/radio"
)

// LTPInduct is the deferred-ack LTP/MBLTP receiving side (§4.D.2):
// segments are routed to a per-session reassembly loop keyed by
// session id, reception claims accumulate across checkpoints, and a
// Report Segment is issued — and re-sent on a timer until
// acknowledged — every time a checkpoint arrives. Passing more than
// one band name (with sequential session-id gating) is what makes this
// an MBLTP induct; see NewMBLTPInduct.
//
// Grounded in DtnInductLTP/DtnInductMBLTP.run/run_ltp_session.
type LTPInduct struct {
	baseDuct[*bundle.Segment]

	cfg       LTPConfig
	bandNames []string
	radios    map[string]radio.Radio
	peer      connection.Peer // the paired outduct

	sequential bool // MBLTP: only open sessions with strictly increasing ids
	lastSID    int64

	sessions map[int64]*inductSession
}

type inductSession struct {
	queue         *kernel.PriorityQueue[*bundle.Segment]
	reportCounter int64
	pendingAck    map[int64]*bundle.Segment
}

type inductState struct {
	seenFirstCheckpoint bool
	toReceive           int64
	received            []bundle.Claim
	rxCheckpoints       map[int64]bool
	delivered           bool
	payload             []*bundle.Bundle
	rs                  *bundle.Segment
	lastRS              *bundle.Segment
}

// NewLTPInduct returns an LTPInduct receiving over bandNames, using
// radios[name] for each band's outgoing Report Segment traffic.
func NewLTPInduct(k *kernel.Kernel, parent Parent, contacts ContactSource, neighbor string,
	cfg LTPConfig, bandNames []string, radios map[string]radio.Radio, peer connection.Peer, sequential bool) *LTPInduct {
	names := append([]string(nil), bandNames...)
	sort.Strings(names)
	return &LTPInduct{
		baseDuct:   newBaseDuct[*bundle.Segment](k, parent, contacts, neighbor),
		cfg:        cfg,
		bandNames:  names,
		radios:     radios,
		peer:       peer,
		sequential: sequential,
		lastSID:    -1,
		sessions:   make(map[int64]*inductSession),
	}
}

// SetPeer wires the paired outduct after both halves of an LTP link
// have been constructed (the two constructors are mutually
// referential: an induct's Report Segments target the outduct, whose
// own construction takes the induct as its peer).
func (d *LTPInduct) SetPeer(peer connection.Peer) { d.peer = peer }

func (d *LTPInduct) TotalDatarate(string) float64 {
	var total float64
	for _, r := range d.radios {
		total += r.Rate()
	}
	return total
}

func (d *LTPInduct) Run(k *kernel.Kernel) {
	d.runFailManager()
	d.runSuccessManager()
	d.route(k)
}

// route implements DtnInductLTP/DtnInductMBLTP.run: every arriving
// segment opens a new session (if its id is unseen — for MBLTP, only
// if it is also greater than any session id already opened) and is
// handed to that session's reassembly loop.
func (d *LTPInduct) route(k *kernel.Kernel) {
	if !d.alive {
		return
	}
	d.inQueue.Get(func(seg *bundle.Segment) {
		sid := seg.SessionID
		if _, open := d.sessions[sid]; !open && (!d.sequential || sid > d.lastSID) {
			d.openSession(k, sid)
		}
		if sess, ok := d.sessions[sid]; ok {
			sess.queue.Put(seg, 1, false, nil)
		}
		d.route(k)
	})
}

func (d *LTPInduct) openSession(k *kernel.Kernel, sid int64) {
	sess := &inductSession{
		queue:      kernel.NewPriorityQueue[*bundle.Segment](k, 0),
		pendingAck: make(map[int64]*bundle.Segment),
	}
	d.sessions[sid] = sess
	if sid > d.lastSID {
		d.lastSID = sid
	}
	st := &inductState{toReceive: -1, rxCheckpoints: make(map[int64]bool), rs: blankReport(sid)}
	d.waitSegment(k, sid, sess, st)
}

func blankReport(sid int64) *bundle.Segment {
	r := bundle.NewReportSegment(sid)
	return &r
}

func (d *LTPInduct) waitSegment(k *kernel.Kernel, sid int64, sess *inductSession, st *inductState) {
	sess.queue.Get(func(seg *bundle.Segment) {
		if seg.HasErrors {
			d.waitSegment(k, sid, sess, st)
			return
		}
		if seg.Type == bundle.SegmentCancel {
			delete(d.sessions, sid)
			return
		}
		if seg.Type == bundle.SegmentReportAck {
			d.handleReportAck(k, sid, sess, st, seg)
			return
		}

		if !st.delivered {
			st.received = unionClaims(append(st.received, bundle.Claim{Offset: seg.Offset, Length: seg.Length}))
		}

		if d.hasSucceeded(st) {
			d.deliverBlock(st)
		}

		if !seg.IsCheckpoint() {
			d.waitSegment(k, sid, sess, st)
			return
		}
		if st.rxCheckpoints[seg.CheckpointID] {
			d.waitSegment(k, sid, sess, st)
			return
		}
		st.rxCheckpoints[seg.CheckpointID] = true

		if !st.seenFirstCheckpoint {
			st.toReceive = seg.Offset + seg.Length
			st.payload = seg.Payload
			st.seenFirstCheckpoint = true
		}

		rs := st.rs
		rs.CheckpointID = seg.CheckpointID
		rs.HasCheckpoint = true
		rs.LowerBound = 0
		rs.UpperBound = st.toReceive
		sess.reportCounter++
		rs.ReportSerial = sess.reportCounter
		rs.Claims = append([]bundle.Claim(nil), st.received...)

		d.sendThroughAllBands(rs)
		sess.pendingAck[rs.ReportSerial] = rs
		d.armReportTimer(k, sid, rs.ReportSerial)

		if d.hasSucceeded(st) {
			// The very first checkpoint was also the whole block.
			d.deliverBlock(st)
		}

		st.lastRS = rs
		st.rs = blankReport(sid)

		d.waitSegment(k, sid, sess, st)
	})
}

func (d *LTPInduct) handleReportAck(k *kernel.Kernel, sid int64, sess *inductSession, st *inductState, seg *bundle.Segment) {
	delete(sess.pendingAck, seg.AckedReportSerial)
	if len(sess.pendingAck) > 0 {
		d.waitSegment(k, sid, sess, st)
		return
	}
	if st.lastRS == nil || sumClaims(st.lastRS.Claims) != st.toReceive {
		// The last Report Segment did not yet ack the full block; do
		// not exit or the peer outduct is left waiting forever.
		d.waitSegment(k, sid, sess, st)
		return
	}
	delete(d.sessions, sid)
}

// hasSucceeded reports whether the block has been fully reassembled
// and not yet delivered (DtnInductLTP.run_ltp_session.has_succeeded).
func (d *LTPInduct) hasSucceeded(st *inductState) bool {
	if st.delivered {
		return false
	}
	if st.toReceive == -1 {
		return false
	}
	if len(st.received) != 1 {
		return false
	}
	return sumClaims(st.received) >= st.toReceive
}

// deliverBlock hands every bundle in the block to the node. The block
// reference rides in on the first checkpoint segment's Payload field
// rather than being fetched from the peer outduct's live session state
// (see DESIGN.md's Open Question decision).
func (d *LTPInduct) deliverBlock(st *inductState) {
	st.delivered = true
	for _, b := range st.payload {
		d.parent.Forward(b)
	}
}

func (d *LTPInduct) armReportTimer(k *kernel.Kernel, sid int64, reportSerial int64) {
	k.After(d.cfg.ReportTimer, func(k *kernel.Kernel) {
		sess, ok := d.sessions[sid]
		if !ok {
			return
		}
		rs, pending := sess.pendingAck[reportSerial]
		if !pending {
			return
		}
		rs.HasErrors = false
		d.sendThroughAllBands(rs)
		d.armReportTimer(k, sid, reportSerial)
	})
}

// sendThroughAllBands sends a copy of segment through every configured
// band via the ack direction (an induct's transmit_mode is always
// 'ack'), grounded in DtnInductMBLTP.send_through_all.
func (d *LTPInduct) sendThroughAllBands(segment *bundle.Segment) {
	for i, name := range d.bandNames {
		s := segment
		if i > 0 {
			cp := *segment
			cp.Claims = append([]bundle.Claim(nil), segment.Claims...)
			s = &cp
		}
		d.radios[name].Put(d.k, radio.Item{Neighbor: d.neighbor, Message: s, Peer: d.peer, Direction: connection.DirAck})
	}
}

// RecordLost implements connection.LossRecorder for a Report Segment
// this induct sent that was dropped in transit — the receiving-side
// analogue of LTPOutduct.RecordLost.
func (d *LTPInduct) RecordLost(msg connection.Message) {
	seg, ok := msg.(*bundle.Segment)
	if !ok {
		return
	}
	d.cancelSession(seg.SessionID)
}

func (d *LTPInduct) cancelSession(sid int64) {
	sess, ok := d.sessions[sid]
	if !ok {
		return
	}
	cancel := bundle.NewCancelSegment(sid)
	sess.queue.Put(&cancel, 0, false, nil)
}
