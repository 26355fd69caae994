package bundle

// SegmentType tags the four LTP segment variants an induct/outduct
// session exchanges (§3's LTP Segment data model).
type SegmentType int

const (
	SegmentData SegmentType = iota
	SegmentReport
	SegmentReportAck
	SegmentCancel
)

func (t SegmentType) String() string {
	switch t {
	case SegmentData:
		return "DS"
	case SegmentReport:
		return "RS"
	case SegmentReportAck:
		return "RA"
	case SegmentCancel:
		return "CS"
	default:
		return "?"
	}
}

// Claim is a reception-claim interval, (offset, length), within a Report
// Segment's [LowerBound, UpperBound) window.
type Claim struct {
	Offset int64
	Length int64
}

// Segment is a tagged union over the four LTP wire messages (§3). Exactly
// the fields relevant to Type are meaningful; others are zero. The
// constructors return values, but the LTP ducts send *Segment pointers
// that stay shared with their session state; only the bands after the
// first in a multi-band send get independent copies.
type Segment struct {
	Type      SegmentType
	SessionID int64

	// Data Segment fields.
	Offset        int64
	Length        int64
	CheckpointID  int64
	HasCheckpoint bool
	ReportID      int64
	HasReportID   bool

	// Report Segment fields.
	ReportSerial int64
	LowerBound   int64
	UpperBound   int64
	Claims       []Claim

	// Report Ack fields.
	AckedReportSerial int64

	// Transport bookkeeping shared by every variant (propagation/error
	// modeling happens on *Segment the same way it does on *Bundle).
	HasErrors bool
	PropDelay int64

	// Payload rides along on the checkpoint Data Segment that first
	// reveals a block's size. An induct session keeps its reference
	// once seen and hands it to the node once reception is complete,
	// rather than reaching into the peer outduct's live session state
	// for the block it is holding (see DESIGN.md's Open Question
	// decision on the early-delivery shortcut).
	Payload []*Bundle
}

// AddPropDelay accumulates propagation delay as the segment crosses a
// connection (Message interface).
func (s *Segment) AddPropDelay(d int64) { s.PropDelay += d }

// SetHasErrors marks the segment as corrupted in transit (Message
// interface).
func (s *Segment) SetHasErrors(v bool) { s.HasErrors = v }

// IsCheckpoint reports whether this Data Segment carries a fresh
// checkpoint id (the last segment of any batch, per §4.D.2 step 1).
func (s *Segment) IsCheckpoint() bool { return s.Type == SegmentData && s.HasCheckpoint }

// NumBits is the segment's wire size for radio/connection accounting.
// Matches DtnSegments.py's per-variant overhead constants.
func (s *Segment) NumBits() float64 {
	switch s.Type {
	case SegmentData:
		return float64(s.Length) + 10
	case SegmentReport:
		return 25
	case SegmentReportAck:
		return 10
	case SegmentCancel:
		return 5
	default:
		return 0
	}
}

func NewDataSegment(sessionID, offset, length int64) Segment {
	return Segment{Type: SegmentData, SessionID: sessionID, Offset: offset, Length: length}
}

func NewCheckpointSegment(sessionID, offset, length, checkpointID int64, reportID int64, hasReportID bool) Segment {
	return Segment{
		Type: SegmentData, SessionID: sessionID, Offset: offset, Length: length,
		CheckpointID: checkpointID, HasCheckpoint: true,
		ReportID: reportID, HasReportID: hasReportID,
	}
}

func NewReportSegment(sessionID int64) Segment {
	return Segment{Type: SegmentReport, SessionID: sessionID, LowerBound: 1<<62 - 1, UpperBound: -(1<<62 - 1)}
}

func NewReportAck(sessionID, reportSerial int64) Segment {
	return Segment{Type: SegmentReportAck, SessionID: sessionID, AckedReportSerial: reportSerial}
}

func NewCancelSegment(sessionID int64) Segment {
	return Segment{Type: SegmentCancel, SessionID: sessionID}
}
