package duct

// LTPConfig holds the deferred-ack tuning knobs shared by the LTP and
// MBLTP outduct/induct pairs (§4.D.2), grounded in
// DtnOutductLTP/DtnInductLTP's initialize() keyword arguments.
type LTPConfig struct {
	AggSizeLimit    float64 // bits; a block is cut once it reaches this size
	AggTimeLimit    int64   // ticks; or once this long has elapsed, whichever first
	SegmentSize     int64   // bits per Data Segment
	CheckpointTimer int64   // ticks before an unacknowledged checkpoint is resent
	ReportTimer     int64   // ticks before an unacknowledged Report Segment is resent
}
