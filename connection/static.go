package connection

import "math/rand"

// Static is always open; propagation delay is fixed at construction
// time (from configuration or a static mobility model), grounded in
// DtnStaticConnection (always-active, constant prop_delay).
type Static struct {
	transport
}

// NewStatic returns a Static connection, open from t=0 with a fixed
// propagation delay.
func NewStatic(orig, dest string, propDelay int64, rng *rand.Rand, lost LossRecorder) *Static {
	s := &Static{transport: newTransport(orig, dest, rng, lost)}
	s.open(propDelay)
	return s
}
