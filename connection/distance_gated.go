package connection

import (
	"math"
	"math/rand"

	"github.com/dtnsim/dtnsim/contactplan"
	"github.com/dtnsim/dtnsim/kernel"
)

// speedOfLight matches the original's np.mean(dist)/3e8 propagation
// delay calculation (meters/second, vacuum approximation).
const speedOfLight = 3e8

// DistanceGated consults a time-vs-distance series from the mobility
// model; "open" intervals are the maximal runs where distance <=
// max_distance, and the propagation delay for each interval is the
// mean distance within it divided by c, grounded in
// DtnDistanceConnection.initialize_contacts_and_ranges/run.
type DistanceGated struct {
	transport
	series      *contactplan.DistanceSeries
	maxDistance float64
}

// NewDistanceGated returns a DistanceGated connection over series,
// opening whenever distance <= maxDistance.
func NewDistanceGated(orig, dest string, series *contactplan.DistanceSeries, maxDistance float64, rng *rand.Rand, lost LossRecorder) *DistanceGated {
	return &DistanceGated{transport: newTransport(orig, dest, rng, lost), series: series, maxDistance: maxDistance}
}

// Run schedules an open/close pair for every maximal in-range interval.
func (d *DistanceGated) Run(k *kernel.Kernel) {
	for _, interval := range d.series.OpenIntervals(d.maxDistance) {
		start, end := interval[0], interval[1]
		mean := d.series.MeanDistance(start, end)
		propDelay := int64(math.Round(mean / speedOfLight))
		k.At(start, func(k *kernel.Kernel) {
			d.open(propDelay)
		})
		k.At(end, func(k *kernel.Kernel) {
			d.close()
		})
	}
}
