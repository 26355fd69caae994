// Package endpoint implements bundle sources and sinks (§4.K): the CBR,
// file, and Markov-modulated traffic generators that originate bundles
// at a node, and the sink a node hands an arrived bundle to.
package endpoint

import "github.com/dtnsim/dtnsim/bundle"

// Sink receives bundles that have arrived at their destination
// (§4.G step 4). A node looks one up by the bundle's endpoint id,
// falling back to endpoint id 0.
type Sink interface {
	Deliver(b *bundle.Bundle)
}

// Target is a generator's entry point into its node: Originate hands a
// freshly minted bundle straight to the node's ingress, exactly as if
// it had arrived from an induct. node.Node satisfies this directly.
type Target interface {
	Originate(b *bundle.Bundle)
}

// CountingSink is the default application-layer sink: it keeps the
// arrived bundles (for report aggregation) rather than doing anything
// with their payload, since the core has no notion of application
// semantics beyond delivery (§1 scope).
type CountingSink struct {
	Delivered []*bundle.Bundle
}

// NewCountingSink returns an empty CountingSink.
func NewCountingSink() *CountingSink { return &CountingSink{} }

func (s *CountingSink) Deliver(b *bundle.Bundle) {
	s.Delivered = append(s.Delivered, b)
}

// Count reports how many bundles this sink has received.
func (s *CountingSink) Count() int { return len(s.Delivered) }

// Volume reports the total data volume, in bits, this sink has
// received (§8 property 2/3: non-critical/critical flow volume checks
// read this per flow).
func (s *CountingSink) Volume() float64 {
	var total float64
	for _, b := range s.Delivered {
		total += b.DataVol
	}
	return total
}
