// Package radio implements the radio layer (§4.C): a per-node FIFO of
// outbound (neighbor, message, peer, direction) tuples drained at a
// data rate, with energy accounting and a BER/FER error model, handed
// off to the connection layer for propagation.
package radio

import (
	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/kernel"
)

// Item is one outbound unit queued for transmission, grounded in
// DtnBasicRadio.do_put's (neighbor, message, peer, direction) tuple.
type Item struct {
	Neighbor  string
	Message   connection.Message
	Peer      connection.Peer
	Direction connection.Direction
}

// Radio is the contract the duct/neighbor layers hold a radio by: put
// a message for transmission (non-blocking) and read accumulated
// energy for the energy report (§12).
type Radio interface {
	Put(k *kernel.Kernel, item Item)
	Run(k *kernel.Kernel)
	Energy() float64
	// Rate reports the radio's nominal bits/sec, used by a duct's
	// total_datarate reporting (§4.D). Variable-rate radios have no
	// single nominal value and return 0.
	Rate() float64
}
