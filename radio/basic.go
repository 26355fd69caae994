package radio

import (
	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/kernel"
)

// Basic is a constant-rate radio; the BER it applies per message is
// computed by berFunc, which is constant for a true Basic radio and
// FER-derived for a Coded radio — composition over the strategy
// instead of the source's DtnBasicRadio/DtnCodedRadio inheritance
// (§9's "inheritance over ducts/radios/connections" redesign note).
type Basic struct {
	queue   *kernel.Queue[Item]
	conns   map[string]connection.Connection
	rate    float64 // bits/sec
	berFunc func(msg connection.Message) float64
	jPerBit float64
	energy  float64
}

// NewBasicRadio returns a Basic radio with constant BER, grounded in
// DtnBasicRadio.run/send_through_connection.
func NewBasicRadio(k *kernel.Kernel, conns map[string]connection.Connection, rate, ber, jPerBit float64) *Basic {
	return newRateRadio(k, conns, rate, jPerBit, func(connection.Message) float64 { return ber })
}

func newRateRadio(k *kernel.Kernel, conns map[string]connection.Connection, rate, jPerBit float64, berFunc func(connection.Message) float64) *Basic {
	return &Basic{
		queue:   kernel.NewQueue[Item](k, 0),
		conns:   conns,
		rate:    rate,
		berFunc: berFunc,
		jPerBit: jPerBit,
	}
}

// Put enqueues item for transmission; non-blocking (DtnAbstractRadio.put).
func (r *Basic) Put(k *kernel.Kernel, item Item) {
	r.queue.Put(item, nil)
}

// Run starts the radio's perpetual drain loop (DtnBasicRadio.run).
func (r *Basic) Run(k *kernel.Kernel) {
	r.drainNext(k)
}

// Energy returns total energy consumed transmitting so far.
func (r *Basic) Energy() float64 { return r.energy }

// Rate returns the radio's constant bits/sec.
func (r *Basic) Rate() float64 { return r.rate }

func (r *Basic) drainNext(k *kernel.Kernel) {
	r.queue.Get(func(item Item) {
		numBits := item.Message.NumBits()
		txTime := int64(numBits / r.rate)
		k.After(txTime, func(k *kernel.Kernel) {
			r.energy += numBits * r.jPerBit
			r.sendThroughConnection(k, item)
			r.drainNext(k)
		})
	})
}

func (r *Basic) sendThroughConnection(k *kernel.Kernel, item Item) {
	conn, ok := r.conns[item.Neighbor]
	if !ok {
		return
	}
	ber := r.berFunc(item.Message)
	conn.Transmit(k, item.Peer, item.Message, ber, item.Direction)
}
