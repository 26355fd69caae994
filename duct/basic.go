package duct

import (
	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/kernel"
	"github.com/dtnsim/dtnsim/radio"
)

// BasicOutduct hands bundles straight to a shared radio with no
// session state at all: no fragmentation, no acknowledgement,
// no retransmission. Grounded in DtnOutductBasic.
type BasicOutduct struct {
	baseDuct[*bundle.Bundle]
	radio radio.Radio
	peer  connection.Peer
}

// NewBasicOutduct returns a BasicOutduct sending to neighbor through r,
// targeting peer (the paired BasicInduct) on delivery.
func NewBasicOutduct(k *kernel.Kernel, parent Parent, contacts ContactSource, neighbor string, r radio.Radio, peer connection.Peer) *BasicOutduct {
	return &BasicOutduct{baseDuct: newBaseDuct[*bundle.Bundle](k, parent, contacts, neighbor), radio: r, peer: peer}
}

func (d *BasicOutduct) TotalDatarate(string) float64 { return d.radio.Rate() }

func (d *BasicOutduct) Run(k *kernel.Kernel) {
	d.runFailManager()
	d.runSuccessManager()
	d.drain(k)
}

func (d *BasicOutduct) drain(k *kernel.Kernel) {
	if !d.alive {
		return
	}
	d.inQueue.Get(func(b *bundle.Bundle) {
		d.radio.Put(k, radio.Item{Neighbor: d.neighbor, Message: b, Peer: d.peer, Direction: connection.DirForward})
		d.successQueue.Put(b, nil)
		d.drain(k)
	})
}

// BasicInduct hands every bundle it receives straight to the node.
// Grounded in DtnInductBasic.
type BasicInduct struct {
	baseDuct[*bundle.Bundle]
	rate float64
}

// NewBasicInduct returns a BasicInduct fed by a radio whose nominal
// rate is reported back through TotalDatarate.
func NewBasicInduct(k *kernel.Kernel, parent Parent, contacts ContactSource, neighbor string, rate float64) *BasicInduct {
	return &BasicInduct{baseDuct: newBaseDuct[*bundle.Bundle](k, parent, contacts, neighbor), rate: rate}
}

func (d *BasicInduct) TotalDatarate(string) float64 { return d.rate }

func (d *BasicInduct) Run(k *kernel.Kernel) {
	d.runFailManager()
	d.runSuccessManager()
	d.drain(k)
}

func (d *BasicInduct) drain(k *kernel.Kernel) {
	if !d.alive {
		return
	}
	d.inQueue.Get(func(b *bundle.Bundle) {
		d.parent.Forward(b)
		d.drain(k)
	})
}
