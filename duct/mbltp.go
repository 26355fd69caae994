package duct

import (
	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/kernel"
	"github.com/dtnsim/dtnsim/radio"
)

// NewMBLTPOutduct returns an LTPOutduct configured for multiband
// operation: every segment is duplicated across all of bandNames, and
// session ids are assigned sequentially rather than hash-derived,
// because an induct needs to tell a segment for an already-completed
// session from one for a brand-new session purely from id ordering
// (DtnAbstractDuctMBLTP's doc comment on why multiband needs
// sequential ids).
func NewMBLTPOutduct(k *kernel.Kernel, parent Parent, contacts ContactSource, neighbor string,
	cfg LTPConfig, bandNames []string, radios map[string]radio.Radio, peer connection.Peer) *LTPOutduct {
	return NewLTPOutduct(k, parent, contacts, neighbor, cfg, bandNames, radios, peer, true)
}

// NewMBLTPInduct returns an LTPInduct configured for multiband
// operation (sequential session-id gating), grounded in
// DtnInductMBLTP.
func NewMBLTPInduct(k *kernel.Kernel, parent Parent, contacts ContactSource, neighbor string,
	cfg LTPConfig, bandNames []string, radios map[string]radio.Radio, peer connection.Peer) *LTPInduct {
	return NewLTPInduct(k, parent, contacts, neighbor, cfg, bandNames, radios, peer, true)
}
