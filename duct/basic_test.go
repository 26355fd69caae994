package duct

import (
	"math/rand"
	"testing"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/kernel"
	"github.com/dtnsim/dtnsim/radio"
)

type fakeParent struct {
	forwarded []*bundle.Bundle
	limboed   []*bundle.Bundle
	excluded  []int64
}

func (p *fakeParent) Forward(b *bundle.Bundle) { p.forwarded = append(p.forwarded, b) }
func (p *fakeParent) Limbo(b *bundle.Bundle, excludeCID int64) {
	p.limboed = append(p.limboed, b)
	p.excluded = append(p.excluded, excludeCID)
}

type fakeContacts struct{ cid int64 }

func (c *fakeContacts) CurrentCID(string) int64 { return c.cid }

func TestBasicOutductInduct_DeliversAcrossRadioAndConnection(t *testing.T) {
	// GIVEN a basic outduct feeding a basic induct through an always-open
	// connection
	k := kernel.New()
	alloc := bundle.NewIDAllocator()
	inParent := &fakeParent{}
	induct := NewBasicInduct(k, inParent, &fakeContacts{-1}, "A", 1000)

	conn := connection.NewStatic("A", "B", 5, rand.New(rand.NewSource(1)), nil)
	r := radio.NewBasicRadio(k, map[string]connection.Connection{"B": conn}, 100, 0, 0)

	outParent := &fakeParent{}
	outduct := NewBasicOutduct(k, outParent, &fakeContacts{-1}, "B", r, induct)

	induct.Run(k)
	outduct.Run(k)
	r.Run(k)

	// WHEN a bundle is submitted to the outduct
	b := bundle.New(alloc, "A", "Z", "data", 80, 3600, false, 0)
	outduct.Send(b)
	k.Run()

	// THEN it is forwarded to the induct's node, and the outduct reports success
	if len(inParent.forwarded) != 1 || inParent.forwarded[0] != b {
		t.Fatalf("forwarded = %v, want [%v]", inParent.forwarded, b)
	}
	if len(outParent.forwarded) != 0 || len(outParent.limboed) != 0 {
		t.Fatalf("outduct parent should see neither forward nor limbo calls, got forwarded=%d limboed=%d",
			len(outParent.forwarded), len(outParent.limboed))
	}
}

func TestBasicOutduct_TotalDatarateReportsRadioRate(t *testing.T) {
	k := kernel.New()
	r := radio.NewBasicRadio(k, nil, 256, 0, 0)
	outduct := NewBasicOutduct(k, &fakeParent{}, &fakeContacts{-1}, "B", r, &fakeParent{})

	if got := outduct.TotalDatarate("B"); got != 256 {
		t.Fatalf("TotalDatarate = %v, want 256", got)
	}
}

func TestBasicOutduct_UnknownNeighborNeverReachesLimbo(t *testing.T) {
	// GIVEN a radio with no registered connection for the neighbor it is sending to
	k := kernel.New()
	r := radio.NewBasicRadio(k, map[string]connection.Connection{"B": connection.NewStatic("A", "B", 1, rand.New(rand.NewSource(1)), nil)}, 10, 0, 0)
	outParent := &fakeParent{}
	contacts := &fakeContacts{cid: 7}
	outduct := NewBasicOutduct(k, outParent, contacts, "missing-neighbor", r, &fakeParent{})
	outduct.Run(k)
	r.Run(k)

	alloc := bundle.NewIDAllocator()
	b := bundle.New(alloc, "A", "Z", "data", 8, 3600, false, 0)
	outduct.Send(b)
	k.Run()

	// THEN the radio silently drops (no registered connection for the
	// neighbor) while the outduct has already counted the bundle a
	// success, so no limbo call is ever made — this documents
	// BasicOutduct's lack of a fail path for an unroutable neighbor,
	// matching DtnOutductBasic's own unconditional success_queue.put.
	if len(outParent.forwarded) != 0 || len(outParent.limboed) != 0 {
		t.Fatalf("expected no parent callbacks, got forwarded=%d limboed=%d", len(outParent.forwarded), len(outParent.limboed))
	}
}
