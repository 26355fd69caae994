package node

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/contactplan"
	"github.com/dtnsim/dtnsim/duct"
	"github.com/dtnsim/dtnsim/endpoint"
	"github.com/dtnsim/dtnsim/kernel"
	"github.com/dtnsim/dtnsim/neighbor"
	"github.com/dtnsim/dtnsim/radio"
	"github.com/dtnsim/dtnsim/router"
)

type constContacts int64

func (c constContacts) CurrentCID(string) int64 { return int64(c) }

// TestNode_SingleLinkTwoGenerators exercises spec.md §8 Test 1 directly:
// a CBR voice generator (rate R, until T) and a file generator (size S)
// both sending N1->N2 over one always-open static link. Arrived voice
// volume should equal R*T and arrived file volume should equal S (both
// to within one bundle's size).
func TestNode_SingleLinkTwoGenerators(t *testing.T) {
	const rate = 1000.0      // bits/sec
	const until = int64(100) // seconds
	const bundleSize = 80.0  // bits
	const fileSize = 4000.0  // bits

	k := kernel.New()
	alloc := bundle.NewIDAllocator()

	c := contactplan.NewContact(1, "N1", "N2", 0, 1_000_000, rate, 0)
	plan, err := contactplan.NewContactPlan([]*contactplan.Contact{c})
	require.NoError(t, err)

	r1 := router.NewStaticRouter("N1", map[string]string{"N2": "N2"})
	r2 := router.NewStaticRouter("N2", map[string]string{})
	n1 := New(k, "N1", alloc, r1, SingleDuctSelector{}, 5)
	n2 := New(k, "N2", alloc, r2, SingleDuctSelector{}, 5)

	mgr := neighbor.NewManager(k, n1, "N1", "N2", plan)
	induct := duct.NewBasicInduct(k, n2, constContacts(-1), "N1", rate)
	conn := connection.NewStatic("N1", "N2", 0, rand.New(rand.NewSource(1)), nil)
	rad := radio.NewBasicRadio(k, map[string]connection.Connection{"N2": conn}, rate, 0, 0)
	outduct := duct.NewBasicOutduct(k, n1, mgr, "N2", rad, induct)

	n1.AttachNeighbor("N2", mgr, outduct)
	n2.AttachInduct(induct)

	sink := endpoint.NewCountingSink()
	n2.AttachEndpoint(0, sink)

	n1.Run(k)
	n2.Run(k)
	rad.Run(k)

	voiceGen := endpoint.NewCBRGenerator(k, alloc, n1)
	voiceGen.Orig, voiceGen.Dest, voiceGen.DataType = "N1", "N2", "voice"
	voiceGen.RateBps, voiceGen.BundleSize = rate, bundleSize
	voiceGen.TTL = 3600
	voiceGen.End = until
	voiceGen.Run(k)

	fileGen := endpoint.NewFileGenerator(k, alloc, n1)
	fileGen.Orig, fileGen.Dest, fileGen.DataType = "N1", "N2", "file"
	fileGen.TotalBits, fileGen.BundleSize = fileSize, bundleSize
	fileGen.TTL = 3600
	fileGen.Run(k)

	k.SetUntil(until + 1000)
	k.Run()

	var voiceVol, fileVol float64
	for _, b := range sink.Delivered {
		switch b.DataType {
		case "voice":
			voiceVol += b.DataVol
		case "file":
			fileVol += b.DataVol
		}
	}

	require.InDelta(t, rate*float64(until), voiceVol, bundleSize, "arrived voice volume")
	require.InDelta(t, fileSize, fileVol, bundleSize, "arrived file volume")
}

func TestNode_TTLExceededDrops(t *testing.T) {
	// GIVEN a bundle whose TTL has already elapsed by the time it is handled
	k := kernel.New()
	alloc := bundle.NewIDAllocator()
	r := router.NewStaticRouter("N1", map[string]string{})
	n := New(k, "N1", alloc, r, SingleDuctSelector{}, 5)
	n.Run(k)

	b := bundle.New(alloc, "N1", "N3", "data", 10, 5, false, 0)
	k.After(10, func(k *kernel.Kernel) { n.Originate(b) })
	k.SetUntil(20)
	k.Run()

	require.True(t, b.Dropped)
	require.Equal(t, bundle.DropReasonTTL, b.DropReason)
}

func TestNode_UnroutableDestinationDrops(t *testing.T) {
	// GIVEN a static router with no route and no default entry for the
	// bundle's destination: StaticRouter signals drop outright rather
	// than limbo, since no later retry could change the outcome.
	k := kernel.New()
	alloc := bundle.NewIDAllocator()
	r := router.NewStaticRouter("N1", map[string]string{})
	n := New(k, "N1", alloc, r, SingleDuctSelector{}, 5)
	n.Run(k)

	b := bundle.New(alloc, "N1", "N9", "data", 10, 3600, false, 0)
	n.Originate(b)
	k.SetUntil(10)
	k.Run()

	require.True(t, b.Dropped)
	require.Equal(t, bundle.DropReasonRouterDrops, b.DropReason)
}
