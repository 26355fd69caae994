package endpoint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtnsim/dtnsim/bundle"
	"github.com/dtnsim/dtnsim/kernel"
)

type recordingTarget struct {
	received []*bundle.Bundle
}

func (t *recordingTarget) Originate(b *bundle.Bundle) { t.received = append(t.received, b) }

func TestCBRGenerator_EmitsAtConfiguredRateUntilEnd(t *testing.T) {
	const rate = 1000.0
	const bundleSize = 80.0
	const until = int64(100)

	k := kernel.New()
	alloc := bundle.NewIDAllocator()
	target := &recordingTarget{}

	g := NewCBRGenerator(k, alloc, target)
	g.Orig, g.Dest, g.DataType = "N1", "N2", "voice"
	g.RateBps, g.BundleSize, g.TTL, g.End = rate, bundleSize, 3600, until

	g.Run(k)
	k.SetUntil(until)
	k.Run()

	wantBundles := int(float64(until) * rate / bundleSize)
	require.InDelta(t, wantBundles, len(target.received), 1)
	for _, b := range target.received {
		require.Equal(t, "N2", b.Dest)
		require.Equal(t, bundleSize, b.DataVol)
	}
}

func TestCBRGenerator_ZeroRateNeverEmits(t *testing.T) {
	k := kernel.New()
	target := &recordingTarget{}
	g := NewCBRGenerator(k, bundle.NewIDAllocator(), target)
	g.End = 100

	g.Run(k)
	k.SetUntil(100)
	k.Run()

	require.Empty(t, target.received)
}

func TestFileGenerator_ChunksTotalBitsWithRemainder(t *testing.T) {
	const totalBits = 4000.0
	const bundleSize = 80.0

	k := kernel.New()
	target := &recordingTarget{}
	g := NewFileGenerator(k, bundle.NewIDAllocator(), target)
	g.Orig, g.Dest, g.DataType = "N1", "N2", "file"
	g.TotalBits, g.BundleSize, g.TTL = totalBits, bundleSize, 3600

	g.Run(k)
	k.SetUntil(1)
	k.Run()

	require.Len(t, target.received, int(totalBits/bundleSize))
	var sum float64
	for _, b := range target.received {
		sum += b.DataVol
	}
	require.Equal(t, totalBits, sum)
}

func TestFileGenerator_SmallerTrailingBundleCarriesRemainder(t *testing.T) {
	k := kernel.New()
	target := &recordingTarget{}
	g := NewFileGenerator(k, bundle.NewIDAllocator(), target)
	g.TotalBits, g.BundleSize, g.TTL = 90, 80, 3600

	g.Run(k)
	k.SetUntil(1)
	k.Run()

	require.Len(t, target.received, 2)
	require.Equal(t, 80.0, target.received[0].DataVol)
	require.Equal(t, 10.0, target.received[1].DataVol)
}

func TestMarkovGenerator_RespectsOnOffDutyCycle(t *testing.T) {
	const rate = 1000.0
	const bundleSize = 80.0
	const until = int64(1000)

	k := kernel.New()
	target := &recordingTarget{}
	g := NewMarkovGenerator(k, bundle.NewIDAllocator(), target)
	g.Orig, g.Dest, g.DataType = "N1", "N2", "voice"
	g.RateBps, g.BundleSize, g.TTL, g.End = rate, bundleSize, 3600, until
	g.OnDuration, g.DutyCycle = 50, 0.5

	g.Run(k)
	k.SetUntil(until)
	k.Run()

	require.NotEmpty(t, target.received)
	maxBundles := int(float64(until) * rate / bundleSize)
	require.Less(t, len(target.received), maxBundles)
}

func TestMarkovGenerator_FullDutyCycleBehavesLikeCBR(t *testing.T) {
	const rate = 1000.0
	const bundleSize = 80.0
	const until = int64(100)

	k := kernel.New()
	target := &recordingTarget{}
	g := NewMarkovGenerator(k, bundle.NewIDAllocator(), target)
	g.RateBps, g.BundleSize, g.TTL, g.End = rate, bundleSize, 3600, until
	g.OnDuration, g.DutyCycle = until, 1.0

	g.Run(k)
	k.SetUntil(until)
	k.Run()

	wantBundles := int(float64(until) * rate / bundleSize)
	require.InDelta(t, wantBundles, len(target.received), 1)
}

func TestCountingSink_TracksCountAndVolume(t *testing.T) {
	sink := NewCountingSink()
	alloc := bundle.NewIDAllocator()

	b1 := bundle.New(alloc, "N1", "N2", "voice", 80, 3600, false, 0)
	b2 := bundle.New(alloc, "N1", "N2", "file", 120, 3600, false, 0)
	sink.Deliver(b1)
	sink.Deliver(b2)

	require.Equal(t, 2, sink.Count())
	require.Equal(t, 200.0, sink.Volume())
}
