package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtnsim/dtnsim/bundle"
)

func TestReport_ConservationHoldsAcrossTerminalTables(t *testing.T) {
	// GIVEN four bundle copies, one landing in each terminal table
	alloc := bundle.NewIDAllocator()
	r := New()

	arrived := bundle.New(alloc, "A", "B", "data", 10, 100, false, 0)
	arrived.Arrive(5)
	dropped := bundle.New(alloc, "A", "B", "data", 10, 100, false, 0)
	dropped.Drop(bundle.DropReasonTTL)
	lost := bundle.New(alloc, "A", "B", "data", 10, 100, false, 0)
	stored := bundle.New(alloc, "A", "B", "data", 10, 100, false, 0)

	for _, b := range []*bundle.Bundle{arrived, dropped, lost, stored} {
		r.RecordSent(b, 0)
	}
	r.RecordArrived(arrived)
	r.RecordDropped(dropped, 10)
	r.RecordLost(lost, 10)
	r.RecordStored(stored, 1000)

	// WHEN conservation is checked
	res := r.Conservation()

	// THEN every sent copy is accounted for exactly once
	require.True(t, res.OK, "missing keys: %v", res.MissingKeys)
	require.Equal(t, 4, res.Sent)
	require.Equal(t, 1, res.Arrived)
	require.Equal(t, 1, res.Dropped)
	require.Equal(t, 1, res.Lost)
	require.Equal(t, 1, res.Stored)
}

func TestReport_ConservationCatchesUnaccountedBundle(t *testing.T) {
	// GIVEN a bundle recorded sent but never recorded in any terminal table
	alloc := bundle.NewIDAllocator()
	r := New()
	b := bundle.New(alloc, "A", "B", "data", 10, 100, false, 0)
	r.RecordSent(b, 0)

	res := r.Conservation()

	require.False(t, res.OK)
	require.Equal(t, []bundle.Key{b.Key()}, res.MissingKeys)
}

func TestFlowVolume_SumsOnlyMatchingFlow(t *testing.T) {
	rows := []Row{
		{FlowID: 1, DataVol: 10},
		{FlowID: 2, DataVol: 99},
		{FlowID: 1, DataVol: 5},
	}
	require.Equal(t, 15.0, FlowVolume(rows, 1))
	require.Equal(t, 99.0, FlowVolume(rows, 2))
}
