package contactplan

import "testing"

func TestStaticMobilityModel_BuildsAlwaysOpenContacts(t *testing.T) {
	m := NewStaticMobilityModel([]Link{{Orig: "A", Dest: "B", Rate: 10}}, 3)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	contacts := m.ContactPlan().All()
	if len(contacts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(contacts))
	}
	c := contacts[0]
	if c.TEnd != Infinite || c.Range != 3 || c.Rate != 10 {
		t.Fatalf("unexpected static contact: %+v", c)
	}
}

func TestScheduledMobilityModel_ConvertsEpochAbsolute(t *testing.T) {
	m := NewScheduledMobilityModel([]ContactRecord{
		{Orig: "A", Dest: "B", TStart: 1400, TEnd: 1500, Rate: 1, Range: 1, EpochAbsolute: true},
	}, 1000)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	c, ok := m.ContactPlan().ByCID(0)
	if !ok {
		t.Fatal("expected contact 0")
	}
	if c.TStart != 400 || c.TEnd != 500 {
		t.Fatalf("unexpected epoch conversion: tstart=%d tend=%d", c.TStart, c.TEnd)
	}
}

func TestScheduledMobilityModel_RejectsNegativeRate(t *testing.T) {
	m := NewScheduledMobilityModel([]ContactRecord{
		{Orig: "A", Dest: "B", TStart: 0, TEnd: 10, Rate: -1, Range: 1},
	}, 0)
	if err := m.Initialize(); err == nil {
		t.Fatal("expected error for negative rate")
	}
}

func TestDistanceSeries_AtInterpolates(t *testing.T) {
	s := &DistanceSeries{Samples: []DistanceSample{
		{Time: 0, Distance: 100}, {Time: 10, Distance: 200},
	}}
	if got := s.At(5); got != 150 {
		t.Fatalf("At(5) = %g, want 150", got)
	}
	if got := s.At(-5); got != 100 {
		t.Fatalf("At(-5) = %g, want 100 (clamp)", got)
	}
	if got := s.At(50); got != 200 {
		t.Fatalf("At(50) = %g, want 200 (clamp)", got)
	}
}

func TestDistanceSeries_OpenIntervals(t *testing.T) {
	s := &DistanceSeries{Samples: []DistanceSample{
		{Time: 0, Distance: 50},
		{Time: 10, Distance: 150},
		{Time: 20, Distance: 40},
		{Time: 30, Distance: 30},
	}}
	intervals := s.OpenIntervals(100)
	want := [][2]int64{{0, 10}, {20, 30}}
	if len(intervals) != len(want) {
		t.Fatalf("intervals = %v, want %v", intervals, want)
	}
	for i := range want {
		if intervals[i] != want[i] {
			t.Fatalf("intervals[%d] = %v, want %v", i, intervals[i], want[i])
		}
	}
}

func TestDistanceGatedMobilityModel_SeriesLookup(t *testing.T) {
	m := NewDistanceGatedMobilityModel([]Link{{Orig: "A", Dest: "B", Rate: 1}})
	series := &DistanceSeries{Samples: []DistanceSample{{Time: 0, Distance: 10}}}
	m.SetSeries("A", "B", series)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := m.DistanceSeriesFor("A", "B"); got != series {
		t.Fatal("expected installed series back")
	}
	if got := m.DistanceSeriesFor("A", "C"); got != nil {
		t.Fatal("expected nil for unknown pair")
	}
}
