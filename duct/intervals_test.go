package duct

import (
	"reflect"
	"testing"

	"github.com/dtnsim/dtnsim/bundle"
)

func TestUnionClaims_MergesOverlappingAndTouchingIntervals(t *testing.T) {
	in := []bundle.Claim{
		{Offset: 100, Length: 50}, // [100,150)
		{Offset: 0, Length: 50},   // [0,50)
		{Offset: 50, Length: 40},  // [50,90) touches [0,50)
		{Offset: 200, Length: 10}, // disjoint
	}
	got := unionClaims(in)
	want := []bundle.Claim{{Offset: 0, Length: 90}, {Offset: 100, Length: 50}, {Offset: 200, Length: 10}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unionClaims = %+v, want %+v", got, want)
	}
}

func TestMissingIntervals_FindsGapsBetweenClaims(t *testing.T) {
	claims := []bundle.Claim{{Offset: 0, Length: 20}, {Offset: 50, Length: 10}}
	got := missingIntervals(0, 100, claims)
	want := [][2]int64{{20, 50}, {60, 100}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("missingIntervals = %v, want %v", got, want)
	}
}

func TestMissingIntervals_FullyCoveredReturnsNil(t *testing.T) {
	claims := []bundle.Claim{{Offset: 0, Length: 100}}
	got := missingIntervals(0, 100, claims)
	if len(got) != 0 {
		t.Fatalf("missingIntervals = %v, want empty", got)
	}
}

func TestSumClaims_AddsLengths(t *testing.T) {
	claims := []bundle.Claim{{Offset: 0, Length: 20}, {Offset: 50, Length: 10}}
	if got := sumClaims(claims); got != 30 {
		t.Fatalf("sumClaims = %d, want 30", got)
	}
}
