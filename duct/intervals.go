package duct

import (
	"sort"

	"github.com/dtnsim/dtnsim/bundle"
)

// unionClaims merges overlapping or touching reception-claim intervals
// into a minimal sorted set, grounded in math_utils.union_intervals
// (itself a port of Matlab's union_sets_intervals).
func unionClaims(claims []bundle.Claim) []bundle.Claim {
	if len(claims) == 0 {
		return nil
	}
	sorted := append([]bundle.Claim(nil), claims...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	merged := []bundle.Claim{sorted[0]}
	for _, c := range sorted[1:] {
		last := &merged[len(merged)-1]
		lastEnd := last.Offset + last.Length
		cEnd := c.Offset + c.Length
		if c.Offset <= lastEnd {
			if cEnd > lastEnd {
				last.Length = cEnd - last.Offset
			}
			continue
		}
		merged = append(merged, c)
	}
	return merged
}

// missingIntervals computes [lb, ub) minus a sorted, non-overlapping
// set of claims, grounded in math_utils.xor_intervals with
// do_union=False (the outduct calls it on claims the induct has
// already unioned before transmitting the Report Segment).
func missingIntervals(lb, ub int64, claims []bundle.Claim) [][2]int64 {
	var out [][2]int64
	cursor := lb
	for _, c := range claims {
		if c.Offset > cursor {
			out = append(out, [2]int64{cursor, c.Offset})
		}
		if end := c.Offset + c.Length; end > cursor {
			cursor = end
		}
	}
	if cursor < ub {
		out = append(out, [2]int64{cursor, ub})
	}
	return out
}

// sumClaims returns the total data volume covered by claims.
func sumClaims(claims []bundle.Claim) int64 {
	var total int64
	for _, c := range claims {
		total += c.Length
	}
	return total
}
