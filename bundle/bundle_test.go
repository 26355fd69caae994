package bundle

import "testing"

func TestNew_AssignsSequentialIDs(t *testing.T) {
	alloc := NewIDAllocator()
	b1 := New(alloc, "A", "B", "voice", 1000, 60, false, 0)
	b2 := New(alloc, "A", "C", "file", 2000, 120, true, 5)

	if b1.BundleID != 1 || b2.BundleID != 2 {
		t.Fatalf("got bids %d, %d", b1.BundleID, b2.BundleID)
	}
	if b1.Priority != PriorityBulk {
		t.Fatalf("non-critical bundle priority = %d, want %d", b1.Priority, PriorityBulk)
	}
	if b2.Priority != PriorityCritical {
		t.Fatalf("critical bundle priority = %d, want %d", b2.Priority, PriorityCritical)
	}
}

func TestCopy_IncrementsCopyIDAndDeepCopiesSlices(t *testing.T) {
	alloc := NewIDAllocator()
	b := New(alloc, "A", "B", "voice", 1000, 60, true, 0)
	b.Visited = append(b.Visited, "A")

	cp := b.Copy(alloc)
	if cp.CopyID != 1 {
		t.Fatalf("copy id = %d, want 1", cp.CopyID)
	}
	if cp.BundleID != b.BundleID {
		t.Fatalf("copy bundle id changed: %d vs %d", cp.BundleID, b.BundleID)
	}

	cp.Visited = append(cp.Visited, "B")
	if len(b.Visited) != 1 {
		t.Fatalf("original bundle's Visited mutated by copy: %v", b.Visited)
	}
}

func TestDrop_IsIdempotentAndKeepsFirstReason(t *testing.T) {
	alloc := NewIDAllocator()
	b := New(alloc, "A", "B", "voice", 1000, 60, false, 0)
	b.Drop(DropReasonTTL)
	b.Drop(DropReasonUnroutable)

	if b.DropReason != DropReasonTTL {
		t.Fatalf("drop reason = %q, want %q", b.DropReason, DropReasonTTL)
	}
}

func TestArrive_SetsLatency(t *testing.T) {
	alloc := NewIDAllocator()
	b := New(alloc, "A", "B", "voice", 1000, 60, false, 10)
	b.Arrive(42)

	if !b.Arrived {
		t.Fatal("expected Arrived = true")
	}
	if got := b.Latency(); got != 32 {
		t.Fatalf("latency = %d, want 32", got)
	}
}

func TestHasVisitedAndIsExcluded(t *testing.T) {
	alloc := NewIDAllocator()
	b := New(alloc, "A", "B", "voice", 1000, 60, false, 0)
	b.Visited = []string{"A", "R1"}
	b.Excluded = []int64{7}

	if !b.HasVisited("R1") || b.HasVisited("R2") {
		t.Fatal("HasVisited mismatch")
	}
	if !b.IsExcluded(7) || b.IsExcluded(8) {
		t.Fatal("IsExcluded mismatch")
	}
}

func TestKey_IdentifiesDistinctCopies(t *testing.T) {
	alloc := NewIDAllocator()
	b := New(alloc, "A", "B", "voice", 1000, 60, true, 0)
	cp := b.Copy(alloc)

	if b.Key() == cp.Key() {
		t.Fatal("original and copy must have distinct conservation keys")
	}
}
