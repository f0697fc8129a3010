package lobby

import "testing"

func TestItemIDAllocator_GenerateIsMonotonicPerClient(t *testing.T) {
	a := NewItemIDAllocator(true, 12)
	first := a.Generate(0)
	second := a.Generate(0)
	if second <= first {
		t.Fatalf("expected monotonically increasing ids, got %08X then %08X", first, second)
	}
}

func TestItemIDAllocator_SlotsAreDisjoint(t *testing.T) {
	a := NewItemIDAllocator(true, 12)
	seen := make(map[int]uint32)
	for slot := 0; slot < 12; slot++ {
		id := a.Generate(slot)
		for other, otherID := range seen {
			if otherID == id {
				t.Fatalf("slot %d and %d produced the same id %08X", slot, other, id)
			}
		}
		seen[slot] = id
	}
}

func TestItemIDAllocator_OutOfRangeSlotUsesServerPool(t *testing.T) {
	a := NewItemIDAllocator(true, 12)
	id := a.Generate(99)
	if id != serverItemIDBase {
		t.Fatalf("expected server pool base %08X, got %08X", serverItemIDBase, id)
	}
}

func TestItemIDAllocator_ObserveExternalNarrowsCounter(t *testing.T) {
	a := NewItemIDAllocator(true, 12)
	slot := 3
	observed := uint32(0x00010000 + (slot << 21) + 5)
	a.ObserveExternal(observed)
	if got := a.PeekNextForClient(slot); got != observed+1 {
		t.Fatalf("expected counter narrowed to %08X, got %08X", observed+1, got)
	}
}

func TestItemIDAllocator_ObserveExternalIgnoresOutOfBoundValues(t *testing.T) {
	a := NewItemIDAllocator(true, 12)
	before := a.PeekNextForClient(0)
	a.ObserveExternal(0x00810000) // at the upper bound, exclusive
	if got := a.PeekNextForClient(0); got != before {
		t.Fatalf("expected no change, got %08X want %08X", got, before)
	}
}

func TestItemIDAllocator_TentativeAssignmentRollsBack(t *testing.T) {
	a := NewItemIDAllocator(true, 12)
	slot := 2
	before := a.PeekNextForClient(slot)
	a.Generate(slot)
	a.SetNextForClient(slot, before)
	if got := a.PeekNextForClient(slot); got != before {
		t.Fatalf("expected counter rolled back to %08X, got %08X", before, got)
	}
}

func TestBankItemIDBase_IsPerSlot(t *testing.T) {
	if b0, b1 := BankItemIDBase(0), BankItemIDBase(1); b0 == b1 {
		t.Fatalf("expected distinct bank bases per slot, got %08X for both", b0)
	}
}
