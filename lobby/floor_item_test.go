package lobby

import (
	"testing"

	"google.golang.org/grpc/codes"
)

func newTestFloorManager() *FloorItemManager {
	return NewFloorItemManager(0x00010000, 3, 0, noopLogger{})
}

func TestFloorItemManager_AddFindRemove(t *testing.T) {
	m := newTestFloorManager()
	if err := m.Add(ItemData{ID: 1}, 10, 20, 0x001); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !m.Exists(1) {
		t.Fatalf("expected item 1 to exist")
	}
	fi, err := m.Find(1)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if fi.X != 10 || fi.Z != 20 {
		t.Fatalf("unexpected position %v,%v", fi.X, fi.Z)
	}
	if _, err := m.Remove(1, 0xFF); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if m.Exists(1) {
		t.Fatalf("expected item 1 to be gone")
	}
}

func TestFloorItemManager_VisibilityGatesRemove(t *testing.T) {
	m := newTestFloorManager()
	if err := m.Add(ItemData{ID: 1}, 0, 0, 0x001); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := m.Remove(1, 1); codeOf(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	if _, err := m.Remove(1, 0); err != nil {
		t.Fatalf("Remove by visible client: %v", err)
	}
}

func TestFloorItemManager_AddRejectsZeroVisibility(t *testing.T) {
	m := newTestFloorManager()
	if err := m.Add(ItemData{ID: 1}, 0, 0, 0); codeOf(err) != codes.Internal {
		t.Fatalf("expected Internal for zero visibility, got %v", err)
	}
}

func TestFloorItemManager_AddRejectsDuplicateID(t *testing.T) {
	m := newTestFloorManager()
	if err := m.Add(ItemData{ID: 1}, 0, 0, 0x001); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add(ItemData{ID: 1}, 0, 0, 0x002); codeOf(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestFloorItemManager_EvictBoundsQueueAt48(t *testing.T) {
	m := newTestFloorManager()
	for i := 0; i < maxItemsPerClientQueue+10; i++ {
		if err := m.Add(ItemData{ID: uint32(i + 1)}, 0, 0, 0x001); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	evicted := m.Evict()
	if len(evicted) != 10 {
		t.Fatalf("expected 10 evicted, got %d", len(evicted))
	}
	if got := len(m.queueForClient[0]); got != maxItemsPerClientQueue {
		t.Fatalf("expected queue length %d, got %d", maxItemsPerClientQueue, got)
	}
	// FIFO: the lowest-numbered (earliest-dropped) ids are the ones evicted.
	for _, fi := range evicted {
		if fi.Data.ID > 10 {
			t.Fatalf("expected only the first 10 dropped items evicted, got id %d", fi.Data.ID)
		}
	}
}

func TestFloorItemManager_ClearInaccessibleKeepsVisibleItems(t *testing.T) {
	m := newTestFloorManager()
	if err := m.Add(ItemData{ID: 1}, 0, 0, 0x001); err != nil { // slot 0 only
		t.Fatal(err)
	}
	if err := m.Add(ItemData{ID: 2}, 0, 0, 0x002); err != nil { // slot 1 only
		t.Fatal(err)
	}
	m.ClearInaccessible(0x001) // only slot 0 remains
	if !m.Exists(1) {
		t.Fatalf("expected item 1 to survive")
	}
	if m.Exists(2) {
		t.Fatalf("expected item 2 to be cleared")
	}
}

func TestFloorItemManager_ClearPrivateKeepsPublicItems(t *testing.T) {
	m := newTestFloorManager()
	if err := m.Add(ItemData{ID: 1}, 0, 0, 0x00F); err != nil { // public to slots 0-3
		t.Fatal(err)
	}
	if err := m.Add(ItemData{ID: 2}, 0, 0, 0x001); err != nil { // private to slot 0
		t.Fatal(err)
	}
	m.ClearPrivate()
	if !m.Exists(1) {
		t.Fatalf("expected public item to survive")
	}
	if m.Exists(2) {
		t.Fatalf("expected private item to be cleared")
	}
}

func TestFloorItemManager_ReassignAllItemIDsPreservesOrderAndDropNumber(t *testing.T) {
	m := newTestFloorManager()
	if err := m.Add(ItemData{ID: 100}, 0, 0, 0x001); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(ItemData{ID: 50}, 0, 0, 0x001); err != nil {
		t.Fatal(err)
	}
	first, err := m.Find(50)
	if err != nil {
		t.Fatal(err)
	}
	firstDrop := first.DropNumber

	next := m.ReassignAllItemIDs(0x00020000)
	if next != 0x00020002 {
		t.Fatalf("expected next id 0x00020002, got %08X", next)
	}
	// id 50 sorted before id 100, so it gets the lower new id, but keeps
	// its original drop number (queue order is by drop, not by id).
	fi, err := m.Find(0x00020000)
	if err != nil {
		t.Fatalf("expected reassigned item at base id: %v", err)
	}
	if fi.DropNumber != firstDrop {
		t.Fatalf("expected drop number preserved, got %d want %d", fi.DropNumber, firstDrop)
	}
}

func codeOf(err error) codes.Code {
	type hasCode interface{ Code() codes.Code }
	if hc, ok := err.(hasCode); ok {
		return hc.Code()
	}
	if err == nil {
		return codes.OK
	}
	return codes.Unknown
}
