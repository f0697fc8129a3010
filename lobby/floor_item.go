package lobby

import (
	"sort"

	"golang.org/x/xerrors"
	"google.golang.org/grpc/codes"

	"github.com/fishscene/newserv/internal/logging"
	"github.com/fishscene/newserv/lobbyerr"
)

// maxItemsPerClientQueue bounds per-client floor-item visibility: it caps
// memory and network state-sync traffic per client, evicting in drop
// order (FIFO).
const maxItemsPerClientQueue = 48

// maxLobbyClients is the width of the visibility bitmask (one bit per
// slot, 0..11).
const maxLobbyClients = 12

// ItemData is opaque to this core: it carries a mutable ID and whatever
// payload the (out-of-scope) item generator produced.
type ItemData struct {
	ID      uint32
	Payload []byte
}

// FloorItem is an item dropped on the ground of one floor, visible to
// the client slots whose bit is set in VisibilityFlags.
type FloorItem struct {
	Data            ItemData
	X, Z            float32
	DropNumber      uint64
	VisibilityFlags uint16
}

// VisibleTo reports whether client slot clientID can see this item.
func (fi *FloorItem) VisibleTo(clientID int) bool {
	return fi.VisibilityFlags&(1<<uint(clientID)) != 0
}

// FloorItemManager owns the floor items on a single floor of a single
// lobby. items gives O(1) by-id lookup; queueForClient gives, per client
// slot, the items visible to that slot ordered ascending by DropNumber —
// no third-party ordered-map type is available here, so this is kept as
// a slice maintained in sorted order by binary-search insert (queues are
// capped at maxPerQueue entries, 48 by default, so this stays cheap; see
// DESIGN.md).
type FloorItemManager struct {
	lobbyID     uint32
	floor       uint8
	maxPerQueue int
	logger      logging.Logger

	items          map[uint32]*FloorItem
	queueForClient [maxLobbyClients][]*FloorItem
	nextDropNumber uint64
}

// NewFloorItemManager constructs an empty manager for one floor. maxPerQueue
// bounds each client's visible-item queue; a value <= 0 falls back to
// maxItemsPerClientQueue.
func NewFloorItemManager(lobbyID uint32, floor uint8, maxPerQueue int, logger logging.Logger) *FloorItemManager {
	if maxPerQueue <= 0 {
		maxPerQueue = maxItemsPerClientQueue
	}
	return &FloorItemManager{
		lobbyID:     lobbyID,
		floor:       floor,
		maxPerQueue: maxPerQueue,
		logger:      logger,
		items:       make(map[uint32]*FloorItem),
	}
}

// Exists reports whether itemID is present.
func (m *FloorItemManager) Exists(itemID uint32) bool {
	_, ok := m.items[itemID]
	return ok
}

// Find returns the item with itemID, or a NotFound LobbyError.
func (m *FloorItemManager) Find(itemID uint32) (*FloorItem, error) {
	fi, ok := m.items[itemID]
	if !ok {
		return nil, lobbyerr.WithCode(xerrors.Errorf("item %08X not present", itemID), codes.NotFound)
	}
	return fi, nil
}

// Add constructs a FloorItem with the next drop number and inserts it.
func (m *FloorItemManager) Add(data ItemData, x, z float32, visibilityFlags uint16) error {
	fi := &FloorItem{
		Data:            data,
		X:               x,
		Z:               z,
		DropNumber:      m.nextDropNumber,
		VisibilityFlags: visibilityFlags & 0x0FFF,
	}
	m.nextDropNumber++
	return m.insert(fi)
}

// AddItem inserts an already-constructed FloorItem, used by callers
// (Lobby.AddFloorItem) re-inserting an item that already carries a drop
// number and visibility mask.
func (m *FloorItemManager) AddItem(fi *FloorItem) error {
	return m.insert(fi)
}

func (m *FloorItemManager) insert(fi *FloorItem) error {
	if fi.VisibilityFlags == 0 {
		return lobbyerr.WithCode(xerrors.New("floor item is not visible to any client"), codes.Internal)
	}
	if _, exists := m.items[fi.Data.ID]; exists {
		return lobbyerr.WithCode(xerrors.Errorf("floor item %08X already exists", fi.Data.ID), codes.AlreadyExists)
	}
	m.items[fi.Data.ID] = fi
	for i := 0; i < maxLobbyClients; i++ {
		if fi.VisibleTo(i) {
			m.queueForClient[i] = insertSorted(m.queueForClient[i], fi)
		}
	}
	m.logger.Infof("added floor item %08X at %g,%g drop=%d visible=%03X",
		fi.Data.ID, fi.X, fi.Z, fi.DropNumber, fi.VisibilityFlags)
	return nil
}

// Remove deletes itemID. clientID 0xFF bypasses the visibility check
// (server-initiated removal); any other value must have the visibility
// bit set or a PermissionDenied error is returned.
func (m *FloorItemManager) Remove(itemID uint32, clientID uint8) (*FloorItem, error) {
	fi, ok := m.items[itemID]
	if !ok {
		return nil, lobbyerr.WithCode(xerrors.Errorf("item %08X not present", itemID), codes.NotFound)
	}
	if clientID != 0xFF && !fi.VisibleTo(int(clientID)) {
		return nil, lobbyerr.WithCode(xerrors.Errorf("client %d does not have access to item %08X", clientID, itemID), codes.PermissionDenied)
	}
	for i := 0; i < maxLobbyClients; i++ {
		if !fi.VisibleTo(i) {
			continue
		}
		q, ok := removeSorted(m.queueForClient[i], fi.DropNumber)
		if !ok {
			return nil, lobbyerr.WithCode(xerrors.Errorf("item queue for client %d is inconsistent", i), codes.Internal)
		}
		m.queueForClient[i] = q
	}
	delete(m.items, itemID)
	m.logger.Infof("removed floor item %08X at %g,%g drop=%d visible=%03X",
		fi.Data.ID, fi.X, fi.Z, fi.DropNumber, fi.VisibilityFlags)
	return fi, nil
}

// Evict enforces the per-client-queue bound (maxPerQueue, 48 by
// default), removing the
// lowest-drop-number item in each client queue (ascending scan over
// client slots) until each queue is within bound. The returned set is
// deduplicated: one item can be evicted while draining an earlier
// client's queue and simply be already gone from a later one.
func (m *FloorItemManager) Evict() []*FloorItem {
	evicted := make(map[uint32]*FloorItem)
	for i := 0; i < maxLobbyClients; i++ {
		for len(m.queueForClient[i]) > m.maxPerQueue {
			victim := m.queueForClient[i][0]
			fi, err := m.Remove(victim.Data.ID, 0xFF)
			if err != nil {
				// Removing our own queue head can only fail if items/queues
				// have already diverged, which is a programmer error.
				panic(err)
			}
			evicted[fi.Data.ID] = fi
		}
	}
	ret := make([]*FloorItem, 0, len(evicted))
	for _, fi := range evicted {
		ret = append(ret, fi)
	}
	m.logger.Infof("evicted %d items", len(ret))
	return ret
}

// ClearInaccessible removes every item no longer visible to any slot in
// remainingMask — used when a client departs and others remain.
func (m *FloorItemManager) ClearInaccessible(remainingMask uint16) {
	toDelete := make([]uint32, 0)
	for id, fi := range m.items {
		if fi.VisibilityFlags&remainingMask == 0 {
			toDelete = append(toDelete, id)
		}
	}
	for _, id := range toDelete {
		if _, err := m.Remove(id, 0xFF); err != nil {
			panic(err)
		}
	}
	m.logger.Infof("deleted %d inaccessible items", len(toDelete))
}

// ClearPrivate removes every item not visible to all of the first four
// slots: used when a lobby becomes empty, to drop player-private items
// while preserving items public to everyone.
func (m *FloorItemManager) ClearPrivate() {
	toDelete := make([]uint32, 0)
	for id, fi := range m.items {
		if fi.VisibilityFlags&0x00F != 0x00F {
			toDelete = append(toDelete, id)
		}
	}
	for _, id := range toDelete {
		if _, err := m.Remove(id, 0xFF); err != nil {
			panic(err)
		}
	}
	m.logger.Infof("deleted %d private items", len(toDelete))
}

// Clear empties all state and resets the drop-number counter.
func (m *FloorItemManager) Clear() {
	n := len(m.items)
	m.items = make(map[uint32]*FloorItem)
	for i := range m.queueForClient {
		m.queueForClient[i] = nil
	}
	m.nextDropNumber = 0
	m.logger.Infof("deleted %d items", n)
}

// ReassignAllItemIDs snapshots current items ordered ascending by their
// OLD id, clears state without resetting nextDropNumber (so drop order,
// and therefore per-client queue order, survives), and re-inserts each
// with a freshly assigned ID starting at nextID. Returns the final
// (one-past-last) id value, threaded across floors by the caller.
func (m *FloorItemManager) ReassignAllItemIDs(nextID uint32) uint32 {
	ids := make([]uint32, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	old := m.items
	m.items = make(map[uint32]*FloorItem, len(old))
	for i := range m.queueForClient {
		m.queueForClient[i] = nil
	}

	for _, id := range ids {
		fi := old[id]
		fi.Data.ID = nextID
		nextID++
		if err := m.insert(fi); err != nil {
			panic(err)
		}
	}
	return nextID
}

func insertSorted(q []*FloorItem, fi *FloorItem) []*FloorItem {
	idx := sort.Search(len(q), func(i int) bool { return q[i].DropNumber >= fi.DropNumber })
	q = append(q, nil)
	copy(q[idx+1:], q[idx:])
	q[idx] = fi
	return q
}

func removeSorted(q []*FloorItem, dropNumber uint64) ([]*FloorItem, bool) {
	idx := sort.Search(len(q), func(i int) bool { return q[i].DropNumber >= dropNumber })
	if idx >= len(q) || q[idx].DropNumber != dropNumber {
		return q, false
	}
	return append(q[:idx], q[idx+1:]...), true
}
