package lobby

// Item-ID space partitioning constants.
const (
	gameItemIDBase    = 0x00010000
	nonGameItemIDBase = 0x10010000
	clientIDStride    = 0x00200000
	serverItemIDBase  = 0xCC000000
	bankItemIDBase    = 0x99000000

	externalObserveLowerBound = 0x00010000
	externalObserveUpperBound = 0x00810000
)

// ItemIDAllocator partitions the 32-bit item-ID space across client slots
// and the server-side drop pool.
type ItemIDAllocator struct {
	isGame        bool
	maxClients    int
	nextForClient [maxLobbyClients]uint32
	nextGame      uint32
}

// NewItemIDAllocator builds an allocator for a lobby of the given kind
// and resets it to its base values.
func NewItemIDAllocator(isGame bool, maxClients int) *ItemIDAllocator {
	a := &ItemIDAllocator{isGame: isGame, maxClients: maxClients}
	a.Reset()
	return a
}

// Reset restores the base values for the lobby's kind.
func (a *ItemIDAllocator) Reset() {
	base := uint32(nonGameItemIDBase)
	if a.isGame {
		base = gameItemIDBase
	}
	for i := 0; i < maxLobbyClients; i++ {
		a.nextForClient[i] = base + clientIDStride*uint32(i)
	}
	a.nextGame = serverItemIDBase
}

// Generate returns and post-increments the counter for clientID, or the
// server-drop counter if clientID is not an in-range client slot.
func (a *ItemIDAllocator) Generate(clientID int) uint32 {
	if clientID >= 0 && clientID < a.maxClients {
		id := a.nextForClient[clientID]
		a.nextForClient[clientID]++
		return id
	}
	id := a.nextGame
	a.nextGame++
	return id
}

// ObserveExternal narrows the client's next-id counter to stay disjoint
// from server-side drops: the client accepts a wider legal range than
// the server allows itself to narrow to.
func (a *ItemIDAllocator) ObserveExternal(itemID uint32) {
	if itemID <= externalObserveLowerBound || itemID >= externalObserveUpperBound {
		return
	}
	slot := int((itemID >> 21) & 0x7FF)
	if slot < 0 || slot >= maxLobbyClients {
		return
	}
	if itemID+1 > a.nextForClient[slot] {
		a.nextForClient[slot] = itemID + 1
	}
}

// PeekNextForClient returns the counter for slot without consuming it,
// used to implement "tentative" (non-consuming) id assignment.
func (a *ItemIDAllocator) PeekNextForClient(slot int) uint32 {
	return a.nextForClient[slot]
}

// SetNextForClient restores the counter for slot, used to roll back a
// tentative assignment.
func (a *ItemIDAllocator) SetNextForClient(slot int, v uint32) {
	a.nextForClient[slot] = v
}

// NextGameItemID returns the current server-drop counter without
// consuming it, used to thread a running value across floor managers
// while reassigning every floor item's id.
func (a *ItemIDAllocator) NextGameItemID() uint32 {
	return a.nextGame
}

// SetNextGameItemID stores the server-drop counter back after threading
// it through every floor manager's ReassignAllItemIDs.
func (a *ItemIDAllocator) SetNextGameItemID(v uint32) {
	a.nextGame = v
}

// BankItemIDBase returns the base bank item id for a client slot
// (0x99000000 + slot<<20).
func BankItemIDBase(slot int) uint32 {
	return bankItemIDBase + (uint32(slot) << 20)
}
