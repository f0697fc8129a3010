package lobby

// License is the boundary contract for account/character storage: this
// core needs nothing from it beyond a couple of flag queries.
type License interface {
	SerialNumber() uint32
	HasFreeJoinGames() bool
}

// Quest is the boundary contract for a per-version/-language accessor
// yielding decompressed quest data. This core only needs its
// visibility/playability predicates.
type Quest interface {
	CanSee(c Client, event, difficulty uint8, numClients int, v1Present bool) bool
	CanPlay(c Client, event, difficulty uint8, numClients int, v1Present bool) bool
}

// Client is the boundary contract for a connected session. Item
// generation and network framing remain the caller's concern; this core
// only needs identity, slot back-references, config flags and the
// handful of inventory/bank accessors item-ID assignment touches.
type Client interface {
	Version() Version
	Language() uint8
	Name() string
	License() License
	Level() uint32

	HasConfigFlag(f ClientFlag) bool
	SetConfigFlag(f ClientFlag)

	InventoryItemCount() int
	SetInventoryItemID(index int, id uint32)
	BankItemCount() int
	SetBankItemID(index int, id uint32)

	CanSeeQuest(q Quest, event, difficulty uint8, numClients int, v1Present bool) bool
	CanPlayQuest(q Quest, event, difficulty uint8, numClients int, v1Present bool) bool

	// Slot back-reference, written by Lobby.AddClient/RemoveClient. The
	// invariant is that for every occupied slot i, clients[i].LobbyClientID()
	// equals i.
	LobbyClientID() int
	SetLobbyClientID(id int)
	SetLobbyArrowColor(color int)

	// Weak back-reference to the owning lobby. Go has no first-class weak
	// pointer in common use here, so this is a plain pointer the lobby
	// clears on departure; see DESIGN.md for the tradeoff.
	Lobby() *Lobby
	SetLobby(l *Lobby)
}
