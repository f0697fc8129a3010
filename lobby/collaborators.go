package lobby

// ServerState is the weak-owner boundary a Lobby reaches through for the
// two lifecycle events it cannot resolve on its own: removing itself when
// its idle timer fires, and handing back its listing snapshot on every
// membership change so a registry can persist it without calling back
// into the lobby's own command loop (which would deadlock). Everything
// else a server-wide registry might expose (item sets, map loaders, rare
// tables, ...) is outside this package.
type ServerState interface {
	RemoveLobby(lobbyID uint32)
	NotifyListingChanged(info ListingInfo)
}

// Notifier covers the two outbound notifications this core emits
// synchronously: destroying a floor item on eviction, and the Episode 3
// spectator-count refresh on membership change. Both are best-effort;
// failures are not expected to roll back lobby state.
type Notifier interface {
	NotifyDestroyFloorItem(c Client, itemID uint32, floor uint8)
	NotifyMetadataChanged(l *Lobby)
}

// BattleRecorder is the Episode 3 battle-record boundary: "player
// joined"/"player left" events, recorded only when the lobby has an
// active recorder. The card-battle server itself is out of scope.
type BattleRecorder interface {
	AddPlayer(c Client)
	DeletePlayer(slot int)
}

// ItemCreator is an opaque handle; item generation itself is out of
// scope here. Only its lifecycle (created/destroyed by SetDropMode) is
// this core's concern.
type ItemCreator interface{}

// ItemCreatorFactory builds an ItemCreator for a lobby once SetDropMode
// determines one is needed.
type ItemCreatorFactory interface {
	Create(l *Lobby) (ItemCreator, error)
}
