// Package lobby implements the lobby/game session core: per-floor item
// visibility, membership lifecycle, join gating, idle-timeout scheduling,
// item-ID partitioning and browse-listing order.
//
// All state lives behind a single command loop per Lobby, modeled as an
// actor: every public method dispatches a closure onto the loop and
// blocks for it to run to completion, so operations are totally ordered
// by arrival without a plain mutex pretending to be an event loop.
package lobby

import (
	"fmt"
	"time"

	"golang.org/x/xerrors"
	"google.golang.org/grpc/codes"

	"github.com/fishscene/newserv/internal/logging"
	"github.com/fishscene/newserv/lobbyerr"
)

const floorItemQueueFloors = 18

type call struct {
	fn   func(*Lobby)
	done chan struct{}
}

// Lobby is the aggregate root: twelve client slots, per-floor
// FloorItemManagers, an ItemIDAllocator, join gating, an idle timer, and
// mode/episode/difficulty/flags state.
type Lobby struct {
	ID     uint32
	logger logging.Logger

	callCh chan call
	closed chan struct{}
	closeO closeOnce

	isGame          bool
	name            string
	password        string
	baseVersion     Version
	allowedVersions uint16
	episode         Episode
	mode            GameMode
	difficulty      uint8
	sectionID       uint8
	event           uint8
	block           uint8
	minLevel        uint32
	maxLevel        uint32
	randomSeed      uint32
	dropMode        DropMode
	leaderID        int
	maxClients      int
	flags           Flag
	idleTimeoutUsecs uint64

	clients    [maxLobbyClients]Client
	floorItems []*FloorItemManager
	itemIDs    *ItemIDAllocator

	quest        Quest
	watchedLobby *Lobby

	serverState        ServerState
	notifier           Notifier
	battleRecorder     BattleRecorder
	itemCreatorFactory ItemCreatorFactory
	itemCreator        ItemCreator

	idleTimer *IdleTimer
}

// Options configures a new Lobby. Collaborators left nil are simply not
// invoked (e.g. a lobby with no BattleRecorder never records events).
type Options struct {
	ID                 uint32
	IsGame             bool
	MaxClients         int
	FloorCount         int
	FloorItemCap       int
	ServerState        ServerState
	Notifier           Notifier
	BattleRecorder     BattleRecorder
	ItemCreatorFactory ItemCreatorFactory
	Logger             logging.Logger
}

// New constructs a Lobby and starts its command loop.
func New(opts Options) *Lobby {
	if opts.MaxClients <= 0 || opts.MaxClients > maxLobbyClients {
		opts.MaxClients = maxLobbyClients
	}
	if opts.FloorCount <= 0 {
		opts.FloorCount = floorItemQueueFloors
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	l := &Lobby{
		ID:                 opts.ID,
		logger:             logger.With(fmt.Sprintf("lobby=%08X", opts.ID)),
		callCh:             make(chan call),
		closed:             make(chan struct{}),
		baseVersion:        VersionGCV3,
		maxLevel:           0xFFFFFFFF,
		maxClients:         opts.MaxClients,
		serverState:        opts.ServerState,
		notifier:           opts.Notifier,
		battleRecorder:     opts.BattleRecorder,
		itemCreatorFactory: opts.ItemCreatorFactory,
		idleTimer:          &IdleTimer{},
	}
	if opts.IsGame {
		l.flags |= FlagGame
		l.isGame = true
	}
	l.itemIDs = NewItemIDAllocator(l.isGame, l.maxClients)
	l.floorItems = make([]*FloorItemManager, opts.FloorCount)
	for i := range l.floorItems {
		l.floorItems[i] = NewFloorItemManager(opts.ID, uint8(i), opts.FloorItemCap, l.logger.With(fmt.Sprintf("floor=%02X", i)))
	}
	l.logger.Infof("created")
	go l.run()
	return l
}

func (l *Lobby) run() {
	for {
		select {
		case c := <-l.callCh:
			c.fn(l)
			close(c.done)
		case <-l.closed:
			return
		}
	}
}

// exec dispatches fn onto the command loop and blocks until it runs. It is
// a no-op if the lobby has been shut down.
func (l *Lobby) exec(fn func(*Lobby)) {
	done := make(chan struct{})
	select {
	case l.callCh <- call{fn, done}:
		<-done
	case <-l.closed:
	}
}

// Shutdown stops the command loop. Safe to call more than once.
func (l *Lobby) Shutdown() {
	l.closeO.do(func() { close(l.closed) })
}

// IsGame reports whether this lobby is a "game" (vs. a browsable lobby),
// which affects item-ID bases and several policies.
func (l *Lobby) IsGame() bool { return l.isGame }

// ---- Configuration API ----

// SetName sets the browse-listing name.
func (l *Lobby) SetName(name string) { l.exec(func(l *Lobby) { l.name = name }) }

// SetPassword sets the join password (empty means public).
func (l *Lobby) SetPassword(pw string) { l.exec(func(l *Lobby) { l.password = pw }) }

// SetVersion sets the lobby's base version and allowed-versions bitmask.
func (l *Lobby) SetVersion(base Version, allowed uint16) {
	l.exec(func(l *Lobby) {
		l.baseVersion = base
		l.allowedVersions = allowed
	})
}

// SetEpisodeModeDifficulty sets the three fields that gate joins and
// quest visibility together, since they're always set as a unit.
func (l *Lobby) SetEpisodeModeDifficulty(ep Episode, mode GameMode, difficulty uint8) {
	l.exec(func(l *Lobby) {
		l.episode = ep
		l.mode = mode
		l.difficulty = difficulty
	})
}

// SetLevelRange sets the inclusive level range for non-free-join clients.
func (l *Lobby) SetLevelRange(min, max uint32) {
	l.exec(func(l *Lobby) {
		l.minLevel = min
		l.maxLevel = max
	})
}

// SetQuest sets (or clears, with nil) the loaded quest.
func (l *Lobby) SetQuest(q Quest) { l.exec(func(l *Lobby) { l.quest = q }) }

// SetFlag sets or clears one or more Flag bits.
func (l *Lobby) SetFlag(f Flag, on bool) {
	l.exec(func(l *Lobby) {
		if on {
			l.flags |= f
		} else {
			l.flags &^= f
		}
	})
}

// SetIdleTimeout sets the idle-timeout duration armed when the lobby
// becomes empty.
func (l *Lobby) SetIdleTimeout(usecs uint64) {
	l.exec(func(l *Lobby) { l.idleTimeoutUsecs = usecs })
}

// SetWatchedLobby sets the spectator team's watched lobby.
func (l *Lobby) SetWatchedLobby(watched *Lobby) {
	l.exec(func(l *Lobby) { l.watchedLobby = watched })
}

// SetDropMode updates the drop mode, lazily creating or destroying the
// item creator as the new mode requires.
func (l *Lobby) SetDropMode(mode DropMode) error {
	var err error
	l.exec(func(l *Lobby) { err = l.setDropModeLocked(mode) })
	return err
}

func (l *Lobby) setDropModeLocked(mode DropMode) error {
	l.dropMode = mode
	shouldHaveItemCreator := l.baseVersion == VersionBBV4 ||
		(mode != DropModeDisabled && mode != DropModeClient)
	if shouldHaveItemCreator && l.itemCreator == nil {
		if err := l.createItemCreatorLocked(); err != nil {
			return err
		}
	} else if !shouldHaveItemCreator && l.itemCreator != nil {
		l.itemCreator = nil
	}
	return nil
}

func (l *Lobby) createItemCreatorLocked() error {
	switch l.baseVersion {
	case VersionPCPatch, VersionBBPatch, VersionGCEp3NTE, VersionGCEp3:
		return lobbyerr.WithCode(xerrors.New("cannot create item creator for this base version"), codes.Internal)
	}
	if l.itemCreatorFactory == nil {
		return lobbyerr.WithCode(xerrors.New("no item creator factory configured"), codes.Internal)
	}
	ic, err := l.itemCreatorFactory.Create(l)
	if err != nil {
		return lobbyerr.WithCode(xerrors.Errorf("create item creator: %w", err), codes.Internal)
	}
	l.itemCreator = ic
	return nil
}

// ResetNextItemIDs resets the item-ID allocator to its base values.
func (l *Lobby) ResetNextItemIDs() {
	l.exec(func(l *Lobby) { l.itemIDs.Reset() })
}

// ---- Membership API ----

// AddClient assigns c to a slot. requiredSlot < 0 means "any slot"; the
// selection policy is required slot first, then a debug client fills
// from the highest slot down, and everyone else fills from the lowest
// slot up.
func (l *Lobby) AddClient(c Client, requiredSlot int) error {
	var err error
	l.exec(func(l *Lobby) { err = l.addClientLocked(c, requiredSlot) })
	return err
}

func (l *Lobby) minSlot() int {
	if l.flags.has(FlagIsSpectatorTeam) {
		return 4
	}
	return 0
}

func (l *Lobby) addClientLocked(c Client, requiredSlot int) error {
	minSlot := l.minSlot()
	var slot int

	switch {
	case requiredSlot >= 0:
		if requiredSlot >= l.maxClients || l.clients[requiredSlot] != nil {
			return lobbyerr.WithCode(xerrors.Errorf("required slot %d is in use", requiredSlot), codes.AlreadyExists)
		}
		slot = requiredSlot

	case c.HasConfigFlag(ClientFlagDebugEnabled) && l.mode != ModeSolo:
		slot = -1
		for i := l.maxClients - 1; i >= minSlot; i-- {
			if l.clients[i] == nil {
				slot = i
				break
			}
		}
		if slot < 0 {
			return lobbyerr.WithCode(xerrors.New("no space left in lobby"), codes.ResourceExhausted)
		}

	default:
		slot = -1
		for i := minSlot; i < l.maxClients; i++ {
			if l.clients[i] == nil {
				slot = i
				break
			}
		}
		if slot < 0 {
			return lobbyerr.WithCode(xerrors.New("no space left in lobby"), codes.ResourceExhausted)
		}
	}

	l.clients[slot] = c
	c.SetLobbyClientID(slot)
	c.SetLobby(l)
	c.SetLobbyArrowColor(0)

	wasEmptyBefore := true
	for i := 0; i < l.maxClients; i++ {
		if l.clients[i] != nil && l.clients[i] != c {
			wasEmptyBefore = false
			break
		}
	}
	if wasEmptyBefore {
		l.leaderID = slot
	}

	if !l.isGame || wasEmptyBefore {
		l.itemIDs.Reset()
		next := l.itemIDs.NextGameItemID()
		for _, m := range l.floorItems {
			next = m.ReassignAllItemIDs(next)
		}
		l.itemIDs.SetNextGameItemID(next)
	}

	consume := !l.isGame || slot == l.leaderID
	l.assignInventoryAndBankItemIDs(c, consume)

	if l.isGame && l.baseVersion == VersionBBV4 {
		c.SetConfigFlag(ClientFlagShouldSendArtificialFlagState)
	}

	if l.battleRecorder != nil {
		l.battleRecorder.AddPlayer(c)
	}

	l.notifyMetadataChangedLocked()
	l.notifyListingChangedLocked()

	l.idleTimer.Cancel()
	l.logger.Infof("client joined slot %d (leader=%d)", slot, l.leaderID)
	return nil
}

func (l *Lobby) assignInventoryAndBankItemIDs(c Client, consume bool) {
	slot := c.LobbyClientID()
	orig := l.itemIDs.PeekNextForClient(slot)
	n := c.InventoryItemCount()
	for i := 0; i < n; i++ {
		c.SetInventoryItemID(i, l.itemIDs.Generate(slot))
	}
	if !consume {
		l.itemIDs.SetNextForClient(slot, orig)
	}

	bankCount := c.BankItemCount()
	if bankCount > 0 {
		base := BankItemIDBase(slot)
		for i := 0; i < bankCount; i++ {
			c.SetBankItemID(i, base+uint32(i))
		}
	}
}

func (l *Lobby) notifyMetadataChangedLocked() {
	if !(l.isGame && l.isEp3()) || l.notifier == nil {
		return
	}
	if l.flags.has(FlagIsSpectatorTeam) {
		if l.watchedLobby != nil {
			l.notifier.NotifyMetadataChanged(l.watchedLobby)
		}
	} else {
		l.notifier.NotifyMetadataChanged(l)
	}
}

// notifyListingChangedLocked hands the current listing snapshot to
// serverState after every membership change, so a registry can persist it
// without re-entering this lobby's own command loop.
func (l *Lobby) notifyListingChangedLocked() {
	if l.serverState == nil {
		return
	}
	l.serverState.NotifyListingChanged(l.snapshotLocked())
}

// RemoveClient vacates c's slot.
func (l *Lobby) RemoveClient(c Client) error {
	var err error
	l.exec(func(l *Lobby) { err = l.removeClientLocked(c) })
	return err
}

func (l *Lobby) removeClientLocked(c Client) error {
	slot := c.LobbyClientID()
	if slot < 0 || slot >= l.maxClients || l.clients[slot] != c {
		return lobbyerr.WithCode(xerrors.New("client's lobby slot does not match client list"), codes.Internal)
	}
	l.clients[slot] = nil
	if c.Lobby() == l {
		c.SetLobby(nil)
	}

	l.leaderID = 0
	for i := 0; i < l.maxClients; i++ {
		if i == slot {
			continue
		}
		if l.clients[i] != nil {
			l.leaderID = i
			break
		}
	}

	if l.battleRecorder != nil {
		l.battleRecorder.DeletePlayer(slot)
	}

	l.notifyMetadataChangedLocked()
	l.notifyListingChangedLocked()

	var remainingMask uint16
	for i := 0; i < maxLobbyClients && i < l.maxClients; i++ {
		if l.clients[i] != nil {
			remainingMask |= 1 << uint(i)
		}
	}
	if remainingMask != 0 {
		for _, m := range l.floorItems {
			m.ClearInaccessible(remainingMask)
		}
	} else {
		for _, m := range l.floorItems {
			m.ClearPrivate()
		}
	}

	if remainingMask == 0 &&
		l.flags.has(FlagPersistent) &&
		!l.flags.has(FlagDefault) &&
		l.idleTimeoutUsecs > 0 {
		l.idleTimer.Arm(time.Duration(l.idleTimeoutUsecs)*time.Microsecond, l.onIdleTimeout)
		l.logger.Infof("idle timeout scheduled")
	}

	l.logger.Infof("client left slot %d (leader=%d)", slot, l.leaderID)
	return nil
}

func (l *Lobby) onIdleTimeout() {
	l.exec(func(l *Lobby) {
		if l.countClientsLocked() == 0 {
			l.logger.Infof("idle timeout expired")
			if l.serverState != nil {
				l.serverState.RemoveLobby(l.ID)
			}
		} else {
			l.logger.Warnf("idle timeout occurred, but clients are present in lobby")
			l.idleTimer.Cancel()
		}
	})
}

// MoveClientToLobby moves c from l to dest. A capacity precheck on dest
// happens before either lobby is mutated.
func (l *Lobby) MoveClientToLobby(dest *Lobby, c Client, requiredSlot int) error {
	if dest == l {
		return nil
	}

	var precheckErr error
	dest.exec(func(d *Lobby) {
		if requiredSlot >= 0 {
			if requiredSlot >= d.maxClients || d.clients[requiredSlot] != nil {
				precheckErr = lobbyerr.WithCode(xerrors.Errorf("required slot %d is in use", requiredSlot), codes.AlreadyExists)
			}
			return
		}
		available := d.maxClients - d.minSlot()
		if d.countClientsLocked() >= available {
			precheckErr = lobbyerr.WithCode(xerrors.New("no space left in lobby"), codes.ResourceExhausted)
		}
	})
	if precheckErr != nil {
		return precheckErr
	}

	if err := l.RemoveClient(c); err != nil {
		return err
	}
	return dest.AddClient(c, requiredSlot)
}

// ---- Query / helper API ----

func (l *Lobby) countClientsLocked() int {
	n := 0
	for i := 0; i < l.maxClients; i++ {
		if l.clients[i] != nil {
			n++
		}
	}
	return n
}

// CountClients returns the number of occupied slots.
func (l *Lobby) CountClients() int {
	var n int
	l.exec(func(l *Lobby) { n = l.countClientsLocked() })
	return n
}

func (l *Lobby) anyClientLoadingLocked() bool {
	for i := 0; i < l.maxClients; i++ {
		c := l.clients[i]
		if c == nil {
			continue
		}
		if c.HasConfigFlag(ClientFlagLoading) ||
			c.HasConfigFlag(ClientFlagLoadingQuest) ||
			c.HasConfigFlag(ClientFlagLoadingRunningJoinableQuest) {
			return true
		}
	}
	return false
}

// AnyClientLoading reports whether any occupied slot's client is loading.
func (l *Lobby) AnyClientLoading() bool {
	var v bool
	l.exec(func(l *Lobby) { v = l.anyClientLoadingLocked() })
	return v
}

func (l *Lobby) anyV1ClientsPresentLocked() bool {
	for i := 0; i < l.maxClients; i++ {
		if l.clients[i] != nil && l.clients[i].Version().IsV1() {
			return true
		}
	}
	return false
}

// AnyV1ClientsPresent reports whether any occupied slot's client's
// version is in the v1 family.
func (l *Lobby) AnyV1ClientsPresent() bool {
	var v bool
	l.exec(func(l *Lobby) { v = l.anyV1ClientsPresentLocked() })
	return v
}

// FindClient scans slots for a match on serial (if provided and the
// client has a license) else on character name.
func (l *Lobby) FindClient(name *string, serial uint32) (Client, error) {
	var found Client
	var err error
	l.exec(func(l *Lobby) {
		for i := 0; i < l.maxClients; i++ {
			c := l.clients[i]
			if c == nil {
				continue
			}
			if serial != 0 && c.License() != nil && c.License().SerialNumber() == serial {
				found = c
				return
			}
			if name != nil && c.Name() == *name {
				found = c
				return
			}
		}
		err = lobbyerr.WithCode(xerrors.New("client not found"), codes.NotFound)
	})
	return found, err
}

// ClientsBySerialNumber returns a dense serial->client mapping for
// occupied slots.
func (l *Lobby) ClientsBySerialNumber() map[uint32]Client {
	ret := make(map[uint32]Client)
	l.exec(func(l *Lobby) {
		for i := 0; i < l.maxClients; i++ {
			c := l.clients[i]
			if c != nil && c.License() != nil {
				ret[c.License().SerialNumber()] = c
			}
		}
	})
	return ret
}

// JoinErrorForClient computes the join refusal (or JoinAllowed) for a
// candidate client. A nil password means "list-view probe": password and
// loading checks are skipped.
func (l *Lobby) JoinErrorForClient(c Client, password *string) JoinError {
	var je JoinError
	l.exec(func(l *Lobby) { je = l.joinErrorForLocked(c, password) })
	return je
}

// QuestIncludeState is the verdict QuestIncludeCondition's closure
// returns for one quest.
type QuestIncludeState int

const (
	QuestAvailable QuestIncludeState = iota
	QuestDisabled
	QuestHidden
)

// QuestIncludeCondition returns a closure evaluating, for a given quest,
// whether it is AVAILABLE/DISABLED/HIDDEN to every client currently
// present.
func (l *Lobby) QuestIncludeCondition() func(q Quest) QuestIncludeState {
	var numClients int
	var v1Present bool
	var clients []Client
	var event, difficulty uint8
	l.exec(func(l *Lobby) {
		numClients = l.countClientsLocked()
		v1Present = l.anyV1ClientsPresentLocked()
		clients = make([]Client, 0, numClients)
		for i := 0; i < l.maxClients; i++ {
			if l.clients[i] != nil {
				clients = append(clients, l.clients[i])
			}
		}
		event = l.event
		difficulty = l.difficulty
	})
	return func(q Quest) QuestIncludeState {
		enabled := true
		for _, c := range clients {
			if !c.CanSeeQuest(q, event, difficulty, numClients, v1Present) {
				return QuestHidden
			}
			if !c.CanPlayQuest(q, event, difficulty, numClients, v1Present) {
				enabled = false
			}
		}
		if enabled {
			return QuestAvailable
		}
		return QuestDisabled
	}
}

// ---- Item API ----

func (l *Lobby) floorManager(floor uint8) (*FloorItemManager, error) {
	if int(floor) >= len(l.floorItems) {
		return nil, lobbyerr.WithCode(xerrors.Errorf("floor %d out of range", floor), codes.NotFound)
	}
	return l.floorItems[floor], nil
}

// ItemExists reports whether itemID exists on floor.
func (l *Lobby) ItemExists(floor uint8, itemID uint32) bool {
	var ok bool
	l.exec(func(l *Lobby) {
		m, err := l.floorManager(floor)
		if err != nil {
			return
		}
		ok = m.Exists(itemID)
	})
	return ok
}

// FindItem returns the item with itemID on floor.
func (l *Lobby) FindItem(floor uint8, itemID uint32) (*FloorItem, error) {
	var fi *FloorItem
	var err error
	l.exec(func(l *Lobby) {
		m, merr := l.floorManager(floor)
		if merr != nil {
			err = merr
			return
		}
		fi, err = m.Find(itemID)
	})
	return fi, err
}

// AddItem drops a new item and evicts if needed.
func (l *Lobby) AddItem(floor uint8, data ItemData, x, z float32, visibilityFlags uint16) error {
	var err error
	l.exec(func(l *Lobby) {
		m, merr := l.floorManager(floor)
		if merr != nil {
			err = merr
			return
		}
		if err = m.Add(data, x, z, visibilityFlags); err != nil {
			return
		}
		l.evictItemsFromFloorLocked(floor, m)
	})
	return err
}

// AddFloorItem re-inserts an already-constructed FloorItem (e.g. one
// handed back by a prior Remove/Evict) and evicts if needed.
func (l *Lobby) AddFloorItem(floor uint8, fi *FloorItem) error {
	var err error
	l.exec(func(l *Lobby) {
		m, merr := l.floorManager(floor)
		if merr != nil {
			err = merr
			return
		}
		if err = m.AddItem(fi); err != nil {
			return
		}
		l.evictItemsFromFloorLocked(floor, m)
	})
	return err
}

// RemoveItem removes itemID from floor on behalf of requestingClientID
// (0xFF bypasses the visibility check).
func (l *Lobby) RemoveItem(floor uint8, itemID uint32, requestingClientID uint8) (*FloorItem, error) {
	var fi *FloorItem
	var err error
	l.exec(func(l *Lobby) {
		m, merr := l.floorManager(floor)
		if merr != nil {
			err = merr
			return
		}
		fi, err = m.Remove(itemID, requestingClientID)
	})
	return fi, err
}

// EvictItemsFromFloor enforces the per-client queue bound on floor and
// notifies every client that could see an evicted item.
func (l *Lobby) EvictItemsFromFloor(floor uint8) error {
	var err error
	l.exec(func(l *Lobby) {
		m, merr := l.floorManager(floor)
		if merr != nil {
			err = merr
			return
		}
		l.evictItemsFromFloorLocked(floor, m)
	})
	return err
}

func (l *Lobby) evictItemsFromFloorLocked(floor uint8, m *FloorItemManager) {
	evicted := m.Evict()
	if len(evicted) == 0 || l.notifier == nil {
		return
	}
	for _, fi := range evicted {
		for i := 0; i < maxLobbyClients && i < l.maxClients; i++ {
			c := l.clients[i]
			if c != nil && fi.VisibleTo(i) {
				l.notifier.NotifyDestroyFloorItem(c, fi.Data.ID, floor)
			}
		}
	}
}

// GenerateItemID allocates a new item id for clientID (or the
// server-drop pool if clientID is not a valid slot).
func (l *Lobby) GenerateItemID(clientID int) uint32 {
	var id uint32
	l.exec(func(l *Lobby) { id = l.itemIDs.Generate(clientID) })
	return id
}

// OnItemIDGeneratedExternally narrows the per-slot counter to stay
// disjoint from an id the client itself minted.
func (l *Lobby) OnItemIDGeneratedExternally(itemID uint32) {
	l.exec(func(l *Lobby) { l.itemIDs.ObserveExternal(itemID) })
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Warnf(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}
func (noopLogger) With(string) logging.Logger    { return noopLogger{} }

type closeOnce struct {
	done bool
}

func (c *closeOnce) do(fn func()) {
	if c.done {
		return
	}
	c.done = true
	fn()
}
