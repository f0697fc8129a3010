// Package registry tracks the set of live lobbies on a server process:
// creation, lookup, removal (the ServerState boundary the lobby package's
// idle timer calls back into) and the sorted browse listing. It is a
// small in-memory index in front of an optional persistent store.
package registry

import (
	"sort"
	"sync"

	"golang.org/x/xerrors"
	"google.golang.org/grpc/codes"

	"github.com/fishscene/newserv/internal/logging"
	"github.com/fishscene/newserv/lobby"
	"github.com/fishscene/newserv/lobbyerr"
)

// Registry is the process-wide index of live lobbies. It implements
// lobby.ServerState so a Lobby's idle timer can ask to be removed, and so
// it can hand back a listing snapshot on every membership change, without
// knowing anything else about persistence.
type Registry struct {
	mu      sync.RWMutex
	lobbies map[uint32]*lobby.Lobby
	seeded  map[uint32]lobby.ListingInfo
	store   *Store
	logger  logging.Logger
}

// New constructs an empty Registry. store may be nil, in which case
// listings are served purely from memory and nothing is persisted.
func New(store *Store, logger logging.Logger) *Registry {
	return &Registry{
		lobbies: make(map[uint32]*lobby.Lobby),
		seeded:  make(map[uint32]lobby.ListingInfo),
		store:   store,
		logger:  logger,
	}
}

// Seed loads listings recovered from the persistent store (typically via
// Store.LoadAll at process startup) into the registry, so List reflects
// the pre-restart browse listing until each lobby is re-created and
// registered with Add, which supersedes its seeded entry.
func (r *Registry) Seed(infos []lobby.ListingInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, info := range infos {
		r.seeded[info.LobbyID] = info
	}
	if r.logger != nil {
		r.logger.Infof("seeded %d listings from persisted store", len(infos))
	}
}

// Add registers a newly created lobby under its ID, superseding any
// seeded entry for the same ID.
func (r *Registry) Add(l *lobby.Lobby) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lobbies[l.ID] = l
	delete(r.seeded, l.ID)
	if r.logger != nil {
		r.logger.Infof("registered lobby %08X", l.ID)
	}
}

// Get looks up a lobby by ID.
func (r *Registry) Get(id uint32) (*lobby.Lobby, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[id]
	if !ok {
		return nil, lobbyerr.WithCode(xerrors.Errorf("lobby %08X not found", id), codes.NotFound)
	}
	return l, nil
}

// RemoveLobby implements lobby.ServerState: it drops the lobby from the
// index and, if a store is configured, deletes its persisted snapshot.
// Called from within the departing lobby's own command loop (the idle
// timer's fire callback), so it must not call back into that lobby.
func (r *Registry) RemoveLobby(lobbyID uint32) {
	r.mu.Lock()
	delete(r.lobbies, lobbyID)
	delete(r.seeded, lobbyID)
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Infof("removed lobby %08X", lobbyID)
	}
	if r.store != nil {
		if err := r.store.Delete(lobbyID); err != nil && r.logger != nil {
			r.logger.Warnf("failed to delete persisted snapshot for lobby %08X: %v", lobbyID, err)
		}
	}
}

// NotifyListingChanged implements lobby.ServerState: it persists the
// single lobby's updated snapshot, called synchronously by that lobby
// after every membership change (AddClient/RemoveClient), so the stored
// table never lags behind live state waiting on a List call.
func (r *Registry) NotifyListingChanged(info lobby.ListingInfo) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveSnapshots([]lobby.ListingInfo{info}); err != nil && r.logger != nil {
		r.logger.Warnf("failed to persist listing snapshot for lobby %08X: %v", info.LobbyID, err)
	}
}

// List returns every live lobby's ListingInfo, ordered by lobby.Compare.
// Lobbies not yet re-created since a restart are included from their
// seeded (persisted) snapshot until Add supersedes them.
func (r *Registry) List() []lobby.ListingInfo {
	r.mu.RLock()
	lobbies := make([]*lobby.Lobby, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		lobbies = append(lobbies, l)
	}
	seeded := make([]lobby.ListingInfo, 0, len(r.seeded))
	for _, info := range r.seeded {
		seeded = append(seeded, info)
	}
	r.mu.RUnlock()

	infos := make([]lobby.ListingInfo, 0, len(lobbies)+len(seeded))
	for _, l := range lobbies {
		infos = append(infos, l.Snapshot())
	}
	infos = append(infos, seeded...)
	sort.Slice(infos, func(i, j int) bool { return lobby.Compare(infos[i], infos[j]) })
	return infos
}

// Count returns the number of live lobbies.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies)
}
