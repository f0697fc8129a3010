package registry

import (
	"github.com/fishscene/newserv/internal/config"
	"github.com/fishscene/newserv/internal/logging"
	"github.com/fishscene/newserv/lobby"
)

// CreateLobby builds a Lobby from cfg's defaults, wires this registry in
// as its ServerState (so its idle timer and listing-change notifications
// land here), registers it, and returns it. This is the one place
// config.LobbyConf's fields actually reach a Lobby; cfg.IdleTimeoutUsecs
// is applied after construction since lobby.Options has no idle-timeout
// field of its own (idle timeout is commonly reconfigured per lobby after
// creation, unlike slot/floor layout).
func (r *Registry) CreateLobby(cfg config.LobbyConf, id uint32, isGame bool, notifier lobby.Notifier, logger logging.Logger) *lobby.Lobby {
	l := lobby.New(lobby.Options{
		ID:           id,
		IsGame:       isGame,
		MaxClients:   cfg.MaxClients,
		FloorCount:   cfg.FloorCount,
		FloorItemCap: cfg.FloorItemCap,
		ServerState:  r,
		Notifier:     notifier,
		Logger:       logger,
	})
	if cfg.IdleTimeoutUsecs > 0 {
		l.SetIdleTimeout(cfg.IdleTimeoutUsecs)
	}
	r.Add(l)
	return l
}
