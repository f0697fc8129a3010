package registry

import (
	"github.com/vmihailenco/msgpack/v4"
	"golang.org/x/xerrors"

	"github.com/fishscene/newserv/lobby"
)

// listingSnapshot is the msgpack-encoded form of a lobby.ListingInfo
// persisted for crash recovery of the browse listing. Field names are
// spelled out explicitly rather than relying on msgpack's struct-tag
// defaults, to keep the on-disk shape stable independent of Go field
// naming.
type listingSnapshot struct {
	LobbyID               uint32 `msgpack:"lobby_id"`
	Name                  string `msgpack:"name"`
	PasswordSet           bool   `msgpack:"password_set"`
	Mode                  int    `msgpack:"mode"`
	Episode               int    `msgpack:"episode"`
	Difficulty            uint8  `msgpack:"difficulty"`
	NumClients            int    `msgpack:"num_clients"`
	MaxClients            int    `msgpack:"max_clients"`
	QuestOrBattleInFlight bool   `msgpack:"quest_or_battle_in_flight"`
}

func toSnapshot(info lobby.ListingInfo) listingSnapshot {
	return listingSnapshot{
		LobbyID:               info.LobbyID,
		Name:                  info.Name,
		PasswordSet:           info.PasswordSet,
		Mode:                  int(info.Mode),
		Episode:               int(info.Episode),
		Difficulty:            info.Difficulty,
		NumClients:            info.NumClients,
		MaxClients:            info.MaxClients,
		QuestOrBattleInFlight: info.QuestOrBattleInFlight,
	}
}

func (s listingSnapshot) toListingInfo() lobby.ListingInfo {
	return lobby.ListingInfo{
		LobbyID:               s.LobbyID,
		Name:                  s.Name,
		PasswordSet:           s.PasswordSet,
		Mode:                  lobby.GameMode(s.Mode),
		Episode:               lobby.Episode(s.Episode),
		Difficulty:            s.Difficulty,
		NumClients:            s.NumClients,
		MaxClients:            s.MaxClients,
		QuestOrBattleInFlight: s.QuestOrBattleInFlight,
	}
}

func encodeSnapshot(info lobby.ListingInfo) ([]byte, error) {
	b, err := msgpack.Marshal(toSnapshot(info))
	if err != nil {
		return nil, xerrors.Errorf("marshal listing snapshot: %w", err)
	}
	return b, nil
}

func decodeSnapshot(b []byte) (lobby.ListingInfo, error) {
	var s listingSnapshot
	if err := msgpack.Unmarshal(b, &s); err != nil {
		return lobby.ListingInfo{}, xerrors.Errorf("unmarshal listing snapshot: %w", err)
	}
	return s.toListingInfo(), nil
}
