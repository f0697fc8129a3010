package lobby

// ListingInfo is a point-in-time snapshot of a lobby's browse-relevant
// fields, used by Compare so sorting a browse list never has to hold a
// lobby's command-loop lock while comparing two entries.
type ListingInfo struct {
	LobbyID               uint32
	Name                  string
	PasswordSet           bool
	Mode                  GameMode
	Episode               Episode
	Difficulty            uint8
	NumClients            int
	MaxClients            int
	QuestOrBattleInFlight bool
}

func priorityClass(l ListingInfo) int {
	if l.QuestOrBattleInFlight {
		return 4
	}
	if l.NumClients == l.MaxClients {
		return 3
	}
	if l.NumClients == 0 {
		return 2
	}
	return 1
}

// Compare implements the strict total order used for browse listings:
// priority class, password, mode, episode, difficulty, name, in that
// order. It reports whether a sorts before b.
func Compare(a, b ListingInfo) bool {
	ap, bp := priorityClass(a), priorityClass(b)
	if ap != bp {
		return ap < bp
	}
	if a.PasswordSet != b.PasswordSet {
		return !a.PasswordSet // public (false) before locked (true)
	}
	if a.Mode != b.Mode {
		return a.Mode < b.Mode
	}
	if a.Episode != b.Episode {
		return a.Episode < b.Episode
	}
	if a.Difficulty != b.Difficulty {
		return a.Difficulty < b.Difficulty
	}
	return a.Name < b.Name
}

// Snapshot captures this lobby's current ListingInfo. Safe to call
// concurrently; it dispatches onto the command loop.
func (l *Lobby) Snapshot() ListingInfo {
	var info ListingInfo
	l.exec(func(l *Lobby) { info = l.snapshotLocked() })
	return info
}

// snapshotLocked builds a ListingInfo from current state. Must only be
// called from within the command loop (directly, or via Snapshot).
func (l *Lobby) snapshotLocked() ListingInfo {
	return ListingInfo{
		LobbyID:               l.ID,
		Name:                  l.name,
		PasswordSet:           l.password != "",
		Mode:                  l.mode,
		Episode:               l.episode,
		Difficulty:            l.difficulty,
		NumClients:            l.countClientsLocked(),
		MaxClients:            l.maxClients,
		QuestOrBattleInFlight: l.flags.has(FlagQuestInProgress) || l.flags.has(FlagBattleInProgress),
	}
}
