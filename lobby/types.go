package lobby

// Version enumerates the cross-console client versions this core must
// distinguish for allowed-version checks, item-creator selection and the
// v1-family checks used by join gating and quest visibility.
type Version int

const (
	VersionDCNTE Version = iota
	VersionDCV1Prototype
	VersionDCV1
	VersionDCV2
	VersionPCNTE
	VersionPCV2
	VersionPCPatch
	VersionBBPatch
	VersionGCNTE
	VersionGCV3
	VersionGCEp3NTE
	VersionGCEp3
	VersionXBV3
	VersionBBV4
)

// IsV1 reports whether the version belongs to the "v1" family, used by
// join gating and quest-visibility checks.
func (v Version) IsV1() bool {
	switch v {
	case VersionDCNTE, VersionDCV1Prototype, VersionDCV1:
		return true
	default:
		return false
	}
}

// Episode is the quest episode a lobby is set to.
type Episode int

const (
	EpisodeNone Episode = iota
	EpisodeEp1
	EpisodeEp2
	EpisodeEp4
)

// GameMode is the lobby's play mode.
type GameMode int

const (
	ModeNormal GameMode = iota
	ModeBattle
	ModeChallenge
	ModeSolo
)

// Flag is the lobby-level bitset (GAME, DEFAULT, PERSISTENT, ...).
type Flag uint32

const (
	FlagGame Flag = 1 << iota
	FlagDefault
	FlagPersistent
	FlagQuestInProgress
	FlagBattleInProgress
	FlagIsSpectatorTeam
)

func (f Flag) has(bit Flag) bool { return f&bit != 0 }

// ClientFlag is the per-client config bitset consulted by slot selection,
// join gating and the BB_V4 door-flag workaround.
type ClientFlag uint32

const (
	ClientFlagDebugEnabled ClientFlag = 1 << iota
	ClientFlagLoading
	ClientFlagLoadingQuest
	ClientFlagLoadingRunningJoinableQuest
	ClientFlagShouldSendArtificialFlagState
)
