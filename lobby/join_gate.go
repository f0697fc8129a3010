package lobby

// JoinError is a typed refusal value, not a failure: ALLOWED means "no
// error", everything else is a specific, protocol-mappable reason the
// caller can turn into a refusal command.
type JoinError int

const (
	JoinAllowed JoinError = iota
	JoinFull
	JoinVersionConflict
	JoinQuestInProgress
	JoinBattleInProgress
	JoinSolo
	JoinIncorrectPassword
	JoinLevelTooLow
	JoinLevelTooHigh
	JoinNoAccessToQuest
	JoinLoading
)

func (e JoinError) String() string {
	switch e {
	case JoinAllowed:
		return "ALLOWED"
	case JoinFull:
		return "FULL"
	case JoinVersionConflict:
		return "VERSION_CONFLICT"
	case JoinQuestInProgress:
		return "QUEST_IN_PROGRESS"
	case JoinBattleInProgress:
		return "BATTLE_IN_PROGRESS"
	case JoinSolo:
		return "SOLO"
	case JoinIncorrectPassword:
		return "INCORRECT_PASSWORD"
	case JoinLevelTooLow:
		return "LEVEL_TOO_LOW"
	case JoinLevelTooHigh:
		return "LEVEL_TOO_HIGH"
	case JoinNoAccessToQuest:
		return "NO_ACCESS_TO_QUEST"
	case JoinLoading:
		return "LOADING"
	default:
		return "UNKNOWN"
	}
}

// versionAllowed reports whether v is in the lobby's allowed_versions
// bitmask (one bit per Version ordinal).
func (l *Lobby) versionAllowed(v Version) bool {
	return l.allowedVersions&(1<<uint(v)) != 0
}

func (l *Lobby) isEp3() bool {
	return l.baseVersion == VersionGCEp3NTE || l.baseVersion == VersionGCEp3
}

// joinErrorForLocked walks the refusal checks in a fixed order: slot
// capacity, version compatibility, then (for games only) in-progress
// state, mode, password/level/quest access, and finally loading state.
// Must only be called from within the lobby's command loop.
func (l *Lobby) joinErrorForLocked(c Client, password *string) JoinError {
	if l.countClientsLocked() >= l.maxClients {
		return JoinFull
	}
	if !l.versionAllowed(c.Version()) && !c.HasConfigFlag(ClientFlagDebugEnabled) {
		return JoinVersionConflict
	}
	if !l.isGame {
		return JoinAllowed
	}

	if l.flags.has(FlagQuestInProgress) {
		return JoinQuestInProgress
	}
	if l.flags.has(FlagBattleInProgress) {
		return JoinBattleInProgress
	}
	if l.mode == ModeSolo {
		return JoinSolo
	}

	if c.License() == nil || !c.License().HasFreeJoinGames() {
		if password != nil && l.password != "" && *password != l.password {
			return JoinIncorrectPassword
		}
		if c.Level() < l.minLevel {
			return JoinLevelTooLow
		}
		if c.Level() > l.maxLevel {
			return JoinLevelTooHigh
		}
		if l.quest != nil {
			numClients := l.countClientsLocked() + 1
			v1Present := c.Version().IsV1() || l.anyV1ClientsPresentLocked()
			if !c.CanSeeQuest(l.quest, l.event, l.difficulty, numClients, v1Present) ||
				!c.CanPlayQuest(l.quest, l.event, l.difficulty, numClients, v1Present) {
				return JoinNoAccessToQuest
			}
		}
	}

	if password != nil && l.anyClientLoadingLocked() {
		return JoinLoading
	}

	return JoinAllowed
}
