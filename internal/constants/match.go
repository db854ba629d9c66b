package constants

// Client action ids (the "what is the user doing" byte in user stats).
const (
	ActionIdle         uint8 = 0
	ActionAFK          uint8 = 1
	ActionPlaying      uint8 = 2
	ActionEditing      uint8 = 3
	ActionModding      uint8 = 4
	ActionMultiplayer  uint8 = 5
	ActionWatching     uint8 = 6
	ActionUnknown      uint8 = 7
	ActionTesting      uint8 = 8
	ActionSubmitting   uint8 = 9
	ActionPaused       uint8 = 10
	ActionLobby        uint8 = 11
	ActionMultiplaying uint8 = 12
	ActionOsuDirect    uint8 = 13
)

// Game modes.
const (
	ModeStd   uint8 = 0
	ModeTaiko uint8 = 1
	ModeCtb   uint8 = 2
	ModeMania uint8 = 3
)

// Mod bitmask values.
const (
	ModNoMod       int32 = 0
	ModNoFail      int32 = 1 << 0
	ModEasy        int32 = 1 << 1
	ModTouchscreen int32 = 1 << 2
	ModHidden      int32 = 1 << 3
	ModHardRock    int32 = 1 << 4
	ModSuddenDeath int32 = 1 << 5
	ModDoubleTime  int32 = 1 << 6
	ModRelax       int32 = 1 << 7
	ModHalfTime    int32 = 1 << 8
	ModNightcore   int32 = 1 << 9
	ModFlashlight  int32 = 1 << 10
	ModAutoplay    int32 = 1 << 11
	ModSpunOut     int32 = 1 << 12
	ModAutopilot   int32 = 1 << 13
	ModPerfect     int32 = 1 << 14
	ModFadeIn      int32 = 1 << 20
	ModScoreV2     int32 = 1 << 29
)

// Multiplayer slot statuses. OCCUPIED is the mask of the five statuses
// that carry a user id; the match data packet relies on it.
const (
	SlotFree        uint8 = 1
	SlotLocked      uint8 = 2
	SlotNotReady    uint8 = 4
	SlotReady       uint8 = 8
	SlotNoMap       uint8 = 16
	SlotPlaying     uint8 = 32
	SlotComplete    uint8 = 64
	SlotOccupied    uint8 = 124
	SlotPlayingQuit uint8 = 128
)

// Multiplayer slot teams.
const (
	MatchTeamNone uint8 = 0
	MatchTeamBlue uint8 = 1
	MatchTeamRed  uint8 = 2
)

// Match scoring types.
const (
	MatchScoringScore    uint8 = 0
	MatchScoringAccuracy uint8 = 1
	MatchScoringCombo    uint8 = 2
	MatchScoringScoreV2  uint8 = 3
)

// Match team types.
const (
	MatchTeamTypeHeadToHead uint8 = 0
	MatchTeamTypeTagCoop    uint8 = 1
	MatchTeamTypeTeamVs     uint8 = 2
	MatchTeamTypeTagTeamVs  uint8 = 3
)

// Match mod modes.
const (
	MatchModModeNormal  uint8 = 0
	MatchModModeFreeMod uint8 = 1
)

// MatchMaxSlots is the fixed slot count of every multiplayer match.
const MatchMaxSlots = 16

// BotUserID is the reserved user id of the chat bot session.
const BotUserID int32 = 999

// BotName is the display name of the chat bot.
const BotName = "RealistikBot"
