package constants

// osu! Bancho Protocol Packet IDs
//
// Packet ids are fixed by the official game client and must never change.
// Client→server ids carry the Client prefix, server→client the Server prefix.
// The header layout is: uint16 id, one pad byte, uint32 payload length (LE).

// Packet header layout constants.
const (
	// PacketHeaderSize is the framed packet header size in bytes.
	PacketHeaderSize = 7

	// PacketIDOffset is the offset of the uint16 packet id.
	PacketIDOffset = 0

	// PacketLengthOffset is the offset of the uint32 payload length.
	PacketLengthOffset = 3
)

// Client→server packet ids.
const (
	ClientChangeAction              uint16 = 0
	ClientSendPublicMessage         uint16 = 1
	ClientLogout                    uint16 = 2
	ClientRequestStatusUpdate       uint16 = 3
	ClientPong                      uint16 = 4
	ClientStartSpectating           uint16 = 16
	ClientStopSpectating            uint16 = 17
	ClientSpectateFrames            uint16 = 18
	ClientCantSpectate              uint16 = 21
	ClientSendPrivateMessage        uint16 = 25
	ClientPartLobby                 uint16 = 29
	ClientJoinLobby                 uint16 = 30
	ClientCreateMatch               uint16 = 31
	ClientJoinMatch                 uint16 = 32
	ClientPartMatch                 uint16 = 33
	ClientMatchChangeSlot           uint16 = 38
	ClientMatchReady                uint16 = 39
	ClientMatchLock                 uint16 = 40
	ClientMatchChangeSettings       uint16 = 41
	ClientMatchStart                uint16 = 44
	ClientMatchScoreUpdate          uint16 = 47
	ClientMatchComplete             uint16 = 49
	ClientMatchChangeMods           uint16 = 51
	ClientMatchLoadComplete         uint16 = 52
	ClientMatchNoBeatmap            uint16 = 54
	ClientMatchNotReady             uint16 = 55
	ClientMatchFailed               uint16 = 56
	ClientMatchHasBeatmap           uint16 = 59
	ClientMatchSkipRequest          uint16 = 60
	ClientChannelJoin               uint16 = 63
	ClientBeatmapInfoRequest        uint16 = 68
	ClientMatchTransferHost         uint16 = 70
	ClientFriendAdd                 uint16 = 73
	ClientFriendRemove              uint16 = 74
	ClientMatchChangeTeam           uint16 = 77
	ClientChannelPart               uint16 = 78
	ClientSetAwayMessage            uint16 = 82
	ClientUserStatsRequest          uint16 = 85
	ClientMatchInvite               uint16 = 87
	ClientMatchChangePassword       uint16 = 90
	ClientTournamentMatchInfo       uint16 = 93
	ClientUserPanelRequest          uint16 = 97
	ClientTournamentJoinMatchChan   uint16 = 108
	ClientTournamentLeaveMatchChan  uint16 = 109
)

// Server→client packet ids.
const (
	ServerLoginReply             uint16 = 5
	ServerSendMessage            uint16 = 7
	ServerPong                   uint16 = 8
	ServerUserStats              uint16 = 11
	ServerUserLogout             uint16 = 12
	ServerSpectatorJoined        uint16 = 13
	ServerSpectatorLeft          uint16 = 14
	ServerSpectateFrames         uint16 = 15
	ServerVersionUpdate          uint16 = 19
	ServerSpectatorCantSpectate  uint16 = 22
	ServerNotification           uint16 = 24
	ServerUpdateMatch            uint16 = 26
	ServerNewMatch               uint16 = 27
	ServerDisposeMatch           uint16 = 28
	ServerMatchJoinSuccess       uint16 = 36
	ServerMatchJoinFail          uint16 = 37
	ServerFellowSpectatorJoined  uint16 = 42
	ServerFellowSpectatorLeft    uint16 = 43
	ServerMatchStart             uint16 = 46
	ServerMatchScoreUpdate       uint16 = 48
	ServerMatchTransferHost      uint16 = 50
	ServerMatchAllPlayersLoaded  uint16 = 53
	ServerMatchPlayerFailed      uint16 = 57
	ServerMatchComplete          uint16 = 58
	ServerMatchSkip              uint16 = 61
	ServerChannelJoinSuccess     uint16 = 64
	ServerChannelInfo            uint16 = 65
	ServerChannelKick            uint16 = 66
	ServerPrivileges             uint16 = 71
	ServerFriendsList            uint16 = 72
	ServerProtocolVersion        uint16 = 75
	ServerMainMenuIcon           uint16 = 76
	ServerMatchPlayerSkipped     uint16 = 81
	ServerUserPresence           uint16 = 83
	ServerRestart                uint16 = 86
	ServerMatchInvite            uint16 = 88
	ServerChannelInfoEnd         uint16 = 89
	ServerMatchChangePassword    uint16 = 91
	ServerSilenceEnd             uint16 = 92
	ServerUserSilenced           uint16 = 94
	ServerSwitchServer           uint16 = 103
	ServerRTX                    uint16 = 105
	ServerMatchAbort             uint16 = 106
)

// Login reply error codes (payload of ServerLoginReply when negative).
const (
	// LoginErrorWrongCredentials is sent on unknown user or bad password.
	LoginErrorWrongCredentials int32 = -1

	// LoginErrorOutdatedClient forces the client to update.
	LoginErrorOutdatedClient int32 = -2

	// LoginErrorBanned is sent to banned accounts.
	LoginErrorBanned int32 = -3

	// LoginErrorGeneric is sent when the login pipeline fails unexpectedly.
	LoginErrorGeneric int32 = -5

	// LoginErrorVerificationRequired asks the client to complete verification.
	LoginErrorVerificationRequired int32 = -8
)

// ProtocolVersion is the bancho protocol revision sent right after login.
const ProtocolVersion int32 = 19
