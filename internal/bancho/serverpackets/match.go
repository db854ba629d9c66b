package serverpackets

import (
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/protocol"
)

// Precomputed empty-payload match packets.
var (
	MatchJoinFail         = []byte{0x25, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	MatchAllPlayersLoaded = []byte{0x35, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	MatchAllSkipped       = []byte{0x3D, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	MatchComplete         = []byte{0x3A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	MatchTransferHost     = []byte{0x32, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	MatchAbort            = []byte{0x6A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
)

// MatchData is the wire image of one match, embedded in the new-match,
// update-match, match-start and join-success packets. Slot user ids are
// serialized only for slots whose status carries a user.
type MatchData struct {
	ID           uint16
	InProgress   bool
	Mods         int32
	Name         string
	Password     string
	BeatmapName  string
	BeatmapID    int32
	BeatmapMD5   string
	SlotStatuses [constants.MatchMaxSlots]uint8
	SlotTeams    [constants.MatchMaxSlots]uint8
	SlotUserIDs  [constants.MatchMaxSlots]int32
	HostUserID   int32
	GameMode     uint8
	ScoringType  uint8
	TeamType     uint8
	FreeMod      bool
	SlotMods     [constants.MatchMaxSlots]int32
	Seed         int32
}

func writeMatch(w *protocol.Writer, d MatchData) {
	w.WriteUint16(d.ID)
	w.WriteByte(boolByte(d.InProgress))
	w.WriteByte(0)
	w.WriteUint32(uint32(d.Mods))
	w.WriteString(d.Name)
	w.WriteString(d.Password)
	w.WriteString(d.BeatmapName)
	w.WriteUint32(uint32(d.BeatmapID))
	w.WriteString(d.BeatmapMD5)

	for _, s := range d.SlotStatuses {
		w.WriteByte(s)
	}
	for _, t := range d.SlotTeams {
		w.WriteByte(t)
	}
	for i, s := range d.SlotStatuses {
		if s&constants.SlotOccupied > 0 {
			w.WriteInt32(d.SlotUserIDs[i])
		}
	}

	w.WriteInt32(d.HostUserID)
	w.WriteByte(d.GameMode)
	w.WriteByte(d.ScoringType)
	w.WriteByte(d.TeamType)
	w.WriteByte(boolByte(d.FreeMod))
	if d.FreeMod {
		for _, m := range d.SlotMods {
			w.WriteUint32(uint32(m))
		}
	}
	w.WriteUint32(uint32(d.Seed))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// NewMatch announces a fresh match to the lobby.
func NewMatch(d MatchData) []byte {
	w := protocol.NewPacket(constants.ServerNewMatch)
	writeMatch(w, d)
	return w.Finish()
}

// UpdateMatch pushes the current match state to members and the lobby.
func UpdateMatch(d MatchData) []byte {
	w := protocol.NewPacket(constants.ServerUpdateMatch)
	writeMatch(w, d)
	return w.Finish()
}

// MatchStart carries the full match state at game start.
func MatchStart(d MatchData) []byte {
	w := protocol.NewPacket(constants.ServerMatchStart)
	writeMatch(w, d)
	return w.Finish()
}

// MatchJoinSuccess confirms a join with the full match state.
func MatchJoinSuccess(d MatchData) []byte {
	w := protocol.NewPacket(constants.ServerMatchJoinSuccess)
	writeMatch(w, d)
	return w.Finish()
}

// DisposeMatch removes a match from the lobby listing.
func DisposeMatch(matchID int32) []byte {
	w := protocol.NewPacket(constants.ServerDisposeMatch)
	w.WriteUint32(uint32(matchID))
	return w.Finish()
}

// MatchChangePassword tells members the match password changed.
func MatchChangePassword(password string) []byte {
	w := protocol.NewPacket(constants.ServerMatchChangePassword)
	w.WriteString(password)
	return w.Finish()
}

// MatchPlayerSkipped reports one player's intro skip vote.
func MatchPlayerSkipped(userID int32) []byte {
	w := protocol.NewPacket(constants.ServerMatchPlayerSkipped)
	w.WriteInt32(userID)
	return w.Finish()
}

// MatchFrames relays a score frame with the sender's slot id substituted
// in. payload is the client frame payload: time int32, sender byte, then
// the score data.
func MatchFrames(slotID uint8, payload []byte) []byte {
	w := protocol.NewPacket(constants.ServerMatchScoreUpdate)
	w.WriteBytes(payload[:4])
	w.WriteByte(slotID)
	w.WriteBytes(payload[5:])
	return w.Finish()
}

// MatchPlayerFailed reports that the player in a slot failed out.
func MatchPlayerFailed(slotID uint32) []byte {
	w := protocol.NewPacket(constants.ServerMatchPlayerFailed)
	w.WriteUint32(slotID)
	return w.Finish()
}

// MatchInvite carries a multiplayer invite as a chat line from the inviter.
func MatchInvite(from, message, to string, fromID int32) []byte {
	w := protocol.NewPacket(constants.ServerMatchInvite)
	w.WriteString(from)
	w.WriteString(message)
	w.WriteString(to)
	w.WriteInt32(fromID)
	return w.Finish()
}
