package serverpackets

import (
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/model"
	"github.com/udisondev/banchogo/internal/protocol"
)

// LogoutNotify tells clients that a user went offline.
func LogoutNotify(userID int32) []byte {
	w := protocol.NewPacket(constants.ServerUserLogout)
	w.WriteInt32(userID)
	w.WriteByte(0)
	return w.Finish()
}

// UserPresence is the user panel: identity, location and rank colour.
// timezone is already shifted (24 + client offset). Longitude goes first,
// the client reads it that way.
func UserPresence(userID int32, username string, timezone, country, userRank uint8, loc model.Location, gameRank uint32) []byte {
	w := protocol.NewPacket(constants.ServerUserPresence)
	w.WriteInt32(userID)
	w.WriteString(username)
	w.WriteByte(timezone)
	w.WriteByte(country)
	w.WriteByte(userRank)
	w.WriteFloat32(loc.Longitude)
	w.WriteFloat32(loc.Latitude)
	w.WriteUint32(gameRank)
	return w.Finish()
}

// UserStats is the action + scoreboard snapshot shown on the user panel.
func UserStats(userID int32, action model.Action, stats model.Stats) []byte {
	w := protocol.NewPacket(constants.ServerUserStats)
	w.WriteUint32(uint32(userID))
	w.WriteByte(action.ID)
	w.WriteString(action.Text)
	w.WriteString(action.MD5)
	w.WriteInt32(action.Mods)
	w.WriteByte(action.GameMode)
	w.WriteInt32(action.BeatmapID)
	w.WriteUint64(stats.RankedScore)
	w.WriteFloat32(stats.Accuracy)
	w.WriteUint32(stats.Playcount)
	w.WriteUint64(stats.TotalScore)
	w.WriteUint32(stats.GameRank)
	w.WriteUint16(stats.CappedPP())
	return w.Finish()
}
