package serverpackets

import (
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/protocol"
)

// SpectatorAdd tells the host a spectator joined them.
func SpectatorAdd(userID int32) []byte {
	w := protocol.NewPacket(constants.ServerSpectatorJoined)
	w.WriteInt32(userID)
	return w.Finish()
}

// SpectatorRemove tells the host a spectator left.
func SpectatorRemove(userID int32) []byte {
	w := protocol.NewPacket(constants.ServerSpectatorLeft)
	w.WriteInt32(userID)
	return w.Finish()
}

// SpectateFrames relays the host's replay frames. data is the raw frame
// payload exactly as the host sent it.
func SpectateFrames(data []byte) []byte {
	w := protocol.NewPacket(constants.ServerSpectateFrames)
	w.WriteBytes(data)
	return w.Finish()
}

// SpectatorSongMissing tells the host a spectator lacks the beatmap.
func SpectatorSongMissing(userID int32) []byte {
	w := protocol.NewPacket(constants.ServerSpectatorCantSpectate)
	w.WriteInt32(userID)
	return w.Finish()
}

// FellowSpectatorJoined tells existing spectators about a new one.
func FellowSpectatorJoined(userID int32) []byte {
	w := protocol.NewPacket(constants.ServerFellowSpectatorJoined)
	w.WriteInt32(userID)
	return w.Finish()
}

// FellowSpectatorLeft tells remaining spectators that one left.
func FellowSpectatorLeft(userID int32) []byte {
	w := protocol.NewPacket(constants.ServerFellowSpectatorLeft)
	w.WriteInt32(userID)
	return w.Finish()
}
