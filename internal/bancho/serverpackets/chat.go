package serverpackets

import (
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/protocol"
)

// ChannelInfoEnd marks the end of the channel listing after login.
var ChannelInfoEnd = []byte{0x59, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// MessageNotify delivers one chat line. to is a channel name or the
// recipient's username for private messages.
func MessageNotify(from, message, to string, fromID int32) []byte {
	w := protocol.NewPacket(constants.ServerSendMessage)
	w.WriteString(from)
	w.WriteString(message)
	w.WriteString(to)
	w.WriteInt32(fromID)
	return w.Finish()
}

// ChannelJoinSuccess confirms a channel join. name is the client-facing
// alias for virtual channels.
func ChannelJoinSuccess(name string) []byte {
	w := protocol.NewPacket(constants.ServerChannelJoinSuccess)
	w.WriteString(name)
	return w.Finish()
}

// ChannelInfo is one entry of the post-login channel listing.
func ChannelInfo(name, description string, userCount uint16) []byte {
	w := protocol.NewPacket(constants.ServerChannelInfo)
	w.WriteString(name)
	w.WriteString(description)
	w.WriteUint16(userCount)
	return w.Finish()
}

// ChannelKicked makes the client close the channel tab.
func ChannelKicked(name string) []byte {
	w := protocol.NewPacket(constants.ServerChannelKick)
	w.WriteString(name)
	return w.Finish()
}

// SilencedNotify tells everyone that a user has been silenced.
func SilencedNotify(userID int32) []byte {
	w := protocol.NewPacket(constants.ServerUserSilenced)
	w.WriteUint32(uint32(userID))
	return w.Finish()
}
