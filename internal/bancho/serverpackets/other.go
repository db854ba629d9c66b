package serverpackets

import (
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/protocol"
)

// Pong answers a client keepalive.
var Pong = []byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// Notification pops a message box on the client.
func Notification(message string) []byte {
	w := protocol.NewPacket(constants.ServerNotification)
	w.WriteString(message)
	return w.Finish()
}

// ServerRestart asks clients to reconnect after the given delay.
func ServerRestart(msUntilReconnect uint32) []byte {
	w := protocol.NewPacket(constants.ServerRestart)
	w.WriteUint32(msUntilReconnect)
	return w.Finish()
}

// ServerSwitch hands the client over to another bancho endpoint.
func ServerSwitch(address string) []byte {
	w := protocol.NewPacket(constants.ServerSwitchServer)
	w.WriteString(address)
	return w.Finish()
}

// RTX shakes the client's screen with a message. Staff prank packet.
func RTX(message string) []byte {
	w := protocol.NewPacket(constants.ServerRTX)
	w.WriteString(message)
	return w.Finish()
}
