// Package serverpackets builds the server→client bancho packets.
//
// Every layout here is fixed by the game client and must stay byte-exact.
// High-frequency constant packets are precomputed: the tiny fixed ones as
// literal bytes, the prose-bearing ones assembled once at package init.
package serverpackets

import (
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/protocol"
)

// Precomputed login replies.
var (
	// LoginFailed is LoginReply(-1): unknown user or wrong password.
	LoginFailed = []byte{0x05, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF}

	// ForceUpdate is LoginReply(-2): client build refused.
	ForceUpdate = []byte{0x05, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0xFE, 0xFF, 0xFF, 0xFF}

	// LoginError is LoginReply(-5): server-side failure during login.
	LoginError = []byte{0x05, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0xFB, 0xFF, 0xFF, 0xFF}

	// VerificationRequired is LoginReply(-8): account must be verified first.
	VerificationRequired = []byte{0x05, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0xF8, 0xFF, 0xFF, 0xFF}

	// ProtocolVersion announces protocol revision 19, the only one we speak.
	ProtocolVersion = []byte{0x4B, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x13, 0x00, 0x00, 0x00}

	// LoginBanned is LoginReply(-1) plus a ban notification.
	LoginBanned = join(LoginFailed, Notification("You are banned! Please contact us on Discord (link at ussr.pl)"))

	// LoginLocked is LoginReply(-1) plus a lock notification.
	LoginLocked = join(LoginFailed, Notification("Well... Your account is locked but all your data is still safe."))

	// LoginCheats greets known cheat clients: notification first, then the failed reply.
	LoginCheats = join(Notification("We don't like cheaters here at RealistikOsu! Consider yourself restricted."), LoginFailed)
)

func join(packets ...[]byte) []byte {
	var out []byte
	for _, p := range packets {
		out = append(out, p...)
	}
	return out
}

// LoginReply reports the logged-in user id, or a negative error code.
func LoginReply(userID int32) []byte {
	w := protocol.NewPacket(constants.ServerLoginReply)
	w.WriteInt32(userID)
	return w.Finish()
}

// SilenceEndNotify tells the client how many seconds of silence remain.
func SilenceEndNotify(seconds uint32) []byte {
	w := protocol.NewPacket(constants.ServerSilenceEnd)
	w.WriteUint32(seconds)
	return w.Finish()
}

// MenuIcon sets the main menu image. icon is "imageURL|clickURL".
func MenuIcon(icon string) []byte {
	w := protocol.NewPacket(constants.ServerMainMenuIcon)
	w.WriteString(icon)
	return w.Finish()
}

// BanchoPrivileges reports the client-side permission bits.
func BanchoPrivileges(supporter, gmt, tournamentStaff bool) []byte {
	rank := constants.UserRankPlayer
	if supporter {
		rank |= constants.UserRankSupporter
	}
	if gmt {
		rank |= constants.UserRankBAT
	}
	if tournamentStaff {
		rank |= constants.UserRankTournamentStaff
	}

	w := protocol.NewPacket(constants.ServerPrivileges)
	w.WriteUint32(uint32(rank))
	return w.Finish()
}

// FriendList sends the user ids on the friends list.
func FriendList(friends []int32) []byte {
	w := protocol.NewPacket(constants.ServerFriendsList)
	w.WriteIntList(friends)
	return w.Finish()
}
