package bancho

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/model"
)

func TestSendMessage_ChannelDelivery(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	bob := addOnlineUser(t, s, 1002, "Bob", 3)
	joinTestChannel(t, s, alice, "#osu")
	joinTestChannel(t, s, bob, "#osu")

	require.NoError(t, s.sendMessage(context.Background(), alice, "#osu", "hi"))

	frames := drainFrames(t, bob.Dequeue())
	require.Len(t, frames, 1)
	require.Equal(t, constants.ServerSendMessage, frames[0].ID)
	from, message, target, senderID := readMessagePayload(t, frames[0].Payload)
	assert.Equal(t, "Alice", from)
	assert.Equal(t, "hi", message)
	assert.Equal(t, "#osu", target)
	assert.Equal(t, int32(1001), senderID)

	assert.Empty(t, alice.Dequeue(), "sender must not receive their own line")
}

func TestSendMessage_SilencedSenderRejected(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	bob := addOnlineUser(t, s, 1002, "Bob", 3)
	joinTestChannel(t, s, alice, "#osu")
	joinTestChannel(t, s, bob, "#osu")
	alice.SetSilenceEnd(time.Now().Unix() + 60)

	err := s.sendMessage(context.Background(), alice, "#osu", "hello")

	require.ErrorIs(t, err, ErrUserSilenced)
	frames := drainFrames(t, alice.Dequeue())
	require.Len(t, frames, 1)
	assert.Equal(t, constants.ServerSilenceEnd, frames[0].ID)
	assert.Empty(t, bob.Dequeue(), "recipients see nothing from a silenced sender")
}

func TestSendMessage_ChannelRules(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	err := s.sendMessage(context.Background(), alice, "#osu", "hi")
	require.ErrorIs(t, err, ErrChannelNoPermissions, "must join before writing")

	joinTestChannel(t, s, alice, "#osu")
	require.ErrorIs(t, s.sendMessage(context.Background(), alice, "#osu", "   "), ErrInvalidArguments)
	require.ErrorIs(t, s.sendMessage(context.Background(), alice, "#void", "hi"), ErrChannelUnknown)

	ch, ok := s.channels.Get("#osu")
	require.True(t, ok)
	ch.SetModerated(true)
	require.ErrorIs(t, s.sendMessage(context.Background(), alice, "#osu", "hi"), ErrChannelModerated)

	admin := addOnlineUser(t, s, 1003, "Staff", constants.GroupAdmin)
	joinTestChannel(t, s, admin, "#osu")
	require.NoError(t, s.sendMessage(context.Background(), admin, "#osu", "quiet please"))
}

func TestSendMessage_RestrictedSender(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", constants.UserNormal)

	require.True(t, alice.Restricted())
	require.ErrorIs(t, s.sendMessage(context.Background(), alice, "#osu", "hi"), ErrUserRestricted)
}

func TestSendMessage_PrivateAndAwayReply(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	bob := addOnlineUser(t, s, 1002, "Bob", 3)
	bob.SetAwayMessage("gone fishing")

	require.NoError(t, s.sendMessage(context.Background(), alice, "Bob", "you there?"))

	frames := drainFrames(t, bob.Dequeue())
	require.Len(t, frames, 1, "recipient gets the PM")

	frames = drainFrames(t, alice.Dequeue())
	require.Len(t, frames, 1, "sender gets the away auto-reply")
	_, message, _, senderID := readMessagePayload(t, frames[0].Payload)
	assert.Equal(t, "\x01ACTION is away: gone fishing\x01", message)
	assert.Equal(t, int32(1002), senderID)

	// Second PM in the same away period gets no reply.
	require.NoError(t, s.sendMessage(context.Background(), alice, "Bob", "ping"))
	assert.Empty(t, alice.Dequeue())
}

func TestSendMessage_OfflineRecipient(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	require.ErrorIs(t, s.sendMessage(context.Background(), alice, "Ghost", "anyone home?"), ErrUserNotFound)

	// A real but offline user still gets the line archived.
	s.fakeUsers(t).put(&model.User{ID: 1005, Username: "Sleeper", UsernameSafe: model.SafeUsername("Sleeper"), Privileges: 3})
	logs := s.chatLogs.(*fakeChatLogStore)
	before := logs.private
	require.ErrorIs(t, s.sendMessage(context.Background(), alice, "Sleeper", "see you tomorrow"), ErrUserNotFound)
	assert.Equal(t, before+1, logs.private)
}

func TestSendMessage_SpamSilenceThreshold(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	joinTestChannel(t, s, alice, "#osu")

	for i := 0; i < 10; i++ {
		require.NoError(t, s.sendMessage(context.Background(), alice, "#osu", fmt.Sprintf("line %d", i)))
	}
	assert.False(t, alice.Silenced(), "ten sends inside the window stay legal")

	require.NoError(t, s.sendMessage(context.Background(), alice, "#osu", "line 11"))
	assert.True(t, alice.Silenced(), "the eleventh send trips the auto silence")
	assert.InDelta(t, 1800, alice.SilenceSecondsLeft(), 2)

	row, err := s.users.GetByID(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, "Spamming (auto spam protection)", row.SilenceReason)
}

func TestSendMessage_AdminExemptFromSpam(t *testing.T) {
	s := newTestServer(t)
	admin := addOnlineUser(t, s, 1003, "Staff", constants.GroupAdmin)
	joinTestChannel(t, s, admin, "#osu")

	for i := 0; i < 20; i++ {
		require.NoError(t, s.sendMessage(context.Background(), admin, "#osu", "alert"))
	}
	assert.False(t, admin.Silenced())
}

func TestSendMessage_LongLineTruncated(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	bob := addOnlineUser(t, s, 1002, "Bob", 3)
	joinTestChannel(t, s, alice, "#osu")
	joinTestChannel(t, s, bob, "#osu")

	long := make([]byte, 3000)
	for i := range long {
		long[i] = 'a'
	}
	require.NoError(t, s.sendMessage(context.Background(), alice, "#osu", string(long)))

	frames := drainFrames(t, bob.Dequeue())
	require.Len(t, frames, 1)
	_, message, _, _ := readMessagePayload(t, frames[0].Payload)
	assert.Len(t, message, 2048)
	assert.Equal(t, "...", message[2045:])
}

func TestSendBotMessage_DeliversFromBot(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	s.sendBotMessage(context.Background(), "Alice", "welcome back")

	frames := drainFrames(t, alice.Dequeue())
	require.Len(t, frames, 1)
	from, message, _, senderID := readMessagePayload(t, frames[0].Payload)
	assert.Equal(t, s.BotName(), from)
	assert.Equal(t, "welcome back", message)
	assert.Equal(t, constants.BotUserID, senderID)
}
