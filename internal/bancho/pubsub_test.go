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

func TestPubSub_Notification(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	alice.Dequeue()

	payload := []byte(`{"userID":1001,"message":"website says hi"}`)
	require.NoError(t, s.handlePubSub(context.Background(), "peppy:notification", payload))

	frames := drainFrames(t, alice.Dequeue())
	require.Len(t, frames, 1)
	assert.Equal(t, constants.ServerNotification, frames[0].ID)
	assert.Equal(t, "website says hi", readStringPayload(t, frames[0].Payload))
}

func TestPubSub_Disconnect(t *testing.T) {
	s := newTestServer(t)
	addOnlineUser(t, s, 1001, "Alice", 3)

	require.NoError(t, s.handlePubSub(context.Background(), "peppy:disconnect", []byte(`{"userID":1001}`)))

	_, online := s.tokens.GetByUserID(1001)
	assert.False(t, online)
}

func TestPubSub_ChangeUsernameKicks(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	alice.Dequeue()

	payload := []byte(`{"userID":1001,"newUsername":"NewAlice"}`)
	require.NoError(t, s.handlePubSub(context.Background(), "peppy:change_username", payload))

	_, online := s.tokens.GetByUserID(1001)
	assert.False(t, online)

	data := alice.Dequeue()
	frames := drainFrames(t, data)
	ids := packetIDs(t, data)
	assert.Contains(t, ids, constants.ServerNotification)
	assert.Contains(t, ids, constants.ServerLoginReply)
	for _, f := range frames {
		if f.ID == constants.ServerNotification {
			assert.Equal(t, "Your username has been changed to NewAlice. Please log in again.",
				readStringPayload(t, f.Payload))
		}
	}
}

func TestPubSub_ReloadSettings(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.settings.SetString(context.Background(), "menu_icon", "https://cdn/icon.png|https://link"))

	require.NoError(t, s.handlePubSub(context.Background(), "peppy:reload_settings", []byte("nonsense")))
	assert.Empty(t, s.MenuIcon(), "only the literal reload payload triggers a reload")

	require.NoError(t, s.handlePubSub(context.Background(), "peppy:reload_settings", []byte("reload")))
	assert.Equal(t, "https://cdn/icon.png|https://link", s.MenuIcon())
}

func TestPubSub_UpdateCachedStats(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	alice.Dequeue()

	require.NoError(t, s.handlePubSub(context.Background(), "peppy:update_cached_stats", []byte(`{"userID":1001}`)))

	frames := drainFrames(t, alice.Dequeue())
	require.Len(t, frames, 1)
	assert.Equal(t, constants.ServerUserStats, frames[0].ID)
}

func TestPubSub_SilenceAppliesDatabaseValue(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	alice.Dequeue()

	s.fakeUsers(t).put(&model.User{
		ID:           1001,
		Username:     "Alice",
		UsernameSafe: model.SafeUsername("Alice"),
		Privileges:   3,
		SilenceEnd:   time.Now().Unix() + 120,
	})

	require.NoError(t, s.handlePubSub(context.Background(), "peppy:silence", []byte(`{"userID":1001}`)))

	assert.InDelta(t, 120, alice.SilenceSecondsLeft(), 2)
	ids := packetIDs(t, alice.Dequeue())
	assert.Contains(t, ids, constants.ServerSilenceEnd)
	assert.Contains(t, ids, constants.ServerUserSilenced, "the main stream learns about the silence")
}

func TestPubSub_BanThrowsOut(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	alice.Dequeue()

	s.fakeUsers(t).put(&model.User{
		ID:           1001,
		Username:     "Alice",
		UsernameSafe: model.SafeUsername("Alice"),
		Privileges:   0,
	})

	require.NoError(t, s.handlePubSub(context.Background(), "peppy:ban", []byte(`{"userID":1001}`)))

	_, online := s.tokens.GetByUserID(1001)
	assert.False(t, online)

	ids := packetIDs(t, alice.Dequeue())
	assert.Contains(t, ids, constants.ServerLoginReply)
	assert.Contains(t, ids, constants.ServerNotification)
}

func TestPubSub_RefreshPrivsRestrictFlip(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	alice.Dequeue()

	s.fakeUsers(t).put(&model.User{
		ID:           1001,
		Username:     "Alice",
		UsernameSafe: model.SafeUsername("Alice"),
		Privileges:   constants.UserNormal,
	})
	require.NoError(t, s.handlePubSub(context.Background(), "peppy:refresh_privs", []byte(`{"user_id":1001}`)))

	require.True(t, alice.Restricted())
	frames := drainFrames(t, alice.Dequeue())
	require.NotEmpty(t, frames)
	_, message, _, senderID := readMessagePayload(t, frames[0].Payload)
	assert.Equal(t, constants.BotUserID, senderID)
	assert.Contains(t, message, "restricted")

	s.fakeUsers(t).put(&model.User{
		ID:           1001,
		Username:     "Alice",
		UsernameSafe: model.SafeUsername("Alice"),
		Privileges:   3,
	})
	require.NoError(t, s.handlePubSub(context.Background(), "peppy:refresh_privs", []byte(`{"user_id":1001}`)))

	require.False(t, alice.Restricted())
	frames = drainFrames(t, alice.Dequeue())
	require.NotEmpty(t, frames)
	_, message, _, _ = readMessagePayload(t, frames[0].Payload)
	assert.Equal(t, "Your account has been unrestricted! Please re-log to refresh your status.", message)
}

func TestPubSub_ChangePassInvalidatesCache(t *testing.T) {
	s := newTestServer(t)
	addOnlineUser(t, s, 1001, "Alice", 3)

	assert.NoError(t, s.handlePubSub(context.Background(), "peppy:change_pass", []byte(`{"user_id":1001}`)))
}

func TestPubSub_BotMessage(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	alice.Dequeue()

	payload := []byte(`{"to":"Alice","message":"delivered"}`)
	require.NoError(t, s.handlePubSub(context.Background(), "peppy:bot_msg", payload))

	frames := drainFrames(t, alice.Dequeue())
	require.Len(t, frames, 1)
	from, message, _, _ := readMessagePayload(t, frames[0].Payload)
	assert.Equal(t, s.BotName(), from)
	assert.Equal(t, "delivered", message)
}

func TestPubSub_MalformedPayload(t *testing.T) {
	s := newTestServer(t)

	for _, topic := range []string{
		"peppy:disconnect",
		"peppy:change_username",
		"peppy:silence",
		"peppy:ban",
		"peppy:refresh_privs",
	} {
		err := s.handlePubSub(context.Background(), topic, []byte("{"))
		assert.ErrorContains(t, err, "decoding", fmt.Sprintf("topic %s", topic))
	}
}

func TestPubSub_OfflineUserIgnored(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct {
		topic   string
		payload string
	}{
		{"peppy:disconnect", `{"userID":4242}`},
		{"peppy:silence", `{"userID":4242}`},
		{"peppy:ban", `{"userID":4242}`},
		{"peppy:notification", `{"userID":4242,"message":"x"}`},
		{"peppy:refresh_privs", `{"user_id":4242}`},
	} {
		assert.NoError(t, s.handlePubSub(context.Background(), tc.topic, []byte(tc.payload)), tc.topic)
	}
}

func TestPubSub_UnknownTopicIgnored(t *testing.T) {
	s := newTestServer(t)
	assert.NoError(t, s.handlePubSub(context.Background(), "peppy:whatever", []byte("x")))
}
