package bancho

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/model"
)

func TestTokenList_LookupByNameAndID(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Test User", 3)

	byID, ok := s.tokens.GetByUserID(1001)
	require.True(t, ok)
	assert.Same(t, alice, byID)

	byName, ok := s.tokens.GetByName("test user")
	require.True(t, ok, "safe-name lookup must match the display form")
	assert.Same(t, alice, byName)

	assert.True(t, s.tokens.Online(1001))
	assert.False(t, s.tokens.Online(4242))
}

func TestTokenList_TournamentSessionsCoexist(t *testing.T) {
	s := newTestServer(t)
	u := &model.User{ID: 1001, Username: "Streamer", UsernameSafe: "streamer", Privileges: 3}
	s.fakeUsers(t).put(u)

	first := s.CreateToken(context.Background(), u, "127.0.0.1", true, 0)
	second := s.CreateToken(context.Background(), u, "127.0.0.1", true, 0)

	require.NotEqual(t, first.ID, second.ID)
	assert.Len(t, s.tokens.GetAllByUserID(1001), 2)

	// Lookup by user id stays pinned to the earliest session.
	got, ok := s.tokens.GetByUserID(1001)
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestToken_SilenceCountdown(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	assert.False(t, alice.Silenced())
	assert.EqualValues(t, 0, alice.SilenceSecondsLeft())

	alice.SetSilenceEnd(time.Now().Unix() + 60)

	assert.True(t, alice.Silenced())
	left := alice.SilenceSecondsLeft()
	assert.InDelta(t, 60, left, 2)
}

func TestToken_SetActionKeepsFlagsOnAFK(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	alice.SetAction(model.Action{ID: constants.ActionPlaying, Mods: constants.ModRelax})
	require.True(t, alice.Relaxing())
	require.False(t, alice.Autopiloting())

	// The client zeroes the mod word on AFK; the relax state must survive.
	alice.SetAction(model.Action{ID: constants.ActionAFK})
	assert.True(t, alice.Relaxing())

	alice.SetAction(model.Action{ID: constants.ActionIdle})
	assert.False(t, alice.Relaxing())
}

func TestToken_AwayConfirmOncePerSender(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	alice.SetAwayMessage("brb food")

	assert.True(t, alice.AwayConfirm(1002))
	assert.False(t, alice.AwayConfirm(1002), "same sender must not be notified twice")
	assert.True(t, alice.AwayConfirm(1003))

	// A fresh away period resets the notified set.
	alice.SetAwayMessage("back soon")
	assert.True(t, alice.AwayConfirm(1002))

	alice.SetAwayMessage("")
	assert.False(t, alice.AwayConfirm(1004))
}

func TestToken_MessageBufferRing(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	for i := 0; i < 12; i++ {
		alice.AppendMessageLine("#osu", strings.Repeat("x", i+45))
	}

	lines := strings.Split(alice.MessagesBuffer(), "\n")
	require.Len(t, lines, 10, "ring keeps the last ten lines")
	for _, line := range lines {
		idx := strings.Index(line, ": ")
		require.Positive(t, idx)
		assert.LessOrEqual(t, len(line)-idx-2, 50, "message part capped at 50 chars")
	}
}
