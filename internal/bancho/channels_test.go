package bancho

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientChannelName(t *testing.T) {
	assert.Equal(t, "#spectator", clientChannelName("#spect_1001"))
	assert.Equal(t, "#multiplayer", clientChannelName("#multi_7"))
	assert.Equal(t, "#osu", clientChannelName("#osu"))
}

func TestJoinChannel_Permissions(t *testing.T) {
	s := newTestServer(t)
	s.channels.Add("#admin", "Staff only", false, false, false, false)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	require.ErrorIs(t, s.joinChannel(alice, "#admin", false), ErrChannelNoPermissions)
	require.ErrorIs(t, s.joinChannel(alice, "#nope", false), ErrChannelUnknown)

	require.NoError(t, s.joinChannel(alice, "#osu", false))
	require.ErrorIs(t, s.joinChannel(alice, "#osu", false), ErrUserAlreadyInChannel)
	assert.True(t, alice.InChannel("#osu"))
}

func TestPartChannel_TempChannelRemovedWithLastMember(t *testing.T) {
	s := newTestServer(t)
	s.channels.AddTempChannel("#multi_9")
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	bob := addOnlineUser(t, s, 1002, "Bob", 3)

	require.NoError(t, s.joinChannel(alice, "#multi_9", true))
	require.NoError(t, s.joinChannel(bob, "#multi_9", true))

	require.NoError(t, s.partChannel(alice, "#multi_9", false, true))
	assert.True(t, s.channels.Exists("#multi_9"), "channel survives while members remain")

	require.NoError(t, s.partChannel(bob, "#multi_9", false, true))
	assert.False(t, s.channels.Exists("#multi_9"))
	assert.False(t, s.streams.Exists(chatStream("#multi_9")), "bound stream goes with the channel")
}

func TestPartChannel_PMTabCloseIgnored(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	require.NoError(t, s.partChannel(alice, "Bob", false, false))
}

func TestSpecialChannels_HiddenFromPlainJoin(t *testing.T) {
	s := newTestServer(t)
	s.channels.AddTempChannel("#spect_1001")
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	require.ErrorIs(t, s.joinChannel(alice, "#spect_1001", false), ErrChannelUnknown)
	require.NoError(t, s.joinChannel(alice, "#spect_1001", true))
}
