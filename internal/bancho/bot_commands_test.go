package bancho

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/db"
	"github.com/udisondev/banchogo/internal/model"
	"github.com/udisondev/banchogo/internal/performance"
)

func TestCmdAlert_BroadcastsNotification(t *testing.T) {
	s := newTestServer(t)
	staff := addOnlineUser(t, s, 1002, "Mod", 3|constants.AdminSendAlerts)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	resp := s.botResponse(context.Background(), staff, s.BotName(), "!alert server restarting soon")
	assert.Empty(t, resp)

	frames := drainFrames(t, alice.Dequeue())
	require.Len(t, frames, 1)
	assert.Equal(t, constants.ServerNotification, frames[0].ID)
	assert.Equal(t, "server restarting soon", readStringPayload(t, frames[0].Payload))
}

func TestCmdAlertUser_NotifiesOneTarget(t *testing.T) {
	s := newTestServer(t)
	staff := addOnlineUser(t, s, 1002, "Mod", 3|constants.AdminSendAlerts)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	resp := s.botResponse(context.Background(), staff, s.BotName(), "!alertuser Alice hello from staff")
	assert.Empty(t, resp)

	frames := drainFrames(t, alice.Dequeue())
	require.Len(t, frames, 1)
	assert.Equal(t, constants.ServerNotification, frames[0].ID)
	assert.Equal(t, "hello from staff", readStringPayload(t, frames[0].Payload))

	assert.Equal(t, "User offline.",
		s.botResponse(context.Background(), staff, s.BotName(), "!alertuser Ghost hi"))
}

func TestCmdModerated_TogglesChannel(t *testing.T) {
	s := newTestServer(t)
	mod := addOnlineUser(t, s, 1002, "Mod", 3|constants.AdminChatMod)

	ch, ok := s.channels.Get("#osu")
	require.True(t, ok)

	resp := s.botResponse(context.Background(), mod, "#osu", "!moderated on")
	assert.Equal(t, "This channel is now in moderated mode!", resp)
	assert.True(t, ch.Moderated())

	resp = s.botResponse(context.Background(), mod, "#osu", "!moderated off")
	assert.Equal(t, "This channel is no longer in moderated mode!", resp)
	assert.False(t, ch.Moderated())

	resp = s.botResponse(context.Background(), mod, s.BotName(), "!moderated on")
	assert.Contains(t, resp, "private chat in moderated mode")
}

func TestCmdKick_RemovesAllSessions(t *testing.T) {
	s := newTestServer(t)
	kicker := addOnlineUser(t, s, 1002, "Mod", 3|constants.AdminKickUsers)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	resp := s.botResponse(context.Background(), kicker, s.BotName(), "!kick Alice")
	assert.Equal(t, "alice has been kicked from the server.", resp)

	_, online := s.tokens.GetByUserID(1001)
	assert.False(t, online)
	ids := packetIDs(t, alice.Dequeue())
	assert.Contains(t, ids, constants.ServerNotification)
	assert.Contains(t, ids, constants.ServerLoginReply)

	assert.Equal(t, "alice is not online",
		s.botResponse(context.Background(), kicker, s.BotName(), "!kick Alice"))
	assert.Equal(t, "Nope.",
		s.botResponse(context.Background(), kicker, s.BotName(), "!kick "+s.BotName()))
}

func TestCmdKickAll_SparesStaff(t *testing.T) {
	s := newTestServer(t)
	boss := addOnlineUser(t, s, 1003, "Boss", constants.GroupAdmin)
	addOnlineUser(t, s, 1001, "Alice", 3)
	addOnlineUser(t, s, 1002, "Bob", 3)

	resp := s.botResponse(context.Background(), boss, s.BotName(), "!kickall")
	assert.Contains(t, resp, "Who needs players anyways?")

	assert.Equal(t, 2, s.tokens.Len(), "only the bot and staff survive")
	_, online := s.tokens.GetByUserID(1003)
	assert.True(t, online)
	_, online = s.tokens.GetByUserID(constants.BotUserID)
	assert.True(t, online)
}

func TestCmdSilence_OnlineTargetGetsCountdown(t *testing.T) {
	s := newTestServer(t)
	mod := addOnlineUser(t, s, 1002, "Mod", 3|constants.AdminSilenceUsers)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	resp := s.botResponse(context.Background(), mod, s.BotName(), "!silence Alice 5 m flooding")
	assert.Equal(t, "alice has been silenced for: flooding", resp)
	assert.InDelta(t, 300, alice.SilenceSecondsLeft(), 2)
	assert.Contains(t, packetIDs(t, alice.Dequeue()), constants.ServerSilenceEnd)

	row, err := s.users.GetByID(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, "flooding", row.SilenceReason)

	resp = s.botResponse(context.Background(), mod, s.BotName(), "!removesilence Alice")
	assert.Equal(t, "alice's silence reset", resp)
	assert.Zero(t, alice.SilenceSecondsLeft())
}

func TestCmdSilence_RejectsBadArguments(t *testing.T) {
	s := newTestServer(t)
	mod := addOnlineUser(t, s, 1002, "Mod", 3|constants.AdminSilenceUsers)
	addOnlineUser(t, s, 1001, "Alice", 3)

	assert.Equal(t, "Invalid time format (s/m/h/d).",
		s.botResponse(context.Background(), mod, s.BotName(), "!silence Alice 5 x spam"))
	assert.Equal(t, "Invalid silence time. Max silence time is 1 month.",
		s.botResponse(context.Background(), mod, s.BotName(), "!silence Alice 99999999 s spam"))
	assert.Equal(t, "Please provide a valid reason.",
		s.botResponse(context.Background(), mod, s.BotName(), "!silence Some Name 5 m"))
	assert.Contains(t,
		s.botResponse(context.Background(), mod, s.BotName(), "!silence Alice 5 m"),
		"Wrong syntax")
}

func TestCmdSilence_OfflineTargetPersisted(t *testing.T) {
	s := newTestServer(t)
	mod := addOnlineUser(t, s, 1002, "Mod", 3|constants.AdminSilenceUsers)
	s.fakeUsers(t).put(&model.User{ID: 3002, Username: "Sleeper", UsernameSafe: "sleeper", Privileges: 3})

	resp := s.botResponse(context.Background(), mod, s.BotName(), "!silence Sleeper 10 s napping")
	assert.Equal(t, "sleeper has been silenced for: napping", resp)

	row, err := s.users.GetByID(context.Background(), 3002)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Unix()+10, row.SilenceEnd, 2)
	assert.Equal(t, "napping", row.SilenceReason)
}

func TestCmdBanUnban_TogglesPrivileges(t *testing.T) {
	s := newTestServer(t)
	mod := addOnlineUser(t, s, 1002, "Mod", 3|constants.AdminBanUsers)
	victim := addOnlineUser(t, s, 3001, "Victim", 3)

	resp := s.botResponse(context.Background(), mod, s.BotName(), "!ban Victim")
	assert.Equal(t, "RIP victim. You will not be missed.", resp)
	row, err := s.users.GetByID(context.Background(), 3001)
	require.NoError(t, err)
	assert.Zero(t, row.Privileges)
	assert.Contains(t, packetIDs(t, victim.Dequeue()), constants.ServerLoginReply)

	resp = s.botResponse(context.Background(), mod, s.BotName(), "!unban Victim")
	assert.Equal(t, "Welcome back victim!", resp)
	row, err = s.users.GetByID(context.Background(), 3001)
	require.NoError(t, err)
	assert.EqualValues(t, 3, row.Privileges)

	assert.Equal(t, "NO!",
		s.botResponse(context.Background(), mod, s.BotName(), "!ban "+s.BotName()),
		"the bot account is off limits")
	assert.Equal(t, "ghost: user not found",
		s.botResponse(context.Background(), mod, s.BotName(), "!ban Ghost"))
}

func TestCmdRestrict_RecordsReason(t *testing.T) {
	s := newTestServer(t)
	mod := addOnlineUser(t, s, 1002, "Mod", 3|constants.AdminBanUsers)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	resp := s.botResponse(context.Background(), mod, s.BotName(),
		`!restrict Alice "multiaccounting" "same hardware as a banned user"`)
	assert.Contains(t, resp, "successfully restricted")

	users := s.fakeUsers(t)
	assert.Contains(t, users.restricted, int32(1001))
	require.NotEmpty(t, users.banLogs)
	assert.Equal(t, `"multiaccounting"`, users.banLogs[len(users.banLogs)-1])

	frames := drainFrames(t, alice.Dequeue())
	require.Len(t, frames, 1)
	assert.Contains(t, readStringPayload(t, frames[0].Payload), "restricted")

	assert.Equal(t, "Please specify both a reason and a summary for the ban.",
		s.botResponse(context.Background(), mod, s.BotName(), "!restrict Alice cheating badly"))
}

func TestCmdFreezeUnfreeze(t *testing.T) {
	s := newTestServer(t)
	mod := addOnlineUser(t, s, 1002, "Mod", 3|constants.AdminManageUsers)
	addOnlineUser(t, s, 1001, "Alice", 3)

	resp := s.botResponse(context.Background(), mod, s.BotName(), "!freeze Alice")
	assert.Equal(t, "User has been frozen!", resp)
	row, err := s.users.GetByID(context.Background(), 1001)
	require.NoError(t, err)
	assert.True(t, row.Frozen)

	resp = s.botResponse(context.Background(), mod, s.BotName(), "!unfreeze Alice")
	assert.Equal(t, "User has been unfrozen!", resp)
	row, err = s.users.GetByID(context.Background(), 1001)
	require.NoError(t, err)
	assert.False(t, row.Frozen)
}

func TestCmdChangeUsername_KicksForRelog(t *testing.T) {
	s := newTestServer(t)
	donor := addOnlineUser(t, s, 1004, "Rich", 3|constants.UserDonor)

	resp := s.botResponse(context.Background(), donor, s.BotName(), "!username RichKid")
	assert.Empty(t, resp)

	row, err := s.users.GetByID(context.Background(), 1004)
	require.NoError(t, err)
	assert.Equal(t, "RichKid", row.Username)

	_, online := s.tokens.GetByUserID(1004)
	assert.False(t, online, "the session must relog under the new name")
	frames := drainFrames(t, donor.Dequeue())
	require.NotEmpty(t, frames)
	assert.Contains(t, readStringPayload(t, frames[0].Payload), "changed to RichKid")
}

func TestCmdSystemMaintenance_Toggles(t *testing.T) {
	s := newTestServer(t)
	boss := addOnlineUser(t, s, 1003, "Boss", constants.GroupAdmin)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)

	resp := s.botResponse(context.Background(), boss, s.BotName(), "!system maintenance")
	assert.Contains(t, resp, "now in maintenance mode")
	assert.True(t, s.Maintenance())

	assert.Equal(t, []uint16{constants.ServerNotification, constants.ServerLoginReply},
		packetIDs(t, alice.Dequeue()), "players get the notice and the login error")
	assert.Equal(t, []uint16{constants.ServerNotification},
		packetIDs(t, boss.Dequeue()), "staff only get the notice")

	resp = s.botResponse(context.Background(), boss, s.BotName(), "!system maintenance off")
	assert.Contains(t, resp, "no longer in maintenance mode")
	assert.False(t, s.Maintenance())
}

func TestCmdSystemReloadAndStatus(t *testing.T) {
	s := newTestServer(t)
	boss := addOnlineUser(t, s, 1003, "Boss", constants.GroupAdmin)

	resp := s.botResponse(context.Background(), boss, s.BotName(), "!system reload")
	assert.Contains(t, resp, "Bancho settings reloaded!")

	resp = s.botResponse(context.Background(), boss, s.BotName(), "!system status")
	assert.Contains(t, resp, "Running RealistikOsu bancho "+Version)
	assert.Contains(t, resp, "> Online Users: 2")
	assert.Contains(t, resp, "> Multiplayer: 0")
}

func TestCmdNowPlaying_SetsMapAndShowsPP(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	s.pp.(*fakePerformanceService).res = performance.Result{
		Status:   200,
		SongName: "Kenji Ninuma - DISCO PRINCE [Normal]",
		PP:       []float64{55.5, 50.1, 45.2, 38.9},
		Stars:    5.1,
	}

	np := "\x01ACTION is listening to [https://osu.ppy.sh/b/42 DISCO PRINCE]\x01"
	resp := s.botResponse(context.Background(), alice, s.BotName(), np)
	assert.Contains(t, resp, "Kenji Ninuma - DISCO PRINCE [Normal]")
	assert.Contains(t, resp, "| 100% = 55.50pp |")

	mapID, mods, acc := alice.Tillerino()
	assert.EqualValues(t, 42, mapID)
	assert.Zero(t, mods)
	assert.EqualValues(t, -1, acc)

	np = "\x01ACTION is playing [https://osu.ppy.sh/b/42 DISCO PRINCE] +Hidden +DoubleTime\x01"
	resp = s.botResponse(context.Background(), alice, s.BotName(), np)
	assert.Contains(t, resp, "+HDDT")
	_, mods, _ = alice.Tillerino()
	assert.Equal(t, constants.ModHidden|constants.ModDoubleTime, mods)

	assert.Empty(t, s.botResponse(context.Background(), alice, "#osu", np),
		"np lines in public channels are ignored")
}

func TestCmdWith_RecalculatesWithMods(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	bob := addOnlineUser(t, s, 1002, "Bob", 3)
	s.pp.(*fakePerformanceService).res = performance.Result{
		Status:   200,
		SongName: "DISCO PRINCE [Normal]",
		PP:       []float64{55.5, 50.1, 45.2, 38.9},
	}
	alice.SetTillerino(42, 0, -1)

	resp := s.botResponse(context.Background(), alice, s.BotName(), "!with HDDT")
	assert.Contains(t, resp, "+HDDT")
	assert.Contains(t, resp, "| 100% = 55.50pp |")
	_, mods, _ := alice.Tillerino()
	assert.Equal(t, constants.ModHidden|constants.ModDoubleTime, mods)

	resp = s.botResponse(context.Background(), alice, s.BotName(), "!with QQ")
	assert.Contains(t, resp, "Invalid mods.")

	assert.Equal(t, "You must firstly select a beatmap using the /np command.",
		s.botResponse(context.Background(), bob, s.BotName(), "!with HD"))
	assert.Empty(t, s.botResponse(context.Background(), alice, "#osu", "!with HD"))
}

func TestCmdAcc_SetsAccuracy(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	s.pp.(*fakePerformanceService).res = performance.Result{
		Status:   200,
		SongName: "DISCO PRINCE [Normal]",
		PP:       []float64{55.5},
	}
	alice.SetTillerino(42, 0, -1)

	resp := s.botResponse(context.Background(), alice, s.BotName(), "!acc 97.13")
	assert.Contains(t, resp, "| 97.13% = 55.50pp |")
	_, _, acc := alice.Tillerino()
	assert.InDelta(t, 97.13, acc, 0.001)

	assert.Equal(t, "Invalid acc value",
		s.botResponse(context.Background(), alice, s.BotName(), "!acc banana"))
}

func TestCmdLast_FormatsScoreLine(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	bob := addOnlineUser(t, s, 1002, "Bob", 3)
	s.pp.(*fakePerformanceService).res = performance.Result{Status: 200, Stars: 5.1}
	s.scores.(*fakeScoreStore).last = map[int32]*db.ScoreRow{
		1001: {
			BeatmapID:   42,
			SongName:    "DISCO PRINCE [Normal]",
			MapMaxCombo: 100,
			PlayMode:    constants.ModeStd,
			Mods:        constants.ModHidden,
			Accuracy:    98.5,
			Count300:    95,
			Count100:    5,
			MaxCombo:    98,
			Completed:   3,
			PP:          123.45,
		},
	}

	resp := s.botResponse(context.Background(), alice, s.BotName(), "!last")
	assert.Contains(t, resp, "DISCO PRINCE [Normal]] +HD")
	assert.Contains(t, resp, "{SH, 98.50%} (FC) 98/100x")
	assert.Contains(t, resp, "123.45pp")
	assert.Contains(t, resp, "5.10 ★")
	assert.Contains(t, resp, "{ 5x100 // 0x50 // 0xMiss }")

	mapID, mods, acc := alice.Tillerino()
	assert.EqualValues(t, 42, mapID)
	assert.Equal(t, constants.ModHidden, mods)
	assert.InDelta(t, 96.67, acc, 0.01, "the FC accuracy counts misses as 300s")

	assert.Equal(t, "Please submit a score!",
		s.botResponse(context.Background(), bob, s.BotName(), "!last"))
}

func TestMirrorCommands_ResolveBeatmap(t *testing.T) {
	s := newTestServer(t)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	s.beatmaps.(*fakeBeatmapStore).byID = map[int32]*db.BeatmapRow{
		42: {BeatmapID: 42, BeatmapsetID: 7, SongName: "DISCO PRINCE [Normal]", Ranked: 2},
	}

	resp := s.botResponse(context.Background(), alice, s.BotName(), "!mirror")
	assert.Contains(t, resp, "/np it before")

	alice.SetTillerino(42, 0, -1)
	assert.Equal(t, "Download [https://chimu.moe/en/d/7 DISCO PRINCE [Normal]] from Chimu",
		s.botResponse(context.Background(), alice, s.BotName(), "!chimu"))
	assert.Equal(t, "Download [https://beatconnect.io/b/7 DISCO PRINCE [Normal]] from Beatconnect",
		s.botResponse(context.Background(), alice, s.BotName(), "!beatconnect"))
	assert.Contains(t,
		s.botResponse(context.Background(), alice, s.BotName(), "!mirror"),
		"[osu://dl/7 osu!direct]")

	assert.Equal(t, "This match doesn't seem to exist... Or does it...?",
		s.botResponse(context.Background(), alice, "#multi_77", "!mirror"))

	// In a spectator channel the host's current map wins over /np.
	host := addOnlineUser(t, s, 2002, "Host", 3)
	host.SetAction(model.Action{ID: constants.ActionPlaying, BeatmapID: 42})
	resp = s.botResponse(context.Background(), alice, "#spect_2002", "!mirror")
	assert.Contains(t, resp, "DISCO PRINCE [Normal]")
}

func TestCmdMap_RanksTheLastNpMap(t *testing.T) {
	s := newTestServer(t)
	s.cfg.NewRankedWebhook = "https://discord.example/hook"
	mapper := addOnlineUser(t, s, 1002, "Mapper", 3|constants.AdminManageBeatmaps)
	alice := addOnlineUser(t, s, 1001, "Alice", 3)
	joinTestChannel(t, s, alice, "#announce")

	beatmaps := s.beatmaps.(*fakeBeatmapStore)
	beatmaps.byID = map[int32]*db.BeatmapRow{
		42: {BeatmapID: 42, BeatmapsetID: 7, SongName: "FELT - Flower Flag [MX]", Ranked: 0},
	}
	beatmaps.setMD5 = map[int32][]string{7: {"aaa", "bbb"}}

	resp := s.botResponse(context.Background(), mapper, s.BotName(), "!map rank map")
	assert.Equal(t, "Please give me a beatmap first with /np command.", resp)

	mapper.SetTillerino(42, 0, -1)
	assert.Equal(t, "Status must be either rank, unrank, or love.",
		s.botResponse(context.Background(), mapper, s.BotName(), "!map banana map"))
	assert.Equal(t, "Scope must either be set or map.",
		s.botResponse(context.Background(), mapper, s.BotName(), "!map rank banana"))
	assert.Equal(t, "Wrong syntax: !map <rank/love/unrank> <set/map>",
		s.botResponse(context.Background(), mapper, s.BotName(), "!map rank"))

	resp = s.botResponse(context.Background(), mapper, s.BotName(), "!map rank map")
	assert.Equal(t, "Successfully ranked a map.", resp)

	beatmaps.mu.Lock()
	require.Len(t, beatmaps.ranked, 1)
	call := beatmaps.ranked[0]
	beatmaps.mu.Unlock()
	assert.False(t, call.wholeSet)
	assert.EqualValues(t, 42, call.id)
	assert.EqualValues(t, 2, call.status)
	assert.EqualValues(t, 1002, call.rankedBy)

	select {
	case got := <-s.webhooks.(*fakeWebhookSender).sent:
		assert.Equal(t, "https://discord.example/hook", got.url)
		assert.Equal(t, "Ranked by Mapper", got.embed.Description)
		require.NotNil(t, got.embed.Author)
		assert.Equal(t, "FELT - Flower Flag [MX] was just ranked", got.embed.Author.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("no webhook delivered")
	}

	frames := drainFrames(t, alice.Dequeue())
	require.Len(t, frames, 1)
	assert.Equal(t, constants.ServerSendMessage, frames[0].ID)
	from, message, target, _ := readMessagePayload(t, frames[0].Payload)
	assert.Equal(t, s.BotName(), from)
	assert.Equal(t, "#announce", target)
	assert.Contains(t, message, "[https://ussr.pl/u/1002 Mapper] has ranked the beatmap [https://ussr.pl/beatmaps/42 FELT - Flower Flag [MX]]")

	beatmaps.byID[42].Ranked = 2
	assert.Equal(t, "That map is already ranked!",
		s.botResponse(context.Background(), mapper, s.BotName(), "!map rank map"))

	// Ranking the whole set resolves the set id.
	beatmaps.byID[42].Ranked = 0
	resp = s.botResponse(context.Background(), mapper, s.BotName(), "!map love set")
	assert.Equal(t, "Successfully loved a map.", resp)
	beatmaps.mu.Lock()
	require.Len(t, beatmaps.ranked, 2)
	call = beatmaps.ranked[1]
	beatmaps.mu.Unlock()
	assert.True(t, call.wholeSet)
	assert.EqualValues(t, 7, call.id)
	assert.EqualValues(t, 5, call.status)
}

func TestScoreGrade(t *testing.T) {
	assert.Equal(t, "X", scoreGrade(constants.ModeStd, 0, 0, 100, 0, 0, 0))
	assert.Equal(t, "XH", scoreGrade(constants.ModeStd, constants.ModHidden, 0, 100, 0, 0, 0))
	assert.Equal(t, "S", scoreGrade(constants.ModeStd, 0, 0, 95, 5, 0, 0))
	assert.Equal(t, "SH", scoreGrade(constants.ModeStd, constants.ModFlashlight, 0, 95, 5, 0, 0))
	assert.Equal(t, "B", scoreGrade(constants.ModeStd, 0, 0, 85, 10, 0, 5))
	assert.Equal(t, "F", scoreGrade(constants.ModeStd, 0, 0, 0, 0, 0, 0))
	assert.Equal(t, "X", scoreGrade(constants.ModeCtb, 0, 100, 1, 0, 0, 0))
	assert.Equal(t, "S", scoreGrade(constants.ModeCtb, 0, 99, 1, 0, 0, 0))
	assert.Equal(t, "S", scoreGrade(constants.ModeMania, 0, 96, 1, 0, 0, 0))
}

func TestModeAccuracy(t *testing.T) {
	assert.InDelta(t, 100, modeAccuracy(constants.ModeStd, 100, 0, 0, 0, 0, 0), 0.001)
	assert.Zero(t, modeAccuracy(constants.ModeStd, 0, 0, 0, 0, 0, 0))
	assert.InDelta(t, 75, modeAccuracy(constants.ModeTaiko, 50, 50, 0, 0, 0, 0), 0.001)
	assert.InDelta(t, 90, modeAccuracy(constants.ModeMania, 90, 0, 0, 10, 0, 0), 0.001)
	assert.InDelta(t, 83.33, modeAccuracy(constants.ModeCtb, 50, 25, 25, 20, 0, 0), 0.01)
}

func TestReadableMods(t *testing.T) {
	assert.Equal(t, "", readableMods(0))
	assert.Equal(t, "HDDT", readableMods(constants.ModHidden|constants.ModDoubleTime))
	assert.Equal(t, "NFDT", readableMods(constants.ModNoFail|constants.ModDoubleTime))
	assert.Equal(t, "RX", readableMods(constants.ModRelax))
}

func TestSpecialChannelParsers(t *testing.T) {
	id, ok := multiChannelID("#multi_12")
	assert.True(t, ok)
	assert.EqualValues(t, 12, id)
	id, ok = multiChannelID("#MULTI_12")
	assert.True(t, ok)
	assert.EqualValues(t, 12, id)
	_, ok = multiChannelID("#multi_")
	assert.False(t, ok)
	_, ok = multiChannelID("#osu")
	assert.False(t, ok)

	id, ok = spectChannelHostID("#spect_999")
	assert.True(t, ok)
	assert.EqualValues(t, 999, id)
	_, ok = spectChannelHostID("#multi_3")
	assert.False(t, ok)
}
