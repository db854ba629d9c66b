package serverpackets

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/model"
)

func TestLoginReply(t *testing.T) {
	data := LoginReply(1001)

	if got := binary.LittleEndian.Uint16(data); got != uint16(constants.ServerLoginReply) {
		t.Errorf("packet id = %d, want %d", got, constants.ServerLoginReply)
	}
	if got := binary.LittleEndian.Uint32(data[3:]); got != 4 {
		t.Errorf("payload length = %d, want 4", got)
	}
	if got := int32(binary.LittleEndian.Uint32(data[7:])); got != 1001 {
		t.Errorf("user id = %d, want 1001", got)
	}
}

func TestLoginReply_MinusOneMatchesLiteral(t *testing.T) {
	if got := LoginReply(-1); !bytes.Equal(got, LoginFailed) {
		t.Errorf("LoginReply(-1) = % X, want the LoginFailed literal % X", got, LoginFailed)
	}
}

func TestPrecomputedLiterals(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		id      uint16
		payload int
	}{
		{"ForceUpdate", ForceUpdate, constants.ServerLoginReply, 4},
		{"LoginError", LoginError, constants.ServerLoginReply, 4},
		{"VerificationRequired", VerificationRequired, constants.ServerLoginReply, 4},
		{"ProtocolVersion", ProtocolVersion, constants.ServerProtocolVersion, 4},
		{"ChannelInfoEnd", ChannelInfoEnd, constants.ServerChannelInfoEnd, 4},
		{"MatchJoinFail", MatchJoinFail, constants.ServerMatchJoinFail, 0},
		{"MatchAllPlayersLoaded", MatchAllPlayersLoaded, constants.ServerMatchAllPlayersLoaded, 0},
		{"MatchAllSkipped", MatchAllSkipped, constants.ServerMatchSkip, 0},
		{"MatchComplete", MatchComplete, constants.ServerMatchComplete, 0},
		{"MatchTransferHost", MatchTransferHost, constants.ServerMatchTransferHost, 0},
		{"MatchAbort", MatchAbort, constants.ServerMatchAbort, 0},
		{"Pong", Pong, constants.ServerPong, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.data) != 7+tt.payload {
				t.Fatalf("length = %d, want %d", len(tt.data), 7+tt.payload)
			}
			if got := binary.LittleEndian.Uint16(tt.data); got != tt.id {
				t.Errorf("packet id = %d, want %d", got, tt.id)
			}
			if got := binary.LittleEndian.Uint32(tt.data[3:]); int(got) != tt.payload {
				t.Errorf("payload length = %d, want %d", got, tt.payload)
			}
		})
	}
}

func TestProtocolVersion_Payload(t *testing.T) {
	if got := binary.LittleEndian.Uint32(ProtocolVersion[7:]); got != 19 {
		t.Errorf("protocol version = %d, want 19", got)
	}
}

func TestBanchoPrivileges(t *testing.T) {
	tests := []struct {
		name                       string
		supporter, gmt, tournament bool
		want                       uint32
	}{
		{"player only", false, false, false, 1},
		{"supporter", true, false, false, 5},
		{"gmt supporter", true, true, false, 7},
		{"tournament staff", false, false, true, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := BanchoPrivileges(tt.supporter, tt.gmt, tt.tournament)
			if got := binary.LittleEndian.Uint32(data[7:]); got != tt.want {
				t.Errorf("privileges = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUserStats_Layout(t *testing.T) {
	action := model.Action{
		ID:        constants.ActionPlaying,
		Text:      "x",
		MD5:       "d41d8cd98f00b204e9800998ecf8427e",
		Mods:      constants.ModHidden,
		GameMode:  constants.ModeStd,
		BeatmapID: 53510,
	}
	stats := model.Stats{
		RankedScore: 123456789,
		Accuracy:    0.9812,
		Playcount:   4242,
		TotalScore:  987654321,
		GameRank:    17,
		PP:          5120,
	}

	data := UserStats(1001, action, stats)

	if got := binary.LittleEndian.Uint16(data); got != uint16(constants.ServerUserStats) {
		t.Fatalf("packet id = %d, want %d", got, constants.ServerUserStats)
	}
	if got := binary.LittleEndian.Uint32(data[3:]); int(got) != len(data)-7 {
		t.Fatalf("payload length = %d, want %d", got, len(data)-7)
	}

	p := data[7:]
	if got := binary.LittleEndian.Uint32(p); got != 1001 {
		t.Errorf("user id = %d, want 1001", got)
	}
	if p[4] != constants.ActionPlaying {
		t.Errorf("action id = %d, want %d", p[4], constants.ActionPlaying)
	}

	// Skip action text "x" (3 bytes) and the md5 string (34 bytes).
	off := 5 + 3 + 34
	if got := int32(binary.LittleEndian.Uint32(p[off:])); got != constants.ModHidden {
		t.Errorf("mods = %d, want %d", got, constants.ModHidden)
	}
	off += 4
	if p[off] != constants.ModeStd {
		t.Errorf("game mode = %d, want %d", p[off], constants.ModeStd)
	}
	off++
	if got := int32(binary.LittleEndian.Uint32(p[off:])); got != 53510 {
		t.Errorf("beatmap id = %d, want 53510", got)
	}
	off += 4
	if got := binary.LittleEndian.Uint64(p[off:]); got != 123456789 {
		t.Errorf("ranked score = %d, want 123456789", got)
	}
	off += 8
	if got := math.Float32frombits(binary.LittleEndian.Uint32(p[off:])); got != 0.9812 {
		t.Errorf("accuracy = %v, want 0.9812", got)
	}
	off += 4
	if got := binary.LittleEndian.Uint32(p[off:]); got != 4242 {
		t.Errorf("playcount = %d, want 4242", got)
	}
	off += 4
	if got := binary.LittleEndian.Uint64(p[off:]); got != 987654321 {
		t.Errorf("total score = %d, want 987654321", got)
	}
	off += 8
	if got := binary.LittleEndian.Uint32(p[off:]); got != 17 {
		t.Errorf("game rank = %d, want 17", got)
	}
	off += 4
	if got := binary.LittleEndian.Uint16(p[off:]); got != 5120 {
		t.Errorf("pp = %d, want 5120", got)
	}
}

func TestUserStats_PPOverflowDropsToZero(t *testing.T) {
	data := UserStats(1001, model.Action{}, model.Stats{PP: 70000})

	if got := binary.LittleEndian.Uint16(data[len(data)-2:]); got != 0 {
		t.Errorf("overflowing pp = %d, want 0", got)
	}
}

func TestUserPresence_LongitudeBeforeLatitude(t *testing.T) {
	loc := model.Location{Latitude: 55.75, Longitude: 37.61}
	data := UserPresence(1001, "peppy", 27, 16, uint8(constants.UserRankPlayer), loc, 1)

	p := data[7:]
	// int32 id, string "peppy" (2 + 5), 3 single bytes, then the floats.
	off := 4 + 7 + 3
	lon := math.Float32frombits(binary.LittleEndian.Uint32(p[off:]))
	lat := math.Float32frombits(binary.LittleEndian.Uint32(p[off+4:]))
	if lon != 37.61 || lat != 55.75 {
		t.Errorf("coordinates = (%v, %v), want (37.61, 55.75)", lon, lat)
	}
}

func TestMessageNotify_FieldOrder(t *testing.T) {
	data := MessageNotify("alice", "hi", "#osu", 1001)

	p := data[7:]
	wantPrefix := []byte{0x0B, 0x05}
	if !bytes.HasPrefix(p, append(wantPrefix, []byte("alice")...)) {
		t.Errorf("sender field malformed: % X", p[:8])
	}
	if got := int32(binary.LittleEndian.Uint32(p[len(p)-4:])); got != 1001 {
		t.Errorf("sender id = %d, want 1001", got)
	}
}

func TestMatchData_Serialization(t *testing.T) {
	d := MatchData{
		ID:          3,
		Mods:        constants.ModDoubleTime,
		Name:        "test match",
		Password:    "",
		BeatmapName: "artist - title",
		BeatmapID:   1337,
		BeatmapMD5:  "a1b2",
		HostUserID:  1001,
		GameMode:    constants.ModeStd,
		ScoringType: constants.MatchScoringScore,
		TeamType:    constants.MatchTeamTypeHeadToHead,
	}
	for i := range d.SlotStatuses {
		d.SlotStatuses[i] = constants.SlotFree
	}
	d.SlotStatuses[0] = constants.SlotNotReady
	d.SlotUserIDs[0] = 1001
	d.SlotStatuses[5] = constants.SlotLocked

	data := UpdateMatch(d)

	if got := binary.LittleEndian.Uint16(data); got != uint16(constants.ServerUpdateMatch) {
		t.Fatalf("packet id = %d, want %d", got, constants.ServerUpdateMatch)
	}

	p := data[7:]
	if got := binary.LittleEndian.Uint16(p); got != 3 {
		t.Errorf("match id = %d, want 3", got)
	}
	if p[2] != 0 {
		t.Errorf("in progress = %d, want 0", p[2])
	}
	if got := binary.LittleEndian.Uint32(p[4:]); got != uint32(constants.ModDoubleTime) {
		t.Errorf("mods = %d, want %d", got, constants.ModDoubleTime)
	}

	// Strings: "test match" (12), "" (1), "artist - title" (16),
	// beatmap id u32, "a1b2" (6). Slot statuses follow.
	off := 8 + 12 + 1 + 16 + 4 + 6
	if p[off] != constants.SlotNotReady {
		t.Errorf("slot 0 status = %d, want %d", p[off], constants.SlotNotReady)
	}
	if p[off+5] != constants.SlotLocked {
		t.Errorf("slot 5 status = %d, want %d", p[off+5], constants.SlotLocked)
	}

	// One occupied slot: exactly one user id serialized after the teams.
	off += 16 + 16
	if got := int32(binary.LittleEndian.Uint32(p[off:])); got != 1001 {
		t.Errorf("occupied slot user = %d, want 1001", got)
	}
	off += 4
	if got := int32(binary.LittleEndian.Uint32(p[off:])); got != 1001 {
		t.Errorf("host = %d, want 1001", got)
	}

	// No free mod: the packet ends with game settings plus the seed.
	off += 4
	if want := off + 4 + 4; len(p) != want {
		t.Errorf("payload length = %d, want %d", len(p), want)
	}
}

func TestMatchData_FreeModAddsSlotMods(t *testing.T) {
	var d MatchData
	for i := range d.SlotStatuses {
		d.SlotStatuses[i] = constants.SlotFree
	}

	plain := len(UpdateMatch(d))
	d.FreeMod = true
	free := len(UpdateMatch(d))

	if free-plain != 16*4 {
		t.Errorf("free mod grew packet by %d bytes, want 64", free-plain)
	}
}

func TestMatchFrames_SlotSubstitution(t *testing.T) {
	// time int32 | sender byte | two trailing bytes.
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0xEE, 0xAA, 0xBB}
	data := MatchFrames(9, payload)

	p := data[7:]
	if !bytes.Equal(p[:4], payload[:4]) {
		t.Errorf("time bytes = % X, want % X", p[:4], payload[:4])
	}
	if p[4] != 9 {
		t.Errorf("slot id = %d, want 9", p[4])
	}
	if !bytes.Equal(p[5:], payload[5:]) {
		t.Errorf("trailing bytes = % X, want % X", p[5:], payload[5:])
	}
}

func TestLoginBanned_Composite(t *testing.T) {
	if !bytes.HasPrefix(LoginBanned, LoginFailed) {
		t.Error("LoginBanned must start with the failed login reply")
	}
	if id := binary.LittleEndian.Uint16(LoginBanned[len(LoginFailed):]); id != uint16(constants.ServerNotification) {
		t.Errorf("second packet id = %d, want notification", id)
	}

	if !bytes.HasSuffix(LoginCheats, LoginFailed) {
		t.Error("LoginCheats must end with the failed login reply")
	}
}
