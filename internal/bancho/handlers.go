package bancho

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/udisondev/banchogo/internal/bancho/clientpackets"
	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/protocol"
)

// logoutGrace is how long a session must be alive before its logout
// packet counts. Clients that relog instantly replay the old logout
// packet on the fresh session; inside the grace it is dropped and the
// stale session falls to the timeout sweep instead.
const logoutGrace = 5

// HandleRequest runs one packet-exchange body under the session's
// processing lock and returns the drained outbound queue. A malformed
// frame aborts the rest of the body; what was handled before it stays
// handled.
func (s *Server) HandleRequest(ctx context.Context, t *Token, body []byte) ([]byte, error) {
	t.processing.Lock()
	defer t.processing.Unlock()
	t.UpdatePingTime()

	r := protocol.NewReader(body)
	for {
		frame, err := r.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading packet frame: %w", err)
		}
		s.metrics.PacketsTotal.WithLabelValues(strconv.Itoa(int(frame.ID))).Inc()
		s.handlePacket(ctx, t, frame.ID, frame.Payload)
	}
	return t.Dequeue(), nil
}

func (s *Server) handlePacket(ctx context.Context, t *Token, id uint16, payload []byte) {
	switch id {
	case constants.ClientChangeAction:
		s.handleChangeAction(ctx, t, payload)
	case constants.ClientSendPublicMessage:
		s.handlePublicMessage(ctx, t, payload)
	case constants.ClientLogout:
		s.handleLogout(ctx, t)
	case constants.ClientRequestStatusUpdate:
		s.handleRequestStatusUpdate(ctx, t)
	case constants.ClientPong:
		// Ping time is refreshed for the whole request already.
	case constants.ClientStartSpectating:
		s.handleStartSpectating(t, payload)
	case constants.ClientStopSpectating:
		s.stopSpectating(t)
	case constants.ClientSpectateFrames:
		s.streams.Broadcast(spectStream(t.UserID), serverpackets.SpectateFrames(payload))
	case constants.ClientCantSpectate:
		s.handleCantSpectate(t)
	case constants.ClientSendPrivateMessage:
		s.handlePrivateMessage(ctx, t, payload)
	case constants.ClientPartLobby:
		s.handlePartLobby(t)
	case constants.ClientJoinLobby:
		s.handleJoinLobby(t)
	case constants.ClientCreateMatch:
		s.handleCreateMatch(t, payload)
	case constants.ClientJoinMatch:
		s.handleJoinMatch(t, payload)
	case constants.ClientPartMatch:
		s.LeaveMatch(t)
	case constants.ClientMatchChangeSlot:
		s.handleMatchChangeSlot(t, payload)
	case constants.ClientMatchReady:
		s.handleMatchSlotStatus(t, constants.SlotReady)
	case constants.ClientMatchLock:
		s.handleMatchLock(t, payload)
	case constants.ClientMatchChangeSettings:
		s.handleMatchChangeSettings(t, payload)
	case constants.ClientMatchStart:
		s.handleMatchStart(t)
	case constants.ClientMatchScoreUpdate:
		s.handleMatchFrames(t, payload)
	case constants.ClientMatchComplete:
		s.handleMatchComplete(t)
	case constants.ClientMatchChangeMods:
		s.handleMatchChangeMods(t, payload)
	case constants.ClientMatchLoadComplete:
		s.handleMatchLoadComplete(t)
	case constants.ClientMatchNoBeatmap:
		s.handleMatchSlotStatus(t, constants.SlotNoMap)
	case constants.ClientMatchNotReady:
		s.handleMatchSlotStatus(t, constants.SlotNotReady)
	case constants.ClientMatchFailed:
		s.handleMatchFailed(t)
	case constants.ClientMatchHasBeatmap:
		s.handleMatchSlotStatus(t, constants.SlotNotReady)
	case constants.ClientMatchSkipRequest:
		s.handleMatchSkip(t)
	case constants.ClientChannelJoin:
		s.handleChannelJoin(t, payload)
	case constants.ClientBeatmapInfoRequest:
		s.handleBeatmapInfoRequest(ctx, t)
	case constants.ClientMatchTransferHost:
		s.handleMatchTransferHost(t, payload)
	case constants.ClientFriendAdd:
		s.handleFriendChange(ctx, t, payload, true)
	case constants.ClientFriendRemove:
		s.handleFriendChange(ctx, t, payload, false)
	case constants.ClientMatchChangeTeam:
		s.handleMatchChangeTeam(t)
	case constants.ClientChannelPart:
		s.handleChannelPart(t, payload)
	case constants.ClientSetAwayMessage:
		s.handleSetAwayMessage(t, payload)
	case constants.ClientUserStatsRequest:
		s.handleUserStatsRequest(t, payload)
	case constants.ClientMatchInvite:
		s.handleMatchInvite(t, payload)
	case constants.ClientMatchChangePassword:
		s.handleMatchChangePassword(t, payload)
	case constants.ClientTournamentMatchInfo:
		s.handleTournamentMatchInfo(t, payload)
	case constants.ClientUserPanelRequest:
		s.handleUserPanelRequest(t, payload)
	case constants.ClientTournamentJoinMatchChan:
		s.handleTournamentMatchChannel(t, payload, true)
	case constants.ClientTournamentLeaveMatchChan:
		s.handleTournamentMatchChannel(t, payload, false)
	default:
		s.log.Debug("unhandled packet", "id", id, "username", t.Username)
	}
}

// handleChangeAction applies the self status update: the action text is
// decorated with the mode prefix and the user's custom status, stats
// are refreshed when the mode or mod class changed, and the new panel
// goes to the user and their spectators.
func (s *Server) handleChangeAction(ctx context.Context, t *Token, payload []byte) {
	a, err := clientpackets.ChangeAction(payload)
	if err != nil {
		s.log.Warn("bad action packet", "username", t.Username, "error", err)
		return
	}

	modeChanged := t.Action().GameMode != a.GameMode
	rawText := a.Text
	t.SetAction(a)

	prefix := "VN"
	switch {
	case t.Relaxing():
		prefix = "RX"
	case t.Autopiloting():
		prefix = "AP"
	}
	if a.ID == constants.ActionIdle || a.ID == constants.ActionAFK {
		a.Text = "[" + prefix + "]"
		if row, ok := s.UserStatus(t.UserID); ok && row.Enabled {
			a.Text = "(" + row.Status + ") [" + prefix + "]"
		}
	} else {
		a.Text = "[" + prefix + "] " + rawText
	}
	t.SetAction(a)

	if a.ID != constants.ActionAFK || modeChanged {
		if err := s.RefreshStats(ctx, t); err != nil {
			s.log.Error("refreshing stats on action change", "user_id", t.UserID, "error", err)
		}
	}

	panel := append(presencePacket(t), statsPacket(t)...)
	t.Enqueue(panel)
	for _, id := range t.Spectators() {
		if watcher, ok := s.tokens.Get(id); ok {
			watcher.Enqueue(panel)
		}
	}
	s.log.Info("presence updated", "username", t.Username, "action_id", a.ID, "action_text", a.Text)
}

func (s *Server) handlePublicMessage(ctx context.Context, t *Token, payload []byte) {
	msg, err := clientpackets.PublicMessage(payload)
	if err != nil {
		s.log.Warn("bad public message packet", "username", t.Username, "error", err)
		return
	}
	if err := s.sendMessage(ctx, t, msg.To, msg.Body); err != nil {
		s.log.Debug("public message rejected", "from", t.Username, "to", msg.To, "error", err)
	}
}

func (s *Server) handlePrivateMessage(ctx context.Context, t *Token, payload []byte) {
	msg, err := clientpackets.PrivateMessage(payload)
	if err != nil {
		s.log.Warn("bad private message packet", "username", t.Username, "error", err)
		return
	}
	if err := s.sendMessage(ctx, t, msg.To, msg.Body); err != nil {
		s.log.Debug("private message rejected", "from", t.Username, "to", msg.To, "error", err)
	}
}

// handleLogout ignores logout packets inside the grace window. A client
// that relogs immediately flushes the previous session's logout on the
// new connection, which would otherwise kill the fresh session.
func (s *Server) handleLogout(ctx context.Context, t *Token) {
	if time.Now().Unix()-t.LoginTime < logoutGrace && !t.IRC {
		return
	}
	s.Logout(ctx, t)
}

func (s *Server) handleRequestStatusUpdate(ctx context.Context, t *Token) {
	if err := s.RefreshStats(ctx, t); err != nil {
		s.log.Error("refreshing stats on request", "user_id", t.UserID, "error", err)
		return
	}
	t.Enqueue(statsPacket(t))
}

// handleStartSpectating attaches the session to the requested host. A
// negative id is the client's way of saying stop.
func (s *Server) handleStartSpectating(t *Token, payload []byte) {
	hostUserID, err := clientpackets.UserID(payload)
	if err != nil {
		s.log.Warn("bad spectate packet", "username", t.Username, "error", err)
		return
	}
	if hostUserID < 0 {
		s.stopSpectating(t)
		return
	}
	host, ok := s.tokens.GetByUserID(hostUserID)
	if !ok {
		s.log.Warn("spectate host offline", "username", t.Username, "host_user_id", hostUserID)
		s.stopSpectating(t)
		return
	}
	s.startSpectating(t, host)
}

// handleCantSpectate tells the host this spectator lacks the map.
func (s *Server) handleCantSpectate(t *Token) {
	host, ok := s.tokens.Get(t.SpectatorOf())
	if !ok {
		s.log.Warn("cant-spectate without host", "username", t.Username)
		s.stopSpectating(t)
		return
	}
	host.Enqueue(serverpackets.SpectatorSongMissing(t.UserID))
}

func (s *Server) handleJoinLobby(t *Token) {
	s.streams.Join(StreamLobby, t)
	for _, m := range s.matches.All() {
		t.Enqueue(serverpackets.NewMatch(m.Data(true)))
	}
	s.log.Info("joined lobby", "username", t.Username)
}

func (s *Server) handlePartLobby(t *Token) {
	s.streams.Leave(StreamLobby, t)
	if err := s.partChannel(t, "#lobby", true, false); err != nil {
		s.log.Debug("parting lobby channel", "username", t.Username, "error", err)
	}
	s.log.Info("left lobby", "username", t.Username)
}

func (s *Server) handleCreateMatch(t *Token, payload []byte) {
	settings, err := clientpackets.Settings(payload)
	if err != nil {
		s.log.Warn("bad create match packet", "username", t.Username, "error", err)
		return
	}
	name := strings.TrimSpace(settings.Name)
	if name == "" {
		t.Enqueue(serverpackets.MatchJoinFail)
		return
	}
	password := strings.TrimSpace(settings.Password)
	m := s.CreateMatch(name, password, settings.BeatmapID, settings.BeatmapName,
		settings.BeatmapMD5, settings.GameMode, t.UserID, false)
	s.JoinMatch(t, m.ID, password)
	m.SendUpdates()
}

func (s *Server) handleJoinMatch(t *Token, payload []byte) {
	join, err := clientpackets.MatchJoin(payload)
	if err != nil {
		s.log.Warn("bad join match packet", "username", t.Username, "error", err)
		return
	}
	s.JoinMatch(t, int32(join.MatchID), join.Password)
}

// currentMatch resolves the room the session sits in, for the in-match
// packet ops.
func (s *Server) currentMatch(t *Token) (*Match, bool) {
	matchID := t.MatchID()
	if matchID == -1 {
		return nil, false
	}
	return s.matches.Get(matchID)
}

func (s *Server) handleMatchChangeSlot(t *Token, payload []byte) {
	slot, err := clientpackets.SlotID(payload)
	if err != nil {
		s.log.Warn("bad slot packet", "username", t.Username, "error", err)
		return
	}
	m, ok := s.currentMatch(t)
	if !ok {
		return
	}
	m.ChangeSlot(t.UserID, int(slot))
}

func (s *Server) handleMatchSlotStatus(t *Token, status uint8) {
	m, ok := s.currentMatch(t)
	if !ok {
		return
	}
	m.SetSlotStatus(t.UserID, status)
}

func (s *Server) handleMatchLock(t *Token, payload []byte) {
	slot, err := clientpackets.SlotID(payload)
	if err != nil {
		s.log.Warn("bad lock packet", "username", t.Username, "error", err)
		return
	}
	m, ok := s.currentMatch(t)
	if !ok || m.HostUserID() != t.UserID || int(slot) >= constants.MatchMaxSlots {
		return
	}
	// The host's own slot can't be locked away from under them.
	if m.Slots()[slot].UserID == t.UserID {
		return
	}
	m.ToggleSlotLock(int(slot))
}

func (s *Server) handleMatchChangeSettings(t *Token, payload []byte) {
	settings, err := clientpackets.Settings(payload)
	if err != nil {
		s.log.Warn("bad settings packet", "username", t.Username, "error", err)
		return
	}
	m, ok := s.currentMatch(t)
	if !ok || m.HostUserID() != t.UserID {
		return
	}
	m.ChangeSettings(settings.Name, settings.BeatmapID, settings.BeatmapName, settings.BeatmapMD5,
		settings.GameMode, settings.ScoringType, settings.TeamType, settings.FreeMod)
}

func (s *Server) handleMatchStart(t *Token) {
	m, ok := s.currentMatch(t)
	if !ok {
		return
	}
	if !m.Start(false) {
		t.Enqueue(serverpackets.Notification("Couldn't start match. Make sure there are " +
			"enough players and teams are valid. The match has been unlocked."))
	}
}

func (s *Server) handleMatchFrames(t *Token, payload []byte) {
	m, ok := s.currentMatch(t)
	if !ok {
		return
	}
	m.RelayFrames(t.UserID, payload)
}

func (s *Server) handleMatchComplete(t *Token) {
	m, ok := s.currentMatch(t)
	if !ok {
		return
	}
	m.PlayerCompleted(t.UserID)
}

func (s *Server) handleMatchChangeMods(t *Token, payload []byte) {
	mods, err := clientpackets.Mods(payload)
	if err != nil {
		s.log.Warn("bad mods packet", "username", t.Username, "error", err)
		return
	}
	m, ok := s.currentMatch(t)
	if !ok {
		return
	}
	m.ChangeMods(t.UserID, mods)
}

func (s *Server) handleMatchLoadComplete(t *Token) {
	m, ok := s.currentMatch(t)
	if !ok {
		return
	}
	m.PlayerLoaded(t.UserID)
}

func (s *Server) handleMatchFailed(t *Token) {
	m, ok := s.currentMatch(t)
	if !ok {
		return
	}
	m.PlayerFailed(t.UserID)
}

func (s *Server) handleMatchSkip(t *Token) {
	m, ok := s.currentMatch(t)
	if !ok {
		return
	}
	m.PlayerSkip(t.UserID)
}

func (s *Server) handleChannelJoin(t *Token, payload []byte) {
	name, err := clientpackets.ChannelName(payload)
	if err != nil {
		s.log.Warn("bad channel join packet", "username", t.Username, "error", err)
		return
	}
	if err := s.joinChannel(t, name, false); err != nil {
		s.log.Debug("channel join refused", "username", t.Username, "channel", name, "error", err)
	}
}

func (s *Server) handleChannelPart(t *Token, payload []byte) {
	name, err := clientpackets.ChannelName(payload)
	if err != nil {
		s.log.Warn("bad channel part packet", "username", t.Username, "error", err)
		return
	}
	if err := s.partChannel(t, name, false, false); err != nil {
		s.log.Debug("channel part refused", "username", t.Username, "channel", name, "error", err)
	}
}

// handleBeatmapInfoRequest restricts the sender. The real client
// dropped this packet years ago; seeing it means a doctored client
// spoofing an allowed version.
func (s *Server) handleBeatmapInfoRequest(ctx context.Context, t *Token) {
	if err := s.users.RestrictWithLog(ctx, t.UserID, "Outdated client bypassing login gate",
		"The user has send a beatmap request packet, which has been removed since ~2020. "+
			"This means that they likely have a client with a version changer to bypass "+
			"the login gate. (bancho gate)", constants.BotUserID); err != nil {
		s.log.Error("restricting beatmap-info sender", "user_id", t.UserID, "error", err)
		return
	}
	s.log.Warn("restricted for beatmap info request", "user_id", t.UserID, "username", t.Username)
}

func (s *Server) handleMatchTransferHost(t *Token, payload []byte) {
	slot, err := clientpackets.SlotID(payload)
	if err != nil {
		s.log.Warn("bad transfer host packet", "username", t.Username, "error", err)
		return
	}
	m, ok := s.currentMatch(t)
	if !ok || m.HostUserID() != t.UserID || int(slot) >= constants.MatchMaxSlots {
		return
	}
	target := m.Slots()[slot].UserID
	if target == -1 {
		return
	}
	m.SetHost(target)
}

func (s *Server) handleFriendChange(ctx context.Context, t *Token, payload []byte, add bool) {
	friendID, err := clientpackets.UserID(payload)
	if err != nil {
		s.log.Warn("bad friend packet", "username", t.Username, "error", err)
		return
	}
	if add {
		if err := s.users.AddFriend(ctx, t.UserID, friendID); err != nil {
			s.log.Error("adding friend", "user_id", t.UserID, "friend_id", friendID, "error", err)
			return
		}
		s.log.Info("friend added", "username", t.Username, "friend_id", friendID)
		return
	}
	if err := s.users.RemoveFriend(ctx, t.UserID, friendID); err != nil {
		s.log.Error("removing friend", "user_id", t.UserID, "friend_id", friendID, "error", err)
		return
	}
	s.log.Info("friend removed", "username", t.Username, "friend_id", friendID)
}

func (s *Server) handleMatchChangeTeam(t *Token) {
	m, ok := s.currentMatch(t)
	if !ok {
		return
	}
	m.ChangeTeam(t.UserID, -1)
}

func (s *Server) handleSetAwayMessage(t *Token, payload []byte) {
	msg, err := clientpackets.AwayMessage(payload)
	if err != nil {
		s.log.Warn("bad away packet", "username", t.Username, "error", err)
		return
	}
	t.SetAwayMessage(msg)
	if msg == "" {
		t.Enqueue(serverpackets.Notification("Your away message has been reset"))
		return
	}
	t.Enqueue(serverpackets.Notification("Your away message is now: " + msg))
}

func (s *Server) handleUserStatsRequest(t *Token, payload []byte) {
	users, err := clientpackets.UserList(payload)
	if err != nil {
		s.log.Warn("bad stats request packet", "username", t.Username, "error", err)
		return
	}
	if len(users) > 32 {
		s.log.Warn("oversized stats request", "username", t.Username, "count", len(users))
		return
	}
	for _, userID := range users {
		if userID == t.UserID {
			continue
		}
		if other, ok := s.tokens.GetByUserID(userID); ok {
			t.Enqueue(statsPacket(other))
		}
	}
}

func (s *Server) handleUserPanelRequest(t *Token, payload []byte) {
	users, err := clientpackets.UserList(payload)
	if err != nil {
		s.log.Warn("bad panel request packet", "username", t.Username, "error", err)
		return
	}
	if len(users) > 256 {
		s.log.Warn("oversized panel request", "username", t.Username, "count", len(users))
		return
	}
	for _, userID := range users {
		if other, ok := s.tokens.GetByUserID(userID); ok {
			t.Enqueue(presencePacket(other))
		}
	}
}

func (s *Server) handleMatchInvite(t *Token, payload []byte) {
	target, err := clientpackets.UserID(payload)
	if err != nil {
		s.log.Warn("bad invite packet", "username", t.Username, "error", err)
		return
	}
	m, ok := s.currentMatch(t)
	if !ok {
		return
	}
	m.Invite(t.UserID, target)
}

func (s *Server) handleMatchChangePassword(t *Token, payload []byte) {
	settings, err := clientpackets.Settings(payload)
	if err != nil {
		s.log.Warn("bad password packet", "username", t.Username, "error", err)
		return
	}
	m, ok := s.currentMatch(t)
	if !ok || m.HostUserID() != t.UserID {
		return
	}
	m.ChangePassword(settings.Password)
}

// handleTournamentMatchInfo feeds a tourney client the room state; the
// password is censored like the lobby listing.
func (s *Server) handleTournamentMatchInfo(t *Token, payload []byte) {
	matchID, err := clientpackets.MatchID(payload)
	if err != nil {
		s.log.Warn("bad tourney info packet", "username", t.Username, "error", err)
		return
	}
	m, ok := s.matches.Get(int32(matchID))
	if !ok {
		return
	}
	t.Enqueue(serverpackets.UpdateMatch(m.Data(true)))
}

// handleTournamentMatchChannel moves a tourney client in or out of a
// room's chat without occupying a slot.
func (s *Server) handleTournamentMatchChannel(t *Token, payload []byte, join bool) {
	matchID, err := clientpackets.MatchID(payload)
	if err != nil {
		s.log.Warn("bad tourney channel packet", "username", t.Username, "error", err)
		return
	}
	if _, ok := s.matches.Get(int32(matchID)); !ok || !t.Tournament {
		return
	}
	if join {
		t.SetMatchID(int32(matchID))
		if err := s.joinChannel(t, matchChannel(int32(matchID)), true); err != nil {
			s.log.Debug("joining tourney channel", "match_id", matchID, "error", err)
		}
		return
	}
	if err := s.partChannel(t, matchChannel(int32(matchID)), false, true); err != nil {
		s.log.Debug("parting tourney channel", "match_id", matchID, "error", err)
	}
	t.SetMatchID(-1)
}
