package bancho

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/config"
	"github.com/udisondev/banchogo/internal/crypto"
	"github.com/udisondev/banchogo/internal/db"
	"github.com/udisondev/banchogo/internal/geoloc"
	"github.com/udisondev/banchogo/internal/model"
	"github.com/udisondev/banchogo/internal/performance"
	"github.com/udisondev/banchogo/internal/webhook"
)

// Version is reported to the redis peppy:version key and the info
// endpoint.
const Version = "1.0.0"

// restartGrace is how long clients get between the restart packet and
// the actual process shutdown.
const restartGrace = 20 * time.Second

// Server ties the registries, the database and redis together. Every
// sequence that crosses more than one registry (logins, logouts, channel
// and match teardown, silences) lives here so the ordering is in one
// place.
type Server struct {
	cfg *config.Config
	log *slog.Logger
	rdb *redis.Client

	tokens   *TokenList
	streams  *StreamList
	channels *ChannelList
	matches  *MatchList

	users       UserRepository
	stats       StatsRepository
	scores      ScoreRepository
	settings    SettingsRepository
	statuses    StatusRepository
	chatLogs    ChatLogRepository
	reports     ReportRepository
	beatmaps    BeatmapRepository
	hardware    HardwareRepository
	channelRepo ChannelRepository

	passwords *crypto.PasswordVerifier
	geoloc    GeolocResolver
	pp        PerformanceOracle
	webhooks  WebhookSender
	metrics   *Metrics

	startTime  int64
	restarting atomic.Bool

	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	confMu      sync.RWMutex
	maintenance bool
	menuIcon    string
	quotes      []string
	// botName is resolved from the database each time the bot session
	// is created.
	botName string

	statusMu     sync.RWMutex
	userStatuses map[int32]db.UserStatusRow

	verifiedMu sync.RWMutex
	verified   map[int32]bool
}

// NewServer wires a server from its external dependencies. Call
// LoadState before serving traffic.
func NewServer(cfg *config.Config, log *slog.Logger, rdb *redis.Client, stores Stores) *Server {
	tokens := NewTokenList()
	streams := NewStreamList(tokens)

	return &Server{
		cfg: cfg,
		log: log,
		rdb: rdb,

		tokens:   tokens,
		streams:  streams,
		channels: NewChannelList(streams),
		matches:  NewMatchList(streams, tokens),

		users:       stores.Users,
		stats:       stores.Stats,
		scores:      stores.Scores,
		settings:    stores.Settings,
		statuses:    stores.Statuses,
		chatLogs:    stores.ChatLogs,
		reports:     stores.Reports,
		beatmaps:    stores.Beatmaps,
		hardware:    stores.Hardware,
		channelRepo: stores.Channels,

		passwords: crypto.NewPasswordVerifier(),
		geoloc:    geoloc.NewClient(cfg.IPAPIURL),
		pp:        performance.NewClient(cfg.LetsAPIURL),
		webhooks:  webhook.NewClient(),
		metrics:   NewMetrics(prometheus.DefaultRegisterer),

		startTime:    time.Now().Unix(),
		shutdownCh:   make(chan struct{}),
		userStatuses: make(map[int32]db.UserStatusRow),
		verified:     make(map[int32]bool),
	}
}

// setVerified records the outcome of an account verification attempt.
func (s *Server) setVerified(userID int32, ok bool) {
	s.verifiedMu.Lock()
	s.verified[userID] = ok
	s.verifiedMu.Unlock()
}

// VerifiedStatus returns 1 or 0 for a recorded verification attempt and
// -1 when the user never went through one this uptime.
func (s *Server) VerifiedStatus(userID int32) int {
	s.verifiedMu.RLock()
	defer s.verifiedMu.RUnlock()
	ok, seen := s.verified[userID]
	if !seen {
		return -1
	}
	if ok {
		return 1
	}
	return 0
}

// LoadState brings the in-memory world up: base streams, configured
// channels, cached settings and statuses, the bot session, and the redis
// keys other services read.
func (s *Server) LoadState(ctx context.Context) error {
	s.streams.Add(StreamMain)
	s.streams.Add(StreamLobby)

	if err := s.channels.LoadFromRepo(ctx, s.channelRepo); err != nil {
		return err
	}
	if err := s.ReloadSettings(ctx); err != nil {
		return fmt.Errorf("loading bancho settings: %w", err)
	}
	if err := s.loadUserStatuses(ctx); err != nil {
		return fmt.Errorf("loading user statuses: %w", err)
	}

	s.connectBot()

	if err := s.rdb.Set(ctx, "peppy:version", Version, 0).Err(); err != nil {
		return fmt.Errorf("publishing version: %w", err)
	}
	s.publishOnlineCount(ctx)
	return nil
}

// Uptime returns the elapsed time since the process came up.
func (s *Server) Uptime() time.Duration {
	return time.Duration(time.Now().Unix()-s.startTime) * time.Second
}

// Restarting reports whether a restart has been scheduled. Logins are
// refused while it is set.
func (s *Server) Restarting() bool {
	return s.restarting.Load()
}

// ShutdownSignal is closed when a scheduled restart reaches its
// deadline. The process is expected to exit then.
func (s *Server) ShutdownSignal() <-chan struct{} {
	return s.shutdownCh
}

// ScheduleRestart warns every client, sends the restart packet after the
// delay and fires the shutdown signal once the reconnect grace passed.
// Only the first call does anything.
func (s *Server) ScheduleRestart(after time.Duration, message string) {
	if !s.restarting.CompareAndSwap(false, true) {
		return
	}
	s.log.Warn("restart scheduled", "after", after, "message", message)
	if message != "" {
		s.streams.Broadcast(StreamMain, serverpackets.Notification(message))
	}
	time.AfterFunc(after, func() {
		s.streams.Broadcast(StreamMain, serverpackets.ServerRestart(0))
	})
	time.AfterFunc(after+restartGrace, func() {
		s.shutdownOnce.Do(func() { close(s.shutdownCh) })
	})
}

// ReloadSettings refreshes the cached bancho_settings values.
func (s *Server) ReloadSettings(ctx context.Context) error {
	maintenance, err := s.settings.GetInt(ctx, "bancho_maintenance")
	if err != nil {
		return err
	}
	menuIcon, err := s.settings.GetString(ctx, "menu_icon")
	if err != nil {
		return err
	}
	quotes, err := s.settings.GetString(ctx, "login_quotes")
	if err != nil {
		return err
	}

	s.confMu.Lock()
	s.maintenance = maintenance != 0
	s.menuIcon = menuIcon
	s.quotes = splitLines(quotes)
	s.confMu.Unlock()
	return nil
}

// Maintenance reports whether only staff may log in.
func (s *Server) Maintenance() bool {
	s.confMu.RLock()
	defer s.confMu.RUnlock()
	return s.maintenance
}

// SetMaintenance persists and caches the maintenance flag.
func (s *Server) SetMaintenance(ctx context.Context, on bool) error {
	var value int32
	if on {
		value = 1
	}
	if err := s.settings.SetInt(ctx, "bancho_maintenance", value); err != nil {
		return err
	}
	s.confMu.Lock()
	s.maintenance = on
	s.confMu.Unlock()
	return nil
}

// MenuIcon returns the main menu icon spec, empty when unset.
func (s *Server) MenuIcon() string {
	s.confMu.RLock()
	defer s.confMu.RUnlock()
	return s.menuIcon
}

// SetMenuIcon persists and caches the main menu icon spec.
func (s *Server) SetMenuIcon(ctx context.Context, icon string) error {
	if err := s.settings.SetString(ctx, "menu_icon", icon); err != nil {
		return err
	}
	s.confMu.Lock()
	s.menuIcon = icon
	s.confMu.Unlock()
	return nil
}

// RandomQuote picks one of the configured login quotes.
func (s *Server) RandomQuote() string {
	s.confMu.RLock()
	defer s.confMu.RUnlock()
	if len(s.quotes) == 0 {
		return "Welcome to RealistikOsu!"
	}
	return s.quotes[rand.Intn(len(s.quotes))]
}

// loadUserStatuses fills the custom status cache from the database.
func (s *Server) loadUserStatuses(ctx context.Context) error {
	rows, err := s.statuses.LoadAll(ctx)
	if err != nil {
		return err
	}
	s.statusMu.Lock()
	s.userStatuses = make(map[int32]db.UserStatusRow, len(rows))
	for _, row := range rows {
		s.userStatuses[row.UserID] = row
	}
	s.statusMu.Unlock()
	return nil
}

// UserStatus returns the custom status row of a user, if one exists.
func (s *Server) UserStatus(userID int32) (db.UserStatusRow, bool) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	row, ok := s.userStatuses[userID]
	return row, ok
}

// SetUserStatus persists a custom status and updates the cache.
func (s *Server) SetUserStatus(ctx context.Context, userID int32, status string, enabled bool) error {
	if err := s.statuses.Upsert(ctx, userID, status, enabled); err != nil {
		return err
	}
	s.statusMu.Lock()
	s.userStatuses[userID] = db.UserStatusRow{UserID: userID, Status: status, Enabled: enabled}
	s.statusMu.Unlock()
	return nil
}

// CreateToken registers a fresh session: token list, main stream, the
// per-user redis session set and the online counter.
func (s *Server) CreateToken(ctx context.Context, user *model.User, ip string, tournament bool, timeOffset int32) *Token {
	t := NewToken(user, ip, tournament, timeOffset)
	s.tokens.Add(t)
	s.streams.Join(StreamMain, t)
	if ip != "" {
		if err := s.rdb.SAdd(ctx, sessionsKey(t.UserID), ip).Err(); err != nil {
			s.log.Error("recording session ip", "user_id", t.UserID, "error", err)
		}
	}
	s.publishOnlineCount(ctx)
	return t
}

// DeleteToken drops a session from the registry and redis. Stream and
// channel membership must already be gone; Logout owns that.
func (s *Server) DeleteToken(ctx context.Context, t *Token) {
	s.tokens.Delete(t.ID)
	if t.IP != "" {
		if err := s.rdb.SRem(ctx, sessionsKey(t.UserID), t.IP).Err(); err != nil {
			s.log.Error("dropping session ip", "user_id", t.UserID, "error", err)
		}
	}
	s.publishOnlineCount(ctx)
}

func sessionsKey(userID int32) string {
	return fmt.Sprintf("peppy:sessions:%d", userID)
}

// publishOnlineCount mirrors the current session count into redis for
// the website.
func (s *Server) publishOnlineCount(ctx context.Context) {
	n := s.tokens.Len()
	s.metrics.OnlineUsers.Set(float64(n))
	if err := s.rdb.Set(ctx, "ripple:online_users", n, 0).Err(); err != nil {
		s.log.Error("publishing online count", "error", err)
	}
}

// RefreshStats reloads the session's cached stats for its current mode,
// picking the vanilla, relax or autopilot table from the action mods and
// the matching redis leaderboard for the rank.
func (s *Server) RefreshStats(ctx context.Context, t *Token) error {
	table := db.StatsVanilla
	board := "leaderboard"
	switch {
	case t.Relaxing():
		table = db.StatsRelax
		board = "relaxboard"
	case t.Autopiloting():
		table = db.StatsAutopilot
		board = "autoboard"
	}

	mode := t.Action().GameMode
	row, err := s.stats.Get(ctx, t.UserID, mode, table)
	if err != nil {
		return fmt.Errorf("loading stats for user %d: %w", t.UserID, err)
	}
	if row == nil {
		return fmt.Errorf("no %s row for user %d", table, t.UserID)
	}

	t.SetStats(model.Stats{
		RankedScore: uint64(row.RankedScore),
		Accuracy:    float32(row.Accuracy) / 100,
		Playcount:   uint32(row.Playcount),
		TotalScore:  uint64(row.TotalScore),
		GameRank:    s.gameRank(ctx, t.UserID, mode, board),
		PP:          uint32(row.PP),
	})
	return nil
}

// gameRank reads the 1-based position on the mode leaderboard, 0 when
// the user is not ranked.
func (s *Server) gameRank(ctx context.Context, userID int32, mode uint8, board string) uint32 {
	key := fmt.Sprintf("ripple:%s:%s", board, modeString(mode))
	idx, err := s.rdb.ZRevRank(ctx, key, strconv.Itoa(int(userID))).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Error("reading leaderboard rank", "user_id", userID, "error", err)
		}
		return 0
	}
	return uint32(idx) + 1
}

func modeString(mode uint8) string {
	switch mode {
	case 1:
		return "taiko"
	case 2:
		return "ctb"
	case 3:
		return "mania"
	default:
		return "std"
	}
}

// Logout tears a session down completely: spectating, match, channels,
// streams, the logout broadcast, the registry entry, and the pending
// username change handoff.
func (s *Server) Logout(ctx context.Context, t *Token) {
	s.stopSpectating(t)
	s.LeaveMatch(t)
	for _, name := range t.ChannelNames() {
		if err := s.partChannel(t, name, false, true); err != nil {
			s.log.Debug("parting channel on logout", "channel", name, "error", err)
		}
	}
	for _, name := range t.StreamNames() {
		s.streams.Leave(name, t)
	}
	s.streams.Broadcast(StreamMain, serverpackets.LogoutNotify(t.UserID))
	s.DeleteToken(ctx, t)

	newName, err := s.rdb.Get(ctx, fmt.Sprintf("ripple:change_username_pending:%d", t.UserID)).Result()
	if err == nil {
		payload, _ := json.Marshal(map[string]any{"userID": t.UserID, "newUsername": newName})
		if err := s.rdb.Publish(ctx, "peppy:change_username", payload).Err(); err != nil {
			s.log.Error("requesting username change", "user_id", t.UserID, "error", err)
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Error("checking pending username change", "user_id", t.UserID, "error", err)
	}

	if err := s.users.UpdateLatestActivity(ctx, t.UserID); err != nil {
		s.log.Error("updating latest activity", "user_id", t.UserID, "error", err)
	}
	s.log.Info("user logged out", "user_id", t.UserID, "username", t.Username)
}

// Kick notifies the client it was thrown out, then logs it out.
func (s *Server) Kick(ctx context.Context, t *Token, message, reason string) {
	s.log.Warn("kicking user", "user_id", t.UserID, "username", t.Username, "reason", reason)
	t.Enqueue(serverpackets.Notification(message))
	t.Enqueue(serverpackets.LoginFailed)
	s.Logout(ctx, t)
}

// Silence mutes a user for the given number of seconds: database row,
// session state, the countdown packet for the target and the silence
// notice for everyone else.
func (s *Server) Silence(ctx context.Context, t *Token, seconds int64, reason string) {
	end := time.Now().Unix() + seconds
	if err := s.users.Silence(ctx, t.UserID, end, reason); err != nil {
		s.log.Error("persisting silence", "user_id", t.UserID, "error", err)
	}
	t.SetSilenceEnd(end)
	t.Enqueue(serverpackets.SilenceEndNotify(uint32(seconds)))
	s.streams.Broadcast(StreamMain, serverpackets.SilencedNotify(t.UserID))
}

// RemoveChannel kicks every subscriber out, drops the paired stream and
// deletes the registry entry.
func (s *Server) RemoveChannel(name string) {
	if !s.channels.Exists(name) {
		return
	}
	stream := chatStream(name)
	for _, id := range s.streams.Clients(stream) {
		if t, ok := s.tokens.Get(id); ok {
			if err := s.partChannel(t, name, true, true); err != nil {
				s.log.Debug("kicking from removed channel", "channel", name, "error", err)
			}
		}
	}
	s.streams.Dispose(stream)
	s.streams.Remove(stream)
	s.channels.delete(name)
}

// CreateMatch makes a room with its streams and hidden chat channel and
// announces it to the lobby.
func (s *Server) CreateMatch(name, password string, beatmapID int32, beatmapName, beatmapMD5 string,
	gameMode uint8, hostUserID int32, tourney bool) *Match {

	m := s.matches.Create(name, password, beatmapID, beatmapName, beatmapMD5, gameMode, hostUserID, tourney)
	s.channels.AddHiddenChannel(matchChannel(m.ID))
	s.streams.Broadcast(StreamLobby, serverpackets.NewMatch(m.Data(true)))
	s.metrics.ActiveMatches.Set(float64(s.matches.Len()))
	s.log.Info("match created", "match_id", m.ID, "name", name, "host_user_id", hostUserID)
	return m
}

// DisposeMatch empties a room and removes every trace of it: slots,
// chat channel, both streams, the lobby announcement and the registry
// entry.
func (s *Server) DisposeMatch(matchID int32) {
	m, ok := s.matches.Get(matchID)
	if !ok {
		return
	}
	for _, slot := range m.Slots() {
		if slot.TokenID == "" {
			continue
		}
		if t, ok := s.tokens.Get(slot.TokenID); ok {
			m.UserLeft(t)
		}
	}

	s.RemoveChannel(matchChannel(matchID))
	s.streams.Broadcast(matchStream(matchID), serverpackets.DisposeMatch(matchID))
	s.streams.Dispose(matchStream(matchID))
	s.streams.Dispose(matchPlayingStream(matchID))
	s.streams.Remove(matchStream(matchID))
	s.streams.Remove(matchPlayingStream(matchID))
	s.streams.Broadcast(StreamLobby, serverpackets.DisposeMatch(matchID))
	s.matches.Remove(matchID)
	s.metrics.ActiveMatches.Set(float64(s.matches.Len()))
	s.log.Info("match disposed", "match_id", matchID)
}

// JoinMatch validates the room password and enters the session into the
// room. A failure enqueues the join-fail packet.
func (s *Server) JoinMatch(t *Token, matchID int32, password string) bool {
	m, ok := s.matches.Get(matchID)
	if !ok {
		t.Enqueue(serverpackets.MatchJoinFail)
		return false
	}
	if m.Password() != "" && m.Password() != password {
		t.Enqueue(serverpackets.MatchJoinFail)
		return false
	}
	return s.enterMatch(t, m)
}

// enterMatch is the unchecked join path, shared with the bot's room
// invite flow. The caller must have validated the password.
func (s *Server) enterMatch(t *Token, m *Match) bool {
	s.stopSpectating(t)
	if t.MatchID() > -1 {
		s.LeaveMatch(t)
	}
	if !m.UserJoin(t) {
		t.Enqueue(serverpackets.MatchJoinFail)
		return false
	}
	t.SetMatchID(m.ID)
	s.streams.Join(matchStream(m.ID), t)
	if err := s.joinChannel(t, matchChannel(m.ID), true); err != nil {
		s.log.Debug("joining match channel", "match_id", m.ID, "error", err)
	}
	t.Enqueue(serverpackets.MatchJoinSuccess(m.Data(false)))
	if m.Tourney {
		t.Enqueue(serverpackets.Notification("You are now in a tournament match."))
	}
	return true
}

// LeaveMatch removes the session from its room, disposing the room when
// it was the last player.
func (s *Server) LeaveMatch(t *Token) {
	matchID := t.MatchID()
	if matchID == -1 {
		return
	}
	if err := s.partChannel(t, matchChannel(matchID), true, true); err != nil {
		s.log.Debug("parting match channel", "match_id", matchID, "error", err)
	}
	s.streams.Leave(matchStream(matchID), t)
	s.streams.Leave(matchPlayingStream(matchID), t)
	t.SetMatchID(-1)

	m, ok := s.matches.Get(matchID)
	if !ok {
		return
	}
	if empty := m.UserLeft(t); empty {
		s.DisposeMatch(matchID)
	}
}

// splitLines breaks a settings blob into its non-empty lines.
func splitLines(blob string) []string {
	var lines []string
	for _, line := range strings.Split(blob, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
