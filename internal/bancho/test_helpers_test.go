package bancho

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/banchogo/internal/config"
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/crypto"
	"github.com/udisondev/banchogo/internal/db"
	"github.com/udisondev/banchogo/internal/geoloc"
	"github.com/udisondev/banchogo/internal/model"
	"github.com/udisondev/banchogo/internal/performance"
	"github.com/udisondev/banchogo/internal/protocol"
	"github.com/udisondev/banchogo/internal/webhook"
)

// Shared fixtures. The repositories are map-backed fakes so registry and
// pipeline tests run without PostgreSQL. Redis commands go to a closed
// port and fail fast; every caller tolerates that by design.

type fakeUserStore struct {
	mu         sync.Mutex
	users      map[int32]*model.User
	friends    map[int32][]int32
	notes      map[int32][]string
	banLogs    []string
	restricted []int32
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	f := &fakeUserStore{
		users:   make(map[int32]*model.User),
		friends: make(map[int32][]int32),
		notes:   make(map[int32][]string),
	}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserStore) put(u *model.User) {
	f.mu.Lock()
	f.users[u.ID] = u
	f.mu.Unlock()
}

func (f *fakeUserStore) GetBySafeName(_ context.Context, safeName string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.UsernameSafe == safeName {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, userID int32) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) GetIDBySafeName(_ context.Context, safeName string) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.UsernameSafe == safeName {
			return u.ID, nil
		}
	}
	return 0, nil
}

func (f *fakeUserStore) GetUsername(_ context.Context, userID int32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		return u.Username, nil
	}
	return "", nil
}

func (f *fakeUserStore) Privileges(_ context.Context, userID int32) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		return u.Privileges, nil
	}
	return 0, nil
}

func (f *fakeUserStore) SilenceEnd(_ context.Context, userID int32) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		return u.SilenceEnd, nil
	}
	return 0, nil
}

func (f *fakeUserStore) Silence(_ context.Context, userID int32, silenceEnd int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.SilenceEnd = silenceEnd
		u.SilenceReason = reason
	}
	return nil
}

func (f *fakeUserStore) UpdateLatestActivity(context.Context, int32) error { return nil }

func (f *fakeUserStore) UpdateOsuVersion(context.Context, int32, string) error { return nil }

func (f *fakeUserStore) SetCountry(_ context.Context, userID int32, country string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Country = country
	}
	return nil
}

func (f *fakeUserStore) SetPrivileges(_ context.Context, userID int32, privileges int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Privileges = privileges
	}
	return nil
}

func (f *fakeUserStore) Restrict(_ context.Context, userID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Privileges &^= 1 // UserPublic
	}
	f.restricted = append(f.restricted, userID)
	return nil
}

func (f *fakeUserStore) Ban(_ context.Context, userID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Privileges &^= 3 // UserPublic | UserNormal
	}
	return nil
}

func (f *fakeUserStore) Unban(_ context.Context, userID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Privileges |= 3
	}
	return nil
}

func (f *fakeUserStore) ResetPendingVerification(_ context.Context, userID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Privileges = u.Privileges&^(1<<20) | 3
	}
	return nil
}

func (f *fakeUserStore) AppendNotes(_ context.Context, userID int32, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[userID] = append(f.notes[userID], note)
	return nil
}

func (f *fakeUserStore) InsertBanLog(_ context.Context, _, _ int32, summary, _ string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banLogs = append(f.banLogs, summary)
	return nil
}

func (f *fakeUserStore) RestrictWithLog(ctx context.Context, userID int32, summary, detail string, fromID int32) error {
	if err := f.Restrict(ctx, userID); err != nil {
		return err
	}
	return f.InsertBanLog(ctx, fromID, userID, summary, detail, true)
}

func (f *fakeUserStore) Freeze(_ context.Context, userID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Frozen = true
	}
	return nil
}

func (f *fakeUserStore) Unfreeze(_ context.Context, userID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Frozen = false
	}
	return nil
}

func (f *fakeUserStore) AckUnfreezeNotice(_ context.Context, userID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.FirstLoginAfterFrozen = false
	}
	return nil
}

func (f *fakeUserStore) ChangeUsername(_ context.Context, userID int32, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Username = newName
		u.UsernameSafe = model.SafeUsername(newName)
	}
	return nil
}

func (f *fakeUserStore) GetFriends(_ context.Context, userID int32) ([]int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int32(nil), f.friends[userID]...), nil
}

func (f *fakeUserStore) AddFriend(_ context.Context, userID, friendID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.friends[userID] = append(f.friends[userID], friendID)
	return nil
}

func (f *fakeUserStore) RemoveFriend(_ context.Context, userID, friendID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.friends[userID][:0]
	for _, id := range f.friends[userID] {
		if id != friendID {
			kept = append(kept, id)
		}
	}
	f.friends[userID] = kept
	return nil
}

type fakeStatsStore struct {
	mu   sync.Mutex
	rows map[int32]*db.StatsRow // keyed by user id, same row for every mode
}

func (f *fakeStatsStore) Get(_ context.Context, userID int32, _ uint8, _ db.StatsTable) (*db.StatsRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[userID]; ok {
		return row, nil
	}
	return &db.StatsRow{RankedScore: 1000, Accuracy: 9810, Playcount: 42, TotalScore: 2000, PP: 123}, nil
}

type fakeScoreStore struct {
	mu   sync.Mutex
	last map[int32]*db.ScoreRow
}

func (f *fakeScoreStore) LastByUser(_ context.Context, userID int32, _ db.ScoreTable) (*db.ScoreRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last[userID], nil
}

type fakeSettingsStore struct {
	mu   sync.Mutex
	ints map[string]int32
	strs map[string]string
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{
		ints: map[string]int32{"bancho_maintenance": 0},
		strs: map[string]string{"menu_icon": "", "login_quotes": "Welcome to the test instance!"},
	}
}

func (f *fakeSettingsStore) GetInt(_ context.Context, name string) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ints[name], nil
}

func (f *fakeSettingsStore) GetString(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strs[name], nil
}

func (f *fakeSettingsStore) SetInt(_ context.Context, name string, value int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ints[name] = value
	return nil
}

func (f *fakeSettingsStore) SetString(_ context.Context, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strs[name] = value
	return nil
}

type fakeStatusStore struct {
	mu   sync.Mutex
	rows []db.UserStatusRow
}

func (f *fakeStatusStore) LoadAll(context.Context) ([]db.UserStatusRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]db.UserStatusRow(nil), f.rows...), nil
}

func (f *fakeStatusStore) Upsert(_ context.Context, userID int32, status string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].UserID == userID {
			f.rows[i].Status = status
			f.rows[i].Enabled = enabled
			return nil
		}
	}
	f.rows = append(f.rows, db.UserStatusRow{UserID: userID, Status: status, Enabled: enabled})
	return nil
}

type fakeChatLogStore struct {
	mu       sync.Mutex
	private  int
	channels int
}

func (f *fakeChatLogStore) LogPrivate(context.Context, int32, int32, string) error {
	f.mu.Lock()
	f.private++
	f.mu.Unlock()
	return nil
}

func (f *fakeChatLogStore) LogChannel(context.Context, int32, string, string) error {
	f.mu.Lock()
	f.channels++
	f.mu.Unlock()
	return nil
}

type fakeReportStore struct {
	mu      sync.Mutex
	reports []string
}

func (f *fakeReportStore) Insert(_ context.Context, _, _ int32, reason, _ string) error {
	f.mu.Lock()
	f.reports = append(f.reports, reason)
	f.mu.Unlock()
	return nil
}

type rankedStatusCall struct {
	wholeSet bool
	id       int32
	status   int32
	rankedBy int32
}

type fakeBeatmapStore struct {
	mu     sync.Mutex
	byID   map[int32]*db.BeatmapRow
	setMD5 map[int32][]string
	ranked []rankedStatusCall
}

func (f *fakeBeatmapStore) GetByID(_ context.Context, beatmapID int32) (*db.BeatmapRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[beatmapID], nil
}

func (f *fakeBeatmapStore) SetRankedStatus(_ context.Context, wholeSet bool, id, status, rankedBy int32) error {
	f.mu.Lock()
	f.ranked = append(f.ranked, rankedStatusCall{wholeSet: wholeSet, id: id, status: status, rankedBy: rankedBy})
	f.mu.Unlock()
	return nil
}

func (f *fakeBeatmapStore) MD5sForSet(_ context.Context, beatmapsetID int32) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setMD5[beatmapsetID], nil
}

type fakeHardwareStore struct {
	verified bool
}

func (f *fakeHardwareStore) HasVerified(context.Context, int32) (bool, error) {
	return f.verified, nil
}

func (f *fakeHardwareStore) Log(context.Context, int32, model.ClientHashes, bool) error { return nil }

func (f *fakeHardwareStore) ActivatedMatchOwner(context.Context, int32, model.ClientHashes) (int32, error) {
	return 0, nil
}

func (f *fakeHardwareStore) BannedMatches(context.Context, int32, model.ClientHashes) ([]int32, error) {
	return nil, nil
}

type fakeChannelStore struct {
	rows []db.ChannelRow
}

func (f *fakeChannelStore) LoadAll(context.Context) ([]db.ChannelRow, error) {
	return f.rows, nil
}

type fakeGeolocService struct {
	res geoloc.Result
	err error
}

func (f *fakeGeolocService) Lookup(context.Context, string) (geoloc.Result, error) {
	return f.res, f.err
}

type fakePerformanceService struct {
	res performance.Result
	err error
}

func (f *fakePerformanceService) Calculate(context.Context, int32, int32, float64) (performance.Result, error) {
	return f.res, f.err
}

type sentWebhook struct {
	url   string
	embed webhook.Embed
}

// fakeWebhookSender records sends on a buffered channel so tests can
// wait for the async delivery goroutine.
type fakeWebhookSender struct {
	sent chan sentWebhook
}

func newFakeWebhookSender() *fakeWebhookSender {
	return &fakeWebhookSender{sent: make(chan sentWebhook, 4)}
}

func (f *fakeWebhookSender) Send(_ context.Context, url string, e webhook.Embed) error {
	f.sent <- sentWebhook{url: url, embed: e}
	return nil
}

// newTestServer wires a server against the fakes, registers the default
// channels and brings the bot online, the same baseline LoadState gives
// the real process.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	tokens := NewTokenList()
	streams := NewStreamList(tokens)
	cfg := config.Default()
	cfg.CIKey = "ci-secret"

	s := &Server{
		cfg: &cfg,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		rdb: redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		}),

		tokens:   tokens,
		streams:  streams,
		channels: NewChannelList(streams),
		matches:  NewMatchList(streams, tokens),

		users: newFakeUserStore(&model.User{
			ID:           constants.BotUserID,
			Username:     constants.BotName,
			UsernameSafe: model.SafeUsername(constants.BotName),
			Privileges:   constants.GroupOwner,
		}),
		stats:       &fakeStatsStore{},
		scores:      &fakeScoreStore{},
		settings:    newFakeSettingsStore(),
		statuses:    &fakeStatusStore{},
		chatLogs:    &fakeChatLogStore{},
		reports:     &fakeReportStore{},
		beatmaps:    &fakeBeatmapStore{},
		hardware:    &fakeHardwareStore{verified: true},
		channelRepo: &fakeChannelStore{},

		passwords: crypto.NewPasswordVerifier(),
		geoloc:    &fakeGeolocService{res: geoloc.Result{Country: "IT", Latitude: 43.7, Longitude: 11.2}},
		pp:        &fakePerformanceService{},
		webhooks:  newFakeWebhookSender(),
		metrics:   NewMetrics(prometheus.NewRegistry()),

		startTime:    time.Now().Unix(),
		shutdownCh:   make(chan struct{}),
		userStatuses: make(map[int32]db.UserStatusRow),
		verified:     make(map[int32]bool),
	}

	s.streams.Add(StreamMain)
	s.streams.Add(StreamLobby)
	s.channels.Add("#osu", "Main channel", true, true, false, false)
	s.channels.Add("#announce", "Announcements", true, true, false, false)
	if err := s.ReloadSettings(context.Background()); err != nil {
		t.Fatalf("reloading settings: %v", err)
	}
	s.connectBot()
	return s
}

func (s *Server) fakeUsers(t *testing.T) *fakeUserStore {
	t.Helper()
	f, ok := s.users.(*fakeUserStore)
	require.True(t, ok, "server not built by newTestServer")
	return f
}

// addOnlineUser registers a user row and a live session for it, joined
// to main the way the login pipeline leaves it.
func addOnlineUser(t *testing.T, s *Server, id int32, name string, privileges int32) *Token {
	t.Helper()
	u := &model.User{
		ID:           id,
		Username:     name,
		UsernameSafe: model.SafeUsername(name),
		Privileges:   privileges,
		Country:      "IT",
	}
	s.fakeUsers(t).put(u)
	return s.CreateToken(context.Background(), u, "127.0.0.1", false, 0)
}

// joinTestChannel subscribes the session like a channel-join packet
// would, failing the test if the channel refuses.
func joinTestChannel(t *testing.T, s *Server, tok *Token, name string) {
	t.Helper()
	require.NoError(t, s.joinChannel(tok, name, false))
	tok.Dequeue()
}

// drainFrames parses a drained queue into packet frames.
func drainFrames(t *testing.T, data []byte) []protocol.Frame {
	t.Helper()
	r := protocol.NewReader(data)
	var frames []protocol.Frame
	for {
		frame, err := r.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		frames = append(frames, frame)
	}
	return frames
}

// packetIDs reduces a drained queue to the packet id sequence.
func packetIDs(t *testing.T, data []byte) []uint16 {
	t.Helper()
	frames := drainFrames(t, data)
	ids := make([]uint16, 0, len(frames))
	for _, f := range frames {
		ids = append(ids, f.ID)
	}
	return ids
}

// readMessagePayload decodes a chat packet payload.
func readMessagePayload(t *testing.T, payload []byte) (from, message, target string, senderID int32) {
	t.Helper()
	r := protocol.NewReader(payload)
	var err error
	from, err = r.ReadString()
	require.NoError(t, err)
	message, err = r.ReadString()
	require.NoError(t, err)
	target, err = r.ReadString()
	require.NoError(t, err)
	senderID, err = r.ReadInt32()
	require.NoError(t, err)
	return from, message, target, senderID
}
