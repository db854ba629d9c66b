package bancho

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/model"
)

// Token is one live client session. The immutable identity fields are set
// at creation; everything else is guarded by mu, except the outbound
// queue which has its own lock so enqueues never contend with state
// updates. processing serializes packet handling per session.
type Token struct {
	ID         string // opaque session id, echoed by the client each request
	UserID     int32
	Username   string
	SafeName   string
	IP         string
	IRC        bool
	Tournament bool
	LoginTime  int64

	processing sync.Mutex
	spectMu    sync.Mutex // serializes start/stop spectating per session

	mu             sync.RWMutex
	privileges     int32
	restricted     bool
	admin          bool
	pingTime       int64
	silenceEnd     int64
	streams        map[string]struct{}
	joinedChannels []string
	spectatorOf    string // token id of the host, "" if not spectating
	spectatingUser int32  // user id of the host, cached for channel naming
	spectators     []string
	matchID        int32 // -1 when not in a match
	action         model.Action
	stats          model.Stats
	relax          bool
	autopilot      bool
	location       model.Location
	countryID      uint8
	timeOffset     int32
	awayMessage    string
	sentAway       []int32
	messageLines   []string
	spamRate       int32
	tillerinoMap   int32
	tillerinoMods  int32
	tillerinoAcc   float64

	queueMu sync.Mutex
	queue   []byte
}

// NewToken creates a session for the given user with a fresh id.
func NewToken(user *model.User, ip string, tournament bool, timeOffset int32) *Token {
	now := time.Now().Unix()
	return &Token{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Username:   user.Username,
		SafeName:   user.UsernameSafe,
		IP:         ip,
		Tournament: tournament,
		LoginTime:  now,

		privileges:   user.Privileges,
		restricted:   isRestricted(user.Privileges),
		admin:        isAdmin(user.Privileges),
		pingTime:     now,
		silenceEnd:   user.SilenceEnd,
		streams:      make(map[string]struct{}),
		matchID:      -1,
		timeOffset:   timeOffset,
		tillerinoAcc: -1,
	}
}

// isRestricted reports whether the privilege bits hide the user from the
// public while still letting them log in.
func isRestricted(privileges int32) bool {
	return privileges&constants.UserNormal != 0 && privileges&constants.UserPublic == 0
}

// isAdmin reports whether the privilege word equals one of the full-staff
// group values. Group membership is exact, not bitwise: partial staff
// bits do not grant admin.
func isAdmin(privileges int32) bool {
	return slices.Contains(constants.AdminGroups[:], privileges)
}

// Enqueue appends outbound bytes for the next flush. The bot session
// never buffers.
func (t *Token) Enqueue(data []byte) {
	if t.UserID == constants.BotUserID {
		return
	}
	t.queueMu.Lock()
	t.queue = append(t.queue, data...)
	t.queueMu.Unlock()
}

// Dequeue atomically drains the outbound queue.
func (t *Token) Dequeue() []byte {
	t.queueMu.Lock()
	defer t.queueMu.Unlock()
	if len(t.queue) == 0 {
		return nil
	}
	out := t.queue
	t.queue = nil
	return out
}

// QueueLen returns the buffered outbound byte count.
func (t *Token) QueueLen() int {
	t.queueMu.Lock()
	defer t.queueMu.Unlock()
	return len(t.queue)
}

// UpdatePingTime marks the session alive now.
func (t *Token) UpdatePingTime() {
	t.mu.Lock()
	t.pingTime = time.Now().Unix()
	t.mu.Unlock()
}

// PingTime returns the last-seen unix time.
func (t *Token) PingTime() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pingTime
}

// Privileges returns the current privilege bits.
func (t *Token) Privileges() int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.privileges
}

// SetPrivileges replaces the privilege bits and rederives the restricted
// and admin flags.
func (t *Token) SetPrivileges(privileges int32) {
	t.mu.Lock()
	t.privileges = privileges
	t.restricted = isRestricted(privileges)
	t.admin = isAdmin(privileges)
	t.mu.Unlock()
}

// Restricted reports whether the session is hidden from the public.
func (t *Token) Restricted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.restricted
}

// Admin reports whether the session belongs to full staff.
func (t *Token) Admin() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.admin
}

// SilenceEnd returns the unix time the silence expires, 0 if none.
func (t *Token) SilenceEnd() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.silenceEnd
}

// SetSilenceEnd stores the silence deadline.
func (t *Token) SetSilenceEnd(end int64) {
	t.mu.Lock()
	t.silenceEnd = end
	t.mu.Unlock()
}

// SilenceSecondsLeft returns remaining silence seconds, 0 when expired.
func (t *Token) SilenceSecondsLeft() int64 {
	left := t.SilenceEnd() - time.Now().Unix()
	if left < 0 {
		return 0
	}
	return left
}

// Silenced reports whether the session is currently silenced.
func (t *Token) Silenced() bool {
	return t.SilenceSecondsLeft() > 0
}

// addStream and removeStream keep the joined-streams set in sync with
// the stream registry; only StreamList calls them.
func (t *Token) addStream(name string) {
	t.mu.Lock()
	t.streams[name] = struct{}{}
	t.mu.Unlock()
}

func (t *Token) removeStream(name string) {
	t.mu.Lock()
	delete(t.streams, name)
	t.mu.Unlock()
}

// InStream reports whether the session is subscribed to the named stream.
func (t *Token) InStream(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.streams[name]
	return ok
}

// StreamNames returns a snapshot of the joined stream names.
func (t *Token) StreamNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.streams))
	for name := range t.streams {
		names = append(names, name)
	}
	return names
}

// addChannel appends a channel to the joined list.
func (t *Token) addChannel(name string) {
	t.mu.Lock()
	if !slices.Contains(t.joinedChannels, name) {
		t.joinedChannels = append(t.joinedChannels, name)
	}
	t.mu.Unlock()
}

// removeChannel drops a channel from the joined list.
func (t *Token) removeChannel(name string) {
	t.mu.Lock()
	t.joinedChannels = slices.DeleteFunc(t.joinedChannels, func(c string) bool { return c == name })
	t.mu.Unlock()
}

// InChannel reports whether the session has joined the named channel.
func (t *Token) InChannel(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Contains(t.joinedChannels, name)
}

// ChannelNames returns a snapshot of the joined channels, join-ordered.
func (t *Token) ChannelNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.joinedChannels)
}

// SpectatorOf returns the host token id, "" when not spectating.
func (t *Token) SpectatorOf() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.spectatorOf
}

// SpectatingUser returns the host user id cached at spectate start.
func (t *Token) SpectatingUser() int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.spectatingUser
}

// setSpectating records the host this session watches, or clears it
// with an empty token id.
func (t *Token) setSpectating(hostTokenID string, hostUserID int32) {
	t.mu.Lock()
	t.spectatorOf = hostTokenID
	t.spectatingUser = hostUserID
	t.mu.Unlock()
}

// addSpectator appends a watcher to this host session.
func (t *Token) addSpectator(tokenID string) {
	t.mu.Lock()
	t.spectators = append(t.spectators, tokenID)
	t.mu.Unlock()
}

// removeSpectator drops a watcher from this host session.
func (t *Token) removeSpectator(tokenID string) {
	t.mu.Lock()
	t.spectators = slices.DeleteFunc(t.spectators, func(id string) bool { return id == tokenID })
	t.mu.Unlock()
}

// Spectators returns a snapshot of spectator token ids, join-ordered.
func (t *Token) Spectators() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.spectators)
}

// MatchID returns the joined match id, -1 when not in a match.
func (t *Token) MatchID() int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.matchID
}

// SetMatchID stores the joined match id.
func (t *Token) SetMatchID(id int32) {
	t.mu.Lock()
	t.matchID = id
	t.mu.Unlock()
}

// Action returns the current action snapshot.
func (t *Token) Action() model.Action {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.action
}

// SetAction stores the action and rederives the relax/autopilot flags
// from its mods. An AFK update keeps the previous flags: the client
// zeroes its mod word there and the stats tables must not flip.
func (t *Token) SetAction(a model.Action) {
	t.mu.Lock()
	t.action = a
	if a.ID != constants.ActionAFK {
		t.relax = a.Mods&constants.ModRelax != 0
		t.autopilot = a.Mods&constants.ModAutopilot != 0
	}
	t.mu.Unlock()
}

// Relaxing reports whether the current action mods include relax.
func (t *Token) Relaxing() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.relax
}

// Autopiloting reports whether the current action mods include autopilot.
func (t *Token) Autopiloting() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.autopilot
}

// Stats returns the cached stats snapshot.
func (t *Token) Stats() model.Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// SetStats replaces the cached stats snapshot.
func (t *Token) SetStats(s model.Stats) {
	t.mu.Lock()
	t.stats = s
	t.mu.Unlock()
}

// Location returns the geolocated position.
func (t *Token) Location() model.Location {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.location
}

// SetLocation stores the geolocated position.
func (t *Token) SetLocation(loc model.Location) {
	t.mu.Lock()
	t.location = loc
	t.mu.Unlock()
}

// CountryID returns the numeric country code used in presence packets.
func (t *Token) CountryID() uint8 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.countryID
}

// SetCountryID stores the numeric country code.
func (t *Token) SetCountryID(id uint8) {
	t.mu.Lock()
	t.countryID = id
	t.mu.Unlock()
}

// Timezone returns the byte the presence packet carries: 24 plus the
// client's hour offset.
func (t *Token) Timezone() uint8 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint8(24 + t.timeOffset)
}

// AwayMessage returns the away auto-reply text, "" when not away.
func (t *Token) AwayMessage() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.awayMessage
}

// SetAwayMessage stores the away text and resets the already-notified
// set, so every sender gets one auto-reply per away period.
func (t *Token) SetAwayMessage(msg string) {
	t.mu.Lock()
	t.awayMessage = msg
	t.sentAway = nil
	t.mu.Unlock()
}

// AwayConfirm reports whether the given sender should receive the away
// auto-reply, and marks them notified.
func (t *Token) AwayConfirm(fromUserID int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.awayMessage == "" || slices.Contains(t.sentAway, fromUserID) {
		return false
	}
	t.sentAway = append(t.sentAway, fromUserID)
	return true
}

// AppendMessageLine records a sent chat line in the 10-entry ring used
// for report chat logs. Each line keeps at most 50 message characters.
func (t *Token) AppendMessageLine(channel, message string) {
	if len(message) > 50 {
		message = message[:50]
	}
	line := time.Now().Format("15:04") + " - " + t.Username + "@" + channel + ": " + message
	t.mu.Lock()
	t.messageLines = append(t.messageLines, line)
	if len(t.messageLines) > 10 {
		t.messageLines = t.messageLines[1:]
	}
	t.mu.Unlock()
}

// MessagesBuffer returns the recorded chat lines joined by newlines.
func (t *Token) MessagesBuffer() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return strings.Join(t.messageLines, "\n")
}

// IncSpamRate bumps the spam counter and returns the new value.
func (t *Token) IncSpamRate() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spamRate++
	return t.spamRate
}

// ResetSpamRate zeroes the spam counter.
func (t *Token) ResetSpamRate() {
	t.mu.Lock()
	t.spamRate = 0
	t.mu.Unlock()
}

// SetTillerino stores the np context: beatmap, mods and accuracy.
func (t *Token) SetTillerino(beatmapID, mods int32, acc float64) {
	t.mu.Lock()
	t.tillerinoMap = beatmapID
	t.tillerinoMods = mods
	t.tillerinoAcc = acc
	t.mu.Unlock()
}

// Tillerino returns the np context. Accuracy is -1 when unset.
func (t *Token) Tillerino() (beatmapID, mods int32, acc float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tillerinoMap, t.tillerinoMods, t.tillerinoAcc
}

// lockPair acquires both session locks in a stable order so two
// interacting sessions never deadlock: lower user id first, token id as
// the tiebreaker.
func lockPair(a, b *Token) (unlock func()) {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	first, second := a, b
	if b.UserID < a.UserID || (b.UserID == a.UserID && b.ID < a.ID) {
		first, second = b, a
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}
