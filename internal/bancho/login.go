package bancho

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/model"
)

// Canned login notices.
const (
	restrictedNotice = "Your account has been restricted! Please contact the RealistikOsu " +
		"staff through our Discord server for more info!"
	maintenanceNotice      = "Our bancho server is in maintenance mode. Please try to login again later."
	maintenanceStaffNotice = "Bancho is in maintenance mode. Only mods/admins have full access to the server.\n" +
		"Type !system maintenance off in chat to turn off maintenance mode."
	restartingNotice  = "Bancho is restarting. Try again in a few minutes."
	serverErrorNotice = "The server has experienced an error while logging you in! " +
		"Please notify the developers for help."
	frozenNotice = "You have been frozen! The RealistikOsu staff team has found you suspicious " +
		"and would like to request a liveplay. Visit ussr.pl for more info."
	frozenExpiredNotice = "Your liveplay window has expired without a submission, so your account " +
		"has been restricted. Please contact the staff for more information."
	unfrozenNotice = "Your account has been unfrozen! You have proven your legitemacy. " +
		"Thank you and have fun playing on RealistikOsu!"
	donorExpiryNotice = "Your supporter status expires in %s! Following this, you will lose your " +
		"supporter privileges (such as the further profile customisation options, name changes or " +
		"profile wipes) and will not be able to access supporter features. If you wish to keep " +
		"supporting Fuquila and you don't want to lose your donor privileges, you can donate again " +
		"by clicking on 'Donate' on our website."
)

// cheatBuilds are version strings shipped by known cheat clients. A login
// carrying one gets the account restricted on sight.
var cheatBuilds = []string{
	"b20190226.2",
}

func isCheatBuild(version string) bool {
	return slices.Contains(cheatBuilds, version)
}

// loginRequest is the parsed plaintext body of an unauthenticated POST:
// three newline-separated lines, the last being
// "version|utcOffset|displayCity|clientHashes|pmSetting".
type loginRequest struct {
	username    string
	passwordMD5 string
	osuVersion  string
	timeOffset  int32
	hashes      model.ClientHashes
}

func parseLoginRequest(body []byte) (loginRequest, error) {
	lines := strings.Split(string(body), "\n")
	if len(lines) < 3 {
		return loginRequest{}, ErrLoginFailed
	}
	fields := strings.Split(lines[2], "|")
	if len(fields) < 4 {
		return loginRequest{}, ErrForceUpdate
	}
	offset, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return loginRequest{}, ErrLoginFailed
	}
	hashes := strings.Split(fields[3], ":")
	if len(hashes) < 4 {
		return loginRequest{}, ErrForceUpdate
	}

	req := loginRequest{
		username:    lines[0],
		passwordMD5: lines[1],
		osuVersion:  fields[0],
		timeOffset:  int32(offset),
		hashes: model.ClientHashes{
			OsuMD5:    hashes[0],
			MACList:   hashes[1],
			MACMD5:    hashes[2],
			UniqueMD5: hashes[3],
		},
	}
	if len(hashes) > 4 {
		req.hashes.DiskMD5 = hashes[4]
	}
	return req, nil
}

// loginReject aborts the pipeline with a fixed client-visible reply.
// note, when set, is shown as a notification next to the reply packet.
type loginReject struct {
	cause error
	note  string
}

func (e *loginReject) Error() string { return e.cause.Error() }
func (e *loginReject) Unwrap() error { return e.cause }

func reject(cause error, note string) error {
	return &loginReject{cause: cause, note: note}
}

// LoginResult is what the HTTP front writes back: the session id for the
// cho-token header and the packet stream body.
type LoginResult struct {
	TokenID string
	Body    []byte
}

// Login authenticates the POSTed credentials, provisions a session and
// returns its drained welcome queue. On failure the body carries the
// matching refusal packets instead.
func (s *Server) Login(ctx context.Context, body []byte, ip string) LoginResult {
	started := time.Now()
	t, err := s.login(ctx, body, ip, started)
	if err != nil {
		result := LoginResult{Body: s.loginFailureBody(t, err)}
		if t != nil {
			result.TokenID = t.ID
		}
		return result
	}
	s.metrics.LoginsTotal.Inc()
	return LoginResult{TokenID: t.ID, Body: t.Dequeue()}
}

// loginFailureBody maps a pipeline error to its refusal packets. Unknown
// errors degrade to the generic server-error reply.
func (s *Server) loginFailureBody(t *Token, err error) []byte {
	var rej *loginReject
	var note []byte
	if errors.As(err, &rej) && rej.note != "" {
		note = serverpackets.Notification(rej.note)
	}

	switch {
	case errors.Is(err, ErrLoginFailed):
		return joinPackets(note, serverpackets.LoginFailed)
	case errors.Is(err, ErrLoginBanned):
		return joinPackets(note, serverpackets.LoginBanned)
	case errors.Is(err, ErrLoginLocked):
		return joinPackets(note, serverpackets.LoginLocked)
	case errors.Is(err, ErrLoginCheatClient):
		return joinPackets(note, serverpackets.LoginCheats)
	case errors.Is(err, ErrForceUpdate):
		return joinPackets(serverpackets.ForceUpdate, note)
	case errors.Is(err, ErrNeed2FA):
		return joinPackets(note, serverpackets.VerificationRequired)
	case errors.Is(err, ErrRestarting):
		return joinPackets(serverpackets.Notification(restartingNotice), serverpackets.LoginFailed)
	case errors.Is(err, ErrMaintenance):
		var queued []byte
		if t != nil {
			queued = t.Dequeue()
		}
		return joinPackets(queued, serverpackets.Notification(maintenanceNotice), serverpackets.LoginFailed)
	default:
		s.log.Error("login pipeline failed", "error", err)
		return joinPackets(serverpackets.LoginError, serverpackets.Notification(serverErrorNotice))
	}
}

func joinPackets(packets ...[]byte) []byte {
	var out []byte
	for _, p := range packets {
		out = append(out, p...)
	}
	return out
}

// login runs the pipeline. A non-nil token may accompany an error on the
// paths that abort after session creation.
func (s *Server) login(ctx context.Context, body []byte, ip string, started time.Time) (*Token, error) {
	req, err := parseLoginRequest(body)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetBySafeName(ctx, model.SafeUsername(req.username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.log.Warn("login refused", "username", req.username, "reason", "unknown user")
		return nil, reject(ErrLoginFailed, "This user does not exist!")
	}

	ok, err := s.passwords.Verify(user.ID, req.passwordMD5, user.PasswordMD5)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Warn("login refused", "username", user.Username, "reason", "wrong password")
		return nil, reject(ErrLoginFailed, "Invalid password!")
	}

	if user.Privileges&(constants.UserPublic|constants.UserNormal) == 0 &&
		user.Privileges&constants.UserPendingVerification == 0 {
		s.log.Warn("login refused", "username", user.Username, "reason", "banned")
		return nil, reject(ErrLoginBanned, "You have been banned!")
	}

	firstLogin, err := s.verifyAccount(ctx, user, req.hashes)
	if err != nil {
		return nil, err
	}

	// Ancient clients send no hardware block at all.
	if !req.hashes.Valid() {
		s.log.Warn("login refused", "username", user.Username, "reason", "empty hardware block")
		return nil, reject(ErrForceUpdate, "What...")
	}
	if err := s.hardware.Log(ctx, user.ID, req.hashes, firstLogin); err != nil {
		return nil, err
	}
	if err := s.flagBannedHardware(ctx, user, req.hashes); err != nil {
		return nil, err
	}

	if isCheatBuild(req.osuVersion) {
		if err := s.users.RestrictWithLog(ctx, user.ID, "logged in with a known cheat client",
			"client version "+req.osuVersion, constants.BotUserID); err != nil {
			s.log.Error("restricting cheat client login", "user_id", user.ID, "error", err)
		}
		s.log.Warn("login refused", "username", user.Username, "reason", "cheat client",
			"version", req.osuVersion)
		return nil, ErrLoginCheatClient
	}

	if s.need2FA(ctx, user.ID, ip) {
		s.log.Warn("login refused", "username", user.Username, "reason", "unverified ip", "ip", ip)
		return nil, ErrNeed2FA
	}

	if err := s.users.UpdateOsuVersion(ctx, user.ID, req.osuVersion); err != nil {
		s.log.Error("recording client version", "user_id", user.ID, "error", err)
	}

	// Frozen accounts whose liveplay window ran out get restricted before
	// the session is born, so the token carries the stripped privileges.
	frozenExpired := false
	if user.Frozen && user.FreezeDeadline > 0 && time.Now().Unix() >= user.FreezeDeadline {
		s.restrictExpiredFreeze(ctx, user)
		frozenExpired = true
	}

	tournament := strings.Contains(req.osuVersion, "tourney")
	if !tournament {
		for _, old := range s.tokens.GetAllByUserID(user.ID) {
			s.Logout(ctx, old)
		}
	}

	t := s.CreateToken(ctx, user, ip, tournament, req.timeOffset)

	if t.Restricted() {
		s.sendBotMessage(ctx, t.Username, restrictedNotice)
	}
	if frozenExpired {
		t.Enqueue(serverpackets.Notification(frozenExpiredNotice))
	} else if user.Frozen {
		t.Enqueue(serverpackets.Notification(frozenNotice))
	}
	if user.FirstLoginAfterFrozen {
		t.Enqueue(serverpackets.Notification(unfrozenNotice))
		if err := s.users.AckUnfreezeNotice(ctx, user.ID); err != nil {
			s.log.Error("clearing unfreeze notice", "user_id", user.ID, "error", err)
		}
	}

	now := time.Now().Unix()
	if user.Privileges&constants.UserDonor != 0 && user.DonorExpire-now <= 3*86400 {
		expireDays := int(math.Round(float64(user.DonorExpire-now) / 86400))
		expireIn := fmt.Sprintf("%d days", expireDays)
		if expireDays <= 1 {
			expireIn = "less than 24 hours"
		}
		t.Enqueue(serverpackets.Notification(fmt.Sprintf(donorExpiryNotice, expireIn)))
	}

	silenceSeconds := t.SilenceSecondsLeft()
	supporter := !t.Restricted()
	gmt := t.Admin()
	tournamentStaff := user.Privileges&constants.UserTournamentStaff != 0

	if s.Restarting() {
		return t, ErrRestarting
	}
	if s.Maintenance() {
		if !gmt {
			s.streams.Leave(StreamMain, t)
			s.DeleteToken(ctx, t)
			return t, ErrMaintenance
		}
		t.Enqueue(serverpackets.Notification(maintenanceStaffNotice))
	}

	if err := s.RefreshStats(ctx, t); err != nil {
		s.log.Error("loading login stats", "user_id", user.ID, "error", err)
	}
	friends, err := s.users.GetFriends(ctx, user.ID)
	if err != nil {
		s.log.Error("loading friend list", "user_id", user.ID, "error", err)
	}

	// The welcome block. The client expects exactly this order.
	t.Enqueue(serverpackets.SilenceEndNotify(uint32(silenceSeconds)))
	t.Enqueue(serverpackets.LoginReply(user.ID))
	t.Enqueue(serverpackets.ProtocolVersion)
	t.Enqueue(serverpackets.BanchoPrivileges(supporter, gmt, tournamentStaff))
	t.Enqueue(presencePacket(t))
	t.Enqueue(statsPacket(t))
	t.Enqueue(serverpackets.ChannelInfoEnd)
	t.Enqueue(serverpackets.FriendList(friends))

	for _, name := range []string{"#osu", "#announce"} {
		if err := s.joinChannel(t, name, false); err != nil {
			s.log.Debug("joining default channel", "channel", name, "error", err)
		}
	}
	if gmt {
		if err := s.joinChannel(t, "#admin", false); err != nil {
			s.log.Debug("joining staff channel", "error", err)
		}
	}

	for _, ch := range s.channels.All() {
		if !ch.PublicRead || ch.Hidden {
			continue
		}
		count := uint16(s.streams.ClientCount(chatStream(ch.Name)))
		t.Enqueue(serverpackets.ChannelInfo(ch.Name, ch.Description, count))
	}

	if icon := s.MenuIcon(); icon != "" {
		t.Enqueue(serverpackets.MenuIcon(icon))
	}

	for _, other := range s.tokens.All() {
		if !other.Restricted() {
			t.Enqueue(presencePacket(other))
		}
	}

	if loc, err := s.geoloc.Lookup(ctx, ip); err != nil {
		s.log.Error("geolocating login", "ip", ip, "error", err)
	} else {
		t.SetLocation(model.Location{Latitude: loc.Latitude, Longitude: loc.Longitude})
		t.SetCountryID(constants.CountryID(loc.Country))
		if user.Country == "XX" && loc.Country != "" && !strings.EqualFold(loc.Country, "XX") {
			if err := s.users.SetCountry(ctx, user.ID, loc.Country); err != nil {
				s.log.Error("persisting country", "user_id", user.ID, "error", err)
			}
		}
	}

	if !t.Restricted() {
		s.streams.Broadcast(StreamMain, presencePacket(t))
	}

	quote := s.RandomQuote()
	if user.ID == 1000 {
		// User 1000 always gets the bot's own introduction.
		quote = s.botIntro()
	}
	notif := fmt.Sprintf("- Online Users: %d\n- %s", s.tokens.Len(), quote)
	if gmt {
		notif += fmt.Sprintf("\n- Elapsed: %s!", elapsedString(time.Since(started)))
	}
	t.Enqueue(serverpackets.Notification(notif))

	s.log.Info("user logged in", "user_id", user.ID, "username", user.Username,
		"ip", ip, "tournament", tournament, "elapsed", time.Since(started))
	return t, nil
}

// verifyAccount runs first-login hardware verification when the account
// is pending activation or has no activated hardware yet. Returns whether
// this login counts as the activation.
func (s *Server) verifyAccount(ctx context.Context, user *model.User, hw model.ClientHashes) (bool, error) {
	pending := user.Privileges&constants.UserPendingVerification != 0
	if !pending {
		verified, err := s.hardware.HasVerified(ctx, user.ID)
		if err != nil {
			return false, err
		}
		if verified {
			return false, nil
		}
	}

	owner, err := s.hardware.ActivatedMatchOwner(ctx, user.ID, hw)
	if err != nil {
		return false, err
	}
	if owner != 0 {
		s.flagMultiaccount(ctx, user, owner, hw)
		s.setVerified(user.ID, false)
		s.log.Warn("login refused", "username", user.Username, "reason", "multiaccount",
			"owner_id", owner)
		return false, ErrLoginBanned
	}

	if err := s.users.ResetPendingVerification(ctx, user.ID); err != nil {
		return false, err
	}
	user.Privileges = user.Privileges&^constants.UserPendingVerification |
		constants.UserPublic | constants.UserNormal
	s.setVerified(user.ID, true)
	s.log.Info("account verified", "user_id", user.ID, "username", user.Username)
	return true, nil
}

// flagMultiaccount bans the fresh account and restricts the hardware's
// original owner, leaving notes on both.
func (s *Server) flagMultiaccount(ctx context.Context, user *model.User, ownerID int32, hw model.ClientHashes) {
	ownerName, err := s.users.GetUsername(ctx, ownerID)
	if err != nil {
		s.log.Error("resolving multiaccount owner", "owner_id", ownerID, "error", err)
	}
	if err := s.users.Ban(ctx, user.ID); err != nil {
		s.log.Error("banning multiaccount", "user_id", user.ID, "error", err)
	}
	if err := s.users.AppendNotes(ctx, user.ID, fmt.Sprintf(
		"%s's multiaccount (%d), found HWID match while verifying account (%s|%s|%s)",
		ownerName, ownerID, hw.MACMD5, hw.UniqueMD5, hw.DiskMD5)); err != nil {
		s.log.Error("noting multiaccount", "user_id", user.ID, "error", err)
	}
	if err := s.users.AppendNotes(ctx, ownerID, fmt.Sprintf(
		"Has created multiaccount %s (%d)", user.Username, user.ID)); err != nil {
		s.log.Error("noting multiaccount owner", "owner_id", ownerID, "error", err)
	}
	if err := s.users.Restrict(ctx, ownerID); err != nil {
		s.log.Error("restricting multiaccount owner", "owner_id", ownerID, "error", err)
	}
}

// flagBannedHardware restricts the account when its hardware was also
// used by banned or restricted users. Already-flagged accounts are left
// alone so their notes do not grow on every login.
func (s *Server) flagBannedHardware(ctx context.Context, user *model.User, hw model.ClientHashes) error {
	matches, err := s.hardware.BannedMatches(ctx, user.ID, hw)
	if err != nil {
		return err
	}
	if len(matches) == 0 || isRestricted(user.Privileges) ||
		user.Privileges&(constants.UserPublic|constants.UserNormal) == 0 {
		return nil
	}

	ids := make([]string, len(matches))
	for i, id := range matches {
		ids[i] = strconv.Itoa(int(id))
	}
	if err := s.users.RestrictWithLog(ctx, user.ID, "logged in from banned hardware",
		"hardware also used by restricted or banned users "+strings.Join(ids, ", "),
		constants.BotUserID); err != nil {
		s.log.Error("restricting banned hardware login", "user_id", user.ID, "error", err)
		return nil
	}
	user.Privileges &^= constants.UserPublic
	s.log.Warn("restricted for banned hardware", "user_id", user.ID, "matches", matches)
	return nil
}

// restrictExpiredFreeze restricts a frozen account whose deadline
// passed, clearing the freeze so the restriction is logged only once.
func (s *Server) restrictExpiredFreeze(ctx context.Context, user *model.User) {
	if err := s.users.RestrictWithLog(ctx, user.ID, "frozen account deadline expired",
		fmt.Sprintf("liveplay was due by %s", time.Unix(user.FreezeDeadline, 0).Format(time.DateOnly)),
		constants.BotUserID); err != nil {
		s.log.Error("restricting expired frozen account", "user_id", user.ID, "error", err)
	}
	if err := s.users.Unfreeze(ctx, user.ID); err != nil {
		s.log.Error("unfreezing expired account", "user_id", user.ID, "error", err)
	}
	if err := s.users.AckUnfreezeNotice(ctx, user.ID); err != nil {
		s.log.Error("clearing unfreeze notice", "user_id", user.ID, "error", err)
	}
	user.Privileges &^= constants.UserPublic
	s.log.Warn("frozen account restricted", "user_id", user.ID, "username", user.Username)
}

// need2FA reports whether the account opted into browser verification
// and this IP has not been confirmed from the website yet.
func (s *Server) need2FA(ctx context.Context, userID int32, ip string) bool {
	enrolled, err := s.rdb.SIsMember(ctx, "peppy:2fa_users", int64(userID)).Result()
	if err != nil {
		s.log.Error("checking 2fa enrollment", "user_id", userID, "error", err)
		return false
	}
	if !enrolled {
		return false
	}
	confirmed, err := s.rdb.SIsMember(ctx, fmt.Sprintf("peppy:2fa_confirmed:%d", userID), ip).Result()
	if err != nil {
		s.log.Error("checking 2fa confirmation", "user_id", userID, "error", err)
		return false
	}
	return !confirmed
}

// elapsedString formats a login duration the way the admin panel line
// shows it: milliseconds below one second, seconds above.
func elapsedString(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
