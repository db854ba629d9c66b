package bancho

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/db"
	"github.com/udisondev/banchogo/internal/model"
	"github.com/udisondev/banchogo/internal/webhook"
)

// kickDefaultMessage is shown to a player kicked without a specific
// reason.
const kickDefaultMessage = "You have been kicked from the server. Please login again."

// restrictReasonRe pulls the quoted summary and detail out of a
// !restrict line. The quotes stay part of the captured text.
var restrictReasonRe = regexp.MustCompile(`(".+") (".+")`)

// reportRe parses the client's report dialog: target (reason): info.
var reportRe = regexp.MustCompile(`^(.+) \((.+)\)\:(?: )?(.+)?$`)

// resolveUserID maps a safe username to its id, 0 when no such user.
func (s *Server) resolveUserID(ctx context.Context, safeName string) int32 {
	id, err := s.users.GetIDBySafeName(ctx, safeName)
	if err != nil {
		s.log.Error("resolving username", "username", safeName, "error", err)
		return 0
	}
	return id
}

func (s *Server) cmdEditMap(ctx context.Context, from *Token, channel string, args []string) string {
	for i := range args {
		args[i] = strings.ToLower(args[i])
	}
	mapID, _, _ := from.Tillerino()
	if mapID == 0 {
		return "Please give me a beatmap first with /np command."
	}

	var status int32
	var readable string
	switch args[0] {
	case "love":
		status, readable = 5, "loved"
	case "rank":
		status, readable = 2, "ranked"
	case "unrank":
		status, readable = 0, "unranked"
	default:
		return "Status must be either rank, unrank, or love."
	}
	if args[1] != "set" && args[1] != "map" {
		return "Scope must either be set or map."
	}
	wholeSet := args[1] == "set"

	row, err := s.beatmaps.GetByID(ctx, mapID)
	if err != nil {
		s.log.Error("loading beatmap", "beatmap_id", mapID, "error", err)
		return botProcessingError
	}
	if row == nil {
		return "Could not find beatmap."
	}
	if row.Ranked == status {
		return fmt.Sprintf("That map is already %s!", readable)
	}

	rankID := mapID
	if wholeSet {
		rankID = row.BeatmapsetID
	}
	if err := s.beatmaps.SetRankedStatus(ctx, wholeSet, rankID, status, from.UserID); err != nil {
		s.log.Error("updating ranked status", "beatmap_id", mapID, "error", err)
		return botProcessingError
	}

	md5s, err := s.beatmaps.MD5sForSet(ctx, row.BeatmapsetID)
	if err != nil {
		s.log.Error("listing set hashes", "beatmapset_id", row.BeatmapsetID, "error", err)
	}
	for _, h := range md5s {
		s.refreshBeatmapCache(ctx, h)
	}

	var mapName, beatmapURL string
	if wholeSet {
		mapName = strings.TrimSpace(strings.SplitN(row.SongName, "[", 2)[0])
		beatmapURL = fmt.Sprintf("the beatmap set [https://ussr.pl/beatmaps/%d %s]", mapID, mapName)
	} else {
		mapName = row.SongName
		beatmapURL = fmt.Sprintf("the beatmap [https://ussr.pl/beatmaps/%d %s]", mapID, mapName)
	}

	if url := s.cfg.NewRankedWebhook; url != "" {
		embed := webhook.Embed{
			Description: fmt.Sprintf("Ranked by %s", from.Username),
			Color:       242424,
			Author: &webhook.Author{
				Name:    fmt.Sprintf("%s was just %s", mapName, readable),
				URL:     fmt.Sprintf("https://ussr.pl/beatmaps/%d", mapID),
				IconURL: fmt.Sprintf("https://a.ussr.pl/%d", from.UserID),
			},
			Footer: &webhook.Footer{Text: "via bancho!"},
			Image:  &webhook.Image{URL: fmt.Sprintf("https://assets.ppy.sh/beatmaps/%d/covers/cover.jpg", row.BeatmapsetID)},
		}
		go func() {
			if err := s.webhooks.Send(context.Background(), url, embed); err != nil {
				s.log.Error("sending ranked webhook", "error", err)
			}
		}()
	}

	s.sendBotMessage(ctx, "#announce",
		fmt.Sprintf("[https://ussr.pl/u/%d %s] has %s %s", from.UserID, from.Username, readable, beatmapURL))
	return fmt.Sprintf("Successfully %s a map.", readable)
}

// refreshBeatmapCache tells the score server to drop its cached copy
// of the given map.
func (s *Server) refreshBeatmapCache(ctx context.Context, md5 string) {
	if err := s.rdb.Publish(ctx, "ussr:refresh_bmap", md5).Err(); err != nil {
		s.log.Error("publishing beatmap refresh", "md5", md5, "error", err)
	}
}

func (s *Server) cmdInstantRestart(ctx context.Context, from *Token, channel string, args []string) string {
	s.ScheduleRestart(0, "We are restarting Bancho. Be right back!")
	return ""
}

func (s *Server) cmdRoll(ctx context.Context, from *Token, channel string, args []string) string {
	max := 100
	if isDigits(args[0]) {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			max = n
		}
	}
	return fmt.Sprintf("%s rolls %d points!", from.Username, rand.Intn(max))
}

func (s *Server) cmdAlert(ctx context.Context, from *Token, channel string, args []string) string {
	msg := strings.TrimSpace(strings.Join(args, " "))
	if msg == "" {
		return ""
	}
	s.streams.Broadcast(StreamMain, serverpackets.Notification(msg))
	return ""
}

func (s *Server) cmdAlertUser(ctx context.Context, from *Token, channel string, args []string) string {
	target, ok := s.tokens.GetByName(args[0])
	if !ok {
		return "User offline."
	}
	msg := strings.TrimSpace(strings.Join(args[1:], " "))
	if msg == "" {
		return ""
	}
	target.Enqueue(serverpackets.Notification(msg))
	return ""
}

func (s *Server) cmdModerated(ctx context.Context, from *Token, channel string, args []string) string {
	if !strings.HasPrefix(channel, "#") {
		return "You are trying to put a private chat in moderated mode. Are you serious?!? You're fired."
	}
	enable := args[0] != "off"
	ch, ok := s.channels.Get(channel)
	if !ok {
		return ""
	}
	ch.SetModerated(enable)
	state := "now"
	if !enable {
		state = "no longer"
	}
	return fmt.Sprintf("This channel is %s in moderated mode!", state)
}

func (s *Server) cmdKickAll(ctx context.Context, from *Token, channel string, args []string) string {
	for _, t := range s.tokens.All() {
		if t.Admin() {
			continue
		}
		s.Kick(ctx, t, kickDefaultMessage, "mass kick")
	}
	return "Whoops! Who needs players anyways?"
}

func (s *Server) cmdKick(ctx context.Context, from *Token, channel string, args []string) string {
	target := model.SafeUsername(strings.Join(args, " "))
	if target == model.SafeUsername(s.BotName()) {
		return "Nope."
	}
	first, ok := s.tokens.GetByName(target)
	if !ok {
		return fmt.Sprintf("%s is not online", target)
	}
	for _, t := range s.tokens.GetAllByUserID(first.UserID) {
		s.Kick(ctx, t, kickDefaultMessage, "kick command")
	}
	return fmt.Sprintf("%s has been kicked from the server.", target)
}

func (s *Server) cmdBotReconnect(ctx context.Context, from *Token, channel string, args []string) string {
	if _, ok := s.tokens.GetByUserID(constants.BotUserID); ok {
		return fmt.Sprintf("%s is already connected to RealistikOsu!", s.BotName())
	}
	s.connectBot()
	return ""
}

func (s *Server) cmdSilence(ctx context.Context, from *Token, channel string, args []string) string {
	// The target name may contain spaces, so everything before the
	// first numeric argument is the name.
	offset := 0
	for i, a := range args {
		if isDigits(a) {
			offset = i
			break
		}
	}
	if offset+1 >= len(args) {
		return "Invalid time format (s/m/h/d)."
	}
	target := model.SafeUsername(strings.Join(args[:offset], " "))
	amount := args[offset]
	unit := strings.ToLower(args[offset+1])
	reason := strings.TrimSpace(strings.Join(args[offset+2:], " "))
	if reason == "" {
		return "Please provide a valid reason."
	}
	if !isDigits(amount) {
		return "The amount must be a number."
	}
	targetID := s.resolveUserID(ctx, target)
	if targetID == 0 {
		return fmt.Sprintf("%s: user not found", target)
	}

	n, _ := strconv.ParseInt(amount, 10, 64)
	var seconds int64
	switch unit {
	case "s":
		seconds = n
	case "m":
		seconds = n * 60
	case "h":
		seconds = n * 3600
	case "d":
		seconds = n * 86400
	default:
		return "Invalid time format (s/m/h/d)."
	}
	if seconds > 2628000 {
		return "Invalid silence time. Max silence time is 1 month."
	}

	if t, ok := s.tokens.GetByName(target); ok {
		s.Silence(ctx, t, seconds, reason)
	} else if err := s.users.Silence(ctx, targetID, time.Now().Unix()+seconds, reason); err != nil {
		s.log.Error("persisting silence", "user_id", targetID, "error", err)
		return botProcessingError
	}
	return fmt.Sprintf("%s has been silenced for: %s", target, reason)
}

func (s *Server) cmdRemoveSilence(ctx context.Context, from *Token, channel string, args []string) string {
	target := model.SafeUsername(strings.Join(args, " "))
	targetID := s.resolveUserID(ctx, target)
	if targetID == 0 {
		return fmt.Sprintf("%s: user not found", target)
	}
	if t, ok := s.tokens.GetByName(target); ok {
		s.Silence(ctx, t, 0, "")
	} else if err := s.users.Silence(ctx, targetID, time.Now().Unix(), ""); err != nil {
		s.log.Error("resetting silence", "user_id", targetID, "error", err)
		return botProcessingError
	}
	return fmt.Sprintf("%s's silence reset", target)
}

func (s *Server) cmdBan(ctx context.Context, from *Token, channel string, args []string) string {
	target := model.SafeUsername(strings.Join(args, " "))
	targetID := s.resolveUserID(ctx, target)
	if targetID == 0 {
		return fmt.Sprintf("%s: user not found", target)
	}
	switch targetID {
	case 999, 1000, 1001, 1002, 1005:
		return "NO!"
	}
	if err := s.users.Ban(ctx, targetID); err != nil {
		s.log.Error("banning user", "user_id", targetID, "error", err)
		return botProcessingError
	}
	if t, ok := s.tokens.GetByName(target); ok {
		t.Enqueue(serverpackets.LoginBanned)
	}
	s.log.Warn("user banned", "by", from.Username, "target", target)
	return fmt.Sprintf("RIP %s. You will not be missed.", target)
}

func (s *Server) cmdUnban(ctx context.Context, from *Token, channel string, args []string) string {
	target := model.SafeUsername(strings.Join(args, " "))
	targetID := s.resolveUserID(ctx, target)
	if targetID == 0 {
		return fmt.Sprintf("%s: user not found", target)
	}
	if err := s.users.Unban(ctx, targetID); err != nil {
		s.log.Error("unbanning user", "user_id", targetID, "error", err)
		return botProcessingError
	}
	s.log.Warn("user unbanned", "by", from.Username, "target", target)
	return fmt.Sprintf("Welcome back %s!", target)
}

func (s *Server) cmdRestrict(ctx context.Context, from *Token, channel string, args []string) string {
	target := model.SafeUsername(args[0])
	matched := restrictReasonRe.FindStringSubmatch(strings.Join(args, " "))
	if matched == nil {
		return "Please specify both a reason and a summary for the ban."
	}
	summary, detail := matched[1], matched[2]

	targetID := s.resolveUserID(ctx, target)
	if targetID == 0 {
		return fmt.Sprintf("Could not find the user '%s' on the server.", target)
	}
	if err := s.users.Restrict(ctx, targetID); err != nil {
		s.log.Error("restricting user", "user_id", targetID, "error", err)
		return botProcessingError
	}
	if err := s.users.InsertBanLog(ctx, from.UserID, targetID, summary, detail, false); err != nil {
		s.log.Error("recording ban log", "user_id", targetID, "error", err)
	}
	if t, ok := s.tokens.GetByName(target); ok {
		t.Enqueue(serverpackets.Notification(restrictedNotice))
	}
	return fmt.Sprintf("%s has been successfully restricted for '%s'", target, summary)
}

func (s *Server) cmdFreeze(ctx context.Context, from *Token, channel string, args []string) string {
	target := model.SafeUsername(strings.Join(args, " "))
	targetID := s.resolveUserID(ctx, target)
	if targetID == 0 {
		return fmt.Sprintf("%s: user not found", target)
	}
	if err := s.users.Freeze(ctx, targetID); err != nil {
		s.log.Error("freezing user", "user_id", targetID, "error", err)
		return botProcessingError
	}
	if t, ok := s.tokens.GetByName(target); ok {
		t.Enqueue(serverpackets.Notification(frozenNotice))
	}
	s.log.Warn("user frozen", "by", from.Username, "target", target)
	return "User has been frozen!"
}

func (s *Server) cmdUnfreeze(ctx context.Context, from *Token, channel string, args []string) string {
	target := model.SafeUsername(strings.Join(args, " "))
	targetID := s.resolveUserID(ctx, target)
	if targetID == 0 {
		return fmt.Sprintf("%s: user not found", target)
	}
	if err := s.users.Unfreeze(ctx, targetID); err != nil {
		s.log.Error("unfreezing user", "user_id", targetID, "error", err)
		return botProcessingError
	}
	if t, ok := s.tokens.GetByName(target); ok {
		t.Enqueue(serverpackets.Notification(unfrozenNotice))
	}
	s.log.Warn("user unfrozen", "by", from.Username, "target", target)
	return "User has been unfrozen!"
}

func (s *Server) cmdChangeUsername(ctx context.Context, from *Token, channel string, args []string) string {
	newName := strings.Join(args, " ")
	if err := s.users.ChangeUsername(ctx, from.UserID, newName); err != nil {
		s.log.Error("changing username", "user_id", from.UserID, "error", err)
		return botProcessingError
	}
	s.Kick(ctx, from,
		fmt.Sprintf("Your username has been changed to %s. Please relog!", newName),
		"username change")
	return ""
}

func (s *Server) cmdUnrestrict(ctx context.Context, from *Token, channel string, args []string) string {
	target := model.SafeUsername(strings.Join(args, " "))
	targetID := s.resolveUserID(ctx, target)
	if targetID == 0 {
		return fmt.Sprintf("%s: user not found", target)
	}
	if err := s.users.Unban(ctx, targetID); err != nil {
		s.log.Error("unrestricting user", "user_id", targetID, "error", err)
		return botProcessingError
	}
	s.log.Warn("user unrestricted", "by", from.Username, "target", target)
	return fmt.Sprintf("Welcome back %s!", target)
}

func (s *Server) restartShutdown(restart bool) string {
	verb := "shutdown"
	if restart {
		verb = "restart"
	}
	msg := fmt.Sprintf("We are performing some maintenance. Bancho will %s in 5 seconds. "+
		"Thank you for your patience.", verb)
	s.ScheduleRestart(5*time.Second, msg)
	return msg
}

func (s *Server) cmdSystemRestart(ctx context.Context, from *Token, channel string, args []string) string {
	return s.restartShutdown(true)
}

func (s *Server) cmdSystemShutdown(ctx context.Context, from *Token, channel string, args []string) string {
	return s.restartShutdown(false)
}

func (s *Server) cmdSystemReload(ctx context.Context, from *Token, channel string, args []string) string {
	if err := s.ReloadSettings(ctx); err != nil {
		s.log.Error("reloading settings", "error", err)
		return botProcessingError
	}
	return "Bancho settings reloaded!"
}

func (s *Server) cmdSystemMaintenance(ctx context.Context, from *Token, channel string, args []string) string {
	on := args[0] != "off"
	if err := s.SetMaintenance(ctx, on); err != nil {
		s.log.Error("switching maintenance mode", "error", err)
		return botProcessingError
	}
	if !on {
		return "The server is no longer in maintenance mode!"
	}

	var who []int32
	for _, t := range s.tokens.All() {
		if !t.Admin() {
			who = append(who, t.UserID)
		}
	}
	s.streams.Broadcast(StreamMain, serverpackets.Notification(
		"Our realtime server is in maintenance mode. Please try to login again later."))
	s.tokens.MultipleEnqueue(serverpackets.LoginError, who, false)
	return "The server is now in maintenance mode!"
}

func (s *Server) cmdSystemStatus(ctx context.Context, from *Token, channel string, args []string) string {
	cpuPercent := 0.0
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		cpuPercent = pcts[0]
	}
	usedMem, totalMem := "0.00", "0.00"
	if vm, err := mem.VirtualMemory(); err == nil {
		usedMem = fmt.Sprintf("%.2f", float64(vm.Used)/(1<<30))
		totalMem = fmt.Sprintf("%.2f", float64(vm.Total)/(1<<30))
	}
	loadAvg := []string{"0.00", "0.00", "0.00"}
	if avg, err := load.Avg(); err == nil {
		loadAvg = []string{
			fmt.Sprintf("%.2f", avg.Load1),
			fmt.Sprintf("%.2f", avg.Load5),
			fmt.Sprintf("%.2f", avg.Load15),
		}
	}

	up := s.Uptime()
	uptime := fmt.Sprintf("%dd %dh %dm %ds",
		int(up.Hours())/24, int(up.Hours())%24, int(up.Minutes())%60, int(up.Seconds())%60)

	return strings.Join([]string{
		"---> RealistikOsu <---",
		" - Realtime Server -",
		"> Running RealistikOsu bancho " + Version + ".",
		fmt.Sprintf("> Online Users: %d", s.tokens.Len()),
		fmt.Sprintf("> Multiplayer: %d", s.matches.Len()),
		fmt.Sprintf("> Uptime: %s", uptime),
		"",
		" - System Statistics -",
		fmt.Sprintf("> CPU Utilisation: %.1f%%", cpuPercent),
		fmt.Sprintf("> RAM Utilisation: %s/%s", usedMem, totalMem),
		fmt.Sprintf("> CPU Utilisation History: %s", strings.Join(loadAvg, "%, ")),
	}, "\n")
}

// npModFlags maps the mod words the client embeds in /np lines.
var npModFlags = map[string]int32{
	"-Easy":       constants.ModEasy,
	"-NoFail":     constants.ModNoFail,
	"+Hidden":     constants.ModHidden,
	"+HardRock":   constants.ModHardRock,
	"+Nightcore":  constants.ModNightcore,
	"+DoubleTime": constants.ModDoubleTime,
	"-HalfTime":   constants.ModHalfTime,
	"+Flashlight": constants.ModFlashlight,
	"-SpunOut":    constants.ModSpunOut,
}

func (s *Server) cmdNowPlaying(ctx context.Context, from *Token, channel string, args []string) string {
	if strings.HasPrefix(channel, "#spect_") {
		hostID, ok := spectChannelHostID(channel)
		if !ok {
			return ""
		}
		host, online := s.tokens.GetByUserID(hostID)
		if !online {
			return ""
		}
		return s.mirrorMessage(ctx, host.Action().BeatmapID)
	}
	if strings.HasPrefix(channel, "#") {
		return ""
	}
	if len(args) < 2 {
		return ""
	}

	playWatch := args[1] == "playing" || args[1] == "watching"
	var rawURL string
	switch {
	case args[1] == "listening":
		if len(args) < 4 {
			return ""
		}
		rawURL = args[3]
	case playWatch:
		if len(args) < 3 {
			return ""
		}
		rawURL = args[2]
	default:
		return ""
	}
	if rawURL != "" {
		rawURL = rawURL[1:] // strip the leading "["
	}

	var mods int32
	if playWatch {
		for _, part := range args {
			mods |= npModFlags[strings.ReplaceAll(part, "\x01", "")]
		}
	}

	seg := rawURL
	if i := strings.LastIndex(seg, "/"); i != -1 {
		seg = seg[i+1:]
	}
	if _, after, found := strings.Cut(seg, "#"); found {
		seg = after
	}
	beatmapID, err := strconv.Atoi(seg)
	if err != nil {
		return ""
	}

	from.SetTillerino(int32(beatmapID), mods, -1)
	return s.ppMessage(ctx, from)
}

// withModValues maps the two-letter chunks accepted by !with.
var withModValues = map[string]int32{
	"NO": constants.ModNoMod,
	"NF": constants.ModNoFail,
	"EZ": constants.ModEasy,
	"HD": constants.ModHidden,
	"HR": constants.ModHardRock,
	"DT": constants.ModDoubleTime,
	"HT": constants.ModHalfTime,
	"NC": constants.ModNightcore,
	"FL": constants.ModFlashlight,
	"SO": constants.ModSpunOut,
	"RX": constants.ModRelax,
	"AP": constants.ModAutopilot,
}

func (s *Server) cmdWith(ctx context.Context, from *Token, channel string, args []string) string {
	if strings.HasPrefix(channel, "#") {
		return ""
	}
	mapID, _, acc := from.Tillerino()
	if mapID == 0 {
		return "You must firstly select a beatmap using the /np command."
	}

	var mods int32
	raw := strings.ToUpper(args[0])
	for i := 0; i < len(raw); i += 2 {
		chunk := raw[i:min(i+2, len(raw))]
		v, ok := withModValues[chunk]
		if !ok {
			return "Invalid mods. Allowed mods: NO, NF, EZ, HD, HR, DT, HT, NC, FL, SO, RX, AP. " +
				"Do not use spaces for multiple mods."
		}
		mods |= v
		if v == constants.ModNoMod {
			break
		}
	}

	from.SetTillerino(mapID, mods, acc)
	return s.ppMessage(ctx, from)
}

func (s *Server) cmdAcc(ctx context.Context, from *Token, channel string, args []string) string {
	if strings.HasPrefix(channel, "#") {
		return ""
	}
	mapID, mods, _ := from.Tillerino()
	if mapID == 0 {
		return "You must firstly select a beatmap using the /np command."
	}
	acc, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "Invalid acc value"
	}
	from.SetTillerino(mapID, mods, acc)
	return s.ppMessage(ctx, from)
}

func (s *Server) cmdLast(ctx context.Context, from *Token, channel string, args []string) string {
	table := db.ScoresVanilla
	switch {
	case from.Relaxing():
		table = db.ScoresRelax
	case from.Autopiloting():
		table = db.ScoresAutopilot
	}
	row, err := s.scores.LastByUser(ctx, from.UserID, table)
	if err != nil {
		s.log.Error("loading last score", "user_id", from.UserID, "error", err)
		return botProcessingError
	}
	if row == nil {
		return "Please submit a score!"
	}

	rank := "F"
	if row.Completed != 0 {
		rank = scoreGrade(row.PlayMode, row.Mods, row.Accuracy,
			row.Count300, row.Count100, row.Count50, row.CountMiss)
	}
	// Accuracy of the same hits with the misses turned into 300s.
	fcAcc := modeAccuracy(row.PlayMode, row.Count300+row.CountMiss, row.Count100,
		row.Count50, 0, row.CountKatu, row.CountGeki)
	from.SetTillerino(row.BeatmapID, row.Mods, fcAcc)

	ppData, err := s.pp.Calculate(ctx, row.BeatmapID, row.Mods, fcAcc)
	if err != nil {
		s.log.Error("querying pp api", "beatmap_id", row.BeatmapID, "error", err)
		return "Score server API timeout. Please try again in a few seconds."
	}
	if ppData.Status != 200 && ppData.Message != "" {
		return fmt.Sprintf("There has been an exception the in PP API (%s).", ppData.Message)
	}

	userEmbed := fmt.Sprintf("[https://ussr.pl/u/%d %s]", from.UserID, from.Username)
	mapEmbed := fmt.Sprintf("[http://ussr.pl/beatmaps/%d %s]", row.BeatmapID, row.SongName)

	comboFC := row.MaxCombo > int32(float64(row.MapMaxCombo)*0.95)
	fcText := " (FC)"
	if !comboFC && row.CountMiss != 0 {
		if rank == "F" {
			fcText = " (Failed/Quit)"
		} else {
			fcText = " (Choke)"
		}
	}
	scoreFced := comboFC && row.CountMiss == 0 && rank != "F"
	completionOrPP := ""
	if !scoreFced && len(ppData.PP) > 0 {
		completionOrPP = fmt.Sprintf(" | (%.2f for %.2f%% FC)", ppData.PP[len(ppData.PP)-1], fcAcc)
	}

	return strings.Join([]string{
		fmt.Sprintf("%s | %s +%s", userEmbed, mapEmbed, readableMods(row.Mods)),
		fmt.Sprintf("{%s, %.2f%%}%s %d/%dx | %.2fpp | %.2f ★%s",
			strings.ToUpper(rank), row.Accuracy, fcText, row.MaxCombo, row.MapMaxCombo,
			row.PP, ppData.Stars, completionOrPP),
		fmt.Sprintf("{ %dx100 // %dx50 // %dxMiss }", row.Count100, row.Count50, row.CountMiss),
	}, "\n")
}

func (s *Server) cmdReport(ctx context.Context, from *Token, channel string, args []string) string {
	if msg := s.handleReport(ctx, from, strings.Join(args, " ")); msg != "" {
		s.sendBotNotification(ctx, from, msg)
	}
	return ""
}

func (s *Server) handleReport(ctx context.Context, from *Token, line string) string {
	m := reportRe.FindStringSubmatch(line)
	if m == nil {
		return "Invalid report command syntax. To report an user, click on it and select 'Report user'."
	}
	target, reason, info := model.SafeUsername(m[1]), m[2], m[3]
	if target == model.SafeUsername(s.BotName()) {
		return fmt.Sprintf("Hello, %s here! You can't report me. I won't forget what you've "+
			"tried to do. Watch out.", s.BotName())
	}
	targetID := s.resolveUserID(ctx, target)
	if targetID == 0 {
		return "The user you've tried to report doesn't exist."
	}
	if strings.EqualFold(reason, "other") && info == "" {
		return "Please specify the reason of your report."
	}

	chatlog := ""
	if t, ok := s.tokens.GetByName(target); ok {
		chatlog = t.MessagesBuffer()
	}
	fullReason := fmt.Sprintf("%s - ingame ", reason)
	if info != "" {
		fullReason = fmt.Sprintf("%s - ingame (%s)", reason, info)
	}
	if err := s.reports.Insert(ctx, from.UserID, targetID, fullReason, chatlog); err != nil {
		s.log.Error("saving report", "target_id", targetID, "error", err)
		return botProcessingError
	}

	s.sendBotMessage(ctx, "#admin",
		fmt.Sprintf("%s has reported %s for %s (%s)", from.Username, target, reason, info))
	s.log.Warn("user reported", "by", from.Username, "target", target, "reason", reason)

	return fmt.Sprintf("You've reported %s for %s %s. A Community Manager will check your report "+
		"as soon as possible. Every !report message you may see in chat wasn't sent to anyone, "+
		"so nobody in chat, but admins, know about your report. Thank you for reporting!",
		target, reason, info)
}

func (s *Server) cmdSwitchServer(ctx context.Context, from *Token, channel string, args []string) string {
	newServer := strings.TrimSpace(args[0])
	if newServer == "" {
		return "Invalid server IP"
	}
	from.Enqueue(serverpackets.ServerSwitch(newServer))
	return fmt.Sprintf("You have been connected to %s", newServer)
}

func (s *Server) cmdAnnounce(ctx context.Context, from *Token, channel string, args []string) string {
	s.sendBotMessage(ctx, "#announce", strings.Join(args, " "))
	return "Announcement successfully sent."
}

// mirrorBeatmapID figures out which map a mirror command refers to: the
// current pick in a multiplayer channel, the host's map in a spectator
// channel, the last /np'ed map otherwise. The second return value is a
// ready error reply.
func (s *Server) mirrorBeatmapID(from *Token, channel string) (int32, string) {
	if matchID, ok := multiChannelID(channel); ok {
		m, found := s.matches.Get(matchID)
		if !found {
			return 0, "This match doesn't seem to exist... Or does it...?"
		}
		return m.BeatmapID(), ""
	}
	if hostID, ok := spectChannelHostID(channel); ok {
		host, online := s.tokens.GetByUserID(hostID)
		if !online {
			return 0, "The spectator host is offline."
		}
		return host.Action().BeatmapID, ""
	}
	mapID, _, _ := from.Tillerino()
	if mapID == 0 {
		return 0, "You're currently not spectating or playing a match, if you wish to request " +
			"beatmap mirror /np it before!"
	}
	return mapID, ""
}

func (s *Server) cmdChimu(ctx context.Context, from *Token, channel string, args []string) string {
	mapID, errMsg := s.mirrorBeatmapID(from, channel)
	if errMsg != "" {
		return errMsg
	}
	return s.chimuMessage(ctx, mapID)
}

func (s *Server) cmdBeatconnect(ctx context.Context, from *Token, channel string, args []string) string {
	mapID, errMsg := s.mirrorBeatmapID(from, channel)
	if errMsg != "" {
		return errMsg
	}
	return s.beatconnectMessage(ctx, mapID)
}

func (s *Server) cmdMirror(ctx context.Context, from *Token, channel string, args []string) string {
	mapID, errMsg := s.mirrorBeatmapID(from, channel)
	if errMsg != "" {
		return errMsg
	}
	return s.mirrorMessage(ctx, mapID)
}

func (s *Server) mirrorRow(ctx context.Context, beatmapID int32) *db.BeatmapRow {
	row, err := s.beatmaps.GetByID(ctx, beatmapID)
	if err != nil {
		s.log.Error("loading beatmap for mirror", "beatmap_id", beatmapID, "error", err)
		return nil
	}
	return row
}

func (s *Server) chimuMessage(ctx context.Context, beatmapID int32) string {
	row := s.mirrorRow(ctx, beatmapID)
	if row == nil {
		return ""
	}
	return fmt.Sprintf("Download [https://chimu.moe/en/d/%d %s] from Chimu",
		row.BeatmapsetID, row.SongName)
}

func (s *Server) beatconnectMessage(ctx context.Context, beatmapID int32) string {
	row := s.mirrorRow(ctx, beatmapID)
	if row == nil {
		return ""
	}
	return fmt.Sprintf("Download [https://beatconnect.io/b/%d %s] from Beatconnect",
		row.BeatmapsetID, row.SongName)
}

func (s *Server) mirrorMessage(ctx context.Context, beatmapID int32) string {
	row := s.mirrorRow(ctx, beatmapID)
	if row == nil {
		return ""
	}
	return fmt.Sprintf("Download %s from [https://beatconnect.io/b/%d Beatconnect], "+
		"[https://chimu.moe/en/d/%d Chimu] or [osu://dl/%d osu!direct].",
		row.SongName, row.BeatmapsetID, row.BeatmapsetID, row.BeatmapsetID)
}

const helpPerPage = 5

func (s *Server) cmdHelp(ctx context.Context, from *Token, channel string, args []string) string {
	var permitted []*botCommand
	for i := range botCommands {
		cmd := &botCommands[i]
		if cmd.privileges != 0 && from.Privileges()&cmd.privileges == 0 {
			continue
		}
		if !strings.HasPrefix(cmd.trigger, "!") {
			continue
		}
		permitted = append(permitted, cmd)
	}
	pages := (len(permitted) + helpPerPage - 1) / helpPerPage

	index := 1
	if isDigits(args[0]) {
		n, _ := strconv.Atoi(args[0])
		if n < 1 || n > pages {
			return fmt.Sprintf("Invalid page number (1-%d)", pages)
		}
		index = n
	}

	start := helpPerPage * (index - 1)
	end := min(start+helpPerPage, len(permitted))
	lines := []string{
		fmt.Sprintf("--- %d of %d pages of commands currently available on RealistikOsu! ---", index, pages),
	}
	for i, cmd := range permitted[start:end] {
		doc := cmd.description
		if doc == "" {
			doc = "No description available."
		}
		name := cmd.trigger
		if cmd.syntax != "" {
			name += " " + cmd.syntax
		}
		lines = append(lines, fmt.Sprintf("%d. - %s - %s", 1+i+start, name, doc))
	}
	if index == 1 {
		lines = append(lines, "You can check syntax of individual command using !syntax <command eg. !help>")
	}
	return strings.Join(lines, "\n")
}

func (s *Server) cmdSyntax(ctx context.Context, from *Token, channel string, args []string) string {
	// !help is the only command whose argument is optional, special
	// case it.
	if args[0] == "!help" {
		return "Syntax: !help <Optional: page number>"
	}
	query := strings.Join(args, " ")
	for i := range botCommands {
		cmd := &botCommands[i]
		if cmd.trigger != query {
			continue
		}
		if cmd.privileges != 0 && from.Privileges()&cmd.privileges == 0 {
			return ""
		}
		syntax := cmd.syntax
		if syntax == "" {
			syntax = "<No syntax>"
		}
		return fmt.Sprintf("Syntax: %s %s", cmd.trigger, syntax)
	}
	return ""
}

func (s *Server) cmdStatus(ctx context.Context, from *Token, channel string, args []string) string {
	row, exists := s.UserStatus(from.UserID)
	if args[0] == "" {
		if !exists {
			return "You may not toggle your status if you do not have one! " +
				"You may create a new one using the command !status <your status>"
		}
		enabled := !row.Enabled
		if err := s.SetUserStatus(ctx, from.UserID, row.Status, enabled); err != nil {
			s.log.Error("toggling user status", "user_id", from.UserID, "error", err)
			return botProcessingError
		}
		word := "off"
		if enabled {
			word = "on"
		}
		return fmt.Sprintf("Your status has been toggled %s!", word)
	}

	newStatus := strings.Join(args, " ")
	if len(newStatus) > 256 {
		return fmt.Sprintf("This status is too long! (Max is 256, yours was %d)", len(newStatus))
	}
	if err := s.SetUserStatus(ctx, from.UserID, newStatus, true); err != nil {
		s.log.Error("saving user status", "user_id", from.UserID, "error", err)
		return botProcessingError
	}
	return fmt.Sprintf("Your status has been set to: %s", newStatus)
}

// ppMessage formats the pp values for the sender's current map, mods
// and accuracy selection.
func (s *Server) ppMessage(ctx context.Context, t *Token) string {
	mapID, mods, acc := t.Tillerino()
	res, err := s.pp.Calculate(ctx, mapID, mods, acc)
	if err != nil {
		s.log.Error("querying pp api", "beatmap_id", mapID, "error", err)
		return "Score server API timeout. Please try again in a few seconds."
	}
	if res.Status != 200 && res.Message != "" {
		return fmt.Sprintf("There has been an exception the in PP API (%s).", res.Message)
	}

	modsText := ""
	if mods != 0 {
		modsText = "+" + readableMods(mods)
	}
	if acc == -1 {
		if len(res.PP) < 4 {
			return botProcessingError
		}
		return fmt.Sprintf("%s %s\n| 100%% = %.2fpp | | 99%% = %.2fpp | | 98%% = %.2fpp | | 95%% = %.2fpp | ",
			res.SongName, modsText, res.PP[0], res.PP[1], res.PP[2], res.PP[3])
	}
	if len(res.PP) < 1 {
		return botProcessingError
	}
	return fmt.Sprintf("%s %s\n| %.2f%% = %.2fpp |", res.SongName, modsText, acc, res.PP[0])
}

func multiChannelID(channel string) (int32, bool) {
	raw, ok := strings.CutPrefix(strings.ToLower(channel), "#multi_")
	if !ok || !isDigits(raw) {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(id), true
}

func spectChannelHostID(channel string) (int32, bool) {
	raw, ok := strings.CutPrefix(strings.ToLower(channel), "#spect_")
	if !ok || !isDigits(raw) {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(id), true
}

func randomMatchPassword() string {
	sum := md5.Sum([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

// readableMods renders a mod bitmask the way the client spells them,
// e.g. 72 -> "HDDT".
func readableMods(mods int32) string {
	if mods == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range []struct {
		bit  int32
		name string
	}{
		{constants.ModNoFail, "NF"},
		{constants.ModEasy, "EZ"},
		{constants.ModTouchscreen, "TD"},
		{constants.ModHidden, "HD"},
		{constants.ModHardRock, "HR"},
		{constants.ModSuddenDeath, "SD"},
		{constants.ModDoubleTime, "DT"},
		{constants.ModRelax, "RX"},
		{constants.ModHalfTime, "HT"},
		{constants.ModNightcore, "NC"},
		{constants.ModFlashlight, "FL"},
		{constants.ModSpunOut, "SO"},
		{constants.ModAutopilot, "AP"},
		{constants.ModPerfect, "PF"},
		{constants.ModScoreV2, "V2"},
	} {
		if mods&m.bit != 0 {
			b.WriteString(m.name)
		}
	}
	return b.String()
}

// scoreGrade computes the letter grade of a finished play. SS and S
// become their silver variants under hidden or flashlight.
func scoreGrade(mode uint8, mods int32, acc float64, c300, c100, c50, cmiss int32) string {
	total := c300 + c100 + c50 + cmiss
	if total == 0 {
		return "F"
	}
	ss, sRank := "X", "S"
	if mods&(constants.ModHidden|constants.ModFlashlight) != 0 {
		ss, sRank = "XH", "SH"
	}

	switch mode {
	case constants.ModeStd, constants.ModeTaiko:
		ratio300 := float64(c300) / float64(total)
		ratio50 := float64(c50) / float64(total)
		switch {
		case ratio300 == 1:
			return ss
		case ratio300 > 0.9 && ratio50 <= 0.01 && cmiss == 0:
			return sRank
		case (ratio300 > 0.8 && cmiss == 0) || ratio300 > 0.9:
			return "A"
		case (ratio300 > 0.7 && cmiss == 0) || ratio300 > 0.8:
			return "B"
		case ratio300 > 0.6:
			return "C"
		default:
			return "D"
		}
	case constants.ModeCtb:
		switch {
		case acc == 100:
			return ss
		case acc > 98:
			return sRank
		case acc > 94:
			return "A"
		case acc > 90:
			return "B"
		case acc > 85:
			return "C"
		default:
			return "D"
		}
	case constants.ModeMania:
		switch {
		case acc == 100:
			return ss
		case acc > 95:
			return sRank
		case acc > 90:
			return "A"
		case acc > 80:
			return "B"
		case acc > 70:
			return "C"
		default:
			return "D"
		}
	}
	return "D"
}

// modeAccuracy computes osu! accuracy (in percent) for the given hit
// counts under each game mode's formula.
func modeAccuracy(mode uint8, c300, c100, c50, cmiss, ckatu, cgeki int32) float64 {
	switch mode {
	case constants.ModeTaiko:
		total := c300 + c100 + cmiss
		if total == 0 {
			return 0
		}
		return (float64(c100)*0.5 + float64(c300)) / float64(total) * 100
	case constants.ModeCtb:
		total := c300 + c100 + c50 + ckatu + cmiss
		if total == 0 {
			return 0
		}
		return float64(c300+c100+c50) / float64(total) * 100
	case constants.ModeMania:
		total := c300 + c100 + c50 + cgeki + ckatu + cmiss
		if total == 0 {
			return 0
		}
		return (float64(c50)*50 + float64(c100)*100 + float64(ckatu)*200 +
			float64(c300+cgeki)*300) / (float64(total) * 300) * 100
	default:
		total := c300 + c100 + c50 + cmiss
		if total == 0 {
			return 0
		}
		return (float64(c50)*50 + float64(c100)*100 + float64(c300)*300) /
			(float64(total) * 300) * 100
	}
}
