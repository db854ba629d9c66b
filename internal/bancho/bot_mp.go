package bancho

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/model"
)

// mpSubcommands, in the order !mp help lists them.
var mpSubcommands = []string{
	"make", "close", "join", "lock", "unlock", "size", "move", "host",
	"clearhost", "start", "invite", "map", "set", "abort", "kick",
	"password", "randompassword", "mods", "team", "settings", "scorev", "help",
}

func (s *Server) cmdMultiplayer(ctx context.Context, from *Token, channel string, args []string) string {
	sub := strings.ToLower(strings.TrimSpace(args[0]))
	reply, err := s.mpSubcommand(ctx, from, channel, sub, args)
	switch {
	case err == nil:
		return reply
	case errors.Is(err, ErrWrongChannel):
		return "This command only works in multiplayer chat channels"
	case errors.Is(err, ErrMatchNotFound):
		return "Match not found"
	default:
		return err.Error()
	}
}

// matchFromChannel resolves the #multi_<id> channel the command was
// typed in to its match.
func (s *Server) matchFromChannel(channel string) (*Match, error) {
	id, ok := multiChannelID(channel)
	if !ok {
		return nil, ErrWrongChannel
	}
	m, found := s.matches.Get(id)
	if !found {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

func (s *Server) mpSubcommand(ctx context.Context, from *Token, channel, sub string, args []string) (string, error) {
	switch sub {
	case "make":
		return s.mpMake(args)
	case "close":
		return s.mpClose(channel)
	case "join":
		return s.mpJoin(from, args)
	case "lock":
		return s.mpSetLocked(channel, true)
	case "unlock":
		return s.mpSetLocked(channel, false)
	case "size":
		return s.mpSize(channel, args)
	case "move":
		return s.mpMove(ctx, channel, args)
	case "host":
		return s.mpHost(ctx, channel, args)
	case "clearhost":
		return s.mpClearHost(channel)
	case "start":
		return s.mpStart(channel, args)
	case "invite":
		return s.mpInvite(ctx, channel, args)
	case "map":
		return s.mpMap(ctx, channel, args)
	case "set":
		return s.mpSet(channel, args)
	case "abort":
		return s.mpAbort(channel)
	case "kick":
		return s.mpKick(ctx, channel, args)
	case "password":
		return s.mpPassword(channel, args)
	case "randompassword":
		return s.mpRandomPassword(channel)
	case "mods":
		return s.mpMods(channel, args)
	case "team":
		return s.mpTeam(ctx, channel, args)
	case "settings":
		return s.mpSettings(channel, args)
	case "scorev":
		return s.mpScoreV(channel, args)
	case "help":
		return fmt.Sprintf("Supported subcommands: !mp <%s>", strings.Join(mpSubcommands, "|")), nil
	default:
		return "", errors.New("Invalid subcommand")
	}
}

func (s *Server) mpMake(args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("Wrong syntax: !mp make <name>")
	}
	name := strings.TrimSpace(strings.Join(args[1:], " "))
	if name == "" {
		return "", errors.New("Match name must not be empty!")
	}
	m := s.CreateMatch(name, randomMatchPassword(), 0, "Tournament", "", 0, -1, true)
	m.SendUpdates()
	return fmt.Sprintf("Tourney match #%d created!", m.ID), nil
}

func (s *Server) mpClose(channel string) (string, error) {
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	s.DisposeMatch(m.ID)
	return fmt.Sprintf("Multiplayer match #%d disposed successfully", m.ID), nil
}

func (s *Server) mpJoin(from *Token, args []string) (string, error) {
	if len(args) < 2 || !isDigits(args[1]) {
		return "", errors.New("Wrong syntax: !mp join <id>")
	}
	matchID, _ := strconv.ParseInt(args[1], 10, 32)

	var game *Token
	for _, t := range s.tokens.GetAllByUserID(from.UserID) {
		if !t.IRC {
			game = t
			break
		}
	}
	if game == nil {
		return "", fmt.Errorf("No game clients found for %s, can't join the match. "+
			"If you're a referee and you want to join the chat channel from IRC, "+
			"use /join #multi_%d instead.", from.Username, matchID)
	}
	if m, ok := s.matches.Get(int32(matchID)); ok {
		s.enterMatch(game, m)
	}
	return fmt.Sprintf("Attempting to join match #%d!", matchID), nil
}

func (s *Server) mpSetLocked(channel string, locked bool) (string, error) {
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	m.SetLocked(locked)
	if locked {
		return "This match has been locked", nil
	}
	return "This match has been unlocked", nil
}

func (s *Server) mpSize(channel string, args []string) (string, error) {
	if len(args) < 2 || !isDigits(args[1]) {
		return "", errors.New("Wrong syntax: !mp size <slots(2-16)>")
	}
	size, _ := strconv.Atoi(args[1])
	if size < 2 || size > 16 {
		return "", errors.New("Wrong syntax: !mp size <slots(2-16)>")
	}
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	m.ForceSize(size)
	return fmt.Sprintf("Match size changed to %d", size), nil
}

func (s *Server) mpMove(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 3 || !isDigits(args[2]) {
		return "", errors.New("Wrong syntax: !mp move <username> <slot>")
	}
	slot, _ := strconv.Atoi(args[2])
	if slot < 0 || slot > 16 {
		return "", errors.New("Wrong syntax: !mp move <username> <slot>")
	}
	username := args[1]
	userID := s.resolveUserID(ctx, model.SafeUsername(username))
	if userID == 0 {
		return "", errors.New("No such user")
	}
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	if !m.ChangeSlot(userID, slot) {
		return "You can't use that slot: it's either already occupied by someone else or locked", nil
	}
	return fmt.Sprintf("Player %s moved to slot %d", username, slot), nil
}

func (s *Server) mpHost(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("Wrong syntax: !mp host <username>")
	}
	username := strings.TrimSpace(args[1])
	if username == "" {
		return "", errors.New("Please provide a username")
	}
	userID := s.resolveUserID(ctx, model.SafeUsername(username))
	if userID == 0 {
		return "", errors.New("No such user")
	}
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	if !m.SetHost(userID) {
		return fmt.Sprintf("Couldn't give host to %s", username), nil
	}
	return fmt.Sprintf("%s is now the host", username), nil
}

func (s *Server) mpClearHost(channel string) (string, error) {
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	m.RemoveHost()
	return "Host has been removed from this match", nil
}

func (s *Server) mpStart(channel string, args []string) (string, error) {
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	countdown := 0
	if len(args) >= 2 && isDigits(args[1]) {
		countdown, _ = strconv.Atoi(args[1])
	}
	// "force" may follow the countdown or stand in for it.
	force := len(args) >= 2 && strings.EqualFold(args[len(args)-1], "force")

	if !force {
		for _, sl := range m.Slots() {
			if sl.TokenID != "" && sl.Status != constants.SlotReady {
				return "Some users aren't ready yet. Use '!mp start force' if you want to " +
					"start the match, even with non-ready players.", nil
			}
		}
	}

	if countdown == 0 {
		s.finishMatchStart(context.Background(), m, force)
		return "Starting match", nil
	}
	m.SetStarting(true)
	go s.matchStartCountdown(m, countdown, force)
	return fmt.Sprintf("Match starts in %d seconds. The match has been locked. "+
		"Please don't leave the match during the countdown "+
		"or you might receive a penalty.", countdown), nil
}

func (s *Server) finishMatchStart(ctx context.Context, m *Match, force bool) {
	if m.Start(force) {
		s.sendBotMessage(ctx, matchChannel(m.ID), "Have fun!")
		return
	}
	s.sendBotMessage(ctx, matchChannel(m.ID), "Couldn't start match. Make sure there are "+
		"enough players and teams are valid. The match has been unlocked.")
}

// matchStartCountdown ticks down to a deferred start, announcing every
// ten seconds and each of the last five.
func (s *Server) matchStartCountdown(m *Match, seconds int, force bool) {
	for t := seconds - 1; t > 0; t-- {
		time.Sleep(time.Second)
		if _, ok := s.matches.Get(m.ID); !ok {
			return
		}
		if t%10 == 0 || t <= 5 {
			s.sendBotMessage(context.Background(), matchChannel(m.ID),
				fmt.Sprintf("Match starts in %d seconds.", t))
		}
	}
	time.Sleep(time.Second)
	if _, ok := s.matches.Get(m.ID); !ok {
		return
	}
	s.finishMatchStart(context.Background(), m, force)
}

func (s *Server) mpInvite(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("Wrong syntax: !mp invite <username>")
	}
	username := strings.TrimSpace(args[1])
	if username == "" {
		return "", errors.New("Please provide a username")
	}
	userID := s.resolveUserID(ctx, model.SafeUsername(username))
	if userID == 0 {
		return "", errors.New("No such user")
	}
	var target *Token
	for _, t := range s.tokens.GetAllByUserID(userID) {
		if !t.IRC {
			target = t
			break
		}
	}
	if target == nil {
		return "", errors.New("That user is not connected to bancho right now.")
	}
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	m.Invite(constants.BotUserID, userID)
	target.Enqueue(serverpackets.Notification(
		fmt.Sprintf("Please accept the invite you've just received from %s to "+
			"enter your tourney match.", s.BotName())))
	return fmt.Sprintf("An invite to this match has been sent to %s", username), nil
}

func (s *Server) mpMap(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 2 || !isDigits(args[1]) || (len(args) == 3 && !isDigits(args[2])) {
		return "", errors.New("Wrong syntax: !mp map <beatmapid> [<gamemode>]")
	}
	beatmapID, _ := strconv.ParseInt(args[1], 10, 32)
	gameMode := 0
	if len(args) == 3 {
		gameMode, _ = strconv.Atoi(args[2])
	}
	if gameMode < 0 || gameMode > 3 {
		return "", errors.New("Gamemode must be 0, 1, 2 or 3")
	}
	row, err := s.beatmaps.GetByID(ctx, int32(beatmapID))
	if err != nil {
		s.log.Error("loading beatmap", "beatmap_id", beatmapID, "error", err)
		return botProcessingError, nil
	}
	if row == nil {
		return "", errors.New("The beatmap you've selected couldn't be found in the database." +
			"If the beatmap id is valid, please load the scoreboard first in " +
			"order to cache it, then try again.")
	}
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	m.SetBeatmap(int32(beatmapID), row.SongName, row.MD5, uint8(gameMode))
	return "Match map has been updated", nil
}

func (s *Server) mpSet(channel string, args []string) (string, error) {
	if len(args) < 2 || !isDigits(args[1]) ||
		(len(args) >= 3 && !isDigits(args[2])) ||
		(len(args) >= 4 && !isDigits(args[3])) {
		return "", errors.New("Wrong syntax: !mp set <teammode> [<scoremode>] [<size>]")
	}
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	teamType, _ := strconv.Atoi(args[1])
	scoringType := int(m.Data(false).ScoringType)
	if len(args) >= 3 {
		scoringType, _ = strconv.Atoi(args[2])
	}
	if teamType < 0 || teamType > 3 {
		return "", errors.New("Match team type must be between 0 and 3")
	}
	if scoringType < 0 || scoringType > 3 {
		return "", errors.New("Match scoring type must be between 0 and 3")
	}
	m.SetTeamScoring(uint8(teamType), uint8(scoringType))
	if len(args) >= 4 {
		size, _ := strconv.Atoi(args[3])
		m.ForceSize(size)
	}
	return "Match settings have been updated!", nil
}

func (s *Server) mpAbort(channel string) (string, error) {
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	m.Abort()
	return "Match aborted!", nil
}

func (s *Server) mpKick(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("Wrong syntax: !mp kick <username>")
	}
	username := strings.TrimSpace(args[1])
	if username == "" {
		return "", errors.New("Please provide a username")
	}
	userID := s.resolveUserID(ctx, model.SafeUsername(username))
	if userID == 0 {
		return "", errors.New("No such user")
	}
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	slot := m.UserSlot(userID)
	if slot == -1 {
		return "", errors.New("The specified user is not in this match")
	}
	// Locking an occupied slot kicks its player, the second toggle
	// reopens the slot.
	m.ToggleSlotLock(slot)
	m.ToggleSlotLock(slot)
	return fmt.Sprintf("%s has been kicked from the match.", username), nil
}

func (s *Server) mpPassword(channel string, args []string) (string, error) {
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	password := ""
	if len(args) >= 2 && strings.TrimSpace(args[1]) != "" {
		password = args[1]
	}
	m.ChangePassword(password)
	return "Match password has been changed!", nil
}

func (s *Server) mpRandomPassword(channel string) (string, error) {
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	m.ChangePassword(randomMatchPassword())
	return "Match password has been changed to a random one", nil
}

func (s *Server) mpMods(channel string, args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("Wrong syntax: !mp <mod1> [<mod2>] ...")
	}
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	var newMods int32
	freeMod := false
	for _, raw := range args[1:] {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "hd":
			newMods |= constants.ModHidden
		case "hr":
			newMods |= constants.ModHardRock
		case "dt":
			newMods |= constants.ModDoubleTime
		case "fl":
			newMods |= constants.ModFlashlight
		case "fi":
			newMods |= constants.ModFadeIn
		case "ez":
			newMods |= constants.ModEasy
		case "none":
			newMods = 0
		case "freemod":
			freeMod = true
		}
	}
	m.SetMods(newMods, freeMod)
	return "Match mods have been updated!", nil
}

func (s *Server) mpTeam(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 3 {
		return "", errors.New("Wrong syntax: !mp team <username> <colour>")
	}
	username := strings.TrimSpace(args[1])
	if username == "" {
		return "", errors.New("Please provide a username")
	}
	colour := strings.ToLower(strings.TrimSpace(args[2]))
	if colour != "red" && colour != "blue" {
		return "", errors.New("Team colour must be red or blue")
	}
	userID := s.resolveUserID(ctx, model.SafeUsername(username))
	if userID == 0 {
		return "", errors.New("No such user")
	}
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	team := constants.MatchTeamRed
	if colour == "blue" {
		team = constants.MatchTeamBlue
	}
	m.ChangeTeam(userID, int8(team))
	return fmt.Sprintf("%s is now in %s team", username, colour), nil
}

func (s *Server) mpSettings(channel string, args []string) (string, error) {
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	single := len(args) >= 2 && strings.ToLower(strings.TrimSpace(args[1])) == "single"

	var b strings.Builder
	b.WriteString("PLAYERS IN THIS MATCH ")
	if single {
		b.WriteString(": ")
	} else {
		b.WriteString("(use !mp settings single for a single-line version):\n")
	}

	empty := true
	for _, sl := range m.Slots() {
		if sl.TokenID == "" {
			continue
		}
		t, ok := s.tokens.Get(sl.TokenID)
		if !ok {
			continue
		}
		empty = false

		var status string
		switch sl.Status {
		case constants.SlotReady:
			status = "ready"
		case constants.SlotNotReady:
			status = "not ready"
		case constants.SlotNoMap:
			status = "no map"
		case constants.SlotPlaying:
			status = "playing"
		default:
			status = "???"
		}
		team := "!! no team !!"
		switch sl.Team {
		case constants.MatchTeamRed:
			team = "red"
		case constants.MatchTeamBlue:
			team = "blue"
		}
		mods := ""
		if sl.Mods > 0 {
			mods = fmt.Sprintf(" (+ %s)", readableMods(sl.Mods))
		}
		nl := "\n"
		if single {
			nl = " | "
		}
		fmt.Fprintf(&b, "* [%s] <%s> ~ %s%s%s", team, status, t.Username, mods, nl)
	}
	if empty {
		b.WriteString("Nobody.\n")
	}
	msg := b.String()
	if single {
		msg = strings.TrimRight(msg, " |")
	} else {
		msg = strings.TrimRight(msg, "\n")
	}
	return msg, nil
}

func (s *Server) mpScoreV(channel string, args []string) (string, error) {
	if len(args) < 2 || (args[1] != "1" && args[1] != "2") {
		return "", errors.New("Wrong syntax: !mp scorev <1|2>")
	}
	m, err := s.matchFromChannel(channel)
	if err != nil {
		return "", err
	}
	scoring := constants.MatchScoringScore
	if args[1] == "2" {
		scoring = constants.MatchScoringScoreV2
	}
	m.SetScoringType(scoring)
	return fmt.Sprintf("Match scoring type set to scorev%s", args[1]), nil
}
