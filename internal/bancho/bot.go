package bancho

import (
	"context"
	"fmt"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/model"
)

// botProcessingError is what players see when a command handler fails
// in a way we did not anticipate.
const botProcessingError = "There was issue while processing your command, " +
	"please report this to RealistikOsu developer!"

// connectBot opens the bot session. The bot lives in the token list
// like any player, with a fixed action and vanity stats, but never
// receives packets.
func (s *Server) connectBot() {
	ctx := context.Background()
	if _, ok := s.tokens.GetByUserID(constants.BotUserID); ok {
		return
	}

	user, err := s.users.GetByID(ctx, constants.BotUserID)
	if err != nil {
		s.log.Error("loading bot account", "error", err)
	}
	if user == nil {
		// Работаем даже без строки в базе: имя по умолчанию.
		user = &model.User{
			ID:           constants.BotUserID,
			Username:     constants.BotName,
			UsernameSafe: model.SafeUsername(constants.BotName),
			Privileges:   constants.UserPublic | constants.UserNormal,
		}
	}
	s.confMu.Lock()
	s.botName = user.Username
	s.confMu.Unlock()

	t := s.CreateToken(ctx, user, "", false, 0)
	t.SetAction(model.Action{ID: constants.ActionWatching, Text: "over RealistikOsu!"})
	t.SetStats(model.Stats{Accuracy: 0.69, Playcount: 69, TotalScore: 1337, PP: 69})
	t.SetCountryID(2)
	t.SetLocation(model.Location{Latitude: 39.01955903386848, Longitude: 125.75276158057767})

	s.streams.Broadcast(StreamMain, presencePacket(t))
	s.streams.Broadcast(StreamMain, statsPacket(t))
	s.log.Info("bot connected", "username", user.Username)
}

// BotName returns the bot's display name, resolved from the database
// when its session was created.
func (s *Server) BotName() string {
	s.confMu.RLock()
	defer s.confMu.RUnlock()
	if s.botName == "" {
		return constants.BotName
	}
	return s.botName
}

func (s *Server) botIntro() string {
	return fmt.Sprintf("Hello I'm %s! The server's official bot to assist you, "+
		"if you want to know what I can do just type !help", s.BotName())
}

// botHandler runs a chat command. Return "" for no reply.
type botHandler func(s *Server, ctx context.Context, from *Token, channel string, args []string) string

type botCommand struct {
	trigger     string
	syntax      string
	privileges  int32
	description string
	re          *regexp.Regexp
	handler     botHandler
}

// botCommands is scanned in order, first match wins. The order also
// drives !help pagination. Assigned in init to break the initialization
// cycle with handlers that read the table back (e.g. cmdHelp).
var botCommands []botCommand

func init() {
	botCommands = compileBotCommands([]botCommand{
		{
			trigger:     "!map",
			syntax:      "<rank/love/unrank> <set/map>",
			privileges:  constants.AdminManageBeatmaps,
			description: "Edit the ranked status of the last /np'ed map.",
			handler:     (*Server).cmdEditMap,
		},
		{
			trigger:     "!ir",
			privileges:  constants.AdminManageServers,
			description: "Restarts Bancho instantly.",
			handler:     (*Server).cmdInstantRestart,
		},
		{
			trigger:     "!roll",
			description: "Rolls a number between 0 and 100 (or provided number).",
			handler:     (*Server).cmdRoll,
		},
		{
			trigger:     "!alert",
			syntax:      "<message>",
			privileges:  constants.AdminSendAlerts,
			description: "Sends a notification to all currently online members.",
			handler:     (*Server).cmdAlert,
		},
		{
			trigger:     "!alertuser",
			syntax:      "<username> <message>",
			privileges:  constants.AdminSendAlerts,
			description: "Sends a notification to a specific user.",
			handler:     (*Server).cmdAlertUser,
		},
		{
			trigger:    "!moderated",
			privileges: constants.AdminChatMod,
			handler:    (*Server).cmdModerated,
		},
		{
			trigger:     "!kickall",
			privileges:  constants.AdminManageServers,
			description: "Kicks all members from the server (except staff).",
			handler:     (*Server).cmdKickAll,
		},
		{
			trigger:     "!kick",
			syntax:      "<target>",
			privileges:  constants.AdminKickUsers,
			description: "Kicks a specific member from the server.",
			handler:     (*Server).cmdKick,
		},
		{
			trigger:     "!bot reconnect",
			privileges:  constants.AdminManageServers,
			description: "Forces the bot to reconnect.",
			handler:     (*Server).cmdBotReconnect,
		},
		{
			trigger:     "!silence",
			syntax:      "<target> <amount> <unit(s/m/h/d)> <reason>",
			privileges:  constants.AdminSilenceUsers,
			description: "Silences a specific user for a specific interval.",
			handler:     (*Server).cmdSilence,
		},
		{
			trigger:     "!removesilence",
			syntax:      "<target>",
			privileges:  constants.AdminSilenceUsers,
			description: "Unsilences a specific user.",
			handler:     (*Server).cmdRemoveSilence,
		},
		{
			trigger:     "!ban",
			syntax:      "<target>",
			privileges:  constants.AdminBanUsers,
			description: "Bans a specific user.",
			handler:     (*Server).cmdBan,
		},
		{
			trigger:     "!unban",
			syntax:      "<target>",
			privileges:  constants.AdminBanUsers,
			description: "Unans a specific user.",
			handler:     (*Server).cmdUnban,
		},
		{
			trigger:     "!restrict",
			syntax:      `<target> "summary" "detail"`,
			privileges:  constants.AdminBanUsers,
			description: "Restricts a specific user.",
			handler:     (*Server).cmdRestrict,
		},
		{
			trigger:     "!freeze",
			syntax:      "<target>",
			privileges:  constants.AdminManageUsers,
			description: "Freezes a specific user.",
			handler:     (*Server).cmdFreeze,
		},
		{
			trigger:     "!unfreeze",
			syntax:      "<target>",
			privileges:  constants.AdminManageUsers,
			description: "Unfreezes a specific user.",
			handler:     (*Server).cmdUnfreeze,
		},
		{
			trigger:     "!username",
			syntax:      "<new username>",
			privileges:  constants.UserDonor,
			description: "Lets you change your username.",
			handler:     (*Server).cmdChangeUsername,
		},
		{
			trigger:     "!unrestrict",
			syntax:      "<target>",
			privileges:  constants.AdminBanUsers,
			description: "Unrestricts a specific user.",
			handler:     (*Server).cmdUnrestrict,
		},
		{
			trigger:    "!system restart",
			privileges: constants.AdminManageServers,
			handler:    (*Server).cmdSystemRestart,
		},
		{
			trigger:    "!system shutdown",
			privileges: constants.AdminManageServers,
			handler:    (*Server).cmdSystemShutdown,
		},
		{
			trigger:    "!system reload",
			privileges: constants.AdminManageServers,
			handler:    (*Server).cmdSystemReload,
		},
		{
			trigger:    "!system maintenance",
			privileges: constants.AdminManageServers,
			handler:    (*Server).cmdSystemMaintenance,
		},
		{
			trigger:     "!system status",
			privileges:  constants.AdminManageServers,
			description: "Shows the current server status.",
			handler:     (*Server).cmdSystemStatus,
		},
		{
			trigger:     "\x01ACTION",
			description: "Displays PP stats for a specific map.",
			handler:     (*Server).cmdNowPlaying,
		},
		{
			trigger:     "!with",
			syntax:      "<mods>",
			description: "Displays the PP stats for a specific map with specific mods.",
			handler:     (*Server).cmdWith,
		},
		{
			trigger:     "!acc",
			syntax:      "<accuracy>",
			description: "Displays the PP stats for a specific map with a specific accuracy.",
			handler:     (*Server).cmdAcc,
		},
		{
			trigger: "!last",
			handler: (*Server).cmdLast,
		},
		{
			trigger:     "!report",
			description: "Reports a specific user.",
			handler:     (*Server).cmdReport,
		},
		{
			trigger:     "!mp",
			syntax:      "<subcommand>",
			privileges:  constants.UserTournamentStaff,
			description: "All the multiplayer subcommands.",
			handler:     (*Server).cmdMultiplayer,
		},
		{
			trigger:    "!switchserver",
			syntax:     "<server_url>",
			privileges: constants.AdminManageServers,
			handler:    (*Server).cmdSwitchServer,
		},
		{
			trigger:    "!announce",
			syntax:     "<announcement>",
			privileges: constants.AdminSendAlerts,
			handler:    (*Server).cmdAnnounce,
		},
		{
			trigger:     "!chimu",
			description: "Gets a download URL for the beatmap from Chimu.",
			handler:     (*Server).cmdChimu,
		},
		{
			trigger:     "!beatconnect",
			description: "Gets a download URL for the beatmap from Beatconnect.",
			handler:     (*Server).cmdBeatconnect,
		},
		{
			trigger:     "!mirror",
			description: "Gets a download URL for the beatmap from various mirrors.",
			handler:     (*Server).cmdMirror,
		},
		{
			trigger:     "!help",
			description: "Lists all currently available commands!",
			handler:     (*Server).cmdHelp,
		},
		{
			trigger:     "!syntax",
			syntax:      "<command>",
			description: "Shows syntax of given command",
			handler:     (*Server).cmdSyntax,
		},
		{
			trigger:     "!status",
			syntax:      "<status>",
			description: "Sets a status for a user.",
			handler:     (*Server).cmdStatus,
		},
	})
}

func compileBotCommands(cmds []botCommand) []botCommand {
	for i := range cmds {
		cmds[i].re = regexp.MustCompile("^" + regexp.QuoteMeta(cmds[i].trigger) + "( (.+)?)?$")
	}
	return cmds
}

// botResponse runs the chat line through the command table and returns
// the bot's reply, "" for none. Non-command private messages get the
// introduction line.
func (s *Server) botResponse(ctx context.Context, from *Token, channel, message string) string {
	if from.UserID == constants.BotUserID || message == "" {
		return ""
	}
	if message[0] != '!' && message[0] != '\x01' && !strings.HasPrefix(channel, "#") {
		return s.botIntro()
	}

	start := time.Now()
	for i := range botCommands {
		cmd := &botCommands[i]
		if !cmd.re.MatchString(message) {
			continue
		}
		args := strings.Split(strings.TrimSpace(strings.TrimPrefix(message, cmd.trigger)), " ")
		if cmd.privileges != 0 && from.Privileges()&cmd.privileges == 0 {
			return ""
		}
		if cmd.syntax != "" && len(args) < len(strings.Split(cmd.syntax, " ")) {
			return fmt.Sprintf("Wrong syntax: %s %s", cmd.trigger, cmd.syntax)
		}
		return s.runBotCommand(ctx, cmd, from, channel, args, start)
	}
	return ""
}

// runBotCommand executes a matched command. Panics become a canned
// apology; admins additionally get the panic value and the timing.
func (s *Server) runBotCommand(ctx context.Context, cmd *botCommand, from *Token, channel string, args []string, start time.Time) (resp string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("bot command panicked",
				"trigger", cmd.trigger, "from", from.Username, "panic", r,
				"stack", string(debug.Stack()))
			lines := []string{botProcessingError}
			if from.Admin() {
				lines = append(lines, fmt.Sprint(r),
					fmt.Sprintf("Elasped: %.2fms", elapsedMillis(start)))
			}
			resp = strings.Join(lines, "\n")
		}
	}()

	resp = cmd.handler(s, ctx, from, channel, args)
	if resp == "" {
		return ""
	}
	if from.Admin() {
		resp += fmt.Sprintf(" | Elapsed: %.2fms", elapsedMillis(start))
	}
	return resp
}

func elapsedMillis(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / 1e6
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// sendBotNotification pushes an in-client notification, or a bot PM
// for IRC sessions which cannot render packets.
func (s *Server) sendBotNotification(ctx context.Context, to *Token, message string) {
	if to.IRC {
		s.sendBotMessage(ctx, to.Username, message)
		return
	}
	to.Enqueue(serverpackets.Notification(message))
}
