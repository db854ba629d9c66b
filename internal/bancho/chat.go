package bancho

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/model"
)

// spamRateLimit is the number of sends allowed per reset window before
// the auto silence fires.
const spamRateLimit = 10

// isSpecialChannel reports whether the name is a per-match or
// per-spectator channel game clients may not enter by name.
func isSpecialChannel(name string) bool {
	return strings.HasPrefix(name, "#spect_") || strings.HasPrefix(name, "#multi_")
}

// resolveChannelAlias maps the two virtual client names to the real
// channel bound to the session's current spectator or match context.
func (s *Server) resolveChannelAlias(t *Token, name string) string {
	switch name {
	case "#spectator":
		host := t.SpectatingUser()
		if t.SpectatorOf() == "" {
			host = t.UserID
		}
		return fmt.Sprintf("#spect_%d", host)
	case "#multiplayer":
		return fmt.Sprintf("#multi_%d", t.MatchID())
	default:
		return name
	}
}

// joinChannel subscribes the session to a channel. force lets internal
// flows enter the special channels.
func (s *Server) joinChannel(t *Token, name string, force bool) error {
	ch, ok := s.channels.Get(name)
	if !ok {
		return ErrChannelUnknown
	}
	if isSpecialChannel(name) && !t.IRC && !force {
		return ErrChannelUnknown
	}
	if t.InChannel(name) {
		return ErrUserAlreadyInChannel
	}
	if !ch.PublicRead && !t.Admin() {
		return ErrChannelNoPermissions
	}

	t.addChannel(name)
	s.streams.Join(chatStream(name), t)
	t.Enqueue(serverpackets.ChannelJoinSuccess(clientChannelName(name)))
	s.log.Info("joined channel", "username", t.Username, "channel", name)
	return nil
}

// partChannel unsubscribes the session from a channel. A name without
// the # prefix is a PM tab close and is silently ignored. kick makes
// the client close the tab; force lets internal flows part the special
// channels.
func (s *Server) partChannel(t *Token, name string, kick, force bool) error {
	if !strings.HasPrefix(name, "#") {
		return nil
	}
	name = s.resolveChannelAlias(t, name)
	clientName := clientChannelName(name)

	ch, ok := s.channels.Get(name)
	if !ok {
		return ErrChannelUnknown
	}
	if isSpecialChannel(name) && !t.IRC && !force {
		return ErrChannelUnknown
	}
	if !t.InChannel(name) {
		return ErrUserNotInChannel
	}

	t.removeChannel(name)
	s.streams.Leave(chatStream(name), t)

	if ch.Temp && s.streams.ClientCount(chatStream(name)) == 0 {
		s.RemoveChannel(name)
	}
	if kick {
		t.Enqueue(serverpackets.ChannelKicked(clientName))
	}
	s.log.Info("parted channel", "username", t.Username, "channel", name)
	return nil
}

// sendMessage delivers a chat line to a channel or a user, then runs
// spam protection and the bot dispatcher. The returned ChatError names
// the rejection rule when delivery failed.
func (s *Server) sendMessage(ctx context.Context, t *Token, to, message string) error {
	if t.Restricted() {
		return ErrUserRestricted
	}
	if t.Silenced() {
		t.Enqueue(serverpackets.SilenceEndNotify(uint32(t.SilenceSecondsLeft())))
		return ErrUserSilenced
	}

	// Reports go to the bot no matter where they were typed.
	if strings.HasPrefix(message, "!report") {
		to = s.BotName()
	}

	target := s.resolveChannelAlias(t, to)
	clientTarget := clientChannelName(target)

	if strings.TrimSpace(message) == "" {
		return ErrInvalidArguments
	}
	if len(message) > 2048 {
		message = message[:2045] + "..."
	}

	packet := serverpackets.MessageNotify(t.Username, message, clientTarget, t.UserID)
	isChannel := strings.HasPrefix(target, "#")

	if isChannel {
		ch, ok := s.channels.Get(target)
		if !ok {
			return ErrChannelUnknown
		}
		if ch.Moderated() && !t.Admin() {
			return ErrChannelModerated
		}
		if !t.InChannel(target) && t.UserID != constants.BotUserID {
			return ErrChannelNoPermissions
		}
		if !ch.PublicWrite && !t.Admin() {
			return ErrChannelNoPermissions
		}

		t.AppendMessageLine(target, message)
		s.streams.Broadcast(chatStream(target), packet, t.ID)
		// The special channels overlap and live too briefly to archive.
		if clientTarget != "#multiplayer" && clientTarget != "#spectator" {
			s.logChannelMessage(ctx, t, target, message)
		}
	} else {
		recipient, ok := s.tokens.GetByName(to)
		if !ok {
			// Offline but real users still get the line archived.
			if id, err := s.users.GetIDBySafeName(ctx, model.SafeUsername(to)); err == nil && id != 0 {
				s.logPrivateMessage(ctx, t, id, message)
			}
			return ErrUserNotFound
		}
		if recipient.Restricted() && t.UserID != constants.BotUserID {
			return ErrUserRestricted
		}
		if recipient.AwayConfirm(t.UserID) {
			away := "\x01ACTION is away: " + recipient.AwayMessage() + "\x01"
			if err := s.sendMessage(ctx, recipient, t.Username, away); err != nil {
				s.log.Debug("away auto-reply", "from", recipient.Username, "error", err)
			}
		}
		recipient.Enqueue(packet)
		s.logPrivateMessage(ctx, t, recipient.UserID, message)
	}

	s.metrics.MessagesTotal.Inc()

	if t.UserID != constants.BotUserID && !t.Admin() {
		s.spamProtection(ctx, t)
	}

	if isChannel || strings.EqualFold(to, s.BotName()) {
		if reply := s.botResponse(ctx, t, target, message); reply != "" {
			dest := target
			if !isChannel {
				dest = t.Username
			}
			s.sendBotMessage(ctx, dest, reply)
		}
	}

	if isChannel && !(strings.HasPrefix(message, "\x01ACTION is playing") && strings.HasPrefix(target, "#spect_")) {
		s.log.Info("chat", "from", t.Username, "to", target, "message", message)
	}
	return nil
}

// sendBotMessage delivers a line from the bot session. Used by the bot
// dispatcher, the pubsub intake and the API injection endpoint.
func (s *Server) sendBotMessage(ctx context.Context, to, message string) {
	bot, ok := s.tokens.GetByUserID(constants.BotUserID)
	if !ok {
		return
	}
	if err := s.sendMessage(ctx, bot, to, message); err != nil {
		s.log.Warn("bot message dropped", "to", to, "error", err)
	}
}

// spamProtection counts a send and silences the flooder once the rate
// passes the limit. The counter is reset by the background loop.
func (s *Server) spamProtection(ctx context.Context, t *Token) {
	if t.IncSpamRate() > spamRateLimit {
		s.Silence(ctx, t, 1800, "Spamming (auto spam protection)")
	}
}

// logChannelMessage archives a channel line and notifies the API bus.
func (s *Server) logChannelMessage(ctx context.Context, t *Token, channel, message string) {
	if err := s.chatLogs.LogChannel(ctx, t.UserID, channel, message); err != nil {
		s.log.Error("archiving channel message", "channel", channel, "error", err)
	}
	s.publishNewMessage(ctx, t.UserID, channel, message)
}

// logPrivateMessage archives a PM and notifies the API bus.
func (s *Server) logPrivateMessage(ctx context.Context, t *Token, toID int32, message string) {
	if err := s.chatLogs.LogPrivate(ctx, t.UserID, toID, message); err != nil {
		s.log.Error("archiving private message", "to_id", toID, "error", err)
	}
	s.publishNewMessage(ctx, t.UserID, toID, message)
}

// publishNewMessage tells the API about a fresh chat log entry. target
// is the channel name or the recipient user id.
func (s *Server) publishNewMessage(ctx context.Context, fromID int32, target any, content string) {
	payload, _ := json.Marshal(map[string]any{
		"user_id": fromID,
		"target":  target,
		"content": content,
	})
	if err := s.rdb.Publish(ctx, "rosu:new_message_notify", payload).Err(); err != nil {
		s.log.Error("publishing message notify", "error", err)
	}
}
