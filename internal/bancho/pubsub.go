package bancho

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/constants"
)

const unrestrictedNotice = "Your account has been unrestricted! Please re-log to refresh your status."

// pubSubTopics is the fixed control surface other services publish on:
// the website and the score server drive bancho-side effects through
// these channels.
var pubSubTopics = []string{
	"peppy:disconnect",
	"peppy:change_username",
	"peppy:reload_settings",
	"peppy:update_cached_stats",
	"peppy:silence",
	"peppy:ban",
	"peppy:notification",
	"peppy:set_main_menu_icon",
	"peppy:refresh_privs",
	"peppy:change_pass",
	"peppy:bot_msg",
}

// RunPubSub consumes the redis control topics until ctx is cancelled.
// Handler failures are logged, never fatal, and a payload naming a user
// who is not online is silently ignored. go-redis reconnects the
// subscription on its own, so the loop only ever exits with the context.
func (s *Server) RunPubSub(ctx context.Context) error {
	sub := s.rdb.Subscribe(ctx, pubSubTopics...)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.metrics.PubSubTotal.WithLabelValues(msg.Channel).Inc()
			if err := s.handlePubSub(ctx, msg.Channel, []byte(msg.Payload)); err != nil {
				s.log.Error("pubsub handler failed", "channel", msg.Channel, "error", err)
			}
		}
	}
}

func (s *Server) handlePubSub(ctx context.Context, channel string, payload []byte) error {
	switch channel {
	case "peppy:disconnect":
		return s.pubSubDisconnect(ctx, payload)
	case "peppy:change_username":
		return s.pubSubChangeUsername(ctx, payload)
	case "peppy:reload_settings":
		if string(payload) != "reload" {
			return nil
		}
		return s.ReloadSettings(ctx)
	case "peppy:update_cached_stats":
		return s.pubSubUpdateStats(ctx, payload)
	case "peppy:silence":
		return s.pubSubSilence(ctx, payload)
	case "peppy:ban":
		return s.pubSubBan(ctx, payload)
	case "peppy:notification":
		return s.pubSubNotification(payload)
	case "peppy:set_main_menu_icon":
		return s.pubSubMenuIcon(ctx, payload)
	case "peppy:refresh_privs":
		return s.pubSubRefreshPrivileges(ctx, payload)
	case "peppy:change_pass":
		return s.pubSubChangePassword(payload)
	case "peppy:bot_msg":
		return s.pubSubBotMessage(ctx, payload)
	}
	return nil
}

func (s *Server) pubSubDisconnect(ctx context.Context, payload []byte) error {
	var req struct {
		UserID int32 `json:"userID"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding disconnect payload: %w", err)
	}
	t, ok := s.tokens.GetByUserID(req.UserID)
	if !ok {
		return nil
	}
	s.Logout(ctx, t)
	return nil
}

func (s *Server) pubSubChangeUsername(ctx context.Context, payload []byte) error {
	var req struct {
		UserID      int32  `json:"userID"`
		NewUsername string `json:"newUsername"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding change_username payload: %w", err)
	}
	t, ok := s.tokens.GetByUserID(req.UserID)
	if !ok {
		return nil
	}
	s.Kick(ctx, t,
		fmt.Sprintf("Your username has been changed to %s. Please log in again.", req.NewUsername),
		"username change")
	return nil
}

func (s *Server) pubSubUpdateStats(ctx context.Context, payload []byte) error {
	var req struct {
		UserID int32 `json:"userID"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding update_cached_stats payload: %w", err)
	}
	t, ok := s.tokens.GetByUserID(req.UserID)
	if !ok {
		return nil
	}
	if err := s.RefreshStats(ctx, t); err != nil {
		return fmt.Errorf("refreshing stats for %d: %w", req.UserID, err)
	}
	t.Enqueue(statsPacket(t))
	return nil
}

// pubSubSilence re-reads the silence expiry from the database and
// reapplies it to the live session, so website-issued silences reach
// connected clients.
func (s *Server) pubSubSilence(ctx context.Context, payload []byte) error {
	var req struct {
		UserID int32 `json:"userID"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding silence payload: %w", err)
	}
	t, ok := s.tokens.GetByUserID(req.UserID)
	if !ok {
		return nil
	}
	end, err := s.users.SilenceEnd(ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("reading silence end for %d: %w", req.UserID, err)
	}
	now := time.Now().Unix()
	seconds := max(int64(0), end-now)
	t.SetSilenceEnd(now + seconds)
	t.Enqueue(serverpackets.SilenceEndNotify(uint32(seconds)))
	s.streams.Broadcast(StreamMain, serverpackets.SilencedNotify(t.UserID))
	return nil
}

// pubSubBan reloads the target's privileges. A fully banned account is
// thrown out with the banned login reply; a restriction flip in either
// direction gets the matching bot notice.
func (s *Server) pubSubBan(ctx context.Context, payload []byte) error {
	var req struct {
		UserID int32 `json:"userID"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding ban payload: %w", err)
	}
	t, ok := s.tokens.GetByUserID(req.UserID)
	if !ok {
		return nil
	}
	if err := s.reloadPrivileges(ctx, t); err != nil {
		return err
	}
	if t.Privileges()&(constants.UserPublic|constants.UserNormal) == 0 {
		t.Enqueue(serverpackets.LoginBanned)
		s.Logout(ctx, t)
	}
	return nil
}

func (s *Server) pubSubNotification(payload []byte) error {
	var req struct {
		UserID  int32  `json:"userID"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding notification payload: %w", err)
	}
	if t, ok := s.tokens.GetByUserID(req.UserID); ok {
		t.Enqueue(serverpackets.Notification(req.Message))
	}
	return nil
}

func (s *Server) pubSubMenuIcon(ctx context.Context, payload []byte) error {
	var req struct {
		Icon string `json:"icon"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding set_main_menu_icon payload: %w", err)
	}
	return s.SetMenuIcon(ctx, req.Icon)
}

func (s *Server) pubSubRefreshPrivileges(ctx context.Context, payload []byte) error {
	var req struct {
		UserID int32 `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding refresh_privs payload: %w", err)
	}
	t, ok := s.tokens.GetByUserID(req.UserID)
	if !ok {
		return nil
	}
	return s.reloadPrivileges(ctx, t)
}

func (s *Server) pubSubChangePassword(payload []byte) error {
	var req struct {
		UserID int32 `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding change_pass payload: %w", err)
	}
	s.passwords.Invalidate(req.UserID)
	s.log.Info("password cache invalidated", "user_id", req.UserID)
	return nil
}

func (s *Server) pubSubBotMessage(ctx context.Context, payload []byte) error {
	var req struct {
		To      string `json:"to"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding bot_msg payload: %w", err)
	}
	s.sendBotMessage(ctx, req.To, req.Message)
	return nil
}

// reloadPrivileges refetches the privilege bits from the users table and
// applies them to the session. While the account is restricted the user
// is told so on every reload; losing the restriction gets the re-log
// notice once.
func (s *Server) reloadPrivileges(ctx context.Context, t *Token) error {
	privileges, err := s.users.Privileges(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("reading privileges for %d: %w", t.UserID, err)
	}
	wasRestricted := t.Restricted()
	t.SetPrivileges(privileges)
	if t.Restricted() {
		s.sendBotMessage(ctx, t.Username, restrictedNotice)
	} else if wasRestricted {
		s.sendBotMessage(ctx, t.Username, unrestrictedNotice)
	}
	return nil
}
