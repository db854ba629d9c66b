package bancho

import (
	"context"
	"time"

	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/constants"
)

// Periodic maintenance. Each loop owns one ticker and runs until its
// context is cancelled; a tick never takes down the loop.

const (
	timeoutInterval = 100 * time.Second
	timeoutLimit    = 100 // seconds without a request before a session is dead

	spamResetInterval = 10 * time.Second

	matchCleanupInterval = 30 * time.Second
	matchMinAge          = 120 // seconds an empty match may live before disposal
)

// RunTimeoutSweep evicts sessions whose client stopped polling. The bot,
// IRC bridges and tournament clients never time out.
func (s *Server) RunTimeoutSweep(ctx context.Context) error {
	ticker := time.NewTicker(timeoutInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepTimedOut(ctx)
		}
	}
}

func (s *Server) sweepTimedOut(ctx context.Context) {
	limit := time.Now().Unix() - timeoutLimit
	for _, t := range s.tokens.All() {
		if t.PingTime() >= limit || t.UserID == constants.BotUserID || t.IRC || t.Tournament {
			continue
		}
		s.log.Warn("timing out idle session", "user_id", t.UserID, "username", t.Username)
		t.Enqueue(serverpackets.Notification("Your connection to the server timed out."))
		s.Logout(ctx, t)
	}
}

// RunSpamReset clears every session's spam counter on a fixed cadence,
// giving senders a fresh window.
func (s *Server) RunSpamReset(ctx context.Context) error {
	ticker := time.NewTicker(spamResetInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, t := range s.tokens.All() {
				t.ResetSpamRate()
			}
		}
	}
}

// RunMatchCleanup disposes rooms everybody left. Fresh rooms are spared
// so a host who is still inviting players does not lose the match.
func (s *Server) RunMatchCleanup(ctx context.Context) error {
	ticker := time.NewTicker(matchCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.cleanupMatches()
		}
	}
}

func (s *Server) cleanupMatches() {
	now := time.Now().Unix()
	for _, m := range s.matches.All() {
		if m.Empty() && now-m.CreateTime >= matchMinAge {
			s.log.Info("disposing stale empty match", "match_id", m.ID)
			s.DisposeMatch(m.ID)
		}
	}
}
