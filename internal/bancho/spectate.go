package bancho

import (
	"fmt"

	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
)

// spectStream returns the stream name carrying a host's replay frames.
func spectStream(hostUserID int32) string {
	return fmt.Sprintf("spect/%d", hostUserID)
}

// spectChannel returns the chat channel bound to a host's spectators.
func spectChannel(hostUserID int32) string {
	return fmt.Sprintf("#spect_%d", hostUserID)
}

// startSpectating attaches the session to a host: frame stream, chat
// channel, the add packet for the host and the fellow announcements.
func (s *Server) startSpectating(t, host *Token) {
	t.spectMu.Lock()
	defer t.spectMu.Unlock()

	s.stopSpectatingLocked(t)

	t.setSpectating(host.ID, host.UserID)
	host.addSpectator(t.ID)

	stream := spectStream(host.UserID)
	s.streams.Add(stream)
	s.streams.Join(stream, t)
	s.streams.Join(stream, host)

	host.Enqueue(serverpackets.SpectatorAdd(t.UserID))

	channel := spectChannel(host.UserID)
	s.channels.AddTempChannel(channel)
	if err := s.joinChannel(t, channel, true); err != nil {
		s.log.Debug("joining spectator channel", "channel", channel, "error", err)
	}
	if len(host.Spectators()) == 1 {
		// First spectator pulls the host into the channel too.
		if err := s.joinChannel(host, channel, true); err != nil {
			s.log.Debug("joining spectator channel", "channel", channel, "error", err)
		}
	}

	s.streams.Broadcast(stream, serverpackets.FellowSpectatorJoined(t.UserID))
	for _, id := range host.Spectators() {
		if id == t.ID {
			continue
		}
		if other, ok := s.tokens.Get(id); ok {
			t.Enqueue(serverpackets.FellowSpectatorJoined(other.UserID))
		}
	}

	s.log.Info("spectating", "username", t.Username, "host", host.Username)
}

// stopSpectating detaches the session from its host, if any.
func (s *Server) stopSpectating(t *Token) {
	t.spectMu.Lock()
	defer t.spectMu.Unlock()
	s.stopSpectatingLocked(t)
}

func (s *Server) stopSpectatingLocked(t *Token) {
	hostID := t.SpectatorOf()
	hostUserID := t.SpectatingUser()
	if hostID == "" || hostUserID <= 0 {
		return
	}
	stream := spectStream(hostUserID)

	s.streams.Leave(stream, t)

	if host, ok := s.tokens.Get(hostID); ok {
		host.removeSpectator(t.ID)
		host.Enqueue(serverpackets.SpectatorRemove(t.UserID))
		for _, id := range host.Spectators() {
			if other, ok := s.tokens.Get(id); ok {
				other.Enqueue(serverpackets.FellowSpectatorLeft(t.UserID))
			}
		}
		// Last spectator gone, the host leaves the channel and stream.
		if len(host.Spectators()) == 0 {
			if err := s.partChannel(host, spectChannel(host.UserID), true, true); err != nil {
				s.log.Debug("parting spectator channel", "host", host.Username, "error", err)
			}
			s.streams.Leave(stream, host)
		}
		s.log.Info("stopped spectating", "username", t.Username, "host", host.Username)
	}

	if err := s.partChannel(t, spectChannel(hostUserID), true, true); err != nil {
		s.log.Debug("parting spectator channel", "username", t.Username, "error", err)
	}

	t.setSpectating("", 0)
}
