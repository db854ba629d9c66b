package bancho

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Channel is one chat room. The flags are fixed at creation except
// moderated, which staff toggle at runtime.
type Channel struct {
	Name        string
	Description string
	PublicRead  bool
	PublicWrite bool
	Temp        bool
	Hidden      bool

	mu        sync.RWMutex
	moderated bool
}

// Moderated reports whether only staff may write right now.
func (c *Channel) Moderated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.moderated
}

// SetModerated toggles the staff-only write mode.
func (c *Channel) SetModerated(moderated bool) {
	c.mu.Lock()
	c.moderated = moderated
	c.mu.Unlock()
}

// chatStream returns the stream name bound to a channel name.
func chatStream(channel string) string {
	return "chat/" + channel
}

// clientChannelName maps internal per-spectator and per-match channel
// names to the two virtual aliases the game client understands.
func clientChannelName(channel string) string {
	switch {
	case strings.HasPrefix(channel, "#spect_"):
		return "#spectator"
	case strings.HasPrefix(channel, "#multi_"):
		return "#multiplayer"
	default:
		return channel
	}
}

// ChannelList is the channel registry. Every channel is paired 1:1 with
// a stream named chat/<name>, created and removed together.
type ChannelList struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	streams  *StreamList
}

// NewChannelList creates an empty channel registry bound to the stream
// registry.
func NewChannelList(streams *StreamList) *ChannelList {
	return &ChannelList{
		channels: make(map[string]*Channel),
		streams:  streams,
	}
}

// LoadFromRepo creates a channel for every configured row.
func (cl *ChannelList) LoadFromRepo(ctx context.Context, repo ChannelRepository) error {
	rows, err := repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading channels: %w", err)
	}
	for _, row := range rows {
		cl.Add(row.Name, row.Description, row.PublicRead, row.PublicWrite, false, false)
	}
	return nil
}

// Add creates a channel and its bound stream. Adding an existing name
// replaces the descriptor but keeps the stream.
func (cl *ChannelList) Add(name, description string, publicRead, publicWrite, temp, hidden bool) {
	cl.mu.Lock()
	cl.channels[name] = &Channel{
		Name:        name,
		Description: description,
		PublicRead:  publicRead,
		PublicWrite: publicWrite,
		Temp:        temp,
		Hidden:      hidden,
	}
	cl.mu.Unlock()
	cl.streams.Add(chatStream(name))
}

// AddTempChannel creates a temp hidden channel, gone when its last
// subscriber parts. No-op if the name exists.
func (cl *ChannelList) AddTempChannel(name string) {
	if cl.Exists(name) {
		return
	}
	cl.Add(name, "Chat", true, true, true, true)
}

// AddHiddenChannel creates a permanent channel omitted from the channel
// listing. No-op if the name exists.
func (cl *ChannelList) AddHiddenChannel(name string) {
	if cl.Exists(name) {
		return
	}
	cl.Add(name, "Chat", true, true, false, true)
}

// Get returns the named channel.
func (cl *ChannelList) Get(name string) (*Channel, bool) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	ch, ok := cl.channels[name]
	return ch, ok
}

// Exists reports whether the named channel exists.
func (cl *ChannelList) Exists(name string) bool {
	_, ok := cl.Get(name)
	return ok
}

// All returns a snapshot of every channel.
func (cl *ChannelList) All() []*Channel {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	result := make([]*Channel, 0, len(cl.channels))
	for _, ch := range cl.channels {
		result = append(result, ch)
	}
	return result
}

// delete removes the registry entry alone; Server.RemoveChannel owns
// the full part-everyone-and-drop-stream sequence.
func (cl *ChannelList) delete(name string) {
	cl.mu.Lock()
	delete(cl.channels, name)
	cl.mu.Unlock()
}
