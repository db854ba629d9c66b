package bancho

import (
	"slices"
	"sync"
)

// Well-known stream names. Every session joins main at login; lobby
// holds the clients browsing the multiplayer room list.
const (
	StreamMain  = "main"
	StreamLobby = "lobby"
)

// Stream is a named broadcast set of session token ids. It holds ids,
// never sessions: subscribers may die while a stream still lists them,
// and broadcast prunes those lazily.
type Stream struct {
	name string

	mu      sync.Mutex
	clients []string // ordered, distinct
}

func newStream(name string) *Stream {
	return &Stream{name: name}
}

func (s *Stream) addClient(tokenID string) {
	s.mu.Lock()
	if !slices.Contains(s.clients, tokenID) {
		s.clients = append(s.clients, tokenID)
	}
	s.mu.Unlock()
}

func (s *Stream) removeClient(tokenID string) {
	s.mu.Lock()
	s.clients = slices.DeleteFunc(s.clients, func(id string) bool { return id == tokenID })
	s.mu.Unlock()
}

// Clients returns a snapshot of the subscribed token ids.
func (s *Stream) Clients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.clients)
}

// Len returns the subscriber count.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// broadcast enqueues data to every subscriber not in exclude, resolving
// ids through the registry and dropping the ones that no longer exist.
// The stream lock is held for the whole pass so concurrent broadcasts on
// one stream are observed in the same order by every subscriber.
func (s *Stream) broadcast(tokens *TokenList, data []byte, exclude []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stale []string
	for _, id := range s.clients {
		if slices.Contains(exclude, id) {
			continue
		}
		t, ok := tokens.Get(id)
		if !ok {
			stale = append(stale, id)
			continue
		}
		t.Enqueue(data)
	}
	for _, id := range stale {
		s.clients = slices.DeleteFunc(s.clients, func(c string) bool { return c == id })
	}
}

// StreamList is the registry of named broadcast streams.
type StreamList struct {
	mu      sync.RWMutex
	streams map[string]*Stream
	tokens  *TokenList
}

// NewStreamList creates an empty stream registry resolving subscriber
// ids through the given session registry.
func NewStreamList(tokens *TokenList) *StreamList {
	return &StreamList{
		streams: make(map[string]*Stream),
		tokens:  tokens,
	}
}

// Add creates the named stream. Adding an existing name is a no-op.
func (sl *StreamList) Add(name string) {
	sl.mu.Lock()
	if _, ok := sl.streams[name]; !ok {
		sl.streams[name] = newStream(name)
	}
	sl.mu.Unlock()
}

// Remove evicts every subscriber through the leave path and deletes the
// stream. Removing an absent name is a no-op.
func (sl *StreamList) Remove(name string) {
	sl.mu.Lock()
	stream, ok := sl.streams[name]
	if ok {
		delete(sl.streams, name)
	}
	sl.mu.Unlock()
	if !ok {
		return
	}
	for _, id := range stream.Clients() {
		if t, ok := sl.tokens.Get(id); ok {
			t.removeStream(name)
		}
		stream.removeClient(id)
	}
}

// Get returns the named stream, nil when absent.
func (sl *StreamList) Get(name string) *Stream {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.streams[name]
}

// Exists reports whether the named stream exists.
func (sl *StreamList) Exists(name string) bool {
	return sl.Get(name) != nil
}

// Join subscribes the session to the named stream. No-op when the
// stream does not exist.
func (sl *StreamList) Join(name string, t *Token) {
	stream := sl.Get(name)
	if stream == nil {
		return
	}
	stream.addClient(t.ID)
	t.addStream(name)
}

// Leave unsubscribes the session from the named stream. No-op when the
// stream does not exist.
func (sl *StreamList) Leave(name string, t *Token) {
	stream := sl.Get(name)
	if stream == nil {
		return
	}
	stream.removeClient(t.ID)
	t.removeStream(name)
}

// Broadcast enqueues data to every subscriber of the named stream,
// skipping the excluded token ids.
func (sl *StreamList) Broadcast(name string, data []byte, exclude ...string) {
	stream := sl.Get(name)
	if stream == nil {
		return
	}
	stream.broadcast(sl.tokens, data, exclude)
}

// Dispose makes every subscriber leave the named stream without
// removing the stream itself.
func (sl *StreamList) Dispose(name string) {
	stream := sl.Get(name)
	if stream == nil {
		return
	}
	for _, id := range stream.Clients() {
		if t, ok := sl.tokens.Get(id); ok {
			t.removeStream(name)
		}
		stream.removeClient(id)
	}
}

// Clients returns a snapshot of the subscriber ids of the named stream.
func (sl *StreamList) Clients(name string) []string {
	stream := sl.Get(name)
	if stream == nil {
		return nil
	}
	return stream.Clients()
}

// ClientCount returns the subscriber count of the named stream.
func (sl *StreamList) ClientCount(name string) int {
	stream := sl.Get(name)
	if stream == nil {
		return 0
	}
	return stream.Len()
}

// Names returns a snapshot of all stream names.
func (sl *StreamList) Names() []string {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	names := make([]string, 0, len(sl.streams))
	for name := range sl.streams {
		names = append(names, name)
	}
	return names
}
