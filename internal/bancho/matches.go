package bancho

import (
	"sync"
)

// MatchList is the registry of live multiplayer rooms. Ids are handed
// out monotonically starting at 1 and never reused, so a disposed
// room's id stays dead.
type MatchList struct {
	streams *StreamList
	tokens  *TokenList

	mu      sync.RWMutex
	matches map[int32]*Match
	lastID  int32
}

// NewMatchList creates an empty match registry.
func NewMatchList(streams *StreamList, tokens *TokenList) *MatchList {
	return &MatchList{
		streams: streams,
		tokens:  tokens,
		matches: make(map[int32]*Match),
		lastID:  1,
	}
}

// Create registers a new room and its two streams, returning the match.
func (ml *MatchList) Create(name, password string, beatmapID int32, beatmapName, beatmapMD5 string,
	gameMode uint8, hostUserID int32, tourney bool) *Match {

	ml.mu.Lock()
	id := ml.lastID
	ml.lastID++
	m := newMatch(id, name, password, beatmapID, beatmapName, beatmapMD5,
		gameMode, hostUserID, tourney, ml.streams, ml.tokens)
	ml.matches[id] = m
	ml.mu.Unlock()

	ml.streams.Add(matchStream(id))
	ml.streams.Add(matchPlayingStream(id))
	return m
}

// Get returns the match with the given id.
func (ml *MatchList) Get(matchID int32) (*Match, bool) {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	m, ok := ml.matches[matchID]
	return m, ok
}

// Remove drops the registry entry. Server.DisposeMatch owns the full
// teardown sequence; this is its last step.
func (ml *MatchList) Remove(matchID int32) {
	ml.mu.Lock()
	delete(ml.matches, matchID)
	ml.mu.Unlock()
}

// All returns a snapshot of every live match.
func (ml *MatchList) All() []*Match {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	out := make([]*Match, 0, len(ml.matches))
	for _, m := range ml.matches {
		out = append(out, m)
	}
	return out
}

// Len returns the number of live matches.
func (ml *MatchList) Len() int {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	return len(ml.matches)
}
