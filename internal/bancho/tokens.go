package bancho

import (
	"slices"
	"sync"

	"github.com/udisondev/banchogo/internal/model"
)

// TokenList is the session registry: token id to session, with
// auxiliary indexes by user id and safe name so lookups do not scan.
// Index slices keep insertion order, so the first session a user opened
// wins id-based lookups while tournament multi-sessions coexist.
type TokenList struct {
	mu     sync.RWMutex
	tokens map[string]*Token
	byUser map[int32][]string
	bySafe map[string][]string
}

// NewTokenList creates an empty session registry.
func NewTokenList() *TokenList {
	return &TokenList{
		tokens: make(map[string]*Token),
		byUser: make(map[int32][]string),
		bySafe: make(map[string][]string),
	}
}

// Add registers a session.
func (tl *TokenList) Add(t *Token) {
	tl.mu.Lock()
	tl.tokens[t.ID] = t
	tl.byUser[t.UserID] = append(tl.byUser[t.UserID], t.ID)
	tl.bySafe[t.SafeName] = append(tl.bySafe[t.SafeName], t.ID)
	tl.mu.Unlock()
}

// Delete removes a session from every index. Unknown ids are ignored.
func (tl *TokenList) Delete(tokenID string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	t, ok := tl.tokens[tokenID]
	if !ok {
		return
	}
	delete(tl.tokens, tokenID)

	drop := func(ids []string) []string {
		return slices.DeleteFunc(ids, func(id string) bool { return id == tokenID })
	}
	if ids := drop(tl.byUser[t.UserID]); len(ids) > 0 {
		tl.byUser[t.UserID] = ids
	} else {
		delete(tl.byUser, t.UserID)
	}
	if ids := drop(tl.bySafe[t.SafeName]); len(ids) > 0 {
		tl.bySafe[t.SafeName] = ids
	} else {
		delete(tl.bySafe, t.SafeName)
	}
}

// Get returns the session with the given token id.
func (tl *TokenList) Get(tokenID string) (*Token, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	t, ok := tl.tokens[tokenID]
	return t, ok
}

// GetByUserID returns the user's first-opened session.
func (tl *TokenList) GetByUserID(userID int32) (*Token, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	ids := tl.byUser[userID]
	if len(ids) == 0 {
		return nil, false
	}
	t, ok := tl.tokens[ids[0]]
	return t, ok
}

// GetAllByUserID returns every session of the user, oldest first.
func (tl *TokenList) GetAllByUserID(userID int32) []*Token {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	ids := tl.byUser[userID]
	result := make([]*Token, 0, len(ids))
	for _, id := range ids {
		if t, ok := tl.tokens[id]; ok {
			result = append(result, t)
		}
	}
	return result
}

// GetByName returns the first-opened session matching the display or
// safe form of the given name.
func (tl *TokenList) GetByName(name string) (*Token, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	ids := tl.bySafe[model.SafeUsername(name)]
	if len(ids) == 0 {
		return nil, false
	}
	t, ok := tl.tokens[ids[0]]
	return t, ok
}

// Online reports whether the user has at least one session.
func (tl *TokenList) Online(userID int32) bool {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return len(tl.byUser[userID]) > 0
}

// Len returns the session count.
func (tl *TokenList) Len() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return len(tl.tokens)
}

// All returns a snapshot of every session.
func (tl *TokenList) All() []*Token {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	result := make([]*Token, 0, len(tl.tokens))
	for _, t := range tl.tokens {
		result = append(result, t)
	}
	return result
}

// UserIDs returns the distinct online user ids.
func (tl *TokenList) UserIDs() []int32 {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	result := make([]int32, 0, len(tl.byUser))
	for id := range tl.byUser {
		result = append(result, id)
	}
	return result
}

// EnqueueAll appends data to every session's outbound queue.
func (tl *TokenList) EnqueueAll(data []byte) {
	for _, t := range tl.All() {
		t.Enqueue(data)
	}
}

// MultipleEnqueue appends data to the sessions of the listed users, or,
// when negate is set, to everyone else.
func (tl *TokenList) MultipleEnqueue(data []byte, userIDs []int32, negate bool) {
	for _, t := range tl.All() {
		if slices.Contains(userIDs, t.UserID) != negate {
			t.Enqueue(data)
		}
	}
}
