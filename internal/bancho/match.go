package bancho

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/constants"
)

// matchStream and matchPlayingStream name the two broadcast sets bound
// to one match: every member, and the members of the running game.
func matchStream(matchID int32) string {
	return fmt.Sprintf("multi/%d", matchID)
}

func matchPlayingStream(matchID int32) string {
	return fmt.Sprintf("multi/%d/playing", matchID)
}

func matchChannel(matchID int32) string {
	return fmt.Sprintf("#multi_%d", matchID)
}

// Slot is one of the sixteen player positions in a match. TokenID is
// empty and UserID is -1 while no one occupies it.
type Slot struct {
	Status    uint8
	Team      uint8
	TokenID   string
	UserID    int32
	Mods      int32
	Loaded    bool
	Skipped   bool
	Completed bool
	Failed    bool
}

func emptySlot(status uint8) Slot {
	return Slot{Status: status, UserID: -1}
}

// Match is one multiplayer room. All mutable state is guarded by mu;
// packets are built from a snapshot and broadcast after the lock is
// released, so a slow client can never stall a slot update.
type Match struct {
	ID         int32
	Tourney    bool
	CreateTime int64

	streams *StreamList
	tokens  *TokenList

	mu          sync.Mutex
	name        string
	password    string
	beatmapID   int32
	beatmapName string
	beatmapMD5  string
	gameMode    uint8
	hostUserID  int32 // -1 once cleared
	mods        int32
	modMode     uint8
	scoringType uint8
	teamType    uint8
	inProgress  bool
	locked      bool
	starting    bool
	seed        int32
	slots       [constants.MatchMaxSlots]Slot
}

func newMatch(id int32, name, password string, beatmapID int32, beatmapName, beatmapMD5 string,
	gameMode uint8, hostUserID int32, tourney bool, streams *StreamList, tokens *TokenList) *Match {

	m := &Match{
		ID:         id,
		Tourney:    tourney,
		CreateTime: time.Now().Unix(),
		streams:    streams,
		tokens:     tokens,

		name:        name,
		password:    password,
		beatmapID:   beatmapID,
		beatmapName: beatmapName,
		beatmapMD5:  beatmapMD5,
		gameMode:    gameMode,
		hostUserID:  hostUserID,
	}
	for i := range m.slots {
		m.slots[i] = emptySlot(constants.SlotFree)
	}
	return m
}

// Name returns the room title.
func (m *Match) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Password returns the join password, "" when the room is open.
func (m *Match) Password() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.password
}

// HostUserID returns the current host, -1 when cleared.
func (m *Match) HostUserID() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hostUserID
}

// BeatmapID returns the picked map id.
func (m *Match) BeatmapID() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beatmapID
}

// InProgress reports whether a game is currently running.
func (m *Match) InProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inProgress
}

// Locked reports whether joins and slot changes are blocked.
func (m *Match) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// SetLocked blocks or unblocks joins and slot changes.
func (m *Match) SetLocked(locked bool) {
	m.mu.Lock()
	m.locked = locked
	m.mu.Unlock()
}

// Starting reports whether a start countdown is armed.
func (m *Match) Starting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starting
}

// SetStarting arms or disarms the countdown flag.
func (m *Match) SetStarting(starting bool) {
	m.mu.Lock()
	m.starting = starting
	m.mu.Unlock()
}

// Slots returns a snapshot of all sixteen slots.
func (m *Match) Slots() [constants.MatchMaxSlots]Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots
}

// Empty reports whether no slot holds a user.
func (m *Match) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countUsers() == 0
}

// PlayerTokenIDs returns the token ids currently occupying slots.
func (m *Match) PlayerTokenIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, constants.MatchMaxSlots)
	for _, s := range m.slots {
		if s.TokenID != "" {
			ids = append(ids, s.TokenID)
		}
	}
	return ids
}

// countUsers counts occupied slots. Caller holds mu.
func (m *Match) countUsers() int {
	n := 0
	for _, s := range m.slots {
		if s.TokenID != "" {
			n++
		}
	}
	return n
}

// userSlot returns the slot index of a user, -1 when absent. Caller
// holds mu.
func (m *Match) userSlot(userID int32) int {
	for i, s := range m.slots {
		if s.TokenID != "" && s.UserID == userID {
			return i
		}
	}
	return -1
}

// UserSlot returns the slot index of a user, -1 when absent.
func (m *Match) UserSlot(userID int32) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userSlot(userID)
}

// data builds the wire image. With censored set the password is
// replaced by "yes" when one exists, so lobby browsers learn only that
// the room is locked. Caller holds mu.
func (m *Match) data(censored bool) serverpackets.MatchData {
	d := serverpackets.MatchData{
		ID:          uint16(m.ID),
		InProgress:  m.inProgress,
		Mods:        m.mods,
		Name:        m.name,
		Password:    m.password,
		BeatmapName: m.beatmapName,
		BeatmapID:   m.beatmapID,
		BeatmapMD5:  m.beatmapMD5,
		HostUserID:  m.hostUserID,
		GameMode:    m.gameMode,
		ScoringType: m.scoringType,
		TeamType:    m.teamType,
		FreeMod:     m.modMode == constants.MatchModModeFreeMod,
		Seed:        m.seed,
	}
	if censored && m.password != "" {
		d.Password = "yes"
	}
	for i, s := range m.slots {
		d.SlotStatuses[i] = s.Status
		d.SlotTeams[i] = s.Team
		d.SlotUserIDs[i] = s.UserID
		d.SlotMods[i] = s.Mods
	}
	return d
}

// Data returns the wire image of the current state.
func (m *Match) Data(censored bool) serverpackets.MatchData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data(censored)
}

// sendUpdates pushes the full state to members and a censored copy to
// the lobby listing. Caller holds mu.
func (m *Match) sendUpdates() {
	m.streams.Broadcast(matchStream(m.ID), serverpackets.UpdateMatch(m.data(false)))
	m.streams.Broadcast(StreamLobby, serverpackets.UpdateMatch(m.data(true)))
}

// SendUpdates pushes the current state to members and the lobby.
func (m *Match) SendUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendUpdates()
}

// UserJoin puts the player into the lowest free slot. A stale slot held
// by the same session is freed first. Returns false when the room is
// full or locked.
func (m *Match) UserJoin(t *Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return false
	}
	for i, s := range m.slots {
		if s.TokenID == t.ID {
			m.slots[i] = emptySlot(constants.SlotFree)
		}
	}
	for i, s := range m.slots {
		if s.Status != constants.SlotFree {
			continue
		}
		team := constants.MatchTeamNone
		if m.teamType == constants.MatchTeamTypeTeamVs || m.teamType == constants.MatchTeamTypeTagTeamVs {
			if i%2 == 0 {
				team = constants.MatchTeamRed
			} else {
				team = constants.MatchTeamBlue
			}
		}
		m.slots[i] = Slot{
			Status:  constants.SlotNotReady,
			Team:    team,
			TokenID: t.ID,
			UserID:  t.UserID,
		}
		m.sendUpdates()
		return true
	}
	return false
}

// UserLeft frees the player's slot, moves the host if they held it and
// reports whether the room is now empty. When a playing member drops
// out mid game the completion check reruns, so the game still ends.
func (m *Match) UserLeft(t *Token) (empty bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.userSlot(t.UserID)
	if i == -1 {
		return false
	}
	wasPlaying := m.slots[i].Status == constants.SlotPlaying
	m.slots[i] = emptySlot(constants.SlotFree)

	if m.countUsers() == 0 {
		return true
	}

	if t.UserID == m.hostUserID {
		for _, s := range m.slots {
			if s.TokenID == "" {
				continue
			}
			m.setHost(s.UserID)
			break
		}
	}
	if wasPlaying && m.inProgress && m.allPlayersCompleted() {
		m.completeGame()
	}
	m.sendUpdates()
	return false
}

// setHost moves the host role and notifies the new host. Caller holds
// mu and guarantees the user occupies a slot.
func (m *Match) setHost(userID int32) {
	m.hostUserID = userID
	i := m.userSlot(userID)
	if i == -1 {
		return
	}
	if t, ok := m.tokens.Get(m.slots[i].TokenID); ok {
		t.Enqueue(serverpackets.MatchTransferHost)
	}
}

// SetHost transfers the host role to the given user. Returns false
// when they are not in the room.
func (m *Match) SetHost(userID int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userSlot(userID) == -1 {
		return false
	}
	m.setHost(userID)
	m.sendUpdates()
	return true
}

// RemoveHost leaves the room hostless, for referee-run tourney rooms.
func (m *Match) RemoveHost() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hostUserID = -1
	m.sendUpdates()
}

// ChangeSlot moves the user into another slot. The destination has to
// be free and the room neither locked nor mid countdown.
func (m *Match) ChangeSlot(userID int32, newSlot int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked || m.starting || newSlot < 0 || newSlot >= constants.MatchMaxSlots {
		return false
	}
	old := m.userSlot(userID)
	if old == -1 || old == newSlot {
		return false
	}
	if m.slots[newSlot].Status != constants.SlotFree {
		return false
	}
	m.slots[newSlot] = m.slots[old]
	m.slots[old] = emptySlot(constants.SlotFree)
	m.sendUpdates()
	return true
}

// ToggleSlotLock flips a slot between free and locked. A locked slot
// that held a player boots them back to the room listing: the slot is
// freed here and their client drops out on the next update.
func (m *Match) ToggleSlotLock(slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slot < 0 || slot >= constants.MatchMaxSlots {
		return
	}
	var kicked *Token
	if id := m.slots[slot].TokenID; id != "" {
		kicked, _ = m.tokens.Get(id)
	}
	if m.slots[slot].Status == constants.SlotLocked {
		m.slots[slot] = emptySlot(constants.SlotFree)
	} else {
		m.slots[slot] = emptySlot(constants.SlotLocked)
	}
	if kicked != nil {
		kicked.Enqueue(serverpackets.UpdateMatch(m.data(false)))
	}
	m.sendUpdates()
}

// SetSlotStatus records a player's own status change: ready,
// not-ready, or missing the map.
func (m *Match) SetSlotStatus(userID int32, status uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.userSlot(userID)
	if i == -1 {
		return
	}
	m.slots[i].Status = status
	m.sendUpdates()
}

// ToggleSlotReady flips one occupied slot between ready and any
// not-ready state. Used by forced starts.
func (m *Match) ToggleSlotReady(slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slot < 0 || slot >= constants.MatchMaxSlots || m.slots[slot].TokenID == "" {
		return
	}
	if m.slots[slot].Status == constants.SlotReady {
		m.slots[slot].Status = constants.SlotNotReady
	} else {
		m.slots[slot].Status = constants.SlotReady
	}
	m.sendUpdates()
}

// ChangeSettings applies a host settings payload: title, map, mode,
// scoring, team type and the freemod switch. Mod words move between
// the match and the slots when the switch flips, and tag team types
// force the shared mod word.
func (m *Match) ChangeSettings(name string, beatmapID int32, beatmapName, beatmapMD5 string,
	gameMode, scoringType, teamType uint8, freeMod bool) {

	m.mu.Lock()
	defer m.mu.Unlock()

	oldMD5 := m.beatmapMD5
	oldMods := m.mods
	oldModMode := m.modMode
	oldTeamType := m.teamType

	m.name = name
	m.beatmapID = beatmapID
	m.beatmapName = beatmapName
	m.beatmapMD5 = beatmapMD5
	m.gameMode = gameMode
	m.scoringType = scoringType
	m.teamType = teamType
	m.modMode = constants.MatchModModeNormal
	if freeMod {
		m.modMode = constants.MatchModModeFreeMod
	}
	if m.teamType == constants.MatchTeamTypeTagCoop || m.teamType == constants.MatchTeamTypeTagTeamVs {
		m.modMode = constants.MatchModModeNormal
	}

	if oldMods != m.mods || oldMD5 != m.beatmapMD5 || oldModMode != m.modMode {
		m.resetReady()
	}
	if m.modMode == constants.MatchModModeNormal {
		m.resetSlotMods()
	} else {
		m.mods = 0
	}
	if m.teamType != oldTeamType {
		m.initializeTeams()
	}
	m.sendUpdates()
}

// ChangeMods handles a mod change packet. Under freemod each player
// sets their own slot word and only the host moves the shared speed
// mods; otherwise the host sets the single match word.
func (m *Match) ChangeMods(userID int32, mods int32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	const speedMods = constants.ModDoubleTime | constants.ModNightcore | constants.ModHalfTime
	if m.modMode == constants.MatchModModeFreeMod {
		if userID == m.hostUserID {
			m.mods = mods & speedMods
		}
		if i := m.userSlot(userID); i != -1 {
			m.slots[i].Mods = mods &^ speedMods
		}
	} else {
		if userID != m.hostUserID {
			return
		}
		m.mods = mods
	}
	m.sendUpdates()
}

// SetMods overwrites the shared mod word, for the bot's mods command.
func (m *Match) SetMods(mods int32, freeMod bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.modMode = constants.MatchModModeNormal
	if freeMod {
		m.modMode = constants.MatchModModeFreeMod
	}
	m.resetReady()
	if m.modMode == constants.MatchModModeFreeMod {
		m.resetSlotMods()
	}
	m.mods = mods
	m.sendUpdates()
}

// ChangeTeam toggles the player between red and blue, or pins them to
// explicit when non-negative. No-op outside team modes or while locked.
func (m *Match) ChangeTeam(userID int32, explicit int8) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.teamType != constants.MatchTeamTypeTeamVs && m.teamType != constants.MatchTeamTypeTagTeamVs {
		return
	}
	if m.locked || m.starting {
		return
	}
	i := m.userSlot(userID)
	if i == -1 {
		return
	}
	if explicit >= 0 {
		m.slots[i].Team = uint8(explicit)
	} else if m.slots[i].Team == constants.MatchTeamRed {
		m.slots[i].Team = constants.MatchTeamBlue
	} else {
		m.slots[i].Team = constants.MatchTeamRed
	}
	m.sendUpdates()
}

// SetBeatmap switches the picked map and drops everyone back to
// not-ready, for the bot's map command.
func (m *Match) SetBeatmap(beatmapID int32, beatmapName, beatmapMD5 string, gameMode uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.beatmapID = beatmapID
	m.beatmapName = beatmapName
	m.beatmapMD5 = beatmapMD5
	m.gameMode = gameMode
	m.resetReady()
	m.sendUpdates()
}

// SetTeamScoring overwrites team type and scoring type, for the bot's
// set command.
func (m *Match) SetTeamScoring(teamType, scoringType uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldTeamType := m.teamType
	m.teamType = teamType
	m.scoringType = scoringType
	if m.teamType != oldTeamType {
		m.initializeTeams()
	}
	if m.teamType == constants.MatchTeamTypeTagCoop || m.teamType == constants.MatchTeamTypeTagTeamVs {
		m.modMode = constants.MatchModModeNormal
	}
	m.sendUpdates()
}

// SetScoringType overwrites only the scoring type.
func (m *Match) SetScoringType(scoringType uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoringType = scoringType
	m.sendUpdates()
}

// ForceSize locks every slot from size up and unlocks the rest.
func (m *Match) ForceSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < size && i < constants.MatchMaxSlots; i++ {
		if m.slots[i].Status == constants.SlotLocked {
			m.slots[i] = emptySlot(constants.SlotFree)
		}
	}
	for i := size; i < constants.MatchMaxSlots; i++ {
		if m.slots[i].Status != constants.SlotLocked {
			if t, ok := m.tokens.Get(m.slots[i].TokenID); ok {
				t.Enqueue(serverpackets.UpdateMatch(m.data(false)))
			}
			m.slots[i] = emptySlot(constants.SlotLocked)
		}
	}
	m.sendUpdates()
}

// ChangePassword replaces the join password and tells every member.
func (m *Match) ChangePassword(password string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.password = password
	m.streams.Broadcast(matchStream(m.ID), serverpackets.MatchChangePassword(password))
	m.sendUpdates()
}

// resetReady drops every ready slot back to not-ready. Caller holds mu.
func (m *Match) resetReady() {
	for i := range m.slots {
		if m.slots[i].Status == constants.SlotReady {
			m.slots[i].Status = constants.SlotNotReady
		}
	}
}

// resetSlotMods clears the per-slot mod words. Caller holds mu.
func (m *Match) resetSlotMods() {
	for i := range m.slots {
		m.slots[i].Mods = 0
	}
}

// initializeTeams deals red/blue by slot parity in team modes and
// clears teams otherwise. Caller holds mu.
func (m *Match) initializeTeams() {
	if m.teamType == constants.MatchTeamTypeTeamVs || m.teamType == constants.MatchTeamTypeTagTeamVs {
		for i := range m.slots {
			if i%2 == 0 {
				m.slots[i].Team = constants.MatchTeamRed
			} else {
				m.slots[i].Team = constants.MatchTeamBlue
			}
		}
		return
	}
	for i := range m.slots {
		m.slots[i].Team = constants.MatchTeamNone
	}
}

// teamsValid reports whether a team game has players on at least two
// different teams. Non-team modes always pass. Caller holds mu.
func (m *Match) teamsValid() bool {
	if m.teamType != constants.MatchTeamTypeTeamVs && m.teamType != constants.MatchTeamTypeTagTeamVs {
		return true
	}
	firstTeam := int16(-1)
	for _, s := range m.slots {
		if s.TokenID == "" || s.Status&constants.SlotNoMap > 0 {
			continue
		}
		if firstTeam == -1 {
			firstTeam = int16(s.Team)
		} else if firstTeam != int16(s.Team) {
			return true
		}
	}
	return false
}

// Start begins the game. Without force it refuses while any occupied
// slot is not ready; force flips those to ready first. Players move to
// playing, join the playing stream and receive the start packet.
func (m *Match) Start(force bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.starting = false

	for i, s := range m.slots {
		if s.TokenID == "" || s.Status == constants.SlotReady {
			continue
		}
		if !force {
			return false
		}
		m.slots[i].Status = constants.SlotReady
	}
	if !m.teamsValid() {
		return false
	}

	m.streams.Add(matchPlayingStream(m.ID))
	m.inProgress = true
	for i, s := range m.slots {
		if s.TokenID == "" || s.Status != constants.SlotReady {
			continue
		}
		m.slots[i].Status = constants.SlotPlaying
		m.slots[i].Loaded = false
		m.slots[i].Skipped = false
		m.slots[i].Completed = false
		m.slots[i].Failed = false
		if t, ok := m.tokens.Get(s.TokenID); ok {
			m.streams.Join(matchPlayingStream(m.ID), t)
		}
	}

	m.streams.Broadcast(matchStream(m.ID), serverpackets.MatchStart(m.data(false)))
	m.sendUpdates()
	return true
}

// PlayerLoaded marks the player's map load done; once every playing
// slot has loaded, the all-loaded packet releases the game.
func (m *Match) PlayerLoaded(userID int32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.userSlot(userID)
	if i == -1 {
		return
	}
	m.slots[i].Loaded = true
	for _, s := range m.slots {
		if s.Status == constants.SlotPlaying && !s.Loaded {
			return
		}
	}
	m.streams.Broadcast(matchPlayingStream(m.ID), serverpackets.MatchAllPlayersLoaded)
}

// PlayerSkip records an intro skip vote, shares it, and skips for
// everyone once the vote is unanimous.
func (m *Match) PlayerSkip(userID int32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.userSlot(userID)
	if i == -1 {
		return
	}
	m.slots[i].Skipped = true
	m.streams.Broadcast(matchPlayingStream(m.ID), serverpackets.MatchPlayerSkipped(userID))
	for _, s := range m.slots {
		if s.Status == constants.SlotPlaying && !s.Skipped {
			return
		}
	}
	m.streams.Broadcast(matchPlayingStream(m.ID), serverpackets.MatchAllSkipped)
}

// PlayerFailed flags the slot and tells the other players.
func (m *Match) PlayerFailed(userID int32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.userSlot(userID)
	if i == -1 {
		return
	}
	m.slots[i].Failed = true
	m.streams.Broadcast(matchPlayingStream(m.ID), serverpackets.MatchPlayerFailed(uint32(i)))
}

// PlayerCompleted marks the player done and ends the game once every
// playing slot has finished.
func (m *Match) PlayerCompleted(userID int32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.userSlot(userID)
	if i == -1 {
		return
	}
	m.slots[i].Completed = true
	if m.allPlayersCompleted() {
		m.completeGame()
		m.sendUpdates()
	}
}

// allPlayersCompleted reports whether no playing slot is still going.
// Caller holds mu.
func (m *Match) allPlayersCompleted() bool {
	for _, s := range m.slots {
		if s.TokenID != "" && s.Status == constants.SlotPlaying && !s.Completed {
			return false
		}
	}
	return true
}

// completeGame ends a finished game: players drop back to not-ready,
// the complete packet goes to the full room and the playing stream is
// torn down. Caller holds mu.
func (m *Match) completeGame() {
	m.inProgress = false
	m.resetPlayingSlots()
	m.streams.Broadcast(matchStream(m.ID), serverpackets.MatchComplete)
	m.streams.Dispose(matchPlayingStream(m.ID))
	m.streams.Remove(matchPlayingStream(m.ID))
}

// resetPlayingSlots returns every playing slot to not-ready with clean
// flags. Caller holds mu.
func (m *Match) resetPlayingSlots() {
	for i := range m.slots {
		if m.slots[i].TokenID == "" || m.slots[i].Status != constants.SlotPlaying {
			continue
		}
		m.slots[i].Status = constants.SlotNotReady
		m.slots[i].Loaded = false
		m.slots[i].Skipped = false
		m.slots[i].Completed = false
		m.slots[i].Failed = false
	}
}

// Abort kills an in-progress game without results.
func (m *Match) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.inProgress {
		return
	}
	m.inProgress = false
	m.starting = false
	m.resetPlayingSlots()
	m.sendUpdates()
	m.streams.Broadcast(matchPlayingStream(m.ID), serverpackets.MatchAbort)
	m.streams.Dispose(matchPlayingStream(m.ID))
	m.streams.Remove(matchPlayingStream(m.ID))
}

// RelayFrames rebroadcasts a score frame to the playing stream with
// the sender's slot id substituted into the payload.
func (m *Match) RelayFrames(userID int32, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.userSlot(userID)
	if i == -1 || len(payload) < 5 {
		return
	}
	m.streams.Broadcast(matchPlayingStream(m.ID), serverpackets.MatchFrames(uint8(i), payload))
}

// Invite sends a clickable osump link to another player as a chat line
// from the inviter.
func (m *Match) Invite(fromUserID, toUserID int32) {
	from, ok := m.tokens.GetByUserID(fromUserID)
	if !ok {
		return
	}
	to, ok := m.tokens.GetByUserID(toUserID)
	if !ok {
		return
	}
	if toUserID == constants.BotUserID {
		from.Enqueue(serverpackets.MessageNotify(constants.BotName, "I would love to join your match, but I'm too busy keeping the chat safe!", from.Username, constants.BotUserID))
		return
	}

	m.mu.Lock()
	message := fmt.Sprintf("Come join my multiplayer match: \"[osump://%d/%s %s]\"",
		m.ID, strings.ReplaceAll(m.password, " ", "_"), m.name)
	m.mu.Unlock()

	to.Enqueue(serverpackets.MatchInvite(from.Username, message, to.Username, from.UserID))
}
