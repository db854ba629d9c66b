// Package clientpackets parses the client→server bancho packet payloads.
//
// Parsers take the raw frame payload and return typed values. The client
// occasionally sends fields we have no use for (its own username in chat
// packets, a trailing word in private messages); those are consumed and
// dropped so the reader position stays correct.
package clientpackets

import (
	"fmt"

	"github.com/udisondev/banchogo/internal/constants"
	"github.com/udisondev/banchogo/internal/model"
	"github.com/udisondev/banchogo/internal/protocol"
)

// ChangeAction is the self status update: what the user is doing now.
func ChangeAction(data []byte) (model.Action, error) {
	r := protocol.NewReader(data)

	var a model.Action
	var err error
	if a.ID, err = r.ReadByte(); err != nil {
		return a, fmt.Errorf("parsing action id: %w", err)
	}
	if a.Text, err = r.ReadString(); err != nil {
		return a, fmt.Errorf("parsing action text: %w", err)
	}
	if a.MD5, err = r.ReadString(); err != nil {
		return a, fmt.Errorf("parsing action md5: %w", err)
	}
	mods, err := r.ReadUint32()
	if err != nil {
		return a, fmt.Errorf("parsing action mods: %w", err)
	}
	a.Mods = int32(mods)
	if a.GameMode, err = r.ReadByte(); err != nil {
		return a, fmt.Errorf("parsing game mode: %w", err)
	}
	if a.BeatmapID, err = r.ReadInt32(); err != nil {
		return a, fmt.Errorf("parsing beatmap id: %w", err)
	}
	return a, nil
}

// UserList parses the user-id list of stats and panel requests.
func UserList(data []byte) ([]int32, error) {
	r := protocol.NewReader(data)
	users, err := r.ReadIntList()
	if err != nil {
		return nil, fmt.Errorf("parsing user list: %w", err)
	}
	return users, nil
}

// Message is one chat line from the client.
type Message struct {
	To   string
	Body string
}

// PublicMessage parses a channel chat line. The leading sender string is
// client-reported and ignored, the session identifies the sender.
func PublicMessage(data []byte) (Message, error) {
	r := protocol.NewReader(data)

	var m Message
	if _, err := r.ReadString(); err != nil {
		return m, fmt.Errorf("parsing sender: %w", err)
	}
	var err error
	if m.Body, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("parsing message: %w", err)
	}
	if m.To, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("parsing target: %w", err)
	}
	return m, nil
}

// PrivateMessage parses a PM. Same shape as PublicMessage plus a trailing
// word the client always sends.
func PrivateMessage(data []byte) (Message, error) {
	m, err := PublicMessage(data)
	if err != nil {
		return m, err
	}
	return m, nil
}

// AwayMessage parses the away message update. Empty clears it.
func AwayMessage(data []byte) (string, error) {
	r := protocol.NewReader(data)

	if _, err := r.ReadString(); err != nil {
		return "", fmt.Errorf("parsing lead string: %w", err)
	}
	msg, err := r.ReadString()
	if err != nil {
		return "", fmt.Errorf("parsing away message: %w", err)
	}
	return msg, nil
}

// ChannelName parses the single channel argument of join and part.
func ChannelName(data []byte) (string, error) {
	r := protocol.NewReader(data)
	name, err := r.ReadString()
	if err != nil {
		return "", fmt.Errorf("parsing channel name: %w", err)
	}
	return name, nil
}

// UserID parses a single signed user id argument.
func UserID(data []byte) (int32, error) {
	r := protocol.NewReader(data)
	id, err := r.ReadInt32()
	if err != nil {
		return 0, fmt.Errorf("parsing user id: %w", err)
	}
	return id, nil
}

// SlotID parses a single slot index argument.
func SlotID(data []byte) (uint32, error) {
	r := protocol.NewReader(data)
	id, err := r.ReadUint32()
	if err != nil {
		return 0, fmt.Errorf("parsing slot id: %w", err)
	}
	return id, nil
}

// MatchID parses a single match id argument.
func MatchID(data []byte) (uint32, error) {
	r := protocol.NewReader(data)
	id, err := r.ReadUint32()
	if err != nil {
		return 0, fmt.Errorf("parsing match id: %w", err)
	}
	return id, nil
}

// Mods parses the mods argument of match mod changes.
func Mods(data []byte) (int32, error) {
	r := protocol.NewReader(data)
	mods, err := r.ReadUint32()
	if err != nil {
		return 0, fmt.Errorf("parsing mods: %w", err)
	}
	return int32(mods), nil
}

// JoinMatch is the id + password pair of a match join request.
type JoinMatch struct {
	MatchID  uint32
	Password string
}

// MatchJoin parses a match join request.
func MatchJoin(data []byte) (JoinMatch, error) {
	r := protocol.NewReader(data)

	var j JoinMatch
	var err error
	if j.MatchID, err = r.ReadUint32(); err != nil {
		return j, fmt.Errorf("parsing match id: %w", err)
	}
	if j.Password, err = r.ReadString(); err != nil {
		return j, fmt.Errorf("parsing password: %w", err)
	}
	return j, nil
}

// MatchSettings is the client's match create / settings change payload.
// Slot columns are client state we ignore beyond the occupied mask, host
// and settings are what the state machine consumes.
type MatchSettings struct {
	MatchID     uint16
	InProgress  bool
	Mods        int32
	Name        string
	Password    string
	BeatmapName string
	BeatmapID   int32
	BeatmapMD5  string
	HostUserID  int32
	GameMode    uint8
	ScoringType uint8
	TeamType    uint8
	FreeMod     bool
}

// Settings parses a match create or change-settings payload.
func Settings(data []byte) (MatchSettings, error) {
	r := protocol.NewReader(data)

	var s MatchSettings
	var err error
	if s.MatchID, err = r.ReadUint16(); err != nil {
		return s, fmt.Errorf("parsing match id: %w", err)
	}
	inProgress, err := r.ReadByte()
	if err != nil {
		return s, fmt.Errorf("parsing in-progress flag: %w", err)
	}
	s.InProgress = inProgress != 0
	if _, err = r.ReadByte(); err != nil {
		return s, fmt.Errorf("parsing pad byte: %w", err)
	}
	mods, err := r.ReadUint32()
	if err != nil {
		return s, fmt.Errorf("parsing mods: %w", err)
	}
	s.Mods = int32(mods)
	if s.Name, err = r.ReadString(); err != nil {
		return s, fmt.Errorf("parsing name: %w", err)
	}
	if s.Password, err = r.ReadString(); err != nil {
		return s, fmt.Errorf("parsing password: %w", err)
	}
	if s.BeatmapName, err = r.ReadString(); err != nil {
		return s, fmt.Errorf("parsing beatmap name: %w", err)
	}
	beatmapID, err := r.ReadUint32()
	if err != nil {
		return s, fmt.Errorf("parsing beatmap id: %w", err)
	}
	s.BeatmapID = int32(beatmapID)
	if s.BeatmapMD5, err = r.ReadString(); err != nil {
		return s, fmt.Errorf("parsing beatmap md5: %w", err)
	}

	var statuses [constants.MatchMaxSlots]uint8
	for i := range statuses {
		if statuses[i], err = r.ReadByte(); err != nil {
			return s, fmt.Errorf("parsing slot %d status: %w", i, err)
		}
	}
	for i := 0; i < constants.MatchMaxSlots; i++ {
		if _, err = r.ReadByte(); err != nil {
			return s, fmt.Errorf("parsing slot %d team: %w", i, err)
		}
	}
	for i, st := range statuses {
		if st&constants.SlotOccupied == 0 {
			continue
		}
		if _, err = r.ReadInt32(); err != nil {
			return s, fmt.Errorf("parsing slot %d user: %w", i, err)
		}
	}

	if s.HostUserID, err = r.ReadInt32(); err != nil {
		return s, fmt.Errorf("parsing host: %w", err)
	}
	if s.GameMode, err = r.ReadByte(); err != nil {
		return s, fmt.Errorf("parsing game mode: %w", err)
	}
	if s.ScoringType, err = r.ReadByte(); err != nil {
		return s, fmt.Errorf("parsing scoring type: %w", err)
	}
	if s.TeamType, err = r.ReadByte(); err != nil {
		return s, fmt.Errorf("parsing team type: %w", err)
	}
	freeMod, err := r.ReadByte()
	if err != nil {
		return s, fmt.Errorf("parsing free mod flag: %w", err)
	}
	s.FreeMod = freeMod != 0
	return s, nil
}

// ScoreFrame is one in-game score snapshot from a playing match member.
type ScoreFrame struct {
	Time         int32
	ID           uint8
	Count300     uint16
	Count100     uint16
	Count50      uint16
	CountGeki    uint16
	CountKatu    uint16
	CountMiss    uint16
	TotalScore   int32
	MaxCombo     uint16
	CurrentCombo uint16
	Perfect      bool
	CurrentHP    uint8
	TagByte      uint8
	UsingScoreV2 bool
}

// Frames parses a match score frame.
func Frames(data []byte) (ScoreFrame, error) {
	r := protocol.NewReader(data)

	var f ScoreFrame
	var err error
	if f.Time, err = r.ReadInt32(); err != nil {
		return f, fmt.Errorf("parsing time: %w", err)
	}
	if f.ID, err = r.ReadByte(); err != nil {
		return f, fmt.Errorf("parsing frame id: %w", err)
	}
	if f.Count300, err = r.ReadUint16(); err != nil {
		return f, fmt.Errorf("parsing count300: %w", err)
	}
	if f.Count100, err = r.ReadUint16(); err != nil {
		return f, fmt.Errorf("parsing count100: %w", err)
	}
	if f.Count50, err = r.ReadUint16(); err != nil {
		return f, fmt.Errorf("parsing count50: %w", err)
	}
	if f.CountGeki, err = r.ReadUint16(); err != nil {
		return f, fmt.Errorf("parsing countGeki: %w", err)
	}
	if f.CountKatu, err = r.ReadUint16(); err != nil {
		return f, fmt.Errorf("parsing countKatu: %w", err)
	}
	if f.CountMiss, err = r.ReadUint16(); err != nil {
		return f, fmt.Errorf("parsing countMiss: %w", err)
	}
	if f.TotalScore, err = r.ReadInt32(); err != nil {
		return f, fmt.Errorf("parsing total score: %w", err)
	}
	if f.MaxCombo, err = r.ReadUint16(); err != nil {
		return f, fmt.Errorf("parsing max combo: %w", err)
	}
	if f.CurrentCombo, err = r.ReadUint16(); err != nil {
		return f, fmt.Errorf("parsing current combo: %w", err)
	}
	perfect, err := r.ReadByte()
	if err != nil {
		return f, fmt.Errorf("parsing perfect flag: %w", err)
	}
	f.Perfect = perfect != 0
	if f.CurrentHP, err = r.ReadByte(); err != nil {
		return f, fmt.Errorf("parsing hp: %w", err)
	}
	if f.TagByte, err = r.ReadByte(); err != nil {
		return f, fmt.Errorf("parsing tag byte: %w", err)
	}
	scoreV2, err := r.ReadByte()
	if err != nil {
		return f, fmt.Errorf("parsing scoreV2 flag: %w", err)
	}
	f.UsingScoreV2 = scoreV2 != 0
	return f, nil
}
