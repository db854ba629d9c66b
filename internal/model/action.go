package model

// Action is what a user is currently doing, shown in their panel.
// Value type, copied on read so packet builders never race with updates.
type Action struct {
	ID        uint8
	Text      string
	MD5       string
	Mods      int32
	GameMode  uint8
	BeatmapID int32
}
