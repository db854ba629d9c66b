package model

// Stats is one user's cached scoreboard snapshot for their current mode.
// Seeded from the user store at login and refreshed on demand.
type Stats struct {
	RankedScore uint64
	Accuracy    float32 // 0.0 .. 1.0
	Playcount   uint32
	TotalScore  uint64
	GameRank    uint32
	PP          uint32
}

// CappedPP returns pp clamped to the uint16 range of the stats packet.
func (s Stats) CappedPP() uint16 {
	if s.PP > 65535 {
		return 0
	}
	return uint16(s.PP)
}
