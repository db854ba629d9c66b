package bancho

import (
	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/constants"
)

// presenceRank picks the username colour byte shown in the panel. Staff
// colours go by exact privilege group, the way the groups are stored;
// everyone else falls back to donor or normal.
func presenceRank(t *Token) uint8 {
	priv := t.Privileges()
	switch {
	case t.UserID == constants.BotUserID:
		return uint8(constants.UserRankAdmin)
	case priv == constants.GroupOwner:
		return uint8(constants.UserRankPeppy)
	case priv == constants.GroupDeveloper || priv == constants.GroupDevSupporter:
		return uint8(constants.UserRankAdmin)
	case priv == constants.GroupModerator:
		return uint8(constants.UserRankMod)
	case priv&constants.UserDonor != 0:
		return uint8(constants.UserRankSupporter)
	default:
		return uint8(constants.UserRankNormal)
	}
}

// presencePacket builds the user panel packet for a session.
func presencePacket(t *Token) []byte {
	return serverpackets.UserPresence(t.UserID, t.Username, t.Timezone(), t.CountryID(),
		presenceRank(t), t.Location(), t.Stats().GameRank)
}

// statsPacket builds the stats packet for a session.
func statsPacket(t *Token) []byte {
	return serverpackets.UserStats(t.UserID, t.Action(), t.Stats())
}
