package constants

// User privilege bitmask (users.privileges column).
//
// The low bits gate login and visibility, the Admin* bits gate staff
// features. Composite group masks below mirror the values stored for the
// staff roles in production; they are referenced by the bot's permission
// checks and must match the database.
const (
	UserPublic              int32 = 1 << 0
	UserNormal              int32 = 1 << 1
	UserDonor               int32 = 1 << 2
	AdminAccessPanel        int32 = 1 << 3
	AdminManageUsers        int32 = 1 << 4
	AdminBanUsers           int32 = 1 << 5
	AdminSilenceUsers       int32 = 1 << 6
	AdminWipeUsers          int32 = 1 << 7
	AdminManageBeatmaps     int32 = 1 << 8
	AdminManageServers      int32 = 1 << 9
	AdminManageSettings     int32 = 1 << 10
	AdminManageBetaKeys     int32 = 1 << 11
	AdminManageReports      int32 = 1 << 12
	AdminManageDocs         int32 = 1 << 13
	AdminManageBadges       int32 = 1 << 14
	AdminViewRAPLogs        int32 = 1 << 15
	AdminManagePrivileges   int32 = 1 << 16
	AdminSendAlerts         int32 = 1 << 17
	AdminChatMod            int32 = 1 << 18
	AdminKickUsers          int32 = 1 << 19
	UserPendingVerification int32 = 1 << 20
	UserTournamentStaff     int32 = 1 << 21
	AdminCaker              int32 = 1 << 22
)

// Composite privilege groups as stored in the user table.
const (
	GroupOwner            int32 = 942669823
	GroupDeveloper        int32 = 672131067
	GroupDevSupporter     int32 = 992799
	GroupAdmin            int32 = 940572671
	GroupCommunityManager int32 = 806224383
	GroupModerator        int32 = 786683
	GroupBAT              int32 = 267
	GroupDonor            int32 = 7
)

// AdminGroups are the exact group values treated as full staff.
var AdminGroups = [...]int32{GroupDeveloper, GroupOwner, GroupAdmin, GroupDevSupporter}

// Client-side rank bits: username colour in chat and the permission word
// sent right after login. Mod is the BAT|Supporter composite the client
// renders as the moderator colour.
const (
	UserRankNormal          int32 = 0
	UserRankPlayer          int32 = 1
	UserRankBAT             int32 = 2
	UserRankSupporter       int32 = 4
	UserRankMod             int32 = 6
	UserRankPeppy           int32 = 8
	UserRankAdmin           int32 = 16
	UserRankTournamentStaff int32 = 32
)
