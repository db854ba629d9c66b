package bancho

import (
	"context"

	"github.com/udisondev/banchogo/internal/db"
	"github.com/udisondev/banchogo/internal/geoloc"
	"github.com/udisondev/banchogo/internal/model"
	"github.com/udisondev/banchogo/internal/performance"
	"github.com/udisondev/banchogo/internal/webhook"
)

// Consumer-side views of the database layer. The concrete
// *db.XxxRepository types satisfy them; tests swap in fakes.

// UserRepository is the users table surface the server consumes.
type UserRepository interface {
	GetBySafeName(ctx context.Context, safeName string) (*model.User, error)
	GetByID(ctx context.Context, userID int32) (*model.User, error)
	GetIDBySafeName(ctx context.Context, safeName string) (int32, error)
	GetUsername(ctx context.Context, userID int32) (string, error)
	Privileges(ctx context.Context, userID int32) (int32, error)
	SilenceEnd(ctx context.Context, userID int32) (int64, error)
	Silence(ctx context.Context, userID int32, silenceEnd int64, reason string) error
	UpdateLatestActivity(ctx context.Context, userID int32) error
	UpdateOsuVersion(ctx context.Context, userID int32, version string) error
	SetCountry(ctx context.Context, userID int32, countryCode string) error
	SetPrivileges(ctx context.Context, userID int32, privileges int32) error
	Restrict(ctx context.Context, userID int32) error
	Ban(ctx context.Context, userID int32) error
	Unban(ctx context.Context, userID int32) error
	ResetPendingVerification(ctx context.Context, userID int32) error
	AppendNotes(ctx context.Context, userID int32, note string) error
	InsertBanLog(ctx context.Context, fromID, toID int32, summary, detail string, prefix bool) error
	RestrictWithLog(ctx context.Context, userID int32, summary, detail string, fromID int32) error
	Freeze(ctx context.Context, userID int32) error
	Unfreeze(ctx context.Context, userID int32) error
	AckUnfreezeNotice(ctx context.Context, userID int32) error
	ChangeUsername(ctx context.Context, userID int32, newName string) error
	GetFriends(ctx context.Context, userID int32) ([]int32, error)
	AddFriend(ctx context.Context, userID, friendID int32) error
	RemoveFriend(ctx context.Context, userID, friendID int32) error
}

// StatsRepository reads per-mode stats rows.
type StatsRepository interface {
	Get(ctx context.Context, userID int32, mode uint8, table db.StatsTable) (*db.StatsRow, error)
}

// ScoreRepository reads submitted scores.
type ScoreRepository interface {
	LastByUser(ctx context.Context, userID int32, table db.ScoreTable) (*db.ScoreRow, error)
}

// SettingsRepository reads and writes the bancho_settings table.
type SettingsRepository interface {
	GetInt(ctx context.Context, name string) (int32, error)
	GetString(ctx context.Context, name string) (string, error)
	SetInt(ctx context.Context, name string, value int32) error
	SetString(ctx context.Context, name, value string) error
}

// StatusRepository stores the custom user statuses.
type StatusRepository interface {
	LoadAll(ctx context.Context) ([]db.UserStatusRow, error)
	Upsert(ctx context.Context, userID int32, status string, enabled bool) error
}

// ChatLogRepository archives chat traffic.
type ChatLogRepository interface {
	LogPrivate(ctx context.Context, fromID, toID int32, content string) error
	LogChannel(ctx context.Context, fromID int32, channel, content string) error
}

// ReportRepository stores in-game reports.
type ReportRepository interface {
	Insert(ctx context.Context, fromID, toID int32, reason, chatlog string) error
}

// BeatmapRepository reads and ranks beatmaps.
type BeatmapRepository interface {
	GetByID(ctx context.Context, beatmapID int32) (*db.BeatmapRow, error)
	SetRankedStatus(ctx context.Context, wholeSet bool, id, status, rankedBy int32) error
	MD5sForSet(ctx context.Context, beatmapsetID int32) ([]string, error)
}

// HardwareRepository tracks hardware identities for multiaccount checks.
type HardwareRepository interface {
	HasVerified(ctx context.Context, userID int32) (bool, error)
	Log(ctx context.Context, userID int32, hw model.ClientHashes, activation bool) error
	ActivatedMatchOwner(ctx context.Context, userID int32, hw model.ClientHashes) (int32, error)
	BannedMatches(ctx context.Context, userID int32, hw model.ClientHashes) ([]int32, error)
}

// ChannelRepository lists the configured chat channels.
type ChannelRepository interface {
	LoadAll(ctx context.Context) ([]db.ChannelRow, error)
}

// Stores bundles every database surface for server wiring.
type Stores struct {
	Users    UserRepository
	Stats    StatsRepository
	Scores   ScoreRepository
	Settings SettingsRepository
	Statuses StatusRepository
	ChatLogs ChatLogRepository
	Reports  ReportRepository
	Beatmaps BeatmapRepository
	Hardware HardwareRepository
	Channels ChannelRepository
}

// External HTTP services, behind interfaces for the same reason as the
// repositories: the concrete clients live in internal/geoloc,
// internal/performance and internal/webhook.

// GeolocResolver resolves a client IP to a coarse location.
type GeolocResolver interface {
	Lookup(ctx context.Context, ip string) (geoloc.Result, error)
}

// PerformanceOracle computes pp values for a beatmap and mod combo.
type PerformanceOracle interface {
	Calculate(ctx context.Context, beatmapID, mods int32, accuracy float64) (performance.Result, error)
}

// WebhookSender delivers Discord embed notices.
type WebhookSender interface {
	Send(ctx context.Context, url string, e webhook.Embed) error
}
