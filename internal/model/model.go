// Package model defines the domain types used across the application.
package model

// FileFormat identifies how a collected item was received.
type FileFormat string

// Supported file formats.
const (
	FormatText     FileFormat = "text"
	FormatDocument FileFormat = "document"
	FormatVideo    FileFormat = "video"
	FormatAudio    FileFormat = "audio"
)

// Item is one collected unit awaiting sort and dispatch. FileID is the
// Telegram payload handle; it is empty for text-only entries. Season,
// Episode, Quality, QualityRank and IsSeries are derived by
// sequence.Extract and are zero-valued on freshly collected items.
type Item struct {
	Filename string
	Format   FileFormat
	FileID   string

	Season      int
	Episode     int
	Quality     string
	QualityRank int
	IsSeries    bool
}

// SortMode selects the ordering keys applied to series items.
type SortMode string

// Supported sort modes.
const (
	ModeQuality SortMode = "Quality"
	ModeSeason  SortMode = "Season"
	ModeEpisode SortMode = "Episode"
	ModeAll     SortMode = "All"
	ModeAllSQE  SortMode = "AllSQE"
)

// DefaultSortMode is used when a user has no stored preference.
const DefaultSortMode = ModeAll

// ParseSortMode validates a stored or user-supplied mode string,
// falling back to the default for unknown values.
func ParseSortMode(s string) SortMode {
	switch SortMode(s) {
	case ModeQuality, ModeSeason, ModeEpisode, ModeAll, ModeAllSQE:
		return SortMode(s)
	default:
		return DefaultSortMode
	}
}

// DispatchResult summarizes one dispatch run.
type DispatchResult struct {
	SentCount int
	Failed    []string
	Total     int
}

// LeaderboardEntry is one row of the sequence-count leaderboard.
type LeaderboardEntry struct {
	UserID      int64
	DisplayName string
	Count       int64
}
