package pickedforyou

import (
	"time"

	"github.com/rs/zerolog"
)

// Provider identifies an external recommendation source.
type Provider string

const (
	// ProviderAniList recommends from the AniList catalog using the user's
	// genre affinity.
	ProviderAniList Provider = "anilist"
	// ProviderSprout recommends from the anime.ameo.dev oracle, which scores
	// titles itself from the user's public list.
	ProviderSprout Provider = "sprout"
)

// Valid reports whether p names a known provider.
func (p Provider) Valid() bool {
	return p == ProviderAniList || p == ProviderSprout
}

// WatchStatus is the list status of a watched entry.
type WatchStatus string

const (
	StatusCompleted WatchStatus = "COMPLETED"
	StatusCurrent   WatchStatus = "CURRENT"
)

// WatchedEntry is one entry of the user's anime list, snapshotted at the
// start of an engine run.
type WatchedEntry struct {
	MediaID int         `json:"media_id"`
	Genres  []string    `json:"genres"`
	Status  WatchStatus `json:"status"`
}

// GenreWeight is one genre of an affinity ranking with its frequency count.
type GenreWeight struct {
	Genre  string `json:"genre"`
	Weight int    `json:"weight"`
}

// Recommendation is a single recommended title. ID is always an AniList id,
// regardless of which provider produced the title.
type Recommendation struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	CoverImage string   `json:"cover_image,omitempty"`
	Genres     []string `json:"genres"`
}

// Settings holds the user-configurable engine settings. They live in the
// persistent store under the "settings" key and are only mutated through
// SaveSettings.
type Settings struct {
	// RecommendationCount is the number of titles requested from the primary
	// provider. The sentinel -1 marks a value mid-edit and is rejected by
	// SaveSettings.
	RecommendationCount int `json:"number_of_recommendations"`

	// RefreshIntervalDays is the staleness window in whole days. 0 disables
	// caching entirely: every run refetches and nothing is persisted.
	RefreshIntervalDays int `json:"days_before_refreshing"`

	Provider Provider `json:"recommendations_provider"`

	// NextRefreshAt is the end of the current staleness window. Nil exactly
	// when RefreshIntervalDays is 0. Maintained by the engine, never by hosts.
	NextRefreshAt *time.Time `json:"next_refresh,omitempty"`
}

// DefaultSettings returns the settings applied on first use.
func DefaultSettings() Settings {
	return Settings{
		RecommendationCount: 15,
		RefreshIntervalDays: 1,
		Provider:            ProviderAniList,
	}
}

// CacheEntry is the stored recommendation list for one provider.
type CacheEntry struct {
	Provider Provider         `json:"provider"`
	Items    []Recommendation `json:"items"`
	SavedAt  time.Time        `json:"saved_at"`
}

// EngineConfig configures the recommendation engine.
type EngineConfig struct {
	DBPath string

	// AniList access. Token is the OAuth bearer token; Username is the
	// display name used for watch-history and secondary-provider lookups.
	AniListToken    string
	AniListUsername string

	// Base URL overrides, used by tests. Empty selects the public endpoints.
	AniListBaseURL string
	SproutBaseURL  string

	// Logger receives engine and provider logs. Nil disables logging.
	Logger *zerolog.Logger
}
