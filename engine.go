// Package pickedforyou recommends anime titles from a user's watch history.
//
// The engine derives a genre affinity from the user's completed and
// in-progress list, queries one of two interchangeable providers for novel
// titles, reconciles foreign identifiers into the AniList id space, and
// caches the result for a configurable number of days. Paging and genre
// filtering happen over the cached list and never trigger a refetch.
//
// It is a library: hosts drive it through Run, SaveSettings and the page
// operations, and render the resulting types however they like.
package pickedforyou

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kRYstall9/Picked-For-You/internal/anilist"
	"github.com/kRYstall9/Picked-For-You/internal/sprout"
	"github.com/kRYstall9/Picked-For-You/internal/storage"
	"github.com/rs/zerolog"
)

// historySource provides the user's anime list, partitioned by status.
type historySource interface {
	WatchHistory(ctx context.Context, username string) ([]anilist.ListEntry, error)
}

// Engine is the public API of the recommendation pipeline.
type Engine struct {
	store     *storage.Store
	history   historySource
	providers map[Provider]providerClient
	username  string
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	flights map[Provider]*sync.Mutex
}

// NewEngine creates a recommendation engine backed by the given SQLite
// database.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	base := zerolog.Nop()
	if cfg.Logger != nil {
		base = *cfg.Logger
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	anilistClient := anilist.NewClient(cfg.AniListBaseURL, cfg.AniListToken, base)
	sproutClient := sprout.NewClient(cfg.SproutBaseURL, base)

	logger := base.With().Str("component", "engine").Logger()
	e := &Engine{
		store:    store,
		history:  anilistClient,
		username: cfg.AniListUsername,
		logger:   logger,
		now:      time.Now,
		flights:  make(map[Provider]*sync.Mutex),
	}
	e.providers = map[Provider]providerClient{
		ProviderAniList: &anilistProvider{client: anilistClient},
		ProviderSprout: &sproutProvider{
			client:   sproutClient,
			resolver: anilistClient,
			username: cfg.AniListUsername,
			logger:   logger,
		},
	}
	return e, nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Settings loads the stored settings. The second return is false when no
// settings have been saved yet; the defaults are returned in that case so
// hosts can prefill the setup form.
func (e *Engine) Settings() (Settings, bool, error) {
	var s Settings
	ok, err := e.store.Get(keySettings, &s)
	if err != nil {
		return Settings{}, false, err
	}
	if !ok {
		return DefaultSettings(), false, nil
	}
	return s, true, nil
}

// SaveSettings validates and persists new settings. When nothing changed it
// is a no-op. A change of the staleness window recomputes NextRefreshAt
// immediately; setting the window to 0 also removes the active provider's
// stored recommendation list, since disabled caching must leave nothing
// persisted. Hosts typically call Run afterwards to refresh the view.
func (e *Engine) SaveSettings(s Settings) error {
	if err := validateSettings(s); err != nil {
		return err
	}

	prev, had, err := e.Settings()
	if err != nil {
		return err
	}

	if had && prev.RecommendationCount == s.RecommendationCount &&
		prev.RefreshIntervalDays == s.RefreshIntervalDays &&
		prev.Provider == s.Provider {
		return nil
	}

	now := e.now()
	if !had || prev.RefreshIntervalDays != s.RefreshIntervalDays {
		s.NextRefreshAt = nextRefresh(s, now)
		if s.RefreshIntervalDays == 0 {
			if err := e.store.Delete(recommendationsKey(s.Provider)); err != nil {
				e.logger.Error().Err(err).Str("op", "save settings").Msg("failed to remove stored recommendations")
				return fmt.Errorf("remove recommendations: %w", err)
			}
		} else {
			e.logger.Info().Time("cached_until", *s.NextRefreshAt).Msg("recommendations will be cached")
		}
	} else {
		s.NextRefreshAt = prev.NextRefreshAt
	}

	if err := e.store.Set(keySettings, s); err != nil {
		e.logger.Error().Err(err).Str("op", "save settings").Msg("failed to persist settings")
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.RecommendationCount <= 0 {
		return &ValidationError{Field: "recommendation count", Reason: "must be greater than 0"}
	}
	if s.RefreshIntervalDays < 0 {
		return &ValidationError{Field: "refresh interval", Reason: "must be 0 or greater"}
	}
	if !s.Provider.Valid() {
		return &ValidationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", s.Provider)}
	}
	return nil
}

// Run produces the current recommendation list for the active provider.
//
// A trusted cache entry is returned unchanged. Otherwise the provider is
// queried and, unless caching is disabled, the result and the updated
// NextRefreshAt are persisted. When the external fetch fails, Run returns
// the previously cached items (possibly none) together with the error, so
// hosts can notify the user while still showing something.
//
// Run returns ErrSetupRequired when no settings have ever been saved.
func (e *Engine) Run(ctx context.Context) ([]Recommendation, error) {
	settings, ok, err := e.Settings()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSetupRequired
	}
	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	provider := settings.Provider
	entry, err := e.loadEntry(provider)
	if err != nil {
		return nil, err
	}

	if !shouldRefresh(settings, entry, e.now()) {
		e.logger.Debug().Str("provider", string(provider)).Msg("returning cached recommendations")
		return entry.Items, nil
	}

	// At most one fetch in flight per provider. A caller that waited here
	// re-checks the cache: the winner usually already stored a fresh entry.
	flight := e.flight(provider)
	flight.Lock()
	defer flight.Unlock()

	entry, err = e.loadEntry(provider)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if !shouldRefresh(settings, entry, now) {
		return entry.Items, nil
	}

	e.logger.Debug().Str("provider", string(provider)).Msg("refreshing recommendations")
	items, err := e.fetch(ctx, settings)
	if err != nil {
		e.logger.Error().Err(err).Str("op", "run").Msg("recommendation fetch failed")
		var stale []Recommendation
		if entry != nil {
			stale = entry.Items
		}
		return stale, err
	}

	if settings.RefreshIntervalDays != 0 {
		settings.NextRefreshAt = nextRefresh(settings, now)
		if err := e.store.Set(keySettings, settings); err != nil {
			return items, fmt.Errorf("save settings: %w", err)
		}
		newEntry := CacheEntry{Provider: provider, Items: items, SavedAt: now}
		if err := e.store.Set(recommendationsKey(provider), newEntry); err != nil {
			return items, fmt.Errorf("save recommendations: %w", err)
		}
		e.logger.Debug().Time("next_refresh", *settings.NextRefreshAt).Msg("recommendations cached")
	}
	return items, nil
}

// fetch queries the active provider once. The primary provider needs the
// watch history first, both for the affinity ranking and for the exclusion
// list; the secondary provider scores titles itself and gets neither.
func (e *Engine) fetch(ctx context.Context, settings Settings) ([]Recommendation, error) {
	client := e.providers[settings.Provider]

	var affinity []GenreWeight
	var excludeIDs []int
	if settings.Provider == ProviderAniList {
		history, err := e.history.WatchHistory(ctx, e.username)
		if err != nil {
			return nil, &ProviderError{Provider: ProviderAniList, Op: "watch history", Err: err}
		}
		watched := watchedEntries(history)
		affinity = scoreAffinity(watched, e.logger)
		for _, w := range watched {
			excludeIDs = append(excludeIDs, w.MediaID)
		}
	}

	items, err := client.fetchCandidates(ctx, affinity, excludeIDs, settings.RecommendationCount)
	if err != nil {
		return nil, err
	}
	return dedupItems(items), nil
}

// watchedEntries converts the raw list to the engine's snapshot type,
// keeping only completed and currently-watched entries.
func watchedEntries(history []anilist.ListEntry) []WatchedEntry {
	var watched []WatchedEntry
	for _, entry := range history {
		status := WatchStatus(entry.Status)
		if status != StatusCompleted && status != StatusCurrent {
			continue
		}
		watched = append(watched, WatchedEntry{
			MediaID: entry.MediaID,
			Genres:  entry.Genres,
			Status:  status,
		})
	}
	return watched
}

// dedupItems drops repeated ids, keeping the first occurrence. Ids must be
// unique within one cache entry.
func dedupItems(items []Recommendation) []Recommendation {
	seen := make(map[int]bool, len(items))
	deduped := items[:0]
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		deduped = append(deduped, item)
	}
	return deduped
}

func (e *Engine) loadEntry(p Provider) (*CacheEntry, error) {
	var entry CacheEntry
	ok, err := e.store.Get(recommendationsKey(p), &entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (e *Engine) flight(p Provider) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flights[p] == nil {
		e.flights[p] = &sync.Mutex{}
	}
	return e.flights[p]
}
