package pickedforyou

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kRYstall9/Picked-For-You/internal/anilist"
)

type stubProvider struct {
	items []Recommendation
	err   error
	calls int

	gotAffinity []GenreWeight
	gotExclude  []int
	gotLimit    int
}

func (p *stubProvider) fetchCandidates(ctx context.Context, affinity []GenreWeight, excludeIDs []int, limit int) ([]Recommendation, error) {
	p.calls++
	p.gotAffinity = affinity
	p.gotExclude = excludeIDs
	p.gotLimit = limit
	return p.items, p.err
}

type stubHistory struct {
	entries []anilist.ListEntry
	err     error
}

func (h *stubHistory) WatchHistory(ctx context.Context, username string) ([]anilist.ListEntry, error) {
	return h.entries, h.err
}

func newTestEngine(t *testing.T) (*Engine, *stubProvider, *stubProvider) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	engine, err := NewEngine(EngineConfig{
		DBPath:          dbPath,
		AniListUsername: "tester",
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	primary := &stubProvider{items: []Recommendation{
		{ID: 100, Title: "Primary Pick", Genres: []string{"Action"}},
	}}
	secondary := &stubProvider{items: []Recommendation{
		{ID: 200, Title: "Secondary Pick", Genres: []string{"Drama"}},
	}}
	engine.providers = map[Provider]providerClient{
		ProviderAniList: primary,
		ProviderSprout:  secondary,
	}
	engine.history = &stubHistory{entries: []anilist.ListEntry{
		{MediaID: 1, Genres: []string{"Action", "Drama"}, Status: "COMPLETED"},
		{MediaID: 2, Genres: []string{"Action"}, Status: "CURRENT"},
		{MediaID: 3, Genres: []string{"Romance"}, Status: "PLANNING"},
	}}
	engine.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}
	return engine, primary, secondary
}

func saveTestSettings(t *testing.T, e *Engine, s Settings) {
	t.Helper()
	if err := e.SaveSettings(s); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
}

func TestRunSetupRequired(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Run(context.Background())
	if !errors.Is(err, ErrSetupRequired) {
		t.Fatalf("expected ErrSetupRequired, got %v", err)
	}
}

func TestRunFetchesAndCaches(t *testing.T) {
	engine, primary, _ := newTestEngine(t)
	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 1, Provider: ProviderAniList})

	items, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(items) != 1 || items[0].ID != 100 {
		t.Fatalf("unexpected items: %v", items)
	}
	if primary.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", primary.calls)
	}

	// Affinity from completed/current entries only, watched ids excluded.
	if len(primary.gotAffinity) != 2 || primary.gotAffinity[0].Genre != "Action" || primary.gotAffinity[0].Weight != 2 {
		t.Errorf("unexpected affinity: %v", primary.gotAffinity)
	}
	if len(primary.gotExclude) != 2 {
		t.Errorf("expected 2 excluded ids, got %v", primary.gotExclude)
	}
	if primary.gotLimit != 15 {
		t.Errorf("limit = %d, want 15", primary.gotLimit)
	}

	// Second run inside the window hits the cache.
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("cached run must not call the provider again (calls = %d)", primary.calls)
	}

	settings, _, err := engine.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.NextRefreshAt == nil {
		t.Error("NextRefreshAt should be set after a cached fetch")
	}
}

func TestRunRefreshesAfterWindow(t *testing.T) {
	engine, primary, _ := newTestEngine(t)
	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 1, Provider: ProviderAniList})

	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Jump past the staleness window.
	engine.now = func() time.Time {
		return time.Date(2026, 9, 3, 12, 0, 0, 0, time.UTC)
	}
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run after window: %v", err)
	}
	if primary.calls != 2 {
		t.Errorf("expired cache must refetch (calls = %d)", primary.calls)
	}
}

func TestRunDisabledCachingNeverPersists(t *testing.T) {
	engine, primary, _ := newTestEngine(t)
	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 0, Provider: ProviderAniList})

	for i := 0; i < 3; i++ {
		if _, err := engine.Run(context.Background()); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}
	if primary.calls != 3 {
		t.Errorf("disabled caching must refetch every run (calls = %d)", primary.calls)
	}

	entry, err := engine.loadEntry(ProviderAniList)
	if err != nil {
		t.Fatalf("loadEntry: %v", err)
	}
	if entry != nil {
		t.Error("no cache entry may be persisted while caching is disabled")
	}

	settings, _, err := engine.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.NextRefreshAt != nil {
		t.Error("NextRefreshAt must stay nil while caching is disabled")
	}
}

func TestRunSecondaryProviderSkipsAffinity(t *testing.T) {
	engine, _, secondary := newTestEngine(t)
	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 1, Provider: ProviderSprout})

	items, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(items) != 1 || items[0].ID != 200 {
		t.Fatalf("unexpected items: %v", items)
	}
	if secondary.gotAffinity != nil || secondary.gotExclude != nil {
		t.Error("secondary provider scores itself: no affinity or exclusions expected")
	}
}

func TestRunProviderSwitchPreservesOtherEntry(t *testing.T) {
	engine, primary, secondary := newTestEngine(t)
	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 7, Provider: ProviderAniList})
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run primary: %v", err)
	}

	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 7, Provider: ProviderSprout})
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run secondary: %v", err)
	}

	// The primary entry survives untouched and is served on switch-back
	// without a refetch.
	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 7, Provider: ProviderAniList})
	items, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run primary again: %v", err)
	}
	if len(items) != 1 || items[0].ID != 100 {
		t.Fatalf("expected primary cached items, got %v", items)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("switching providers must not invalidate the other entry (primary %d, secondary %d)", primary.calls, secondary.calls)
	}
}

func TestRunFallsBackToStaleOnProviderError(t *testing.T) {
	engine, primary, _ := newTestEngine(t)
	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 1, Provider: ProviderAniList})

	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	engine.now = func() time.Time {
		return time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC)
	}
	primary.err = &ProviderError{Provider: ProviderAniList, Op: "fetch candidates", Err: errors.New("boom")}

	items, err := engine.Run(context.Background())
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if len(items) != 1 || items[0].ID != 100 {
		t.Errorf("expected stale items alongside the error, got %v", items)
	}
}

func TestRunDeduplicatesItems(t *testing.T) {
	engine, primary, _ := newTestEngine(t)
	primary.items = []Recommendation{
		{ID: 100, Title: "A"},
		{ID: 100, Title: "A again"},
		{ID: 101, Title: "B"},
	}
	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 1, Provider: ProviderAniList})

	items, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(items) != 2 || items[0].ID != 100 || items[1].ID != 101 {
		t.Errorf("ids must be unique within one entry, got %v", items)
	}
}

func TestSaveSettingsValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	cases := []Settings{
		{RecommendationCount: -1, RefreshIntervalDays: 1, Provider: ProviderAniList}, // edit sentinel
		{RecommendationCount: 0, RefreshIntervalDays: 1, Provider: ProviderAniList},
		{RecommendationCount: 15, RefreshIntervalDays: -1, Provider: ProviderAniList},
		{RecommendationCount: 15, RefreshIntervalDays: 1, Provider: Provider("mal")},
	}
	for _, s := range cases {
		err := engine.SaveSettings(s)
		var valErr *ValidationError
		if !errors.As(err, &valErr) {
			t.Errorf("SaveSettings(%+v): expected ValidationError, got %v", s, err)
		}
	}
}

func TestSaveSettingsComputesNextRefresh(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	now := engine.now()

	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 3, Provider: ProviderAniList})

	settings, configured, err := engine.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if !configured {
		t.Fatal("settings should be configured after a save")
	}
	if settings.NextRefreshAt == nil || !settings.NextRefreshAt.Equal(now.AddDate(0, 0, 3)) {
		t.Errorf("NextRefreshAt = %v, want %v", settings.NextRefreshAt, now.AddDate(0, 0, 3))
	}
}

func TestSaveSettingsUnchangedIsNoop(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 3, Provider: ProviderAniList})

	before, _, err := engine.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}

	// Same values, different clock: nothing may move.
	engine.now = func() time.Time {
		return time.Date(2026, 9, 20, 12, 0, 0, 0, time.UTC)
	}
	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 3, Provider: ProviderAniList})

	after, _, err := engine.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if !after.NextRefreshAt.Equal(*before.NextRefreshAt) {
		t.Errorf("no-op save moved NextRefreshAt from %v to %v", before.NextRefreshAt, after.NextRefreshAt)
	}
}

func TestSaveSettingsDisableCachingRemovesEntry(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 1, Provider: ProviderAniList})
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	saveTestSettings(t, engine, Settings{RecommendationCount: 15, RefreshIntervalDays: 0, Provider: ProviderAniList})

	entry, err := engine.loadEntry(ProviderAniList)
	if err != nil {
		t.Fatalf("loadEntry: %v", err)
	}
	if entry != nil {
		t.Error("disabling caching must remove the stored entry")
	}

	settings, _, err := engine.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.NextRefreshAt != nil {
		t.Error("NextRefreshAt must be nil when caching is disabled")
	}
}

func TestSettingsUnconfiguredReturnsDefaults(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	settings, configured, err := engine.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if configured {
		t.Fatal("fresh engine should not be configured")
	}
	if settings != DefaultSettings() {
		t.Errorf("expected defaults, got %+v", settings)
	}
}
