package pickedforyou

import "time"

// Storage keys. Recommendations are keyed per provider so switching
// providers addresses a different key and leaves the other provider's
// entry untouched until it is reselected.
const (
	keySettings              = "settings"
	keyRecommendationsPrefix = "recommendations."
)

func recommendationsKey(p Provider) string {
	return keyRecommendationsPrefix + string(p)
}

// daysBetween returns the number of whole days between two instants,
// regardless of order.
func daysBetween(a, b time.Time) int {
	diff := b.Sub(a)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}

// shouldRefresh decides whether the cached entry for the active provider
// must be recomputed:
//
//   - always, when the staleness window is 0 (caching disabled);
//   - when no entry exists (or it is empty);
//   - when at least RefreshIntervalDays whole days have elapsed since the
//     entry was saved. When NextRefreshAt is set it marks the end of the
//     window, so the reference instant is the window's start.
//
// Otherwise the existing entry is trusted as-is.
func shouldRefresh(s Settings, entry *CacheEntry, now time.Time) bool {
	if s.RefreshIntervalDays == 0 {
		return true
	}
	if entry == nil || len(entry.Items) == 0 {
		return true
	}

	ref := entry.SavedAt
	if s.NextRefreshAt != nil {
		ref = s.NextRefreshAt.AddDate(0, 0, -s.RefreshIntervalDays)
	}
	return daysBetween(ref, now) >= s.RefreshIntervalDays
}

// nextRefresh computes the end of the staleness window starting now.
// Nil when caching is disabled, keeping the NextRefreshAt invariant.
func nextRefresh(s Settings, now time.Time) *time.Time {
	if s.RefreshIntervalDays == 0 {
		return nil
	}
	t := now.AddDate(0, 0, s.RefreshIntervalDays)
	return &t
}
