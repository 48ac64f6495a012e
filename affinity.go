package pickedforyou

import (
	"sort"

	"github.com/rs/zerolog"
)

// affinityLimit caps the ranking at the three strongest genres.
const affinityLimit = 3

// scoreAffinity ranks the genres of the given watched entries by how often
// they appear, most frequent first. Ties keep the order in which the genres
// were first seen while scanning, which makes the ranking deterministic for
// a given history snapshot. The result holds at most affinityLimit genres.
//
// Malformed entries never abort the scan: a nil genre list or an empty genre
// name is logged and skipped.
func scoreAffinity(entries []WatchedEntry, logger zerolog.Logger) []GenreWeight {
	counts := make(map[string]int)
	var order []string

	for _, entry := range entries {
		if entry.Genres == nil {
			logger.Debug().Int("media_id", entry.MediaID).Msg("entry has no genres, skipping")
			continue
		}
		for _, genre := range entry.Genres {
			if genre == "" {
				logger.Debug().Int("media_id", entry.MediaID).Msg("empty genre name, skipping")
				continue
			}
			if _, seen := counts[genre]; !seen {
				order = append(order, genre)
			}
			counts[genre]++
		}
	}

	ranking := make([]GenreWeight, 0, len(order))
	for _, genre := range order {
		ranking = append(ranking, GenreWeight{Genre: genre, Weight: counts[genre]})
	}

	// Stable sort so equal weights preserve first-seen order.
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Weight > ranking[j].Weight
	})

	if len(ranking) > affinityLimit {
		ranking = ranking[:affinityLimit]
	}
	return ranking
}

// affinityGenres extracts just the genre names from a ranking.
func affinityGenres(ranking []GenreWeight) []string {
	genres := make([]string, len(ranking))
	for i, gw := range ranking {
		genres[i] = gw.Genre
	}
	return genres
}
