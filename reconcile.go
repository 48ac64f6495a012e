package pickedforyou

import (
	"context"

	"github.com/kRYstall9/Picked-For-You/internal/sprout"
	"github.com/rs/zerolog"
)

// malResolver batch-resolves MyAnimeList ids to AniList ids. Ids without a
// match are absent from the result.
type malResolver interface {
	ResolveMALIDs(ctx context.Context, malIDs []int) (map[int]int, error)
}

// reconcileCandidates maps secondary-provider candidates into the AniList
// id space. A candidate whose MAL id has no AniList match cannot be safely
// linked to the catalog and is dropped silently; that is an expected gap,
// not an error. Surviving candidates keep the provider's original order.
func reconcileCandidates(ctx context.Context, r malResolver, cands []sprout.Candidate, logger zerolog.Logger) ([]Recommendation, error) {
	if len(cands) == 0 {
		return nil, nil
	}

	malIDs := make([]int, len(cands))
	for i, cand := range cands {
		malIDs[i] = cand.MALID
	}

	resolved, err := r.ResolveMALIDs(ctx, malIDs)
	if err != nil {
		return nil, err
	}

	items := make([]Recommendation, 0, len(cands))
	for _, cand := range cands {
		id, ok := resolved[cand.MALID]
		if !ok {
			logger.Debug().Int("mal_id", cand.MALID).Str("title", cand.Title).Msg("no anilist match, dropping candidate")
			continue
		}
		items = append(items, Recommendation{
			ID:         id,
			Title:      cand.Title,
			CoverImage: cand.CoverImage,
			Genres:     cand.Genres,
		})
	}
	return items, nil
}
