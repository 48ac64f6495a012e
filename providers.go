package pickedforyou

import (
	"context"

	"github.com/kRYstall9/Picked-For-You/internal/anilist"
	"github.com/kRYstall9/Picked-For-You/internal/sprout"
	"github.com/rs/zerolog"
)

// providerClient is one recommendation source. Implementations always
// return items in the AniList id space.
type providerClient interface {
	fetchCandidates(ctx context.Context, affinity []GenreWeight, excludeIDs []int, limit int) ([]Recommendation, error)
}

// anilistProvider queries the AniList catalog by the user's genre affinity:
// genre match is a union across the affinity genres, sorted by descending
// score, excluding already-watched ids.
type anilistProvider struct {
	client *anilist.Client
}

func (p *anilistProvider) fetchCandidates(ctx context.Context, affinity []GenreWeight, excludeIDs []int, limit int) ([]Recommendation, error) {
	media, err := p.client.FetchCandidates(ctx, affinityGenres(affinity), excludeIDs, limit)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderAniList, Op: "fetch candidates", Err: err}
	}

	items := make([]Recommendation, 0, len(media))
	for _, m := range media {
		items = append(items, Recommendation{
			ID:         m.ID,
			Title:      m.Title(),
			CoverImage: m.CoverImage,
			Genres:     m.Genres,
		})
	}
	return items, nil
}

// sproutProvider fetches from the sprout oracle and reconciles its MAL ids
// into the AniList id space. The oracle scores titles itself, so affinity,
// exclusions and limit are ignored; the result size is whatever sprout
// returns, minus unresolvable candidates.
type sproutProvider struct {
	client   *sprout.Client
	resolver malResolver
	username string
	logger   zerolog.Logger
}

func (p *sproutProvider) fetchCandidates(ctx context.Context, _ []GenreWeight, _ []int, _ int) ([]Recommendation, error) {
	cands, err := p.client.Recommendations(ctx, p.username)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderSprout, Op: "fetch recommendations", Err: err}
	}

	items, err := reconcileCandidates(ctx, p.resolver, cands, p.logger)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderSprout, Op: "reconcile ids", Err: err}
	}
	return items, nil
}
