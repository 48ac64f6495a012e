// Package anilist is a minimal client for the AniList GraphQL API covering
// the three query modes the recommendation engine needs: the user's watch
// history, genre-filtered candidate media, and MAL-id resolution.
package anilist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public AniList GraphQL endpoint.
const DefaultBaseURL = "https://graphql.anilist.co"

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
)

// Client talks to the AniList GraphQL API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates an AniList client. token may be empty for queries that
// only touch public data.
func NewClient(baseURL, token string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger.With().Str("component", "anilist").Logger(),
	}
}

// doQuery posts a GraphQL query and decodes the "data" envelope into dest.
// 5xx responses are retried with exponential backoff.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any, dest any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode query: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("retrying query")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("query anilist: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 500 && resp.StatusCode < 600 {
			lastErr = fmt.Errorf("server error: %d - %s", resp.StatusCode, string(body))
			c.logger.Warn().
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Msg("anilist server error, will retry")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			c.logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("anilist query failed")
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		var envelope graphQLResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		if len(envelope.Errors) > 0 {
			return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
		}
		if err := json.Unmarshal(envelope.Data, dest); err != nil {
			return fmt.Errorf("parse data: %w", err)
		}
		return nil
	}

	c.logger.Error().Err(lastErr).Msg("anilist query failed after retries")
	return lastErr
}

const watchHistoryQuery = `query MediaListCollection($userName: String, $type: MediaType) {
  MediaListCollection(userName: $userName, type: $type) {
    lists {
      status
      entries {
        media {
          id
          genres
        }
      }
    }
  }
}`

// WatchHistory returns every entry of the user's anime list, partitioned by
// list status.
func (c *Client) WatchHistory(ctx context.Context, username string) ([]ListEntry, error) {
	var resp watchHistoryResponse
	vars := map[string]any{
		"userName": username,
		"type":     "ANIME",
	}
	if err := c.doQuery(ctx, watchHistoryQuery, vars, &resp); err != nil {
		return nil, err
	}

	var entries []ListEntry
	for _, list := range resp.MediaListCollection.Lists {
		for _, entry := range list.Entries {
			entries = append(entries, ListEntry{
				MediaID: entry.Media.ID,
				Genres:  entry.Media.Genres,
				Status:  list.Status,
			})
		}
	}
	return entries, nil
}

const candidatesQuery = `query Media($genreIn: [String], $perPage: Int, $sort: [MediaSort], $idNotIn: [Int]) {
  Page(perPage: $perPage) {
    media(genre_in: $genreIn, sort: $sort, id_not_in: $idNotIn, type: ANIME) {
      title {
        english
        romaji
      }
      coverImage {
        medium
      }
      id
      genres
    }
  }
}`

// FetchCandidates queries the catalog for anime matching any of the given
// genres, best scored first, excluding the given ids, limited to limit.
func (c *Client) FetchCandidates(ctx context.Context, genres []string, excludeIDs []int, limit int) ([]Media, error) {
	var resp pageMediaResponse
	vars := map[string]any{
		"genreIn": genres,
		"perPage": limit,
		"sort":    "SCORE_DESC",
		"idNotIn": excludeIDs,
	}
	if err := c.doQuery(ctx, candidatesQuery, vars, &resp); err != nil {
		return nil, err
	}

	media := make([]Media, 0, len(resp.Page.Media))
	for _, m := range resp.Page.Media {
		media = append(media, Media{
			ID:           m.ID,
			TitleEnglish: m.Title.English,
			TitleRomaji:  m.Title.Romaji,
			CoverImage:   m.CoverImage.Medium,
			Genres:       m.Genres,
		})
	}
	return media, nil
}

const malResolveQuery = `query Media($perPage: Int, $idMalIn: [Int]) {
  Page(perPage: $perPage) {
    media(idMal_in: $idMalIn, type: ANIME) {
      id
      idMal
    }
  }
}`

// ResolveMALIDs batch-resolves MyAnimeList ids to AniList ids. Ids the
// catalog does not know are simply absent from the result.
func (c *Client) ResolveMALIDs(ctx context.Context, malIDs []int) (map[int]int, error) {
	if len(malIDs) == 0 {
		return map[int]int{}, nil
	}

	var resp pageMediaResponse
	vars := map[string]any{
		"idMalIn": malIDs,
		"perPage": len(malIDs),
	}
	if err := c.doQuery(ctx, malResolveQuery, vars, &resp); err != nil {
		return nil, err
	}

	resolved := make(map[int]int, len(resp.Page.Media))
	for _, m := range resp.Page.Media {
		if m.IDMal != 0 {
			resolved[m.IDMal] = m.ID
		}
	}
	return resolved, nil
}
