// Package sprout is a client for the anime.ameo.dev recommendation
// endpoint ("sprout"). The service scores titles itself from the user's
// public AniList profile, so it is treated as an opaque oracle: no genre
// affinity or exclusion list is sent, and the result size is whatever the
// service returns.
package sprout

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

// DefaultBaseURL is the public sprout endpoint.
const DefaultBaseURL = "https://anime.ameo.dev"

const defaultTimeout = 30 * time.Second

// Candidate is one recommended title as sprout reports it. MALID is a
// MyAnimeList id, foreign to the AniList catalog, and must be reconciled
// before the candidate can be used.
type Candidate struct {
	MALID      int
	Title      string
	CoverImage string
	Genres     []string
}

// Client fetches recommendations from sprout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a sprout client.
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger.With().Str("component", "sprout").Logger(),
	}
}

// Recommendations fetches the candidate list for an AniList username.
//
// A degraded empty list is preferred over aborting the engine run: any
// fetch or decode failure is logged and yields an empty, nil-error result.
// Only context cancellation is reported as an error.
func (c *Client) Recommendations(ctx context.Context, username string) ([]Candidate, error) {
	reqURL := fmt.Sprintf("%s/user/%s/recommendations/__data.json?source=anilist", c.baseURL, username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("create sprout request")
		return nil, nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error().Err(err).Str("url", reqURL).Msg("sprout request failed")
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("url", reqURL).
			Msg("sprout returned non-success status")
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Msg("read sprout response")
		return nil, nil
	}

	candidates, err := parseCandidates(body)
	if err != nil {
		c.logger.Error().Err(err).Msg("parse sprout response")
		return nil, nil
	}
	return candidates, nil
}

type envelope struct {
	InitialRecommendations struct {
		AnimeData json.RawMessage `json:"animeData"`
	} `json:"initialRecommendations"`
}

type candidateDTO struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	MainPicture struct {
		Medium string `json:"medium"`
	} `json:"main_picture"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// parseCandidates decodes the keyed animeData mapping. The candidates keep
// the order of the keys in the response document; a plain map decode would
// lose it, so the object is walked token by token.
func parseCandidates(body []byte) ([]Candidate, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.InitialRecommendations.AnimeData) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(env.InitialRecommendations.AnimeData))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode animeData: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("animeData is not an object")
	}

	var candidates []Candidate
	for dec.More() {
		if _, err := dec.Token(); err != nil { // key, unused
			return nil, fmt.Errorf("decode animeData key: %w", err)
		}
		var dto candidateDTO
		if err := dec.Decode(&dto); err != nil {
			return nil, fmt.Errorf("decode candidate: %w", err)
		}

		genres := make([]string, 0, len(dto.Genres))
		for _, g := range dto.Genres {
			genres = append(genres, g.Name)
		}
		candidates = append(candidates, Candidate{
			MALID:      dto.ID,
			Title:      dto.Title,
			CoverImage: dto.MainPicture.Medium,
			Genres:     genres,
		})
	}
	return candidates, nil
}
