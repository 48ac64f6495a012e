package anilist

import json "github.com/goccy/go-json"

// graphQLRequest is the wire shape of an AniList query.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLResponse is the standard GraphQL envelope. Data stays raw until
// the caller decodes it into a query-specific shape.
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type mediaDTO struct {
	ID    int `json:"id"`
	IDMal int `json:"idMal"`
	Title struct {
		English string `json:"english"`
		Romaji  string `json:"romaji"`
	} `json:"title"`
	CoverImage struct {
		Medium string `json:"medium"`
	} `json:"coverImage"`
	Genres []string `json:"genres"`
}

type pageMediaResponse struct {
	Page struct {
		Media []mediaDTO `json:"media"`
	} `json:"Page"`
}

type watchHistoryResponse struct {
	MediaListCollection struct {
		Lists []struct {
			Status  string `json:"status"`
			Entries []struct {
				Media struct {
					ID     int      `json:"id"`
					Genres []string `json:"genres"`
				} `json:"media"`
			} `json:"entries"`
		} `json:"lists"`
	} `json:"MediaListCollection"`
}

// ListEntry is one entry of the user's anime list.
type ListEntry struct {
	MediaID int
	Genres  []string
	Status  string
}

// Media is a catalog title returned by a candidate query.
type Media struct {
	ID           int
	TitleEnglish string
	TitleRomaji  string
	CoverImage   string
	Genres       []string
}

// Title returns the English localization, falling back to romaji.
func (m Media) Title() string {
	if m.TitleEnglish != "" {
		return m.TitleEnglish
	}
	return m.TitleRomaji
}
