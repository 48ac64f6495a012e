// Package output renders engine results for the CLI host in one of three
// formats: machine-readable JSON, tab-separated text, or a human layout.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	pickedforyou "github.com/kRYstall9/Picked-For-You"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatHuman Format = "human"
)

type Formatter struct {
	format Format
	out    io.Writer
	err    io.Writer
}

// NewFormatter creates a formatter writing to stdout/stderr.
func NewFormatter(format Format) *Formatter {
	return &Formatter{
		format: format,
		out:    os.Stdout,
		err:    os.Stderr,
	}
}

// NewFormatterWithWriters creates a formatter with custom writers for testability.
func NewFormatterWithWriters(format Format, out, errW io.Writer) *Formatter {
	return &Formatter{
		format: format,
		out:    out,
		err:    errW,
	}
}

// pageDocument is the JSON shape of a rendered page.
type pageDocument struct {
	Provider    pickedforyou.Provider         `json:"provider"`
	Page        int                           `json:"page"`
	TotalPages  int                           `json:"total_pages"`
	TotalItems  int                           `json:"total_items"`
	GenreFilter string                        `json:"genre_filter,omitempty"`
	Items       []pickedforyou.Recommendation `json:"items"`
}

// OutputPage renders one page of recommendations.
func (f *Formatter) OutputPage(provider pickedforyou.Provider, page pickedforyou.Page, pageNumber int, genre string) error {
	switch f.format {
	case FormatJSON:
		doc := pageDocument{
			Provider:    provider,
			Page:        pageNumber,
			TotalPages:  page.TotalPages,
			TotalItems:  page.TotalItems,
			GenreFilter: genre,
			Items:       page.Visible,
		}
		return f.writeJSON(doc)

	case FormatText:
		for _, item := range page.Visible {
			fmt.Fprintf(f.out, "%d\t%s\t%s\n", item.ID, item.Title, strings.Join(item.Genres, ","))
		}
		return nil

	default: // human
		if page.TotalItems == 0 {
			fmt.Fprintln(f.out, "No recommendations. Try saving your settings to trigger a refresh.")
			return nil
		}
		header := fmt.Sprintf("Picked for you (%s) - page %d/%d, %d titles", provider, pageNumber, page.TotalPages, page.TotalItems)
		if genre != "" && genre != pickedforyou.GenreAll {
			header += fmt.Sprintf(", genre %q", genre)
		}
		fmt.Fprintln(f.out, header)
		fmt.Fprintln(f.out, strings.Repeat("-", len(header)))
		for _, item := range page.Visible {
			fmt.Fprintf(f.out, "%8d  %s\n", item.ID, item.Title)
			fmt.Fprintf(f.out, "          %s\n", strings.Join(item.Genres, ", "))
		}
		return nil
	}
}

// OutputSettings renders the stored settings. configured is false when the
// engine has never been set up and the defaults are shown instead.
func (f *Formatter) OutputSettings(s pickedforyou.Settings, configured bool) error {
	switch f.format {
	case FormatJSON:
		doc := struct {
			Configured bool                  `json:"configured"`
			Settings   pickedforyou.Settings `json:"settings"`
		}{configured, s}
		return f.writeJSON(doc)

	case FormatText:
		fmt.Fprintf(f.out, "configured\t%t\n", configured)
		fmt.Fprintf(f.out, "provider\t%s\n", s.Provider)
		fmt.Fprintf(f.out, "count\t%d\n", s.RecommendationCount)
		fmt.Fprintf(f.out, "refresh_days\t%d\n", s.RefreshIntervalDays)
		if s.NextRefreshAt != nil {
			fmt.Fprintf(f.out, "next_refresh\t%s\n", s.NextRefreshAt.Format("2006-01-02 15:04"))
		}
		return nil

	default:
		if !configured {
			fmt.Fprintln(f.out, "Setup required: no settings saved yet. Defaults shown below.")
		}
		fmt.Fprintf(f.out, "Provider:            %s\n", s.Provider)
		fmt.Fprintf(f.out, "Recommendations:     %d\n", s.RecommendationCount)
		fmt.Fprintf(f.out, "Refresh every:       %d day(s)\n", s.RefreshIntervalDays)
		if s.NextRefreshAt != nil {
			fmt.Fprintf(f.out, "Cached until:        %s\n", s.NextRefreshAt.Format("2006-01-02 15:04"))
		} else {
			fmt.Fprintln(f.out, "Caching:             disabled")
		}
		return nil
	}
}

// OutputGenres renders the distinct genres of the cached list.
func (f *Formatter) OutputGenres(genres []string) error {
	switch f.format {
	case FormatJSON:
		return f.writeJSON(struct {
			Genres []string `json:"genres"`
		}{genres})
	default:
		for _, g := range genres {
			fmt.Fprintln(f.out, g)
		}
		return nil
	}
}

// Warning prints a user-visible warning without failing the command.
func (f *Formatter) Warning(format string, args ...any) {
	fmt.Fprintf(f.err, "Warning: "+format+"\n", args...)
}

func (f *Formatter) writeJSON(v any) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
