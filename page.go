package pickedforyou

// GenreAll is the genre filter sentinel meaning "no filter". An empty
// string is treated the same way.
const GenreAll = "all"

// PageSizeOptions are the page sizes hosts may offer. DefaultPageSize is
// applied when a page state is created.
var PageSizeOptions = []int{6, 15, 30}

// DefaultPageSize is the initial page size for a new page state.
const DefaultPageSize = 6

// Page is one visible window over a recommendation list.
type Page struct {
	Visible    []Recommendation `json:"visible"`
	TotalPages int              `json:"total_pages"`
	TotalItems int              `json:"total_items"`
}

// FilterPage filters items by genre, then slices out the requested page.
// It is a pure function over the cached list: paging and filtering never
// trigger a recomputation.
//
// TotalPages is ceil(filtered/pageSize), 0 for an empty filtered set.
// A page number beyond the last page yields an empty Visible slice.
func FilterPage(items []Recommendation, pageSize, pageNumber int, genre string) Page {
	filtered := filterByGenre(items, genre)

	totalPages := len(filtered) / pageSize
	if len(filtered)%pageSize > 0 {
		totalPages++
	}

	start := pageSize * (pageNumber - 1)
	end := pageSize * pageNumber
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}
	if start < 0 {
		start = 0
	}

	return Page{
		Visible:    filtered[start:end],
		TotalPages: totalPages,
		TotalItems: len(filtered),
	}
}

func filterByGenre(items []Recommendation, genre string) []Recommendation {
	if genre == "" || genre == GenreAll {
		return items
	}
	var filtered []Recommendation
	for _, item := range items {
		for _, g := range item.Genres {
			if g == genre {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return filtered
}

// Genres returns the distinct genres of a recommendation list in
// first-appearance order, for driving a filter dropdown.
func Genres(items []Recommendation) []string {
	seen := make(map[string]bool)
	var genres []string
	for _, item := range items {
		for _, g := range item.Genres {
			if g == "" || seen[g] {
				continue
			}
			seen[g] = true
			genres = append(genres, g)
		}
	}
	return genres
}
