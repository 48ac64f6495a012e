package pickedforyou

import "fmt"

// PageState tracks the visible window over a cached recommendation list:
// the current page, the page size, and the selected genre filter. It is
// ephemeral view state, never persisted, and each navigation action is an
// explicit command with a well-defined effect.
//
// PageState is owned by a single host session and is not safe for
// concurrent use.
type PageState struct {
	currentPage int
	pageSize    int
	genre       string
}

// NewPageState returns a page state at page 1 with the default page size
// and no genre filter.
func NewPageState() *PageState {
	return &PageState{
		currentPage: 1,
		pageSize:    DefaultPageSize,
		genre:       GenreAll,
	}
}

// View applies the state's filter and pagination to a recommendation list.
func (s *PageState) View(items []Recommendation) Page {
	return FilterPage(items, s.pageSize, s.currentPage, s.genre)
}

// CurrentPage returns the 1-based current page number.
func (s *PageState) CurrentPage() int { return s.currentPage }

// PageSize returns the current page size.
func (s *PageState) PageSize() int { return s.pageSize }

// Genre returns the selected genre filter, GenreAll when unfiltered.
func (s *PageState) Genre() string { return s.genre }

// SetPage moves to the requested page, clamped to [1, totalPages].
// Requesting the current page is a no-op.
func (s *PageState) SetPage(page, totalPages int) {
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	if page == s.currentPage {
		return
	}
	s.currentPage = page
}

// NextPage advances one page, staying within the last page.
func (s *PageState) NextPage(totalPages int) {
	s.SetPage(s.currentPage+1, totalPages)
}

// PrevPage moves back one page, staying at or above page 1.
func (s *PageState) PrevPage() {
	if s.currentPage <= 1 {
		return
	}
	s.currentPage--
}

// FirstPage jumps to page 1.
func (s *PageState) FirstPage() {
	s.currentPage = 1
}

// LastPage jumps to the final page.
func (s *PageState) LastPage(totalPages int) {
	if totalPages < 1 {
		totalPages = 1
	}
	s.SetPage(totalPages, totalPages)
}

// SetGenre selects a genre filter and resets the view to page 1.
func (s *PageState) SetGenre(genre string) {
	if genre == "" {
		genre = GenreAll
	}
	s.genre = genre
	s.currentPage = 1
}

// SetPageSize switches to one of PageSizeOptions and resets the view to
// page 1. Any other size is rejected.
func (s *PageState) SetPageSize(size int) error {
	for _, opt := range PageSizeOptions {
		if size == opt {
			s.pageSize = size
			s.currentPage = 1
			return nil
		}
	}
	return fmt.Errorf("page size %d not in %v", size, PageSizeOptions)
}
