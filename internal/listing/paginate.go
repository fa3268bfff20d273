package listing

import "strconv"

const (
	DefaultPerPage = 10
	// MaxPages is the width of the page number window.
	MaxPages = 10
	// DoublePaginationMin is the page size from which controls are shown above and below.
	DoublePaginationMin = 50
)

// Page is one page of a list plus the navigation around it.
type Page[T any] struct {
	Items            []T   `json:"items"`
	Number           int   `json:"page"`
	NumPages         int   `json:"num_pages"`
	PerPage          int   `json:"per_page"`
	Total            int   `json:"total"`
	Window           []int `json:"pages"`
	Previous         int   `json:"previous_page"`
	Next             int   `json:"next_page"`
	First            int   `json:"first_page"`
	Last             int   `json:"last_page"`
	DoublePagination bool  `json:"double_pagination"`
}

// PerPage interprets the elements_per_page preference: "all" shows every element,
// a positive number is used as is, anything else falls back to DefaultPerPage.
func PerPage(pref string, total int) int {
	if pref == "all" {
		if total > 0 {
			return total
		}
		return 1
	}
	if n, err := strconv.Atoi(pref); err == nil && n > 0 {
		return n
	}
	return DefaultPerPage
}

// Paginate cuts page number (clamped into range) out of items.
func Paginate[T any](items []T, perPage, number int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(items)
	numPages := (total + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}
	if number > numPages {
		number = numPages
	}
	if number < 1 {
		number = 1
	}

	start := (number - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	pageItems := items[start:end]

	lo, hi := window(number, numPages)
	pages := make([]int, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		pages = append(pages, n)
	}

	prev, next := number, number
	if number > lo {
		prev = number - 1
	}
	if number < hi {
		next = number + 1
	}

	return Page[T]{
		Items:            pageItems,
		Number:           number,
		NumPages:         numPages,
		PerPage:          perPage,
		Total:            total,
		Window:           pages,
		Previous:         prev,
		Next:             next,
		First:            1,
		Last:             numPages,
		DoublePagination: len(pageItems) >= DoublePaginationMin,
	}
}

// window grows [current, current] one page up then one page down until MaxPages
// pages are shown or both ends are reached.
func window(current, numPages int) (int, int) {
	lo, hi := current, current
	free := MaxPages - 1
	for free > 0 && !(lo == 1 && hi == numPages) {
		if hi < numPages {
			hi++
			free--
		}
		if lo > 1 && free > 0 {
			lo--
			free--
		}
	}
	return lo, hi
}
