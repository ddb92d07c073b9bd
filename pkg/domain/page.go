package domain

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Page is an offset/limit window over a newest-first listing.
type Page struct {
	Limit  int
	Offset int
}

// Normalized clamps the window to sane bounds.
func (p Page) Normalized() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// PageResult is one window of results. HasMore is set when at least one more
// item exists past the window.
type PageResult[T any] struct {
	Items   []T
	Limit   int
	Offset  int
	HasMore bool
}

// NewPageResult trims a fetch of up to Limit+1 items into a page.
func NewPageResult[T any](items []T, page Page) PageResult[T] {
	res := PageResult[T]{Limit: page.Limit, Offset: page.Offset}
	if len(items) > page.Limit {
		res.HasMore = true
		items = items[:page.Limit]
	}
	res.Items = items
	return res
}

// Window applies page to an already filtered, already sorted slice.
func Window[T any](all []T, page Page) PageResult[T] {
	if page.Offset >= len(all) {
		return PageResult[T]{Items: []T{}, Limit: page.Limit, Offset: page.Offset}
	}
	end := min(page.Offset+page.Limit+1, len(all))
	return NewPageResult(all[page.Offset:end], page)
}
