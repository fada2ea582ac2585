package backend

import (
	"context"
)

// Page is one page of a cursor-addressed listing. HasMore == false is
// terminal; NextStart is only meaningful while HasMore is true.
type Page[T any] struct {
	Elements  []T
	HasMore   bool
	NextStart string
}

// PageFetcher fetches the page starting at the given cursor. Fetching is a
// read with no server-side side effects, so it must be safe to call again
// with the same cursor after a failure.
type PageFetcher[T any] func(ctx context.Context, start string) (Page[T], error)

// Pager walks a cursor-paginated resource lazily, one page per NextPage
// call. A failed fetch does not advance the cursor, so the caller may retry
// a single page without restarting the whole walk.
type Pager[T any] struct {
	fetch PageFetcher[T]
	next  string
	done  bool
}

func NewPager[T any](start string, fetch PageFetcher[T]) *Pager[T] {
	return &Pager[T]{fetch: fetch, next: start}
}

// More reports whether another page may be available.
func (p *Pager[T]) More() bool {
	return !p.done
}

func (p *Pager[T]) NextPage(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}

	page, err := p.fetch(ctx, p.next)
	if err != nil {
		return nil, err
	}

	switch {
	case !page.HasMore:
		p.done = true
	case page.NextStart == p.next && len(page.Elements) == 0:
		// Degenerate server behavior: an empty page pointing back at the
		// cursor we just used would loop forever. Terminate instead.
		p.done = true
	default:
		p.next = page.NextStart
	}

	return page.Elements, nil
}
