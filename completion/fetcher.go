package completion

import (
	"context"
	"time"

	"github.com/teranos/searchq/errors"
)

// Fetcher resolves dynamic suggestions from live search results
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) ([]SearchMatch, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, req FetchRequest) ([]SearchMatch, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, req FetchRequest) ([]SearchMatch, error) {
	return f(ctx, req)
}

// WithTimeout bounds every fetch made through f by d
func WithTimeout(f Fetcher, d time.Duration) Fetcher {
	if d <= 0 {
		return f
	}
	return FetcherFunc(func(ctx context.Context, req FetchRequest) ([]SearchMatch, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		matches, err := f.Fetch(ctx, req)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.WithHintf(errors.Wrap(err, "fetch timed out"),
				"dynamic suggestions are limited to %s", d)
		}
		return matches, err
	})
}
