package pco

import (
	"context"
	"errors"

	"github.com/steeplehq/pco-go/internal/constants"
)

// ErrNoMorePages is returned by Next when the listing is exhausted.
var ErrNoMorePages = errors.New("no more pages")

// PageFetcher fetches one page of a listing. The path is either a relative
// endpoint or the absolute URL taken from a previous page's next link.
// Resource clients implement this interface.
type PageFetcher[T any] interface {
	ListWithPath(ctx context.Context, path string, params *QueryParams) (*ListDocument[T], error)
}

// PaginationOptions controls bulk page fetching.
type PaginationOptions struct {
	// PageSize overrides per_page for every fetched page.
	PageSize int
	// MaxPages caps how many pages are fetched. Zero means the default cap.
	MaxPages int
}

// PaginationIterator walks a paginated listing item by item, fetching pages
// lazily as they are consumed and following next links until none remain.
type PaginationIterator[T any] struct {
	ctx      context.Context
	fetcher  PageFetcher[T]
	path     string
	params   *QueryParams
	buffer   []Resource[T]
	index    int
	nextPath string
	started  bool
}

// NewPaginationIterator creates an iterator over a paginated listing.
func NewPaginationIterator[T any](ctx context.Context, fetcher PageFetcher[T], path string, params *QueryParams) *PaginationIterator[T] {
	return &PaginationIterator[T]{
		ctx:     ctx,
		fetcher: fetcher,
		path:    path,
		params:  params,
	}
}

// HasNext reports whether another item is available. Before the first fetch
// it is optimistic and returns true; call Next to find out for sure.
func (it *PaginationIterator[T]) HasNext() bool {
	if it.index < len(it.buffer) {
		return true
	}

	if !it.started {
		return true
	}

	return it.nextPath != ""
}

// Next returns the next item, fetching the next page when the current one is
// exhausted. It returns ErrNoMorePages when the listing has no more items.
func (it *PaginationIterator[T]) Next() (Resource[T], error) {
	var zero Resource[T]

	for it.index >= len(it.buffer) {
		if it.started && it.nextPath == "" {
			return zero, ErrNoMorePages
		}

		err := it.fetchPage()
		if err != nil {
			return zero, err
		}
	}

	item := it.buffer[it.index]
	it.index++

	return item, nil
}

// All consumes the remaining items and returns them as one slice.
func (it *PaginationIterator[T]) All() ([]Resource[T], error) {
	var all []Resource[T]

	for it.HasNext() {
		item, err := it.Next()
		if errors.Is(err, ErrNoMorePages) {
			break
		}

		if err != nil {
			return nil, err
		}

		all = append(all, item)
	}

	return all, nil
}

// ForEach applies fn to each remaining item, stopping at the first error.
func (it *PaginationIterator[T]) ForEach(fn func(Resource[T]) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if errors.Is(err, ErrNoMorePages) {
			break
		}

		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// fetchPage loads exactly one page into the buffer. The first fetch uses the
// configured path and params; later fetches follow the next link as-is.
func (it *PaginationIterator[T]) fetchPage() error {
	var (
		doc *ListDocument[T]
		err error
	)

	if !it.started {
		doc, err = it.fetcher.ListWithPath(it.ctx, it.path, it.params)
		it.started = true
	} else {
		doc, err = it.fetcher.ListWithPath(it.ctx, it.nextPath, nil)
	}

	if err != nil {
		return err
	}

	it.buffer = doc.Data
	it.index = 0
	it.nextPath = doc.Links.Next()

	return nil
}

// FetchAllPages retrieves every page of a listing and returns the
// concatenated data. It follows next links until none remain, bounded by
// MaxPages as a guard against a listing that never terminates.
func FetchAllPages[T any](ctx context.Context, fetcher PageFetcher[T], path string, params *QueryParams, options *PaginationOptions) ([]Resource[T], error) {
	pageParams, maxPages := applyPaginationOptions(params, options)

	var all []Resource[T]

	next := path

	for page := 0; page < maxPages; page++ {
		doc, err := fetcher.ListWithPath(ctx, next, pageParams)
		if err != nil {
			return nil, err
		}

		all = append(all, doc.Data...)

		next = doc.Links.Next()
		if next == "" {
			break
		}

		pageParams = nil
	}

	return all, nil
}

// PageResult carries one page of results or the error that ended the stream.
type PageResult[T any] struct {
	Items []Resource[T]
	Err   error
}

// StreamPages fetches pages in the background and sends each one on the
// returned channel. The channel is closed after the last page, after an
// error, or when ctx is done. Exactly one PageResult carries a non-nil Err.
func StreamPages[T any](ctx context.Context, fetcher PageFetcher[T], path string, params *QueryParams, options *PaginationOptions) <-chan PageResult[T] {
	results := make(chan PageResult[T], constants.StreamBufferSize)

	go func() {
		defer close(results)

		pageParams, maxPages := applyPaginationOptions(params, options)
		next := path

		for page := 0; page < maxPages; page++ {
			doc, err := fetcher.ListWithPath(ctx, next, pageParams)
			if err != nil {
				select {
				case results <- PageResult[T]{Err: err}:
				case <-ctx.Done():
				}

				return
			}

			select {
			case results <- PageResult[T]{Items: doc.Data}:
			case <-ctx.Done():
				return
			}

			next = doc.Links.Next()
			if next == "" {
				return
			}

			pageParams = nil
		}
	}()

	return results
}

// applyPaginationOptions resolves the effective params and page cap without
// mutating the caller's params.
func applyPaginationOptions(params *QueryParams, options *PaginationOptions) (*QueryParams, int) {
	maxPages := constants.MaxPages
	if options != nil && options.MaxPages > 0 {
		maxPages = options.MaxPages
	}

	if options != nil && options.PageSize > 0 {
		copied := QueryParams{}
		if params != nil {
			copied = *params
		}

		copied.PerPage = options.PageSize

		return &copied, maxPages
	}

	return params, maxPages
}
