// Package paginate walks cursor-paginated collection endpoints.
package paginate

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/go-whoop/whoop-cli/api"
	"github.com/go-whoop/whoop-cli/config"
)

// DefaultInterPageDelay is the pause between pages, to stay clear of rate
// limits.
const DefaultInterPageDelay = 75 * time.Millisecond

// FetchFunc fetches one page.
type FetchFunc[T any] func(ctx context.Context, params api.ListParams) (*api.Page[T], error)

// Options controls how many pages are fetched. With none of Limit, All and
// Pages set, exactly one page is fetched.
type Options[T any] struct {
	// Limit stops once this many records are collected.
	Limit int
	// All fetches until the cursor runs out. Limit and Pages are ignored.
	All bool
	// Pages caps the number of page requests.
	Pages int
	// OnPage runs after every page, before the next request.
	OnPage func(records []T, page int, hasMore bool)
	// InterPageDelay is the pause between receiving a page and requesting the
	// next one. Zero means DefaultInterPageDelay, negative disables pacing.
	InterPageDelay time.Duration
}

// Paginate fetches pages in order and returns the collected records, trimmed
// to Limit. An error from fetch aborts and discards what was collected.
func Paginate[T any](ctx context.Context, fetch FetchFunc[T], base api.ListParams, opts Options[T]) ([]T, error) {
	var (
		maxPages   int // 0 means unbounded
		maxRecords int // 0 means unbounded
		bounded    bool
	)
	switch {
	case opts.All:
		bounded = true
	case opts.Pages > 0:
		maxPages = opts.Pages
		if opts.Limit > 0 {
			maxRecords = opts.Limit
			bounded = true
		}
	case opts.Limit > 0:
		maxRecords = opts.Limit
		bounded = true
	default:
		maxPages = 1
	}

	pageSize := base.Limit
	if pageSize <= 0 {
		pageSize = config.DefaultLimit
	}

	delay := opts.InterPageDelay
	if delay == 0 {
		delay = DefaultInterPageDelay
	}

	var (
		records   []T
		nextToken string
		pageCount int
	)
	for {
		params := base
		params.NextToken = nextToken
		params.Limit = pageSize
		if bounded {
			params.Limit = config.MaxPageSize
			if maxRecords > 0 {
				params.Limit = min(maxRecords-len(records), config.MaxPageSize)
			}
		}

		page, err := fetch(ctx, params)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		nextToken = page.NextToken
		pageCount++

		pageCapped := maxPages > 0 && pageCount >= maxPages
		recordCapped := maxRecords > 0 && len(records) >= maxRecords

		if opts.OnPage != nil {
			opts.OnPage(page.Records, pageCount, nextToken != "" && !pageCapped && !recordCapped)
		}

		if nextToken == "" || pageCapped || recordCapped {
			break
		}
		if delay > 0 {
			if err := pause(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	if maxRecords > 0 && len(records) > maxRecords {
		records = records[:maxRecords]
	}
	return records, nil
}

// pause blocks for d from now, or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	l := rate.NewLimiter(rate.Every(d), 1)
	l.Allow()
	return l.Wait(ctx)
}
