package paginate

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-whoop/whoop-cli/api"
)

// fakePages serves pages of the given sizes, chaining cursors "p1", "p2", ...
type fakePages struct {
	sizes  []int
	params []api.ListParams
	times  []time.Time
	failAt int
}

func (f *fakePages) fetch(_ context.Context, params api.ListParams) (*api.Page[int], error) {
	f.params = append(f.params, params)
	f.times = append(f.times, time.Now())

	idx := 0
	if params.NextToken != "" {
		n, err := strconv.Atoi(params.NextToken[1:])
		if err != nil {
			return nil, err
		}
		idx = n
	}
	if f.failAt > 0 && idx+1 == f.failAt {
		return nil, errors.New("boom")
	}

	page := &api.Page[int]{}
	for i := range f.sizes[idx] {
		page.Records = append(page.Records, idx*100+i)
	}
	if idx+1 < len(f.sizes) {
		page.NextToken = "p" + strconv.Itoa(idx+1)
	}
	return page, nil
}

func TestPaginate_LimitTrimsLastPage(t *testing.T) {
	f := &fakePages{sizes: []int{3, 3, 3}}

	got, err := Paginate(context.Background(), f.fetch, api.ListParams{}, Options[int]{
		Limit:          7,
		InterPageDelay: -1,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 100, 101, 102, 200}, got)
	require.Len(t, f.params, 3)
	assert.Equal(t, 7, f.params[0].Limit)
	assert.Equal(t, 4, f.params[1].Limit)
	assert.Equal(t, 1, f.params[2].Limit)
	assert.Equal(t, "", f.params[0].NextToken)
	assert.Equal(t, "p1", f.params[1].NextToken)
	assert.Equal(t, "p2", f.params[2].NextToken)
}

func TestPaginate_LimitCapsPageSize(t *testing.T) {
	f := &fakePages{sizes: []int{25, 25, 25}}

	got, err := Paginate(context.Background(), f.fetch, api.ListParams{}, Options[int]{
		Limit:          60,
		InterPageDelay: -1,
	})
	require.NoError(t, err)
	assert.Len(t, got, 60)
	assert.Equal(t, []int{25, 25, 10}, []int{f.params[0].Limit, f.params[1].Limit, f.params[2].Limit})
}

func TestPaginate_DefaultIsSinglePage(t *testing.T) {
	f := &fakePages{sizes: []int{5, 5, 5}}

	got, err := Paginate(context.Background(), f.fetch, api.ListParams{Limit: 5, Start: "s"}, Options[int]{})
	require.NoError(t, err)

	assert.Len(t, got, 5)
	require.Len(t, f.params, 1)
	assert.Equal(t, 5, f.params[0].Limit)
	assert.Equal(t, "s", f.params[0].Start)
}

func TestPaginate_DefaultPageSize(t *testing.T) {
	f := &fakePages{sizes: []int{1}}
	_, err := Paginate(context.Background(), f.fetch, api.ListParams{}, Options[int]{})
	require.NoError(t, err)
	assert.Equal(t, 10, f.params[0].Limit)
}

func TestPaginate_AllUntilExhausted(t *testing.T) {
	f := &fakePages{sizes: []int{25, 25, 3}}

	got, err := Paginate(context.Background(), f.fetch, api.ListParams{}, Options[int]{
		All:            true,
		Limit:          5,
		InterPageDelay: -1,
	})
	require.NoError(t, err)

	assert.Len(t, got, 53)
	require.Len(t, f.params, 3)
	for _, p := range f.params {
		assert.Equal(t, 25, p.Limit)
	}
}

func TestPaginate_PagesCap(t *testing.T) {
	f := &fakePages{sizes: []int{2, 2, 2, 2}}

	got, err := Paginate(context.Background(), f.fetch, api.ListParams{Limit: 2}, Options[int]{
		Pages:          3,
		InterPageDelay: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 100, 101, 200, 201}, got)
	assert.Len(t, f.params, 3)
}

func TestPaginate_PagesAndLimit(t *testing.T) {
	f := &fakePages{sizes: []int{4, 4, 4}}

	got, err := Paginate(context.Background(), f.fetch, api.ListParams{}, Options[int]{
		Pages:          2,
		Limit:          20,
		InterPageDelay: -1,
	})
	require.NoError(t, err)
	assert.Len(t, got, 8)
	assert.Len(t, f.params, 2)
}

func TestPaginate_OnPage(t *testing.T) {
	f := &fakePages{sizes: []int{3, 3, 3}}

	type call struct {
		n       int
		page    int
		hasMore bool
	}
	var calls []call

	_, err := Paginate(context.Background(), f.fetch, api.ListParams{}, Options[int]{
		Limit:          7,
		InterPageDelay: -1,
		OnPage: func(records []int, page int, hasMore bool) {
			calls = append(calls, call{len(records), page, hasMore})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []call{{3, 1, true}, {3, 2, true}, {3, 3, false}}, calls)
}

func TestPaginate_ErrorDiscardsPartialResults(t *testing.T) {
	f := &fakePages{sizes: []int{3, 3, 3}, failAt: 2}

	got, err := Paginate(context.Background(), f.fetch, api.ListParams{}, Options[int]{
		All:            true,
		InterPageDelay: -1,
	})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Len(t, f.params, 2)
}

func TestPaginate_InterPageDelay(t *testing.T) {
	f := &fakePages{sizes: []int{1, 1, 1}}
	delay := 40 * time.Millisecond

	start := time.Now()
	_, err := Paginate(context.Background(), f.fetch, api.ListParams{}, Options[int]{
		All:            true,
		InterPageDelay: delay,
	})
	require.NoError(t, err)

	require.Len(t, f.times, 3)
	// first request is immediate
	assert.Less(t, f.times[0].Sub(start), delay/2)
	for i := 1; i < len(f.times); i++ {
		assert.GreaterOrEqual(t, f.times[i].Sub(f.times[i-1]), delay-5*time.Millisecond)
	}
}

func TestPaginate_DelayCountsFromPageArrival(t *testing.T) {
	f := &fakePages{sizes: []int{1, 1, 1}}
	delay := 30 * time.Millisecond
	var starts, ends []time.Time

	// each fetch outlasts the delay, so spacing measured between request
	// starts would never wait
	_, err := Paginate(context.Background(), func(ctx context.Context, p api.ListParams) (*api.Page[int], error) {
		starts = append(starts, time.Now())
		time.Sleep(2 * delay)
		page, err := f.fetch(ctx, p)
		ends = append(ends, time.Now())
		return page, err
	}, api.ListParams{}, Options[int]{All: true, InterPageDelay: delay})
	require.NoError(t, err)

	require.Len(t, starts, 3)
	require.Len(t, ends, 3)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(ends[i-1]), delay-5*time.Millisecond)
	}
}

func TestPaginate_ContextCancelledWhilePacing(t *testing.T) {
	f := &fakePages{sizes: []int{1, 1, 1}}
	ctx, cancel := context.WithCancel(context.Background())

	_, err := Paginate(ctx, func(ctx context.Context, p api.ListParams) (*api.Page[int], error) {
		cancel()
		return f.fetch(ctx, p)
	}, api.ListParams{}, Options[int]{All: true, InterPageDelay: time.Second})
	require.Error(t, err)
	assert.Len(t, f.params, 1)
}
