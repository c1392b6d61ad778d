package pagination

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves integer items where each item equals its global index.
// Page k (1-based) holds pageSize items, the last page holds lastSize items.
type fakeSource struct {
	mu        sync.Mutex
	pageSize  int
	lastPage  int
	lastSize  int
	overlap   int
	calls     []int
	failKey   map[int]error
	failCall  map[int]error
	gateCall  map[int]chan struct{}
	ignoreCtx bool
}

func newFakeSource(lastPage int) *fakeSource {
	return &fakeSource{
		pageSize: 10,
		lastPage: lastPage,
		lastSize: 3,
		failKey:  map[int]error{},
		failCall: map[int]error{},
		gateCall: map[int]chan struct{}{},
	}
}

func (s *fakeSource) Load(ctx context.Context, params LoadParams) (Page[int], error) {
	key := 1
	if params.Key != nil {
		key = *params.Key
	}

	s.mu.Lock()
	s.calls = append(s.calls, key)
	call := len(s.calls)
	err := s.failKey[key]
	if e, ok := s.failCall[call]; ok {
		err = e
	}
	gate := s.gateCall[call]
	s.mu.Unlock()

	if gate != nil {
		if s.ignoreCtx {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return Page[int]{}, ctx.Err()
			}
		}
	}
	if err != nil {
		return Page[int]{}, err
	}

	size := s.pageSize
	if key == s.lastPage {
		size = s.lastSize
	}
	start := (key - 1) * (s.pageSize - s.overlap)
	items := make([]int, 0, size)
	for i := 0; i < size; i++ {
		items = append(items, start+i)
	}

	page := Page[int]{Items: items}
	if key > 1 {
		page.PrevKey = Key(key - 1)
	}
	if key < s.lastPage {
		page.NextKey = Key(key + 1)
	}
	return page, nil
}

func (s *fakeSource) RefreshKey(state State[int]) *int {
	if state.AnchorPosition == nil {
		return nil
	}
	page, ok := state.ClosestPageToPosition(*state.AnchorPosition)
	if !ok {
		return nil
	}
	if page.PrevKey != nil {
		return Key(*page.PrevKey + 1)
	}
	if page.NextKey != nil {
		return Key(*page.NextKey - 1)
	}
	return nil
}

func (s *fakeSource) ItemKey(item int) int { return item }

func (s *fakeSource) Calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

func (s *fakeSource) set(fn func(s *fakeSource)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func startPager(t *testing.T, src Source[int], cfg Config) *Pager[int] {
	t.Helper()
	p, err := New(src, cfg)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	require.NoError(t, p.Start(context.Background()))
	return p
}

func waitFor(t *testing.T, p *Pager[int], cond func(Snapshot[int]) bool) Snapshot[int] {
	t.Helper()
	require.Eventually(t, func() bool { return cond(p.Snapshot()) }, 2*time.Second, 5*time.Millisecond)
	return p.Snapshot()
}

func itemsAtLeast(n int) func(Snapshot[int]) bool {
	return func(s Snapshot[int]) bool { return s.Len() >= n && !s.LoadStates.Append.IsLoading() }
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "default", config: DefaultConfig()},
		{name: "zero page size", config: Config{PageSize: 0, PrefetchDistance: 3}, wantErr: true},
		{name: "negative prefetch", config: Config{PageSize: 10, PrefetchDistance: -1}, wantErr: true},
		{name: "initial load size defaults to page size", config: Config{PageSize: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Positive(t, cfg.InitialLoadSize)
		})
	}

	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 3, cfg.PrefetchDistance)
	assert.False(t, cfg.Dedup)
}

func TestNew_Validation(t *testing.T) {
	_, err := New[int](nil, DefaultConfig())
	assert.Error(t, err)

	// Hide ItemKey behind a narrower interface.
	type plainSource struct{ Source[int] }
	cfg := DefaultConfig()
	cfg.Dedup = true
	_, err = New[int](plainSource{newFakeSource(3)}, cfg)
	assert.Error(t, err)
}

func TestPager_StartLifecycle(t *testing.T) {
	p, err := New[int](newFakeSource(3), DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)

	p.Close()
	p.Close()

	closed, err := New[int](newFakeSource(3), DefaultConfig())
	require.NoError(t, err)
	closed.Close()
	assert.ErrorIs(t, closed.Start(context.Background()), ErrClosed)
}

func TestPager_InitialLoad(t *testing.T) {
	src := newFakeSource(5)
	p := startPager(t, src, DefaultConfig())

	snap := waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })

	assert.Equal(t, 10, snap.Len())
	assert.Equal(t, 1, snap.PageCount)
	assert.Equal(t, StatusNotLoading, snap.LoadStates.Refresh.Status)
	assert.True(t, snap.LoadStates.Prepend.EndOfPagination)
	assert.False(t, snap.LoadStates.Append.EndOfPagination)
	assert.Equal(t, []int{1}, src.Calls())
}

func TestPager_PrefetchOnProximity(t *testing.T) {
	src := newFakeSource(5)
	p := startPager(t, src, DefaultConfig())
	waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })

	item, ok := p.Get(5)
	require.True(t, ok)
	assert.Equal(t, 5, item)
	assert.Never(t, func() bool { return len(src.Calls()) > 1 }, 100*time.Millisecond, 10*time.Millisecond)

	_, ok = p.Get(6)
	require.True(t, ok)
	snap := waitFor(t, p, itemsAtLeast(20))

	assert.Equal(t, []int{1, 2}, src.Calls())
	for i, v := range snap.Items {
		assert.Equal(t, i, v, "items must be concatenated in key order")
	}
}

func TestPager_OneLoadPerEdge(t *testing.T) {
	src := newFakeSource(5)
	gate := make(chan struct{})
	src.gateCall[2] = gate

	p := startPager(t, src, DefaultConfig())
	waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })

	for i := 6; i < 10; i++ {
		p.Get(i)
	}
	waitFor(t, p, func(s Snapshot[int]) bool { return s.LoadStates.Append.IsLoading() })
	assert.Equal(t, []int{1, 2}, src.Calls())

	close(gate)
	waitFor(t, p, itemsAtLeast(20))
	assert.Equal(t, []int{1, 2}, src.Calls())
}

func TestPager_EndOfPaginationStopsPrefetch(t *testing.T) {
	src := newFakeSource(2)
	p := startPager(t, src, DefaultConfig())
	waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })

	p.Get(6)
	snap := waitFor(t, p, itemsAtLeast(13))
	assert.Equal(t, 13, snap.Len())
	assert.True(t, snap.LoadStates.Append.EndOfPagination)

	p.Get(12)
	assert.Never(t, func() bool { return len(src.Calls()) > 2 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 13, p.Snapshot().Len())
}

func TestPager_AppendFailureKeepsItemsAndRetriesSameKey(t *testing.T) {
	src := newFakeSource(5)
	boom := errors.New("connection reset")
	src.failKey[2] = boom

	p := startPager(t, src, DefaultConfig())
	waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })

	p.Get(6)
	snap := waitFor(t, p, func(s Snapshot[int]) bool { return s.LoadStates.Append.IsError() })
	assert.Equal(t, 10, snap.Len())
	assert.ErrorIs(t, snap.LoadStates.Append.Err, boom)
	assert.Equal(t, StatusNotLoading, snap.LoadStates.Refresh.Status)

	// A failed edge is not re-requested by further reads.
	p.Get(9)
	assert.Never(t, func() bool { return len(src.Calls()) > 2 }, 100*time.Millisecond, 10*time.Millisecond)

	src.set(func(s *fakeSource) { delete(s.failKey, 2) })
	p.Retry()

	snap = waitFor(t, p, itemsAtLeast(20))
	assert.Equal(t, 20, snap.Len())
	assert.Equal(t, []int{1, 2, 2}, src.Calls())
}

func TestPager_InitialFailureThenRetry(t *testing.T) {
	src := newFakeSource(5)
	src.failKey[1] = errors.New("no such host")

	p := startPager(t, src, DefaultConfig())
	snap := waitFor(t, p, func(s Snapshot[int]) bool { return s.LoadStates.Refresh.IsError() })
	assert.False(t, snap.Loaded())
	assert.Equal(t, 0, snap.Len())

	src.set(func(s *fakeSource) { delete(s.failKey, 1) })
	p.Retry()

	snap = waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })
	assert.Equal(t, 10, snap.Len())
	assert.Equal(t, []int{1, 1}, src.Calls())
}

func TestPager_StaleResponseDiscarded(t *testing.T) {
	src := newFakeSource(5)
	src.ignoreCtx = true
	gate := make(chan struct{})
	src.gateCall[1] = gate
	src.failCall[1] = errors.New("stale failure")

	p := startPager(t, src, DefaultConfig())
	require.Eventually(t, func() bool { return len(src.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	// Supersede the in-flight refresh.
	p.Refresh()
	snap := waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })
	assert.Equal(t, 10, snap.Len())

	close(gate)
	assert.Never(t, func() bool {
		s := p.Snapshot()
		return s.LoadStates.Refresh.IsError() || s.Len() != 10
	}, 150*time.Millisecond, 10*time.Millisecond)
}

func TestPager_CloseDiscardsLateResults(t *testing.T) {
	src := newFakeSource(5)
	src.ignoreCtx = true
	gate := make(chan struct{})
	src.gateCall[1] = gate

	p, err := New[int](src, DefaultConfig())
	require.NoError(t, err)

	updates := p.Updates(context.Background())
	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return len(src.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	p.Close()
	close(gate)

	assert.Never(t, func() bool { return p.Snapshot().Loaded() }, 150*time.Millisecond, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestPager_ContextCancellation(t *testing.T) {
	src := newFakeSource(5)
	src.gateCall[1] = make(chan struct{})

	p, err := New[int](src, DefaultConfig())
	require.NoError(t, err)
	defer p.Close()

	updates := p.Updates(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))
	require.Eventually(t, func() bool { return len(src.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	// Cancelling the start context closes the pager.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, p.Start(context.Background()), ErrClosed)

	p.Retry()
	p.Refresh()
	assert.Never(t, func() bool {
		s := p.Snapshot()
		return s.Loaded() || s.LoadStates.Refresh.IsError() || len(src.Calls()) > 1
	}, 150*time.Millisecond, 10*time.Millisecond)
}

func TestPager_RefreshFromAnchor(t *testing.T) {
	src := newFakeSource(5)
	p := startPager(t, src, DefaultConfig())
	waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })

	p.Get(6)
	waitFor(t, p, itemsAtLeast(20))
	p.Get(16)
	waitFor(t, p, itemsAtLeast(30))

	// Anchor inside page 3 (items 20..29).
	p.Get(25)
	p.Refresh()

	snap := waitFor(t, p, func(s Snapshot[int]) bool {
		return s.PageCount == 1 && !s.LoadStates.Refresh.IsLoading()
	})
	assert.Equal(t, []int{1, 2, 3, 3}, src.Calls())
	require.Equal(t, 10, snap.Len())
	assert.Equal(t, 20, snap.Items[0])
	assert.False(t, snap.LoadStates.Prepend.EndOfPagination)

	// Reading near the top pulls in the previous page.
	p.Get(0)
	snap = waitFor(t, p, func(s Snapshot[int]) bool { return s.Len() == 20 && !s.LoadStates.Prepend.IsLoading() })
	assert.Equal(t, 10, snap.Items[0])
	assert.Equal(t, []int{1, 2, 3, 3, 2}, src.Calls())

	item, ok := p.Get(10)
	require.True(t, ok)
	assert.Equal(t, 20, item)
}

func TestPager_FailedRefreshKeepsItemsAndRetriesSameKey(t *testing.T) {
	src := newFakeSource(5)
	p := startPager(t, src, DefaultConfig())
	waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })

	p.Get(6)
	waitFor(t, p, itemsAtLeast(20))
	p.Get(16)
	waitFor(t, p, itemsAtLeast(30))

	boom := errors.New("connection reset")
	src.set(func(s *fakeSource) { s.failKey[3] = boom })

	p.Get(25)
	p.Refresh()

	snap := waitFor(t, p, func(s Snapshot[int]) bool { return s.LoadStates.Refresh.IsError() })
	assert.ErrorIs(t, snap.LoadStates.Refresh.Err, boom)
	assert.Equal(t, 30, snap.Len(), "loaded items are kept")
	assert.Equal(t, 3, snap.PageCount)

	src.set(func(s *fakeSource) { delete(s.failKey, 3) })
	p.Retry()

	snap = waitFor(t, p, func(s Snapshot[int]) bool {
		return s.PageCount == 1 && !s.LoadStates.Refresh.IsLoading()
	})
	assert.Equal(t, []int{1, 2, 3, 3, 3}, src.Calls())
	require.Equal(t, 10, snap.Len())
	assert.Equal(t, 20, snap.Items[0])
}

func TestPager_RetriedRefreshSupersedesInFlightAppend(t *testing.T) {
	src := newFakeSource(5)
	src.ignoreCtx = true
	gate := make(chan struct{})
	src.gateCall[4] = gate
	src.failCall[3] = errors.New("connection reset")

	p := startPager(t, src, DefaultConfig())
	waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })
	p.Get(6)
	waitFor(t, p, itemsAtLeast(20))

	// Anchor in page 1, then a refresh of page 1 fails.
	p.Get(5)
	p.Refresh()
	snap := waitFor(t, p, func(s Snapshot[int]) bool { return s.LoadStates.Refresh.IsError() })
	assert.Equal(t, 20, snap.Len())

	// Reading the retained pages starts an append of page 3 that hangs.
	p.Get(19)
	waitFor(t, p, func(s Snapshot[int]) bool { return s.LoadStates.Append.IsLoading() })

	p.Retry()
	snap = waitFor(t, p, func(s Snapshot[int]) bool {
		return s.PageCount == 1 && !s.LoadStates.Refresh.IsLoading()
	})
	assert.False(t, snap.LoadStates.Append.IsLoading())

	close(gate)
	assert.Never(t, func() bool { return p.Snapshot().PageCount != 1 }, 150*time.Millisecond, 10*time.Millisecond)

	snap = p.Snapshot()
	assert.Equal(t, []int{1, 2, 1, 3, 1}, src.Calls())
	for i, v := range snap.Items {
		assert.Equal(t, i, v, "items must stay in key order")
	}

	// The append edge is usable again.
	p.Get(9)
	snap = waitFor(t, p, itemsAtLeast(20))
	for i, v := range snap.Items {
		assert.Equal(t, i, v, "items must stay in key order")
	}
}

func TestPager_RetryReissuesEveryFailedEdge(t *testing.T) {
	src := newFakeSource(5)
	p := startPager(t, src, DefaultConfig())
	waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })

	p.Get(6)
	waitFor(t, p, itemsAtLeast(20))
	p.Get(16)
	waitFor(t, p, itemsAtLeast(30))
	p.Get(25)
	p.Refresh()
	waitFor(t, p, func(s Snapshot[int]) bool {
		return s.PageCount == 1 && !s.LoadStates.Refresh.IsLoading()
	})

	src.set(func(s *fakeSource) {
		s.failKey[2] = errors.New("prepend failed")
		s.failKey[4] = errors.New("append failed")
	})

	p.Get(0)
	waitFor(t, p, func(s Snapshot[int]) bool { return s.LoadStates.Prepend.IsError() })
	p.Get(9)
	snap := waitFor(t, p, func(s Snapshot[int]) bool { return s.LoadStates.Append.IsError() })
	assert.Equal(t, 10, snap.Len())

	src.set(func(s *fakeSource) {
		delete(s.failKey, 2)
		delete(s.failKey, 4)
	})
	p.Retry()

	snap = waitFor(t, p, func(s Snapshot[int]) bool {
		return s.Len() == 30 && !s.LoadStates.Prepend.IsLoading() && !s.LoadStates.Append.IsLoading()
	})
	calls := src.Calls()
	require.Len(t, calls, 8)
	assert.Equal(t, []int{1, 2, 3, 3, 2, 4}, calls[:6])
	assert.ElementsMatch(t, []int{2, 4}, calls[6:])
	for i, v := range snap.Items {
		assert.Equal(t, i+10, v, "items must be concatenated in key order")
	}
}

func TestPager_Dedup(t *testing.T) {
	tests := []struct {
		name    string
		dedup   bool
		wantLen int
	}{
		{name: "duplicates pass through by default", dedup: false, wantLen: 20},
		{name: "dedup drops repeated keys", dedup: true, wantLen: 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource(5)
			src.overlap = 2

			cfg := DefaultConfig()
			cfg.Dedup = tt.dedup
			p := startPager(t, src, cfg)
			waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })

			p.Get(6)
			snap := waitFor(t, p, func(s Snapshot[int]) bool { return s.PageCount == 2 && !s.LoadStates.Append.IsLoading() })
			assert.Equal(t, tt.wantLen, snap.Len())
		})
	}
}

func TestPager_GetOutOfRange(t *testing.T) {
	p := startPager(t, newFakeSource(5), DefaultConfig())
	waitFor(t, p, func(s Snapshot[int]) bool { return s.Loaded() })

	_, ok := p.Get(-1)
	assert.False(t, ok)
	_, ok = p.Get(10)
	assert.False(t, ok)
}

func TestState_ClosestPageToPosition(t *testing.T) {
	state := State[int]{Pages: []Page[int]{
		{Items: []int{0, 1, 2}, NextKey: Key(2)},
		{Items: []int{3, 4}, PrevKey: Key(1)},
	}}

	page, ok := state.ClosestPageToPosition(1)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, page.Items)

	page, ok = state.ClosestPageToPosition(4)
	require.True(t, ok)
	assert.Equal(t, []int{3, 4}, page.Items)

	page, ok = state.ClosestPageToPosition(99)
	require.True(t, ok)
	assert.Equal(t, []int{3, 4}, page.Items)

	_, ok = State[int]{}.ClosestPageToPosition(0)
	assert.False(t, ok)
}
