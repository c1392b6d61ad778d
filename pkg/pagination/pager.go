package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/Sternrassler/rickmorty-client/pkg/stateflow"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("pager already started")

	// ErrClosed is returned when operating on a closed pager.
	ErrClosed = errors.New("pager closed")
)

// Pager aggregates pages from a Source into one ordered collection.
//
// All state is owned by the pager and mutated only from load completions and
// the public methods, under mu. Every change is published as a Snapshot.
type Pager[T any] struct {
	source Source[T]
	keyer  ItemKeyer[T]
	config Config
	logger zerolog.Logger

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	pages      []Page[T]
	states     LoadStates
	inflight   [len(loadTypes)]context.CancelFunc
	seq        [len(loadTypes)]uint64
	generation uint64
	refreshKey *int
	anchor     int
	closed     bool

	flow *stateflow.Flow[Snapshot[T]]
}

// New creates a pager over source. Nothing is loaded until Start.
func New[T any](source Source[T], cfg Config) (*Pager[T], error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pager[T]{
		source: source,
		config: cfg,
		logger: logging.NewLogger(logging.ComponentPager),
		anchor: -1,
		flow:   stateflow.New(Snapshot[T]{}),
	}

	if cfg.Dedup {
		keyer, ok := source.(ItemKeyer[T])
		if !ok {
			return nil, fmt.Errorf("dedup requires a source implementing ItemKeyer")
		}
		p.keyer = keyer
	}

	return p, nil
}

// Start binds the pager to ctx and issues the initial refresh load.
// Cancelling ctx closes the pager.
func (p *Pager[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.ctx != nil {
		return ErrAlreadyStarted
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.logger.Debug().
		Int("page_size", p.config.PageSize).
		Int("prefetch_distance", p.config.PrefetchDistance).
		Msg("Starting pager")

	go func(ctx context.Context) {
		<-ctx.Done()
		p.Close()
	}(p.ctx)

	p.launchLocked(Refresh, nil)
	return nil
}

// Get returns the item at index and records it as the anchor position.
// Reads close to an edge trigger a prefetch of the adjacent page.
func (p *Pager[T]) Get(index int) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero T
	item, ok := p.itemLocked(index)
	if !ok {
		return zero, false
	}

	p.anchor = index
	p.prefetchLocked()
	return item, true
}

// Retry re-issues the load of every edge currently in the error state,
// with the same key that failed. A failed refresh is retried alone since its
// result replaces the pages the edges would extend.
func (p *Pager[T]) Retry() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.ctx == nil {
		return
	}

	if p.states.Refresh.IsError() {
		p.logger.Info().
			Str("load_type", Refresh.String()).
			Interface("key", p.refreshKey).
			Msg("Retrying failed load")
		p.launchLocked(Refresh, p.refreshKey)
		return
	}
	if len(p.pages) == 0 {
		return
	}

	for _, t := range []LoadType{Prepend, Append} {
		if !p.states.Get(t).IsError() {
			continue
		}

		key := p.pages[len(p.pages)-1].NextKey
		if t == Prepend {
			key = p.pages[0].PrevKey
		}

		p.logger.Info().
			Str("load_type", t.String()).
			Interface("key", key).
			Msg("Retrying failed load")
		p.launchLocked(t, key)
	}
}

// Refresh invalidates the collection and reloads it from the key the source
// derives from the anchor position. In-flight loads are superseded: they are
// cancelled and their results discarded.
func (p *Pager[T]) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.ctx == nil {
		return
	}

	key := p.source.RefreshKey(p.stateLocked())

	p.generation++
	for i, cancel := range p.inflight {
		if cancel != nil {
			cancel()
			p.inflight[i] = nil
		}
	}
	p.states = LoadStates{}

	p.logger.Debug().
		Uint64("generation", p.generation).
		Interface("key", key).
		Msg("Refreshing pager")

	p.launchLocked(Refresh, key)
}

// Snapshot returns the current aggregated collection.
func (p *Pager[T]) Snapshot() Snapshot[T] {
	return p.flow.Value()
}

// Updates streams snapshots until ctx is done or the pager is closed.
func (p *Pager[T]) Updates(ctx context.Context) <-chan Snapshot[T] {
	return p.flow.Subscribe(ctx)
}

// Close cancels in-flight loads. Results arriving afterwards are dropped.
func (p *Pager[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	p.flow.Close()
}

// launchLocked starts a load for edge t unless one is already in flight.
// A refresh supersedes prepend and append loads; those never start while a
// refresh is in flight.
func (p *Pager[T]) launchLocked(t LoadType, key *int) {
	if p.closed || p.ctx == nil || p.inflight[t] != nil {
		return
	}
	if t == Refresh {
		p.cancelEdgesLocked()
	} else if p.inflight[Refresh] != nil {
		return
	}

	ctx, cancel := context.WithCancel(p.ctx)
	p.inflight[t] = cancel
	p.seq[t]++

	size := p.config.PageSize
	if t == Refresh {
		size = p.config.InitialLoadSize
		p.refreshKey = copyKey(key)
	}

	params := LoadParams{Type: t, Key: copyKey(key), LoadSize: size}
	p.states.set(t, LoadState{Status: StatusLoading})
	p.publishLocked()

	go p.load(ctx, cancel, params, p.generation, p.seq[t])
}

func (p *Pager[T]) load(ctx context.Context, cancel context.CancelFunc, params LoadParams, generation, seq uint64) {
	defer cancel()

	start := time.Now()
	page, err := p.source.Load(ctx, params)
	PageLoadDuration.WithLabelValues(params.Type.String()).Observe(time.Since(start).Seconds())

	p.mu.Lock()
	defer p.mu.Unlock()

	current := generation == p.generation && seq == p.seq[params.Type]
	if p.closed || ctx.Err() != nil || !current {
		if current {
			p.inflight[params.Type] = nil
		}
		PageLoads.WithLabelValues(params.Type.String(), "discarded").Inc()
		p.logger.Debug().
			Str("load_type", params.Type.String()).
			Interface("key", params.Key).
			Msg("Discarding stale load result")
		return
	}
	p.inflight[params.Type] = nil

	if err != nil {
		PageLoads.WithLabelValues(params.Type.String(), "error").Inc()
		p.logger.Warn().
			Err(err).
			Str("load_type", params.Type.String()).
			Interface("key", params.Key).
			Msg("Page load failed")
		p.states.set(params.Type, LoadState{Status: StatusError, Err: err})
		p.publishLocked()
		return
	}

	PageLoads.WithLabelValues(params.Type.String(), "success").Inc()
	p.applyLocked(params.Type, page)

	p.logger.Debug().
		Str("load_type", params.Type.String()).
		Interface("key", params.Key).
		Int("items", len(page.Items)).
		Int("total_items", p.lenLocked()).
		Msg("Page loaded")

	p.prefetchLocked()
	p.publishLocked()
}

// applyLocked merges a loaded page into the collection.
func (p *Pager[T]) applyLocked(t LoadType, page Page[T]) {
	switch t {
	case Refresh:
		p.cancelEdgesLocked()
		p.pages = []Page[T]{page}
		p.anchor = -1
		p.states = LoadStates{
			Prepend: LoadState{EndOfPagination: page.PrevKey == nil},
			Append:  LoadState{EndOfPagination: page.NextKey == nil},
		}
	case Prepend:
		page.Items = p.dedupLocked(page.Items)
		p.pages = append([]Page[T]{page}, p.pages...)
		if p.anchor >= 0 {
			p.anchor += len(page.Items)
		}
		p.states.Prepend = LoadState{EndOfPagination: page.PrevKey == nil}
	case Append:
		page.Items = p.dedupLocked(page.Items)
		p.pages = append(p.pages, page)
		p.states.Append = LoadState{EndOfPagination: page.NextKey == nil}
	}
}

// cancelEdgesLocked cancels in-flight prepend and append loads. Their results
// no longer match the edge sequence and are discarded.
func (p *Pager[T]) cancelEdgesLocked() {
	for _, t := range []LoadType{Prepend, Append} {
		cancel := p.inflight[t]
		if cancel == nil {
			continue
		}
		cancel()
		p.inflight[t] = nil
		p.seq[t]++
		p.states.set(t, LoadState{})
	}
}

// dedupLocked drops items already present when dedup is enabled.
func (p *Pager[T]) dedupLocked(items []T) []T {
	if p.keyer == nil {
		return items
	}

	seen := make(map[int]struct{}, p.lenLocked())
	for _, pg := range p.pages {
		for _, it := range pg.Items {
			seen[p.keyer.ItemKey(it)] = struct{}{}
		}
	}

	out := make([]T, 0, len(items))
	for _, it := range items {
		k := p.keyer.ItemKey(it)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

// prefetchLocked loads the adjacent page when the anchor is near an edge.
func (p *Pager[T]) prefetchLocked() {
	n := p.lenLocked()
	if p.anchor < 0 || n == 0 || p.inflight[Refresh] != nil {
		return
	}

	dist := p.config.PrefetchDistance

	if p.anchor >= n-1-dist {
		last := p.pages[len(p.pages)-1]
		if last.NextKey != nil && p.inflight[Append] == nil && !p.states.Append.IsError() {
			PrefetchesTotal.WithLabelValues(Append.String()).Inc()
			p.launchLocked(Append, last.NextKey)
		}
	}

	if p.anchor <= dist {
		first := p.pages[0]
		if first.PrevKey != nil && p.inflight[Prepend] == nil && !p.states.Prepend.IsError() {
			PrefetchesTotal.WithLabelValues(Prepend.String()).Inc()
			p.launchLocked(Prepend, first.PrevKey)
		}
	}
}

func (p *Pager[T]) itemLocked(index int) (T, bool) {
	var zero T
	if index < 0 {
		return zero, false
	}
	for _, pg := range p.pages {
		if index < len(pg.Items) {
			return pg.Items[index], true
		}
		index -= len(pg.Items)
	}
	return zero, false
}

func (p *Pager[T]) lenLocked() int {
	n := 0
	for _, pg := range p.pages {
		n += len(pg.Items)
	}
	return n
}

func (p *Pager[T]) stateLocked() State[T] {
	state := State[T]{
		Pages:  append([]Page[T](nil), p.pages...),
		Config: p.config,
	}
	if p.anchor >= 0 {
		state.AnchorPosition = Key(p.anchor)
	}
	return state
}

func (p *Pager[T]) publishLocked() {
	items := make([]T, 0, p.lenLocked())
	for _, pg := range p.pages {
		items = append(items, pg.Items...)
	}
	p.flow.Set(Snapshot[T]{
		Items:      items,
		LoadStates: p.states,
		PageCount:  len(p.pages),
	})
}

func copyKey(k *int) *int {
	if k == nil {
		return nil
	}
	return Key(*k)
}
