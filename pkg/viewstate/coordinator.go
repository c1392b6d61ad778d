package viewstate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
	"github.com/Sternrassler/rickmorty-client/pkg/stateflow"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrClosed is returned when starting a closed coordinator.
var ErrClosed = errors.New("coordinator closed")

// PagerFactory builds a fresh, unstarted pager for each attempt.
type PagerFactory func() (*pagination.Pager[character.Character], error)

// Coordinator owns the UI state and the retry action.
//
// Each Start begins a new attempt with its own pager. Only the latest attempt
// writes the state; earlier attempts are cancelled and their updates dropped.
type Coordinator struct {
	factory PagerFactory
	logger  zerolog.Logger

	mu      sync.Mutex
	attempt uint64
	cancel  context.CancelFunc
	pager   *pagination.Pager[character.Character]
	closed  bool

	flow *stateflow.Flow[State]
}

// NewCoordinator creates a coordinator in the Loading state.
func NewCoordinator(factory PagerFactory) *Coordinator {
	return &Coordinator{
		factory: factory,
		logger:  logging.NewLogger(logging.ComponentCoordinator),
		flow:    stateflow.New[State](Loading{}),
	}
}

// Start sets the state to Loading and runs the initial load from scratch,
// superseding any previous attempt. In-flight loads end when ctx is done.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.stopLocked()
	c.attempt++
	attempt := c.attempt
	logger := c.logger.With().Str("attempt_id", uuid.NewString()).Logger()

	c.flow.Set(Loading{})

	pager, err := c.factory()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create pager")
		c.flow.Set(Error{Message: Message(err), Err: err})
		return fmt.Errorf("create pager: %w", err)
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	updates := pager.Updates(attemptCtx)
	if err := pager.Start(attemptCtx); err != nil {
		cancel()
		pager.Close()
		c.flow.Set(Error{Message: Message(err), Err: err})
		return fmt.Errorf("start pager: %w", err)
	}

	c.pager = pager
	c.cancel = cancel

	logger.Debug().Uint64("attempt", attempt).Msg("Started load attempt")
	go c.watch(attempt, logger, updates)
	return nil
}

// Retry runs Start again. Repeated calls are safe; the last one wins.
func (c *Coordinator) Retry(ctx context.Context) error {
	c.logger.Info().Msg("Retrying initial load")
	return c.Start(ctx)
}

// RetryEdges re-issues the failed edge loads of the current attempt, keeping
// the loaded items.
func (c *Coordinator) RetryEdges() {
	c.mu.Lock()
	pager := c.pager
	c.mu.Unlock()

	if pager != nil {
		pager.Retry()
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	return c.flow.Value()
}

// Updates streams states until ctx is done or the coordinator is closed.
func (c *Coordinator) Updates(ctx context.Context) <-chan State {
	return c.flow.Subscribe(ctx)
}

// Pager returns the pager of the current attempt, nil before Start.
// It gives per-item access and drives prefetch.
func (c *Coordinator) Pager() *pagination.Pager[character.Character] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager
}

// Close cancels the current attempt. No state is written afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.stopLocked()
	c.flow.Close()
}

func (c *Coordinator) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.pager != nil {
		c.pager.Close()
		c.pager = nil
	}
}

func (c *Coordinator) watch(attempt uint64, logger zerolog.Logger, updates <-chan pagination.Snapshot[character.Character]) {
	for snapshot := range updates {
		state := Reduce(snapshot)

		c.mu.Lock()
		if c.closed || attempt != c.attempt {
			c.mu.Unlock()
			logger.Debug().Msg("Dropping update of superseded attempt")
			return
		}
		c.flow.Set(state)
		c.mu.Unlock()

		if e, ok := state.(Error); ok {
			logger.Warn().Err(e.Err).Msg("Initial load failed")
		}
	}
}
