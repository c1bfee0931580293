// Package manager fans trading commands and market-data events out to
// one Engine per (venue, instrument), running each instrument's work on
// a shared ants pool while guaranteeing that a single instrument's
// events are never processed concurrently with themselves (component
// E runs on the single-threaded cooperative model described in spec.md
// §5; parallelism is only ever across instruments, never within one).
package manager

import (
	"context"
	"fmt"

	"github.com/abdoElHodaky/tradsys-core/internal/matching/engine"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

type lane struct {
	engine *engine.Engine
	queue  chan func()
}

// Manager owns one Engine per instrument and dispatches work onto a
// bounded ants pool, one lane goroutine per instrument.
type Manager struct {
	logger *zap.Logger
	pool   *ants.Pool
	lanes  map[types.InstrumentId]*lane
}

// New constructs a Manager backed by a pool of the given worker count.
func New(poolSize int, logger *zap.Logger) (*Manager, error) {
	pool, err := ants.NewPool(poolSize, ants.WithPanicHandler(func(i interface{}) {
		logger.Error("matching engine task panicked", zap.Any("panic", i))
	}))
	if err != nil {
		return nil, fmt.Errorf("create matching engine pool: %w", err)
	}
	return &Manager{
		logger: logger,
		pool:   pool,
		lanes:  make(map[types.InstrumentId]*lane),
	}, nil
}

// Register adds an Engine for one instrument and starts its lane: one
// pool slot is held for the lane's lifetime, draining its queue
// strictly in order so the engine underneath is never entered by two
// goroutines at once.
func (m *Manager) Register(instrumentId types.InstrumentId, e *engine.Engine) error {
	l := &lane{engine: e, queue: make(chan func(), 1024)}
	m.lanes[instrumentId] = l
	return m.pool.Submit(func() {
		for task := range l.queue {
			task()
		}
	})
}

// Engine returns the registered engine for an instrument, if any.
func (m *Manager) Engine(instrumentId types.InstrumentId) (*engine.Engine, bool) {
	l, ok := m.lanes[instrumentId]
	if !ok {
		return nil, false
	}
	return l.engine, true
}

// Submit enqueues a unit of work for one instrument's lane.
func (m *Manager) Submit(instrumentId types.InstrumentId, task func()) error {
	l, ok := m.lanes[instrumentId]
	if !ok {
		return fmt.Errorf("no engine registered for instrument %s", instrumentId)
	}
	select {
	case l.queue <- task:
		return nil
	default:
		return fmt.Errorf("lane queue full for instrument %s", instrumentId)
	}
}

// SubmitOrder dispatches a SubmitOrder command onto its instrument's lane.
func (m *Manager) SubmitOrder(ctx context.Context, cmd types.SubmitOrder, tsNow int64) error {
	return m.Submit(cmd.Order.InstrumentId, func() {
		if e, ok := m.Engine(cmd.Order.InstrumentId); ok {
			e.ProcessOrder(ctx, cmd, tsNow)
		}
	})
}

// Release stops accepting new lane tasks and releases the pool.
func (m *Manager) Release() {
	for _, l := range m.lanes {
		close(l.queue)
	}
	m.pool.Release()
}
