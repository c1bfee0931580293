// Package risk implements the pre-trade risk engine (component F):
// notional/balance/rate-limit gating of trading commands before they
// reach a matching engine, per spec.md §4.5.
package risk

import (
	"context"
	"fmt"

	"github.com/abdoElHodaky/tradsys-core/internal/bus"
	"github.com/abdoElHodaky/tradsys-core/internal/cache"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config configures one Engine.
type Config struct {
	Debug              bool
	Bypass             bool
	MaxOrderSubmitRate float64
	MaxOrderSubmitBurst int
	MaxOrderModifyRate float64
	MaxOrderModifyBurst int
}

// Engine is the pre-trade risk gate shared by every venue's matching engines.
type Engine struct {
	cfg    Config
	cache  *cache.Cache
	bus    bus.Bus
	logger *zap.Logger

	state types.TradingState

	submitThrottler *Throttler
	modifyThrottler *Throttler

	maxNotionalPerOrder map[types.InstrumentId]decimal.Decimal
}

// New constructs a risk Engine. TradingState starts Active.
func New(cfg Config, c *cache.Cache, b bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:                 cfg,
		cache:               c,
		bus:                 b,
		logger:              logger,
		state:               types.TradingStateActive,
		submitThrottler:     NewThrottler("submit", cfg.MaxOrderSubmitRate, cfg.MaxOrderSubmitBurst),
		modifyThrottler:     NewThrottler("modify", cfg.MaxOrderModifyRate, cfg.MaxOrderModifyBurst),
		maxNotionalPerOrder: make(map[types.InstrumentId]decimal.Decimal),
	}
}

// Execute dispatches a trading command; unrecognized command types are
// logged and ignored.
func (e *Engine) Execute(ctx context.Context, cmd interface{}, tsNow int64) {
	switch c := cmd.(type) {
	case types.SubmitOrder:
		e.handleSubmitOrder(ctx, c, tsNow)
	case types.SubmitOrderList:
		e.handleSubmitOrderList(ctx, c, tsNow)
	case types.ModifyOrder:
		e.handleModifyOrder(ctx, c, tsNow)
	default:
		e.logger.Warn("risk engine received unrecognized command", zap.String("type", fmt.Sprintf("%T", cmd)))
	}
}

// SetTradingState transitions the gate's trading state, warning on a
// no-op transition to the current state and publishing a change event
// otherwise.
func (e *Engine) SetTradingState(state types.TradingState, tsNow int64) {
	if state == e.state {
		e.logger.Warn("trading state already set", zap.String("state", string(state)))
		return
	}
	e.state = state
	e.logger.Info("trading state changed", zap.String("state", string(state)))
	if e.bus != nil {
		_ = e.bus.Publish(context.Background(), bus.EndpointExecEngineProcess, map[string]interface{}{
			"event": "TradingStateChanged", "state": state, "ts_event": tsNow,
		})
	}
}

// TradingState returns the current trading state.
func (e *Engine) TradingState() types.TradingState { return e.state }

// SetMaxNotionalPerOrder records a per-instrument notional ceiling.
func (e *Engine) SetMaxNotionalPerOrder(instrument types.InstrumentId, limit decimal.Decimal) {
	e.maxNotionalPerOrder[instrument] = limit
}

func newEventId() string { return uuid.New().String() }

func (e *Engine) denyOrder(order *types.Order, reason string, tsNow int64) {
	ev := types.OrderEvent{
		Kind: types.OrderEventDenied, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow, Reason: reason,
	}
	order.Apply(ev)
	if e.cache.OrderExists(order.ClientOrderId) {
		_ = e.cache.UpdateOrder(context.Background(), order, ev)
	}
	if e.bus != nil {
		_ = e.bus.Send(context.Background(), bus.EndpointExecEngineProcess, ev)
	}
}

func (e *Engine) rejectModify(order *types.Order, reason string, tsNow int64) {
	ev := types.OrderEvent{
		Kind: types.OrderEventModifyRejected, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow, Reason: reason,
	}
	order.Apply(ev)
	if e.cache.OrderExists(order.ClientOrderId) {
		_ = e.cache.UpdateOrder(context.Background(), order, ev)
	}
	if e.bus != nil {
		_ = e.bus.Send(context.Background(), bus.EndpointExecEngineProcess, ev)
	}
}

func (e *Engine) forward(ctx context.Context, cmd interface{}) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Send(ctx, bus.EndpointExecEngineExecute, cmd); err != nil {
		e.logger.Warn("failed to forward command to execution gateway", zap.Error(err))
	}
}

func moneyRepr(m types.Money) string {
	return fmt.Sprintf("Money(%s, %s)", m.Amount.StringFixed(int32(m.Currency.Precision)), m.Currency.Code)
}
