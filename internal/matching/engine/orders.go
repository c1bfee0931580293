package engine

import (
	"context"

	"github.com/abdoElHodaky/tradsys-core/internal/cache"
	matchingcore "github.com/abdoElHodaky/tradsys-core/internal/matching/core"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/google/uuid"
)

func newEventId() string { return uuid.New().String() }

func (e *Engine) applyAndPublish(order *types.Order, ev types.OrderEvent) {
	order.Apply(ev)
	_ = e.cache.UpdateOrder(context.Background(), order, ev)
	e.publishEvent(ev)
}

func (e *Engine) rejectNew(order *types.Order, reason string, tsNow int64) {
	e.applyAndPublish(order, types.OrderEvent{
		Kind: types.OrderEventRejected, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow, Reason: reason,
	})
}

func (e *Engine) deny(order *types.Order, reason string, tsNow int64) {
	e.applyAndPublish(order, types.OrderEvent{
		Kind: types.OrderEventDenied, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow, Reason: reason,
	})
}

func (e *Engine) accept(order *types.Order, tsNow int64) {
	venueId := e.ids.NextVenueOrderId()
	e.applyAndPublish(order, types.OrderEvent{
		Kind: types.OrderEventAccepted, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId, VenueOrderId: venueId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow,
	})
}

// ProcessOrder runs the seven-step acceptance pipeline, then dispatches
// by order type. The order must already be Initialized; its AccountId
// is not checked.
func (e *Engine) ProcessOrder(ctx context.Context, cmd types.SubmitOrder, tsNow int64) {
	order := cmd.Order

	// 1. duplicate client_order_id in the core
	if e.core.Exists(order.ClientOrderId) {
		e.rejectNew(order, "duplicate ClientOrderId", tsNow)
		return
	}

	// 2. instrument activation/expiration
	if !e.instrument.IsActive(tsNow) {
		e.rejectNew(order, "instrument not active", tsNow)
		return
	}

	// 3. contingent OTO: parent must exist and be OTO
	if order.ParentOrderId != nil {
		parent, ok := e.cache.Order(*order.ParentOrderId)
		if !ok || parent.Contingency != types.ContingencyTypeOTO {
			e.rejectNew(order, "OTO parent not found or not OTO", tsNow)
			return
		}
		if parent.Status == types.OrderStatusRejected || parent.Status == types.OrderStatusDenied {
			e.rejectNew(order, "OTO parent rejected", tsNow)
			return
		}
		if parent.IsOpen() && !parent.IsClosed() && parent.Status != types.OrderStatusFilled {
			// parent accepted-and-not-yet-triggered: child stays pending, handled by fillOrder's propagation
			_ = e.cache.AddOrder(ctx, order, cmd.PositionId, cmd.ClientId, false)
			return
		}
	}

	// 4. OCO/OUO siblings
	if order.Contingency == types.ContingencyTypeOCO || order.Contingency == types.ContingencyTypeOUO {
		for _, sibId := range order.LinkedOrderIds {
			if sib, ok := e.cache.Order(sibId); ok && sib.IsClosed() {
				e.rejectNew(order, "linked sibling already closed", tsNow)
				return
			}
		}
	}

	// 5. precision checks
	if order.Quantity.Precision() != e.instrument.SizePrecision {
		e.rejectNew(order, "quantity precision mismatch", tsNow)
		return
	}
	if order.Price != nil && order.Price.Precision() != e.instrument.PricePrecision {
		e.rejectNew(order, "price precision mismatch", tsNow)
		return
	}
	if order.TriggerPrice != nil && order.TriggerPrice.Precision() != e.instrument.PricePrecision {
		e.rejectNew(order, "trigger price precision mismatch", tsNow)
		return
	}

	// 6. no short selling on CASH equities
	if e.cfg.AccountType == types.AccountTypeCash && order.Side == types.OrderSideSell && e.instrument.Class == types.InstrumentClassEquity {
		pos, ok := e.cache.PositionForOrder(order.ClientOrderId)
		if !ok {
			if cmd.PositionId != nil {
				pos, ok = e.cache.Position(*cmd.PositionId)
			}
		}
		if !ok || !types.WouldReduceOnly(pos.Side, pos.Quantity, order.Side, order.Quantity) {
			e.rejectNew(order, "no short selling on CASH account", tsNow)
			return
		}
	}

	// 7. reduce-only
	if order.ReduceOnly {
		var pos *types.Position
		var ok bool
		if cmd.PositionId != nil {
			pos, ok = e.cache.Position(*cmd.PositionId)
		}
		if !ok || !types.WouldReduceOnly(pos.Side, pos.Quantity, order.Side, order.Quantity) {
			e.rejectNew(order, "reduce-only order would not reduce position", tsNow)
			return
		}
	}

	if err := e.cache.AddOrder(ctx, order, cmd.PositionId, cmd.ClientId, false); err != nil {
		e.rejectNew(order, err.Error(), tsNow)
		return
	}
	if err := e.core.AddOrder(matchingcore.PassiveOrder{ClientOrderId: order.ClientOrderId, Side: order.Side}); err != nil {
		e.rejectNew(order, err.Error(), tsNow)
		return
	}

	e.dispatchNewOrder(ctx, order, tsNow)
	e.cache.UpdateOwnOrderBook(order)
}

func (e *Engine) dispatchNewOrder(ctx context.Context, order *types.Order, tsNow int64) {
	switch order.Type {
	case types.OrderTypeMarket:
		if !e.hasMarketSide(order.Side) {
			e.core.DeleteOrder(order.ClientOrderId)
			e.rejectNew(order, "no market", tsNow)
			return
		}
		e.accept(order, tsNow)
		e.fillAtMarket(ctx, order, tsNow)

	case types.OrderTypeLimit:
		if order.PostOnly && e.core.IsLimitMatched(order.Side, *order.Price) {
			e.core.DeleteOrder(order.ClientOrderId)
			e.rejectNew(order, "post-only order would cross the book", tsNow)
			return
		}
		e.accept(order, tsNow)
		if e.core.IsLimitMatched(order.Side, *order.Price) {
			order.LiquiditySide = types.LiquiditySideTaker
			e.fillAtLimit(ctx, order, tsNow)
		} else if order.TimeInForce == types.TimeInForceIOC || order.TimeInForce == types.TimeInForceFOK {
			e.cancelLocal(order, tsNow)
		}

	case types.OrderTypeMarketToLimit:
		if !e.hasMarketSide(order.Side) {
			e.core.DeleteOrder(order.ClientOrderId)
			e.rejectNew(order, "no market", tsNow)
			return
		}
		e.accept(order, tsNow)
		e.fillAtMarket(ctx, order, tsNow)

	case types.OrderTypeStopMarket, types.OrderTypeMarketIfTouched:
		if e.core.IsStopMatched(order.Side, *order.TriggerPrice) {
			if e.cfg.RejectStopOrders {
				e.core.DeleteOrder(order.ClientOrderId)
				e.rejectNew(order, "stop order already in market", tsNow)
				return
			}
			e.accept(order, tsNow)
			e.triggerAndFillAsTaker(ctx, order, tsNow)
		} else {
			e.accept(order, tsNow)
		}

	case types.OrderTypeStopLimit, types.OrderTypeLimitIfTouched:
		if e.core.IsStopMatched(order.Side, *order.TriggerPrice) {
			if e.cfg.RejectStopOrders {
				e.core.DeleteOrder(order.ClientOrderId)
				e.rejectNew(order, "stop order already in market", tsNow)
				return
			}
			e.accept(order, tsNow)
			e.triggerOrder(order, tsNow)
			e.attemptTriggeredFill(ctx, order, tsNow)
		} else {
			e.accept(order, tsNow)
		}

	case types.OrderTypeTrailingStopMarket, types.OrderTypeTrailingStopLimit:
		if order.TriggerPrice != nil && e.core.IsStopMatched(order.Side, *order.TriggerPrice) {
			e.core.DeleteOrder(order.ClientOrderId)
			e.rejectNew(order, "trailing trigger already in market", tsNow)
			return
		}
		e.accept(order, tsNow)

	default:
		e.core.DeleteOrder(order.ClientOrderId)
		e.rejectNew(order, "unsupported order type", tsNow)
	}
}

func (e *Engine) hasMarketSide(side types.OrderSide) bool {
	if side == types.OrderSideBuy {
		_, ok := e.askPriceOrOverride()
		return ok
	}
	_, ok := e.bidPriceOrOverride()
	return ok
}

func (e *Engine) triggerOrder(order *types.Order, tsNow int64) {
	e.applyAndPublish(order, types.OrderEvent{
		Kind: types.OrderEventTriggered, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow,
	})
}

func (e *Engine) attemptTriggeredFill(ctx context.Context, order *types.Order, tsNow int64) {
	if order.Price != nil && e.core.IsLimitMatched(order.Side, *order.Price) {
		order.LiquiditySide = types.LiquiditySideTaker
		e.triggerAndFillAsTaker(ctx, order, tsNow)
	}
}

func (e *Engine) cancelLocal(order *types.Order, tsNow int64) {
	e.core.DeleteOrder(order.ClientOrderId)
	delete(e.cachedFilled, order.ClientOrderId)
	e.applyAndPublish(order, types.OrderEvent{
		Kind: types.OrderEventCanceled, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow, Reason: "time-in-force not satisfiable at acceptance",
	})
	e.cache.UpdateOwnOrderBook(order)
}

// ProcessModify locates the order and applies a quantity/price/trigger
// change, subject to the per-type rules.
func (e *Engine) ProcessModify(ctx context.Context, cmd types.ModifyOrder, tsNow int64) {
	order, ok := e.cache.Order(cmd.ClientOrderId)
	if !ok || !e.core.Exists(cmd.ClientOrderId) {
		e.publishEvent(types.OrderEvent{
			Kind: types.OrderEventModifyRejected, InstrumentId: cmd.InstrumentId, ClientOrderId: cmd.ClientOrderId,
			EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow, Reason: "order not found",
		})
		return
	}

	switch order.Type {
	case types.OrderTypeLimit, types.OrderTypeMarketToLimit:
		newPrice := order.Price
		if cmd.Price != nil {
			newPrice = cmd.Price
		}
		if order.PostOnly && newPrice != nil && e.core.IsLimitMatched(order.Side, *newPrice) {
			e.rejectModify(order, "modify would cross the book for a post-only order", tsNow)
			return
		}
		e.applyModify(order, cmd, tsNow)
		if newPrice != nil && e.core.IsLimitMatched(order.Side, *newPrice) {
			order.LiquiditySide = types.LiquiditySideTaker
			e.fillAtLimit(ctx, order, tsNow)
		}

	case types.OrderTypeStopMarket, types.OrderTypeMarketIfTouched:
		trigger := order.TriggerPrice
		if cmd.TriggerPrice != nil {
			trigger = cmd.TriggerPrice
		}
		if trigger != nil && e.core.IsStopMatched(order.Side, *trigger) {
			e.rejectModify(order, "modify trigger already in market", tsNow)
			return
		}
		e.applyModify(order, cmd, tsNow)

	case types.OrderTypeStopLimit, types.OrderTypeLimitIfTouched:
		if order.Status != types.OrderStatusTriggered {
			trigger := order.TriggerPrice
			if cmd.TriggerPrice != nil {
				trigger = cmd.TriggerPrice
			}
			if trigger != nil && e.core.IsStopMatched(order.Side, *trigger) {
				e.rejectModify(order, "modify trigger already in market", tsNow)
				return
			}
			e.applyModify(order, cmd, tsNow)
		} else {
			e.applyModify(order, cmd, tsNow)
			if order.Price != nil && e.core.IsLimitMatched(order.Side, *order.Price) {
				order.LiquiditySide = types.LiquiditySideTaker
				e.fillAtLimit(ctx, order, tsNow)
			}
		}

	case types.OrderTypeTrailingStopMarket, types.OrderTypeTrailingStopLimit:
		e.applyModify(order, cmd, tsNow)

	default:
		e.rejectModify(order, "order type does not support modify", tsNow)
	}
}

func (e *Engine) applyModify(order *types.Order, cmd types.ModifyOrder, tsNow int64) {
	e.applyAndPublish(order, types.OrderEvent{
		Kind: types.OrderEventUpdated, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow,
		Price: cmd.Price, TriggerPrice: cmd.TriggerPrice, Quantity: cmd.Quantity,
	})
}

func (e *Engine) rejectModify(order *types.Order, reason string, tsNow int64) {
	e.applyAndPublish(order, types.OrderEvent{
		Kind: types.OrderEventModifyRejected, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow, Reason: reason,
	})
}

// ProcessCancel cancels an inflight or open order; emits
// OrderCancelRejected if the order cannot be located.
func (e *Engine) ProcessCancel(cmd types.CancelOrder, tsNow int64) {
	order, ok := e.cache.Order(cmd.ClientOrderId)
	if !ok {
		e.publishEvent(types.OrderEvent{
			Kind: types.OrderEventCancelRejected, InstrumentId: cmd.InstrumentId, ClientOrderId: cmd.ClientOrderId,
			EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow, Reason: "order not found",
		})
		return
	}
	if !order.IsOpen() && !order.IsInflight() {
		e.applyAndPublish(order, types.OrderEvent{
			Kind: types.OrderEventCancelRejected, TraderId: order.TraderId, StrategyId: order.StrategyId,
			InstrumentId: order.InstrumentId, ClientOrderId: cmd.ClientOrderId,
			EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow, Reason: "order is closed",
		})
		return
	}
	e.core.DeleteOrder(order.ClientOrderId)
	delete(e.cachedFilled, order.ClientOrderId)
	e.applyAndPublish(order, types.OrderEvent{
		Kind: types.OrderEventCanceled, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow,
	})
	e.cache.UpdateOwnOrderBook(order)
	e.propagateOCO(order, tsNow)
}

// ProcessCancelAll cancels every open order for the instrument,
// optionally restricted to one side.
func (e *Engine) ProcessCancelAll(cmd types.CancelAllOrders, tsNow int64) {
	venue := e.cfg.Venue
	for _, o := range e.cache.OrdersOpen(cache.OrderFilter{Venue: &venue, Instrument: &cmd.InstrumentId, Side: cmd.Side}) {
		e.ProcessCancel(types.CancelOrder{InstrumentId: cmd.InstrumentId, ClientOrderId: o.ClientOrderId}, tsNow)
	}
}

// ProcessBatchCancel sequentially processes a batch of cancel requests.
func (e *Engine) ProcessBatchCancel(cmd types.BatchCancelOrders, tsNow int64) {
	for _, c := range cmd.Cancels {
		e.ProcessCancel(c, tsNow)
	}
}
