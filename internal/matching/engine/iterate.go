package engine

import (
	"context"

	"github.com/abdoElHodaky/tradsys-core/internal/types"
)

// Iterate refreshes the core's reference prices from the book, then
// walks every resting passive order looking for triggers: GTD expiry,
// stop/touch activation, and trailing-stop recalculation. Called once
// per instrument after every market-data update.
func (e *Engine) Iterate(ctx context.Context, tsNow int64) {
	if bid, ok := e.book.BestBidPrice(); ok {
		e.core.SetBidRaw(bid)
	}
	if ask, ok := e.book.BestAskPrice(); ok {
		e.core.SetAskRaw(ask)
	}
	if last, ok := e.book.LastPrice(); ok {
		e.core.SetLastRaw(last)
	}
	e.core.Iterate()

	bids := e.core.BidOrders()
	asks := e.core.AskOrders()
	passive := make([]types.ClientOrderId, 0, len(bids)+len(asks))
	for _, p := range bids {
		passive = append(passive, p.ClientOrderId)
	}
	for _, p := range asks {
		passive = append(passive, p.ClientOrderId)
	}

	for _, id := range passive {
		order, ok := e.cache.Order(id)
		if !ok || order.IsClosed() {
			continue
		}
		e.iterateOrder(ctx, order, tsNow)
	}

	e.targetBid = nil
	e.targetAsk = nil
	e.targetLast = nil
}

func (e *Engine) iterateOrder(ctx context.Context, order *types.Order, tsNow int64) {
	if order.TimeInForce == types.TimeInForceGTD && order.ExpireTimeNs != nil && tsNow >= *order.ExpireTimeNs {
		e.expireOrder(order, tsNow)
		return
	}

	switch order.Type {
	case types.OrderTypeLimit, types.OrderTypeMarketToLimit:
		if order.Price != nil && e.core.IsLimitMatched(order.Side, *order.Price) {
			order.LiquiditySide = types.LiquiditySideMaker
			e.fillAtLimit(ctx, order, tsNow)
		}

	case types.OrderTypeStopMarket, types.OrderTypeMarketIfTouched:
		if order.Status == types.OrderStatusAccepted && order.TriggerPrice != nil && e.core.IsStopMatched(order.Side, *order.TriggerPrice) {
			e.triggerAndFillAsTaker(ctx, order, tsNow)
		}

	case types.OrderTypeStopLimit, types.OrderTypeLimitIfTouched:
		if order.Status == types.OrderStatusAccepted && order.TriggerPrice != nil && e.core.IsStopMatched(order.Side, *order.TriggerPrice) {
			e.triggerOrder(order, tsNow)
		}
		if order.Status == types.OrderStatusTriggered && order.Price != nil && e.core.IsLimitMatched(order.Side, *order.Price) {
			order.LiquiditySide = types.LiquiditySideTaker
			e.fillAtLimit(ctx, order, tsNow)
		}

	case types.OrderTypeTrailingStopMarket, types.OrderTypeTrailingStopLimit:
		e.recalculateTrailingTrigger(order, tsNow)
		if order.TriggerPrice != nil && e.core.IsStopMatched(order.Side, *order.TriggerPrice) {
			if order.Type == types.OrderTypeTrailingStopMarket {
				e.triggerAndFillAsTaker(ctx, order, tsNow)
			} else {
				e.triggerOrder(order, tsNow)
			}
		}
	}
}

// recalculateTrailingTrigger walks the trigger price toward the market
// by the trailing offset whenever the market moves favorably; it never
// moves the trigger unfavorably.
func (e *Engine) recalculateTrailingTrigger(order *types.Order, tsNow int64) {
	ref, ok := e.core.Last()
	if order.Side == types.OrderSideBuy {
		if a, aok := e.core.Ask(); aok {
			ref, ok = a, true
		}
	} else {
		if b, bok := e.core.Bid(); bok {
			ref, ok = b, true
		}
	}
	if !ok {
		return
	}

	candidate := ref.Add(order.TrailingOffset)
	if order.Side == types.OrderSideSell {
		candidate = ref.Sub(order.TrailingOffset)
	}

	if order.TriggerPrice == nil {
		order.TriggerPrice = &candidate
		return
	}
	if order.Side == types.OrderSideBuy && candidate.LessThan(*order.TriggerPrice) {
		order.TriggerPrice = &candidate
	}
	if order.Side == types.OrderSideSell && candidate.GreaterThan(*order.TriggerPrice) {
		order.TriggerPrice = &candidate
	}
}

func (e *Engine) expireOrder(order *types.Order, tsNow int64) {
	e.core.DeleteOrder(order.ClientOrderId)
	delete(e.cachedFilled, order.ClientOrderId)
	e.applyAndPublish(order, types.OrderEvent{
		Kind: types.OrderEventExpired, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow,
	})
	e.cache.UpdateOwnOrderBook(order)
	e.propagateOCO(order, tsNow)
}

// propagateOCO cancels every linked sibling of a closed OCO/OUO order.
func (e *Engine) propagateOCO(order *types.Order, tsNow int64) {
	if order.Contingency != types.ContingencyTypeOCO && order.Contingency != types.ContingencyTypeOUO {
		return
	}
	for _, sibId := range order.LinkedOrderIds {
		sib, ok := e.cache.Order(sibId)
		if !ok || sib.IsClosed() {
			continue
		}
		e.core.DeleteOrder(sib.ClientOrderId)
		delete(e.cachedFilled, sib.ClientOrderId)
		e.applyAndPublish(sib, types.OrderEvent{
			Kind: types.OrderEventCanceled, TraderId: sib.TraderId, StrategyId: sib.StrategyId,
			InstrumentId: sib.InstrumentId, ClientOrderId: sib.ClientOrderId,
			EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow, Reason: "linked order closed",
		})
		e.cache.UpdateOwnOrderBook(sib)
	}
}

// triggerAndFillAsTaker transitions a stop/touch order through Triggered
// and immediately attempts to fill it as an aggressive (taker) order.
func (e *Engine) triggerAndFillAsTaker(ctx context.Context, order *types.Order, tsNow int64) {
	e.triggerOrder(order, tsNow)
	order.LiquiditySide = types.LiquiditySideTaker
	e.fillAtMarket(ctx, order, tsNow)
}
