package engine

import (
	"context"
	"fmt"

	"github.com/abdoElHodaky/tradsys-core/internal/book"
	matchingcore "github.com/abdoElHodaky/tradsys-core/internal/matching/core"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
)

func matchingPassive(o *types.Order) matchingcore.PassiveOrder {
	return matchingcore.PassiveOrder{ClientOrderId: o.ClientOrderId, Side: o.Side}
}

// fillAtMarket simulates a fill at the opposite side's resting
// liquidity with no price limit (a +/- infinity synthetic order).
func (e *Engine) fillAtMarket(ctx context.Context, order *types.Order, tsNow int64) {
	side := order.Side
	sentinel := extremePrice(side)
	legs := e.book.SimulateFills(book.SyntheticOrder{Side: side, Price: sentinel, Size: order.Leaves()})
	e.applyFills(ctx, order, legs, tsNow)
}

// fillAtLimit simulates a fill bounded by the order's limit price; a
// Maker order still only fills against liquidity it can legitimately
// cross once the reference price moves through it.
func (e *Engine) fillAtLimit(ctx context.Context, order *types.Order, tsNow int64) {
	legs := e.book.SimulateFills(book.SyntheticOrder{Side: order.Side, Price: *order.Price, Size: order.Leaves()})
	capped := make([]book.FillLeg, 0, len(legs))
	for _, l := range legs {
		if order.Side == types.OrderSideBuy && l.Price.GreaterThan(*order.Price) {
			continue
		}
		if order.Side == types.OrderSideSell && l.Price.LessThan(*order.Price) {
			continue
		}
		capped = append(capped, l)
	}
	e.applyFills(ctx, order, capped, tsNow)
}

func extremePrice(side types.OrderSide) types.Price {
	if side == types.OrderSideBuy {
		return types.NewPrice(1e18, 0)
	}
	return types.NewPrice(0, 0)
}

// applyFills enforces FOK all-or-nothing and otherwise walks the
// simulated legs applying one OrderFilled event per leg. An empty leg
// list leaves the order as it is; orders with no market side at all
// are rejected earlier, in dispatchNewOrder.
func (e *Engine) applyFills(ctx context.Context, order *types.Order, legs []book.FillLeg, tsNow int64) {
	if len(legs) == 0 {
		if order.Status == types.OrderStatusAccepted || order.Status == types.OrderStatusTriggered {
			// no crossing liquidity yet; order simply continues to rest
		}
		return
	}

	var total types.Quantity
	for _, l := range legs {
		total = total.Add(l.Size)
	}
	if order.TimeInForce == types.TimeInForceFOK && total.LessThan(order.Leaves()) {
		e.core.DeleteOrder(order.ClientOrderId)
		delete(e.cachedFilled, order.ClientOrderId)
		e.rejectNew(order, "fill-or-kill could not be filled in full", tsNow)
		return
	}

	pinned := false
	for _, leg := range legs {
		if leg.Size.IsZero() {
			continue
		}
		if leg.Price.Precision() != e.instrument.PricePrecision || leg.Size.Precision() != e.instrument.SizePrecision {
			panic(fmt.Sprintf("fill leg precision mismatch for %s: price %d, size %d", order.ClientOrderId, leg.Price.Precision(), leg.Size.Precision()))
		}
		px := leg.Price
		if e.fillModel != nil {
			px = e.fillModel.Slip(e.instrument, order.Side, px)
		}
		e.fillOrder(ctx, order, leg.Size, px, tsNow)

		if order.Type == types.OrderTypeMarketToLimit && !pinned {
			pinned = true
			e.applyAndPublish(order, types.OrderEvent{
				Kind: types.OrderEventUpdated, ClientOrderId: order.ClientOrderId,
				InstrumentId: order.InstrumentId, EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow,
				Price: &px,
			})
		}
		if order.IsClosed() {
			break
		}
	}

	if (order.TimeInForce == types.TimeInForceIOC || order.TimeInForce == types.TimeInForceFOK) && !order.IsClosed() {
		e.cancelLocal(order, tsNow)
	}
}

// fillOrder applies one OrderFilled leg: computes commission, emits the
// event, propagates OTO/OCO/OUO effects once the order closes, and
// removes a fully-filled passive order from the core.
func (e *Engine) fillOrder(ctx context.Context, order *types.Order, qty types.Quantity, px types.Price, tsNow int64) {
	prevFilled, ok := e.cachedFilled[order.ClientOrderId]
	if !ok {
		prevFilled = order.Filled
	}
	if prevFilled.GreaterThanOrEqual(order.Quantity) {
		return
	}
	newFilled := prevFilled.Add(qty)
	e.cachedFilled[order.ClientOrderId] = newFilled

	liquidity := order.LiquiditySide
	if liquidity == "" || liquidity == types.LiquiditySideNone {
		liquidity = types.LiquiditySideTaker
	}

	var commission *types.Money
	if e.feeModel != nil {
		c := e.feeModel.Commission(e.instrument, qty, px, liquidity)
		commission = &c
	}

	var positionId *types.PositionId
	if pos, ok := e.cache.PositionForOrder(order.ClientOrderId); ok {
		positionId = &pos.Id
	}

	e.applyAndPublish(order, types.OrderEvent{
		Kind: types.OrderEventFilled, TraderId: order.TraderId, StrategyId: order.StrategyId,
		InstrumentId: order.InstrumentId, ClientOrderId: order.ClientOrderId,
		EventId: newEventId(), TsEvent: tsNow, TsInit: tsNow,
		TradeId: e.ids.NextTradeId(), Side: order.Side, Type: order.Type,
		LastQty: qty, LastPx: px, LiquiditySide: liquidity,
		PositionId: positionId, Commission: commission,
	})

	e.cache.UpdateOwnOrderBook(order)

	if order.IsClosed() {
		e.core.DeleteOrder(order.ClientOrderId)
		delete(e.cachedFilled, order.ClientOrderId)
		e.propagateFillContingencies(ctx, order, tsNow)
	}
}

// propagateFillContingencies activates pending OTO children once the
// parent fills, and cancels OCO/OUO siblings once one leg closes.
func (e *Engine) propagateFillContingencies(ctx context.Context, order *types.Order, tsNow int64) {
	e.propagateOCO(order, tsNow)

	for _, childId := range order.LinkedOrderIds {
		child, ok := e.cache.Order(childId)
		if !ok || child.ParentOrderId == nil || *child.ParentOrderId != order.ClientOrderId {
			continue
		}
		if child.Contingency != types.ContingencyTypeOTO {
			continue
		}
		if err := e.core.AddOrder(matchingPassive(child)); err != nil {
			continue
		}
		e.accept(child, tsNow)
		e.dispatchNewOrder(ctx, child, tsNow)
	}
}
