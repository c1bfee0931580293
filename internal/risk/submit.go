package risk

import (
	"context"
	"fmt"

	"github.com/abdoElHodaky/tradsys-core/internal/cache"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// handleSubmitOrder runs the full six-step acceptance pipeline before
// forwarding a SubmitOrder to the execution gateway.
func (e *Engine) handleSubmitOrder(ctx context.Context, cmd types.SubmitOrder, tsNow int64) {
	order := cmd.Order
	if e.cfg.Bypass {
		e.forward(ctx, cmd)
		return
	}

	// 1. reduce-only / position check
	if order.ReduceOnly && cmd.PositionId != nil {
		pos, ok := e.cache.Position(*cmd.PositionId)
		if !ok {
			e.denyOrder(order, "position not found for reduce-only", tsNow)
			return
		}
		if !types.WouldReduceOnly(pos.Side, pos.Quantity, order.Side, order.Quantity) {
			e.denyOrder(order, "would increase position", tsNow)
			return
		}
	}

	// 2. instrument must exist
	instrument, ok := e.cache.Instrument(order.InstrumentId)
	if !ok {
		e.denyOrder(order, fmt.Sprintf("Instrument for %s not found", order.InstrumentId), tsNow)
		return
	}

	// 3. check_order: price + trigger price
	if reason, bad := e.checkPrice(order.Price, instrument); bad {
		e.denyOrder(order, reason, tsNow)
		return
	}
	if reason, bad := e.checkPrice(order.TriggerPrice, instrument); bad {
		e.denyOrder(order, reason, tsNow)
		return
	}

	// 4. check_quantity
	if reason, bad := e.checkQuantity(order.Quantity, instrument); bad {
		e.denyOrder(order, reason, tsNow)
		return
	}

	// 5. check_orders_risk
	if d := e.checkOrdersRisk(instrument, []*types.Order{order}); d != nil {
		e.denyOrder(order, d.reason, tsNow)
		return
	}

	// 6. execution_gateway
	e.executionGateway(ctx, instrument, cmd, order, tsNow)
}

// handleSubmitOrderList validates every order in a shared-instrument
// list, then either denies the offenders individually or, when the list
// fails the notional/balance checks, denies every open order in it: the
// failing order with the specific risk reason, the rest with a generic
// list-denied reason.
func (e *Engine) handleSubmitOrderList(ctx context.Context, cmd types.SubmitOrderList, tsNow int64) {
	if e.cfg.Bypass {
		e.forward(ctx, cmd)
		return
	}
	if len(cmd.Orders) == 0 {
		return
	}
	instrumentId := cmd.Orders[0].InstrumentId
	instrument, ok := e.cache.Instrument(instrumentId)
	if !ok {
		for _, o := range cmd.Orders {
			e.denyOrder(o, fmt.Sprintf("Instrument for %s not found", instrumentId), tsNow)
		}
		return
	}

	anyDenied := false
	for _, order := range cmd.Orders {
		if reason, bad := e.checkPrice(order.Price, instrument); bad {
			e.denyOrder(order, reason, tsNow)
			anyDenied = true
			continue
		}
		if reason, bad := e.checkPrice(order.TriggerPrice, instrument); bad {
			e.denyOrder(order, reason, tsNow)
			anyDenied = true
			continue
		}
		if reason, bad := e.checkQuantity(order.Quantity, instrument); bad {
			e.denyOrder(order, reason, tsNow)
			anyDenied = true
			continue
		}
	}
	if anyDenied {
		return
	}

	if d := e.checkOrdersRisk(instrument, cmd.Orders); d != nil {
		for i, order := range cmd.Orders {
			if order.IsClosed() {
				continue
			}
			if i == d.index {
				e.denyOrder(order, d.reason, tsNow)
			} else {
				e.denyOrder(order, "denied: a linked order in this list failed risk checks", tsNow)
			}
		}
		return
	}

	for _, order := range cmd.Orders {
		e.executionGateway(ctx, instrument, types.SubmitOrder{Order: order, PositionId: cmd.PositionId, ClientId: cmd.ClientId}, order, tsNow)
	}
}

// checkPrice validates precision and, for non-Option instruments,
// positivity. A nil price always passes (the order type may not carry one).
func (e *Engine) checkPrice(price *types.Price, instrument *types.Instrument) (string, bool) {
	if price == nil {
		return "", false
	}
	if price.Precision() > instrument.PricePrecision {
		return fmt.Sprintf("price %s invalid (precision %d > %d)", price, price.Precision(), instrument.PricePrecision), true
	}
	if instrument.Class != types.InstrumentClassOptionContract && instrument.Class != types.InstrumentClassOptionSpread {
		if !price.GreaterThan(types.NewPrice(0, price.Precision())) {
			return "price must be positive", true
		}
	}
	return "", false
}

// checkQuantity validates precision and min/max bounds.
func (e *Engine) checkQuantity(qty types.Quantity, instrument *types.Instrument) (string, bool) {
	if qty.Precision() > instrument.SizePrecision {
		return fmt.Sprintf("quantity %s invalid (precision %d > %d)", qty, qty.Precision(), instrument.SizePrecision), true
	}
	if instrument.MaxQuantity != nil && qty.GreaterThan(*instrument.MaxQuantity) {
		return "quantity exceeds instrument max_quantity", true
	}
	if instrument.MinQuantity != nil && qty.LessThan(*instrument.MinQuantity) {
		return "quantity below instrument min_quantity", true
	}
	return "", false
}

type riskDenial struct {
	index  int
	reason string
}

// checkOrdersRisk implements the notional/balance checks shared by
// single-order and list submission. Orders for which no reference
// price is available are skipped (neither contributing to nor blocked
// by the cumulative checks).
func (e *Engine) checkOrdersRisk(instrument *types.Instrument, orders []*types.Order) *riskDenial {
	maxNotional, hasMax := e.maxNotionalPerOrder[instrument.Id]

	acct, ok := e.cache.AccountForVenue(instrument.Id.Venue)
	if !ok {
		return nil
	}
	// Margin accounts are exempt from every check below, including the
	// per-order notional limits.
	if acct.Type == types.AccountTypeMargin {
		e.logger.Warn("checkOrdersRisk bypassed for margin account", zap.String("account_id", string(acct.Id)))
		return nil
	}
	ccy := instrument.QuoteCurrency
	if instrument.SettlementCurrency != nil {
		ccy = *instrument.SettlementCurrency
	}
	free := acct.Free(ccy.Code)

	cumBuy := decimal.Zero
	cumSell := decimal.Zero

	for i, order := range orders {
		lastPx, ok := e.referencePrice(order, instrument)
		if !ok {
			continue
		}

		effectiveQty := order.Quantity
		if order.QuoteQuantity && !lastPx.IsZero() {
			effectiveQty = types.NewQuantityFromDecimal(order.Quantity.Decimal().Div(lastPx.Decimal()), instrument.SizePrecision)
		}

		notional := instrument.CalculateNotionalValue(effectiveQty, lastPx, true)
		reduceOnlySell := order.ReduceOnly && order.Side == types.OrderSideSell

		if hasMax && notional.Amount.GreaterThan(maxNotional) {
			return &riskDenial{index: i, reason: "NOTIONAL_EXCEEDS_MAX_PER_ORDER"}
		}
		if instrument.MinNotional != nil && instrument.MinNotional.Currency.Code == notional.Currency.Code && notional.Amount.LessThan(instrument.MinNotional.Amount) {
			return &riskDenial{index: i, reason: "NOTIONAL_LESS_THAN_MIN_FOR_INSTRUMENT"}
		}
		if instrument.MaxNotional != nil && instrument.MaxNotional.Currency.Code == notional.Currency.Code && notional.Amount.GreaterThan(instrument.MaxNotional.Amount) {
			return &riskDenial{index: i, reason: "NOTIONAL_GREATER_THAN_MAX_FOR_INSTRUMENT"}
		}

		impact := notional.Amount
		if order.Side == types.OrderSideBuy {
			impact = impact.Neg()
		}

		if i == 0 && !reduceOnlySell {
			if free.Add(impact).IsNegative() {
				return &riskDenial{index: i, reason: fmt.Sprintf(
					"NOTIONAL_EXCEEDS_FREE_BALANCE: free=%s, notional=%s",
					moneyRepr(types.Money{Amount: free, Currency: ccy}), moneyRepr(notional))}
			}
		}

		if reduceOnlySell {
			continue
		}
		if order.Side == types.OrderSideBuy {
			cumBuy = cumBuy.Add(notional.Amount)
			if cumBuy.GreaterThan(free) {
				return &riskDenial{index: i, reason: fmt.Sprintf(
					"CUM_NOTIONAL_EXCEEDS_FREE_BALANCE: free=%s, cum_notional=%s",
					free.StringFixed(int32(ccy.Precision))+" "+ccy.Code, cumBuy.StringFixed(int32(ccy.Precision))+" "+ccy.Code)}
			}
		} else {
			cumSell = cumSell.Add(notional.Amount)
			if cumSell.GreaterThan(free) {
				return &riskDenial{index: i, reason: fmt.Sprintf(
					"CUM_NOTIONAL_EXCEEDS_FREE_BALANCE: free=%s, cum_notional=%s",
					free.StringFixed(int32(ccy.Precision))+" "+ccy.Code, cumSell.StringFixed(int32(ccy.Precision))+" "+ccy.Code)}
			}
		}
	}
	return nil
}

// referencePrice computes last_px per spec.md §4.5 step 5.
func (e *Engine) referencePrice(order *types.Order, instrument *types.Instrument) (types.Price, bool) {
	switch order.Type {
	case types.OrderTypeMarket, types.OrderTypeMarketToLimit:
		pt := types.PriceTypeAsk
		if order.Side == types.OrderSideSell {
			pt = types.PriceTypeBid
		}
		if px, ok := e.cache.Price(instrument.Id, pt); ok {
			return px, true
		}
		return e.cache.Price(instrument.Id, types.PriceTypeLast)
	case types.OrderTypeStopMarket, types.OrderTypeMarketIfTouched, types.OrderTypeStopLimit, types.OrderTypeLimitIfTouched:
		if order.TriggerPrice != nil {
			return *order.TriggerPrice, true
		}
		return types.Price{}, false
	case types.OrderTypeTrailingStopMarket, types.OrderTypeTrailingStopLimit:
		if order.TriggerPrice != nil {
			return *order.TriggerPrice, true
		}
		return types.Price{}, false
	default:
		if order.Price != nil {
			return *order.Price, true
		}
		return types.Price{}, false
	}
}

// executionGateway implements spec.md §4.5 step 6.
func (e *Engine) executionGateway(ctx context.Context, instrument *types.Instrument, cmd types.SubmitOrder, order *types.Order, tsNow int64) {
	switch e.state {
	case types.TradingStateHalted:
		e.denyOrder(order, "TradingState::HALTED", tsNow)
	case types.TradingStateReducing:
		if e.wouldIncreaseExposure(instrument.Id, order) {
			e.denyOrder(order, "TradingState::REDUCING", tsNow)
			return
		}
		e.routeThroughThrottler(ctx, cmd, order, tsNow)
	default:
		e.routeThroughThrottler(ctx, cmd, order, tsNow)
	}
}

func (e *Engine) routeThroughThrottler(ctx context.Context, cmd types.SubmitOrder, order *types.Order, tsNow int64) {
	if !e.submitThrottler.Allow(ctx, string(order.InstrumentId.Venue)) {
		e.denyOrder(order, "REJECTED BY THROTTLER", tsNow)
		return
	}
	e.forward(ctx, cmd)
}

// wouldIncreaseExposure reports whether an order would move the net
// position for the instrument further from zero.
func (e *Engine) wouldIncreaseExposure(instrumentId types.InstrumentId, order *types.Order) bool {
	net := decimal.Zero
	for _, p := range e.cache.Positions(cache.PositionFilter{Instrument: &instrumentId}) {
		switch p.Side {
		case types.PositionSideLong:
			net = net.Add(p.Quantity.Decimal())
		case types.PositionSideShort:
			net = net.Sub(p.Quantity.Decimal())
		}
	}
	if order.Side == types.OrderSideBuy {
		return net.GreaterThanOrEqual(decimal.Zero)
	}
	return net.LessThanOrEqual(decimal.Zero)
}
