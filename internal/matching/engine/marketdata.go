package engine

import (
	"context"

	"github.com/abdoElHodaky/tradsys-core/internal/book"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/shopspring/decimal"
)

var four = decimal.NewFromInt(4)

// ProcessOrderBookDelta applies an L2/L3 delta to the book, then
// iterates matching.
func (e *Engine) ProcessOrderBookDelta(ctx context.Context, d book.Delta, tsNow int64) {
	e.book.ApplyDelta(d)
	e.Iterate(ctx, tsNow)
}

// ProcessQuoteTick updates the L1 book from a quote and iterates matching.
func (e *Engine) ProcessQuoteTick(ctx context.Context, q types.QuoteTick, tsNow int64) {
	e.book.UpdateQuote(q)
	e.cache.AddQuote(ctx, q)
	e.Iterate(ctx, tsNow)
}

// ProcessTradeTick updates the L1 book's last price from a trade and
// iterates matching.
func (e *Engine) ProcessTradeTick(ctx context.Context, tr types.TradeTick, tsNow int64) {
	e.book.UpdateTrade(tr)
	e.cache.AddTrade(ctx, tr)
	e.Iterate(ctx, tsNow)
}

// ProcessStatus transitions the engine's MarketStatus.
func (e *Engine) ProcessStatus(action types.MarketStatusAction) {
	switch action {
	case types.MarketStatusActionTrading, types.MarketStatusActionPreOpen:
		if e.status == types.MarketStatusClosed {
			e.status = types.MarketStatusOpen
		}
	case types.MarketStatusActionPause:
		if e.status == types.MarketStatusOpen {
			e.status = types.MarketStatusPaused
		}
	case types.MarketStatusActionSuspend:
		if e.status == types.MarketStatusOpen {
			e.status = types.MarketStatusSuspended
		}
	case types.MarketStatusActionHalt, types.MarketStatusActionClose:
		if e.status == types.MarketStatusOpen || e.status == types.MarketStatusPaused || e.status == types.MarketStatusSuspended {
			e.status = types.MarketStatusClosed
		}
	}
}

// ProcessBar synthesizes trade/quote ticks from a bar and iterates
// matching. Only meaningful when bar_execution is configured and the
// book is L1; internally-aggregated bars and monthly bars are ignored
// as an execution source (they may still be stored by the Cache).
func (e *Engine) ProcessBar(ctx context.Context, bar types.Bar, tsNow int64) {
	if !e.cfg.BarExecution || e.book.BookType() != book.BookTypeL1MBP {
		return
	}
	if bar.Type.InternalAggregation || bar.Type.Aggregation == types.BarAggregationMonth {
		return
	}
	e.upgradeExecBarType(bar.Type)
	if e.execBarType == nil || *e.execBarType != bar.Type {
		return
	}

	switch bar.Type.PriceType {
	case types.BarPriceTypeLast, types.BarPriceTypeMid:
		e.synthesizeTradeTicks(ctx, bar, tsNow)
	case types.BarPriceTypeBid:
		e.lastBidBar = &bar
		e.synthesizeQuoteTicks(ctx, tsNow)
	case types.BarPriceTypeAsk:
		e.lastAskBar = &bar
		e.synthesizeQuoteTicks(ctx, tsNow)
	}
}

// upgradeExecBarType tracks the finest execution bar type seen per
// instrument, upgrading whenever a finer-grained type arrives.
func (e *Engine) upgradeExecBarType(bt types.BarType) {
	if e.execBarType == nil {
		e.execBarType = &bt
		return
	}
	if barRank(bt.Aggregation) < barRank(e.execBarType.Aggregation) {
		e.execBarType = &bt
	}
}

func barRank(agg types.BarAggregation) int {
	switch agg {
	case types.BarAggregationTick:
		return 0
	case types.BarAggregationVolume:
		return 1
	case types.BarAggregationSecond:
		return 2
	case types.BarAggregationMinute:
		return 3
	case types.BarAggregationHour:
		return 4
	case types.BarAggregationDay:
		return 5
	default:
		return 6
	}
}

// synthesizeTradeTicks splits a Last/Mid bar's volume into quarters and
// emits ticks for Open, High (if higher than last), Low (if lower),
// Close (if different), aggressor side inferred from direction.
func (e *Engine) synthesizeTradeTicks(ctx context.Context, bar types.Bar, tsNow int64) {
	quarter := bar.Volume.Decimal().Div(four)
	qty := types.NewQuantityFromDecimal(quarter, bar.Volume.Precision())

	last, ok := e.core.Last()
	if !ok {
		last = bar.Open
	}

	emit := func(px types.Price) {
		side := types.OrderSideBuy
		if px.LessThan(last) {
			side = types.OrderSideSell
		}
		tr := types.TradeTick{
			InstrumentId:  bar.Type.InstrumentId,
			Price:         px,
			Size:          qty,
			AggressorSide: side,
			TradeId:       e.ids.NextTradeId(),
			TsEvent:       tsNow,
			TsInit:        tsNow,
		}
		e.book.UpdateTrade(tr)
		e.cache.AddTrade(ctx, tr)
		e.core.SetLastRaw(px)
		last = px
		e.Iterate(ctx, tsNow)
	}

	emit(bar.Open)
	if bar.High.GreaterThan(last) {
		emit(bar.High)
	}
	if bar.Low.LessThan(last) {
		emit(bar.Low)
	}
	if !bar.Close.Equal(last) {
		emit(bar.Close)
	}
}

// synthesizeQuoteTicks pairs the latest bid and ask bars (once both are
// present for the same timestamp window) into a single synthetic quote.
func (e *Engine) synthesizeQuoteTicks(ctx context.Context, tsNow int64) {
	if e.lastBidBar == nil || e.lastAskBar == nil {
		return
	}
	if e.lastBidBar.TsEvent != e.lastAskBar.TsEvent {
		return
	}
	q := types.QuoteTick{
		InstrumentId: e.lastBidBar.Type.InstrumentId,
		BidPrice:     e.lastBidBar.Close,
		AskPrice:     e.lastAskBar.Close,
		BidSize:      e.lastBidBar.Volume,
		AskSize:      e.lastAskBar.Volume,
		TsEvent:      tsNow,
		TsInit:       tsNow,
	}
	e.book.UpdateQuote(q)
	e.cache.AddQuote(ctx, q)
	e.Iterate(ctx, tsNow)
}
