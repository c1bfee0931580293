package cache

import (
	"context"

	"github.com/abdoElHodaky/tradsys-core/internal/persistence"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// marketDataStore holds bounded, newest-at-front series of ticks and
// bars per instrument/bar-type, plus the latest mark/index/funding
// values and the venue and own-book mirrors, per spec.md §3/§5's
// resource-discipline clause ("deque capacity is configured... oldest
// element dropped implicitly when capacity is reached").
type marketDataStore struct {
	cfg Config

	quotes map[types.InstrumentId][]types.QuoteTick
	trades map[types.InstrumentId][]types.TradeTick
	bars   map[types.BarType][]types.Bar

	marks    map[types.InstrumentId]types.MarkPriceUpdate
	indexes  map[types.InstrumentId]types.IndexPriceUpdate
	fundings map[types.InstrumentId]types.FundingRateUpdate

	books    map[types.InstrumentId]interface{} // opaque venue order book snapshot
	ownBooks map[types.InstrumentId]map[types.ClientOrderId]types.OwnBookOrder
}

func newMarketDataStore(cfg Config) *marketDataStore {
	return &marketDataStore{
		cfg:      cfg,
		quotes:   make(map[types.InstrumentId][]types.QuoteTick),
		trades:   make(map[types.InstrumentId][]types.TradeTick),
		bars:     make(map[types.BarType][]types.Bar),
		marks:    make(map[types.InstrumentId]types.MarkPriceUpdate),
		indexes:  make(map[types.InstrumentId]types.IndexPriceUpdate),
		fundings: make(map[types.InstrumentId]types.FundingRateUpdate),
		books:    make(map[types.InstrumentId]interface{}),
		ownBooks: make(map[types.InstrumentId]map[types.ClientOrderId]types.OwnBookOrder),
	}
}

func pushFront[T any](deque []T, v T, capacity int) []T {
	deque = append(deque, v) // placeholder length bump, overwritten below
	copy(deque[1:], deque[:len(deque)-1])
	deque[0] = v
	if len(deque) > capacity {
		deque = deque[:capacity]
	}
	return deque
}

// AddQuote records a quote tick, trimming to tick_capacity.
func (c *Cache) AddQuote(ctx context.Context, q types.QuoteTick) {
	md := c.marketData
	md.quotes[q.InstrumentId] = pushFront(md.quotes[q.InstrumentId], q, md.cfg.TickCapacity)
	c.mirrorAdd(ctx, func(a persistence.Adapter) error { return a.AddQuote(ctx, q) })
}

// AddTrade records a trade tick, trimming to tick_capacity.
func (c *Cache) AddTrade(ctx context.Context, tr types.TradeTick) {
	md := c.marketData
	md.trades[tr.InstrumentId] = pushFront(md.trades[tr.InstrumentId], tr, md.cfg.TickCapacity)
	c.mirrorAdd(ctx, func(a persistence.Adapter) error { return a.AddTrade(ctx, tr) })
}

// AddBar records a bar, trimming to bar_capacity. Bars marked
// InternalAggregation are still stored (queries may want them) but the
// matching engine's process_bar skips them as an execution source.
func (c *Cache) AddBar(ctx context.Context, bar types.Bar) {
	md := c.marketData
	md.bars[bar.Type] = pushFront(md.bars[bar.Type], bar, md.cfg.BarCapacity)
	c.mirrorAdd(ctx, func(a persistence.Adapter) error { return a.AddBar(ctx, bar) })
}

// AddMarkPrice records the latest mark price for an instrument.
func (c *Cache) AddMarkPrice(update types.MarkPriceUpdate) {
	c.marketData.marks[update.InstrumentId] = update
}

// AddIndexPrice records the latest index price for an instrument.
func (c *Cache) AddIndexPrice(update types.IndexPriceUpdate) {
	c.marketData.indexes[update.InstrumentId] = update
}

// AddFundingRate records the latest funding rate for an instrument.
func (c *Cache) AddFundingRate(update types.FundingRateUpdate) {
	c.marketData.fundings[update.InstrumentId] = update
}

// AddOrderBook stores an opaque venue order book snapshot, replacing any
// prior snapshot for the instrument.
func (c *Cache) AddOrderBook(instrument types.InstrumentId, book interface{}) {
	c.marketData.books[instrument] = book
}

// UpdateOwnOrderBook mirrors an order into the own-book table: a no-op
// for orderless orders (ToOwnBookOrder returns ok=false), an upsert for
// open orders, and a delete once the order has closed.
func (c *Cache) UpdateOwnOrderBook(order *types.Order) {
	own, ok := order.ToOwnBookOrder()
	table := c.marketData.ownBooks[order.InstrumentId]
	if table == nil {
		table = make(map[types.ClientOrderId]types.OwnBookOrder)
		c.marketData.ownBooks[order.InstrumentId] = table
	}
	if order.IsClosed() || !ok {
		delete(table, order.ClientOrderId)
		return
	}
	table[order.ClientOrderId] = own
}

// AuditOwnOrderBooks purges own-book entries for client order ids no
// longer in the open or inflight sets — a defensive sweep against
// missed UpdateOwnOrderBook calls.
func (c *Cache) AuditOwnOrderBooks() {
	live := make(map[types.ClientOrderId]struct{})
	for _, id := range c.index.ClientOrderIds(nil, nil, nil, "open") {
		live[id] = struct{}{}
	}
	for _, id := range c.index.ClientOrderIds(nil, nil, nil, "inflight") {
		live[id] = struct{}{}
	}
	for instrument, table := range c.marketData.ownBooks {
		for id := range table {
			if _, ok := live[id]; !ok {
				delete(table, id)
			}
		}
		if len(table) == 0 {
			delete(c.marketData.ownBooks, instrument)
		}
	}
}

// Quote returns the most recent quote tick for an instrument, if any.
func (c *Cache) Quote(instrument types.InstrumentId) (types.QuoteTick, bool) {
	ticks := c.marketData.quotes[instrument]
	if len(ticks) == 0 {
		return types.QuoteTick{}, false
	}
	return ticks[0], true
}

// Trade returns the most recent trade tick for an instrument, if any.
func (c *Cache) Trade(instrument types.InstrumentId) (types.TradeTick, bool) {
	ticks := c.marketData.trades[instrument]
	if len(ticks) == 0 {
		return types.TradeTick{}, false
	}
	return ticks[0], true
}

// Bar returns the most recent bar for a bar type, if any.
func (c *Cache) Bar(bt types.BarType) (types.Bar, bool) {
	bars := c.marketData.bars[bt]
	if len(bars) == 0 {
		return types.Bar{}, false
	}
	return bars[0], true
}

// QuoteCount, TradeCount and BarCount report series lengths for
// diagnostics and capacity assertions in tests.
func (c *Cache) QuoteCount(instrument types.InstrumentId) int { return len(c.marketData.quotes[instrument]) }
func (c *Cache) TradeCount(instrument types.InstrumentId) int { return len(c.marketData.trades[instrument]) }
func (c *Cache) BarCount(bt types.BarType) int                { return len(c.marketData.bars[bt]) }

// Price resolves an instrument's price for the given PriceType from the
// freshest available market data: BID/ASK/MID/LAST from the latest
// quote or trade, MARK from the latest mark price update. Mid-price is
// rounded to bid.Precision()+1 per spec.md's stated precision rule.
func (c *Cache) Price(instrument types.InstrumentId, pt types.PriceType) (types.Price, bool) {
	switch pt {
	case types.PriceTypeMark:
		m, ok := c.marketData.marks[instrument]
		return m.Value, ok
	case types.PriceTypeLast:
		t, ok := c.Trade(instrument)
		return t.Price, ok
	default:
		q, ok := c.Quote(instrument)
		if !ok {
			return types.Price{}, false
		}
		switch pt {
		case types.PriceTypeBid:
			return q.BidPrice, true
		case types.PriceTypeAsk:
			return q.AskPrice, true
		case types.PriceTypeMid:
			mid := q.BidPrice.Add(q.AskPrice).Decimal().Div(two).Round(int32(q.BidPrice.Precision() + 1))
			return types.NewPriceFromDecimal(mid, q.BidPrice.Precision()+1), true
		default:
			return types.Price{}, false
		}
	}
}
