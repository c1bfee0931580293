// Package book defines the order-book contract the matching engine
// drives (component C, spec.md §2). A minimal in-memory implementation
// is provided as the reference venue book; production venues are
// expected to supply their own implementation behind the same
// interface.
package book

import (
	"sort"
	"sync"

	"github.com/abdoElHodaky/tradsys-core/internal/types"
)

// BookType enumerates the depth of book data a venue publishes.
type BookType string

const (
	BookTypeL1MBP BookType = "L1_MBP"
	BookTypeL2MBP BookType = "L2_MBP"
	BookTypeL3MBO BookType = "L3_MBO"
)

// BookAction enumerates the delta action types for L2/L3 updates.
type BookAction string

const (
	BookActionAdd    BookAction = "ADD"
	BookActionUpdate BookAction = "UPDATE"
	BookActionDelete BookAction = "DELETE"
	BookActionClear  BookAction = "CLEAR"
)

// Delta is a single order-book change (L2 aggregated or L3 per-order).
type Delta struct {
	Action   BookAction
	Side     types.OrderSide
	Price    types.Price
	Size     types.Quantity
	OrderId  string // L3 only
	TsEvent  int64
	TsInit   int64
}

// Level is one aggregated price level.
type Level struct {
	Price types.Price
	Size  types.Quantity
}

// FillLeg is one (price, quantity) leg a simulated fill produces.
type FillLeg struct {
	Price types.Price
	Size  types.Quantity
}

// SyntheticOrder is the ephemeral taker order the engine asks the book
// to simulate a fill against (used by determine_market/limit_price_and_volume).
type SyntheticOrder struct {
	Side  types.OrderSide
	Price types.Price // +/- infinity sentinel for Market orders: a very large price for Buy, zero for Sell
	Size  types.Quantity
}

// Book is the contract the matching engine consumes to track price
// levels and simulate taker fills against resting liquidity.
type Book interface {
	// BookType reports the configured depth.
	BookType() BookType
	// ApplyDelta applies one L2/L3 delta.
	ApplyDelta(d Delta)
	// UpdateQuote folds an L1 top-of-book quote into bid/ask levels.
	UpdateQuote(q types.QuoteTick)
	// UpdateTrade folds an L1 trade into the book's last-price state.
	UpdateTrade(tr types.TradeTick)
	// BestBidPrice / BestAskPrice return the top of book, and whether
	// that side has ever been initialized.
	BestBidPrice() (types.Price, bool)
	BestAskPrice() (types.Price, bool)
	LastPrice() (types.Price, bool)
	// SimulateFills walks resting liquidity on the opposite side of
	// order.Side and returns the legs that would fill, without
	// mutating book state.
	SimulateFills(order SyntheticOrder) []FillLeg
}

// MemoryBook is the reference in-memory implementation, sufficient to
// drive engine fill simulation for tests and the bundled reference CLI.
type MemoryBook struct {
	mu       sync.RWMutex
	bookType BookType

	bids map[string]Level // price string -> level, aggregated
	asks map[string]Level

	bidInit bool
	askInit bool
	lastPx  types.Price
	lastSet bool
}

// NewMemoryBook constructs an empty book of the given depth type.
func NewMemoryBook(bt BookType) *MemoryBook {
	return &MemoryBook{
		bookType: bt,
		bids:     make(map[string]Level),
		asks:     make(map[string]Level),
	}
}

func (b *MemoryBook) BookType() BookType { return b.bookType }

func (b *MemoryBook) ApplyDelta(d Delta) {
	b.mu.Lock()
	defer b.mu.Unlock()
	levels := b.asks
	if d.Side == types.OrderSideBuy {
		levels = b.bids
	}
	key := d.Price.String()
	switch d.Action {
	case BookActionDelete:
		delete(levels, key)
	case BookActionClear:
		for k := range levels {
			delete(levels, k)
		}
	default: // ADD, UPDATE
		levels[key] = Level{Price: d.Price, Size: d.Size}
	}
	if d.Side == types.OrderSideBuy {
		b.bidInit = true
	} else {
		b.askInit = true
	}
}

func (b *MemoryBook) UpdateQuote(q types.QuoteTick) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = map[string]Level{q.BidPrice.String(): {Price: q.BidPrice, Size: q.BidSize}}
	b.asks = map[string]Level{q.AskPrice.String(): {Price: q.AskPrice, Size: q.AskSize}}
	b.bidInit = true
	b.askInit = true
}

func (b *MemoryBook) UpdateTrade(tr types.TradeTick) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastPx = tr.Price
	b.lastSet = true
}

func (b *MemoryBook) BestBidPrice() (types.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.bidInit {
		return types.Price{}, false
	}
	lvls := sortedLevels(b.bids, true)
	if len(lvls) == 0 {
		return types.Price{}, b.bidInit
	}
	return lvls[0].Price, true
}

func (b *MemoryBook) BestAskPrice() (types.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.askInit {
		return types.Price{}, false
	}
	lvls := sortedLevels(b.asks, false)
	if len(lvls) == 0 {
		return types.Price{}, b.askInit
	}
	return lvls[0].Price, true
}

func (b *MemoryBook) LastPrice() (types.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastPx, b.lastSet
}

func sortedLevels(levels map[string]Level, descending bool) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}

// SimulateFills walks the opposite side's levels best-price-first,
// consuming size until the synthetic order is satisfied or liquidity
// is exhausted.
func (b *MemoryBook) SimulateFills(order SyntheticOrder) []FillLeg {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var levels []Level
	if order.Side == types.OrderSideBuy {
		levels = sortedLevels(b.asks, false)
	} else {
		levels = sortedLevels(b.bids, true)
	}

	remaining := order.Size
	legs := make([]FillLeg, 0, len(levels))
	for _, l := range levels {
		if remaining.IsZero() {
			break
		}
		take := l.Size
		if take.GreaterThan(remaining) {
			take = remaining
		}
		legs = append(legs, FillLeg{Price: l.Price, Size: take})
		remaining = remaining.Sub(take)
	}
	return legs
}
