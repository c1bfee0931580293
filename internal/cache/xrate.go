package cache

import (
	"fmt"

	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/shopspring/decimal"
)

func xrateKey(from, to string) string { return from + "/" + to }

// SetMarkXrate stores an explicit override rate from->to, and its
// reciprocal to->from, in the xrate table.
func (c *Cache) SetMarkXrate(from, to string, rate decimal.Decimal) {
	c.xrates.Set(xrateKey(from, to), rate, 0)
	if !rate.IsZero() {
		c.xrates.Set(xrateKey(to, from), decimal.NewFromInt(1).Div(rate), 0)
	}
}

// GetMarkXrate returns a previously-set override rate, if any.
func (c *Cache) GetMarkXrate(from, to string) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	v, ok := c.xrates.Get(xrateKey(from, to))
	if !ok {
		return decimal.Decimal{}, false
	}
	return v.(decimal.Decimal), true
}

// ClearMarkXrate removes a single override rate (both directions).
func (c *Cache) ClearMarkXrate(from, to string) {
	c.xrates.Delete(xrateKey(from, to))
	c.xrates.Delete(xrateKey(to, from))
}

// ClearMarkXrates empties the entire override table.
func (c *Cache) ClearMarkXrates() {
	c.xrates.Flush()
}

// Xrate resolves an exchange rate from->to at a venue. It first
// consults the explicit override table (SetMarkXrate), then derives
// bid/ask/mid from the freshest quote for the synthetic from/to
// instrument, then takes the close of the latest bar stored for that
// instrument (any bar type; with several bar types stored, which one is
// used is not defined), and finally the reciprocal of the bid of the
// inverse to/from instrument's latest quote.
func (c *Cache) Xrate(venue types.Venue, from, to string, pt types.PriceType) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := c.GetMarkXrate(from, to); ok {
		return rate, nil
	}

	instrument := types.InstrumentId{Symbol: from + "/" + to, Venue: venue}
	if q, ok := c.Quote(instrument); ok {
		switch pt {
		case types.PriceTypeBid:
			return q.BidPrice.Decimal(), nil
		case types.PriceTypeAsk:
			return q.AskPrice.Decimal(), nil
		default:
			return q.BidPrice.Add(q.AskPrice).Decimal().Div(two), nil
		}
	}

	for bt, bars := range c.marketData.bars {
		if bt.InstrumentId != instrument || len(bars) == 0 {
			continue
		}
		return bars[0].Close.Decimal(), nil
	}

	inverse := types.InstrumentId{Symbol: to + "/" + from, Venue: venue}
	if q, ok := c.Quote(inverse); ok && !q.BidPrice.IsZero() {
		return decimal.NewFromInt(1).Div(q.BidPrice.Decimal()), nil
	}

	return decimal.Decimal{}, fmt.Errorf("no exchange rate available for %s/%s on %s", from, to, venue)
}
