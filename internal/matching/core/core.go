// Package core implements the matching core (component D): the
// per-venue/instrument passive-order container the matching engine
// drives to find stop/limit trigger candidates.
package core

import (
	"fmt"

	"github.com/abdoElHodaky/tradsys-core/internal/types"
)

// PassiveOrder is the minimal view the core needs of a resting order.
type PassiveOrder struct {
	ClientOrderId types.ClientOrderId
	Side          types.OrderSide
}

// Core holds the current best bid/ask/last and the passive order
// vectors for one (venue, instrument).
type Core struct {
	Venue        types.Venue
	InstrumentId types.InstrumentId

	bid     types.Price
	ask     types.Price
	last    types.Price
	bidInit bool
	askInit bool
	lastInit bool

	bids []PassiveOrder
	asks []PassiveOrder

	exists map[types.ClientOrderId]struct{}
}

// New constructs an empty Core for one (venue, instrument).
func New(venue types.Venue, instrument types.InstrumentId) *Core {
	return &Core{
		Venue:        venue,
		InstrumentId: instrument,
		exists:       make(map[types.ClientOrderId]struct{}),
	}
}

// AddOrder appends a passive order; errors on a duplicate client order id.
func (c *Core) AddOrder(o PassiveOrder) error {
	if _, ok := c.exists[o.ClientOrderId]; ok {
		return fmt.Errorf("duplicate client_order_id %s in matching core", o.ClientOrderId)
	}
	c.exists[o.ClientOrderId] = struct{}{}
	if o.Side == types.OrderSideBuy {
		c.bids = append(c.bids, o)
	} else {
		c.asks = append(c.asks, o)
	}
	return nil
}

// DeleteOrder removes a passive order. Idempotent: removing an id that
// is not present is not an error, matching the semantics purge paths
// depend on.
func (c *Core) DeleteOrder(clientOrderId types.ClientOrderId) {
	if _, ok := c.exists[clientOrderId]; !ok {
		return
	}
	delete(c.exists, clientOrderId)
	c.bids = removeById(c.bids, clientOrderId)
	c.asks = removeById(c.asks, clientOrderId)
}

func removeById(orders []PassiveOrder, id types.ClientOrderId) []PassiveOrder {
	out := orders[:0]
	for _, o := range orders {
		if o.ClientOrderId != id {
			out = append(out, o)
		}
	}
	return out
}

// Exists reports whether a client order id is currently resting.
func (c *Core) Exists(clientOrderId types.ClientOrderId) bool {
	_, ok := c.exists[clientOrderId]
	return ok
}

// BidOrders / AskOrders return insertion-ordered snapshots (copies) of
// the resting passive orders on each side.
func (c *Core) BidOrders() []PassiveOrder {
	out := make([]PassiveOrder, len(c.bids))
	copy(out, c.bids)
	return out
}

func (c *Core) AskOrders() []PassiveOrder {
	out := make([]PassiveOrder, len(c.asks))
	copy(out, c.asks)
	return out
}

// Iterate recomputes nothing by itself — matched predicates are pure
// functions of the current bid/ask/last — but is kept as the explicit
// hook the engine calls once per instrument per market-data event, for
// symmetry with a venue-backed core that might need to resync here.
func (c *Core) Iterate() {}

// SetBidRaw / SetAskRaw / SetLastRaw update the reference price used by
// the matched predicates and flip the corresponding initialized flag.
func (c *Core) SetBidRaw(p types.Price) {
	c.bid = p
	c.bidInit = true
}

func (c *Core) SetAskRaw(p types.Price) {
	c.ask = p
	c.askInit = true
}

func (c *Core) SetLastRaw(p types.Price) {
	c.last = p
	c.lastInit = true
}

// Bid / Ask / Last return the current reference price and whether it
// has ever been initialized.
func (c *Core) Bid() (types.Price, bool)  { return c.bid, c.bidInit }
func (c *Core) Ask() (types.Price, bool)  { return c.ask, c.askInit }
func (c *Core) Last() (types.Price, bool) { return c.last, c.lastInit }

// IsLimitMatched reports whether a limit order at price would take
// liquidity right now: Buy iff ask<=price, Sell iff bid>=price.
func (c *Core) IsLimitMatched(side types.OrderSide, price types.Price) bool {
	if side == types.OrderSideBuy {
		return c.askInit && c.ask.LessThanOrEqual(price)
	}
	return c.bidInit && c.bid.GreaterThanOrEqual(price)
}

// IsStopMatched reports whether a stop order at trigger is in-market:
// Buy iff ask>=trigger, Sell iff bid<=trigger.
func (c *Core) IsStopMatched(side types.OrderSide, trigger types.Price) bool {
	if side == types.OrderSideBuy {
		return c.askInit && c.ask.GreaterThanOrEqual(trigger)
	}
	return c.bidInit && c.bid.LessThanOrEqual(trigger)
}

// IsTouchTriggered uses the same predicate as IsStopMatched, for
// MarketIfTouched/LimitIfTouched orders.
func (c *Core) IsTouchTriggered(side types.OrderSide, trigger types.Price) bool {
	return c.IsStopMatched(side, trigger)
}
