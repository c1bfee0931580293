package cache

import (
	"context"

	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"go.uber.org/zap"
)

// BuildIndex rebuilds every secondary index from the primary order,
// position and account maps. Idempotent: safe to call on a cache whose
// index already matches its primaries.
func (c *Cache) BuildIndex() {
	c.index.Clear()
	for acctId, acct := range c.accounts {
		c.index.AddAccount(acct.Venue, acctId)
	}
	for _, o := range c.orders {
		c.index.AddOrder(o.InstrumentId.Venue, o.InstrumentId, o.StrategyId, o.ClientOrderId, nil, o.ExecAlgorithmId, o.ExecSpawnId)
		c.index.UpdateOrderStatusSets(o.ClientOrderId, o.IsOpen(), o.IsClosed(), false, o.IsInflight(), o.Status == types.OrderStatusPendingCancel)
		if o.VenueOrderId != nil {
			c.index.BindVenueOrderId(o.ClientOrderId, *o.VenueOrderId)
		}
	}
	for _, p := range c.positions {
		c.index.AddPosition(p.InstrumentId.Venue, p.InstrumentId, p.StrategyId, p.Id, p.IsOpen())
		for _, oid := range p.ClientOrderIds {
			c.index.IndexOrderPosition(oid, p.Id, p.StrategyId)
		}
	}
}

// CheckIntegrity verifies the index's counts match the primary maps and
// that the open/closed sets remain disjoint, logging every divergence
// found. Returns true iff no divergence was found.
func (c *Cache) CheckIntegrity() bool {
	ok := true
	counts := c.index.Snapshot()

	if counts.Orders != len(c.orders) {
		c.logger.Error("integrity: order index count mismatch",
			zap.Int("index", counts.Orders), zap.Int("primary", len(c.orders)))
		ok = false
	}
	if counts.Positions != len(c.positions) {
		c.logger.Error("integrity: position index count mismatch",
			zap.Int("index", counts.Positions), zap.Int("primary", len(c.positions)))
		ok = false
	}
	if !c.index.OrdersOpenClosedDisjoint() {
		c.logger.Error("integrity: orders_open and orders_closed are not disjoint")
		ok = false
	}
	if !c.index.PositionsOpenClosedDisjoint() {
		c.logger.Error("integrity: positions_open and positions_closed are not disjoint")
		ok = false
	}
	for id, o := range c.orders {
		for code, bal := range accountBalancesFor(c, o) {
			if !bal.Valid() {
				c.logger.Error("integrity: account balance invariant violated",
					zap.String("order", string(id)), zap.String("currency", code))
				ok = false
			}
		}
	}
	return ok
}

func accountBalancesFor(c *Cache, o *types.Order) map[string]types.Balance {
	if o.AccountId == nil {
		return nil
	}
	acct, ok := c.accounts[*o.AccountId]
	if !ok {
		return nil
	}
	return acct.Balances
}

// CheckResiduals logs a warning for every order or position still open,
// intended for use at shutdown to surface unflattened state.
func (c *Cache) CheckResiduals() {
	open := c.OrdersOpen(OrderFilter{})
	if len(open) > 0 {
		c.logger.Warn("residual open orders at shutdown", zap.Int("count", len(open)))
	}
	openPos := c.PositionsOpen(PositionFilter{})
	if len(openPos) > 0 {
		c.logger.Warn("residual open positions at shutdown", zap.Int("count", len(openPos)))
	}
}

// PurgeAccountEvents trims every account's event log to the most recent
// keepLast entries.
func (c *Cache) PurgeAccountEvents(keepLast int) {
	for _, acct := range c.accounts {
		if len(acct.Events) > keepLast {
			acct.Events = acct.Events[len(acct.Events)-keepLast:]
		}
	}
}

// Reset clears every primary map, the index, market data and snapshots,
// returning the Cache to its post-New state without discarding config
// or the persistence adapter.
func (c *Cache) Reset() {
	c.currencies = make(map[string]types.Currency)
	c.instruments = make(map[types.InstrumentId]*types.Instrument)
	c.accounts = make(map[types.AccountId]*types.Account)
	c.orders = make(map[types.ClientOrderId]*types.Order)
	c.positions = make(map[types.PositionId]*types.Position)
	c.marketData = newMarketDataStore(c.cfg)
	c.xrates.Flush()
	c.orderSnaps = make(map[types.ClientOrderId][][]byte)
	c.positionSnaps = make(map[types.PositionId][][]byte)
	c.index.Clear()
}

// ClearIndex rebuilds the index from scratch (alias over BuildIndex for
// callers that only need to repair the index, not the primaries).
func (c *Cache) ClearIndex() { c.BuildIndex() }

// Dispose releases the persistence adapter, if any.
func (c *Cache) Dispose(ctx context.Context) error {
	if c.persistence == nil {
		return nil
	}
	return c.persistence.Close(ctx)
}

// FlushDB forces the persistence adapter to flush any buffered writes.
func (c *Cache) FlushDB(ctx context.Context) error {
	if c.persistence == nil {
		return nil
	}
	return c.persistence.Flush(ctx)
}

// SnapshotOrderState appends a serialized snapshot of an order's
// current state, bumping the cache's monotonically increasing sequence
// number under lock (the one piece of Cache state shared across
// goroutines per spec.md §5).
func (c *Cache) SnapshotOrderState(ctx context.Context, order *types.Order) (int, error) {
	seq := c.nextSnapshotSeq()
	c.orderSnaps[order.ClientOrderId] = append(c.orderSnaps[order.ClientOrderId], encodeOrderSnapshot(order))
	if c.persistence != nil {
		if err := c.persistence.SnapshotOrderState(ctx, order); err != nil {
			c.logger.Warn("persistence order snapshot failed, in-memory cache remains authoritative", zap.Error(err))
			return seq, err
		}
	}
	return seq, nil
}

// SnapshotPositionState appends a serialized snapshot of a position's
// current state.
func (c *Cache) SnapshotPositionState(ctx context.Context, pos *types.Position) (int, error) {
	seq := c.nextSnapshotSeq()
	c.positionSnaps[pos.Id] = append(c.positionSnaps[pos.Id], encodePositionSnapshot(pos))
	if c.persistence != nil {
		if err := c.persistence.SnapshotPositionState(ctx, pos); err != nil {
			c.logger.Warn("persistence position snapshot failed, in-memory cache remains authoritative", zap.Error(err))
			return seq, err
		}
	}
	return seq, nil
}

func (c *Cache) nextSnapshotSeq() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshotSeq++
	return c.snapshotSeq
}

func encodeOrderSnapshot(o *types.Order) []byte {
	return []byte(string(o.ClientOrderId) + "|" + string(o.Status) + "|" + o.Filled.String())
}

func encodePositionSnapshot(p *types.Position) []byte {
	return []byte(string(p.Id) + "|" + string(p.Side) + "|" + p.Quantity.String())
}
