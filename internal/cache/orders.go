package cache

import (
	"context"
	"fmt"

	tserrors "github.com/abdoElHodaky/tradsys-core/internal/common/errors"
	"github.com/abdoElHodaky/tradsys-core/internal/persistence"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"go.uber.org/zap"
)

// AddOrder adds a newly-created order, optionally linking it to a
// position and client, per spec.md §4.1. replaceExisting allows a
// caller to overwrite an order already present under the same id
// (used by reconciliation replays); otherwise a duplicate id is
// rejected.
func (c *Cache) AddOrder(ctx context.Context, order *types.Order, positionId *types.PositionId, clientId *types.ClientId, replaceExisting bool) error {
	if _, exists := c.orders[order.ClientOrderId]; exists && !replaceExisting {
		return tserrors.New(tserrors.ErrDuplicateOrder, fmt.Sprintf("order already exists: %s", order.ClientOrderId))
	}
	c.orders[order.ClientOrderId] = order

	venue := order.InstrumentId.Venue
	c.index.AddOrder(venue, order.InstrumentId, order.StrategyId, order.ClientOrderId, clientId, order.ExecAlgorithmId, execSpawnOf(order))
	c.index.UpdateOrderStatusSets(order.ClientOrderId, order.IsOpen(), order.IsClosed(), false, order.IsInflight(), order.Status == types.OrderStatusPendingCancel)

	if positionId != nil {
		c.index.IndexOrderPosition(order.ClientOrderId, *positionId, order.StrategyId)
	}

	c.mirrorAdd(ctx, func(a persistence.Adapter) error {
		return a.AddOrder(ctx, order, clientId)
	})
	return nil
}

func execSpawnOf(o *types.Order) *types.ExecSpawnId {
	return o.ExecSpawnId
}

// UpdateOrder re-indexes an order's status sets after its in-memory
// state has already been mutated via Order.Apply.
func (c *Cache) UpdateOrder(ctx context.Context, order *types.Order, ev types.OrderEvent) error {
	if _, exists := c.orders[order.ClientOrderId]; !exists {
		return tserrors.New(tserrors.ErrOrderNotFound, fmt.Sprintf("order not found: %s", order.ClientOrderId))
	}
	c.orders[order.ClientOrderId] = order
	c.index.UpdateOrderStatusSets(order.ClientOrderId, order.IsOpen(), order.IsClosed(), false, order.IsInflight(), order.Status == types.OrderStatusPendingCancel)

	if order.VenueOrderId != nil {
		c.index.BindVenueOrderId(order.ClientOrderId, *order.VenueOrderId)
	}

	if c.persistence != nil {
		if err := c.persistence.UpdateOrder(ctx, order, ev); err != nil {
			c.logger.Warn("persistence order update failed, in-memory cache remains authoritative", zap.Error(err))
		}
	}
	return nil
}

// UpdateOrderPendingCancelLocal flips an order to PendingCancel locally
// without waiting for venue acknowledgement, used when a cancel is
// requested for an order still inflight.
func (c *Cache) UpdateOrderPendingCancelLocal(order *types.Order, nowNs int64) {
	order.Apply(types.OrderEvent{Kind: types.OrderEventPendingCancel, ClientOrderId: order.ClientOrderId, TsEvent: nowNs, TsInit: nowNs})
	c.index.UpdateOrderStatusSets(order.ClientOrderId, order.IsOpen(), order.IsClosed(), false, order.IsInflight(), true)
}

// Order looks up an order by client order id.
func (c *Cache) Order(id types.ClientOrderId) (*types.Order, bool) {
	o, ok := c.orders[id]
	return o, ok
}

// OrderFilter narrows Orders/OrdersOpen/etc. queries; zero-value fields
// are treated as "no filter" for that dimension.
type OrderFilter struct {
	Venue      *types.Venue
	Instrument *types.InstrumentId
	Strategy   *types.StrategyId
	Side       *types.OrderSide
}

func (c *Cache) filterOrders(ids []types.ClientOrderId, side *types.OrderSide) []*types.Order {
	out := make([]*types.Order, 0, len(ids))
	for _, id := range ids {
		o, ok := c.orders[id]
		if !ok {
			continue
		}
		if side != nil && o.Side != *side {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Orders returns every order matching the filter (no status constraint).
func (c *Cache) Orders(f OrderFilter) []*types.Order {
	ids := c.index.ClientOrderIds(f.Venue, f.Instrument, f.Strategy, "")
	return c.filterOrders(ids, f.Side)
}

// OrdersOpen returns open orders matching the filter.
func (c *Cache) OrdersOpen(f OrderFilter) []*types.Order {
	ids := c.index.ClientOrderIds(f.Venue, f.Instrument, f.Strategy, "open")
	return c.filterOrders(ids, f.Side)
}

// OrdersClosed returns closed orders matching the filter.
func (c *Cache) OrdersClosed(f OrderFilter) []*types.Order {
	ids := c.index.ClientOrderIds(f.Venue, f.Instrument, f.Strategy, "closed")
	return c.filterOrders(ids, f.Side)
}

// OrdersInflight returns inflight orders matching the filter.
func (c *Cache) OrdersInflight(f OrderFilter) []*types.Order {
	ids := c.index.ClientOrderIds(f.Venue, f.Instrument, f.Strategy, "inflight")
	return c.filterOrders(ids, f.Side)
}

// OrdersEmulated returns locally-emulated orders matching the filter.
func (c *Cache) OrdersEmulated(f OrderFilter) []*types.Order {
	ids := c.index.ClientOrderIds(f.Venue, f.Instrument, f.Strategy, "emulated")
	return c.filterOrders(ids, f.Side)
}

// OrderExists reports whether a client order id is known to the cache.
func (c *Cache) OrderExists(id types.ClientOrderId) bool {
	return c.index.HasOrder(id)
}

// OrdersForPosition returns every order linked to a position id.
func (c *Cache) OrdersForPosition(positionId types.PositionId) []*types.Order {
	ids := c.index.OrdersForPosition(positionId)
	return c.filterOrders(ids, nil)
}

// OrdersForExecAlgorithm returns every order tagged with an exec algorithm id.
func (c *Cache) OrdersForExecAlgorithm(algo types.ExecAlgorithmId) []*types.Order {
	ids := c.index.OrdersForExecAlgorithm(algo)
	return c.filterOrders(ids, nil)
}

// OrdersForExecSpawn returns every order spawned from an exec-spawn root.
func (c *Cache) OrdersForExecSpawn(root types.ExecSpawnId) []*types.Order {
	ids := c.index.OrdersForExecSpawn(root)
	return c.filterOrders(ids, nil)
}

// ExecSpawnTotalQuantity sums Quantity across a spawn group, optionally
// restricted to orders that are still open.
func (c *Cache) ExecSpawnTotalQuantity(root types.ExecSpawnId, activeOnly bool) types.Quantity {
	return c.reduceExecSpawn(root, activeOnly, func(o *types.Order) types.Quantity { return o.Quantity })
}

// ExecSpawnFilledQuantity sums Filled across a spawn group.
func (c *Cache) ExecSpawnFilledQuantity(root types.ExecSpawnId, activeOnly bool) types.Quantity {
	return c.reduceExecSpawn(root, activeOnly, func(o *types.Order) types.Quantity { return o.Filled })
}

// ExecSpawnLeavesQuantity sums Leaves() across a spawn group.
func (c *Cache) ExecSpawnLeavesQuantity(root types.ExecSpawnId, activeOnly bool) types.Quantity {
	return c.reduceExecSpawn(root, activeOnly, func(o *types.Order) types.Quantity { return o.Leaves() })
}

func (c *Cache) reduceExecSpawn(root types.ExecSpawnId, activeOnly bool, pick func(*types.Order) types.Quantity) types.Quantity {
	total := types.NewQuantity(0, 0)
	for _, o := range c.OrdersForExecSpawn(root) {
		if activeOnly && o.IsClosed() {
			continue
		}
		total = total.Add(pick(o))
	}
	return total
}

// PurgeOrder removes a closed order from every primary map and index.
// Refuses (without mutating anything) if the order is still open, per
// spec.md invariant 5.
func (c *Cache) PurgeOrder(id types.ClientOrderId) error {
	o, ok := c.orders[id]
	if ok && o.IsOpen() {
		return tserrors.New(tserrors.ErrPurgeOpenRefused, fmt.Sprintf("cannot purge open order: %s", id))
	}
	delete(c.orders, id)
	delete(c.orderSnaps, id)
	c.index.PurgeOrder(id) // defensive: safe even if the order was already absent
	return nil
}

// PurgeClosedOrders purges every closed order older than bufferSecs
// relative to nowNs, skipping any whose linked siblings are still open.
func (c *Cache) PurgeClosedOrders(nowNs int64, bufferSecs int64) {
	cutoff := nowNs - bufferSecs*int64(1e9)
	for id, o := range c.orders {
		if !o.IsClosed() {
			continue
		}
		if len(o.Events) > 0 && o.Events[len(o.Events)-1].TsEvent > cutoff {
			continue
		}
		if c.hasOpenLinkedSibling(o) {
			continue
		}
		_ = c.PurgeOrder(id)
	}
}

func (c *Cache) hasOpenLinkedSibling(o *types.Order) bool {
	for _, siblingId := range o.LinkedOrderIds {
		if sib, ok := c.orders[siblingId]; ok && sib.IsOpen() {
			return true
		}
	}
	return false
}
