package cache

import (
	"context"
	"fmt"

	tserrors "github.com/abdoElHodaky/tradsys-core/internal/common/errors"
	"github.com/abdoElHodaky/tradsys-core/internal/persistence"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"go.uber.org/zap"
)

// OmsType distinguishes netting (one position per instrument+strategy)
// from hedging (one position per opening order) account behavior,
// per spec.md §4.4.
type OmsType string

const (
	OmsTypeNetting OmsType = "NETTING"
	OmsTypeHedging OmsType = "HEDGING"
)

// AddPosition registers a newly-opened position.
func (c *Cache) AddPosition(ctx context.Context, pos *types.Position, oms OmsType) error {
	if _, exists := c.positions[pos.Id]; exists {
		return tserrors.New(tserrors.ErrDuplicateOrder, fmt.Sprintf("position already exists: %s", pos.Id))
	}
	c.positions[pos.Id] = pos
	c.index.AddPosition(pos.InstrumentId.Venue, pos.InstrumentId, pos.StrategyId, pos.Id, pos.IsOpen())
	for _, oid := range pos.ClientOrderIds {
		c.index.IndexOrderPosition(oid, pos.Id, pos.StrategyId)
	}
	c.mirrorAdd(ctx, func(a persistence.Adapter) error { return a.AddPosition(ctx, pos) })
	return nil
}

// UpdatePosition re-indexes a position's open/closed membership after its
// in-memory state has already been mutated.
func (c *Cache) UpdatePosition(ctx context.Context, pos *types.Position) error {
	if _, exists := c.positions[pos.Id]; !exists {
		return tserrors.New(tserrors.ErrPositionNotFound, fmt.Sprintf("position not found: %s", pos.Id))
	}
	c.positions[pos.Id] = pos
	c.index.UpdatePositionStatus(pos.Id, pos.IsOpen())
	if c.persistence != nil {
		if err := c.persistence.UpdatePosition(ctx, pos); err != nil {
			c.logger.Warn("persistence position update failed, in-memory cache remains authoritative", zap.Error(err))
		}
	}
	return nil
}

// Position looks up a position by id.
func (c *Cache) Position(id types.PositionId) (*types.Position, bool) {
	p, ok := c.positions[id]
	return p, ok
}

// PositionFilter narrows Positions/PositionsOpen/PositionsClosed queries.
type PositionFilter struct {
	Venue      *types.Venue
	Instrument *types.InstrumentId
	Strategy   *types.StrategyId
}

func (c *Cache) filterPositions(ids []types.PositionId) []*types.Position {
	out := make([]*types.Position, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.positions[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Positions returns every position matching the filter (no status constraint).
func (c *Cache) Positions(f PositionFilter) []*types.Position {
	return c.filterPositions(c.index.PositionIds(f.Venue, f.Instrument, f.Strategy, ""))
}

// PositionsOpen returns open positions matching the filter.
func (c *Cache) PositionsOpen(f PositionFilter) []*types.Position {
	return c.filterPositions(c.index.PositionIds(f.Venue, f.Instrument, f.Strategy, "open"))
}

// PositionsClosed returns closed positions matching the filter.
func (c *Cache) PositionsClosed(f PositionFilter) []*types.Position {
	return c.filterPositions(c.index.PositionIds(f.Venue, f.Instrument, f.Strategy, "closed"))
}

// PositionExists reports whether a position id is known to the cache.
func (c *Cache) PositionExists(id types.PositionId) bool {
	return c.index.HasPosition(id)
}

// PositionForOrder returns the position linked to a client order id, if any.
func (c *Cache) PositionForOrder(clientOrderId types.ClientOrderId) (*types.Position, bool) {
	id, ok := c.index.PositionIdFor(clientOrderId)
	if !ok {
		return nil, false
	}
	return c.Position(id)
}

// PurgePosition removes a closed position from every primary map and
// index, clearing its recorded state snapshots. Refuses while open.
func (c *Cache) PurgePosition(id types.PositionId) error {
	p, ok := c.positions[id]
	if ok && p.IsOpen() {
		return tserrors.New(tserrors.ErrPurgeOpenRefused, fmt.Sprintf("cannot purge open position: %s", id))
	}
	delete(c.positions, id)
	delete(c.positionSnaps, id)
	c.index.PurgePosition(id)
	return nil
}

// PurgeClosedPositions purges every closed position whose ClosedAtNs
// predates nowNs-bufferSecs.
func (c *Cache) PurgeClosedPositions(nowNs int64, bufferSecs int64) {
	cutoff := nowNs - bufferSecs*int64(1e9)
	for id, p := range c.positions {
		if p.IsOpen() || p.ClosedAtNs == nil {
			continue
		}
		if *p.ClosedAtNs > cutoff {
			continue
		}
		_ = c.PurgePosition(id)
	}
}
