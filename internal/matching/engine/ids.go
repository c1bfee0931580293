package engine

import (
	"fmt"

	"github.com/abdoElHodaky/tradsys-core/internal/cache"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/segmentio/ksuid"
)

// IdsGenerator produces venue order ids, trade ids, and position ids.
// Position-id derivation depends on the account's OMS type: Netting
// collapses every order against the same (instrument, strategy) onto
// one position id; Hedging assigns a fresh id per opening order.
type IdsGenerator struct {
	oms cache.OmsType
}

// NewIdsGenerator constructs a generator for the given OMS type.
func NewIdsGenerator(oms cache.OmsType) *IdsGenerator {
	return &IdsGenerator{oms: oms}
}

// NextVenueOrderId returns a fresh venue-assigned order id.
func (g *IdsGenerator) NextVenueOrderId() types.VenueOrderId {
	return types.VenueOrderId(ksuid.New().String())
}

// NextTradeId returns a fresh trade id.
func (g *IdsGenerator) NextTradeId() types.TradeId {
	return types.TradeId(ksuid.New().String())
}

// PositionId derives the position id for a newly-opened position.
func (g *IdsGenerator) PositionId(instrument types.InstrumentId, strategy types.StrategyId) types.PositionId {
	if g.oms == cache.OmsTypeNetting {
		return types.PositionId(fmt.Sprintf("%s-%s", instrument.String(), strategy))
	}
	return types.PositionId(ksuid.New().String())
}
