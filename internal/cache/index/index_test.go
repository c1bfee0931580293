package index

import (
	"testing"

	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestIndex_ClientOrderIdsIntersectsFilters(t *testing.T) {
	ix := New()
	venue := types.Venue("BINANCE")
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: venue}
	strat := types.StrategyId("S-1")

	ix.AddOrder(venue, inst, strat, "O-1", nil, nil, nil)
	ix.AddOrder(venue, inst, "S-2", "O-2", nil, nil, nil)

	got := ix.ClientOrderIds(&venue, &inst, &strat, "")
	assert.ElementsMatch(t, []types.ClientOrderId{"O-1"}, got)

	gotAll := ix.ClientOrderIds(&venue, &inst, nil, "")
	assert.ElementsMatch(t, []types.ClientOrderId{"O-1", "O-2"}, gotAll)
}

func TestIndex_UpdateOrderStatusSetsAreDisjoint(t *testing.T) {
	ix := New()
	venue := types.Venue("BINANCE")
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: venue}
	ix.AddOrder(venue, inst, "S-1", "O-1", nil, nil, nil)

	ix.UpdateOrderStatusSets("O-1", true, false, false, false, false)
	assert.True(t, ix.OrdersOpenClosedDisjoint())

	ix.UpdateOrderStatusSets("O-1", false, true, false, false, false)
	assert.True(t, ix.OrdersOpenClosedDisjoint())
	assert.ElementsMatch(t, []types.ClientOrderId{"O-1"}, ix.ClientOrderIds(nil, nil, nil, "closed"))
}

func TestIndex_PurgeOrderRemovesFromEveryIndex(t *testing.T) {
	ix := New()
	venue := types.Venue("BINANCE")
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: venue}
	ix.AddOrder(venue, inst, "S-1", "O-1", nil, nil, nil)
	ix.BindVenueOrderId("O-1", "V-1")
	ix.IndexOrderPosition("O-1", "P-1", "S-1")

	ix.PurgeOrder("O-1")

	assert.False(t, ix.HasOrder("O-1"))
	_, ok := ix.VenueOrderIdFor("O-1")
	assert.False(t, ok)
	_, ok = ix.ClientOrderIdFor("V-1")
	assert.False(t, ok)
	assert.Empty(t, ix.OrdersForPosition("P-1"))

	// defensive: purging again is a no-op, not an error
	ix.PurgeOrder("O-1")
}

func TestIndex_PurgeOrderIsIdempotentOnAbsentId(t *testing.T) {
	ix := New()
	assert.NotPanics(t, func() { ix.PurgeOrder("does-not-exist") })
}
