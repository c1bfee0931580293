package core

import (
	"testing"

	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstrument() types.InstrumentId {
	return types.InstrumentId{Symbol: "AUD/USD", Venue: "SIM"}
}

func TestCore_AddOrderRejectsDuplicateId(t *testing.T) {
	c := New("SIM", testInstrument())
	require.NoError(t, c.AddOrder(PassiveOrder{ClientOrderId: "O-1", Side: types.OrderSideBuy}))
	err := c.AddOrder(PassiveOrder{ClientOrderId: "O-1", Side: types.OrderSideSell})
	assert.Error(t, err)
}

func TestCore_DeleteOrderIsIdempotent(t *testing.T) {
	c := New("SIM", testInstrument())
	require.NoError(t, c.AddOrder(PassiveOrder{ClientOrderId: "O-1", Side: types.OrderSideBuy}))
	c.DeleteOrder("O-1")
	assert.False(t, c.Exists("O-1"))
	assert.NotPanics(t, func() { c.DeleteOrder("O-1") })
}

func TestCore_IsLimitMatched(t *testing.T) {
	c := New("SIM", testInstrument())
	c.SetBidRaw(types.NewPrice(1.0998, 5))
	c.SetAskRaw(types.NewPrice(1.1000, 5))

	assert.True(t, c.IsLimitMatched(types.OrderSideBuy, types.NewPrice(1.1001, 5)))
	assert.False(t, c.IsLimitMatched(types.OrderSideBuy, types.NewPrice(1.0999, 5)))
	assert.True(t, c.IsLimitMatched(types.OrderSideSell, types.NewPrice(1.0997, 5)))
	assert.False(t, c.IsLimitMatched(types.OrderSideSell, types.NewPrice(1.0999, 5)))
}

func TestCore_IsStopMatchedRequiresInitializedSide(t *testing.T) {
	c := New("SIM", testInstrument())
	assert.False(t, c.IsStopMatched(types.OrderSideBuy, types.NewPrice(1.1, 5)))

	c.SetAskRaw(types.NewPrice(1.1005, 5))
	assert.True(t, c.IsStopMatched(types.OrderSideBuy, types.NewPrice(1.1, 5)))
}
