package cache

import (
	"context"
	"testing"

	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache() *Cache {
	return New(DefaultConfig(), nil, zap.NewNop())
}

func testOrder(id types.ClientOrderId, instrument types.InstrumentId, strategy types.StrategyId, status types.OrderStatus) *types.Order {
	return &types.Order{
		ClientOrderId: id,
		InstrumentId:  instrument,
		StrategyId:    strategy,
		Side:          types.OrderSideBuy,
		Type:          types.OrderTypeLimit,
		Quantity:      types.NewQuantity(1, 0),
		Status:        status,
	}
}

func TestCache_AddOrderRejectsDuplicateUnlessReplacing(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: "BINANCE"}
	o := testOrder("O-1", inst, "S-1", types.OrderStatusAccepted)

	require.NoError(t, c.AddOrder(ctx, o, nil, nil, false))
	err := c.AddOrder(ctx, o, nil, nil, false)
	assert.Error(t, err)

	require.NoError(t, c.AddOrder(ctx, o, nil, nil, true))
}

func TestCache_OrdersOpenClosedFilterByStatus(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: "BINANCE"}

	open := testOrder("O-1", inst, "S-1", types.OrderStatusAccepted)
	closed := testOrder("O-2", inst, "S-1", types.OrderStatusFilled)
	require.NoError(t, c.AddOrder(ctx, open, nil, nil, false))
	require.NoError(t, c.AddOrder(ctx, closed, nil, nil, false))

	openOrders := c.OrdersOpen(OrderFilter{})
	assert.Len(t, openOrders, 1)
	assert.Equal(t, types.ClientOrderId("O-1"), openOrders[0].ClientOrderId)

	closedOrders := c.OrdersClosed(OrderFilter{})
	assert.Len(t, closedOrders, 1)
	assert.Equal(t, types.ClientOrderId("O-2"), closedOrders[0].ClientOrderId)
}

func TestCache_PurgeOrderRefusesWhileOpen(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: "BINANCE"}
	o := testOrder("O-1", inst, "S-1", types.OrderStatusAccepted)
	require.NoError(t, c.AddOrder(ctx, o, nil, nil, false))

	err := c.PurgeOrder("O-1")
	assert.Error(t, err)
	assert.True(t, c.OrderExists("O-1"))

	o.Status = types.OrderStatusCanceled
	require.NoError(t, c.PurgeOrder("O-1"))
	assert.False(t, c.OrderExists("O-1"))
}

func TestCache_ExecSpawnAggregatesQuantity(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: "BINANCE"}
	root := types.ExecSpawnId("ALGO-1")

	a := testOrder("O-1", inst, "S-1", types.OrderStatusAccepted)
	a.ExecSpawnId = &root
	a.Quantity = types.NewQuantity(3, 0)
	b := testOrder("O-2", inst, "S-1", types.OrderStatusFilled)
	b.ExecSpawnId = &root
	b.Quantity = types.NewQuantity(2, 0)
	b.Filled = types.NewQuantity(2, 0)

	require.NoError(t, c.AddOrder(ctx, a, nil, nil, false))
	require.NoError(t, c.AddOrder(ctx, b, nil, nil, false))

	total := c.ExecSpawnTotalQuantity(root, false)
	assert.True(t, total.Equal(types.NewQuantity(5, 0)))

	activeOnly := c.ExecSpawnTotalQuantity(root, true)
	assert.True(t, activeOnly.Equal(types.NewQuantity(3, 0)))
}

func TestCache_PurgePositionRefusesWhileOpen(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: "BINANCE"}
	p := &types.Position{Id: "P-1", InstrumentId: inst, StrategyId: "S-1", Side: types.PositionSideLong, Quantity: types.NewQuantity(1, 0)}
	require.NoError(t, c.AddPosition(ctx, p, OmsTypeNetting))

	assert.Error(t, c.PurgePosition("P-1"))

	p.Side = types.PositionSideFlat
	require.NoError(t, c.UpdatePosition(ctx, p))
	require.NoError(t, c.PurgePosition("P-1"))
	assert.False(t, c.PositionExists("P-1"))
}

func TestCache_MarketDataDequesTrimToCapacity(t *testing.T) {
	cfg := Config{TickCapacity: 2, BarCapacity: 2}
	c := New(cfg, nil, zap.NewNop())
	ctx := context.Background()
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: "BINANCE"}

	for i := 0; i < 5; i++ {
		c.AddQuote(ctx, types.QuoteTick{InstrumentId: inst, BidPrice: types.NewPrice(float64(i), 2), AskPrice: types.NewPrice(float64(i)+1, 2)})
	}
	assert.Equal(t, 2, c.QuoteCount(inst))

	latest, ok := c.Quote(inst)
	require.True(t, ok)
	assert.True(t, latest.BidPrice.Equal(types.NewPrice(4, 2)))
}

func TestCache_PriceMidUsesBidPrecisionPlusOne(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: "BINANCE"}
	c.AddQuote(ctx, types.QuoteTick{InstrumentId: inst, BidPrice: types.NewPrice(100, 2), AskPrice: types.NewPrice(100.04, 2)})

	mid, ok := c.Price(inst, types.PriceTypeMid)
	require.True(t, ok)
	assert.Equal(t, uint8(3), mid.Precision())
}

func TestCache_UpdateOwnOrderBookRemovesOnClose(t *testing.T) {
	c := newTestCache()
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: "BINANCE"}
	price := types.NewPrice(100, 2)
	o := &types.Order{ClientOrderId: "O-1", InstrumentId: inst, Side: types.OrderSideBuy, Price: &price, Quantity: types.NewQuantity(1, 0), Status: types.OrderStatusAccepted}

	c.UpdateOwnOrderBook(o)
	assert.Contains(t, c.marketData.ownBooks[inst], types.ClientOrderId("O-1"))

	o.Status = types.OrderStatusCanceled
	c.UpdateOwnOrderBook(o)
	assert.NotContains(t, c.marketData.ownBooks[inst], types.ClientOrderId("O-1"))
}

func TestCache_XrateSetAndGetIsReciprocal(t *testing.T) {
	c := newTestCache()
	c.SetMarkXrate("USD", "EUR", decimal.NewFromFloat(0.9))

	rate, ok := c.GetMarkXrate("USD", "EUR")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.9)))

	inverse, ok := c.GetMarkXrate("EUR", "USD")
	require.True(t, ok)
	assert.True(t, inverse.Equal(decimal.NewFromInt(1).Div(decimal.NewFromFloat(0.9))))

	c.ClearMarkXrate("USD", "EUR")
	_, ok = c.GetMarkXrate("USD", "EUR")
	assert.False(t, ok)
}

func TestCache_CheckIntegrityDetectsBalanceViolation(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	acctId := types.AccountId("A-1")
	acct := &types.Account{
		Id:    acctId,
		Venue: "BINANCE",
		Balances: map[string]types.Balance{
			"USD": {Total: decimal.NewFromInt(100), Locked: decimal.NewFromInt(10), Free: decimal.NewFromInt(10)},
		},
	}
	c.AddAccount(ctx, acct)

	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: "BINANCE"}
	o := testOrder("O-1", inst, "S-1", types.OrderStatusAccepted)
	o.AccountId = &acctId
	require.NoError(t, c.AddOrder(ctx, o, nil, nil, false))

	assert.False(t, c.CheckIntegrity())
}

func TestCache_BuildIndexIsIdempotent(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: "BINANCE"}
	o := testOrder("O-1", inst, "S-1", types.OrderStatusAccepted)
	require.NoError(t, c.AddOrder(ctx, o, nil, nil, false))

	c.BuildIndex()
	c.BuildIndex()

	assert.True(t, c.OrderExists("O-1"))
	assert.Len(t, c.OrdersOpen(OrderFilter{}), 1)
}

func TestCache_ResetClearsEverything(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	inst := types.InstrumentId{Symbol: "BTCUSDT", Venue: "BINANCE"}
	o := testOrder("O-1", inst, "S-1", types.OrderStatusFilled)
	require.NoError(t, c.AddOrder(ctx, o, nil, nil, false))

	c.Reset()

	assert.False(t, c.OrderExists("O-1"))
	_, ok := c.Order("O-1")
	assert.False(t, ok)
}
