package risk

import (
	"context"
	"testing"

	"github.com/abdoElHodaky/tradsys-core/internal/cache"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var usd = types.Currency{Code: "USD", Precision: 2}

func testCacheWithInstrument(t *testing.T, acctType types.AccountType, free decimal.Decimal) (*cache.Cache, *types.Instrument, *types.Account) {
	t.Helper()
	c := cache.New(cache.DefaultConfig(), nil, zap.NewNop())
	inst := &types.Instrument{
		Class:          types.InstrumentClassEquity,
		Id:             types.InstrumentId{Symbol: "AAPL", Venue: "XNAS"},
		PricePrecision: 2,
		SizePrecision:  0,
		QuoteCurrency:  usd,
	}
	c.AddInstrument(context.Background(), inst)
	acct := &types.Account{
		Id:    "ACCT-1",
		Type:  acctType,
		Venue: "XNAS",
		Balances: map[string]types.Balance{
			"USD": {Total: free, Locked: decimal.Zero, Free: free},
		},
	}
	c.AddAccount(context.Background(), acct)
	return c, inst, acct
}

func testSubmitOrder(id types.ClientOrderId, inst types.InstrumentId, side types.OrderSide, price float64, qty float64) types.SubmitOrder {
	px := types.NewPrice(price, 2)
	return types.SubmitOrder{Order: &types.Order{
		ClientOrderId: id,
		InstrumentId:  inst,
		StrategyId:    "S-1",
		Side:          side,
		Type:          types.OrderTypeLimit,
		Price:         &px,
		Quantity:      types.NewQuantity(qty, 0),
		Status:        types.OrderStatusInitialized,
	}}
}

func newTestRiskEngine(c *cache.Cache) *Engine {
	return New(Config{MaxOrderSubmitRate: 1000, MaxOrderSubmitBurst: 1000, MaxOrderModifyRate: 1000, MaxOrderModifyBurst: 1000}, c, nil, zap.NewNop())
}

func TestHandleSubmitOrder_DeniesPrecisionMismatch(t *testing.T) {
	c, inst, _ := testCacheWithInstrument(t, types.AccountTypeMargin, decimal.NewFromInt(1000000))
	e := newTestRiskEngine(c)
	cmd := testSubmitOrder("O-1", inst.Id, types.OrderSideBuy, 100, 1)
	cmd.Order.Quantity = types.NewQuantity(1.5, 1)

	e.Execute(context.Background(), cmd, 1)
	assert.Equal(t, types.OrderStatusDenied, cmd.Order.Status)
	assert.Equal(t, "quantity 1.5 invalid (precision 1 > 0)", cmd.Order.Events[len(cmd.Order.Events)-1].Reason)
}

func TestHandleSubmitOrder_DeniesNotionalExceedsMaxPerOrder(t *testing.T) {
	c, inst, _ := testCacheWithInstrument(t, types.AccountTypeCash, decimal.NewFromInt(1000000))
	e := newTestRiskEngine(c)
	e.SetMaxNotionalPerOrder(inst.Id, decimal.NewFromInt(500))

	cmd := testSubmitOrder("O-1", inst.Id, types.OrderSideBuy, 100, 10)
	e.Execute(context.Background(), cmd, 1)

	assert.Equal(t, types.OrderStatusDenied, cmd.Order.Status)
	assert.Equal(t, "NOTIONAL_EXCEEDS_MAX_PER_ORDER", cmd.Order.Events[len(cmd.Order.Events)-1].Reason)
}

func TestHandleSubmitOrder_DeniesWhenNotionalExceedsFreeBalance(t *testing.T) {
	c, inst, _ := testCacheWithInstrument(t, types.AccountTypeCash, decimal.NewFromInt(1000000))
	e := newTestRiskEngine(c)

	cmd := testSubmitOrder("O-1", inst.Id, types.OrderSideBuy, 101, 100000)
	e.Execute(context.Background(), cmd, 1)

	require.Equal(t, types.OrderStatusDenied, cmd.Order.Status)
	assert.Equal(t,
		"NOTIONAL_EXCEEDS_FREE_BALANCE: free=Money(1000000.00, USD), notional=Money(10100000.00, USD)",
		cmd.Order.Events[len(cmd.Order.Events)-1].Reason)
}

func TestHandleSubmitOrder_ReduceOnlySellExemptFromFreeBalanceCheck(t *testing.T) {
	c, inst, _ := testCacheWithInstrument(t, types.AccountTypeCash, decimal.NewFromInt(1000000))
	e := newTestRiskEngine(c)
	posId := types.PositionId("P-1")
	pos := &types.Position{Id: posId, InstrumentId: inst.Id, StrategyId: "S-1", Side: types.PositionSideLong, Quantity: types.NewQuantity(100000, 0)}
	require.NoError(t, c.AddPosition(context.Background(), pos, cache.OmsTypeNetting))

	cmd := testSubmitOrder("O-1", inst.Id, types.OrderSideSell, 101, 100000)
	cmd.Order.ReduceOnly = true
	cmd.PositionId = &posId
	e.Execute(context.Background(), cmd, 1)

	assert.Equal(t, types.OrderStatusInitialized, cmd.Order.Status)
}

func TestHandleSubmitOrder_DeniesWhenTradingHalted(t *testing.T) {
	c, inst, _ := testCacheWithInstrument(t, types.AccountTypeMargin, decimal.NewFromInt(1000000))
	e := newTestRiskEngine(c)
	e.SetTradingState(types.TradingStateHalted, 1)

	cmd := testSubmitOrder("O-1", inst.Id, types.OrderSideBuy, 100, 1)
	e.Execute(context.Background(), cmd, 2)

	assert.Equal(t, types.OrderStatusDenied, cmd.Order.Status)
	assert.Equal(t, "TradingState::HALTED", cmd.Order.Events[len(cmd.Order.Events)-1].Reason)
}

func TestHandleSubmitOrder_MarginAccountBypassesFreeBalanceCheck(t *testing.T) {
	c, inst, _ := testCacheWithInstrument(t, types.AccountTypeMargin, decimal.NewFromInt(1000000))
	e := newTestRiskEngine(c)

	cmd := testSubmitOrder("O-1", inst.Id, types.OrderSideBuy, 101, 100000)
	e.Execute(context.Background(), cmd, 1)

	assert.Equal(t, types.OrderStatusInitialized, cmd.Order.Status)
}

func TestHandleSubmitOrderList_DeniesCumulativeNotionalExceedsFreeBalance(t *testing.T) {
	c, inst, _ := testCacheWithInstrument(t, types.AccountTypeCash, decimal.NewFromInt(1000000))
	e := newTestRiskEngine(c)

	first := testSubmitOrder("O-1", inst.Id, types.OrderSideBuy, 1, 500000).Order
	second := testSubmitOrder("O-2", inst.Id, types.OrderSideBuy, 1, 567873).Order
	cmd := types.SubmitOrderList{OrderListId: "L-1", Orders: []*types.Order{first, second}}

	e.Execute(context.Background(), cmd, 1)

	require.Equal(t, types.OrderStatusDenied, first.Status)
	assert.Equal(t, "denied: a linked order in this list failed risk checks", first.Events[len(first.Events)-1].Reason)
	require.Equal(t, types.OrderStatusDenied, second.Status)
	assert.Equal(t,
		"CUM_NOTIONAL_EXCEEDS_FREE_BALANCE: free=1000000.00 USD, cum_notional=1067873.00 USD",
		second.Events[len(second.Events)-1].Reason)
}

func TestHandleSubmitOrderList_IndividualPrecisionDenialDoesNotCascadeToOthers(t *testing.T) {
	c, inst, _ := testCacheWithInstrument(t, types.AccountTypeMargin, decimal.NewFromInt(1000000))
	e := newTestRiskEngine(c)

	bad := testSubmitOrder("O-1", inst.Id, types.OrderSideBuy, 100, 1).Order
	bad.Quantity = types.NewQuantity(1.5, 1)
	good := testSubmitOrder("O-2", inst.Id, types.OrderSideBuy, 100, 1).Order
	cmd := types.SubmitOrderList{OrderListId: "L-1", Orders: []*types.Order{bad, good}}

	e.Execute(context.Background(), cmd, 1)

	assert.Equal(t, types.OrderStatusDenied, bad.Status)
	assert.Equal(t, types.OrderStatusInitialized, good.Status)
}

func TestHandleModifyOrder_RejectsClosedOrder(t *testing.T) {
	c, inst, _ := testCacheWithInstrument(t, types.AccountTypeMargin, decimal.NewFromInt(1000000))
	e := newTestRiskEngine(c)
	px := types.NewPrice(100, 2)
	o := &types.Order{ClientOrderId: "O-1", InstrumentId: inst.Id, Price: &px, Quantity: types.NewQuantity(1, 0), Status: types.OrderStatusFilled}
	require.NoError(t, c.AddOrder(context.Background(), o, nil, nil, false))

	newQty := types.NewQuantity(2, 0)
	e.Execute(context.Background(), types.ModifyOrder{InstrumentId: inst.Id, ClientOrderId: "O-1", Quantity: &newQty}, 1)

	assert.Equal(t, "order is closed", o.Events[len(o.Events)-1].Reason)
}

func TestHandleModifyOrder_RejectsExposureGrowthWhileReducing(t *testing.T) {
	c, inst, _ := testCacheWithInstrument(t, types.AccountTypeMargin, decimal.NewFromInt(1000000))
	e := newTestRiskEngine(c)
	px := types.NewPrice(100, 2)
	o := &types.Order{ClientOrderId: "O-1", InstrumentId: inst.Id, Side: types.OrderSideBuy, Price: &px, Quantity: types.NewQuantity(1, 0), Status: types.OrderStatusAccepted}
	require.NoError(t, c.AddOrder(context.Background(), o, nil, nil, false))

	pos := &types.Position{Id: "P-1", InstrumentId: inst.Id, StrategyId: "S-1", Side: types.PositionSideLong, Quantity: types.NewQuantity(1, 0)}
	require.NoError(t, c.AddPosition(context.Background(), pos, cache.OmsTypeNetting))

	e.SetTradingState(types.TradingStateReducing, 1)
	newQty := types.NewQuantity(2, 0)
	e.Execute(context.Background(), types.ModifyOrder{InstrumentId: inst.Id, ClientOrderId: "O-1", Quantity: &newQty}, 2)

	assert.Equal(t, "TradingState::REDUCING", o.Events[len(o.Events)-1].Reason)
}

func TestThrottler_UsedReflectsConsumedBudget(t *testing.T) {
	th := NewThrottler("test", 10, 10)
	assert.Equal(t, 0.0, th.Used())
	for i := 0; i < 5; i++ {
		require.True(t, th.Allow(context.Background(), "VENUE"))
	}
	assert.Greater(t, th.Used(), 0.0)
}
