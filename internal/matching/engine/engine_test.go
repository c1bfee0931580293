package engine

import (
	"context"
	"testing"

	"github.com/abdoElHodaky/tradsys-core/internal/book"
	"github.com/abdoElHodaky/tradsys-core/internal/cache"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var usd = types.Currency{Code: "USD", Precision: 2}

func testInstrument(class types.InstrumentClass) *types.Instrument {
	return &types.Instrument{
		Class:          class,
		Id:             types.InstrumentId{Symbol: "AAPL", Venue: "XNAS"},
		PricePrecision: 2,
		SizePrecision:  0,
		QuoteCurrency:  usd,
	}
}

func newTestEngine(t *testing.T, accountType types.AccountType, instrument *types.Instrument) (*Engine, *cache.Cache, *book.MemoryBook) {
	t.Helper()
	c := cache.New(cache.DefaultConfig(), nil, zap.NewNop())
	c.AddInstrument(context.Background(), instrument)
	b := book.NewMemoryBook(book.BookTypeL2MBP)
	cfg := Config{Venue: instrument.Id.Venue, OmsType: cache.OmsTypeNetting, AccountType: accountType, BookType: book.BookTypeL2MBP}
	e := New(cfg, instrument, c, b, nil, nil, nil, zap.NewNop())
	return e, c, b
}

func testLimitOrder(id types.ClientOrderId, inst types.InstrumentId, side types.OrderSide, price float64, qty float64) *types.Order {
	px := types.NewPrice(price, 2)
	return &types.Order{
		ClientOrderId: id,
		InstrumentId:  inst,
		StrategyId:    "S-1",
		Side:          side,
		Type:          types.OrderTypeLimit,
		Price:         &px,
		Quantity:      types.NewQuantity(qty, 0),
		TimeInForce:   types.TimeInForceGTC,
		Status:        types.OrderStatusInitialized,
	}
}

func TestProcessOrder_RejectsDuplicateClientOrderId(t *testing.T) {
	e, _, _ := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 100, 1)

	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 1)
	require.Equal(t, types.OrderStatusAccepted, o.Status)

	dup := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 100, 1)
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: dup}, 2)
	assert.Equal(t, types.OrderStatusRejected, dup.Status)
	assert.Equal(t, "duplicate ClientOrderId", dup.Events[len(dup.Events)-1].Reason)
}

func TestProcessOrder_RejectsInactiveInstrument(t *testing.T) {
	inst := testInstrument(types.InstrumentClassFuturesContract)
	expired := int64(100)
	inst.ExpirationNs = &expired
	e, _, _ := newTestEngine(t, types.AccountTypeMargin, inst)
	o := testLimitOrder("O-1", inst.Id, types.OrderSideBuy, 100, 1)

	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 200)
	assert.Equal(t, types.OrderStatusRejected, o.Status)
	assert.Equal(t, "instrument not active", o.Events[len(o.Events)-1].Reason)
}

func TestProcessOrder_RejectsQuantityPrecisionMismatch(t *testing.T) {
	e, _, _ := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 100, 1)
	o.Quantity = types.NewQuantity(1.5, 1)

	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 1)
	assert.Equal(t, types.OrderStatusRejected, o.Status)
	assert.Equal(t, "quantity precision mismatch", o.Events[len(o.Events)-1].Reason)
}

func TestProcessOrder_RejectsShortSellOnCashAccount(t *testing.T) {
	e, _, _ := newTestEngine(t, types.AccountTypeCash, testInstrument(types.InstrumentClassEquity))
	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideSell, 100, 1)

	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 1)
	assert.Equal(t, types.OrderStatusRejected, o.Status)
	assert.Equal(t, "no short selling on CASH account", o.Events[len(o.Events)-1].Reason)
}

func TestProcessOrder_AllowsSellOnCashAccountWhenReducingLongPosition(t *testing.T) {
	e, c, _ := newTestEngine(t, types.AccountTypeCash, testInstrument(types.InstrumentClassEquity))
	posId := types.PositionId("P-1")
	pos := &types.Position{Id: posId, InstrumentId: e.instrument.Id, StrategyId: "S-1", Side: types.PositionSideLong, Quantity: types.NewQuantity(5, 0)}
	require.NoError(t, c.AddPosition(context.Background(), pos, cache.OmsTypeNetting))

	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideSell, 100, 2)
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o, PositionId: &posId}, 1)
	assert.Equal(t, types.OrderStatusAccepted, o.Status)
}

func TestProcessOrder_RejectsReduceOnlyThatWouldIncreasePosition(t *testing.T) {
	e, c, _ := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	posId := types.PositionId("P-1")
	pos := &types.Position{Id: posId, InstrumentId: e.instrument.Id, StrategyId: "S-1", Side: types.PositionSideLong, Quantity: types.NewQuantity(1, 0)}
	require.NoError(t, c.AddPosition(context.Background(), pos, cache.OmsTypeNetting))

	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 100, 1)
	o.ReduceOnly = true
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o, PositionId: &posId}, 1)
	assert.Equal(t, types.OrderStatusRejected, o.Status)
	assert.Equal(t, "reduce-only order would not reduce position", o.Events[len(o.Events)-1].Reason)
}

func TestProcessOrder_HoldsOTOChildWhileParentPending(t *testing.T) {
	e, c, _ := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	parent := testLimitOrder("PARENT", e.instrument.Id, types.OrderSideBuy, 100, 1)
	parent.Contingency = types.ContingencyTypeOTO
	parent.Status = types.OrderStatusAccepted
	require.NoError(t, c.AddOrder(context.Background(), parent, nil, nil, false))

	child := testLimitOrder("CHILD", e.instrument.Id, types.OrderSideSell, 110, 1)
	child.ParentOrderId = &parent.ClientOrderId
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: child}, 1)
	assert.Equal(t, types.OrderStatusInitialized, child.Status)
	assert.True(t, c.OrderExists("CHILD"))
}

func TestProcessOrder_RejectsOCOWithAlreadyClosedSibling(t *testing.T) {
	e, c, _ := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	sib := testLimitOrder("SIB", e.instrument.Id, types.OrderSideSell, 110, 1)
	sib.Status = types.OrderStatusCanceled
	require.NoError(t, c.AddOrder(context.Background(), sib, nil, nil, false))

	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 100, 1)
	o.Contingency = types.ContingencyTypeOCO
	o.LinkedOrderIds = []types.ClientOrderId{"SIB"}
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 1)
	assert.Equal(t, types.OrderStatusRejected, o.Status)
	assert.Equal(t, "linked sibling already closed", o.Events[len(o.Events)-1].Reason)
}

func TestProcessOrder_LimitFillsImmediatelyWhenCrossingRestingLiquidity(t *testing.T) {
	e, _, b := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	b.ApplyDelta(book.Delta{Action: book.BookActionAdd, Side: types.OrderSideSell, Price: types.NewPrice(100, 2), Size: types.NewQuantity(5, 0)})
	e.Iterate(context.Background(), 1)

	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 100, 3)
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 1)

	assert.Equal(t, types.OrderStatusFilled, o.Status)
	assert.True(t, o.Filled.Equal(types.NewQuantity(3, 0)))
	assert.Equal(t, types.LiquiditySideTaker, o.LiquiditySide)
}

func TestProcessOrder_PostOnlyRejectedWhenItWouldCross(t *testing.T) {
	e, _, b := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	b.ApplyDelta(book.Delta{Action: book.BookActionAdd, Side: types.OrderSideSell, Price: types.NewPrice(100, 2), Size: types.NewQuantity(5, 0)})
	e.Iterate(context.Background(), 1)

	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 100, 1)
	o.PostOnly = true
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 1)
	assert.Equal(t, types.OrderStatusRejected, o.Status)
	assert.Equal(t, "post-only order would cross the book", o.Events[len(o.Events)-1].Reason)
}

func TestProcessOrder_IOCCancelsUnfilledRemainder(t *testing.T) {
	e, _, b := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	b.ApplyDelta(book.Delta{Action: book.BookActionAdd, Side: types.OrderSideSell, Price: types.NewPrice(100, 2), Size: types.NewQuantity(2, 0)})
	e.Iterate(context.Background(), 1)

	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 100, 5)
	o.TimeInForce = types.TimeInForceIOC
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 1)

	assert.Equal(t, types.OrderStatusCanceled, o.Status)
	assert.True(t, o.Filled.Equal(types.NewQuantity(2, 0)))
}

func TestProcessOrder_FOKRejectsWhenCannotFillInFull(t *testing.T) {
	e, _, b := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	b.ApplyDelta(book.Delta{Action: book.BookActionAdd, Side: types.OrderSideSell, Price: types.NewPrice(100, 2), Size: types.NewQuantity(2, 0)})
	e.Iterate(context.Background(), 1)

	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 100, 5)
	o.TimeInForce = types.TimeInForceFOK
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 1)

	assert.Equal(t, types.OrderStatusRejected, o.Status)
	assert.True(t, o.Filled.IsZero())
}

func TestIterate_GTDOrderExpires(t *testing.T) {
	e, _, _ := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 100, 1)
	o.TimeInForce = types.TimeInForceGTD
	expireAt := int64(50)
	o.ExpireTimeNs = &expireAt
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 1)
	require.Equal(t, types.OrderStatusAccepted, o.Status)

	e.Iterate(context.Background(), 100)
	assert.Equal(t, types.OrderStatusExpired, o.Status)
	assert.False(t, e.core.Exists("O-1"))
}

func TestIterate_RestingLimitFillsWhenMarketCrosses(t *testing.T) {
	e, _, b := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 100, 1)
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 1)
	require.Equal(t, types.OrderStatusAccepted, o.Status)

	b.ApplyDelta(book.Delta{Action: book.BookActionAdd, Side: types.OrderSideSell, Price: types.NewPrice(99, 2), Size: types.NewQuantity(5, 0)})
	e.Iterate(context.Background(), 2)

	assert.Equal(t, types.OrderStatusFilled, o.Status)
	assert.Equal(t, types.LiquiditySideMaker, o.LiquiditySide)
}

func TestIterate_OCOSiblingCanceledWhenOtherLegFills(t *testing.T) {
	e, c, b := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))

	takeProfit := testLimitOrder("TP", e.instrument.Id, types.OrderSideSell, 110, 1)
	takeProfit.Contingency = types.ContingencyTypeOCO
	takeProfit.LinkedOrderIds = []types.ClientOrderId{"SL"}
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: takeProfit}, 1)
	require.Equal(t, types.OrderStatusAccepted, takeProfit.Status)

	stopLoss := testLimitOrder("SL", e.instrument.Id, types.OrderSideSell, 90, 1)
	stopLoss.Type = types.OrderTypeStopMarket
	stopLoss.Price = nil
	trigger := types.NewPrice(90, 2)
	stopLoss.TriggerPrice = &trigger
	stopLoss.Contingency = types.ContingencyTypeOCO
	stopLoss.LinkedOrderIds = []types.ClientOrderId{"TP"}
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: stopLoss}, 1)
	require.Equal(t, types.OrderStatusAccepted, stopLoss.Status)

	b.ApplyDelta(book.Delta{Action: book.BookActionAdd, Side: types.OrderSideBuy, Price: types.NewPrice(110, 2), Size: types.NewQuantity(5, 0)})
	e.Iterate(context.Background(), 2)

	assert.Equal(t, types.OrderStatusFilled, takeProfit.Status)
	reloaded, ok := c.Order("SL")
	require.True(t, ok)
	assert.Equal(t, types.OrderStatusCanceled, reloaded.Status)
}

func TestFillOrder_ActivatesOTOChildOnParentFill(t *testing.T) {
	e, c, b := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))

	parent := testLimitOrder("PARENT", e.instrument.Id, types.OrderSideBuy, 100, 1)
	parent.Contingency = types.ContingencyTypeOTO
	parent.LinkedOrderIds = []types.ClientOrderId{"CHILD"}
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: parent}, 1)
	require.Equal(t, types.OrderStatusAccepted, parent.Status)

	child := testLimitOrder("CHILD", e.instrument.Id, types.OrderSideSell, 110, 1)
	child.ParentOrderId = &parent.ClientOrderId
	child.Contingency = types.ContingencyTypeOTO
	require.NoError(t, c.AddOrder(context.Background(), child, nil, nil, false))

	b.ApplyDelta(book.Delta{Action: book.BookActionAdd, Side: types.OrderSideSell, Price: types.NewPrice(100, 2), Size: types.NewQuantity(5, 0)})
	e.Iterate(context.Background(), 2)

	assert.Equal(t, types.OrderStatusFilled, parent.Status)
	reloaded, ok := c.Order("CHILD")
	require.True(t, ok)
	assert.Equal(t, types.OrderStatusAccepted, reloaded.Status)
	assert.True(t, e.core.Exists("CHILD"))
}

func TestProcessCancel_PropagatesToOCOSibling(t *testing.T) {
	e, c, _ := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))

	a := testLimitOrder("A", e.instrument.Id, types.OrderSideSell, 110, 1)
	a.Contingency = types.ContingencyTypeOCO
	a.LinkedOrderIds = []types.ClientOrderId{"B"}
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: a}, 1)

	bOrd := testLimitOrder("B", e.instrument.Id, types.OrderSideSell, 90, 1)
	bOrd.Contingency = types.ContingencyTypeOCO
	bOrd.LinkedOrderIds = []types.ClientOrderId{"A"}
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: bOrd}, 1)

	e.ProcessCancel(types.CancelOrder{InstrumentId: e.instrument.Id, ClientOrderId: "A"}, 2)

	reloaded, ok := c.Order("B")
	require.True(t, ok)
	assert.Equal(t, types.OrderStatusCanceled, reloaded.Status)
}

func TestProcessModify_RejectsPostOnlyModifyThatWouldCross(t *testing.T) {
	e, _, b := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	o := testLimitOrder("O-1", e.instrument.Id, types.OrderSideBuy, 95, 1)
	o.PostOnly = true
	e.ProcessOrder(context.Background(), types.SubmitOrder{Order: o}, 1)
	require.Equal(t, types.OrderStatusAccepted, o.Status)

	b.ApplyDelta(book.Delta{Action: book.BookActionAdd, Side: types.OrderSideSell, Price: types.NewPrice(100, 2), Size: types.NewQuantity(5, 0)})
	e.Iterate(context.Background(), 2)

	newPrice := types.NewPrice(101, 2)
	e.ProcessModify(context.Background(), types.ModifyOrder{InstrumentId: e.instrument.Id, ClientOrderId: "O-1", Price: &newPrice}, 3)

	assert.Equal(t, "modify would cross the book for a post-only order", o.Events[len(o.Events)-1].Reason)
}

func TestProcessModify_UnknownClientOrderIdIsRejectedNotPaniced(t *testing.T) {
	e, _, _ := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))
	newPrice := types.NewPrice(101, 2)

	assert.NotPanics(t, func() {
		e.ProcessModify(context.Background(), types.ModifyOrder{InstrumentId: e.instrument.Id, ClientOrderId: "GHOST", Price: &newPrice}, 1)
	})
}

func TestProcessCancel_UnknownClientOrderIdIsRejectedNotPaniced(t *testing.T) {
	e, _, _ := newTestEngine(t, types.AccountTypeMargin, testInstrument(types.InstrumentClassEquity))

	assert.NotPanics(t, func() {
		e.ProcessCancel(types.CancelOrder{InstrumentId: e.instrument.Id, ClientOrderId: "GHOST"}, 1)
	})
}
