package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_ApplyFillTransitionsToPartiallyFilledThenFilled(t *testing.T) {
	o := &Order{
		ClientOrderId: "O-1",
		Side:          OrderSideBuy,
		Type:          OrderTypeLimit,
		Quantity:      NewQuantity(10, 0),
		Status:        OrderStatusAccepted,
	}

	o.Apply(OrderEvent{Kind: OrderEventFilled, ClientOrderId: "O-1", EventId: "e1", LastQty: NewQuantity(4, 0)})
	assert.Equal(t, OrderStatusPartiallyFilled, o.Status)
	assert.True(t, o.IsOpen())

	o.Apply(OrderEvent{Kind: OrderEventFilled, ClientOrderId: "O-1", EventId: "e2", LastQty: NewQuantity(6, 0)})
	assert.Equal(t, OrderStatusFilled, o.Status)
	assert.True(t, o.IsClosed())
	assert.True(t, o.Leaves().IsZero())
}

func TestOrder_ApplyIsIdempotentForDuplicateEventId(t *testing.T) {
	o := &Order{ClientOrderId: "O-1", Quantity: NewQuantity(10, 0), Status: OrderStatusAccepted}

	ev := OrderEvent{Kind: OrderEventFilled, ClientOrderId: "O-1", EventId: "dup", LastQty: NewQuantity(5, 0)}
	o.Apply(ev)
	o.Apply(ev)

	assert.True(t, o.Filled.Equal(NewQuantity(5, 0)))
}

func TestOrder_ToOwnBookOrderSkipsOrderlessOrders(t *testing.T) {
	market := &Order{ClientOrderId: "O-2", Type: OrderTypeMarket, Quantity: NewQuantity(1, 0)}
	_, ok := market.ToOwnBookOrder()
	assert.False(t, ok)

	price := NewPrice(100, 2)
	limit := &Order{ClientOrderId: "O-3", Type: OrderTypeLimit, Price: &price, Quantity: NewQuantity(1, 0)}
	own, ok := limit.ToOwnBookOrder()
	require.True(t, ok)
	assert.Equal(t, ClientOrderId("O-3"), own.ClientOrderId)
}

func TestWouldReduceOnly(t *testing.T) {
	posQty := NewQuantity(5, 0)
	assert.True(t, WouldReduceOnly(PositionSideLong, posQty, OrderSideSell, NewQuantity(3, 0)))
	assert.False(t, WouldReduceOnly(PositionSideLong, posQty, OrderSideSell, NewQuantity(10, 0)))
	assert.False(t, WouldReduceOnly(PositionSideLong, posQty, OrderSideBuy, NewQuantity(1, 0)))
	assert.False(t, WouldReduceOnly(PositionSideFlat, posQty, OrderSideSell, NewQuantity(1, 0)))
}

func TestMoney_AddRejectsMismatchedCurrency(t *testing.T) {
	usd := Currency{Code: "USD", Precision: 2}
	aud := Currency{Code: "AUD", Precision: 2}

	_, err := NewMoney(100, usd).Add(NewMoney(1, aud))
	assert.Error(t, err)
}

func TestInstrument_CalculateNotionalValueInverse(t *testing.T) {
	usd := Currency{Code: "USD", Precision: 2}
	btc := Currency{Code: "BTC", Precision: 8}
	inst := &Instrument{
		Class:              InstrumentClassCryptoPerpetual,
		QuoteCurrency:      usd,
		BaseCurrency:       &btc,
		SettlementCurrency: &btc,
		IsInverse:          true,
	}

	notional := inst.CalculateNotionalValue(NewQuantity(1000, 0), NewPrice(50000, 2), true)
	assert.Equal(t, "BTC", notional.Currency.Code)
	assert.True(t, notional.Amount.GreaterThan(notional.Amount.Sub(notional.Amount)))
}
