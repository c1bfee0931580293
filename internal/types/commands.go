package types

// MarketStatus is the current trading state of an instrument on a venue.
type MarketStatus string

const (
	MarketStatusClosed    MarketStatus = "CLOSED"
	MarketStatusOpen      MarketStatus = "OPEN"
	MarketStatusPaused    MarketStatus = "PAUSED"
	MarketStatusSuspended MarketStatus = "SUSPENDED"
)

// MarketStatusAction is a venue-published transition request; the engine
// maps it onto a MarketStatus transition.
type MarketStatusAction string

const (
	MarketStatusActionTrading MarketStatusAction = "TRADING"
	MarketStatusActionPreOpen MarketStatusAction = "PRE_OPEN"
	MarketStatusActionPause   MarketStatusAction = "PAUSE"
	MarketStatusActionSuspend MarketStatusAction = "SUSPEND"
	MarketStatusActionHalt    MarketStatusAction = "HALT"
	MarketStatusActionClose   MarketStatusAction = "CLOSE"
)

// TradingState is the risk engine's gate over order flow.
type TradingState string

const (
	TradingStateActive   TradingState = "ACTIVE"
	TradingStateHalted   TradingState = "HALTED"
	TradingStateReducing TradingState = "REDUCING"
)

// SubmitOrder is the trading command that introduces a new order.
type SubmitOrder struct {
	Order      *Order
	PositionId *PositionId
	ClientId   *ClientId
}

// SubmitOrderList introduces a group of linked orders sharing one instrument.
type SubmitOrderList struct {
	OrderListId OrderListId
	Orders      []*Order
	PositionId  *PositionId
	ClientId    *ClientId
}

// ModifyOrder requests a quantity/price/trigger-price change.
type ModifyOrder struct {
	InstrumentId  InstrumentId
	ClientOrderId ClientOrderId
	Quantity      *Quantity
	Price         *Price
	TriggerPrice  *Price
}

// CancelOrder requests cancellation of a single order.
type CancelOrder struct {
	InstrumentId  InstrumentId
	ClientOrderId ClientOrderId
}

// CancelAllOrders requests cancellation of every open order for an
// instrument, optionally restricted to one side.
type CancelAllOrders struct {
	InstrumentId InstrumentId
	Side         *OrderSide
}

// BatchCancelOrders is a sequence of individual cancel requests.
type BatchCancelOrders struct {
	InstrumentId InstrumentId
	Cancels      []CancelOrder
}
