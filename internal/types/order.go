package types

// OrderSide is the trading side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType enumerates the supported order types.
type OrderType string

const (
	OrderTypeMarket              OrderType = "MARKET"
	OrderTypeLimit               OrderType = "LIMIT"
	OrderTypeStopMarket          OrderType = "STOP_MARKET"
	OrderTypeStopLimit           OrderType = "STOP_LIMIT"
	OrderTypeMarketToLimit       OrderType = "MARKET_TO_LIMIT"
	OrderTypeMarketIfTouched     OrderType = "MARKET_IF_TOUCHED"
	OrderTypeLimitIfTouched      OrderType = "LIMIT_IF_TOUCHED"
	OrderTypeTrailingStopMarket  OrderType = "TRAILING_STOP_MARKET"
	OrderTypeTrailingStopLimit   OrderType = "TRAILING_STOP_LIMIT"
)

// HasPrice reports whether the order type carries a limit price.
func (t OrderType) HasPrice() bool {
	switch t {
	case OrderTypeLimit, OrderTypeStopLimit, OrderTypeMarketToLimit,
		OrderTypeLimitIfTouched, OrderTypeTrailingStopLimit:
		return true
	default:
		return false
	}
}

// HasTriggerPrice reports whether the order type carries a trigger price.
func (t OrderType) HasTriggerPrice() bool {
	switch t {
	case OrderTypeStopMarket, OrderTypeStopLimit, OrderTypeMarketIfTouched,
		OrderTypeLimitIfTouched, OrderTypeTrailingStopMarket, OrderTypeTrailingStopLimit:
		return true
	default:
		return false
	}
}

// IsStopType reports whether the order type triggers off a stop/touch price.
func (t OrderType) IsStopType() bool {
	return t.HasTriggerPrice()
}

// TimeInForce enumerates supported time-in-force values.
type TimeInForce string

const (
	TimeInForceGTC       TimeInForce = "GTC"
	TimeInForceIOC       TimeInForce = "IOC"
	TimeInForceFOK       TimeInForce = "FOK"
	TimeInForceGTD       TimeInForce = "GTD"
	TimeInForceAtTheOpen TimeInForce = "AT_THE_OPEN"
	TimeInForceAtTheClose TimeInForce = "AT_THE_CLOSE"
)

// LiquiditySide indicates whether a fill added or removed liquidity.
type LiquiditySide string

const (
	LiquiditySideNone   LiquiditySide = "NONE"
	LiquiditySideMaker  LiquiditySide = "MAKER"
	LiquiditySideTaker  LiquiditySide = "TAKER"
)

// ContingencyType enumerates linked-order relationships.
type ContingencyType string

const (
	ContingencyTypeNone ContingencyType = "NONE"
	ContingencyTypeOTO  ContingencyType = "OTO"
	ContingencyTypeOCO  ContingencyType = "OCO"
	ContingencyTypeOUO  ContingencyType = "OUO"
)

// OrderStatus is the order state-machine status.
type OrderStatus string

const (
	OrderStatusInitialized   OrderStatus = "INITIALIZED"
	OrderStatusSubmitted     OrderStatus = "SUBMITTED"
	OrderStatusAccepted      OrderStatus = "ACCEPTED"
	OrderStatusPendingUpdate OrderStatus = "PENDING_UPDATE"
	OrderStatusPendingCancel OrderStatus = "PENDING_CANCEL"
	OrderStatusTriggered     OrderStatus = "TRIGGERED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled        OrderStatus = "FILLED"
	OrderStatusCanceled      OrderStatus = "CANCELED"
	OrderStatusExpired       OrderStatus = "EXPIRED"
	OrderStatusRejected      OrderStatus = "REJECTED"
	OrderStatusDenied        OrderStatus = "DENIED"
)

// IsOpen reports whether the status is one of the open states.
func (s OrderStatus) IsOpen() bool {
	switch s {
	case OrderStatusAccepted, OrderStatusTriggered, OrderStatusPendingUpdate,
		OrderStatusPendingCancel, OrderStatusPartiallyFilled:
		return true
	default:
		return false
	}
}

// IsInflight reports whether the status is one of the inflight states.
func (s OrderStatus) IsInflight() bool {
	switch s {
	case OrderStatusSubmitted, OrderStatusPendingUpdate, OrderStatusPendingCancel:
		return true
	default:
		return false
	}
}

// IsClosed reports whether the status is terminal.
func (s OrderStatus) IsClosed() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusExpired,
		OrderStatusRejected, OrderStatusDenied:
		return true
	default:
		return false
	}
}

// OrderEventKind discriminates the order event log entries.
type OrderEventKind string

const (
	OrderEventInitialized      OrderEventKind = "OrderInitialized"
	OrderEventDenied           OrderEventKind = "OrderDenied"
	OrderEventSubmitted        OrderEventKind = "OrderSubmitted"
	OrderEventAccepted         OrderEventKind = "OrderAccepted"
	OrderEventRejected         OrderEventKind = "OrderRejected"
	OrderEventCanceled         OrderEventKind = "OrderCanceled"
	OrderEventCancelRejected   OrderEventKind = "OrderCancelRejected"
	OrderEventExpired          OrderEventKind = "OrderExpired"
	OrderEventTriggered        OrderEventKind = "OrderTriggered"
	OrderEventPendingUpdate    OrderEventKind = "OrderPendingUpdate"
	OrderEventPendingCancel    OrderEventKind = "OrderPendingCancel"
	OrderEventModifyRejected   OrderEventKind = "OrderModifyRejected"
	OrderEventUpdated          OrderEventKind = "OrderUpdated"
	OrderEventFilled           OrderEventKind = "OrderFilled"
)

// OrderEvent is the wire shape shared by every order event, per spec §6.
type OrderEvent struct {
	Kind          OrderEventKind
	TraderId      TraderId
	StrategyId    StrategyId
	InstrumentId  InstrumentId
	ClientOrderId ClientOrderId
	EventId       string // UUIDv4
	TsEvent       int64  // unix nanos
	TsInit        int64  // unix nanos
	Reconciliation bool

	// Optional / event-specific fields.
	VenueOrderId  VenueOrderId
	AccountId     AccountId
	Reason        string
	Price         *Price
	TriggerPrice  *Price
	Quantity      *Quantity

	// OrderFilled specific.
	TradeId       TradeId
	Side          OrderSide
	Type          OrderType
	LastQty       Quantity
	LastPx        Price
	Currency      Currency
	LiquiditySide LiquiditySide
	PositionId    *PositionId
	Commission    *Money
}

// Order is the tagged-variant order state machine.
type Order struct {
	TraderId      TraderId
	StrategyId    StrategyId
	InstrumentId  InstrumentId
	ClientOrderId ClientOrderId
	VenueOrderId  *VenueOrderId
	AccountId     *AccountId

	Side     OrderSide
	Type     OrderType
	Quantity Quantity
	Filled   Quantity

	Price        *Price
	TriggerPrice *Price

	TimeInForce TimeInForce
	ExpireTimeNs *int64

	PostOnly     bool
	ReduceOnly   bool
	QuoteQuantity bool

	EmulationTrigger string
	Contingency      ContingencyType
	OrderListId      *OrderListId
	ParentOrderId    *ClientOrderId
	LinkedOrderIds   []ClientOrderId

	ExecAlgorithmId *ExecAlgorithmId
	ExecSpawnId     *ExecSpawnId

	Status         OrderStatus
	PreviousStatus OrderStatus
	LiquiditySide  LiquiditySide

	// Trailing order state.
	TrailingOffset       Price
	TrailingOffsetType   string // e.g. "PRICE", "BASIS_POINTS"

	Events []OrderEvent
}

// Leaves returns Quantity - Filled.
func (o *Order) Leaves() Quantity {
	return o.Quantity.Sub(o.Filled)
}

// IsOpen delegates to the status.
func (o *Order) IsOpen() bool { return o.Status.IsOpen() }

// IsClosed delegates to the status.
func (o *Order) IsClosed() bool { return o.Status.IsClosed() }

// IsInflight delegates to the status.
func (o *Order) IsInflight() bool { return o.Status.IsInflight() }

// HasPrice reports whether the order carries a usable limit price.
func (o *Order) HasPrice() bool { return o.Price != nil }

// Apply appends the event to the log, transitions Status, and records
// PreviousStatus. Duplicate events (same ClientOrderId + EventId as the
// last applied event) are no-ops.
func (o *Order) Apply(ev OrderEvent) {
	if n := len(o.Events); n > 0 {
		last := o.Events[n-1]
		if last.ClientOrderId == ev.ClientOrderId && last.EventId == ev.EventId {
			return
		}
	}
	o.Events = append(o.Events, ev)
	o.PreviousStatus = o.Status
	switch ev.Kind {
	case OrderEventInitialized:
		o.Status = OrderStatusInitialized
	case OrderEventDenied:
		o.Status = OrderStatusDenied
	case OrderEventSubmitted:
		o.Status = OrderStatusSubmitted
	case OrderEventAccepted:
		o.Status = OrderStatusAccepted
		if ev.VenueOrderId != "" {
			v := ev.VenueOrderId
			o.VenueOrderId = &v
		}
	case OrderEventRejected:
		o.Status = OrderStatusRejected
	case OrderEventCanceled:
		o.Status = OrderStatusCanceled
	case OrderEventCancelRejected, OrderEventModifyRejected:
		// a rejected cancel or modify leaves Status as it was (PreviousStatus
		// already holds the current status here); a PendingCancel or
		// PendingUpdate order is not returned to its earlier state
		o.Status = o.PreviousStatus
	case OrderEventExpired:
		o.Status = OrderStatusExpired
	case OrderEventTriggered:
		o.Status = OrderStatusTriggered
	case OrderEventPendingUpdate:
		o.Status = OrderStatusPendingUpdate
	case OrderEventPendingCancel:
		o.Status = OrderStatusPendingCancel
	case OrderEventUpdated:
		if ev.Price != nil {
			o.Price = ev.Price
		}
		if ev.TriggerPrice != nil {
			o.TriggerPrice = ev.TriggerPrice
		}
		if ev.Quantity != nil {
			o.Quantity = *ev.Quantity
		}
	case OrderEventFilled:
		o.Filled = o.Filled.Add(ev.LastQty)
		o.LiquiditySide = ev.LiquiditySide
		if o.Leaves().IsZero() {
			o.Status = OrderStatusFilled
		} else {
			o.Status = OrderStatusPartiallyFilled
		}
	}
}

// ToOwnBookOrder projects the order into the minimal shape the own-order
// book mirror needs: price, side, quantity, and whether it still has a
// resting price at all.
type OwnBookOrder struct {
	ClientOrderId ClientOrderId
	Side          OrderSide
	Price         Price
	Leaves        Quantity
}

// ToOwnBookOrder returns (order, ok); ok is false for orderless orders
// (e.g. Market) which the own order book mirror ignores.
func (o *Order) ToOwnBookOrder() (OwnBookOrder, bool) {
	if o.Price == nil {
		return OwnBookOrder{}, false
	}
	return OwnBookOrder{
		ClientOrderId: o.ClientOrderId,
		Side:          o.Side,
		Price:         *o.Price,
		Leaves:        o.Leaves(),
	}, true
}
