package types

import "fmt"

// PriceType selects which market-data price a query resolves to.
type PriceType string

const (
	PriceTypeBid  PriceType = "BID"
	PriceTypeAsk  PriceType = "ASK"
	PriceTypeMid  PriceType = "MID"
	PriceTypeLast PriceType = "LAST"
	PriceTypeMark PriceType = "MARK"
)

// QuoteTick is a top-of-book bid/ask snapshot.
type QuoteTick struct {
	InstrumentId InstrumentId
	BidPrice     Price
	AskPrice     Price
	BidSize      Quantity
	AskSize      Quantity
	TsEvent      int64
	TsInit       int64
}

// TradeTick is a single executed trade observed from the venue.
type TradeTick struct {
	InstrumentId InstrumentId
	Price        Price
	Size         Quantity
	AggressorSide OrderSide
	TradeId      TradeId
	TsEvent      int64
	TsInit       int64
}

// MarkPriceUpdate carries a venue's mark price (used for margining).
type MarkPriceUpdate struct {
	InstrumentId InstrumentId
	Value        Price
	TsEvent      int64
	TsInit       int64
}

// IndexPriceUpdate carries a venue's index price.
type IndexPriceUpdate struct {
	InstrumentId InstrumentId
	Value        Price
	TsEvent      int64
	TsInit       int64
}

// FundingRateUpdate carries a perpetual contract's current funding rate.
type FundingRateUpdate struct {
	InstrumentId InstrumentId
	Rate         Price
	NextFundingNs int64
	TsEvent      int64
	TsInit       int64
}

// BarAggregation enumerates how a bar's interval is measured.
type BarAggregation string

const (
	BarAggregationTick     BarAggregation = "TICK"
	BarAggregationVolume   BarAggregation = "VOLUME"
	BarAggregationSecond   BarAggregation = "SECOND"
	BarAggregationMinute   BarAggregation = "MINUTE"
	BarAggregationHour     BarAggregation = "HOUR"
	BarAggregationDay      BarAggregation = "DAY"
	BarAggregationMonth    BarAggregation = "MONTH"
)

// BarPriceType selects which series a bar is constructed from.
type BarPriceType string

const (
	BarPriceTypeBid  BarPriceType = "BID"
	BarPriceTypeAsk  BarPriceType = "ASK"
	BarPriceTypeLast BarPriceType = "LAST"
	BarPriceTypeMid  BarPriceType = "MID"
)

// BarType identifies the instrument/step/aggregation/price-type of a bar series.
type BarType struct {
	InstrumentId InstrumentId
	Step         int
	Aggregation  BarAggregation
	PriceType    BarPriceType
	// InternalAggregation marks bars synthesized locally from finer
	// data rather than received directly from a venue; process_bar
	// ignores these as an execution source.
	InternalAggregation bool
}

// Bar is an OHLCV candle for a BarType.
type Bar struct {
	Type    BarType
	Open    Price
	High    Price
	Low     Price
	Close   Price
	Volume  Quantity
	TsEvent int64
	TsInit  int64
}

// String renders the bar type as "<instrument>-<step>-<aggregation>-<priceType>".
func (bt BarType) String() string {
	return fmt.Sprintf("%s-%d-%s-%s", bt.InstrumentId.String(), bt.Step, string(bt.Aggregation), bt.PriceType.string())
}

func (p BarPriceType) string() string { return string(p) }
