package types

import (
	"github.com/shopspring/decimal"
)

// InstrumentClass discriminates the instrument variant.
type InstrumentClass string

const (
	InstrumentClassCurrencyPair     InstrumentClass = "CURRENCY_PAIR"
	InstrumentClassCryptoPerpetual  InstrumentClass = "CRYPTO_PERPETUAL"
	InstrumentClassCryptoFuture     InstrumentClass = "CRYPTO_FUTURE"
	InstrumentClassFuturesContract  InstrumentClass = "FUTURES_CONTRACT"
	InstrumentClassFuturesSpread    InstrumentClass = "FUTURES_SPREAD"
	InstrumentClassOptionContract   InstrumentClass = "OPTION_CONTRACT"
	InstrumentClassOptionSpread     InstrumentClass = "OPTION_SPREAD"
	InstrumentClassEquity           InstrumentClass = "EQUITY"
	InstrumentClassBinaryOption     InstrumentClass = "BINARY_OPTION"
	InstrumentClassBettingInstrument InstrumentClass = "BETTING_INSTRUMENT"
)

// OptionKind distinguishes calls and puts.
type OptionKind string

const (
	OptionKindCall OptionKind = "CALL"
	OptionKindPut  OptionKind = "PUT"
)

// Instrument is the tagged-union of tradable instrument variants. Common
// fields live on the struct directly; variant-specific fields are
// grouped and only populated for the matching Class.
type Instrument struct {
	Class InstrumentClass

	Id           InstrumentId
	RawSymbol    string
	PricePrecision uint8
	SizePrecision  uint8
	PriceIncrement Price
	SizeIncrement  Quantity

	MinPrice    *Price
	MaxPrice    *Price
	MinQuantity *Quantity
	MaxQuantity *Quantity
	MinNotional *Money
	MaxNotional *Money

	QuoteCurrency     Currency
	BaseCurrency      *Currency
	UnderlyingCurrency *Currency
	SettlementCurrency *Currency

	MarginInit decimal.Decimal
	MarginMaint decimal.Decimal
	MakerFee   decimal.Decimal
	TakerFee   decimal.Decimal

	ActivationNs   *int64
	ExpirationNs   *int64

	// CurrencyPair
	Base  Currency
	Quote Currency

	// CryptoPerpetual / CryptoFuture
	IsInverse bool

	// OptionContract / OptionSpread
	Strike     Price
	OptionKind OptionKind

	// Equity
	ISIN string

	// BettingInstrument
	MarketId   string
	SelectionId string
}

// IsExpiring reports whether this variant carries an expiration date.
func (i *Instrument) IsExpiring() bool {
	switch i.Class {
	case InstrumentClassCryptoFuture, InstrumentClassFuturesContract,
		InstrumentClassFuturesSpread, InstrumentClassOptionContract,
		InstrumentClassOptionSpread:
		return true
	default:
		return false
	}
}

// IsActive reports whether now falls within [Activation, Expiration).
func (i *Instrument) IsActive(nowNs int64) bool {
	if !i.IsExpiring() {
		return true
	}
	if i.ActivationNs != nil && nowNs < *i.ActivationNs {
		return false
	}
	if i.ExpirationNs != nil && nowNs >= *i.ExpirationNs {
		return false
	}
	return true
}

// CalculateNotionalValue computes quantity*price converted to the
// instrument's settlement currency, accounting for inverse contracts
// when useQuoteForInverse is true.
func (i *Instrument) CalculateNotionalValue(quantity Quantity, price Price, useQuoteForInverse bool) Money {
	ccy := i.QuoteCurrency
	if i.SettlementCurrency != nil {
		ccy = *i.SettlementCurrency
	}
	if i.IsInverse && useQuoteForInverse {
		if price.IsZero() {
			return Money{Amount: decimal.Zero, Currency: ccy}
		}
		amount := quantity.Decimal().Div(price.Decimal())
		base := ccy
		if i.BaseCurrency != nil {
			base = *i.BaseCurrency
		}
		return Money{Amount: amount.Round(int32(base.Precision)), Currency: base}
	}
	amount := quantity.Decimal().Mul(price.Decimal())
	return Money{Amount: amount.Round(int32(ccy.Precision)), Currency: ccy}
}
