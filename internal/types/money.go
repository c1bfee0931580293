package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencyKind classifies a currency for display and venue-capability purposes.
type CurrencyKind string

const (
	CurrencyKindFiat      CurrencyKind = "FIAT"
	CurrencyKindCrypto    CurrencyKind = "CRYPTO"
	CurrencyKindCommodity CurrencyKind = "COMMODITY"
)

// Currency describes a unit of account.
type Currency struct {
	Code      string
	Precision uint8
	ISO4217   uint16
	Name      string
	Kind      CurrencyKind
}

// Price is a fixed-point price with a declared decimal precision.
type Price struct {
	raw       decimal.Decimal
	precision uint8
}

// NewPrice builds a Price rounded to the given precision.
func NewPrice(value float64, precision uint8) Price {
	return Price{raw: decimal.NewFromFloat(value).Round(int32(precision)), precision: precision}
}

// NewPriceFromDecimal builds a Price from an existing decimal, rounding to precision.
func NewPriceFromDecimal(d decimal.Decimal, precision uint8) Price {
	return Price{raw: d.Round(int32(precision)), precision: precision}
}

// Decimal returns the underlying decimal value.
func (p Price) Decimal() decimal.Decimal { return p.raw }

// Precision returns the declared decimal precision.
func (p Price) Precision() uint8 { return p.precision }

// IsZero reports whether the price is exactly zero.
func (p Price) IsZero() bool { return p.raw.IsZero() }

// String renders the price at its declared precision.
func (p Price) String() string { return p.raw.StringFixed(int32(p.precision)) }

func (p Price) Add(o Price) Price  { return Price{raw: p.raw.Add(o.raw), precision: maxPrec(p.precision, o.precision)} }
func (p Price) Sub(o Price) Price  { return Price{raw: p.raw.Sub(o.raw), precision: maxPrec(p.precision, o.precision)} }
func (p Price) GreaterThan(o Price) bool { return p.raw.GreaterThan(o.raw) }
func (p Price) LessThan(o Price) bool    { return p.raw.LessThan(o.raw) }
func (p Price) GreaterThanOrEqual(o Price) bool { return p.raw.GreaterThanOrEqual(o.raw) }
func (p Price) LessThanOrEqual(o Price) bool    { return p.raw.LessThanOrEqual(o.raw) }
func (p Price) Equal(o Price) bool              { return p.raw.Equal(o.raw) }

func maxPrec(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

// Quantity is a fixed-point size with a declared decimal precision.
type Quantity struct {
	raw       decimal.Decimal
	precision uint8
}

// NewQuantity builds a Quantity rounded to the given precision.
func NewQuantity(value float64, precision uint8) Quantity {
	return Quantity{raw: decimal.NewFromFloat(value).Round(int32(precision)), precision: precision}
}

// NewQuantityFromDecimal builds a Quantity from an existing decimal, rounding to precision.
func NewQuantityFromDecimal(d decimal.Decimal, precision uint8) Quantity {
	return Quantity{raw: d.Round(int32(precision)), precision: precision}
}

func (q Quantity) Decimal() decimal.Decimal { return q.raw }
func (q Quantity) Precision() uint8         { return q.precision }
func (q Quantity) IsZero() bool             { return q.raw.IsZero() }
func (q Quantity) String() string           { return q.raw.StringFixed(int32(q.precision)) }

func (q Quantity) Add(o Quantity) Quantity {
	return Quantity{raw: q.raw.Add(o.raw), precision: maxPrec(q.precision, o.precision)}
}
func (q Quantity) Sub(o Quantity) Quantity {
	return Quantity{raw: q.raw.Sub(o.raw), precision: maxPrec(q.precision, o.precision)}
}
func (q Quantity) GreaterThan(o Quantity) bool         { return q.raw.GreaterThan(o.raw) }
func (q Quantity) LessThan(o Quantity) bool            { return q.raw.LessThan(o.raw) }
func (q Quantity) GreaterThanOrEqual(o Quantity) bool  { return q.raw.GreaterThanOrEqual(o.raw) }
func (q Quantity) LessThanOrEqual(o Quantity) bool     { return q.raw.LessThanOrEqual(o.raw) }
func (q Quantity) Equal(o Quantity) bool               { return q.raw.Equal(o.raw) }

// Money is an amount denominated in a specific currency.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

// NewMoney builds a Money value rounded to the currency's precision.
func NewMoney(amount float64, ccy Currency) Money {
	return Money{Amount: decimal.NewFromFloat(amount).Round(int32(ccy.Precision)), Currency: ccy}
}

// String renders "<amount> <code>" at the currency's precision.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(int32(m.Currency.Precision)), m.Currency.Code)
}

// Add returns m+o; errors if the currencies differ.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency.Code != o.Currency.Code {
		return Money{}, fmt.Errorf("cannot add Money in %s to Money in %s", o.Currency.Code, m.Currency.Code)
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

// Sub returns m-o; errors if the currencies differ.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency.Code != o.Currency.Code {
		return Money{}, fmt.Errorf("cannot subtract Money in %s from Money in %s", o.Currency.Code, m.Currency.Code)
	}
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}, nil
}

// GreaterThan compares two Money values of the same currency.
func (m Money) GreaterThan(o Money) bool { return m.Amount.GreaterThan(o.Amount) }

// LessThan compares two Money values of the same currency.
func (m Money) LessThan(o Money) bool { return m.Amount.LessThan(o.Amount) }

// Negate returns -m.
func (m Money) Negate() Money { return Money{Amount: m.Amount.Neg(), Currency: m.Currency} }
