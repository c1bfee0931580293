package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountType enumerates account kinds.
type AccountType string

const (
	AccountTypeCash    AccountType = "CASH"
	AccountTypeMargin  AccountType = "MARGIN"
	AccountTypeBetting AccountType = "BETTING"
)

// Balance is a (total, locked, free) triple for one currency. The
// invariant total = locked + free must hold after every update.
type Balance struct {
	Total  decimal.Decimal
	Locked decimal.Decimal
	Free   decimal.Decimal
}

// Valid reports whether Total == Locked + Free.
func (b Balance) Valid() bool {
	return b.Total.Equal(b.Locked.Add(b.Free))
}

// MarginBalance tracks initial/maintenance margin for one instrument on
// a margin account.
type MarginBalance struct {
	Initial     decimal.Decimal
	Maintenance decimal.Decimal
}

// AccountEvent records a state change (balance or margin update).
type AccountEvent struct {
	EventId string
	TsEvent int64
	TsInit  int64
	Reason  string
}

// Account is the authoritative balance/margin state for one AccountId.
type Account struct {
	Id            AccountId
	Type          AccountType
	BaseCurrency  *Currency // nil => multi-currency
	Venue         Venue

	Balances       map[string]Balance        // currency code -> balance
	MarginBalances map[string]MarginBalance  // instrument symbol -> margin balance

	Events []AccountEvent
}

// IsMultiCurrency reports whether the account has no base currency.
func (a *Account) IsMultiCurrency() bool { return a.BaseCurrency == nil }

// Balance returns the balance for a currency code, and whether it exists.
func (a *Account) Balance(code string) (Balance, bool) {
	b, ok := a.Balances[code]
	return b, ok
}

// Free returns the free amount for a currency code (zero if absent).
func (a *Account) Free(code string) decimal.Decimal {
	if b, ok := a.Balances[code]; ok {
		return b.Free
	}
	return decimal.Zero
}

// SetBalance assigns (and validates) the balance for a currency code.
func (a *Account) SetBalance(code string, b Balance) error {
	if !b.Valid() {
		return fmt.Errorf("balance for %s violates total = locked + free", code)
	}
	if a.Balances == nil {
		a.Balances = make(map[string]Balance)
	}
	a.Balances[code] = b
	return nil
}

// ApplyEvent appends an account event to the log.
func (a *Account) ApplyEvent(ev AccountEvent) {
	a.Events = append(a.Events, ev)
}
