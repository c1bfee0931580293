// Package persistence defines the async load/persist contract the
// Cache mirrors writes to (component G, spec.md §6). The Cache's
// in-memory state remains authoritative; persistence failures never
// block a caller on the hot path.
package persistence

import (
	"context"

	"github.com/abdoElHodaky/tradsys-core/internal/types"
)

// LoadAllResult groups every entity kind load_all returns.
type LoadAllResult struct {
	Currencies  map[string]types.Currency
	Instruments map[types.InstrumentId]*types.Instrument
	Accounts    map[types.AccountId]*types.Account
	Orders      map[types.ClientOrderId]*types.Order
	Positions   map[types.PositionId]*types.Position
}

// Adapter is the persistence contract the Cache consumes. Every method
// may fail; failures on the write path are logged and do not unwind
// the in-memory mutation that already happened.
type Adapter interface {
	Load(ctx context.Context) (map[string][]byte, error)
	LoadAll(ctx context.Context) (LoadAllResult, error)
	LoadCurrencies(ctx context.Context) (map[string]types.Currency, error)
	LoadInstruments(ctx context.Context) (map[types.InstrumentId]*types.Instrument, error)
	LoadAccounts(ctx context.Context) (map[types.AccountId]*types.Account, error)
	LoadOrders(ctx context.Context) (map[types.ClientOrderId]*types.Order, error)
	LoadPositions(ctx context.Context) (map[types.PositionId]*types.Position, error)

	Add(ctx context.Context, key string, value []byte) error
	AddCurrency(ctx context.Context, ccy types.Currency) error
	AddInstrument(ctx context.Context, inst *types.Instrument) error
	AddAccount(ctx context.Context, acct *types.Account) error
	AddOrder(ctx context.Context, order *types.Order, clientId *types.ClientId) error
	AddPosition(ctx context.Context, pos *types.Position) error
	AddQuote(ctx context.Context, q types.QuoteTick) error
	AddTrade(ctx context.Context, tr types.TradeTick) error
	AddBar(ctx context.Context, bar types.Bar) error

	UpdateAccount(ctx context.Context, acct *types.Account) error
	UpdateOrder(ctx context.Context, order *types.Order, ev types.OrderEvent) error
	UpdatePosition(ctx context.Context, pos *types.Position) error

	SnapshotOrderState(ctx context.Context, order *types.Order) error
	SnapshotPositionState(ctx context.Context, pos *types.Position) error
	IndexOrderPosition(ctx context.Context, clientOrderId types.ClientOrderId, positionId types.PositionId) error

	Close(ctx context.Context) error
	Flush(ctx context.Context) error
}
