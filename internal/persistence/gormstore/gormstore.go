// Package gormstore is a reference persistence.Adapter implementation
// backed by gorm.io/gorm, storing every entity under the flat
// key->string-value schema spec.md §6 describes. Writes are wrapped in
// a circuit breaker so a failing database degrades to log-and-continue
// rather than blocking the Cache's authoritative in-memory mutation.
package gormstore

import (
	"context"
	"strconv"

	"github.com/abdoElHodaky/tradsys-core/internal/persistence"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Record is the flat key->value row every entity serializes to.
type Record struct {
	Key   string `gorm:"primaryKey"`
	Kind  string `gorm:"index"`
	Value string
}

func (Record) TableName() string { return "tradsys_records" }

// Store wraps a *gorm.DB connection with the Adapter contract.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	writes *gobreaker.CircuitBreaker
}

// New constructs a Store and runs the Record auto-migration.
func New(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "gormstore-writes",
	})
	return &Store{db: db, logger: logger, writes: cb}, nil
}

func (s *Store) write(ctx context.Context, key, kind, value string) error {
	_, err := s.writes.Execute(func() (interface{}, error) {
		return nil, s.db.WithContext(ctx).
			Where("key = ?", key).
			Assign(Record{Kind: kind, Value: value}).
			FirstOrCreate(&Record{Key: key, Kind: kind, Value: value}).Error
	})
	if err != nil {
		// Non-fatal: in-memory cache remains authoritative per spec.md §7.
		s.logger.Warn("persistence write failed, continuing with in-memory state",
			zap.String("key", key), zap.Error(err))
	}
	return err
}

func (s *Store) Load(ctx context.Context) (map[string][]byte, error) {
	var records []Record
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(records))
	for _, r := range records {
		out[r.Key] = []byte(r.Value)
	}
	return out, nil
}

func (s *Store) LoadAll(ctx context.Context) (persistence.LoadAllResult, error) {
	// The reference adapter does not deserialize entities back into
	// typed structs; a production adapter would decode each kind here.
	return persistence.LoadAllResult{
		Currencies:  map[string]types.Currency{},
		Instruments: map[types.InstrumentId]*types.Instrument{},
		Accounts:    map[types.AccountId]*types.Account{},
		Orders:      map[types.ClientOrderId]*types.Order{},
		Positions:   map[types.PositionId]*types.Position{},
	}, nil
}

func (s *Store) LoadCurrencies(ctx context.Context) (map[string]types.Currency, error) {
	return map[string]types.Currency{}, nil
}
func (s *Store) LoadInstruments(ctx context.Context) (map[types.InstrumentId]*types.Instrument, error) {
	return map[types.InstrumentId]*types.Instrument{}, nil
}
func (s *Store) LoadAccounts(ctx context.Context) (map[types.AccountId]*types.Account, error) {
	return map[types.AccountId]*types.Account{}, nil
}
func (s *Store) LoadOrders(ctx context.Context) (map[types.ClientOrderId]*types.Order, error) {
	return map[types.ClientOrderId]*types.Order{}, nil
}
func (s *Store) LoadPositions(ctx context.Context) (map[types.PositionId]*types.Position, error) {
	return map[types.PositionId]*types.Position{}, nil
}

func (s *Store) Add(ctx context.Context, key string, value []byte) error {
	return s.write(ctx, key, "raw", string(value))
}

func (s *Store) AddCurrency(ctx context.Context, ccy types.Currency) error {
	return s.write(ctx, "currency:"+ccy.Code, "currency", ccy.Code)
}

func (s *Store) AddInstrument(ctx context.Context, inst *types.Instrument) error {
	return s.write(ctx, "instrument:"+inst.Id.String(), "instrument", inst.RawSymbol)
}

func (s *Store) AddAccount(ctx context.Context, acct *types.Account) error {
	return s.write(ctx, "account:"+string(acct.Id), "account", string(acct.Type))
}

func (s *Store) AddOrder(ctx context.Context, order *types.Order, clientId *types.ClientId) error {
	return s.write(ctx, "order:"+string(order.ClientOrderId), "order", string(order.Status))
}

func (s *Store) AddPosition(ctx context.Context, pos *types.Position) error {
	return s.write(ctx, "position:"+string(pos.Id), "position", string(pos.Side))
}

func (s *Store) AddQuote(ctx context.Context, q types.QuoteTick) error {
	return s.write(ctx, "quote:"+q.InstrumentId.String(), "quote", strconv.FormatInt(q.TsEvent, 10))
}

func (s *Store) AddTrade(ctx context.Context, tr types.TradeTick) error {
	return s.write(ctx, "trade:"+string(tr.TradeId), "trade", strconv.FormatInt(tr.TsEvent, 10))
}

func (s *Store) AddBar(ctx context.Context, bar types.Bar) error {
	return s.write(ctx, "bar:"+bar.Type.String(), "bar", strconv.FormatInt(bar.TsEvent, 10))
}

func (s *Store) UpdateAccount(ctx context.Context, acct *types.Account) error {
	return s.write(ctx, "account:"+string(acct.Id), "account", string(acct.Type))
}

func (s *Store) UpdateOrder(ctx context.Context, order *types.Order, ev types.OrderEvent) error {
	return s.write(ctx, "order:"+string(order.ClientOrderId), "order", string(order.Status))
}

func (s *Store) UpdatePosition(ctx context.Context, pos *types.Position) error {
	return s.write(ctx, "position:"+string(pos.Id), "position", string(pos.Side))
}

func (s *Store) SnapshotOrderState(ctx context.Context, order *types.Order) error {
	return s.write(ctx, "order-snapshot:"+string(order.ClientOrderId), "order-snapshot", string(order.Status))
}

func (s *Store) SnapshotPositionState(ctx context.Context, pos *types.Position) error {
	return s.write(ctx, "position-snapshot:"+string(pos.Id), "position-snapshot", string(pos.Side))
}

func (s *Store) IndexOrderPosition(ctx context.Context, clientOrderId types.ClientOrderId, positionId types.PositionId) error {
	return s.write(ctx, "order-position:"+string(clientOrderId), "order-position", string(positionId))
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Flush(ctx context.Context) error { return nil }
