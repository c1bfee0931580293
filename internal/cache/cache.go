// Package cache implements the authoritative in-memory state store
// (component B, spec.md §4.1): instruments, currencies, accounts,
// orders, positions, and market data, backed by the secondary indices
// in internal/cache/index and mirrored to an optional persistence
// adapter on every write.
//
// Performance budget: single-threaded cooperative access only, per
// spec.md §5 — no internal locking is used apart from one mutex around
// the snapshot sequence counter; callers (the matching and risk engines)
// are expected to serialize access through the process's single event
// loop.
package cache

import (
	"context"
	"sync"
	"time"

	cacheindex "github.com/abdoElHodaky/tradsys-core/internal/cache/index"
	"github.com/abdoElHodaky/tradsys-core/internal/persistence"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Config bounds the market-data deques.
type Config struct {
	TickCapacity int
	BarCapacity  int
}

// DefaultConfig returns the teacher-style conservative defaults.
func DefaultConfig() Config {
	return Config{TickCapacity: 1000, BarCapacity: 1000}
}

// Cache is the authoritative in-memory store.
type Cache struct {
	cfg        Config
	logger     *zap.Logger
	persistence persistence.Adapter // nil => no mirroring

	index *cacheindex.Index

	currencies  map[string]types.Currency
	instruments map[types.InstrumentId]*types.Instrument
	accounts    map[types.AccountId]*types.Account
	orders      map[types.ClientOrderId]*types.Order
	positions   map[types.PositionId]*types.Position

	marketData *marketDataStore

	xrates *gocache.Cache

	snapshotSeq  int
	orderSnaps   map[types.ClientOrderId][][]byte
	positionSnaps map[types.PositionId][][]byte

	mu sync.Mutex // guards snapshotSeq only; all other access is single-threaded per spec.md §5
}

// New constructs an empty Cache. adapter may be nil to disable
// persistence mirroring entirely.
func New(cfg Config, adapter persistence.Adapter, logger *zap.Logger) *Cache {
	return &Cache{
		cfg:         cfg,
		logger:      logger,
		persistence: adapter,
		index:       cacheindex.New(),
		currencies:  make(map[string]types.Currency),
		instruments: make(map[types.InstrumentId]*types.Instrument),
		accounts:    make(map[types.AccountId]*types.Account),
		orders:      make(map[types.ClientOrderId]*types.Order),
		positions:   make(map[types.PositionId]*types.Position),
		marketData:  newMarketDataStore(cfg),
		xrates:      gocache.New(0, 0), // no expiry by default; mark rates persist until explicitly cleared
		orderSnaps:  make(map[types.ClientOrderId][][]byte),
		positionSnaps: make(map[types.PositionId][][]byte),
	}
}

// AddCurrency registers a currency. Currencies are created externally
// and registered once, per spec.md §3 lifecycles.
func (c *Cache) AddCurrency(ctx context.Context, ccy types.Currency) {
	c.currencies[ccy.Code] = ccy
	c.mirrorAdd(ctx, func(a persistence.Adapter) error { return a.AddCurrency(ctx, ccy) })
}

// Currency looks up a registered currency by code.
func (c *Cache) Currency(code string) (types.Currency, bool) {
	ccy, ok := c.currencies[code]
	return ccy, ok
}

// AddInstrument registers an instrument.
func (c *Cache) AddInstrument(ctx context.Context, inst *types.Instrument) {
	c.instruments[inst.Id] = inst
	c.mirrorAdd(ctx, func(a persistence.Adapter) error { return a.AddInstrument(ctx, inst) })
}

// Instrument looks up a registered instrument.
func (c *Cache) Instrument(id types.InstrumentId) (*types.Instrument, bool) {
	inst, ok := c.instruments[id]
	return inst, ok
}

// AddAccount registers an account and indexes it under its venue.
func (c *Cache) AddAccount(ctx context.Context, acct *types.Account) {
	c.accounts[acct.Id] = acct
	c.index.AddAccount(acct.Venue, acct.Id)
	c.mirrorAdd(ctx, func(a persistence.Adapter) error { return a.AddAccount(ctx, acct) })
}

// Account looks up an account by id.
func (c *Cache) Account(id types.AccountId) (*types.Account, bool) {
	acct, ok := c.accounts[id]
	return acct, ok
}

// AccountForVenue returns an account registered for a venue, if any.
// When several are registered for the venue, which one is returned is
// not defined.
func (c *Cache) AccountForVenue(venue types.Venue) (*types.Account, bool) {
	for _, acct := range c.accounts {
		if acct.Venue == venue {
			return acct, true
		}
	}
	return nil, false
}

// UpdateAccount mirrors an account update and appends the change as an
// account event. A balance breaking total=locked+free is logged at
// Error level; the update is still applied.
func (c *Cache) UpdateAccount(ctx context.Context, acct *types.Account, reason string, nowNs int64) error {
	for code, bal := range acct.Balances {
		if !bal.Valid() {
			c.logger.Error("account balance invariant violated",
				zap.String("account", string(acct.Id)), zap.String("currency", code))
		}
	}
	acct.ApplyEvent(types.AccountEvent{TsEvent: nowNs, TsInit: nowNs, Reason: reason})
	c.accounts[acct.Id] = acct
	return c.mirrorUpdate(ctx, func(a persistence.Adapter) error { return a.UpdateAccount(ctx, acct) })
}

func (c *Cache) mirrorAdd(ctx context.Context, fn func(persistence.Adapter) error) {
	if c.persistence == nil {
		return
	}
	if err := fn(c.persistence); err != nil {
		c.logger.Warn("persistence add failed, in-memory cache remains authoritative", zap.Error(err))
	}
}

func (c *Cache) mirrorUpdate(ctx context.Context, fn func(persistence.Adapter) error) error {
	if c.persistence == nil {
		return nil
	}
	if err := fn(c.persistence); err != nil {
		c.logger.Warn("persistence update failed, in-memory cache remains authoritative", zap.Error(err))
		return err
	}
	return nil
}

// nowFunc is overridable in tests; production callers should pass explicit
// timestamps rather than rely on wall-clock reads inside the Cache.
var nowFunc = func() int64 { return time.Now().UnixNano() }
