// Package engine implements the simulated venue matching engine
// (component E): one instance per (venue, instrument), driving the
// shared Cache, an order Book, and a Matching Core to process market
// data and trading commands and emit order events onto the bus.
package engine

import (
	"context"

	"github.com/abdoElHodaky/tradsys-core/internal/book"
	"github.com/abdoElHodaky/tradsys-core/internal/bus"
	"github.com/abdoElHodaky/tradsys-core/internal/cache"
	matchingcore "github.com/abdoElHodaky/tradsys-core/internal/matching/core"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"go.uber.org/zap"
)

// FeeModel computes the commission owed on a fill.
type FeeModel interface {
	Commission(instrument *types.Instrument, lastQty types.Quantity, lastPx types.Price, liquidity types.LiquiditySide) types.Money
}

// FillModel perturbs a simulated fill price to emulate slippage; the
// reference model is a no-op (exact price).
type FillModel interface {
	Slip(instrument *types.Instrument, side types.OrderSide, price types.Price) types.Price
}

// Config configures one Engine instance.
type Config struct {
	Venue          types.Venue
	OmsType        cache.OmsType
	AccountType    types.AccountType
	BookType       book.BookType
	RejectStopOrders bool
	ReduceOnly     bool
	BarExecution   bool
}

// Engine is one per-(venue,instrument) simulated matching engine.
type Engine struct {
	cfg        Config
	instrument *types.Instrument
	logger     *zap.Logger

	cache *cache.Cache
	book  book.Book
	core  *matchingcore.Core
	bus   bus.Bus

	feeModel  FeeModel
	fillModel FillModel
	ids       *IdsGenerator

	status types.MarketStatus

	// transient target-price overrides used during fill simulation to
	// avoid anachronistic "crossed" fills against the book's resting
	// state; always reset at the end of iterate().
	targetBid *types.Price
	targetAsk *types.Price
	targetLast *types.Price

	execBarType   *types.BarType
	lastBidBar    *types.Bar
	lastAskBar    *types.Bar

	// cachedFilled deduplicates event application across repeated fill
	// legs within a single apply_fills call.
	cachedFilled map[types.ClientOrderId]types.Quantity
}

// New constructs an Engine for one instrument on one venue.
func New(cfg Config, instrument *types.Instrument, c *cache.Cache, b book.Book, busImpl bus.Bus, feeModel FeeModel, fillModel FillModel, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:          cfg,
		instrument:   instrument,
		logger:       logger,
		cache:        c,
		book:         b,
		core:         matchingcore.New(cfg.Venue, instrument.Id),
		bus:          busImpl,
		feeModel:     feeModel,
		fillModel:    fillModel,
		ids:          NewIdsGenerator(cfg.OmsType),
		status:       types.MarketStatusClosed,
		cachedFilled: make(map[types.ClientOrderId]types.Quantity),
	}
}

// Status returns the engine's current market status.
func (e *Engine) Status() types.MarketStatus { return e.status }

func (e *Engine) publishEvent(ev types.OrderEvent) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Send(context.Background(), bus.EndpointExecEngineProcess, ev); err != nil {
		e.logger.Warn("failed to publish order event", zap.Error(err), zap.String("kind", string(ev.Kind)))
	}
}

func (e *Engine) bidPriceOrOverride() (types.Price, bool) {
	if e.targetBid != nil {
		return *e.targetBid, true
	}
	return e.core.Bid()
}

func (e *Engine) askPriceOrOverride() (types.Price, bool) {
	if e.targetAsk != nil {
		return *e.targetAsk, true
	}
	return e.core.Ask()
}
