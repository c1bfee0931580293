// Command tradsys-core wires the cache, risk engine, matching engine
// manager, and the reference persistence/bus adapters together. It
// carries no trading logic of its own: every decision is made inside
// internal/cache, internal/risk, and internal/matching.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdoElHodaky/tradsys-core/internal/book"
	"github.com/abdoElHodaky/tradsys-core/internal/bus"
	"github.com/abdoElHodaky/tradsys-core/internal/bus/watermillbus"
	"github.com/abdoElHodaky/tradsys-core/internal/cache"
	"github.com/abdoElHodaky/tradsys-core/internal/config"
	"github.com/abdoElHodaky/tradsys-core/internal/matching/engine"
	"github.com/abdoElHodaky/tradsys-core/internal/matching/manager"
	"github.com/abdoElHodaky/tradsys-core/internal/persistence"
	"github.com/abdoElHodaky/tradsys-core/internal/persistence/gormstore"
	"github.com/abdoElHodaky/tradsys-core/internal/risk"
	"github.com/abdoElHodaky/tradsys-core/internal/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "tradsys-core",
		Short: "simulated matching engine and pre-trade risk gate",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a config file (TRADSYS_ env overrides always apply)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("construct logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	adapter, err := buildPersistenceAdapter(cfg, logger)
	if err != nil {
		return fmt.Errorf("build persistence adapter: %w", err)
	}

	busImpl, err := buildBus(cfg, logger)
	if err != nil {
		return fmt.Errorf("build bus: %w", err)
	}

	c := cache.New(cache.Config{TickCapacity: cfg.Cache.TickCapacity, BarCapacity: cfg.Cache.BarCapacity}, adapter, logger)

	riskCfg := risk.Config{
		Debug:               cfg.Risk.Debug,
		Bypass:              cfg.Risk.Bypass,
		MaxOrderSubmitRate:  float64(cfg.Risk.MaxOrderSubmitPerSec),
		MaxOrderSubmitBurst: cfg.Risk.MaxOrderSubmitPerSec,
		MaxOrderModifyRate:  float64(cfg.Risk.MaxOrderModifyPerSec),
		MaxOrderModifyBurst: cfg.Risk.MaxOrderModifyPerSec,
	}
	riskEngine := risk.New(riskCfg, c, busImpl, logger)
	for symbol, limit := range cfg.Risk.MaxNotionalPerOrder {
		riskEngine.SetMaxNotionalPerOrder(types.InstrumentId{Symbol: symbol}, decimal.NewFromFloat(limit))
	}

	mgr, err := manager.New(runtimeWorkerCount(), logger)
	if err != nil {
		return fmt.Errorf("build matching manager: %w", err)
	}
	defer mgr.Release()

	logger.Info("tradsys-core ready",
		zap.Bool("risk_bypass", riskCfg.Bypass),
		zap.Bool("persistence_enabled", adapter != nil),
		zap.Bool("bus_enabled", busImpl != nil),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("tradsys-core shutting down")
	return nil
}

// buildPersistenceAdapter returns a gormstore-backed adapter when a DSN
// is configured, or nil (in-memory only) otherwise.
func buildPersistenceAdapter(cfg *config.Config, logger *zap.Logger) (persistence.Adapter, error) {
	if cfg.Persistence.DSN == "" {
		return nil, nil
	}
	db, err := gorm.Open(postgres.Open(cfg.Persistence.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gormstore.New(db, logger)
}

// buildBus returns a watermill/NATS-backed bus when a URL is
// configured, or nil (events stay local) otherwise.
func buildBus(cfg *config.Config, logger *zap.Logger) (bus.Bus, error) {
	if cfg.Bus.NatsURL == "" {
		return nil, nil
	}
	return watermillbus.New(watermillbus.Config{URL: cfg.Bus.NatsURL}, logger)
}

func runtimeWorkerCount() int {
	n := 4
	if envN := os.Getenv("TRADSYS_WORKER_COUNT"); envN != "" {
		if parsed, err := parsePositiveInt(envN); err == nil {
			n = parsed
		}
	}
	return n
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid positive integer: %s", s)
	}
	return n, nil
}

// newReferenceEngine stands up one simulated (venue, instrument) engine
// against the shared cache, with the bundled in-memory book and no
// fee/slippage model — the shape an operator wires per instrument once
// real instrument definitions are loaded.
func newReferenceEngine(instrument *types.Instrument, c *cache.Cache, busImpl bus.Bus, venue types.Venue, accountType types.AccountType, logger *zap.Logger) *engine.Engine {
	b := book.NewMemoryBook(book.BookTypeL2MBP)
	cfg := engine.Config{Venue: venue, OmsType: cache.OmsTypeNetting, AccountType: accountType, BookType: book.BookTypeL2MBP}
	return engine.New(cfg, instrument, c, b, busImpl, nil, nil, logger)
}
