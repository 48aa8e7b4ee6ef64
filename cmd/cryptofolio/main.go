package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/smokinadvd/crypto-portfolios/internal/builder"
	"github.com/smokinadvd/crypto-portfolios/internal/config"
	"github.com/smokinadvd/crypto-portfolios/internal/database"
	"github.com/smokinadvd/crypto-portfolios/internal/domain"
	"github.com/smokinadvd/crypto-portfolios/internal/market"
	"github.com/smokinadvd/crypto-portfolios/internal/registry"
	"github.com/smokinadvd/crypto-portfolios/internal/report"
	"github.com/smokinadvd/crypto-portfolios/internal/schedule"
	"github.com/smokinadvd/crypto-portfolios/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	app := &cli.App{
		Name:  "cryptofolio",
		Usage: "builds crypto portfolios on a schedule and tracks their returns",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the creation and snapshot workers until interrupted",
				Action: runCommand,
			},
			{
				Name:   "create",
				Usage:  "run a single portfolio creation cycle",
				Action: createCommand,
			},
			{
				Name:      "export",
				Usage:     "re-emit the report for one portfolio, or all",
				ArgsUsage: "[portfolio-id]",
				Action:    exportCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// deps wires the services shared by every command.
type deps struct {
	cfg      config.Config
	pool     *pgxpool.Pool
	registry registry.Registry
	sink     report.Sink
	builder  *builder.Service
	schedule *schedule.Service
}

func setup(ctx context.Context) (*deps, error) {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	sink, err := newSink(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	coingecko := market.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoMinSpacing, cfg.CoinGeckoRetryDelay, cfg.CoinGeckoRetryMax)
	reg := registry.NewPgRegistry(pool)

	buildSvc := builder.NewService(coingecko, coingecko, reg, sink, builder.Config{
		Category:       cfg.Category,
		MinMarketCap:   cfg.MinMarketCap,
		CandidateLimit: cfg.CandidateLimit,
		MinPoolSize:    cfg.MinPoolSize,
		PortfolioSize:  cfg.PortfolioSize,
		MaxPortfolios:  cfg.MaxPortfolios,
		Indexes:        indexSpecs(cfg),
	})
	scheduleSvc := schedule.NewService(coingecko, reg, sink, cfg.SnapshotInterval)

	return &deps{
		cfg:      cfg,
		pool:     pool,
		registry: reg,
		sink:     sink,
		builder:  buildSvc,
		schedule: scheduleSvc,
	}, nil
}

func (d *deps) close() {
	d.pool.Close()
}

func newSink(ctx context.Context, cfg config.Config) (report.Sink, error) {
	switch {
	case cfg.SpreadsheetID != "" && cfg.CredentialsJSON != "":
		return report.NewSheetsSink(ctx, cfg.SpreadsheetID, cfg.CredentialsJSON)
	case cfg.XLSXPath != "":
		return report.NewXLSXSink(cfg.XLSXPath), nil
	default:
		slog.Warn("no report destination configured, reports are discarded")
		return report.NullSink{}, nil
	}
}

func indexSpecs(cfg config.Config) []builder.IndexSpec {
	specs := make([]builder.IndexSpec, len(cfg.Indexes))
	for i, ix := range cfg.Indexes {
		specs[i] = builder.IndexSpec{Name: ix.Name, Symbol: ix.Symbol}
	}
	return specs
}

func runCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	creationWorker := worker.NewCreationWorker(d.builder, d.cfg.CreateInterval)
	go creationWorker.Run(ctx)

	snapshotWorker := worker.NewSnapshotWorker(d.registry, d.schedule, d.cfg.PollInterval)
	go snapshotWorker.Run(ctx)

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

func createCommand(c *cli.Context) error {
	d, err := setup(c.Context)
	if err != nil {
		return err
	}
	defer d.close()

	p, err := d.builder.CreateCycle(c.Context)
	switch {
	case err == nil:
		fmt.Printf("created portfolio %s with %d assets\n", p.ID(), len(p.Holdings))
		return nil
	case errors.Is(err, builder.ErrInsufficientCandidates),
		errors.Is(err, builder.ErrPortfolioCapReached),
		errors.Is(err, builder.ErrAlreadyCreated):
		fmt.Printf("cycle skipped: %v\n", err)
		return nil
	default:
		return err
	}
}

func exportCommand(c *cli.Context) error {
	d, err := setup(c.Context)
	if err != nil {
		return err
	}
	defer d.close()

	portfolios, err := d.listTargets(c)
	if err != nil {
		return err
	}

	for _, p := range portfolios {
		assets, indexes := report.BuildRows(p)
		if err := d.sink.UpsertPortfolioReport(c.Context, p.ID(), assets, indexes); err != nil {
			return fmt.Errorf("exporting %s: %w", p.ID(), err)
		}
		fmt.Printf("exported portfolio %s (%d snapshots)\n", p.ID(), p.SnapshotCount())
	}
	return nil
}

func (d *deps) listTargets(c *cli.Context) ([]*domain.Portfolio, error) {
	if id := c.Args().First(); id != "" {
		p, err := d.registry.Get(c.Context, id)
		if err != nil {
			return nil, err
		}
		return []*domain.Portfolio{p}, nil
	}
	return d.registry.List(c.Context)
}
