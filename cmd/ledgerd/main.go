package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/harborerp/ledger-core/internal/app"
	"github.com/harborerp/ledger-core/internal/coa"
	"github.com/harborerp/ledger-core/internal/depreciation"
	"github.com/harborerp/ledger-core/internal/events/kafka"
	"github.com/harborerp/ledger-core/internal/journal"
	"github.com/harborerp/ledger-core/internal/ledger"
	"github.com/harborerp/ledger-core/internal/platform/cache"
	"github.com/harborerp/ledger-core/internal/platform/db"
	"github.com/harborerp/ledger-core/internal/reports"
	"github.com/harborerp/ledger-core/internal/settlement"
	"github.com/harborerp/ledger-core/internal/shared"
	"github.com/harborerp/ledger-core/jobs"
)

// postedEvents fans a posted voucher out to Kafka and drops stale cached
// reports, in that order so consumers never see a cache newer than the event.
type postedEvents struct {
	publisher *kafka.Publisher
	cache     *reports.Cache
}

func (e postedEvents) PublishVoucherPosted(ctx context.Context, event ledger.VoucherPostedEvent) error {
	err := e.publisher.PublishVoucherPosted(ctx, event)
	if bumpErr := e.cache.Bump(ctx); err == nil {
		err = bumpErr
	}
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	publisher := kafka.NewPublisher(cfg.KafkaBrokerList())
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("kafka close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)

	reportsRepo := reports.NewRepository(dbpool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reportsRepo, reportsCache)
	reportsHandler := reports.NewHandler(logger, reportsService)

	accountsRepo := coa.NewRepository(dbpool)
	accountsService := coa.NewService(accountsRepo, auditLogger)
	accountsHandler := coa.NewHandler(logger, accountsService)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger, postedEvents{publisher: publisher, cache: reportsCache})
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	journalRepo := journal.NewRepository(dbpool)
	journalService := journal.NewService(journalRepo, ledgerService, auditLogger)
	journalHandler := journal.NewHandler(logger, journalService)

	settlementRepo := settlement.NewRepository(dbpool)
	settlementService := settlement.NewService(settlementRepo, auditLogger)
	settlementHandler := settlement.NewHandler(logger, settlementService)

	depreciationRepo := depreciation.NewRepository(dbpool)
	depreciationService := depreciation.NewService(depreciationRepo, ledgerService, auditLogger)
	depreciationHandler := depreciation.NewHandler(logger, depreciationService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		AccountsHandler:     accountsHandler,
		LedgerHandler:       ledgerHandler,
		JournalHandler:      journalHandler,
		SettlementHandler:   settlementHandler,
		DepreciationHandler: depreciationHandler,
		ReportsHandler:      reportsHandler,
		JobsHandler:         jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
