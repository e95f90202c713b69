package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuzvak/pdv-service/internal/application/commands"
	"github.com/yuzvak/pdv-service/internal/application/ports"
	appschema "github.com/yuzvak/pdv-service/internal/application/schema"
	"github.com/yuzvak/pdv-service/internal/application/use_cases"
	"github.com/yuzvak/pdv-service/internal/config"
	"github.com/yuzvak/pdv-service/internal/infrastructure/http/handlers"
	"github.com/yuzvak/pdv-service/internal/infrastructure/http/server"
	"github.com/yuzvak/pdv-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/pdv-service/internal/infrastructure/persistence/postgres"
	"github.com/yuzvak/pdv-service/internal/infrastructure/persistence/redis"
	"github.com/yuzvak/pdv-service/internal/infrastructure/scheduler"
	"github.com/yuzvak/pdv-service/internal/infrastructure/tracing"
	"github.com/yuzvak/pdv-service/internal/pkg/clock"
	"github.com/yuzvak/pdv-service/internal/pkg/dberr"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file (.yaml or .json)")
	flag.Parse()

	bootLog := logger.NewLogger()

	cfg, configErr := config.LoadConfig(*configPath)
	if configErr != nil {
		bootLog.Fatal("Failed to load configuration", "error", configErr)
	}

	log := logger.New(os.Stdout, cfg.Log.Level)
	log.Info("Starting PDV service", "config", *configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, tracingErr := tracing.Init(ctx, cfg.Tracing)
	if tracingErr != nil {
		log.Fatal("Failed to initialise tracing", "error", tracingErr)
	}

	clk := clock.NewRealClock()
	reporter := dberr.NewReporter(log, clk, dberr.Target{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.DBName,
	}, dberr.DefaultCooldown)

	db, dbErr := postgres.NewConnection(ctx, cfg.Database)
	if dbErr != nil {
		reporter.Report(dbErr, "startup")
		log.Fatal("Failed to connect to database", "error", dbErr)
	}
	defer db.Close()

	if migrationErr := postgres.RunMigrations(ctx, db, cfg.Database.MigrationsPath, log); migrationErr != nil {
		log.Fatal("Failed to run migrations", "error", migrationErr)
	}

	var productCache ports.ProductCache
	var redisPinger handlers.Pinger
	if cfg.Redis.Enabled() {
		redisConn, err := redis.NewConnection(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, product cache disabled", "error", err, "addr", cfg.Redis.Addr())
		} else {
			defer redisConn.Close()
			productCache = redis.NewProductCache(redisConn, cfg.Redis.CacheTTL.Duration)
			redisPinger = redisConn
		}
	}

	prober := appschema.NewProber(log, clk, cfg.Schema.CacheTTL.Duration)

	finalizeSale := use_cases.NewFinalizeSaleUseCase(
		postgres.NewSaleStore(db),
		prober,
		productCache,
		tracer.Tracer(),
		log,
		use_cases.SaleOptions{
			Timeout:  cfg.Sales.Timeout.Duration,
			LockRows: cfg.Sales.LockRows,
		},
	)
	productUseCase := use_cases.NewProductUseCase(
		postgres.NewProductRepository(db),
		productCache,
		log,
		use_cases.CatalogLimits{
			DefaultLimit: cfg.Catalog.DefaultLimit,
			MaxLimit:     cfg.Catalog.MaxLimit,
		},
	)

	httpServer := server.NewServer(cfg.Server, server.Handlers{
		Health:   handlers.NewHealthHandler(db, redisPinger, reporter, cfg.Database.Info(), log),
		Sales:    handlers.NewSaleHandler(commands.NewFinalizeSaleHandler(finalizeSale, log), log),
		Products: handlers.NewProductHandler(productUseCase, log),
	}, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(httpServer.ListenAndServe)

	g.Go(func() error {
		return monitoring.NewDBMetricsCollector(db.GetDB()).Run(gctx, 15*time.Second)
	})

	if prober.Caching() {
		refresher := scheduler.NewSchemaRefreshScheduler(prober, postgres.NewCatalog(db), log, cfg.Schema.RefreshInterval.Duration)
		g.Go(func() error { return refresher.Run(gctx) })
	}

	var metricsServer *monitoring.MetricsServer
	if cfg.Server.MetricsPort != 0 {
		metricsServer = monitoring.NewMetricsServer(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort))
		g.Go(metricsServer.Start)
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				log.Error("Metrics server shutdown error", "error", err)
			}
		}
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Error("Tracer shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server failed", "error", err)
		db.Close()
		os.Exit(1)
	}

	log.Info("Server stopped")
}
