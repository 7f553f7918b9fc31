// Package main is the entry point for the portfolio risk engine.
// The service stores positions and daily prices in SQLite, syncs prices from
// Stooq on a schedule, and serves on-demand risk reports (VaR, volatility,
// correlation, benchmarks, stress tests) over a REST API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vekfolio/riskengine/internal/clientdata"
	"github.com/vekfolio/riskengine/internal/clients/stooq"
	"github.com/vekfolio/riskengine/internal/config"
	"github.com/vekfolio/riskengine/internal/database"
	"github.com/vekfolio/riskengine/internal/events"
	"github.com/vekfolio/riskengine/internal/marketdata"
	"github.com/vekfolio/riskengine/internal/portfolio"
	"github.com/vekfolio/riskengine/internal/reliability"
	"github.com/vekfolio/riskengine/internal/risk"
	"github.com/vekfolio/riskengine/internal/scheduler"
	"github.com/vekfolio/riskengine/internal/server"
	"github.com/vekfolio/riskengine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting risk engine")

	// Three-database layout: positions, daily prices, and the API response
	// cache live in separate files so each can be tuned and backed up on its
	// own terms.
	portfolioDB, err := openDatabase(cfg.DataDir, "portfolio", database.ProfileStandard)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	historyDB, err := openDatabase(cfg.DataDir, "history", database.ProfileStandard)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := openDatabase(cfg.DataDir, "cache", database.ProfileCache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	databases := map[string]*database.DB{
		"portfolio": portfolioDB,
		"history":   historyDB,
		"cache":     cacheDB,
	}

	positions := portfolio.NewRepository(portfolioDB.Conn(), log)
	prices := marketdata.NewRepository(historyDB.Conn(), log)
	cache := clientdata.NewRepository(cacheDB.Conn())

	bus := events.NewBus(log)
	engine := risk.NewEngine(log)
	priceProvider := stooq.New(cfg.PriceProviderURL, cache, log)
	syncJob := marketdata.NewSyncJob(positions, prices, priceProvider, bus, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.PriceSyncSpec, syncJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register price sync job")
	}
	if err := sched.AddJob("@hourly", clientdata.NewCleanupJob(cache, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}
	if err := sched.AddJob("0 0 4 * * *", reliability.NewMaintenanceJob(databases, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	if cfg.Backup != nil && cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup client")
		}
		backupService := reliability.NewBackupService(s3Client, databases, cfg.DataDir, log)
		backupJob := reliability.NewBackupJob(backupService, bus, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob(cfg.Backup.Spec, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Backups enabled")
	} else {
		log.Info().Msg("Backups disabled, no bucket configured")
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:         log,
		Config:      cfg,
		PortfolioDB: portfolioDB,
		HistoryDB:   historyDB,
		CacheDB:     cacheDB,
		Engine:      engine,
		Positions:   positions,
		Prices:      prices,
		SyncJob:     syncJob,
		Jobs:        sched,
		Bus:         bus,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func openDatabase(dataDir, name string, profile database.DatabaseProfile) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
