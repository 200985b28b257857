package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/stakeward/stakeward/internal/config"
	"github.com/stakeward/stakeward/internal/keeper"
	"github.com/stakeward/stakeward/internal/ledger"
	"github.com/stakeward/stakeward/internal/logger"
	"github.com/stakeward/stakeward/internal/oracle"
	"github.com/stakeward/stakeward/internal/settlement"
	"github.com/stakeward/stakeward/internal/state"
	"github.com/stakeward/stakeward/internal/web"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the staking ledger service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if logPath := os.Getenv("LOG_FILE"); logPath != "" {
		fileWriter, err := logger.FileWriter(logPath)
		if err != nil {
			logger.Initialize(os.Getenv("LOG_LEVEL"))
			log.Warn().Err(err).Str("path", logPath).Msg("Could not open log file, console only")
		} else {
			logger.Initialize(os.Getenv("LOG_LEVEL"), fileWriter)
		}
	} else {
		logger.Initialize(os.Getenv("LOG_LEVEL"))
	}
	log.Info().Msg("Staking ledger service starting...")

	bounds, err := config.LoadBounds()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load deposit and stake bounds")
	}

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Collaborator Initialization ---
	feed := oracle.NewFeedClient(config.OracleFeedURL)
	priceKeeper := keeper.New(feed, nil)

	// Prime the price cache before any conversion can run.
	primeCtx, cancelPrime := context.WithTimeout(context.Background(), 60*time.Second)
	if err := priceKeeper.PerformUpkeep(primeCtx); err != nil {
		cancelPrime()
		log.Fatal().Err(err).Msg("Cannot start without an initial price reading")
	}
	cancelPrime()

	settlementClient := settlement.NewClient(config.SettlementURL, config.VaultAddress)

	// --- 3. Create Ledger Instance with Dependency Injection ---
	ledgerInstance, err := ledger.New(ledger.Config{
		Owner:        config.OwnerPrincipal,
		VaultAddress: config.VaultAddress,
		Bounds:       bounds,
		PriceSource:  priceKeeper,
		Token:        settlementClient.Token(),
		Native:       settlementClient.Native(),
		Recorder:     state.NewPGRecorder(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger instance")
	}
	log.Info().Msg("Ledger instance created successfully")

	// --- 4. Keeper Schedule ---
	scheduler := cron.New(cron.WithSeconds())
	if _, err := priceKeeper.Register(scheduler, config.KeeperCron); err != nil {
		log.Fatal().Err(err).Msg("Failed to register keeper upkeep task")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// --- 5. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, ledgerInstance)
	go func() {
		log.Info().Str("port", webPort).Msg("Starting ledger API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 6. Snapshot Loop ---
	log.Info().Str("interval", config.SnapshotInterval.String()).Msg("Starting pool snapshot loop")
	runSnapshotLoop(context.Background(), ledgerInstance, config.SnapshotInterval)
}

// runSnapshotLoop persists a numbered snapshot of all reward pools on every
// tick. It runs until the context is cancelled.
func runSnapshotLoop(ctx context.Context, l *ledger.Ledger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Snapshot loop stopped")
			return
		case <-ticker.C:
			pools, err := l.PoolSnapshots()
			if err != nil {
				log.Error().Err(err).Msg("Failed to read pool snapshots")
				continue
			}
			number, err := state.IncrementSnapshotNumber()
			if err != nil {
				log.Error().Err(err).Msg("Failed to advance snapshot counter")
				continue
			}
			if err := state.SavePoolSnapshot(number, l.Now(), pools); err != nil {
				log.Error().Err(err).Msg("Failed to persist pool snapshot")
				continue
			}
			log.Debug().Int("snapshotNumber", number).Msg("Pool snapshot persisted")
		}
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
