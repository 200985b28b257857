package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment
// variables. These are populated at startup by the LoadConfig function.
var (
	// OwnerPrincipal is the identity allowed to call the administrative
	// surface (pause/unpause, pool funding, reward notification).
	OwnerPrincipal string
	// VaultAddress is the ledger's own account with the token collaborator;
	// token deposits are pulled into it and payouts are sent from it.
	VaultAddress string
	// AdminToken is the bearer token required by the admin HTTP endpoints.
	AdminToken string

	// OracleFeedURL is the HTTP endpoint of the price collaborator.
	OracleFeedURL string
	// SettlementURL is the HTTP endpoint of the transfer collaborator used
	// for token and native settlement.
	SettlementURL string

	// KeeperCron is the cron schedule on which the keeper runs its upkeep
	// check.
	KeeperCron string
	// SnapshotInterval is how often pool snapshots are persisted.
	SnapshotInterval time.Duration
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. The collaborator endpoints and identities are required;
// the operational knobs fall back to sane defaults.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	OwnerPrincipal, err = getEnv("OWNER_PRINCIPAL")
	if err != nil {
		return err
	}

	VaultAddress, err = getEnv("VAULT_ADDRESS")
	if err != nil {
		return err
	}

	AdminToken, err = getEnv("ADMIN_TOKEN")
	if err != nil {
		return err
	}

	OracleFeedURL, err = getEnv("ORACLE_FEED_URL")
	if err != nil {
		return err
	}

	SettlementURL, err = getEnv("SETTLEMENT_URL")
	if err != nil {
		return err
	}

	KeeperCron = getEnvWithDefault("KEEPER_CRON", "0 */5 * * * *")

	SnapshotInterval, err = getEnvAsDuration("SNAPSHOT_INTERVAL", 10*time.Minute)
	if err != nil {
		return err
	}

	log.Debug().
		Str("OwnerPrincipal", OwnerPrincipal).
		Str("VaultAddress", VaultAddress).
		Str("OracleFeedURL", OracleFeedURL).
		Str("KeeperCron", KeeperCron).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvWithDefault retrieves a string environment variable, falling back to
// the given default when unset.
func getEnvWithDefault(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration,
// falling back to the given default when unset.
func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt64 retrieves an environment variable as an int64, falling back
// to the given default when unset.
func getEnvAsInt64(key string, fallback int64) (int64, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}
