/*

This file persists periodic reward pool snapshots. A snapshot captures all
four pools at one instant as a single JSONB document, numbered by the
persistent snapshot counter so the series survives restarts.

*/

package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stakeward/stakeward/internal/types"
)

// SavePoolSnapshot persists one point-in-time view of all reward pools under
// the given snapshot number.
func SavePoolSnapshot(snapshotNumber int, takenAt time.Time, pools []types.PoolSnapshot) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	doc, err := json.Marshal(pools)
	if err != nil {
		return fmt.Errorf("failed to marshal pool snapshot: %w", err)
	}

	insertSQL := `
		INSERT INTO pool_snapshots (snapshot_number, snapshot_timestamp, pools)
		VALUES ($1, $2, $3);`

	if _, err := DB.Exec(insertSQL, snapshotNumber, takenAt, doc); err != nil {
		return fmt.Errorf("failed to save pool snapshot: %w", err)
	}

	log.Debug().
		Int("snapshotNumber", snapshotNumber).
		Int("pools", len(pools)).
		Msg("Saved pool snapshot")
	return nil
}

// LatestPoolSnapshot returns the most recent persisted pool snapshot, or
// sql.ErrNoRows wrapped when none exists yet.
func LatestPoolSnapshot() (int, time.Time, []types.PoolSnapshot, error) {
	if DB == nil {
		return 0, time.Time{}, nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT snapshot_number, snapshot_timestamp, pools
		FROM pool_snapshots
		ORDER BY snapshot_number DESC
		LIMIT 1;`

	var (
		number  int
		takenAt time.Time
		doc     []byte
	)
	row := DB.QueryRow(query)
	if err := row.Scan(&number, &takenAt, &doc); err != nil {
		return 0, time.Time{}, nil, fmt.Errorf("failed to load latest pool snapshot: %w", err)
	}

	var pools []types.PoolSnapshot
	if err := json.Unmarshal(doc, &pools); err != nil {
		return 0, time.Time{}, nil, fmt.Errorf("failed to unmarshal pool snapshot: %w", err)
	}
	return number, takenAt, pools, nil
}
