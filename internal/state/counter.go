/*

This file manages the persistent global snapshot counter. The counter is
stored in the database so snapshot numbering stays continuous across
restarts.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// GetCurrentSnapshotNumber retrieves the current snapshot number from the
// database.
func GetCurrentSnapshotNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `SELECT current_snapshot FROM snapshot_counter WHERE id = 1;`

	var current int
	row := DB.QueryRow(query)
	err := row.Scan(&current)

	if err != nil {
		if err == sql.ErrNoRows {
			// Should not happen: EnsureSchema inserts the initial row.
			log.Warn().Msg("No snapshot counter row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current snapshot number: %w", err)
	}

	return current, nil
}

// IncrementSnapshotNumber increments the snapshot counter and returns the new
// value.
func IncrementSnapshotNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	updateQuery := `
		UPDATE snapshot_counter
		SET current_snapshot = current_snapshot + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_snapshot;`

	var next int
	row := DB.QueryRow(updateQuery)
	if err := row.Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to increment snapshot number: %w", err)
	}

	log.Debug().Int("snapshotNumber", next).Msg("Incremented snapshot counter")
	return next, nil
}
