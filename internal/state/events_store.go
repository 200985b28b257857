/*

This file persists ledger lifecycle events to the database. The journal is
append-only: events are the audit trail of every balance mutation, written
after the mutation has committed in memory.

PGRecorder adapts the store to the ledger's Recorder interface so the ledger
package never imports database/sql.

*/

package state

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/stakeward/stakeward/internal/types"
)

// SaveLedgerEvent appends one lifecycle event to the journal.
func SaveLedgerEvent(evt types.Event) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	var attrs []byte
	if evt.Attributes != nil {
		var err error
		attrs, err = json.Marshal(evt.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal event attributes: %w", err)
		}
	}

	insertSQL := `
		INSERT INTO ledger_events (event_id, event_type, principal, asset, amount, event_timestamp, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err := DB.Exec(insertSQL,
		evt.ID, evt.Type, evt.Principal, evt.Asset, evt.Amount.String(), evt.Timestamp, attrs)
	if err != nil {
		return fmt.Errorf("failed to save ledger event: %w", err)
	}

	log.Debug().
		Str("eventID", evt.ID).
		Str("eventType", evt.Type).
		Msg("Saved ledger event")
	return nil
}

// EventCountByType returns how many events of the given type have been
// journaled. Used by the web layer's stats endpoint.
func EventCountByType(eventType string) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var count int
	row := DB.QueryRow(`SELECT COUNT(*) FROM ledger_events WHERE event_type = $1;`, eventType)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ledger events: %w", err)
	}
	return count, nil
}

// PGRecorder journals ledger events into PostgreSQL. It satisfies the
// ledger's Recorder interface.
type PGRecorder struct{}

// NewPGRecorder returns a database-backed event recorder.
func NewPGRecorder() *PGRecorder { return &PGRecorder{} }

// RecordEvent implements the ledger Recorder.
func (r *PGRecorder) RecordEvent(evt types.Event) error {
	return SaveLedgerEvent(evt)
}
