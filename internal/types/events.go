/*

This file contains the lifecycle events emitted by the ledger. Events are
journaled through a Recorder so operators can reconstruct every balance
movement after the fact.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Event type names, namespaced by component.
const (
	EventDeposited      = "ledger.deposited"
	EventStaked         = "ledger.staked"
	EventUnstaked       = "ledger.unstaked"
	EventWithdrawn      = "ledger.withdrawn"
	EventRewardAdded    = "ledger.reward_added"
	EventRewardExtended = "ledger.reward_extended"
	EventPoolFunded     = "ledger.pool_funded"
	EventPaused         = "ledger.paused"
	EventUnpaused       = "ledger.unpaused"
)

// Event is a single journaled ledger occurrence. ID is a per-operation UUID
// so all log lines and journal rows of one public operation correlate.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Principal  string            `json:"principal,omitempty"`
	Asset      string            `json:"asset,omitempty"`
	Amount     sdkmath.Int       `json:"amount"`
	Timestamp  time.Time         `json:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty"`
}
