package ledger

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeward/stakeward/internal/types"
)

// TokenTransferer is the stable-token collaborator. All boolean-returning
// transfer calls must be checked; a false return (not only an error) is the
// expected failure signal.
type TokenTransferer interface {
	// TransferFrom pulls amount from the payer into the vault's account.
	TransferFrom(ctx context.Context, from, to string, amount sdkmath.Int) (bool, error)

	// Transfer pays amount out of the vault's account.
	Transfer(ctx context.Context, to string, amount sdkmath.Int) (bool, error)

	// BalanceOf reports the token balance held by an address.
	BalanceOf(ctx context.Context, addr string) (sdkmath.Int, error)
}

// NativeSettler is the native-currency settlement collaborator. Inbound
// deposits are confirmed with Collect before any balance is credited, so a
// caller cannot credit itself value the custody service never received;
// outbound payouts go through Transfer.
type NativeSettler interface {
	// Collect confirms that the settlement service has pulled amount of
	// native currency from the payer into the vault account.
	Collect(ctx context.Context, from string, amount sdkmath.Int) (bool, error)

	// Transfer pays amount of native currency out of the vault account.
	Transfer(ctx context.Context, to string, amount sdkmath.Int) (bool, error)
}

// Recorder persists lifecycle events for after-the-fact reconstruction of
// every balance movement. Implementations must not block the ledger: a
// recording failure is logged by the caller and the operation still commits.
type Recorder interface {
	RecordEvent(evt types.Event) error
}

// NopRecorder is a no-op implementation used when PostgreSQL is not
// configured.
type NopRecorder struct{}

func NewNopRecorder() *NopRecorder { return &NopRecorder{} }

func (n *NopRecorder) RecordEvent(types.Event) error { return nil }
