package ledger

import "errors"

var (
	ErrUnauthorized           = errors.New("ledger: unauthorized")
	ErrPaused                 = errors.New("ledger: ledger is paused")
	ErrAlreadyPaused          = errors.New("ledger: ledger is already paused")
	ErrNotPaused              = errors.New("ledger: ledger is not paused")
	ErrReentrantCall          = errors.New("ledger: reentrant call")
	ErrInvalidAmount          = errors.New("ledger: amount must be positive")
	ErrDepositOutOfBounds     = errors.New("ledger: deposit amount out of bounds")
	ErrTransferFromFailed     = errors.New("ledger: token transfer-from failed")
	ErrNativeCollectFailed    = errors.New("ledger: native deposit not confirmed by settlement")
	ErrStakeAssetMismatch     = errors.New("ledger: stake asset differs from active position")
	ErrNotDepositor           = errors.New("ledger: not a depositor")
	ErrNotStaker              = errors.New("ledger: not a staker")
	ErrNotDepositorOrStaker   = errors.New("ledger: not a depositor or staker")
	ErrInsufficientFunds      = errors.New("ledger: insufficient idle balance")
	ErrStakeLimitExceeded     = errors.New("ledger: stake amount out of bounds")
	ErrInsufficientRewardPool = errors.New("ledger: insufficient reward pool")
	ErrCooldownActive         = errors.New("ledger: cooldown period is active")
	ErrWithdrawFailed         = errors.New("ledger: withdraw transfer failed")
	ErrZeroReward             = errors.New("ledger: zero reward cannot be added")
)
