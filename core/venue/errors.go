package venue

import "errors"

// Error kinds from spec.md §7. These are sentinels, not a typed hierarchy —
// callers compare with errors.Is and wrap with extra context via fmt.Errorf
// and "%w", same as pkg/utils.Wrap does for ad-hoc messages.
var (
	ErrRpc                  = errors.New("rpc error")
	ErrEventKindMismatch     = errors.New("event kind mismatch for adapter")
	ErrUnknownPool           = errors.New("unknown pool: tokens not resolved")
	ErrOutdatedEvent         = errors.New("outdated event metadata")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrIntrospectionFailed   = errors.New("erc20 introspection failed")
	ErrTimeout               = errors.New("request timed out")
	ErrWorkerFailed          = errors.New("worker failed")
	ErrWorkerTerminated      = errors.New("worker terminated")
	ErrCancelled             = errors.New("request cancelled")
	ErrConnectionDead        = errors.New("no blocks received, connection dead")
	ErrNoRoute               = errors.New("no route found")
)
