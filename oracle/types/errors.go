package types

import "errors"

// Sentinel errors forming the taxonomy normative in spec.md §7. Callers use
// errors.Is against these, never string matching.
var (
	// Registration-time (fatal at startup). ErrNoFeed is also returned by
	// an adapter's Fetch for a symbol that was never registered.
	ErrNoFeed         = errors.New("oracle: symbol not registered for this adapter")
	ErrInvalidAddress = errors.New("oracle: malformed feed address")

	// Adapter-level (swallowed by fan-out, recorded in HealthTracker).
	ErrRpcFailure     = errors.New("oracle: rpc transport failure")
	ErrDecodeFailure  = errors.New("oracle: malformed account data")
	ErrNoCurrentValue = errors.New("oracle: account has no published price")

	// Aggregator-level. ErrNoPriceData and ErrPriceDeviation are surfaced
	// to the caller; ErrStale and ErrLowConfidence are per-reading discard
	// reasons, and a consensus with no survivors fails with ErrNoPriceData.
	ErrNoPriceData    = errors.New("oracle: no surviving price readings")
	ErrStale          = errors.New("oracle: reading older than max price age")
	ErrLowConfidence  = errors.New("oracle: confidence exceeds maximum basis points")
	ErrPriceDeviation = errors.New("oracle: source deviates beyond threshold from consensus")

	// Cross-cutting.
	ErrCacheBackend = errors.New("oracle: cache backend unavailable")
	ErrStoreBackend = errors.New("oracle: history store backend unavailable")
	ErrConfigLoad   = errors.New("oracle: configuration invalid")
)
