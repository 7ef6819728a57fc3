package ports

import "errors"

// Standard application-level errors.
// Adapters and core packages wrap underlying failures with these standard
// errors so callers can branch on the category, not the message.
var (
	// General
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Market data. Both are routine: the affected symbol is skipped for the
	// cycle and the loop moves on.
	ErrInsufficientData = errors.New("insufficient candle history")
	ErrDataUnavailable  = errors.New("market data unavailable")

	// Sizing. Not a failure: the computed quantity was below one share.
	ErrSizingRejected = errors.New("position sizing rejected")

	// Execution. Entry or protective-order placement failed; the position
	// must not reach OPEN and partially-placed legs must be rolled back.
	ErrExecutionFailure = errors.New("order execution failed")

	// Conversion. The product conversion call failed; the position stays
	// intraday and will be squared off at session end.
	ErrConversionFailure = errors.New("product conversion failed")

	// Contract violations. A second entry for an OPEN symbol, a trail stop
	// that would loosen, and the like. These indicate logic bugs and are
	// rejected rather than silently applied.
	ErrInvariantViolation = errors.New("position invariant violation")

	// Broker specific
	ErrBrokerUnavailable    = errors.New("broker API is unavailable")
	ErrAuthenticationFailed = errors.New("broker authentication failed")
	ErrOrderNotFound        = errors.New("order not found at the broker")
	ErrOrderPlacementFailed = errors.New("failed to place order")
	ErrOrderCancelFailed    = errors.New("failed to cancel order")

	// Database specific
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
)
