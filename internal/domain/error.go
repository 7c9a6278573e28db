package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid exec context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrRateLimited        = errors.New("too many requests")
	ErrLocked             = errors.New("resource is locked")
	ErrClosed             = errors.New("context is closed")

	// Purchase flow errors
	ErrCurrentPlan           = errors.New("plan is already the current plan")
	ErrPurchaseInFlight      = errors.New("purchase request already in flight")
	ErrRequestCreationFailed = errors.New("payment request creation failed")
	ErrPollTransport         = errors.New("payment status check failed")
	ErrTokenMismatch         = errors.New("payment session token mismatch")
	ErrPaymentRejected       = errors.New("payment status rejected by server")

	// Webhook reconciliation errors
	ErrAmountTooLow    = errors.New("transferred amount is lower than plan price")
	ErrAliasNotMatched = errors.New("no payment alias found in transfer description")
)
