// Package errors supplies the structured error type every component
// uses to describe validation/risk/state/integrity/persistence
// failures, adapted from the teacher's own common/errors package.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode classifies a TradSysError.
type ErrorCode string

const (
	// Validation
	ErrInvalidPrecision  ErrorCode = "INVALID_PRECISION"
	ErrInvalidQuantity   ErrorCode = "INVALID_QUANTITY"
	ErrInvalidPrice      ErrorCode = "INVALID_PRICE"
	ErrInstrumentNotFound ErrorCode = "INSTRUMENT_NOT_FOUND"
	ErrAccountNotFound   ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrPositionNotFound  ErrorCode = "POSITION_NOT_FOUND"

	// Risk
	ErrNotionalExceedsMaxPerOrder   ErrorCode = "NOTIONAL_EXCEEDS_MAX_PER_ORDER"
	ErrNotionalLessThanMin          ErrorCode = "NOTIONAL_LESS_THAN_MIN_FOR_INSTRUMENT"
	ErrNotionalGreaterThanMax       ErrorCode = "NOTIONAL_GREATER_THAN_MAX_FOR_INSTRUMENT"
	ErrNotionalExceedsFreeBalance   ErrorCode = "NOTIONAL_EXCEEDS_FREE_BALANCE"
	ErrCumNotionalExceedsFreeBalance ErrorCode = "CUM_NOTIONAL_EXCEEDS_FREE_BALANCE"
	ErrThrottled                    ErrorCode = "THROTTLED"
	ErrTradingHalted                ErrorCode = "TRADING_STATE_HALTED"

	// State
	ErrDuplicateOrder   ErrorCode = "DUPLICATE_ORDER"
	ErrOrderNotFound    ErrorCode = "ORDER_NOT_FOUND"
	ErrOrderWrongState  ErrorCode = "ORDER_WRONG_STATE"
	ErrPurgeOpenRefused ErrorCode = "PURGE_OPEN_REFUSED"

	// Integrity
	ErrIntegrityViolation ErrorCode = "INTEGRITY_VIOLATION"

	// Persistence
	ErrPersistenceLoad  ErrorCode = "PERSISTENCE_LOAD_FAILED"
	ErrPersistenceWrite ErrorCode = "PERSISTENCE_WRITE_FAILED"
)

// TradSysError is a structured, loggable error carrying a stable code,
// a user-facing message, optional details, and an optional cause.
type TradSysError struct {
	Code      ErrorCode
	Message   string
	Details   map[string]interface{}
	Timestamp time.Time
	Cause     error
}

// New constructs a TradSysError with the current time stamped.
func New(code ErrorCode, message string) *TradSysError {
	return &TradSysError{Code: code, Message: message, Timestamp: time.Now()}
}

// Error implements the error interface.
func (e *TradSysError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *TradSysError) Unwrap() error { return e.Cause }

// WithDetail attaches a detail key/value and returns the receiver.
func (e *TradSysError) WithDetail(key string, value interface{}) *TradSysError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause attaches an underlying cause and returns the receiver.
func (e *TradSysError) WithCause(cause error) *TradSysError {
	e.Cause = cause
	return e
}
