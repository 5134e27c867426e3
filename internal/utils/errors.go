package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of core operations. Callers pick the
// user-facing message; the kind decides status codes and retry behavior.
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvariant         ErrorKind = "INVARIANT_VIOLATION"
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	KindDuplicate         ErrorKind = "DUPLICATE"
	KindConfiguration     ErrorKind = "CONFIGURATION_ERROR"
)

// AppError is the error type returned by services and repositories.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Common application errors wrapped by AppError values.
var (
	ErrInvalidToken      = errors.New("INVALID_TOKEN")
	ErrMissingTenant     = errors.New("MISSING_TENANT")
	ErrFieldNotFound     = errors.New("FIELD_NOT_FOUND")
	ErrProductNotFound   = errors.New("PRODUCT_NOT_FOUND")
	ErrOrderNotFound     = errors.New("ORDER_NOT_FOUND")
	ErrLastActiveField   = errors.New("LAST_ACTIVE_FIELD")
	ErrCoreFieldDelete   = errors.New("CORE_FIELD_NOT_DELETABLE")
	ErrDuplicateFieldKey = errors.New("DUPLICATE_FIELD_KEY")
	ErrDuplicateRequest  = errors.New("DUPLICATE_REQUEST_KEY")
	ErrRequestInFlight   = errors.New("REQUEST_IN_FLIGHT")
	ErrOrderTotals       = errors.New("ORDER_TOTALS_MISMATCH")
	ErrStoreNotReady     = errors.New("STORE_NOT_PROVISIONED")
)

func newErr(kind ErrorKind, err error, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation reports malformed or out-of-range input.
func Validation(format string, args ...any) error {
	return newErr(KindValidation, nil, format, args...)
}

// NotFound reports a missing product, order or field.
func NotFound(cause error, format string, args ...any) error {
	return newErr(KindNotFound, cause, format, args...)
}

// Invariant reports an operation that would break a system invariant.
func Invariant(cause error, format string, args ...any) error {
	return newErr(KindInvariant, cause, format, args...)
}

// InsufficientStock reports a requested quantity above the available stock.
func InsufficientStock(format string, args ...any) error {
	return newErr(KindInsufficientStock, nil, format, args...)
}

// Duplicate reports a uniqueness collision.
func Duplicate(cause error, format string, args ...any) error {
	return newErr(KindDuplicate, cause, format, args...)
}

// Configuration reports a backing store that has not been provisioned.
func Configuration(cause error, format string, args ...any) error {
	return newErr(KindConfiguration, cause, format, args...)
}

// KindOf returns the kind of err, or "" for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsDomainError reports whether err belongs to the taxonomy. Anything else
// is an infrastructure failure.
func IsDomainError(err error) bool {
	return KindOf(err) != ""
}
