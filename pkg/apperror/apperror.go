package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so handlers can map it to an HTTP status.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidState      Kind = "INVALID_STATE"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindValidation        Kind = "VALIDATION"
	KindStore             Kind = "STORE_FAILURE"
)

// Error is a domain error carrying a machine-readable kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func InvalidState(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Store(op string, err error) *Error {
	return &Error{Kind: KindStore, Message: op, Err: err}
}

// InsufficientStockError reports a requested quantity exceeding the on-hand
// quantity of a specific item. Available and Requested are exposed so the
// caller can render an actionable message.
type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (available: %d, requested: %d)",
		e.ItemName, e.Available, e.Requested)
}

func InsufficientStock(itemID, itemName string, requested, available int) *InsufficientStockError {
	return &InsufficientStockError{
		ItemID:    itemID,
		ItemName:  itemName,
		Requested: requested,
		Available: available,
	}
}

// KindOf extracts the Kind from any error produced by this package.
// Unknown errors are classified as store failures.
func KindOf(err error) Kind {
	var insufficient *InsufficientStockError
	if errors.As(err, &insufficient) {
		return KindInsufficientStock
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStore
}
