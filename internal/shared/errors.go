package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates a role or branch-scope violation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState indicates an operation against a terminal or incompatible status.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation indicates malformed or constraint-violating input.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientStock indicates requested quantity exceeds availability.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPaymentMismatch indicates payments do not reconcile with the sale total.
	ErrPaymentMismatch = errors.New("payment mismatch")
)

// ValidationError wraps a field-level validation failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Is makes ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validationf builds a ValidationError without a field reference.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientStockError carries the shortfall detail for a failed stock check.
type InsufficientStockError struct {
	ProductID int64
	BranchID  int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d at branch %d: requested %d, available %d",
		e.ProductID, e.BranchID, e.Requested, e.Available)
}

// Is makes InsufficientStockError match ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Shortfall reports how many units are missing.
func (e *InsufficientStockError) Shortfall() int64 { return e.Requested - e.Available }

// PaymentMismatchError carries both sides of a failed payment reconciliation.
type PaymentMismatchError struct {
	Expected decimal.Decimal
	Paid     decimal.Decimal
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("payment total %s does not match sale total %s (difference %s)",
		e.Paid.StringFixed(2), e.Expected.StringFixed(2), e.Expected.Sub(e.Paid).Abs().StringFixed(2))
}

// Is makes PaymentMismatchError match ErrPaymentMismatch.
func (e *PaymentMismatchError) Is(target error) bool { return target == ErrPaymentMismatch }
