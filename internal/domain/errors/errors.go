package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrNoFieldsToUpdate  = errors.New("no fields to update")
)

type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ProductNotFoundError lists the requested ids that the store did not return.
type ProductNotFoundError struct {
	Missing []int64
}

func (e *ProductNotFoundError) Error() string {
	if len(e.Missing) == 0 {
		return "one or more products not found"
	}
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%d product(s) not found: %s", len(e.Missing), strings.Join(ids, ", "))
}

func (e *ProductNotFoundError) Unwrap() error {
	return ErrProductNotFound
}

// InsufficientStockError is raised either by the pre-check against the
// transactional read or by the conditional decrement. AtWrite marks the latter.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
	AtWrite   bool
}

func (e *InsufficientStockError) Error() string {
	if e.AtWrite {
		return fmt.Sprintf("insufficient stock for product %d: stock changed by a concurrent sale, requested %d",
			e.ProductID, e.Requested)
	}
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", name, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Flavor is the diagnostic label logged and counted for this failure.
func (e *InsufficientStockError) Flavor() string {
	if e.AtWrite {
		return "write_time"
	}
	return "pre_check"
}

// TransactionError wraps an infrastructure failure with the step that hit it.
type TransactionError struct {
	Op  string
	Err error
}

func NewTransactionError(op string, err error) *TransactionError {
	return &TransactionError{Op: op, Err: err}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction failed during %s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() []error {
	return []error{ErrTransactionFailed, e.Err}
}
