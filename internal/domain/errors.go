package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCartEmpty        = errors.New("cart is empty")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrProductNotFound  = errors.New("product not found")
)

// ValidationError marks malformed or out-of-range input the caller can fix
// and retry.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StockError reports a quantity the live inventory cannot satisfy. Concurrent
// demand for limited stock is expected, so callers treat this as an ordinary
// outcome, not a failure of the system.
type StockError struct {
	ProductID      uint64
	Requested      int
	AvailableStock int
	Message        string
}

func (e *StockError) Error() string {
	return e.Message
}

// StockErrors aggregates per-line stock failures from a checkout attempt so
// the caller gets the whole itemized list, not just the first bad line.
type StockErrors []*StockError

func (e StockErrors) Error() string {
	if len(e) == 1 {
		return e[0].Message
	}
	return fmt.Sprintf("%d cart items failed stock validation", len(e))
}

// IllegalTransitionError reports a status change the transition table does not
// allow. From carries the current status so the caller can explain why the
// action is unavailable.
type IllegalTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

// ConflictError reports a duplicate unique key; the caller must change the
// conflicting field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}
