// internal/domain/checkout/errors.go
package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptyCart is returned when checkout is attempted with no items
var ErrEmptyCart = errors.New("cart is empty")

// Stage is one state of a checkout attempt
type Stage string

const (
	StageValidating       Stage = "validating"
	StagePricing          Stage = "pricing"
	StageReservingStock   Stage = "reserving_stock"
	StagePersisting       Stage = "persisting"
	StageBranchingPayment Stage = "branching_payment"
)

// StageError records the state a checkout attempt failed in
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("checkout failed while %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage err came from, if any
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// ValidationError lists per-field problems with the checkout form
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "invalid checkout details: " + strings.Join(parts, "; ")
}

// ExternalPaymentError wraps a failure to open the hosted payment session
type ExternalPaymentError struct {
	Err error
}

func (e *ExternalPaymentError) Error() string {
	return fmt.Sprintf("payment provider unavailable: %v", e.Err)
}

func (e *ExternalPaymentError) Unwrap() error {
	return e.Err
}
