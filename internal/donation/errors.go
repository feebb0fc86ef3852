package donation

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for the payment pipeline. Handlers map these onto HTTP
// statuses; services never translate them into status codes themselves.

// ErrNotFound covers lookups for pending donations, donations and
// subscriptions that do not exist locally.
var ErrNotFound = errors.New("record not found")

// ErrNotConfigured is returned when provider credentials are missing.
var ErrNotConfigured = errors.New("payment provider is not configured")

// ErrBadSignature is returned when webhook signature verification fails.
var ErrBadSignature = errors.New("webhook signature verification failed")

// ErrDuplicateTransaction is returned by the donation store when an insert
// hits the transaction-id unique constraint. The capture path treats it as
// the idempotent already-recorded outcome, closing the race window the
// lookup-then-insert pre-check leaves open.
var ErrDuplicateTransaction = errors.New("donation already recorded for transaction")

// ValidationError carries the non-empty list of problems found in caller
// input. Safe to show to callers.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func newValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

// DiscrepancyError marks the one failure that must never be swallowed: the
// provider captured the payment but the local donation write failed. The
// transaction id is included so an operator can reconcile manually. A naive
// client retry cannot re-capture the consumed order, so this is surfaced as
// its own condition rather than a generic failure.
type DiscrepancyError struct {
	TransactionID string
	Err           error
}

func (e *DiscrepancyError) Error() string {
	return fmt.Sprintf("payment captured but recording failed (transaction %s): %v", e.TransactionID, e.Err)
}

func (e *DiscrepancyError) Unwrap() error {
	return e.Err
}
