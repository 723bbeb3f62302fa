/**
 * @description
 * Error taxonomy for the settlement engine. Every failure surfaces to the
 * relay boundary as one of these typed errors; the relay maps them onto the
 * wire status vocabulary and a human-readable message, and internal store
 * error text never reaches the end user.
 *
 * ReconciliationError is the one special case: it means the balance mutation
 * committed but a later step (ledger append or receipt persistence) did not.
 * Retrying would double-debit, so it is reported for manual reconciliation
 * instead of being folded into the generic failure class.
 *
 * @dependencies
 * - errors, fmt: Standard Go libraries.
 */

package settle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput covers missing selectors and secrets. Rejected before
	// any store access.
	ErrInvalidInput = errors.New("missing or malformed request field")

	// ErrPayerNotFound means neither the MMID binding nor a direct account ID
	// matched the payer selector.
	ErrPayerNotFound = errors.New("payer not found")

	// ErrPayeeNotFound means the payee selector is neither a known merchant
	// ID nor a VID that decrypts to one.
	ErrPayeeNotFound = errors.New("payee not found")

	// ErrInvalidCredential means the supplied PIN did not match the stored
	// hash. The PIN value itself is never logged.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrInsufficientFunds means the payer balance cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// ReconciliationError reports a settlement whose funds moved but whose ledger
// entry or receipt could not be recorded. It requires manual reconciliation,
// never a caller retry.
type ReconciliationError struct {
	TransactionID string
	PayerID       string
	PayeeID       string
	Amount        int64
	Err           error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("funds moved but not recorded (transaction %s, %s -> %s, %d paise): %v",
		e.TransactionID, e.PayerID, e.PayeeID, e.Amount, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }
