/**
 * @description
 * This file contains the settlement engine, the single writer for ledger
 * entries and transaction receipts. One call to Settle carries a payment from
 * payer authentication through payee resolution, the atomic balance move, the
 * ledger append on the payer's bank chain, and receipt finalization.
 *
 * Key properties:
 * - Amount validation happens before any store access.
 * - The balance move is expressed entirely through the store's atomic
 *   increment; an overdraw detected at commit time is compensated
 *   immediately, so committed balances never go negative even under
 *   concurrent settlements against the same payer.
 * - Once the balance move is dispatched the settlement runs to completion or
 *   explicit failure; there is no mid-flight cancellation.
 * - A failure after funds have moved is surfaced as a ReconciliationError and
 *   logged for manual follow-up, never silently dropped and never retried.
 *
 * @dependencies
 * - context, errors, fmt, log, strings, time: Standard Go libraries.
 * - github.com/google/uuid: Transaction identifiers.
 * - golang.org/x/crypto/bcrypt: PIN verification.
 * - internal/domain, internal/ledger, internal/store, pkg/speck.
 */

package settle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexapay/upi-gateway/internal/domain"
	"github.com/nexapay/upi-gateway/internal/ledger"
	"github.com/nexapay/upi-gateway/internal/store"
	"github.com/nexapay/upi-gateway/pkg/speck"
)

const mobileMoneyIDLength = 7

// Publisher delivers settlement events to downstream consumers. A nil
// Publisher disables event delivery; publish failures never fail a
// settlement.
type Publisher interface {
	PublishSettlementEvent(ctx context.Context, event domain.SettlementEvent) error
}

// Engine orchestrates settlements against the document store and the per-bank
// ledger registry.
type Engine struct {
	store     store.Store
	ledgers   *ledger.Registry
	cipher    *speck.Cipher
	publisher Publisher
	now       func() time.Time
}

// NewEngine wires the settlement engine. The registry and cipher are
// constructed once at process start and shared across requests.
func NewEngine(s store.Store, ledgers *ledger.Registry, cipher *speck.Cipher, publisher Publisher) *Engine {
	return &Engine{
		store:     s,
		ledgers:   ledgers,
		cipher:    cipher,
		publisher: publisher,
		now:       time.Now,
	}
}

// Settle executes one payment and returns its receipt. All failures are
// returned as typed errors from this package (or domain.ErrInvalidAmount /
// store.ErrUnavailable); the relay layer maps them to wire statuses.
func (e *Engine) Settle(ctx context.Context, req domain.PaymentRequest) (*domain.TransactionReceipt, error) {
	// 1. Validate inputs before touching the store.
	amount, err := domain.ParsePaise(strings.TrimSpace(req.Amount))
	if err != nil {
		return nil, err
	}
	payerSelector := strings.TrimSpace(req.PayerSelector)
	payeeSelector := strings.TrimSpace(req.PayeeSelector)
	if payerSelector == "" || payeeSelector == "" || req.PayerSecret == "" {
		return nil, ErrInvalidInput
	}
	transactionID, err := resolveTransactionID(req.TransactionID)
	if err != nil {
		return nil, err
	}

	// 2. Resolve and authenticate the payer.
	payer, err := e.resolvePayer(ctx, payerSelector)
	if err != nil {
		return nil, err
	}
	if err := verifyPIN(payer, req.PayerSecret); err != nil {
		return nil, err
	}

	// 3. Resolve the payee.
	payee, err := e.resolvePayee(ctx, payeeSelector)
	if err != nil {
		return nil, err
	}

	// 4. Funds pre-check. The authoritative check is the compensated atomic
	// decrement below; this one rejects the obvious case without mutating.
	if payer.Balance < amount {
		return nil, ErrInsufficientFunds
	}

	// Participants are known: open the receipt as pending before any money
	// moves so a crash mid-settlement leaves a visible trail.
	receipt := &domain.TransactionReceipt{
		TransactionID: transactionID,
		PayerID:       payer.ID,
		PayeeID:       payee.ID,
		Amount:        amount,
		Status:        domain.ReceiptStatusPending,
		Timestamp:     e.now(),
	}
	if err := e.store.Set(ctx, store.CollectionTransactions, transactionID.String(), receipt); err != nil {
		return nil, fmt.Errorf("open receipt: %w", err)
	}

	// 5. Atomic balance move. Debit first; a result below zero means a
	// concurrent settlement drained the account after the pre-check, so the
	// debit is compensated and the settlement fails cleanly.
	newBalance, err := e.store.AtomicIncrement(ctx, store.CollectionUsers, payer.ID, "balance", -amount)
	if err != nil {
		e.finalizeReceipt(ctx, receipt, domain.ReceiptStatusFailed, "balance update failed")
		return nil, fmt.Errorf("debit payer: %w", err)
	}
	if newBalance < 0 {
		if _, compErr := e.store.AtomicIncrement(ctx, store.CollectionUsers, payer.ID, "balance", amount); compErr != nil {
			log.Printf("level=error component=settle msg=\"overdraw compensation failed; manual reconciliation required\" transaction_id=%s payer_id=%s amount=%d err=%v",
				transactionID, payer.ID, amount, compErr)
			return nil, &ReconciliationError{
				TransactionID: transactionID.String(),
				PayerID:       payer.ID,
				PayeeID:       payee.ID,
				Amount:        amount,
				Err:           compErr,
			}
		}
		e.finalizeReceipt(ctx, receipt, domain.ReceiptStatusFailed, "insufficient funds")
		return nil, ErrInsufficientFunds
	}

	if _, err := e.store.AtomicIncrement(ctx, store.CollectionMerchants, payee.ID, "balance", amount); err != nil {
		// The debit has committed; this is reconciliation territory.
		log.Printf("level=error component=settle msg=\"payee credit failed after debit; manual reconciliation required\" transaction_id=%s payer_id=%s payee_id=%s amount=%d err=%v",
			transactionID, payer.ID, payee.ID, amount, err)
		e.finalizeReceipt(ctx, receipt, domain.ReceiptStatusFailed, "funds moved, settlement not recorded")
		e.publishEvent(ctx, payer.Bank, receipt, domain.EventStatusReconcile)
		return nil, &ReconciliationError{
			TransactionID: transactionID.String(),
			PayerID:       payer.ID,
			PayeeID:       payee.ID,
			Amount:        amount,
			Err:           err,
		}
	}

	// 6. Append to the payer bank's chain.
	chain, err := e.ledgers.ForBank(payer.Bank)
	if err == nil {
		var entry *domain.LedgerEntry
		entry, err = chain.Append(ctx, payer.ID, payee.ID, amount)
		if err == nil {
			receipt.LedgerHash = entry.Hash
		}
	}
	if err != nil {
		log.Printf("level=error component=settle msg=\"ledger append failed after funds moved; manual reconciliation required\" transaction_id=%s payer_id=%s payee_id=%s amount=%d bank=%s err=%v",
			transactionID, payer.ID, payee.ID, amount, payer.Bank, err)
		e.finalizeReceipt(ctx, receipt, domain.ReceiptStatusFailed, "funds moved, ledger not recorded")
		e.publishEvent(ctx, payer.Bank, receipt, domain.EventStatusReconcile)
		return nil, &ReconciliationError{
			TransactionID: transactionID.String(),
			PayerID:       payer.ID,
			PayeeID:       payee.ID,
			Amount:        amount,
			Err:           err,
		}
	}

	// 7. Finalize the receipt.
	receipt.Status = domain.ReceiptStatusSuccess
	if err := e.store.Set(ctx, store.CollectionTransactions, transactionID.String(), receipt); err != nil {
		log.Printf("level=error component=settle msg=\"receipt finalization failed after funds moved; manual reconciliation required\" transaction_id=%s ledger_hash=%s err=%v",
			transactionID, receipt.LedgerHash, err)
		return nil, &ReconciliationError{
			TransactionID: transactionID.String(),
			PayerID:       payer.ID,
			PayeeID:       payee.ID,
			Amount:        amount,
			Err:           err,
		}
	}

	e.publishEvent(ctx, payer.Bank, receipt, receipt.Status)
	return receipt, nil
}

// resolveTransactionID parses a caller-supplied correlation ID or generates a
// fresh UUID v4.
func resolveTransactionID(raw string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: transaction_id", ErrInvalidInput)
	}
	return id, nil
}

// resolvePayer maps a selector to a user account: a 7-char selector is an
// MMID resolved through the binding collection, anything else is tried as a
// direct account ID.
func (e *Engine) resolvePayer(ctx context.Context, selector string) (*domain.Account, error) {
	accountID := selector
	if len(selector) == mobileMoneyIDLength {
		binding, err := store.GetRecord[domain.MobileMoneyBinding](ctx, e.store, store.CollectionMMIDs, strings.ToUpper(selector))
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPayerNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("resolve mmid: %w", err)
		}
		accountID = binding.AccountID
	}

	payer, err := store.GetRecord[domain.Account](ctx, e.store, store.CollectionUsers, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payer: %w", err)
	}
	if payer.SchemaVersion != domain.AccountSchemaVersion {
		return nil, fmt.Errorf("payer record %s has schema version %d, want %d", payer.ID, payer.SchemaVersion, domain.AccountSchemaVersion)
	}
	return payer, nil
}

// resolvePayee maps a selector to a merchant account, trying a direct MID
// lookup first and falling back to VID decryption. A malformed VID is a
// resolution failure, not a fault.
func (e *Engine) resolvePayee(ctx context.Context, selector string) (*domain.Account, error) {
	merchant, err := store.GetRecord[domain.Account](ctx, e.store, store.CollectionMerchants, strings.ToUpper(selector))
	if err == nil {
		return merchant, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load payee: %w", err)
	}

	mid, err := e.cipher.DecryptHex(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: selector is neither a merchant ID nor a valid VID", ErrPayeeNotFound)
	}
	merchant, err = store.GetRecord[domain.Account](ctx, e.store, store.CollectionMerchants, mid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPayeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payee: %w", err)
	}
	return merchant, nil
}

// verifyPIN checks the payer's transaction PIN against the stored bcrypt
// hash. bcrypt's comparison is effort-constant for a given cost; residual
// timing variance from hash length is a documented limitation, not defended
// against here.
func verifyPIN(payer *domain.Account, pin string) error {
	if payer.PINHash == "" {
		return ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(payer.PINHash), []byte(pin)); err != nil {
		return ErrInvalidCredential
	}
	return nil
}

// finalizeReceipt is best-effort: a failed write here is logged but does not
// mask the settlement outcome already decided.
func (e *Engine) finalizeReceipt(ctx context.Context, receipt *domain.TransactionReceipt, status, reason string) {
	receipt.Status = status
	receipt.FailureReason = reason
	if err := e.store.Set(ctx, store.CollectionTransactions, receipt.TransactionID.String(), receipt); err != nil {
		log.Printf("level=error component=settle msg=\"receipt update failed\" transaction_id=%s status=%s err=%v",
			receipt.TransactionID, status, err)
	}
}

func (e *Engine) publishEvent(ctx context.Context, bank string, receipt *domain.TransactionReceipt, status string) {
	if e.publisher == nil {
		return
	}
	event := domain.SettlementEvent{
		TransactionID: receipt.TransactionID.String(),
		PayerID:       receipt.PayerID,
		PayeeID:       receipt.PayeeID,
		Amount:        receipt.Amount,
		Status:        status,
		LedgerHash:    receipt.LedgerHash,
		Bank:          bank,
		Timestamp:     e.now(),
	}
	if err := e.publisher.PublishSettlementEvent(ctx, event); err != nil {
		log.Printf("level=warn component=settle msg=\"settlement event publish failed\" transaction_id=%s err=%v",
			receipt.TransactionID, err)
	}
}
