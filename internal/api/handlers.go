/**
 * @description
 * This file contains the HTTP handlers for the bank service's API endpoints.
 * The relay endpoint accepts settlement requests from the user-facing
 * services, runs them through the settlement engine, and translates engine
 * outcomes into the fixed relay status vocabulary. The ledger endpoints
 * expose per-bank chain inspection and verification.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - internal/settle, internal/ledger, internal/domain, internal/store.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nexapay/upi-gateway/internal/domain"
	"github.com/nexapay/upi-gateway/internal/ledger"
	"github.com/nexapay/upi-gateway/internal/settle"
	"github.com/nexapay/upi-gateway/internal/store"
)

// BankHandlers holds the settlement engine and ledger registry used by the
// bank service's endpoints.
type BankHandlers struct {
	engine   *settle.Engine
	ledgers  *ledger.Registry
	store    store.Store
	branches map[string]string
}

// NewBankHandlers creates a new instance of BankHandlers.
func NewBankHandlers(engine *settle.Engine, ledgers *ledger.Registry, s store.Store, branches map[string]string) *BankHandlers {
	return &BankHandlers{engine: engine, ledgers: ledgers, store: s, branches: branches}
}

// RelayPaymentHandler handles settlement requests arriving over the relay.
func (h *BankHandlers) RelayPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, domain.PaymentResponse{
			Status:  domain.RelayStatusFailed,
			Message: "Invalid request body",
		})
		return
	}

	receipt, err := h.engine.Settle(r.Context(), req)
	if err != nil {
		status, resp := relayFailureResponse(req, err)
		log.Printf("level=warn component=api endpoint=relay outcome=%s reason=%q err=%v", resp.Status, resp.Message, err)
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, domain.PaymentResponse{
		Status:        domain.RelayStatusSuccess,
		Message:       "Payment settled",
		TransactionID: receipt.TransactionID.String(),
		LedgerHash:    receipt.LedgerHash,
	})
}

// relayFailureResponse maps settlement errors onto the relay status
// vocabulary. Failures after funds have moved report "processing" so the
// caller retries a status query instead of re-submitting the payment.
func relayFailureResponse(req domain.PaymentRequest, err error) (int, domain.PaymentResponse) {
	var recErr *settle.ReconciliationError
	if errors.As(err, &recErr) {
		return http.StatusInternalServerError, domain.PaymentResponse{
			Status:        domain.RelayStatusProcessing,
			Message:       "Payment is being reconciled",
			TransactionID: recErr.TransactionID,
		}
	}

	resp := domain.PaymentResponse{Status: domain.RelayStatusFailed, TransactionID: req.TransactionID}
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		resp.Message = "Invalid amount"
		return http.StatusBadRequest, resp
	case errors.Is(err, settle.ErrInvalidInput):
		resp.Message = "Invalid payment request"
		return http.StatusBadRequest, resp
	case errors.Is(err, settle.ErrPayerNotFound):
		resp.Message = "Payer not found"
		return http.StatusNotFound, resp
	case errors.Is(err, settle.ErrPayeeNotFound):
		resp.Message = "Payee not found"
		return http.StatusNotFound, resp
	case errors.Is(err, settle.ErrInvalidCredential):
		resp.Message = "Invalid transaction PIN"
		return http.StatusUnauthorized, resp
	case errors.Is(err, settle.ErrInsufficientFunds):
		resp.Message = "Insufficient funds"
		return http.StatusUnprocessableEntity, resp
	default:
		resp.Message = "Settlement failed"
		return http.StatusInternalServerError, resp
	}
}

// GetTransactionHandler returns the receipt for a settlement attempt.
func (h *BankHandlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "transactionID"))
	receipt, err := store.GetRecord[domain.TransactionReceipt](r.Context(), h.store, store.CollectionTransactions, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		log.Printf("level=error component=api endpoint=get_transaction msg=\"receipt lookup failed\" transaction_id=%s err=%v", id, err)
		writeError(w, http.StatusInternalServerError, "Unable to load transaction")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// ListAccountTransactionsHandler returns the receipt history for an account,
// as payer or payee, newest first.
func (h *BankHandlers) ListAccountTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	accountID := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "accountID")))

	asPayer, err := store.QueryRecords[domain.TransactionReceipt](r.Context(), h.store, store.CollectionTransactions, "payer_id", accountID)
	if err != nil {
		log.Printf("level=error component=api endpoint=account_transactions msg=\"payer query failed\" account_id=%s err=%v", accountID, err)
		writeError(w, http.StatusInternalServerError, "Unable to load transactions")
		return
	}
	asPayee, err := store.QueryRecords[domain.TransactionReceipt](r.Context(), h.store, store.CollectionTransactions, "payee_id", accountID)
	if err != nil {
		log.Printf("level=error component=api endpoint=account_transactions msg=\"payee query failed\" account_id=%s err=%v", accountID, err)
		writeError(w, http.StatusInternalServerError, "Unable to load transactions")
		return
	}

	receipts := append(asPayer, asPayee...)
	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].Timestamp.After(receipts[j].Timestamp)
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_id":   accountID,
		"transactions": receipts,
	})
}

// ListBanksHandler returns the configured bank roster.
func (h *BankHandlers) ListBanksHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"banks": h.ledgers.Banks()})
}

// ListBranchesHandler returns the branch prefix routing table.
func (h *BankHandlers) ListBranchesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]map[string]string{"branches": h.branches})
}

// ListLedgerHandler returns a bank's chain entries in order.
func (h *BankHandlers) ListLedgerHandler(w http.ResponseWriter, r *http.Request) {
	chain, ok := h.chainFromURL(w, r)
	if !ok {
		return
	}
	entries, err := chain.Entries(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=list_ledger msg=\"chain read failed\" bank=%s err=%v", chain.ChainID(), err)
		writeError(w, http.StatusInternalServerError, "Unable to read ledger")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bank":    chain.ChainID(),
		"length":  len(entries),
		"entries": entries,
	})
}

// VerifyLedgerHandler re-walks a bank's chain and reports whether every hash
// and linkage checks out.
func (h *BankHandlers) VerifyLedgerHandler(w http.ResponseWriter, r *http.Request) {
	chain, ok := h.chainFromURL(w, r)
	if !ok {
		return
	}
	valid, err := chain.Verify(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=verify_ledger msg=\"chain verify failed\" bank=%s err=%v", chain.ChainID(), err)
		writeError(w, http.StatusInternalServerError, "Unable to verify ledger")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bank":  chain.ChainID(),
		"valid": valid,
	})
}

func (h *BankHandlers) chainFromURL(w http.ResponseWriter, r *http.Request) (*ledger.Ledger, bool) {
	bank := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "bank")))
	chain, err := h.ledgers.ForBank(bank)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown bank")
		return nil, false
	}
	return chain, true
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
