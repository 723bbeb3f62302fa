/**
 * @description
 * This file contains the HTTP handlers for the merchant service. Merchants
 * register to obtain their MID and VID, log in for a session token, and can
 * fetch their balance and QR payload. The VID in the QR payload is what
 * paying customers scan; it never exposes the underlying MID.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/account, internal/domain, internal/store.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/nexapay/upi-gateway/internal/account"
	"github.com/nexapay/upi-gateway/internal/domain"
	"github.com/nexapay/upi-gateway/internal/store"
	"github.com/nexapay/upi-gateway/pkg/speck"
)

// MerchantHandlers holds the dependencies for the merchant service's
// endpoints.
type MerchantHandlers struct {
	accounts *account.Service
	cipher   *speck.Cipher
	tokens   *TokenIssuer
}

// NewMerchantHandlers creates a new instance of MerchantHandlers.
func NewMerchantHandlers(accounts *account.Service, cipher *speck.Cipher, tokens *TokenIssuer) *MerchantHandlers {
	return &MerchantHandlers{accounts: accounts, cipher: cipher, tokens: tokens}
}

// RegisterMerchantHandler handles new merchant registrations.
func (h *MerchantHandlers) RegisterMerchantHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterMerchantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.accounts.RegisterMerchant(r.Context(), req)
	if err != nil {
		writeRegistrationError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=register_merchant outcome=success mid=%s bank=%s", resp.MID, resp.Bank)
	writeJSON(w, http.StatusCreated, resp)
}

// LoginHandler authenticates a merchant and issues a session token.
func (h *MerchantHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acct, err := h.accounts.Authenticate(r.Context(), domain.AccountKindMerchant, req.AccountID, req.Password)
	if errors.Is(err, account.ErrBadLogin) {
		writeError(w, http.StatusUnauthorized, "Invalid account ID or password")
		return
	}
	if err != nil {
		log.Printf("level=error component=api endpoint=merchant_login msg=\"authentication failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Unable to log in")
		return
	}

	token, err := h.tokens.Issue(acct.ID, domain.AccountKindMerchant)
	if err != nil {
		log.Printf("level=error component=api endpoint=merchant_login msg=\"token issue failed\" mid=%s err=%v", acct.ID, err)
		writeError(w, http.StatusInternalServerError, "Unable to log in")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, AccountID: acct.ID})
}

// BalanceHandler returns the authenticated merchant's balance.
func (h *MerchantHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	acct, err := h.accounts.GetAccount(r.Context(), domain.AccountKindMerchant, accountID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Merchant not found")
		return
	}
	if err != nil {
		log.Printf("level=error component=api endpoint=merchant_balance msg=\"account lookup failed\" mid=%s err=%v", accountID, err)
		writeError(w, http.StatusInternalServerError, "Unable to load balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"account_id": acct.ID,
		"balance":    domain.FormatPaise(acct.Balance),
	})
}

// QRHandler returns the authenticated merchant's QR payload, the VID. The
// VID is re-derived from the MID so the endpoint stays correct even if the
// stored index were rebuilt.
func (h *MerchantHandlers) QRHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	vid, err := h.cipher.EncryptHex(accountID)
	if err != nil {
		log.Printf("level=error component=api endpoint=merchant_qr msg=\"vid derivation failed\" mid=%s err=%v", accountID, err)
		writeError(w, http.StatusInternalServerError, "Unable to derive QR payload")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"mid":             accountID,
		"vid":             vid,
		"qr_code_content": vid,
	})
}
