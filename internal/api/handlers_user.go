/**
 * @description
 * This file contains the HTTP handlers for the user service. Registration
 * and login are public; balance lookup and payment initiation require a
 * session token. Payments are not settled here: the handler builds a relay
 * request on behalf of the authenticated user and forwards it to the bank
 * service, then passes the relay reply straight back to the client.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/account, internal/domain: For onboarding logic and models.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/nexapay/upi-gateway/internal/account"
	"github.com/nexapay/upi-gateway/internal/domain"
)

// PaymentRelay forwards a settlement request to the bank service.
type PaymentRelay interface {
	RelayPayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResponse, error)
}

// UserHandlers holds the dependencies for the user service's endpoints.
type UserHandlers struct {
	accounts *account.Service
	relay    PaymentRelay
	tokens   *TokenIssuer
}

// NewUserHandlers creates a new instance of UserHandlers.
func NewUserHandlers(accounts *account.Service, relay PaymentRelay, tokens *TokenIssuer) *UserHandlers {
	return &UserHandlers{accounts: accounts, relay: relay, tokens: tokens}
}

// RegisterUserHandler handles new user registrations.
func (h *UserHandlers) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.accounts.RegisterUser(r.Context(), req)
	if err != nil {
		writeRegistrationError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=register_user outcome=success uid=%s bank=%s", resp.UID, resp.Bank)
	writeJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	AccountID string `json:"account_id"`
	Password  string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
}

// LoginHandler authenticates a user and issues a session token.
func (h *UserHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acct, err := h.accounts.Authenticate(r.Context(), domain.AccountKindUser, req.AccountID, req.Password)
	if errors.Is(err, account.ErrBadLogin) {
		writeError(w, http.StatusUnauthorized, "Invalid account ID or password")
		return
	}
	if err != nil {
		log.Printf("level=error component=api endpoint=login msg=\"authentication failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Unable to log in")
		return
	}

	token, err := h.tokens.Issue(acct.ID, domain.AccountKindUser)
	if err != nil {
		log.Printf("level=error component=api endpoint=login msg=\"token issue failed\" uid=%s err=%v", acct.ID, err)
		writeError(w, http.StatusInternalServerError, "Unable to log in")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, AccountID: acct.ID})
}

// BalanceHandler returns the authenticated user's balance.
func (h *UserHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	acct, err := h.accounts.GetAccount(r.Context(), domain.AccountKindUser, accountID)
	if err != nil {
		log.Printf("level=error component=api endpoint=balance msg=\"account lookup failed\" uid=%s err=%v", accountID, err)
		writeError(w, http.StatusInternalServerError, "Unable to load balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"account_id": acct.ID,
		"balance":    domain.FormatPaise(acct.Balance),
	})
}

type payRequest struct {
	PayeeSelector string `json:"payee_selector"` // merchant MID or VID
	Amount        string `json:"amount"`
	PIN           string `json:"pin"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// PayHandler relays a payment from the authenticated user to a merchant.
func (h *UserHandlers) PayHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.PayeeSelector) == "" || strings.TrimSpace(req.Amount) == "" || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "payee_selector, amount, and pin are required")
		return
	}

	relayReq := domain.PaymentRequest{
		PayerSelector: accountID,
		PayerSecret:   req.PIN,
		PayeeSelector: strings.TrimSpace(req.PayeeSelector),
		Amount:        strings.TrimSpace(req.Amount),
		TransactionID: strings.TrimSpace(req.TransactionID),
	}

	resp, err := h.relay.RelayPayment(r.Context(), relayReq)
	if err != nil {
		log.Printf("level=error component=api endpoint=pay msg=\"relay call failed\" uid=%s err=%v", accountID, err)
		writeError(w, http.StatusBadGateway, "Bank service unavailable")
		return
	}

	status := http.StatusOK
	if resp.Status == domain.RelayStatusFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// writeRegistrationError maps onboarding errors to HTTP responses. Both
// registration flows share the same error surface.
func writeRegistrationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidRegistration):
		writeError(w, http.StatusBadRequest, "Invalid registration input")
	case errors.Is(err, account.ErrUnknownBranch):
		writeError(w, http.StatusBadRequest, "Unknown bank branch code")
	case errors.Is(err, account.ErrIDConflict), errors.Is(err, account.ErrMMIDConflict):
		writeError(w, http.StatusConflict, "Registration collided with an existing account; please retry")
	default:
		log.Printf("level=error component=api endpoint=register msg=\"registration failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
	}
}
