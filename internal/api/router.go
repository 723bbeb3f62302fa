/**
 * @description
 * This file sets up the HTTP routers for the three gateway services. Each
 * service gets its own route tree; the user and merchant services wrap their
 * account-scoped endpoints in the session middleware.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nexapay/upi-gateway/internal/domain"
)

// BankRoutes creates and returns the router for the bank service. The relay
// endpoint is service-to-service and sits inside the trusted network, so it
// carries no session middleware.
func BankRoutes(h *BankHandlers) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Post("/payments/relay", h.RelayPaymentHandler)
	r.Get("/transactions/{transactionID}", h.GetTransactionHandler)
	r.Get("/accounts/{accountID}/transactions", h.ListAccountTransactionsHandler)
	r.Get("/banks", h.ListBanksHandler)
	r.Get("/branches", h.ListBranchesHandler)
	r.Get("/ledger/{bank}", h.ListLedgerHandler)
	r.Get("/ledger/{bank}/verify", h.VerifyLedgerHandler)

	return r
}

// UserRoutes creates and returns the router for the user service.
func UserRoutes(h *UserHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Post("/register", h.RegisterUserHandler)
	r.Post("/login", h.LoginHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(jwtSecret, domain.AccountKindUser))

		r.Get("/balance", h.BalanceHandler)
		r.Post("/pay", h.PayHandler)
	})

	return r
}

// MerchantRoutes creates and returns the router for the merchant service.
func MerchantRoutes(h *MerchantHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Post("/register", h.RegisterMerchantHandler)
	r.Post("/login", h.LoginHandler)

	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(jwtSecret, domain.AccountKindMerchant))

		r.Get("/balance", h.BalanceHandler)
		r.Get("/qr", h.QRHandler)
	})

	return r
}
