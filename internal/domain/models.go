/**
 * @description
 * This file defines the core domain models shared by the bank, user, and
 * merchant services: accounts, mobile-money bindings, ledger entries, and
 * transaction receipts, plus the DTOs exchanged over the relay and the
 * registration APIs.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit (paise),
 *   which avoids floating-point inaccuracies with financial data. API
 *   payloads carry amounts as decimal strings ("250.50") and are parsed in
 *   money.go.
 * - Account IDs are opaque 16-char upper-case hex strings and immutable once
 *   assigned; MMIDs are 7-char upper-case hex.
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: For transaction identifiers.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountKind distinguishes the two account collections.
type AccountKind string

const (
	AccountKindUser     AccountKind = "user"
	AccountKindMerchant AccountKind = "merchant"
)

// AccountSchemaVersion is stamped onto every stored account record. Readers
// require the current version instead of probing for legacy field names.
const AccountSchemaVersion = 2

// Account represents a user or merchant record in the document store.
type Account struct {
	ID             string      `json:"id"`
	Kind           AccountKind `json:"kind"`
	Name           string      `json:"name"`
	CredentialHash string      `json:"credential_hash"`
	PINHash        string      `json:"pin_hash,omitempty"` // users only, bcrypt
	Balance        int64       `json:"balance"`            // in paise
	Bank           string      `json:"bank"`
	BranchCode     string      `json:"branch_code"`
	MobileMoneyID  string      `json:"mobile_money_id,omitempty"` // users only
	MobileNumber   string      `json:"mobile_number,omitempty"`
	SchemaVersion  int         `json:"schema_version"`
	CreatedAt      time.Time   `json:"created_at"`
}

// MobileMoneyBinding maps an MMID to exactly one account. Created once at
// registration and never mutated; looked up on every payment.
type MobileMoneyBinding struct {
	MMID         string    `json:"mmid"`
	AccountID    string    `json:"account_id"`
	MobileNumber string    `json:"mobile_number"`
	CreatedAt    time.Time `json:"created_at"`
}

// VirtualIDBinding is the reverse index from a merchant's VID to its MID,
// written at registration time. Settlement resolves VIDs by decryption; the
// index exists so the mapping can be audited and listed without the key.
type VirtualIDBinding struct {
	VID       string    `json:"vid"`
	MID       string    `json:"mid"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerEntry is one block of a bank's hash chain. Entries are immutable and
// append-only; Hash commits every other field plus the chain ID.
type LedgerEntry struct {
	ChainID      string `json:"chain_id"`
	PayerID      string `json:"payer_id"`
	PayeeID      string `json:"payee_id"`
	Amount       int64  `json:"amount"` // in paise
	Timestamp    int64  `json:"timestamp"` // unix nanoseconds
	PreviousHash string `json:"previous_hash"`
	Hash         string `json:"hash"`
}

// ChainHead tracks the most recent entry of a bank's chain.
type ChainHead struct {
	ChainID   string    `json:"chain_id"`
	LastHash  string    `json:"last_hash"`
	Length    int64     `json:"length"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Receipt statuses. ReceiptStatusPending is written at settlement start and
// finalized to success or failed; receipts are never deleted.
const (
	ReceiptStatusPending = "pending"
	ReceiptStatusSuccess = "success"
	ReceiptStatusFailed  = "failed"
)

// EventStatusReconcile marks settlement events for outcomes where funds
// moved but the settlement record is incomplete. The receipt itself stays
// "failed"; only the published event carries this status.
const EventStatusReconcile = "reconcile"

// TransactionReceipt records the outcome of one settlement attempt.
type TransactionReceipt struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	PayerID       string    `json:"payer_id"`
	PayeeID       string    `json:"payee_id"`
	Amount        int64     `json:"amount"` // in paise
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	LedgerHash    string    `json:"ledger_hash,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// Relay status vocabulary. These strings are part of the wire contract with
// the UPI machine clients and must not change.
const (
	RelayStatusSuccess    = "success"
	RelayStatusFailed     = "failed"
	RelayStatusProcessing = "processing"
)

// PaymentRequest is the settlement request carried over the transaction relay
// from the payer-facing service to the bank service.
type PaymentRequest struct {
	PayerSelector string `json:"payer_selector"` // MMID or account ID
	PayerSecret   string `json:"payer_secret"`   // transaction PIN, never logged
	PayeeSelector string `json:"payee_selector"` // MID or VID
	Amount        string `json:"amount"`         // decimal string, e.g. "250.50"
	TransactionID string `json:"transaction_id,omitempty"`
}

// PaymentResponse is the relay reply delivered back to the requesting party.
type PaymentResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
	LedgerHash    string `json:"ledger_hash,omitempty"`
}

// RegisterUserRequest is the DTO for user registration.
type RegisterUserRequest struct {
	Name           string `json:"name"`
	Password       string `json:"password"`
	PIN            string `json:"pin"`
	OpeningBalance string `json:"opening_balance"`
	MobileNumber   string `json:"mobile_number"`
	BranchCode     string `json:"branch_code"` // IFSC-style; first 4 chars select the bank
}

// RegisterUserResponse returns the identifiers assigned at registration.
type RegisterUserResponse struct {
	UID  string `json:"uid"`
	MMID string `json:"mmid"`
	Bank string `json:"bank"`
}

// RegisterMerchantRequest is the DTO for merchant registration.
type RegisterMerchantRequest struct {
	Name           string `json:"name"`
	Password       string `json:"password"`
	OpeningBalance string `json:"opening_balance"`
	BranchCode     string `json:"branch_code"`
}

// RegisterMerchantResponse returns the merchant identifiers, including the
// VID that goes into the merchant's QR payload.
type RegisterMerchantResponse struct {
	MID           string `json:"mid"`
	VID           string `json:"vid"`
	QRCodeContent string `json:"qr_code_content"`
	Bank          string `json:"bank"`
}

// SettlementEvent is the message payload published after a settlement, for
// notification and reconciliation consumers.
type SettlementEvent struct {
	TransactionID string    `json:"transaction_id"`
	PayerID       string    `json:"payer_id"`
	PayeeID       string    `json:"payee_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	LedgerHash    string    `json:"ledger_hash,omitempty"`
	Bank          string    `json:"bank"`
	Timestamp     time.Time `json:"timestamp"`
}
