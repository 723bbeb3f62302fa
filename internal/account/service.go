/**
 * @description
 * This file contains the registration and authentication logic for user and
 * merchant accounts. Registration derives the account identifiers, hashes
 * credentials, and writes the account record plus its bindings (the MMID
 * binding for users, the VID reverse index for merchants) to the document
 * store. Authentication checks a password against the stored credential hash
 * and is used by the services to issue session tokens.
 *
 * Key decisions:
 * - The password hash is hex SHA-256 because the same digest salts account-ID
 *   derivation; comparison uses a constant-time primitive.
 * - Transaction PINs are stored as bcrypt hashes; they take no part in ID
 *   derivation so the stronger, salted hash applies.
 * - A derived ID colliding with an existing record is a registration
 *   conflict: the caller retries with new input, nothing is overwritten.
 *
 * @dependencies
 * - context, crypto/subtle, errors, fmt, strings, time: Standard Go libraries.
 * - golang.org/x/crypto/bcrypt: PIN hashing.
 * - internal/domain, internal/identity, internal/store, pkg/speck.
 */

package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nexapay/upi-gateway/internal/domain"
	"github.com/nexapay/upi-gateway/internal/identity"
	"github.com/nexapay/upi-gateway/internal/store"
	"github.com/nexapay/upi-gateway/pkg/speck"
)

var (
	// ErrInvalidRegistration covers missing or malformed registration fields.
	ErrInvalidRegistration = errors.New("invalid registration input")

	// ErrIDConflict means a freshly derived account ID collided with an
	// existing record. Practically negligible at 16 hex chars; the caller
	// retries with new input.
	ErrIDConflict = errors.New("derived account id already exists")

	// ErrMMIDConflict means the derived MMID is already bound to another
	// account. Realistic at 7 hex chars; the caller retries.
	ErrMMIDConflict = errors.New("derived mmid already bound")

	// ErrUnknownBranch means the branch code does not map to a configured
	// bank.
	ErrUnknownBranch = errors.New("unknown bank branch code")

	// ErrBadLogin covers both unknown-account and wrong-password logins.
	ErrBadLogin = errors.New("invalid account id or password")
)

const branchPrefixLength = 4

// Service provisions and authenticates accounts.
type Service struct {
	store    store.Store
	ids      *identity.Generator
	cipher   *speck.Cipher
	branches map[string]string // branch-code prefix -> bank
	now      func() time.Time
}

// NewService wires the account service. branchPrefixes maps IFSC-style
// prefixes (e.g. "HDFC", "ICIC", "SBIN") to bank identifiers.
func NewService(s store.Store, ids *identity.Generator, cipher *speck.Cipher, branchPrefixes map[string]string) *Service {
	return &Service{
		store:    s,
		ids:      ids,
		cipher:   cipher,
		branches: branchPrefixes,
		now:      time.Now,
	}
}

// BankForBranch resolves the owning bank from an IFSC-style branch code.
func (s *Service) BankForBranch(branchCode string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(branchCode))
	if len(code) < branchPrefixLength {
		return "", ErrUnknownBranch
	}
	bank, ok := s.branches[code[:branchPrefixLength]]
	if !ok {
		return "", ErrUnknownBranch
	}
	return bank, nil
}

// RegisterUser provisions a user account together with its MMID binding.
func (s *Service) RegisterUser(ctx context.Context, req domain.RegisterUserRequest) (*domain.RegisterUserResponse, error) {
	name := strings.TrimSpace(req.Name)
	mobile := strings.TrimSpace(req.MobileNumber)
	if name == "" || req.Password == "" || req.PIN == "" || mobile == "" {
		return nil, ErrInvalidRegistration
	}
	balance, err := domain.ParseBalancePaise(strings.TrimSpace(req.OpeningBalance))
	if err != nil {
		return nil, fmt.Errorf("%w: opening balance", ErrInvalidRegistration)
	}
	bank, err := s.BankForBranch(req.BranchCode)
	if err != nil {
		return nil, err
	}

	uid := s.ids.DeriveAccountID(name, req.Password)
	if _, err := s.store.Get(ctx, store.CollectionUsers, uid); err == nil {
		return nil, ErrIDConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check uid: %w", err)
	}

	mmid := s.ids.DeriveMobileMoneyID(uid, mobile)
	if _, err := s.store.Get(ctx, store.CollectionMMIDs, mmid); err == nil {
		return nil, ErrMMIDConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check mmid: %w", err)
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	acct := &domain.Account{
		ID:             uid,
		Kind:           domain.AccountKindUser,
		Name:           name,
		CredentialHash: identity.HashSecret(req.Password),
		PINHash:        string(pinHash),
		Balance:        balance,
		Bank:           bank,
		BranchCode:     strings.ToUpper(strings.TrimSpace(req.BranchCode)),
		MobileMoneyID:  mmid,
		MobileNumber:   mobile,
		SchemaVersion:  domain.AccountSchemaVersion,
		CreatedAt:      s.now(),
	}
	if err := s.store.Set(ctx, store.CollectionUsers, uid, acct); err != nil {
		return nil, fmt.Errorf("persist user: %w", err)
	}

	binding := &domain.MobileMoneyBinding{
		MMID:         mmid,
		AccountID:    uid,
		MobileNumber: mobile,
		CreatedAt:    s.now(),
	}
	if err := s.store.Set(ctx, store.CollectionMMIDs, mmid, binding); err != nil {
		return nil, fmt.Errorf("persist mmid binding: %w", err)
	}

	return &domain.RegisterUserResponse{UID: uid, MMID: mmid, Bank: bank}, nil
}

// RegisterMerchant provisions a merchant account, derives its VID, and writes
// the VID reverse index entry.
func (s *Service) RegisterMerchant(ctx context.Context, req domain.RegisterMerchantRequest) (*domain.RegisterMerchantResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Password == "" {
		return nil, ErrInvalidRegistration
	}
	balance, err := domain.ParseBalancePaise(strings.TrimSpace(req.OpeningBalance))
	if err != nil {
		return nil, fmt.Errorf("%w: opening balance", ErrInvalidRegistration)
	}
	bank, err := s.BankForBranch(req.BranchCode)
	if err != nil {
		return nil, err
	}

	mid := s.ids.DeriveAccountID(name, req.Password)
	if _, err := s.store.Get(ctx, store.CollectionMerchants, mid); err == nil {
		return nil, ErrIDConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check mid: %w", err)
	}

	vid, err := s.cipher.EncryptHex(mid)
	if err != nil {
		return nil, fmt.Errorf("derive vid: %w", err)
	}

	acct := &domain.Account{
		ID:             mid,
		Kind:           domain.AccountKindMerchant,
		Name:           name,
		CredentialHash: identity.HashSecret(req.Password),
		Balance:        balance,
		Bank:           bank,
		BranchCode:     strings.ToUpper(strings.TrimSpace(req.BranchCode)),
		SchemaVersion:  domain.AccountSchemaVersion,
		CreatedAt:      s.now(),
	}
	if err := s.store.Set(ctx, store.CollectionMerchants, mid, acct); err != nil {
		return nil, fmt.Errorf("persist merchant: %w", err)
	}

	index := &domain.VirtualIDBinding{VID: vid, MID: mid, CreatedAt: s.now()}
	if err := s.store.Set(ctx, store.CollectionVirtualIDs, vid, index); err != nil {
		return nil, fmt.Errorf("persist vid index: %w", err)
	}

	return &domain.RegisterMerchantResponse{
		MID:           mid,
		VID:           vid,
		QRCodeContent: vid,
		Bank:          bank,
	}, nil
}

// Authenticate verifies an account's password and returns the account. Both
// unknown IDs and wrong passwords collapse into ErrBadLogin so the response
// does not disclose which one failed.
func (s *Service) Authenticate(ctx context.Context, kind domain.AccountKind, accountID, password string) (*domain.Account, error) {
	collection := store.CollectionUsers
	if kind == domain.AccountKindMerchant {
		collection = store.CollectionMerchants
	}

	acct, err := store.GetRecord[domain.Account](ctx, s.store, collection, strings.ToUpper(strings.TrimSpace(accountID)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadLogin
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acct.SchemaVersion != domain.AccountSchemaVersion {
		return nil, fmt.Errorf("account record %s has schema version %d, want %d", acct.ID, acct.SchemaVersion, domain.AccountSchemaVersion)
	}

	supplied := identity.HashSecret(password)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(acct.CredentialHash)) != 1 {
		return nil, ErrBadLogin
	}
	return acct, nil
}

// GetAccount loads an account of the given kind by ID.
func (s *Service) GetAccount(ctx context.Context, kind domain.AccountKind, accountID string) (*domain.Account, error) {
	collection := store.CollectionUsers
	if kind == domain.AccountKindMerchant {
		collection = store.CollectionMerchants
	}
	return store.GetRecord[domain.Account](ctx, s.store, collection, strings.ToUpper(strings.TrimSpace(accountID)))
}
