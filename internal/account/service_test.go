package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nexapay/upi-gateway/internal/domain"
	"github.com/nexapay/upi-gateway/internal/identity"
	"github.com/nexapay/upi-gateway/internal/store"
	"github.com/nexapay/upi-gateway/pkg/speck"
)

var testBranches = map[string]string{
	"HDFC": "HDFC",
	"ICIC": "ICICI",
	"SBIN": "SBI",
}

func newTestService() (*Service, *store.MemoryStore) {
	mem := store.NewMemoryStore()
	ids := identity.NewGenerator()
	cipher := speck.New(0x1234567890123456, 0x7890123456789012)
	return NewService(mem, ids, cipher, testBranches), mem
}

func TestRegisterUserProvisionsAccountAndMMID(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()

	resp, err := svc.RegisterUser(ctx, domain.RegisterUserRequest{
		Name:           "Asha Rao",
		Password:       "correct horse",
		PIN:            "4321",
		OpeningBalance: "1500.00",
		MobileNumber:   "9876543210",
		BranchCode:     "HDFC0001234",
	})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if len(resp.UID) != 16 {
		t.Fatalf("uid length = %d, want 16", len(resp.UID))
	}
	if len(resp.MMID) != 7 {
		t.Fatalf("mmid length = %d, want 7", len(resp.MMID))
	}
	if resp.Bank != "HDFC" {
		t.Fatalf("bank = %q, want HDFC", resp.Bank)
	}

	acct, err := store.GetRecord[domain.Account](ctx, mem, store.CollectionUsers, resp.UID)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if acct.Balance != 150000 {
		t.Fatalf("balance = %d paise, want 150000", acct.Balance)
	}
	if acct.SchemaVersion != domain.AccountSchemaVersion {
		t.Fatalf("schema version = %d, want %d", acct.SchemaVersion, domain.AccountSchemaVersion)
	}
	if acct.CredentialHash != identity.HashSecret("correct horse") {
		t.Fatal("credential hash does not match password digest")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PINHash), []byte("4321")); err != nil {
		t.Fatalf("pin hash does not verify: %v", err)
	}

	binding, err := store.GetRecord[domain.MobileMoneyBinding](ctx, mem, store.CollectionMMIDs, resp.MMID)
	if err != nil {
		t.Fatalf("load mmid binding: %v", err)
	}
	if binding.AccountID != resp.UID {
		t.Fatalf("mmid binding points at %q, want %q", binding.AccountID, resp.UID)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.RegisterUserRequest
		want error
	}{
		{
			name: "missing name",
			req:  domain.RegisterUserRequest{Password: "p", PIN: "1", OpeningBalance: "0", MobileNumber: "9", BranchCode: "HDFC0001"},
			want: ErrInvalidRegistration,
		},
		{
			name: "missing pin",
			req:  domain.RegisterUserRequest{Name: "A", Password: "p", OpeningBalance: "0", MobileNumber: "9", BranchCode: "HDFC0001"},
			want: ErrInvalidRegistration,
		},
		{
			name: "negative balance",
			req:  domain.RegisterUserRequest{Name: "A", Password: "p", PIN: "1", OpeningBalance: "-5", MobileNumber: "9", BranchCode: "HDFC0001"},
			want: ErrInvalidRegistration,
		},
		{
			name: "unknown branch",
			req:  domain.RegisterUserRequest{Name: "A", Password: "p", PIN: "1", OpeningBalance: "0", MobileNumber: "9", BranchCode: "AXIS0001"},
			want: ErrUnknownBranch,
		},
		{
			name: "branch code too short",
			req:  domain.RegisterUserRequest{Name: "A", Password: "p", PIN: "1", OpeningBalance: "0", MobileNumber: "9", BranchCode: "HD"},
			want: ErrUnknownBranch,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RegisterUser(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRegisterUserMMIDConflict(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()

	// Pin the clock so the derived IDs are predictable, then pre-bind the
	// MMID the registration would derive.
	fixed := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	svc.ids = identity.NewGeneratorWithClock(func() time.Time { return fixed })

	uid := svc.ids.DeriveAccountID("Asha Rao", "pw")
	mmid := svc.ids.DeriveMobileMoneyID(uid, "9876543210")
	taken := &domain.MobileMoneyBinding{MMID: mmid, AccountID: "0000000000000000"}
	if err := mem.Set(ctx, store.CollectionMMIDs, mmid, taken); err != nil {
		t.Fatalf("seed binding: %v", err)
	}

	_, err := svc.RegisterUser(ctx, domain.RegisterUserRequest{
		Name:           "Asha Rao",
		Password:       "pw",
		PIN:            "1111",
		OpeningBalance: "0",
		MobileNumber:   "9876543210",
		BranchCode:     "SBIN0009999",
	})
	if !errors.Is(err, ErrMMIDConflict) {
		t.Fatalf("err = %v, want ErrMMIDConflict", err)
	}
}

func TestRegisterMerchantProvisionsVID(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()

	resp, err := svc.RegisterMerchant(ctx, domain.RegisterMerchantRequest{
		Name:           "Chai Point",
		Password:       "merchant-secret",
		OpeningBalance: "0",
		BranchCode:     "ICIC0004567",
	})
	if err != nil {
		t.Fatalf("RegisterMerchant: %v", err)
	}
	if resp.Bank != "ICICI" {
		t.Fatalf("bank = %q, want ICICI", resp.Bank)
	}
	if resp.QRCodeContent != resp.VID {
		t.Fatalf("qr content = %q, want vid %q", resp.QRCodeContent, resp.VID)
	}

	// The VID must decrypt back to the MID.
	cipher := speck.New(0x1234567890123456, 0x7890123456789012)
	plain, err := cipher.DecryptHex(resp.VID)
	if err != nil {
		t.Fatalf("decrypt vid: %v", err)
	}
	if plain != resp.MID {
		t.Fatalf("vid decrypts to %q, want %q", plain, resp.MID)
	}

	index, err := store.GetRecord[domain.VirtualIDBinding](ctx, mem, store.CollectionVirtualIDs, resp.VID)
	if err != nil {
		t.Fatalf("load vid index: %v", err)
	}
	if index.MID != resp.MID {
		t.Fatalf("vid index points at %q, want %q", index.MID, resp.MID)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	resp, err := svc.RegisterUser(ctx, domain.RegisterUserRequest{
		Name:           "Asha Rao",
		Password:       "correct horse",
		PIN:            "4321",
		OpeningBalance: "10.00",
		MobileNumber:   "9876543210",
		BranchCode:     "HDFC0001234",
	})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	acct, err := svc.Authenticate(ctx, domain.AccountKindUser, resp.UID, "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if acct.ID != resp.UID {
		t.Fatalf("authenticated account = %q, want %q", acct.ID, resp.UID)
	}

	if _, err := svc.Authenticate(ctx, domain.AccountKindUser, resp.UID, "wrong"); !errors.Is(err, ErrBadLogin) {
		t.Fatalf("wrong password err = %v, want ErrBadLogin", err)
	}
	if _, err := svc.Authenticate(ctx, domain.AccountKindUser, "FFFFFFFFFFFFFFFF", "correct horse"); !errors.Is(err, ErrBadLogin) {
		t.Fatalf("unknown account err = %v, want ErrBadLogin", err)
	}
}

func TestBankForBranch(t *testing.T) {
	svc, _ := newTestService()

	if bank, err := svc.BankForBranch("sbin0001122"); err != nil || bank != "SBI" {
		t.Fatalf("BankForBranch(sbin...) = %q, %v; want SBI", bank, err)
	}
	if _, err := svc.BankForBranch("UTIB0001122"); !errors.Is(err, ErrUnknownBranch) {
		t.Fatalf("err = %v, want ErrUnknownBranch", err)
	}
}
