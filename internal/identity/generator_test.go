package identity

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

func TestDeriveAccountIDDeterministic(t *testing.T) {
	g1 := NewGeneratorWithClock(fixedClock(1700000000))
	g2 := NewGeneratorWithClock(fixedClock(1700000000))

	a := g1.DeriveAccountID("Asha Rao", "securePass123")
	b := g2.DeriveAccountID("Asha Rao", "securePass123")
	if a != b {
		t.Fatalf("identical inputs under a fixed clock diverged: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16-char ID, got %q", a)
	}
	if a != strings.ToUpper(a) {
		t.Fatalf("expected upper-case hex, got %q", a)
	}
}

func TestDeriveAccountIDSecretSensitivity(t *testing.T) {
	g := NewGeneratorWithClock(fixedClock(1700000000))

	a := g.DeriveAccountID("Asha Rao", "securePass123")
	b := g.DeriveAccountID("Asha Rao", "securePass124")
	if a == b {
		t.Fatalf("different secrets produced the same ID %q", a)
	}
}

func TestDeriveAccountIDTimestampSensitivity(t *testing.T) {
	a := NewGeneratorWithClock(fixedClock(1700000000)).DeriveAccountID("Asha Rao", "securePass123")
	b := NewGeneratorWithClock(fixedClock(1700000001)).DeriveAccountID("Asha Rao", "securePass123")
	if a == b {
		t.Fatalf("different timestamps produced the same ID %q", a)
	}
}

func TestDeriveMobileMoneyID(t *testing.T) {
	g := NewGenerator()

	mmid := g.DeriveMobileMoneyID("4F2A9C0D81B3E657", "9880012345")
	if len(mmid) != 7 {
		t.Fatalf("expected 7-char MMID, got %q", mmid)
	}
	if again := g.DeriveMobileMoneyID("4F2A9C0D81B3E657", "9880012345"); again != mmid {
		t.Fatalf("MMID derivation is not stable: %q vs %q", mmid, again)
	}
	if other := g.DeriveMobileMoneyID("4F2A9C0D81B3E657", "9880012346"); other == mmid {
		t.Fatalf("different mobile numbers produced the same MMID %q", mmid)
	}
}
