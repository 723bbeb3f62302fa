package speck

import (
	"errors"
	"testing"
)

// networkKey matches the fixed key compiled into the services.
func testCipher() *Cipher {
	return New(0x1234567890123456, 0x7890123456789012)
}

func TestEncryptKnownVectors(t *testing.T) {
	tests := []struct {
		name       string
		plaintext  uint64
		ciphertext uint64
	}{
		{"zero block", 0x0000000000000000, 0xA7E4D79FABDDA26C},
		{"one", 0x0000000000000001, 0x23E311E5E829ADD4},
		{"all ones", 0xFFFFFFFFFFFFFFFF, 0x04C0034BBD0F65D8},
		{"ascending nibbles", 0x0123456789ABCDEF, 0xA36A2783612C7BBF},
		{"arbitrary mid", 0x3B7280F1C2D4E596, 0xAA400D85846FB5F4},
	}

	c := testCipher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Encrypt(tt.plaintext); got != tt.ciphertext {
				t.Fatalf("Encrypt(%#016x) = %#016x, want %#016x", tt.plaintext, got, tt.ciphertext)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	c := testCipher()
	samples := []uint64{
		0,
		1,
		0xFFFFFFFFFFFFFFFF,
		0x0123456789ABCDEF,
		0x8000000000000000,
		0x00000000FFFFFFFF,
		0xFFFFFFFF00000000,
		0xDEADBEEFCAFEF00D,
	}
	// A spread of mixed-weight blocks on top of the edge cases.
	v := uint64(0x9E3779B97F4A7C15)
	for i := 0; i < 64; i++ {
		samples = append(samples, v)
		v = v*6364136223846793005 + 1442695040888963407
	}

	for _, pt := range samples {
		if got := c.Decrypt(c.Encrypt(pt)); got != pt {
			t.Fatalf("Decrypt(Encrypt(%#016x)) = %#016x", pt, got)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	c := testCipher()

	mid := "4F2A9C0D81B3E657"
	vid, err := c.EncryptHex(mid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := c.DecryptHex(vid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != mid {
		t.Fatalf("expected %q after round trip, got %q", mid, back)
	}
}

func TestDecryptHexPadsToFullID(t *testing.T) {
	c := testCipher()
	// A VID whose plaintext has leading zero nibbles must still decode to a
	// full 16-character MID.
	vid, err := c.EncryptHex("0000000000000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mid, err := c.DecryptHex(vid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mid) != 16 {
		t.Fatalf("expected 16-char MID, got %q", mid)
	}
}

func TestMalformedHexInput(t *testing.T) {
	c := testCipher()
	for _, in := range []string{"", "zzzz", "12345678901234567", "4F2A9C0D81B3E65G"} {
		if _, err := c.DecryptHex(in); !errors.Is(err, ErrInvalidCiphertext) {
			t.Fatalf("DecryptHex(%q): expected ErrInvalidCiphertext, got %v", in, err)
		}
	}
}
