/**
 * @description
 * This package implements the Speck 64/128 block cipher used to derive merchant
 * virtual IDs (VIDs). A merchant's 16-hex-char MID is interpreted as a 64-bit
 * integer, encrypted under a fixed network-wide key, and the result is handed
 * out as the VID printed into QR payloads. Payee resolution runs the same
 * cipher in reverse, so no VID-to-MID table is strictly required.
 *
 * The cipher is a capability, not a security boundary: anyone holding the key
 * can map VIDs back to MIDs, which is exactly what the bank-side resolver does.
 *
 * @dependencies
 * - errors, fmt, strconv, strings: Standard Go libraries.
 */
package speck

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	rounds     = 27
	wordSize   = 32
	alphaShift = 8
	betaShift  = 3
)

// ErrInvalidCiphertext is returned when a VID or MID is not valid hex for a
// 64-bit block. Callers must treat it as a resolution failure, not a fault.
var ErrInvalidCiphertext = errors.New("speck: input is not a valid 64-bit hex block")

// Cipher holds the expanded key schedule. It is generated once at construction
// and the Cipher is stateless afterwards, so a single instance may be shared
// across goroutines for the lifetime of the process.
type Cipher struct {
	schedule [rounds]uint32
}

// New expands the 128-bit key (given as two 64-bit halves, most significant
// first) into the round-key schedule.
func New(keyHi, keyLo uint64) *Cipher {
	c := &Cipher{}

	var l [rounds + 2]uint32
	l[0] = uint32(keyLo >> wordSize)
	l[1] = uint32(keyHi)
	l[2] = uint32(keyHi >> wordSize)

	c.schedule[0] = uint32(keyLo)
	for i := 0; i < rounds-1; i++ {
		newL, newK := encryptRound(l[i], c.schedule[i], uint32(i))
		l[i+3] = newL
		c.schedule[i+1] = newK
	}
	return c
}

func rotl(x uint32, r uint) uint32 { return x<<r | x>>(wordSize-r) }
func rotr(x uint32, r uint) uint32 { return x>>r | x<<(wordSize-r) }

// encryptRound applies one Speck round to the (upper, lower) word pair under
// round key k.
func encryptRound(x, y, k uint32) (uint32, uint32) {
	x = rotr(x, alphaShift)
	x += y
	x ^= k
	y = rotl(y, betaShift)
	y ^= x
	return x, y
}

// decryptRound is the algebraic inverse of encryptRound.
func decryptRound(x, y, k uint32) (uint32, uint32) {
	y ^= x
	y = rotr(y, betaShift)
	x ^= k
	x -= y
	x = rotl(x, alphaShift)
	return x, y
}

// Encrypt maps a 64-bit plaintext block to its ciphertext block.
func (c *Cipher) Encrypt(plaintext uint64) uint64 {
	x := uint32(plaintext >> wordSize)
	y := uint32(plaintext)
	for _, k := range c.schedule {
		x, y = encryptRound(x, y, k)
	}
	return uint64(x)<<wordSize | uint64(y)
}

// Decrypt is the exact inverse of Encrypt: Decrypt(Encrypt(v)) == v for every
// 64-bit v.
func (c *Cipher) Decrypt(ciphertext uint64) uint64 {
	x := uint32(ciphertext >> wordSize)
	y := uint32(ciphertext)
	for i := rounds - 1; i >= 0; i-- {
		x, y = decryptRound(x, y, c.schedule[i])
	}
	return uint64(x)<<wordSize | uint64(y)
}

// EncryptHex encrypts a hex-encoded 64-bit ID (a merchant MID) and returns the
// upper-case hex VID without leading zero padding, matching the format printed
// into merchant QR payloads.
func (c *Cipher) EncryptHex(id string) (string, error) {
	v, err := parseHexBlock(id)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strconv.FormatUint(c.Encrypt(v), 16)), nil
}

// DecryptHex reverses EncryptHex, recovering the 16-hex-char MID from a VID.
func (c *Cipher) DecryptHex(vid string) (string, error) {
	v, err := parseHexBlock(vid)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016X", c.Decrypt(v)), nil
}

func parseHexBlock(s string) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if trimmed == "" || len(trimmed) > 16 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCiphertext, s)
	}
	v, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCiphertext, s)
	}
	return v, nil
}
