/**
 * @description
 * This package derives the network's account identifiers. A UID or MID is the
 * first 16 hex characters of SHA-256 over the registration name, a coarse
 * wall-clock timestamp, and a hash of the registrant's password. The timestamp
 * is the only thing separating two registrations with identical inputs, so a
 * duplicate-ID hit during registration is treated as a conflict that the
 * caller retries with new input rather than something this package resolves.
 *
 * MMIDs are the same construction without the secret salt, truncated to seven
 * characters. At that width collisions are a real possibility and callers must
 * check the binding collection before committing one.
 *
 * @dependencies
 * - crypto/sha256, encoding/hex, strconv, strings, time: Standard Go libraries.
 */
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	accountIDLength     = 16
	mobileMoneyIDLength = 7
)

// Generator derives account and mobile-money identifiers. The clock is
// injectable so registration flows can be tested deterministically.
type Generator struct {
	now func() time.Time
}

// NewGenerator returns a Generator backed by the wall clock.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewGeneratorWithClock returns a Generator using the supplied clock.
func NewGeneratorWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// HashSecret returns the hex SHA-256 digest of a password or PIN-style secret.
// The same digest salts ID derivation and is what registration stores as the
// credential hash, so it must stay deterministic.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// DeriveAccountID derives a 16-character upper-case hex account identifier
// (UID for users, MID for merchants) from the registration name and secret.
func (g *Generator) DeriveAccountID(name, secret string) string {
	timestamp := strconv.FormatInt(g.now().Unix(), 10)
	raw := name + timestamp + HashSecret(secret)
	sum := sha256.Sum256([]byte(raw))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:accountIDLength]
}

// DeriveMobileMoneyID derives a 7-character upper-case hex MMID from an
// account ID and mobile number. No secret salt and no timestamp: the MMID is
// stable for a given account/number pair.
func (g *Generator) DeriveMobileMoneyID(accountID, mobileNumber string) string {
	sum := sha256.Sum256([]byte(accountID + mobileNumber))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:mobileMoneyIDLength]
}
