/**
 * @description
 * The Registry owns one Ledger handle per bank. It is constructed once at
 * process start from the configured bank list and passed by handle to the
 * settlement engine, so every settlement on a given bank funnels through the
 * same per-chain lock.
 *
 * @dependencies
 * - fmt, sort: Standard Go libraries.
 * - internal/store: Persistence contract shared by all chains.
 */

package ledger

import (
	"fmt"
	"sort"

	"github.com/nexapay/upi-gateway/internal/store"
)

// Registry maps bank identifiers to their ledger chains.
type Registry struct {
	ledgers map[string]*Ledger
}

// NewRegistry builds one ledger per bank over the shared store.
func NewRegistry(s store.Store, banks []string) *Registry {
	ledgers := make(map[string]*Ledger, len(banks))
	for _, bank := range banks {
		ledgers[bank] = New(bank, s)
	}
	return &Registry{ledgers: ledgers}
}

// ForBank returns the chain for a bank.
func (r *Registry) ForBank(bank string) (*Ledger, error) {
	l, ok := r.ledgers[bank]
	if !ok {
		return nil, fmt.Errorf("no ledger chain registered for bank %q", bank)
	}
	return l, nil
}

// Banks lists the registered bank identifiers in stable order.
func (r *Registry) Banks() []string {
	banks := make([]string, 0, len(r.ledgers))
	for bank := range r.ledgers {
		banks = append(banks, bank)
	}
	sort.Strings(banks)
	return banks
}
