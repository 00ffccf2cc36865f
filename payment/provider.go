// Package payment defines the multi-chain payment verification abstraction
// and its chain-specific providers.
package payment

import (
	"context"
	"fmt"
	"sync"

	"taap-agent-system/models"
)

// Provider is the capability set every chain implementation offers. Chain
// selection goes through a Registry rather than conditionals at call sites.
type Provider interface {
	// ChainID returns the chain identifier, e.g. "ethereum" or "solana".
	ChainID() string

	// ValidateAddress reports whether address is syntactically valid for
	// this chain.
	ValidateAddress(address string) bool

	// QuotePrice returns the service price in the chain's native currency.
	QuotePrice(code models.ServiceCode) (float64, error)

	// VerifyPayment checks whether address's balance covers the service
	// price and, if so, atomically debits it and records a confirmed
	// payment lock. Insufficient funds returns (false, nil); invalid
	// address or unknown service code is a fatal input error.
	VerifyPayment(ctx context.Context, address string, code models.ServiceCode) (bool, error)

	// Refund reverses a previously confirmed payment lock for address,
	// erroring if no matching lock exists.
	Refund(ctx context.Context, address, orderID string) error
}

// Funder is the deposit surface of simulated providers, used to seed
// balances in demos and tests.
type Funder interface {
	Deposit(address string, amount float64) error
	Balance(address string) float64
}

// Registry maps chain identifiers to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its chain id.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ChainID()] = p
}

// Lookup returns the provider for chain, or an error for unknown chains.
func (r *Registry) Lookup(chain string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[chain]
	if !ok {
		return nil, fmt.Errorf("no payment provider registered for chain %q", chain)
	}
	return p, nil
}

// Chains lists the registered chain ids.
func (r *Registry) Chains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chains := make([]string, 0, len(r.providers))
	for chain := range r.providers {
		chains = append(chains, chain)
	}
	return chains
}
