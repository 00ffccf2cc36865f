package payment

import (
	"fmt"
	"sync"
	"time"
)

// paymentLock records one confirmed, debited payment.
type paymentLock struct {
	address     string
	serviceCode string
	amount      float64
	lockedAt    time.Time
	confirmed   bool
}

// ledger holds one chain's balance and lock state. Each provider owns an
// independent instance; there is no cross-chain sharing. Debit-and-lock is
// a single critical section so concurrent verifications for the same
// address cannot double-spend a balance.
type ledger struct {
	mu       sync.Mutex
	balances map[string]float64
	locks    map[string]paymentLock
}

func newLedger() *ledger {
	return &ledger{
		balances: make(map[string]float64),
		locks:    make(map[string]paymentLock),
	}
}

func lockKey(address, serviceCode string) string {
	return address + "_" + serviceCode
}

func (l *ledger) deposit(address string, amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[address] += amount
}

func (l *ledger) balance(address string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[address]
}

// covers reports whether address holds at least price. Advisory only: the
// balance is re-checked inside debitAndLock.
func (l *ledger) covers(address string, price float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[address] >= price
}

// debitAndLock atomically checks the balance, debits price, and records a
// confirmed lock keyed by (address, serviceCode). Returns false when the
// balance no longer covers the price.
func (l *ledger) debitAndLock(address, serviceCode string, price float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[address] < price {
		return false
	}
	l.balances[address] -= price
	l.locks[lockKey(address, serviceCode)] = paymentLock{
		address:     address,
		serviceCode: serviceCode,
		amount:      price,
		lockedAt:    time.Now(),
		confirmed:   true,
	}
	return true
}

// refund reverses the most recent confirmed lock for address, crediting the
// locked amount back. It errors when address has no lock or the lock was
// never confirmed.
func (l *ledger) refund(address string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var key string
	var latest paymentLock
	for k, lock := range l.locks {
		if lock.address != address {
			continue
		}
		if key == "" || lock.lockedAt.After(latest.lockedAt) {
			key, latest = k, lock
		}
	}
	if key == "" {
		return fmt.Errorf("payment not found for %s", address)
	}
	if !latest.confirmed {
		return fmt.Errorf("payment not confirmed for %s", address)
	}

	l.balances[address] += latest.amount
	delete(l.locks, key)
	return nil
}
