package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger tracks per-(account, asset) balances in a thread-safe manner.
// Handles deposits, withdrawals and the two-legged transfers the matching
// engine settles fills with. Uses an in-memory cache + Pebble persistence
// for durability; New() builds a memory-only ledger for tests and tooling.
type Ledger struct {
	mu       sync.RWMutex
	balances map[common.Address]map[string]int64 // address -> asset -> quantity
	store    *Store                              // nil for memory-only ledgers
}

// New creates a memory-only ledger with no persistence.
func New() *Ledger {
	return &Ledger{
		balances: make(map[common.Address]map[string]int64),
	}
}

// Open creates a ledger backed by a Pebble database at dbPath.
func Open(dbPath string) (*Ledger, error) {
	store, err := NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	return &Ledger{
		balances: make(map[common.Address]map[string]int64),
		store:    store,
	}, nil
}

// Close closes the underlying Pebble database, if any.
func (l *Ledger) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

// BalanceOf returns the balance of asset held by addr. Unknown accounts
// and assets read as zero.
func (l *Ledger) BalanceOf(addr common.Address, asset string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(addr, asset)
}

// balanceLocked reads a balance, faulting it in from Pebble on cache miss.
// Assumes the lock is held.
func (l *Ledger) balanceLocked(addr common.Address, asset string) int64 {
	if assets, ok := l.balances[addr]; ok {
		if qty, ok := assets[asset]; ok {
			return qty
		}
	}

	qty := int64(0)
	if l.store != nil {
		loaded, err := l.store.LoadBalance(addr, asset)
		if err != nil {
			fmt.Printf("[ledger] failed to load balance %s/%s: %v\n", addr.Hex(), asset, err)
		} else {
			qty = loaded
		}
	}

	l.setLocked(addr, asset, qty)
	return qty
}

// setLocked updates the cached balance. Assumes the lock is held.
func (l *Ledger) setLocked(addr common.Address, asset string, qty int64) {
	assets, ok := l.balances[addr]
	if !ok {
		assets = make(map[string]int64)
		l.balances[addr] = assets
	}
	assets[asset] = qty
}

// persistLocked writes a balance through to Pebble. Assumes the lock is held.
func (l *Ledger) persistLocked(addr common.Address, asset string) error {
	if l.store == nil {
		return nil
	}
	return l.store.SaveBalance(addr, asset, l.balances[addr][asset])
}

// Deposit credits qty of asset to addr. Covers both the native settlement
// deposit and token deposits; the caller decides which asset symbol applies.
func (l *Ledger) Deposit(addr common.Address, asset string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("deposit amount must be positive: %d", qty)
	}
	if asset == "" {
		return fmt.Errorf("empty asset symbol")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.setLocked(addr, asset, l.balanceLocked(addr, asset)+qty)
	return l.persistLocked(addr, asset)
}

// Withdraw debits qty of asset from addr.
// Returns error on shortfall with no balance change.
func (l *Ledger) Withdraw(addr common.Address, asset string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("withdraw amount must be positive: %d", qty)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	have := l.balanceLocked(addr, asset)
	if have < qty {
		return fmt.Errorf("insufficient %s balance: have %d, need %d", asset, have, qty)
	}

	l.setLocked(addr, asset, have-qty)
	return l.persistLocked(addr, asset)
}

// Transfer moves qty of asset from one account to another. Fails only on
// genuine shortfall, with no balance change on either account.
func (l *Ledger) Transfer(from, to common.Address, asset string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("transfer amount must be positive: %d", qty)
	}
	if from == to {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	have := l.balanceLocked(from, asset)
	if have < qty {
		return fmt.Errorf("insufficient %s balance: have %d, need %d", asset, have, qty)
	}

	l.setLocked(from, asset, have-qty)
	l.setLocked(to, asset, l.balanceLocked(to, asset)+qty)

	if err := l.persistLocked(from, asset); err != nil {
		return err
	}
	return l.persistLocked(to, asset)
}
