package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

// Store provides Pebble-based persistence for ledger balances.
// Thread-safe: all operations go through the Ledger's mutex.
type Store struct {
	db *pebble.DB
}

// balanceRecord is the JSON value stored per (account, asset) key.
type balanceRecord struct {
	Address common.Address `json:"address"`
	Asset   string         `json:"asset"`
	Qty     int64          `json:"qty"`
}

// NewStore opens a Pebble database at the given path.
func NewStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                 pebble.NewCache(64 << 20), // 64MB cache
		MemTableSize:          32 << 20,                  // 32MB memtable
		L0CompactionThreshold: 2,
		L0StopWritesThreshold: 12,
		MaxOpenFiles:          1000,
		BytesPerSync:          512 << 10, // 512KB
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dbPath, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBalance persists one (account, asset) balance.
func (s *Store) SaveBalance(addr common.Address, asset string, qty int64) error {
	data, err := json.Marshal(balanceRecord{Address: addr, Asset: asset, Qty: qty})
	if err != nil {
		return fmt.Errorf("failed to marshal balance: %w", err)
	}

	if err := s.db.Set(balanceKey(addr, asset), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// LoadBalance loads one (account, asset) balance.
// Returns zero if the key doesn't exist.
func (s *Store) LoadBalance(addr common.Address, asset string) (int64, error) {
	data, closer, err := s.db.Get(balanceKey(addr, asset))
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	defer closer.Close()

	var rec balanceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, fmt.Errorf("failed to unmarshal balance: %w", err)
	}
	return rec.Qty, nil
}

// balanceKey builds the Pebble key for one (account, asset) pair.
// Format: bal/<address-hex>/<asset>
func balanceKey(addr common.Address, asset string) []byte {
	return []byte(fmt.Sprintf("bal/%s/%s", addr.Hex(), asset))
}
