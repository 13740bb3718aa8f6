package asset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Settlement is the reserved symbol of the native settlement asset. Every
// order book trades one listed token against it, and it can never be listed
// as a token itself.
const Settlement = "ETH"

// Token is a listed tradable token.
type Token struct {
	Symbol   string         `json:"symbol"`
	Contract common.Address `json:"contract"` // on-chain token contract backing deposits
}

// Registry maps token symbols to their listings in a thread-safe manner.
// Listing new tokens is restricted to the owner fixed at construction.
type Registry struct {
	mu     sync.RWMutex
	owner  common.Address
	tokens map[string]Token // symbol -> token
}

// NewRegistry creates an empty registry administered by owner.
func NewRegistry(owner common.Address) *Registry {
	return &Registry{
		owner:  owner,
		tokens: make(map[string]Token),
	}
}

// Register lists a new token. Only the registry owner may list; the
// settlement symbol is reserved and duplicates are rejected.
func (r *Registry) Register(caller common.Address, symbol string, contract common.Address) error {
	if symbol == "" {
		return fmt.Errorf("empty token symbol")
	}
	if symbol == Settlement {
		return fmt.Errorf("%s is the settlement asset and cannot be listed", Settlement)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("only owner %s may list tokens", r.owner.Hex())
	}
	if _, exists := r.tokens[symbol]; exists {
		return fmt.Errorf("token %s already listed", symbol)
	}

	r.tokens[symbol] = Token{Symbol: symbol, Contract: contract}
	return nil
}

// IsRegistered reports whether a token symbol is listed.
func (r *Registry) IsRegistered(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tokens[symbol]
	return exists
}

// Get retrieves a listing by symbol.
func (r *Registry) Get(symbol string) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tok, exists := r.tokens[symbol]
	if !exists {
		return Token{}, fmt.Errorf("token %s not listed", symbol)
	}
	return tok, nil
}

// List returns all listed tokens sorted by symbol.
func (r *Registry) List() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]Token, 0, len(r.tokens))
	for _, tok := range r.tokens {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Symbol < tokens[j].Symbol
	})
	return tokens
}

// Owner returns the address allowed to list tokens.
func (r *Registry) Owner() common.Address {
	return r.owner
}

// Count returns the number of listed tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
