package asset

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	stranger = common.HexToAddress("0x0000000000000000000000000000000000000002")
	contract = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func TestRegisterOnlyOwner(t *testing.T) {
	r := NewRegistry(owner)

	if err := r.Register(owner, "LINK", contract); err != nil {
		t.Fatalf("owner failed to list token: %v", err)
	}
	if err := r.Register(stranger, "AAVE", contract); err == nil {
		t.Errorf("expected non-owner listing to be rejected")
	}
	if r.IsRegistered("AAVE") {
		t.Errorf("rejected listing must not register the token")
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		wantErr bool
	}{
		{name: "valid symbol", symbol: "LINK", wantErr: false},
		{name: "duplicate symbol", symbol: "LINK", wantErr: true},
		{name: "settlement symbol reserved", symbol: Settlement, wantErr: true},
		{name: "empty symbol", symbol: "", wantErr: true},
	}

	r := NewRegistry(owner)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(owner, tt.symbol, contract)
			if (err != nil) != tt.wantErr {
				t.Errorf("Register(%q) error = %v, wantErr %v", tt.symbol, err, tt.wantErr)
			}
		})
	}
}

func TestIsRegisteredAndList(t *testing.T) {
	r := NewRegistry(owner)
	for _, sym := range []string{"LINK", "AAVE", "BAT"} {
		if err := r.Register(owner, sym, contract); err != nil {
			t.Fatalf("failed to list %s: %v", sym, err)
		}
	}

	if !r.IsRegistered("LINK") {
		t.Errorf("LINK should be registered")
	}
	if r.IsRegistered("DOGE") {
		t.Errorf("DOGE should not be registered")
	}
	if r.IsRegistered(Settlement) {
		t.Errorf("settlement asset must never read as a registered token")
	}

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(list))
	}
	// List is sorted by symbol
	for i, want := range []string{"AAVE", "BAT", "LINK"} {
		if list[i].Symbol != want {
			t.Errorf("expected %s at index %d, got %s", want, i, list[i].Symbol)
		}
	}
}
