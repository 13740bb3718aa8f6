package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/spotdexlabs/spotdex/pkg/dex/asset"
	"github.com/spotdexlabs/spotdex/pkg/dex/engine"
	"github.com/spotdexlabs/spotdex/pkg/dex/ledger"
)

const (
	ownerHex  = "0x0000000000000000000000000000000000000001"
	traderHex = "0x00000000000000000000000000000000000000aa"
)

func newTestServer(t *testing.T) (*Server, *ledger.Ledger) {
	t.Helper()
	led := ledger.New()
	reg := asset.NewRegistry(common.HexToAddress(ownerHex))
	if err := reg.Register(common.HexToAddress(ownerHex), "LINK", common.HexToAddress("0xcc")); err != nil {
		t.Fatalf("failed to list LINK: %v", err)
	}
	eng := engine.New(led, reg, nil)
	return NewServer(eng, led, reg), led
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestDepositAndSubmitLimitOrder(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/v1/accounts/"+traderHex+"/deposit", FundsRequest{Asset: "ETH", Amount: 1000})
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, "POST", "/api/v1/orders", LimitOrderRequest{
		Trader: traderHex, Token: "LINK", Side: "buy", Amount: 10, Price: 5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("order status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp LimitOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "accepted" || resp.OrderID == 0 {
		t.Errorf("response = %+v, want accepted with order id", resp)
	}

	// Book reflects the resting order
	rec = doJSON(t, s, "GET", "/api/v1/orderbook/LINK/buy", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("orderbook status = %d", rec.Code)
	}
	var book OrderBookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &book); err != nil {
		t.Fatalf("failed to decode book: %v", err)
	}
	if len(book.Orders) != 1 || book.Orders[0].Amount != 10 || book.Orders[0].Price != 5 {
		t.Errorf("book = %+v, want one order 10@5", book.Orders)
	}
}

func TestSubmitOrderRejections(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name       string
		req        LimitOrderRequest
		wantStatus int
		wantReason string
	}{
		{
			name:       "unknown token",
			req:        LimitOrderRequest{Trader: traderHex, Token: "AAVE", Side: "buy", Amount: 10, Price: 1},
			wantStatus: http.StatusNotFound,
			wantReason: "UnknownToken",
		},
		{
			name:       "unfunded buy",
			req:        LimitOrderRequest{Trader: traderHex, Token: "LINK", Side: "buy", Amount: 10, Price: 1},
			wantStatus: http.StatusBadRequest,
			wantReason: "InsufficientSettlementBalance",
		},
		{
			name:       "unfunded sell",
			req:        LimitOrderRequest{Trader: traderHex, Token: "LINK", Side: "sell", Amount: 10, Price: 1},
			wantStatus: http.StatusBadRequest,
			wantReason: "InsufficientTokenBalance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, "POST", "/api/v1/orders", tt.req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp LimitOrderResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != "rejected" || resp.Reason != tt.wantReason {
				t.Errorf("response = %+v, want rejected/%s", resp, tt.wantReason)
			}
		})
	}
}

func TestMarketOrderEndpoint(t *testing.T) {
	s, led := newTestServer(t)

	// Rest a sell, then take it with a market buy
	makerHex := "0x00000000000000000000000000000000000000bb"
	if err := led.Deposit(common.HexToAddress(makerHex), "LINK", 10); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	rec := doJSON(t, s, "POST", "/api/v1/orders", LimitOrderRequest{
		Trader: makerHex, Token: "LINK", Side: "sell", Amount: 10, Price: 100,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sell order status = %d", rec.Code)
	}

	if err := led.Deposit(common.HexToAddress(traderHex), "ETH", 10_000); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	rec = doJSON(t, s, "POST", "/api/v1/orders/market", MarketOrderRequest{
		Trader: traderHex, Token: "LINK", Side: "buy", Amount: 4,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("market order status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp MarketOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "executed" || resp.Filled != 4 {
		t.Errorf("response = %+v, want executed with filled 4", resp)
	}
}

func TestRegisterTokenEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	// Non-owner listing is rejected
	rec := doJSON(t, s, "POST", "/api/v1/tokens", RegisterTokenRequest{
		Caller: traderHex, Symbol: "AAVE", Contract: "0x00000000000000000000000000000000000000dd",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-owner listing status = %d, want 403", rec.Code)
	}

	// Owner listing passes and shows up in the token list
	rec = doJSON(t, s, "POST", "/api/v1/tokens", RegisterTokenRequest{
		Caller: ownerHex, Symbol: "AAVE", Contract: "0x00000000000000000000000000000000000000dd",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("owner listing status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, "GET", "/api/v1/tokens", nil)
	var tokens []TokenInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("failed to decode tokens: %v", err)
	}
	if len(tokens) != 2 {
		t.Errorf("expected 2 listed tokens, got %d", len(tokens))
	}
}

func TestDepositUnknownAsset(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/v1/accounts/"+traderHex+"/deposit", FundsRequest{Asset: "DOGE", Amount: 10})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown asset deposit status = %d, want 404", rec.Code)
	}
}
