package api

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST Types
// ==============================

// TokenInfo represents a listed token
type TokenInfo struct {
	Symbol   string `json:"symbol"`
	Contract string `json:"contract"`
}

// RegisterTokenRequest is the payload for POST /api/v1/tokens
type RegisterTokenRequest struct {
	Caller   string `json:"caller"`   // must be the exchange owner
	Symbol   string `json:"symbol"`   // e.g., "LINK"
	Contract string `json:"contract"` // token contract address (0x...)
}

// RestingOrder is one order of an orderbook snapshot, in priority order
type RestingOrder struct {
	ID     uint64 `json:"id"`
	Trader string `json:"trader"`
	Amount int64  `json:"amount"` // remaining unfilled quantity
	Price  int64  `json:"price"`
}

// OrderBookResponse represents one (token, side) book
type OrderBookResponse struct {
	Symbol    string         `json:"symbol"`
	Side      string         `json:"side"`   // "buy" or "sell"
	Orders    []RestingOrder `json:"orders"` // best price first
	Timestamp int64          `json:"timestamp"`
}

// LimitOrderRequest is the payload for POST /api/v1/orders
type LimitOrderRequest struct {
	Trader string `json:"trader"`
	Token  string `json:"token"`
	Side   string `json:"side"` // "buy" or "sell"
	Amount int64  `json:"amount"`
	Price  int64  `json:"price"`
}

// LimitOrderResponse is the response from limit order submission
type LimitOrderResponse struct {
	Status  string `json:"status"` // "accepted", "rejected"
	OrderID uint64 `json:"orderId,omitempty"`
	Reason  string `json:"reason,omitempty"` // rejection reason if rejected
}

// MarketOrderRequest is the payload for POST /api/v1/orders/market
type MarketOrderRequest struct {
	Trader string `json:"trader"`
	Token  string `json:"token"`
	Side   string `json:"side"`
	Amount int64  `json:"amount"`
}

// MarketOrderResponse reports the filled quantity of a market order
type MarketOrderResponse struct {
	Status string `json:"status"`
	Filled int64  `json:"filled"`
	Reason string `json:"reason,omitempty"`
}

// BalanceResponse reports one (account, asset) balance
type BalanceResponse struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Balance int64  `json:"balance"`
}

// FundsRequest is the payload for deposit/withdraw endpoints
type FundsRequest struct {
	Asset  string `json:"asset"` // "ETH" or a listed token symbol
	Amount int64  `json:"amount"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// TradeUpdate is broadcast when a fill executes
type TradeUpdate struct {
	Type      string `json:"type"` // "trade"
	TradeID   string `json:"tradeId"`
	Token     string `json:"token"`
	Price     int64  `json:"price"`
	Qty       int64  `json:"qty"`
	Side      string `json:"side"` // taker side
	Maker     string `json:"maker"`
	Taker     string `json:"taker"`
	Timestamp int64  `json:"timestamp"`
}
