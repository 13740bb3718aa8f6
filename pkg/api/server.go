package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/spotdexlabs/spotdex/pkg/dex/asset"
	"github.com/spotdexlabs/spotdex/pkg/dex/engine"
	"github.com/spotdexlabs/spotdex/pkg/dex/ledger"
	"github.com/spotdexlabs/spotdex/pkg/dex/orderbook"
)

// Server handles REST API and WebSocket connections
type Server struct {
	engine   *engine.Engine
	ledger   *ledger.Ledger
	registry *asset.Registry
	router   *mux.Router
	hub      *Hub
}

// NewServer creates a new API server
func NewServer(eng *engine.Engine, led *ledger.Ledger, reg *asset.Registry) *Server {
	s := &Server{
		engine:   eng,
		ledger:   led,
		registry: reg,
		router:   mux.NewRouter(),
		hub:      NewHub(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Token endpoints
	api.HandleFunc("/tokens", s.handleListTokens).Methods("GET")
	api.HandleFunc("/tokens", s.handleRegisterToken).Methods("POST")

	// Orderbook
	api.HandleFunc("/orderbook/{symbol}/{side}", s.handleGetOrderBook).Methods("GET")

	// Order submission
	api.HandleFunc("/orders", s.handleSubmitLimitOrder).Methods("POST")
	api.HandleFunc("/orders/market", s.handleSubmitMarketOrder).Methods("POST")

	// Wallet endpoints
	api.HandleFunc("/accounts/{address}/balances/{asset}", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/accounts/{address}/deposit", s.handleDeposit).Methods("POST")
	api.HandleFunc("/accounts/{address}/withdraw", s.handleWithdraw).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Router exposes the configured handler, wrapped the same way Start serves it.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	// Start WebSocket hub
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// BroadcastFill pushes an executed fill to all WebSocket clients.
func (s *Server) BroadcastFill(f engine.Fill) {
	update := TradeUpdate{
		Type:      "trade",
		TradeID:   f.TradeID,
		Token:     f.Token,
		Price:     f.Price,
		Qty:       f.Qty,
		Side:      f.Side.String(),
		Maker:     f.Maker.Hex(),
		Taker:     f.Taker.Hex(),
		Timestamp: f.Time,
	}

	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("[ws] failed to marshal trade update: %v", err)
		return
	}
	s.hub.Broadcast(data)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.registry.List()

	response := make([]TokenInfo, len(tokens))
	for i, tok := range tokens {
		response[i] = TokenInfo{Symbol: tok.Symbol, Contract: tok.Contract.Hex()}
	}

	respondJSON(w, response)
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}

	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return
	}
	if !common.IsHexAddress(req.Contract) {
		respondError(w, http.StatusBadRequest, "invalid contract address", "")
		return
	}

	err := s.registry.Register(common.HexToAddress(req.Caller), req.Symbol, common.HexToAddress(req.Contract))
	if err != nil {
		respondError(w, http.StatusForbidden, "listing rejected", err.Error())
		return
	}

	log.Printf("[api] token listed: %s", req.Symbol)
	respondJSON(w, TokenInfo{Symbol: req.Symbol, Contract: common.HexToAddress(req.Contract).Hex()})
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := vars["symbol"]

	side, err := parseSide(vars["side"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}

	snapshot, err := s.engine.OrderBookSnapshot(symbol, side)
	if err != nil {
		respondError(w, http.StatusNotFound, "orderbook not found", err.Error())
		return
	}

	orders := make([]RestingOrder, len(snapshot))
	for i, o := range snapshot {
		orders[i] = RestingOrder{
			ID:     o.ID,
			Trader: o.Trader.Hex(),
			Amount: o.Amount,
			Price:  o.Price,
		}
	}

	respondJSON(w, OrderBookResponse{
		Symbol:    symbol,
		Side:      side.String(),
		Orders:    orders,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleSubmitLimitOrder(w http.ResponseWriter, r *http.Request) {
	var req LimitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}
	if !common.IsHexAddress(req.Trader) {
		respondError(w, http.StatusBadRequest, "invalid trader address", "")
		return
	}

	orderID, err := s.engine.CreateLimitOrder(req.Token, side, req.Amount, req.Price, common.HexToAddress(req.Trader))
	if err != nil {
		respondJSONStatus(w, rejectStatus(err), LimitOrderResponse{Status: "rejected", Reason: rejectReason(err)})
		return
	}

	respondJSON(w, LimitOrderResponse{Status: "accepted", OrderID: orderID})
}

func (s *Server) handleSubmitMarketOrder(w http.ResponseWriter, r *http.Request) {
	var req MarketOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}
	if !common.IsHexAddress(req.Trader) {
		respondError(w, http.StatusBadRequest, "invalid trader address", "")
		return
	}

	filled, err := s.engine.CreateMarketOrder(side, req.Token, req.Amount, common.HexToAddress(req.Trader))
	if err != nil {
		respondJSONStatus(w, rejectStatus(err), MarketOrderResponse{Status: "rejected", Filled: filled, Reason: rejectReason(err)})
		return
	}

	respondJSON(w, MarketOrderResponse{Status: "executed", Filled: filled})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addressStr := vars["address"]

	if !common.IsHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}

	addr := common.HexToAddress(addressStr)
	assetSym := vars["asset"]

	respondJSON(w, BalanceResponse{
		Address: addr.Hex(),
		Asset:   assetSym,
		Balance: s.ledger.BalanceOf(addr, assetSym),
	})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleFunds(w, r, s.ledger.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleFunds(w, r, s.ledger.Withdraw)
}

func (s *Server) handleFunds(w http.ResponseWriter, r *http.Request, op func(common.Address, string, int64) error) {
	vars := mux.Vars(r)
	addressStr := vars["address"]

	if !common.IsHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}

	var req FundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}

	// Only the settlement asset and listed tokens can be held on the exchange.
	if req.Asset != asset.Settlement && !s.registry.IsRegistered(req.Asset) {
		respondError(w, http.StatusNotFound, "unknown asset", fmt.Sprintf("asset %s is not listed", req.Asset))
		return
	}

	addr := common.HexToAddress(addressStr)
	if err := op(addr, req.Asset, req.Amount); err != nil {
		respondError(w, http.StatusBadRequest, "rejected", err.Error())
		return
	}

	respondJSON(w, BalanceResponse{
		Address: addr.Hex(),
		Asset:   req.Asset,
		Balance: s.ledger.BalanceOf(addr, req.Asset),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func parseSide(v string) (orderbook.Side, error) {
	switch v {
	case "buy", "BUY":
		return orderbook.Buy, nil
	case "sell", "SELL":
		return orderbook.Sell, nil
	default:
		return 0, fmt.Errorf("side must be buy or sell, got %q", v)
	}
}

// rejectReason maps engine rejections to their enumerated wire names.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, engine.ErrUnknownToken):
		return "UnknownToken"
	case errors.Is(err, engine.ErrInsufficientSettlementBalance):
		return "InsufficientSettlementBalance"
	case errors.Is(err, engine.ErrInsufficientTokenBalance):
		return "InsufficientTokenBalance"
	case errors.Is(err, engine.ErrInvalidOrder):
		return "InvalidOrder"
	default:
		return err.Error()
	}
}

func rejectStatus(err error) int {
	if errors.Is(err, engine.ErrUnknownToken) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[api] failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, errMsg, message string) {
	respondJSONStatus(w, status, ErrorResponse{Error: errMsg, Message: message})
}
