package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spotdexlabs/spotdex/pkg/dex/asset"
	"github.com/spotdexlabs/spotdex/pkg/dex/orderbook"
)

// Rejection reasons. All are detected before any book or balance mutation,
// so a rejected call has no effect.
var (
	ErrUnknownToken                  = errors.New("token not listed")
	ErrInsufficientSettlementBalance = errors.New("insufficient settlement balance")
	ErrInsufficientTokenBalance      = errors.New("insufficient token balance")
	ErrInvalidOrder                  = errors.New("order amount and price must be positive")
)

// Ledger is the balance collaborator the engine validates against and
// settles through.
type Ledger interface {
	BalanceOf(addr common.Address, asset string) int64
	Transfer(from, to common.Address, asset string, qty int64) error
}

// TokenRegistry answers whether a symbol is tradable.
type TokenRegistry interface {
	IsRegistered(symbol string) bool
}

// Fill is one executed match between a taker and a resting maker order.
// Price is always the maker's limit price.
type Fill struct {
	TradeID string         `json:"tradeId"`
	Token   string         `json:"token"`
	Maker   common.Address `json:"maker"`
	Taker   common.Address `json:"taker"`
	Side    orderbook.Side `json:"side"` // taker side
	Price   int64          `json:"price"`
	Qty     int64          `json:"qty"`
	Time    int64          `json:"time"` // unix milliseconds
}

// Notional returns the settlement-asset value of the fill.
func (f Fill) Notional() int64 {
	return f.Qty * f.Price
}

type bookKey struct {
	token string
	side  orderbook.Side
}

// Engine accepts limit and market orders, validates funds against the
// ledger, and matches market orders against the opposing book in price-time
// priority. A single mutex serializes every call: each order creation and
// match sweep runs to completion before the next request is observed.
type Engine struct {
	mu       sync.Mutex
	ledger   Ledger
	registry TokenRegistry
	books    map[bookKey]*orderbook.Book
	nextID   uint64
	log      *zap.SugaredLogger

	// OnFill is invoked for every executed fill, while the engine lock is
	// held. Handlers must not call back into the engine; hand off to a
	// channel or goroutine for slow sinks.
	OnFill func(Fill)
}

// New creates an engine over the given collaborators. A nil logger is
// replaced with a no-op logger.
func New(l Ledger, r TokenRegistry, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		ledger:   l,
		registry: r,
		books:    make(map[bookKey]*orderbook.Book),
		log:      logger,
	}
}

// book returns the (token, side) book, creating it on first use.
// Assumes the engine lock is held.
func (e *Engine) book(token string, side orderbook.Side) *orderbook.Book {
	key := bookKey{token: token, side: side}
	b, ok := e.books[key]
	if !ok {
		b = orderbook.New(side)
		e.books[key] = b
	}
	return b
}

// CreateLimitOrder validates and rests a new limit order.
//
// Preconditions, checked before any mutation: the token must be listed; a
// buy needs settlement balance >= amount*price, a sell needs token balance
// >= amount. The balance check is point-in-time, not an escrow lock —
// sufficiency is re-derived per fill at settlement time. No settlement
// happens on acceptance.
func (e *Engine) CreateLimitOrder(token string, side orderbook.Side, amount, price int64, trader common.Address) (uint64, error) {
	if amount <= 0 || price <= 0 {
		return 0, ErrInvalidOrder
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registry.IsRegistered(token) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}

	switch side {
	case orderbook.Buy:
		if e.ledger.BalanceOf(trader, asset.Settlement) < amount*price {
			return 0, ErrInsufficientSettlementBalance
		}
	case orderbook.Sell:
		if e.ledger.BalanceOf(trader, token) < amount {
			return 0, ErrInsufficientTokenBalance
		}
	}

	e.nextID++
	o := &orderbook.Order{
		ID:     e.nextID,
		Trader: trader,
		Token:  token,
		Side:   side,
		Amount: amount,
		Price:  price,
	}
	e.book(token, side).Insert(o)

	e.log.Infow("limit_order_accepted",
		"order_id", o.ID,
		"token", token,
		"side", side.String(),
		"amount", amount,
		"price", price,
		"trader", trader.Hex())
	return o.ID, nil
}

// CreateMarketOrder fills up to amount of token against the opposing book,
// walking resting orders in price priority. Each fill executes at the
// maker's limit price; the taker carries no price. Funds are checked per
// prospective fill: if the taker cannot cover even the first one the call is
// rejected with no effect, and a later shortfall stops the sweep keeping
// the fills already settled. Any remainder after the book is exhausted is
// discarded, never rested. Returns the total quantity filled.
func (e *Engine) CreateMarketOrder(side orderbook.Side, token string, amount int64, trader common.Address) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidOrder
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registry.IsRegistered(token) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}

	book := e.book(token, side.Opposite())

	remaining := amount
	filled := int64(0)
	for remaining > 0 {
		best := book.PeekBest()
		if best == nil {
			break // book exhausted — partial or zero fill, no error
		}

		qty := min(remaining, best.Amount)
		if err := e.checkTakerFunds(trader, side, token, qty, best.Price); err != nil {
			if filled == 0 {
				return 0, err
			}
			break
		}

		if err := e.settle(trader, best, side, token, qty); err != nil {
			// Validation already passed for both parties, so this is an
			// invariant violation. The current fill was not applied; stop
			// the sweep here.
			e.log.Errorw("settlement_failed",
				"token", token,
				"maker_order", best.ID,
				"qty", qty,
				"price", best.Price,
				"err", err)
			return filled, fmt.Errorf("settlement failed: %w", err)
		}

		best.Amount -= qty
		best.Filled += qty
		remaining -= qty
		filled += qty
		if best.Amount == 0 {
			book.PopIfExhausted(best)
		}
	}

	e.log.Infow("market_order_executed",
		"token", token,
		"side", side.String(),
		"requested", amount,
		"filled", filled,
		"trader", trader.Hex())
	return filled, nil
}

// checkTakerFunds verifies the taker can cover one prospective fill.
func (e *Engine) checkTakerFunds(taker common.Address, side orderbook.Side, token string, qty, price int64) error {
	if side == orderbook.Buy {
		if e.ledger.BalanceOf(taker, asset.Settlement) < qty*price {
			return ErrInsufficientSettlementBalance
		}
		return nil
	}
	if e.ledger.BalanceOf(taker, token) < qty {
		return ErrInsufficientTokenBalance
	}
	return nil
}

// settle moves both legs of a fill: qty of token from seller to buyer and
// qty*price of settlement asset from buyer to seller. Either both legs apply
// or neither does: if the second leg fails the first is reversed before
// returning. Emits the fill to OnFill on success.
func (e *Engine) settle(taker common.Address, maker *orderbook.Order, takerSide orderbook.Side, token string, qty int64) error {
	notional := qty * maker.Price

	if takerSide == orderbook.Buy {
		if err := e.ledger.Transfer(taker, maker.Trader, asset.Settlement, notional); err != nil {
			return err
		}
		if err := e.ledger.Transfer(maker.Trader, taker, token, qty); err != nil {
			if rbErr := e.ledger.Transfer(maker.Trader, taker, asset.Settlement, notional); rbErr != nil {
				return fmt.Errorf("token leg failed (%v) and cash rollback failed: %w", err, rbErr)
			}
			return err
		}
	} else {
		if err := e.ledger.Transfer(taker, maker.Trader, token, qty); err != nil {
			return err
		}
		if err := e.ledger.Transfer(maker.Trader, taker, asset.Settlement, notional); err != nil {
			if rbErr := e.ledger.Transfer(maker.Trader, taker, token, qty); rbErr != nil {
				return fmt.Errorf("cash leg failed (%v) and token rollback failed: %w", err, rbErr)
			}
			return err
		}
	}

	if e.OnFill != nil {
		e.OnFill(Fill{
			TradeID: uuid.NewString(),
			Token:   token,
			Maker:   maker.Trader,
			Taker:   taker,
			Side:    takerSide,
			Price:   maker.Price,
			Qty:     qty,
			Time:    time.Now().UnixMilli(),
		})
	}
	return nil
}

// OrderBookSnapshot returns the (token, side) book in exact priority order.
func (e *Engine) OrderBookSnapshot(token string, side orderbook.Side) ([]orderbook.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registry.IsRegistered(token) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	return e.book(token, side).Snapshot(), nil
}

func min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
