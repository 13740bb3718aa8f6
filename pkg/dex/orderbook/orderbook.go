package orderbook

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the side a taker order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order is a resting limit order. Amount is the remaining unfilled quantity;
// it only ever decreases and an order with Amount == 0 is removed from its
// book immediately. Price is fixed at creation.
type Order struct {
	ID     uint64         `json:"id"`
	Trader common.Address `json:"trader"`
	Token  string         `json:"token"`
	Side   Side           `json:"side"`
	Amount int64          `json:"amount"`
	Price  int64          `json:"price"`
	Filled int64          `json:"filled"` // cumulative matched quantity
}

// Book holds the resting orders for one (token, side) pair as a sequence in
// price-time priority: buys descending by price, sells ascending, and orders
// at the same price in insertion order. Index 0 is always the best price.
//
// The sequence form keeps snapshots cheap and exact; at these book depths a
// linear shift on insert is fine. A price-indexed tree of FIFO levels is the
// upgrade path if depth ever becomes a problem.
type Book struct {
	side   Side
	orders []*Order
}

// New creates an empty book for the given side.
func New(side Side) *Book {
	return &Book{side: side}
}

// Side returns which side this book holds.
func (b *Book) Side() Side {
	return b.side
}

// Len returns the number of resting orders.
func (b *Book) Len() int {
	return len(b.orders)
}

// Insert places an order maintaining the side's ordering invariant.
// A new order at an already-present price goes after the existing entries,
// preserving time priority.
func (b *Book) Insert(o *Order) {
	i := sort.Search(len(b.orders), func(i int) bool {
		if b.side == Buy {
			return b.orders[i].Price < o.Price
		}
		return b.orders[i].Price > o.Price
	})

	b.orders = append(b.orders, nil)
	copy(b.orders[i+1:], b.orders[i:])
	b.orders[i] = o
}

// PeekBest returns the best-priced order, or nil if the book is empty.
// Best = highest price for a buy book, lowest for a sell book; by
// construction that is always index 0.
func (b *Book) PeekBest() *Order {
	if len(b.orders) == 0 {
		return nil
	}
	return b.orders[0]
}

// PopIfExhausted removes o once its remaining amount has reached zero.
// Orders with amount still outstanding are left in place.
func (b *Book) PopIfExhausted(o *Order) {
	if o.Amount != 0 {
		return
	}
	for i, e := range b.orders {
		if e.ID == o.ID {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			return
		}
	}
}

// Snapshot returns a copy of the book in exact priority order.
func (b *Book) Snapshot() []Order {
	out := make([]Order, len(b.orders))
	for i, o := range b.orders {
		out[i] = *o
	}
	return out
}
