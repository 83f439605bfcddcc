// Package book implements one asset's order book: bid/ask price levels,
// FIFO order queues within a level, the matching engine (as methods on
// Book), and that asset's per-user balances.
package book

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/tidwall/btree"

	"reuben/internal/common"
	"reuben/internal/ledger"
)

// Price and volume bounds. MAX_PRICE is sized large enough that a dense
// array per book would waste memory across four books with comparatively
// few resting orders, which is why levels are kept in an ordered map
// instead.
const (
	MinPrice  = 1
	MaxPrice  = 20000
	MinVolume = 1
	MaxVolume = 20000
)

// AssetAccount is a user's position on one asset book. SellingPower is
// Held minus whatever is reserved by the user's own resting SELL orders
// on this book.
type AssetAccount struct {
	Held         uint64
	SellingPower uint64
}

// priceLevel is one price's FIFO queue of resting orders.
type priceLevel struct {
	price  uint32
	orders *list.List // of *common.Order, earliest first
}

// PriceLevel is the read-only view of a level returned by Depth.
type PriceLevel struct {
	Price  uint32
	Volume uint64
	Orders int
}

// handle is the stable, O(1) removal handle stored in the order
// directory. A *list.Element stays valid across unrelated inserts and
// removals elsewhere in the list, unlike a slice index or a raw pointer
// into a level that gets replaced.
type handle struct {
	order *common.Order
	elem  *list.Element
}

// Book is one asset's order book. Place and Cancel take the write lock and
// may be called from any goroutine; there is no dedicated per-book writer
// goroutine. Snapshot-style readers take the read lock.
type Book struct {
	asset  common.Asset
	ledger *ledger.Ledger
	nextID *atomic.Uint64

	mu       sync.RWMutex
	bids     *btree.BTreeG[*priceLevel]
	asks     *btree.BTreeG[*priceLevel]
	balances map[uint32]*AssetAccount
	orders   map[uint32]*handle
}

// New builds an empty book for asset. nextID is the exchange-wide order-id
// counter, shared across every book so order ids stay globally unique.
func New(asset common.Asset, led *ledger.Ledger, nextID *atomic.Uint64) *Book {
	return &Book{
		asset:  asset,
		ledger: led,
		nextID: nextID,
		bids: btree.NewBTreeG(func(a, b *priceLevel) bool {
			return a.price > b.price // descending: best bid first
		}),
		asks: btree.NewBTreeG(func(a, b *priceLevel) bool {
			return a.price < b.price // ascending: best ask first
		}),
		balances: make(map[uint32]*AssetAccount),
		orders:   make(map[uint32]*handle),
	}
}

func (b *Book) Asset() common.Asset { return b.asset }

// Register ensures the user has a ledger account and a balance entry on
// this book. Idempotent per (user, book).
func (b *Book) Register(userID uint32, startingCash, startingAssets uint64) {
	b.ledger.EnsureUser(userID, startingCash)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.balances[userID]; ok {
		return
	}
	b.balances[userID] = &AssetAccount{Held: startingAssets, SellingPower: startingAssets}
}

// Validate checks an order against current balances without mutating any
// state.
func (b *Book) Validate(side common.Side, userID uint32, price, volume uint32) error {
	if !b.ledger.Exists(userID) {
		return common.ErrUserNotFound
	}
	if price < MinPrice || price > MaxPrice || volume < MinVolume || volume > MaxVolume {
		return common.ErrOutOfRange
	}

	if side == common.Buy {
		acc, ok := b.ledger.Peek(userID)
		if !ok {
			return common.ErrUserNotFound
		}
		if uint64(price)*uint64(volume) > acc.BuyingPower {
			return common.ErrInsufficientBuyingPower
		}
		return nil
	}

	b.mu.RLock()
	asset, ok := b.balances[userID]
	b.mu.RUnlock()
	if !ok {
		return common.ErrNotRegistered
	}
	if uint64(volume) > asset.SellingPower {
		return common.ErrInsufficientAsset
	}
	return nil
}

// PlaceResult is the outcome of Place: every trade it produced, plus the
// resting remainder, if any.
type PlaceResult struct {
	Trades    []common.Trade
	Unmatched *common.Order
}

// Place validates, matches against the opposing side in price-time
// priority, and rests any unmatched remainder. Concurrent calls are
// serialized by the book's write lock, in the order they acquire it.
func (b *Book) Place(side common.Side, userID uint32, price, volume uint32) (PlaceResult, error) {
	if err := b.Validate(side, userID, price, volume); err != nil {
		return PlaceResult{}, err
	}

	order := &common.Order{
		ID:     uint32(b.nextID.Add(1)),
		Asset:  b.asset,
		Side:   side,
		UserID: userID,
		Price:  price,
		Volume: volume,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// The order's full cost/volume is reserved atomically here, before any
	// matching happens, exactly like validate_and_update in the original:
	// this is what makes two books racing the same user's shared cash
	// resolve to exactly one winner instead of a stale-read race.
	if side == common.Buy {
		cost := uint64(price) * uint64(volume)
		if !b.ledger.TryReserveBuy(userID, cost) {
			return PlaceResult{}, common.ErrInsufficientBuyingPower
		}
	} else {
		acc, ok := b.balances[userID]
		if !ok {
			return PlaceResult{}, common.ErrNotRegistered
		}
		if uint64(volume) > acc.SellingPower {
			return PlaceResult{}, common.ErrInsufficientAsset
		}
		acc.SellingPower -= uint64(volume)
	}

	trades := b.match(order)

	if order.Volume == 0 {
		return PlaceResult{Trades: trades}, nil
	}
	b.rest(order)
	unmatched := *order
	return PlaceResult{Trades: trades, Unmatched: &unmatched}, nil
}

// match crosses taker against the opposing side's best levels, in price
// then time priority, until it runs out of volume or of crossable levels.
func (b *Book) match(taker *common.Order) []common.Trade {
	var trades []common.Trade
	opposing := b.asks
	if taker.Side == common.Sell {
		opposing = b.bids
	}

	for taker.Volume > 0 {
		level, ok := opposing.Min()
		if !ok {
			break
		}
		if taker.Side == common.Buy && level.price > taker.Price {
			break
		}
		if taker.Side == common.Sell && level.price < taker.Price {
			break
		}

		for taker.Volume > 0 && level.orders.Len() > 0 {
			front := level.orders.Front()
			maker := front.Value.(*common.Order)

			traded := maker.Volume
			if taker.Volume < traded {
				traded = taker.Volume
			}
			maker.Volume -= traded
			taker.Volume -= traded

			trade := b.buildTrade(taker, maker, level.price, traded)
			trades = append(trades, trade)
			b.settle(trade)
			// A BUY taker reserved at its own limit price; a fill at a lower
			// maker price returns the unspent difference to buying_power.
			if taker.Side == common.Buy && level.price < taker.Price {
				b.ledger.ReleaseBuy(taker.UserID, uint64(taker.Price-level.price)*uint64(traded))
			}

			if maker.Volume == 0 {
				level.orders.Remove(front)
				delete(b.orders, maker.ID)
			}
		}

		if level.orders.Len() == 0 {
			opposing.Delete(level)
		}
	}
	return trades
}

func (b *Book) buildTrade(taker, maker *common.Order, price, volume uint32) common.Trade {
	trade := common.Trade{Price: price, Volume: volume, MakerOrderID: maker.ID}
	if taker.Side == common.Buy {
		trade.BuyerID, trade.SellerID = taker.UserID, maker.UserID
	} else {
		trade.BuyerID, trade.SellerID = maker.UserID, taker.UserID
	}
	return trade
}

// settle applies one trade's cash and asset movements. Both sides of a
// trade already had their full order cost/volume reserved upfront in
// Place, before matching began, so settlement only ever debits held for
// whichever side paid: buyer's cash, seller's asset. The other two
// fields (seller's cash, buyer's asset) were never reserved and always
// move together.
func (b *Book) settle(trade common.Trade) {
	cost := uint64(trade.Price) * uint64(trade.Volume)

	b.ledger.SettleBuy(trade.BuyerID, cost)
	b.ledger.SettleSell(trade.SellerID, cost)

	buyer := b.balances[trade.BuyerID]
	buyer.Held += uint64(trade.Volume)
	buyer.SellingPower += uint64(trade.Volume)

	seller := b.balances[trade.SellerID]
	seller.Held -= uint64(trade.Volume)
}

// rest appends an order's unmatched remainder to its level. Its
// reservation was already taken in Place before matching began.
func (b *Book) rest(order *common.Order) {
	side := b.bids
	if order.Side == common.Sell {
		side = b.asks
	}
	level, ok := side.Get(&priceLevel{price: order.Price})
	if !ok {
		level = &priceLevel{price: order.Price, orders: list.New()}
		side.Set(level)
	}
	elem := level.orders.PushBack(order)
	b.orders[order.ID] = &handle{order: order, elem: elem}
}

// Cancel releases a resting order's reservation and removes it from its
// level. Returns ErrOrderNotFound if it isn't resting on this book (fully
// filled, already cancelled, or never placed here).
func (b *Book) Cancel(orderID uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	h, ok := b.orders[orderID]
	if !ok {
		return common.ErrOrderNotFound
	}
	order := h.order

	if order.Side == common.Buy {
		b.ledger.ReleaseBuy(order.UserID, uint64(order.Price)*uint64(order.Volume))
	} else {
		b.balances[order.UserID].SellingPower += uint64(order.Volume)
	}

	side := b.bids
	if order.Side == common.Sell {
		side = b.asks
	}
	if level, ok := side.Get(&priceLevel{price: order.Price}); ok {
		level.orders.Remove(h.elem)
		if level.orders.Len() == 0 {
			side.Delete(level)
		}
	}
	delete(b.orders, orderID)
	return nil
}

// UserView is this book's contribution to a cross-book state snapshot.
type UserView struct {
	Held         uint64
	SellingPower uint64
	Orders       []common.Order
}

func (b *Book) UserView(userID uint32) (UserView, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	acc, ok := b.balances[userID]
	if !ok {
		return UserView{}, false
	}
	view := UserView{Held: acc.Held, SellingPower: acc.SellingPower}
	for _, h := range b.orders {
		if h.order.UserID == userID {
			view.Orders = append(view.Orders, *h.order)
		}
	}
	return view, true
}

// Held returns just the held amount, as used by the portfolio valuator.
func (b *Book) Held(userID uint32) (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	acc, ok := b.balances[userID]
	if !ok {
		return 0, false
	}
	return acc.Held, true
}

// Depth returns up to n price levels per side, best price first.
func (b *Book) Depth(n int) (bids, asks []PriceLevel) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collectLevels(b.bids, n), collectLevels(b.asks, n)
}

func collectLevels(tree *btree.BTreeG[*priceLevel], n int) []PriceLevel {
	var out []PriceLevel
	for _, pl := range tree.Items() {
		if len(out) >= n {
			break
		}
		var volume uint64
		for e := pl.orders.Front(); e != nil; e = e.Next() {
			volume += uint64(e.Value.(*common.Order).Volume)
		}
		out = append(out, PriceLevel{Price: pl.price, Volume: volume, Orders: pl.orders.Len()})
	}
	return out
}
