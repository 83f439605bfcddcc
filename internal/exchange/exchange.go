// Package exchange ties the ledger, the per-asset books, configuration,
// and the username directory together into the aggregate every
// collaborator (transport, operator CLI, benchmark harness) holds a
// reference to.
package exchange

import (
	"sort"
	"sync"
	"sync/atomic"

	"reuben/internal/book"
	"reuben/internal/common"
	"reuben/internal/config"
	"reuben/internal/ledger"
	"reuben/internal/valuation"
)

// Exchange owns the shared ledger, one Book per asset, the global
// order-id counter, the per-asset economics, the username directory, and
// the accepting flag the operator CLI toggles.
type Exchange struct {
	ledger *ledger.Ledger
	books  [common.NumAssets]*book.Book
	nextID atomic.Uint64
	cfg    config.Config

	mu        sync.RWMutex
	usernames map[uint32]string

	accepting atomic.Bool
}

// New builds an Exchange with one Book per asset, all sharing the same
// ledger and order-id counter.
func New(cfg config.Config) *Exchange {
	e := &Exchange{
		ledger:    ledger.New(),
		cfg:       cfg,
		usernames: make(map[uint32]string),
	}
	for _, asset := range common.AllAssets() {
		e.books[asset] = book.New(asset, e.ledger, &e.nextID)
	}
	return e
}

// Start allows placement and cancellation to proceed.
func (e *Exchange) Start() { e.accepting.Store(true) }

// Stop causes the transport layer to silently drop ORDER/CANCEL messages.
func (e *Exchange) Stop() { e.accepting.Store(false) }

// Accepting reports whether the exchange is currently taking orders.
func (e *Exchange) Accepting() bool { return e.accepting.Load() }

// Book returns the asset book for asset. Transport handlers route every
// place/cancel/validate call through the book they're connected to.
func (e *Exchange) Book(asset common.Asset) *book.Book { return e.books[asset] }

// Register onboards a user across every asset book, using each asset's
// configured starting assets, and records their username for the
// leaderboard. The shared cash account is created once, by the first book
// registered (dressing), so only that asset's starting cash takes effect.
func (e *Exchange) Register(userID uint32, username string) {
	e.mu.Lock()
	if _, ok := e.usernames[userID]; !ok {
		e.usernames[userID] = username
	}
	e.mu.Unlock()

	for _, asset := range common.AllAssets() {
		start := e.cfg.ForAsset(asset)
		e.books[asset].Register(userID, start.StartingCash, start.StartingAssets)
	}
}

// AssetState is one asset's contribution to a user's snapshot.
type AssetState struct {
	Asset        common.Asset
	Held         uint64
	SellingPower uint64
}

// GameState is the §4.6 state snapshot: cash, every asset position, and
// every resting order belonging to the user.
type GameState struct {
	UserID      uint32
	Held        uint64
	BuyingPower uint64
	Assets      [common.NumAssets]AssetState
	Orders      []common.Order
}

// Snapshot gathers a user's cash position, every asset balance, and every
// resting order across all books into one GameState.
func (e *Exchange) Snapshot(userID uint32) (GameState, error) {
	cash, ok := e.ledger.Peek(userID)
	if !ok {
		return GameState{}, common.ErrUserNotFound
	}

	state := GameState{UserID: userID, Held: cash.Held, BuyingPower: cash.BuyingPower}
	for _, asset := range common.AllAssets() {
		view, ok := e.books[asset].UserView(userID)
		state.Assets[asset] = AssetState{Asset: asset, Held: view.Held, SellingPower: view.SellingPower}
		if ok {
			state.Orders = append(state.Orders, view.Orders...)
		}
	}
	return state, nil
}

// Portfolio computes a user's total derived value via the portfolio
// valuator, using the configured unit values and bonus.
func (e *Exchange) Portfolio(userID uint32) (uint64, error) {
	cash, ok := e.ledger.Peek(userID)
	if !ok {
		return 0, common.ErrUserNotFound
	}

	var held, unitValue [common.NumAssets]uint64
	for _, asset := range common.AllAssets() {
		h, _ := e.books[asset].Held(userID)
		held[asset] = h
		unitValue[asset] = e.cfg.ForAsset(asset).UnitValue
	}
	return valuation.Portfolio(cash.Held, held, unitValue, e.cfg.Bonus), nil
}

// LeaderboardEntry is one user's position on the leaderboard.
type LeaderboardEntry struct {
	UserID   uint32
	Username string
	Value    uint64
}

// Leaderboard returns every registered user's portfolio value, sorted
// descending by value and, to stay deterministic, ascending by user id on
// ties.
func (e *Exchange) Leaderboard() []LeaderboardEntry {
	e.mu.RLock()
	names := make(map[uint32]string, len(e.usernames))
	for id, name := range e.usernames {
		names[id] = name
	}
	e.mu.RUnlock()

	entries := make([]LeaderboardEntry, 0, len(names))
	for id, name := range names {
		value, err := e.Portfolio(id)
		if err != nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{UserID: id, Username: name, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}
