// Package ledger implements the process-wide cash ledger shared by every
// asset book: one mutex, one map, four settlement paths.
package ledger

import "sync"

// Account is a user's cash position. BuyingPower is Held minus whatever
// is currently reserved by the user's own resting BUY orders across every
// book.
type Account struct {
	Held        uint64
	BuyingPower uint64
}

// Ledger is the single process-wide cash ledger. Every asset book holds a
// reference to the same Ledger; the mutex here is the only thing that
// serializes cash updates across books.
type Ledger struct {
	mu       sync.Mutex
	accounts map[uint32]*Account
}

func New() *Ledger {
	return &Ledger{accounts: make(map[uint32]*Account)}
}

// EnsureUser inserts a fresh account with the given starting cash if
// user_id has not been seen before. Idempotent.
func (l *Ledger) EnsureUser(userID uint32, startingCash uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[userID]; ok {
		return
	}
	l.accounts[userID] = &Account{Held: startingCash, BuyingPower: startingCash}
}

// Exists reports whether user_id has an account.
func (l *Ledger) Exists(userID uint32) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.accounts[userID]
	return ok
}

// Peek returns a point-in-time copy of a user's account.
func (l *Ledger) Peek(userID uint32) (Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[userID]
	if !ok {
		return Account{}, false
	}
	return *acc, true
}

// TryReserveBuy atomically checks cost against buying_power and reserves
// it in the same critical section, reporting false (no mutation) if it
// isn't covered. This is the single check-and-reserve every BUY order
// performs before matching begins, so when two books race the same user's
// shared cash and the combined cost exceeds buying_power, whichever reaches
// this second is refused.
func (l *Ledger) TryReserveBuy(userID uint32, cost uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := l.accounts[userID]
	if cost > acc.BuyingPower {
		return false
	}
	acc.BuyingPower -= cost
	return true
}

// ReleaseBuy restores buying_power when a resting BUY is cancelled, and
// returns the unspent part of a BUY taker's reservation when it fills
// below its limit price.
func (l *Ledger) ReleaseBuy(userID uint32, cost uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[userID].BuyingPower += cost
}

// SettleBuy debits held for a trade's buyer. The order's full cost was
// already moved out of buying_power by TryReserveBuy before matching, so
// only held moves here, whether the fill happened immediately or after
// resting.
func (l *Ledger) SettleBuy(userID uint32, cost uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := l.accounts[userID]
	mustCover(acc.Held, cost)
	acc.Held -= cost
}

// SettleSell credits a trade's proceeds. Sellers never reserve cash, so
// held and buying_power always move together, maker or taker.
func (l *Ledger) SettleSell(userID uint32, cost uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := l.accounts[userID]
	acc.Held += cost
	acc.BuyingPower += cost
}

func mustCover(value, delta uint64) {
	if delta > value {
		panic("ledger: cash underflow on settlement")
	}
}
