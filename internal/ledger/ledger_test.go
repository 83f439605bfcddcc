package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureUserIsIdempotent(t *testing.T) {
	l := New()
	l.EnsureUser(1, 1000)
	l.EnsureUser(1, 5000) // second call must not reset the account

	acc, ok := l.Peek(1)
	assert.True(t, ok)
	assert.Equal(t, Account{Held: 1000, BuyingPower: 1000}, acc)
}

func TestTryReserveAndReleaseBuy(t *testing.T) {
	l := New()
	l.EnsureUser(1, 1000)

	assert.True(t, l.TryReserveBuy(1, 50))
	acc, _ := l.Peek(1)
	assert.Equal(t, Account{Held: 1000, BuyingPower: 950}, acc)

	l.ReleaseBuy(1, 50)
	acc, _ = l.Peek(1)
	assert.Equal(t, Account{Held: 1000, BuyingPower: 1000}, acc)
}

func TestTryReserveBuyFailsWithoutMutatingOnUnderflow(t *testing.T) {
	l := New()
	l.EnsureUser(1, 10)

	assert.False(t, l.TryReserveBuy(1, 11))
	acc, _ := l.Peek(1)
	assert.Equal(t, Account{Held: 10, BuyingPower: 10}, acc)
}

func TestTryReserveBuyRaceGrantsExactlyOneWinner(t *testing.T) {
	l := New()
	l.EnsureUser(1, 100)

	results := make(chan bool, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.TryReserveBuy(1, 80)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for r := range results {
		if r {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	acc, _ := l.Peek(1)
	assert.Equal(t, Account{Held: 100, BuyingPower: 20}, acc)
}

func TestSettleBuyTouchesHeldOnly(t *testing.T) {
	l := New()
	l.EnsureUser(1, 1000)
	l.TryReserveBuy(1, 50) // resting BUY price=10 vol=5

	l.SettleBuy(1, 40) // trade for 4 of the 5 resting
	acc, _ := l.Peek(1)
	assert.Equal(t, Account{Held: 960, BuyingPower: 950}, acc)
}

func TestSettleSellAlwaysMovesBothFields(t *testing.T) {
	l := New()
	l.EnsureUser(1, 1000)

	l.SettleSell(1, 40)
	acc, _ := l.Peek(1)
	assert.Equal(t, Account{Held: 1040, BuyingPower: 1040}, acc)
}
