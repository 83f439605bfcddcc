package book

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reuben/internal/common"
	"reuben/internal/ledger"
)

const (
	startingCash   = 1000
	startingAssets = 100
)

func newTestBook() (*Book, *ledger.Ledger) {
	led := ledger.New()
	var counter atomic.Uint64
	b := New(common.Pastrami, led, &counter)
	return b, led
}

func registerTwo(b *Book) {
	b.Register(1, startingCash, startingAssets)
	b.Register(2, startingCash, startingAssets)
}

// TestRestThenCross mirrors original_source/src/test_exchange.cpp's
// basic(): a resting BUY partially filled by an incoming SELL.
func TestRestThenCross(t *testing.T) {
	b, led := newTestBook()
	registerTwo(b)

	res, err := b.Place(common.Buy, 1, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	require.NotNil(t, res.Unmatched)
	assert.Equal(t, uint32(5), res.Unmatched.Volume)
	makerID := res.Unmatched.ID

	acc, _ := led.Peek(1)
	assert.Equal(t, ledger.Account{Held: startingCash, BuyingPower: startingCash - 50}, acc)

	res, err = b.Place(common.Sell, 2, 9, 4)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, common.Trade{
		BuyerID:      1,
		SellerID:     2,
		Price:        10,
		Volume:       4,
		MakerOrderID: makerID,
	}, trade)
	assert.Nil(t, res.Unmatched)

	bids, _ := b.Depth(10)
	require.Len(t, bids, 1)
	assert.Equal(t, uint64(1), bids[0].Volume)

	buyerCash, _ := led.Peek(1)
	assert.Equal(t, ledger.Account{Held: startingCash - 40, BuyingPower: startingCash - 50}, buyerCash)
	buyerAsset, _ := b.UserView(1)
	assert.Equal(t, uint64(startingAssets+4), buyerAsset.Held)
	assert.Equal(t, uint64(startingAssets+4), buyerAsset.SellingPower)

	sellerCash, _ := led.Peek(2)
	assert.Equal(t, ledger.Account{Held: startingCash + 40, BuyingPower: startingCash + 40}, sellerCash)
	sellerAsset, _ := b.UserView(2)
	assert.Equal(t, uint64(startingAssets-4), sellerAsset.Held)
	assert.Equal(t, uint64(startingAssets-4), sellerAsset.SellingPower)
}

func TestTakerFullyFilledLeavesNoUnmatched(t *testing.T) {
	b, _ := newTestBook()
	registerTwo(b)

	_, err := b.Place(common.Sell, 1, 10, 5)
	require.NoError(t, err)

	res, err := b.Place(common.Buy, 2, 10, 5)
	require.NoError(t, err)
	assert.Nil(t, res.Unmatched)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, uint32(5), res.Trades[0].Volume)

	bids, asks := b.Depth(10)
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}

func TestPriceTimePriorityFIFO(t *testing.T) {
	b, _ := newTestBook()
	registerTwo(b)
	b.Register(3, startingCash, startingAssets)

	_, err := b.Place(common.Sell, 1, 10, 3)
	require.NoError(t, err)
	_, err = b.Place(common.Sell, 2, 10, 3)
	require.NoError(t, err)

	res, err := b.Place(common.Buy, 3, 10, 4)
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, uint32(1), res.Trades[0].SellerID)
	assert.Equal(t, uint32(3), res.Trades[0].Volume)
	assert.Equal(t, uint32(2), res.Trades[1].SellerID)
	assert.Equal(t, uint32(1), res.Trades[1].Volume)
}

func TestCancelReleasesReservation(t *testing.T) {
	b, led := newTestBook()
	registerTwo(b)

	res, err := b.Place(common.Buy, 1, 10, 5)
	require.NoError(t, err)

	err = b.Cancel(res.Unmatched.ID)
	require.NoError(t, err)

	acc, _ := led.Peek(1)
	assert.Equal(t, ledger.Account{Held: startingCash, BuyingPower: startingCash}, acc)

	bids, _ := b.Depth(10)
	assert.Empty(t, bids)
}

func TestCancelUnknownOrderReturnsOrderNotFound(t *testing.T) {
	b, _ := newTestBook()
	registerTwo(b)

	err := b.Cancel(999)
	assert.Equal(t, common.ErrOrderNotFound, err)
}

func TestValidateRejectsInsufficientBuyingPower(t *testing.T) {
	b, _ := newTestBook()
	registerTwo(b)

	err := b.Validate(common.Buy, 1, MaxPrice, MaxVolume)
	assert.Equal(t, common.ErrInsufficientBuyingPower, err)
}

func TestValidateRejectsOutOfRangePrice(t *testing.T) {
	b, _ := newTestBook()
	registerTwo(b)

	err := b.Validate(common.Buy, 1, MaxPrice+1, 1)
	assert.Equal(t, common.ErrOutOfRange, err)
}

func TestValidateRejectsUnregisteredUser(t *testing.T) {
	b, _ := newTestBook()

	err := b.Validate(common.Buy, 1, 10, 1)
	assert.Equal(t, common.ErrUserNotFound, err)
}

func TestValidateRejectsInsufficientAsset(t *testing.T) {
	b, _ := newTestBook()
	registerTwo(b)

	err := b.Validate(common.Sell, 1, 10, startingAssets+1)
	assert.Equal(t, common.ErrInsufficientAsset, err)
}

// TestNoCrossedBook asserts invariant I3: after any Place call, the best
// bid never meets or exceeds the best ask.
func TestNoCrossedBook(t *testing.T) {
	b, _ := newTestBook()
	registerTwo(b)

	_, err := b.Place(common.Buy, 1, 10, 5)
	require.NoError(t, err)
	_, err = b.Place(common.Sell, 2, 12, 5)
	require.NoError(t, err)

	bids, asks := b.Depth(1)
	require.Len(t, bids, 1)
	require.Len(t, asks, 1)
	assert.Less(t, bids[0].Price, asks[0].Price)
}
