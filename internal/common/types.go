// Package common holds the types shared by every package in the engine:
// assets, sides, orders, and trades.
package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Asset identifies one of the four ingredients traded on the exchange.
type Asset uint8

const (
	Dressing Asset = iota
	Rye
	Swiss
	Pastrami
)

// NumAssets is the number of asset books the exchange runs.
const NumAssets = 4

var assetNames = [NumAssets]string{"DRESSING", "RYE", "SWISS", "PASTRAMI"}

func (a Asset) String() string {
	if int(a) < len(assetNames) {
		return assetNames[a]
	}
	return "UNKNOWN"
}

// Key is the lowercase form used in config keys and URL path segments.
func (a Asset) Key() string {
	return strings.ToLower(a.String())
}

// AllAssets returns the four assets in their canonical order.
func AllAssets() [NumAssets]Asset {
	return [NumAssets]Asset{Dressing, Rye, Swiss, Pastrami}
}

// AssetFromKey looks up an asset by its lowercase key, as used in a URL
// path or an incoming message.
func AssetFromKey(key string) (Asset, bool) {
	for _, a := range AllAssets() {
		if a.Key() == key {
			return a, true
		}
	}
	return 0, false
}

// MarshalJSON renders an asset as its lowercase key rather than its
// numeric value, so wire messages read "dressing" instead of "0".
func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Key())
}

// UnmarshalJSON parses an asset from its lowercase key.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var key string
	if err := json.Unmarshal(data, &key); err != nil {
		return err
	}
	asset, ok := AssetFromKey(strings.ToLower(key))
	if !ok {
		return fmt.Errorf("unknown asset %q", key)
	}
	*a = asset
	return nil
}

// Side is which side of the book an order rests on.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// SideFromString parses the wire representation of a side.
func SideFromString(s string) (Side, bool) {
	switch strings.ToUpper(s) {
	case "BUY":
		return Buy, true
	case "SELL":
		return Sell, true
	default:
		return 0, false
	}
}

// MarshalJSON renders a side as "BUY"/"SELL" rather than its numeric value.
func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a side from its "BUY"/"SELL" wire representation.
func (s *Side) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	side, ok := SideFromString(str)
	if !ok {
		return fmt.Errorf("unknown side %q", str)
	}
	*s = side
	return nil
}

// Order is a limit order: resting on a book, or about to be.
type Order struct {
	ID     uint32 `json:"order_id"`
	Asset  Asset  `json:"asset"`
	Side   Side   `json:"side"`
	UserID uint32 `json:"user_id"`
	Price  uint32 `json:"price"`
	Volume uint32 `json:"volume"` // remaining, unfilled volume
}

// Trade is emitted for every partial or full match. Price is always the
// resting (maker) order's price, never the taker's limit.
type Trade struct {
	BuyerID      uint32 `json:"buyer_id"`
	SellerID     uint32 `json:"seller_id"`
	Price        uint32 `json:"price"`
	Volume       uint32 `json:"volume"`
	MakerOrderID uint32 `json:"maker_order_id"`
}
