package market

import (
	"math"
	"time"
)

// ItemPrice is a point-in-time pricing snapshot for one item type.
//
// LowPrice is what a bulk seller can realistically get (buy-order side),
// HighPrice what a bulk buyer realistically pays (sell-order side).
// LowPrice 0 and HighPrice +Inf are sentinels for "no liquid side found";
// they are the only way HighPrice can end up below LowPrice.
type ItemPrice struct {
	TypeID           int32
	LastRefreshed    time.Time
	DailyTradeVolume float64
	LowPrice         float64
	HighPrice        float64
}

// Untraded returns the sentinel snapshot for an item with no usable market.
func Untraded(typeID int32, refreshed time.Time) ItemPrice {
	return ItemPrice{
		TypeID:        typeID,
		LastRefreshed: refreshed,
		LowPrice:      0,
		HighPrice:     math.Inf(1),
	}
}

// IsTraded reports whether a liquid sell side was found.
func (p ItemPrice) IsTraded() bool {
	return !math.IsInf(p.HighPrice, 1)
}
