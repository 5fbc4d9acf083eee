package esi

import (
	"encoding/json"
	"errors"
	"fmt"
)

// HistoryEntry represents a single day of market history for an item in a region.
type HistoryEntry struct {
	Date       string  `json:"date"`
	Average    float64 `json:"average"`
	Highest    float64 `json:"highest"`
	Lowest     float64 `json:"lowest"`
	Volume     int64   `json:"volume"`
	OrderCount int64   `json:"order_count"`
}

// MarketOrder mirrors the ESI market order response.
type MarketOrder struct {
	OrderID      int64   `json:"order_id"`
	TypeID       int32   `json:"type_id"`
	LocationID   int64   `json:"location_id"`
	Price        float64 `json:"price"`
	VolumeRemain int64   `json:"volume_remain"`
	IsBuyOrder   bool    `json:"is_buy_order"`
}

// FetchMarketHistory fetches daily market history for a type in a region.
// Items never listed in the region return an empty history, not an error.
func (c *Client) FetchMarketHistory(regionID, typeID int32) ([]HistoryEntry, error) {
	url := fmt.Sprintf("%s/markets/%d/history/?datasource=tranquility&type_id=%d",
		baseURL, regionID, typeID)

	var entries []HistoryEntry
	if err := c.GetJSON(url, &entries); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

// FetchTypeOrders fetches all live orders for a type in a region.
// orderType is "buy" or "sell".
func (c *Client) FetchTypeOrders(regionID, typeID int32, orderType string) ([]MarketOrder, error) {
	url := fmt.Sprintf("%s/markets/%d/orders/?datasource=tranquility&order_type=%s&type_id=%d",
		baseURL, regionID, orderType, typeID)

	raws, err := c.GetPaginated(url)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	orders := make([]MarketOrder, 0, len(raws))
	for _, raw := range raws {
		var o MarketOrder
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("parse order payload: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}
