package db

import (
	"database/sql"
	"fmt"
	"time"

	"eve-appraiser/internal/esi"
	"eve-appraiser/internal/market"
)

// GetItemPrice loads the persisted price record for the item, if any.
func (d *DB) GetItemPrice(typeID int32) (market.ItemPrice, bool) {
	var p market.ItemPrice
	var refreshed int64
	err := d.sql.QueryRow(`
		SELECT type_id, last_refreshed, daily_trade_volume, low_price, high_price
		FROM market WHERE type_id = ?`,
		typeID,
	).Scan(&p.TypeID, &refreshed, &p.DailyTradeVolume, &p.LowPrice, &p.HighPrice)
	if err == sql.ErrNoRows {
		return market.ItemPrice{}, false
	}
	if err != nil {
		// Treat a read failure as a miss; the caller will refresh and the
		// subsequent write surfaces the real problem.
		return market.ItemPrice{}, false
	}
	p.LastRefreshed = time.Unix(refreshed, 0).UTC()
	return p, true
}

// PutItemPrice stores the price record together with the history it was
// derived from, replacing any previous rows for the item.
func (d *DB) PutItemPrice(p market.ItemPrice, history []esi.HistoryEntry) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("put price %d: %w", p.TypeID, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		REPLACE INTO market (type_id, last_refreshed, daily_trade_volume, low_price, high_price)
		VALUES (?, ?, ?, ?, ?)`,
		p.TypeID, p.LastRefreshed.Unix(), p.DailyTradeVolume, p.LowPrice, p.HighPrice,
	)
	if err != nil {
		return fmt.Errorf("put price %d: %w", p.TypeID, err)
	}

	if _, err := tx.Exec("DELETE FROM market_history WHERE type_id = ?", p.TypeID); err != nil {
		return fmt.Errorf("put history %d: %w", p.TypeID, err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO market_history (type_id, date, average, highest, lowest, volume, order_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("put history %d: %w", p.TypeID, err)
	}
	defer stmt.Close()
	for _, e := range history {
		if _, err := stmt.Exec(p.TypeID, e.Date, e.Average, e.Highest, e.Lowest, e.Volume, e.OrderCount); err != nil {
			return fmt.Errorf("put history %d @ %s: %w", p.TypeID, e.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put price %d: %w", p.TypeID, err)
	}
	return nil
}

// GetItemHistory loads the stored daily history of the item, oldest first.
func (d *DB) GetItemHistory(typeID int32) ([]esi.HistoryEntry, error) {
	rows, err := d.sql.Query(`
		SELECT date, average, highest, lowest, volume, order_count
		FROM market_history WHERE type_id = ? ORDER BY date`,
		typeID,
	)
	if err != nil {
		return nil, fmt.Errorf("get history %d: %w", typeID, err)
	}
	defer rows.Close()

	var out []esi.HistoryEntry
	for rows.Next() {
		var e esi.HistoryEntry
		if err := rows.Scan(&e.Date, &e.Average, &e.Highest, &e.Lowest, &e.Volume, &e.OrderCount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
