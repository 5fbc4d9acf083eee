package db

import (
	"database/sql"
	"fmt"
	"time"

	"eve-appraiser/internal/engine"
	"eve-appraiser/internal/esi"
)

// UpsertContracts inserts new listings and bumps last_seen on ones already
// stored, keeping their lazily-fetched items and estimate intact. Returns
// the number of rows touched.
func (d *DB) UpsertContracts(lastSeen time.Time, regionID int32, contracts []esi.PublicContract) (int, error) {
	if len(contracts) == 0 {
		return 0, nil
	}
	tx, err := d.sql.Begin()
	if err != nil {
		return 0, fmt.Errorf("upsert contracts: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO contracts (contract_id, last_seen, region_id, title, price, raw_data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(contract_id) DO UPDATE SET last_seen = excluded.last_seen`)
	if err != nil {
		return 0, fmt.Errorf("upsert contracts: %w", err)
	}
	defer stmt.Close()

	count := 0
	ts := lastSeen.Unix()
	for _, c := range contracts {
		res, err := stmt.Exec(c.ContractID, ts, regionID, c.Title, c.Price, []byte(c.Raw))
		if err != nil {
			return 0, fmt.Errorf("upsert contract %d: %w", c.ContractID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			count++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert contracts: %w", err)
	}
	return count, nil
}

// DeleteContractsOlderThan removes listings in the region the service no
// longer returns.
func (d *DB) DeleteContractsOlderThan(lastSeen time.Time, regionID int32) (int64, error) {
	res, err := d.sql.Exec(
		"DELETE FROM contracts WHERE last_seen < ? AND region_id = ?",
		lastSeen.Unix(), regionID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old contracts: %w", err)
	}
	return res.RowsAffected()
}

// DeleteContract removes a single listing.
func (d *DB) DeleteContract(contractID int64) error {
	_, err := d.sql.Exec("DELETE FROM contracts WHERE contract_id = ?", contractID)
	if err != nil {
		return fmt.Errorf("delete contract %d: %w", contractID, err)
	}
	return nil
}

// ContractsMissingItems lists contracts in the region whose items were never
// fetched.
func (d *DB) ContractsMissingItems(regionID int32) ([]int64, error) {
	rows, err := d.sql.Query(
		"SELECT contract_id FROM contracts WHERE region_id = ? AND items IS NULL",
		regionID,
	)
	if err != nil {
		return nil, fmt.Errorf("contracts missing items: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetContractItems stores the fetched line items blob.
func (d *DB) SetContractItems(contractID int64, items []byte) error {
	_, err := d.sql.Exec(
		"UPDATE contracts SET items = ? WHERE contract_id = ?",
		items, contractID,
	)
	if err != nil {
		return fmt.Errorf("set items for contract %d: %w", contractID, err)
	}
	return nil
}

// SetEstimate stores the computed estimate.
func (d *DB) SetEstimate(contractID int64, estimate float64) error {
	_, err := d.sql.Exec(
		"UPDATE contracts SET estimate = ? WHERE contract_id = ?",
		estimate, contractID,
	)
	if err != nil {
		return fmt.Errorf("set estimate for contract %d: %w", contractID, err)
	}
	return nil
}

func scanStoredContracts(rows *sql.Rows, withEstimate bool) ([]engine.StoredContract, error) {
	defer rows.Close()
	var out []engine.StoredContract
	for rows.Next() {
		var c engine.StoredContract
		var title sql.NullString
		var items []byte
		var err error
		if withEstimate {
			err = rows.Scan(&c.ContractID, &c.RegionID, &title, &c.Price, &c.RawData, &items, &c.Estimate)
		} else {
			err = rows.Scan(&c.ContractID, &c.RegionID, &title, &c.Price, &c.RawData, &items)
		}
		if err != nil {
			return nil, err
		}
		c.Title = title.String
		c.Items = items
		out = append(out, c)
	}
	return out, rows.Err()
}

// ContractsNeedingEstimate lists contracts in the region whose items are
// fetched but whose estimate is still unset.
func (d *DB) ContractsNeedingEstimate(regionID int32) ([]engine.StoredContract, error) {
	rows, err := d.sql.Query(`
		SELECT contract_id, region_id, title, price, raw_data, items
		FROM contracts
		WHERE estimate IS NULL AND items IS NOT NULL AND region_id = ?`,
		regionID,
	)
	if err != nil {
		return nil, fmt.Errorf("contracts needing estimate: %w", err)
	}
	return scanStoredContracts(rows, false)
}

// ProfitableContracts lists estimated contracts whose discounted estimate
// beats the asking price by at least minProfit, closest calls first.
func (d *DB) ProfitableContracts(marginBuffer, minProfit float64) ([]engine.StoredContract, error) {
	rows, err := d.sql.Query(`
		SELECT contract_id, region_id, title, price, raw_data, items, estimate
		FROM contracts
		WHERE estimate * ? > price AND (estimate - price) > ?
		ORDER BY (estimate - price)`,
		marginBuffer, minProfit,
	)
	if err != nil {
		return nil, fmt.Errorf("profitable contracts: %w", err)
	}
	return scanStoredContracts(rows, true)
}

// GetContract loads a single stored contract, estimate included when set.
func (d *DB) GetContract(contractID int64) (engine.StoredContract, bool, error) {
	var c engine.StoredContract
	var title sql.NullString
	var items []byte
	var estimate sql.NullFloat64
	err := d.sql.QueryRow(`
		SELECT contract_id, region_id, title, price, raw_data, items, estimate
		FROM contracts WHERE contract_id = ?`,
		contractID,
	).Scan(&c.ContractID, &c.RegionID, &title, &c.Price, &c.RawData, &items, &estimate)
	if err == sql.ErrNoRows {
		return engine.StoredContract{}, false, nil
	}
	if err != nil {
		return engine.StoredContract{}, false, fmt.Errorf("get contract %d: %w", contractID, err)
	}
	c.Title = title.String
	c.Items = items
	c.Estimate = estimate.Float64
	return c, true, nil
}
