package db

import (
	"database/sql"
	"fmt"

	"eve-appraiser/internal/logger"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite store. It is the only writer; every unit of work (one
// contract update, one price write) is its own transaction.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the store database and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS contracts (
				contract_id INTEGER PRIMARY KEY NOT NULL,
				last_seen   INTEGER NOT NULL,
				region_id   INTEGER NOT NULL,
				title       TEXT,
				price       REAL NOT NULL,
				raw_data    JSON,
				items       JSON,
				estimate    REAL
			);
			CREATE INDEX IF NOT EXISTS idx_contracts_region ON contracts(region_id);

			CREATE TABLE IF NOT EXISTS market (
				type_id            INTEGER PRIMARY KEY NOT NULL,
				last_refreshed     INTEGER NOT NULL,
				daily_trade_volume REAL NOT NULL,
				low_price          REAL NOT NULL,
				high_price         REAL NOT NULL
			);

			CREATE TABLE IF NOT EXISTS market_history (
				type_id     INTEGER NOT NULL,
				date        TEXT NOT NULL,
				average     REAL,
				highest     REAL,
				lowest      REAL,
				volume      INTEGER,
				order_count INTEGER,
				PRIMARY KEY (type_id, date)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	return nil
}

// SqlDB returns the underlying *sql.DB for use by other packages.
func (d *DB) SqlDB() *sql.DB {
	return d.sql
}
