// Package store persists normalized tables to a local SQLite database so a
// restart, or a cycle where every remote read fails, can restore the last
// good dataset.
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"quasarcli/internal/errors"
	"quasarcli/pkg/contracts/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS norm_data (
	key TEXT,
	product TEXT,
	quantity REAL,
	revenue REAL,
	unit_price REAL,
	category TEXT,
	region TEXT,
	date TEXT,
	year TEXT,
	month_num TEXT,
	transaction_id TEXT,
	source_sheet TEXT,
	inserted_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_norm_data_key ON norm_data(key);
CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	file_id TEXT,
	worksheet TEXT,
	file_modified_time TEXT,
	rows INTEGER,
	updated_at TEXT
);`

// SheetMeta describes one persisted worksheet.
type SheetMeta struct {
	Key          string
	FileID       string
	Worksheet    string
	ModifiedTime string
	Rows         int
	UpdatedAt    string
}

// DataStore is the SQLite-backed durable copy of the normalized dataset.
type DataStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(path string, logger *slog.Logger) (*DataStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.NewStorageError("failed to create store directory", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewStorageError("failed to open store "+path, err)
	}
	// The engine is single-writer; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewStorageError("failed to initialize store schema", err)
	}
	return &DataStore{db: db, logger: logger}, nil
}

func (s *DataStore) Close() error {
	return s.db.Close()
}

// Save replaces the persisted rows of one worksheet with the given table and
// upserts its metadata, atomically per key.
func (s *DataStore) Save(ctx context.Context, table domain.Table, fileID, modifiedTime string) error {
	key := table.Key()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("failed to begin save for "+key, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM norm_data WHERE key = ?`, key); err != nil {
		return errors.NewStorageError("failed to clear previous rows for "+key, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO norm_data
		(key, product, quantity, revenue, unit_price, category, region, date, year, month_num, transaction_id, source_sheet, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.NewStorageError("failed to prepare insert for "+key, err)
	}
	defer stmt.Close()

	for _, t := range table.Rows {
		date := ""
		if t.HasDate {
			date = t.Date.Format("2006-01-02")
		}
		unitPrice := sql.NullFloat64{Float64: t.UnitPrice, Valid: t.HasUnitPrice}
		if _, err := stmt.ExecContext(ctx,
			key, t.Product, t.Quantity, t.Revenue, unitPrice,
			t.Category, t.Region, date, t.Year, t.MonthNum,
			t.TransactionID, t.SourceKey, now,
		); err != nil {
			return errors.NewStorageError("failed to insert row for "+key, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `REPLACE INTO metadata
		(key, file_id, worksheet, file_modified_time, rows, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key, fileID, table.Worksheet, modifiedTime, len(table.Rows), now,
	); err != nil {
		return errors.NewStorageError("failed to upsert metadata for "+key, err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("failed to commit save for "+key, err)
	}
	return nil
}

// LoadAll restores every persisted table, keyed the same way the in-memory
// dataset keys them.
func (s *DataStore) LoadAll(ctx context.Context) (map[string]domain.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, product, quantity, revenue, unit_price,
		category, region, date, year, month_num, transaction_id, source_sheet
		FROM norm_data ORDER BY key`)
	if err != nil {
		return nil, errors.NewStorageError("failed to load persisted tables", err)
	}
	defer rows.Close()

	out := map[string]domain.Table{}
	for rows.Next() {
		var (
			key, date string
			unitPrice sql.NullFloat64
			t         domain.Transaction
		)
		if err := rows.Scan(&key, &t.Product, &t.Quantity, &t.Revenue, &unitPrice,
			&t.Category, &t.Region, &date, &t.Year, &t.MonthNum,
			&t.TransactionID, &t.SourceKey); err != nil {
			return nil, errors.NewStorageError("failed to scan persisted row", err)
		}
		if unitPrice.Valid {
			t.UnitPrice = unitPrice.Float64
			t.HasUnitPrice = true
		}
		if date != "" {
			if parsed, err := time.Parse("2006-01-02", date); err == nil {
				t.Date = parsed
				t.HasDate = true
			}
		}

		table, ok := out[key]
		if !ok {
			id, ws := domain.SplitKey(key)
			table = domain.Table{SpreadsheetID: id, Worksheet: ws}
		}
		table.Rows = append(table.Rows, t)
		out[key] = table
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed reading persisted tables", err)
	}
	return out, nil
}

// Metadata lists the persisted worksheet descriptors.
func (s *DataStore) Metadata(ctx context.Context) ([]SheetMeta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, file_id, worksheet, file_modified_time, rows, updated_at
		FROM metadata ORDER BY key`)
	if err != nil {
		return nil, errors.NewStorageError("failed to load store metadata", err)
	}
	defer rows.Close()

	var out []SheetMeta
	for rows.Next() {
		var m SheetMeta
		if err := rows.Scan(&m.Key, &m.FileID, &m.Worksheet, &m.ModifiedTime, &m.Rows, &m.UpdatedAt); err != nil {
			return nil, errors.NewStorageError("failed to scan store metadata", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes the persisted rows and metadata of one key.
func (s *DataStore) Delete(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("failed to begin delete for "+key, err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM norm_data WHERE key = ?`, key); err != nil {
		return errors.NewStorageError("failed to delete rows for "+key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return errors.NewStorageError("failed to delete metadata for "+key, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("failed to commit delete for "+key, err)
	}
	return nil
}
