package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"nrsnotify/internal/core"
)

type SQLiteRepository struct {
	db *sqlx.DB
}

type watermarkRow struct {
	TxType    int   `db:"tx_type"`
	TxSubtype int   `db:"tx_subtype"`
	TS        int64 `db:"ts"`
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Watermark schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements ports.WatermarkStore
func (r *SQLiteRepository) Load(ctx context.Context, account string) (core.Watermarks, error) {
	var rows []watermarkRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT tx_type, tx_subtype, ts FROM watermarks WHERE account = ?`, account)
	if err != nil {
		return nil, fmt.Errorf("select watermarks: %w", err)
	}

	w := make(core.Watermarks, len(rows))
	for _, row := range rows {
		w[core.WatermarkKey{Type: row.TxType, Subtype: row.TxSubtype}] = core.Timestamp(row.TS)
	}
	return w, nil
}

// Save implements ports.WatermarkStore. All watermarks are written in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, account string, w core.Watermarks) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO watermarks (account, tx_type, tx_subtype, ts, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(account, tx_type, tx_subtype)
		DO UPDATE SET ts = excluded.ts, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for k, ts := range w {
		if _, err := stmt.ExecContext(ctx, account, k.Type, k.Subtype, int64(ts)); err != nil {
			return fmt.Errorf("upsert watermark %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit watermarks: %w", err)
	}

	slog.DebugContext(ctx, "Watermarks saved to SQLite", "account", account, "count", len(w))
	return nil
}

// Accounts lists every account with stored watermarks.
func (r *SQLiteRepository) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := r.db.SelectContext(ctx, &accounts,
		`SELECT DISTINCT account FROM watermarks ORDER BY account`); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	return accounts, nil
}

// PruneBefore deletes watermarks not updated since cutoff and returns the
// number of rows removed.
func (r *SQLiteRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM watermarks WHERE updated_at < ?`, cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("prune watermarks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
