package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fbz-tec/crudx/core/config"
	"github.com/fbz-tec/crudx/core/crud"
	"github.com/fbz-tec/crudx/internal/logger"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteColumnsDDL = `id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		age INTEGER NOT NULL`

func init() {
	crud.MustRegister("sqlite", OpenSQLite)
}

// OpenSQLite opens the SQLite database at cfg.Endpoint (a file path or
// ":memory:"). The table is created unless the migrate option is false.
func OpenSQLite(ctx context.Context, cfg config.ConnectionConfig) (crud.Backend, error) {
	table, err := tableName(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crud.ErrProtocolMismatch, err)
	}

	logger.Debug("Opening SQLite database: %s", cfg.Endpoint)
	db, err := sql.Open("sqlite", cfg.Endpoint)
	if err != nil {
		return nil, classifySQLiteConnect(err)
	}
	// an in-memory database lives and dies with its single connection
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classifySQLiteConnect(err)
	}

	s := newSQLStore(db, "sqlite", newStatements(quoteWith(`"`)(table), questionMark, sqliteColumnsDDL), wrapSQLiteError)
	if cfg.BoolOption(optMigrate, true) {
		if err := s.migrate(ctx); err != nil {
			db.Close()
			return nil, classifySQLiteConnect(err)
		}
	}
	return s, nil
}

func sqliteCode(err error) (int, bool) {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() & 0xff, true
	}
	return 0, false
}

func classifySQLiteConnect(err error) error {
	if code, ok := sqliteCode(err); ok {
		switch code {
		case sqlite3.SQLITE_AUTH:
			return fmt.Errorf("%w: %w", crud.ErrAuthFailed, err)
		case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
			return fmt.Errorf("%w: %w", crud.ErrProtocolMismatch, err)
		}
	}
	return fmt.Errorf("%w: %w", crud.ErrUnreachable, err)
}

func wrapSQLiteError(err error) error {
	if code, ok := sqliteCode(err); ok && code == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("constraint violation: %w", err)
	}
	return err
}
