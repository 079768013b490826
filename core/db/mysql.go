package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fbz-tec/crudx/core/config"
	"github.com/fbz-tec/crudx/core/crud"
	"github.com/fbz-tec/crudx/internal/logger"
	"github.com/go-sql-driver/mysql"
)

const (
	mysqlColumnsDDL = `id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		age INT NOT NULL`

	defaultMySQLDatabase = "crudx"
)

func init() {
	crud.MustRegister("mysql", OpenMySQL)
}

// OpenMySQL connects to MySQL. The endpoint is either a full driver DSN
// (user:pass@tcp(host:port)/db) or a bare host[:port], in which case the
// database comes from the "database" option.
func OpenMySQL(ctx context.Context, cfg config.ConnectionConfig) (crud.Backend, error) {
	table, err := tableName(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crud.ErrProtocolMismatch, err)
	}

	mc, err := MySQLConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crud.ErrProtocolMismatch, err)
	}
	logger.Debug("Attempting to connect to MySQL: %s", sanitizeMySQL(mc))

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crud.ErrProtocolMismatch, err)
	}
	db := sql.OpenDB(connector)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classifyMySQLConnect(err)
	}
	logger.Debug("Database ping successful")

	return openMySQLStore(ctx, db, table, cfg.BoolOption(optMigrate, false))
}

func openMySQLStore(ctx context.Context, db *sql.DB, table string, migrate bool) (*SQLStore, error) {
	s := newSQLStore(db, "mysql", newStatements(quoteWith("`")(table), questionMark, mysqlColumnsDDL), wrapMySQLError)
	if migrate {
		if err := s.migrate(ctx); err != nil {
			db.Close()
			return nil, classifyMySQLConnect(err)
		}
	}
	return s, nil
}

// MySQLConfig builds the driver config for cfg. ClientFoundRows is always on
// so that updating a row to its current value still counts as a match.
func MySQLConfig(cfg config.ConnectionConfig) (*mysql.Config, error) {
	var mc *mysql.Config
	endpoint := strings.TrimSpace(cfg.Endpoint)

	if strings.Contains(endpoint, "/") {
		parsed, err := mysql.ParseDSN(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		mc = parsed
	} else {
		mc = mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = endpoint
		mc.DBName = cfg.Option("database", defaultMySQLDatabase)
	}

	if cfg.Credentials.User != "" {
		mc.User = cfg.Credentials.User
	}
	if cfg.Credentials.Password != "" {
		mc.Passwd = cfg.Credentials.Password
	}
	mc.ClientFoundRows = true
	mc.Timeout = cfg.Timeout
	return mc, nil
}

func sanitizeMySQL(mc *mysql.Config) string {
	masked := mc.Clone()
	if masked.Passwd != "" {
		masked.Passwd = "***"
	}
	return masked.FormatDSN()
}

func classifyMySQLConnect(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1045, 1698:
			return fmt.Errorf("%w: %w", crud.ErrAuthFailed, err)
		case 1049:
			return fmt.Errorf("%w: %w", crud.ErrUnreachable, err)
		}
	}
	if errors.Is(err, mysql.ErrOldProtocol) || errors.Is(err, mysql.ErrNativePassword) ||
		errors.Is(err, mysql.ErrOldPassword) || errors.Is(err, mysql.ErrCleartextPassword) {
		return fmt.Errorf("%w: %w", crud.ErrProtocolMismatch, err)
	}
	return fmt.Errorf("%w: %w", crud.ErrUnreachable, err)
}

func wrapMySQLError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return fmt.Errorf("constraint violation: %w", err)
	}
	return err
}
