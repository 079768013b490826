package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fbz-tec/crudx/core/config"
	"github.com/fbz-tec/crudx/core/crud"
	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgColumnsDDL = `id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		name TEXT NOT NULL,
		age INTEGER NOT NULL`

// PgStore is the PostgreSQL backend. It owns a single pgx connection.
type PgStore struct {
	conn  *pgx.Conn
	stmts statements
}

func init() {
	crud.MustRegister("postgres", OpenPostgres)
}

// OpenPostgres connects to PostgreSQL and verifies the connection with a ping.
func OpenPostgres(ctx context.Context, cfg config.ConnectionConfig) (crud.Backend, error) {
	table, err := tableName(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crud.ErrProtocolMismatch, err)
	}

	dsn, err := PostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Connection timeout: %v", cfg.Timeout)
	logger.Debug("Attempting to connect to database host: %s", sanitizeDSN(dsn))

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid connection string: %w", crud.ErrProtocolMismatch, err)
	}
	connConfig.ConnectTimeout = cfg.Timeout

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, classifyPgConnect(err)
	}

	logger.Debug("Connection established, verifying connectivity (ping)...")
	if err := conn.Ping(ctx); err != nil {
		conn.Close(context.Background())
		return nil, classifyPgConnect(err)
	}
	logger.Debug("Database ping successful")

	s := &PgStore{
		conn:  conn,
		stmts: newStatements(pgx.Identifier{table}.Sanitize(), dollar, pgColumnsDDL),
	}

	if cfg.BoolOption(optMigrate, false) {
		logger.Debug("Ensuring table %s exists", table)
		if _, err := conn.Exec(ctx, s.stmts.create); err != nil {
			conn.Close(context.Background())
			return nil, classifyPgConnect(err)
		}
	}
	return s, nil
}

func (s *PgStore) Create(ctx context.Context, name string, age int) (model.User, error) {
	rows, err := s.conn.Query(ctx, s.stmts.insert+" RETURNING id, name, age", name, age)
	if err != nil {
		return model.User{}, wrapPgError(err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[model.User])
	if err != nil {
		return model.User{}, wrapPgError(err)
	}
	return u, nil
}

func (s *PgStore) ReadAll(ctx context.Context) ([]model.User, error) {
	logger.Debug("Query: %s", s.stmts.selectAll)
	rows, err := s.conn.Query(ctx, s.stmts.selectAll)
	if err != nil {
		return nil, wrapPgError(err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.User])
	if err != nil {
		return nil, wrapPgError(err)
	}
	return users, nil
}

func (s *PgStore) Get(ctx context.Context, id int64) (model.User, error) {
	rows, err := s.conn.Query(ctx, s.stmts.selectOne, id)
	if err != nil {
		return model.User{}, wrapPgError(err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[model.User])
	if err != nil {
		return model.User{}, wrapPgError(err)
	}
	return u, nil
}

func (s *PgStore) Update(ctx context.Context, id int64, age int) (model.User, error) {
	rows, err := s.conn.Query(ctx, s.stmts.update+" RETURNING id, name, age", age, id)
	if err != nil {
		return model.User{}, wrapPgError(err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[model.User])
	if err != nil {
		return model.User{}, wrapPgError(err)
	}
	return u, nil
}

func (s *PgStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.conn.Exec(ctx, s.stmts.delete, id)
	if err != nil {
		return wrapPgError(err)
	}
	if tag.RowsAffected() < 1 {
		return crud.ErrNotFound
	}
	return nil
}

// Close closes the connection. It is safe to call on a store whose
// connection was never established.
func (s *PgStore) Close() error {
	if s.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.conn.Close(ctx)
}

// PostgresDSN builds a connection URL from the config. An endpoint that is
// already a postgres:// URL is used as the base and credentials fill in only
// what it lacks; otherwise the endpoint is taken as host[:port][/database].
// A URL endpoint that does not parse, or uses another scheme, is a protocol
// mismatch.
func PostgresDSN(cfg config.ConnectionConfig) (string, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)

	var u *url.URL
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			// url.Error repeats the whole endpoint, password included
			var urlErr *url.Error
			if errors.As(err, &urlErr) {
				err = urlErr.Err
			}
			return "", fmt.Errorf("%w: invalid postgres url: %w", crud.ErrProtocolMismatch, err)
		}
		if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
			return "", fmt.Errorf("%w: unsupported scheme %q for postgres", crud.ErrProtocolMismatch, parsed.Scheme)
		}
		u = parsed
	} else {
		host, path, _ := strings.Cut(endpoint, "/")
		u = &url.URL{Scheme: "postgres", Host: host, Path: "/" + path}
	}

	if cfg.Credentials.User != "" {
		if _, hasPwd := u.User.Password(); hasPwd && cfg.Credentials.Password == "" {
			pwd, _ := u.User.Password()
			u.User = url.UserPassword(cfg.Credentials.User, pwd)
		} else if cfg.Credentials.Password != "" {
			u.User = url.UserPassword(cfg.Credentials.User, cfg.Credentials.Password)
		} else {
			u.User = url.User(cfg.Credentials.User)
		}
	}

	if sslmode := cfg.Option("sslmode", ""); sslmode != "" {
		q := u.Query()
		q.Set("sslmode", sslmode)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func classifyPgConnect(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "28"):
			return fmt.Errorf("%w: %w", crud.ErrAuthFailed, err)
		case pgErr.Code == "08P01", pgErr.Code == "0A000":
			return fmt.Errorf("%w: %w", crud.ErrProtocolMismatch, err)
		}
	}
	return fmt.Errorf("%w: %w", crud.ErrUnreachable, err)
}

func wrapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", crud.ErrNotFound, err)
	}
	var scanErr pgx.ScanArgError
	if errors.As(err, &scanErr) {
		return fmt.Errorf("%w: %w", crud.ErrDecode, err)
	}
	return err
}

// sanitizeDSN masks the password inside a PostgreSQL DSN before logging.
func sanitizeDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<invalid-dsn>"
	}

	var userInfo string
	if u.User != nil {
		username := u.User.Username()
		if _, hasPwd := u.User.Password(); hasPwd {
			userInfo = fmt.Sprintf("%s:***@", username)
		} else {
			userInfo = fmt.Sprintf("%s@", username)
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return fmt.Sprintf("%s://%s%s%s", u.Scheme, userInfo, u.Host, path)
}
