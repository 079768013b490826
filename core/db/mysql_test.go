package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fbz-tec/crudx/core/config"
	"github.com/fbz-tec/crudx/core/crud"
	"github.com/fbz-tec/crudx/core/model"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mysqlStmts = newStatements("`users`", questionMark, mysqlColumnsDDL)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	s, err := openMySQLStore(context.Background(), db, DefaultTable, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return s, mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "age"})
}

func TestMySQLStore_Create(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(mysqlStmts.insert).WithArgs("Alice", 30).WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(mysqlStmts.selectOne).WithArgs(int64(7)).
		WillReturnRows(userRows().AddRow(int64(7), "Alice", int64(30)))

	u, err := s.Create(context.Background(), "Alice", 30)
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: 7, Name: "Alice", Age: 30}, u)
}

func TestMySQLStore_CreateDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(mysqlStmts.insert).WithArgs("Alice", 30).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := s.Create(context.Background(), "Alice", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violation")
}

func TestMySQLStore_ReadAll(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(mysqlStmts.selectAll).WillReturnRows(
		userRows().AddRow(int64(1), "Alice", int64(30)).AddRow(int64(2), "Bob", int64(28)))

	users, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.User{{ID: 1, Name: "Alice", Age: 30}, {ID: 2, Name: "Bob", Age: 28}}, users)
}

func TestMySQLStore_ReadAllMalformedRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(mysqlStmts.selectAll).WillReturnRows(userRows().AddRow("not-a-number", "Bob", int64(28)))

	_, err := s.ReadAll(context.Background())
	assert.ErrorIs(t, err, crud.ErrDecode)
}

func TestMySQLStore_GetMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(mysqlStmts.selectOne).WithArgs(int64(42)).WillReturnRows(userRows())

	_, err := s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, crud.ErrNotFound)
}

func TestMySQLStore_Update(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(mysqlStmts.update).WithArgs(35, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(mysqlStmts.selectOne).WithArgs(int64(1)).
		WillReturnRows(userRows().AddRow(int64(1), "Alice", int64(35)))

	u, err := s.Update(context.Background(), 1, 35)
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: 1, Name: "Alice", Age: 35}, u)
}

func TestMySQLStore_UpdateMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(mysqlStmts.update).WithArgs(5, int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.Update(context.Background(), 99, 5)
	assert.ErrorIs(t, err, crud.ErrNotFound)
}

func TestMySQLStore_Delete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(mysqlStmts.delete).WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(mysqlStmts.delete).WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), 2))
	assert.ErrorIs(t, s.Delete(context.Background(), 2), crud.ErrNotFound)
}

func TestMySQLStore_BackendError(t *testing.T) {
	s, mock := newMockStore(t)

	boom := errors.New("connection reset")
	mock.ExpectQuery(mysqlStmts.selectAll).WillReturnError(boom)

	_, err := s.ReadAll(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, crud.ErrNotFound)
}

func TestMySQLStore_Close(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectClose()
	assert.NoError(t, s.Close())
}

func TestOpenMySQLStore_Migrate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	mock.ExpectExec(mysqlStmts.create).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = openMySQLStore(context.Background(), db, DefaultTable, true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenMySQLStore_MigrateDenied(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	mock.ExpectExec(mysqlStmts.create).
		WillReturnError(&mysql.MySQLError{Number: 1044, Message: "Access denied"})
	mock.ExpectClose()

	_, err = openMySQLStore(context.Background(), db, DefaultTable, true)
	assert.ErrorIs(t, err, crud.ErrAuthFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLConfig(t *testing.T) {
	t.Run("bare host", func(t *testing.T) {
		cfg := config.Default()
		cfg.Endpoint = "db.local:3306"
		cfg.Timeout = 3 * time.Second
		cfg.Credentials = config.Credentials{User: "app", Password: "secret"}

		mc, err := MySQLConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, "tcp", mc.Net)
		assert.Equal(t, "db.local:3306", mc.Addr)
		assert.Equal(t, defaultMySQLDatabase, mc.DBName)
		assert.Equal(t, "app", mc.User)
		assert.Equal(t, "secret", mc.Passwd)
		assert.True(t, mc.ClientFoundRows)
		assert.Equal(t, 3*time.Second, mc.Timeout)
	})

	t.Run("database option", func(t *testing.T) {
		cfg := config.Default()
		cfg.Endpoint = "db.local"
		cfg.SetOption("database", "people")

		mc, err := MySQLConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, "people", mc.DBName)
	})

	t.Run("dsn with override", func(t *testing.T) {
		cfg := config.Default()
		cfg.Endpoint = "root:pw@tcp(db:3306)/app"
		cfg.Credentials.User = "other"

		mc, err := MySQLConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, "db:3306", mc.Addr)
		assert.Equal(t, "app", mc.DBName)
		assert.Equal(t, "other", mc.User)
		assert.Equal(t, "pw", mc.Passwd)
		assert.True(t, mc.ClientFoundRows)
	})

	t.Run("invalid dsn", func(t *testing.T) {
		cfg := config.Default()
		cfg.Endpoint = "tcp(db:3306)/app?timeout=soon"

		_, err := MySQLConfig(cfg)
		assert.Error(t, err)
	})
}

func TestSanitizeMySQL(t *testing.T) {
	mc := mysql.NewConfig()
	mc.User = "root"
	mc.Passwd = "secret"
	mc.Net = "tcp"
	mc.Addr = "db:3306"
	mc.DBName = "app"

	got := sanitizeMySQL(mc)
	assert.False(t, strings.Contains(got, "secret"), got)
	assert.Contains(t, got, "root:***@tcp(db:3306)/app")
	assert.Equal(t, "secret", mc.Passwd, "original config must not be modified")
}

func TestClassifyMySQLConnect(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"access denied", &mysql.MySQLError{Number: 1045}, crud.ErrAuthFailed},
		{"db access denied", &mysql.MySQLError{Number: 1044}, crud.ErrAuthFailed},
		{"unknown database", &mysql.MySQLError{Number: 1049}, crud.ErrUnreachable},
		{"old protocol", mysql.ErrOldProtocol, crud.ErrProtocolMismatch},
		{"native password disabled", mysql.ErrNativePassword, crud.ErrProtocolMismatch},
		{"dial", errors.New("dial tcp: i/o timeout"), crud.ErrUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyMySQLConnect(tt.err), tt.want)
		})
	}
}

func TestOpenMySQL_Unreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "mysql"
	cfg.Endpoint = "127.0.0.1:1"
	cfg.Timeout = 500 * time.Millisecond

	_, err := OpenMySQL(context.Background(), cfg)
	assert.ErrorIs(t, err, crud.ErrUnreachable)
}
