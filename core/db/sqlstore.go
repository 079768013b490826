package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fbz-tec/crudx/core/crud"
	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
)

// SQLStore is a backend over database/sql, shared by the SQLite and MySQL
// dialects. Both use ? placeholders and LastInsertId.
type SQLStore struct {
	DB      *sql.DB
	dialect string
	stmts   statements
	wrapErr func(error) error
}

func newSQLStore(db *sql.DB, dialect string, stmts statements, wrapErr func(error) error) *SQLStore {
	return &SQLStore{DB: db, dialect: dialect, stmts: stmts, wrapErr: wrapErr}
}

func (s *SQLStore) migrate(ctx context.Context) error {
	logger.Debug("Ensuring %s table exists", s.dialect)
	_, err := s.DB.ExecContext(ctx, s.stmts.create)
	return err
}

func (s *SQLStore) Create(ctx context.Context, name string, age int) (model.User, error) {
	res, err := s.DB.ExecContext(ctx, s.stmts.insert, name, age)
	if err != nil {
		return model.User{}, s.wrap(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, s.wrap(err)
	}
	return s.Get(ctx, id)
}

func (s *SQLStore) ReadAll(ctx context.Context) ([]model.User, error) {
	logger.Debug("Query: %s", s.stmts.selectAll)
	rows, err := s.DB.QueryContext(ctx, s.stmts.selectAll)
	if err != nil {
		return nil, s.wrap(err)
	}
	defer rows.Close()

	var all []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Age); err != nil {
			return nil, fmt.Errorf("%w: %w", crud.ErrDecode, err)
		}
		all = append(all, u)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(err)
	}
	return all, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := s.DB.QueryRowContext(ctx, s.stmts.selectOne, id).Scan(&u.ID, &u.Name, &u.Age)
	if err != nil {
		return model.User{}, s.wrap(err)
	}
	return u, nil
}

func (s *SQLStore) Update(ctx context.Context, id int64, age int) (model.User, error) {
	res, err := s.DB.ExecContext(ctx, s.stmts.update, age, id)
	if err != nil {
		return model.User{}, s.wrap(err)
	}
	if err := checkAffected(res); err != nil {
		return model.User{}, s.wrap(err)
	}
	return s.Get(ctx, id)
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, s.stmts.delete, id)
	if err != nil {
		return s.wrap(err)
	}
	return s.wrap(checkAffected(res))
}

func (s *SQLStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *SQLStore) wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", crud.ErrNotFound, err)
	}
	if s.wrapErr != nil {
		return s.wrapErr(err)
	}
	return err
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n < 1 {
		return crud.ErrNotFound
	}
	return nil
}
