// Package db holds the relational backends: PostgreSQL over a native pgx
// connection, and SQLite and MySQL over database/sql. Importing the package
// registers all three with the crud core.
package db

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fbz-tec/crudx/core/config"
)

const (
	DefaultTable = "users"

	optTable   = "table"
	optMigrate = "migrate"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// tableName returns the validated table option. Identifiers cannot be bound as
// parameters, so only plain names are accepted.
func tableName(cfg config.ConnectionConfig) (string, error) {
	name := cfg.Option(optTable, DefaultTable)
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	return name, nil
}

// statements holds the parameterized SQL for one table and dialect.
type statements struct {
	create    string
	insert    string
	selectAll string
	selectOne string
	update    string
	delete    string
}

// newStatements builds the statement set. quoted is the already quoted table
// identifier, ph renders the n-th (1-based) placeholder and columnsDDL is the
// column list for CREATE TABLE.
func newStatements(quoted string, ph func(n int) string, columnsDDL string) statements {
	return statements{
		create:    fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoted, columnsDDL),
		insert:    fmt.Sprintf("INSERT INTO %s (name, age) VALUES (%s, %s)", quoted, ph(1), ph(2)),
		selectAll: fmt.Sprintf("SELECT id, name, age FROM %s", quoted),
		selectOne: fmt.Sprintf("SELECT id, name, age FROM %s WHERE id = %s", quoted, ph(1)),
		update:    fmt.Sprintf("UPDATE %s SET age = %s WHERE id = %s", quoted, ph(1), ph(2)),
		delete:    fmt.Sprintf("DELETE FROM %s WHERE id = %s", quoted, ph(1)),
	}
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func quoteWith(q string) func(string) string {
	return func(name string) string {
		return q + strings.ReplaceAll(name, q, q+q) + q
	}
}
