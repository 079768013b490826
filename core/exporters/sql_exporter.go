package exporters

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
)

const defaultSQLTable = "users"

type sqlExporter struct{}

// Export writes users as INSERT statements, RowPerStatement rows each.
func (e *sqlExporter) Export(users []model.User, options ExportOptions) (int, error) {
	table := options.TableName
	if table == "" {
		table = defaultSQLTable
	}
	perStatement := options.RowPerStatement
	if perStatement < 1 {
		perStatement = 1
	}

	start := time.Now()
	logger.Debug("Preparing SQL export (table=%s, compression=%s, rows-per-statement=%d)",
		table, options.Compression, perStatement)

	writeCloser, err := createWriter(options)
	if err != nil {
		return 0, err
	}
	defer writeCloser.Close()

	columns := make([]string, len(model.Columns))
	for i, c := range model.Columns {
		columns[i] = quoteIdent(c)
	}

	statements := 0
	batch := make([][]string, 0, perStatement)
	for i, u := range users {
		batch = append(batch, []string{
			strconv.FormatInt(u.ID, 10),
			quoteLiteral(u.Name),
			strconv.Itoa(u.Age),
		})
		if len(batch) == perStatement || i == len(users)-1 {
			if err := writeBatchInsert(writeCloser, table, columns, batch); err != nil {
				return i + 1 - len(batch), fmt.Errorf("error writing statement %d: %w", statements+1, err)
			}
			statements++
			batch = batch[:0]
		}
	}

	if err := writeCloser.Close(); err != nil {
		return len(users), fmt.Errorf("error closing output: %w", err)
	}

	logger.Debug("SQL export completed: %d rows in %d INSERT statements (%v)",
		len(users), statements, time.Since(start))
	return len(users), nil
}

func writeBatchInsert(w io.Writer, table string, columns []string, rows [][]string) error {
	var stmt strings.Builder
	fmt.Fprintf(&stmt, "INSERT INTO %s (%s) VALUES\n", quoteIdent(table), strings.Join(columns, ", "))
	for i, record := range rows {
		sep := ","
		if i == len(rows)-1 {
			sep = ";"
		}
		fmt.Fprintf(&stmt, "\t(%s)%s\n", strings.Join(record, ", "), sep)
	}
	_, err := io.WriteString(w, stmt.String())
	return err
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func init() {
	MustRegister(FormatSQL, func() Exporter { return &sqlExporter{} })
}
