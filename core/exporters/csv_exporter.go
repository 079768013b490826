package exporters

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
)

type csvExporter struct{}

func (e *csvExporter) Export(users []model.User, options ExportOptions) (int, error) {
	start := time.Now()
	logger.Debug("Preparing CSV export (delimiter=%q, noHeader=%v, compression=%s)",
		string(options.Delimiter), options.NoHeader, options.Compression)

	writeCloser, err := createWriter(options)
	if err != nil {
		return 0, err
	}
	defer writeCloser.Close()

	writer := csv.NewWriter(writeCloser)
	if options.Delimiter != 0 {
		writer.Comma = options.Delimiter
	}

	if !options.NoHeader {
		if err := writer.Write(model.Columns); err != nil {
			return 0, fmt.Errorf("error writing headers: %w", err)
		}
	}

	for i, u := range users {
		record := []string{strconv.FormatInt(u.ID, 10), u.Name, strconv.Itoa(u.Age)}
		if err := writer.Write(record); err != nil {
			return i, fmt.Errorf("error writing row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return len(users), fmt.Errorf("error flushing CSV writer: %w", err)
	}
	if err := writeCloser.Close(); err != nil {
		return len(users), fmt.Errorf("error closing output: %w", err)
	}

	logger.Debug("CSV export completed: %d rows in %v", len(users), time.Since(start))
	return len(users), nil
}

func init() {
	MustRegister(FormatCSV, func() Exporter { return &csvExporter{} })
}
