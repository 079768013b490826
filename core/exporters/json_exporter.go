package exporters

import (
	"fmt"
	"time"

	"github.com/fbz-tec/crudx/core/encoders"
	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
)

type jsonExporter struct{}

// Export writes users as a JSON array, keys in column order.
func (e *jsonExporter) Export(users []model.User, options ExportOptions) (int, error) {
	start := time.Now()
	logger.Debug("Preparing JSON export (indent=2 spaces, compression=%s)", options.Compression)

	writeCloser, err := createWriter(options)
	if err != nil {
		return 0, err
	}
	defer writeCloser.Close()

	if _, err := writeCloser.Write([]byte("[\n")); err != nil {
		return 0, fmt.Errorf("error writing start of JSON array: %w", err)
	}

	enc := encoders.NewOrderedJsonEncoder("  ")
	for i, u := range users {
		if i > 0 {
			if _, err := writeCloser.Write([]byte(",\n")); err != nil {
				return i, fmt.Errorf("error writing comma for row %d: %w", i, err)
			}
		}

		obj, err := enc.EncodeRow(rowMap(u))
		if err != nil {
			return i, fmt.Errorf("error encoding JSON for row %d: %w", i, err)
		}
		if _, err := writeCloser.Write(append([]byte("  "), obj...)); err != nil {
			return i, fmt.Errorf("error writing JSON object for row %d: %w", i, err)
		}
	}

	closing := "]\n"
	if len(users) > 0 {
		closing = "\n]\n"
	}
	if _, err := writeCloser.Write([]byte(closing)); err != nil {
		return len(users), fmt.Errorf("error writing end of JSON array: %w", err)
	}
	if err := writeCloser.Close(); err != nil {
		return len(users), fmt.Errorf("error closing output: %w", err)
	}

	logger.Debug("JSON export completed: %d rows in %v", len(users), time.Since(start))
	return len(users), nil
}

func init() {
	MustRegister(FormatJSON, func() Exporter { return &jsonExporter{} })
}
