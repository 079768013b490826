package exporters

import (
	"fmt"
	"time"

	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName   = "Users"
	maxSheetRow = 1_048_576
)

type xlsxExporter struct{}

// Export writes users to a workbook. Rows past the sheet limit continue on
// Users2, Users3 and so on.
func (e *xlsxExporter) Export(users []model.User, options ExportOptions) (int, error) {
	start := time.Now()
	logger.Debug("Preparing XLSX export (compression=%s)", options.Compression)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Error closing Excel file: %v", err)
		}
	}()

	var headerStyleID int
	if !options.NoHeader {
		styleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			logger.Warn("Failed to create header style: %v", err)
		} else {
			headerStyleID = styleID
		}
	}

	sheetIndex := 1
	sw, currentRow, err := initSheet(f, sheetIndex, options.NoHeader, headerStyleID)
	if err != nil {
		return 0, err
	}

	for i, u := range users {
		if currentRow > maxSheetRow {
			if err := sw.Flush(); err != nil {
				return i, fmt.Errorf("error flushing sheet %d: %w", sheetIndex, err)
			}
			sheetIndex++
			logger.Debug("Starting sheet %d (row limit reached)", sheetIndex)
			if sw, currentRow, err = initSheet(f, sheetIndex, options.NoHeader, headerStyleID); err != nil {
				return i, err
			}
		}

		cell, _ := excelize.CoordinatesToCellName(1, currentRow)
		if err := sw.SetRow(cell, u.Values()); err != nil {
			return i, fmt.Errorf("error writing row %d: %w", currentRow, err)
		}
		currentRow++
	}

	if err := sw.Flush(); err != nil {
		return len(users), fmt.Errorf("error flushing stream: %w", err)
	}

	writeCloser, err := createWriter(options)
	if err != nil {
		return len(users), err
	}
	defer writeCloser.Close()

	if err := f.Write(writeCloser); err != nil {
		return len(users), fmt.Errorf("error writing Excel file: %w", err)
	}
	if err := writeCloser.Close(); err != nil {
		return len(users), fmt.Errorf("error closing output: %w", err)
	}

	logger.Debug("XLSX export completed: %d rows in %v", len(users), time.Since(start))
	return len(users), nil
}

// initSheet prepares sheet n for streaming and writes the header row unless
// disabled. It returns the first free row.
func initSheet(f *excelize.File, n int, noHeader bool, headerStyleID int) (*excelize.StreamWriter, int, error) {
	name := sheetName
	if n == 1 {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return nil, 0, fmt.Errorf("failed to rename default sheet: %w", err)
		}
	} else {
		name = fmt.Sprintf("%s%d", sheetName, n)
		if _, err := f.NewSheet(name); err != nil {
			return nil, 0, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating stream writer: %w", err)
	}

	row := 1
	if !noHeader {
		header := make([]any, len(model.Columns))
		for i, col := range model.Columns {
			header[i] = excelize.Cell{Value: col, StyleID: headerStyleID}
		}
		if err := sw.SetRow("A1", header); err != nil {
			return nil, 0, fmt.Errorf("error writing headers: %w", err)
		}
		row++
	}
	return sw, row, nil
}

func init() {
	MustRegister(FormatXLSX, func() Exporter { return &xlsxExporter{} })
}
