// Package importers reads user records from files and replays them against a
// connection.
package importers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/fbz-tec/crudx/core/crud"
	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
	"gopkg.in/yaml.v3"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Record is one user to be created. Any id present in the source is ignored;
// the store assigns a fresh one.
type Record struct {
	Name string
	Age  int
}

// rawRecord detects a missing age in JSON and YAML input.
type rawRecord struct {
	Name string `json:"name" yaml:"name"`
	Age  *int   `json:"age" yaml:"age"`
}

// Creator is the part of *crud.Conn an import needs.
type Creator interface {
	Create(ctx context.Context, name string, age int) (model.User, error)
}

// Formats lists the accepted input formats.
func Formats() []string {
	return []string{FormatCSV, FormatJSON, FormatYAML}
}

// FormatFromPath infers the input format from the file extension.
func FormatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: cannot infer import format from extension %q (use --format)", crud.ErrValidation, ext)
	}
}

// ReadFile reads all records from path. An empty format is inferred from the
// extension.
func ReadFile(path, format string) ([]Record, error) {
	if strings.TrimSpace(format) == "" {
		f, err := FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		format = f
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening input file: %w", err)
	}
	defer file.Close()

	return Read(file, format)
}

// Read decodes all records from r.
func Read(r io.Reader, format string) ([]Record, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV:
		return readCSV(r)
	case FormatJSON:
		var raw []rawRecord
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON input: %w", crud.ErrValidation, err)
		}
		return fromRaw(raw)
	case FormatYAML:
		var raw []rawRecord
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: invalid YAML input: %w", crud.ErrValidation, err)
		}
		return fromRaw(raw)
	default:
		return nil, fmt.Errorf("%w: unsupported import format %q (valid: %s)",
			crud.ErrValidation, format, strings.Join(Formats(), ", "))
	}
}

func fromRaw(raw []rawRecord) ([]Record, error) {
	records := make([]Record, 0, len(raw))
	for i, r := range raw {
		if r.Age == nil {
			return nil, fmt.Errorf("%w: record %d has no age", crud.ErrValidation, i+1)
		}
		records = append(records, Record{Name: r.Name, Age: *r.Age})
	}
	return records, nil
}

// readCSV expects a header row naming at least the name and age columns, in
// any order. Other columns, id included, are skipped.
func readCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: error reading CSV header: %w", crud.ErrValidation, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	nameCol, ageCol := slices.Index(header, "name"), slices.Index(header, "age")
	if nameCol < 0 || ageCol < 0 {
		return nil, fmt.Errorf("%w: CSV header must contain name and age columns, got %v", crud.ErrValidation, header)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", crud.ErrValidation, err)
		}
		line, _ := reader.FieldPos(0)
		if len(row) <= max(nameCol, ageCol) {
			return nil, fmt.Errorf("%w: line %d: expected at least %d fields, got %d",
				crud.ErrValidation, line, max(nameCol, ageCol)+1, len(row))
		}
		age, err := strconv.Atoi(strings.TrimSpace(row[ageCol]))
		if err != nil {
			line, _ = reader.FieldPos(ageCol)
			return nil, fmt.Errorf("%w: line %d: invalid age %q", crud.ErrValidation, line, row[ageCol])
		}
		records = append(records, Record{Name: row[nameCol], Age: age})
	}
	return records, nil
}

// Import creates each record in order and stops at the first failure. It
// returns how many records were created. progress, if not nil, is called after
// every successful create.
func Import(ctx context.Context, c Creator, records []Record, progress func()) (int, error) {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		u, err := c.Create(ctx, rec.Name, rec.Age)
		if err != nil {
			return i, fmt.Errorf("record %d (%q): %w", i+1, rec.Name, err)
		}
		logger.Debug("Imported %s", u)
		if progress != nil {
			progress()
		}
	}
	return len(records), nil
}
