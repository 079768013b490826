package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fbz-tec/crudx/core/crud"
	"github.com/fbz-tec/crudx/core/exporters"
	"github.com/fbz-tec/crudx/core/output"
	"github.com/fbz-tec/crudx/core/validation"
	"github.com/fbz-tec/crudx/internal/logger"
	"github.com/spf13/cobra"
)

type exportFlags struct {
	outputPath      string
	format          string
	compression     string
	delimiter       string
	noHeader        bool
	xmlRootElement  string
	xmlRowElement   string
	tableName       string
	rowPerStatement int
	templateFile    string
	templateHeader  string
	templateRow     string
	templateFooter  string
	failOnEmpty     bool
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	f := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all users to a file",
		Long: `Export a snapshot of every user.

Supported output formats:
 • CSV      - customizable delimiter, optional header
 • JSON     - array of objects, keys in column order
 • XML      - configurable root and row elements
 • YAML     - sequence of mappings
 • XLSX     - Excel workbook
 • SQL      - INSERT statements, optionally batched
 • TEMPLATE - text/template, full or header/row/footer streaming`,
		Example: `  crudx export -o users.csv
  crudx export -o users.csv -D ";" --no-header
  crudx export -o users.json -f json -z zstd
  crudx export -o users.sql -f sql -t people --insert-batch 100
  crudx export -o report.md -f template --tpl-row row.tpl --tpl-header header.tpl`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "output"); err != nil {
				return err
			}
			options, err := f.exportOptions()
			if err != nil {
				return err
			}
			exporter, err := exporters.Get(options.Format)
			if err != nil {
				return &usageError{err: err}
			}

			return opts.withConn(cmd, func(ctx context.Context, conn *crud.Conn) error {
				users, err := conn.ReadAll(ctx)
				if err != nil {
					return err
				}
				logger.Debug("Exporting %d users as %s", len(users), options.Format)

				rowCount, err := exporter.Export(users, options)
				if err != nil {
					return fmt.Errorf("export failed: %w", err)
				}
				return f.handleExportResult(rowCount)
			})
		},
	}

	fl := cmd.Flags()
	fl.SortFlags = false
	fl.StringVarP(&f.outputPath, "output", "o", "", "Output file path (required)")
	fl.StringVarP(&f.format, "format", "f", exporters.FormatCSV, "Output format ("+strings.Join(exporters.List(), ", ")+")")
	fl.StringVarP(&f.compression, "compression", "z", output.None, "Compression ("+strings.Join(output.Compressions(), ", ")+")")

	fl.StringVarP(&f.delimiter, "delimiter", "D", ",", "CSV delimiter character (\\t for tab)")
	fl.BoolVar(&f.noHeader, "no-header", false, "Skip the header row in CSV and XLSX output")

	fl.StringVar(&f.xmlRootElement, "xml-root-tag", "users", "Root element name for XML exports")
	fl.StringVar(&f.xmlRowElement, "xml-row-tag", "user", "Row element name for XML exports")

	fl.StringVarP(&f.tableName, "table", "t", "users", "Table name for SQL exports")
	fl.IntVar(&f.rowPerStatement, "insert-batch", 1, "Rows per INSERT statement in SQL exports")

	fl.StringVar(&f.templateFile, "tpl-file", "", "Template file (full mode)")
	fl.StringVar(&f.templateHeader, "tpl-header", "", "Optional header template (streaming mode)")
	fl.StringVar(&f.templateRow, "tpl-row", "", "Row template (streaming mode)")
	fl.StringVar(&f.templateFooter, "tpl-footer", "", "Optional footer template (streaming mode)")

	fl.BoolVarP(&f.failOnEmpty, "fail-on-empty", "x", false, "Exit with an error if there are no users")
	return cmd
}

func (f *exportFlags) exportOptions() (exporters.ExportOptions, error) {
	format := strings.ToLower(strings.TrimSpace(f.format))

	delim := ','
	if format == exporters.FormatCSV {
		d, err := validation.ParseDelimiter(f.delimiter)
		if err != nil {
			return exporters.ExportOptions{}, usagef("invalid delimiter: %w", err)
		}
		delim = d
	}

	options := exporters.ExportOptions{
		Format:            format,
		OutputPath:        f.outputPath,
		Compression:       strings.ToLower(strings.TrimSpace(f.compression)),
		Delimiter:         delim,
		NoHeader:          f.noHeader,
		XmlRootElement:    f.xmlRootElement,
		XmlRowElement:     f.xmlRowElement,
		TableName:         f.tableName,
		RowPerStatement:   f.rowPerStatement,
		TemplateFile:      f.templateFile,
		TemplateHeader:    f.templateHeader,
		TemplateRow:       f.templateRow,
		TemplateFooter:    f.templateFooter,
		TemplateStreaming: f.templateFile == "",
	}
	if err := validation.ValidateExportOptions(options); err != nil {
		return options, &usageError{err: err}
	}
	return options, nil
}

func (f *exportFlags) handleExportResult(rowCount int) error {
	if rowCount == 0 {
		if f.failOnEmpty {
			return fmt.Errorf("export failed: no users to export")
		}
		logger.Warn("No users found. File created at %s but contains no data rows", f.outputPath)
		return nil
	}
	logger.Success("Export completed: %d rows -> %s", rowCount, f.outputPath)
	return nil
}
