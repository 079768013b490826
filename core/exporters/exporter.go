package exporters

import (
	"io"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/core/output"
)

const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatXML      = "xml"
	FormatSQL      = "sql"
	FormatYAML     = "yaml"
	FormatXLSX     = "xlsx"
	FormatTemplate = "template"
)

// ExportOptions holds export configuration
type ExportOptions struct {
	Format          string
	OutputPath      string
	Compression     string
	Delimiter       rune
	NoHeader        bool
	XmlRootElement  string
	XmlRowElement   string
	TableName       string
	RowPerStatement int

	// Template mode: either TemplateFile (full mode) or TemplateRow with
	// optional header/footer (streaming mode).
	TemplateFile      string
	TemplateHeader    string
	TemplateRow       string
	TemplateFooter    string
	TemplateStreaming bool
}

// Exporter writes a snapshot of users to options.OutputPath and returns the
// number of records written.
type Exporter interface {
	Export(users []model.User, options ExportOptions) (int, error)
}

func createWriter(options ExportOptions) (io.WriteCloser, error) {
	return output.CreateWriter(output.OutputConfig{
		Path:        options.OutputPath,
		Compression: options.Compression,
		Format:      options.Format,
	})
}

// rowMap lays out a user as column -> value in model.Columns order.
func rowMap(u model.User) *orderedmap.OrderedMap[string, any] {
	row := orderedmap.NewOrderedMap[string, any]()
	for i, v := range u.Values() {
		row.Set(model.Columns[i], v)
	}
	return row
}
